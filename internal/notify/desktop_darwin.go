//go:build darwin

package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type desktopDeliverer struct{}

// Desktop returns a Deliverer that posts to Notification Center through
// osascript.
func Desktop() Deliverer {
	return desktopDeliverer{}
}

func (desktopDeliverer) Deliver(ctx context.Context, req Request) error {
	out, err := exec.CommandContext(ctx, "osascript", osascriptArgs(req)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("osascript: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

func (desktopDeliverer) Authorize(context.Context) (bool, error) {
	if _, err := exec.LookPath("osascript"); err != nil {
		return false, nil
	}
	return true, nil
}
