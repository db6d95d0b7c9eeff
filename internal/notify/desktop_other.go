//go:build !darwin

package notify

import (
	"context"
	"fmt"
	"os/exec"
	"strings"
)

type desktopDeliverer struct{}

// Desktop returns a Deliverer that shows a freedesktop notification through
// notify-send.
func Desktop() Deliverer {
	return desktopDeliverer{}
}

func (desktopDeliverer) Deliver(ctx context.Context, req Request) error {
	out, err := exec.CommandContext(ctx, "notify-send", notifySendArgs(req)...).CombinedOutput()
	if err != nil {
		return fmt.Errorf("notify-send: %s: %w", strings.TrimSpace(string(out)), err)
	}
	return nil
}

// Authorize reports false when notify-send is not installed.
func (desktopDeliverer) Authorize(context.Context) (bool, error) {
	if _, err := exec.LookPath("notify-send"); err != nil {
		return false, nil
	}
	return true, nil
}
