// Package media moves generated posts out of the app: to the clipboard and
// to image files on disk.
package media

import (
	"context"
	"errors"
	"fmt"
	"os/exec"
	"strings"

	"github.com/kalambet/postdeck/internal/content"
)

// ErrNoClipboard is returned when no clipboard helper is installed.
var ErrNoClipboard = errors.New("no clipboard helper found")

// Clipboard replaces the system clipboard contents with text.
type Clipboard interface {
	WriteText(ctx context.Context, text string) error
}

// commandClipboard pipes text into a helper binary such as pbcopy.
type commandClipboard struct {
	name string
	args []string
}

func (c commandClipboard) WriteText(ctx context.Context, text string) error {
	cmd := exec.CommandContext(ctx, c.name, c.args...)
	cmd.Stdin = strings.NewReader(text)
	if out, err := cmd.CombinedOutput(); err != nil {
		return fmt.Errorf("%s: %s: %w", c.name, strings.TrimSpace(string(out)), err)
	}
	return nil
}

// CopyPost copies the post text.
func CopyPost(ctx context.Context, cb Clipboard, pc content.PlatformContent) error {
	return cb.WriteText(ctx, pc.Content)
}

// CopyImageSuggestion copies the image prompt for use in an image generator.
func CopyImageSuggestion(ctx context.Context, cb Clipboard, pc content.PlatformContent) error {
	if pc.ImageSuggestion == "" {
		return errors.New("variation has no image suggestion")
	}
	return cb.WriteText(ctx, pc.ImageSuggestion)
}

// CopyHashtags copies the hashtags separated by spaces.
func CopyHashtags(ctx context.Context, cb Clipboard, pc content.PlatformContent) error {
	if len(pc.Hashtags) == 0 {
		return errors.New("variation has no hashtags")
	}
	return cb.WriteText(ctx, strings.Join(pc.Hashtags, " "))
}
