//go:build !darwin

package media

import (
	"os"
	"os/exec"
)

// SystemClipboard picks wl-copy under Wayland, then xclip.
func SystemClipboard() (Clipboard, error) {
	if os.Getenv("WAYLAND_DISPLAY") != "" {
		if _, err := exec.LookPath("wl-copy"); err == nil {
			return commandClipboard{name: "wl-copy"}, nil
		}
	}
	if _, err := exec.LookPath("xclip"); err == nil {
		return commandClipboard{name: "xclip", args: []string{"-selection", "clipboard"}}, nil
	}
	return nil, ErrNoClipboard
}
