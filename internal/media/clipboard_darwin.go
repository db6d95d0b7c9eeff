//go:build darwin

package media

// SystemClipboard returns the pbcopy-backed clipboard.
func SystemClipboard() (Clipboard, error) {
	return commandClipboard{name: "pbcopy"}, nil
}
