package storage

import (
	"fmt"
	"os"
	"path/filepath"
)

// FileBackend keeps each document as <dir>/<name>.json.
type FileBackend struct {
	dir string
}

// NewFileBackend creates dir if needed.
func NewFileBackend(dir string) (*FileBackend, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("creating data directory: %w", err)
	}
	return &FileBackend{dir: dir}, nil
}

// Path returns the file that backs document name.
func (b *FileBackend) Path(name string) string {
	return filepath.Join(b.dir, name+".json")
}

func (b *FileBackend) Read(name string) ([]byte, error) {
	data, err := os.ReadFile(b.Path(name))
	if os.IsNotExist(err) {
		return nil, ErrNotFound
	}
	return data, err
}

// Write overwrites the file in place. A crash mid-write leaves a truncated
// file, which the stores treat as empty on the next load.
func (b *FileBackend) Write(name string, data []byte) error {
	return os.WriteFile(b.Path(name), data, 0o644)
}

func (b *FileBackend) Location() string { return b.dir }

func (b *FileBackend) Close() error { return nil }
