// Package storage persists whole JSON documents by name. The stores built on
// top of it rewrite their entire document on every mutation.
package storage

import (
	"encoding/json"
	"errors"
	"fmt"
)

// ErrNotFound is returned when a requested document does not exist.
var ErrNotFound = errors.New("not found")

// Backend reads and writes named documents.
type Backend interface {
	// Read returns the stored bytes, or ErrNotFound.
	Read(name string) ([]byte, error)
	// Write replaces the whole document.
	Write(name string, data []byte) error
	// Location describes where documents live, for status output.
	Location() string
	Close() error
}

const (
	KindJSON   = "json"
	KindSQLite = "sqlite"
)

// OpenBackend opens the backend named by kind inside dataDir.
func OpenBackend(kind, dataDir string) (Backend, error) {
	switch kind {
	case "", KindJSON:
		return NewFileBackend(dataDir)
	case KindSQLite:
		return OpenSQLite(dataDir)
	default:
		return nil, fmt.Errorf("unknown storage backend %q (want %q or %q)", kind, KindJSON, KindSQLite)
	}
}

// LoadJSON decodes document name into v. found is false when the document
// does not exist; that is not an error.
func LoadJSON(b Backend, name string, v any) (found bool, err error) {
	data, err := b.Read(name)
	if errors.Is(err, ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, fmt.Errorf("reading %s: %w", name, err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return true, fmt.Errorf("decoding %s: %w", name, err)
	}
	return true, nil
}

// SaveJSON encodes v with indentation and replaces document name.
func SaveJSON(b Backend, name string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("encoding %s: %w", name, err)
	}
	if err := b.Write(name, data); err != nil {
		return fmt.Errorf("writing %s: %w", name, err)
	}
	return nil
}
