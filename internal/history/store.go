// Package history keeps the log of past generation results.
package history

import (
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/observe"
	"github.com/kalambet/postdeck/internal/storage"
)

const (
	// DocumentName is the storage document holding the history.
	DocumentName = "history"
	// MaxEntries is the retention cap; older entries are evicted on save.
	MaxEntries = 50
)

// Entry is one successful generation. Entries are never mutated.
type Entry struct {
	ID        string                   `json:"id"`
	Company   string                   `json:"company"`
	Topic     string                   `json:"topic"`
	Tone      string                   `json:"tone"`
	Content   content.GeneratedContent `json:"content"`
	CreatedAt time.Time                `json:"createdAt"`
}

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type Option func(*Store)

func WithClock(c Clock) Option { return func(s *Store) { s.clock = c } }

func WithLogger(l *slog.Logger) Option { return func(s *Store) { s.logger = l } }

// WithIDGenerator replaces uuid generation (for deterministic tests).
func WithIDGenerator(fn func() string) Option { return func(s *Store) { s.newID = fn } }

// Store holds the history newest-first. The in-memory collection is
// authoritative; persistence is best effort.
type Store struct {
	backend storage.Backend
	clock   Clock
	newID   func() string
	logger  *slog.Logger

	mu      sync.Mutex
	entries []Entry
	changes observe.Subject[[]Entry]
}

// Open loads the history document from b. A missing document yields an empty
// history; an unreadable one is logged and also yields an empty history.
func Open(b storage.Backend, opts ...Option) *Store {
	s := &Store{
		backend: b,
		clock:   realClock{},
		newID:   func() string { return uuid.New().String() },
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()
	return s
}

func (s *Store) load() {
	var entries []Entry
	if _, err := storage.LoadJSON(s.backend, DocumentName, &entries); err != nil {
		s.logger.Warn("failed to load history, starting empty", "error", err)
		return
	}
	s.entries = entries
}

// Save records a generation result as the newest entry and trims the
// history to MaxEntries.
func (s *Store) Save(c content.GeneratedContent, company, topic, tone string) Entry {
	entry := Entry{
		ID:        s.newID(),
		Company:   company,
		Topic:     topic,
		Tone:      tone,
		Content:   c,
		CreatedAt: s.clock.Now(),
	}

	s.mu.Lock()
	entries := make([]Entry, 0, min(len(s.entries)+1, MaxEntries))
	entries = append(entries, entry)
	entries = append(entries, s.entries...)
	if len(entries) > MaxEntries {
		entries = entries[:MaxEntries]
	}
	s.entries = entries
	snapshot := s.persistLocked()
	s.mu.Unlock()

	s.changes.Publish(snapshot)
	return entry
}

// Delete removes the entry with id. Unknown ids are ignored.
func (s *Store) Delete(id string) {
	s.mu.Lock()
	kept := s.entries[:0:0]
	for _, e := range s.entries {
		if e.ID != id {
			kept = append(kept, e)
		}
	}
	s.entries = kept
	snapshot := s.persistLocked()
	s.mu.Unlock()

	s.changes.Publish(snapshot)
}

// ClearAll removes every entry.
func (s *Store) ClearAll() {
	s.mu.Lock()
	s.entries = nil
	snapshot := s.persistLocked()
	s.mu.Unlock()

	s.changes.Publish(snapshot)
}

// Entries returns a copy of the history, newest first.
func (s *Store) Entries() []Entry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns the entry with id.
func (s *Store) Get(id string) (Entry, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	for _, e := range s.entries {
		if e.ID == id {
			return e, true
		}
	}
	return Entry{}, false
}

// Lookup resolves a full id or an unambiguous id prefix.
func (s *Store) Lookup(ref string) (Entry, bool) {
	if e, ok := s.Get(ref); ok {
		return e, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var match Entry
	n := 0
	for _, e := range s.entries {
		if ref != "" && strings.HasPrefix(e.ID, ref) {
			match = e
			n++
		}
	}
	return match, n == 1
}

func (s *Store) Len() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.entries)
}

// Subscribe registers fn to receive the full history after every change.
func (s *Store) Subscribe(fn func([]Entry)) func() {
	return s.changes.Subscribe(fn)
}

// Subscribers returns the number of active subscriptions.
func (s *Store) Subscribers() int { return s.changes.Len() }

// persistLocked rewrites the whole document and returns a snapshot for
// subscribers. Write failures are logged and swallowed.
func (s *Store) persistLocked() []Entry {
	snapshot := s.snapshotLocked()
	if err := storage.SaveJSON(s.backend, DocumentName, snapshot); err != nil {
		s.logger.Warn("failed to save history", "error", err)
	}
	return snapshot
}

func (s *Store) snapshotLocked() []Entry {
	out := make([]Entry, len(s.entries))
	copy(out, s.entries)
	return out
}
