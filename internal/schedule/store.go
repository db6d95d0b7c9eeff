// Package schedule keeps posts planned for a future date together with
// their reminder bookkeeping.
package schedule

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"
	"sync"
	"time"
	"unicode/utf8"

	"github.com/google/uuid"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/notify"
	"github.com/kalambet/postdeck/internal/observe"
	"github.com/kalambet/postdeck/internal/storage"
)

const (
	// DocumentName is the storage document holding scheduled posts.
	DocumentName = "scheduled_posts"

	reminderBodyLimit = 100
)

// Post is one scheduled post. IsPosted is the only field that changes after
// creation.
type Post struct {
	ID             string                  `json:"id"`
	Platform       content.Platform        `json:"platform"`
	Content        content.PlatformContent `json:"content"`
	ScheduledDate  time.Time               `json:"scheduledDate"`
	Company        string                  `json:"company"`
	Topic          string                  `json:"topic"`
	IsPosted       bool                    `json:"isPosted"`
	CreatedAt      time.Time               `json:"createdAt"`
	NotificationID string                  `json:"notificationId"`
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

// WithLocation sets the time zone used for calendar-day comparisons.
// Defaults to time.Local.
func WithLocation(loc *time.Location) Option { return func(s *Store) { s.loc = loc } }

// WithIDGenerator replaces uuid generation for post and notification ids.
func WithIDGenerator(fn func() string) Option { return func(s *Store) { s.newID = fn } }

// Store holds scheduled posts sorted ascending by ScheduledDate.
type Store struct {
	backend storage.Backend
	gateway notify.Gateway
	clock   Clock
	loc     *time.Location
	newID   func() string
	logger  *slog.Logger

	mu      sync.Mutex
	posts   []Post
	changes observe.Subject[[]Post]
}

// Open loads the schedule document from b and asks gw for delivery
// permission. Neither a load failure nor a permission denial is fatal.
func Open(ctx context.Context, b storage.Backend, gw notify.Gateway, opts ...Option) *Store {
	if gw == nil {
		gw = notify.Disabled{}
	}
	s := &Store{
		backend: b,
		gateway: gw,
		clock:   realClock{},
		loc:     time.Local,
		newID:   func() string { return uuid.New().String() },
		logger:  slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	s.load()

	granted, err := gw.RequestAuthorization(ctx)
	if err != nil {
		s.logger.Warn("notification permission request failed", "error", err)
	}
	s.logger.Debug("notification permission", "granted", granted)
	return s
}

func (s *Store) load() {
	var posts []Post
	if _, err := storage.LoadJSON(s.backend, DocumentName, &posts); err != nil {
		s.logger.Warn("failed to load scheduled posts, starting empty", "error", err)
		return
	}
	s.posts = posts
	s.sortLocked()
}

// Schedule creates a post for date, keeps the collection sorted, persists it
// and registers a reminder. A failed registration is logged; the post stays
// scheduled.
func (s *Store) Schedule(ctx context.Context, platform content.Platform, pc content.PlatformContent, date time.Time, company, topic string) Post {
	post := Post{
		ID:             s.newID(),
		Platform:       platform,
		Content:        pc,
		ScheduledDate:  date,
		Company:        company,
		Topic:          topic,
		CreatedAt:      s.clock.Now(),
		NotificationID: s.newID(),
	}

	s.mu.Lock()
	s.posts = append(s.posts, post)
	s.sortLocked()
	snapshot := s.persistLocked()
	s.mu.Unlock()

	if err := s.gateway.Register(ctx, Reminder(post)); err != nil {
		s.logger.Warn("failed to schedule notification", "post", post.ID, "error", err)
	}

	s.changes.Publish(snapshot)
	return post
}

// Delete cancels the post's reminder and removes it. Unknown ids are ignored.
func (s *Store) Delete(ctx context.Context, id string) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	post := s.posts[i]
	s.gateway.Cancel(ctx, post.NotificationID)
	s.posts = append(s.posts[:i:i], s.posts[i+1:]...)
	snapshot := s.persistLocked()
	s.mu.Unlock()

	s.changes.Publish(snapshot)
}

// MarkAsPosted flags the post as published and cancels its reminder.
// Unknown ids are ignored; repeated calls leave the post posted.
func (s *Store) MarkAsPosted(ctx context.Context, id string) {
	s.mu.Lock()
	i := s.indexLocked(id)
	if i < 0 {
		s.mu.Unlock()
		return
	}
	s.posts[i].IsPosted = true
	s.gateway.Cancel(ctx, s.posts[i].NotificationID)
	snapshot := s.persistLocked()
	s.mu.Unlock()

	s.changes.Publish(snapshot)
}

// PostsForDate returns the posts on the same calendar day as date, in
// schedule order.
func (s *Store) PostsForDate(date time.Time) []Post {
	y, m, d := date.In(s.loc).Date()

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Post
	for _, p := range s.posts {
		py, pm, pd := p.ScheduledDate.In(s.loc).Date()
		if py == y && pm == m && pd == d {
			out = append(out, p)
		}
	}
	return out
}

// DatesWithPosts returns the distinct day starts, ascending, of the days in
// month's calendar month that have at least one post.
func (s *Store) DatesWithPosts(month time.Time) []time.Time {
	m := month.In(s.loc)
	start := time.Date(m.Year(), m.Month(), 1, 0, 0, 0, 0, s.loc)
	end := start.AddDate(0, 1, 0)

	s.mu.Lock()
	defer s.mu.Unlock()
	var out []time.Time
	for _, p := range s.posts {
		if p.ScheduledDate.Before(start) || !p.ScheduledDate.Before(end) {
			continue
		}
		day := s.startOfDay(p.ScheduledDate)
		// Posts are sorted, so duplicates are adjacent.
		if n := len(out); n > 0 && out[n-1].Equal(day) {
			continue
		}
		out = append(out, day)
	}
	return out
}

// Posts returns a copy of the collection, ascending by ScheduledDate.
func (s *Store) Posts() []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.snapshotLocked()
}

// Get returns the post with id.
func (s *Store) Get(id string) (Post, bool) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if i := s.indexLocked(id); i >= 0 {
		return s.posts[i], true
	}
	return Post{}, false
}

// Lookup resolves a full id or an unambiguous id prefix.
func (s *Store) Lookup(ref string) (Post, bool) {
	if p, ok := s.Get(ref); ok {
		return p, true
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	var match Post
	n := 0
	for _, p := range s.posts {
		if ref != "" && strings.HasPrefix(p.ID, ref) {
			match = p
			n++
		}
	}
	return match, n == 1
}

// Upcoming returns the unposted posts scheduled at or after now.
func (s *Store) Upcoming(now time.Time) []Post {
	s.mu.Lock()
	defer s.mu.Unlock()
	var out []Post
	for _, p := range s.posts {
		if !p.IsPosted && !p.ScheduledDate.Before(now) {
			out = append(out, p)
		}
	}
	return out
}

// RearmNotifications registers reminders for every unposted post still in
// the future and returns how many were armed. Gateways that keep reminders
// in memory lose them across restarts.
func (s *Store) RearmNotifications(ctx context.Context) int {
	armed := 0
	for _, p := range s.Upcoming(s.clock.Now()) {
		if err := s.gateway.Register(ctx, Reminder(p)); err != nil {
			s.logger.Warn("failed to re-arm notification", "post", p.ID, "error", err)
			continue
		}
		armed++
	}
	return armed
}

// Subscribe registers fn to receive the full collection after every change.
func (s *Store) Subscribe(fn func([]Post)) func() {
	return s.changes.Subscribe(fn)
}

// Location returns the time zone used for calendar-day comparisons.
func (s *Store) Location() *time.Location { return s.loc }

// Reminder builds the notification request for post.
func Reminder(post Post) notify.Request {
	return notify.Request{
		ID:       post.NotificationID,
		Title:    fmt.Sprintf("Time to post on %s!", post.Platform.DisplayName()),
		Body:     truncate(post.Content.Content, reminderBodyLimit),
		Category: notify.CategoryScheduledPost,
		FireAt:   post.ScheduledDate,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	r := []rune(s)
	return string(r[:n]) + "..."
}

func (s *Store) startOfDay(t time.Time) time.Time {
	y, m, d := t.In(s.loc).Date()
	return time.Date(y, m, d, 0, 0, 0, 0, s.loc)
}

func (s *Store) sortLocked() {
	sort.SliceStable(s.posts, func(i, j int) bool {
		return s.posts[i].ScheduledDate.Before(s.posts[j].ScheduledDate)
	})
}

func (s *Store) indexLocked(id string) int {
	for i, p := range s.posts {
		if p.ID == id {
			return i
		}
	}
	return -1
}

// persistLocked rewrites the whole document and returns a snapshot for
// subscribers. Write failures are logged and swallowed.
func (s *Store) persistLocked() []Post {
	snapshot := s.snapshotLocked()
	if err := storage.SaveJSON(s.backend, DocumentName, snapshot); err != nil {
		s.logger.Warn("failed to save scheduled posts", "error", err)
	}
	return snapshot
}

func (s *Store) snapshotLocked() []Post {
	out := make([]Post, len(s.posts))
	copy(out, s.posts)
	return out
}
