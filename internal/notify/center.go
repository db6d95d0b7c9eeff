package notify

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"sync"
	"time"
)

// deliveryTimeout bounds a single delivery attempt.
const deliveryTimeout = 30 * time.Second

// Clock abstracts time for testability.
type Clock interface {
	Now() time.Time
}

type realClock struct{}

func (realClock) Now() time.Time { return time.Now() }

type timer interface {
	Stop() bool
}

type afterFunc func(d time.Duration, f func()) timer

func stdAfterFunc(d time.Duration, f func()) timer {
	return time.AfterFunc(d, f)
}

type armed struct {
	req   Request
	timer timer
}

// Center is an in-process Gateway. Each registration arms a timer that
// hands the request to a Deliverer when it fires. Timers do not survive a
// restart, so owners re-register pending reminders on start.
type Center struct {
	deliverer Deliverer
	clock     Clock
	after     afterFunc
	logger    *slog.Logger

	mu      sync.Mutex
	pending map[string]*armed
	closed  bool
}

type CenterOption func(*Center)

func WithClock(c Clock) CenterOption { return func(n *Center) { n.clock = c } }

func WithLogger(l *slog.Logger) CenterOption { return func(n *Center) { n.logger = l } }

func withAfterFunc(fn afterFunc) CenterOption { return func(n *Center) { n.after = fn } }

// NewCenter creates a Center that delivers through d.
func NewCenter(d Deliverer, opts ...CenterOption) *Center {
	if d == nil {
		d = Noop{}
	}
	c := &Center{
		deliverer: d,
		clock:     realClock{},
		after:     stdAfterFunc,
		logger:    slog.Default(),
		pending:   make(map[string]*armed),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// RequestAuthorization asks the deliverer whether it can deliver, when it
// knows. Deliverers without an opinion are assumed to be authorized.
func (c *Center) RequestAuthorization(ctx context.Context) (bool, error) {
	if a, ok := c.deliverer.(Authorizer); ok {
		return a.Authorize(ctx)
	}
	return true, nil
}

// Register arms req. The fire time is truncated to the minute. Requests
// whose fire time has already passed are dropped.
func (c *Center) Register(_ context.Context, req Request) error {
	if req.ID == "" {
		return fmt.Errorf("registering notification: empty id")
	}
	req.FireAt = req.FireAt.Truncate(time.Minute)

	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return fmt.Errorf("registering notification %s: center closed", req.ID)
	}

	c.disarmLocked(req.ID)

	delay := req.FireAt.Sub(c.clock.Now())
	if delay <= 0 {
		c.logger.Debug("notification fire time already passed, dropping", "id", req.ID, "fire_at", req.FireAt)
		return nil
	}

	a := &armed{req: req}
	a.timer = c.after(delay, func() { c.fire(a) })
	c.pending[req.ID] = a
	c.logger.Debug("notification armed", "id", req.ID, "fire_at", req.FireAt)
	return nil
}

// Cancel disarms the reminder with id.
func (c *Center) Cancel(_ context.Context, id string) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.disarmLocked(id)
}

// Pending returns the armed requests ordered by fire time.
func (c *Center) Pending() []Request {
	c.mu.Lock()
	out := make([]Request, 0, len(c.pending))
	for _, a := range c.pending {
		out = append(out, a.req)
	}
	c.mu.Unlock()

	sort.SliceStable(out, func(i, j int) bool {
		if out[i].FireAt.Equal(out[j].FireAt) {
			return out[i].ID < out[j].ID
		}
		return out[i].FireAt.Before(out[j].FireAt)
	})
	return out
}

// Close disarms every pending reminder. Later registrations fail.
func (c *Center) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for id := range c.pending {
		c.disarmLocked(id)
	}
	c.closed = true
	return nil
}

func (c *Center) disarmLocked(id string) {
	if a, ok := c.pending[id]; ok {
		a.timer.Stop()
		delete(c.pending, id)
	}
}

func (c *Center) fire(a *armed) {
	c.mu.Lock()
	// A replaced or cancelled reminder may still fire if its timer raced Stop.
	if c.pending[a.req.ID] != a {
		c.mu.Unlock()
		return
	}
	delete(c.pending, a.req.ID)
	c.mu.Unlock()

	ctx, cancel := context.WithTimeout(context.Background(), deliveryTimeout)
	defer cancel()
	if err := c.deliverer.Deliver(ctx, a.req); err != nil {
		c.logger.Warn("notification delivery failed", "id", a.req.ID, "error", err)
		return
	}
	c.logger.Info("notification delivered", "id", a.req.ID, "title", a.req.Title)
}
