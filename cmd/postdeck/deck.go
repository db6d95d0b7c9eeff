package main

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/kalambet/postdeck/internal/api"
	"github.com/kalambet/postdeck/internal/history"
	"github.com/kalambet/postdeck/internal/notify"
	"github.com/kalambet/postdeck/internal/schedule"
	"github.com/kalambet/postdeck/internal/studio"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// deck is what the history and schedule commands work against: the local
// stores, or a running "postdeck serve" that owns them.
type deck interface {
	Entries(ctx context.Context) ([]history.Entry, error)
	Entry(ctx context.Context, ref string) (history.Entry, error)
	DeleteEntry(ctx context.Context, ref string) (history.Entry, error)
	ClearHistory(ctx context.Context) error
	Generate(ctx context.Context, req api.GenerateRequest) (history.Entry, error)

	Posts(ctx context.Context, upcoming bool) ([]schedule.Post, error)
	PostsForDate(ctx context.Context, day string) ([]schedule.Post, error)
	DatesWithPosts(ctx context.Context, month string) ([]string, error)
	Schedule(ctx context.Context, req api.ScheduleRequest) (schedule.Post, error)
	MarkPosted(ctx context.Context, ref string) (schedule.Post, error)
	DeletePost(ctx context.Context, ref string) (schedule.Post, error)

	// ArmsReminders reports whether scheduled posts get a live reminder.
	ArmsReminders() bool
	Close() error
}

// openDeck is replaced in tests.
var openDeck = func(ctx context.Context, a *app) (deck, error) {
	if c := detectServer(ctx, a); c != nil {
		a.logger.Debug("using running server", "url", c.baseURL)
		return &remoteDeck{client: c}, nil
	}
	s, err := a.openStores(ctx, notify.Disabled{})
	if err != nil {
		return nil, err
	}
	return &localDeck{stores: s, studio: a.studio(s.history)}, nil
}

// resolveRef finds the item whose id equals ref or, failing that, the only
// item whose id starts with ref.
func resolveRef[T any](items []T, id func(T) string, ref string) (T, bool) {
	var zero T
	if ref == "" {
		return zero, false
	}
	var match T
	n := 0
	for _, it := range items {
		got := id(it)
		if got == ref {
			return it, true
		}
		if strings.HasPrefix(got, ref) {
			match = it
			n++
		}
	}
	if n != 1 {
		return zero, false
	}
	return match, true
}

func entryID(e history.Entry) string { return e.ID }
func postID(p schedule.Post) string  { return p.ID }

type localDeck struct {
	stores *stores
	studio *studio.Studio
}

func (d *localDeck) Entries(context.Context) ([]history.Entry, error) {
	return d.stores.history.Entries(), nil
}

func (d *localDeck) Entry(_ context.Context, ref string) (history.Entry, error) {
	e, ok := d.stores.history.Lookup(ref)
	if !ok {
		return history.Entry{}, fmt.Errorf("history entry %q: %w", ref, errNotFound)
	}
	return e, nil
}

func (d *localDeck) DeleteEntry(ctx context.Context, ref string) (history.Entry, error) {
	e, err := d.Entry(ctx, ref)
	if err != nil {
		return history.Entry{}, err
	}
	d.stores.history.Delete(e.ID)
	return e, nil
}

func (d *localDeck) ClearHistory(context.Context) error {
	d.stores.history.ClearAll()
	return nil
}

func (d *localDeck) Generate(ctx context.Context, req api.GenerateRequest) (history.Entry, error) {
	params, err := req.Params(ctx, d.studio)
	if err != nil {
		return history.Entry{}, err
	}
	res, err := d.studio.Generate(ctx, params)
	if err != nil {
		return history.Entry{}, err
	}
	return res.Entry, nil
}

func (d *localDeck) Posts(_ context.Context, upcoming bool) ([]schedule.Post, error) {
	if upcoming {
		return d.stores.schedule.Upcoming(time.Now()), nil
	}
	return d.stores.schedule.Posts(), nil
}

func (d *localDeck) PostsForDate(_ context.Context, day string) ([]schedule.Post, error) {
	t, err := time.ParseInLocation(dayLayout, day, d.stores.schedule.Location())
	if err != nil {
		return nil, fmt.Errorf("date must be YYYY-MM-DD: %w", err)
	}
	return d.stores.schedule.PostsForDate(t), nil
}

func (d *localDeck) DatesWithPosts(_ context.Context, month string) ([]string, error) {
	t, err := time.ParseInLocation(monthLayout, month, d.stores.schedule.Location())
	if err != nil {
		return nil, fmt.Errorf("month must be YYYY-MM: %w", err)
	}
	days := d.stores.schedule.DatesWithPosts(t)
	out := make([]string, len(days))
	for i, day := range days {
		out[i] = day.Format(dayLayout)
	}
	return out, nil
}

func (d *localDeck) Schedule(ctx context.Context, req api.ScheduleRequest) (schedule.Post, error) {
	plan, err := req.Resolve(d.stores.history)
	if err != nil {
		return schedule.Post{}, err
	}
	return d.stores.schedule.Schedule(ctx, plan.Platform, plan.Content, plan.Date, plan.Company, plan.Topic), nil
}

func (d *localDeck) post(ref string) (schedule.Post, error) {
	p, ok := d.stores.schedule.Lookup(ref)
	if !ok {
		return schedule.Post{}, fmt.Errorf("scheduled post %q: %w", ref, errNotFound)
	}
	return p, nil
}

func (d *localDeck) MarkPosted(ctx context.Context, ref string) (schedule.Post, error) {
	p, err := d.post(ref)
	if err != nil {
		return schedule.Post{}, err
	}
	d.stores.schedule.MarkAsPosted(ctx, p.ID)
	p, _ = d.stores.schedule.Get(p.ID)
	return p, nil
}

func (d *localDeck) DeletePost(ctx context.Context, ref string) (schedule.Post, error) {
	p, err := d.post(ref)
	if err != nil {
		return schedule.Post{}, err
	}
	d.stores.schedule.Delete(ctx, p.ID)
	return p, nil
}

func (d *localDeck) ArmsReminders() bool { return false }

func (d *localDeck) Close() error { return d.stores.Close() }
