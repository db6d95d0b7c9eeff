package schedule

import (
	"context"
	"errors"
	"fmt"
	"os"
	"strings"
	"testing"
	"time"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/notify"
	"github.com/kalambet/postdeck/internal/storage"
)

var berlin = time.FixedZone("CEST", 2*60*60)

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type fakeGateway struct {
	authCalls   int
	registered  []notify.Request
	cancelled   []string
	registerErr error
}

func (g *fakeGateway) RequestAuthorization(context.Context) (bool, error) {
	g.authCalls++
	return false, nil
}

func (g *fakeGateway) Register(_ context.Context, req notify.Request) error {
	g.registered = append(g.registered, req)
	return g.registerErr
}

func (g *fakeGateway) Cancel(_ context.Context, id string) {
	g.cancelled = append(g.cancelled, id)
}

func sequentialIDs() func() string {
	n := 0
	return func() string {
		n++
		return fmt.Sprintf("id-%03d", n)
	}
}

func newTestStore(t *testing.T) (*Store, *fakeGateway, storage.Backend) {
	t.Helper()
	b, err := storage.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	gw := &fakeGateway{}
	s := Open(context.Background(), b, gw,
		WithClock(fixedClock{time.Date(2024, 5, 20, 12, 0, 0, 0, berlin)}),
		WithLocation(berlin),
		WithIDGenerator(sequentialIDs()),
	)
	return s, gw, b
}

func at(day, hour, minute int) time.Time {
	return time.Date(2024, 6, day, hour, minute, 0, 0, berlin)
}

func post(text string) content.PlatformContent {
	return content.PlatformContent{Content: text, Hashtags: []string{"#launch"}, CharCount: len(text)}
}

func assertSorted(t *testing.T, posts []Post) {
	t.Helper()
	for i := 1; i < len(posts); i++ {
		if posts[i].ScheduledDate.Before(posts[i-1].ScheduledDate) {
			t.Fatalf("posts not ascending at %d: %v before %v", i, posts[i].ScheduledDate, posts[i-1].ScheduledDate)
		}
	}
}

func TestOpen_RequestsAuthorization(t *testing.T) {
	_, gw, _ := newTestStore(t)
	if gw.authCalls != 1 {
		t.Errorf("RequestAuthorization calls = %d, want 1", gw.authCalls)
	}
}

func TestSchedule_KeepsSortedInMemoryAndOnDisk(t *testing.T) {
	s, _, b := newTestStore(t)
	ctx := context.Background()

	dates := []time.Time{at(5, 9, 0), at(1, 18, 0), at(3, 7, 30), at(1, 8, 0), at(30, 23, 59)}
	for i, d := range dates {
		s.Schedule(ctx, content.Instagram, post(fmt.Sprint(i)), d, "Acme", "Launch")
		assertSorted(t, s.Posts())
	}

	reloaded := Open(ctx, b, nil, WithLocation(berlin)).Posts()
	if len(reloaded) != len(dates) {
		t.Fatalf("reloaded %d posts, want %d", len(reloaded), len(dates))
	}
	assertSorted(t, reloaded)
}

func TestSchedule_RegistersReminder(t *testing.T) {
	s, gw, _ := newTestStore(t)

	p := s.Schedule(context.Background(), content.Twitter, post("short"), at(1, 9, 0), "Acme", "Launch")

	if p.IsPosted {
		t.Error("new post is already posted")
	}
	if p.NotificationID == "" || p.NotificationID == p.ID {
		t.Errorf("notification id = %q, post id = %q", p.NotificationID, p.ID)
	}
	if len(gw.registered) != 1 {
		t.Fatalf("registered %d reminders", len(gw.registered))
	}
	req := gw.registered[0]
	if req.ID != p.NotificationID {
		t.Errorf("reminder id = %q, want %q", req.ID, p.NotificationID)
	}
	if req.Title != "Time to post on Twitter/X!" {
		t.Errorf("title = %q", req.Title)
	}
	if req.Body != "short" {
		t.Errorf("body = %q", req.Body)
	}
	if req.Category != notify.CategoryScheduledPost {
		t.Errorf("category = %q", req.Category)
	}
	if !req.FireAt.Equal(at(1, 9, 0)) {
		t.Errorf("fire at = %v", req.FireAt)
	}
}

func TestReminder_TruncatesBody(t *testing.T) {
	long := strings.Repeat("ä", 150)
	req := Reminder(Post{Platform: content.Instagram, Content: post(long)})
	want := strings.Repeat("ä", 100) + "..."
	if req.Body != want {
		t.Errorf("body has %d runes, want 100 plus marker", len([]rune(req.Body)))
	}

	exact := strings.Repeat("a", 100)
	if got := Reminder(Post{Content: post(exact)}).Body; got != exact {
		t.Errorf("100-char body was altered: %q", got)
	}
}

func TestSchedule_RegisterFailureStillSchedules(t *testing.T) {
	s, gw, b := newTestStore(t)
	gw.registerErr = errors.New("not authorized")

	p := s.Schedule(context.Background(), content.LinkedIn, post("x"), at(2, 10, 0), "Acme", "Launch")

	if _, ok := s.Get(p.ID); !ok {
		t.Fatal("post missing after failed registration")
	}
	if _, ok := Open(context.Background(), b, nil).Get(p.ID); !ok {
		t.Error("post not persisted after failed registration")
	}
}

func TestMarkAsPosted_Idempotent(t *testing.T) {
	s, gw, b := newTestStore(t)
	ctx := context.Background()
	p := s.Schedule(ctx, content.Instagram, post("x"), at(1, 9, 0), "Acme", "Launch")

	s.MarkAsPosted(ctx, p.ID)
	s.MarkAsPosted(ctx, p.ID)

	posts := s.Posts()
	if len(posts) != 1 || !posts[0].IsPosted {
		t.Fatalf("posts = %+v", posts)
	}
	for _, id := range gw.cancelled {
		if id != p.NotificationID {
			t.Errorf("cancelled unexpected id %q", id)
		}
	}
	if len(gw.cancelled) == 0 {
		t.Error("reminder not cancelled")
	}

	reloaded, ok := Open(ctx, b, nil).Get(p.ID)
	if !ok || !reloaded.IsPosted {
		t.Errorf("reloaded post = %+v, %v", reloaded, ok)
	}

	s.MarkAsPosted(ctx, "missing")
	if len(s.Posts()) != 1 {
		t.Error("MarkAsPosted on unknown id changed the collection")
	}
}

func TestDelete(t *testing.T) {
	s, gw, b := newTestStore(t)
	ctx := context.Background()
	a := s.Schedule(ctx, content.Instagram, post("a"), at(1, 9, 0), "Acme", "Launch")
	c := s.Schedule(ctx, content.Instagram, post("c"), at(2, 9, 0), "Acme", "Launch")

	s.Delete(ctx, a.ID)

	if len(gw.cancelled) != 1 || gw.cancelled[0] != a.NotificationID {
		t.Errorf("cancelled = %v, want [%s]", gw.cancelled, a.NotificationID)
	}
	reloaded := Open(ctx, b, nil)
	if _, ok := reloaded.Get(a.ID); ok {
		t.Error("deleted post survived reload")
	}
	if _, ok := reloaded.Get(c.ID); !ok {
		t.Error("remaining post missing after reload")
	}

	s.Delete(ctx, "missing")
	if len(gw.cancelled) != 1 || len(s.Posts()) != 1 {
		t.Error("Delete on unknown id had side effects")
	}
}

func TestPostsForDate_DayBoundaries(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	late := s.Schedule(ctx, content.Instagram, post("late"), at(1, 23, 59), "Acme", "Launch")
	early := s.Schedule(ctx, content.Instagram, post("early"), at(2, 0, 1), "Acme", "Launch")
	morning := s.Schedule(ctx, content.LinkedIn, post("morning"), at(1, 8, 0), "Acme", "Launch")

	june1 := s.PostsForDate(at(1, 15, 0))
	if len(june1) != 2 || june1[0].ID != morning.ID || june1[1].ID != late.ID {
		t.Errorf("June 1 posts = %+v", june1)
	}

	june2 := s.PostsForDate(at(2, 23, 0))
	if len(june2) != 1 || june2[0].ID != early.ID {
		t.Errorf("June 2 posts = %+v", june2)
	}

	// The same instant expressed in UTC still falls on the store's local day.
	if got := s.PostsForDate(at(2, 0, 30).UTC()); len(got) != 1 || got[0].ID != early.ID {
		t.Errorf("UTC lookup = %+v", got)
	}

	if got := s.PostsForDate(at(3, 12, 0)); len(got) != 0 {
		t.Errorf("June 3 posts = %+v", got)
	}
}

func TestDatesWithPosts(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()
	s.Schedule(ctx, content.Instagram, post("a"), at(1, 9, 0), "Acme", "Launch")
	s.Schedule(ctx, content.Instagram, post("b"), at(1, 17, 0), "Acme", "Launch")
	s.Schedule(ctx, content.Instagram, post("c"), at(15, 0, 0), "Acme", "Launch")
	s.Schedule(ctx, content.Instagram, post("may"), time.Date(2024, 5, 31, 23, 59, 0, 0, berlin), "Acme", "Launch")
	s.Schedule(ctx, content.Instagram, post("july"), time.Date(2024, 7, 1, 0, 0, 0, 0, berlin), "Acme", "Launch")

	days := s.DatesWithPosts(at(20, 0, 0))
	want := []time.Time{at(1, 0, 0), at(15, 0, 0)}
	if len(days) != len(want) {
		t.Fatalf("days = %v, want %v", days, want)
	}
	for i := range want {
		if !days[i].Equal(want[i]) {
			t.Errorf("day %d = %v, want %v", i, days[i], want[i])
		}
	}
}

func TestScheduleDeleteScenario(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	p := s.Schedule(ctx, content.Instagram, post("Summer launch"), at(1, 9, 0), "Acme", "Launch")

	june := at(1, 0, 0)
	if days := s.DatesWithPosts(june); len(days) != 1 || !days[0].Equal(june) {
		t.Fatalf("DatesWithPosts = %v, want [June 1]", days)
	}
	if got := s.PostsForDate(june); len(got) != 1 || got[0].ID != p.ID {
		t.Fatalf("PostsForDate = %+v", got)
	}

	s.Delete(ctx, p.ID)

	if days := s.DatesWithPosts(june); len(days) != 0 {
		t.Errorf("DatesWithPosts after delete = %v", days)
	}
}

func TestRoundTrip(t *testing.T) {
	s, _, b := newTestStore(t)
	ctx := context.Background()
	s.Schedule(ctx, content.Instagram, post("a"), at(1, 9, 0), "Acme", "Launch")
	p := s.Schedule(ctx, content.TikTok, post("b"), at(4, 9, 0), "Globex", "Promo")
	s.MarkAsPosted(ctx, p.ID)

	want := s.Posts()
	got := Open(ctx, b, nil).Posts()
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		w, g := want[i], got[i]
		if g.ID != w.ID || g.Platform != w.Platform || g.Company != w.Company || g.Topic != w.Topic ||
			g.IsPosted != w.IsPosted || g.NotificationID != w.NotificationID ||
			!g.ScheduledDate.Equal(w.ScheduledDate) || !g.CreatedAt.Equal(w.CreatedAt) ||
			g.Content.Content != w.Content.Content {
			t.Errorf("post %d = %+v, want %+v", i, g, w)
		}
	}
}

func TestOpen_CorruptFileStartsEmpty(t *testing.T) {
	b, err := storage.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatal(err)
	}
	if err := os.WriteFile(b.Path(DocumentName), []byte("{not json"), 0o644); err != nil {
		t.Fatal(err)
	}

	s := Open(context.Background(), b, nil)
	if n := len(s.Posts()); n != 0 {
		t.Errorf("posts = %d, want 0", n)
	}
}

func TestUpcomingAndRearm(t *testing.T) {
	s, gw, _ := newTestStore(t)
	ctx := context.Background()
	past := s.Schedule(ctx, content.Instagram, post("past"), time.Date(2024, 5, 1, 9, 0, 0, 0, berlin), "Acme", "x")
	future := s.Schedule(ctx, content.Instagram, post("future"), at(1, 9, 0), "Acme", "x")
	done := s.Schedule(ctx, content.Instagram, post("done"), at(2, 9, 0), "Acme", "x")
	s.MarkAsPosted(ctx, done.ID)

	up := s.Upcoming(time.Date(2024, 5, 20, 12, 0, 0, 0, berlin))
	if len(up) != 1 || up[0].ID != future.ID {
		t.Fatalf("Upcoming = %+v", up)
	}

	gw.registered = nil
	if n := s.RearmNotifications(ctx); n != 1 {
		t.Errorf("rearmed %d, want 1", n)
	}
	if len(gw.registered) != 1 || gw.registered[0].ID != future.NotificationID {
		t.Errorf("registered = %+v", gw.registered)
	}
	_ = past
}

func TestLookup_Prefix(t *testing.T) {
	s, _, _ := newTestStore(t)
	p := s.Schedule(context.Background(), content.Instagram, post("a"), at(1, 9, 0), "Acme", "x")

	if got, ok := s.Lookup(p.ID[:5]); !ok || got.ID != p.ID {
		t.Errorf("Lookup(prefix) = %+v, %v", got, ok)
	}
	if _, ok := s.Lookup("zzz"); ok {
		t.Error("unknown prefix resolved")
	}
}

func TestSubscribe(t *testing.T) {
	s, _, _ := newTestStore(t)
	ctx := context.Background()

	var calls int
	var last []Post
	unsubscribe := s.Subscribe(func(posts []Post) {
		calls++
		last = posts
	})
	defer unsubscribe()

	p := s.Schedule(ctx, content.Instagram, post("a"), at(1, 9, 0), "Acme", "x")
	s.MarkAsPosted(ctx, p.ID)
	s.Delete(ctx, "missing")

	if calls != 2 {
		t.Errorf("calls = %d, want 2", calls)
	}
	if len(last) != 1 || !last[0].IsPosted {
		t.Errorf("last snapshot = %+v", last)
	}
}
