package api

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/history"
	"github.com/kalambet/postdeck/internal/notify"
	"github.com/kalambet/postdeck/internal/schedule"
	"github.com/kalambet/postdeck/internal/storage"
	"github.com/kalambet/postdeck/internal/studio"
)

const testToken = "test-token-12345"

var berlin = time.FixedZone("CEST", 2*60*60)

// testNow is the clock used for "upcoming" queries.
var testNow = time.Date(2024, 6, 1, 12, 0, 0, 0, berlin)

type fakeGateway struct {
	mu         sync.Mutex
	registered []notify.Request
	cancelled  []string
}

func (g *fakeGateway) RequestAuthorization(context.Context) (bool, error) { return true, nil }

func (g *fakeGateway) Register(_ context.Context, req notify.Request) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.registered = append(g.registered, req)
	return nil
}

func (g *fakeGateway) Cancel(_ context.Context, id string) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.cancelled = append(g.cancelled, id)
}

type fixedClock struct{ t time.Time }

func (c fixedClock) Now() time.Time { return c.t }

type mockBackend struct {
	mu          sync.Mutex
	companies   []content.Company
	generated   content.GeneratedContent
	generateErr error
	lastRequest content.GenerateRequest
}

func (m *mockBackend) Health(context.Context) (content.HealthResponse, error) {
	return content.HealthResponse{Status: "healthy"}, nil
}

func (m *mockBackend) Companies(context.Context) ([]content.Company, error) {
	return m.companies, nil
}

func (m *mockBackend) Ideas(context.Context, string) (content.IdeasResponse, error) {
	return content.IdeasResponse{}, errors.New("not used")
}

func (m *mockBackend) Generate(_ context.Context, req content.GenerateRequest) (content.GeneratedContent, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastRequest = req
	if err := req.Validate(); err != nil {
		return content.GeneratedContent{}, fmt.Errorf("invalid generate request: %w", err)
	}
	return m.generated, m.generateErr
}

func sequentialIDs(prefix string) func() string {
	var mu sync.Mutex
	n := 0
	return func() string {
		mu.Lock()
		defer mu.Unlock()
		n++
		return fmt.Sprintf("%s-%03d", prefix, n)
	}
}

func sampleContent() content.GeneratedContent {
	return content.GeneratedContent{
		Company: "Acme",
		Topic:   "Launch",
		Platforms: map[content.Platform][]content.PlatformContent{
			content.Instagram: {
				{Content: "Big news!", Hashtags: []string{"#launch"}, CharCount: 9},
				{Content: "Second take", CharCount: 11},
			},
			content.LinkedIn: {
				{Content: "We are pleased to announce", CharCount: 26},
			},
		},
	}
}

type testEnv struct {
	deps    Deps
	history *history.Store
	sched   *schedule.Store
	gateway *fakeGateway
	backend *mockBackend
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	b, err := storage.NewFileBackend(t.TempDir())
	if err != nil {
		t.Fatalf("NewFileBackend: %v", err)
	}
	gw := &fakeGateway{}
	h := history.Open(b, history.WithIDGenerator(sequentialIDs("entry")), history.WithClock(fixedClock{testNow}))
	s := schedule.Open(context.Background(), b, gw,
		schedule.WithLocation(berlin),
		schedule.WithIDGenerator(sequentialIDs("post")),
		schedule.WithClock(fixedClock{testNow}),
	)
	mb := &mockBackend{
		companies: []content.Company{{ID: "acme", Name: "Acme"}},
		generated: sampleContent(),
	}
	return &testEnv{
		deps: Deps{
			History:  h,
			Schedule: s,
			Studio:   studio.New(mb, h),
			Token:    testToken,
			Now:      func() time.Time { return testNow },
		},
		history: h,
		sched:   s,
		gateway: gw,
		backend: mb,
	}
}

func authReq(method, url, body, token string) *http.Request {
	var reader io.Reader
	if body != "" {
		reader = strings.NewReader(body)
	}
	req, _ := http.NewRequest(method, url, reader)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	if body != "" {
		req.Header.Set("Content-Type", "application/json")
	}
	return req
}
