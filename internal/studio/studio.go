// Package studio runs a generation session: connect to the backend, pick a
// company and topic, generate, and record the result in history.
package studio

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/genclient"
	"github.com/kalambet/postdeck/internal/history"
)

// StatusOffline is reported when the backend health check fails.
const StatusOffline = "offline"

var (
	ErrNoCompany = errors.New("no company selected")
	ErrNoTopic   = errors.New("no topic selected")
)

// Failure is a user-facing error. Message is what a shell displays; Err
// keeps the cause for logs and errors.Is/As.
type Failure struct {
	Message   string
	Err       error
	Retryable bool
}

func (f *Failure) Error() string { return f.Message }

func (f *Failure) Unwrap() error { return f.Err }

// Backend is the part of genclient.Client a studio needs.
type Backend interface {
	Health(ctx context.Context) (content.HealthResponse, error)
	Companies(ctx context.Context) ([]content.Company, error)
	Ideas(ctx context.Context, companyID string) (content.IdeasResponse, error)
	Generate(ctx context.Context, req content.GenerateRequest) (content.GeneratedContent, error)
}

// Recorder stores successful generations.
type Recorder interface {
	Save(c content.GeneratedContent, company, topic, tone string) history.Entry
}

// Connection is the result of Connect.
type Connection struct {
	Status    string
	Companies []content.Company
}

// Params selects what to generate. Idea wins over CustomTopic when both are
// set.
type Params struct {
	Company        content.Company
	Idea           *content.ContentIdea
	CustomTopic    string
	Tone           content.Tone
	GenerateImages bool
	ImageStyle     content.ImageStyle
	Variations     int
}

// Topic returns the topic Params resolves to.
func (p Params) Topic() string {
	if p.Idea != nil && p.Idea.Title != "" {
		return p.Idea.Title
	}
	return strings.TrimSpace(p.CustomTopic)
}

// Result is one finished generation.
type Result struct {
	Entry   history.Entry
	Content content.GeneratedContent
	Err     error
}

type Studio struct {
	backend  Backend
	recorder Recorder
	logger   *slog.Logger

	mu        sync.Mutex
	status    string
	companies []content.Company
}

type Option func(*Studio)

func WithLogger(l *slog.Logger) Option { return func(s *Studio) { s.logger = l } }

func New(backend Backend, recorder Recorder, opts ...Option) *Studio {
	s := &Studio{
		backend:  backend,
		recorder: recorder,
		logger:   slog.Default(),
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// Connect checks backend health and loads the company list. When the health
// check fails the status is StatusOffline and companies are not requested.
// A failed company load keeps the reported status.
func (s *Studio) Connect(ctx context.Context) (Connection, error) {
	h, err := s.backend.Health(ctx)
	if err != nil {
		s.setStatus(StatusOffline, nil)
		s.logger.Warn("backend health check failed", "error", err)
		return Connection{Status: StatusOffline}, &Failure{Message: "API not running", Err: err, Retryable: true}
	}
	s.setStatus(h.Status, nil)

	companies, err := s.backend.Companies(ctx)
	if err != nil {
		s.logger.Warn("loading companies failed", "error", err)
		return Connection{Status: h.Status}, &Failure{Message: "Failed to load companies", Err: err, Retryable: true}
	}
	s.setStatus(h.Status, companies)
	return Connection{Status: h.Status, Companies: companies}, nil
}

// Status returns the status from the last Connect, or "" before the first.
func (s *Studio) Status() string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.status
}

// Companies returns the companies from the last successful Connect.
func (s *Studio) Companies() []content.Company {
	s.mu.Lock()
	defer s.mu.Unlock()
	out := make([]content.Company, len(s.companies))
	copy(out, s.companies)
	return out
}

// FindCompany resolves a company by id or case-insensitive name from the
// last Connect.
func (s *Studio) FindCompany(ref string) (content.Company, bool) {
	for _, c := range s.Companies() {
		if c.ID == ref || strings.EqualFold(c.Name, ref) {
			return c, true
		}
	}
	return content.Company{}, false
}

// Ideas asks the backend for topic ideas.
func (s *Studio) Ideas(ctx context.Context, companyID string) ([]content.ContentIdea, error) {
	if companyID == "" {
		return nil, ErrNoCompany
	}
	resp, err := s.backend.Ideas(ctx, companyID)
	if err != nil {
		return nil, &Failure{Message: "Failed to generate ideas: " + err.Error(), Err: err, Retryable: true}
	}
	return resp.Ideas, nil
}

// Generate runs one generation and records it in history.
func (s *Studio) Generate(ctx context.Context, p Params) (Result, error) {
	if p.Company.ID == "" {
		return Result{}, ErrNoCompany
	}
	topic := p.Topic()
	if topic == "" {
		return Result{}, ErrNoTopic
	}

	req := content.GenerateRequest{
		CompanyID:      p.Company.ID,
		Topic:          topic,
		Tone:           p.Tone,
		GenerateImages: p.GenerateImages,
		ImageStyle:     p.ImageStyle,
		Variations:     p.Variations,
	}.WithDefaults()

	generated, err := s.backend.Generate(ctx, req)
	if err != nil {
		return Result{}, generateFailure(err)
	}

	name := p.Company.Name
	if name == "" {
		name = p.Company.ID
	}
	entry := s.recorder.Save(generated, name, topic, string(req.Tone))
	s.logger.Info("content generated", "company", name, "topic", topic, "entry", entry.ID, "variations", generated.VariationCount())
	return Result{Entry: entry, Content: generated}, nil
}

// GenerateAsync runs Generate on its own goroutine and delivers the result
// on the returned channel. The request is detached from ctx cancellation and
// runs to completion; ctx values are kept.
func (s *Studio) GenerateAsync(ctx context.Context, p Params) <-chan Result {
	ch := make(chan Result, 1)
	detached := context.WithoutCancel(ctx)
	go func() {
		defer close(ch)
		res, err := s.Generate(detached, p)
		res.Err = err
		ch <- res
	}()
	return ch
}

func (s *Studio) setStatus(status string, companies []content.Company) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.status = status
	if companies != nil {
		s.companies = companies
	}
}

func generateFailure(err error) error {
	var apiErr *genclient.APIError
	if errors.As(err, &apiErr) {
		return &Failure{Message: apiErr.Error(), Err: err, Retryable: true}
	}
	if errors.Is(err, content.ErrInvalidTone) || errors.Is(err, content.ErrInvalidImageStyle) || errors.Is(err, content.ErrInvalidVariations) {
		return &Failure{Message: fmt.Sprintf("Failed to generate content: %v", err), Err: err}
	}
	return &Failure{Message: fmt.Sprintf("Failed to generate content: %v", err), Err: err, Retryable: true}
}
