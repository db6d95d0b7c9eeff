// Package genclient talks to the content generation backend.
package genclient

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/kalambet/postdeck/internal/content"
)

const (
	DefaultBaseURL = "http://localhost:8000"

	defaultTimeout = 60 * time.Second
	maxRetries     = 3
	initialBackoff = 500 * time.Millisecond
	maxErrorBody   = 64 << 10
)

// APIError is returned for any non-200 response.
type APIError struct {
	StatusCode int
	// Detail is the backend's {detail} message, if the body carried one.
	Detail string
}

func (e *APIError) Error() string {
	if e.Detail != "" {
		return e.Detail
	}
	return fmt.Sprintf("Server error: %d", e.StatusCode)
}

// DecodeError is returned when a 200 response body cannot be decoded.
type DecodeError struct {
	Endpoint string
	Err      error
}

func (e *DecodeError) Error() string {
	return fmt.Sprintf("decoding %s response: %v", e.Endpoint, e.Err)
}

func (e *DecodeError) Unwrap() error { return e.Err }

// Client communicates with the generation backend.
type Client struct {
	apiKey     string
	baseURL    string
	httpClient *http.Client
	backoff    time.Duration
}

type Option func(*Client)

// WithAPIKey sends key as a bearer token on every request.
func WithAPIKey(key string) Option { return func(c *Client) { c.apiKey = key } }

// WithTimeout sets the per-request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.httpClient.Timeout = d
		}
	}
}

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option { return func(c *Client) { c.httpClient = hc } }

func withBackoff(d time.Duration) Option { return func(c *Client) { c.backoff = d } }

// New creates a client for the backend at baseURL. An empty baseURL means
// DefaultBaseURL.
func New(baseURL string, opts ...Option) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	c := &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		httpClient: &http.Client{Timeout: defaultTimeout},
		backoff:    initialBackoff,
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// BaseURL returns the backend address.
func (c *Client) BaseURL() string { return c.baseURL }

// Health returns the backend's self-reported status.
func (c *Client) Health(ctx context.Context) (content.HealthResponse, error) {
	var h content.HealthResponse
	err := c.do(ctx, http.MethodGet, "/health", nil, &h)
	return h, err
}

// IsHealthy reports whether the backend is reachable and healthy.
func (c *Client) IsHealthy(ctx context.Context) bool {
	h, err := c.Health(ctx)
	return err == nil && h.Healthy()
}

// Companies lists the companies the backend can write for.
func (c *Client) Companies(ctx context.Context) ([]content.Company, error) {
	var list []content.Company
	if err := c.do(ctx, http.MethodGet, "/companies", nil, &list); err != nil {
		return nil, err
	}
	if list == nil {
		return []content.Company{}, nil
	}
	return list, nil
}

// Ideas returns topic suggestions for a company.
func (c *Client) Ideas(ctx context.Context, companyID string) (content.IdeasResponse, error) {
	var resp content.IdeasResponse
	err := c.do(ctx, http.MethodGet, "/ideas/"+url.PathEscape(companyID), nil, &resp)
	return resp, err
}

// Generate requests content for every platform. Unset request fields take
// the backend defaults; invalid values are rejected before any network call.
func (c *Client) Generate(ctx context.Context, req content.GenerateRequest) (content.GeneratedContent, error) {
	req = req.WithDefaults()
	if err := req.Validate(); err != nil {
		return content.GeneratedContent{}, fmt.Errorf("invalid generate request: %w", err)
	}
	var out content.GeneratedContent
	err := c.do(ctx, http.MethodPost, "/generate", req, &out)
	return out, err
}

func (c *Client) do(ctx context.Context, method, path string, in, out any) error {
	var body []byte
	if in != nil {
		b, err := json.Marshal(in)
		if err != nil {
			return fmt.Errorf("marshaling request: %w", err)
		}
		body = b
	}

	var lastErr error
	for attempt := range maxRetries {
		err := c.doOnce(ctx, method, path, body, out)
		if err == nil {
			return nil
		}
		if !isRateLimit(err) {
			return err
		}

		lastErr = err
		if attempt < maxRetries-1 {
			backoff := time.Duration(float64(c.backoff) * math.Pow(2, float64(attempt)))
			select {
			case <-ctx.Done():
				return ctx.Err()
			case <-time.After(backoff):
			}
		}
	}
	return lastErr
}

func isRateLimit(err error) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == http.StatusTooManyRequests
}

func (c *Client) doOnce(ctx context.Context, method, path string, body []byte, out any) error {
	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Accept", "application/json")
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if c.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+c.apiKey)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("requesting %s: %w", path, err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return apiError(resp)
	}

	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return &DecodeError{Endpoint: path, Err: err}
	}
	return nil
}

func apiError(resp *http.Response) error {
	e := &APIError{StatusCode: resp.StatusCode}
	data, _ := io.ReadAll(io.LimitReader(resp.Body, maxErrorBody))
	var body content.APIError
	if json.Unmarshal(data, &body) == nil {
		e.Detail = body.Detail
	}
	return e
}
