package genclient

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/kalambet/postdeck/internal/content"
)

func newTestClient(t *testing.T, h http.HandlerFunc, opts ...Option) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)
	opts = append([]Option{withBackoff(time.Millisecond)}, opts...)
	return New(srv.URL+"/", opts...)
}

func TestHealth(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("path = %s", r.URL.Path)
		}
		w.Write([]byte(`{"status":"healthy"}`))
	})

	h, err := c.Health(context.Background())
	if err != nil {
		t.Fatalf("Health: %v", err)
	}
	if !h.Healthy() {
		t.Errorf("status = %q", h.Status)
	}
	if !c.IsHealthy(context.Background()) {
		t.Error("IsHealthy = false")
	}
}

func TestIsHealthy_Degraded(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"status":"degraded"}`))
	})
	if c.IsHealthy(context.Background()) {
		t.Error("degraded backend reported healthy")
	}
}

func TestIsHealthy_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	if New(url).IsHealthy(context.Background()) {
		t.Error("closed server reported healthy")
	}
}

func TestCompanies(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`[{"id":"acme","name":"Acme","description":"Rockets"}]`))
	})

	list, err := c.Companies(context.Background())
	if err != nil {
		t.Fatalf("Companies: %v", err)
	}
	if len(list) != 1 || list[0].ID != "acme" || list[0].Name != "Acme" {
		t.Errorf("companies = %+v", list)
	}
}

func TestCompanies_NullIsEmpty(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`null`))
	})
	list, err := c.Companies(context.Background())
	if err != nil {
		t.Fatalf("Companies: %v", err)
	}
	if list == nil || len(list) != 0 {
		t.Errorf("companies = %#v, want empty slice", list)
	}
}

func TestIdeas_EscapesID(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.URL.EscapedPath() != "/ideas/acme%20corp" {
			t.Errorf("path = %s", r.URL.EscapedPath())
		}
		w.Write([]byte(`{"company":"Acme Corp","ideas":[{"title":"Launch","description":"New rocket"}]}`))
	})

	resp, err := c.Ideas(context.Background(), "acme corp")
	if err != nil {
		t.Fatalf("Ideas: %v", err)
	}
	if resp.Company != "Acme Corp" || len(resp.Ideas) != 1 || resp.Ideas[0].Title != "Launch" {
		t.Errorf("ideas = %+v", resp)
	}
}

func TestGenerate(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost || r.URL.Path != "/generate" {
			t.Errorf("%s %s", r.Method, r.URL.Path)
		}
		if got := r.Header.Get("Authorization"); got != "Bearer k" {
			t.Errorf("Authorization = %q", got)
		}
		var body map[string]any
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			t.Fatalf("decoding body: %v", err)
		}
		if body["company_id"] != "acme" || body["tone"] != "professional" || body["image_style"] != "photo" || body["variations"] != float64(1) {
			t.Errorf("body = %v", body)
		}
		w.Write([]byte(`{"company":"Acme","topic":"Launch","instagram":[{"content":"Hi","hashtags":["#a"],"char_count":2,"image_suggestion":"x"}],"twitter":{"content":"Yo","hashtags":[],"char_count":2,"image_suggestion":"y"}}`))
	}, WithAPIKey("k"))

	got, err := c.Generate(context.Background(), content.GenerateRequest{CompanyID: "acme", Topic: "Launch"})
	if err != nil {
		t.Fatalf("Generate: %v", err)
	}
	if got.Company != "Acme" || got.Topic != "Launch" {
		t.Errorf("header = %q/%q", got.Company, got.Topic)
	}
	if v, ok := got.Variation(content.Twitter, 0); !ok || v.Content != "Yo" {
		t.Errorf("twitter = %+v, %v", v, ok)
	}
}

func TestGenerate_InvalidRequestNoNetwork(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
	})

	_, err := c.Generate(context.Background(), content.GenerateRequest{CompanyID: "acme", Topic: "x", Variations: 7})
	if !errors.Is(err, content.ErrInvalidVariations) {
		t.Errorf("err = %v, want ErrInvalidVariations", err)
	}
	if calls.Load() != 0 {
		t.Error("invalid request reached the server")
	}
}

func TestGenerate_APIErrorDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		w.Write([]byte(`{"detail":"Company not found"}`))
	})

	_, err := c.Generate(context.Background(), content.GenerateRequest{CompanyID: "nope", Topic: "x"})
	var apiErr *APIError
	if !errors.As(err, &apiErr) {
		t.Fatalf("err = %T %v, want *APIError", err, err)
	}
	if apiErr.StatusCode != http.StatusNotFound || apiErr.Error() != "Company not found" {
		t.Errorf("apiErr = %+v", apiErr)
	}
}

func TestGenerate_APIErrorWithoutDetail(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusUnprocessableEntity)
		w.Write([]byte(`{"detail":[{"loc":["body","topic"],"msg":"field required"}]}`))
	})

	_, err := c.Generate(context.Background(), content.GenerateRequest{CompanyID: "acme", Topic: "x"})
	if err == nil || err.Error() != "Server error: 422" {
		t.Errorf("err = %v, want Server error: 422", err)
	}
}

func TestDecodeError(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`<html>oops</html>`))
	})

	_, err := c.Companies(context.Background())
	var decErr *DecodeError
	if !errors.As(err, &decErr) {
		t.Fatalf("err = %T %v, want *DecodeError", err, err)
	}
	if decErr.Endpoint != "/companies" {
		t.Errorf("endpoint = %q", decErr.Endpoint)
	}
}

func TestRetryOnRateLimit(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"status":"healthy"}`))
	})

	if _, err := c.Health(context.Background()); err != nil {
		t.Fatalf("Health: %v", err)
	}
	if calls.Load() != 3 {
		t.Errorf("calls = %d, want 3", calls.Load())
	}
}

func TestRetryExhausted(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	})

	_, err := c.Health(context.Background())
	var apiErr *APIError
	if !errors.As(err, &apiErr) || apiErr.StatusCode != http.StatusTooManyRequests {
		t.Errorf("err = %v", err)
	}
	if calls.Load() != maxRetries {
		t.Errorf("calls = %d, want %d", calls.Load(), maxRetries)
	}
}

func TestNoRetryOnServerError(t *testing.T) {
	var calls atomic.Int32
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusInternalServerError)
	})

	if _, err := c.Health(context.Background()); err == nil {
		t.Fatal("expected error")
	}
	if calls.Load() != 1 {
		t.Errorf("calls = %d, want 1", calls.Load())
	}
}

func TestNew_Defaults(t *testing.T) {
	c := New("")
	if c.BaseURL() != DefaultBaseURL {
		t.Errorf("BaseURL = %q", c.BaseURL())
	}
	if c.httpClient.Timeout != defaultTimeout {
		t.Errorf("timeout = %v", c.httpClient.Timeout)
	}
	c = New("http://example.test//", WithTimeout(5*time.Second))
	if c.BaseURL() != "http://example.test" || c.httpClient.Timeout != 5*time.Second {
		t.Errorf("BaseURL = %q timeout = %v", c.BaseURL(), c.httpClient.Timeout)
	}
}
