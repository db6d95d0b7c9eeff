package main

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"

	"github.com/kalambet/postdeck/internal/api"
	"github.com/kalambet/postdeck/internal/config"
	"github.com/kalambet/postdeck/internal/history"
	"github.com/kalambet/postdeck/internal/schedule"
)

const probeTimeout = 500 * time.Millisecond

type apiClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

var newAPIClient = func(cfg config.Config) (*apiClient, error) {
	token, err := config.GetAPIToken(config.NewKeychain())
	if err != nil {
		return nil, fmt.Errorf("getting API token: %w", err)
	}

	return &apiClient{
		baseURL: fmt.Sprintf("http://127.0.0.1:%d", cfg.Server.Port),
		token:   token,
		// Generation can take as long as the backend allows.
		httpClient: &http.Client{Timeout: cfg.Backend.TimeoutDuration() + 10*time.Second},
	}, nil
}

// detectServer returns a client for a running "postdeck serve", or nil.
var detectServer = func(ctx context.Context, a *app) *apiClient {
	c, err := newAPIClient(a.cfg)
	if err != nil {
		a.logger.Debug("no API client", "error", err)
		return nil
	}
	if !c.healthy(ctx) {
		return nil
	}
	return c
}

func (c *apiClient) healthy(ctx context.Context) bool {
	ctx, cancel := context.WithTimeout(ctx, probeTimeout)
	defer cancel()
	resp, err := c.get(ctx, "/health")
	if err != nil {
		return false
	}
	resp.Body.Close()
	return resp.StatusCode == http.StatusOK
}

func (c *apiClient) do(ctx context.Context, method, path string, body any) (*http.Response, error) {
	var bodyReader io.Reader
	if body != nil {
		data, err := json.Marshal(body)
		if err != nil {
			return nil, fmt.Errorf("marshalling request: %w", err)
		}
		bodyReader = bytes.NewReader(data)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, bodyReader)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("server not reachable, is postdeck serve running? (%w)", err)
	}
	return resp, nil
}

func (c *apiClient) get(ctx context.Context, path string) (*http.Response, error) {
	return c.do(ctx, http.MethodGet, path, nil)
}

func (c *apiClient) post(ctx context.Context, path string, body any) (*http.Response, error) {
	return c.do(ctx, http.MethodPost, path, body)
}

// decodeJSON decodes a successful response into v, or turns the server's
// error body into an error. v may be nil for bodiless responses.
func decodeJSON(resp *http.Response, v any) error {
	defer resp.Body.Close()
	if resp.StatusCode >= 400 {
		body, err := io.ReadAll(resp.Body)
		if err != nil {
			return fmt.Errorf("server returned %d (failed to read body: %w)", resp.StatusCode, err)
		}
		var apiErr struct {
			Error struct {
				Message string `json:"message"`
			} `json:"error"`
		}
		msg := string(body)
		if json.Unmarshal(body, &apiErr) == nil && apiErr.Error.Message != "" {
			msg = apiErr.Error.Message
		}
		if resp.StatusCode == http.StatusNotFound {
			return fmt.Errorf("%s: %w", msg, errNotFound)
		}
		return fmt.Errorf("server returned %d: %s", resp.StatusCode, msg)
	}
	if v == nil || resp.StatusCode == http.StatusNoContent {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(v)
}

// remoteDeck routes commands through a running server so its in-memory
// stores and reminders stay authoritative.
type remoteDeck struct {
	client *apiClient
}

func (d *remoteDeck) call(ctx context.Context, method, path string, body, out any) error {
	resp, err := d.client.do(ctx, method, path, body)
	if err != nil {
		return err
	}
	return decodeJSON(resp, out)
}

func (d *remoteDeck) Entries(ctx context.Context) ([]history.Entry, error) {
	var entries []history.Entry
	err := d.call(ctx, http.MethodGet, "/history", nil, &entries)
	return entries, err
}

func (d *remoteDeck) Entry(ctx context.Context, ref string) (history.Entry, error) {
	entries, err := d.Entries(ctx)
	if err != nil {
		return history.Entry{}, err
	}
	e, ok := resolveRef(entries, entryID, ref)
	if !ok {
		return history.Entry{}, fmt.Errorf("history entry %q: %w", ref, errNotFound)
	}
	return e, nil
}

func (d *remoteDeck) DeleteEntry(ctx context.Context, ref string) (history.Entry, error) {
	e, err := d.Entry(ctx, ref)
	if err != nil {
		return history.Entry{}, err
	}
	return e, d.call(ctx, http.MethodDelete, "/history/"+url.PathEscape(e.ID), nil, nil)
}

func (d *remoteDeck) ClearHistory(ctx context.Context) error {
	return d.call(ctx, http.MethodDelete, "/history", nil, nil)
}

func (d *remoteDeck) Generate(ctx context.Context, req api.GenerateRequest) (history.Entry, error) {
	var e history.Entry
	err := d.call(ctx, http.MethodPost, "/generate", req, &e)
	return e, err
}

func (d *remoteDeck) Posts(ctx context.Context, upcoming bool) ([]schedule.Post, error) {
	path := "/schedule"
	if upcoming {
		path += "?upcoming=true"
	}
	var posts []schedule.Post
	err := d.call(ctx, http.MethodGet, path, nil, &posts)
	return posts, err
}

func (d *remoteDeck) PostsForDate(ctx context.Context, day string) ([]schedule.Post, error) {
	var posts []schedule.Post
	err := d.call(ctx, http.MethodGet, "/schedule/day?date="+url.QueryEscape(day), nil, &posts)
	return posts, err
}

func (d *remoteDeck) DatesWithPosts(ctx context.Context, month string) ([]string, error) {
	var resp api.MonthResponse
	err := d.call(ctx, http.MethodGet, "/schedule/month?month="+url.QueryEscape(month), nil, &resp)
	return resp.Dates, err
}

func (d *remoteDeck) Schedule(ctx context.Context, req api.ScheduleRequest) (schedule.Post, error) {
	if req.EntryID != "" {
		e, err := d.Entry(ctx, req.EntryID)
		if err != nil {
			return schedule.Post{}, err
		}
		req.EntryID = e.ID
	}
	var p schedule.Post
	err := d.call(ctx, http.MethodPost, "/schedule", req, &p)
	return p, err
}

func (d *remoteDeck) post(ctx context.Context, ref string) (schedule.Post, error) {
	posts, err := d.Posts(ctx, false)
	if err != nil {
		return schedule.Post{}, err
	}
	p, ok := resolveRef(posts, postID, ref)
	if !ok {
		return schedule.Post{}, fmt.Errorf("scheduled post %q: %w", ref, errNotFound)
	}
	return p, nil
}

func (d *remoteDeck) MarkPosted(ctx context.Context, ref string) (schedule.Post, error) {
	p, err := d.post(ctx, ref)
	if err != nil {
		return schedule.Post{}, err
	}
	var updated schedule.Post
	err = d.call(ctx, http.MethodPost, "/schedule/"+url.PathEscape(p.ID)+"/posted", nil, &updated)
	return updated, err
}

func (d *remoteDeck) DeletePost(ctx context.Context, ref string) (schedule.Post, error) {
	p, err := d.post(ctx, ref)
	if err != nil {
		return schedule.Post{}, err
	}
	return p, d.call(ctx, http.MethodDelete, "/schedule/"+url.PathEscape(p.ID), nil, nil)
}

func (d *remoteDeck) ArmsReminders() bool { return true }

func (d *remoteDeck) Close() error { return nil }
