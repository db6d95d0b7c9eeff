package api

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/postdeck/internal/content"
	"github.com/kalambet/postdeck/internal/history"
	"github.com/kalambet/postdeck/internal/schedule"
)

const (
	dayLayout   = "2006-01-02"
	monthLayout = "2006-01"
)

// ScheduleRequest is the body of POST /schedule. Either Content or EntryID
// must be set; with EntryID the content is taken from that history entry's
// variation for Platform.
type ScheduleRequest struct {
	Platform      string                   `json:"platform"`
	ScheduledDate time.Time                `json:"scheduledDate"`
	Content       *content.PlatformContent `json:"content,omitempty"`
	EntryID       string                   `json:"entryId,omitempty"`
	Variation     int                      `json:"variation,omitempty"`
	Company       string                   `json:"company,omitempty"`
	Topic         string                   `json:"topic,omitempty"`
}

// MonthResponse lists the days of Month that have at least one post.
type MonthResponse struct {
	Month string   `json:"month"`
	Dates []string `json:"dates"`
}

func handleListSchedule(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var posts []schedule.Post
		if r.URL.Query().Get("upcoming") == "true" {
			posts = deps.Schedule.Upcoming(deps.now())
		} else {
			posts = deps.Schedule.Posts()
		}
		writeJSON(w, http.StatusOK, nonNil(posts))
	}
}

// ErrEntryNotFound is returned by Resolve when EntryID matches nothing.
var ErrEntryNotFound = errors.New("history entry not found")

// PlannedPost is a validated ScheduleRequest.
type PlannedPost struct {
	Platform content.Platform
	Content  content.PlatformContent
	Date     time.Time
	Company  string
	Topic    string
}

// Resolve validates r and picks the content to schedule. EntryID may be a
// unique id prefix. Company and Topic default to the entry's.
func (r ScheduleRequest) Resolve(h *history.Store) (PlannedPost, error) {
	platform, err := content.ParsePlatform(r.Platform)
	if err != nil {
		return PlannedPost{}, err
	}
	if r.ScheduledDate.IsZero() {
		return PlannedPost{}, errors.New("scheduledDate is required")
	}

	plan := PlannedPost{Platform: platform, Date: r.ScheduledDate, Company: r.Company, Topic: r.Topic}
	switch {
	case r.EntryID != "":
		entry, ok := h.Lookup(r.EntryID)
		if !ok {
			return PlannedPost{}, fmt.Errorf("%w: %q", ErrEntryNotFound, r.EntryID)
		}
		pc, ok := entry.Content.Variation(platform, r.Variation)
		if !ok {
			return PlannedPost{}, fmt.Errorf("entry %s has no %s content", entry.ID, platform.DisplayName())
		}
		plan.Content = pc
		if plan.Company == "" {
			plan.Company = entry.Company
		}
		if plan.Topic == "" {
			plan.Topic = entry.Topic
		}
	case r.Content != nil:
		plan.Content = *r.Content
	default:
		return PlannedPost{}, errors.New("one of content or entryId is required")
	}
	if strings.TrimSpace(plan.Content.Content) == "" {
		return PlannedPost{}, errors.New("post content is empty")
	}
	return plan, nil
}

func handleCreateSchedule(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		r.Body = http.MaxBytesReader(w, r.Body, maxBodySize)
		defer r.Body.Close()

		var req ScheduleRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "invalid request body: %v", err)
			return
		}

		plan, err := req.Resolve(deps.History)
		if errors.Is(err, ErrEntryNotFound) {
			httpError(w, http.StatusNotFound, "not_found", "%v", err)
			return
		}
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		post := deps.Schedule.Schedule(r.Context(), plan.Platform, plan.Content, plan.Date, plan.Company, plan.Topic)
		writeJSON(w, http.StatusCreated, post)
	}
}

func handleScheduleDay(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		day, err := time.ParseInLocation(dayLayout, r.URL.Query().Get("date"), deps.Schedule.Location())
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "date must be YYYY-MM-DD")
			return
		}
		writeJSON(w, http.StatusOK, nonNil(deps.Schedule.PostsForDate(day)))
	}
}

func handleScheduleMonth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		month, err := time.ParseInLocation(monthLayout, r.URL.Query().Get("month"), deps.Schedule.Location())
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "month must be YYYY-MM")
			return
		}
		days := deps.Schedule.DatesWithPosts(month)
		resp := MonthResponse{Month: month.Format(monthLayout), Dates: make([]string, len(days))}
		for i, d := range days {
			resp.Dates[i] = d.Format(dayLayout)
		}
		writeJSON(w, http.StatusOK, resp)
	}
}

func handleMarkPosted(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := deps.Schedule.Get(id); !ok {
			httpError(w, http.StatusNotFound, "not_found", "scheduled post not found")
			return
		}
		deps.Schedule.MarkAsPosted(r.Context(), id)
		post, _ := deps.Schedule.Get(id)
		writeJSON(w, http.StatusOK, post)
	}
}

func handleDeleteSchedule(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := deps.Schedule.Get(id); !ok {
			httpError(w, http.StatusNotFound, "not_found", "scheduled post not found")
			return
		}
		deps.Schedule.Delete(r.Context(), id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func nonNil(posts []schedule.Post) []schedule.Post {
	if posts == nil {
		return []schedule.Post{}
	}
	return posts
}
