// Package api exposes the history and schedule stores over a local REST API
// with server-sent change events, and as MCP tools for agents.
package api

import (
	"log/slog"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/handlers"

	"github.com/kalambet/postdeck/internal/history"
	"github.com/kalambet/postdeck/internal/schedule"
	"github.com/kalambet/postdeck/internal/studio"
)

const maxBodySize = 1 << 20 // 1MB

type Deps struct {
	History  *history.Store
	Schedule *schedule.Store
	Studio   *studio.Studio // optional; without it POST /generate answers 503
	Token    string

	// AllowedOrigins lists the browser origins allowed by CORS. "*" allows
	// any origin; empty allows none.
	AllowedOrigins []string
	Logger         *slog.Logger
	Now            func() time.Time
}

func (d Deps) logger() *slog.Logger {
	if d.Logger == nil {
		return slog.Default()
	}
	return d.Logger
}

func (d Deps) now() time.Time {
	if d.Now == nil {
		return time.Now()
	}
	return d.Now()
}

// NewHandler builds the REST router. Everything except /health requires the
// bearer token.
func NewHandler(deps Deps) http.Handler {
	r := chi.NewRouter()
	r.Get("/health", handleHealth(deps))

	r.Group(func(r chi.Router) {
		r.Use(BearerAuth(deps.Token))

		r.Get("/history", handleListHistory(deps))
		r.Get("/history/export", handleExportHistory(deps))
		r.Get("/history/{id}", handleGetHistory(deps))
		r.Delete("/history/{id}", handleDeleteHistory(deps))
		r.Delete("/history", handleClearHistory(deps))

		r.Get("/schedule", handleListSchedule(deps))
		r.Post("/schedule", handleCreateSchedule(deps))
		r.Get("/schedule/day", handleScheduleDay(deps))
		r.Get("/schedule/month", handleScheduleMonth(deps))
		r.Post("/schedule/{id}/posted", handleMarkPosted(deps))
		r.Delete("/schedule/{id}", handleDeleteSchedule(deps))

		r.Post("/generate", handleGenerate(deps))
		r.Get("/events", handleEvents(deps))
	})

	cors := handlers.CORS(
		handlers.AllowedOrigins(deps.AllowedOrigins),
		handlers.AllowedMethods([]string{http.MethodGet, http.MethodPost, http.MethodDelete, http.MethodOptions}),
		handlers.AllowedHeaders([]string{"Content-Type", "Authorization"}),
	)
	return cors(r)
}

func handleHealth(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		resp := map[string]any{"status": "ok"}
		if deps.Studio != nil {
			if st := deps.Studio.Status(); st != "" {
				resp["backend"] = st
			}
		}
		writeJSON(w, http.StatusOK, resp)
	}
}
