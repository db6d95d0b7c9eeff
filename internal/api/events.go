package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"time"

	"github.com/kalambet/postdeck/internal/history"
	"github.com/kalambet/postdeck/internal/schedule"
)

const (
	eventBuffer       = 16
	keepAliveInterval = 30 * time.Second
)

type event struct {
	name string
	data []byte
}

// handleEvents streams one server-sent event per store change. The event name
// is "history" or "schedule" and the data is the full collection as JSON.
func handleEvents(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			httpError(w, http.StatusInternalServerError, "api_error", "streaming not supported")
			return
		}

		events := make(chan event, eventBuffer)
		send := func(name string, v any) {
			b, err := json.Marshal(v)
			if err != nil {
				deps.logger().Warn("encoding event failed", "event", name, "error", err)
				return
			}
			select {
			case events <- event{name: name, data: b}:
			default:
				deps.logger().Warn("event client too slow, dropping event", "event", name)
			}
		}

		unsubHistory := deps.History.Subscribe(func(entries []history.Entry) {
			if entries == nil {
				entries = []history.Entry{}
			}
			send("history", entries)
		})
		defer unsubHistory()
		unsubSchedule := deps.Schedule.Subscribe(func(posts []schedule.Post) {
			send("schedule", nonNil(posts))
		})
		defer unsubSchedule()

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.WriteHeader(http.StatusOK)
		fmt.Fprint(w, ": connected\n\n")
		flusher.Flush()

		ticker := time.NewTicker(keepAliveInterval)
		defer ticker.Stop()

		for {
			select {
			case <-r.Context().Done():
				return
			case <-ticker.C:
				fmt.Fprint(w, ": ping\n\n")
				flusher.Flush()
			case ev := <-events:
				fmt.Fprintf(w, "event: %s\ndata: %s\n\n", ev.name, ev.data)
				flusher.Flush()
			}
		}
	}
}
