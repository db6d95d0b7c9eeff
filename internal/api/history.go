package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/kalambet/postdeck/internal/history"
)

func handleListHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		limit := parseIntParam(r, "limit", history.MaxEntries, history.MaxEntries)
		entries := deps.History.Entries()
		if len(entries) > limit {
			entries = entries[:limit]
		}
		if entries == nil {
			entries = []history.Entry{}
		}
		writeJSON(w, http.StatusOK, entries)
	}
}

func handleGetHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		entry, ok := deps.History.Get(chi.URLParam(r, "id"))
		if !ok {
			httpError(w, http.StatusNotFound, "not_found", "history entry not found")
			return
		}
		writeJSON(w, http.StatusOK, entry)
	}
}

func handleDeleteHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		id := chi.URLParam(r, "id")
		if _, ok := deps.History.Get(id); !ok {
			httpError(w, http.StatusNotFound, "not_found", "history entry not found")
			return
		}
		deps.History.Delete(id)
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleClearHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		deps.History.ClearAll()
		w.WriteHeader(http.StatusNoContent)
	}
}

func handleExportHistory(deps Deps) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		format, err := history.ParseExportFormat(r.URL.Query().Get("format"))
		if err != nil {
			httpError(w, http.StatusBadRequest, "invalid_request_error", "%v", err)
			return
		}

		contentType := "application/json"
		if format == history.FormatYAML {
			contentType = "application/yaml"
		}
		w.Header().Set("Content-Type", contentType)
		w.Header().Set("Content-Disposition", `attachment; filename="postdeck-history.`+string(format)+`"`)
		if err := history.Export(w, deps.History.Entries(), format); err != nil {
			deps.logger().Warn("history export failed", "format", format, "error", err)
		}
	}
}
