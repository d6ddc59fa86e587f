package http

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"time"
)

// envelope is the common shape of every JSON API response. Degradations
// (failed fetch, missing geo rows) ride along as warnings so the dashboard
// can render what it has.
type envelope struct {
	Data      any        `json:"data"`
	Warnings  []string   `json:"warnings,omitempty"`
	Stale     bool       `json:"stale,omitempty"`
	FetchedAt *time.Time `json:"fetched_at,omitempty"`
}

func marshalEnvelope(data any, warnings []string, stale bool, fetchedAt time.Time) ([]byte, error) {
	env := envelope{
		Data:     data,
		Warnings: warnings,
		Stale:    stale,
	}
	// A degraded-empty load has no fetch time; omit the field rather than
	// serialize the zero time.
	if !fetchedAt.IsZero() {
		env.FetchedAt = &fetchedAt
	}
	return json.Marshal(env)
}

func writeJSON(w http.ResponseWriter, status int, body []byte) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_, _ = w.Write(body)
}

func writeError(w http.ResponseWriter, r *http.Request, status int, msg string) {
	slog.WarnContext(r.Context(), "Request rejected", "status", status, "reason", msg, "path", r.URL.Path)
	body, _ := json.Marshal(map[string]string{"error": msg})
	writeJSON(w, status, body)
}
