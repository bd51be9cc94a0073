package handler

import (
	"encoding/json"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"dayplan/internal/apperr"
)

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

// writeErr maps the error taxonomy onto statuses and emits a structured
// body. Internal causes never leave the server.
func writeErr(w http.ResponseWriter, err error) {
	writeJSON(w, apperr.HTTPStatus(err), map[string]any{
		"error": map[string]any{
			"code":    apperr.CodeOf(err),
			"message": apperr.MessageOf(err),
		},
	})
}

func badRequest(w http.ResponseWriter, msg string) {
	writeErr(w, apperr.Validationf("%s", msg))
}

func idParam(r *http.Request, name string) (uint64, bool) {
	id, err := strconv.ParseUint(chi.URLParam(r, name), 10, 64)
	return id, err == nil
}

const dayLayout = "2006-01-02"

// parseDay reads a calendar-day boundary. Split boundaries are days, not
// arbitrary timestamps.
func parseDay(s string) (time.Time, error) {
	return time.ParseInLocation(dayLayout, strings.TrimSpace(s), time.UTC)
}

func parseDayPtr(s *string) (*time.Time, error) {
	if s == nil || strings.TrimSpace(*s) == "" {
		return nil, nil
	}
	t, err := parseDay(*s)
	if err != nil {
		return nil, err
	}
	return &t, nil
}

func parseStamp(s string) (time.Time, error) {
	return time.Parse(time.RFC3339, strings.TrimSpace(s))
}
