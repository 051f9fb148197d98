package httpapi

import (
	"encoding/json"
	"errors"
	"net/http"

	"worker/internal/backend"
	"worker/pkg/types"
)

// HTTPError allows services to provide an HTTP status code for an error.
type HTTPError interface {
	error
	StatusCode() int
}

// writeJSONError writes a consistent JSON error payload.
func writeJSONError(w http.ResponseWriter, status int, msg string) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(types.ErrorResponse{Error: msg, Code: status})
}

// statusForError maps service errors onto HTTP status codes.
func statusForError(err error) int {
	var he HTTPError
	if errors.As(err, &he) {
		return he.StatusCode()
	}
	return http.StatusInternalServerError
}

// backpressureReason labels 503 rejections for metrics; "" when err is not one.
func backpressureReason(err error) string {
	switch {
	case backend.IsNotReady(err):
		return "not_ready"
	case backend.IsFatalBackend(err):
		return "fatal"
	default:
		return ""
	}
}
