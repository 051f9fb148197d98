// Package endpoint defines the per-endpoint transformation contract used by the
// backend: payload validation, outbound JSON construction and client response
// reconstruction. Handlers hold no per-request state and are shared across all
// requests for their path.
package endpoint

import (
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"strings"
	"unicode/utf8"
)

// Payload is a handler-specific request body decoded from the envelope.
type Payload interface {
	Validate() error
}

// Handler transforms requests and responses for one model API endpoint.
type Handler interface {
	// Endpoint is both the client-facing route and the model server path.
	Endpoint() string
	// HealthcheckEndpoint is the model server healthcheck path, or "" if none.
	HealthcheckEndpoint() string
	// NewPayload returns a zero payload that the request body is decoded into.
	NewPayload() Payload
	// GeneratePayloadJSON builds the body sent to the model server.
	GeneratePayloadJSON(p Payload) (any, error)
	// GenerateClientResponse builds the client response for any upstream status.
	GenerateClientResponse(up UpstreamResponse) Response
}

// Benchmarker is implemented by the one handler used for synthetic runs.
type Benchmarker interface {
	Handler
	MakeBenchmarkPayload() Payload
	BenchmarkRuns() int
}

// Streamer is implemented by handlers whose successful upstream bodies are
// passed through to the client without buffering.
type Streamer interface {
	Handler
	Streaming() bool
}

// IsStreaming reports whether h streams successful responses.
func IsStreaming(h Handler) bool {
	s, ok := h.(Streamer)
	return ok && s.Streaming()
}

// UpstreamResponse is a fully buffered model server reply.
type UpstreamResponse struct {
	Status int
	Header http.Header
	Body   []byte
}

// Response is the client-facing result. Exactly one of Body or Stream is used;
// a non-nil Stream must be closed by the receiver.
type Response struct {
	Status int
	Header http.Header
	Body   []byte
	Stream io.ReadCloser
}

// maxErrorBody caps the model server body quoted in UpstreamStatusError.
const maxErrorBody = 512

// UpstreamStatusError describes a non-success reply from the model server.
type UpstreamStatusError struct {
	Status int
	Body   string
}

func (e UpstreamStatusError) Error() string {
	msg := fmt.Sprintf("model server returned %d %s", e.Status, http.StatusText(e.Status))
	if b := strings.TrimSpace(e.Body); b != "" {
		if len(b) > maxErrorBody {
			n := maxErrorBody
			for n > 0 && !utf8.RuneStart(b[n]) {
				n--
			}
			b = b[:n]
		}
		msg += ": " + b
	}
	return msg
}

func (e UpstreamStatusError) StatusCode() int { return e.Status }

// JSONResponse returns body unchanged with a JSON content type.
func JSONResponse(status int, body []byte) Response {
	h := http.Header{}
	h.Set("Content-Type", "application/json")
	return Response{Status: status, Header: h, Body: body}
}

// ErrorResponse renders msg in the worker's JSON error shape.
func ErrorResponse(status int, msg string) Response {
	b, _ := json.Marshal(map[string]any{"error": msg, "code": status})
	return JSONResponse(status, append(b, '\n'))
}
