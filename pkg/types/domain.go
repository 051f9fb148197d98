package types

import "time"

// LatencySummary condenses the latency reservoir into a few figures.
type LatencySummary struct {
	// Number of latency samples recorded since start.
	Count int64 `json:"count"`
	// Mean latency in milliseconds over the retained samples.
	MeanMS float64 `json:"mean_ms"`
	P50MS  float64 `json:"p50_ms"`
	P95MS  float64 `json:"p95_ms"`
	P99MS  float64 `json:"p99_ms"`
}

// MetricsSnapshot is a point-in-time read of the worker's load metrics.
type MetricsSnapshot struct {
	// Readiness state of the model server (starting, loading, ready, error).
	State string `json:"state"`
	// Requests waiting for admission.
	Pending int64 `json:"pending"`
	// Requests currently forwarded to the model server.
	InFlight int64 `json:"in_flight"`
	// Highest in_flight value observed.
	MaxInFlight int64 `json:"max_in_flight"`
	// Requests handled since start, including benchmark runs.
	RequestsTotal uint64 `json:"requests_total"`
	// Requests that ended with an error outcome.
	ErrorsTotal uint64 `json:"errors_total"`
	// Client (non-benchmark) requests received since start.
	ClientRequestsTotal uint64 `json:"client_requests_total"`
	Latency             LatencySummary `json:"latency"`
}

// EndpointInfo describes a registered generation endpoint for /status.
type EndpointInfo struct {
	Path            string `json:"path"`
	HealthcheckPath string `json:"healthcheck_path,omitempty"`
	Benchmark       bool   `json:"benchmark,omitempty"`
}

// EventInfo is a backend event (readiness change or matched log line).
type EventInfo struct {
	// example: model_loaded
	Name   string         `json:"name" example:"model_loaded"`
	Time   time.Time      `json:"time"`
	Fields map[string]any `json:"fields,omitempty"`
}

// StatusResponse is returned by GET /status.
type StatusResponse struct {
	MetricsSnapshot
	// Concurrency policy in effect (unrestricted or serialized).
	// example: serialized
	Policy string `json:"policy" example:"serialized"`
	// Model server base URL.
	ModelServerURL string `json:"model_server_url"`
	// Registered generation endpoints.
	Endpoints []EndpointInfo `json:"endpoints,omitempty"`
	// Uptime of the worker in seconds.
	// example: 3600
	UptimeSeconds int64 `json:"uptime_seconds" example:"3600"`
	// Server time in unix seconds.
	// example: 1700000000
	ServerTimeUnix int64 `json:"server_time_unix" example:"1700000000"`
	// Recent backend events, oldest first.
	Events []EventInfo `json:"events,omitempty"`
}
