package types

import (
	"encoding/json"
	"time"
)

// RequestRecord is one completed client request as reported to the autoscaler.
type RequestRecord struct {
	// Client auth_data exactly as received.
	AuthData  json.RawMessage `json:"auth_data,omitempty"`
	Endpoint  string          `json:"endpoint"`
	Status    int             `json:"status"`
	LatencyMS float64         `json:"latency_ms"`
}

// TelemetryReport is pushed periodically to the autoscaler.
type TelemetryReport struct {
	WorkerID  string          `json:"worker_id"`
	Timestamp time.Time       `json:"timestamp"`
	Metrics   MetricsSnapshot `json:"metrics"`
	// Requests completed since the previous report.
	Requests []RequestRecord `json:"requests,omitempty"`
	// Records dropped because the buffer was full.
	Dropped uint64 `json:"dropped,omitempty"`
}
