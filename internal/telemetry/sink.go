// Package telemetry pushes worker load metrics and per-request auth context to
// the autoscaler. Pushing is best-effort and never blocks request handling.
package telemetry

import (
	"context"
	"fmt"
	"strings"

	"worker/pkg/types"
)

// Sink delivers one report to the autoscaler.
type Sink interface {
	Send(ctx context.Context, r types.TelemetryReport) error
	Close() error
}

// NopSink discards reports.
type NopSink struct{}

func (NopSink) Send(context.Context, types.TelemetryReport) error { return nil }
func (NopSink) Close() error                                     { return nil }

// SinkConfig selects and configures a Sink.
type SinkConfig struct {
	// Kind is one of none, http or nats.
	Kind string
	// URL is the autoscaler endpoint (http) or NATS server URL (nats).
	URL string
	// Subject is the NATS subject reports are published on.
	Subject string
}

// NewSink builds the sink named by cfg.Kind.
func NewSink(cfg SinkConfig) (Sink, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Kind)) {
	case "", "none":
		return NopSink{}, nil
	case "http":
		if cfg.URL == "" {
			return nil, fmt.Errorf("telemetry: http sink requires url")
		}
		return NewHTTPSink(cfg.URL), nil
	case "nats":
		return NewNATSSink(cfg.URL, cfg.Subject)
	default:
		return nil, fmt.Errorf("telemetry: unknown sink %q", cfg.Kind)
	}
}
