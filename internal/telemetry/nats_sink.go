package telemetry

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/nats-io/nats.go"

	"worker/pkg/types"
)

// DefaultSubject is used when no NATS subject is configured.
const DefaultSubject = "worker.telemetry"

// NATSSink publishes reports on a NATS subject.
type NATSSink struct {
	conn    *nats.Conn
	subject string
}

func NewNATSSink(url, subject string) (*NATSSink, error) {
	if url == "" {
		url = nats.DefaultURL
	}
	if subject == "" {
		subject = DefaultSubject
	}
	conn, err := nats.Connect(url,
		nats.Name("worker-telemetry"),
		nats.Timeout(2*time.Second),
		nats.MaxReconnects(-1),
	)
	if err != nil {
		return nil, fmt.Errorf("failed to connect to NATS: %w", err)
	}
	return &NATSSink{conn: conn, subject: subject}, nil
}

func (s *NATSSink) Send(ctx context.Context, r types.TelemetryReport) error {
	data, err := json.Marshal(r)
	if err != nil {
		return err
	}
	if err := s.conn.Publish(s.subject, data); err != nil {
		return fmt.Errorf("telemetry publish: %w", err)
	}
	if _, ok := ctx.Deadline(); !ok {
		return s.conn.FlushTimeout(2 * time.Second)
	}
	return s.conn.FlushWithContext(ctx)
}

func (s *NATSSink) Close() error {
	return s.conn.Drain()
}
