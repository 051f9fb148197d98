package backend

import (
	"net/http"
	"time"

	"github.com/rs/zerolog"

	"worker/pkg/types"
)

// Backend composes readiness, admission and metrics around a shared session
// to the model server.
type Backend struct {
	baseURL         string
	client          *http.Client
	upstreamTimeout time.Duration

	readiness *Readiness
	gate      *AdmissionGate
	metrics   *MetricsState
	monitor   *LogMonitor

	recorder  Recorder
	publisher EventPublisher
	log       zerolog.Logger
	startTime time.Time
}

// Ready reports whether generation requests are currently admitted.
func (b *Backend) Ready() bool { return b.readiness.Load() == StateReady }

// State returns the current readiness state.
func (b *Backend) State() State { return b.readiness.Load() }

// Readiness exposes the readiness cell for waiting.
func (b *Backend) Readiness() *Readiness { return b.readiness }

// Monitor returns the log monitor; callers run it in its own goroutine.
func (b *Backend) Monitor() *LogMonitor { return b.monitor }

// Metrics returns the live metrics state.
func (b *Backend) Metrics() *MetricsState { return b.metrics }

// Policy returns the admission policy in effect.
func (b *Backend) Policy() Policy { return b.gate.Policy() }

// SetRecorder installs the telemetry recorder. It must be called before serving.
func (b *Backend) SetRecorder(r Recorder) { b.recorder = r }

// Snapshot returns a read-only view of the backend state.
func (b *Backend) Snapshot() Snapshot {
	return Snapshot{State: b.readiness.Load(), Pending: b.metrics.Pending(), InFlight: b.metrics.InFlight()}
}

// TelemetrySnapshot returns metrics plus readiness for the autoscaler push.
func (b *Backend) TelemetrySnapshot() types.MetricsSnapshot {
	s := b.metrics.Snapshot()
	s.State = b.readiness.Load().String()
	return s
}
