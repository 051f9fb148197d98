package backend

import (
	"sync/atomic"
	"time"

	"worker/pkg/types"
)

// Request outcomes used for metrics labels.
const (
	OutcomeSuccess  = "success"
	OutcomeInvalid  = "invalid"
	OutcomeRejected = "rejected"
	OutcomeUpstream = "upstream_error"
	OutcomeStatus   = "upstream_status"
	OutcomeCanceled = "canceled"
)

// MetricsState holds process-wide load counters. All methods are safe for
// concurrent use.
type MetricsState struct {
	pending        atomic.Int64
	inFlight       atomic.Int64
	maxInFlight    atomic.Int64
	requests       atomic.Uint64
	errors         atomic.Uint64
	clientRequests atomic.Uint64
	latency        *latencyReservoir
}

func NewMetricsState(samples int) *MetricsState {
	return &MetricsState{latency: newLatencyReservoir(samples)}
}

func (m *MetricsState) arrived(benchmark bool) {
	if !benchmark {
		m.clientRequests.Add(1)
	}
	pendingGauge.Set(float64(m.pending.Add(1)))
}

// leftQueue is called when a pending request is rejected or canceled before admission.
func (m *MetricsState) leftQueue() {
	pendingGauge.Set(float64(m.pending.Add(-1)))
}

func (m *MetricsState) admitted() {
	pendingGauge.Set(float64(m.pending.Add(-1)))
	n := m.inFlight.Add(1)
	inflightGauge.Set(float64(n))
	for {
		cur := m.maxInFlight.Load()
		if n <= cur || m.maxInFlight.CompareAndSwap(cur, n) {
			break
		}
	}
}

func (m *MetricsState) finished() {
	inflightGauge.Set(float64(m.inFlight.Add(-1)))
}

func (m *MetricsState) record(endpoint, outcome string, d time.Duration) {
	m.requests.Add(1)
	if outcome != OutcomeSuccess {
		m.errors.Add(1)
	}
	// only requests that reached the model server feed the latency reservoir
	if outcome == OutcomeSuccess || outcome == OutcomeStatus || outcome == OutcomeUpstream {
		m.latency.add(d)
	}
	requestsTotal.WithLabelValues(endpoint, outcome).Inc()
	requestDuration.WithLabelValues(endpoint, outcome).Observe(d.Seconds())
}

// Pending returns the number of requests waiting for admission.
func (m *MetricsState) Pending() int64 { return m.pending.Load() }

// InFlight returns the number of requests forwarded to the model server.
func (m *MetricsState) InFlight() int64 { return m.inFlight.Load() }

// ClientRequests returns the number of non-benchmark requests received.
func (m *MetricsState) ClientRequests() uint64 { return m.clientRequests.Load() }

// Snapshot reads all counters. The state field is filled in by the Backend.
func (m *MetricsState) Snapshot() types.MetricsSnapshot {
	return types.MetricsSnapshot{
		Pending:             m.pending.Load(),
		InFlight:            m.inFlight.Load(),
		MaxInFlight:         m.maxInFlight.Load(),
		RequestsTotal:       m.requests.Load(),
		ErrorsTotal:         m.errors.Load(),
		ClientRequestsTotal: m.clientRequests.Load(),
		Latency:             m.latency.summary(),
	}
}
