package backend

import "github.com/prometheus/client_golang/prometheus"

var (
	pendingGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "worker",
		Subsystem: "backend",
		Name:      "pending_requests",
		Help:      "Requests waiting for admission",
	})

	inflightGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "worker",
		Subsystem: "backend",
		Name:      "inflight_requests",
		Help:      "Requests forwarded to the model server",
	})

	readinessGauge = prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: "worker",
		Subsystem: "backend",
		Name:      "readiness_state",
		Help:      "Readiness state (0=starting, 1=loading, 2=ready, 3=error)",
	})

	requestsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worker",
			Subsystem: "backend",
			Name:      "requests_total",
			Help:      "Requests handled by outcome",
		},
		[]string{"endpoint", "outcome"},
	)

	requestDuration = prometheus.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "worker",
			Subsystem: "backend",
			Name:      "request_duration_seconds",
			Help:      "End-to-end request latency including queueing",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 14),
		},
		[]string{"endpoint", "outcome"},
	)

	passthroughTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worker",
			Subsystem: "backend",
			Name:      "passthrough_total",
			Help:      "Verbatim model server calls by path and status class",
		},
		[]string{"path", "class"},
	)

	benchmarkRunsTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worker",
			Subsystem: "backend",
			Name:      "benchmark_runs_total",
			Help:      "Synthetic benchmark requests by result",
		},
		[]string{"result"},
	)
)

func init() {
	prometheus.MustRegister(pendingGauge, inflightGauge, readinessGauge, requestsTotal, requestDuration, passthroughTotal, benchmarkRunsTotal)
}
