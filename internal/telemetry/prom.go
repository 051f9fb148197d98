package telemetry

import "github.com/prometheus/client_golang/prometheus"

var (
	pushTotal = prometheus.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "worker",
			Subsystem: "telemetry",
			Name:      "pushes_total",
			Help:      "Autoscaler report pushes by result",
		},
		[]string{"result"},
	)

	droppedTotal = prometheus.NewCounter(prometheus.CounterOpts{
		Namespace: "worker",
		Subsystem: "telemetry",
		Name:      "dropped_records_total",
		Help:      "Request records dropped because the buffer was full",
	})
)

func init() {
	prometheus.MustRegister(pushTotal, droppedTotal)
}
