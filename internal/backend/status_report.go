package backend

import (
	"time"

	"worker/pkg/types"
)

// Status reports metrics, readiness, policy and, when the publisher keeps
// history, the recent backend events. Endpoints are filled in by
// the HTTP layer, which owns the registry.
func (b *Backend) Status() types.StatusResponse {
	now := time.Now()
	st := types.StatusResponse{
		MetricsSnapshot: b.TelemetrySnapshot(),
		Policy:          b.gate.Policy().String(),
		ModelServerURL:  b.baseURL,
		UptimeSeconds:   int64(now.Sub(b.startTime).Seconds()),
		ServerTimeUnix:  now.Unix(),
	}
	if h, ok := b.publisher.(eventHistory); ok {
		for _, e := range h.Events() {
			st.Events = append(st.Events, types.EventInfo{Name: e.Name, Time: e.Time, Fields: e.Fields})
		}
	}
	return st
}
