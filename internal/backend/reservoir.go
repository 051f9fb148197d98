package backend

import (
	"math/rand/v2"
	"sort"
	"sync"
	"time"

	"worker/pkg/types"
)

const defaultLatencySamples = 256

// latencyReservoir keeps a fixed-size uniform sample of request latencies so
// percentiles stay bounded in memory under sustained traffic.
type latencyReservoir struct {
	mu      sync.Mutex
	samples []time.Duration
	size    int
	count   int64
}

func newLatencyReservoir(size int) *latencyReservoir {
	if size <= 0 {
		size = defaultLatencySamples
	}
	return &latencyReservoir{size: size, samples: make([]time.Duration, 0, size)}
}

func (r *latencyReservoir) add(d time.Duration) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.count++
	if len(r.samples) < r.size {
		r.samples = append(r.samples, d)
		return
	}
	if j := rand.Int64N(r.count); j < int64(r.size) { //nolint:gosec // sampling only
		r.samples[j] = d
	}
}

func (r *latencyReservoir) summary() types.LatencySummary {
	r.mu.Lock()
	sorted := make([]time.Duration, len(r.samples))
	copy(sorted, r.samples)
	count := r.count
	r.mu.Unlock()

	s := types.LatencySummary{Count: count}
	if len(sorted) == 0 {
		return s
	}
	sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })
	var total time.Duration
	for _, d := range sorted {
		total += d
	}
	s.MeanMS = ms(total / time.Duration(len(sorted)))
	s.P50MS = ms(percentile(sorted, 50))
	s.P95MS = ms(percentile(sorted, 95))
	s.P99MS = ms(percentile(sorted, 99))
	return s
}

func percentile(sorted []time.Duration, p int) time.Duration {
	idx := len(sorted) * p / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func ms(d time.Duration) float64 { return float64(d) / float64(time.Millisecond) }
