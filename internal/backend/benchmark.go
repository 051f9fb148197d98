package backend

import (
	"context"
	"time"

	"worker/internal/endpoint"
)

// BenchmarkResult summarizes one batch of synthetic runs.
type BenchmarkResult struct {
	Runs     int
	Failures int
	Total    time.Duration
}

// Mean returns the average latency per run.
func (r BenchmarkResult) Mean() time.Duration {
	if r.Runs == 0 {
		return 0
	}
	return r.Total / time.Duration(r.Runs)
}

// BenchmarkRunner drives synthetic requests through the same lifecycle as
// client traffic. Its requests are not counted as client requests and are
// never reported to the telemetry recorder.
type BenchmarkRunner struct {
	b        *Backend
	h        endpoint.Benchmarker
	interval time.Duration
}

// NewBenchmarkRunner returns a runner for h. A non-positive interval disables
// the idle re-runs in Start.
func NewBenchmarkRunner(b *Backend, h endpoint.Benchmarker, interval time.Duration) *BenchmarkRunner {
	return &BenchmarkRunner{b: b, h: h, interval: interval}
}

// Run executes n sequential synthetic requests. It stops early only when ctx
// is done or the backend entered the error state.
func (r *BenchmarkRunner) Run(ctx context.Context, n int) (BenchmarkResult, error) {
	var res BenchmarkResult
	for i := 0; i < n; i++ {
		if err := ctx.Err(); err != nil {
			return res, err
		}
		p := r.h.MakeBenchmarkPayload()
		if err := p.Validate(); err != nil {
			return res, ErrValidation("benchmark payload: " + err.Error())
		}
		start := time.Now()
		resp, err := r.b.handle(ctx, r.h, p, nil, true)
		res.Total += time.Since(start)
		res.Runs++
		switch {
		case err != nil:
			res.Failures++
			benchmarkRunsTotal.WithLabelValues("error").Inc()
			if IsFatalBackend(err) {
				return res, err
			}
		case resp.Stream != nil:
			drain(resp)
			benchmarkRunsTotal.WithLabelValues("ok").Inc()
		case resp.Status >= 300:
			res.Failures++
			benchmarkRunsTotal.WithLabelValues("error").Inc()
		default:
			benchmarkRunsTotal.WithLabelValues("ok").Inc()
		}
	}
	return res, nil
}

// Start waits for the backend to become ready, runs the handler's configured
// number of runs, then repeats the batch every interval while no client
// traffic has arrived since the previous tick. It returns when ctx is done or
// the backend fails.
func (r *BenchmarkRunner) Start(ctx context.Context) error {
	if err := r.b.readiness.WaitReady(ctx); err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	n := r.h.BenchmarkRuns()
	if n <= 0 {
		return nil
	}
	log := r.b.log.With().Str("component", "benchmark").Str("endpoint", r.h.Endpoint()).Logger()
	batch := func() error {
		res, err := r.Run(ctx, n)
		if ctx.Err() != nil {
			return nil
		}
		log.Info().Int("runs", res.Runs).Int("failures", res.Failures).Dur("mean", res.Mean()).Msg("benchmark complete")
		return err
	}
	if err := batch(); err != nil {
		return err
	}
	if r.interval <= 0 {
		return nil
	}

	ticker := time.NewTicker(r.interval)
	defer ticker.Stop()
	seen := r.b.metrics.ClientRequests()
	for {
		select {
		case <-ctx.Done():
			return nil
		case <-r.b.readiness.Failed():
			return nil
		case <-ticker.C:
			cur := r.b.metrics.ClientRequests()
			idle := cur == seen && r.b.metrics.Pending() == 0 && r.b.metrics.InFlight() == 0
			seen = cur
			if !idle {
				continue
			}
			if err := batch(); err != nil {
				return err
			}
		}
	}
}

func drain(resp *endpoint.Response) {
	buf := make([]byte, 32*1024)
	for {
		if _, err := resp.Stream.Read(buf); err != nil {
			break
		}
	}
	_ = resp.Stream.Close()
}
