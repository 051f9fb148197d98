package telemetry

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/oklog/ulid/v2"
	"github.com/rs/zerolog"

	"worker/pkg/types"
)

const (
	defaultBusyInterval = time.Second
	defaultIdleInterval = 10 * time.Second
	defaultBufferSize   = 1024
	pushTimeout         = 5 * time.Second
)

// SnapshotSource provides the metrics included in each report.
type SnapshotSource interface {
	TelemetrySnapshot() types.MetricsSnapshot
}

// Options tunes a Reporter. Zero values use the defaults.
type Options struct {
	WorkerID string
	// BusyInterval applies while requests are pending or in flight.
	BusyInterval time.Duration
	// IdleInterval applies otherwise.
	IdleInterval time.Duration
	BufferSize   int
	Logger       *zerolog.Logger
}

// Reporter batches request records and pushes them with a metrics snapshot.
type Reporter struct {
	src      SnapshotSource
	sink     Sink
	workerID string
	busy     time.Duration
	idle     time.Duration
	records  chan types.RequestRecord
	dropped  atomic.Uint64
	log      zerolog.Logger
}

// NewWorkerID returns a sortable unique worker id.
func NewWorkerID() string { return "worker-" + ulid.Make().String() }

func NewReporter(src SnapshotSource, sink Sink, opts Options) *Reporter {
	r := &Reporter{
		src:      src,
		sink:     sink,
		workerID: opts.WorkerID,
		busy:     opts.BusyInterval,
		idle:     opts.IdleInterval,
	}
	if r.sink == nil {
		r.sink = NopSink{}
	}
	if r.workerID == "" {
		r.workerID = NewWorkerID()
	}
	if r.busy <= 0 {
		r.busy = defaultBusyInterval
	}
	if r.idle <= 0 {
		r.idle = defaultIdleInterval
	}
	size := opts.BufferSize
	if size <= 0 {
		size = defaultBufferSize
	}
	r.records = make(chan types.RequestRecord, size)
	if opts.Logger != nil {
		r.log = opts.Logger.With().Str("component", "telemetry").Logger()
	} else {
		r.log = zerolog.Nop()
	}
	return r
}

// WorkerID returns the id stamped on every report.
func (r *Reporter) WorkerID() string { return r.workerID }

// RecordRequest queues rec for the next report. It never blocks; when the
// buffer is full the record is counted as dropped.
func (r *Reporter) RecordRequest(rec types.RequestRecord) {
	select {
	case r.records <- rec:
	default:
		r.dropped.Add(1)
		droppedTotal.Inc()
	}
}

// Run pushes reports until ctx is done, every BusyInterval while the worker
// has pending or in-flight requests and every IdleInterval otherwise. A final
// report is flushed on shutdown.
func (r *Reporter) Run(ctx context.Context) error {
	r.log.Info().Str("worker_id", r.workerID).Dur("busy", r.busy).Dur("idle", r.idle).Msg("telemetry reporter started")
	timer := time.NewTimer(r.busy)
	defer timer.Stop()
	for {
		select {
		case <-ctx.Done():
			flushCtx, cancel := context.WithTimeout(context.Background(), pushTimeout)
			_ = r.Push(flushCtx)
			cancel()
			if err := r.sink.Close(); err != nil {
				r.log.Debug().Err(err).Msg("close telemetry sink")
			}
			return nil
		case <-timer.C:
			snap := r.src.TelemetrySnapshot()
			pushCtx, cancel := context.WithTimeout(ctx, pushTimeout)
			_ = r.pushSnapshot(pushCtx, snap)
			cancel()
			next := r.idle
			if snap.Pending > 0 || snap.InFlight > 0 || len(r.records) > 0 {
				next = r.busy
			}
			timer.Reset(next)
		}
	}
}

// Push sends one report immediately.
func (r *Reporter) Push(ctx context.Context) error {
	return r.pushSnapshot(ctx, r.src.TelemetrySnapshot())
}

func (r *Reporter) pushSnapshot(ctx context.Context, snap types.MetricsSnapshot) error {
	rep := types.TelemetryReport{
		WorkerID:  r.workerID,
		Timestamp: time.Now().UTC(),
		Metrics:   snap,
		Requests:  r.drain(),
		Dropped:   r.dropped.Swap(0),
	}
	if err := r.sink.Send(ctx, rep); err != nil {
		pushTotal.WithLabelValues("error").Inc()
		// records in a failed report are not retried
		r.dropped.Add(uint64(len(rep.Requests)) + rep.Dropped)
		r.log.Warn().Err(err).Int("records", len(rep.Requests)).Msg("telemetry push failed")
		return err
	}
	pushTotal.WithLabelValues("ok").Inc()
	r.log.Debug().Int("records", len(rep.Requests)).Int64("pending", snap.Pending).Int64("in_flight", snap.InFlight).Msg("telemetry pushed")
	return nil
}

func (r *Reporter) drain() []types.RequestRecord {
	var out []types.RequestRecord
	for {
		select {
		case rec := <-r.records:
			out = append(out, rec)
		default:
			return out
		}
	}
}
