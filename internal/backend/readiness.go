package backend

import (
	"context"
	"sync"
	"sync/atomic"
)

// Readiness holds the current State. Reads are lock-free; transitions are
// made by the LogMonitor only. Once StateError is entered it never changes.
type Readiness struct {
	v        atomic.Int32
	readyCh  chan struct{}
	errCh    chan struct{}
	readyOne sync.Once
	errOne   sync.Once
}

func NewReadiness() *Readiness {
	return &Readiness{readyCh: make(chan struct{}), errCh: make(chan struct{})}
}

// Load returns the current state.
func (r *Readiness) Load() State { return State(r.v.Load()) }

// transition moves to next and reports whether the state changed. It refuses
// to leave StateError and to step backwards from StateReady.
func (r *Readiness) transition(next State) bool {
	for {
		cur := State(r.v.Load())
		if cur == StateError || cur == next {
			return false
		}
		if cur == StateReady && next != StateError {
			return false
		}
		if r.v.CompareAndSwap(int32(cur), int32(next)) {
			readinessGauge.Set(float64(next))
			switch next {
			case StateReady:
				r.readyOne.Do(func() { close(r.readyCh) })
			case StateError:
				r.errOne.Do(func() { close(r.errCh) })
			}
			return true
		}
	}
}

// WaitReady blocks until the state becomes Ready. It returns a fatal backend
// error if the state is or becomes Error, or ctx.Err() on cancellation.
func (r *Readiness) WaitReady(ctx context.Context) error {
	if r.Load() == StateError {
		return ErrFatalBackend()
	}
	select {
	case <-r.readyCh:
		if r.Load() == StateError {
			return ErrFatalBackend()
		}
		return nil
	case <-r.errCh:
		return ErrFatalBackend()
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Failed is closed once the state becomes Error.
func (r *Readiness) Failed() <-chan struct{} { return r.errCh }
