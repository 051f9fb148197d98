package backend

import (
	"context"
	"sync"

	"golang.org/x/sync/semaphore"
)

// AdmissionGate decides whether a request may proceed to the model server.
// Under PolicySerialized it queues callers in arrival order behind a
// single-slot FIFO semaphore.
type AdmissionGate struct {
	policy    Policy
	readiness *Readiness
	sem       *semaphore.Weighted
}

// Ticket is proof of admission. Release is safe to call more than once.
type Ticket struct {
	once    sync.Once
	release func()
}

// Release returns the admission slot.
func (t *Ticket) Release() {
	if t == nil {
		return
	}
	t.once.Do(func() {
		if t.release != nil {
			t.release()
		}
	})
}

func NewAdmissionGate(policy Policy, r *Readiness) *AdmissionGate {
	g := &AdmissionGate{policy: policy, readiness: r}
	if policy == PolicySerialized {
		g.sem = semaphore.NewWeighted(1)
	}
	return g
}

// Policy returns the gate's concurrency policy.
func (g *AdmissionGate) Policy() Policy { return g.policy }

// Acquire admits the caller or rejects it. Rejection is immediate, without
// queueing, when the backend is not Ready or is in Error.
func (g *AdmissionGate) Acquire(ctx context.Context) (*Ticket, error) {
	if err := g.check(); err != nil {
		return nil, err
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	if g.sem == nil {
		return &Ticket{}, nil
	}
	if err := g.sem.Acquire(ctx, 1); err != nil {
		return nil, err
	}
	// the model server may have failed while we were queued
	if err := g.check(); err != nil {
		g.sem.Release(1)
		return nil, err
	}
	return &Ticket{release: func() { g.sem.Release(1) }}, nil
}

func (g *AdmissionGate) check() error {
	switch s := g.readiness.Load(); s {
	case StateReady:
		return nil
	case StateError:
		return ErrFatalBackend()
	default:
		return notReadyError{state: s}
	}
}
