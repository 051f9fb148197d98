package backend

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"
)

func readyReadiness() *Readiness {
	r := NewReadiness()
	r.transition(StateLoading)
	r.transition(StateReady)
	return r
}

func TestAdmission_RejectsBeforeReady(t *testing.T) {
	for _, p := range []Policy{PolicyUnrestricted, PolicySerialized} {
		r := NewReadiness()
		g := NewAdmissionGate(p, r)
		if _, err := g.Acquire(context.Background()); !IsNotReady(err) {
			t.Fatalf("%s: expected not ready, got %v", p, err)
		}
		r.transition(StateError)
		if _, err := g.Acquire(context.Background()); !IsFatalBackend(err) {
			t.Fatalf("%s: expected fatal, got %v", p, err)
		}
	}
}

func TestAdmission_UnrestrictedNeverBlocks(t *testing.T) {
	g := NewAdmissionGate(PolicyUnrestricted, readyReadiness())
	var tickets []*Ticket
	for i := 0; i < 100; i++ {
		tk, err := g.Acquire(context.Background())
		if err != nil {
			t.Fatalf("acquire %d: %v", i, err)
		}
		tickets = append(tickets, tk)
	}
	for _, tk := range tickets {
		tk.Release()
	}
}

func TestAdmission_SerializedAtMostOne(t *testing.T) {
	g := NewAdmissionGate(PolicySerialized, readyReadiness())
	var active, maxActive atomic.Int64
	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			tk, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire: %v", err)
				return
			}
			n := active.Add(1)
			if n > maxActive.Load() {
				maxActive.Store(n)
			}
			time.Sleep(time.Millisecond)
			active.Add(-1)
			tk.Release()
		}()
	}
	wg.Wait()
	if maxActive.Load() != 1 {
		t.Fatalf("max concurrent holders %d", maxActive.Load())
	}
}

func TestAdmission_SerializedFIFO(t *testing.T) {
	g := NewAdmissionGate(PolicySerialized, readyReadiness())
	first, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("acquire: %v", err)
	}
	var mu sync.Mutex
	var order []int
	var wg sync.WaitGroup
	for i := 0; i < 5; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			tk, err := g.Acquire(context.Background())
			if err != nil {
				t.Errorf("acquire %d: %v", i, err)
				return
			}
			mu.Lock()
			order = append(order, i)
			mu.Unlock()
			tk.Release()
		}(i)
		// give goroutine i time to enqueue before i+1
		time.Sleep(20 * time.Millisecond)
	}
	first.Release()
	wg.Wait()
	for i, v := range order {
		if v != i {
			t.Fatalf("order %v", order)
		}
	}
}

func TestAdmission_CancelWhileQueued(t *testing.T) {
	g := NewAdmissionGate(PolicySerialized, readyReadiness())
	held, _ := g.Acquire(context.Background())
	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()
	if _, err := g.Acquire(ctx); !errors.Is(err, context.DeadlineExceeded) {
		t.Fatalf("expected deadline, got %v", err)
	}
	held.Release()
	held.Release()
	tk, err := g.Acquire(context.Background())
	if err != nil {
		t.Fatalf("slot lost after cancel: %v", err)
	}
	tk.Release()
}

func TestAdmission_ErrorWhileQueued(t *testing.T) {
	r := readyReadiness()
	g := NewAdmissionGate(PolicySerialized, r)
	held, _ := g.Acquire(context.Background())
	errCh := make(chan error, 1)
	go func() {
		_, err := g.Acquire(context.Background())
		errCh <- err
	}()
	time.Sleep(20 * time.Millisecond)
	r.transition(StateError)
	held.Release()
	if err := <-errCh; !IsFatalBackend(err) {
		t.Fatalf("expected fatal after queued wait, got %v", err)
	}
}
