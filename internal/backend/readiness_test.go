package backend

import (
	"context"
	"errors"
	"testing"
	"time"
)

func TestReadiness_Transitions(t *testing.T) {
	r := NewReadiness()
	if r.Load() != StateStarting {
		t.Fatalf("initial %s", r.Load())
	}
	if !r.transition(StateLoading) || !r.transition(StateReady) {
		t.Fatalf("forward transitions refused")
	}
	if r.transition(StateLoading) {
		t.Fatalf("ready must not step back to loading")
	}
	if !r.transition(StateError) {
		t.Fatalf("error must be reachable from ready")
	}
	for _, s := range []State{StateStarting, StateLoading, StateReady} {
		if r.transition(s) {
			t.Fatalf("left error for %s", s)
		}
	}
}

func TestReadiness_WaitReady(t *testing.T) {
	r := NewReadiness()
	go func() {
		time.Sleep(10 * time.Millisecond)
		r.transition(StateReady)
	}()
	if err := r.WaitReady(testCtx(t)); err != nil {
		t.Fatalf("WaitReady: %v", err)
	}

	r2 := NewReadiness()
	go func() {
		time.Sleep(10 * time.Millisecond)
		r2.transition(StateError)
	}()
	if err := r2.WaitReady(testCtx(t)); !IsFatalBackend(err) {
		t.Fatalf("expected fatal, got %v", err)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := NewReadiness().WaitReady(ctx); !errors.Is(err, context.Canceled) {
		t.Fatalf("expected canceled, got %v", err)
	}
}

func TestStateAndPolicyStrings(t *testing.T) {
	cases := map[string]string{
		StateStarting.String():      "starting",
		StateLoading.String():       "loading",
		StateReady.String():         "ready",
		StateError.String():         "error",
		PolicySerialized.String():   "serialized",
		PolicyUnrestricted.String(): "unrestricted",
	}
	for got, want := range cases {
		if got != want {
			t.Fatalf("got %q want %q", got, want)
		}
	}
}
