package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"worker/internal/endpoint"
	"worker/pkg/types"
)

// fakeModelServer is an httptest model server that counts calls and can
// hold requests until released.
type fakeModelServer struct {
	*httptest.Server
	calls    atomic.Int64
	active   atomic.Int64
	maxSeen  atomic.Int64
	status   int
	body     string
	gate     chan struct{}
	mu       sync.Mutex
	received []string
}

func newFakeModelServer(t *testing.T, status int, body string) *fakeModelServer {
	t.Helper()
	f := &fakeModelServer{status: status, body: body}
	f.Server = httptest.NewServer(http.HandlerFunc(f.serve))
	t.Cleanup(f.Close)
	return f
}

// hold makes every request block until release is called.
func (f *fakeModelServer) hold() { f.gate = make(chan struct{}) }

func (f *fakeModelServer) release() { close(f.gate) }

func (f *fakeModelServer) serve(w http.ResponseWriter, r *http.Request) {
	f.calls.Add(1)
	n := f.active.Add(1)
	defer f.active.Add(-1)
	for {
		cur := f.maxSeen.Load()
		if n <= cur || f.maxSeen.CompareAndSwap(cur, n) {
			break
		}
	}
	b, _ := io.ReadAll(r.Body)
	f.mu.Lock()
	f.received = append(f.received, string(b))
	f.mu.Unlock()
	if f.gate != nil {
		select {
		case <-f.gate:
		case <-r.Context().Done():
			return
		}
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(f.status)
	_, _ = io.WriteString(w, f.body)
}

func (f *fakeModelServer) bodies() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]string(nil), f.received...)
}

// recorder collects telemetry records.
type recorder struct {
	mu   sync.Mutex
	recs []types.RequestRecord
}

func (r *recorder) RecordRequest(rec types.RequestRecord) {
	r.mu.Lock()
	r.recs = append(r.recs, rec)
	r.mu.Unlock()
}

func (r *recorder) len() int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return len(r.recs)
}

// newTestBackend returns a Backend pointed at url. ready forces the Ready state.
func newTestBackend(t *testing.T, url string, parallel, ready bool) *Backend {
	t.Helper()
	b := NewWithConfig(Config{
		ModelServerURL:        url,
		ModelLog:              filepath.Join(t.TempDir(), "model.log"),
		AllowParallelRequests: parallel,
		UpstreamTimeout:       2 * time.Second,
		LogPollInterval:       10 * time.Millisecond,
		LogOpenTimeout:        time.Second,
	})
	if ready {
		b.readiness.transition(StateLoading)
		b.readiness.transition(StateReady)
	}
	return b
}

func ttsEnvelope(text string) []byte {
	return []byte(`{"payload":{"text":"` + text + `","voice_name":"v"},"auth_data":{"signature":"s","cost":1,"endpoint":"e","reqnum":7,"url":"http://x"}}`)
}

func tts() endpoint.TTSHandler { return endpoint.TTSHandler{Runs: 3} }

// testCtx returns a context with a short timeout, canceled on test cleanup.
func testCtx(t *testing.T) context.Context {
	t.Helper()
	c, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	t.Cleanup(cancel)
	return c
}

// waitFor polls cond until it holds or the deadline passes.
func waitFor(t *testing.T, d time.Duration, cond func() bool, what string) {
	t.Helper()
	deadline := time.Now().Add(d)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatalf("timed out waiting for %s", what)
}

func appendLine(t *testing.T, path, line string) {
	t.Helper()
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := f.WriteString(line); err != nil {
		t.Fatalf("write log: %v", err)
	}
}
