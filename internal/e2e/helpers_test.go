package e2e

import (
	"bytes"
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sync/atomic"
	"testing"
	"time"

	"worker/internal/backend"
	"worker/internal/endpoint"
	"worker/internal/httpapi"
	"worker/internal/registry"
)

// modelServer stands in for the model server's /generate and /health.
type modelServer struct {
	*httptest.Server
	calls atomic.Int64
	delay time.Duration
}

func newModelServer(t *testing.T, delay time.Duration) *modelServer {
	t.Helper()
	m := &modelServer{delay: delay}
	m.Server = httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/health":
			_, _ = io.WriteString(w, "ok")
		case "/generate":
			m.calls.Add(1)
			_, _ = io.Copy(io.Discard, r.Body)
			if m.delay > 0 {
				time.Sleep(m.delay)
			}
			w.Header().Set("Content-Type", "application/json")
			_, _ = io.WriteString(w, `{"audio":"UklGRg=="}`)
		default:
			http.NotFound(w, r)
		}
	}))
	t.Cleanup(m.Close)
	return m
}

type worker struct {
	srv     *httptest.Server
	backend *backend.Backend
	logPath string
}

// startWorker wires a real backend and router around a temp model log.
func startWorker(t *testing.T, modelURL string, parallel bool) *worker {
	t.Helper()
	logPath := filepath.Join(t.TempDir(), "model.log")
	if err := os.WriteFile(logPath, nil, 0o644); err != nil {
		t.Fatalf("create log: %v", err)
	}
	b := backend.NewWithConfig(backend.Config{
		ModelServerURL:        modelURL,
		ModelLog:              logPath,
		AllowParallelRequests: parallel,
		LogPollInterval:       10 * time.Millisecond,
	})
	h := endpoint.TTSHandler{Runs: 3, Healthcheck: "/health"}
	reg, err := registry.New(h.Endpoint(), h)
	if err != nil {
		t.Fatalf("registry: %v", err)
	}
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		defer close(done)
		_ = b.Monitor().Run(ctx)
	}()
	srv := httptest.NewServer(httpapi.NewMux(b, reg))
	t.Cleanup(func() {
		srv.Close()
		cancel()
		<-done
	})
	return &worker{srv: srv, backend: b, logPath: logPath}
}

func (w *worker) log(t *testing.T, line string) {
	t.Helper()
	f, err := os.OpenFile(w.logPath, os.O_APPEND|os.O_WRONLY, 0o644)
	if err != nil {
		t.Fatalf("open log: %v", err)
	}
	defer f.Close()
	if _, err := io.WriteString(f, line+"\n"); err != nil {
		t.Fatalf("append log: %v", err)
	}
}

func (w *worker) waitState(t *testing.T, want backend.State) {
	t.Helper()
	deadline := time.Now().Add(3 * time.Second)
	for w.backend.State() != want {
		if time.Now().After(deadline) {
			t.Fatalf("state %s, want %s", w.backend.State(), want)
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func httpGet(t *testing.T, url string) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, url, nil)
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}

func httpPostJSON(t *testing.T, url string, payload []byte) (*http.Response, []byte) {
	t.Helper()
	req, err := http.NewRequestWithContext(context.Background(), http.MethodPost, url, bytes.NewReader(payload))
	if err != nil {
		t.Fatalf("new req: %v", err)
	}
	req.Header.Set("Content-Type", "application/json")
	resp, err := http.DefaultClient.Do(req)
	if err != nil {
		t.Fatalf("do req: %v", err)
	}
	body, _ := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	return resp, body
}
