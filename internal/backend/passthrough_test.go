package backend

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
)

func TestPassthrough_MirrorsStatusAndBody(t *testing.T) {
	probe := make(chan string, 1)
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		probe <- r.Header.Get("X-Probe")
		if r.URL.Path != "/health" {
			w.WriteHeader(http.StatusNotFound)
			return
		}
		w.Header().Set("X-Model", "tts")
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = io.WriteString(w, "warming up")
	}))
	defer srv.Close()

	// not ready: passthrough must still work
	b := newTestBackend(t, srv.URL, false, false)
	h := http.Header{}
	h.Set("X-Probe", "1")
	h.Set("Connection", "close")
	resp, err := b.Passthrough(context.Background(), http.MethodGet, "/health", nil, h)
	if err != nil {
		t.Fatalf("Passthrough: %v", err)
	}
	if resp.Status != http.StatusServiceUnavailable || string(resp.Body) != "warming up" {
		t.Fatalf("got %d %q", resp.Status, resp.Body)
	}
	if resp.Header.Get("X-Model") != "tts" || <-probe != "1" {
		t.Fatalf("headers not forwarded")
	}
	if b.Snapshot().Pending != 0 || b.Metrics().ClientRequests() != 0 {
		t.Fatalf("passthrough touched request metrics")
	}
}

func TestPassthrough_ForwardsBody(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		b, _ := io.ReadAll(r.Body)
		_, _ = w.Write(append([]byte(r.Method+" "), b...))
	}))
	defer srv.Close()
	b := newTestBackend(t, srv.URL, true, true)
	resp, err := b.Passthrough(context.Background(), http.MethodPost, "/echo", strings.NewReader("ping"), nil)
	if err != nil {
		t.Fatalf("Passthrough: %v", err)
	}
	if string(resp.Body) != "POST ping" {
		t.Fatalf("body %q", resp.Body)
	}
}

func TestPassthrough_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()
	b := newTestBackend(t, url, true, true)
	if _, err := b.Passthrough(context.Background(), http.MethodGet, "/health", nil, nil); !IsUpstream(err) {
		t.Fatalf("expected upstream error, got %v", err)
	}
}

func TestStatusClass(t *testing.T) {
	for code, want := range map[int]string{101: "1xx", 204: "2xx", 301: "3xx", 404: "4xx", 502: "5xx"} {
		if got := statusClass(code); got != want {
			t.Fatalf("%d: %s", code, got)
		}
	}
}
