package registry

import (
	"testing"

	"worker/internal/endpoint"
)

// plainHandler wraps TTSHandler under another path without benchmark support.
type plainHandler struct {
	path string
	hc   string
}

func (p plainHandler) Endpoint() string            { return p.path }
func (p plainHandler) HealthcheckEndpoint() string { return p.hc }
func (plainHandler) NewPayload() endpoint.Payload  { return &endpoint.TTSRequest{} }
func (plainHandler) GeneratePayloadJSON(pl endpoint.Payload) (any, error) {
	return endpoint.TTSHandler{}.GeneratePayloadJSON(pl)
}
func (plainHandler) GenerateClientResponse(up endpoint.UpstreamResponse) endpoint.Response {
	return endpoint.TTSHandler{}.GenerateClientResponse(up)
}

func TestNew_LookupAndBenchmark(t *testing.T) {
	r, err := New("/generate", endpoint.TTSHandler{Runs: 3}, plainHandler{path: "/other"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if _, ok := r.Lookup("/generate"); !ok {
		t.Fatalf("expected /generate registered")
	}
	if _, ok := r.Lookup("/missing"); ok {
		t.Fatalf("unexpected handler for /missing")
	}
	b, ok := r.Benchmark()
	if !ok || b.BenchmarkRuns() != 3 {
		t.Fatalf("benchmark handler not set: %v %v", b, ok)
	}
	if got := len(r.Handlers()); got != 2 {
		t.Fatalf("handlers=%d", got)
	}
	info := r.Describe()
	if !info[0].Benchmark || info[1].Benchmark {
		t.Fatalf("describe benchmark flags wrong: %+v", info)
	}
}

func TestNew_Errors(t *testing.T) {
	cases := []struct {
		name     string
		bench    string
		handlers []endpoint.Handler
	}{
		{"duplicate", "", []endpoint.Handler{endpoint.TTSHandler{}, endpoint.TTSHandler{}}},
		{"relative path", "", []endpoint.Handler{plainHandler{path: "gen"}}},
		{"relative healthcheck", "", []endpoint.Handler{plainHandler{path: "/gen", hc: "health"}}},
		{"unknown benchmark", "/nope", []endpoint.Handler{endpoint.TTSHandler{}}},
		{"benchmark not supported", "/gen", []endpoint.Handler{plainHandler{path: "/gen"}}},
		{"nil handler", "", []endpoint.Handler{nil}},
	}
	for _, c := range cases {
		if _, err := New(c.bench, c.handlers...); err == nil {
			t.Fatalf("%s: expected error", c.name)
		}
	}
}

func TestHealthcheckPath(t *testing.T) {
	r, err := New("", plainHandler{path: "/a"}, plainHandler{path: "/b", hc: "/health"}, endpoint.TTSHandler{Healthcheck: "/hc2"})
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	if got := r.HealthcheckPath(); got != "/health" {
		t.Fatalf("healthcheck=%q", got)
	}
	r2, _ := New("", endpoint.TTSHandler{})
	if got := r2.HealthcheckPath(); got != "" {
		t.Fatalf("expected no healthcheck, got %q", got)
	}
	if _, ok := r2.Benchmark(); ok {
		t.Fatalf("benchmark should be disabled")
	}
}
