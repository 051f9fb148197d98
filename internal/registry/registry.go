package registry

import (
	"fmt"
	"strings"

	"worker/internal/endpoint"
	"worker/pkg/types"
)

// Registry maps client-facing paths to endpoint handlers. It is built once at
// startup and is read-only afterwards.
type Registry struct {
	byPath    map[string]endpoint.Handler
	ordered   []endpoint.Handler
	benchmark endpoint.Benchmarker
}

// New registers handlers in order. benchmarkPath selects the handler used for
// synthetic runs; it must implement endpoint.Benchmarker. Empty disables benchmarking.
func New(benchmarkPath string, handlers ...endpoint.Handler) (*Registry, error) {
	r := &Registry{byPath: make(map[string]endpoint.Handler, len(handlers))}
	for _, h := range handlers {
		if h == nil {
			return nil, fmt.Errorf("nil handler")
		}
		p := h.Endpoint()
		if !strings.HasPrefix(p, "/") {
			return nil, fmt.Errorf("handler path %q must start with /", p)
		}
		if _, dup := r.byPath[p]; dup {
			return nil, fmt.Errorf("duplicate handler for %s", p)
		}
		if hc := h.HealthcheckEndpoint(); hc != "" && !strings.HasPrefix(hc, "/") {
			return nil, fmt.Errorf("healthcheck path %q for %s must start with /", hc, p)
		}
		r.byPath[p] = h
		r.ordered = append(r.ordered, h)
	}
	if benchmarkPath != "" {
		h, ok := r.byPath[benchmarkPath]
		if !ok {
			return nil, fmt.Errorf("benchmark handler %s not registered", benchmarkPath)
		}
		b, ok := h.(endpoint.Benchmarker)
		if !ok {
			return nil, fmt.Errorf("handler %s cannot generate benchmark payloads", benchmarkPath)
		}
		r.benchmark = b
	}
	return r, nil
}

// Lookup returns the handler registered for path.
func (r *Registry) Lookup(path string) (endpoint.Handler, bool) {
	h, ok := r.byPath[path]
	return h, ok
}

// Handlers returns handlers in registration order.
func (r *Registry) Handlers() []endpoint.Handler {
	out := make([]endpoint.Handler, len(r.ordered))
	copy(out, r.ordered)
	return out
}

// Benchmark returns the benchmark handler, if one was designated.
func (r *Registry) Benchmark() (endpoint.Benchmarker, bool) {
	return r.benchmark, r.benchmark != nil
}

// HealthcheckPath returns the first declared upstream healthcheck path, or "".
func (r *Registry) HealthcheckPath() string {
	for _, h := range r.ordered {
		if p := h.HealthcheckEndpoint(); p != "" {
			return p
		}
	}
	return ""
}

// Describe lists the registered endpoints for status reporting.
func (r *Registry) Describe() []types.EndpointInfo {
	out := make([]types.EndpointInfo, 0, len(r.ordered))
	for _, h := range r.ordered {
		out = append(out, types.EndpointInfo{
			Path:            h.Endpoint(),
			HealthcheckPath: h.HealthcheckEndpoint(),
			Benchmark:       r.benchmark != nil && r.benchmark.Endpoint() == h.Endpoint(),
		})
	}
	return out
}
