package httpapi

import (
	"context"
	"encoding/json"
	"errors"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"
	"github.com/go-chi/cors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"worker/internal/endpoint"
	"worker/internal/registry"
	"worker/pkg/types"
)

// Service defines the methods required by the HTTP API layer.
type Service interface {
	Handle(ctx context.Context, h endpoint.Handler, raw []byte) (*endpoint.Response, error)
	Passthrough(ctx context.Context, method, path string, body io.Reader, header http.Header) (*endpoint.UpstreamResponse, error)
	Status() types.StatusResponse
	Ready() bool
}

// NewMux builds the worker router: one POST route per registered handler plus
// the liveness, healthcheck, status and metrics endpoints.
func NewMux(svc Service, reg *registry.Registry) http.Handler {
	r := chi.NewRouter()
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(MetricsMiddleware)
	r.Use(middleware.Recoverer)
	r.Use(middleware.Compress(5, "application/json"))
	if corsEnabled {
		r.Use(cors.Handler(cors.Options{
			AllowedOrigins: corsAllowedOrigins,
			AllowedMethods: corsAllowedMethods,
			AllowedHeaders: corsAllowedHeaders,
			MaxAge:         300,
		}))
	}
	// Security headers
	r.Use(func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("X-Content-Type-Options", "nosniff")
			next.ServeHTTP(w, r)
		})
	})

	for _, h := range reg.Handlers() {
		r.With(inflightMiddleware).Post(h.Endpoint(), generateHandler(svc, h))
	}

	// @Summary Liveness
	// @Description Always returns "pong"; never contacts the model server.
	// @Tags health
	// @Produce plain
	// @Success 200 {string} string "pong"
	// @Router /ping [get]
	r.Get("/ping", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; charset=utf-8")
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("pong"))
	})

	hc := reg.HealthcheckPath()
	if hc == "" {
		hc = healthcheckPath
	}
	r.Get("/healthcheck", healthcheckHandler(svc, hc))

	r.Get("/status", func(w http.ResponseWriter, r *http.Request) {
		st := svc.Status()
		st.Endpoints = reg.Describe()
		w.Header().Set("Content-Type", "application/json")
		if err := json.NewEncoder(w).Encode(st); err != nil {
			writeJSONError(w, http.StatusInternalServerError, "failed to encode response")
		}
	})

	r.Get("/healthz", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusOK)
		_, _ = w.Write([]byte("ok"))
	})

	r.Get("/readyz", func(w http.ResponseWriter, r *http.Request) {
		if svc.Ready() {
			w.WriteHeader(http.StatusOK)
			_, _ = w.Write([]byte("ready"))
			return
		}
		w.WriteHeader(http.StatusServiceUnavailable)
		_, _ = w.Write([]byte(svc.Status().State))
	})

	// Prometheus metrics endpoint
	r.Get("/metrics", promhttp.Handler().ServeHTTP)

	MountSwagger(r)
	return r
}

// generateHandler serves one generation endpoint.
//
// @Summary Generate
// @Description Forwards the payload to the model server through the worker's admission gate.
// @Tags generate
// @Accept json
// @Produce json
// @Param request body types.Envelope true "payload and auth_data"
// @Success 200 {object} object "model server response body, unmodified"
// @Failure 400 {object} types.ErrorResponse
// @Failure 415 {object} types.ErrorResponse
// @Failure 502 {object} types.ErrorResponse
// @Failure 503 {object} types.ErrorResponse
// @Failure 504 {object} types.ErrorResponse
// @Router /generate [post]
func generateHandler(svc Service, h endpoint.Handler) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		start := time.Now()
		lvl := requestLogLevel(r)
		ct := r.Header.Get("Content-Type")
		if ct == "" || !strings.HasPrefix(strings.ToLower(ct), "application/json") {
			writeJSONError(w, http.StatusUnsupportedMediaType, "Content-Type must be application/json")
			return
		}
		r.Body = http.MaxBytesReader(w, r.Body, maxBodyBytes)
		raw, err := io.ReadAll(r.Body)
		if err != nil {
			var mbe *http.MaxBytesError
			if errors.As(err, &mbe) {
				writeJSONError(w, http.StatusRequestEntityTooLarge, "request body too large")
				return
			}
			writeJSONError(w, http.StatusBadRequest, "failed to read request body")
			return
		}
		logStart(r, lvl, len(raw))

		// Join server base context with request context so shutdown cancels work too.
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		resp, err := svc.Handle(ctx, h, raw)
		if err != nil {
			// client went away: nobody to answer
			if r.Context().Err() != nil {
				logEnd(r, lvl, 499, start, err)
				return
			}
			status := statusForError(err)
			if serverBaseCtx.Err() != nil {
				status = http.StatusServiceUnavailable
			}
			if reason := backpressureReason(err); reason != "" {
				IncrementBackpressure(reason)
			}
			writeJSONError(w, status, err.Error())
			logEnd(r, lvl, status, start, err)
			return
		}
		writeResponse(w, resp)
		logEnd(r, lvl, resp.Status, start, nil)
	}
}

// writeResponse sends a handler response, streaming when resp.Stream is set.
func writeResponse(w http.ResponseWriter, resp *endpoint.Response) {
	for k, vs := range resp.Header {
		for _, v := range vs {
			w.Header().Add(k, v)
		}
	}
	w.WriteHeader(resp.Status)
	if resp.Stream == nil {
		_, _ = w.Write(resp.Body)
		return
	}
	defer resp.Stream.Close()
	flusher, _ := w.(http.Flusher)
	buf := make([]byte, 32*1024)
	for {
		n, err := resp.Stream.Read(buf)
		if n > 0 {
			if _, werr := w.Write(buf[:n]); werr != nil {
				return
			}
			if flusher != nil {
				flusher.Flush()
			}
		}
		if err != nil {
			return
		}
	}
}

// healthcheckHandler proxies GET /healthcheck verbatim to path on the model server.
//
// @Summary Model server healthcheck
// @Description Mirrors the model server healthcheck status and body. Works before the model is loaded.
// @Tags health
// @Success 200 {string} string "upstream body"
// @Failure 404 {object} types.ErrorResponse
// @Failure 502 {object} types.ErrorResponse
// @Router /healthcheck [get]
func healthcheckHandler(svc Service, path string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if path == "" {
			writeJSONError(w, http.StatusNotFound, "no healthcheck configured for the model server")
			return
		}
		ctx, cancel := joinContexts(serverBaseCtx, r.Context())
		defer cancel()
		up, err := svc.Passthrough(ctx, http.MethodGet, path, nil, r.Header)
		if err != nil {
			if r.Context().Err() != nil {
				return
			}
			writeJSONError(w, statusForError(err), err.Error())
			return
		}
		for k, vs := range up.Header {
			for _, v := range vs {
				w.Header().Add(k, v)
			}
		}
		w.WriteHeader(up.Status)
		_, _ = w.Write(up.Body)
	}
}
