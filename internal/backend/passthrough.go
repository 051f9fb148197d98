package backend

import (
	"context"
	"io"
	"net/http"

	"worker/internal/endpoint"
)

// Passthrough forwards a request verbatim to path on the model server and
// returns the buffered reply. It bypasses readiness and admission so that
// healthchecks work while the model is loading or failed.
func (b *Backend) Passthrough(ctx context.Context, method, path string, body io.Reader, header http.Header) (*endpoint.UpstreamResponse, error) {
	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if b.upstreamTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.upstreamTimeout)
	}
	defer cancel()

	resp, err := b.forward(callCtx, method, path, body, header)
	if err != nil {
		err = classifyUpstream(ctx, err)
		b.log.Debug().Err(err).Str("path", path).Msg("passthrough failed")
		return nil, err
	}
	defer resp.Body.Close()
	data, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, classifyUpstream(ctx, err)
	}
	passthroughTotal.WithLabelValues(path, statusClass(resp.StatusCode)).Inc()
	return &endpoint.UpstreamResponse{Status: resp.StatusCode, Header: copyHeader(resp.Header), Body: data}, nil
}

func statusClass(code int) string {
	switch {
	case code >= 500:
		return "5xx"
	case code >= 400:
		return "4xx"
	case code >= 300:
		return "3xx"
	case code >= 200:
		return "2xx"
	default:
		return "1xx"
	}
}
