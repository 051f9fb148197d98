package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/oklog/ulid/v2"

	"worker/internal/endpoint"
	"worker/pkg/types"
)

// Handle runs one client request through h. raw is the request envelope.
//
// Returned errors are one of the package's typed errors (validation, not
// ready, fatal, upstream) or ctx.Err() when the caller went away. Any upstream
// status, including unknown codes, yields a Response built by h.
func (b *Backend) Handle(ctx context.Context, h endpoint.Handler, raw []byte) (*endpoint.Response, error) {
	p, auth, err := decodeEnvelope(h, raw)
	if err != nil {
		requestsTotal.WithLabelValues(h.Endpoint(), OutcomeInvalid).Inc()
		return nil, err
	}
	return b.handle(ctx, h, p, auth, false)
}

// decodeEnvelope parses {payload, auth_data} and validates the payload
// against the handler's declared shape. Unknown payload fields are rejected.
// auth_data is kept as raw bytes; any JSON value is accepted.
func decodeEnvelope(h endpoint.Handler, raw []byte) (endpoint.Payload, json.RawMessage, error) {
	var env types.Envelope
	if err := json.Unmarshal(raw, &env); err != nil {
		return nil, nil, ErrValidation("malformed JSON body: " + err.Error())
	}
	if len(bytes.TrimSpace(env.Payload)) == 0 || bytes.Equal(bytes.TrimSpace(env.Payload), []byte("null")) {
		return nil, nil, ErrValidation("missing payload")
	}
	p := h.NewPayload()
	dec := json.NewDecoder(bytes.NewReader(env.Payload))
	dec.DisallowUnknownFields()
	if err := dec.Decode(p); err != nil {
		return nil, nil, ErrValidation("payload: " + err.Error())
	}
	if dec.More() {
		return nil, nil, ErrValidation("payload: trailing data")
	}
	if err := p.Validate(); err != nil {
		return nil, nil, ErrValidation(err.Error())
	}
	auth := env.AuthData
	if bytes.Equal(bytes.TrimSpace(auth), []byte("null")) {
		auth = nil
	}
	return p, auth, nil
}

// handle is the lifecycle shared by client and benchmark requests. p is
// already validated.
func (b *Backend) handle(ctx context.Context, h endpoint.Handler, p endpoint.Payload, auth json.RawMessage, benchmark bool) (*endpoint.Response, error) {
	path := h.Endpoint()
	out, err := h.GeneratePayloadJSON(p)
	if err != nil {
		requestsTotal.WithLabelValues(path, OutcomeInvalid).Inc()
		return nil, ErrValidation(err.Error())
	}
	body, err := json.Marshal(out)
	if err != nil {
		requestsTotal.WithLabelValues(path, OutcomeInvalid).Inc()
		return nil, ErrValidation("encode outbound payload: " + err.Error())
	}

	id := ulid.Make().String()
	log := b.log.With().Str("request_id", id).Str("endpoint", path).Bool("benchmark", benchmark).Logger()
	start := time.Now()
	b.metrics.arrived(benchmark)

	ticket, err := b.gate.Acquire(ctx)
	if err != nil {
		b.metrics.leftQueue()
		outcome := OutcomeRejected
		if ctx.Err() != nil {
			outcome = OutcomeCanceled
		}
		b.complete(path, outcome, errStatus(err), start, auth, benchmark)
		log.Debug().Err(err).Msg("request not admitted")
		return nil, err
	}
	b.metrics.admitted()
	log.Debug().Int64("in_flight", b.metrics.InFlight()).Msg("request admitted")

	// done releases the slot and records the outcome exactly once, on every path.
	var once sync.Once
	done := func(outcome string, status int) {
		once.Do(func() {
			ticket.Release()
			b.metrics.finished()
			b.complete(path, outcome, status, start, auth, benchmark)
		})
	}

	callCtx, cancel := ctx, context.CancelFunc(func() {})
	if b.upstreamTimeout > 0 {
		callCtx, cancel = context.WithTimeout(ctx, b.upstreamTimeout)
	}
	resp, err := b.postJSON(callCtx, path, body)
	if err != nil {
		cancel()
		err = classifyUpstream(ctx, err)
		done(outcomeFor(err), errStatus(err))
		log.Warn().Err(err).Msg("model server call failed")
		return nil, err
	}

	if endpoint.IsStreaming(h) && resp.StatusCode >= 200 && resp.StatusCode < 300 {
		status := resp.StatusCode
		return &endpoint.Response{
			Status: status,
			Header: copyHeader(resp.Header),
			Stream: &releasingBody{ReadCloser: resp.Body, onClose: func() {
				cancel()
				done(OutcomeSuccess, status)
			}},
		}, nil
	}

	data, err := io.ReadAll(resp.Body)
	_ = resp.Body.Close()
	cancel()
	if err != nil {
		err = classifyUpstream(ctx, err)
		done(outcomeFor(err), errStatus(err))
		log.Warn().Err(err).Msg("reading model server response failed")
		return nil, err
	}

	up := endpoint.UpstreamResponse{Status: resp.StatusCode, Header: resp.Header, Body: data}
	cr := h.GenerateClientResponse(up)
	if cr.Status < 100 || cr.Status > 599 {
		cr = endpoint.ErrorResponse(http.StatusBadGateway, fmt.Sprintf("unmapped model server status %d", resp.StatusCode))
	}
	outcome := OutcomeSuccess
	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		outcome = OutcomeStatus
		log.Warn().Err(endpoint.UpstreamStatusError{Status: resp.StatusCode, Body: string(data)}).Int("client_status", cr.Status).Msg("model server returned non-success")
	}
	done(outcome, cr.Status)
	log.Debug().Int("status", cr.Status).Dur("latency", time.Since(start)).Msg("request complete")
	return &cr, nil
}

// complete records metrics and forwards the auth context for client requests.
func (b *Backend) complete(path, outcome string, status int, start time.Time, auth json.RawMessage, benchmark bool) {
	d := time.Since(start)
	b.metrics.record(path, outcome, d)
	if benchmark || b.recorder == nil {
		return
	}
	b.recorder.RecordRequest(types.RequestRecord{
		AuthData:  auth,
		Endpoint:  path,
		Status:    status,
		LatencyMS: float64(d) / float64(time.Millisecond),
	})
}

// classifyUpstream maps a transport error onto the worker taxonomy. Caller
// cancellation wins over everything else.
func classifyUpstream(parent context.Context, err error) error {
	if perr := parent.Err(); perr != nil {
		return perr
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return upstreamError{err: err, timeout: true}
	}
	var ne interface{ Timeout() bool }
	if errors.As(err, &ne) && ne.Timeout() {
		return upstreamError{err: err, timeout: true}
	}
	return upstreamError{err: err}
}

func outcomeFor(err error) string {
	if IsUpstream(err) {
		return OutcomeUpstream
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return OutcomeCanceled
	}
	return OutcomeUpstream
}

// errStatus returns the HTTP status carried by err, or 499 for cancellation.
func errStatus(err error) int {
	var se interface{ StatusCode() int }
	if errors.As(err, &se) {
		return se.StatusCode()
	}
	if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
		return 499
	}
	return http.StatusInternalServerError
}

// releasingBody runs onClose once when the stream is closed.
type releasingBody struct {
	io.ReadCloser
	once    sync.Once
	onClose func()
}

func (r *releasingBody) Close() error {
	err := r.ReadCloser.Close()
	r.once.Do(r.onClose)
	return err
}
