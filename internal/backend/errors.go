package backend

import (
	"errors"
	"net/http"
)

// validationError signals a malformed client payload (400).
type validationError struct{ msg string }

func (e validationError) Error() string   { return "invalid request: " + e.msg }
func (e validationError) StatusCode() int { return http.StatusBadRequest }

// ErrValidation constructs a validationError.
func ErrValidation(msg string) error { return validationError{msg: msg} }

// IsValidation reports whether err is a payload validation failure.
func IsValidation(err error) bool {
	var e validationError
	return errors.As(err, &e)
}

// notReadyError is returned before the model server has finished loading.
type notReadyError struct{ state State }

func (e notReadyError) Error() string   { return "model server not ready: " + e.state.String() }
func (e notReadyError) StatusCode() int { return http.StatusServiceUnavailable }

// IsNotReady reports whether err indicates the model is still loading (503).
func IsNotReady(err error) bool {
	var e notReadyError
	return errors.As(err, &e)
}

// fatalBackendError is returned permanently once the model server log reported an unrecoverable error.
type fatalBackendError struct{}

func (fatalBackendError) Error() string   { return "model server failed: backend is in error state" }
func (fatalBackendError) StatusCode() int { return http.StatusServiceUnavailable }

// ErrFatalBackend constructs a fatalBackendError.
func ErrFatalBackend() error { return fatalBackendError{} }

// IsFatalBackend reports whether err indicates the terminal error state.
func IsFatalBackend(err error) bool {
	var e fatalBackendError
	return errors.As(err, &e)
}

// upstreamError wraps a transport failure talking to the model server.
type upstreamError struct {
	err     error
	timeout bool
}

func (e upstreamError) Error() string {
	if e.timeout {
		return "model server timed out: " + e.err.Error()
	}
	return "model server unreachable: " + e.err.Error()
}

func (e upstreamError) Unwrap() error { return e.err }

func (e upstreamError) StatusCode() int {
	if e.timeout {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// IsUpstream reports whether err is a model server transport failure.
func IsUpstream(err error) bool {
	var e upstreamError
	return errors.As(err, &e)
}

// IsUpstreamTimeout reports whether err is an upstream call that hit its deadline.
func IsUpstreamTimeout(err error) bool {
	var e upstreamError
	return errors.As(err, &e) && e.timeout
}
