package httpapi

import (
	"net/http"
	"os"
	"time"

	"github.com/go-chi/chi/v5/middleware"
	"github.com/rs/zerolog"
)

// zlog is the HTTP layer logger; Nop until SetLogger is called.
var zlog = zerolog.Nop()

// SetLogger installs a structured logger used by the HTTP layer.
func SetLogger(l zerolog.Logger) { zlog = l.With().Str("component", "http").Logger() }

// LogLevel controls per-request logging behavior.
type LogLevel int

const (
	LevelOff LogLevel = iota
	LevelError
	LevelInfo
	LevelDebug
)

func parseLevel(s string) LogLevel {
	switch s {
	case "off", "":
		return LevelOff
	case "error":
		return LevelError
	case "info":
		return LevelInfo
	case "debug":
		return LevelDebug
	default:
		return LevelInfo
	}
}

// global default, read once
var defaultLogLevel = parseLevel(os.Getenv("WORKER_LOG_LEVEL"))

// SetDefaultLogLevel overrides the request log level used without per-request overrides.
func SetDefaultLogLevel(s string) { defaultLogLevel = parseLevel(s) }

func requestLogLevel(r *http.Request) LogLevel {
	if v := r.URL.Query().Get("log"); v != "" {
		if v == "1" {
			return LevelDebug
		}
		return parseLevel(v)
	}
	if v := r.Header.Get("X-Log-Level"); v != "" {
		return parseLevel(v)
	}
	return defaultLogLevel
}

// logStart logs the beginning of a generation request at info level.
func logStart(r *http.Request, lvl LogLevel, bodyBytes int) {
	if lvl < LevelInfo {
		return
	}
	z := zlog.Info().Str("path", r.URL.Path).Int("bytes", bodyBytes)
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	z.Msg("request start")
}

// logEnd logs the outcome. Errors are logged from LevelError up.
func logEnd(r *http.Request, lvl LogLevel, status int, start time.Time, err error) {
	if lvl == LevelOff || (err == nil && lvl < LevelInfo) {
		return
	}
	var z *zerolog.Event
	switch {
	case err != nil && status >= 500:
		z = zlog.Error()
	case err != nil:
		z = zlog.Warn()
	default:
		z = zlog.Info()
	}
	z = z.Str("path", r.URL.Path).Int("status", status).Dur("dur", time.Since(start))
	if rid := middleware.GetReqID(r.Context()); rid != "" {
		z = z.Str("request_id", rid)
	}
	if err != nil {
		z = z.Err(err)
	}
	z.Msg("request end")
}
