package config

import (
	"errors"
	"fmt"
	"net/url"
	"os"
	"strconv"
	"strings"
	"time"

	"worker/internal/backend"
)

// Built-in defaults.
const (
	DefaultAddr              = ":3000"
	DefaultModelServerURL    = "http://127.0.0.1:5001"
	DefaultBenchmarkRuns     = 3
	DefaultBenchmarkInterval = 5 * time.Minute
	DefaultUpstreamTimeout   = 5 * time.Minute
)

// Defaults returns the configuration used when no file or flag overrides a key.
func Defaults() Config {
	parallel := false
	runs := DefaultBenchmarkRuns
	return Config{
		Addr:                  DefaultAddr,
		ModelServerURL:        DefaultModelServerURL,
		AllowParallelRequests: &parallel,
		BenchmarkRuns:         &runs,
		BenchmarkInterval:     Duration(DefaultBenchmarkInterval),
		UpstreamTimeout:       Duration(DefaultUpstreamTimeout),
		Telemetry:             Telemetry{Sink: "none"},
		Logging:               Logging{Level: "info", Format: "console"},
	}
}

// Merge overlays every non-zero field of o onto c.
func (c Config) Merge(o Config) Config {
	if o.Addr != "" {
		c.Addr = o.Addr
	}
	if o.ModelServerURL != "" {
		c.ModelServerURL = o.ModelServerURL
	}
	if o.ModelLog != "" {
		c.ModelLog = o.ModelLog
	}
	if o.AllowParallelRequests != nil {
		c.AllowParallelRequests = o.AllowParallelRequests
	}
	if len(o.LogActions) > 0 {
		c.LogActions = o.LogActions
	}
	if o.BenchmarkRuns != nil {
		c.BenchmarkRuns = o.BenchmarkRuns
	}
	if o.BenchmarkInterval != 0 {
		c.BenchmarkInterval = o.BenchmarkInterval
	}
	if o.UpstreamTimeout != 0 {
		c.UpstreamTimeout = o.UpstreamTimeout
	}
	if o.LogOpenTimeout != 0 {
		c.LogOpenTimeout = o.LogOpenTimeout
	}
	if o.LogPollInterval != 0 {
		c.LogPollInterval = o.LogPollInterval
	}
	if o.HealthcheckPath != "" {
		c.HealthcheckPath = o.HealthcheckPath
	}
	if o.MaxBodyBytes != 0 {
		c.MaxBodyBytes = o.MaxBodyBytes
	}
	if o.Telemetry.Sink != "" {
		c.Telemetry.Sink = o.Telemetry.Sink
	}
	if o.Telemetry.URL != "" {
		c.Telemetry.URL = o.Telemetry.URL
	}
	if o.Telemetry.Subject != "" {
		c.Telemetry.Subject = o.Telemetry.Subject
	}
	if o.Telemetry.WorkerID != "" {
		c.Telemetry.WorkerID = o.Telemetry.WorkerID
	}
	if o.Telemetry.BusyInterval != 0 {
		c.Telemetry.BusyInterval = o.Telemetry.BusyInterval
	}
	if o.Telemetry.IdleInterval != 0 {
		c.Telemetry.IdleInterval = o.Telemetry.IdleInterval
	}
	if o.Logging.Level != "" {
		c.Logging.Level = o.Logging.Level
	}
	if o.Logging.Format != "" {
		c.Logging.Format = o.Logging.Format
	}
	if o.Logging.File != "" {
		c.Logging.File = o.Logging.File
	}
	if o.Logging.MaxSizeMB != 0 {
		c.Logging.MaxSizeMB = o.Logging.MaxSizeMB
	}
	if o.Logging.MaxBackups != 0 {
		c.Logging.MaxBackups = o.Logging.MaxBackups
	}
	if o.Logging.MaxAgeDays != 0 {
		c.Logging.MaxAgeDays = o.Logging.MaxAgeDays
	}
	if o.CORS.Enabled {
		c.CORS = o.CORS
	}
	return c
}

// FromEnv reads the worker's environment variables. Unset variables leave
// the corresponding fields zero.
func FromEnv(getenv func(string) string) (Config, error) {
	if getenv == nil {
		getenv = os.Getenv
	}
	var c Config
	c.Addr = getenv("WORKER_ADDR")
	c.ModelServerURL = getenv("MODEL_SERVER_URL")
	c.ModelLog = getenv("MODEL_LOG")
	c.Telemetry.URL = getenv("REPORT_ADDR")
	c.Telemetry.WorkerID = getenv("WORKER_ID")
	c.Logging.Level = getenv("WORKER_LOG_LEVEL")
	if c.Telemetry.URL != "" {
		c.Telemetry.Sink = "http"
	}
	if v := getenv("ALLOW_PARALLEL_REQUESTS"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return c, fmt.Errorf("ALLOW_PARALLEL_REQUESTS: %w", err)
		}
		c.AllowParallelRequests = &b
	}
	if v := getenv("BENCHMARK_RUNS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return c, fmt.Errorf("BENCHMARK_RUNS: %w", err)
		}
		c.BenchmarkRuns = &n
	}
	return c, nil
}

// ParallelAllowed reports the effective admission policy flag.
func (c Config) ParallelAllowed() bool {
	return c.AllowParallelRequests != nil && *c.AllowParallelRequests
}

// Runs reports the effective benchmark run count.
func (c Config) Runs() int {
	if c.BenchmarkRuns == nil {
		return DefaultBenchmarkRuns
	}
	return *c.BenchmarkRuns
}

// LogRules converts the configured log actions; empty yields nil so the
// backend applies its defaults.
func (c Config) LogRules() (backend.LogRules, error) {
	if len(c.LogActions) == 0 {
		return nil, nil
	}
	rules := make(backend.LogRules, 0, len(c.LogActions))
	for i, la := range c.LogActions {
		action, err := backend.ParseLogAction(la.Action)
		if err != nil {
			return nil, fmt.Errorf("log_actions[%d]: %w", i, err)
		}
		switch {
		case la.Match != "" && la.Regex != "":
			return nil, fmt.Errorf("log_actions[%d]: match and regex are mutually exclusive", i)
		case la.Regex != "":
			r, err := backend.Regex(action, la.Regex)
			if err != nil {
				return nil, fmt.Errorf("log_actions[%d]: %w", i, err)
			}
			rules = append(rules, r)
		case la.Match != "":
			rules = append(rules, backend.Literal(action, la.Match))
		default:
			return nil, fmt.Errorf("log_actions[%d]: match or regex is required", i)
		}
	}
	return rules, nil
}

// Validate reports every invalid field at once.
func (c Config) Validate() error {
	var errs []error
	if c.Addr == "" {
		errs = append(errs, errors.New("addr is required"))
	}
	if u, err := url.Parse(c.ModelServerURL); err != nil || u.Host == "" || (u.Scheme != "http" && u.Scheme != "https") {
		errs = append(errs, fmt.Errorf("model_server_url %q must be an http(s) URL", c.ModelServerURL))
	}
	if strings.TrimSpace(c.ModelLog) == "" {
		errs = append(errs, errors.New("model_log is required (or set MODEL_LOG)"))
	}
	if c.Runs() < 0 {
		errs = append(errs, errors.New("benchmark_runs must be >= 0"))
	}
	if c.MaxBodyBytes < 0 {
		errs = append(errs, errors.New("max_body_bytes must be >= 0"))
	}
	switch c.Telemetry.Sink {
	case "", "none":
	case "http", "nats":
		if c.Telemetry.URL == "" {
			errs = append(errs, fmt.Errorf("telemetry.url is required for sink %q", c.Telemetry.Sink))
		}
	default:
		errs = append(errs, fmt.Errorf("unknown telemetry.sink %q", c.Telemetry.Sink))
	}
	if _, err := c.LogRules(); err != nil {
		errs = append(errs, err)
	}
	return errors.Join(errs...)
}
