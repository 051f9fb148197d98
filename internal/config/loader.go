package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	toml "github.com/pelletier/go-toml/v2"
	"gopkg.in/yaml.v3"

	"worker/internal/common/fsutil"
)

// Config holds runtime parameters for the worker.
// Zero values mean "unspecified" and are replaced by Defaults or flags in main.
type Config struct {
	Addr                  string      `json:"addr" yaml:"addr" toml:"addr"`
	ModelServerURL        string      `json:"model_server_url" yaml:"model_server_url" toml:"model_server_url"`
	ModelLog              string      `json:"model_log" yaml:"model_log" toml:"model_log"`
	AllowParallelRequests *bool       `json:"allow_parallel_requests" yaml:"allow_parallel_requests" toml:"allow_parallel_requests"`
	LogActions            []LogAction `json:"log_actions" yaml:"log_actions" toml:"log_actions"`
	BenchmarkRuns         *int        `json:"benchmark_runs" yaml:"benchmark_runs" toml:"benchmark_runs"`
	BenchmarkInterval     Duration    `json:"benchmark_interval" yaml:"benchmark_interval" toml:"benchmark_interval"`
	UpstreamTimeout       Duration    `json:"upstream_timeout" yaml:"upstream_timeout" toml:"upstream_timeout"`
	LogOpenTimeout        Duration    `json:"log_open_timeout" yaml:"log_open_timeout" toml:"log_open_timeout"`
	LogPollInterval       Duration    `json:"log_poll_interval" yaml:"log_poll_interval" toml:"log_poll_interval"`
	HealthcheckPath       string      `json:"healthcheck_path" yaml:"healthcheck_path" toml:"healthcheck_path"`
	MaxBodyBytes          int64       `json:"max_body_bytes" yaml:"max_body_bytes" toml:"max_body_bytes"`
	Telemetry             Telemetry   `json:"telemetry" yaml:"telemetry" toml:"telemetry"`
	Logging               Logging     `json:"logging" yaml:"logging" toml:"logging"`
	CORS                  CORS        `json:"cors" yaml:"cors" toml:"cors"`
}

// LogAction is one ordered log classification rule. Exactly one of Match
// (substring) or Regex must be set.
type LogAction struct {
	Action string `json:"action" yaml:"action" toml:"action"`
	Match  string `json:"match,omitempty" yaml:"match,omitempty" toml:"match,omitempty"`
	Regex  string `json:"regex,omitempty" yaml:"regex,omitempty" toml:"regex,omitempty"`
}

// Telemetry configures the autoscaler push.
type Telemetry struct {
	Sink         string   `json:"sink" yaml:"sink" toml:"sink"`
	URL          string   `json:"url" yaml:"url" toml:"url"`
	Subject      string   `json:"subject" yaml:"subject" toml:"subject"`
	WorkerID     string   `json:"worker_id" yaml:"worker_id" toml:"worker_id"`
	BusyInterval Duration `json:"busy_interval" yaml:"busy_interval" toml:"busy_interval"`
	IdleInterval Duration `json:"idle_interval" yaml:"idle_interval" toml:"idle_interval"`
}

// Logging configures the process logger.
type Logging struct {
	Level      string `json:"level" yaml:"level" toml:"level"`
	Format     string `json:"format" yaml:"format" toml:"format"`
	File       string `json:"file" yaml:"file" toml:"file"`
	MaxSizeMB  int    `json:"max_size_mb" yaml:"max_size_mb" toml:"max_size_mb"`
	MaxBackups int    `json:"max_backups" yaml:"max_backups" toml:"max_backups"`
	MaxAgeDays int    `json:"max_age_days" yaml:"max_age_days" toml:"max_age_days"`
}

// CORS mirrors the HTTP layer's opt-in CORS settings.
type CORS struct {
	Enabled bool     `json:"enabled" yaml:"enabled" toml:"enabled"`
	Origins []string `json:"origins" yaml:"origins" toml:"origins"`
	Methods []string `json:"methods" yaml:"methods" toml:"methods"`
	Headers []string `json:"headers" yaml:"headers" toml:"headers"`
}

// Load reads a configuration file based on its extension.
// Supports: .yaml/.yml, .json, .toml
func Load(path string) (Config, error) {
	var cfg Config
	if path == "" {
		return cfg, fmt.Errorf("empty config path")
	}
	path, err := fsutil.ExpandHome(path)
	if err != nil {
		return cfg, err
	}
	b, err := os.ReadFile(path)
	if err != nil {
		return cfg, err
	}
	switch ext := strings.ToLower(filepath.Ext(path)); ext {
	case ".yaml", ".yml":
		if err := yaml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".json":
		if err := json.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	case ".toml":
		if err := toml.Unmarshal(b, &cfg); err != nil {
			return cfg, fmt.Errorf("parse %s: %w", path, err)
		}
	default:
		return cfg, fmt.Errorf("unsupported config extension: %s", ext)
	}
	return cfg, nil
}
