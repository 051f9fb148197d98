package config

import (
	"strings"
	"testing"

	"worker/internal/backend"
)

func TestLoad_NonexistentFile(t *testing.T) {
	if _, err := Load("/definitely/not/a/real/file-12345.yaml"); err == nil {
		t.Fatalf("expected error for nonexistent file")
	}
}

func TestLoad_InvalidYAML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.yaml", "addr: :3000\n: broken\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected YAML unmarshal error")
	}
}

func TestLoad_InvalidJSON(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.json", `{ "addr": ":3000", "model_log": }`)
	if _, err := Load(p); err == nil {
		t.Fatalf("expected JSON unmarshal error")
	}
}

func TestLoad_InvalidTOML(t *testing.T) {
	d := t.TempDir()
	p := writeTempFile(t, d, "bad.toml", "addr=:3000\nmodel_log\n")
	if _, err := Load(p); err == nil {
		t.Fatalf("expected TOML unmarshal error")
	}
}

func TestDefaultsAndMerge(t *testing.T) {
	c := Defaults()
	if c.Addr != DefaultAddr || c.ModelServerURL != DefaultModelServerURL || c.ParallelAllowed() || c.Runs() != 3 {
		t.Fatalf("defaults: %+v", c)
	}
	on := true
	zero := 0
	c = c.Merge(Config{ModelLog: "/l", AllowParallelRequests: &on, BenchmarkRuns: &zero, Telemetry: Telemetry{Sink: "http", URL: "http://a"}})
	if c.Addr != DefaultAddr || c.ModelLog != "/l" || !c.ParallelAllowed() || c.Runs() != 0 || c.Telemetry.URL != "http://a" {
		t.Fatalf("merged: %+v", c)
	}
	if err := c.Validate(); err != nil {
		t.Fatalf("validate: %v", err)
	}
}

func TestFromEnv(t *testing.T) {
	env := map[string]string{
		"MODEL_LOG":               "/tmp/model.log",
		"ALLOW_PARALLEL_REQUESTS": "false",
		"BENCHMARK_RUNS":          "7",
		"REPORT_ADDR":             "http://autoscaler",
	}
	c, err := FromEnv(func(k string) string { return env[k] })
	if err != nil {
		t.Fatalf("env: %v", err)
	}
	if c.ModelLog != "/tmp/model.log" || c.AllowParallelRequests == nil || c.ParallelAllowed() || c.Runs() != 7 {
		t.Fatalf("env cfg: %+v", c)
	}
	if c.Telemetry.Sink != "http" || c.Telemetry.URL != "http://autoscaler" {
		t.Fatalf("telemetry: %+v", c.Telemetry)
	}
	env["BENCHMARK_RUNS"] = "many"
	if _, err := FromEnv(func(k string) string { return env[k] }); err == nil {
		t.Fatalf("expected parse error")
	}
}

func TestValidate_CollectsErrors(t *testing.T) {
	c := Config{ModelServerURL: "ftp://x", Telemetry: Telemetry{Sink: "kafka"}, LogActions: []LogAction{{Action: "loud", Match: "x"}}}
	err := c.Validate()
	if err == nil {
		t.Fatalf("expected error")
	}
	for _, want := range []string{"addr", "model_server_url", "model_log", "kafka", "loud"} {
		if !strings.Contains(err.Error(), want) {
			t.Fatalf("error %q missing %q", err, want)
		}
	}
}

func TestLogRules(t *testing.T) {
	c := Config{LogActions: []LogAction{
		{Action: "model_loaded", Match: "infer server has started"},
		{Action: "ModelError", Regex: `Exception: .*corrupted`},
	}}
	rules, err := c.LogRules()
	if err != nil {
		t.Fatalf("rules: %v", err)
	}
	r, ok := rules.Classify("Exception: the corrupted model file")
	if !ok || r.Action != backend.ActionModelError {
		t.Fatalf("classify: %v %v", r, ok)
	}
	if rules, _ := (Config{}).LogRules(); rules != nil {
		t.Fatalf("empty config must defer to backend defaults")
	}
	bad := []LogAction{
		{Action: "info"},
		{Action: "info", Match: "a", Regex: "b"},
		{Action: "info", Regex: "("},
	}
	for _, la := range bad {
		if _, err := (Config{LogActions: []LogAction{la}}).LogRules(); err == nil {
			t.Fatalf("expected error for %+v", la)
		}
	}
}
