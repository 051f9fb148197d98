package main

import (
	"os"
	"path/filepath"
	"strings"
	"testing"
)

func TestSplitCSV(t *testing.T) {
	cases := []struct {
		in   string
		want []string
	}{
		{"a,b,c", []string{"a", "b", "c"}},
		{" a , b , c ", []string{"a", "b", "c"}},
		{"a,,c", []string{"a", "c"}},
		{"", nil},
	}
	for _, c := range cases {
		got := splitCSV(c.in)
		if len(got) != len(c.want) {
			t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
		}
		for i := range got {
			if got[i] != c.want[i] {
				t.Fatalf("%q -> %v, want %v", c.in, got, c.want)
			}
		}
	}
}

func envOf(m map[string]string) func(string) string {
	return func(k string) string { return m[k] }
}

func TestResolveConfig_Precedence(t *testing.T) {
	d := t.TempDir()
	p := filepath.Join(d, "worker.yaml")
	if err := os.WriteFile(p, []byte("addr: \":4000\"\nmodel_log: /file.log\nbenchmark_runs: 9\n"), 0o644); err != nil {
		t.Fatalf("write: %v", err)
	}
	cmd := newRootCmd()
	if err := cmd.ParseFlags([]string{"--config", p, "--benchmark-runs", "1", "--cors-origins", "https://a, https://b"}); err != nil {
		t.Fatalf("flags: %v", err)
	}
	var fv flagValues
	fv.configPath = p
	fv.benchmarkRuns = 1
	fv.corsOrigins = "https://a, https://b"
	cfg, err := resolveConfig(cmd, &fv, envOf(map[string]string{"MODEL_LOG": "/env.log"}))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Addr != ":4000" {
		t.Fatalf("file addr not applied: %q", cfg.Addr)
	}
	if cfg.ModelLog != "/env.log" {
		t.Fatalf("env must override file: %q", cfg.ModelLog)
	}
	if cfg.Runs() != 1 {
		t.Fatalf("flag must override file: %d", cfg.Runs())
	}
	if !cfg.CORS.Enabled || len(cfg.CORS.Origins) != 2 {
		t.Fatalf("cors: %+v", cfg.CORS)
	}
	if cfg.ParallelAllowed() {
		t.Fatalf("serialized by default")
	}
}

func TestResolveConfig_RequiresModelLog(t *testing.T) {
	cmd := newRootCmd()
	var fv flagValues
	_, err := resolveConfig(cmd, &fv, envOf(nil))
	if err == nil || !strings.Contains(err.Error(), "model_log") {
		t.Fatalf("expected model_log error, got %v", err)
	}
}

func TestResolveConfig_TelemetryURLImpliesHTTP(t *testing.T) {
	cmd := newRootCmd()
	fv := flagValues{modelLog: "/m.log", telemetryURL: "http://autoscaler/report"}
	cfg, err := resolveConfig(cmd, &fv, envOf(nil))
	if err != nil {
		t.Fatalf("resolve: %v", err)
	}
	if cfg.Telemetry.Sink != "http" {
		t.Fatalf("sink %q", cfg.Telemetry.Sink)
	}
}
