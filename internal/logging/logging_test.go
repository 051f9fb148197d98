package logging

import (
	"bytes"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/rs/zerolog"
)

func TestParseLevel(t *testing.T) {
	cases := map[string]zerolog.Level{
		"":        zerolog.InfoLevel,
		"debug":   zerolog.DebugLevel,
		"INFO":    zerolog.InfoLevel,
		"warning": zerolog.WarnLevel,
		"warn":    zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
	}
	for in, want := range cases {
		got, err := ParseLevel(in)
		if err != nil || got != want {
			t.Fatalf("ParseLevel(%q) = %v, %v", in, got, err)
		}
	}
	if _, err := ParseLevel("loud"); err == nil {
		t.Fatalf("expected error")
	}
}

func TestNew_JSONAndLevel(t *testing.T) {
	var buf bytes.Buffer
	l, cleanup, err := newWithWriter(Config{Level: "warn", Format: "json"}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	defer cleanup()
	l.Info().Msg("hidden")
	l.Warn().Str("k", "v").Msg("shown")
	out := buf.String()
	if strings.Contains(out, "hidden") || !strings.Contains(out, `"k":"v"`) {
		t.Fatalf("output %q", out)
	}
}

func TestNew_FileOutput(t *testing.T) {
	var buf bytes.Buffer
	path := filepath.Join(t.TempDir(), "logs", "worker.log")
	l, cleanup, err := newWithWriter(Config{Format: "console", File: path}, &buf)
	if err != nil {
		t.Fatalf("new: %v", err)
	}
	l.Info().Msg("to file")
	cleanup()
	data, err := os.ReadFile(path)
	if err != nil {
		t.Fatalf("read log file: %v", err)
	}
	if !strings.Contains(string(data), `"message":"to file"`) {
		t.Fatalf("file content %q", data)
	}
	if !strings.Contains(buf.String(), "to file") {
		t.Fatalf("console output missing")
	}
}

func TestNew_BadFormat(t *testing.T) {
	if _, _, err := New(Config{Format: "xml"}); err == nil {
		t.Fatalf("expected error")
	}
}
