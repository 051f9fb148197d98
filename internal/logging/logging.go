// Package logging builds the process zerolog logger: console or JSON on
// stderr, optionally teed to a size-rotated file.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"gopkg.in/natefinch/lumberjack.v2"

	"worker/internal/common/fsutil"
)

// Config selects level, format and file output.
type Config struct {
	Level string
	// Format is console or json.
	Format string
	// File enables a rotated JSON log file when non-empty.
	File       string
	MaxSizeMB  int
	MaxBackups int
	MaxAgeDays int
}

// New returns the logger and a cleanup func that closes the file output.
func New(cfg Config) (zerolog.Logger, func(), error) {
	return newWithWriter(cfg, os.Stderr)
}

func newWithWriter(cfg Config, stderr io.Writer) (zerolog.Logger, func(), error) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		return zerolog.Nop(), func() {}, err
	}
	var out io.Writer = stderr
	switch strings.ToLower(cfg.Format) {
	case "", "console":
		out = zerolog.ConsoleWriter{Out: stderr, TimeFormat: time.RFC3339}
	case "json":
	default:
		return zerolog.Nop(), func() {}, fmt.Errorf("unknown log format %q", cfg.Format)
	}

	cleanup := func() {}
	if cfg.File != "" {
		path, err := fsutil.ExpandHome(cfg.File)
		if err != nil {
			return zerolog.Nop(), cleanup, err
		}
		if err := fsutil.EnsureParentDir(path); err != nil {
			return zerolog.Nop(), cleanup, fmt.Errorf("log dir: %w", err)
		}
		rotator := &lumberjack.Logger{
			Filename:   path,
			MaxSize:    orDefault(cfg.MaxSizeMB, 100),
			MaxBackups: orDefault(cfg.MaxBackups, 5),
			MaxAge:     orDefault(cfg.MaxAgeDays, 14),
			Compress:   true,
		}
		out = zerolog.MultiLevelWriter(out, rotator)
		cleanup = func() { _ = rotator.Close() }
	}
	logger := zerolog.New(out).Level(level).With().Timestamp().Logger()
	return logger, cleanup, nil
}

// ParseLevel accepts zerolog level names plus "warning"; empty means info.
func ParseLevel(s string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "":
		return zerolog.InfoLevel, nil
	case "warning":
		return zerolog.WarnLevel, nil
	}
	l, err := zerolog.ParseLevel(strings.ToLower(strings.TrimSpace(s)))
	if err != nil {
		return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", s)
	}
	return l, nil
}

func orDefault(v, def int) int {
	if v <= 0 {
		return def
	}
	return v
}
