package backend

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/rs/zerolog"
)

const (
	defaultLogPollInterval = 500 * time.Millisecond
	defaultLogOpenTimeout  = 60 * time.Second
	logReadChunk           = 32 * 1024
	// maxPartialLine bounds a line without newline kept between reads.
	maxPartialLine = 1 << 20
)

// LogMonitor tails the model server's log file and turns matching lines into
// readiness transitions. It is the only writer of Readiness.
type LogMonitor struct {
	path         string
	rules        LogRules
	readiness    *Readiness
	publisher    EventPublisher
	log          zerolog.Logger
	pollInterval time.Duration
	openTimeout  time.Duration

	offset  int64
	partial []byte
}

// LogMonitorConfig configures a LogMonitor.
type LogMonitorConfig struct {
	Path         string
	Rules        LogRules
	PollInterval time.Duration
	OpenTimeout  time.Duration
	Publisher    EventPublisher
	Logger       zerolog.Logger
}

func NewLogMonitor(cfg LogMonitorConfig, r *Readiness) *LogMonitor {
	m := &LogMonitor{
		path:         cfg.Path,
		rules:        cfg.Rules,
		readiness:    r,
		publisher:    cfg.Publisher,
		log:          cfg.Logger.With().Str("component", "logmonitor").Logger(),
		pollInterval: cfg.PollInterval,
		openTimeout:  cfg.OpenTimeout,
	}
	if m.rules == nil {
		m.rules = DefaultLogRules()
	}
	if m.publisher == nil {
		m.publisher = noopPublisher{}
	}
	if m.pollInterval <= 0 {
		m.pollInterval = defaultLogPollInterval
	}
	if m.openTimeout <= 0 {
		m.openTimeout = defaultLogOpenTimeout
	}
	return m
}

// Run tails the log until ctx is canceled. It returns an error only when the
// log cannot be opened, which callers treat as fatal at startup.
func (m *LogMonitor) Run(ctx context.Context) error {
	f, err := m.open(ctx)
	if err != nil {
		if ctx.Err() != nil {
			return nil
		}
		return err
	}
	defer f.Close()
	m.log.Info().Str("path", m.path).Int("rules", len(m.rules)).Msg("tailing model log")

	var events <-chan fsnotify.Event
	var watchErrs <-chan error
	if w, err := fsnotify.NewWatcher(); err != nil {
		m.log.Warn().Err(err).Msg("fsnotify unavailable, polling only")
	} else {
		defer w.Close()
		if err := w.Add(m.path); err != nil {
			m.log.Warn().Err(err).Msg("watch model log failed, polling only")
		} else {
			events, watchErrs = w.Events, w.Errors
		}
	}

	ticker := time.NewTicker(m.pollInterval)
	defer ticker.Stop()
	m.drain(f)
	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-events:
			if !ok {
				events = nil
				continue
			}
			if ev.Has(fsnotify.Write) || ev.Has(fsnotify.Create) {
				m.drain(f)
			}
		case err, ok := <-watchErrs:
			if !ok {
				watchErrs = nil
				continue
			}
			m.log.Warn().Err(err).Msg("watch error")
		case <-ticker.C:
			m.drain(f)
		}
	}
}

// open waits for the log file to appear. Errors other than not-exist fail immediately.
func (m *LogMonitor) open(ctx context.Context) (*os.File, error) {
	deadline := time.Now().Add(m.openTimeout)
	for {
		f, err := os.Open(m.path)
		if err == nil {
			return f, nil
		}
		if !errors.Is(err, fs.ErrNotExist) {
			return nil, fmt.Errorf("open model log: %w", err)
		}
		if time.Now().After(deadline) {
			return nil, fmt.Errorf("model log %s did not appear within %s", m.path, m.openTimeout)
		}
		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(m.pollInterval):
		}
	}
}

// drain reads everything appended since the last call and processes complete lines.
func (m *LogMonitor) drain(f *os.File) {
	fi, err := f.Stat()
	if err != nil {
		m.log.Warn().Err(err).Msg("stat model log")
		return
	}
	if fi.Size() < m.offset {
		m.log.Warn().Int64("offset", m.offset).Int64("size", fi.Size()).Msg("model log truncated, rewinding")
		m.publisher.Publish(Event{Name: EventTruncated, Fields: map[string]any{"offset": m.offset, "size": fi.Size()}})
		m.offset = 0
		m.partial = m.partial[:0]
	}
	buf := make([]byte, logReadChunk)
	for m.offset < fi.Size() {
		n, err := f.ReadAt(buf, m.offset)
		if n > 0 {
			m.offset += int64(n)
			m.feed(buf[:n])
		}
		if err != nil {
			if !errors.Is(err, io.EOF) {
				m.log.Warn().Err(err).Msg("read model log")
			}
			return
		}
	}
}

// feed splits data into lines, keeping an unterminated tail for the next read.
func (m *LogMonitor) feed(data []byte) {
	m.partial = append(m.partial, data...)
	for {
		idx := bytes.IndexByte(m.partial, '\n')
		if idx < 0 {
			break
		}
		line := string(m.partial[:idx])
		m.partial = m.partial[idx+1:]
		m.processLine(line)
	}
	if len(m.partial) > maxPartialLine {
		m.processLine(string(m.partial))
		m.partial = m.partial[:0]
	}
}

func (m *LogMonitor) processLine(line string) {
	line = strings.TrimRight(line, "\r")
	if m.readiness.Load() == StateStarting && m.readiness.transition(StateLoading) {
		m.log.Info().Msg("model server output observed, loading")
		m.publisher.Publish(Event{Name: EventLoading})
	}
	rule, ok := m.rules.Classify(line)
	if !ok {
		return
	}
	switch rule.Action {
	case ActionModelLoaded:
		if m.readiness.transition(StateReady) {
			m.log.Info().Str("line", line).Msg("model loaded, accepting requests")
			m.publisher.Publish(Event{Name: EventModelLoaded, Fields: map[string]any{"line": line}})
		}
	case ActionInfo:
		m.log.Info().Str("line", line).Msg("model server")
		m.publisher.Publish(Event{Name: EventLogInfo, Fields: map[string]any{"line": line}})
	case ActionModelError:
		if m.readiness.transition(StateError) {
			m.log.Error().Str("line", line).Msg("model server reported an unrecoverable error")
			m.publisher.Publish(Event{Name: EventModelError, Fields: map[string]any{"line": line}})
		}
	}
}
