// Package backend owns the request lifecycle between the HTTP layer and the
// local model server. It is structured into small files by concern:
//
//   - backend.go: core Backend type, constructor, simple getters.
//   - config.go: Config and package defaults; NewWithConfig applies defaults.
//   - types.go: readiness State values and Snapshot.
//   - readiness.go: atomic readiness cell written only by the LogMonitor.
//   - errors.go: error types and helpers (IsValidation, IsNotReady, ...).
//   - logaction.go: ordered (action, literal/regex) rules for log lines.
//   - logmonitor.go: tails the model server log and drives readiness.
//   - admission.go: unrestricted or serialized (FIFO) admission gate.
//   - metrics.go, reservoir.go, prom.go: pending/in-flight counters, latency
//     samples and their Prometheus mirrors.
//   - session.go: shared keep-alive HTTP client to the model server.
//   - handle.go: Handle, the generation entry point.
//   - passthrough.go: verbatim forwarding for non-generative calls.
//   - benchmark.go: synthetic runs through Handle.
//   - status_report.go, sanity.go: Status and startup preflight.
//
// LogMonitor and request handling never call each other; they only share the
// Readiness cell and MetricsState owned by the Backend.
package backend
