// Package telemetry groups the observability of the subtitle engine.
//
//   - logging: slog construction and run/template context attributes
//   - metrics: Prometheus collector for applications, rules and caches
//   - tracing: OpenTelemetry spans around template application
//   - health: liveness and readiness probes for the watch command
//
// Every component is optional. A nil *metrics.Collector or *tracing.Tracer
// is a no-op, so library code calls them unconditionally.
package telemetry
