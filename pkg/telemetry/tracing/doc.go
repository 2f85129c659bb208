// Package tracing creates OpenTelemetry spans for template applications.
//
// A template application produces one "selector.apply" span with a child
// span per phase (validation, compilation, variable computation, rule
// evaluation, animation selection). Exporters are registered by the host
// through WithExporter or WithSpanProcessor; without one, spans still give
// log records a trace and span ID.
//
//	tracer, err := tracing.New(&cfg.Telemetry.Tracing, tracing.WithExporter(exp))
//	defer tracer.Shutdown(ctx)
package tracing
