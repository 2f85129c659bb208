// Package metrics provides Prometheus metrics collection for Subtitler.
//
// # Overview
//
// The metrics package records how templates are applied: application count
// and duration, per-rule hits and misses, evaluation errors, conflicts,
// skipped words and cache behavior. A nil *Collector records nothing.
//
// # Metrics Categories
//
//   - Application Metrics: Applications by status, duration, words, animations
//   - Rule Metrics: Rule hits and misses, evaluation errors, group conflicts
//   - Cache Metrics: Compiled template and variable cache hits, misses, sizes
//
// # Usage
//
//	collector := metrics.NewCollector(&cfg.Telemetry.Metrics, nil)
//	collector.RecordApplication("emphasis", metrics.StatusSuccess, elapsed, 120, 4, 37)
//
//	mux.Handle(cfg.Telemetry.Metrics.Path, collector.Handler())
//
// # Cardinality
//
// Rule, group and template IDs come from user templates, so their label
// values are capped by a CardinalityLimiter. Values past the limit are
// recorded as "other".
package metrics
