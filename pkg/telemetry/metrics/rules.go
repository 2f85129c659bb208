package metrics

import (
	"mercator-hq/subtitler/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// RuleMetrics tracks rule evaluation.
//
// Metrics:
//   - subtitler_selector_rule_hits_total: Number of words a rule matched
//   - subtitler_selector_rule_misses_total: Number of words a rule did not match
//   - subtitler_selector_rule_errors_total: Failed evaluations by rule and phase
//   - subtitler_selector_rule_conflicts_total: Resolved conflicts by group
type RuleMetrics struct {
	hitsTotal      *prometheus.CounterVec
	missesTotal    *prometheus.CounterVec
	errorsTotal    *prometheus.CounterVec
	conflictsTotal *prometheus.CounterVec
}

// NewRuleMetrics creates and registers rule metrics with the provided registry.
func NewRuleMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *RuleMetrics {
	rm := &RuleMetrics{
		hitsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_hits_total",
				Help:      "Total number of words matched by a rule",
			},
			[]string{"rule_id"},
		),

		missesTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_misses_total",
				Help:      "Total number of words a rule did not match",
			},
			[]string{"rule_id"},
		),

		errorsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_errors_total",
				Help:      "Total number of failed rule evaluations",
			},
			[]string{"rule_id", "phase"},
		),

		conflictsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "rule_conflicts_total",
				Help:      "Total number of resolved rule conflicts",
			},
			[]string{"group"},
		),
	}

	registry.MustRegister(
		rm.hitsTotal,
		rm.missesTotal,
		rm.errorsTotal,
		rm.conflictsTotal,
	)

	return rm
}

// RecordHit records a rule matching a word.
func (rm *RuleMetrics) RecordHit(ruleID string) {
	rm.hitsTotal.WithLabelValues(ruleID).Inc()
}

// RecordMiss records a rule not matching a word.
func (rm *RuleMetrics) RecordMiss(ruleID string) {
	rm.missesTotal.WithLabelValues(ruleID).Inc()
}

// RecordError records a failed evaluation.
func (rm *RuleMetrics) RecordError(ruleID, phase string) {
	rm.errorsTotal.WithLabelValues(ruleID, phase).Inc()
}

// RecordConflict records a conflict resolved in a group.
func (rm *RuleMetrics) RecordConflict(group string) {
	rm.conflictsTotal.WithLabelValues(group).Inc()
}
