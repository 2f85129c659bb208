package metrics

import (
	"time"

	"mercator-hq/subtitler/pkg/config"

	"github.com/prometheus/client_golang/prometheus"
)

// ApplicationMetrics tracks template applications.
//
// Metrics:
//   - subtitler_selector_applications_total: Applications by template and status
//   - subtitler_selector_application_duration_seconds: Application duration
//   - subtitler_selector_words_total: Words by template and outcome (evaluated, skipped)
//   - subtitler_selector_animations_selected_total: Selected animations by template
//   - subtitler_selector_template_loads_total: Template loads by result
type ApplicationMetrics struct {
	applicationsTotal   *prometheus.CounterVec
	applicationDuration *prometheus.HistogramVec
	wordsTotal          *prometheus.CounterVec
	animationsTotal     *prometheus.CounterVec
	templateLoadsTotal  *prometheus.CounterVec
}

// NewApplicationMetrics creates and registers application metrics with the provided registry.
func NewApplicationMetrics(cfg *config.MetricsConfig, registry *prometheus.Registry) *ApplicationMetrics {
	am := &ApplicationMetrics{
		applicationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "applications_total",
				Help:      "Total number of template applications",
			},
			[]string{"template", "status"},
		),

		applicationDuration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "application_duration_seconds",
				Help:      "Duration of template applications in seconds",
				Buckets:   cfg.DurationBuckets,
			},
			[]string{"template"},
		),

		wordsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "words_total",
				Help:      "Total number of words processed by outcome",
			},
			[]string{"template", "outcome"},
		),

		animationsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "animations_selected_total",
				Help:      "Total number of animations selected",
			},
			[]string{"template"},
		),

		templateLoadsTotal: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Namespace: cfg.Namespace,
				Subsystem: cfg.Subsystem,
				Name:      "template_loads_total",
				Help:      "Total number of template loads from sources",
			},
			[]string{"result"},
		),
	}

	registry.MustRegister(
		am.applicationsTotal,
		am.applicationDuration,
		am.wordsTotal,
		am.animationsTotal,
		am.templateLoadsTotal,
	)

	return am
}

// RecordApplication records one application and its duration.
func (am *ApplicationMetrics) RecordApplication(templateID, status string, duration time.Duration) {
	am.applicationsTotal.WithLabelValues(templateID, status).Inc()
	am.applicationDuration.WithLabelValues(templateID).Observe(duration.Seconds())
}

// RecordWords records evaluated and skipped word counts.
func (am *ApplicationMetrics) RecordWords(templateID string, evaluated, skipped int) {
	if evaluated > 0 {
		am.wordsTotal.WithLabelValues(templateID, "evaluated").Add(float64(evaluated))
	}
	if skipped > 0 {
		am.wordsTotal.WithLabelValues(templateID, "skipped").Add(float64(skipped))
	}
}

// RecordAnimations records the number of selected animations.
func (am *ApplicationMetrics) RecordAnimations(templateID string, n int) {
	if n > 0 {
		am.animationsTotal.WithLabelValues(templateID).Add(float64(n))
	}
}

// RecordTemplateLoad records a template load result.
func (am *ApplicationMetrics) RecordTemplateLoad(result string) {
	am.templateLoadsTotal.WithLabelValues(result).Inc()
}
