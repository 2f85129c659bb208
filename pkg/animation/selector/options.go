package selector

import (
	"errors"
	"fmt"
	"log/slog"
	"time"

	"mercator-hq/subtitler/pkg/animation/compiler"
	"mercator-hq/subtitler/pkg/config"
	"mercator-hq/subtitler/pkg/telemetry/metrics"
	"mercator-hq/subtitler/pkg/telemetry/tracing"
)

// BatchSelectionOptions tunes one ApplyTemplate call.
type BatchSelectionOptions struct {
	// EnableCaching reuses compiled templates and cached variables. When
	// false both caches are bypassed, neither read nor written. The zero
	// value is false: options built as a literal run uncached unless they
	// set it, while DefaultOptions turns it on.
	EnableCaching bool

	// MaxConcurrentEvaluations is the number of words evaluated in parallel.
	// Results are identical to sequential evaluation. 0 means 1.
	MaxConcurrentEvaluations int

	// EnableProfiling records per-rule timings in Performance.RuleTimings.
	EnableProfiling bool

	// CollectDebugInfo fills Selections and Variables in the result.
	CollectDebugInfo bool

	// SkipLowConfidenceWords skips words whose confidence is below
	// ConfidenceThreshold. Skipped words get no animations.
	SkipLowConfidenceWords bool
	ConfidenceThreshold    float64

	// EnabledRuleIDs restricts evaluation to these rules when non-empty.
	EnabledRuleIDs []string

	// DisabledRuleIDs excludes rules from evaluation. It wins over
	// EnabledRuleIDs.
	DisabledRuleIDs []string

	// Timeout bounds the call. On expiry the words evaluated so far are
	// returned as a partial result. 0 disables the deadline.
	Timeout time.Duration
}

// DefaultOptions returns the default batch options: caching on, sequential
// evaluation, confidence threshold 0.5 (not applied unless
// SkipLowConfidenceWords is set).
func DefaultOptions() BatchSelectionOptions {
	return BatchSelectionOptions{
		EnableCaching:            config.DefaultEnableCaching,
		MaxConcurrentEvaluations: config.DefaultMaxConcurrentEvaluations,
		ConfidenceThreshold:      config.DefaultConfidenceThreshold,
	}
}

// OptionsFromConfig builds batch options from the selector configuration.
func OptionsFromConfig(cfg *config.SelectorConfig) BatchSelectionOptions {
	return BatchSelectionOptions{
		EnableCaching:            cfg.CachingEnabled(),
		MaxConcurrentEvaluations: cfg.MaxConcurrentEvaluations,
		EnableProfiling:          cfg.EnableProfiling,
		CollectDebugInfo:         cfg.CollectDebugInfo,
		SkipLowConfidenceWords:   cfg.SkipLowConfidenceWords,
		ConfidenceThreshold:      cfg.ConfidenceThreshold,
		Timeout:                  cfg.Timeout,
	}
}

// ApplyDefaults fills zero values that have a default: no worker count
// means sequential evaluation.
func (o *BatchSelectionOptions) ApplyDefaults() {
	if o.MaxConcurrentEvaluations == 0 {
		o.MaxConcurrentEvaluations = config.DefaultMaxConcurrentEvaluations
	}
}

// Validate checks the options for values ApplyTemplate cannot honor.
func (o *BatchSelectionOptions) Validate() error {
	var errs []error
	if o.MaxConcurrentEvaluations < 0 {
		errs = append(errs, fmt.Errorf("maxConcurrentEvaluations must not be negative, got %d", o.MaxConcurrentEvaluations))
	}
	if o.ConfidenceThreshold < 0 || o.ConfidenceThreshold > 1 {
		errs = append(errs, fmt.Errorf("confidenceThreshold must be in [0, 1], got %v", o.ConfidenceThreshold))
	}
	if o.Timeout < 0 {
		errs = append(errs, fmt.Errorf("timeout must not be negative, got %v", o.Timeout))
	}
	return errors.Join(errs...)
}

// Option configures a Selector.
type Option func(*Selector)

// WithLogger sets the logger. The default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Selector) {
		if logger != nil {
			s.logger = logger
		}
	}
}

// WithMetrics records application, rule and cache metrics.
func WithMetrics(collector *metrics.Collector) Option {
	return func(s *Selector) {
		s.metrics = collector
	}
}

// WithTracer creates spans for applications and their phases.
func WithTracer(tracer *tracing.Tracer) Option {
	return func(s *Selector) {
		s.tracer = tracer
	}
}

// WithVariableStore shares a variable cache between selectors.
func WithVariableStore(store *VariableStore) Option {
	return func(s *Selector) {
		if store != nil {
			s.variables = store
		}
	}
}

// WithCompiledCacheSize bounds the compiled template cache (0 = unbounded).
func WithCompiledCacheSize(capacity int) Option {
	return func(s *Selector) {
		s.compiledCapacity = capacity
	}
}

// WithCompiler sets the compiler used on cache misses.
func WithCompiler(c *compiler.Compiler) Option {
	return func(s *Selector) {
		s.compiler = c
	}
}
