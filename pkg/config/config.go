package config

import "time"

// Config is the root configuration structure for Subtitler.
// It contains the default selector options, template sources, application
// history storage and telemetry settings.
type Config struct {
	// Selector contains the animation selector defaults applied to every
	// template application unless overridden per call.
	Selector SelectorConfig `yaml:"selector"`

	// Templates contains the template directory and watch settings.
	Templates TemplatesConfig `yaml:"templates"`

	// History contains configuration for the application history store.
	History HistoryConfig `yaml:"history"`

	// Telemetry contains configuration for logging, metrics and tracing.
	Telemetry TelemetryConfig `yaml:"telemetry"`
}

// SelectorConfig contains animation selector configuration.
type SelectorConfig struct {
	// EnableCaching controls the compiled-template and variable caches.
	// Default: true
	EnableCaching *bool `yaml:"enable_caching"`

	// MaxConcurrentEvaluations is the number of words evaluated in parallel.
	// 1 evaluates sequentially.
	// Default: 1
	MaxConcurrentEvaluations int `yaml:"max_concurrent_evaluations"`

	// SkipLowConfidenceWords skips words below ConfidenceThreshold.
	// Default: false
	SkipLowConfidenceWords bool `yaml:"skip_low_confidence_words"`

	// ConfidenceThreshold is the minimum confidence of evaluated words when
	// SkipLowConfidenceWords is set.
	// Default: 0.5
	ConfidenceThreshold float64 `yaml:"confidence_threshold"`

	// EnableProfiling records per-rule timings.
	// Default: false
	EnableProfiling bool `yaml:"enable_profiling"`

	// CollectDebugInfo records per-word selections in results.
	// Default: false
	CollectDebugInfo bool `yaml:"collect_debug_info"`

	// Timeout bounds one template application. 0 disables the deadline.
	// Default: 0
	Timeout time.Duration `yaml:"timeout"`

	// CompiledCacheSize is the number of compiled templates kept (0 = unbounded).
	// Default: 256
	CompiledCacheSize int `yaml:"compiled_cache_size"`

	// VariableCacheSize is the number of cached variable values kept (0 = unbounded).
	// Default: 4096
	VariableCacheSize int `yaml:"variable_cache_size"`
}

// CachingEnabled returns the effective EnableCaching value.
func (c *SelectorConfig) CachingEnabled() bool {
	return c.EnableCaching == nil || *c.EnableCaching
}

// TemplatesConfig contains template source configuration.
type TemplatesConfig struct {
	// Directory holds template documents (.yaml, .yml, .json, .toml).
	// Default: "./templates"
	Directory string `yaml:"directory"`

	// Watch reloads templates when files in Directory change.
	// Default: false
	Watch bool `yaml:"watch"`

	// Debounce coalesces bursts of file events.
	// Default: 200ms
	Debounce time.Duration `yaml:"debounce"`

	// MaxFileSize is the largest template document accepted, in bytes.
	// Default: 10MB
	MaxFileSize int64 `yaml:"max_file_size"`
}

// HistoryConfig contains application history configuration.
type HistoryConfig struct {
	// Enabled controls whether application summaries are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// Backend selects the storage backend.
	// Options: "sqlite", "memory"
	// Default: "sqlite"
	Backend string `yaml:"backend"`

	// SQLite contains SQLite-specific configuration.
	SQLite SQLiteConfig `yaml:"sqlite"`

	// Retention contains retention policy configuration.
	Retention RetentionConfig `yaml:"retention"`
}

// SQLiteConfig contains SQLite-specific configuration.
type SQLiteConfig struct {
	// Path is the file path for the SQLite database.
	// Default: "data/history.db"
	Path string `yaml:"path"`

	// MaxOpenConns is the maximum number of open database connections.
	// Default: 10
	MaxOpenConns int `yaml:"max_open_conns"`

	// MaxIdleConns is the maximum number of idle database connections.
	// Default: 5
	MaxIdleConns int `yaml:"max_idle_conns"`

	// WALMode enables Write-Ahead Logging mode for better concurrency.
	// Default: true
	WALMode *bool `yaml:"wal_mode"`

	// BusyTimeout is the duration to wait when the database is locked.
	// Default: 5s
	BusyTimeout time.Duration `yaml:"busy_timeout"`
}

// WALEnabled returns the effective WALMode value.
func (c *SQLiteConfig) WALEnabled() bool {
	return c.WALMode == nil || *c.WALMode
}

// RetentionConfig contains history retention configuration.
type RetentionConfig struct {
	// Days is the number of days to keep records.
	// Default: 30
	Days int `yaml:"days"`

	// PruneSchedule is a cron expression for scheduled pruning.
	// Default: "0 3 * * *" (daily at 3 AM)
	PruneSchedule string `yaml:"prune_schedule"`
}

// TelemetryConfig contains observability configuration.
type TelemetryConfig struct {
	// Logging contains logging configuration.
	Logging LoggingConfig `yaml:"logging"`

	// Metrics contains metrics collection configuration.
	Metrics MetricsConfig `yaml:"metrics"`

	// Tracing contains tracing configuration.
	Tracing TracingConfig `yaml:"tracing"`
}

// LoggingConfig contains logging configuration.
type LoggingConfig struct {
	// Level is the minimum log level to emit.
	// Options: "debug", "info", "warn", "error"
	// Default: "info"
	Level string `yaml:"level"`

	// Format controls the log output format.
	// Options: "json", "text"
	// Default: "text"
	Format string `yaml:"format"`

	// AddSource includes file and line number in log entries.
	// Default: false
	AddSource bool `yaml:"add_source"`
}

// MetricsConfig contains metrics collection configuration.
type MetricsConfig struct {
	// Enabled controls whether metrics collection is active.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ListenAddress serves the Prometheus endpoint in watch mode.
	// Default: "127.0.0.1:9464"
	ListenAddress string `yaml:"listen_address"`

	// Path is the HTTP path for the Prometheus metrics endpoint.
	// Default: "/metrics"
	Path string `yaml:"path"`

	// Namespace is the metric name prefix.
	// Default: "subtitler"
	Namespace string `yaml:"namespace"`

	// Subsystem is the metric subsystem name.
	// Default: "selector"
	Subsystem string `yaml:"subsystem"`

	// DurationBuckets defines histogram buckets for application duration (seconds).
	// Default: [0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5]
	DurationBuckets []float64 `yaml:"duration_buckets"`
}

// TracingConfig contains tracing configuration. Spans go to the exporters
// the host registers with the tracer; without one they only correlate logs.
type TracingConfig struct {
	// Enabled controls whether spans are recorded.
	// Default: false
	Enabled bool `yaml:"enabled"`

	// ServiceName is the instrumentation name used for the tracer.
	// Default: "subtitler"
	ServiceName string `yaml:"service_name"`

	// Sampler selects the sampling strategy.
	// Options: "always", "never", "ratio"
	// Default: "always"
	Sampler string `yaml:"sampler"`

	// SampleRatio is the fraction of traces sampled by the "ratio" sampler.
	// Default: 1.0
	SampleRatio float64 `yaml:"sample_ratio"`
}
