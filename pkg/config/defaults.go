package config

import "time"

// Default values for configuration fields.
const (
	// Selector defaults
	DefaultEnableCaching            = true
	DefaultMaxConcurrentEvaluations = 1
	DefaultConfidenceThreshold      = 0.5
	DefaultCompiledCacheSize        = 256
	DefaultVariableCacheSize        = 4096

	// Template defaults
	DefaultTemplatesDirectory = "./templates"
	DefaultTemplatesDebounce  = 200 * time.Millisecond
	DefaultTemplatesMaxSize   = int64(10 * 1024 * 1024)

	// History defaults
	DefaultHistoryBackend            = "sqlite"
	DefaultHistorySQLitePath         = "data/history.db"
	DefaultHistorySQLiteMaxOpenConns = 10
	DefaultHistorySQLiteMaxIdleConns = 5
	DefaultHistorySQLiteBusyTimeout  = 5 * time.Second
	DefaultHistoryRetentionDays      = 30
	DefaultHistoryRetentionSchedule  = "0 3 * * *"

	// Telemetry defaults
	DefaultLoggingLevel         = "info"
	DefaultLoggingFormat        = "text"
	DefaultMetricsListenAddress = "127.0.0.1:9464"
	DefaultMetricsPath          = "/metrics"
	DefaultMetricsNamespace     = "subtitler"
	DefaultMetricsSubsystem     = "selector"
	DefaultTracingServiceName   = "subtitler"
	DefaultTracingSampler       = "always"
	DefaultTracingSampleRatio   = 1.0
)

// DefaultDurationBuckets are histogram buckets in seconds, from a
// single-sentence transcript to a feature-length one.
var DefaultDurationBuckets = []float64{0.001, 0.005, 0.01, 0.05, 0.1, 0.5, 1, 5}

// Default returns a configuration with every default applied.
func Default() *Config {
	cfg := &Config{}
	ApplyDefaults(cfg)
	return cfg
}

// ApplyDefaults applies default values to a Config struct.
// It sets defaults for any fields that have zero values.
// This function is idempotent and safe to call multiple times.
func ApplyDefaults(cfg *Config) {
	// Selector defaults
	if cfg.Selector.EnableCaching == nil {
		enabled := DefaultEnableCaching
		cfg.Selector.EnableCaching = &enabled
	}
	if cfg.Selector.MaxConcurrentEvaluations == 0 {
		cfg.Selector.MaxConcurrentEvaluations = DefaultMaxConcurrentEvaluations
	}
	if cfg.Selector.ConfidenceThreshold == 0 {
		cfg.Selector.ConfidenceThreshold = DefaultConfidenceThreshold
	}
	if cfg.Selector.CompiledCacheSize == 0 {
		cfg.Selector.CompiledCacheSize = DefaultCompiledCacheSize
	}
	if cfg.Selector.VariableCacheSize == 0 {
		cfg.Selector.VariableCacheSize = DefaultVariableCacheSize
	}

	// Template defaults
	if cfg.Templates.Directory == "" {
		cfg.Templates.Directory = DefaultTemplatesDirectory
	}
	if cfg.Templates.Debounce == 0 {
		cfg.Templates.Debounce = DefaultTemplatesDebounce
	}
	if cfg.Templates.MaxFileSize == 0 {
		cfg.Templates.MaxFileSize = DefaultTemplatesMaxSize
	}

	// History defaults
	if cfg.History.Backend == "" {
		cfg.History.Backend = DefaultHistoryBackend
	}
	if cfg.History.SQLite.Path == "" {
		cfg.History.SQLite.Path = DefaultHistorySQLitePath
	}
	if cfg.History.SQLite.MaxOpenConns == 0 {
		cfg.History.SQLite.MaxOpenConns = DefaultHistorySQLiteMaxOpenConns
	}
	if cfg.History.SQLite.MaxIdleConns == 0 {
		cfg.History.SQLite.MaxIdleConns = DefaultHistorySQLiteMaxIdleConns
	}
	if cfg.History.SQLite.WALMode == nil {
		wal := true
		cfg.History.SQLite.WALMode = &wal
	}
	if cfg.History.SQLite.BusyTimeout == 0 {
		cfg.History.SQLite.BusyTimeout = DefaultHistorySQLiteBusyTimeout
	}
	if cfg.History.Retention.Days == 0 {
		cfg.History.Retention.Days = DefaultHistoryRetentionDays
	}
	if cfg.History.Retention.PruneSchedule == "" {
		cfg.History.Retention.PruneSchedule = DefaultHistoryRetentionSchedule
	}

	// Telemetry defaults
	if cfg.Telemetry.Logging.Level == "" {
		cfg.Telemetry.Logging.Level = DefaultLoggingLevel
	}
	if cfg.Telemetry.Logging.Format == "" {
		cfg.Telemetry.Logging.Format = DefaultLoggingFormat
	}
	if cfg.Telemetry.Metrics.ListenAddress == "" {
		cfg.Telemetry.Metrics.ListenAddress = DefaultMetricsListenAddress
	}
	if cfg.Telemetry.Metrics.Path == "" {
		cfg.Telemetry.Metrics.Path = DefaultMetricsPath
	}
	if cfg.Telemetry.Metrics.Namespace == "" {
		cfg.Telemetry.Metrics.Namespace = DefaultMetricsNamespace
	}
	if cfg.Telemetry.Metrics.Subsystem == "" {
		cfg.Telemetry.Metrics.Subsystem = DefaultMetricsSubsystem
	}
	if len(cfg.Telemetry.Metrics.DurationBuckets) == 0 {
		cfg.Telemetry.Metrics.DurationBuckets = append([]float64(nil), DefaultDurationBuckets...)
	}
	if cfg.Telemetry.Tracing.ServiceName == "" {
		cfg.Telemetry.Tracing.ServiceName = DefaultTracingServiceName
	}
	if cfg.Telemetry.Tracing.Sampler == "" {
		cfg.Telemetry.Tracing.Sampler = DefaultTracingSampler
	}
	if cfg.Telemetry.Tracing.SampleRatio == 0 {
		cfg.Telemetry.Tracing.SampleRatio = DefaultTracingSampleRatio
	}
}
