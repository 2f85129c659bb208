package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable override.
const EnvPrefix = "SUBTITLER_"

// LoadConfig loads configuration from a YAML file at the specified path.
// It applies default values, validates the configuration, and returns any errors.
// The configuration is not modified by environment variables; use LoadConfigWithEnvOverrides
// for that functionality.
func LoadConfig(path string) (*Config, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read configuration file %q: %w", path, err)
	}

	cfg, err := Parse(data)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration file %q: %w", path, err)
	}
	return cfg, nil
}

// Parse decodes a YAML configuration, applies defaults and validates it.
func Parse(data []byte) (*Config, error) {
	var cfg Config
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse configuration: %w", err)
	}

	ApplyDefaults(&cfg)

	if err := Validate(&cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return &cfg, nil
}

// LoadConfigWithEnvOverrides loads configuration from a YAML file and applies
// environment variable overrides. Environment variables follow the naming
// convention SUBTITLER_SECTION_FIELD (e.g., SUBTITLER_HISTORY_SQLITE_PATH).
// Environment variables always take precedence over file-based configuration.
// An empty path starts from the defaults.
//
// The loading sequence is:
// 1. Load YAML from file
// 2. Apply default values
// 3. Apply environment variable overrides
// 4. Validate final configuration
func LoadConfigWithEnvOverrides(path string) (*Config, error) {
	var cfg *Config
	if path == "" {
		cfg = Default()
	} else {
		loaded, err := LoadConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	}

	applyEnvOverrides(cfg, os.LookupEnv)

	if err := Validate(cfg); err != nil {
		return nil, fmt.Errorf("configuration validation failed after environment overrides: %w", err)
	}

	return cfg, nil
}

// lookupFunc matches os.LookupEnv.
type lookupFunc func(key string) (string, bool)

// applyEnvOverrides applies environment variable overrides to the configuration.
// Malformed numeric, boolean and duration values are ignored.
func applyEnvOverrides(cfg *Config, lookup lookupFunc) {
	env := func(name string) (string, bool) {
		val, ok := lookup(EnvPrefix + name)
		if !ok || val == "" {
			return "", false
		}
		return strings.TrimSpace(val), true
	}
	setString := func(name string, dst *string) {
		if val, ok := env(name); ok {
			*dst = val
		}
	}
	setInt := func(name string, dst *int) {
		if val, ok := env(name); ok {
			if i, err := strconv.Atoi(val); err == nil {
				*dst = i
			}
		}
	}
	setBool := func(name string, dst *bool) {
		if val, ok := env(name); ok {
			if b, err := strconv.ParseBool(val); err == nil {
				*dst = b
			}
		}
	}
	setFloat := func(name string, dst *float64) {
		if val, ok := env(name); ok {
			if f, err := strconv.ParseFloat(val, 64); err == nil {
				*dst = f
			}
		}
	}
	setDuration := func(name string, dst *time.Duration) {
		if val, ok := env(name); ok {
			if d, err := time.ParseDuration(val); err == nil {
				*dst = d
			}
		}
	}

	// Selector overrides
	if val, ok := env("SELECTOR_ENABLE_CACHING"); ok {
		if b, err := strconv.ParseBool(val); err == nil {
			cfg.Selector.EnableCaching = &b
		}
	}
	setInt("SELECTOR_MAX_CONCURRENT_EVALUATIONS", &cfg.Selector.MaxConcurrentEvaluations)
	setBool("SELECTOR_SKIP_LOW_CONFIDENCE_WORDS", &cfg.Selector.SkipLowConfidenceWords)
	setFloat("SELECTOR_CONFIDENCE_THRESHOLD", &cfg.Selector.ConfidenceThreshold)
	setBool("SELECTOR_ENABLE_PROFILING", &cfg.Selector.EnableProfiling)
	setBool("SELECTOR_COLLECT_DEBUG_INFO", &cfg.Selector.CollectDebugInfo)
	setDuration("SELECTOR_TIMEOUT", &cfg.Selector.Timeout)
	setInt("SELECTOR_COMPILED_CACHE_SIZE", &cfg.Selector.CompiledCacheSize)
	setInt("SELECTOR_VARIABLE_CACHE_SIZE", &cfg.Selector.VariableCacheSize)

	// Template overrides
	setString("TEMPLATES_DIRECTORY", &cfg.Templates.Directory)
	setBool("TEMPLATES_WATCH", &cfg.Templates.Watch)
	setDuration("TEMPLATES_DEBOUNCE", &cfg.Templates.Debounce)

	// History overrides
	setBool("HISTORY_ENABLED", &cfg.History.Enabled)
	setString("HISTORY_BACKEND", &cfg.History.Backend)
	setString("HISTORY_SQLITE_PATH", &cfg.History.SQLite.Path)
	setInt("HISTORY_RETENTION_DAYS", &cfg.History.Retention.Days)
	setString("HISTORY_RETENTION_PRUNE_SCHEDULE", &cfg.History.Retention.PruneSchedule)

	// Telemetry overrides
	setString("TELEMETRY_LOGGING_LEVEL", &cfg.Telemetry.Logging.Level)
	setString("TELEMETRY_LOGGING_FORMAT", &cfg.Telemetry.Logging.Format)
	setBool("TELEMETRY_METRICS_ENABLED", &cfg.Telemetry.Metrics.Enabled)
	setString("TELEMETRY_METRICS_LISTEN_ADDRESS", &cfg.Telemetry.Metrics.ListenAddress)
	setBool("TELEMETRY_TRACING_ENABLED", &cfg.Telemetry.Tracing.Enabled)
	setString("TELEMETRY_TRACING_SAMPLER", &cfg.Telemetry.Tracing.Sampler)
	setFloat("TELEMETRY_TRACING_SAMPLE_RATIO", &cfg.Telemetry.Tracing.SampleRatio)
}
