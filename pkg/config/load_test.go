package config

import (
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	configPath := filepath.Join(t.TempDir(), "config.yaml")
	if err := os.WriteFile(configPath, []byte(content), 0644); err != nil {
		t.Fatalf("failed to write config file: %v", err)
	}
	return configPath
}

func TestLoadConfig_ValidFile(t *testing.T) {
	configPath := writeConfig(t, `
selector:
  enable_caching: false
  max_concurrent_evaluations: 4
  skip_low_confidence_words: true
  confidence_threshold: 0.7
  timeout: "2s"

templates:
  directory: "./my-templates"
  watch: true

history:
  enabled: true
  backend: "memory"
  retention:
    days: 7
    prune_schedule: "*/15 * * * *"

telemetry:
  logging:
    level: "debug"
    format: "json"
  metrics:
    enabled: true
`)

	cfg, err := LoadConfig(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}

	if cfg.Selector.CachingEnabled() {
		t.Error("expected caching to be disabled")
	}
	if cfg.Selector.MaxConcurrentEvaluations != 4 {
		t.Errorf("expected 4 concurrent evaluations, got %d", cfg.Selector.MaxConcurrentEvaluations)
	}
	if !cfg.Selector.SkipLowConfidenceWords || cfg.Selector.ConfidenceThreshold != 0.7 {
		t.Errorf("expected skip below 0.7, got %v/%v", cfg.Selector.SkipLowConfidenceWords, cfg.Selector.ConfidenceThreshold)
	}
	if cfg.Selector.Timeout != 2*time.Second {
		t.Errorf("expected timeout %v, got %v", 2*time.Second, cfg.Selector.Timeout)
	}
	if cfg.Templates.Directory != "./my-templates" || !cfg.Templates.Watch {
		t.Errorf("unexpected templates config: %+v", cfg.Templates)
	}
	if cfg.History.Backend != "memory" || cfg.History.Retention.Days != 7 {
		t.Errorf("unexpected history config: %+v", cfg.History)
	}
	if cfg.Telemetry.Logging.Level != "debug" {
		t.Errorf("expected logging level %q, got %q", "debug", cfg.Telemetry.Logging.Level)
	}

	// Unset fields get defaults
	if cfg.Selector.CompiledCacheSize != DefaultCompiledCacheSize {
		t.Errorf("expected compiled cache size %d, got %d", DefaultCompiledCacheSize, cfg.Selector.CompiledCacheSize)
	}
	if cfg.Telemetry.Metrics.Path != DefaultMetricsPath {
		t.Errorf("expected metrics path %q, got %q", DefaultMetricsPath, cfg.Telemetry.Metrics.Path)
	}
}

func TestLoadConfig_FileNotFound(t *testing.T) {
	_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.yaml"))
	if err == nil {
		t.Fatal("expected error for missing file")
	}
	if !errors.Is(err, os.ErrNotExist) {
		t.Errorf("expected os.ErrNotExist, got %v", err)
	}
}

func TestLoadConfig_InvalidYAML(t *testing.T) {
	configPath := writeConfig(t, "selector: [unclosed")

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected error for invalid YAML")
	}
	if !strings.Contains(err.Error(), "failed to parse configuration") {
		t.Errorf("unexpected error: %v", err)
	}
}

func TestLoadConfig_ValidationFailure(t *testing.T) {
	configPath := writeConfig(t, `
selector:
  confidence_threshold: 1.5
history:
  backend: "postgres"
`)

	_, err := LoadConfig(configPath)
	if err == nil {
		t.Fatal("expected validation error")
	}

	var verr ValidationError
	if !errors.As(err, &verr) {
		t.Fatalf("expected ValidationError, got %T", err)
	}
	if len(verr.Errors) != 2 {
		t.Errorf("expected 2 field errors, got %d: %v", len(verr.Errors), verr.Errors)
	}
}

func TestApplyEnvOverrides(t *testing.T) {
	env := map[string]string{
		"SUBTITLER_SELECTOR_ENABLE_CACHING":             "false",
		"SUBTITLER_SELECTOR_MAX_CONCURRENT_EVALUATIONS": "8",
		"SUBTITLER_SELECTOR_CONFIDENCE_THRESHOLD":       "0.25",
		"SUBTITLER_SELECTOR_TIMEOUT":                    "500ms",
		"SUBTITLER_TEMPLATES_DIRECTORY":                 "/srv/templates",
		"SUBTITLER_HISTORY_SQLITE_PATH":                 "/var/lib/subtitler.db",
		"SUBTITLER_TELEMETRY_LOGGING_LEVEL":             "warn",
		"SUBTITLER_TELEMETRY_METRICS_ENABLED":           "yes", // malformed, ignored
	}
	lookup := func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}

	cfg := Default()
	applyEnvOverrides(cfg, lookup)

	if cfg.Selector.CachingEnabled() {
		t.Error("expected caching disabled by environment")
	}
	if cfg.Selector.MaxConcurrentEvaluations != 8 {
		t.Errorf("expected 8, got %d", cfg.Selector.MaxConcurrentEvaluations)
	}
	if cfg.Selector.ConfidenceThreshold != 0.25 {
		t.Errorf("expected 0.25, got %v", cfg.Selector.ConfidenceThreshold)
	}
	if cfg.Selector.Timeout != 500*time.Millisecond {
		t.Errorf("expected 500ms, got %v", cfg.Selector.Timeout)
	}
	if cfg.Templates.Directory != "/srv/templates" {
		t.Errorf("expected /srv/templates, got %q", cfg.Templates.Directory)
	}
	if cfg.History.SQLite.Path != "/var/lib/subtitler.db" {
		t.Errorf("expected sqlite path override, got %q", cfg.History.SQLite.Path)
	}
	if cfg.Telemetry.Logging.Level != "warn" {
		t.Errorf("expected warn, got %q", cfg.Telemetry.Logging.Level)
	}
	if cfg.Telemetry.Metrics.Enabled {
		t.Error("malformed boolean should be ignored")
	}
}

func TestLoadConfigWithEnvOverrides(t *testing.T) {
	configPath := writeConfig(t, `
telemetry:
  logging:
    level: "info"
`)
	t.Setenv("SUBTITLER_TELEMETRY_LOGGING_LEVEL", "error")

	cfg, err := LoadConfigWithEnvOverrides(configPath)
	if err != nil {
		t.Fatalf("failed to load config: %v", err)
	}
	if cfg.Telemetry.Logging.Level != "error" {
		t.Errorf("expected environment to win, got %q", cfg.Telemetry.Logging.Level)
	}
}

func TestLoadConfigWithEnvOverrides_InvalidOverride(t *testing.T) {
	t.Setenv("SUBTITLER_TELEMETRY_LOGGING_LEVEL", "verbose")

	_, err := LoadConfigWithEnvOverrides("")
	if err == nil {
		t.Fatal("expected validation error after override")
	}
	if !strings.Contains(err.Error(), "after environment overrides") {
		t.Errorf("unexpected error: %v", err)
	}
}
