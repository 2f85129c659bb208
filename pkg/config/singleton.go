package config

import (
	"fmt"
	"sync"
	"sync/atomic"
)

var (
	// current holds the process-wide configuration.
	current atomic.Pointer[Config]

	// initMu serializes Initialize so concurrent first calls load once.
	initMu sync.Mutex
)

// Initialize loads configuration from path with environment overrides and
// installs it as the process-wide configuration. Once a configuration is
// installed, later calls are no-ops; use ReloadConfig to replace it.
func Initialize(path string) error {
	initMu.Lock()
	defer initMu.Unlock()

	if current.Load() != nil {
		return nil
	}

	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return err
	}
	current.Store(cfg)
	return nil
}

// GetConfig returns the process-wide configuration, or nil before
// Initialize succeeds.
//
// Library code takes an explicit *Config; only the CLI reads the global.
func GetConfig() *Config {
	return current.Load()
}

// SetConfig replaces the process-wide configuration. Passing nil resets it,
// which lets tests call Initialize again.
func SetConfig(cfg *Config) {
	current.Store(cfg)
}

// ReloadConfig reloads the configuration from path. The installed
// configuration is replaced only when loading and validation succeed.
func ReloadConfig(path string) error {
	cfg, err := LoadConfigWithEnvOverrides(path)
	if err != nil {
		return fmt.Errorf("failed to reload configuration: %w", err)
	}
	current.Store(cfg)
	return nil
}

// MustGetConfig returns the process-wide configuration and panics when it
// has not been initialized.
func MustGetConfig() *Config {
	cfg := GetConfig()
	if cfg == nil {
		panic("configuration not initialized: call Initialize first")
	}
	return cfg
}
