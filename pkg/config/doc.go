// Package config provides configuration management for Subtitler.
//
// This package handles loading, validating, and managing configuration from
// YAML files with environment variable overrides.
//
// # Configuration Loading
//
// Configuration can be loaded in two ways:
//
//  1. From a YAML file only:
//     cfg, err := config.LoadConfig("subtitler.yaml")
//
//  2. From a YAML file with environment variable overrides:
//     cfg, err := config.LoadConfigWithEnvOverrides("subtitler.yaml")
//
// # Environment Variable Overrides
//
// Environment variables follow the naming convention SUBTITLER_SECTION_FIELD.
// For example:
//
//   - SUBTITLER_SELECTOR_CONFIDENCE_THRESHOLD overrides selector.confidence_threshold
//   - SUBTITLER_HISTORY_SQLITE_PATH overrides history.sqlite.path
//   - SUBTITLER_TELEMETRY_LOGGING_LEVEL overrides telemetry.logging.level
//
// # Configuration Precedence
//
//  1. Default values (defined in defaults.go)
//  2. Values from YAML file
//  3. Environment variable overrides
//  4. Validation (fails fast if invalid)
//
// # Singleton Pattern
//
// The CLI initializes a process-wide configuration once:
//
//	if err := config.Initialize("subtitler.yaml"); err != nil {
//		log.Fatal(err)
//	}
//	cfg := config.GetConfig()
package config
