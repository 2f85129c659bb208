// Package logging builds the structured loggers used across Subtitler.
//
// Loggers are plain *slog.Logger values configured from
// config.LoggingConfig. Records logged with a context pick up the run ID,
// template ID and the active OpenTelemetry span automatically:
//
//	logger, err := logging.New(cfg.Telemetry.Logging, os.Stderr)
//	ctx = logging.WithRunID(ctx, runID)
//	logger.InfoContext(ctx, "template applied", "words", 120)
package logging
