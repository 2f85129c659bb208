package history

import (
	"context"
	"fmt"
	"log/slog"

	"mercator-hq/subtitler/pkg/animation/selector"
	"mercator-hq/subtitler/pkg/config"
)

// Open creates the store selected by cfg.Backend.
func Open(cfg config.HistoryConfig, logger *slog.Logger) (Store, error) {
	switch cfg.Backend {
	case "", "sqlite":
		return NewSQLiteStore(cfg.SQLite, logger)
	case "memory":
		return NewMemoryStore(), nil
	default:
		return nil, fmt.Errorf("unknown history backend %q", cfg.Backend)
	}
}

// Recorder saves the record of every result handed to it. Failures are
// logged, never returned, so a broken history store does not fail an
// application.
type Recorder struct {
	store  Store
	logger *slog.Logger
}

// NewRecorder creates a Recorder writing to store.
func NewRecorder(store Store, logger *slog.Logger) *Recorder {
	if logger == nil {
		logger = slog.Default()
	}
	return &Recorder{store: store, logger: logger.With("component", "history.recorder")}
}

// Record saves the summary of result and returns it, or nil when saving
// failed.
func (r *Recorder) Record(ctx context.Context, result *selector.TemplateApplicationResult) *Record {
	if r == nil || result == nil {
		return nil
	}
	rec := NewRecord(result)
	if err := r.store.Save(ctx, rec); err != nil {
		r.logger.WarnContext(ctx, "failed to record application",
			"run_id", result.RunID,
			"error", err,
		)
		return nil
	}
	return rec
}
