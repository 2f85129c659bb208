// Package history keeps a summary of every template application.
//
// A Record holds the counters of one run (words, rules, animations, issues
// and timing) keyed by a random ID. Records live in a Store: SQLiteStore for
// persistent history, MemoryStore for tests and throwaway runs. Open picks
// the backend from the configuration.
//
// Old records are removed by a Pruner, either on demand or on a cron
// schedule through a RetentionScheduler:
//
//	store, err := history.Open(cfg.History, logger)
//	if err != nil {
//		return err
//	}
//	defer store.Close()
//
//	pruner := history.NewPruner(store, cfg.History.Retention.Days, logger)
//	scheduler := history.NewRetentionScheduler(pruner, cfg.History.Retention.PruneSchedule, logger)
//	if err := scheduler.Start(ctx); err != nil {
//		return err
//	}
package history
