// Package health serves the liveness and readiness probes of the watch
// command.
//
// Components register a CheckFunc with a Checker; Mount exposes the checker
// over HTTP:
//
//	checker := health.New(2 * time.Second)
//	checker.Register("templates", func(ctx context.Context) error {
//		if manager.Registry().Len() == 0 {
//			return errors.New("no templates loaded")
//		}
//		return nil
//	})
//	health.Mount(mux, checker, health.NewVersionInfo(version, commit, date))
//
// /healthz always answers 200 while the process runs. /readyz runs every
// check concurrently, each bounded by the checker timeout, and answers 503
// when any of them fails.
package health
