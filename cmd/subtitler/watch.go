package main

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/subtitler/pkg/animation/selector"
	"mercator-hq/subtitler/pkg/cli"
	"mercator-hq/subtitler/pkg/history"
	"mercator-hq/subtitler/pkg/telemetry/health"
	"mercator-hq/subtitler/pkg/templates"
	"mercator-hq/subtitler/pkg/transcript"
)

var watchFlags struct {
	dir         string
	transcripts []string
	metricsAddr string
	format      string
}

var watchCmd = &cobra.Command{
	Use:   "watch",
	Short: "Re-apply templates whenever they change",
	Long: `Load every template of a directory, apply them to the given transcripts,
then watch the directory and re-apply the templates that changed.

An edit that breaks a template keeps its last valid version in service and
logs the validation errors. Metrics and health probes are served on
--metrics-addr: the Prometheus endpoint on the configured metrics path,
/healthz, /readyz and /version. When history is enabled with a prune schedule, old
records are pruned in the background.

Examples:
  subtitler watch --dir templates/ --transcript clip.json
  subtitler watch --dir templates/ --transcript a.json --transcript b.json --metrics-addr :9464`,
	RunE: runWatch,
}

func init() {
	rootCmd.AddCommand(watchCmd)

	watchCmd.Flags().StringVarP(&watchFlags.dir, "dir", "d", "", "templates directory (default from config)")
	watchCmd.Flags().StringSliceVarP(&watchFlags.transcripts, "transcript", "a", nil, "transcript JSON file (repeatable)")
	watchCmd.Flags().StringVar(&watchFlags.metricsAddr, "metrics-addr", "", "metrics and health listen address (default from config)")
	watchCmd.Flags().StringVarP(&watchFlags.format, "format", "o", "text", "output format: text, table, json")
	_ = watchCmd.MarkFlagRequired("transcript")
}

func runWatch(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(watchFlags.format)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, appOptions{metrics: true})
	if err != nil {
		return err
	}
	defer a.close()

	dir := watchFlags.dir
	if dir == "" {
		dir = a.cfg.Templates.Directory
	}
	addr := watchFlags.metricsAddr
	if addr == "" {
		addr = a.cfg.Telemetry.Metrics.ListenAddress
	}

	audios := make([]*transcript.AudioAnalysisData, 0, len(watchFlags.transcripts))
	for _, path := range watchFlags.transcripts {
		audio, err := transcript.Load(path)
		if err != nil {
			return cli.NewCommandError("watch", err)
		}
		audios = append(audios, audio)
	}

	ctx, cancel := context.WithCancel(commandContext(cmd))
	defer cancel()

	manager := templates.NewManager(
		templates.NewDirSource(dir, templates.NewLoader(a.cfg.Templates.MaxFileSize)),
		templates.WithInvalidator(a.selector),
		templates.WithMetrics(a.metrics),
		templates.WithLogger(a.logger),
	)
	if _, err := manager.Reload(ctx); err != nil && manager.Registry().Len() == 0 {
		return cli.NewCommandError("watch", err)
	}

	opts := selector.OptionsFromConfig(&a.cfg.Selector)
	applyAll := func(ids []string) {
		for _, id := range ids {
			tpl, ok := manager.Get(id)
			if !ok {
				continue
			}
			for _, audio := range audios {
				result := a.apply(ctx, tpl, audio, opts)
				if err := write(cmd.OutOrStdout(), format, cli.ResultView(result)); err != nil {
					a.logger.Error("failed to write result", "error", err)
				}
			}
		}
	}
	applyAll(manager.Registry().IDs())

	server, err := startServer(ctx, a, manager, addr)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer shutdownServer(a, server)

	if a.history != nil {
		pruner := history.NewPruner(a.history, a.cfg.History.Retention.Days, a.logger)
		scheduler := history.NewRetentionScheduler(pruner, a.cfg.History.Retention.PruneSchedule, a.logger)
		if err := scheduler.Start(ctx); err != nil {
			return cli.NewConfigError("history.retention.prune_schedule", err.Error())
		}
		defer scheduler.Stop()
	}

	watcher, err := templates.NewWatcher(dir, a.cfg.Templates.Debounce, a.logger)
	if err != nil {
		return cli.NewCommandError("watch", err)
	}
	defer watcher.Close()

	a.logger.Info("watch mode started",
		"dir", dir,
		"templates", manager.Registry().Len(),
		"transcripts", len(audios),
		"listen", server.Addr,
	)

	err = manager.Watch(ctx, watcher, func(summary *templates.ReloadSummary) {
		applyAll(summary.Changed)
	})
	if err != nil && !errors.Is(err, context.Canceled) {
		return cli.NewCommandError("watch", err)
	}
	return nil
}

// startServer serves metrics and health probes on addr until ctx is done.
func startServer(ctx context.Context, a *app, manager *templates.Manager, addr string) (*http.Server, error) {
	checker := health.New(2 * time.Second)
	checker.Register("templates", func(context.Context) error {
		if manager.Registry().Len() == 0 {
			return errors.New("no templates loaded")
		}
		return nil
	})
	if a.history != nil {
		checker.Register("history", func(ctx context.Context) error {
			_, err := a.history.Count(ctx, &history.Query{Limit: 1})
			return err
		})
	}

	mux := http.NewServeMux()
	mux.Handle(a.cfg.Telemetry.Metrics.Path, a.metrics.Handler())
	health.Mount(mux, checker, health.NewVersionInfo(Version, GitCommit, BuildDate))

	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return nil, fmt.Errorf("failed to listen on %s: %w", addr, err)
	}

	server := &http.Server{
		Addr:              listener.Addr().String(),
		Handler:           mux,
		ReadHeaderTimeout: 5 * time.Second,
		BaseContext:       func(net.Listener) context.Context { return ctx },
	}
	go func() {
		if err := server.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.logger.Error("metrics server stopped", "error", err)
		}
	}()
	return server, nil
}

func shutdownServer(a *app, server *http.Server) {
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := server.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to shut down metrics server", "error", err)
	}
}
