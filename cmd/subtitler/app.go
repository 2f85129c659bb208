package main

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"

	"mercator-hq/subtitler/pkg/animation/selector"
	"mercator-hq/subtitler/pkg/cli"
	"mercator-hq/subtitler/pkg/config"
	"mercator-hq/subtitler/pkg/history"
	"mercator-hq/subtitler/pkg/stl/ast"
	"mercator-hq/subtitler/pkg/telemetry/logging"
	"mercator-hq/subtitler/pkg/telemetry/metrics"
	"mercator-hq/subtitler/pkg/telemetry/tracing"
	"mercator-hq/subtitler/pkg/transcript"
)

// app holds the components a command runs with.
type app struct {
	cfg      *config.Config
	logger   *slog.Logger
	metrics  *metrics.Collector
	tracer   *tracing.Tracer
	selector *selector.Selector

	// history is nil unless recording is enabled or the command forces it.
	history  history.Store
	recorder *history.Recorder
}

type appOptions struct {
	metrics bool // serve metrics regardless of telemetry.metrics.enabled
	history bool // open the history store regardless of history.enabled
}

// loadConfig installs the process configuration from --config and returns
// a copy the command may adjust.
func loadConfig() (*config.Config, error) {
	if err := config.Initialize(cfgFile); err != nil {
		return nil, cli.NewConfigError("config", fmt.Sprintf("failed to load config: %v", err))
	}
	cfg := *config.MustGetConfig()
	if verbose {
		cfg.Telemetry.Logging.Level = "debug"
	}
	return &cfg, nil
}

func newApp(cmd *cobra.Command, opts appOptions) (*app, error) {
	cfg, err := loadConfig()
	if err != nil {
		return nil, err
	}

	logger, err := logging.New(cfg.Telemetry.Logging, cmd.ErrOrStderr())
	if err != nil {
		return nil, cli.NewConfigError("telemetry.logging", err.Error())
	}
	slog.SetDefault(logger)

	a := &app{cfg: cfg, logger: logger}

	metricsCfg := cfg.Telemetry.Metrics
	if opts.metrics {
		metricsCfg.Enabled = true
	}
	a.metrics = metrics.NewCollector(&metricsCfg, prometheus.NewRegistry())

	a.tracer, err = tracing.New(&cfg.Telemetry.Tracing)
	if err != nil {
		return nil, cli.NewConfigError("telemetry.tracing", err.Error())
	}

	a.selector = selector.New(
		selector.WithLogger(logger),
		selector.WithMetrics(a.metrics),
		selector.WithTracer(a.tracer),
		selector.WithCompiledCacheSize(cfg.Selector.CompiledCacheSize),
		selector.WithVariableStore(selector.NewVariableStore(cfg.Selector.VariableCacheSize)),
	)

	if cfg.History.Enabled || opts.history {
		store, err := history.Open(cfg.History, logger)
		if err != nil {
			a.close()
			return nil, fmt.Errorf("failed to open history: %w", err)
		}
		a.history = store
		if cfg.History.Enabled {
			a.recorder = history.NewRecorder(store, logger)
		}
	}
	return a, nil
}

// close releases the history store and flushes the tracer.
func (a *app) close() {
	if a.history != nil {
		if err := a.history.Close(); err != nil {
			a.logger.Warn("failed to close history", "error", err)
		}
	}
	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := a.tracer.Shutdown(ctx); err != nil {
		a.logger.Warn("failed to shut down tracer", "error", err)
	}
}

// apply runs one application and records it when history is enabled.
func (a *app) apply(ctx context.Context, tpl *ast.Template, audio *transcript.AudioAnalysisData, opts selector.BatchSelectionOptions) *selector.TemplateApplicationResult {
	result := a.selector.ApplyTemplate(ctx, tpl, audio, &opts)
	a.recorder.Record(ctx, result)
	return result
}

// write formats v to w in the requested output format.
func write(w io.Writer, format cli.OutputFormat, v cli.View) error {
	return cli.NewFormatter(format).FormatTo(w, v)
}

// commandContext returns the command's context, Background when the
// command was run without one.
func commandContext(cmd *cobra.Command) context.Context {
	if ctx := cmd.Context(); ctx != nil {
		return ctx
	}
	return context.Background()
}
