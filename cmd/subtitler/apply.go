package main

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/spf13/cobra"

	"mercator-hq/subtitler/pkg/animation/selector"
	"mercator-hq/subtitler/pkg/cli"
	"mercator-hq/subtitler/pkg/config"
	"mercator-hq/subtitler/pkg/stl/ast"
	"mercator-hq/subtitler/pkg/templates"
	"mercator-hq/subtitler/pkg/transcript"
)

var applyFlags struct {
	template          string
	templateID        string
	transcripts       []string
	enable            []string
	disable           []string
	workers           int
	timeout           time.Duration
	skipLowConfidence bool
	threshold         float64
	profile           bool
	debug             bool
	noCache           bool
	format            string
	outDir            string
}

var applyCmd = &cobra.Command{
	Use:   "apply",
	Short: "Apply a template to transcripts",
	Long: `Apply an animation template to one or more transcripts and print the
selected animations.

The template is read from --template, or looked up by --template-id in the
configured templates directory. Options not given on the command line come
from the selector section of the configuration.

Examples:
  # Apply a template and print a table
  subtitler apply --template captions.yaml --transcript clip.json

  # Several transcripts, JSON files written next to each other
  subtitler apply --template-id captions --transcript a.json --transcript b.json --out-dir out/

  # Only some rules, skipping uncertain words
  subtitler apply -t captions.yaml -a clip.json --enable loud,surprised --skip-low-confidence --threshold 0.6`,
	RunE: runApply,
}

func init() {
	rootCmd.AddCommand(applyCmd)

	f := applyCmd.Flags()
	f.StringVarP(&applyFlags.template, "template", "t", "", "template document (.yaml, .yml, .json, .toml)")
	f.StringVar(&applyFlags.templateID, "template-id", "", "template id to load from the templates directory")
	f.StringSliceVarP(&applyFlags.transcripts, "transcript", "a", nil, "transcript JSON file (repeatable)")
	f.StringSliceVar(&applyFlags.enable, "enable", nil, "only evaluate these rule ids")
	f.StringSliceVar(&applyFlags.disable, "disable", nil, "never evaluate these rule ids")
	f.IntVar(&applyFlags.workers, "workers", 0, "words evaluated in parallel")
	f.DurationVar(&applyFlags.timeout, "timeout", 0, "deadline per transcript; partial results are kept")
	f.BoolVar(&applyFlags.skipLowConfidence, "skip-low-confidence", false, "skip words below the confidence threshold")
	f.Float64Var(&applyFlags.threshold, "threshold", 0, "confidence threshold used with --skip-low-confidence")
	f.BoolVar(&applyFlags.profile, "profile", false, "report per-rule timings")
	f.BoolVar(&applyFlags.debug, "debug", false, "include per-word selections and variable values")
	f.BoolVar(&applyFlags.noCache, "no-cache", false, "bypass the compiled template and variable caches")
	f.StringVarP(&applyFlags.format, "format", "o", "text", "output format: text, table, json, csv")
	f.StringVar(&applyFlags.outDir, "out-dir", "", "write one JSON result per transcript into this directory")

	applyCmd.MarkFlagsMutuallyExclusive("template", "template-id")
	applyCmd.MarkFlagsOneRequired("template", "template-id")
	_ = applyCmd.MarkFlagRequired("transcript")
}

func runApply(cmd *cobra.Command, args []string) error {
	format, err := cli.ParseOutputFormat(applyFlags.format)
	if err != nil {
		return err
	}

	a, err := newApp(cmd, appOptions{})
	if err != nil {
		return err
	}
	defer a.close()

	tpl, err := resolveTemplate(a.cfg, applyFlags.template, applyFlags.templateID)
	if err != nil {
		return cli.NewCommandError("apply", err)
	}
	opts := applyOptions(cmd, &a.cfg.Selector)
	if err := opts.Validate(); err != nil {
		return cli.NewConfigError("options", err.Error())
	}

	if applyFlags.outDir != "" {
		if err := os.MkdirAll(applyFlags.outDir, 0o755); err != nil {
			return cli.NewCommandError("apply", err)
		}
	}

	var progress cli.ProgressReporter
	if len(applyFlags.transcripts) > 1 {
		progress = cli.NewProgressReporter(cmd.ErrOrStderr(), "transcripts")
		progress.Start(int64(len(applyFlags.transcripts)))
	}

	ctx := commandContext(cmd)
	failed := 0
	for i, path := range applyFlags.transcripts {
		if err := ctx.Err(); err != nil {
			return err
		}

		result, err := applyFile(ctx, a, tpl, path, opts)
		if err != nil {
			failed++
			a.logger.Error("failed to load transcript", "path", path, "error", err)
		} else {
			if !result.Success {
				failed++
			}
			if err := emit(cmd, format, path, result); err != nil {
				return err
			}
		}
		if progress != nil {
			progress.Update(int64(i + 1))
		}
	}
	if progress != nil {
		progress.Finish()
	}

	if failed > 0 {
		return cli.NewExitError(2, "%d of %d applications failed", failed, len(applyFlags.transcripts))
	}
	return nil
}

func applyFile(ctx context.Context, a *app, tpl *ast.Template, path string, opts selector.BatchSelectionOptions) (*selector.TemplateApplicationResult, error) {
	audio, err := transcript.Load(path)
	if err != nil {
		return nil, err
	}
	return a.apply(ctx, tpl, audio, opts), nil
}

func emit(cmd *cobra.Command, format cli.OutputFormat, path string, result *selector.TemplateApplicationResult) error {
	if applyFlags.outDir == "" {
		return write(cmd.OutOrStdout(), format, cli.ResultView(result))
	}

	name := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path)) + ".animations.json"
	data, err := json.MarshalIndent(result, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode result for %s: %w", path, err)
	}
	if err := os.WriteFile(filepath.Join(applyFlags.outDir, name), append(data, '\n'), 0o644); err != nil {
		return fmt.Errorf("failed to write result for %s: %w", path, err)
	}
	return nil
}

// applyOptions starts from the configured selector defaults and applies the
// flags the user set.
func applyOptions(cmd *cobra.Command, cfg *config.SelectorConfig) selector.BatchSelectionOptions {
	opts := selector.OptionsFromConfig(cfg)
	flags := cmd.Flags()

	if flags.Changed("workers") {
		opts.MaxConcurrentEvaluations = applyFlags.workers
	}
	if flags.Changed("timeout") {
		opts.Timeout = applyFlags.timeout
	}
	if flags.Changed("skip-low-confidence") {
		opts.SkipLowConfidenceWords = applyFlags.skipLowConfidence
	}
	if flags.Changed("threshold") {
		opts.ConfidenceThreshold = applyFlags.threshold
	}
	if applyFlags.profile {
		opts.EnableProfiling = true
	}
	if applyFlags.debug {
		opts.CollectDebugInfo = true
	}
	if applyFlags.noCache {
		opts.EnableCaching = false
	}
	opts.EnabledRuleIDs = applyFlags.enable
	opts.DisabledRuleIDs = applyFlags.disable
	return opts
}

// resolveTemplate loads the template named by a file path or by id from the
// configured templates directory.
func resolveTemplate(cfg *config.Config, path, id string) (*ast.Template, error) {
	loader := templates.NewLoader(cfg.Templates.MaxFileSize)
	if path != "" {
		return loader.LoadFile(path)
	}

	tpls, err := loader.LoadDir(cfg.Templates.Directory)
	for _, tpl := range tpls {
		if tpl.ID == id {
			return tpl, nil
		}
	}
	if err != nil {
		return nil, fmt.Errorf("template %q not found in %s: %w", id, cfg.Templates.Directory, err)
	}
	return nil, fmt.Errorf("template %q not found in %s", id, cfg.Templates.Directory)
}
