package selector

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"runtime/debug"
	"time"

	"github.com/google/uuid"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/trace"

	"mercator-hq/subtitler/pkg/animation/compiler"
	"mercator-hq/subtitler/pkg/animation/eval"
	"mercator-hq/subtitler/pkg/stl/ast"
	"mercator-hq/subtitler/pkg/telemetry/logging"
	"mercator-hq/subtitler/pkg/telemetry/metrics"
	"mercator-hq/subtitler/pkg/telemetry/tracing"
	"mercator-hq/subtitler/pkg/transcript"
)

// Cache names used in metrics.
const (
	compiledCacheName = "compiled"
	variableCacheName = "variables"
)

// anonymousTemplate labels metrics of templates without an ID.
const anonymousTemplate = "anonymous"

// Selector applies templates to transcripts. It owns a compiled template
// cache, a variable store and the cumulative statistics. A Selector is safe
// for concurrent use.
type Selector struct {
	compiler         *compiler.Compiler
	compiledCapacity int
	compiled         *compiler.Cache
	variables        *VariableStore
	evaluator        *eval.Evaluator

	logger  *slog.Logger
	metrics *metrics.Collector
	tracer  *tracing.Tracer

	stats *statsRecorder
}

// New creates a Selector.
func New(opts ...Option) *Selector {
	s := &Selector{
		compiledCapacity: compiler.DefaultCacheCapacity,
		evaluator:        eval.NewEvaluator(),
		logger:           slog.Default(),
		stats:            newStatsRecorder(),
	}
	for _, opt := range opts {
		opt(s)
	}

	if s.compiler == nil {
		s.compiler = compiler.NewCompiler(s.logger)
	}
	if s.variables == nil {
		s.variables = NewVariableStore(DefaultVariableCacheSize)
	}
	s.compiled = compiler.NewCache(s.compiledCapacity, s.compiler)
	s.logger = s.logger.With("component", "selector")
	return s
}

// ApplyTemplate selects animations for every word of audio.
//
// It never panics and never returns a nil result. Template validation
// errors, a malformed transcript or invalid options give a result with
// Success false and no applied rules. A rule or variable failing for some
// word is reported as a warning and does not stop the run.
func (s *Selector) ApplyTemplate(ctx context.Context, tpl *ast.Template, audio *transcript.AudioAnalysisData, opts *BatchSelectionOptions) (result *TemplateApplicationResult) {
	start := time.Now()
	if ctx == nil {
		ctx = context.Background()
	}
	o := DefaultOptions()
	if opts != nil {
		o = *opts
	}
	o.ApplyDefaults()

	result = &TemplateApplicationResult{
		RunID:        uuid.NewString(),
		Phase:        PhaseNotStarted,
		AppliedRules: []AppliedRule{},
		Errors:       []Issue{},
		Warnings:     []Issue{},
		StartedAt:    start,
	}
	if tpl != nil {
		result.TemplateID = tpl.ID
		result.TemplateVersion = tpl.Version
	}
	if audio != nil {
		result.TranscriptID = audio.ID
	}

	ctx = logging.WithRunID(ctx, result.RunID)
	ctx = logging.WithTemplateID(ctx, result.TemplateID)
	ctx, span := s.tracer.Start(ctx, "selector.apply")
	tracing.SetTemplateAttributes(span, result.RunID, result.TemplateID, result.TemplateVersion, result.TranscriptID)

	run := &applyRun{
		selector: s,
		opts:     &o,
		result:   result,
		rules:    make(map[string]*RuleStats),
	}

	defer func() {
		if r := recover(); r != nil {
			result.Phase = PhaseFailed
			result.AppliedRules = []AppliedRule{}
			result.addError(Issue{Kind: IssueInternal, Message: fmt.Sprintf("unexpected failure: %v", r)})
			s.logger.ErrorContext(ctx, "template application panicked",
				"panic", r,
				"stack", string(debug.Stack()),
			)
		}
		result.Success = len(result.Errors) == 0
		result.Performance.ProcessingTime = time.Since(start)
		s.finish(ctx, span, run)
	}()

	run.execute(ctx, tpl, audio)
	return result
}

// ValidateTemplate compiles tpl without caching it and reports its
// validation errors, warnings and complexity.
func (s *Selector) ValidateTemplate(tpl *ast.Template) *compiler.ValidationReport {
	return s.compiler.Validate(tpl)
}

// ClearCaches drops every compiled template and cached variable. The
// cumulative statistics are kept; use ResetStats to clear them.
func (s *Selector) ClearCaches() {
	s.compiled.Clear()
	s.variables.Clear()
	s.publishCacheStats()
	s.logger.Debug("selector caches cleared")
}

// Invalidate drops the compiled form and the cached variables of one
// template, typically after its source changed.
func (s *Selector) Invalidate(templateID string) {
	compiled := s.compiled.Invalidate(templateID)
	variables := s.variables.InvalidateTemplate(templateID)
	s.publishCacheStats()
	s.logger.Debug("template invalidated",
		"template_id", templateID,
		"compiled", compiled,
		"variables", variables,
	)
}

// Stats returns a snapshot of the cumulative statistics and cache counters.
func (s *Selector) Stats() StatsSnapshot {
	snap := s.stats.snapshot()
	snap.CompiledCache = s.compiled.Stats()
	snap.VariableCache = s.variables.Stats()
	return snap
}

// ResetStats clears the cumulative statistics. Caches are not touched.
func (s *Selector) ResetStats() {
	s.stats.reset()
}

// compile returns the compiled template, from the cache when caching is on.
func (s *Selector) compile(ctx context.Context, tpl *ast.Template, caching bool) (*compiler.CompiledTemplate, bool, error) {
	_, span := s.tracer.Start(ctx, "selector.compile")
	defer span.End()

	if !caching || tpl == nil || tpl.ID == "" {
		return s.compiler.Compile(tpl), false, nil
	}

	compiled, hit, err := s.compiled.Get(tpl)
	if err != nil {
		tracing.SetError(span, err)
		return nil, false, err
	}
	if hit {
		s.metrics.RecordCacheHit(compiledCacheName)
	} else {
		s.metrics.RecordCacheMiss(compiledCacheName)
	}
	span.SetAttributes(attribute.Bool(tracing.AttrCacheHit, hit))
	return compiled, hit, nil
}

func (s *Selector) publishCacheStats() {
	cs := s.compiled.Stats()
	s.metrics.UpdateCacheStats(compiledCacheName, cs.Size, int64(cs.Evictions))
	vs := s.variables.Stats()
	s.metrics.UpdateCacheStats(variableCacheName, vs.Size, int64(vs.Evictions))
}

// finish records the outcome of a run in the statistics, metrics, span and
// log.
func (s *Selector) finish(ctx context.Context, span trace.Span, run *applyRun) {
	result := run.result
	perf := result.Performance

	s.stats.record(result, run.rules)

	label := result.TemplateID
	if label == "" {
		label = anonymousTemplate
	}
	s.metrics.RecordApplication(label, result.Status(), perf.ProcessingTime, perf.WordsProcessed, perf.WordsSkipped, perf.AnimationsApplied)
	s.publishCacheStats()

	tracing.SetWordAttributes(span, perf.WordsProcessed+perf.WordsSkipped, perf.WordsProcessed, perf.WordsSkipped)
	tracing.SetSelectionAttributes(span, perf.RulesEvaluated, run.matched, perf.AnimationsApplied, run.conflicts)
	span.SetAttributes(
		attribute.String(tracing.AttrPhase, string(result.Phase)),
		attribute.Bool(tracing.AttrPartial, result.Partial),
	)
	if result.Success {
		tracing.SetStatus(span, nil)
	} else {
		tracing.SetError(span, errors.New(result.Errors[0].Message))
	}
	span.End()

	level := slog.LevelInfo
	if !result.Success {
		level = slog.LevelWarn
	}
	s.logger.Log(ctx, level, "template applied",
		"phase", result.Phase,
		"success", result.Success,
		"partial", result.Partial,
		"words", perf.WordsProcessed,
		"skipped", perf.WordsSkipped,
		"rules_evaluated", perf.RulesEvaluated,
		"animations", perf.AnimationsApplied,
		"errors", len(result.Errors),
		"warnings", len(result.Warnings),
		"compile_cache_hit", perf.CompileCacheHit,
		"duration", perf.ProcessingTime,
	)
}
