package selector

import (
	"context"
	"errors"
	"fmt"
	"maps"
	"time"

	"mercator-hq/subtitler/pkg/animation/compiler"
	"mercator-hq/subtitler/pkg/animation/eval"
	"mercator-hq/subtitler/pkg/animation/rules"
	"mercator-hq/subtitler/pkg/stl/ast"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
	"mercator-hq/subtitler/pkg/transcript"
)

// applyRun carries the state of one ApplyTemplate call.
type applyRun struct {
	selector *Selector
	opts     *BatchSelectionOptions
	result   *TemplateApplicationResult

	// rules holds this run's per-rule counters, folded into the selector
	// statistics when the run finishes.
	rules     map[string]*RuleStats
	matched   int
	conflicts int
}

// wordRef addresses one evaluated word.
type wordRef struct {
	segment int
	word    int
	index   int // Global index in document order
}

func (r *applyRun) execute(ctx context.Context, tpl *ast.Template, audio *transcript.AudioAnalysisData) {
	s := r.selector
	result := r.result

	if err := r.opts.Validate(); err != nil {
		result.Phase = PhaseFailed
		result.addError(Issue{Kind: IssueOptions, Message: err.Error()})
		return
	}
	if r.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, r.opts.Timeout)
		defer cancel()
	}

	result.Phase = PhaseCompiling
	compiled, hit, err := s.compile(ctx, tpl, r.opts.EnableCaching)
	if err != nil {
		result.Phase = PhaseFailed
		result.addError(Issue{Kind: IssueInternal, Message: err.Error()})
		return
	}
	result.Performance.CompileCacheHit = hit
	for _, w := range compiled.Warnings {
		result.addWarning(templateIssue(IssueTemplate, w))
	}
	if !compiled.Valid() {
		result.Phase = PhaseValidationFailed
		for _, e := range compiled.ValidationErrors {
			result.addError(templateIssue(IssueValidation, e))
		}
		s.logger.WarnContext(ctx, "template failed validation", "errors", len(compiled.ValidationErrors))
		return
	}

	if err := audio.Validate(); err != nil {
		result.Phase = PhaseFailed
		result.addError(Issue{Kind: IssueTranscript, Message: err.Error()})
		return
	}

	t := eval.NewTranscript(audio)
	variables := r.computeVariables(ctx, compiled, t)
	result.Phase = PhaseVariablesComputed
	if r.opts.CollectDebugInfo {
		result.Variables = maps.Clone(variables)
	}

	active := r.activeRules(compiled)

	result.Phase = PhaseEvaluatingWords
	r.evaluateWords(ctx, compiled, t, variables, active)
	result.Phase = PhaseCompleted
}

// computeVariables evaluates the template variables in dependency order. A
// failing variable becomes null and a warning.
func (r *applyRun) computeVariables(ctx context.Context, compiled *compiler.CompiledTemplate, t *eval.Transcript) map[string]eval.Value {
	s := r.selector
	perf := &r.result.Performance

	_, span := s.tracer.Start(ctx, "selector.variables")
	defer span.End()

	values := make(map[string]eval.Value, len(compiled.Variables))
	vctx := eval.NewVariableContext(t, values)

	for _, v := range compiled.Variables {
		compute := func() (eval.Value, error) {
			return s.evaluator.Evaluate(v.Expression, vctx)
		}

		var (
			value eval.Value
			hit   bool
			err   error
		)
		if v.Cached && r.opts.EnableCaching && compiled.TemplateID != "" {
			key := VariableKey{TemplateID: compiled.TemplateID, Name: v.Name, Fingerprint: t.Fingerprint}
			value, hit, err = s.variables.GetOrCompute(key, compute)
			if hit {
				s.metrics.RecordCacheHit(variableCacheName)
			} else {
				s.metrics.RecordCacheMiss(variableCacheName)
			}
		} else {
			value, err = compute()
		}

		if hit {
			perf.VariablesFromCache++
		} else {
			perf.VariablesComputed++
		}
		if err != nil {
			value = eval.Null()
			issue := Issue{Kind: IssueVariable, Variable: v.Name, Message: err.Error()}
			if v.Location.IsValid() {
				issue.Location = v.Location.String()
			}
			r.result.addWarning(issue)
			s.logger.WarnContext(ctx, "variable evaluation failed", "variable", v.Name, "error", err)
		}
		values[v.Name] = value
	}
	return values
}

// activeRules applies the declared enabled flags and the enabled/disabled
// id filters. A rule listed in EnabledRuleIDs runs even when declared
// disabled; DisabledRuleIDs always wins.
func (r *applyRun) activeRules(compiled *compiler.CompiledTemplate) []*compiler.CompiledRule {
	enabled := r.ruleSet(compiled, r.opts.EnabledRuleIDs, "enabled")
	disabled := r.ruleSet(compiled, r.opts.DisabledRuleIDs, "disabled")

	active := make([]*compiler.CompiledRule, 0, len(compiled.Rules))
	for _, rule := range compiled.Rules {
		on := rule.Enabled
		if len(r.opts.EnabledRuleIDs) > 0 {
			on = enabled[rule.ID]
		}
		if on && !disabled[rule.ID] {
			active = append(active, rule)
		}
	}
	return active
}

// ruleSet turns ids into a set, warning about ids the template does not
// declare.
func (r *applyRun) ruleSet(compiled *compiler.CompiledTemplate, ids []string, list string) map[string]bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		if !compiled.HasRule(id) {
			r.result.addWarning(Issue{
				Kind:    IssueUnknownRule,
				RuleID:  id,
				Message: fmt.Sprintf("%s rule %q is not declared by the template", list, id),
			})
			continue
		}
		set[id] = true
	}
	return set
}

// evaluateWords runs the rule engine over every eligible word and collects
// the outcomes in document order.
func (r *applyRun) evaluateWords(ctx context.Context, compiled *compiler.CompiledTemplate, t *eval.Transcript, variables map[string]eval.Value, active []*compiler.CompiledRule) {
	s := r.selector
	perf := &r.result.Performance

	ctx, span := s.tracer.Start(ctx, "selector.evaluate")
	defer span.End()

	var refs []wordRef
	index := 0
	for si := range t.Data.Segments {
		words := t.Data.Segments[si].Words
		for wi := range words {
			if r.opts.SkipLowConfidenceWords && words[wi].Confidence < r.opts.ConfidenceThreshold {
				perf.WordsSkipped++
			} else {
				refs = append(refs, wordRef{segment: si, word: wi, index: index})
			}
			index++
		}
	}

	engine := rules.NewEngine(s.evaluator, rules.Options{Profile: r.opts.EnableProfiling})
	outcomes := make([]*rules.Result, len(refs))
	evaluate := func(i int) {
		ref := refs[i]
		wctx := t.WordContext(ref.segment, ref.word, ref.index, variables)
		outcomes[i] = engine.Evaluate(active, wctx)
	}

	if r.opts.MaxConcurrentEvaluations > 1 && len(refs) > 1 {
		parallel(ctx, len(refs), r.opts.MaxConcurrentEvaluations, evaluate)
	} else {
		for i := range refs {
			if ctx.Err() != nil {
				break
			}
			evaluate(i)
		}
	}

	timings := make(map[string]*RuleTiming)
	for i, ref := range refs {
		if outcomes[i] == nil {
			continue
		}
		r.collect(t, ref, active, outcomes[i], timings)
	}

	if evaluated := perf.WordsProcessed; evaluated < len(refs) {
		r.result.Partial = true
		r.result.addWarning(Issue{
			Kind:    IssueDeadline,
			Message: fmt.Sprintf("stopped after %d of %d words: %v", evaluated, len(refs), context.Cause(ctx)),
		})
		s.logger.WarnContext(ctx, "word evaluation stopped early",
			"evaluated", evaluated,
			"words", len(refs),
			"error", context.Cause(ctx),
		)
	}

	if r.opts.EnableProfiling {
		for _, rule := range active {
			tm, ok := timings[rule.ID]
			if !ok {
				continue
			}
			if tm.Evaluations > 0 {
				tm.Mean = tm.Total / time.Duration(tm.Evaluations)
			}
			perf.RuleTimings = append(perf.RuleTimings, *tm)
		}
	}
}

// collect folds the outcome of one word into the result and the run's
// per-rule counters.
func (r *applyRun) collect(t *eval.Transcript, ref wordRef, active []*compiler.CompiledRule, out *rules.Result, timings map[string]*RuleTiming) {
	s := r.selector
	result := r.result
	perf := &result.Performance
	wordID := t.Data.WordID(ref.segment, ref.word)

	perf.WordsProcessed++
	perf.RulesEvaluated += out.Stats.Evaluations
	r.matched += len(out.Matched)
	r.conflicts += len(out.Conflicts)

	failed := make(map[string]bool, len(out.Errors))
	for _, err := range out.Errors {
		issue := Issue{Kind: IssueRule, RuleID: err.RuleID, WordID: wordID, Message: err.Error()}
		var evalErr *eval.EvaluationError
		if errors.As(err, &evalErr) && evalErr.Location.IsValid() {
			issue.Location = evalErr.Location.String()
		}
		result.addWarning(issue)
		r.ruleStats(err.RuleID).Errors++
		s.metrics.RecordRuleError(err.RuleID, err.Phase)
		if err.Phase == rules.PhaseCondition {
			failed[err.RuleID] = true
		}
	}

	matched := make(map[string]bool, len(out.Matched))
	for _, id := range out.Matched {
		matched[id] = true
	}
	for _, rule := range active {
		st := r.ruleStats(rule.ID)
		st.Evaluations++
		switch {
		case matched[rule.ID]:
			st.Matches++
			s.metrics.RecordRuleOutcome(rule.ID, true)
		case !failed[rule.ID]:
			s.metrics.RecordRuleOutcome(rule.ID, false)
		}
	}

	animations := make([]AppliedAnimation, 0, len(out.Selected))
	for _, sel := range out.Selected {
		spec := sel.Rule.Animation()
		anim := AppliedAnimation{
			PluginName: spec.PluginName,
			Params:     cloneParams(spec.Params),
			Timing:     timingOf(spec.Timing),
			Intensity:  sel.Intensity,
			RuleID:     sel.Rule.ID,
		}
		animations = append(animations, anim)
		result.AppliedRules = append(result.AppliedRules, AppliedRule{
			RuleID:        sel.Rule.ID,
			WordID:        wordID,
			SegmentIndex:  ref.segment,
			WordIndex:     ref.index,
			Animation:     anim,
			MatchStrength: sel.MatchStrength,
		})
		r.ruleStats(sel.Rule.ID).Selected++
	}
	perf.AnimationsApplied += len(out.Selected)

	for _, c := range out.Conflicts {
		s.metrics.RecordConflict(c.Group)
		for _, id := range c.ConflictingRules {
			if id != c.Winner {
				r.ruleStats(id).Conflicts++
			}
		}
	}

	for _, tm := range out.Timings {
		r.ruleStats(tm.RuleID).TotalTime += tm.Duration
		agg, ok := timings[tm.RuleID]
		if !ok {
			agg = &RuleTiming{RuleID: tm.RuleID}
			timings[tm.RuleID] = agg
		}
		agg.Evaluations++
		if tm.Matched {
			agg.Matches++
		}
		agg.Total += tm.Duration
	}

	if r.opts.CollectDebugInfo {
		result.Selections = append(result.Selections, AnimationSelection{
			WordID:       wordID,
			SegmentIndex: ref.segment,
			WordIndex:    ref.index,
			Animations:   animations,
			MatchedRules: out.Matched,
			Conflicts:    out.Conflicts,
			Duration:     out.Duration,
		})
	}
}

func (r *applyRun) ruleStats(id string) *RuleStats {
	st, ok := r.rules[id]
	if !ok {
		st = &RuleStats{}
		r.rules[id] = st
	}
	return st
}

// templateIssue converts a compiler diagnostic.
func templateIssue(kind IssueKind, e *stlErrors.Error) Issue {
	issue := Issue{Kind: kind, Message: e.Message, RuleID: e.RuleID}
	if e.Location.IsValid() {
		issue.Location = e.Location.String()
	}
	return issue
}
