package rules

import (
	"fmt"
	"math"
	"time"

	"mercator-hq/subtitler/pkg/animation/compiler"
	"mercator-hq/subtitler/pkg/animation/eval"
)

// Options configures an Engine.
type Options struct {
	// Profile records per-rule timings in Result.Timings.
	Profile bool
}

// Engine matches compiled rules against one word context and resolves
// conflicts between matching rules. It holds no per-word state and is safe
// for concurrent use.
type Engine struct {
	evaluator *eval.Evaluator
	opts      Options
}

// NewEngine creates an engine evaluating expressions with evaluator.
// A nil evaluator gets a fresh one.
func NewEngine(evaluator *eval.Evaluator, opts Options) *Engine {
	if evaluator == nil {
		evaluator = eval.NewEvaluator()
	}
	return &Engine{evaluator: evaluator, opts: opts}
}

// Evaluator returns the expression evaluator used by the engine.
func (e *Engine) Evaluator() *eval.Evaluator {
	return e.evaluator
}

// Evaluate evaluates every rule condition against ctx and selects one
// winner per conflict group. A failing condition only makes its own rule
// non-matching and is reported in Result.Errors.
func (e *Engine) Evaluate(rules []*compiler.CompiledRule, ctx *eval.Context) *Result {
	start := time.Now()
	result := &Result{}

	groups := make(map[string][]*compiler.CompiledRule)
	var groupOrder []string

	for _, rule := range rules {
		ruleStart := time.Now()
		matched, err := e.match(rule, ctx)
		result.Stats.Evaluations++

		if e.opts.Profile {
			result.Timings = append(result.Timings, RuleTiming{
				RuleID:   rule.ID,
				Duration: time.Since(ruleStart),
				Matched:  matched,
			})
		}
		if err != nil {
			result.Errors = append(result.Errors, &RuleError{RuleID: rule.ID, Phase: PhaseCondition, Cause: err})
			result.Stats.Errors++
			continue
		}
		if !matched {
			continue
		}

		result.Stats.Matches++
		result.Matched = append(result.Matched, rule.ID)
		if _, seen := groups[rule.Group]; !seen {
			groupOrder = append(groupOrder, rule.Group)
		}
		groups[rule.Group] = append(groups[rule.Group], rule)
	}

	winners := make([]*compiler.CompiledRule, 0, len(groupOrder))
	for _, group := range groupOrder {
		matched := groups[group]
		SortByRank(matched)
		winners = append(winners, matched[0])

		if len(matched) > 1 {
			ids := make([]string, len(matched))
			for i, r := range matched {
				ids[i] = r.ID
			}
			result.Conflicts = append(result.Conflicts, Conflict{
				Group:            group,
				Winner:           matched[0].ID,
				ConflictingRules: ids,
				Reason:           reason(matched[0], matched[1]),
			})
		}
	}
	SortByRank(winners)

	for _, rule := range winners {
		intensity, err := e.intensity(rule, ctx)
		if err != nil {
			result.Errors = append(result.Errors, &RuleError{RuleID: rule.ID, Phase: PhaseIntensity, Cause: err})
			result.Stats.Errors++
		}
		result.Selected = append(result.Selected, SelectedRule{
			Rule:          rule,
			Intensity:     intensity,
			MatchStrength: intensity,
		})
	}

	result.Duration = time.Since(start)
	return result
}

func (e *Engine) match(rule *compiler.CompiledRule, ctx *eval.Context) (bool, error) {
	if rule.Condition == nil {
		return false, fmt.Errorf("rule has no compiled condition")
	}
	return e.evaluator.Truthy(rule.Condition, ctx)
}

// intensity resolves a selected rule's intensity. On failure it returns 1
// together with the error.
func (e *Engine) intensity(rule *compiler.CompiledRule, ctx *eval.Context) (float64, error) {
	anim := rule.Rule.Animation
	if anim.Intensity != nil {
		return clamp01(*anim.Intensity), nil
	}
	if rule.Intensity == nil {
		return 1, nil
	}

	v, err := e.evaluator.Evaluate(rule.Intensity, ctx)
	if err != nil {
		return 1, err
	}
	f, ok := v.Number()
	if !ok || math.IsNaN(f) {
		return 1, fmt.Errorf("%w: intensity must be a number, got %s", eval.ErrTypeMismatch, v.Kind())
	}
	return clamp01(f), nil
}

func clamp01(f float64) float64 {
	return math.Min(math.Max(f, 0), 1)
}
