package selector

import (
	"maps"
	"slices"
	"time"

	"mercator-hq/subtitler/pkg/animation/eval"
	"mercator-hq/subtitler/pkg/animation/rules"
	"mercator-hq/subtitler/pkg/stl/ast"
	"mercator-hq/subtitler/pkg/telemetry/metrics"
)

// Phase is the state an application reached. Completed and
// ValidationFailed are the normal terminal states; Failed marks structural
// problems and recovered panics.
type Phase string

const (
	PhaseNotStarted        Phase = "not_started"
	PhaseCompiling         Phase = "compiling"
	PhaseValidationFailed  Phase = "validation_failed"
	PhaseVariablesComputed Phase = "variables_computed"
	PhaseEvaluatingWords   Phase = "evaluating_words"
	PhaseCompleted         Phase = "completed"
	PhaseFailed            Phase = "failed"
)

// IssueKind classifies an error or warning.
type IssueKind string

const (
	IssueValidation  IssueKind = "validation"   // Template validation error
	IssueTemplate    IssueKind = "template"     // Template warning from the compiler
	IssueOptions     IssueKind = "options"      // Invalid batch options
	IssueTranscript  IssueKind = "transcript"   // Malformed transcript
	IssueVariable    IssueKind = "variable"     // Variable evaluation failed
	IssueRule        IssueKind = "rule"         // Rule condition or intensity failed for a word
	IssueUnknownRule IssueKind = "unknown_rule" // Enabled/disabled id not in the template
	IssueDeadline    IssueKind = "deadline"     // Deadline or cancellation stopped the word loop
	IssueInternal    IssueKind = "internal"     // Unexpected failure
)

// Issue is one entry of a result's errors or warnings.
type Issue struct {
	Kind     IssueKind `json:"kind"`
	Message  string    `json:"message"`
	RuleID   string    `json:"ruleId,omitempty"`
	WordID   string    `json:"wordId,omitempty"`
	Variable string    `json:"variable,omitempty"`
	Location string    `json:"location,omitempty"`
}

// Timing is the timing of an applied animation.
type Timing struct {
	Offset   []string `json:"offset,omitempty"`
	Duration string   `json:"duration,omitempty"`
	Delay    string   `json:"delay,omitempty"`
	Easing   string   `json:"easing,omitempty"`
	Stagger  string   `json:"stagger,omitempty"`
}

// timingOf copies a rule's timing so results never share memory with the
// compiled template.
func timingOf(t ast.Timing) Timing {
	return Timing{
		Offset:   slices.Clone(t.Offset),
		Duration: t.Duration,
		Delay:    t.Delay,
		Easing:   t.Easing,
		Stagger:  t.Stagger,
	}
}

// cloneParams deep-copies animation params. Nested maps and lists are
// copied too; other values are immutable.
func cloneParams(params map[string]any) map[string]any {
	if params == nil {
		return nil
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = cloneParam(v)
	}
	return out
}

func cloneParam(v any) any {
	switch v := v.(type) {
	case map[string]any:
		return cloneParams(v)
	case []any:
		out := make([]any, len(v))
		for i, e := range v {
			out[i] = cloneParam(e)
		}
		return out
	case []string:
		return slices.Clone(v)
	case []float64:
		return slices.Clone(v)
	case map[string]string:
		return maps.Clone(v)
	default:
		return v
	}
}

// AppliedAnimation is an animation the rendering layer should play.
type AppliedAnimation struct {
	PluginName string         `json:"pluginName"`
	Params     map[string]any `json:"params"`
	Timing     Timing         `json:"timing"`
	Intensity  float64        `json:"intensity"`
	RuleID     string         `json:"ruleId"`
}

// AppliedRule is one selected rule for one word.
type AppliedRule struct {
	RuleID        string           `json:"ruleId"`
	WordID        string           `json:"wordId"`
	SegmentIndex  int              `json:"segmentIndex"`
	WordIndex     int              `json:"wordIndex"`
	Animation     AppliedAnimation `json:"animation"`
	MatchStrength float64          `json:"matchStrength"`
}

// AnimationSelection is the outcome for one word.
type AnimationSelection struct {
	WordID       string             `json:"wordId"`
	SegmentIndex int                `json:"segmentIndex"`
	WordIndex    int                `json:"wordIndex"`
	Animations   []AppliedAnimation `json:"animations"`
	MatchedRules []string           `json:"matchedRules"`
	Conflicts    []rules.Conflict   `json:"conflicts,omitempty"`
	Duration     time.Duration      `json:"duration"`
}

// RuleTiming aggregates the time one rule took over a run.
type RuleTiming struct {
	RuleID      string        `json:"ruleId"`
	Evaluations int           `json:"evaluations"`
	Matches     int           `json:"matches"`
	Total       time.Duration `json:"total"`
	Mean        time.Duration `json:"mean"`
}

// Performance holds the counters of one application.
type Performance struct {
	ProcessingTime     time.Duration `json:"processingTime"`
	RulesEvaluated     int           `json:"rulesEvaluated"`
	AnimationsApplied  int           `json:"animationsApplied"`
	WordsProcessed     int           `json:"wordsProcessed"`
	WordsSkipped       int           `json:"wordsSkipped"`
	CompileCacheHit    bool          `json:"compileCacheHit"`
	VariablesComputed  int           `json:"variablesComputed"`
	VariablesFromCache int           `json:"variablesFromCache"`

	// RuleTimings is filled when profiling is enabled, in rule declaration order.
	RuleTimings []RuleTiming `json:"ruleTimings,omitempty"`
}

// TemplateApplicationResult is the outcome of applying a template to a
// transcript. Success is true exactly when Errors is empty. Partial marks a
// run stopped by its deadline; the words evaluated before it are kept.
type TemplateApplicationResult struct {
	RunID           string `json:"runId"`
	TemplateID      string `json:"templateId"`
	TemplateVersion string `json:"templateVersion,omitempty"`
	TranscriptID    string `json:"transcriptId,omitempty"`
	Success         bool   `json:"success"`
	Partial         bool   `json:"partial,omitempty"`
	Phase           Phase  `json:"phase"`

	AppliedRules []AppliedRule `json:"appliedRules"`
	Errors       []Issue       `json:"errors"`
	Warnings     []Issue       `json:"warnings"`
	Performance  Performance   `json:"performance"`

	// Debug output, filled when CollectDebugInfo is set.
	Selections []AnimationSelection  `json:"selections,omitempty"`
	Variables  map[string]eval.Value `json:"variables,omitempty"`

	StartedAt time.Time `json:"startedAt"`
}

// Status maps the result onto a metrics status label.
func (r *TemplateApplicationResult) Status() string {
	switch {
	case !r.Success:
		return metrics.StatusFailed
	case r.Partial:
		return metrics.StatusPartial
	default:
		return metrics.StatusSuccess
	}
}

func (r *TemplateApplicationResult) addError(issue Issue) {
	r.Errors = append(r.Errors, issue)
}

func (r *TemplateApplicationResult) addWarning(issue Issue) {
	r.Warnings = append(r.Warnings, issue)
}
