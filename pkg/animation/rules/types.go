package rules

import (
	"time"

	"mercator-hq/subtitler/pkg/animation/compiler"
)

// SelectedRule is a rule chosen for a word.
type SelectedRule struct {
	Rule *compiler.CompiledRule

	// Intensity is the declared intensity, the evaluated intensity
	// expression clamped to [0, 1], or 1.
	Intensity float64

	// MatchStrength equals Intensity.
	MatchStrength float64
}

// Conflict records a conflict group in which more than one rule matched.
// Losing rules are kept for diagnostics rather than dropped silently.
type Conflict struct {
	Group  string `json:"group"`
	Winner string `json:"winner"`

	// ConflictingRules lists every matched rule of the group, winner first,
	// in resolution order.
	ConflictingRules []string `json:"conflictingRules"`

	// Reason explains why the winner beat the runner-up.
	Reason string `json:"reason"`
}

// RuleTiming is the time spent evaluating one rule for one word. Only
// collected when profiling is enabled.
type RuleTiming struct {
	RuleID   string
	Duration time.Duration
	Matched  bool
}

// Stats counts the work done for one word.
type Stats struct {
	// Evaluations counts every condition evaluation attempted, including
	// rules that lost or failed.
	Evaluations int
	Matches     int
	Errors      int
}

// Result is the outcome of evaluating a rule set for one word.
type Result struct {
	// Selected rules, one per matched conflict group, ordered by the
	// resolution order of their winners.
	Selected []SelectedRule

	// Matched lists the ids of all matched rules in declaration order.
	Matched []string

	Conflicts []Conflict
	Errors    []*RuleError
	Stats     Stats
	Timings   []RuleTiming
	Duration  time.Duration
}
