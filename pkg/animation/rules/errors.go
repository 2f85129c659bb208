package rules

import "fmt"

// Evaluation phases a RuleError can come from.
const (
	PhaseCondition = "condition"
	PhaseIntensity = "intensity"
)

// RuleError reports a rule whose expression failed for one word. A failed
// condition makes the rule non-matching; a failed intensity falls back to 1.
type RuleError struct {
	RuleID string
	Phase  string
	Cause  error
}

// Error returns the error message.
func (e *RuleError) Error() string {
	return fmt.Sprintf("rule %s: %s: %v", e.RuleID, e.Phase, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *RuleError) Unwrap() error {
	return e.Cause
}
