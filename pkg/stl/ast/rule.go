package ast

// DefaultGroup is the conflict group of rules that do not declare one.
// All rules in one group compete for the same word; only one wins.
const DefaultGroup = "default"

// Rule pairs a condition with an animation. When the condition is truthy
// for a word the rule matches; conflicts between matching rules are
// resolved by priority, then specificity, then declaration order.
type Rule struct {
	ID          string        // Unique rule identifier within the template
	Description string        // Human-readable description
	Condition   string        // Condition expression source
	Priority    float64       // Explicit priority (higher wins)
	Group       string        // Conflict group (empty = DefaultGroup)
	Enabled     *bool         // Whether rule is active (nil = true)
	Animation   AnimationSpec // Animation applied when the rule wins
	Location    Location      // Source location
}

// IsEnabled returns true if the rule is enabled.
// Rules are enabled by default unless explicitly disabled.
func (r *Rule) IsEnabled() bool {
	return r.Enabled == nil || *r.Enabled
}

// ConflictGroup returns the rule's conflict group, defaulting to DefaultGroup.
func (r *Rule) ConflictGroup() string {
	if r.Group == "" {
		return DefaultGroup
	}
	return r.Group
}

// HasCondition returns true if the rule declares a condition.
func (r *Rule) HasCondition() bool {
	return r.Condition != ""
}
