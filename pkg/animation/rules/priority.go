package rules

import (
	"fmt"
	"sort"

	"mercator-hq/subtitler/pkg/animation/compiler"
)

// Outranks reports whether rule a wins over rule b: higher priority first,
// then higher specificity, then earlier declaration. The order is total for
// rules of one template since declaration indexes are unique.
func Outranks(a, b *compiler.CompiledRule) bool {
	if a.Priority != b.Priority {
		return a.Priority > b.Priority
	}
	if a.Specificity != b.Specificity {
		return a.Specificity > b.Specificity
	}
	return a.Index < b.Index
}

// SortByRank sorts rules into resolution order, winner first.
func SortByRank(rules []*compiler.CompiledRule) {
	sort.SliceStable(rules, func(i, j int) bool {
		return Outranks(rules[i], rules[j])
	})
}

// reason explains why winner outranks runnerUp.
func reason(winner, runnerUp *compiler.CompiledRule) string {
	switch {
	case winner.Priority != runnerUp.Priority:
		return fmt.Sprintf("higher priority (%g > %g)", winner.Priority, runnerUp.Priority)
	case winner.Specificity != runnerUp.Specificity:
		return fmt.Sprintf("more specific condition (%d > %d clauses)", winner.Specificity, runnerUp.Specificity)
	default:
		return fmt.Sprintf("declared first (rule %d before rule %d)", winner.Index, runnerUp.Index)
	}
}
