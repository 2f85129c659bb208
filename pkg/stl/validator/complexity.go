package validator

import "mercator-hq/subtitler/pkg/stl/ast"

// ComplexityClass is a coarse template complexity hint for editors.
type ComplexityClass string

const (
	ComplexityLow    ComplexityClass = "low"
	ComplexityMedium ComplexityClass = "medium"
	ComplexityHigh   ComplexityClass = "high"
)

// Class thresholds on the complexity score.
const (
	mediumComplexityScore = 20
	highComplexityScore   = 100
)

// Complexity estimates the per-word evaluation cost of a template.
type Complexity struct {
	// Score is the total number of condition clauses across all rules.
	// A rule whose condition is missing or unparseable counts as one.
	Score int
	Class ComplexityClass
}

// EstimateComplexity scores rule conditions: every rule contributes the
// number of leaf predicates in its condition.
func EstimateComplexity(conditions []ast.Expr) Complexity {
	score := 0
	for _, cond := range conditions {
		score += max(ast.Specificity(cond), 1)
	}

	class := ComplexityLow
	switch {
	case score >= highComplexityScore:
		class = ComplexityHigh
	case score >= mediumComplexityScore:
		class = ComplexityMedium
	}

	return Complexity{Score: score, Class: class}
}
