package validator

import (
	"mercator-hq/subtitler/pkg/stl/ast"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
)

// Analysis is the outcome of validating a template. Besides the collected
// errors and warnings it carries the parsed expressions so compilation does
// not parse them twice.
type Analysis struct {
	Errors   *stlErrors.ErrorList
	Warnings *stlErrors.ErrorList

	// Conditions holds each rule's parsed condition by rule index
	// (nil when missing or unparseable).
	Conditions []ast.Expr
	// Intensities holds each rule's parsed intensity expression by rule
	// index (nil when not declared or unparseable).
	Intensities []ast.Expr
	// Variables holds parsed variable expressions by name.
	Variables map[string]ast.Expr
	// VariableOrder lists variables so that each comes after the variables
	// it references. Independent variables keep declaration order.
	VariableOrder []string

	Complexity Complexity
}

// Valid returns true if no errors were found. Warnings do not affect validity.
func (a *Analysis) Valid() bool {
	return !a.Errors.HasErrors()
}

// Validator is the main validator that orchestrates all validation passes.
// It runs structural then semantic validation and accumulates every problem
// found instead of stopping at the first.
type Validator struct {
	structural *StructuralValidator
	semantic   *SemanticValidator
}

// NewValidator creates a validator for the default expression schema.
func NewValidator() *Validator {
	return NewValidatorWithSchema(DefaultSchema())
}

// NewValidatorWithSchema creates a validator for a custom schema.
func NewValidatorWithSchema(schema *Schema) *Validator {
	return &Validator{
		structural: NewStructuralValidator(),
		semantic:   NewSemanticValidator(schema),
	}
}

// Analyze runs all validation passes on a template.
func (v *Validator) Analyze(tpl *ast.Template) *Analysis {
	analysis := &Analysis{
		Errors:   stlErrors.NewErrorList(),
		Warnings: stlErrors.NewErrorList(),
	}

	errs, warnings := v.structural.Validate(tpl)
	analysis.Errors.Merge(errs)
	analysis.Warnings.Merge(warnings)

	// Expressions are checked even when the structure is broken so that
	// authors see every problem at once.
	v.semantic.Analyze(tpl, analysis)

	analysis.Complexity = EstimateComplexity(analysis.Conditions)

	return analysis
}

// Validate runs all validation passes and returns the errors as an
// *errors.ErrorList, or nil when the template is valid.
func (v *Validator) Validate(tpl *ast.Template) error {
	return v.Analyze(tpl).Errors.ToError()
}
