package compiler

import (
	"mercator-hq/subtitler/pkg/stl/ast"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
	"mercator-hq/subtitler/pkg/stl/validator"
)

// ValidationReport summarizes static validation of a template.
type ValidationReport struct {
	TemplateID    string               `json:"templateId"`
	Valid         bool                 `json:"valid"`
	Errors        []*stlErrors.Error   `json:"errors"`
	Warnings      []*stlErrors.Error   `json:"warnings"`
	Complexity    validator.Complexity `json:"complexity"`
	RuleCount     int                  `json:"ruleCount"`
	VariableCount int                  `json:"variableCount"`
}

// Validate validates a template without touching any cache.
func Validate(tpl *ast.Template) *ValidationReport {
	return Compile(tpl).Report()
}

// Validate validates a template without touching any cache.
func (c *Compiler) Validate(tpl *ast.Template) *ValidationReport {
	return c.Compile(tpl).Report()
}

// Report returns the validation report of a compiled template.
func (c *CompiledTemplate) Report() *ValidationReport {
	report := &ValidationReport{
		TemplateID: c.TemplateID,
		Valid:      c.Valid(),
		Errors:     c.ValidationErrors,
		Warnings:   c.Warnings,
		Complexity: c.Complexity,
		RuleCount:  len(c.Rules),
	}
	if c.Template != nil {
		report.VariableCount = len(c.Template.Variables)
	}
	return report
}
