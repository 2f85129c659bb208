package validator

import (
	"fmt"
	"math"
	"regexp"

	"mercator-hq/subtitler/pkg/stl/ast"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
)

// identifierPattern validates variable names, which are referenced as
// variables.<name> inside expressions.
var identifierPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_]*$`)

// StructuralValidator validates the structural integrity of a template.
// It checks required fields, uniqueness, numeric ranges and timing values.
type StructuralValidator struct {
	errors   *stlErrors.ErrorList
	warnings *stlErrors.ErrorList
}

// NewStructuralValidator creates a new structural validator.
func NewStructuralValidator() *StructuralValidator {
	return &StructuralValidator{
		errors:   stlErrors.NewErrorList(),
		warnings: stlErrors.NewErrorList(),
	}
}

// Validate performs structural validation on a template. It returns the
// errors and the warnings found.
func (v *StructuralValidator) Validate(tpl *ast.Template) (*stlErrors.ErrorList, *stlErrors.ErrorList) {
	v.errors = stlErrors.NewErrorList()
	v.warnings = stlErrors.NewErrorList()

	if tpl == nil {
		v.errors.AddError(stlErrors.ErrorTypeStructural, "Template is nil", ast.Location{})
		return v.errors, v.warnings
	}

	if tpl.ID == "" {
		v.errors.AddErrorWithSuggestion(
			stlErrors.ErrorTypeStructural,
			"Missing required field 'id'",
			tpl.Location,
			stlErrors.SuggestMissingField("id", `"karaoke-emphasis"`),
		)
	}

	v.validateVariables(tpl)
	v.validateRules(tpl)

	return v.errors, v.warnings
}

func (v *StructuralValidator) validateVariables(tpl *ast.Template) {
	seen := make(map[string]bool)
	for i, variable := range tpl.Variables {
		loc := variableLocation(variable, i)

		switch {
		case variable.Name == "":
			v.errors.AddErrorWithSuggestion(stlErrors.ErrorTypeStructural,
				fmt.Sprintf("Variable at index %d has no name", i), loc,
				stlErrors.SuggestMissingField("name", `"threshold"`))
			continue
		case !identifierPattern.MatchString(variable.Name):
			v.errors.AddErrorWithSuggestion(stlErrors.ErrorTypeStructural,
				fmt.Sprintf("Variable name %q is not a valid identifier", variable.Name), loc,
				"Use letters, digits and underscores, starting with a letter")
		case seen[variable.Name]:
			v.errors.AddError(stlErrors.ErrorTypeStructural,
				fmt.Sprintf("Duplicate variable %q", variable.Name), loc)
		}
		seen[variable.Name] = true

		if variable.Expression == "" {
			v.errors.AddErrorWithSuggestion(stlErrors.ErrorTypeStructural,
				fmt.Sprintf("Variable %q has no expression", variable.Name), loc,
				stlErrors.SuggestMissingField("expression", `"audioData.averageConfidence"`))
		}
	}
}

func (v *StructuralValidator) validateRules(tpl *ast.Template) {
	if len(tpl.Rules) == 0 {
		v.warnings.AddError(stlErrors.ErrorTypeStructural,
			"Template has no rules; no animations will be applied", tpl.Location)
		return
	}

	seen := make(map[string]int)
	for i, rule := range tpl.Rules {
		loc := ruleLocation(rule, i)

		if rule.ID == "" {
			v.errors.Add(&stlErrors.Error{
				Type:       stlErrors.ErrorTypeStructural,
				Message:    fmt.Sprintf("Rule at index %d has no id", i),
				Location:   loc,
				Suggestion: stlErrors.SuggestMissingField("id", fmt.Sprintf(`"rule-%d"`, i+1)),
			})
		} else if first, dup := seen[rule.ID]; dup {
			v.errors.Add(&stlErrors.Error{
				Type:     stlErrors.ErrorTypeStructural,
				Message:  fmt.Sprintf("Duplicate rule id %q (first declared at index %d)", rule.ID, first),
				RuleID:   rule.ID,
				Location: loc,
			})
		} else {
			seen[rule.ID] = i
		}

		if !rule.HasCondition() {
			v.errors.Add(&stlErrors.Error{
				Type:       stlErrors.ErrorTypeStructural,
				Message:    fmt.Sprintf("Rule %q has no condition", rule.ID),
				RuleID:     rule.ID,
				Location:   loc,
				Suggestion: `Use condition "true" for a rule that always matches`,
			})
		}

		if math.IsNaN(rule.Priority) || math.IsInf(rule.Priority, 0) {
			v.errors.Add(&stlErrors.Error{
				Type:     stlErrors.ErrorTypeStructural,
				Message:  fmt.Sprintf("Rule %q has a non-finite priority", rule.ID),
				RuleID:   rule.ID,
				Location: loc,
			})
		}

		v.validateAnimation(rule, loc)
	}
}

func (v *StructuralValidator) validateAnimation(rule *ast.Rule, loc ast.Location) {
	anim := &rule.Animation
	animLoc := loc.Child("animation")

	if anim.PluginName == "" {
		v.errors.Add(&stlErrors.Error{
			Type:       stlErrors.ErrorTypeValidation,
			Message:    fmt.Sprintf("Rule %q has no animation plugin", rule.ID),
			RuleID:     rule.ID,
			Location:   animLoc,
			Suggestion: stlErrors.SuggestMissingField("pluginName", `"bounce"`),
		})
	}

	if anim.Intensity != nil {
		if i := *anim.Intensity; math.IsNaN(i) || i < 0 || i > 1 {
			v.errors.Add(&stlErrors.Error{
				Type:     stlErrors.ErrorTypeValidation,
				Message:  fmt.Sprintf("Rule %q intensity %v is outside [0, 1]", rule.ID, i),
				RuleID:   rule.ID,
				Location: animLoc.Child("intensity"),
			})
		}
		if anim.IntensityExpr != "" {
			v.warnings.Add(&stlErrors.Error{
				Type:     stlErrors.ErrorTypeValidation,
				Message:  fmt.Sprintf("Rule %q declares both intensity and intensityExpr; intensity wins", rule.ID),
				RuleID:   rule.ID,
				Location: animLoc,
			})
		}
	}

	timing := anim.Timing
	if len(timing.Offset) > 2 {
		v.warnings.Add(&stlErrors.Error{
			Type:     stlErrors.ErrorTypeValidation,
			Message:  fmt.Sprintf("Rule %q timing.offset has %d values; only [start, end] is used", rule.ID, len(timing.Offset)),
			RuleID:   rule.ID,
			Location: animLoc.Child("timing"),
		})
	}

	fields := []struct{ name, value string }{
		{"duration", timing.Duration},
		{"delay", timing.Delay},
		{"stagger", timing.Stagger},
	}
	for i, o := range timing.Offset {
		fields = append(fields, struct{ name, value string }{fmt.Sprintf("offset[%d]", i), o})
	}

	for _, f := range fields {
		if f.value == "" {
			continue
		}
		if _, err := ast.ParseTimingDuration(f.value); err != nil {
			v.warnings.Add(&stlErrors.Error{
				Type:     stlErrors.ErrorTypeValidation,
				Message:  fmt.Sprintf("Rule %q timing.%s: %v", rule.ID, f.name, err),
				RuleID:   rule.ID,
				Location: animLoc.Child("timing." + f.name),
			})
		}
	}
}

// ruleLocation returns the rule's location, synthesizing a logical path for
// templates built in memory.
func ruleLocation(rule *ast.Rule, index int) ast.Location {
	if rule.Location.IsValid() {
		return rule.Location
	}
	return ast.Location{Path: fmt.Sprintf("rules[%d]", index)}
}

func variableLocation(variable *ast.Variable, index int) ast.Location {
	switch {
	case variable.Location.IsValid():
		return variable.Location
	case variable.Name != "":
		return ast.Location{Path: "variables." + variable.Name}
	default:
		return ast.Location{Path: fmt.Sprintf("variables[%d]", index)}
	}
}
