package validator

import (
	"fmt"
	"regexp"
	"strings"

	"mercator-hq/subtitler/pkg/stl/ast"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
	"mercator-hq/subtitler/pkg/stl/parser"
)

// scope is where an expression is evaluated.
type scope int

const (
	scopeWord     scope = iota // rule conditions and intensity expressions
	scopeVariable              // variables, computed once per transcript
)

// SemanticValidator parses template expressions and checks their meaning:
// references against the schema, declared variables, helper names and
// arities, literal regular expressions, and variable dependency cycles.
type SemanticValidator struct {
	schema   *Schema
	declared map[string]bool
	names    []string
	analysis *Analysis
}

// NewSemanticValidator creates a new semantic validator.
func NewSemanticValidator(schema *Schema) *SemanticValidator {
	return &SemanticValidator{schema: schema}
}

// Analyze validates every expression of the template and records the parsed
// forms, errors and variable order on the analysis.
func (v *SemanticValidator) Analyze(tpl *ast.Template, analysis *Analysis) {
	v.analysis = analysis
	analysis.Variables = make(map[string]ast.Expr)
	if tpl == nil {
		return
	}

	v.declared = make(map[string]bool, len(tpl.Variables))
	v.names = v.names[:0]
	for _, variable := range tpl.Variables {
		if variable.Name != "" && !v.declared[variable.Name] {
			v.declared[variable.Name] = true
			v.names = append(v.names, variable.Name)
		}
	}

	refs := make(map[string][]string)
	for i, variable := range tpl.Variables {
		if variable.Name == "" || variable.Expression == "" {
			continue
		}
		if _, dup := analysis.Variables[variable.Name]; dup {
			continue
		}
		expr := v.parse(variable.Expression, variableLocation(variable, i), "")
		if expr == nil {
			continue
		}
		v.checkExpr(expr, scopeVariable, "")
		analysis.Variables[variable.Name] = expr
		refs[variable.Name] = ast.VariableRefs(expr)
	}
	analysis.VariableOrder = v.orderVariables(tpl, refs)

	analysis.Conditions = make([]ast.Expr, len(tpl.Rules))
	analysis.Intensities = make([]ast.Expr, len(tpl.Rules))
	for i, rule := range tpl.Rules {
		loc := ruleLocation(rule, i)

		if rule.HasCondition() {
			if expr := v.parse(rule.Condition, loc.Child("condition"), rule.ID); expr != nil {
				v.checkExpr(expr, scopeWord, rule.ID)
				analysis.Conditions[i] = expr
			}
		}

		if rule.Animation.IntensityExpr != "" && rule.Animation.Intensity == nil {
			exprLoc := loc.Child("animation.intensityExpr")
			if expr := v.parse(rule.Animation.IntensityExpr, exprLoc, rule.ID); expr != nil {
				v.checkExpr(expr, scopeWord, rule.ID)
				analysis.Intensities[i] = expr
			}
		}
	}
}

func (v *SemanticValidator) parse(src string, loc ast.Location, ruleID string) ast.Expr {
	expr, err := parser.ParseExpression(src, loc)
	if err != nil {
		err.RuleID = ruleID
		v.analysis.Errors.Add(err)
		return nil
	}
	return expr
}

func (v *SemanticValidator) fail(e ast.Expr, ruleID, message, suggestion string) {
	v.analysis.Errors.Add(&stlErrors.Error{
		Type:       stlErrors.ErrorTypeSemantic,
		Message:    message,
		RuleID:     ruleID,
		Location:   e.Pos(),
		Suggestion: suggestion,
	})
}

// owner describes who an expression belongs to, for messages.
func owner(ruleID string) string {
	if ruleID == "" {
		return "Variable expression"
	}
	return fmt.Sprintf("Rule %q", ruleID)
}

func (v *SemanticValidator) checkExpr(expr ast.Expr, sc scope, ruleID string) {
	ast.Inspect(expr, func(n ast.Expr) bool {
		switch node := n.(type) {
		case *ast.Ref:
			v.checkRef(node, sc, ruleID)
		case *ast.Call:
			v.checkCall(node, ruleID)
		case *ast.Binary:
			if node.Op == ast.OperatorMatches {
				v.checkPattern(node.Right, ruleID)
			}
		}
		return true
	})
}

func (v *SemanticValidator) checkRef(ref *ast.Ref, sc scope, ruleID string) {
	who := owner(ruleID)

	if ref.Root == "variables" {
		if len(ref.Path) == 0 {
			v.fail(ref, ruleID, fmt.Sprintf("%s references 'variables' without a name", who),
				stlErrors.SuggestName("", v.names))
			return
		}
		name := ref.Path[0]
		if !v.declared[name] {
			v.fail(ref, ruleID, fmt.Sprintf("%s references undeclared variable %q", who, name),
				stlErrors.SuggestDeclareVariable(name, v.names))
			return
		}
		if len(ref.Path) > 1 {
			v.fail(ref, ruleID, fmt.Sprintf("%s accesses %q, but variable %q has no fields", who, ref.Dotted(), name), "")
		}
		return
	}

	root, ok := v.schema.Roots[ref.Root]
	if !ok {
		v.fail(ref, ruleID, fmt.Sprintf("%s references unknown root %q", who, ref.Root),
			stlErrors.SuggestName(ref.Root, v.schema.RootNames()))
		return
	}

	if sc == scopeVariable && root.PerWord {
		v.fail(ref, ruleID, fmt.Sprintf("Variable expression references %q, which is only available per word", ref.Dotted()),
			"Variables are computed once per transcript; use audioData fields or helpers")
		return
	}

	if len(ref.Path) == 0 {
		if !root.Bare {
			v.fail(ref, ruleID, fmt.Sprintf("%s references %q without a field", who, ref.Root),
				stlErrors.SuggestName("", v.schema.FieldNames(ref.Root)))
		}
		return
	}

	field := ref.Path[0]
	kind, ok := root.Fields[field]
	if !ok {
		v.fail(ref, ruleID, fmt.Sprintf("%s references unknown field %q", who, ref.Root+"."+field),
			stlErrors.SuggestName(field, v.schema.FieldNames(ref.Root)))
		return
	}

	switch {
	case kind == FieldValue && len(ref.Path) > 1:
		v.fail(ref, ruleID, fmt.Sprintf("%s accesses %q, but %s.%s has no fields", who, ref.Dotted(), ref.Root, field), "")
	case kind == FieldMap && len(ref.Path) == 1:
		v.fail(ref, ruleID, fmt.Sprintf("%s references map %q without a key", who, ref.Dotted()),
			fmt.Sprintf("Use %s.%s.<name>", ref.Root, field))
	}
}

func (v *SemanticValidator) checkCall(call *ast.Call, ruleID string) {
	arity, ok := v.schema.Functions[call.Name]
	if !ok {
		v.fail(call, ruleID, fmt.Sprintf("%s calls unknown function %q", owner(ruleID), call.Name),
			stlErrors.SuggestName(call.Name, v.schema.FunctionNames()))
		return
	}

	if !arity.Accepts(len(call.Args)) {
		var want string
		switch {
		case arity.Max < 0:
			want = fmt.Sprintf("at least %d", arity.Min)
		case arity.Min == arity.Max:
			want = fmt.Sprintf("%d", arity.Min)
		default:
			want = fmt.Sprintf("%d to %d", arity.Min, arity.Max)
		}
		v.fail(call, ruleID, fmt.Sprintf("%s calls %s with %d argument(s), want %s", owner(ruleID), call.Name, len(call.Args), want), "")
		return
	}

	if call.Name == "matches" {
		v.checkPattern(call.Args[1], ruleID)
	}
}

// checkPattern compiles a literal regular expression so that a bad pattern
// is reported before any word is evaluated.
func (v *SemanticValidator) checkPattern(e ast.Expr, ruleID string) {
	lit, ok := e.(*ast.Literal)
	if !ok || lit.Kind != ast.LiteralString {
		return
	}
	if _, err := regexp.Compile(lit.Str); err != nil {
		v.fail(lit, ruleID, fmt.Sprintf("%s uses an invalid regular expression %q: %v", owner(ruleID), lit.Str, err), "")
	}
}

// orderVariables returns the variables in dependency order using a
// depth-first walk in declaration order, reporting any cycle found.
func (v *SemanticValidator) orderVariables(tpl *ast.Template, refs map[string][]string) []string {
	const (
		unvisited = iota
		visiting
		done
	)

	state := make(map[string]int, len(refs))
	failed := make(map[string]bool)
	order := make([]string, 0, len(refs))
	var stack []string
	reported := make(map[string]bool)

	var visit func(name string) bool
	visit = func(name string) bool {
		switch state[name] {
		case done:
			return !failed[name]
		case visiting:
			start := 0
			for i, s := range stack {
				if s == name {
					start = i
					break
				}
			}
			cycle := append(append([]string{}, stack[start:]...), name)
			if !reported[name] {
				for _, n := range cycle {
					reported[n] = true
				}
				variable := tpl.GetVariable(name)
				v.analysis.Errors.AddErrorWithSuggestion(
					stlErrors.ErrorTypeSemantic,
					fmt.Sprintf("Circular variable reference: %s", strings.Join(cycle, " -> ")),
					variableLocation(variable, 0),
					"Remove the circular dependency between variables",
				)
			}
			return false
		}

		state[name] = visiting
		stack = append(stack, name)
		ok := true
		for _, dep := range refs[name] {
			if _, parsed := refs[dep]; !parsed {
				continue
			}
			if !visit(dep) {
				ok = false
			}
		}
		stack = stack[:len(stack)-1]
		state[name] = done
		if ok {
			order = append(order, name)
		} else {
			failed[name] = true
		}
		return ok
	}

	for _, variable := range tpl.Variables {
		if _, parsed := refs[variable.Name]; parsed {
			visit(variable.Name)
		}
	}

	return order
}
