package compiler

import (
	"context"
	"log/slog"
	"time"

	"mercator-hq/subtitler/pkg/stl/ast"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
	"mercator-hq/subtitler/pkg/stl/validator"
)

// CompiledRule is a rule with its condition parsed and its conflict
// resolution keys precomputed.
type CompiledRule struct {
	Rule        *ast.Rule
	ID          string
	Index       int // Declaration index, the final tie-breaker
	Condition   ast.Expr
	Specificity int
	Priority    float64
	Group       string
	Enabled     bool

	// Intensity is the parsed IntensityExpr, nil when the rule declares a
	// fixed intensity or none.
	Intensity ast.Expr
}

// Animation returns the animation the rule applies when it wins.
func (r *CompiledRule) Animation() ast.AnimationSpec {
	return r.Rule.Animation
}

// CompiledVariable is a parsed variable declaration.
type CompiledVariable struct {
	Name       string
	Source     string
	Expression ast.Expr
	Cached     bool
	Location   ast.Location
}

// CompiledTemplate is the immutable result of compiling a template.
// Validation problems are carried as data; a template with validation
// errors must not be applied.
type CompiledTemplate struct {
	TemplateID string
	Version    string
	Template   *ast.Template

	// Rules in declaration order.
	Rules []*CompiledRule
	// Variables in dependency order: each after the variables it uses.
	Variables []*CompiledVariable

	ValidationErrors []*stlErrors.Error
	Warnings         []*stlErrors.Error
	Complexity       validator.Complexity
	CompiledAt       time.Time
}

// Valid reports whether the template compiled without validation errors.
func (c *CompiledTemplate) Valid() bool {
	return len(c.ValidationErrors) == 0
}

// Rule returns the compiled rule with the given id, or nil.
func (c *CompiledTemplate) Rule(id string) *CompiledRule {
	for _, r := range c.Rules {
		if r.ID == id {
			return r
		}
	}
	return nil
}

// HasRule reports whether the template declares a rule with the given id.
func (c *CompiledTemplate) HasRule(id string) bool {
	return c.Rule(id) != nil
}

// Compiler turns parsed templates into CompiledTemplates. It is stateless
// apart from its configuration and safe for concurrent use.
type Compiler struct {
	schema *validator.Schema
	logger *slog.Logger
}

// NewCompiler creates a compiler for the default expression schema.
// A nil logger uses slog.Default().
func NewCompiler(logger *slog.Logger) *Compiler {
	if logger == nil {
		logger = slog.Default()
	}
	return &Compiler{
		schema: validator.DefaultSchema(),
		logger: logger.With("component", "compiler"),
	}
}

// Compile compiles a template with a default compiler.
func Compile(tpl *ast.Template) *CompiledTemplate {
	return NewCompiler(nil).Compile(tpl)
}

// Compile parses every expression of the template, validates it and
// precomputes rule specificity and variable order. It never fails; problems
// are reported in ValidationErrors and Warnings.
func (c *Compiler) Compile(tpl *ast.Template) *CompiledTemplate {
	start := time.Now()

	// Validators keep per-run state, so each compilation gets its own.
	analysis := validator.NewValidatorWithSchema(c.schema).Analyze(tpl)

	compiled := &CompiledTemplate{
		ValidationErrors: analysis.Errors.Errors,
		Warnings:         analysis.Warnings.Errors,
		Complexity:       analysis.Complexity,
		CompiledAt:       start,
	}
	if tpl == nil {
		return compiled
	}

	compiled.TemplateID = tpl.ID
	compiled.Version = tpl.Version
	compiled.Template = tpl

	compiled.Rules = make([]*CompiledRule, len(tpl.Rules))
	for i, rule := range tpl.Rules {
		cond := analysis.Conditions[i]
		compiled.Rules[i] = &CompiledRule{
			Rule:        rule,
			ID:          rule.ID,
			Index:       i,
			Condition:   cond,
			Specificity: ast.Specificity(cond),
			Priority:    rule.Priority,
			Group:       rule.ConflictGroup(),
			Enabled:     rule.IsEnabled(),
			Intensity:   analysis.Intensities[i],
		}
	}

	for _, name := range analysis.VariableOrder {
		expr := analysis.Variables[name]
		decl := tpl.GetVariable(name)
		if expr == nil || decl == nil {
			continue
		}
		compiled.Variables = append(compiled.Variables, &CompiledVariable{
			Name:       name,
			Source:     decl.Expression,
			Expression: expr,
			Cached:     decl.Cached,
			Location:   decl.Location,
		})
	}

	level := slog.LevelDebug
	if !compiled.Valid() {
		level = slog.LevelWarn
	}
	c.logger.Log(context.Background(), level, "template compiled",
		"template_id", tpl.ID,
		"rules", len(compiled.Rules),
		"variables", len(compiled.Variables),
		"errors", len(compiled.ValidationErrors),
		"warnings", len(compiled.Warnings),
		"complexity", compiled.Complexity.Class,
		"duration", time.Since(start),
	)

	return compiled
}
