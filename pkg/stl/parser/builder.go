package parser

import (
	"fmt"
	"strconv"

	"mercator-hq/subtitler/pkg/stl/ast"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
)

// builder constructs AST nodes from intermediate document structures.
// It handles type conversion and preserves source locations. Checks that do
// not depend on document typing (ids, plugins, references) belong to the
// validator.
type builder struct {
	sourcePath string
	errors     *stlErrors.ErrorList
}

// newBuilder creates a new AST builder for the given source file.
func newBuilder(sourcePath string) *builder {
	return &builder{
		sourcePath: sourcePath,
		errors:     stlErrors.NewErrorList(),
	}
}

func (b *builder) location(line, column int, path string) ast.Location {
	return ast.Location{File: b.sourcePath, Line: line, Column: column, Path: path}
}

// buildTemplate transforms a templateDoc into an ast.Template.
func (b *builder) buildTemplate(doc *templateDoc) (*ast.Template, error) {
	tpl := &ast.Template{
		ID:          doc.ID,
		Name:        doc.Name,
		Version:     doc.Version,
		Description: doc.Description,
		Author:      doc.Author,
		Tags:        doc.Tags,
		SourceFile:  b.sourcePath,
		Variables:   make([]*ast.Variable, 0, len(doc.Variables)),
		Rules:       make([]*ast.Rule, 0, len(doc.Rules)),
		Location:    b.location(1, 1, ""),
	}

	for _, vd := range doc.Variables {
		tpl.Variables = append(tpl.Variables, &ast.Variable{
			Name:       vd.Name,
			Expression: vd.Expression,
			Cached:     vd.Cached,
			Location:   b.location(vd.line, vd.column, "variables."+vd.Name),
		})
	}

	for i := range doc.Rules {
		rule, err := b.buildRule(&doc.Rules[i], i)
		if err != nil {
			b.errors.AddError(stlErrors.ErrorTypeStructural,
				fmt.Sprintf("Invalid rule at index %d: %v", i, err),
				b.location(doc.Rules[i].line, doc.Rules[i].column, fmt.Sprintf("rules[%d]", i)))
			continue
		}
		tpl.Rules = append(tpl.Rules, rule)
	}

	if b.errors.HasErrors() {
		return nil, b.errors
	}

	return tpl, nil
}

// buildRule transforms a ruleDoc into an ast.Rule.
func (b *builder) buildRule(rd *ruleDoc, index int) (*ast.Rule, error) {
	rule := &ast.Rule{
		ID:          rd.ID,
		Description: rd.Description,
		Condition:   rd.Condition,
		Group:       rd.Group,
		Enabled:     rd.Enabled,
		Location:    b.location(rd.line, rd.column, fmt.Sprintf("rules[%d]", index)),
	}

	if rd.Priority != nil {
		priority, ok := toFloat(rd.Priority)
		if !ok {
			return nil, fmt.Errorf("priority must be a number, got %v", rd.Priority)
		}
		rule.Priority = priority
	}

	animation, err := b.buildAnimation(&rd.Animation)
	if err != nil {
		return nil, fmt.Errorf("invalid animation: %w", err)
	}
	rule.Animation = animation

	return rule, nil
}

// buildAnimation transforms an animationDoc into an ast.AnimationSpec.
func (b *builder) buildAnimation(ad *animationDoc) (ast.AnimationSpec, error) {
	spec := ast.AnimationSpec{
		PluginName:    ad.PluginName,
		Params:        normalizeParams(ad.Params),
		IntensityExpr: ad.IntensityExpr,
	}

	if ad.Intensity != nil {
		intensity, ok := toFloat(ad.Intensity)
		if !ok {
			return spec, fmt.Errorf("intensity must be a number, got %v", ad.Intensity)
		}
		spec.Intensity = &intensity
	}

	timing, err := buildTiming(&ad.Timing)
	if err != nil {
		return spec, err
	}
	spec.Timing = timing

	return spec, nil
}

func buildTiming(td *timingDoc) (ast.Timing, error) {
	timing := ast.Timing{Easing: td.Easing}

	for i, o := range td.Offset {
		s, ok := timingString(o)
		if !ok {
			return timing, fmt.Errorf("timing.offset[%d] must be a duration string or number", i)
		}
		timing.Offset = append(timing.Offset, s)
	}

	fields := []struct {
		name string
		raw  any
		dst  *string
	}{
		{"duration", td.Duration, &timing.Duration},
		{"delay", td.Delay, &timing.Delay},
		{"stagger", td.Stagger, &timing.Stagger},
	}
	for _, f := range fields {
		if f.raw == nil {
			continue
		}
		s, ok := timingString(f.raw)
		if !ok {
			return timing, fmt.Errorf("timing.%s must be a duration string or number", f.name)
		}
		*f.dst = s
	}

	return timing, nil
}

// timingString renders a timing value; bare numbers are milliseconds.
func timingString(v any) (string, bool) {
	if s, ok := v.(string); ok {
		return s, true
	}
	if f, ok := toFloat(v); ok {
		return strconv.FormatFloat(f, 'f', -1, 64), true
	}
	return "", false
}

// toFloat converts the numeric types produced by the YAML and TOML decoders.
func toFloat(v any) (float64, bool) {
	switch n := v.(type) {
	case float64:
		return n, true
	case float32:
		return float64(n), true
	case int:
		return float64(n), true
	case int64:
		return float64(n), true
	case uint64:
		return float64(n), true
	}
	return 0, false
}

// normalizeParams converts all numbers to float64 for consistency between
// document formats.
func normalizeParams(params map[string]any) map[string]any {
	if params == nil {
		return map[string]any{}
	}
	out := make(map[string]any, len(params))
	for k, v := range params {
		out[k] = normalizeValue(v)
	}
	return out
}

func normalizeValue(v any) any {
	switch x := v.(type) {
	case map[string]any:
		return normalizeParams(x)
	case []any:
		out := make([]any, len(x))
		for i, el := range x {
			out[i] = normalizeValue(el)
		}
		return out
	default:
		if f, ok := toFloat(v); ok {
			return f
		}
		return v
	}
}
