package validator

import "sort"

// FieldKind describes how a context field may be referenced.
type FieldKind int

const (
	// FieldValue is a leaf value: root.field with nothing after it.
	FieldValue FieldKind = iota
	// FieldMap is an open map: root.field.<key> with any key.
	FieldMap
)

// RootSchema describes one expression root such as "word" or "position".
type RootSchema struct {
	Fields map[string]FieldKind
	// Bare roots may be referenced without a field (prev, next).
	Bare bool
	// PerWord roots are unavailable while variables are computed.
	PerWord bool
}

// Arity is the accepted argument count of a helper. Max -1 means variadic.
type Arity struct {
	Min int
	Max int
}

// Accepts reports whether n arguments are accepted.
func (a Arity) Accepts(n int) bool {
	return n >= a.Min && (a.Max < 0 || n <= a.Max)
}

// Schema is the static description of the expression context: which roots
// and fields exist and which helper functions may be called. The
// "variables" root is not listed; its fields are the template's declared
// variables.
type Schema struct {
	Roots     map[string]*RootSchema
	Functions map[string]Arity
}

var wordFields = map[string]FieldKind{
	"id":         FieldValue,
	"text":       FieldValue,
	"start":      FieldValue,
	"end":        FieldValue,
	"duration":   FieldValue,
	"confidence": FieldValue,
	"emotion":    FieldValue,
	"speaker":    FieldValue,
	"length":     FieldValue,
	"features":   FieldMap,
}

// DefaultSchema returns the schema of the subtitle expression language.
func DefaultSchema() *Schema {
	return &Schema{
		Roots: map[string]*RootSchema{
			"word": {Fields: wordFields, PerWord: true},
			"prev": {Fields: wordFields, Bare: true, PerWord: true},
			"next": {Fields: wordFields, Bare: true, PerWord: true},
			"segment": {
				Fields: map[string]FieldKind{
					"id":                FieldValue,
					"index":             FieldValue,
					"text":              FieldValue,
					"start":             FieldValue,
					"end":               FieldValue,
					"duration":          FieldValue,
					"speaker":           FieldValue,
					"emotion":           FieldValue,
					"wordCount":         FieldValue,
					"averageConfidence": FieldValue,
					"metadata":          FieldMap,
				},
				PerWord: true,
			},
			"audioData": {
				Fields: map[string]FieldKind{
					"id":                FieldValue,
					"language":          FieldValue,
					"duration":          FieldValue,
					"wordCount":         FieldValue,
					"segmentCount":      FieldValue,
					"averageConfidence": FieldValue,
					"confidences":       FieldValue,
					"metadata":          FieldMap,
				},
			},
			"position": {
				Fields: map[string]FieldKind{
					"wordIndex":        FieldValue,
					"segmentIndex":     FieldValue,
					"wordInSegment":    FieldValue,
					"totalWords":       FieldValue,
					"totalSegments":    FieldValue,
					"segmentWordCount": FieldValue,
					"isFirst":          FieldValue,
					"isLast":           FieldValue,
					"isFirstInSegment": FieldValue,
					"isLastInSegment":  FieldValue,
					"progress":         FieldValue,
				},
				PerWord: true,
			},
		},
		Functions: map[string]Arity{
			"abs":         {1, 1},
			"between":     {3, 3},
			"ceil":        {1, 1},
			"clamp":       {3, 3},
			"coalesce":    {1, -1},
			"contains":    {2, 2},
			"count":       {1, 2},
			"ends_with":   {2, 2},
			"floor":       {1, 1},
			"is_null":     {1, 1},
			"len":         {1, 1},
			"lower":       {1, 1},
			"matches":     {2, 2},
			"max":         {1, -1},
			"mean":        {1, 1},
			"median":      {1, 1},
			"min":         {1, -1},
			"quantile":    {2, 2},
			"round":       {1, 2},
			"starts_with": {2, 2},
			"stddev":      {1, 1},
			"title":       {1, 1},
			"upper":       {1, 1},
		},
	}
}

// RootNames returns the known roots, sorted, including "variables".
func (s *Schema) RootNames() []string {
	names := []string{"variables"}
	for name := range s.Roots {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FieldNames returns the fields of a root, sorted.
func (s *Schema) FieldNames(root string) []string {
	r, ok := s.Roots[root]
	if !ok {
		return nil
	}
	names := make([]string, 0, len(r.Fields))
	for name := range r.Fields {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// FunctionNames returns the helper names, sorted.
func (s *Schema) FunctionNames() []string {
	names := make([]string, 0, len(s.Functions))
	for name := range s.Functions {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
