package eval

import (
	"errors"
	"math"
	"sync"
	"testing"

	"mercator-hq/subtitler/pkg/stl/ast"
	"mercator-hq/subtitler/pkg/stl/parser"
	"mercator-hq/subtitler/pkg/stl/validator"
	"mercator-hq/subtitler/pkg/transcript"
)

func testData() *transcript.AudioAnalysisData {
	return &transcript.AudioAnalysisData{
		ID:       "clip-1",
		Language: "en",
		Segments: []transcript.Segment{
			{
				Text: "Hello there", Start: 0, End: 0.9, Speaker: "A", Emotion: "happy",
				Words: []transcript.Word{
					{Text: "Hello", Start: 0, End: 0.4, Confidence: 0.95},
					{Text: "there", Start: 0.45, End: 0.9, Confidence: 0.7, Features: map[string]any{"loudness": 0.8}},
				},
				Metadata: map[string]any{"scene": map[string]any{"mood": "calm"}},
			},
			{
				Text: "General Kenobi", Start: 1.2, End: 2.1, Speaker: "B",
				Words: []transcript.Word{
					{Text: "General", Start: 1.2, End: 1.6, Confidence: 0.4},
					{Text: "Kenobi", Start: 1.65, End: 2.1, Confidence: 0.9, Emotion: "surprised"},
				},
			},
		},
		Metadata: map[string]any{"source": "asr-v2", "speakers": 2},
	}
}

// wordContext builds the context of word w in segment s.
func wordContext(t *Transcript, s, w int, vars map[string]Value) *Context {
	global := w
	for i := 0; i < s; i++ {
		global += len(t.Data.Segments[i].Words)
	}
	return t.WordContext(s, w, global, vars)
}

func evaluate(t *testing.T, e *Evaluator, src string, ctx *Context) (Value, error) {
	t.Helper()
	expr, perr := parser.ParseExpression(src, ast.Location{})
	if perr != nil {
		t.Fatalf("ParseExpression(%q) error = %v", src, perr)
	}
	return e.Evaluate(expr, ctx)
}

func TestEvaluate(t *testing.T) {
	tr := NewTranscript(testData())
	vars := map[string]Value{"threshold": Number(0.8), "label": String("hi")}

	tests := []struct {
		name string
		expr string
		// word location
		seg, word int
		want      Value
	}{
		{"confidence above", "word.confidence > 0.9", 0, 0, Bool(true)},
		{"exact threshold is not greater", "word.confidence > 0.95", 0, 0, Bool(false)},
		{"exact threshold is ge", "word.confidence >= 0.95", 0, 0, Bool(true)},
		{"string ordering", `word.text < "World"`, 0, 0, Bool(true)},
		{"arithmetic precedence", "1 + 2 * 3", 0, 0, Number(7)},
		{"parentheses", "(1 + 2) * 3", 0, 0, Number(9)},
		{"modulo", "7 % 4", 0, 0, Number(3)},
		{"negation", "-word.start", 1, 0, Number(-1.2)},
		{"string concat", `word.text + "!"`, 0, 1, String("there!")},
		{"strict equality across kinds", `1 == "1"`, 0, 0, Bool(false)},
		{"null equals null", "word.emotion == null", 0, 0, Bool(true)},
		{"emotion label", `word.emotion == "surprised"`, 1, 1, Bool(true)},
		{"in list", `word.text in ["Hello", "Kenobi"]`, 1, 1, Bool(true)},
		{"not in list", `!(word.text in ["Hello"])`, 1, 0, Bool(true)},
		{"contains substring", `segment.text contains "Keno"`, 1, 0, Bool(true)},
		{"starts_with", `word.text starts_with "Gen"`, 1, 0, Bool(true)},
		{"ends_with", `word.text ends_with "bi"`, 1, 1, Bool(true)},
		{"matches", `word.text matches "^[A-Z][a-z]+$"`, 0, 0, Bool(true)},
		{"null subject matches is false", `word.emotion matches "x"`, 0, 0, Bool(false)},
		{"null haystack is false", `"a" in word.features.tags`, 0, 0, Bool(false)},
		{"and short-circuits", "false && (1 / 0 > 1)", 0, 0, Bool(false)},
		{"or short-circuits", "true || (1 / 0 > 1)", 0, 0, Bool(true)},
		{"keyword not", "not position.isFirst", 0, 0, Bool(false)},
		{"feature present", "word.features.loudness", 0, 1, Number(0.8)},
		{"feature missing is null", "word.features.loudness", 0, 0, Null()},
		{"prev absent on first word", "prev", 0, 0, Null()},
		{"prev present", "prev", 0, 1, Bool(true)},
		{"prev crosses segments", "prev.text", 1, 0, String("there")},
		{"next absent on last word", "next.text", 1, 1, Null()},
		{"gap to next word", "next.start - word.end", 0, 0, Number(0.45 - 0.4)},
		{"segment index", "segment.index", 1, 0, Number(1)},
		{"segment word count", "segment.wordCount", 1, 0, Number(2)},
		{"segment metadata nested", "segment.metadata.scene.mood", 0, 0, String("calm")},
		{"segment metadata missing", "segment.metadata.scene.mood", 1, 0, Null()},
		{"segment emotion", "segment.emotion", 0, 0, String("happy")},
		{"audio language", "audioData.language", 0, 0, String("en")},
		{"audio metadata", "audioData.metadata.speakers", 0, 0, Number(2)},
		{"audio word count", "audioData.wordCount", 0, 0, Number(4)},
		{"position first", "position.isFirst", 0, 0, Bool(true)},
		{"position last", "position.isLast", 1, 1, Bool(true)},
		{"position last in segment", "position.isLastInSegment", 0, 1, Bool(true)},
		{"position progress", "position.progress", 1, 1, Number(1)},
		{"word length", "word.length", 1, 1, Number(6)},
		{"variable", "word.confidence >= variables.threshold", 0, 0, Bool(true)},
		{"string variable", `variables.label + "!"`, 0, 0, String("hi!")},
		{"empty string is falsy", `"" || false`, 0, 0, Bool(false)},
		{"non-zero is truthy", "2 && true", 0, 0, Bool(true)},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := evaluate(t, e, tt.expr, wordContext(tr, tt.seg, tt.word, vars))
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expr, err)
			}
			if got.Kind() == KindNumber && tt.want.Kind() == KindNumber {
				g, _ := got.Number()
				w, _ := tt.want.Number()
				if math.Abs(g-w) > 1e-9 {
					t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestEvaluate_Errors(t *testing.T) {
	tr := NewTranscript(testData())
	ctx := wordContext(tr, 0, 0, map[string]Value{"n": Number(1)})

	tests := []struct {
		name    string
		expr    string
		wantErr error
	}{
		{"string vs number ordering", `word.text > 1`, ErrTypeMismatch},
		{"null ordering", "word.emotion > 0.5", ErrTypeMismatch},
		{"bool arithmetic", "true + 1", ErrTypeMismatch},
		{"negate string", `-word.text`, ErrTypeMismatch},
		{"division by zero", "1 / 0", ErrDivisionByZero},
		{"modulo by zero", "5 % (2 - 2)", ErrDivisionByZero},
		{"undefined variable", "variables.missing", ErrUnknownReference},
		{"unknown field", "word.loudness", ErrUnknownReference},
		{"unknown root", "speaker.name", ErrUnknownReference},
		{"unknown function", "sqrt(4)", ErrUnknownFunction},
		{"wrong arity", "abs(1, 2)", ErrInvalidArgument},
		{"bad regex", `word.text matches "("`, ErrInvalidArgument},
		{"quantile range", "quantile([1, 2], 1.5)", ErrInvalidArgument},
		{"clamp inverted", "clamp(1, 5, 0)", ErrInvalidArgument},
		{"mean of strings", `mean(["a"])`, ErrTypeMismatch},
		{"contains number in string", `word.text contains 1`, ErrTypeMismatch},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := evaluate(t, e, tt.expr, ctx)
			if err == nil {
				t.Fatalf("Evaluate(%q) expected error", tt.expr)
			}
			if !errors.Is(err, tt.wantErr) {
				t.Errorf("Evaluate(%q) error = %v, want %v", tt.expr, err, tt.wantErr)
			}
			var evalErr *EvaluationError
			if !errors.As(err, &evalErr) {
				t.Errorf("Evaluate(%q) error type = %T, want *EvaluationError", tt.expr, err)
			}
		})
	}
}

func TestEvaluate_ErrorLocation(t *testing.T) {
	tr := NewTranscript(testData())
	ctx := wordContext(tr, 0, 0, nil)

	loc := ast.Location{File: "t.yaml", Line: 4, Path: "rules[0].condition"}
	expr, perr := parser.ParseExpression("word.confidence > 0.5 && 1 / 0", loc)
	if perr != nil {
		t.Fatalf("ParseExpression() error = %v", perr)
	}

	_, err := NewEvaluator().Evaluate(expr, ctx)
	var evalErr *EvaluationError
	if !errors.As(err, &evalErr) {
		t.Fatalf("error = %v, want *EvaluationError", err)
	}
	if evalErr.Expression != "(1 / 0)" {
		t.Errorf("Expression = %q, want %q", evalErr.Expression, "(1 / 0)")
	}
	if evalErr.Location.Line != 4 || evalErr.Location.Column != 28 {
		t.Errorf("Location = %+v, want line 4 column 28", evalErr.Location)
	}
}

func TestHelpers(t *testing.T) {
	tr := NewTranscript(testData())
	ctx := wordContext(tr, 0, 1, nil)

	tests := []struct {
		expr string
		want Value
	}{
		{"abs(-2.5)", Number(2.5)},
		{"ceil(1.2)", Number(2)},
		{"floor(1.8)", Number(1)},
		{"round(2.5)", Number(3)},
		{"round(1.23456, 2)", Number(1.23)},
		{"clamp(1.4, 0, 1)", Number(1)},
		{"clamp(-1, 0, 1)", Number(0)},
		{"min(3, 1, 2)", Number(1)},
		{"max(3, 1, 2)", Number(3)},
		{"max([0.2, 0.9, 0.5])", Number(0.9)},
		{"min([])", Null()},
		{"between(0.5, 0, 1)", Bool(true)},
		{"between(1, 0, 1)", Bool(true)},
		{"between(1.01, 0, 1)", Bool(false)},
		{`len("héllo")`, Number(5)},
		{"len([1, 2, 3])", Number(3)},
		{"len(word.emotion)", Number(0)},
		{`lower("HeLLo")`, String("hello")},
		{`upper(word.text)`, String("THERE")},
		{`title("general kenobi")`, String("General Kenobi")},
		{"lower(word.emotion)", Null()},
		{`contains(["a", "b"], "b")`, Bool(true)},
		{`starts_with(word.text, "th")`, Bool(true)},
		{`ends_with(word.text, "re")`, Bool(true)},
		{`matches(word.text, "e{2}")`, Bool(false)},
		{"coalesce(word.emotion, segment.emotion)", String("happy")},
		{"coalesce(word.emotion, null)", Null()},
		{"is_null(word.emotion)", Bool(true)},
		{"is_null(prev)", Bool(false)},
		{"count([true, false, 1, 0])", Number(2)},
		{`count(["a", "b", "a"], "a")`, Number(2)},
		{"mean([1, 2, 3, 4])", Number(2.5)},
		{"mean([])", Null()},
		{"median([3, 1, 2])", Number(2)},
		{"median([4, 1, 3, 2])", Number(2.5)},
		{"stddev([5])", Number(0)},
		{"quantile([0.4, 0.7, 0.9, 0.95], 0.75)", Number(0.9)},
		{"quantile([0.95, 0.4, 0.9, 0.7], 0.5)", Number(0.7)},
		{"quantile(audioData.confidences, 1)", Number(0.95)},
		{"quantile([], 0.5)", Null()},
	}

	e := NewEvaluator()
	for _, tt := range tests {
		t.Run(tt.expr, func(t *testing.T) {
			got, err := evaluate(t, e, tt.expr, ctx)
			if err != nil {
				t.Fatalf("Evaluate(%q) error = %v", tt.expr, err)
			}
			if got.Kind() == KindNumber && tt.want.Kind() == KindNumber {
				g, _ := got.Number()
				w, _ := tt.want.Number()
				if math.Abs(g-w) > 1e-9 {
					t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
				}
				return
			}
			if !got.Equal(tt.want) {
				t.Errorf("Evaluate(%q) = %v, want %v", tt.expr, got, tt.want)
			}
		})
	}
}

func TestStddev(t *testing.T) {
	got, err := evaluate(t, NewEvaluator(), "stddev([2, 4, 4, 4, 5, 5, 7, 9])", NewVariableContext(NewTranscript(testData()), nil))
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	f, _ := got.Number()
	want := math.Sqrt(32.0 / 7.0)
	if math.Abs(f-want) > 1e-9 {
		t.Errorf("stddev = %v, want sample deviation %v", f, want)
	}
}

// Every helper the validator accepts has an implementation and vice versa.
func TestHelpers_MatchSchema(t *testing.T) {
	schema := validator.DefaultSchema()
	for name := range schema.Functions {
		if _, ok := helpers[name]; !ok {
			t.Errorf("schema function %q has no implementation", name)
		}
	}
	for name := range helpers {
		if _, ok := schema.Functions[name]; !ok {
			t.Errorf("helper %q is missing from the schema", name)
		}
	}
}

// Every field the validator accepts resolves on a fully populated context.
func TestResolve_MatchesSchema(t *testing.T) {
	tr := NewTranscript(testData())
	ctx := wordContext(tr, 0, 1, map[string]Value{})
	schema := validator.DefaultSchema()

	for root, rs := range schema.Roots {
		for field, kind := range rs.Fields {
			path := []string{field}
			if kind == validator.FieldMap {
				path = append(path, "anything")
			}
			ref := &ast.Ref{Root: root, Path: path}
			if _, err := ctx.Resolve(ref); err != nil {
				t.Errorf("Resolve(%s) error = %v", ref.Dotted(), err)
			}
		}
	}
}

func TestVariableContext(t *testing.T) {
	tr := NewTranscript(testData())
	ctx := NewVariableContext(tr, map[string]Value{"a": Number(1)})
	e := NewEvaluator()

	got, err := evaluate(t, e, "quantile(audioData.confidences, 0.5) + variables.a", ctx)
	if err != nil {
		t.Fatalf("Evaluate() error = %v", err)
	}
	if f, _ := got.Number(); math.Abs(f-1.7) > 1e-9 {
		t.Errorf("Evaluate() = %v, want 1.7", got)
	}

	if _, err := evaluate(t, e, "word.confidence", ctx); !errors.Is(err, ErrUnknownReference) {
		t.Errorf("word in variable context: error = %v, want ErrUnknownReference", err)
	}
}

func TestEvaluate_Counter(t *testing.T) {
	tr := NewTranscript(testData())
	ctx := wordContext(tr, 0, 0, nil)
	e := NewEvaluator()
	expr := parser.MustParseExpression("word.confidence > 0.5 && word.text == \"Hello\"")

	for i := 0; i < 3; i++ {
		if _, err := e.Evaluate(expr, ctx); err != nil {
			t.Fatalf("Evaluate() error = %v", err)
		}
	}
	if got := e.Evaluations(); got != 3 {
		t.Errorf("Evaluations() = %d, want 3", got)
	}
}

func TestEvaluate_Concurrent(t *testing.T) {
	tr := NewTranscript(testData())
	e := NewEvaluator()
	expr := parser.MustParseExpression(`word.text matches "^[A-Z]" && word.confidence > 0.5`)

	want := []bool{true, false, false, true}
	var wg sync.WaitGroup
	for round := 0; round < 8; round++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			i := 0
			for s := range tr.Data.Segments {
				for w := range tr.Data.Segments[s].Words {
					got, err := e.Truthy(expr, wordContext(tr, s, w, nil))
					if err != nil {
						t.Errorf("Truthy() error = %v", err)
						return
					}
					if got != want[i] {
						t.Errorf("word %d: Truthy() = %v, want %v", i, got, want[i])
					}
					i++
				}
			}
		}()
	}
	wg.Wait()

	if got := e.Evaluations(); got != 32 {
		t.Errorf("Evaluations() = %d, want 32", got)
	}
}

func BenchmarkEvaluate(b *testing.B) {
	tr := NewTranscript(testData())
	ctx := wordContext(tr, 1, 1, map[string]Value{"t": Number(0.8)})
	expr := parser.MustParseExpression(`word.confidence >= variables.t && word.emotion in ["surprised", "angry"] && !position.isFirst`)
	e := NewEvaluator()

	b.ResetTimer()
	for i := 0; i < b.N; i++ {
		if _, err := e.Evaluate(expr, ctx); err != nil {
			b.Fatal(err)
		}
	}
}
