package rules

import (
	"errors"
	"reflect"
	"testing"

	"mercator-hq/subtitler/pkg/animation/compiler"
	"mercator-hq/subtitler/pkg/animation/eval"
	"mercator-hq/subtitler/pkg/stl/ast"
	"mercator-hq/subtitler/pkg/transcript"
)

func testTranscript() *eval.Transcript {
	return eval.NewTranscript(&transcript.AudioAnalysisData{
		Segments: []transcript.Segment{{
			Text: "wow okay", Start: 0, End: 1,
			Words: []transcript.Word{
				{Text: "wow", Start: 0, End: 0.5, Confidence: 0.9, Emotion: "surprised"},
				{Text: "okay", Start: 0.5, End: 1, Confidence: 0.3},
			},
		}},
	})
}

type ruleDef struct {
	id        string
	condition string
	priority  float64
	group     string
	intensity *float64
	expr      string
}

func compileRules(t *testing.T, defs ...ruleDef) []*compiler.CompiledRule {
	t.Helper()
	tpl := &ast.Template{ID: "test"}
	for _, d := range defs {
		tpl.Rules = append(tpl.Rules, &ast.Rule{
			ID:        d.id,
			Condition: d.condition,
			Priority:  d.priority,
			Group:     d.group,
			Animation: ast.AnimationSpec{
				PluginName:    "p-" + d.id,
				Intensity:     d.intensity,
				IntensityExpr: d.expr,
			},
		})
	}
	compiled := compiler.Compile(tpl)
	if !compiled.Valid() {
		t.Fatalf("Compile() errors = %v", compiled.ValidationErrors)
	}
	return compiled.Rules
}

func selectedIDs(r *Result) []string {
	ids := make([]string, 0, len(r.Selected))
	for _, s := range r.Selected {
		ids = append(ids, s.Rule.ID)
	}
	return ids
}

func float(f float64) *float64 { return &f }

func TestEvaluate_ConflictResolution(t *testing.T) {
	tests := []struct {
		name         string
		rules        []ruleDef
		wantSelected []string
		wantConflict []string
		wantReason   string
	}{
		{
			name: "priority wins",
			rules: []ruleDef{
				{id: "a", condition: "true", priority: 1},
				{id: "b", condition: "true", priority: 5},
			},
			wantSelected: []string{"b"},
			wantConflict: []string{"b", "a"},
			wantReason:   "higher priority (5 > 1)",
		},
		{
			name: "specificity breaks priority ties",
			rules: []ruleDef{
				{id: "a", condition: "word.confidence > 0.5", priority: 1},
				{id: "b", condition: `word.confidence > 0.5 and word.emotion == "surprised"`, priority: 1},
			},
			wantSelected: []string{"b"},
			wantConflict: []string{"b", "a"},
			wantReason:   "more specific condition (2 > 1 clauses)",
		},
		{
			name: "declaration order breaks remaining ties",
			rules: []ruleDef{
				{id: "a", condition: "true"},
				{id: "b", condition: "true"},
				{id: "c", condition: "true"},
			},
			wantSelected: []string{"a"},
			wantConflict: []string{"a", "b", "c"},
			wantReason:   "declared first (rule 0 before rule 1)",
		},
		{
			name: "non-matching rules do not conflict",
			rules: []ruleDef{
				{id: "a", condition: "false", priority: 10},
				{id: "b", condition: "true"},
			},
			wantSelected: []string{"b"},
		},
		{
			name: "groups select independently",
			rules: []ruleDef{
				{id: "a", condition: "true", priority: 1},
				{id: "b", condition: "true", priority: 3, group: "emotion"},
				{id: "c", condition: "true", priority: 2},
			},
			wantSelected: []string{"b", "c"},
			wantConflict: []string{"c", "a"},
			wantReason:   "higher priority (2 > 1)",
		},
	}

	tr := testTranscript()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			engine := NewEngine(nil, Options{})
			result := engine.Evaluate(compileRules(t, tt.rules...), tr.WordContext(0, 0, 0, nil))

			if got := selectedIDs(result); !reflect.DeepEqual(got, tt.wantSelected) {
				t.Errorf("selected = %v, want %v", got, tt.wantSelected)
			}
			if result.Stats.Evaluations != len(tt.rules) {
				t.Errorf("Evaluations = %d, want %d", result.Stats.Evaluations, len(tt.rules))
			}

			if tt.wantConflict == nil {
				if len(result.Conflicts) != 0 {
					t.Errorf("Conflicts = %+v, want none", result.Conflicts)
				}
				return
			}
			if len(result.Conflicts) != 1 {
				t.Fatalf("Conflicts = %+v, want 1", result.Conflicts)
			}
			c := result.Conflicts[0]
			if !reflect.DeepEqual(c.ConflictingRules, tt.wantConflict) {
				t.Errorf("ConflictingRules = %v, want %v", c.ConflictingRules, tt.wantConflict)
			}
			if c.Winner != tt.wantConflict[0] {
				t.Errorf("Winner = %q, want %q", c.Winner, tt.wantConflict[0])
			}
			if c.Reason != tt.wantReason {
				t.Errorf("Reason = %q, want %q", c.Reason, tt.wantReason)
			}
		})
	}
}

func TestEvaluate_FailureIsolation(t *testing.T) {
	rules := compileRules(t,
		ruleDef{id: "broken", condition: "word.text > 1", priority: 10},
		ruleDef{id: "ok", condition: "word.confidence > 0.5"},
	)
	engine := NewEngine(nil, Options{})
	result := engine.Evaluate(rules, testTranscript().WordContext(0, 0, 0, nil))

	if got := selectedIDs(result); !reflect.DeepEqual(got, []string{"ok"}) {
		t.Errorf("selected = %v, want [ok]", got)
	}
	if len(result.Errors) != 1 {
		t.Fatalf("Errors = %v, want exactly one", result.Errors)
	}
	ruleErr := result.Errors[0]
	if ruleErr.RuleID != "broken" || ruleErr.Phase != PhaseCondition {
		t.Errorf("RuleError = %+v", ruleErr)
	}
	if !errors.Is(ruleErr, eval.ErrTypeMismatch) {
		t.Errorf("cause = %v, want ErrTypeMismatch", ruleErr.Cause)
	}
	if result.Stats.Evaluations != 2 || result.Stats.Errors != 1 || result.Stats.Matches != 1 {
		t.Errorf("Stats = %+v", result.Stats)
	}
}

func TestEvaluate_Intensity(t *testing.T) {
	tests := []struct {
		name    string
		rule    ruleDef
		want    float64
		wantErr bool
	}{
		{"declared", ruleDef{id: "r", condition: "true", intensity: float(0.4)}, 0.4, false},
		{"default", ruleDef{id: "r", condition: "true"}, 1, false},
		{"expression", ruleDef{id: "r", condition: "true", expr: "word.confidence / 2"}, 0.45, false},
		{"expression clamped", ruleDef{id: "r", condition: "true", expr: "word.confidence * 10"}, 1, false},
		{"non-numeric expression", ruleDef{id: "r", condition: "true", expr: "word.text"}, 1, true},
		{"failing expression", ruleDef{id: "r", condition: "true", expr: "1 / 0"}, 1, true},
	}

	tr := testTranscript()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := NewEngine(nil, Options{}).Evaluate(compileRules(t, tt.rule), tr.WordContext(0, 0, 0, nil))
			if len(result.Selected) != 1 {
				t.Fatalf("selected = %v", selectedIDs(result))
			}
			sel := result.Selected[0]
			if diff := sel.Intensity - tt.want; diff > 1e-9 || diff < -1e-9 {
				t.Errorf("Intensity = %v, want %v", sel.Intensity, tt.want)
			}
			if sel.MatchStrength != sel.Intensity {
				t.Errorf("MatchStrength = %v, want %v", sel.MatchStrength, sel.Intensity)
			}
			if gotErr := len(result.Errors) > 0; gotErr != tt.wantErr {
				t.Errorf("errors = %v, wantErr %v", result.Errors, tt.wantErr)
			}
			if tt.wantErr && result.Errors[0].Phase != PhaseIntensity {
				t.Errorf("Phase = %q, want intensity", result.Errors[0].Phase)
			}
		})
	}
}

func TestEvaluate_Profiling(t *testing.T) {
	rules := compileRules(t,
		ruleDef{id: "a", condition: "word.confidence > 0.5"},
		ruleDef{id: "b", condition: "word.confidence > 0.95"},
	)
	ctx := testTranscript().WordContext(0, 0, 0, nil)

	plain := NewEngine(nil, Options{}).Evaluate(rules, ctx)
	if len(plain.Timings) != 0 {
		t.Errorf("Timings without profiling = %v", plain.Timings)
	}

	profiled := NewEngine(nil, Options{Profile: true}).Evaluate(rules, ctx)
	if len(profiled.Timings) != 2 {
		t.Fatalf("Timings = %v, want 2", profiled.Timings)
	}
	if !profiled.Timings[0].Matched || profiled.Timings[1].Matched {
		t.Errorf("Timings = %+v", profiled.Timings)
	}
}

func TestEvaluate_Deterministic(t *testing.T) {
	rules := compileRules(t,
		ruleDef{id: "a", condition: "true", priority: 2},
		ruleDef{id: "b", condition: "true", priority: 2, group: "x"},
		ruleDef{id: "c", condition: "true", priority: 2},
		ruleDef{id: "d", condition: "true", priority: 2, group: "x"},
	)
	ctx := testTranscript().WordContext(0, 1, 1, nil)
	engine := NewEngine(nil, Options{})

	first := engine.Evaluate(rules, ctx)
	for i := 0; i < 20; i++ {
		again := engine.Evaluate(rules, ctx)
		if !reflect.DeepEqual(selectedIDs(again), selectedIDs(first)) {
			t.Fatalf("run %d selected %v, first run %v", i, selectedIDs(again), selectedIDs(first))
		}
		if !reflect.DeepEqual(again.Conflicts, first.Conflicts) {
			t.Fatalf("run %d conflicts differ", i)
		}
	}
	if got := selectedIDs(first); !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Errorf("selected = %v, want [a b]", got)
	}
}

func TestOutranks(t *testing.T) {
	a := &compiler.CompiledRule{ID: "a", Priority: 1, Specificity: 1, Index: 0}
	b := &compiler.CompiledRule{ID: "b", Priority: 1, Specificity: 2, Index: 1}
	c := &compiler.CompiledRule{ID: "c", Priority: 2, Specificity: 1, Index: 2}

	rules := []*compiler.CompiledRule{a, b, c}
	SortByRank(rules)
	if rules[0] != c || rules[1] != b || rules[2] != a {
		t.Errorf("order = %s %s %s, want c b a", rules[0].ID, rules[1].ID, rules[2].ID)
	}
	if Outranks(a, a) {
		t.Error("a rule must not outrank itself")
	}
}
