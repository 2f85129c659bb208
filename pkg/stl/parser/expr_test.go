package parser

import (
	"strings"
	"testing"

	"mercator-hq/subtitler/pkg/stl/ast"
	stlErrors "mercator-hq/subtitler/pkg/stl/errors"
)

func TestParseExpression_Valid(t *testing.T) {
	tests := []struct {
		name string
		src  string
		want string // canonical String() rendering
	}{
		{name: "comparison", src: "word.confidence >= 0.8", want: "(word.confidence >= 0.8)"},
		{name: "keyword and", src: "word.confidence >= 0.8 and word.duration > 0.5", want: "((word.confidence >= 0.8) && (word.duration > 0.5))"},
		{name: "symbol or", src: "a.b || c.d", want: "(a.b || c.d)"},
		{name: "and binds tighter than or", src: "x.a or x.b and x.c", want: "(x.a || (x.b && x.c))"},
		{name: "not keyword", src: "not position.isLastInSegment", want: "!position.isLastInSegment"},
		{name: "not binds looser than comparison", src: "not word.confidence > 0.5", want: "!(word.confidence > 0.5)"},
		{name: "bang", src: "!word.emotion", want: "!word.emotion"},
		{name: "arithmetic precedence", src: "1 + 2 * 3", want: "(1 + (2 * 3))"},
		{name: "parentheses", src: "(1 + 2) * 3", want: "((1 + 2) * 3)"},
		{name: "negative literal", src: "-0.5", want: "-0.5"},
		{name: "negated ref", src: "-word.start", want: "-word.start"},
		{name: "single quoted string", src: "word.emotion == 'happy'", want: `(word.emotion == "happy")`},
		{name: "in list", src: `word.emotion in ["happy", "excited"]`, want: `(word.emotion in ["happy", "excited"])`},
		{name: "contains operator", src: `word.text contains "!"`, want: `(word.text contains "!")`},
		{name: "matches operator", src: `word.text matches "^[A-Z]"`, want: `(word.text matches "^[A-Z]")`},
		{name: "call", src: "clamp(word.confidence * 2, 0, 1)", want: "clamp((word.confidence * 2), 0, 1)"},
		{name: "call with no args", src: "now()", want: "now()"},
		{name: "helper named like operator", src: `starts_with(word.text, "Gen")`, want: `starts_with(word.text, "Gen")`},
		{name: "nested path", src: "word.features.loudness > 0.7", want: "(word.features.loudness > 0.7)"},
		{name: "booleans and null", src: "true && false || null", want: "((true && false) || null)"},
		{name: "exponent", src: "1e3 > 2.5E-1", want: "(1000 > 0.25)"},
		{name: "empty list", src: "len([]) == 0", want: "(len([]) == 0)"},
		{name: "regex escape kept", src: `word.text matches "\d+"`, want: `(word.text matches "\\d+")`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			expr, err := ParseExpression(tt.src, ast.Location{})
			if err != nil {
				t.Fatalf("ParseExpression(%q) error: %v", tt.src, err)
			}
			if got := expr.String(); got != tt.want {
				t.Errorf("String() = %q, want %q", got, tt.want)
			}
		})
	}
}

func TestParseExpression_Errors(t *testing.T) {
	tests := []struct {
		name       string
		src        string
		wantColumn int
		wantMsg    string
	}{
		{name: "empty", src: "   ", wantColumn: 0, wantMsg: "empty"},
		{name: "single equals", src: "word.confidence = 1", wantColumn: 17, wantMsg: "'=='"},
		{name: "dangling operator", src: "word.confidence >=", wantColumn: 19, wantMsg: "unexpected end"},
		{name: "unclosed paren", src: "(1 + 2", wantColumn: 7, wantMsg: "expected ')'"},
		{name: "unterminated string", src: `word.text == "abc`, wantColumn: 14, wantMsg: "unterminated"},
		{name: "chained comparison", src: "0 < word.start < 1", wantColumn: 16, wantMsg: "chained"},
		{name: "trailing tokens", src: "word.start 1", wantColumn: 12, wantMsg: "after end"},
		{name: "columns count runes", src: `word.text == "héllo" x`, wantColumn: 22, wantMsg: "after end"},
		{name: "unclosed paren after accents", src: `("né" + "è"`, wantColumn: 12, wantMsg: "expected ')'"},
		{name: "missing field", src: "word.", wantColumn: 6, wantMsg: "field name"},
		{name: "operator without left side", src: "contains 'x'", wantColumn: 1, wantMsg: "left operand"},
		{name: "bad character", src: "word.start # 1", wantColumn: 12, wantMsg: "unexpected character"},
		{name: "unclosed list", src: "[1, 2", wantColumn: 6, wantMsg: "expected ',' or ']'"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			loc := ast.Location{Path: "rules[0].condition"}
			_, err := ParseExpression(tt.src, loc)
			if err == nil {
				t.Fatalf("ParseExpression(%q) succeeded, want error", tt.src)
			}
			if err.Type != stlErrors.ErrorTypeSyntax {
				t.Errorf("Type = %q, want %q", err.Type, stlErrors.ErrorTypeSyntax)
			}
			if err.Location.Column != tt.wantColumn {
				t.Errorf("Column = %d, want %d", err.Location.Column, tt.wantColumn)
			}
			if err.Location.Path != loc.Path {
				t.Errorf("Path = %q, want %q", err.Location.Path, loc.Path)
			}
			if !strings.Contains(err.Message, tt.wantMsg) {
				t.Errorf("Message = %q, want it to contain %q", err.Message, tt.wantMsg)
			}
		})
	}
}

func TestParseExpression_DepthLimit(t *testing.T) {
	src := strings.Repeat("(", maxExprDepth+1) + "1" + strings.Repeat(")", maxExprDepth+1)
	if _, err := ParseExpression(src, ast.Location{}); err == nil {
		t.Fatal("ParseExpression() succeeded on over-nested input, want error")
	}

	ok := strings.Repeat("(", 10) + "1" + strings.Repeat(")", 10)
	if _, err := ParseExpression(ok, ast.Location{}); err != nil {
		t.Fatalf("ParseExpression() error on moderate nesting: %v", err)
	}
}

func TestParseExpression_Locations(t *testing.T) {
	expr, err := ParseExpression("word.confidence >= variables.threshold", ast.Location{File: "t.yaml", Line: 4})
	if err != nil {
		t.Fatalf("ParseExpression() error: %v", err)
	}

	bin, ok := expr.(*ast.Binary)
	if !ok {
		t.Fatalf("expr is %T, want *ast.Binary", expr)
	}
	if bin.Location.Column != 17 || bin.Location.Line != 4 {
		t.Errorf("operator location = %v, want line 4 column 17", bin.Location)
	}
	right := bin.Right.(*ast.Ref)
	if right.Root != "variables" || len(right.Path) != 1 || right.Path[0] != "threshold" {
		t.Errorf("right = %#v, want variables.threshold", right)
	}
	if right.Location.Column != 20 {
		t.Errorf("right column = %d, want 20", right.Location.Column)
	}
}

func TestSpecificityOfParsedConditions(t *testing.T) {
	tests := []struct {
		src  string
		want int
	}{
		{"word.confidence >= 0.8", 1},
		{"word.confidence >= 0.8 and word.duration > 0.5", 2},
		{"word.confidence >= 0.8 and (word.duration > 0.5 or word.emotion == 'happy')", 3},
		{"not (a.x and a.y)", 2},
	}

	for _, tt := range tests {
		if got := ast.Specificity(MustParseExpression(tt.src)); got != tt.want {
			t.Errorf("Specificity(%q) = %d, want %d", tt.src, got, tt.want)
		}
	}
}
