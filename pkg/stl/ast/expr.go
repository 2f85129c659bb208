package ast

import (
	"strconv"
	"strings"
)

// Operator represents a unary or binary operator in an expression.
type Operator string

const (
	OperatorAdd          Operator = "+"
	OperatorSub          Operator = "-"
	OperatorMul          Operator = "*"
	OperatorDiv          Operator = "/"
	OperatorMod          Operator = "%"
	OperatorEqual        Operator = "=="
	OperatorNotEqual     Operator = "!="
	OperatorLessThan     Operator = "<"
	OperatorGreaterThan  Operator = ">"
	OperatorLessEqual    Operator = "<="
	OperatorGreaterEqual Operator = ">="
	OperatorAnd          Operator = "&&"
	OperatorOr           Operator = "||"
	OperatorNot          Operator = "!"
	OperatorIn           Operator = "in"
	OperatorContains     Operator = "contains"
	OperatorMatches      Operator = "matches" // Regex match
	OperatorStartsWith   Operator = "starts_with"
	OperatorEndsWith     Operator = "ends_with"
)

// IsLogical returns true for && and ||.
func (o Operator) IsLogical() bool {
	return o == OperatorAnd || o == OperatorOr
}

// IsComparison returns true for operators that produce a boolean from two operands.
func (o Operator) IsComparison() bool {
	switch o {
	case OperatorEqual, OperatorNotEqual, OperatorLessThan, OperatorGreaterThan,
		OperatorLessEqual, OperatorGreaterEqual, OperatorIn, OperatorContains,
		OperatorMatches, OperatorStartsWith, OperatorEndsWith:
		return true
	}
	return false
}

// Expr is a node of the closed expression AST. Evaluation is by structural
// recursion over these node types only.
type Expr interface {
	// Pos returns the location of the node within its expression.
	Pos() Location
	// String renders the node back to expression syntax.
	String() string

	exprNode()
}

// LiteralKind identifies the type of a literal.
type LiteralKind string

const (
	LiteralNumber  LiteralKind = "number"
	LiteralString  LiteralKind = "string"
	LiteralBoolean LiteralKind = "boolean"
	LiteralNull    LiteralKind = "null"
)

// Literal is a constant value.
type Literal struct {
	Kind     LiteralKind
	Number   float64
	Str      string
	Bool     bool
	Location Location
}

// Ref is a reference into the evaluation context: Root is one of word,
// segment, audioData, variables, position, prev or next; Path holds the
// remaining dotted segments.
type Ref struct {
	Root     string
	Path     []string
	Location Location
}

// List is a list literal, e.g. ["happy", "excited"].
type List struct {
	Elems    []Expr
	Location Location
}

// Unary is a prefix operation (- or !).
type Unary struct {
	Op       Operator
	X        Expr
	Location Location
}

// Binary is an infix operation.
type Binary struct {
	Op       Operator
	Left     Expr
	Right    Expr
	Location Location
}

// Call is a helper function call.
type Call struct {
	Name     string
	Args     []Expr
	Location Location
}

func (*Literal) exprNode() {}
func (*Ref) exprNode()     {}
func (*List) exprNode()    {}
func (*Unary) exprNode()   {}
func (*Binary) exprNode()  {}
func (*Call) exprNode()    {}

func (e *Literal) Pos() Location { return e.Location }
func (e *Ref) Pos() Location     { return e.Location }
func (e *List) Pos() Location    { return e.Location }
func (e *Unary) Pos() Location   { return e.Location }
func (e *Binary) Pos() Location  { return e.Location }
func (e *Call) Pos() Location    { return e.Location }

func (e *Literal) String() string {
	switch e.Kind {
	case LiteralNumber:
		return strconv.FormatFloat(e.Number, 'g', -1, 64)
	case LiteralString:
		return strconv.Quote(e.Str)
	case LiteralBoolean:
		return strconv.FormatBool(e.Bool)
	default:
		return "null"
	}
}

// Dotted returns the full reference path, e.g. "word.confidence".
func (e *Ref) Dotted() string {
	if len(e.Path) == 0 {
		return e.Root
	}
	return e.Root + "." + strings.Join(e.Path, ".")
}

func (e *Ref) String() string { return e.Dotted() }

func (e *List) String() string {
	parts := make([]string, len(e.Elems))
	for i, el := range e.Elems {
		parts[i] = el.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func (e *Unary) String() string {
	return string(e.Op) + e.X.String()
}

func (e *Binary) String() string {
	return "(" + e.Left.String() + " " + string(e.Op) + " " + e.Right.String() + ")"
}

func (e *Call) String() string {
	parts := make([]string, len(e.Args))
	for i, a := range e.Args {
		parts[i] = a.String()
	}
	return e.Name + "(" + strings.Join(parts, ", ") + ")"
}

// Specificity counts the leaf predicates of a condition joined by logical
// operators. "a > 1 && (b < 2 || c)" has specificity 3. A condition with no
// logical operator has specificity 1; a nil condition has 0.
func Specificity(e Expr) int {
	switch n := e.(type) {
	case nil:
		return 0
	case *Binary:
		if n.Op.IsLogical() {
			return Specificity(n.Left) + Specificity(n.Right)
		}
		return 1
	case *Unary:
		if n.Op == OperatorNot {
			return Specificity(n.X)
		}
		return 1
	default:
		return 1
	}
}

// VariableRefs returns the names of variables referenced by an expression,
// in first-occurrence order without duplicates.
func VariableRefs(e Expr) []string {
	var names []string
	seen := make(map[string]bool)
	Inspect(e, func(n Expr) bool {
		if ref, ok := n.(*Ref); ok && ref.Root == "variables" && len(ref.Path) > 0 {
			if !seen[ref.Path[0]] {
				seen[ref.Path[0]] = true
				names = append(names, ref.Path[0])
			}
		}
		return true
	})
	return names
}
