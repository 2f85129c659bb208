package eval

import (
	"fmt"
	"math"
	"regexp"
	"strings"
	"sync"
	"sync/atomic"

	"mercator-hq/subtitler/pkg/stl/ast"
)

// Evaluator evaluates expression ASTs by structural recursion. Evaluation is
// pure with respect to the context. The evaluator itself only keeps an
// invocation counter and a compiled-regex cache, so one Evaluator may be
// shared by concurrent callers.
type Evaluator struct {
	evaluations atomic.Int64
	regexes     sync.Map // pattern -> *regexp.Regexp
}

// NewEvaluator creates a new evaluator.
func NewEvaluator() *Evaluator {
	return &Evaluator{}
}

// Evaluations returns the number of top-level Evaluate calls made so far.
func (e *Evaluator) Evaluations() int64 {
	return e.evaluations.Load()
}

// Evaluate evaluates an expression against a context. Failures are returned
// as *EvaluationError.
func (e *Evaluator) Evaluate(expr ast.Expr, ctx *Context) (Value, error) {
	e.evaluations.Add(1)
	if expr == nil {
		return Null(), &EvaluationError{Expression: "<nil>", Cause: fmt.Errorf("%w: empty expression", ErrInvalidArgument)}
	}
	return e.eval(expr, ctx)
}

// Truthy evaluates a condition and reports its truthiness.
func (e *Evaluator) Truthy(expr ast.Expr, ctx *Context) (bool, error) {
	v, err := e.Evaluate(expr, ctx)
	if err != nil {
		return false, err
	}
	return v.Truthy(), nil
}

func (e *Evaluator) eval(expr ast.Expr, ctx *Context) (Value, error) {
	switch n := expr.(type) {
	case *ast.Literal:
		switch n.Kind {
		case ast.LiteralNumber:
			return Number(n.Number), nil
		case ast.LiteralString:
			return String(n.Str), nil
		case ast.LiteralBoolean:
			return Bool(n.Bool), nil
		default:
			return Null(), nil
		}

	case *ast.Ref:
		v, err := ctx.Resolve(n)
		if err != nil {
			return Null(), wrap(n, err)
		}
		return v, nil

	case *ast.List:
		items := make([]Value, len(n.Elems))
		for i, el := range n.Elems {
			v, err := e.eval(el, ctx)
			if err != nil {
				return Null(), err
			}
			items[i] = v
		}
		return List(items...), nil

	case *ast.Unary:
		return e.evalUnary(n, ctx)

	case *ast.Binary:
		return e.evalBinary(n, ctx)

	case *ast.Call:
		return e.evalCall(n, ctx)
	}

	return Null(), wrap(expr, fmt.Errorf("%w: unsupported expression node %T", ErrInvalidArgument, expr))
}

func (e *Evaluator) evalUnary(n *ast.Unary, ctx *Context) (Value, error) {
	x, err := e.eval(n.X, ctx)
	if err != nil {
		return Null(), err
	}

	switch n.Op {
	case ast.OperatorNot:
		return Bool(!x.Truthy()), nil
	case ast.OperatorSub:
		f, ok := x.Number()
		if !ok {
			return Null(), wrap(n, mismatch("cannot negate %s", x.Kind()))
		}
		return Number(-f), nil
	}
	return Null(), wrap(n, fmt.Errorf("%w: unknown unary operator %q", ErrInvalidArgument, n.Op))
}

func (e *Evaluator) evalBinary(n *ast.Binary, ctx *Context) (Value, error) {
	left, err := e.eval(n.Left, ctx)
	if err != nil {
		return Null(), err
	}

	// Short-circuit logical operators.
	switch n.Op {
	case ast.OperatorAnd:
		if !left.Truthy() {
			return Bool(false), nil
		}
		right, err := e.eval(n.Right, ctx)
		if err != nil {
			return Null(), err
		}
		return Bool(right.Truthy()), nil
	case ast.OperatorOr:
		if left.Truthy() {
			return Bool(true), nil
		}
		right, err := e.eval(n.Right, ctx)
		if err != nil {
			return Null(), err
		}
		return Bool(right.Truthy()), nil
	}

	right, err := e.eval(n.Right, ctx)
	if err != nil {
		return Null(), err
	}

	v, err := e.apply(n.Op, left, right)
	if err != nil {
		return Null(), wrap(n, err)
	}
	return v, nil
}

// apply applies a non-logical binary operator.
func (e *Evaluator) apply(op ast.Operator, left, right Value) (Value, error) {
	switch op {
	case ast.OperatorEqual:
		return Bool(left.Equal(right)), nil
	case ast.OperatorNotEqual:
		return Bool(!left.Equal(right)), nil

	case ast.OperatorLessThan, ast.OperatorGreaterThan, ast.OperatorLessEqual, ast.OperatorGreaterEqual:
		c, err := compare(op, left, right)
		if err != nil {
			return Null(), err
		}
		return Bool(c), nil

	case ast.OperatorAdd:
		if ls, ok := left.Str(); ok {
			if rs, ok := right.Str(); ok {
				return String(ls + rs), nil
			}
		}
		return arithmetic(op, left, right)
	case ast.OperatorSub, ast.OperatorMul, ast.OperatorDiv, ast.OperatorMod:
		return arithmetic(op, left, right)

	case ast.OperatorIn:
		return contains(right, left)
	case ast.OperatorContains:
		return contains(left, right)
	case ast.OperatorMatches:
		return e.matches(left, right)
	case ast.OperatorStartsWith, ast.OperatorEndsWith:
		if left.IsNull() {
			return Bool(false), nil
		}
		ls, lok := left.Str()
		rs, rok := right.Str()
		if !lok || !rok {
			return Null(), mismatch("%s needs two strings, got %s and %s", op, left.Kind(), right.Kind())
		}
		if op == ast.OperatorStartsWith {
			return Bool(strings.HasPrefix(ls, rs)), nil
		}
		return Bool(strings.HasSuffix(ls, rs)), nil
	}

	return Null(), fmt.Errorf("%w: unknown operator %q", ErrInvalidArgument, op)
}

// compare orders two numbers or two strings. Any other combination is a
// type mismatch; nothing is coerced.
func compare(op ast.Operator, left, right Value) (bool, error) {
	var c int
	switch {
	case left.Kind() == KindNumber && right.Kind() == KindNumber:
		l, r := left.n, right.n
		if math.IsNaN(l) || math.IsNaN(r) {
			return false, nil
		}
		switch {
		case l < r:
			c = -1
		case l > r:
			c = 1
		}
	case left.Kind() == KindString && right.Kind() == KindString:
		c = strings.Compare(left.s, right.s)
	default:
		return false, mismatch("cannot compare %s %s %s", left.Kind(), op, right.Kind())
	}

	switch op {
	case ast.OperatorLessThan:
		return c < 0, nil
	case ast.OperatorGreaterThan:
		return c > 0, nil
	case ast.OperatorLessEqual:
		return c <= 0, nil
	default:
		return c >= 0, nil
	}
}

func arithmetic(op ast.Operator, left, right Value) (Value, error) {
	l, lok := left.Number()
	r, rok := right.Number()
	if !lok || !rok {
		return Null(), mismatch("operator %s needs two numbers, got %s and %s", op, left.Kind(), right.Kind())
	}

	switch op {
	case ast.OperatorAdd:
		return Number(l + r), nil
	case ast.OperatorSub:
		return Number(l - r), nil
	case ast.OperatorMul:
		return Number(l * r), nil
	case ast.OperatorDiv:
		if r == 0 {
			return Null(), ErrDivisionByZero
		}
		return Number(l / r), nil
	case ast.OperatorMod:
		if r == 0 {
			return Null(), ErrDivisionByZero
		}
		return Number(math.Mod(l, r)), nil
	}
	return Null(), fmt.Errorf("%w: unknown operator %q", ErrInvalidArgument, op)
}

// contains reports whether a list holds an element or a string holds a
// substring.
func contains(haystack, needle Value) (Value, error) {
	switch haystack.Kind() {
	case KindList:
		for _, item := range haystack.list {
			if item.Equal(needle) {
				return Bool(true), nil
			}
		}
		return Bool(false), nil
	case KindString:
		s, ok := needle.Str()
		if !ok {
			return Null(), mismatch("cannot look for %s in a string", needle.Kind())
		}
		return Bool(strings.Contains(haystack.s, s)), nil
	case KindNull:
		return Bool(false), nil
	}
	return Null(), mismatch("cannot look inside %s", haystack.Kind())
}

func (e *Evaluator) matches(subject, pattern Value) (Value, error) {
	if subject.IsNull() {
		return Bool(false), nil
	}
	s, sok := subject.Str()
	p, pok := pattern.Str()
	if !sok || !pok {
		return Null(), mismatch("matches needs a string and a pattern, got %s and %s", subject.Kind(), pattern.Kind())
	}
	re, err := e.regexp(p)
	if err != nil {
		return Null(), err
	}
	return Bool(re.MatchString(s)), nil
}

// regexp compiles a pattern once and caches it.
func (e *Evaluator) regexp(pattern string) (*regexp.Regexp, error) {
	if cached, ok := e.regexes.Load(pattern); ok {
		return cached.(*regexp.Regexp), nil
	}
	re, err := regexp.Compile(pattern)
	if err != nil {
		return nil, invalid("bad pattern %q: %v", pattern, err)
	}
	actual, _ := e.regexes.LoadOrStore(pattern, re)
	return actual.(*regexp.Regexp), nil
}

func (e *Evaluator) evalCall(n *ast.Call, ctx *Context) (Value, error) {
	fn, ok := helpers[n.Name]
	if !ok {
		return Null(), wrap(n, fmt.Errorf("%w: %s", ErrUnknownFunction, n.Name))
	}

	args := make([]Value, len(n.Args))
	for i, a := range n.Args {
		v, err := e.eval(a, ctx)
		if err != nil {
			return Null(), err
		}
		args[i] = v
	}

	if arity, known := functionArity[n.Name]; known && !arity.Accepts(len(args)) {
		return Null(), wrap(n, invalid("wrong number of arguments to %s: %d", n.Name, len(args)))
	}

	v, err := fn(e, args)
	if err != nil {
		return Null(), wrap(n, fmt.Errorf("%s: %w", n.Name, err))
	}
	return v, nil
}
