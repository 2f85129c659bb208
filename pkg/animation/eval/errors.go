package eval

import (
	"errors"
	"fmt"

	"mercator-hq/subtitler/pkg/stl/ast"
)

var (
	// ErrUnknownReference is returned when a reference cannot be resolved
	// against the context.
	ErrUnknownReference = errors.New("unknown reference")

	// ErrTypeMismatch is returned when an operator or helper receives
	// operands of the wrong kind.
	ErrTypeMismatch = errors.New("type mismatch")

	// ErrDivisionByZero is returned for "/" and "%" with a zero divisor.
	ErrDivisionByZero = errors.New("division by zero")

	// ErrUnknownFunction is returned when a helper does not exist.
	ErrUnknownFunction = errors.New("unknown function")

	// ErrInvalidArgument is returned when a helper argument is out of its
	// domain (bad regex, quantile outside [0, 1], ...).
	ErrInvalidArgument = errors.New("invalid argument")
)

// EvaluationError reports a failed evaluation. It carries the offending
// expression and its location; Cause wraps one of the sentinel errors.
type EvaluationError struct {
	Expression string
	Location   ast.Location
	Cause      error
}

// Error implements the error interface.
func (e *EvaluationError) Error() string {
	if e.Location.IsValid() {
		return fmt.Sprintf("evaluation of %s failed at %s: %v", e.Expression, e.Location, e.Cause)
	}
	return fmt.Sprintf("evaluation of %s failed: %v", e.Expression, e.Cause)
}

// Unwrap returns the underlying cause.
func (e *EvaluationError) Unwrap() error {
	return e.Cause
}

// wrap attaches node information to an error once, at the innermost node
// that produced it.
func wrap(node ast.Expr, err error) error {
	var evalErr *EvaluationError
	if errors.As(err, &evalErr) {
		return err
	}
	return &EvaluationError{
		Expression: node.String(),
		Location:   node.Pos(),
		Cause:      err,
	}
}

func mismatch(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrTypeMismatch}, args...)...)
}

func invalid(format string, args ...any) error {
	return fmt.Errorf("%w: "+format, append([]any{ErrInvalidArgument}, args...)...)
}
