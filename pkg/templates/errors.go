package templates

import (
	"fmt"
	"strings"
)

// LoadError reports a template document that could not be read or parsed.
type LoadError struct {
	// FilePath is the document that failed to load.
	FilePath string

	// Message describes the problem.
	Message string

	// Cause is the underlying error, often a *stl/errors.Error or ErrorList.
	Cause error
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("failed to load template %q: %s: %v", e.FilePath, e.Message, e.Cause)
	}
	return fmt.Sprintf("failed to load template %q: %s", e.FilePath, e.Message)
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Cause
}

// ErrorList collects the errors of a directory load. Templates that loaded
// are still returned next to it.
type ErrorList struct {
	Errors []error
}

// Add appends an error. Nil errors are ignored.
func (l *ErrorList) Add(err error) {
	if err != nil {
		l.Errors = append(l.Errors, err)
	}
}

// HasErrors reports whether any error was added.
func (l *ErrorList) HasErrors() bool {
	return len(l.Errors) > 0
}

// Error implements the error interface.
func (l *ErrorList) Error() string {
	switch len(l.Errors) {
	case 0:
		return "no errors"
	case 1:
		return l.Errors[0].Error()
	}
	msgs := make([]string, len(l.Errors))
	for i, err := range l.Errors {
		msgs[i] = err.Error()
	}
	return fmt.Sprintf("%d templates failed to load:\n  %s", len(l.Errors), strings.Join(msgs, "\n  "))
}

// Unwrap exposes the individual errors to errors.Is and errors.As.
func (l *ErrorList) Unwrap() []error {
	return l.Errors
}

// ErrorOrNil returns the list as an error, or nil when it is empty.
func (l *ErrorList) ErrorOrNil() error {
	if l.HasErrors() {
		return l
	}
	return nil
}
