package cache

import "fmt"

// PanicError is returned by GetOrCompute when the compute function panics.
type PanicError struct {
	Value any
}

func (e *PanicError) Error() string {
	return fmt.Sprintf("cache: compute panicked: %v", e.Value)
}
