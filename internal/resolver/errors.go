package resolver

import (
	"errors"
	"fmt"
	"strings"
)

// ErrInvalidInput is returned for non-object configurations and wrongly
// typed resolver data.
var ErrInvalidInput = errors.New("invalid input")

// ExtendsError is a failure while walking the extends chain. Chain holds
// every identifier the walk tried to load, in load order; the last one is
// usually the culprit.
type ExtendsError struct {
	Chain []string
	Err   error
}

// Error implements the error interface.
func (e *ExtendsError) Error() string {
	return fmt.Sprintf("%v; extends chain: [%s]", e.Err, strings.Join(e.Chain, ", "))
}

// Unwrap returns the underlying cause.
func (e *ExtendsError) Unwrap() error {
	return e.Err
}

func invalidInput(format string, args ...any) error {
	return fmt.Errorf("%w: %s", ErrInvalidInput, fmt.Sprintf(format, args...))
}
