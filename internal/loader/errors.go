package loader

import (
	"errors"
	"fmt"
)

var (
	// ErrNotFound is returned when a file or module cannot be located.
	ErrNotFound = errors.New("config not found")
	// ErrUnsupportedFormat is returned for executable (.js) configs.
	ErrUnsupportedFormat = errors.New("unsupported config format")
)

// LoadError describes a failure to load one configuration.
type LoadError struct {
	// Identifier is the reference as requested (file path or module name).
	Identifier string
	// Path is the file that was tried, when one was resolved.
	Path string
	// Err is the underlying cause.
	Err error
	// Suggestion is a similarly named file next to a missing one.
	Suggestion string
}

// Error implements the error interface.
func (e *LoadError) Error() string {
	msg := fmt.Sprintf("load config %q: %v", e.Identifier, e.Err)
	if e.Path != "" && e.Path != e.Identifier {
		msg = fmt.Sprintf("load config %q (%s): %v", e.Identifier, e.Path, e.Err)
	}
	if e.Suggestion != "" {
		msg += fmt.Sprintf("; did you mean %q?", e.Suggestion)
	}
	return msg
}

// Unwrap returns the underlying cause.
func (e *LoadError) Unwrap() error {
	return e.Err
}
