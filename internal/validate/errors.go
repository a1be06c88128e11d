package validate

import (
	"errors"
	"fmt"
	"strings"
)

// ErrValidation is matched by every *Error.
var ErrValidation = errors.New("validation failed")

// Violation is a single failed rule.
type Violation struct {
	// Path is the dot-separated path of the offending value, or the rule key
	// when nothing was found.
	Path string
	// Rule names the check that failed: required, type, test or pattern.
	Rule string
	// Message describes what's wrong.
	Message string
	// Value is the offending value (nil for missing values).
	Value any
}

func (v Violation) String() string {
	return fmt.Sprintf("%s: %s (%s)", v.Path, v.Message, v.Rule)
}

// Error collects the violations found in one configuration.
type Error struct {
	Config     string
	Violations []Violation
}

// Error implements the error interface.
func (e *Error) Error() string {
	name := e.Config
	if name == "" {
		name = "<config>"
	}
	if len(e.Violations) == 1 {
		return fmt.Sprintf("config %q failed validation: %s", name, e.Violations[0])
	}

	msgs := make([]string, len(e.Violations))
	for i, v := range e.Violations {
		msgs[i] = v.String()
	}
	return fmt.Sprintf("config %q failed validation with %d errors:\n  - %s",
		name, len(e.Violations), strings.Join(msgs, "\n  - "))
}

// Unwrap lets errors.Is match ErrValidation.
func (e *Error) Unwrap() error {
	return ErrValidation
}

func (e *Error) add(path, rule, message string, value any) {
	e.Violations = append(e.Violations, Violation{
		Path:    path,
		Rule:    rule,
		Message: message,
		Value:   value,
	})
}

func (e *Error) asError() error {
	if len(e.Violations) == 0 {
		return nil
	}
	return e
}
