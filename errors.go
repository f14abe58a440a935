package templix

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidN is returned when n is not positive.
	ErrInvalidN = errors.New("n must be positive")

	// ErrNoMatch is returned when no template produced a valid correlation
	// score for a pattern. Map assembly records it per position instead of
	// aborting.
	ErrNoMatch = errors.New("no template produced a valid score")
)

// ConfigurationError indicates invalid or empty inputs at construction time.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type ConfigurationError struct {
	Component string
	Reason    string
	cause     error
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("configuration error in %s: %s", e.Component, e.Reason)
}

func (e *ConfigurationError) Unwrap() error { return e.cause }

// NewConfigurationError builds a ConfigurationError with an optional
// underlying cause. Other packages in this module use it so the cause
// stays reachable via errors.Is/As.
func NewConfigurationError(component, reason string, cause error) *ConfigurationError {
	return &ConfigurationError{Component: component, Reason: reason, cause: cause}
}

// InvalidArgumentError indicates an out-of-range numeric parameter.
//
// The original underlying error (if any) can be accessed via errors.Unwrap.
type InvalidArgumentError struct {
	Name  string
	Value int
	cause error
}

func (e *InvalidArgumentError) Error() string {
	return fmt.Sprintf("invalid argument %s: %d", e.Name, e.Value)
}

func (e *InvalidArgumentError) Unwrap() error { return e.cause }
