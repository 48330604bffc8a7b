package kernel

import (
	"errors"
	"fmt"
)

// ErrConfiguration matches every *ConfigurationError via errors.Is.
var ErrConfiguration = errors.New("invalid kernel configuration")

// ConfigurationError reports a precision/width combination that breaks a
// divisibility invariant. It is fatal for the kernel it names.
type ConfigurationError struct {
	Tuple  Tuple
	Reason string
}

func (e *ConfigurationError) Error() string {
	return fmt.Sprintf("kernel %s: %s", e.Tuple, e.Reason)
}

func (e *ConfigurationError) Is(target error) bool {
	return target == ErrConfiguration
}

func configErrorf(t Tuple, format string, args ...any) error {
	return &ConfigurationError{Tuple: t, Reason: fmt.Sprintf(format, args...)}
}
