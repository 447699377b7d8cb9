// Package service holds the application use cases: onboarding learners and
// walking them through a module's I Do, We Do and You Do phases.
package service

import (
	"errors"
	"fmt"
)

// ErrConcurrentUpdate is returned when a progress record keeps changing
// under a phase completion.
var ErrConcurrentUpdate = errors.New("progress was updated concurrently")

// ValidationError describes input the caller has to fix.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

func invalid(field, format string, args ...interface{}) error {
	return &ValidationError{Field: field, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err carries a *ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
