package syncstore

import (
	"errors"
	"fmt"
)

// ValidationError reports input rejected before any remote call: a
// malformed identifier, or a referenced task or project that does not
// exist locally.
type ValidationError struct {
	Reason string
}

func (e *ValidationError) Error() string { return e.Reason }

func validationf(format string, args ...any) error {
	return &ValidationError{Reason: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
