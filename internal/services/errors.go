package services

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidCredentials is returned when an email/password pair does not authenticate.
	ErrInvalidCredentials = errors.New("invalid credentials")
	// ErrInvalidToken is returned for malformed, expired or mistyped tokens.
	ErrInvalidToken = errors.New("invalid token")
)

// ValidationError is a business-rule failure raised by a service, as opposed to a domain invariant.
type ValidationError struct {
	Message string
	Err     error
}

func (e *ValidationError) Error() string {
	return e.Message
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

func validationErrorf(cause error, format string, args ...any) error {
	return &ValidationError{Message: fmt.Sprintf(format, args...), Err: cause}
}

// IsValidationError reports whether err, or any error it wraps, is a *ValidationError.
func IsValidationError(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}
