package domain

import "errors"

// ErrInvalidEmail is returned when a string is not a well-formed email address.
var ErrInvalidEmail = errors.New("invalid email address")

// DomainError reports a violated User invariant.
type DomainError struct {
	Message string
}

func (e *DomainError) Error() string {
	return e.Message
}

func newDomainError(msg string) error {
	return &DomainError{Message: msg}
}

// IsDomainError reports whether err, or any error it wraps, is a *DomainError.
func IsDomainError(err error) bool {
	var de *DomainError
	return errors.As(err, &de)
}
