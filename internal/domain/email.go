package domain

import (
	"fmt"
	"regexp"
	"strings"
)

// emailPattern accepts local@label(.label)+ with at least one dot in the domain part.
var emailPattern = regexp.MustCompile(`^[A-Za-z0-9_.+-]+@[A-Za-z0-9-]+(\.[A-Za-z0-9-]+)+$`)

// Email is an immutable, lower-cased email address.
// Two Emails are equal when their normalized addresses are equal, so == works as well as Equals.
type Email struct {
	address string
}

// NewEmail validates raw and returns its normalized form.
func NewEmail(raw string) (Email, error) {
	if !emailPattern.MatchString(raw) {
		return Email{}, fmt.Errorf("%w: %s", ErrInvalidEmail, raw)
	}
	return Email{address: strings.ToLower(raw)}, nil
}

// Address returns the normalized address.
func (e Email) Address() string {
	return e.address
}

// Equals compares two emails by normalized address.
func (e Email) Equals(other Email) bool {
	return e.address == other.address
}

// IsZero reports whether e was never constructed through NewEmail.
func (e Email) IsZero() bool {
	return e.address == ""
}

func (e Email) String() string {
	return e.address
}

// GoString mirrors the constructor call, e.g. domain.Email("a@b.org").
func (e Email) GoString() string {
	return fmt.Sprintf("domain.Email(%q)", e.address)
}
