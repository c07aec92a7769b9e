package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// UserParams carries the inputs for building a User. Exactly one of Password and PasswordHash must be set.
// EmailAddr, when set, is used as is and Email is ignored.
// ID, CreatedAt, LastUpdatedAt and Version are only set when rehydrating a persisted user.
type UserParams struct {
	ID            uuid.UUID
	Username      string
	Email         string
	EmailAddr     Email
	Password      string
	PasswordHash  string
	CreatedAt     time.Time
	LastUpdatedAt time.Time
	Version       int64
}

// Option configures the collaborators a User works with.
type Option func(*User)

// WithHasher sets the password hashing capability.
func WithHasher(h PasswordHasher) Option {
	return func(u *User) {
		if h != nil {
			u.hasher = h
		}
	}
}

// WithClock sets the time source used for timestamps.
func WithClock(now func() time.Time) Option {
	return func(u *User) {
		if now != nil {
			u.now = now
		}
	}
}

// User is the user aggregate. It never holds a plaintext password.
// A User without an ID is transient; the repository is the only place that assigns one.
type User struct {
	id            uuid.UUID
	username      string
	email         Email
	passwordHash  string
	createdAt     time.Time
	lastUpdatedAt time.Time
	version       int64

	hasher PasswordHasher
	now    func() time.Time
}

// NewUser validates p and builds a User. A plaintext password is hashed and discarded.
func NewUser(p UserParams, opts ...Option) (*User, error) {
	u := &User{
		id:      p.ID,
		version: p.Version,
		hasher:  NewBcryptHasher(0),
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(u)
	}

	if strings.TrimSpace(p.Username) == "" {
		return nil, newDomainError("username must not be empty")
	}
	u.username = p.Username

	u.email = p.EmailAddr
	if u.email.IsZero() {
		email, err := NewEmail(p.Email)
		if err != nil {
			return nil, err
		}
		u.email = email
	}

	switch {
	case p.Password == "" && p.PasswordHash == "":
		return nil, newDomainError("must supply password or password hash")
	case p.Password != "" && p.PasswordHash != "":
		return nil, newDomainError("must supply password or password hash, not both")
	case p.Password != "":
		hash, err := u.hasher.Hash(p.Password)
		if err != nil {
			return nil, err
		}
		u.passwordHash = hash
	default:
		u.passwordHash = p.PasswordHash
	}

	now := u.now()
	u.createdAt = p.CreatedAt
	if u.createdAt.IsZero() {
		u.createdAt = now
	}
	u.lastUpdatedAt = p.LastUpdatedAt
	if u.lastUpdatedAt.IsZero() {
		u.lastUpdatedAt = now
	}
	return u, nil
}

func (u *User) ID() uuid.UUID            { return u.id }
func (u *User) Username() string         { return u.username }
func (u *User) Email() Email             { return u.email }
func (u *User) PasswordHash() string     { return u.passwordHash }
func (u *User) CreatedAt() time.Time     { return u.createdAt }
func (u *User) LastUpdatedAt() time.Time { return u.lastUpdatedAt }

// Version is the storage revision the user was loaded at. Update leaves it alone; the repository
// compares it on save to reject writes from stale copies.
func (u *User) Version() int64 { return u.version }

// IsPersisted reports whether the user has been stored and carries an identifier.
func (u *User) IsPersisted() bool {
	return u.id != uuid.Nil
}

// CheckPassword reports whether candidate matches the stored hash.
func (u *User) CheckPassword(candidate string) bool {
	return u.hasher.Verify(u.passwordHash, candidate)
}

// Update changes the email and/or password. Empty arguments leave the field untouched.
// On error the user is left unchanged.
func (u *User) Update(email, password string) error {
	if !u.IsPersisted() {
		return newDomainError("cannot update a user object that does not have an identifier")
	}

	newEmail := u.email
	if email != "" {
		e, err := NewEmail(email)
		if err != nil {
			return err
		}
		newEmail = e
	}

	newHash := u.passwordHash
	if password != "" {
		h, err := u.hasher.Hash(password)
		if err != nil {
			return err
		}
		newHash = h
	}

	u.email = newEmail
	u.passwordHash = newHash
	u.lastUpdatedAt = u.now()
	return nil
}
