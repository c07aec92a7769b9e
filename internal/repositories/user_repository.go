package repositories

import (
	"context"
	"errors"

	"questrya/internal/domain"

	"github.com/google/uuid"
)

var (
	// ErrNotFound is returned when no user matches a lookup or an update targets a missing id.
	ErrNotFound = errors.New("user not found")
	// ErrDuplicate is returned when a write violates the unique username or email constraint.
	ErrDuplicate = errors.New("user already exists")
	// ErrConflict is returned when an update is based on a copy that is older than the stored row.
	ErrConflict = errors.New("user was modified concurrently")
	// ErrStorageIntegrity is returned when a stored record no longer satisfies the domain rules.
	ErrStorageIntegrity = errors.New("corrupted user record")
)

// UserRepository defines the interface for user persistence.
// All methods receive and return domain users; storage records never leave the implementation.
type UserRepository interface {
	FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error)
	FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error)
	FindByUsername(ctx context.Context, username string) (*domain.User, error)
	// Save inserts a transient user or updates a persisted one and returns the stored state.
	// The argument is not modified; callers must continue with the returned user.
	// Updating from a stale copy fails with ErrConflict.
	Save(ctx context.Context, user *domain.User) (*domain.User, error)
}
