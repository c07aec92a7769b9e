package repositories

import (
	"context"
	"fmt"
	"sync"
	"time"

	"questrya/internal/domain"
	"questrya/internal/models"

	"github.com/google/uuid"
)

// MockUserRepository is an in-memory implementation of UserRepository.
type MockUserRepository struct {
	users map[string]models.User
	opts  []domain.Option
	now   func() time.Time
	mu    sync.RWMutex
}

// NewMockUserRepository creates a new instance of MockUserRepository.
func NewMockUserRepository(opts ...domain.Option) *MockUserRepository {
	return &MockUserRepository{
		users: make(map[string]models.User),
		opts:  opts,
		now:   storageNow,
	}
}

// FindByID returns a user by its ID.
func (r *MockUserRepository) FindByID(_ context.Context, id uuid.UUID) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	rec, ok := r.users[id.String()]
	if !ok {
		return nil, fmt.Errorf("user with ID %s not found: %w", id, ErrNotFound)
	}
	return toDomain(&rec, r.opts...)
}

// FindByEmail returns a user by its normalized email.
func (r *MockUserRepository) FindByEmail(_ context.Context, email domain.Email) (*domain.User, error) {
	return r.findWhere(func(rec models.User) bool { return rec.Email == email.Address() }, "email "+email.Address())
}

// FindByUsername returns a user by its username.
func (r *MockUserRepository) FindByUsername(_ context.Context, username string) (*domain.User, error) {
	return r.findWhere(func(rec models.User) bool { return rec.Username == username }, "username "+username)
}

func (r *MockUserRepository) findWhere(match func(models.User) bool, desc string) (*domain.User, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, rec := range r.users {
		if match(rec) {
			return toDomain(&rec, r.opts...)
		}
	}
	return nil, fmt.Errorf("user with %s not found: %w", desc, ErrNotFound)
}

// Save inserts or updates a user.
func (r *MockUserRepository) Save(_ context.Context, user *domain.User) (*domain.User, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec := fromDomain(user)
	now := r.now()
	if user.IsPersisted() {
		existing, ok := r.users[rec.ID]
		if !ok {
			return nil, fmt.Errorf("user with ID %s not found for update: %w", rec.ID, ErrNotFound)
		}
		if existing.Version != rec.Version {
			return nil, fmt.Errorf("user %s is at version %d, update based on version %d: %w",
				rec.ID, existing.Version, rec.Version, ErrConflict)
		}
		rec.CreatedAt = existing.CreatedAt
		rec.Version = existing.Version + 1
	} else {
		rec.ID = uuid.New().String()
		rec.CreatedAt = now
		rec.Version = 1
	}
	rec.LastUpdatedAt = now

	for id, other := range r.users {
		if id != rec.ID && (other.Username == rec.Username || other.Email == rec.Email) {
			return nil, fmt.Errorf("failed to save user %s: %w", rec.Username, ErrDuplicate)
		}
	}

	r.users[rec.ID] = rec
	return toDomain(&rec, r.opts...)
}

var _ UserRepository = (*MockUserRepository)(nil)
