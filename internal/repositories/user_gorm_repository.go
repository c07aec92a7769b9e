package repositories

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"questrya/internal/domain"
	"questrya/internal/models"

	"github.com/google/uuid"
	"gorm.io/gorm"
)

// GORMUserRepository is a GORM implementation of UserRepository.
type GORMUserRepository struct {
	db   *gorm.DB
	opts []domain.Option
	now  func() time.Time
}

// NewGORMUserRepository creates a new instance of GORMUserRepository.
// opts are applied to every user rebuilt from storage (hasher, clock).
func NewGORMUserRepository(db *gorm.DB, opts ...domain.Option) *GORMUserRepository {
	return &GORMUserRepository{
		db:   db,
		opts: opts,
		now:  storageNow,
	}
}

// storageNow matches the microsecond resolution of postgres timestamps.
func storageNow() time.Time {
	return time.Now().UTC().Truncate(time.Microsecond)
}

// FindByID retrieves a user by their ID from the database.
func (r *GORMUserRepository) FindByID(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return r.findOne(ctx, "id = ?", id.String(), "ID "+id.String())
}

// FindByEmail retrieves a user by their normalized email.
func (r *GORMUserRepository) FindByEmail(ctx context.Context, email domain.Email) (*domain.User, error) {
	return r.findOne(ctx, "email = ?", email.Address(), "email "+email.Address())
}

// FindByUsername retrieves a user by their username.
func (r *GORMUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	return r.findOne(ctx, "username = ?", username, "username "+username)
}

func (r *GORMUserRepository) findOne(ctx context.Context, query string, arg any, desc string) (*domain.User, error) {
	var rec models.User
	if err := r.db.WithContext(ctx).First(&rec, query, arg).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, fmt.Errorf("user with %s not found: %w", desc, ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get user by %s: %w", desc, err)
	}
	return toDomain(&rec, r.opts...)
}

// Save inserts transient users and updates persisted ones.
func (r *GORMUserRepository) Save(ctx context.Context, user *domain.User) (*domain.User, error) {
	if user.IsPersisted() {
		return r.update(ctx, user)
	}
	return r.insert(ctx, user)
}

func (r *GORMUserRepository) insert(ctx context.Context, user *domain.User) (*domain.User, error) {
	rec := fromDomain(user)
	rec.ID = uuid.New().String()
	rec.CreatedAt = r.now()
	rec.LastUpdatedAt = rec.CreatedAt
	rec.Version = 1

	if err := r.db.WithContext(ctx).Create(&rec).Error; err != nil {
		if isDuplicateError(err) {
			return nil, fmt.Errorf("failed to create user %s: %w", rec.Username, ErrDuplicate)
		}
		return nil, fmt.Errorf("failed to create user: %w", err)
	}
	return toDomain(&rec, r.opts...)
}

// update writes the mutable fields only if the row is still at the version the user was loaded at,
// then reads the stored state back in the same transaction.
func (r *GORMUserRepository) update(ctx context.Context, user *domain.User) (*domain.User, error) {
	id := user.ID().String()
	var saved models.User

	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		res := tx.Model(&models.User{}).
			Where("id = ? AND version = ?", id, user.Version()).
			Updates(map[string]any{
				"username":        user.Username(),
				"email":           user.Email().Address(),
				"password_hash":   user.PasswordHash(),
				"last_updated_at": r.now(),
				"version":         gorm.Expr("version + 1"),
			})
		if res.Error != nil {
			if isDuplicateError(res.Error) {
				return fmt.Errorf("failed to update user %s: %w", id, ErrDuplicate)
			}
			return fmt.Errorf("failed to update user %s: %w", id, res.Error)
		}

		if err := tx.First(&saved, "id = ?", id).Error; err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return fmt.Errorf("user with ID %s not found for update: %w", id, ErrNotFound)
			}
			return fmt.Errorf("failed to load user %s: %w", id, err)
		}
		if res.RowsAffected == 0 {
			return fmt.Errorf("user %s is at version %d, update based on version %d: %w",
				id, saved.Version, user.Version(), ErrConflict)
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	return toDomain(&saved, r.opts...)
}

func isDuplicateError(err error) bool {
	if errors.Is(err, gorm.ErrDuplicatedKey) {
		return true
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "duplicate key value") ||
		strings.Contains(msg, "Duplicate entry")
}

var _ UserRepository = (*GORMUserRepository)(nil)
