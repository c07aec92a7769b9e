package repositories

import (
	"fmt"

	"questrya/internal/domain"
	"questrya/internal/models"

	"github.com/google/uuid"
)

func fromDomain(u *domain.User) models.User {
	rec := models.User{
		Username:      u.Username(),
		Email:         u.Email().Address(),
		PasswordHash:  u.PasswordHash(),
		CreatedAt:     u.CreatedAt(),
		LastUpdatedAt: u.LastUpdatedAt(),
		Version:       u.Version(),
	}
	if u.IsPersisted() {
		rec.ID = u.ID().String()
	}
	return rec
}

func toDomain(rec *models.User, opts ...domain.Option) (*domain.User, error) {
	id, err := uuid.Parse(rec.ID)
	if err != nil {
		return nil, fmt.Errorf("%w: id %q: %v", ErrStorageIntegrity, rec.ID, err)
	}
	u, err := domain.NewUser(domain.UserParams{
		ID:            id,
		Username:      rec.Username,
		Email:         rec.Email,
		PasswordHash:  rec.PasswordHash,
		CreatedAt:     rec.CreatedAt,
		LastUpdatedAt: rec.LastUpdatedAt,
		Version:       rec.Version,
	}, opts...)
	if err != nil {
		return nil, fmt.Errorf("%w: user %s: %v", ErrStorageIntegrity, rec.ID, err)
	}
	return u, nil
}
