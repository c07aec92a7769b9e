package services

import (
	"context"
	"errors"
	"fmt"

	"questrya/internal/domain"
	"questrya/internal/repositories"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// UserService implements the user use cases on top of the repository and the domain.
type UserService struct {
	repo      repositories.UserRepository
	publisher EventPublisher
	log       logrus.FieldLogger
	opts      []domain.Option
}

// NewUserService creates a new UserService. publisher may be nil.
// opts configure users built by the service (hasher, clock).
func NewUserService(repo repositories.UserRepository, publisher EventPublisher, log logrus.FieldLogger, opts ...domain.Option) *UserService {
	return &UserService{
		repo:      repo,
		publisher: publisher,
		log:       log,
		opts:      opts,
	}
}

// Register creates and stores a new user.
func (s *UserService) Register(ctx context.Context, username, email, password string) (*domain.User, error) {
	addr, err := domain.NewEmail(email)
	if err != nil {
		return nil, err
	}

	if _, err := s.repo.FindByEmail(ctx, addr); err == nil {
		return nil, validationErrorf(nil, "email already registered (%s)", addr.Address())
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check email: %w", err)
	}

	if _, err := s.repo.FindByUsername(ctx, username); err == nil {
		return nil, validationErrorf(nil, "username already taken (%s)", username)
	} else if !errors.Is(err, repositories.ErrNotFound) {
		return nil, fmt.Errorf("failed to check username: %w", err)
	}

	user, err := domain.NewUser(domain.UserParams{
		Username:  username,
		EmailAddr: addr,
		Password:  password,
	}, s.opts...)
	if err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		if errors.Is(err, repositories.ErrDuplicate) {
			return nil, validationErrorf(err, "user already exists (%s)", username)
		}
		return nil, fmt.Errorf("failed to register user: %w", err)
	}

	s.log.WithFields(logrus.Fields{"user_id": saved.ID(), "username": saved.Username()}).Info("user registered")
	publishUserEvent(s.publisher, s.log, EventUserRegistered, saved)
	return saved, nil
}

// Update changes the email and/or password of an existing user. Empty values are left untouched.
func (s *UserService) Update(ctx context.Context, id uuid.UUID, email, password string) (*domain.User, error) {
	user, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}

	if email != "" {
		addr, err := domain.NewEmail(email)
		if err != nil {
			return nil, err
		}
		other, err := s.repo.FindByEmail(ctx, addr)
		switch {
		case err == nil && other.ID() != user.ID():
			return nil, validationErrorf(nil, "email already registered (%s)", addr.Address())
		case err != nil && !errors.Is(err, repositories.ErrNotFound):
			return nil, fmt.Errorf("failed to check email: %w", err)
		}
	}

	if err := user.Update(email, password); err != nil {
		return nil, err
	}

	saved, err := s.repo.Save(ctx, user)
	if err != nil {
		switch {
		case errors.Is(err, repositories.ErrNotFound):
			return nil, validationErrorf(err, "user not found (id=%q)", id.String())
		case errors.Is(err, repositories.ErrDuplicate):
			return nil, validationErrorf(err, "email already registered (%s)", user.Email().Address())
		case errors.Is(err, repositories.ErrConflict):
			return nil, fmt.Errorf("user %s changed while updating, retry: %w", id, err)
		}
		return nil, fmt.Errorf("failed to update user: %w", err)
	}

	s.log.WithField("user_id", saved.ID()).Info("user updated")
	publishUserEvent(s.publisher, s.log, EventUserUpdated, saved)
	return saved, nil
}

// Get returns the user with the given id.
func (s *UserService) Get(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	return s.load(ctx, id)
}

func (s *UserService) load(ctx context.Context, id uuid.UUID) (*domain.User, error) {
	user, err := s.repo.FindByID(ctx, id)
	if err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			return nil, validationErrorf(err, "user not found (id=%q)", id.String())
		}
		return nil, fmt.Errorf("failed to get user %s: %w", id, err)
	}
	return user, nil
}
