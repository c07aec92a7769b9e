package services

import (
	"context"
	"fmt"
	"time"

	"questrya/internal/domain"
	"questrya/internal/repositories"

	"github.com/dgrijalva/jwt-go"
	"github.com/sirupsen/logrus"
)

// TokenKind distinguishes short-lived access tokens from refresh tokens.
type TokenKind string

const (
	AccessToken  TokenKind = "access"
	RefreshToken TokenKind = "refresh"
)

// TokenPair is returned by a successful login.
type TokenPair struct {
	AccessToken  string
	RefreshToken string
}

// AuthService handles business logic for authentication and authorization.
type AuthService struct {
	userRepo   repositories.UserRepository
	jwtSecret  []byte
	accessTTL  time.Duration
	refreshTTL time.Duration
	log        logrus.FieldLogger
}

// NewAuthService creates a new AuthService.
func NewAuthService(userRepo repositories.UserRepository, jwtSecret string, accessTTL, refreshTTL time.Duration, log logrus.FieldLogger) *AuthService {
	return &AuthService{
		userRepo:   userRepo,
		jwtSecret:  []byte(jwtSecret),
		accessTTL:  accessTTL,
		refreshTTL: refreshTTL,
		log:        log,
	}
}

// Authenticate checks the credentials and issues an access/refresh token pair.
func (s *AuthService) Authenticate(ctx context.Context, email, password string) (TokenPair, error) {
	addr, err := domain.NewEmail(email)
	if err != nil {
		return TokenPair{}, ErrInvalidCredentials
	}

	// Unknown email and wrong password are reported identically.
	user, err := s.userRepo.FindByEmail(ctx, addr)
	if err != nil {
		s.log.WithError(err).WithField("email", addr.Address()).Debug("login lookup failed")
		return TokenPair{}, ErrInvalidCredentials
	}
	if !user.CheckPassword(password) {
		return TokenPair{}, ErrInvalidCredentials
	}

	userID := user.ID().String()
	access, err := s.issue(userID, user.Username(), AccessToken, s.accessTTL)
	if err != nil {
		return TokenPair{}, err
	}
	refresh, err := s.issue(userID, user.Username(), RefreshToken, s.refreshTTL)
	if err != nil {
		return TokenPair{}, err
	}

	s.log.WithField("user_id", userID).Info("user logged in")
	return TokenPair{AccessToken: access, RefreshToken: refresh}, nil
}

// Refresh validates a refresh token and mints a new access token for the same identity.
func (s *AuthService) Refresh(refreshToken string) (string, error) {
	claims, err := s.ValidateToken(refreshToken, RefreshToken)
	if err != nil {
		return "", err
	}
	userID, _ := claims["user_id"].(string)
	username, _ := claims["username"].(string)
	return s.issue(userID, username, AccessToken, s.accessTTL)
}

func (s *AuthService) issue(userID, username string, kind TokenKind, ttl time.Duration) (string, error) {
	now := time.Now()
	token := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.MapClaims{
		"user_id":  userID,
		"username": username,
		"type":     string(kind),
		"exp":      now.Add(ttl).Unix(),
		"iat":      now.Unix(),
	})

	tokenString, err := token.SignedString(s.jwtSecret)
	if err != nil {
		return "", fmt.Errorf("failed to generate token: %w", err)
	}
	return tokenString, nil
}

// ValidateToken parses and validates a JWT token of the given kind, returning the claims if valid.
func (s *AuthService) ValidateToken(tokenString string, kind TokenKind) (jwt.MapClaims, error) {
	token, err := jwt.Parse(tokenString, func(token *jwt.Token) (interface{}, error) {
		if _, ok := token.Method.(*jwt.SigningMethodHMAC); !ok {
			return nil, fmt.Errorf("unexpected signing method: %v", token.Header["alg"])
		}
		return s.jwtSecret, nil
	})
	if err != nil {
		return nil, fmt.Errorf("%w: %v", ErrInvalidToken, err)
	}

	claims, ok := token.Claims.(jwt.MapClaims)
	if !ok || !token.Valid {
		return nil, ErrInvalidToken
	}
	if claims["type"] != string(kind) {
		return nil, fmt.Errorf("%w: expected %s token", ErrInvalidToken, kind)
	}
	if id, _ := claims["user_id"].(string); id == "" {
		return nil, fmt.Errorf("%w: missing user_id", ErrInvalidToken)
	}
	return claims, nil
}
