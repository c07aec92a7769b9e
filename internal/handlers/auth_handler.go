package handlers

import (
	"strings"

	"questrya/internal/middleware"
	"questrya/internal/services"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// LoginRequest represents the request body for login.
type LoginRequest struct {
	Email    string `json:"email" validate:"email_address"`
	Password string `json:"password" validate:"min=8"`
}

// AuthHandler handles HTTP requests for authentication.
type AuthHandler struct {
	authService *services.AuthService
	validate    *validator.Validate
	log         logrus.FieldLogger
}

// NewAuthHandler creates a new AuthHandler.
func NewAuthHandler(authService *services.AuthService, log logrus.FieldLogger) *AuthHandler {
	return &AuthHandler{
		authService: authService,
		validate:    newValidator(),
		log:         log,
	}
}

// RegisterRoutes registers the authentication routes with the Fiber app.
func (h *AuthHandler) RegisterRoutes(router fiber.Router) {
	authRoutes := router.Group("/auth")
	authRoutes.Post("/login", h.HandleLogin)
	authRoutes.Post("/token/new", middleware.RefreshRequired(h.authService, h.log), h.HandleRefresh)
}

// HandleLogin handles user login and issues an access and a refresh token.
func (h *AuthHandler) HandleLogin(c *fiber.Ctx) error {
	var req LoginRequest
	if err := c.BodyParser(&req); err != nil {
		h.log.WithError(err).Debug("error parsing login request body")
		return badRequest(c, "Invalid request body")
	}
	if err := validate(h.validate, req); err != nil {
		return badRequest(c, err.Error())
	}

	pair, err := h.authService.Authenticate(c.UserContext(), req.Email, req.Password)
	if err != nil {
		return respondError(c, h.log, err)
	}

	return c.JSON(fiber.Map{
		"access_token":  pair.AccessToken,
		"refresh_token": pair.RefreshToken,
	})
}

// HandleRefresh issues a new access token for the identity of a valid refresh token.
func (h *AuthHandler) HandleRefresh(c *fiber.Ctx) error {
	token := strings.TrimPrefix(c.Get(fiber.HeaderAuthorization), "Bearer ")
	access, err := h.authService.Refresh(token)
	if err != nil {
		return respondError(c, h.log, err)
	}
	return c.JSON(fiber.Map{"access_token": access})
}
