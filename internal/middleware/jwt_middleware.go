package middleware

import (
	"strings"

	"questrya/internal/services"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// Locals keys set by the token middlewares.
const (
	LocalUserID   = "user_id"
	LocalUsername = "username"
)

// AuthRequired is a Fiber middleware to check for a valid access token.
func AuthRequired(authService *services.AuthService, log logrus.FieldLogger) fiber.Handler {
	return tokenRequired(authService, services.AccessToken, log)
}

// RefreshRequired accepts only refresh tokens. It guards the token renewal route.
func RefreshRequired(authService *services.AuthService, log logrus.FieldLogger) fiber.Handler {
	return tokenRequired(authService, services.RefreshToken, log)
}

func tokenRequired(authService *services.AuthService, kind services.TokenKind, log logrus.FieldLogger) fiber.Handler {
	return func(c *fiber.Ctx) error {
		authHeader := c.Get(fiber.HeaderAuthorization)
		if authHeader == "" {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header is required",
			})
		}

		// Expected format: "Bearer <token>"
		parts := strings.SplitN(authHeader, " ", 2)
		if !(len(parts) == 2 && parts[0] == "Bearer" && parts[1] != "") {
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Authorization header format must be 'Bearer <token>'",
			})
		}

		claims, err := authService.ValidateToken(parts[1], kind)
		if err != nil {
			log.WithError(err).WithField("path", c.Path()).Debug("JWT validation failed")
			return c.Status(fiber.StatusUnauthorized).JSON(fiber.Map{
				"error": "Invalid or expired token",
			})
		}

		// Store claims in Fiber context for subsequent handlers
		c.Locals(LocalUserID, claims["user_id"])
		c.Locals(LocalUsername, claims["username"])

		return c.Next()
	}
}
