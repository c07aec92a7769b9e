package handlers

import (
	"errors"
	"strings"

	"questrya/internal/domain"
	"questrya/internal/repositories"
	"questrya/internal/services"
	"questrya/internal/tasks"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

// statusFor maps service and domain errors to HTTP status codes.
func statusFor(err error) int {
	switch {
	case errors.Is(err, services.ErrInvalidCredentials), errors.Is(err, services.ErrInvalidToken):
		return fiber.StatusUnauthorized
	case errors.Is(err, repositories.ErrConflict):
		return fiber.StatusConflict
	case errors.Is(err, tasks.ErrQueueDisabled):
		return fiber.StatusServiceUnavailable
	case services.IsValidationError(err), domain.IsDomainError(err), errors.Is(err, domain.ErrInvalidEmail):
		return fiber.StatusBadRequest
	default:
		return fiber.StatusInternalServerError
	}
}

// respondError writes {"error": msg} with the mapped status.
func respondError(c *fiber.Ctx, log logrus.FieldLogger, err error) error {
	status := statusFor(err)
	entry := log.WithError(err).WithFields(logrus.Fields{"path": c.Path(), "status": status})
	if status >= fiber.StatusInternalServerError {
		entry.Error("request failed")
	} else {
		entry.Info("request rejected")
	}
	return c.Status(status).JSON(fiber.Map{"error": errorMessage(err)})
}

func errorMessage(err error) string {
	msg := err.Error()
	if errors.Is(err, domain.ErrInvalidEmail) {
		return capitalize(msg)
	}
	return msg
}

func capitalize(s string) string {
	if s == "" {
		return s
	}
	return strings.ToUpper(s[:1]) + s[1:]
}

func badRequest(c *fiber.Ctx, msg string) error {
	return c.Status(fiber.StatusBadRequest).JSON(fiber.Map{"error": msg})
}
