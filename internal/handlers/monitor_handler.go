package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/sirupsen/logrus"
)

const readinessTimeout = 2 * time.Second

// HealthCheck reports whether a dependency is usable.
type HealthCheck func(ctx context.Context) error

// MonitorHandler serves the orchestrator probes.
type MonitorHandler struct {
	version string
	ready   HealthCheck
	log     logrus.FieldLogger
}

// NewMonitorHandler creates a MonitorHandler. A nil check makes readiness always succeed.
func NewMonitorHandler(version string, ready HealthCheck, log logrus.FieldLogger) *MonitorHandler {
	return &MonitorHandler{version: version, ready: ready, log: log}
}

// RegisterRoutes registers the probe routes.
func (h *MonitorHandler) RegisterRoutes(router fiber.Router) {
	monitorRoutes := router.Group("/monitor")
	monitorRoutes.Get("/readiness", h.HandleReadiness)
	monitorRoutes.Get("/liveness", h.HandleLiveness)
}

// HandleReadiness tells whether the app can take traffic.
func (h *MonitorHandler) HandleReadiness(c *fiber.Ctx) error {
	if h.ready != nil {
		ctx, cancel := context.WithTimeout(c.UserContext(), readinessTimeout)
		defer cancel()
		if err := h.ready(ctx); err != nil {
			h.log.WithError(err).Warn("readiness check failed")
			return c.Status(fiber.StatusServiceUnavailable).JSON(fiber.Map{
				"error": "database unavailable",
			})
		}
	}

	return c.JSON(fiber.Map{
		"ready":       "OK",
		"app_version": h.version,
		"app_type":    "fiber-framework " + fiber.Version,
	})
}

// HandleLiveness tells whether the process is alive.
func (h *MonitorHandler) HandleLiveness(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"live":      "OK",
		"version":   h.version,
		"timestamp": time.Now().UTC().Format(time.RFC3339Nano),
	})
}
