package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// HealthCheck reports whether one dependency is usable.
type HealthCheck func(ctx context.Context) bool

// Configured adapts an IsConfigured method to a HealthCheck.
func Configured(isConfigured func() bool) HealthCheck {
	return func(context.Context) bool { return isConfigured() }
}

// HealthHandler serves the base and health endpoints.
type HealthHandler struct {
	checks map[string]HealthCheck
	now    func() time.Time
}

func NewHealthHandler(checks map[string]HealthCheck) *HealthHandler {
	return &HealthHandler{checks: checks, now: time.Now}
}

// Root handles GET /
func (h *HealthHandler) Root(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"timestamp": h.now().Unix(),
	})
}

// Health handles GET /health. The process is up whenever it answers, so
// status is always "ok"; services lists each dependency.
func (h *HealthHandler) Health(c *fiber.Ctx) error {
	services := fiber.Map{}
	for name, check := range h.checks {
		services[name] = check(c.Context())
	}
	return c.JSON(fiber.Map{
		"status":   "ok",
		"services": services,
	})
}
