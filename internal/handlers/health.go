package handlers

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
)

// Pinger checks a backing service.
type Pinger func(ctx context.Context) error

type HealthHandler struct {
	version string
	checks  map[string]Pinger
}

// NewHealthHandler reports on each named check. Services that are not
// configured are simply left out of checks.
func NewHealthHandler(version string, checks map[string]Pinger) *HealthHandler {
	return &HealthHandler{version: version, checks: checks}
}

func (h *HealthHandler) HealthCheck(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
	defer cancel()

	status := "ok"
	services := fiber.Map{}
	for name, ping := range h.checks {
		if err := ping(ctx); err != nil {
			services[name] = "unavailable: " + err.Error()
			status = "degraded"
			continue
		}
		services[name] = "connected"
	}

	code := fiber.StatusOK
	if status != "ok" {
		code = fiber.StatusServiceUnavailable
	}
	return c.Status(code).JSON(fiber.Map{
		"status":   status,
		"version":  h.version,
		"services": services,
	})
}
