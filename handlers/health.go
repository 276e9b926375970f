package handlers

import (
	"context"
	"sort"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
)

const healthTimeout = 2 * time.Second

type Check func(ctx context.Context) error

// HealthHandler reports "up" only if every registered check succeeds.
type HealthHandler struct {
	checks map[string]Check
	log    zerolog.Logger
}

func NewHealthHandler(log zerolog.Logger) *HealthHandler {
	return &HealthHandler{checks: map[string]Check{}, log: log}
}

func (h *HealthHandler) Add(name string, check Check) *HealthHandler {
	h.checks[name] = check
	return h
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
	defer cancel()

	names := make([]string, 0, len(h.checks))
	for name := range h.checks {
		names = append(names, name)
	}
	sort.Strings(names)

	status := fiber.StatusOK
	result := fiber.Map{}
	for _, name := range names {
		if err := h.checks[name](ctx); err != nil {
			h.log.Warn().Err(err).Str("check", name).Msg("health check failed")
			result[name] = "down"
			status = fiber.StatusServiceUnavailable
			continue
		}
		result[name] = "up"
	}
	result["status"] = "up"
	if status != fiber.StatusOK {
		result["status"] = "down"
	}
	return c.Status(status).JSON(result)
}
