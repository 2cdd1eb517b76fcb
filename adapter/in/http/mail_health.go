package http

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"

	"mail_server/core/port/out"
)

// HealthHandler reports liveness and readiness. Readiness checks the
// optional Redis dependency and whether a credential is present.
type HealthHandler struct {
	redis *redis.Client
	store out.TokenStore
}

func NewHealthHandler(redisClient *redis.Client, store out.TokenStore) *HealthHandler {
	return &HealthHandler{redis: redisClient, store: store}
}

func (h *HealthHandler) Register(app *fiber.App) {
	app.Get("/health", h.Health)
	app.Get("/ready", h.Ready)
}

func (h *HealthHandler) Health(c *fiber.Ctx) error {
	return c.JSON(fiber.Map{
		"status":    "ok",
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}

func (h *HealthHandler) Ready(c *fiber.Ctx) error {
	ctx, cancel := context.WithTimeout(c.Context(), 5*time.Second)
	defer cancel()

	checks := make(map[string]string)
	allHealthy := true

	if h.redis != nil {
		if err := h.redis.Ping(ctx).Err(); err != nil {
			checks["redis"] = "unhealthy: " + err.Error()
			allHealthy = false
		} else {
			checks["redis"] = "healthy"
		}
	} else {
		checks["redis"] = "not configured"
	}

	// Credential presence is informational: the service can serve the
	// authorize flow without one.
	if cred, err := h.store.Load(ctx); err != nil {
		checks["credential"] = "unhealthy: " + err.Error()
		allHealthy = false
	} else if cred == nil {
		checks["credential"] = "absent"
	} else if cred.Valid() || cred.Refreshable() {
		checks["credential"] = "healthy"
	} else {
		checks["credential"] = "expired"
	}

	status := "ready"
	statusCode := fiber.StatusOK
	if !allHealthy {
		status = "not ready"
		statusCode = fiber.StatusServiceUnavailable
	}

	return c.Status(statusCode).JSON(fiber.Map{
		"status":    status,
		"checks":    checks,
		"timestamp": time.Now().UTC().Format(time.RFC3339),
	})
}
