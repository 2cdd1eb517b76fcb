package middleware

import (
	"crypto/subtle"
	"time"

	"github.com/gofiber/fiber/v2"

	"mail_server/pkg/apperr"
	"mail_server/pkg/logger"
)

// APIKeyAuth guards the API routes with a static key carried in the
// X-API-Key header. An empty configured key disables the guard, which
// is only sensible for local development.
func APIKeyAuth(apiKey string) fiber.Handler {
	if apiKey == "" {
		logger.Warn("[Auth] API key not configured, endpoints are unprotected")
		return func(c *fiber.Ctx) error {
			return c.Next()
		}
	}

	return func(c *fiber.Ctx) error {
		provided := c.Get("X-API-Key")
		if subtle.ConstantTimeCompare([]byte(provided), []byte(apiKey)) != 1 {
			logger.WithField("ip", c.IP()).Warn("[Auth] Rejected request with invalid API key")
			requestID, _ := c.Locals("request_id").(string)
			return c.Status(fiber.StatusUnauthorized).JSON(ErrorResponse{
				Success:   false,
				RequestID: requestID,
				Timestamp: time.Now().UTC().Format(time.RFC3339),
				Error: ErrorDetail{
					Code:    apperr.CodeUnauthorized,
					Message: "invalid or missing api key",
				},
			})
		}
		return c.Next()
	}
}
