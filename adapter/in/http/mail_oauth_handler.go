// Package http exposes the service over HTTP using Fiber.
package http

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"

	"mail_server/core/port/in"
	"mail_server/pkg/logger"
	"mail_server/pkg/response"
)

// OAuthStateTTL bounds how long an issued state stays redeemable.
const OAuthStateTTL = 10 * time.Minute

// StateStore stores one-shot OAuth states for CSRF validation.
type StateStore interface {
	StoreState(ctx context.Context, state string, ttl time.Duration) error
	ValidateState(ctx context.Context, state string) error
}

// OAuthHandler drives the authorize and callback legs of the OAuth
// flow. A nil state store disables CSRF validation.
type OAuthHandler struct {
	flow   in.OAuthFlow
	states StateStore
}

func NewOAuthHandler(flow in.OAuthFlow, states StateStore) *OAuthHandler {
	return &OAuthHandler{flow: flow, states: states}
}

func (h *OAuthHandler) Register(app fiber.Router) {
	oauth := app.Group("/oauth")
	oauth.Get("/authorize", h.Authorize)
	oauth.Get("/callback", h.Callback)
}

// Authorize issues a consent URL and redirects the operator's browser
// to it.
func (h *OAuthHandler) Authorize(c *fiber.Ctx) error {
	state, err := generateSecureState()
	if err != nil {
		logger.WithError(err).Error("[OAuth] Failed to generate state")
		return response.InternalError(c, "failed to generate state")
	}

	if h.states != nil {
		if err := h.states.StoreState(c.Context(), state, OAuthStateTTL); err != nil {
			logger.WithError(err).Error("[OAuth] Failed to store state")
			return response.AppError(c, err)
		}
	}

	authURL, err := h.flow.AuthURL(state)
	if err != nil {
		return response.AppError(c, err)
	}

	return c.Redirect(authURL, fiber.StatusFound)
}

// Callback validates the returned state and exchanges the code for a
// credential.
func (h *OAuthHandler) Callback(c *fiber.Ctx) error {
	if errParam := c.Query("error"); errParam != "" {
		logger.Warn("[OAuth] Provider denied authorization: %s", errParam)
		return response.Unauthorized(c, fmt.Sprintf("authorization denied: %s", errParam))
	}

	code := c.Query("code")
	if code == "" {
		return response.BadRequest(c, "missing authorization code")
	}

	if h.states != nil {
		if err := h.states.ValidateState(c.Context(), c.Query("state")); err != nil {
			logger.WithError(err).Warn("[OAuth] State validation failed")
			return response.AppError(c, err)
		}
	}

	cred, err := h.flow.HandleCallback(c.Context(), code)
	if err != nil {
		return response.AppError(c, err)
	}

	return response.OK(c, fiber.Map{
		"authorized": true,
		"expiry":     cred.Expiry,
		"scopes":     cred.Scopes,
	})
}

func generateSecureState() (string, error) {
	bytes := make([]byte, 32)
	if _, err := rand.Read(bytes); err != nil {
		return "", fmt.Errorf("failed to generate secure state: %w", err)
	}
	return hex.EncodeToString(bytes), nil
}
