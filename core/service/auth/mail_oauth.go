// Package auth implements the OAuth2 credential lifecycle: authorize,
// exchange, store, refresh.
package auth

import (
	"context"
	"net/http"
	"strings"

	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"

	"mail_server/core/domain"
	"mail_server/core/port/out"
	"mail_server/pkg/apperr"
	"mail_server/pkg/httputil"
	"mail_server/pkg/logger"
)

// Config holds the OAuth client registration.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Scopes       []string
}

// Service is the OAuth2 flow manager. It owns no live credential; the
// durable TokenStore is the only shared state between request flows.
type Service struct {
	config     *oauth2.Config
	store      out.TokenStore
	httpClient *http.Client
}

// NewService creates the flow manager. A nil httpClient falls back to
// the shared pooled client.
func NewService(cfg Config, store out.TokenStore, httpClient *http.Client) *Service {
	if httpClient == nil {
		httpClient = httputil.SharedClient()
	}
	return &Service{
		config: &oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURL,
			Scopes:       cfg.Scopes,
			Endpoint:     google.Endpoint,
		},
		store:      store,
		httpClient: httpClient,
	}
}

// AuthURL builds the provider consent URL. Offline access plus forced
// consent guarantees a refresh token even on repeat authorizations.
func (s *Service) AuthURL(state string) (string, error) {
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		logger.Error("[OAuth] Missing OAuth client credentials")
		return "", apperr.ConfigError("oauth client credentials not configured")
	}
	return s.config.AuthCodeURL(state, oauth2.AccessTypeOffline, oauth2.ApprovalForce), nil
}

// HandleCallback exchanges the authorization code for a credential and
// persists it. The code is single-use; the manager keeps no record of it.
func (s *Service) HandleCallback(ctx context.Context, code string) (*domain.Credential, error) {
	if s.config.ClientID == "" || s.config.ClientSecret == "" {
		return nil, apperr.ConfigError("oauth client credentials not configured")
	}

	token, err := s.config.Exchange(s.withClient(ctx), code)
	if err != nil {
		logger.WithError(err).Error("[OAuth] Code exchange failed")
		return nil, apperr.ExchangeFailed(err)
	}

	cred := &domain.Credential{
		AccessToken:  token.AccessToken,
		RefreshToken: token.RefreshToken,
		Expiry:       token.Expiry,
		Scopes:       s.config.Scopes,
		ClientID:     s.config.ClientID,
		ClientSecret: s.config.ClientSecret,
		RedirectURI:  s.config.RedirectURL,
	}

	if err := s.store.Save(ctx, cred); err != nil {
		logger.WithError(err).Error("[OAuth] Failed to persist credential")
		return nil, err
	}

	logger.Info("[OAuth] Obtained new credential, expiry: %s", cred.Expiry)
	return cred, nil
}

// Refresh renews an expired credential. The provider may rotate the
// refresh token; a non-empty incoming value replaces the stored one.
func (s *Service) Refresh(ctx context.Context, cred *domain.Credential) (*domain.Credential, error) {
	if !cred.Refreshable() {
		return nil, apperr.AuthRequired("credential has no refresh token")
	}

	src := s.config.TokenSource(s.withClient(ctx), &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
	})
	newToken, err := src.Token()
	if err != nil {
		if isTerminalTokenError(err) {
			logger.WithError(err).Warn("[OAuth] Refresh token revoked or expired")
			return nil, apperr.AuthRequired("refresh token revoked, re-authorization required")
		}
		logger.WithError(err).Error("[OAuth] Token refresh failed")
		return nil, apperr.RefreshFailed(err)
	}

	cred.Rotate(newToken.AccessToken, newToken.RefreshToken, newToken.Expiry)

	if err := s.store.Save(ctx, cred); err != nil {
		logger.WithError(err).Error("[OAuth] Failed to persist refreshed credential")
		return nil, err
	}

	logger.Info("[OAuth] Token refreshed, new expiry: %s", cred.Expiry)
	return cred, nil
}

// Authenticate is the composite entry point used before any mail
// operation: load, validate, refresh once if needed and possible, else
// fail with AUTH_REQUIRED.
func (s *Service) Authenticate(ctx context.Context) (*domain.Credential, error) {
	cred, err := s.store.Load(ctx)
	if err != nil {
		return nil, err
	}
	if cred == nil {
		logger.Warn("[OAuth] No stored credential")
		return nil, apperr.AuthRequired("no credential available")
	}

	if cred.Valid() {
		return cred, nil
	}

	if !cred.Refreshable() {
		logger.Warn("[OAuth] Credential expired with no refresh token")
		return nil, apperr.AuthRequired("credential expired, re-authorization required")
	}

	logger.Info("[OAuth] Refreshing expired credential")
	refreshed, err := s.Refresh(ctx, cred)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeRefreshFailed) {
			return nil, apperr.AuthRequired("token refresh failed, re-authorization required").WithError(err)
		}
		return nil, err
	}
	return refreshed, nil
}

// withClient routes oauth2 HTTP traffic through the shared pooled client.
func (s *Service) withClient(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, s.httpClient)
}

// isTerminalTokenError checks if the error indicates a permanently
// invalid token rather than a transient provider fault.
func isTerminalTokenError(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "invalid_client") ||
		strings.Contains(errStr, "invalid_grant") ||
		strings.Contains(errStr, "Token has been expired or revoked") ||
		strings.Contains(errStr, "Token has been revoked")
}
