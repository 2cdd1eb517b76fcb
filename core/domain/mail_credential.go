package domain

import (
	"time"
)

// Credential is the OAuth2 access/refresh token pair plus the client
// metadata needed to refresh it or run a fresh exchange.
type Credential struct {
	AccessToken  string    `json:"access_token"`
	RefreshToken string    `json:"refresh_token,omitempty"`
	Expiry       time.Time `json:"expiry,omitempty"`
	Scopes       []string  `json:"scopes,omitempty"`
	ClientID     string    `json:"client_id,omitempty"`
	ClientSecret string    `json:"client_secret,omitempty"`
	RedirectURI  string    `json:"redirect_uri,omitempty"`
}

// Valid reports whether the credential can authenticate a provider call
// right now: non-empty access token and an expiry that is either unset or
// in the future.
func (c *Credential) Valid() bool {
	if c == nil || c.AccessToken == "" {
		return false
	}
	return c.Expiry.IsZero() || c.Expiry.After(time.Now())
}

// Expired reports whether the access token has a known expiry in the past.
func (c *Credential) Expired() bool {
	if c == nil {
		return true
	}
	return !c.Expiry.IsZero() && !c.Expiry.After(time.Now())
}

// Refreshable reports whether the credential can be renewed without a new
// authorize cycle. A credential without a refresh token is terminally
// invalid once expired.
func (c *Credential) Refreshable() bool {
	return c != nil && c.RefreshToken != ""
}

// Rotate applies a refresh result. The provider may or may not return a
// new refresh token; a non-empty incoming value replaces the stored one,
// otherwise the old refresh token is kept.
func (c *Credential) Rotate(accessToken, refreshToken string, expiry time.Time) {
	c.AccessToken = accessToken
	if refreshToken != "" {
		c.RefreshToken = refreshToken
	}
	c.Expiry = expiry
}
