package in

import (
	"context"

	"mail_server/core/domain"
)

// OAuthFlow drives the credential lifecycle: authorize, exchange, store,
// refresh.
type OAuthFlow interface {
	// AuthURL builds the provider consent URL for the given CSRF state.
	// Fails with CONFIG_ERROR when the OAuth client is not configured.
	AuthURL(state string) (string, error)

	// HandleCallback exchanges a single-use authorization code for a
	// credential and persists it.
	HandleCallback(ctx context.Context, code string) (*domain.Credential, error)

	// Authenticate is the primary entry point used before any mail
	// operation: load the stored credential, validate it, refresh it if
	// needed and possible, else fail with AUTH_REQUIRED.
	Authenticate(ctx context.Context) (*domain.Credential, error)
}

// MailReader lists, fetches and normalizes provider messages.
type MailReader interface {
	// GetEmails lists matching messages and fetches+parses each one.
	// Individual fetch or parse failures are collected in the batch's
	// FailedIDs; only a provider-level list failure aborts the call.
	GetEmails(ctx context.Context, query string, maxResults int64) (*domain.EmailBatch, error)

	// GetByID returns the normalized email, or nil (no error) when the
	// ID is unknown. Transient provider faults propagate.
	GetByID(ctx context.Context, messageID string) (*domain.Email, error)

	// RegisterWatch registers the inbox push-notification subscription.
	RegisterWatch(ctx context.Context) (*domain.WatchRegistration, error)

	// RenewWatch re-registers the subscription before it expires.
	RenewWatch(ctx context.Context) (*domain.WatchRegistration, error)

	// StopWatch tears down the subscription.
	StopWatch(ctx context.Context) error
}

// Analyzer extracts structured transaction data from normalized email
// text.
type Analyzer interface {
	Analyze(ctx context.Context, email *domain.Email) (*domain.TransactionReport, error)
}
