package out

import (
	"context"

	"mail_server/core/domain"
)

// ListQuery narrows a message listing. Query is passed through verbatim
// to the provider's search syntax.
type ListQuery struct {
	Query      string
	Label      string
	MaxResults int64
}

// MessageProvider is the outbound port for the mail provider data API.
// Implementations map provider faults onto the apperr taxonomy: unknown
// IDs surface as NOT_FOUND, transport-level faults as PROVIDER_ERROR.
type MessageProvider interface {
	// ListMessageIDs returns matching message IDs in provider order.
	// No matches is an empty slice, not an error.
	ListMessageIDs(ctx context.Context, query *ListQuery) ([]string, error)

	// GetMessage retrieves one message in full wire format.
	GetMessage(ctx context.Context, messageID string) (*domain.RawMessage, error)

	// Watch registers a push-notification subscription on the inbox.
	Watch(ctx context.Context) (*domain.WatchRegistration, error)

	// StopWatch tears down the push-notification subscription.
	StopWatch(ctx context.Context) error
}

// ProviderFactory builds an authenticated MessageProvider from a
// credential. Each request-handling flow owns its own provider handle;
// there is no shared live client.
type ProviderFactory interface {
	Build(ctx context.Context, cred *domain.Credential) (MessageProvider, error)
}
