package out

import (
	"context"

	"mail_server/core/domain"
)

// TokenStore persists the single credential record across process
// restarts.
//
// Load returns (nil, nil) when no credential is stored or the stored
// form is malformed; malformed records are logged at the store, never
// surfaced as errors. Save must be atomic enough that a concurrent
// reader never observes a half-written record.
type TokenStore interface {
	Load(ctx context.Context) (*domain.Credential, error)
	Save(ctx context.Context, cred *domain.Credential) error
}
