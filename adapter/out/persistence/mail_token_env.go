package persistence

import (
	"context"
	"encoding/json"
	"sync"

	"mail_server/core/domain"
	"mail_server/pkg/apperr"
	"mail_server/pkg/logger"
)

// EnvTokenStore seeds the credential from an environment variable, for
// deployments without a writable disk. Refreshed credentials survive in
// memory for the process lifetime; Save also logs the serialized record
// so an operator can re-pin the variable.
type EnvTokenStore struct {
	mu   sync.RWMutex
	cred *domain.Credential
}

// NewEnvTokenStore parses the raw JSON credential from the environment.
// Empty or malformed input starts the store empty.
func NewEnvTokenStore(raw string) *EnvTokenStore {
	s := &EnvTokenStore{}
	if raw == "" {
		return s
	}

	var cred domain.Credential
	if err := json.Unmarshal([]byte(raw), &cred); err != nil {
		logger.WithError(err).Warn("[TokenStore] Env credential is malformed, starting unauthorized")
		return s
	}
	s.cred = &cred
	return s
}

func (s *EnvTokenStore) Load(ctx context.Context) (*domain.Credential, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.cred == nil {
		return nil, nil
	}
	copied := *s.cred
	return &copied, nil
}

func (s *EnvTokenStore) Save(ctx context.Context, cred *domain.Credential) error {
	if cred == nil {
		return apperr.BadRequest("nil credential")
	}

	s.mu.Lock()
	copied := *cred
	s.cred = &copied
	s.mu.Unlock()

	data, err := json.Marshal(cred)
	if err != nil {
		return apperr.InternalWithError(err)
	}
	logger.WithField("gmail_token", string(data)).
		Info("[TokenStore] Credential updated, pin GMAIL_TOKEN to persist across restarts")
	return nil
}
