// Package persistence implements the durable stores: the credential
// record and the short-lived Redis state keys.
package persistence

import (
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"sync"

	"mail_server/core/domain"
	"mail_server/pkg/apperr"
	"mail_server/pkg/logger"
)

// FileTokenStore persists the credential as a JSON file on local disk.
// Save writes to a temp file and renames so a concurrent Load never
// observes a half-written record.
type FileTokenStore struct {
	mu   sync.Mutex
	path string
}

func NewFileTokenStore(path string) *FileTokenStore {
	return &FileTokenStore{path: path}
}

// Load reads the stored credential. A missing or malformed file yields
// (nil, nil): both mean "not authorized yet" to the caller.
func (s *FileTokenStore) Load(ctx context.Context) (*domain.Credential, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := os.ReadFile(s.path)
	if err != nil {
		if os.IsNotExist(err) {
			return nil, nil
		}
		return nil, apperr.InternalWithError(err)
	}

	var cred domain.Credential
	if err := json.Unmarshal(data, &cred); err != nil {
		logger.WithError(err).Warn("[TokenStore] Stored credential is malformed, treating as absent")
		return nil, nil
	}
	return &cred, nil
}

// Save atomically replaces the stored credential.
func (s *FileTokenStore) Save(ctx context.Context, cred *domain.Credential) error {
	if cred == nil {
		return apperr.BadRequest("nil credential")
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	data, err := json.MarshalIndent(cred, "", "  ")
	if err != nil {
		return apperr.InternalWithError(err)
	}

	dir := filepath.Dir(s.path)
	if err := os.MkdirAll(dir, 0o700); err != nil {
		return apperr.InternalWithError(err)
	}

	tmp, err := os.CreateTemp(dir, ".token-*")
	if err != nil {
		return apperr.InternalWithError(err)
	}
	tmpName := tmp.Name()

	if _, err := tmp.Write(data); err != nil {
		tmp.Close()
		os.Remove(tmpName)
		return apperr.InternalWithError(err)
	}
	if err := tmp.Close(); err != nil {
		os.Remove(tmpName)
		return apperr.InternalWithError(err)
	}
	if err := os.Chmod(tmpName, 0o600); err != nil {
		os.Remove(tmpName)
		return apperr.InternalWithError(err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		os.Remove(tmpName)
		return apperr.InternalWithError(err)
	}

	logger.Debug("[TokenStore] Credential saved to %s", s.path)
	return nil
}
