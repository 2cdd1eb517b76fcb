package persistence

import (
	"context"
	"errors"
	"time"

	"github.com/redis/go-redis/v9"

	"mail_server/pkg/apperr"
)

// Redis key prefixes.
const (
	oauthStateKey   = "oauth:state:"
	webhookEventKey = "webhook:event:"
)

// RedisStateStore holds the short-lived coordination keys: one-shot
// OAuth CSRF states and webhook de-duplication markers. Expiry is
// delegated to Redis TTLs.
type RedisStateStore struct {
	client *redis.Client
}

func NewRedisStateStore(client *redis.Client) *RedisStateStore {
	return &RedisStateStore{client: client}
}

// StoreState records a pending OAuth state for CSRF validation.
func (s *RedisStateStore) StoreState(ctx context.Context, state string, ttl time.Duration) error {
	if state == "" {
		return apperr.BadRequest("state cannot be empty")
	}
	if err := s.client.Set(ctx, oauthStateKey+state, "1", ttl).Err(); err != nil {
		return apperr.ExternalError("redis", err)
	}
	return nil
}

// ValidateState consumes a pending state. GETDEL makes validation
// one-shot: a replayed state fails even inside the TTL window.
func (s *RedisStateStore) ValidateState(ctx context.Context, state string) error {
	if state == "" {
		return apperr.BadRequest("state cannot be empty")
	}
	_, err := s.client.GetDel(ctx, oauthStateKey+state).Result()
	if errors.Is(err, redis.Nil) {
		return apperr.Unauthorized("oauth state not found or expired")
	}
	if err != nil {
		return apperr.ExternalError("redis", err)
	}
	return nil
}

// MarkEventSeen records a webhook event ID and reports whether it was
// new. SETNX keeps the check-and-set atomic across replicas.
func (s *RedisStateStore) MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error) {
	if eventID == "" {
		return true, nil
	}
	fresh, err := s.client.SetNX(ctx, webhookEventKey+eventID, "1", ttl).Result()
	if err != nil {
		return false, apperr.ExternalError("redis", err)
	}
	return fresh, nil
}
