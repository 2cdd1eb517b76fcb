// Package mail implements message retrieval and normalization on top of
// the provider port.
package mail

import (
	"context"

	"mail_server/core/domain"
	"mail_server/core/port/in"
	"mail_server/core/port/out"
	"mail_server/pkg/apperr"
	"mail_server/pkg/logger"
)

// Service is the mail facade. Each operation authenticates, builds a
// fresh provider handle from the credential and releases it on return;
// no live client outlives a request.
type Service struct {
	auth    in.OAuthFlow
	factory out.ProviderFactory
	label   string
}

// NewService creates the mail facade. Label narrows every listing, the
// Gmail inbox label in practice.
func NewService(auth in.OAuthFlow, factory out.ProviderFactory, label string) *Service {
	return &Service{auth: auth, factory: factory, label: label}
}

// GetEmails lists matching messages and fetches and parses each one.
// A message that fails to fetch or parse lands in FailedIDs; only a
// list-level failure aborts the whole call.
func (s *Service) GetEmails(ctx context.Context, query string, maxResults int64) (*domain.EmailBatch, error) {
	provider, err := s.provider(ctx)
	if err != nil {
		return nil, err
	}

	ids, err := provider.ListMessageIDs(ctx, &out.ListQuery{
		Query:      query,
		Label:      s.label,
		MaxResults: maxResults,
	})
	if err != nil {
		return nil, err
	}

	batch := &domain.EmailBatch{Emails: make([]*domain.Email, 0, len(ids))}
	for _, id := range ids {
		email, err := s.fetchAndParse(ctx, provider, id)
		if err != nil {
			logger.WithError(err).WithField("message_id", id).
				Warn("[Mail] Skipping message that failed to fetch or parse")
			batch.FailedIDs = append(batch.FailedIDs, id)
			continue
		}
		batch.Emails = append(batch.Emails, email)
	}

	logger.Info("[Mail] Retrieved %d of %d messages", len(batch.Emails), len(ids))
	return batch, nil
}

// GetByID returns the normalized email, or nil without error when the
// ID is unknown to the provider.
func (s *Service) GetByID(ctx context.Context, messageID string) (*domain.Email, error) {
	if messageID == "" {
		return nil, apperr.BadRequest("message id is required")
	}

	provider, err := s.provider(ctx)
	if err != nil {
		return nil, err
	}

	email, err := s.fetchAndParse(ctx, provider, messageID)
	if err != nil {
		if apperr.IsCode(err, apperr.CodeNotFound) {
			return nil, nil
		}
		return nil, err
	}
	return email, nil
}

// RegisterWatch registers the push-notification subscription.
func (s *Service) RegisterWatch(ctx context.Context) (*domain.WatchRegistration, error) {
	provider, err := s.provider(ctx)
	if err != nil {
		return nil, err
	}
	reg, err := provider.Watch(ctx)
	if err != nil {
		return nil, err
	}
	logger.WithField("history_id", reg.HistoryID).
		Info("[Mail] Watch registered, expires %s", reg.Expiration)
	return reg, nil
}

// RenewWatch re-registers the subscription. The provider cannot extend
// a watch in place, so renewal stops the old one and registers anew.
func (s *Service) RenewWatch(ctx context.Context) (*domain.WatchRegistration, error) {
	provider, err := s.provider(ctx)
	if err != nil {
		return nil, err
	}
	if err := provider.StopWatch(ctx); err != nil {
		logger.WithError(err).Warn("[Mail] Stop before renew failed, registering anyway")
	}
	reg, err := provider.Watch(ctx)
	if err != nil {
		return nil, err
	}
	logger.WithField("history_id", reg.HistoryID).
		Info("[Mail] Watch renewed, expires %s", reg.Expiration)
	return reg, nil
}

// StopWatch tears down the push-notification subscription.
func (s *Service) StopWatch(ctx context.Context) error {
	provider, err := s.provider(ctx)
	if err != nil {
		return err
	}
	if err := provider.StopWatch(ctx); err != nil {
		return err
	}
	logger.Info("[Mail] Watch stopped")
	return nil
}

func (s *Service) provider(ctx context.Context) (out.MessageProvider, error) {
	cred, err := s.auth.Authenticate(ctx)
	if err != nil {
		return nil, err
	}
	return s.factory.Build(ctx, cred)
}

func (s *Service) fetchAndParse(ctx context.Context, provider out.MessageProvider, id string) (*domain.Email, error) {
	msg, err := provider.GetMessage(ctx, id)
	if err != nil {
		return nil, err
	}
	return ParseMessage(msg)
}
