package mail

import (
	"context"
	"testing"
	"time"

	"mail_server/core/domain"
	"mail_server/core/port/out"
	"mail_server/pkg/apperr"
)

type fakeAuth struct {
	err error
}

func (f *fakeAuth) AuthURL(state string) (string, error) { return "", nil }

func (f *fakeAuth) HandleCallback(ctx context.Context, code string) (*domain.Credential, error) {
	return nil, nil
}

func (f *fakeAuth) Authenticate(ctx context.Context) (*domain.Credential, error) {
	if f.err != nil {
		return nil, f.err
	}
	return &domain.Credential{
		AccessToken: "token",
		Expiry:      time.Now().Add(time.Hour),
	}, nil
}

type fakeProvider struct {
	ids      []string
	messages map[string]*domain.RawMessage
	getErrs  map[string]error
	listErr  error
	watchReg *domain.WatchRegistration
	stopped  bool
}

func (f *fakeProvider) ListMessageIDs(ctx context.Context, query *out.ListQuery) ([]string, error) {
	if f.listErr != nil {
		return nil, f.listErr
	}
	return f.ids, nil
}

func (f *fakeProvider) GetMessage(ctx context.Context, messageID string) (*domain.RawMessage, error) {
	if err, ok := f.getErrs[messageID]; ok {
		return nil, err
	}
	if msg, ok := f.messages[messageID]; ok {
		return msg, nil
	}
	return nil, apperr.NotFound("message")
}

func (f *fakeProvider) Watch(ctx context.Context) (*domain.WatchRegistration, error) {
	return f.watchReg, nil
}

func (f *fakeProvider) StopWatch(ctx context.Context) error {
	f.stopped = true
	return nil
}

type fakeFactory struct {
	provider *fakeProvider
}

func (f *fakeFactory) Build(ctx context.Context, cred *domain.Credential) (out.MessageProvider, error) {
	return f.provider, nil
}

func newTestService(p *fakeProvider) *Service {
	return NewService(&fakeAuth{}, &fakeFactory{provider: p}, "INBOX")
}

func TestGetEmailsCollectsFailures(t *testing.T) {
	provider := &fakeProvider{
		ids: []string{"a", "b", "c"},
		messages: map[string]*domain.RawMessage{
			"a": htmlMessage("a", "<p>one</p>"),
			"c": htmlMessage("c", "<p>three</p>"),
		},
		getErrs: map[string]error{
			"b": apperr.ProviderError("get message", nil),
		},
	}

	batch, err := newTestService(provider).GetEmails(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(batch.Emails) != 2 {
		t.Errorf("expected 2 emails, got %d", len(batch.Emails))
	}
	if len(batch.FailedIDs) != 1 || batch.FailedIDs[0] != "b" {
		t.Errorf("expected failed ids [b], got %v", batch.FailedIDs)
	}
	if batch.Emails[0].ID != "a" || batch.Emails[1].ID != "c" {
		t.Errorf("expected listing order preserved, got %s, %s", batch.Emails[0].ID, batch.Emails[1].ID)
	}
}

func TestGetEmailsParseFailureGoesToFailedIDs(t *testing.T) {
	unsupported := htmlMessage("a", "<p>x</p>")
	unsupported.Payload.MimeType = "text/plain"

	provider := &fakeProvider{
		ids:      []string{"a"},
		messages: map[string]*domain.RawMessage{"a": unsupported},
	}

	batch, err := newTestService(provider).GetEmails(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Emails) != 0 {
		t.Errorf("expected no emails, got %d", len(batch.Emails))
	}
	if len(batch.FailedIDs) != 1 {
		t.Errorf("expected 1 failed id, got %v", batch.FailedIDs)
	}
}

func TestGetEmailsEmptyList(t *testing.T) {
	batch, err := newTestService(&fakeProvider{}).GetEmails(context.Background(), "", 10)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(batch.Emails) != 0 || len(batch.FailedIDs) != 0 {
		t.Errorf("expected empty batch, got %+v", batch)
	}
}

func TestGetEmailsListFailureAborts(t *testing.T) {
	provider := &fakeProvider{listErr: apperr.ProviderError("list messages", nil)}

	_, err := newTestService(provider).GetEmails(context.Background(), "", 10)
	if !apperr.IsCode(err, apperr.CodeProviderError) {
		t.Errorf("expected PROVIDER_ERROR, got %v", err)
	}
}

func TestGetByIDUnknownReturnsNil(t *testing.T) {
	email, err := newTestService(&fakeProvider{}).GetByID(context.Background(), "missing")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email != nil {
		t.Errorf("expected nil email for unknown id, got %+v", email)
	}
}

func TestGetByIDEmptyID(t *testing.T) {
	_, err := newTestService(&fakeProvider{}).GetByID(context.Background(), "")
	if !apperr.IsCode(err, apperr.CodeBadRequest) {
		t.Errorf("expected BAD_REQUEST, got %v", err)
	}
}

func TestGetEmailsAuthFailurePropagates(t *testing.T) {
	svc := NewService(&fakeAuth{err: apperr.AuthRequired("")}, &fakeFactory{provider: &fakeProvider{}}, "INBOX")

	_, err := svc.GetEmails(context.Background(), "", 10)
	if !apperr.IsCode(err, apperr.CodeAuthRequired) {
		t.Errorf("expected AUTH_REQUIRED, got %v", err)
	}
}

func TestRenewWatchStopsThenRegisters(t *testing.T) {
	provider := &fakeProvider{
		watchReg: &domain.WatchRegistration{
			HistoryID:  42,
			Expiration: time.Now().Add(7 * 24 * time.Hour),
		},
	}

	reg, err := newTestService(provider).RenewWatch(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if !provider.stopped {
		t.Error("expected old watch to be stopped before renewal")
	}
	if reg.HistoryID != 42 {
		t.Errorf("expected history id 42, got %d", reg.HistoryID)
	}
}
