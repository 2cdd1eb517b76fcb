package auth

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"mail_server/core/domain"
	"mail_server/pkg/apperr"
)

type fakeStore struct {
	cred    *domain.Credential
	loadErr error
	saved   *domain.Credential
}

func (f *fakeStore) Load(ctx context.Context) (*domain.Credential, error) {
	return f.cred, f.loadErr
}

func (f *fakeStore) Save(ctx context.Context, cred *domain.Credential) error {
	f.saved = cred
	return nil
}

func newTestService(store *fakeStore) *Service {
	return NewService(Config{
		ClientID:     "client-id",
		ClientSecret: "client-secret",
		RedirectURL:  "http://localhost:8080/oauth/callback",
		Scopes:       []string{"https://www.googleapis.com/auth/gmail.readonly"},
	}, store, nil)
}

func TestAuthURL(t *testing.T) {
	url, err := newTestService(&fakeStore{}).AuthURL("state-123")
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if url == "" {
		t.Fatal("expected non-empty auth url")
	}
	for _, want := range []string{"state-123", "access_type=offline", "prompt=consent"} {
		if !strings.Contains(url, want) {
			t.Errorf("expected auth url to contain %q, got %s", want, url)
		}
	}
}

func TestAuthURLMissingClient(t *testing.T) {
	svc := NewService(Config{}, &fakeStore{}, nil)

	_, err := svc.AuthURL("state")
	if !apperr.IsCode(err, apperr.CodeConfigError) {
		t.Errorf("expected CONFIG_ERROR, got %v", err)
	}
}

func TestAuthenticateNoCredential(t *testing.T) {
	_, err := newTestService(&fakeStore{}).Authenticate(context.Background())
	if !apperr.IsCode(err, apperr.CodeAuthRequired) {
		t.Errorf("expected AUTH_REQUIRED, got %v", err)
	}
}

func TestAuthenticateValidCredential(t *testing.T) {
	stored := &domain.Credential{
		AccessToken: "token",
		Expiry:      time.Now().Add(time.Hour),
	}

	cred, err := newTestService(&fakeStore{cred: stored}).Authenticate(context.Background())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if cred.AccessToken != "token" {
		t.Errorf("expected stored credential returned, got %+v", cred)
	}
}

func TestAuthenticateExpiredWithoutRefreshToken(t *testing.T) {
	stored := &domain.Credential{
		AccessToken: "token",
		Expiry:      time.Now().Add(-time.Hour),
	}

	_, err := newTestService(&fakeStore{cred: stored}).Authenticate(context.Background())
	if !apperr.IsCode(err, apperr.CodeAuthRequired) {
		t.Errorf("expected AUTH_REQUIRED, got %v", err)
	}
}

func TestAuthenticateStoreFailure(t *testing.T) {
	store := &fakeStore{loadErr: apperr.Internal("disk error")}

	_, err := newTestService(store).Authenticate(context.Background())
	if !apperr.IsCode(err, apperr.CodeInternalError) {
		t.Errorf("expected INTERNAL_ERROR, got %v", err)
	}
}

func TestRefreshWithoutRefreshToken(t *testing.T) {
	cred := &domain.Credential{AccessToken: "token"}

	_, err := newTestService(&fakeStore{}).Refresh(context.Background(), cred)
	if !apperr.IsCode(err, apperr.CodeAuthRequired) {
		t.Errorf("expected AUTH_REQUIRED, got %v", err)
	}
}

func TestIsTerminalTokenError(t *testing.T) {
	tests := []struct {
		name string
		err  error
		want bool
	}{
		{"invalid_grant", errors.New(`oauth2: "invalid_grant" "Bad Request"`), true},
		{"invalid_client", errors.New(`oauth2: "invalid_client"`), true},
		{"revoked", errors.New("Token has been expired or revoked."), true},
		{"network", errors.New("connection refused"), false},
		{"nil", nil, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := isTerminalTokenError(tt.err); got != tt.want {
				t.Errorf("isTerminalTokenError(%v) = %v, want %v", tt.err, got, tt.want)
			}
		})
	}
}
