package analyze

import (
	"context"
	"errors"
	"testing"

	"mail_server/core/domain"
	"mail_server/core/port/out"
	"mail_server/pkg/apperr"
)

type fakeModel struct {
	result   map[string]any
	err      error
	messages []out.ChatMessage
}

func (f *fakeModel) Invoke(ctx context.Context, messages []out.ChatMessage) (map[string]any, error) {
	f.messages = messages
	return f.result, f.err
}

func testEmail() *domain.Email {
	return &domain.Email{
		ID:   "msg-1",
		Text: "Purchase approved: MERCADO CENTRAL, 152.30 on 02/01/2026",
	}
}

func TestAnalyzeCardTransaction(t *testing.T) {
	model := &fakeModel{result: map[string]any{
		"is_transaction":   true,
		"transaction_type": "card",
		"amount":           152.30,
		"establishment":    "MERCADO CENTRAL",
		"date":             "02/01/2026",
	}}

	report, err := NewService(model).Analyze(context.Background(), testEmail())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if !report.Classified {
		t.Error("expected report to be classified")
	}
	if !report.IsTransaction {
		t.Error("expected transaction")
	}
	if report.Type != domain.TransactionCard {
		t.Errorf("expected card type, got %s", report.Type)
	}
	if report.Amount != 152.30 {
		t.Errorf("expected amount 152.30, got %f", report.Amount)
	}
	if report.Establishment != "MERCADO CENTRAL" {
		t.Errorf("expected establishment, got %s", report.Establishment)
	}
}

func TestAnalyzeModelFailureDegrades(t *testing.T) {
	model := &fakeModel{err: errors.New("connection refused")}

	report, err := NewService(model).Analyze(context.Background(), testEmail())
	if err != nil {
		t.Fatalf("expected degradation, got error: %v", err)
	}
	if report.Classified {
		t.Error("expected unclassified report on model failure")
	}
	if report.IsTransaction {
		t.Error("expected IsTransaction false on model failure")
	}
}

func TestAnalyzeEmptyResultDegrades(t *testing.T) {
	model := &fakeModel{result: map[string]any{}}

	report, err := NewService(model).Analyze(context.Background(), testEmail())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if report.Classified {
		t.Error("expected unclassified report for empty answer")
	}
}

func TestAnalyzeTolerantDecoding(t *testing.T) {
	model := &fakeModel{result: map[string]any{
		"is_transaction":   "yes",      // wrong type, ignored
		"transaction_type": "bitcoin",  // unknown type, ignored
		"amount":           "152.30",   // numeric string, parsed
		"establishment":    42,         // wrong type, ignored
		"beneficiary":      "Jo Smith", // valid
	}}

	report, err := NewService(model).Analyze(context.Background(), testEmail())
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if report.IsTransaction {
		t.Error("expected wrong-typed is_transaction to stay false")
	}
	if report.Type != "" {
		t.Errorf("expected unknown type dropped, got %s", report.Type)
	}
	if report.Amount != 152.30 {
		t.Errorf("expected numeric string parsed, got %f", report.Amount)
	}
	if report.Establishment != "" {
		t.Errorf("expected wrong-typed establishment dropped, got %s", report.Establishment)
	}
	if report.Beneficiary != "Jo Smith" {
		t.Errorf("expected beneficiary kept, got %s", report.Beneficiary)
	}
}

func TestAnalyzeNoText(t *testing.T) {
	svc := NewService(&fakeModel{})

	_, err := svc.Analyze(context.Background(), &domain.Email{ID: "x"})
	if !apperr.IsCode(err, apperr.CodeBadRequest) {
		t.Errorf("expected BAD_REQUEST, got %v", err)
	}

	_, err = svc.Analyze(context.Background(), nil)
	if !apperr.IsCode(err, apperr.CodeBadRequest) {
		t.Errorf("expected BAD_REQUEST for nil email, got %v", err)
	}
}

func TestAnalyzePromptContainsEmailText(t *testing.T) {
	model := &fakeModel{result: map[string]any{"is_transaction": false}}
	email := testEmail()

	if _, err := NewService(model).Analyze(context.Background(), email); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if len(model.messages) != 2 {
		t.Fatalf("expected system and user messages, got %d", len(model.messages))
	}
	if model.messages[0].Role != out.RoleSystem {
		t.Errorf("expected first message to be system, got %s", model.messages[0].Role)
	}
	if model.messages[1].Content != email.Text {
		t.Errorf("expected user message to carry email text")
	}
}

func TestEstimateTokens(t *testing.T) {
	messages := []out.ChatMessage{{Content: "12345678"}, {Content: "1234"}}
	if got := estimateTokens(messages); got != 3 {
		t.Errorf("expected 3 tokens for 12 chars, got %d", got)
	}
}
