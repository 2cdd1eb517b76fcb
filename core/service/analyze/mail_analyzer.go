// Package analyze extracts structured transaction data from normalized
// email text through the chat-model port.
package analyze

import (
	"context"
	"fmt"

	"mail_server/core/domain"
	"mail_server/core/port/out"
	"mail_server/pkg/apperr"
	"mail_server/pkg/logger"
)

const systemPrompt = `You are a financial email analyst. Given the text of an email, decide whether it describes a payment transaction and extract its details.

Respond with a JSON object with exactly these keys:
  "is_transaction": boolean, true only when the email confirms a completed payment
  "transaction_type": "card" for card purchases, "transfer" for account transfers, "" otherwise
  "amount": number, the transaction amount, 0 when absent
  "establishment": string, the merchant name for card purchases, "" otherwise
  "beneficiary": string, the recipient name for transfers, "" otherwise
  "date": string, the transaction date as stated in the email, "" when absent

Do not invent values. Use the empty value for anything the email does not state.`

// Service drives the content classifier. Classification is advisory:
// a model failure degrades to an unclassified report, it never fails
// the request that asked for it.
type Service struct {
	model out.ChatModel
}

func NewService(model out.ChatModel) *Service {
	return &Service{model: model}
}

// Analyze classifies one email's text. The returned report has
// Classified false when the model is unavailable or returned something
// unusable.
func (s *Service) Analyze(ctx context.Context, email *domain.Email) (*domain.TransactionReport, error) {
	if email == nil || email.Text == "" {
		return nil, apperr.BadRequest("email has no text content to analyze")
	}

	messages := []out.ChatMessage{
		{Role: out.RoleSystem, Content: systemPrompt},
		{Role: out.RoleUser, Content: email.Text},
	}

	logger.WithFields(map[string]any{
		"message_id":   email.ID,
		"token_approx": estimateTokens(messages),
	}).Debug("[Analyze] Invoking classifier")

	result, err := s.model.Invoke(ctx, messages)
	if err != nil {
		logger.WithError(err).WithField("message_id", email.ID).
			Warn("[Analyze] Classifier unavailable, returning unclassified report")
		return &domain.TransactionReport{}, nil
	}
	if len(result) == 0 {
		logger.WithField("message_id", email.ID).
			Warn("[Analyze] Classifier returned no usable answer")
		return &domain.TransactionReport{}, nil
	}

	return reportFromMap(result), nil
}

// reportFromMap decodes the model's generic answer field by field,
// tolerating missing keys and wrong types.
func reportFromMap(m map[string]any) *domain.TransactionReport {
	report := &domain.TransactionReport{Classified: true}

	if v, ok := m["is_transaction"].(bool); ok {
		report.IsTransaction = v
	}
	if v, ok := m["transaction_type"].(string); ok {
		switch v {
		case domain.TransactionCard, domain.TransactionTransfer:
			report.Type = v
		}
	}
	report.Amount = toFloat(m["amount"])
	if v, ok := m["establishment"].(string); ok {
		report.Establishment = v
	}
	if v, ok := m["beneficiary"].(string); ok {
		report.Beneficiary = v
	}
	if v, ok := m["date"].(string); ok {
		report.Date = v
	}

	return report
}

func toFloat(v any) float64 {
	switch n := v.(type) {
	case float64:
		return n
	case int:
		return float64(n)
	case string:
		var f float64
		if _, err := fmt.Sscanf(n, "%f", &f); err == nil {
			return f
		}
	}
	return 0
}

// estimateTokens approximates the prompt size at four characters per
// token, enough for pre-call logging and budget checks.
func estimateTokens(messages []out.ChatMessage) int {
	chars := 0
	for _, m := range messages {
		chars += len(m.Content)
	}
	return chars / 4
}
