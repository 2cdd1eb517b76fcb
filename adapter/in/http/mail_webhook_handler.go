package http

import (
	"context"
	"encoding/base64"
	"encoding/json"
	"time"

	"github.com/gofiber/fiber/v2"

	"mail_server/core/port/in"
	"mail_server/pkg/logger"
	"mail_server/pkg/response"
)

// webhookEventTTL bounds the de-duplication window for push deliveries.
const webhookEventTTL = 24 * time.Hour

// EventStore de-duplicates webhook deliveries. A nil store disables
// de-duplication.
type EventStore interface {
	MarkEventSeen(ctx context.Context, eventID string, ttl time.Duration) (bool, error)
}

// pushEnvelope is the Pub/Sub push wrapper around a notification.
type pushEnvelope struct {
	Message struct {
		Data      string `json:"data"`
		MessageID string `json:"messageId"`
	} `json:"message"`
	Subscription string `json:"subscription"`
}

// pushNotification is the decoded notification body. EmailID is only
// present on deliveries that reference a specific message.
type pushNotification struct {
	EmailAddress string `json:"emailAddress"`
	HistoryID    uint64 `json:"historyId"`
	EmailID      string `json:"emailId"`
}

// WebhookHandler receives Gmail push notifications relayed through
// Pub/Sub. Every delivery is acknowledged with 200; a non-2xx answer
// would only make Pub/Sub redeliver a payload that will never parse
// better the second time.
type WebhookHandler struct {
	reader   in.MailReader
	analyzer in.Analyzer
	events   EventStore
}

func NewWebhookHandler(reader in.MailReader, analyzer in.Analyzer, events EventStore) *WebhookHandler {
	return &WebhookHandler{reader: reader, analyzer: analyzer, events: events}
}

func (h *WebhookHandler) Register(app fiber.Router) {
	app.Post("/webhook/gmail", h.Receive)
}

func (h *WebhookHandler) Receive(c *fiber.Ctx) error {
	var envelope pushEnvelope
	if err := json.Unmarshal(c.Body(), &envelope); err != nil {
		logger.WithError(err).Warn("[Webhook] Malformed push envelope, acknowledging")
		return response.OK(c, fiber.Map{"status": "ignored"})
	}

	if h.events != nil && envelope.Message.MessageID != "" {
		fresh, err := h.events.MarkEventSeen(c.Context(), envelope.Message.MessageID, webhookEventTTL)
		if err != nil {
			logger.WithError(err).Warn("[Webhook] De-duplication unavailable, processing anyway")
		} else if !fresh {
			logger.WithField("push_id", envelope.Message.MessageID).
				Debug("[Webhook] Duplicate delivery, acknowledging")
			return response.OK(c, fiber.Map{"status": "duplicate"})
		}
	}

	decoded, err := base64.StdEncoding.DecodeString(envelope.Message.Data)
	if err != nil {
		logger.WithError(err).Warn("[Webhook] Push data is not valid base64, acknowledging")
		return response.OK(c, fiber.Map{"status": "ignored"})
	}

	var notification pushNotification
	if err := json.Unmarshal(decoded, &notification); err != nil {
		logger.WithError(err).Warn("[Webhook] Push data is not valid JSON, acknowledging")
		return response.OK(c, fiber.Map{"status": "ignored"})
	}

	if notification.EmailID == "" {
		logger.WithField("history_id", notification.HistoryID).
			Debug("[Webhook] Notification without email id, acknowledging")
		return response.OK(c, fiber.Map{"status": "acknowledged"})
	}

	report := h.process(c.Context(), notification.EmailID)
	return response.OK(c, fiber.Map{
		"status":   "processed",
		"email_id": notification.EmailID,
		"report":   report,
	})
}

// process fetches and classifies the referenced message. Failures are
// logged and swallowed so the delivery still gets acknowledged.
func (h *WebhookHandler) process(ctx context.Context, emailID string) any {
	email, err := h.reader.GetByID(ctx, emailID)
	if err != nil {
		logger.WithError(err).WithField("email_id", emailID).
			Warn("[Webhook] Failed to fetch notified message")
		return nil
	}
	if email == nil {
		logger.WithField("email_id", emailID).Warn("[Webhook] Notified message not found")
		return nil
	}

	report, err := h.analyzer.Analyze(ctx, email)
	if err != nil {
		logger.WithError(err).WithField("email_id", emailID).
			Warn("[Webhook] Failed to classify notified message")
		return nil
	}

	logger.WithFields(map[string]any{
		"email_id":       emailID,
		"is_transaction": report.IsTransaction,
	}).Info("[Webhook] Notification processed")
	return report
}
