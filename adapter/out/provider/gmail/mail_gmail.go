// Package gmail implements the message provider port against the Gmail
// API.
package gmail

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"time"

	"github.com/sony/gobreaker"
	"golang.org/x/oauth2"
	"golang.org/x/oauth2/google"
	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"

	"mail_server/core/domain"
	"mail_server/core/port/out"
	"mail_server/pkg/apperr"
	"mail_server/pkg/logger"
)

// Factory builds authenticated Gmail providers. The circuit breaker is
// process-wide so faults observed by one request shed load for all.
type Factory struct {
	projectID  string
	topicName  string
	httpClient *http.Client
	cb         *gobreaker.CircuitBreaker
}

// NewFactory creates the provider factory for a Google Cloud project.
func NewFactory(projectID string, httpClient *http.Client) *Factory {
	cbSettings := gobreaker.Settings{
		Name:        "gmail-api",
		MaxRequests: 3,
		Interval:    60 * time.Second,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			failureRatio := float64(counts.TotalFailures) / float64(counts.Requests)
			return counts.ConsecutiveFailures > 5 ||
				(counts.Requests >= 10 && failureRatio >= 0.6)
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			logger.Warn("[CircuitBreaker] %s: state changed from %s to %s", name, from.String(), to.String())
		},
	}

	return &Factory{
		projectID:  projectID,
		topicName:  fmt.Sprintf("projects/%s/topics/gmail-push", projectID),
		httpClient: httpClient,
		cb:         gobreaker.NewCircuitBreaker(cbSettings),
	}
}

// Build constructs a provider handle bound to the given credential.
func (f *Factory) Build(ctx context.Context, cred *domain.Credential) (out.MessageProvider, error) {
	config := &oauth2.Config{
		ClientID:     cred.ClientID,
		ClientSecret: cred.ClientSecret,
		RedirectURL:  cred.RedirectURI,
		Scopes:       cred.Scopes,
		Endpoint:     google.Endpoint,
	}
	token := &oauth2.Token{
		AccessToken:  cred.AccessToken,
		RefreshToken: cred.RefreshToken,
		Expiry:       cred.Expiry,
	}

	if f.httpClient != nil {
		ctx = context.WithValue(ctx, oauth2.HTTPClient, f.httpClient)
	}
	svc, err := gmail.NewService(ctx, option.WithHTTPClient(config.Client(ctx, token)))
	if err != nil {
		return nil, apperr.ClientBuildFailed(err)
	}

	return &Provider{
		service:   svc,
		topicName: f.topicName,
		cb:        f.cb,
	}, nil
}

// Provider is one authenticated Gmail API handle. It lives for a single
// request flow and is discarded afterwards.
type Provider struct {
	service   *gmail.Service
	topicName string
	cb        *gobreaker.CircuitBreaker
}

// ListMessageIDs returns matching message IDs in Gmail's listing order.
func (p *Provider) ListMessageIDs(ctx context.Context, query *out.ListQuery) ([]string, error) {
	req := p.service.Users.Messages.List("me")
	if query.Query != "" {
		req = req.Q(query.Query)
	}
	if query.Label != "" {
		req = req.LabelIds(query.Label)
	}
	if query.MaxResults > 0 {
		req = req.MaxResults(query.MaxResults)
	}

	var resp *gmail.ListMessagesResponse
	err := p.execute(ctx, "ListMessages", func() error {
		var apiErr error
		resp, apiErr = req.Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, wrapError("list messages", err)
	}

	ids := make([]string, 0, len(resp.Messages))
	for _, m := range resp.Messages {
		ids = append(ids, m.Id)
	}
	return ids, nil
}

// GetMessage retrieves one message in full format and maps it onto the
// wire shape the parser consumes.
func (p *Provider) GetMessage(ctx context.Context, messageID string) (*domain.RawMessage, error) {
	var msg *gmail.Message
	err := p.execute(ctx, "GetMessage", func() error {
		var apiErr error
		msg, apiErr = p.service.Users.Messages.Get("me", messageID).
			Format("full").
			Context(ctx).
			Do()
		return apiErr
	})
	if err != nil {
		return nil, wrapError("get message", err)
	}
	return convertMessage(msg), nil
}

// Watch registers push notifications to the project's Pub/Sub topic.
func (p *Provider) Watch(ctx context.Context) (*domain.WatchRegistration, error) {
	req := &gmail.WatchRequest{
		TopicName: p.topicName,
		LabelIds:  []string{"INBOX"},
	}

	var resp *gmail.WatchResponse
	err := p.execute(ctx, "Watch", func() error {
		var apiErr error
		resp, apiErr = p.service.Users.Watch("me", req).Context(ctx).Do()
		return apiErr
	})
	if err != nil {
		return nil, wrapError("watch", err)
	}

	return &domain.WatchRegistration{
		HistoryID:  resp.HistoryId,
		Expiration: time.Unix(0, resp.Expiration*int64(time.Millisecond)),
		Topic:      p.topicName,
	}, nil
}

// StopWatch tears down the push subscription.
func (p *Provider) StopWatch(ctx context.Context) error {
	err := p.execute(ctx, "StopWatch", func() error {
		return p.service.Users.Stop("me").Context(ctx).Do()
	})
	if err != nil {
		return wrapError("stop watch", err)
	}
	return nil
}

// execute wraps an API call with circuit breaker protection. Client
// errors must not trip the breaker; only server faults and throttling
// count against it.
func (p *Provider) execute(ctx context.Context, operation string, fn func() error) error {
	_, err := p.cb.Execute(func() (interface{}, error) {
		if err := fn(); err != nil {
			var apiErr *googleapi.Error
			if errors.As(err, &apiErr) {
				switch apiErr.Code {
				case 500, 502, 503, 429:
					return nil, err
				case 400, 401, 403, 404:
					return nil, &nonCircuitError{err: err}
				}
			}
			return nil, err
		}
		return nil, nil
	})

	var nce *nonCircuitError
	if errors.As(err, &nce) {
		return nce.err
	}

	if err != nil {
		logger.WithError(err).WithField("operation", operation).
			Warn("[Gmail] Circuit breaker error, state=%s", p.cb.State().String())
	}
	return err
}

// nonCircuitError wraps errors that should not trip the circuit breaker.
type nonCircuitError struct {
	err error
}

func (e *nonCircuitError) Error() string {
	return e.err.Error()
}

func (e *nonCircuitError) Unwrap() error {
	return e.err
}

// wrapError maps Gmail API faults onto the application error taxonomy.
func wrapError(operation string, err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, gobreaker.ErrOpenState) || errors.Is(err, gobreaker.ErrTooManyRequests) {
		return apperr.ProviderError(operation, err)
	}

	var apiErr *googleapi.Error
	if errors.As(err, &apiErr) {
		switch apiErr.Code {
		case 401:
			return apperr.AuthRequired("provider rejected the access token").WithError(err)
		case 404:
			return apperr.NotFound("message")
		case 429, 500, 502, 503:
			return apperr.ProviderError(operation, err)
		}
	}
	return apperr.ProviderError(operation, err)
}

// convertMessage maps the Gmail wire message onto the domain shape the
// parser consumes, keeping only what normalization needs.
func convertMessage(msg *gmail.Message) *domain.RawMessage {
	raw := &domain.RawMessage{ID: msg.Id}
	if msg.Payload == nil {
		return raw
	}

	raw.Payload.MimeType = msg.Payload.MimeType
	raw.Payload.Body.Data = partBodyData(msg.Payload.Body)
	for _, h := range msg.Payload.Headers {
		raw.Payload.Headers = append(raw.Payload.Headers, domain.MessageHeader{
			Name:  h.Name,
			Value: h.Value,
		})
	}
	for _, part := range msg.Payload.Parts {
		raw.Payload.Parts = append(raw.Payload.Parts, domain.MessagePart{
			MimeType: part.MimeType,
			Body:     domain.MessageBody{Data: partBodyData(part.Body)},
		})
	}
	return raw
}

func partBodyData(body *gmail.MessagePartBody) string {
	if body == nil {
		return ""
	}
	return body.Data
}
