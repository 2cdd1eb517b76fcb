package gmail

import (
	"errors"
	"testing"

	"google.golang.org/api/gmail/v1"
	"google.golang.org/api/googleapi"

	"mail_server/pkg/apperr"
)

func TestWrapError(t *testing.T) {
	tests := []struct {
		name     string
		err      error
		wantCode string
	}{
		{"unauthorized", &googleapi.Error{Code: 401}, apperr.CodeAuthRequired},
		{"not found", &googleapi.Error{Code: 404}, apperr.CodeNotFound},
		{"rate limited", &googleapi.Error{Code: 429}, apperr.CodeProviderError},
		{"server error", &googleapi.Error{Code: 500}, apperr.CodeProviderError},
		{"bad gateway", &googleapi.Error{Code: 502}, apperr.CodeProviderError},
		{"unavailable", &googleapi.Error{Code: 503}, apperr.CodeProviderError},
		{"network fault", errors.New("connection reset"), apperr.CodeProviderError},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := wrapError("get message", tt.err)
			if !apperr.IsCode(got, tt.wantCode) {
				t.Errorf("wrapError(%v) = %v, want code %s", tt.err, got, tt.wantCode)
			}
		})
	}

	if wrapError("op", nil) != nil {
		t.Error("expected nil for nil error")
	}
}

func TestWrapErrorWrappedGoogleapiError(t *testing.T) {
	wrapped := &nonCircuitError{err: &googleapi.Error{Code: 404}}

	got := wrapError("get message", wrapped)
	if !apperr.IsCode(got, apperr.CodeNotFound) {
		t.Errorf("expected NOT_FOUND through wrapper, got %v", got)
	}
}

func TestConvertMessage(t *testing.T) {
	msg := &gmail.Message{
		Id: "msg-1",
		Payload: &gmail.MessagePart{
			MimeType: "multipart/related",
			Headers: []*gmail.MessagePartHeader{
				{Name: "From", Value: "bank@example.com"},
				{Name: "Subject", Value: "Alert"},
			},
			Body: &gmail.MessagePartBody{Data: "outer"},
			Parts: []*gmail.MessagePart{
				{MimeType: "text/html", Body: &gmail.MessagePartBody{Data: "inner"}},
				{MimeType: "image/png", Body: nil},
			},
		},
	}

	raw := convertMessage(msg)

	if raw.ID != "msg-1" {
		t.Errorf("expected id msg-1, got %s", raw.ID)
	}
	if raw.Payload.MimeType != "multipart/related" {
		t.Errorf("expected mime type kept, got %s", raw.Payload.MimeType)
	}
	if len(raw.Payload.Headers) != 2 || raw.Payload.Headers[0].Name != "From" {
		t.Errorf("expected headers preserved, got %v", raw.Payload.Headers)
	}
	if len(raw.Payload.Parts) != 2 {
		t.Fatalf("expected 2 parts, got %d", len(raw.Payload.Parts))
	}
	if raw.Payload.Parts[0].Body.Data != "inner" {
		t.Errorf("expected first part body, got %s", raw.Payload.Parts[0].Body.Data)
	}
	if raw.Payload.Parts[1].Body.Data != "" {
		t.Errorf("expected nil body to map to empty data")
	}
}

func TestConvertMessageNilPayload(t *testing.T) {
	raw := convertMessage(&gmail.Message{Id: "msg-2"})
	if raw.ID != "msg-2" {
		t.Errorf("expected id kept, got %s", raw.ID)
	}
	if raw.Payload.MimeType != "" || len(raw.Payload.Headers) != 0 {
		t.Errorf("expected empty payload, got %+v", raw.Payload)
	}
}

func TestFactoryTopicName(t *testing.T) {
	f := NewFactory("my-project", nil)
	want := "projects/my-project/topics/gmail-push"
	if f.topicName != want {
		t.Errorf("expected topic %s, got %s", want, f.topicName)
	}
}
