package mail

import (
	"encoding/base64"
	"testing"

	"mail_server/core/domain"
	"mail_server/pkg/apperr"
)

func encodeBody(s string) string {
	return base64.URLEncoding.EncodeToString([]byte(s))
}

func htmlMessage(id, body string) *domain.RawMessage {
	return &domain.RawMessage{
		ID: id,
		Payload: domain.MessagePayload{
			MimeType: domain.MimeTextHTML,
			Headers: []domain.MessageHeader{
				{Name: "From", Value: "bank@example.com"},
				{Name: "To", Value: "me@example.com"},
				{Name: "Date", Value: "Mon, 2 Jan 2006 15:04:05 -0700"},
				{Name: "Subject", Value: "Purchase confirmation"},
				{Name: "Content-Type", Value: `text/html; charset="UTF-8"`},
			},
			Body: domain.MessageBody{Data: encodeBody(body)},
		},
	}
}

func TestParseMessageHTML(t *testing.T) {
	msg := htmlMessage("msg-1", "<p>Hello</p>")

	email, err := ParseMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if email.ID != "msg-1" {
		t.Errorf("expected id msg-1, got %s", email.ID)
	}
	if email.Sender != "bank@example.com" {
		t.Errorf("expected sender bank@example.com, got %s", email.Sender)
	}
	if email.Subject != "Purchase confirmation" {
		t.Errorf("expected subject, got %s", email.Subject)
	}
	if email.HTML != "<p>Hello</p>" {
		t.Errorf("expected decoded html, got %s", email.HTML)
	}
	if email.Text != "Hello" {
		t.Errorf("expected stripped text Hello, got %q", email.Text)
	}
}

func TestParseMessageHeaderCaseInsensitive(t *testing.T) {
	msg := htmlMessage("msg-2", "<p>x</p>")
	msg.Payload.Headers = []domain.MessageHeader{
		{Name: "FROM", Value: "upper@example.com"},
		{Name: "from", Value: "lower@example.com"},
		{Name: "sUbJeCt", Value: "mixed"},
	}

	email, err := ParseMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if email.Sender != "upper@example.com" {
		t.Errorf("expected first match to win, got %s", email.Sender)
	}
	if email.Subject != "mixed" {
		t.Errorf("expected mixed-case subject match, got %s", email.Subject)
	}
	if email.Recipient != "" {
		t.Errorf("expected absent header to be empty, got %s", email.Recipient)
	}
}

func TestParseMessageMultipartUsesFirstPart(t *testing.T) {
	msg := &domain.RawMessage{
		ID: "msg-3",
		Payload: domain.MessagePayload{
			MimeType: domain.MimeMultipartRelated,
			Parts: []domain.MessagePart{
				{MimeType: "text/html", Body: domain.MessageBody{Data: encodeBody("<b>first</b>")}},
				{MimeType: "image/png", Body: domain.MessageBody{Data: encodeBody("binary")}},
			},
		},
	}

	email, err := ParseMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if email.HTML != "<b>first</b>" {
		t.Errorf("expected first part content, got %s", email.HTML)
	}
}

func TestParseMessageMultipartNoParts(t *testing.T) {
	msg := &domain.RawMessage{
		ID: "msg-4",
		Payload: domain.MessagePayload{
			MimeType: domain.MimeMultipartRelated,
		},
	}

	_, err := ParseMessage(msg)
	if !apperr.IsCode(err, apperr.CodeDecodeFailed) {
		t.Errorf("expected DECODE_FAILED, got %v", err)
	}
}

func TestParseMessageUnsupportedMime(t *testing.T) {
	msg := &domain.RawMessage{
		ID: "msg-5",
		Payload: domain.MessagePayload{
			MimeType: "text/plain",
			Body:     domain.MessageBody{Data: encodeBody("plain")},
		},
	}

	_, err := ParseMessage(msg)
	if !apperr.IsCode(err, apperr.CodeUnsupportedMime) {
		t.Errorf("expected UNSUPPORTED_MIME_TYPE, got %v", err)
	}
}

func TestParseMessageInvalidBase64(t *testing.T) {
	msg := htmlMessage("msg-6", "x")
	msg.Payload.Body.Data = "!!!not-base64!!!"

	_, err := ParseMessage(msg)
	if !apperr.IsCode(err, apperr.CodeDecodeFailed) {
		t.Errorf("expected DECODE_FAILED, got %v", err)
	}
}

func TestDecodeBase64URLPaddingVariants(t *testing.T) {
	content := "<p>padded content</p>"

	tests := []struct {
		name string
		data string
	}{
		{"padded", base64.URLEncoding.EncodeToString([]byte(content))},
		{"unpadded", base64.RawURLEncoding.EncodeToString([]byte(content))},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			decoded, err := decodeBase64URL(tt.data)
			if err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
			if decoded != content {
				t.Errorf("expected %q, got %q", content, decoded)
			}
		})
	}
}

func TestStripHTML(t *testing.T) {
	tests := []struct {
		name string
		html string
		want string
	}{
		{"entities and spacing", "<p>Hello&nbsp;&nbsp;World</p>", "Hello World"},
		{"script removed", "<script>alert(1)</script><p>safe</p>", "safe"},
		{"style removed", "<style>p{color:red}</style><div>text</div>", "text"},
		{"nested tags", "<div><span>a</span> <b>b</b></div>", "a b"},
		{"amp entity", "R&amp;D", "R&D"},
		{"empty", "", ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := stripHTML(tt.html)
			if got != tt.want {
				t.Errorf("stripHTML(%q) = %q, want %q", tt.html, got, tt.want)
			}
		})
	}
}

func TestParseMessageDeterministic(t *testing.T) {
	msg := htmlMessage("msg-7", "<p>same input</p>")

	first, err := ParseMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	second, err := ParseMessage(msg)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	if *first != *second {
		t.Errorf("expected identical results, got %+v and %+v", first, second)
	}
}
