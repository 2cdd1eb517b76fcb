package domain

import "time"

// Mime types the parser understands. Anything else is rejected.
const (
	MimeTextHTML         = "text/html"
	MimeMultipartRelated = "multipart/related"
)

// MessageHeader is one name/value pair from the provider payload.
// Header names are matched case-insensitively, first match wins.
type MessageHeader struct {
	Name  string `json:"name"`
	Value string `json:"value"`
}

// MessageBody carries the base64url-encoded content of a part.
type MessageBody struct {
	Data string `json:"data,omitempty"`
}

// MessagePart is one sub-part of a multipart payload.
type MessagePart struct {
	MimeType string      `json:"mimeType"`
	Body     MessageBody `json:"body"`
}

// MessagePayload is the nested body structure of a provider message.
// Exactly one of Body.Data or Parts carries the content, selected by
// MimeType.
type MessagePayload struct {
	MimeType string          `json:"mimeType"`
	Headers  []MessageHeader `json:"headers"`
	Body     MessageBody     `json:"body"`
	Parts    []MessagePart   `json:"parts,omitempty"`
}

// RawMessage is the provider wire shape of one message before
// normalization.
type RawMessage struct {
	ID      string         `json:"id"`
	Payload MessagePayload `json:"payload"`
}

// Email is the normalized, parsed representation of a message. Created
// once per fetch, immutable after construction, never persisted.
type Email struct {
	ID          string `json:"id"`
	MimeType    string `json:"mime_type"`
	Sender      string `json:"sender,omitempty"`
	Recipient   string `json:"recipient,omitempty"`
	Date        string `json:"date,omitempty"`
	Subject     string `json:"subject,omitempty"`
	ContentType string `json:"content_type,omitempty"`
	RawData     string `json:"-"`
	HTML        string `json:"html,omitempty"`
	Text        string `json:"text,omitempty"`
}

// EmailBatch is the result of a list-and-fetch operation: parsed emails
// in listing order plus the IDs that failed to fetch or parse.
type EmailBatch struct {
	Emails    []*Email `json:"emails"`
	FailedIDs []string `json:"failed_ids,omitempty"`
}

// Transaction types the classifier distinguishes.
const (
	TransactionCard     = "card"
	TransactionTransfer = "transfer"
)

// TransactionReport is the structured extraction produced by the
// classifier. A zero report with IsTransaction false means
// "classification unavailable", not "definitively not a transaction" --
// check Classified to tell the two apart.
type TransactionReport struct {
	Classified    bool    `json:"classified"`
	IsTransaction bool    `json:"is_transaction"`
	Type          string  `json:"transaction_type,omitempty"`
	Amount        float64 `json:"amount,omitempty"`
	Establishment string  `json:"establishment,omitempty"`
	Beneficiary   string  `json:"beneficiary,omitempty"`
	Date          string  `json:"date,omitempty"`
}

// WatchRegistration is a provider-side push subscription. Gmail watches
// cannot be renewed in place; renewal stops and re-registers.
type WatchRegistration struct {
	HistoryID  uint64    `json:"history_id"`
	Expiration time.Time `json:"expiration"`
	Topic      string    `json:"topic"`
}
