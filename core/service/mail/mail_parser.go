package mail

import (
	"encoding/base64"
	"regexp"
	"strings"
	"unicode/utf8"

	"mail_server/core/domain"
	"mail_server/pkg/apperr"
	"mail_server/pkg/logger"
)

// Headers promoted from the payload to named Email fields.
const (
	headerFrom        = "from"
	headerTo          = "to"
	headerDate        = "date"
	headerSubject     = "subject"
	headerContentType = "content-type"
)

var (
	scriptRe     = regexp.MustCompile(`(?is)<script[^>]*>.*?</script>`)
	styleRe      = regexp.MustCompile(`(?is)<style[^>]*>.*?</style>`)
	tagRe        = regexp.MustCompile(`<[^>]*>`)
	whitespaceRe = regexp.MustCompile(`\s+`)

	entityReplacer = strings.NewReplacer(
		"&nbsp;", " ",
		"&amp;", "&",
		"&lt;", "<",
		"&gt;", ">",
		"&quot;", `"`,
		"&#39;", "'",
	)
)

// ParseMessage normalizes a provider message into an Email. It is a
// pure function of its input: no network, no clock, no shared state.
func ParseMessage(msg *domain.RawMessage) (*domain.Email, error) {
	if msg == nil {
		return nil, apperr.BadRequest("nil message")
	}

	email := &domain.Email{
		ID:          msg.ID,
		MimeType:    msg.Payload.MimeType,
		Sender:      findHeader(msg.Payload.Headers, headerFrom),
		Recipient:   findHeader(msg.Payload.Headers, headerTo),
		Date:        findHeader(msg.Payload.Headers, headerDate),
		Subject:     findHeader(msg.Payload.Headers, headerSubject),
		ContentType: findHeader(msg.Payload.Headers, headerContentType),
	}

	raw, err := selectContent(msg)
	if err != nil {
		return nil, err
	}
	email.RawData = raw

	html, err := decodeBase64URL(raw)
	if err != nil {
		return nil, err
	}
	email.HTML = html
	email.Text = stripHTML(html)

	return email, nil
}

// findHeader returns the value of the first header whose name matches
// case-insensitively, or "" when absent.
func findHeader(headers []domain.MessageHeader, name string) string {
	for _, h := range headers {
		if strings.EqualFold(h.Name, name) {
			return h.Value
		}
	}
	return ""
}

// selectContent picks the encoded body by payload mime type. Multipart
// messages use the first part; additional parts hold inline resources
// such as images and are skipped.
func selectContent(msg *domain.RawMessage) (string, error) {
	switch msg.Payload.MimeType {
	case domain.MimeTextHTML:
		return msg.Payload.Body.Data, nil
	case domain.MimeMultipartRelated:
		if len(msg.Payload.Parts) == 0 {
			return "", apperr.DecodeFailed(nil).WithDetail("reason", "multipart payload has no parts")
		}
		if len(msg.Payload.Parts) > 1 {
			logger.WithField("message_id", msg.ID).
				Warn("[Parser] Multipart message has %d parts, using first", len(msg.Payload.Parts))
		}
		return msg.Payload.Parts[0].Body.Data, nil
	default:
		return "", apperr.UnsupportedMime(msg.Payload.MimeType)
	}
}

// decodeBase64URL decodes provider body data, tolerating both padded
// and unpadded forms, and rejects content that is not valid UTF-8.
func decodeBase64URL(data string) (string, error) {
	decoded, err := base64.RawURLEncoding.DecodeString(strings.TrimRight(data, "="))
	if err != nil {
		return "", apperr.DecodeFailed(err)
	}
	if !utf8.Valid(decoded) {
		return "", apperr.DecodeFailed(nil).WithDetail("reason", "content is not valid UTF-8")
	}
	return string(decoded), nil
}

// stripHTML reduces an HTML document to its visible text: script and
// style blocks removed, tags stripped, common entities replaced, runs
// of whitespace collapsed to single spaces.
func stripHTML(html string) string {
	text := scriptRe.ReplaceAllString(html, "")
	text = styleRe.ReplaceAllString(text, "")
	text = tagRe.ReplaceAllString(text, " ")
	text = entityReplacer.Replace(text)
	text = whitespaceRe.ReplaceAllString(text, " ")
	return strings.TrimSpace(text)
}
