package channel

import (
	"crypto/hmac"
	"crypto/sha1"
	"encoding/base64"
	"fmt"
	"net/url"
	"sort"
	"strconv"
	"strings"
	"time"

	"team_inbox/internal/domain"
)

// IsStatusCallback distinguishes delivery/read receipts from new-message
// payloads. Receipts never enter the normalization pipeline.
func IsStatusCallback(form url.Values) bool {
	return form.Get("MessageStatus") != ""
}

// ParseStatusCallback maps a provider receipt to the unified status model.
func ParseStatusCallback(form url.Values) (externalID string, status domain.MessageStatus, ok bool) {
	externalID = form.Get("MessageSid")
	if externalID == "" {
		externalID = form.Get("SmsSid")
	}
	if externalID == "" {
		return "", "", false
	}

	switch form.Get("MessageStatus") {
	case "sent", "queued", "accepted":
		status = domain.MessageStatusSent
	case "delivered":
		status = domain.MessageStatusDelivered
	case "read":
		status = domain.MessageStatusRead
	case "failed", "undelivered":
		status = domain.MessageStatusFailed
	default:
		return "", "", false
	}

	return externalID, status, true
}

// parseInboundForm extracts one raw channel message from a form-encoded
// webhook payload. Attachment-bearing payloads become one message with N
// attachment entries.
func parseInboundForm(ch domain.Channel, form url.Values) (*domain.RawChannelMessage, error) {
	externalID := form.Get("MessageSid")
	if externalID == "" {
		externalID = form.Get("SmsSid")
	}
	if externalID == "" {
		return nil, fmt.Errorf("webhook payload missing message sid")
	}

	from := stripChannelPrefix(form.Get("From"))
	to := stripChannelPrefix(form.Get("To"))

	raw := &domain.RawChannelMessage{
		Channel:     ch,
		ExternalID:  externalID,
		From:        from,
		To:          to,
		Content:     form.Get("Body"),
		Attachments: extractAttachments(form),
		ReceivedAt:  time.Now(),
		Metadata:    map[string]any{},
	}

	if profile := form.Get("ProfileName"); profile != "" {
		raw.Metadata["profile_name"] = profile
	}
	if subject := form.Get("Subject"); subject != "" {
		raw.Metadata["subject"] = subject
	}

	return raw, nil
}

// extractAttachments scans the numbered MediaUrl0..N / MediaContentType0..N
// pairs; the first absent index terminates the scan.
func extractAttachments(form url.Values) []domain.RawAttachment {
	var attachments []domain.RawAttachment
	for i := 0; ; i++ {
		mediaURL := form.Get("MediaUrl" + strconv.Itoa(i))
		if mediaURL == "" {
			break
		}

		att := domain.RawAttachment{
			URL:         mediaURL,
			ContentType: form.Get("MediaContentType" + strconv.Itoa(i)),
		}
		if parsed, err := url.Parse(mediaURL); err == nil {
			segments := strings.Split(parsed.Path, "/")
			att.Filename = segments[len(segments)-1]
		}
		attachments = append(attachments, att)
	}
	return attachments
}

// whatsapp addresses come prefixed, e.g. "whatsapp:+15551234567".
func stripChannelPrefix(address string) string {
	if idx := strings.IndexByte(address, ':'); idx >= 0 {
		return address[idx+1:]
	}
	return address
}

// ComputeSignature builds the provider's webhook signature: HMAC-SHA1 over
// the callback URL concatenated with the sorted form keys and values,
// base64-encoded.
func ComputeSignature(secret, callbackURL string, form url.Values) string {
	keys := make([]string, 0, len(form))
	for key := range form {
		keys = append(keys, key)
	}
	sort.Strings(keys)

	var b strings.Builder
	b.WriteString(callbackURL)
	for _, key := range keys {
		b.WriteString(key)
		b.WriteString(form.Get(key))
	}

	mac := hmac.New(sha1.New, []byte(secret))
	mac.Write([]byte(b.String()))
	return base64.StdEncoding.EncodeToString(mac.Sum(nil))
}

// ValidateSignature compares in constant time to prevent timing attacks.
func ValidateSignature(secret, callbackURL string, form url.Values, signature string) bool {
	expected := ComputeSignature(secret, callbackURL, form)
	return hmac.Equal([]byte(expected), []byte(signature))
}
