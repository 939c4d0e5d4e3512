package channel

import (
	"fmt"
	"regexp"
	"strings"

	"team_inbox/internal/domain"
)

var (
	e164Pattern  = regexp.MustCompile(`^\+[1-9]\d{1,14}$`)
	emailPattern = regexp.MustCompile(`^[^@\s]+@[^@\s]+\.[^@\s]+$`)

	crlfReplacer = strings.NewReplacer("\r\n", "\n", "\r", "\n")
	multiNewline = regexp.MustCompile(`\n{3,}`)
	multiSpace   = regexp.MustCompile(`[ \t]{2,}`)

	// Plain-text channels get markdown markers removed entirely.
	plainReplacer = strings.NewReplacer("**", "", "__", "", "~~", "", "`", "")
	// WhatsApp understands its own single-character markup subset.
	whatsAppReplacer = strings.NewReplacer("**", "*", "__", "_", "~~", "~", "`", "")
)

func normalizeWhitespace(s string) string {
	s = crlfReplacer.Replace(s)
	s = multiNewline.ReplaceAllString(s, "\n\n")
	s = multiSpace.ReplaceAllString(s, " ")
	return strings.TrimSpace(s)
}

// truncate bounds s to max runes, replacing the tail with an ellipsis marker
// when over the cap.
func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max-1]) + "…"
}

// validateOutbound runs the network-free checks shared by all senders and
// returns itemized field errors.
func validateOutbound(message *domain.OutboundMessage, features domain.ChannelFeatures, recipientOK func(string) bool) map[string]string {
	errs := make(map[string]string)

	if message.To == "" {
		errs["to"] = "recipient is required"
	} else if !recipientOK(message.To) {
		errs["to"] = "recipient has invalid format"
	}

	if message.Content == "" && len(message.Attachments) == 0 {
		errs["content"] = "content or attachments required"
	}

	if len(message.Attachments) > 0 {
		if !features.SupportsAttachment {
			errs["attachments"] = "channel does not support attachments"
		} else {
			if len(message.Attachments) > features.MaxAttachments {
				errs["attachments"] = fmt.Sprintf("at most %d attachments allowed", features.MaxAttachments)
			}
			for i, att := range message.Attachments {
				if att.Size > features.MaxAttachmentSize {
					errs[fmt.Sprintf("attachments[%d].size", i)] = fmt.Sprintf("exceeds %d bytes", features.MaxAttachmentSize)
				}
				if len(features.AttachmentTypes) > 0 && !containsString(features.AttachmentTypes, att.ContentType) {
					errs[fmt.Sprintf("attachments[%d].content_type", i)] = fmt.Sprintf("unsupported type %q", att.ContentType)
				}
				if att.URL == "" {
					errs[fmt.Sprintf("attachments[%d].url", i)] = "attachment URL is required"
				}
			}
		}
	}

	return errs
}

func containsString(haystack []string, needle string) bool {
	for _, s := range haystack {
		if s == needle {
			return true
		}
	}
	return false
}

func joinFieldErrors(errs map[string]string) string {
	parts := make([]string, 0, len(errs))
	for field, msg := range errs {
		parts = append(parts, field+": "+msg)
	}
	return "validation failed: " + strings.Join(parts, "; ")
}

func validationFailure(errs map[string]string) *domain.SendResult {
	return &domain.SendResult{
		Success: false,
		Error:   joinFieldErrors(errs),
		Metadata: map[string]any{
			"validation": errs,
			"retryable":  false,
		},
	}
}

func attachmentURLs(attachments []domain.Attachment) []string {
	urls := make([]string, 0, len(attachments))
	for _, att := range attachments {
		urls = append(urls, att.URL)
	}
	return urls
}
