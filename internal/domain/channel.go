package domain

import "time"

// ChannelFeatures describes what one channel supports. Senders validate
// against this before any network call.
type ChannelFeatures struct {
	MaxContentLength   int      `json:"max_content_length"`
	SupportsAttachment bool     `json:"supports_attachment"`
	MaxAttachments     int      `json:"max_attachments"`
	MaxAttachmentSize  int64    `json:"max_attachment_size"`
	AttachmentTypes    []string `json:"attachment_types,omitempty"`
	SupportsReceipts   bool     `json:"supports_receipts"`
}

// SendResult is the outcome of one channel send, success or final failure.
type SendResult struct {
	Success    bool           `json:"success"`
	MessageID  string         `json:"message_id,omitempty"`
	ExternalID string         `json:"external_id,omitempty"`
	Error      string         `json:"error,omitempty"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	Stored     *Message       `json:"stored_message,omitempty"`
}

// ValidationResult carries itemized, field-level validation messages.
type ValidationResult struct {
	Valid  bool              `json:"valid"`
	Errors map[string]string `json:"errors,omitempty"`
}

// ProcessingResult is the outcome of normalizing one raw channel message.
type ProcessingResult struct {
	Success        bool          `json:"success"`
	Errors         []string      `json:"errors,omitempty"`
	Warnings       []string      `json:"warnings,omitempty"`
	StoredMessage  *Message      `json:"stored_message,omitempty"`
	ProcessingTime time.Duration `json:"processing_time"`
}

// BatchResult aggregates per-item outcomes of a batch normalization run.
type BatchResult struct {
	Processed int      `json:"processed"`
	Failed    int      `json:"failed"`
	Errors    []string `json:"errors,omitempty"`
}

// WebhookConfig is passed to integrations when registering callback URLs
// with the provider.
type WebhookConfig struct {
	CallbackURL string `json:"callback_url"`
	StatusURL   string `json:"status_url,omitempty"`
}
