package channel

import (
	"context"
	"net/url"

	"team_inbox/internal/domain"
	"team_inbox/pkg/logger"
)

const smsMaxLength = 1600

// messageAPI is the slice of the provider client senders actually need.
type messageAPI interface {
	SendMessage(ctx context.Context, params SendParams) (*ProviderMessage, error)
}

type smsSender struct {
	api    messageAPI
	from   string
	policy retryPolicy
	log    logger.Logger
}

func NewSMSSender(client *Client, log logger.Logger) Sender {
	return &smsSender{
		api:    client,
		from:   client.SMSFrom(),
		policy: defaultRetryPolicy,
		log:    log,
	}
}

func (s *smsSender) ChannelType() domain.Channel {
	return domain.ChannelSMS
}

func (s *smsSender) Features() domain.ChannelFeatures {
	return domain.ChannelFeatures{
		MaxContentLength:   smsMaxLength,
		SupportsAttachment: true,
		MaxAttachments:     10,
		MaxAttachmentSize:  5 * 1024 * 1024,
		AttachmentTypes:    []string{"image/jpeg", "image/png", "image/gif"},
		SupportsReceipts:   true,
	}
}

func (s *smsSender) ValidateRecipient(contact *domain.Contact) *domain.ValidationResult {
	if contact.Phone == nil {
		return &domain.ValidationResult{
			Valid:  false,
			Errors: map[string]string{"phone": "phone number is required for sms"},
		}
	}
	if !e164Pattern.MatchString(*contact.Phone) {
		return &domain.ValidationResult{
			Valid:  false,
			Errors: map[string]string{"phone": "phone number must be E.164"},
		}
	}
	return &domain.ValidationResult{Valid: true}
}

func (s *smsSender) Send(ctx context.Context, message *domain.OutboundMessage) *domain.SendResult {
	if errs := validateOutbound(message, s.Features(), e164Pattern.MatchString); len(errs) > 0 {
		return validationFailure(errs)
	}

	body := truncate(normalizeWhitespace(plainReplacer.Replace(message.Content)), smsMaxLength)

	params := SendParams{
		To:        message.To,
		From:      s.from,
		Body:      body,
		MediaURLs: attachmentURLs(message.Attachments),
	}

	providerMsg, attempts, err := callWithRetry(ctx, s.policy, s.log, func(ctx context.Context) (*ProviderMessage, error) {
		return s.api.SendMessage(ctx, params)
	})
	if err != nil {
		return sendFailure(err, attempts)
	}

	return sendSuccess(providerMsg, attempts)
}

type smsIntegration struct {
	client *Client
	log    logger.Logger
}

func NewSMSIntegration(client *Client, log logger.Logger) Integration {
	return &smsIntegration{client: client, log: log}
}

func (i *smsIntegration) ChannelType() domain.Channel {
	return domain.ChannelSMS
}

func (i *smsIntegration) CreateSender() Sender {
	return NewSMSSender(i.client, i.log)
}

func (i *smsIntegration) SetupWebhook(ctx context.Context, cfg domain.WebhookConfig) error {
	return i.client.RegisterWebhook(ctx, string(domain.ChannelSMS), WebhookRegistration{
		CallbackURL: cfg.CallbackURL,
		StatusURL:   cfg.StatusURL,
	})
}

func (i *smsIntegration) ValidateWebhook(callbackURL string, form url.Values, signature string) bool {
	return ValidateSignature(i.client.WebhookSecret(), callbackURL, form, signature)
}

func (i *smsIntegration) ProcessWebhook(form url.Values) ([]*domain.RawChannelMessage, error) {
	raw, err := parseInboundForm(domain.ChannelSMS, form)
	if err != nil {
		return nil, err
	}
	return []*domain.RawChannelMessage{raw}, nil
}

func sendFailure(err error, attempts int) *domain.SendResult {
	metadata := map[string]any{
		"attempt":   attempts,
		"retryable": IsRetryable(err),
	}
	if pe, ok := err.(*ProviderError); ok && pe.Code != 0 {
		metadata["provider_code"] = pe.Code
	}
	return &domain.SendResult{
		Success:  false,
		Error:    err.Error(),
		Metadata: metadata,
	}
}

func sendSuccess(providerMsg *ProviderMessage, attempts int) *domain.SendResult {
	return &domain.SendResult{
		Success:    true,
		MessageID:  providerMsg.SID,
		ExternalID: providerMsg.SID,
		Metadata: map[string]any{
			"attempt":         attempts,
			"provider_status": providerMsg.Status,
		},
	}
}
