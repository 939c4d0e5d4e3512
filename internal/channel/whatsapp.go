package channel

import (
	"context"
	"net/url"

	"team_inbox/internal/domain"
	"team_inbox/pkg/logger"
)

const whatsAppMaxLength = 4096

type whatsAppSender struct {
	api    messageAPI
	from   string
	policy retryPolicy
	log    logger.Logger
}

func NewWhatsAppSender(client *Client, log logger.Logger) Sender {
	return &whatsAppSender{
		api:    client,
		from:   client.WhatsAppFrom(),
		policy: defaultRetryPolicy,
		log:    log,
	}
}

func (s *whatsAppSender) ChannelType() domain.Channel {
	return domain.ChannelWhatsApp
}

func (s *whatsAppSender) Features() domain.ChannelFeatures {
	return domain.ChannelFeatures{
		MaxContentLength:   whatsAppMaxLength,
		SupportsAttachment: true,
		MaxAttachments:     10,
		MaxAttachmentSize:  16 * 1024 * 1024,
		AttachmentTypes: []string{
			"image/jpeg", "image/png", "image/gif",
			"audio/ogg", "video/mp4", "application/pdf",
		},
		SupportsReceipts: true,
	}
}

func (s *whatsAppSender) ValidateRecipient(contact *domain.Contact) *domain.ValidationResult {
	if contact.Phone == nil {
		return &domain.ValidationResult{
			Valid:  false,
			Errors: map[string]string{"phone": "phone number is required for whatsapp"},
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

func (s *whatsAppSender) Send(ctx context.Context, message *domain.OutboundMessage) *domain.SendResult {
	if errs := validateOutbound(message, s.Features(), e164Pattern.MatchString); len(errs) > 0 {
		return validationFailure(errs)
	}

	body := truncate(normalizeWhitespace(whatsAppReplacer.Replace(message.Content)), whatsAppMaxLength)

	params := SendParams{
		To:        "whatsapp:" + message.To,
		From:      "whatsapp:" + s.from,
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

type whatsAppIntegration struct {
	client *Client
	log    logger.Logger
}

func NewWhatsAppIntegration(client *Client, log logger.Logger) Integration {
	return &whatsAppIntegration{client: client, log: log}
}

func (i *whatsAppIntegration) ChannelType() domain.Channel {
	return domain.ChannelWhatsApp
}

func (i *whatsAppIntegration) CreateSender() Sender {
	return NewWhatsAppSender(i.client, i.log)
}

func (i *whatsAppIntegration) SetupWebhook(ctx context.Context, cfg domain.WebhookConfig) error {
	return i.client.RegisterWebhook(ctx, string(domain.ChannelWhatsApp), WebhookRegistration{
		CallbackURL: cfg.CallbackURL,
		StatusURL:   cfg.StatusURL,
	})
}

func (i *whatsAppIntegration) ValidateWebhook(callbackURL string, form url.Values, signature string) bool {
	return ValidateSignature(i.client.WebhookSecret(), callbackURL, form, signature)
}

func (i *whatsAppIntegration) ProcessWebhook(form url.Values) ([]*domain.RawChannelMessage, error) {
	raw, err := parseInboundForm(domain.ChannelWhatsApp, form)
	if err != nil {
		return nil, err
	}
	return []*domain.RawChannelMessage{raw}, nil
}
