package channel

import (
	"context"
	"net/url"

	"team_inbox/internal/domain"
	"team_inbox/pkg/logger"
)

const emailMaxLength = 100_000

type emailAPI interface {
	SendEmail(ctx context.Context, params EmailParams) (*ProviderMessage, error)
}

type emailSender struct {
	api    emailAPI
	from   string
	policy retryPolicy
	log    logger.Logger
}

func NewEmailSender(client *Client, log logger.Logger) Sender {
	return &emailSender{
		api:    client,
		from:   client.EmailFrom(),
		policy: defaultRetryPolicy,
		log:    log,
	}
}

func (s *emailSender) ChannelType() domain.Channel {
	return domain.ChannelEmail
}

func (s *emailSender) Features() domain.ChannelFeatures {
	return domain.ChannelFeatures{
		MaxContentLength:   emailMaxLength,
		SupportsAttachment: false,
		SupportsReceipts:   false,
	}
}

func (s *emailSender) ValidateRecipient(contact *domain.Contact) *domain.ValidationResult {
	if contact.Email == nil {
		return &domain.ValidationResult{
			Valid:  false,
			Errors: map[string]string{"email": "email address is required for email"},
		}
	}
	if !emailPattern.MatchString(*contact.Email) {
		return &domain.ValidationResult{
			Valid:  false,
			Errors: map[string]string{"email": "email address has invalid format"},
		}
	}
	return &domain.ValidationResult{Valid: true}
}

func (s *emailSender) Send(ctx context.Context, message *domain.OutboundMessage) *domain.SendResult {
	if errs := validateOutbound(message, s.Features(), emailPattern.MatchString); len(errs) > 0 {
		return validationFailure(errs)
	}

	// Email keeps rich text; only the length cap applies.
	body := truncate(message.Content, emailMaxLength)

	subject := "New message"
	if s, ok := message.Metadata["subject"].(string); ok && s != "" {
		subject = s
	}

	params := EmailParams{
		To:      message.To,
		From:    s.from,
		Subject: subject,
		Body:    body,
	}

	providerMsg, attempts, err := callWithRetry(ctx, s.policy, s.log, func(ctx context.Context) (*ProviderMessage, error) {
		return s.api.SendEmail(ctx, params)
	})
	if err != nil {
		return sendFailure(err, attempts)
	}

	return sendSuccess(providerMsg, attempts)
}

type emailIntegration struct {
	client *Client
	log    logger.Logger
}

func NewEmailIntegration(client *Client, log logger.Logger) Integration {
	return &emailIntegration{client: client, log: log}
}

func (i *emailIntegration) ChannelType() domain.Channel {
	return domain.ChannelEmail
}

func (i *emailIntegration) CreateSender() Sender {
	return NewEmailSender(i.client, i.log)
}

func (i *emailIntegration) SetupWebhook(ctx context.Context, cfg domain.WebhookConfig) error {
	return i.client.RegisterWebhook(ctx, string(domain.ChannelEmail), WebhookRegistration{
		CallbackURL: cfg.CallbackURL,
		StatusURL:   cfg.StatusURL,
	})
}

func (i *emailIntegration) ValidateWebhook(callbackURL string, form url.Values, signature string) bool {
	return ValidateSignature(i.client.WebhookSecret(), callbackURL, form, signature)
}

func (i *emailIntegration) ProcessWebhook(form url.Values) ([]*domain.RawChannelMessage, error) {
	raw, err := parseInboundForm(domain.ChannelEmail, form)
	if err != nil {
		return nil, err
	}
	if raw.From == "" || !emailPattern.MatchString(raw.From) {
		// Fall back to the dedicated email fields some providers use.
		if from := form.Get("FromEmail"); from != "" {
			raw.From = from
		}
	}
	return []*domain.RawChannelMessage{raw}, nil
}
