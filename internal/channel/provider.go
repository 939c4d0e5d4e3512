package channel

import (
	"context"
	"errors"
	"fmt"
	"net/url"
	"time"

	"github.com/go-resty/resty/v2"

	"team_inbox/internal/config"
	"team_inbox/pkg/logger"
)

// Provider error codes that are known to be transient.
var transientProviderCodes = map[int]bool{
	20429: true, // too many requests
	30001: true, // queue overflow
	30002: true, // account suspended, retry window
}

// ProviderError is a classified failure from the messaging vendor.
type ProviderError struct {
	StatusCode int
	Code       int
	Message    string
	Retryable  bool
}

func (e *ProviderError) Error() string {
	return fmt.Sprintf("provider error %d (code %d): %s", e.StatusCode, e.Code, e.Message)
}

// IsRetryable reports whether an error is worth another attempt. Anything
// that is not a classified ProviderError is treated as permanent.
func IsRetryable(err error) bool {
	var pe *ProviderError
	if errors.As(err, &pe) {
		return pe.Retryable
	}
	return false
}

// Client is the shared REST client for the messaging/telephony vendor.
type Client struct {
	http *resty.Client
	cfg  config.ProviderConfig
	log  logger.Logger
}

func NewClient(cfg config.ProviderConfig, log logger.Logger) *Client {
	http := resty.New().
		SetBaseURL(cfg.BaseURL).
		SetBasicAuth(cfg.AccountSID, cfg.AuthToken).
		SetTimeout(15 * time.Second)

	return &Client{http: http, cfg: cfg, log: log}
}

type SendParams struct {
	To        string
	From      string
	Body      string
	MediaURLs []string
}

type ProviderMessage struct {
	SID    string `json:"sid"`
	Status string `json:"status"`
}

type providerAPIError struct {
	Code    int    `json:"code"`
	Message string `json:"message"`
}

// SendMessage posts one message to the vendor. Network failures and
// transient vendor responses come back as retryable ProviderErrors.
func (c *Client) SendMessage(ctx context.Context, params SendParams) (*ProviderMessage, error) {
	form := url.Values{}
	form.Set("To", params.To)
	form.Set("From", params.From)
	form.Set("Body", params.Body)
	for _, mediaURL := range params.MediaURLs {
		form.Add("MediaUrl", mediaURL)
	}

	resp, err := c.http.R().
		SetContext(ctx).
		SetFormDataFromValues(form).
		SetResult(&ProviderMessage{}).
		SetError(&providerAPIError{}).
		Post(fmt.Sprintf("/v1/Accounts/%s/Messages", c.cfg.AccountSID))

	return c.handleResponse(resp, err)
}

type EmailParams struct {
	To      string
	From    string
	Subject string
	Body    string
}

func (c *Client) SendEmail(ctx context.Context, params EmailParams) (*ProviderMessage, error) {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(map[string]string{
			"to":      params.To,
			"from":    params.From,
			"subject": params.Subject,
			"body":    params.Body,
		}).
		SetResult(&ProviderMessage{}).
		SetError(&providerAPIError{}).
		Post(fmt.Sprintf("/v1/Accounts/%s/Emails", c.cfg.AccountSID))

	return c.handleResponse(resp, err)
}

func (c *Client) handleResponse(resp *resty.Response, err error) (*ProviderMessage, error) {
	if err != nil {
		// Transport-level failure: DNS, connect, timeout. Always retryable.
		return nil, &ProviderError{Message: err.Error(), Retryable: true}
	}

	if resp.IsError() {
		apiErr, _ := resp.Error().(*providerAPIError)
		pe := &ProviderError{StatusCode: resp.StatusCode()}
		if apiErr != nil {
			pe.Code = apiErr.Code
			pe.Message = apiErr.Message
		}
		pe.Retryable = resp.StatusCode() >= 500 ||
			resp.StatusCode() == 429 ||
			transientProviderCodes[pe.Code]
		return nil, pe
	}

	message, ok := resp.Result().(*ProviderMessage)
	if !ok || message.SID == "" {
		return nil, &ProviderError{
			StatusCode: resp.StatusCode(),
			Message:    "provider returned no message sid",
			Retryable:  false,
		}
	}

	return message, nil
}

// RegisterWebhook registers the callback URL for a channel with the vendor.
// The vendor treats this as an upsert, so repeated calls are idempotent.
func (c *Client) RegisterWebhook(ctx context.Context, channel string, cfg WebhookRegistration) error {
	resp, err := c.http.R().
		SetContext(ctx).
		SetBody(cfg).
		SetError(&providerAPIError{}).
		Put(fmt.Sprintf("/v1/Accounts/%s/Channels/%s/Webhook", c.cfg.AccountSID, channel))

	if err != nil {
		return &ProviderError{Message: err.Error(), Retryable: true}
	}
	if resp.IsError() {
		apiErr, _ := resp.Error().(*providerAPIError)
		pe := &ProviderError{StatusCode: resp.StatusCode()}
		if apiErr != nil {
			pe.Code = apiErr.Code
			pe.Message = apiErr.Message
		}
		return pe
	}

	c.log.Info("Webhook registered", "channel", channel, "url", cfg.CallbackURL)
	return nil
}

type WebhookRegistration struct {
	CallbackURL string `json:"callback_url"`
	StatusURL   string `json:"status_url,omitempty"`
}

// WebhookSecret exposes the shared secret used for signature validation.
func (c *Client) WebhookSecret() string {
	return c.cfg.WebhookSecret
}

// SMSFrom, WhatsAppFrom and EmailFrom return the configured sender addresses.
func (c *Client) SMSFrom() string      { return c.cfg.SMSFrom }
func (c *Client) WhatsAppFrom() string { return c.cfg.WhatsAppFrom }
func (c *Client) EmailFrom() string    { return c.cfg.EmailFrom }
