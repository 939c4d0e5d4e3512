package channel

import (
	"context"
	"fmt"
	"net/url"
	"sync"

	"team_inbox/internal/domain"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

// Sender sends one outbound message through one external channel. It owns
// channel-specific formatting, validation and retry/backoff; it never
// persists anything.
type Sender interface {
	Send(ctx context.Context, message *domain.OutboundMessage) *domain.SendResult
	ValidateRecipient(contact *domain.Contact) *domain.ValidationResult
	Features() domain.ChannelFeatures
	ChannelType() domain.Channel
}

// Integration parses inbound webhook payloads for one channel and manages
// webhook registration with the provider.
type Integration interface {
	ChannelType() domain.Channel
	CreateSender() Sender
	SetupWebhook(ctx context.Context, cfg domain.WebhookConfig) error
	// ValidateWebhook checks the provider signature over the callback URL and
	// form parameters using a constant-time comparison.
	ValidateWebhook(callbackURL string, form url.Values, signature string) bool
	ProcessWebhook(form url.Values) ([]*domain.RawChannelMessage, error)
}

// Registry maps channel types to their integrations. It is populated once at
// startup by RegisterAll and read-only afterwards; the mutex exists for
// tests that build registries concurrently.
type Registry struct {
	mu           sync.RWMutex
	integrations map[domain.Channel]Integration
	log          logger.Logger
}

func NewRegistry(log logger.Logger) *Registry {
	return &Registry{
		integrations: make(map[domain.Channel]Integration),
		log:          log,
	}
}

func (r *Registry) Register(integration Integration) {
	r.mu.Lock()
	defer r.mu.Unlock()

	ch := integration.ChannelType()
	if _, exists := r.integrations[ch]; exists {
		r.log.Warn("Channel already registered, overwriting", "channel", ch)
	}
	r.integrations[ch] = integration
}

// Integration fails with a configuration error, not a user error, when the
// channel was never registered.
func (r *Registry) Integration(ch domain.Channel) (Integration, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	integration, ok := r.integrations[ch]
	if !ok {
		return nil, fmt.Errorf("%w: %s", apperrors.ErrChannelNotRegistered, ch)
	}
	return integration, nil
}

func (r *Registry) CreateSender(ch domain.Channel) (Sender, error) {
	integration, err := r.Integration(ch)
	if err != nil {
		return nil, err
	}
	return integration.CreateSender(), nil
}

func (r *Registry) Channels() []domain.Channel {
	r.mu.RLock()
	defer r.mu.RUnlock()

	channels := make([]domain.Channel, 0, len(r.integrations))
	for ch := range r.integrations {
		channels = append(channels, ch)
	}
	return channels
}

// RegisterAll wires every supported channel into the registry. Called once
// from the composition root before traffic is served.
func RegisterAll(registry *Registry, client *Client, log logger.Logger) {
	registry.Register(NewSMSIntegration(client, log))
	registry.Register(NewWhatsAppIntegration(client, log))
	registry.Register(NewEmailIntegration(client, log))
	log.Info("Channel integrations registered", "channels", registry.Channels())
}
