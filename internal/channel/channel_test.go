package channel

import (
	"errors"
	"testing"

	"team_inbox/internal/config"
	"team_inbox/internal/domain"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

func testClient() *Client {
	return NewClient(config.ProviderConfig{
		AccountSID:    "AC123",
		AuthToken:     "token",
		BaseURL:       "https://api.example.com",
		SMSFrom:       "+15550000000",
		WhatsAppFrom:  "+15550000001",
		EmailFrom:     "inbox@example.com",
		WebhookSecret: "secret",
	}, logger.NewNop())
}

func TestRegistryResolvesRegisteredChannels(t *testing.T) {
	registry := NewRegistry(logger.NewNop())
	RegisterAll(registry, testClient(), logger.NewNop())

	for _, ch := range []domain.Channel{domain.ChannelSMS, domain.ChannelWhatsApp, domain.ChannelEmail} {
		integration, err := registry.Integration(ch)
		if err != nil {
			t.Fatalf("Integration(%s): %v", ch, err)
		}
		if integration.ChannelType() != ch {
			t.Errorf("integration reports channel %s, want %s", integration.ChannelType(), ch)
		}

		sender, err := registry.CreateSender(ch)
		if err != nil {
			t.Fatalf("CreateSender(%s): %v", ch, err)
		}
		if sender.ChannelType() != ch {
			t.Errorf("sender reports channel %s, want %s", sender.ChannelType(), ch)
		}
	}

	if got := len(registry.Channels()); got != 3 {
		t.Errorf("Channels() has %d entries, want 3", got)
	}
}

func TestRegistryUnknownChannel(t *testing.T) {
	registry := NewRegistry(logger.NewNop())

	_, err := registry.Integration(domain.ChannelTwitter)
	if !errors.Is(err, apperrors.ErrChannelNotRegistered) {
		t.Fatalf("err = %v, want ErrChannelNotRegistered", err)
	}

	if _, err := registry.CreateSender(domain.ChannelTwitter); err == nil {
		t.Fatal("expected CreateSender to fail for unregistered channel")
	}
}

func TestEmailSenderRejectsAttachments(t *testing.T) {
	registry := NewRegistry(logger.NewNop())
	RegisterAll(registry, testClient(), logger.NewNop())

	sender, err := registry.CreateSender(domain.ChannelEmail)
	if err != nil {
		t.Fatal(err)
	}

	if sender.Features().SupportsAttachment {
		t.Error("email channel must not advertise attachment support")
	}
}
