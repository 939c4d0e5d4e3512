package channel

import (
	"context"
	"errors"
	"strings"
	"testing"
	"time"

	"team_inbox/internal/domain"
	"team_inbox/pkg/logger"
)

var testRetryPolicy = retryPolicy{
	MaxAttempts: 3,
	BaseDelay:   time.Millisecond,
	Multiplier:  2,
	MaxDelay:    5 * time.Millisecond,
}

type fakeAPI struct {
	calls    int
	failures int
	err      error
	last     SendParams
}

func (f *fakeAPI) SendMessage(ctx context.Context, params SendParams) (*ProviderMessage, error) {
	f.calls++
	f.last = params
	if f.calls <= f.failures {
		return nil, f.err
	}
	return &ProviderMessage{SID: "SM100", Status: "queued"}, nil
}

func TestSMSSendRetriesTransientFailures(t *testing.T) {
	api := &fakeAPI{failures: 2, err: &ProviderError{StatusCode: 503, Message: "unavailable", Retryable: true}}
	sender := &smsSender{api: api, from: "+15550000000", policy: testRetryPolicy, log: logger.NewNop()}

	result := sender.Send(context.Background(), &domain.OutboundMessage{
		To:      "+15551234567",
		Content: "hello",
		Channel: domain.ChannelSMS,
	})

	if !result.Success {
		t.Fatalf("expected success after retries, got error %q", result.Error)
	}
	if api.calls != 3 {
		t.Errorf("api called %d times, want 3", api.calls)
	}
	if result.Metadata["attempt"] != 3 {
		t.Errorf("attempt metadata = %v, want 3", result.Metadata["attempt"])
	}
	if result.ExternalID != "SM100" {
		t.Errorf("ExternalID = %q", result.ExternalID)
	}
}

func TestSMSSendDoesNotRetryPermanentFailures(t *testing.T) {
	api := &fakeAPI{failures: 10, err: &ProviderError{StatusCode: 400, Code: 21211, Message: "invalid number"}}
	sender := &smsSender{api: api, from: "+15550000000", policy: testRetryPolicy, log: logger.NewNop()}

	result := sender.Send(context.Background(), &domain.OutboundMessage{
		To:      "+15551234567",
		Content: "hello",
		Channel: domain.ChannelSMS,
	})

	if result.Success {
		t.Fatal("expected failure")
	}
	if api.calls != 1 {
		t.Errorf("api called %d times, want 1 for a permanent error", api.calls)
	}
	if result.Metadata["retryable"] != false {
		t.Errorf("retryable metadata = %v, want false", result.Metadata["retryable"])
	}
	if result.Metadata["provider_code"] != 21211 {
		t.Errorf("provider_code metadata = %v, want 21211", result.Metadata["provider_code"])
	}
}

func TestSMSSendExhaustsRetryBudget(t *testing.T) {
	api := &fakeAPI{failures: 10, err: &ProviderError{StatusCode: 429, Message: "rate limited", Retryable: true}}
	sender := &smsSender{api: api, from: "+15550000000", policy: testRetryPolicy, log: logger.NewNop()}

	result := sender.Send(context.Background(), &domain.OutboundMessage{
		To:      "+15551234567",
		Content: "hello",
		Channel: domain.ChannelSMS,
	})

	if result.Success {
		t.Fatal("expected failure after exhausting attempts")
	}
	if api.calls != 3 {
		t.Errorf("api called %d times, want 3", api.calls)
	}
	if result.Metadata["attempt"] != 3 {
		t.Errorf("attempt metadata = %v, want 3", result.Metadata["attempt"])
	}
	if result.Metadata["retryable"] != true {
		t.Errorf("retryable metadata = %v, want true", result.Metadata["retryable"])
	}
}

func TestSMSSendValidatesBeforeNetworkCall(t *testing.T) {
	api := &fakeAPI{}
	sender := &smsSender{api: api, from: "+15550000000", policy: testRetryPolicy, log: logger.NewNop()}

	tests := []struct {
		name    string
		message *domain.OutboundMessage
	}{
		{"missing recipient", &domain.OutboundMessage{Content: "hi"}},
		{"bad recipient format", &domain.OutboundMessage{To: "555-1234", Content: "hi"}},
		{"empty content", &domain.OutboundMessage{To: "+15551234567"}},
		{"unsupported attachment type", &domain.OutboundMessage{
			To:      "+15551234567",
			Content: "hi",
			Attachments: []domain.Attachment{
				{URL: "https://x.example.com/a.mp4", ContentType: "video/mp4", Size: 100},
			},
		}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			result := sender.Send(context.Background(), tt.message)
			if result.Success {
				t.Fatal("expected validation failure")
			}
			if result.Metadata["retryable"] != false {
				t.Error("validation failures must not be retryable")
			}
		})
	}

	if api.calls != 0 {
		t.Errorf("api called %d times, validation must short-circuit", api.calls)
	}
}

func TestSMSSendStripsMarkupAndTruncates(t *testing.T) {
	api := &fakeAPI{}
	sender := &smsSender{api: api, from: "+15550000000", policy: testRetryPolicy, log: logger.NewNop()}

	result := sender.Send(context.Background(), &domain.OutboundMessage{
		To:      "+15551234567",
		Content: "**bold** and __underline__\r\nnext " + strings.Repeat("x", 2000),
	})
	if !result.Success {
		t.Fatalf("send failed: %s", result.Error)
	}

	if strings.Contains(api.last.Body, "**") || strings.Contains(api.last.Body, "__") {
		t.Errorf("markup not stripped: %q", api.last.Body[:40])
	}
	if strings.Contains(api.last.Body, "\r") {
		t.Error("CRLF not normalized")
	}
	if got := len([]rune(api.last.Body)); got > smsMaxLength {
		t.Errorf("body length %d exceeds cap %d", got, smsMaxLength)
	}
	if !strings.HasSuffix(api.last.Body, "…") {
		t.Error("truncated body should end with ellipsis")
	}
}

func TestWhatsAppSendPrefixesAddressesAndConvertsMarkup(t *testing.T) {
	api := &fakeAPI{}
	sender := &whatsAppSender{api: api, from: "+15550000000", policy: testRetryPolicy, log: logger.NewNop()}

	result := sender.Send(context.Background(), &domain.OutboundMessage{
		To:      "+15551234567",
		Content: "**bold** and ~~gone~~",
	})
	if !result.Success {
		t.Fatalf("send failed: %s", result.Error)
	}

	if api.last.To != "whatsapp:+15551234567" {
		t.Errorf("To = %q, want whatsapp prefix", api.last.To)
	}
	if api.last.From != "whatsapp:+15550000000" {
		t.Errorf("From = %q, want whatsapp prefix", api.last.From)
	}
	if !strings.Contains(api.last.Body, "*bold*") || !strings.Contains(api.last.Body, "~gone~") {
		t.Errorf("markup not converted: %q", api.last.Body)
	}
}

func TestValidateRecipient(t *testing.T) {
	sender := &smsSender{api: &fakeAPI{}, from: "+15550000000", policy: testRetryPolicy, log: logger.NewNop()}

	phone := "+15551234567"
	if result := sender.ValidateRecipient(&domain.Contact{Phone: &phone}); !result.Valid {
		t.Errorf("expected valid phone, got %v", result.Errors)
	}

	bad := "5551234"
	if result := sender.ValidateRecipient(&domain.Contact{Phone: &bad}); result.Valid {
		t.Error("expected invalid phone to be rejected")
	}

	if result := sender.ValidateRecipient(&domain.Contact{}); result.Valid {
		t.Error("expected contact without phone to be rejected")
	}
}

func TestCallWithRetryHonorsContext(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	calls := 0
	fn := func(ctx context.Context) (*ProviderMessage, error) {
		calls++
		cancel()
		return nil, &ProviderError{StatusCode: 500, Retryable: true}
	}

	_, _, err := callWithRetry(ctx, testRetryPolicy, logger.NewNop(), fn)
	if !errors.Is(err, context.Canceled) {
		t.Fatalf("err = %v, want context.Canceled", err)
	}
	if calls != 1 {
		t.Errorf("fn called %d times, want 1", calls)
	}
}

func TestRetryPolicyDelayIsCapped(t *testing.T) {
	policy := retryPolicy{BaseDelay: 500 * time.Millisecond, Multiplier: 2, MaxDelay: 5 * time.Second, MaxAttempts: 10}

	if d := policy.delay(1); d != 500*time.Millisecond {
		t.Errorf("delay(1) = %s", d)
	}
	if d := policy.delay(2); d != time.Second {
		t.Errorf("delay(2) = %s", d)
	}
	if d := policy.delay(20); d != 5*time.Second {
		t.Errorf("delay(20) = %s, want cap", d)
	}
}
