package domain

import "testing"

func TestCanTransition(t *testing.T) {
	tests := []struct {
		name string
		from MessageStatus
		to   MessageStatus
		want bool
	}{
		{"draft to scheduled", MessageStatusDraft, MessageStatusScheduled, true},
		{"draft to sent", MessageStatusDraft, MessageStatusSent, true},
		{"scheduled to sent", MessageStatusScheduled, MessageStatusSent, true},
		{"sent to delivered", MessageStatusSent, MessageStatusDelivered, true},
		{"sent to read", MessageStatusSent, MessageStatusRead, true},
		{"delivered to read", MessageStatusDelivered, MessageStatusRead, true},

		{"same status", MessageStatusSent, MessageStatusSent, false},
		{"delivered back to sent", MessageStatusDelivered, MessageStatusSent, false},
		{"read back to delivered", MessageStatusRead, MessageStatusDelivered, false},
		{"sent back to draft", MessageStatusSent, MessageStatusDraft, false},

		{"draft to failed", MessageStatusDraft, MessageStatusFailed, true},
		{"sent to failed", MessageStatusSent, MessageStatusFailed, true},
		{"delivered to failed", MessageStatusDelivered, MessageStatusFailed, true},
		{"read to failed", MessageStatusRead, MessageStatusFailed, false},
		{"failed to failed", MessageStatusFailed, MessageStatusFailed, false},
		{"failed to sent", MessageStatusFailed, MessageStatusSent, false},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if got := CanTransition(tt.from, tt.to); got != tt.want {
				t.Errorf("CanTransition(%s, %s) = %v, want %v", tt.from, tt.to, got, tt.want)
			}
		})
	}
}

func TestChannelValid(t *testing.T) {
	for _, ch := range []Channel{ChannelSMS, ChannelWhatsApp, ChannelEmail} {
		if !ch.Valid() {
			t.Errorf("expected %s to be valid", ch)
		}
	}
	if Channel("telegram").Valid() {
		t.Error("expected unknown channel to be invalid")
	}
}
