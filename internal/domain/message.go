package domain

import (
	"time"

	"github.com/google/uuid"
)

type Channel string

const (
	ChannelSMS      Channel = "sms"
	ChannelWhatsApp Channel = "whatsapp"
	ChannelEmail    Channel = "email"
	ChannelTwitter  Channel = "twitter"
	ChannelFacebook Channel = "facebook"
)

func (c Channel) Valid() bool {
	switch c {
	case ChannelSMS, ChannelWhatsApp, ChannelEmail, ChannelTwitter, ChannelFacebook:
		return true
	}
	return false
}

type Direction string

const (
	DirectionInbound  Direction = "inbound"
	DirectionOutbound Direction = "outbound"
)

type MessageStatus string

const (
	MessageStatusDraft     MessageStatus = "draft"
	MessageStatusScheduled MessageStatus = "scheduled"
	MessageStatusSent      MessageStatus = "sent"
	MessageStatusDelivered MessageStatus = "delivered"
	MessageStatusRead      MessageStatus = "read"
	MessageStatusFailed    MessageStatus = "failed"
)

// statusRank orders the forward progression draft → scheduled → sent →
// delivered → read. Failed is handled separately.
var statusRank = map[MessageStatus]int{
	MessageStatusDraft:     0,
	MessageStatusScheduled: 1,
	MessageStatusSent:      2,
	MessageStatusDelivered: 3,
	MessageStatusRead:      4,
}

// CanTransition reports whether a message may move from one status to
// another. The progression is strictly forward; failed is reachable from any
// state except read.
func CanTransition(from, to MessageStatus) bool {
	if from == to {
		return false
	}
	if to == MessageStatusFailed {
		return from != MessageStatusRead && from != MessageStatusFailed
	}
	if from == MessageStatusFailed {
		return false
	}
	return statusRank[to] > statusRank[from]
}

type Attachment struct {
	Filename    string `json:"filename"`
	ContentType string `json:"content_type"`
	Size        int64  `json:"size"`
	URL         string `json:"url"`
}

// Message is the unified, channel-agnostic message record.
type Message struct {
	ID             uuid.UUID      `json:"id"`
	ConversationID uuid.UUID      `json:"conversation_id"`
	ContactID      uuid.UUID      `json:"contact_id"`
	SenderID       *uuid.UUID     `json:"sender_id,omitempty"`
	Channel        Channel        `json:"channel"`
	Direction      Direction      `json:"direction"`
	Content        string         `json:"content"`
	Status         MessageStatus  `json:"status"`
	ExternalID     string         `json:"external_id,omitempty"`
	Attachments    []Attachment   `json:"attachments,omitempty"`
	Metadata       map[string]any `json:"metadata,omitempty"`
	CreatedAt      time.Time      `json:"created_at"`
	SentAt         *time.Time     `json:"sent_at,omitempty"`
	DeliveredAt    *time.Time     `json:"delivered_at,omitempty"`
	ReadAt         *time.Time     `json:"read_at,omitempty"`
}

// RawChannelMessage is what a channel integration extracts from a webhook
// payload before normalization.
type RawChannelMessage struct {
	Channel     Channel
	ExternalID  string
	From        string
	To          string
	Content     string
	Attachments []RawAttachment
	Metadata    map[string]any
	ReceivedAt  time.Time
}

type RawAttachment struct {
	URL         string
	ContentType string
	Filename    string
	Size        int64
}

// OutboundMessage is a send request before it has been accepted by a channel.
type OutboundMessage struct {
	To          string         `json:"to"`
	Content     string         `json:"content"`
	Channel     Channel        `json:"channel"`
	SenderID    *uuid.UUID     `json:"sender_id,omitempty"`
	Attachments []Attachment   `json:"attachments,omitempty"`
	Metadata    map[string]any `json:"metadata,omitempty"`
}

// MessageFilter narrows query and stats operations.
type MessageFilter struct {
	ConversationID *uuid.UUID
	ContactID      *uuid.UUID
	Channel        *Channel
	Direction      *Direction
	Status         *MessageStatus
	Limit          int
	Offset         int
}

type MessageStats struct {
	Total       int64                   `json:"total"`
	ByStatus    map[MessageStatus]int64 `json:"by_status"`
	ByChannel   map[Channel]int64       `json:"by_channel"`
	ByDirection map[Direction]int64     `json:"by_direction"`
}
