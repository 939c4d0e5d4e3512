package domain

import (
	"time"

	"github.com/google/uuid"
)

// Contact is identified by phone and/or email; at least one is required.
type Contact struct {
	ID        uuid.UUID  `json:"id"`
	Name      string     `json:"name"`
	Phone     *string    `json:"phone,omitempty"`
	Email     *string    `json:"email,omitempty"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

type ConversationStatus string

const (
	ConversationStatusActive   ConversationStatus = "active"
	ConversationStatusResolved ConversationStatus = "resolved"
	ConversationStatusArchived ConversationStatus = "archived"
)

func (s ConversationStatus) Valid() bool {
	switch s {
	case ConversationStatusActive, ConversationStatusResolved, ConversationStatusArchived:
		return true
	}
	return false
}

type ConversationPriority string

const (
	PriorityLow    ConversationPriority = "low"
	PriorityNormal ConversationPriority = "normal"
	PriorityHigh   ConversationPriority = "high"
	PriorityUrgent ConversationPriority = "urgent"
)

func (p ConversationPriority) Valid() bool {
	switch p {
	case PriorityLow, PriorityNormal, PriorityHigh, PriorityUrgent:
		return true
	}
	return false
}

// Conversation belongs to exactly one contact and is the unit of realtime
// room membership.
type Conversation struct {
	ID            uuid.UUID            `json:"id"`
	ContactID     uuid.UUID            `json:"contact_id"`
	Channel       Channel              `json:"channel"`
	Status        ConversationStatus   `json:"status"`
	Priority      ConversationPriority `json:"priority"`
	LastMessageAt *time.Time           `json:"last_message_at,omitempty"`
	CreatedAt     time.Time            `json:"created_at"`
	UpdatedAt     time.Time            `json:"updated_at"`
}
