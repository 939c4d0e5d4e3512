package domain

import (
	"time"

	"github.com/google/uuid"
)

type ScheduleStatus string

const (
	ScheduleStatusPending   ScheduleStatus = "pending"
	ScheduleStatusSent      ScheduleStatus = "sent"
	ScheduleStatusFailed    ScheduleStatus = "failed"
	ScheduleStatusCancelled ScheduleStatus = "cancelled"
)

// ScheduledMessage is a durable queue row for a future send. Terminal once
// sent, failed or cancelled.
type ScheduledMessage struct {
	ID             uuid.UUID         `json:"id"`
	ConversationID uuid.UUID         `json:"conversation_id"`
	ContactID      uuid.UUID         `json:"contact_id"`
	Channel        Channel           `json:"channel"`
	Content        string            `json:"content"`
	TemplateID     *string           `json:"template_id,omitempty"`
	Variables      map[string]string `json:"variables,omitempty"`
	ScheduledFor   time.Time         `json:"scheduled_for"`
	Status         ScheduleStatus    `json:"status"`
	MessageID      *uuid.UUID        `json:"message_id,omitempty"`
	LastError      *string           `json:"last_error,omitempty"`
	CreatedAt      time.Time         `json:"created_at"`
	UpdatedAt      time.Time         `json:"updated_at"`
}

// SweepResult summarizes one processDueMessages run.
type SweepResult struct {
	Due    int `json:"due"`
	Sent   int `json:"sent"`
	Failed int `json:"failed"`
}
