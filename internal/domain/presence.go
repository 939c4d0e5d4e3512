package domain

import (
	"time"

	"github.com/google/uuid"
)

type PresenceStatus string

const (
	PresenceStatusViewing PresenceStatus = "viewing"
	PresenceStatusEditing PresenceStatus = "editing"
)

// PresenceUser is ephemeral per-(conversation, user) state. Never persisted.
type PresenceUser struct {
	UserID   uuid.UUID      `json:"user_id"`
	Status   PresenceStatus `json:"status"`
	LastSeen time.Time      `json:"last_seen"`
}
