package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

type EventType string

const (
	// Client → server
	EventJoinConversation  EventType = "JOIN_CONVERSATION"
	EventLeaveConversation EventType = "LEAVE_CONVERSATION"
	EventTypingStart       EventType = "TYPING_START"
	EventTypingStop        EventType = "TYPING_STOP"

	// Server → client
	EventPresenceState   EventType = "PRESENCE_STATE"
	EventUserJoined      EventType = "USER_JOINED"
	EventUserLeft        EventType = "USER_LEFT"
	EventMessageReceived EventType = "MESSAGE_RECEIVED"
	EventMessageSent     EventType = "MESSAGE_SENT"
	EventMessageStatus   EventType = "MESSAGE_STATUS"
	EventError           EventType = "ERROR"
)

// Event is the JSON envelope carried on the realtime socket.
type Event struct {
	Type           EventType       `json:"type"`
	Payload        json.RawMessage `json:"payload,omitempty"`
	Timestamp      time.Time       `json:"timestamp"`
	UserID         *uuid.UUID      `json:"userId,omitempty"`
	ConversationID *uuid.UUID      `json:"conversationId,omitempty"`
}

// NewEvent builds an envelope, marshaling the payload. A payload that fails
// to marshal becomes an empty one rather than dropping the event.
func NewEvent(eventType EventType, payload any) *Event {
	event := &Event{
		Type:      eventType,
		Timestamp: time.Now(),
	}
	if payload != nil {
		if raw, err := json.Marshal(payload); err == nil {
			event.Payload = raw
		}
	}
	return event
}

func (e *Event) WithUser(userID uuid.UUID) *Event {
	e.UserID = &userID
	return e
}

func (e *Event) WithConversation(conversationID uuid.UUID) *Event {
	e.ConversationID = &conversationID
	return e
}

func (e *Event) Encode() []byte {
	data, err := json.Marshal(e)
	if err != nil {
		return []byte(`{"type":"ERROR"}`)
	}
	return data
}
