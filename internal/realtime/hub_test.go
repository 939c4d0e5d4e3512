package realtime

import (
	"context"
	"encoding/json"
	"testing"
	"time"

	"github.com/google/uuid"

	"team_inbox/internal/domain"
	"team_inbox/pkg/logger"
)

// newTestHub runs a hub whose clients have no socket: tests feed the hub's
// channels directly and read delivered frames off client.send.
func newTestHub(t *testing.T) *Hub {
	t.Helper()

	presence := NewPresenceService(time.Minute, time.Minute, logger.NewNop())
	hub := NewHub(presence, time.Minute, time.Minute, logger.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	t.Cleanup(cancel)
	go hub.Run(ctx)

	return hub
}

func connect(hub *Hub) *Client {
	client := NewClient(hub, nil, uuid.New(), logger.NewNop())
	hub.register <- client
	return client
}

func recvEvent(t *testing.T, client *Client) *Event {
	t.Helper()

	select {
	case data := <-client.send:
		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			t.Fatalf("malformed frame %s: %v", data, err)
		}
		return &event
	case <-time.After(time.Second):
		t.Fatal("timed out waiting for event")
		return nil
	}
}

func assertNoEvent(t *testing.T, client *Client) {
	t.Helper()

	select {
	case data := <-client.send:
		t.Fatalf("unexpected frame: %s", data)
	default:
	}
}

func payloadUsers(t *testing.T, event *Event) []domain.PresenceUser {
	t.Helper()

	var payload struct {
		Users []domain.PresenceUser `json:"users"`
	}
	if err := json.Unmarshal(event.Payload, &payload); err != nil {
		t.Fatalf("decode presence payload: %v", err)
	}
	return payload.Users
}

func TestJoinDeliversSnapshotThenAnnounces(t *testing.T) {
	hub := newTestHub(t)
	conversationID := uuid.New()

	a := connect(hub)
	hub.join <- roomRequest{client: a, conversationID: conversationID, status: domain.PresenceStatusViewing}

	first := recvEvent(t, a)
	if first.Type != EventPresenceState {
		t.Fatalf("first event = %s, want PRESENCE_STATE", first.Type)
	}
	if users := payloadUsers(t, first); len(users) != 0 {
		t.Errorf("snapshot for first joiner = %v, want empty", users)
	}

	b := connect(hub)
	hub.join <- roomRequest{client: b, conversationID: conversationID, status: domain.PresenceStatusEditing}

	// The joiner's first frame is the snapshot of who was already there.
	snapshot := recvEvent(t, b)
	if snapshot.Type != EventPresenceState {
		t.Fatalf("first event for joiner = %s, want PRESENCE_STATE", snapshot.Type)
	}
	users := payloadUsers(t, snapshot)
	if len(users) != 1 || users[0].UserID != a.UserID {
		t.Errorf("snapshot users = %v, want only the existing occupant", users)
	}

	joined := recvEvent(t, a)
	if joined.Type != EventUserJoined {
		t.Fatalf("occupant event = %s, want USER_JOINED", joined.Type)
	}
	if joined.UserID == nil || *joined.UserID != b.UserID {
		t.Errorf("USER_JOINED userId = %v, want joiner", joined.UserID)
	}
	if joined.ConversationID == nil || *joined.ConversationID != conversationID {
		t.Errorf("USER_JOINED conversationId = %v", joined.ConversationID)
	}

	// The joiner must not see its own USER_JOINED.
	assertNoEvent(t, b)
}

func TestLeaveBroadcastsUserLeft(t *testing.T) {
	hub := newTestHub(t)
	conversationID := uuid.New()

	a := connect(hub)
	hub.join <- roomRequest{client: a, conversationID: conversationID, status: domain.PresenceStatusViewing}
	recvEvent(t, a) // snapshot

	b := connect(hub)
	hub.join <- roomRequest{client: b, conversationID: conversationID, status: domain.PresenceStatusViewing}
	recvEvent(t, b) // snapshot
	recvEvent(t, a) // USER_JOINED for b

	hub.leave <- roomRequest{client: b, conversationID: conversationID}

	left := recvEvent(t, a)
	if left.Type != EventUserLeft {
		t.Fatalf("event = %s, want USER_LEFT", left.Type)
	}
	if left.UserID == nil || *left.UserID != b.UserID {
		t.Errorf("USER_LEFT userId = %v, want leaver", left.UserID)
	}
	assertNoEvent(t, b)

	if users := hub.presence.GetConversationPresence(conversationID); len(users) != 1 {
		t.Errorf("presence after leave = %v, want only the remaining occupant", users)
	}
}

func TestBroadcastReachesRoomMembers(t *testing.T) {
	hub := newTestHub(t)
	conversationID := uuid.New()

	a := connect(hub)
	hub.join <- roomRequest{client: a, conversationID: conversationID, status: domain.PresenceStatusViewing}
	recvEvent(t, a)

	outsider := connect(hub)

	hub.BroadcastToConversation(conversationID, NewEvent(EventMessageReceived, map[string]any{"messageId": uuid.New()}))

	got := recvEvent(t, a)
	if got.Type != EventMessageReceived {
		t.Fatalf("event = %s, want MESSAGE_RECEIVED", got.Type)
	}
	if got.ConversationID == nil || *got.ConversationID != conversationID {
		t.Errorf("conversationId = %v", got.ConversationID)
	}
	assertNoEvent(t, outsider)
}

func TestSlowClientIsDropped(t *testing.T) {
	hub := newTestHub(t)
	conversationID := uuid.New()

	a := connect(hub)
	hub.join <- roomRequest{client: a, conversationID: conversationID, status: domain.PresenceStatusViewing}
	recvEvent(t, a)

	slow := connect(hub)
	hub.join <- roomRequest{client: slow, conversationID: conversationID, status: domain.PresenceStatusViewing}
	recvEvent(t, slow)
	recvEvent(t, a) // USER_JOINED for slow

	// Saturate the slow client's send buffer so the next delivery fails.
	for i := 0; i < sendBufferSize; i++ {
		slow.send <- []byte("{}")
	}

	hub.BroadcastToConversation(conversationID, NewEvent(EventMessageSent, nil))

	// Room iteration order is not fixed, so the USER_LEFT for the dropped
	// client may arrive before or after the broadcast itself.
	seen := map[EventType]*Event{}
	for i := 0; i < 2; i++ {
		ev := recvEvent(t, a)
		seen[ev.Type] = ev
	}
	if seen[EventMessageSent] == nil {
		t.Error("healthy client never got the broadcast")
	}
	left := seen[EventUserLeft]
	if left == nil {
		t.Fatal("no USER_LEFT after the slow client was dropped")
	}
	if left.UserID == nil || *left.UserID != slow.UserID {
		t.Errorf("USER_LEFT userId = %v, want slow client", left.UserID)
	}

	// The dropped client's channel is drained then closed by the hub.
	deadline := time.After(time.Second)
	for {
		select {
		case _, ok := <-slow.send:
			if !ok {
				return
			}
		case <-deadline:
			t.Fatal("slow client send channel never closed")
		}
	}
}
