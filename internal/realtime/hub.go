package realtime

import (
	"context"
	"time"

	"github.com/google/uuid"

	"team_inbox/internal/domain"
	"team_inbox/pkg/logger"
)

type roomRequest struct {
	client         *Client
	conversationID uuid.UUID
	status         domain.PresenceStatus
}

type roomEvent struct {
	conversationID uuid.UUID
	event          *Event
	exclude        *Client
}

// Hub multiplexes all realtime connections across conversation rooms. One
// goroutine (Run) owns every map, so room membership and per-room broadcast
// order need no locks: events are delivered in the order the hub processed
// their triggers. Membership is in-memory only; clients rejoin after a
// restart.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	join       chan roomRequest
	leave      chan roomRequest
	broadcast  chan roomEvent

	clients map[*Client]bool
	rooms   map[uuid.UUID]map[*Client]bool

	presence          *PresenceService
	heartbeatInterval time.Duration
	pongWait          time.Duration
	log               logger.Logger
}

func NewHub(presence *PresenceService, heartbeatInterval, pongWait time.Duration, log logger.Logger) *Hub {
	return &Hub{
		register:          make(chan *Client),
		unregister:        make(chan *Client),
		join:              make(chan roomRequest),
		leave:             make(chan roomRequest),
		broadcast:         make(chan roomEvent, 256),
		clients:           make(map[*Client]bool),
		rooms:             make(map[uuid.UUID]map[*Client]bool),
		presence:          presence,
		heartbeatInterval: heartbeatInterval,
		pongWait:          pongWait,
		log:               log,
	}
}

func (h *Hub) Run(ctx context.Context) {
	for {
		select {
		case <-ctx.Done():
			return
		case client := <-h.register:
			h.clients[client] = true
			h.log.Info("Client connected", "user_id", client.UserID, "conn_id", client.ConnID)
		case client := <-h.unregister:
			h.handleDisconnect(client)
		case req := <-h.join:
			h.handleJoin(req)
		case req := <-h.leave:
			h.handleLeave(req)
		case ev := <-h.broadcast:
			h.deliver(ev)
		}
	}
}

// BroadcastToConversation is the entry point for other components (message
// service, pipeline) to push events into a conversation room.
func (h *Hub) BroadcastToConversation(conversationID uuid.UUID, event *Event) {
	h.broadcast <- roomEvent{conversationID: conversationID, event: event.WithConversation(conversationID)}
}

// handleJoin adds the client to the room and pushes the presence snapshot to
// the joiner before broadcasting USER_JOINED to existing occupants. The
// ordering matters: the snapshot must not include the joiner twice, and the
// occupants must learn about the joiner exactly once.
func (h *Hub) handleJoin(req roomRequest) {
	room, ok := h.rooms[req.conversationID]
	if !ok {
		room = make(map[*Client]bool)
		h.rooms[req.conversationID] = room
	}

	// Snapshot before the presence upsert so it describes the occupants the
	// joiner does not yet know about.
	snapshot := h.presence.GetConversationPresence(req.conversationID)

	room[req.client] = true
	req.client.rooms[req.conversationID] = true
	h.presence.UpdatePresence(req.conversationID, req.client.UserID, req.status)

	stateEvent := NewEvent(EventPresenceState, map[string]any{"users": snapshot}).
		WithConversation(req.conversationID)
	req.client.enqueue(stateEvent.Encode())

	joinedEvent := NewEvent(EventUserJoined, map[string]any{
		"userId": req.client.UserID,
		"status": req.status,
	}).WithUser(req.client.UserID).WithConversation(req.conversationID)

	h.deliver(roomEvent{
		conversationID: req.conversationID,
		event:          joinedEvent,
		exclude:        req.client,
	})
}

func (h *Hub) handleLeave(req roomRequest) {
	h.removeFromRoom(req.client, req.conversationID)
}

// handleDisconnect covers both explicit close and heartbeat timeout: the
// client leaves every room it was in, with a USER_LEFT broadcast per room.
func (h *Hub) handleDisconnect(client *Client) {
	if _, ok := h.clients[client]; !ok {
		return
	}
	delete(h.clients, client)

	for conversationID := range client.rooms {
		h.removeFromRoom(client, conversationID)
	}

	client.closed = true
	close(client.send)
	h.log.Info("Client disconnected", "user_id", client.UserID, "conn_id", client.ConnID)
}

func (h *Hub) removeFromRoom(client *Client, conversationID uuid.UUID) {
	room, ok := h.rooms[conversationID]
	if !ok || !room[client] {
		return
	}

	delete(room, client)
	delete(client.rooms, conversationID)
	if len(room) == 0 {
		delete(h.rooms, conversationID)
	}

	h.presence.RemovePresence(conversationID, client.UserID)

	leftEvent := NewEvent(EventUserLeft, map[string]any{"userId": client.UserID}).
		WithUser(client.UserID).WithConversation(conversationID)

	h.deliver(roomEvent{conversationID: conversationID, event: leftEvent, exclude: client})
}

func (h *Hub) deliver(ev roomEvent) {
	room, ok := h.rooms[ev.conversationID]
	if !ok {
		return
	}

	encoded := ev.event.Encode()
	for client := range room {
		if client == ev.exclude {
			continue
		}
		if !client.enqueue(encoded) {
			// Send buffer full: the client cannot keep up, drop it.
			h.log.Warn("Dropping slow client", "user_id", client.UserID, "conn_id", client.ConnID)
			h.handleDisconnect(client)
		}
	}
}
