package realtime

import (
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"team_inbox/internal/domain"
	"team_inbox/pkg/logger"
)

const (
	writeWait      = 10 * time.Second
	maxMessageSize = 64 * 1024
	sendBufferSize = 64
)

// Client is one logical connection identified by (userID, connID). The rooms
// map and closed flag are owned by the hub goroutine.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	send chan []byte

	UserID uuid.UUID
	ConnID uuid.UUID

	rooms  map[uuid.UUID]bool
	closed bool
	log    logger.Logger
}

func NewClient(hub *Hub, conn *websocket.Conn, userID uuid.UUID, log logger.Logger) *Client {
	return &Client{
		hub:    hub,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		UserID: userID,
		ConnID: uuid.New(),
		rooms:  make(map[uuid.UUID]bool),
		log:    log,
	}
}

// Start registers the client with the hub and launches both pumps.
func (c *Client) Start() {
	c.hub.register <- c
	go c.writePump()
	go c.readPump()
}

// enqueue attempts a non-blocking delivery. Called only from the hub
// goroutine.
func (c *Client) enqueue(data []byte) bool {
	if c.closed {
		return false
	}
	select {
	case c.send <- data:
		return true
	default:
		return false
	}
}

func (c *Client) readPump() {
	defer func() {
		c.hub.unregister <- c
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
		return nil
	})

	for {
		_, data, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.log.Warn("Unexpected close", "error", err, "conn_id", c.ConnID)
			}
			return
		}

		var event Event
		if err := json.Unmarshal(data, &event); err != nil {
			c.log.Warn("Malformed realtime event", "error", err, "conn_id", c.ConnID)
			continue
		}

		c.dispatch(&event)
	}
}

func (c *Client) dispatch(event *Event) {
	switch event.Type {
	case EventJoinConversation:
		if event.ConversationID == nil {
			return
		}
		status := domain.PresenceStatusViewing
		var payload struct {
			Status domain.PresenceStatus `json:"status"`
		}
		if len(event.Payload) > 0 {
			if err := json.Unmarshal(event.Payload, &payload); err == nil && payload.Status == domain.PresenceStatusEditing {
				status = domain.PresenceStatusEditing
			}
		}
		c.hub.join <- roomRequest{client: c, conversationID: *event.ConversationID, status: status}

	case EventLeaveConversation:
		if event.ConversationID == nil {
			return
		}
		c.hub.leave <- roomRequest{client: c, conversationID: *event.ConversationID}

	case EventTypingStart, EventTypingStop:
		if event.ConversationID == nil {
			return
		}
		typing := NewEvent(event.Type, map[string]any{"userId": c.UserID}).
			WithUser(c.UserID).WithConversation(*event.ConversationID)
		c.hub.broadcast <- roomEvent{
			conversationID: *event.ConversationID,
			event:          typing,
			exclude:        c,
		}

	default:
		c.log.Debug("Ignoring unknown event type", "type", event.Type, "conn_id", c.ConnID)
	}
}

func (c *Client) writePump() {
	ticker := time.NewTicker(c.hub.heartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case data, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, data); err != nil {
				return
			}

		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
