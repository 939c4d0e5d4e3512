package realtime

import (
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"

	"team_inbox/pkg/logger"
)

// DocHub owns every collaborative document for its subscriber-count-bounded
// lifetime: created on first subscriber, destroyed when the last one leaves.
// Documents are never persisted. The mutex serializes subscription changes
// and delta application, which also gives per-document delta ordering.
type DocHub struct {
	mu   sync.Mutex
	docs map[string]*docRoom

	heartbeatInterval time.Duration
	pongWait          time.Duration
	log               logger.Logger
}

type docRoom struct {
	doc         *Document
	subscribers map[*DocClient]bool
}

type DocClient struct {
	hub  *DocHub
	conn *websocket.Conn
	send chan []byte

	UserID uuid.UUID
	ConnID uuid.UUID
	docID  string
	closed bool
}

func NewDocHub(heartbeatInterval, pongWait time.Duration, log logger.Logger) *DocHub {
	h := &DocHub{
		docs:              make(map[string]*docRoom),
		heartbeatInterval: heartbeatInterval,
		pongWait:          pongWait,
		log:               log,
	}
	return h
}

// Subscribe registers a connection for a document, creating the document on
// first subscription, and immediately queues the full-state snapshot.
func (h *DocHub) Subscribe(conn *websocket.Conn, userID uuid.UUID, docID string) *DocClient {
	client := &DocClient{
		hub:    h,
		conn:   conn,
		send:   make(chan []byte, sendBufferSize),
		UserID: userID,
		ConnID: uuid.New(),
		docID:  docID,
	}

	h.mu.Lock()
	room, ok := h.docs[docID]
	if !ok {
		room = &docRoom{
			doc:         NewDocument(),
			subscribers: make(map[*DocClient]bool),
		}
		h.docs[docID] = room
		h.log.Info("Document created", "doc_id", docID)
	}
	room.subscribers[client] = true
	snapshot := room.doc.Snapshot()
	h.mu.Unlock()

	client.send <- snapshot

	go client.writePump()
	go client.readPump()

	return client
}

func (h *DocHub) unsubscribe(client *DocClient) {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.docs[client.docID]
	if !ok || !room.subscribers[client] {
		return
	}

	delete(room.subscribers, client)
	client.closed = true
	close(client.send)

	if len(room.subscribers) == 0 {
		delete(h.docs, client.docID)
		h.log.Info("Document destroyed", "doc_id", client.docID)
	}
}

// handleUpdate applies a binary delta from one subscriber to the
// authoritative document and rebroadcasts the same frame to every other
// subscriber. The origin never receives its own delta back.
func (h *DocHub) handleUpdate(origin *DocClient, frame []byte) {
	delta, err := DecodeDelta(frame)
	if err != nil {
		h.log.Warn("Ignoring malformed document delta", "error", err, "doc_id", origin.docID)
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.docs[origin.docID]
	if !ok {
		return
	}

	room.doc.Apply(delta)

	for subscriber := range room.subscribers {
		if subscriber == origin || subscriber.closed {
			continue
		}
		select {
		case subscriber.send <- frame:
		default:
			h.log.Warn("Dropping slow document subscriber",
				"user_id", subscriber.UserID, "doc_id", origin.docID)
			delete(room.subscribers, subscriber)
			subscriber.closed = true
			close(subscriber.send)
		}
	}

	// A drop above can empty the room when the origin itself left earlier;
	// the document lifecycle still ends with the last subscriber.
	if len(room.subscribers) == 0 {
		delete(h.docs, origin.docID)
		h.log.Info("Document destroyed", "doc_id", origin.docID)
	}
}

// SubscriberCount is used by tests and diagnostics.
func (h *DocHub) SubscriberCount(docID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	room, ok := h.docs[docID]
	if !ok {
		return 0
	}
	return len(room.subscribers)
}

func (c *DocClient) readPump() {
	defer func() {
		c.hub.unsubscribe(c)
		c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
	c.conn.SetPongHandler(func(string) error {
		c.conn.SetReadDeadline(time.Now().Add(c.hub.pongWait))
		return nil
	})

	for {
		messageType, frame, err := c.conn.ReadMessage()
		if err != nil {
			return
		}
		if messageType != websocket.BinaryMessage {
			continue
		}
		c.hub.handleUpdate(c, frame)
	}
}

func (c *DocClient) writePump() {
	ticker := time.NewTicker(c.hub.heartbeatInterval)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case frame, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.BinaryMessage, frame); err != nil {
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
