package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"

	"team_inbox/internal/middleware"
	"team_inbox/internal/realtime"
	"team_inbox/pkg/logger"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin enforcement happens at the proxy
	},
}

type WebSocketHandler struct {
	hub  *realtime.Hub
	docs *realtime.DocHub
	log  logger.Logger
}

func NewWebSocketHandler(hub *realtime.Hub, docs *realtime.DocHub, log logger.Logger) *WebSocketHandler {
	return &WebSocketHandler{hub: hub, docs: docs, log: log}
}

// HandleInbox upgrades to the realtime event socket. Room membership is
// driven by JOIN_CONVERSATION / LEAVE_CONVERSATION events on the socket.
func (h *WebSocketHandler) HandleInbox(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	client := realtime.NewClient(h.hub, conn, userID, h.log)
	client.Start()
}

// HandleDocument upgrades to the collaborative document socket for one
// document. The first subscriber creates the document; frames are binary
// deltas.
func (h *WebSocketHandler) HandleDocument(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	docID := c.Param("id")
	if docID == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "document ID required"})
		return
	}

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		h.log.Error("Failed to upgrade connection", "error", err)
		return
	}

	h.docs.Subscribe(conn, userID, docID)
}
