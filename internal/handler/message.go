package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"team_inbox/internal/domain"
	"team_inbox/internal/middleware"
	"team_inbox/internal/service"
	"team_inbox/pkg/logger"
)

type MessageHandler struct {
	messageService service.MessageService
	log            logger.Logger
}

func NewMessageHandler(messageService service.MessageService, log logger.Logger) *MessageHandler {
	return &MessageHandler{messageService: messageService, log: log}
}

type sendMessageRequest struct {
	To          string              `json:"to" binding:"required"`
	Content     string              `json:"content" binding:"required"`
	Channel     domain.Channel      `json:"channel" binding:"required"`
	Attachments []domain.Attachment `json:"attachments"`
	Metadata    map[string]any      `json:"metadata"`
}

func (h *MessageHandler) Send(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	outbound := &domain.OutboundMessage{
		To:          req.To,
		Content:     req.Content,
		Channel:     req.Channel,
		Attachments: req.Attachments,
		Metadata:    req.Metadata,
	}
	if userID, ok := middleware.UserID(c); ok {
		outbound.SenderID = &userID
	}

	result, err := h.messageService.SendMessage(c.Request.Context(), outbound)
	if err != nil {
		c.Error(err)
		return
	}

	if !result.Success {
		c.JSON(http.StatusBadGateway, result)
		return
	}

	c.JSON(http.StatusCreated, result)
}

func (h *MessageHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid message ID"})
		return
	}

	message, err := h.messageService.GetMessage(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, message)
}

func (h *MessageHandler) List(c *gin.Context) {
	filter, ok := parseMessageFilter(c)
	if !ok {
		return
	}

	messages, err := h.messageService.ListMessages(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *MessageHandler) Search(c *gin.Context) {
	filter, ok := parseMessageFilter(c)
	if !ok {
		return
	}

	messages, err := h.messageService.SearchMessages(c.Request.Context(), c.Query("q"), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}

func (h *MessageHandler) Stats(c *gin.Context) {
	filter, ok := parseMessageFilter(c)
	if !ok {
		return
	}

	stats, err := h.messageService.GetStats(c.Request.Context(), filter)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, stats)
}

func parseMessageFilter(c *gin.Context) (domain.MessageFilter, bool) {
	filter := domain.MessageFilter{}
	filter.Limit, _ = strconv.Atoi(c.DefaultQuery("limit", "50"))
	filter.Offset, _ = strconv.Atoi(c.DefaultQuery("offset", "0"))

	if raw := c.Query("conversation_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation_id"})
			return filter, false
		}
		filter.ConversationID = &id
	}
	if raw := c.Query("contact_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid contact_id"})
			return filter, false
		}
		filter.ContactID = &id
	}
	if raw := c.Query("channel"); raw != "" {
		ch := domain.Channel(raw)
		filter.Channel = &ch
	}
	if raw := c.Query("direction"); raw != "" {
		d := domain.Direction(raw)
		filter.Direction = &d
	}
	if raw := c.Query("status"); raw != "" {
		s := domain.MessageStatus(raw)
		filter.Status = &s
	}

	return filter, true
}
