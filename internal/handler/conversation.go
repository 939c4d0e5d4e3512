package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"team_inbox/internal/domain"
	"team_inbox/internal/service"
	"team_inbox/pkg/logger"
)

type ConversationHandler struct {
	conversationService service.ConversationService
	messageService      service.MessageService
	log                 logger.Logger
}

func NewConversationHandler(conversationService service.ConversationService, messageService service.MessageService, log logger.Logger) *ConversationHandler {
	return &ConversationHandler{
		conversationService: conversationService,
		messageService:      messageService,
		log:                 log,
	}
}

func (h *ConversationHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var status *domain.ConversationStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.ConversationStatus(raw)
		status = &s
	}

	conversations, err := h.conversationService.ListConversations(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"conversations": conversations})
}

func (h *ConversationHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return
	}

	conversation, err := h.conversationService.GetConversation(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

type updateConversationRequest struct {
	Status   *domain.ConversationStatus   `json:"status"`
	Priority *domain.ConversationPriority `json:"priority"`
}

func (h *ConversationHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return
	}

	var req updateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	conversation, err := h.conversationService.UpdateConversation(c.Request.Context(), id, req.Status, req.Priority)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, conversation)
}

// GetMessages lists the conversation's messages, newest first.
func (h *ConversationHandler) GetMessages(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return
	}

	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	messages, err := h.messageService.ListMessages(c.Request.Context(), domain.MessageFilter{
		ConversationID: &id,
		Limit:          limit,
		Offset:         offset,
	})
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"messages": messages})
}
