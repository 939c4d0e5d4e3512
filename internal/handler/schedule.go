package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"team_inbox/internal/domain"
	"team_inbox/internal/service"
	"team_inbox/pkg/logger"
)

type ScheduleHandler struct {
	scheduleService service.ScheduleService
	log             logger.Logger
}

func NewScheduleHandler(scheduleService service.ScheduleService, log logger.Logger) *ScheduleHandler {
	return &ScheduleHandler{scheduleService: scheduleService, log: log}
}

type scheduleMessageRequest struct {
	ConversationID uuid.UUID         `json:"conversation_id" binding:"required"`
	ContactID      uuid.UUID         `json:"contact_id" binding:"required"`
	Channel        domain.Channel    `json:"channel" binding:"required"`
	Content        string            `json:"content" binding:"required"`
	TemplateID     *string           `json:"template_id"`
	Variables      map[string]string `json:"variables"`
	ScheduledFor   time.Time         `json:"scheduled_for" binding:"required"`
}

func (h *ScheduleHandler) Create(c *gin.Context) {
	var req scheduleMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scheduled := &domain.ScheduledMessage{
		ConversationID: req.ConversationID,
		ContactID:      req.ContactID,
		Channel:        req.Channel,
		Content:        req.Content,
		TemplateID:     req.TemplateID,
		Variables:      req.Variables,
		ScheduledFor:   req.ScheduledFor,
	}

	if err := h.scheduleService.ScheduleMessage(c.Request.Context(), scheduled); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusCreated, scheduled)
}

func (h *ScheduleHandler) GetByID(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled message ID"})
		return
	}

	scheduled, err := h.scheduleService.GetScheduledMessage(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, scheduled)
}

func (h *ScheduleHandler) List(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))

	var status *domain.ScheduleStatus
	if raw := c.Query("status"); raw != "" {
		s := domain.ScheduleStatus(raw)
		status = &s
	}

	scheduled, err := h.scheduleService.ListScheduledMessages(c.Request.Context(), status, limit, offset)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"scheduled_messages": scheduled})
}

type updateScheduleRequest struct {
	Content      string            `json:"content" binding:"required"`
	TemplateID   *string           `json:"template_id"`
	Variables    map[string]string `json:"variables"`
	ScheduledFor time.Time         `json:"scheduled_for" binding:"required"`
}

func (h *ScheduleHandler) Update(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled message ID"})
		return
	}

	var req updateScheduleRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	scheduled, err := h.scheduleService.GetScheduledMessage(c.Request.Context(), id)
	if err != nil {
		c.Error(err)
		return
	}

	scheduled.Content = req.Content
	scheduled.TemplateID = req.TemplateID
	scheduled.Variables = req.Variables
	scheduled.ScheduledFor = req.ScheduledFor

	if err := h.scheduleService.UpdateScheduledMessage(c.Request.Context(), scheduled); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, scheduled)
}

func (h *ScheduleHandler) Cancel(c *gin.Context) {
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid scheduled message ID"})
		return
	}

	if err := h.scheduleService.CancelScheduledMessage(c.Request.Context(), id); err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{"status": "cancelled"})
}

// Sweep triggers one due-message pass outside the ticker, for operators.
func (h *ScheduleHandler) Sweep(c *gin.Context) {
	result, err := h.scheduleService.ProcessDueMessages(c.Request.Context())
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, result)
}
