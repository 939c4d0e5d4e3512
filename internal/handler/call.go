package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"team_inbox/internal/middleware"
	"team_inbox/internal/service"
	"team_inbox/pkg/logger"
)

type CallHandler struct {
	callService service.CallService
	log         logger.Logger
}

func NewCallHandler(callService service.CallService, log logger.Logger) *CallHandler {
	return &CallHandler{callService: callService, log: log}
}

type callTokenRequest struct {
	DisplayName string `json:"display_name"`
}

// GetToken issues a media-server token for a voice call in the conversation.
func (h *CallHandler) GetToken(c *gin.Context) {
	conversationID, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid conversation ID"})
		return
	}

	userID, ok := middleware.UserID(c)
	if !ok {
		c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
		return
	}

	var req callTokenRequest
	_ = c.ShouldBindJSON(&req)
	if req.DisplayName == "" {
		req.DisplayName = c.GetString("user_email")
	}

	token, serverURL, err := h.callService.GetCallToken(c.Request.Context(), conversationID, userID, req.DisplayName)
	if err != nil {
		c.Error(err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token": token,
		"url":   serverURL,
	})
}
