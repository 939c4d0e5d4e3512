package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"team_inbox/internal/config"
	"team_inbox/pkg/jwt"
	"team_inbox/pkg/logger"
)

// AuthHandler issues development tokens. Production deployments get their
// tokens from the identity service; this endpoint refuses to run there.
type AuthHandler struct {
	cfg config.Config
	log logger.Logger
}

func NewAuthHandler(cfg *config.Config, log logger.Logger) *AuthHandler {
	return &AuthHandler{cfg: *cfg, log: log}
}

type devTokenRequest struct {
	Email string `json:"email" binding:"required"`
	Role  string `json:"role"`
}

func (h *AuthHandler) DevToken(c *gin.Context) {
	if h.cfg.Environment == "production" {
		c.JSON(http.StatusNotFound, gin.H{"error": "not found"})
		return
	}

	var req devTokenRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if req.Role == "" {
		req.Role = "agent"
	}

	userID := uuid.New()
	token, err := jwt.GenerateAccessToken(userID, req.Email, req.Role, h.cfg.JWT.AccessSecret, h.cfg.JWT.AccessTTL)
	if err != nil {
		h.log.Error("Failed to generate dev token", "error", err)
		c.JSON(http.StatusInternalServerError, gin.H{"error": "failed to generate token"})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"token":   token,
		"user_id": userID,
	})
}
