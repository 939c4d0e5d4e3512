package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"team_inbox/internal/channel"
	"team_inbox/internal/config"
)

type HealthHandler struct {
	environment string
	registry    *channel.Registry
}

func NewHealthHandler(cfg *config.Config, registry *channel.Registry) *HealthHandler {
	return &HealthHandler{
		environment: cfg.Environment,
		registry:    registry,
	}
}

func (h *HealthHandler) Check(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "ok",
		"service": "team-inbox",
	})
}

// ServerInfo tells clients which channels this deployment can send through.
func (h *HealthHandler) ServerInfo(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"environment": h.environment,
		"channels":    h.registry.Channels(),
		"api_base":    "/api/v1",
	})
}
