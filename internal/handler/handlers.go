package handler

import (
	"team_inbox/internal/channel"
	"team_inbox/internal/config"
	"team_inbox/internal/realtime"
	"team_inbox/internal/service"
	"team_inbox/pkg/logger"
)

type Handlers struct {
	Health       *HealthHandler
	Auth         *AuthHandler
	Contact      *ContactHandler
	Conversation *ConversationHandler
	Message      *MessageHandler
	Schedule     *ScheduleHandler
	Webhook      *WebhookHandler
	Call         *CallHandler
	WebSocket    *WebSocketHandler
}

func NewHandlers(
	services *service.Services,
	registry *channel.Registry,
	hub *realtime.Hub,
	docs *realtime.DocHub,
	cfg *config.Config,
	log logger.Logger,
) *Handlers {
	return &Handlers{
		Health:       NewHealthHandler(cfg, registry),
		Auth:         NewAuthHandler(cfg, log),
		Contact:      NewContactHandler(services.Contact, log),
		Conversation: NewConversationHandler(services.Conversation, services.Message, log),
		Message:      NewMessageHandler(services.Message, log),
		Schedule:     NewScheduleHandler(services.Schedule, log),
		Webhook:      NewWebhookHandler(services.Pipeline, services.Message, registry, cfg.Provider, log),
		Call:         NewCallHandler(services.Call, log),
		WebSocket:    NewWebSocketHandler(hub, docs, log),
	}
}
