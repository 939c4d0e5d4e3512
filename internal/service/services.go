package service

import (
	"team_inbox/internal/channel"
	"team_inbox/internal/config"
	"team_inbox/internal/events"
	"team_inbox/internal/repository"
	"team_inbox/pkg/logger"
)

// Services is the composition of the business layer, built once at startup.
type Services struct {
	Contact      ContactService
	Conversation ConversationService
	Message      MessageService
	Pipeline     PipelineService
	Schedule     ScheduleService
	Call         CallService
	RateLimit    RateLimitService
}

func NewServices(
	repos *repository.Repositories,
	registry *channel.Registry,
	hub Broadcaster,
	publisher events.Publisher,
	cfg *config.Config,
	log logger.Logger,
) *Services {
	conversation := NewConversationService(repos.Conversation, log)
	message := NewMessageService(repos.Message, repos.Contact, conversation, registry, hub, publisher, log)

	return &Services{
		Contact:      NewContactService(repos.Contact, log),
		Conversation: conversation,
		Message:      message,
		Pipeline:     NewPipelineService(repos.Message, repos.Contact, conversation, hub, publisher, log),
		Schedule:     NewScheduleService(repos.Scheduled, repos.Contact, repos.Conversation, message, registry, cfg.Scheduler.BatchSize, log),
		Call:         NewCallService(repos.Conversation, cfg.Calling, log),
		RateLimit:    NewRateLimitService(repos.RateLimit, log),
	}
}
