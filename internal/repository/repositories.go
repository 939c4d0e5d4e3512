package repository

import (
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"

	"team_inbox/pkg/logger"
)

type Repositories struct {
	Contact      ContactRepository
	Conversation ConversationRepository
	Message      MessageRepository
	Scheduled    ScheduledMessageRepository
	RateLimit    RateLimitRepository
}

func NewRepositories(db *pgxpool.Pool, redis *redis.Client, log logger.Logger) *Repositories {
	return &Repositories{
		Contact:      NewContactRepository(db, log),
		Conversation: NewConversationRepository(db, log),
		Message:      NewMessageRepository(db, log),
		Scheduled:    NewScheduledMessageRepository(db, log),
		RateLimit:    NewRateLimitRepository(redis, log),
	}
}
