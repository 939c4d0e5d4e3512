package service

import (
	"context"
	"time"

	"github.com/google/uuid"
	"github.com/livekit/protocol/auth"

	"team_inbox/internal/config"
	"team_inbox/internal/repository"
	"team_inbox/pkg/logger"
)

// CallService issues media-server access tokens for voice calls scoped to a
// conversation. Every agent joining the same conversation lands in the same
// media room.
type CallService interface {
	GetCallToken(ctx context.Context, conversationID, userID uuid.UUID, displayName string) (token string, serverURL string, err error)
}

type callService struct {
	conversationRepo repository.ConversationRepository
	cfg              config.CallingConfig
	log              logger.Logger
}

func NewCallService(conversationRepo repository.ConversationRepository, cfg config.CallingConfig, log logger.Logger) CallService {
	return &callService{
		conversationRepo: conversationRepo,
		cfg:              cfg,
		log:              log,
	}
}

func (s *callService) GetCallToken(ctx context.Context, conversationID, userID uuid.UUID, displayName string) (string, string, error) {
	conversation, err := s.conversationRepo.GetByID(ctx, conversationID)
	if err != nil {
		return "", "", err
	}

	canPublish := true
	canSubscribe := true
	grant := &auth.VideoGrant{
		RoomJoin:     true,
		Room:         "conversation-" + conversation.ID.String(),
		CanPublish:   &canPublish,
		CanSubscribe: &canSubscribe,
	}

	at := auth.NewAccessToken(s.cfg.APIKey, s.cfg.APISecret)
	at.AddGrant(grant).
		SetIdentity(userID.String()).
		SetName(displayName).
		SetValidFor(time.Hour)

	token, err := at.ToJWT()
	if err != nil {
		s.log.Error("Failed to generate call token", "error", err, "conversation_id", conversationID)
		return "", "", err
	}

	serverURL := s.cfg.URL
	if serverURL == "" {
		serverURL = "ws://localhost:7880"
	}

	return token, serverURL, nil
}
