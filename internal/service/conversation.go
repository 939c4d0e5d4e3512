package service

import (
	"context"
	"errors"

	"github.com/google/uuid"

	"team_inbox/internal/domain"
	"team_inbox/internal/repository"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

type ConversationService interface {
	GetConversation(ctx context.Context, id uuid.UUID) (*domain.Conversation, error)
	ListConversations(ctx context.Context, status *domain.ConversationStatus, limit, offset int) ([]*domain.Conversation, error)
	UpdateConversation(ctx context.Context, id uuid.UUID, status *domain.ConversationStatus, priority *domain.ConversationPriority) (*domain.Conversation, error)
	// FindOrCreate returns the contact's open conversation on the channel,
	// creating a fresh active one when none exists.
	FindOrCreate(ctx context.Context, contactID uuid.UUID, ch domain.Channel) (*domain.Conversation, error)
}

type conversationService struct {
	conversationRepo repository.ConversationRepository
	log              logger.Logger
}

func NewConversationService(conversationRepo repository.ConversationRepository, log logger.Logger) ConversationService {
	return &conversationService{conversationRepo: conversationRepo, log: log}
}

func (s *conversationService) GetConversation(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	return s.conversationRepo.GetByID(ctx, id)
}

func (s *conversationService) ListConversations(ctx context.Context, status *domain.ConversationStatus, limit, offset int) ([]*domain.Conversation, error) {
	if status != nil && !status.Valid() {
		return nil, apperrors.NewValidationError(map[string]string{"status": "unknown conversation status"})
	}
	return s.conversationRepo.List(ctx, status, limit, offset)
}

func (s *conversationService) UpdateConversation(ctx context.Context, id uuid.UUID, status *domain.ConversationStatus, priority *domain.ConversationPriority) (*domain.Conversation, error) {
	fields := map[string]string{}
	if status != nil && !status.Valid() {
		fields["status"] = "unknown conversation status"
	}
	if priority != nil && !priority.Valid() {
		fields["priority"] = "unknown priority"
	}
	if status == nil && priority == nil {
		fields["body"] = "nothing to update"
	}
	if len(fields) > 0 {
		return nil, apperrors.NewValidationError(fields)
	}

	conversation, err := s.conversationRepo.GetByID(ctx, id)
	if err != nil {
		return nil, err
	}

	if status != nil {
		conversation.Status = *status
	}
	if priority != nil {
		conversation.Priority = *priority
	}

	if err := s.conversationRepo.Update(ctx, conversation); err != nil {
		return nil, err
	}

	return conversation, nil
}

func (s *conversationService) FindOrCreate(ctx context.Context, contactID uuid.UUID, ch domain.Channel) (*domain.Conversation, error) {
	conversation, err := s.conversationRepo.FindOpen(ctx, contactID, ch)
	if err == nil {
		return conversation, nil
	}
	if !errors.Is(err, apperrors.ErrConversationNotFound) {
		return nil, err
	}

	conversation = &domain.Conversation{
		ID:        uuid.New(),
		ContactID: contactID,
		Channel:   ch,
		Status:    domain.ConversationStatusActive,
		Priority:  domain.PriorityNormal,
	}
	if err := s.conversationRepo.Create(ctx, conversation); err != nil {
		return nil, err
	}

	s.log.Info("Conversation created", "conversation_id", conversation.ID, "contact_id", contactID, "channel", ch)
	return conversation, nil
}
