package service

import (
	"context"
	"errors"
	"time"

	"github.com/google/uuid"

	"team_inbox/internal/channel"
	"team_inbox/internal/domain"
	"team_inbox/internal/events"
	"team_inbox/internal/realtime"
	"team_inbox/internal/repository"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

// Broadcaster pushes events into conversation rooms. Satisfied by the
// realtime hub; tests substitute a recorder.
type Broadcaster interface {
	BroadcastToConversation(conversationID uuid.UUID, event *realtime.Event)
}

type MessageService interface {
	// SendMessage resolves the recipient to a contact and conversation, sends
	// through the channel, and persists the message only when the provider
	// accepted it. A rejected send leaves no database row behind.
	SendMessage(ctx context.Context, outbound *domain.OutboundMessage) (*domain.SendResult, error)
	// SendToConversation sends within an already-resolved conversation; used
	// by the scheduler sweep.
	SendToConversation(ctx context.Context, conversationID, contactID uuid.UUID, outbound *domain.OutboundMessage) (*domain.SendResult, error)
	// UpdateStatusByExternalID applies a provider status callback. Unknown
	// external IDs and non-forward transitions are silently ignored.
	UpdateStatusByExternalID(ctx context.Context, ch domain.Channel, externalID string, status domain.MessageStatus) error
	GetMessage(ctx context.Context, id uuid.UUID) (*domain.Message, error)
	ListMessages(ctx context.Context, filter domain.MessageFilter) ([]*domain.Message, error)
	SearchMessages(ctx context.Context, query string, filter domain.MessageFilter) ([]*domain.Message, error)
	GetStats(ctx context.Context, filter domain.MessageFilter) (*domain.MessageStats, error)
}

type messageService struct {
	messageRepo  repository.MessageRepository
	contactRepo  repository.ContactRepository
	conversation ConversationService
	registry     *channel.Registry
	hub          Broadcaster
	publisher    events.Publisher
	log          logger.Logger
}

func NewMessageService(
	messageRepo repository.MessageRepository,
	contactRepo repository.ContactRepository,
	conversation ConversationService,
	registry *channel.Registry,
	hub Broadcaster,
	publisher events.Publisher,
	log logger.Logger,
) MessageService {
	return &messageService{
		messageRepo:  messageRepo,
		contactRepo:  contactRepo,
		conversation: conversation,
		registry:     registry,
		hub:          hub,
		publisher:    publisher,
		log:          log,
	}
}

func (s *messageService) SendMessage(ctx context.Context, outbound *domain.OutboundMessage) (*domain.SendResult, error) {
	if !outbound.Channel.Valid() {
		return nil, apperrors.NewValidationError(map[string]string{"channel": "unknown channel"})
	}
	if outbound.To == "" {
		return nil, apperrors.NewValidationError(map[string]string{"to": "recipient is required"})
	}

	contact, err := s.resolveRecipient(ctx, outbound)
	if err != nil {
		return nil, err
	}

	conversation, err := s.conversation.FindOrCreate(ctx, contact.ID, outbound.Channel)
	if err != nil {
		return nil, err
	}

	return s.SendToConversation(ctx, conversation.ID, contact.ID, outbound)
}

func (s *messageService) SendToConversation(ctx context.Context, conversationID, contactID uuid.UUID, outbound *domain.OutboundMessage) (*domain.SendResult, error) {
	sender, err := s.registry.CreateSender(outbound.Channel)
	if err != nil {
		return nil, err
	}

	result := sender.Send(ctx, outbound)
	if !result.Success {
		s.log.Warn("Outbound send failed",
			"channel", outbound.Channel, "to", outbound.To, "error", result.Error)
		return result, nil
	}

	now := time.Now()
	message := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversationID,
		ContactID:      contactID,
		SenderID:       outbound.SenderID,
		Channel:        outbound.Channel,
		Direction:      domain.DirectionOutbound,
		Content:        outbound.Content,
		Status:         domain.MessageStatusSent,
		ExternalID:     result.ExternalID,
		Attachments:    outbound.Attachments,
		Metadata:       outbound.Metadata,
		SentAt:         &now,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		s.log.Error("Failed to persist sent message",
			"error", err, "external_id", result.ExternalID)
		return nil, err
	}

	result.MessageID = message.ID.String()
	result.Stored = message

	s.hub.BroadcastToConversation(conversationID,
		realtime.NewEvent(realtime.EventMessageSent, message))
	s.publisher.PublishMessageEvent(ctx, events.EventMessageSent, message)

	return result, nil
}

// resolveRecipient upserts the contact identified by the outbound address.
func (s *messageService) resolveRecipient(ctx context.Context, outbound *domain.OutboundMessage) (*domain.Contact, error) {
	var phone, email *string
	if outbound.Channel == domain.ChannelEmail {
		if !emailPattern.MatchString(outbound.To) {
			return nil, apperrors.NewValidationError(map[string]string{"to": "invalid email address"})
		}
		email = &outbound.To
	} else {
		if !phonePattern.MatchString(outbound.To) {
			return nil, apperrors.NewValidationError(map[string]string{"to": "phone must be in E.164 format"})
		}
		phone = &outbound.To
	}

	return s.contactRepo.UpsertByAddress(ctx, outbound.To, phone, email)
}

func (s *messageService) UpdateStatusByExternalID(ctx context.Context, ch domain.Channel, externalID string, status domain.MessageStatus) error {
	message, err := s.messageRepo.GetByExternalID(ctx, ch, externalID)
	if err != nil {
		if errors.Is(err, apperrors.ErrMessageNotFound) {
			s.log.Debug("Status callback for unknown message", "channel", ch, "external_id", externalID)
			return nil
		}
		return err
	}

	if !domain.CanTransition(message.Status, status) {
		s.log.Debug("Ignoring non-forward status transition",
			"message_id", message.ID, "from", message.Status, "to", status)
		return nil
	}

	now := time.Now()
	if err := s.messageRepo.UpdateStatus(ctx, message.ID, status, now); err != nil {
		return err
	}

	message.Status = status
	switch status {
	case domain.MessageStatusSent:
		message.SentAt = &now
	case domain.MessageStatusDelivered:
		message.DeliveredAt = &now
	case domain.MessageStatusRead:
		message.ReadAt = &now
	}

	s.hub.BroadcastToConversation(message.ConversationID,
		realtime.NewEvent(realtime.EventMessageStatus, map[string]any{
			"messageId":  message.ID,
			"externalId": externalID,
			"status":     status,
		}))
	s.publisher.PublishMessageEvent(ctx, events.EventMessageStatus, message)

	return nil
}

func (s *messageService) GetMessage(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	return s.messageRepo.GetByID(ctx, id)
}

func (s *messageService) ListMessages(ctx context.Context, filter domain.MessageFilter) ([]*domain.Message, error) {
	return s.messageRepo.List(ctx, filter)
}

func (s *messageService) SearchMessages(ctx context.Context, query string, filter domain.MessageFilter) ([]*domain.Message, error) {
	if query == "" {
		return nil, apperrors.NewValidationError(map[string]string{"q": "search query is required"})
	}
	return s.messageRepo.Search(ctx, query, filter)
}

func (s *messageService) GetStats(ctx context.Context, filter domain.MessageFilter) (*domain.MessageStats, error) {
	return s.messageRepo.Stats(ctx, filter)
}
