package service

import (
	"context"
	"strings"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"team_inbox/internal/channel"
	"team_inbox/internal/domain"
	"team_inbox/internal/repository"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

type ScheduleService interface {
	// ScheduleMessage enqueues a future send. The scheduled time must be
	// strictly in the future and the channel must be registered.
	ScheduleMessage(ctx context.Context, scheduled *domain.ScheduledMessage) error
	GetScheduledMessage(ctx context.Context, id uuid.UUID) (*domain.ScheduledMessage, error)
	ListScheduledMessages(ctx context.Context, status *domain.ScheduleStatus, limit, offset int) ([]*domain.ScheduledMessage, error)
	// UpdateScheduledMessage rewrites a pending entry; anything past pending
	// returns ErrInvalidScheduleState.
	UpdateScheduledMessage(ctx context.Context, scheduled *domain.ScheduledMessage) error
	CancelScheduledMessage(ctx context.Context, id uuid.UUID) error
	// ProcessDueMessages sends every due pending entry, at most one sweep at
	// a time. Template variables are rendered at send time.
	ProcessDueMessages(ctx context.Context) (*domain.SweepResult, error)
}

type scheduleService struct {
	scheduledRepo    repository.ScheduledMessageRepository
	contactRepo      repository.ContactRepository
	conversationRepo repository.ConversationRepository
	messages         MessageService
	registry         *channel.Registry
	batchSize        int
	inFlight         int32
	now              func() time.Time
	log              logger.Logger
}

func NewScheduleService(
	scheduledRepo repository.ScheduledMessageRepository,
	contactRepo repository.ContactRepository,
	conversationRepo repository.ConversationRepository,
	messages MessageService,
	registry *channel.Registry,
	batchSize int,
	log logger.Logger,
) ScheduleService {
	return &scheduleService{
		scheduledRepo:    scheduledRepo,
		contactRepo:      contactRepo,
		conversationRepo: conversationRepo,
		messages:         messages,
		registry:         registry,
		batchSize:        batchSize,
		now:              time.Now,
		log:              log,
	}
}

func (s *scheduleService) ScheduleMessage(ctx context.Context, scheduled *domain.ScheduledMessage) error {
	if err := s.validateSchedule(scheduled); err != nil {
		return err
	}

	if _, err := s.conversationRepo.GetByID(ctx, scheduled.ConversationID); err != nil {
		return err
	}

	if scheduled.ID == uuid.Nil {
		scheduled.ID = uuid.New()
	}
	scheduled.Status = domain.ScheduleStatusPending

	if err := s.scheduledRepo.Create(ctx, scheduled); err != nil {
		return err
	}

	s.log.Info("Message scheduled",
		"scheduled_id", scheduled.ID, "channel", scheduled.Channel, "scheduled_for", scheduled.ScheduledFor)
	return nil
}

func (s *scheduleService) validateSchedule(scheduled *domain.ScheduledMessage) error {
	fields := map[string]string{}
	if !scheduled.Channel.Valid() {
		fields["channel"] = "unknown channel"
	} else if _, err := s.registry.Integration(scheduled.Channel); err != nil {
		fields["channel"] = "channel is not available"
	}
	if strings.TrimSpace(scheduled.Content) == "" {
		fields["content"] = "content is required"
	}
	if !scheduled.ScheduledFor.After(s.now()) {
		fields["scheduled_for"] = "scheduled time must be in the future"
	}
	if len(fields) > 0 {
		return apperrors.NewValidationError(fields)
	}
	return nil
}

func (s *scheduleService) GetScheduledMessage(ctx context.Context, id uuid.UUID) (*domain.ScheduledMessage, error) {
	return s.scheduledRepo.GetByID(ctx, id)
}

func (s *scheduleService) ListScheduledMessages(ctx context.Context, status *domain.ScheduleStatus, limit, offset int) ([]*domain.ScheduledMessage, error) {
	return s.scheduledRepo.List(ctx, status, limit, offset)
}

func (s *scheduleService) UpdateScheduledMessage(ctx context.Context, scheduled *domain.ScheduledMessage) error {
	if err := s.validateSchedule(scheduled); err != nil {
		return err
	}
	return s.scheduledRepo.UpdatePending(ctx, scheduled)
}

func (s *scheduleService) CancelScheduledMessage(ctx context.Context, id uuid.UUID) error {
	return s.scheduledRepo.CancelPending(ctx, id)
}

func (s *scheduleService) ProcessDueMessages(ctx context.Context) (*domain.SweepResult, error) {
	if !atomic.CompareAndSwapInt32(&s.inFlight, 0, 1) {
		return nil, apperrors.ErrSweepInFlight
	}
	defer atomic.StoreInt32(&s.inFlight, 0)

	due, err := s.scheduledRepo.ListDue(ctx, s.now(), s.batchSize)
	if err != nil {
		return nil, err
	}

	result := &domain.SweepResult{Due: len(due)}

	for _, item := range due {
		if ctx.Err() != nil {
			return result, ctx.Err()
		}

		if err := s.sendScheduled(ctx, item); err != nil {
			result.Failed++
			if markErr := s.scheduledRepo.MarkFailed(ctx, item.ID, err.Error()); markErr != nil {
				s.log.Error("Failed to mark scheduled message failed", "error", markErr, "scheduled_id", item.ID)
			}
			continue
		}
		result.Sent++
	}

	return result, nil
}

func (s *scheduleService) sendScheduled(ctx context.Context, item *domain.ScheduledMessage) error {
	contact, err := s.contactRepo.GetByID(ctx, item.ContactID)
	if err != nil {
		return err
	}

	to, err := addressFor(contact, item.Channel)
	if err != nil {
		return err
	}

	outbound := &domain.OutboundMessage{
		To:      to,
		Content: RenderTemplate(item.Content, item.Variables),
		Channel: item.Channel,
	}

	result, err := s.messages.SendToConversation(ctx, item.ConversationID, item.ContactID, outbound)
	if err != nil {
		return err
	}
	if !result.Success {
		return apperrors.NewAPIError(result.Error, 502)
	}

	return s.scheduledRepo.MarkSent(ctx, item.ID, result.Stored.ID)
}

func addressFor(contact *domain.Contact, ch domain.Channel) (string, error) {
	if ch == domain.ChannelEmail {
		if contact.Email == nil {
			return "", apperrors.NewValidationError(map[string]string{"contact": "contact has no email address"})
		}
		return *contact.Email, nil
	}
	if contact.Phone == nil {
		return "", apperrors.NewValidationError(map[string]string{"contact": "contact has no phone number"})
	}
	return *contact.Phone, nil
}

// RenderTemplate substitutes {{name}} placeholders. Unknown placeholders are
// left verbatim so a typo is visible in the sent message rather than silent.
func RenderTemplate(content string, variables map[string]string) string {
	if len(variables) == 0 {
		return content
	}
	replacements := make([]string, 0, len(variables)*2)
	for name, value := range variables {
		replacements = append(replacements, "{{"+name+"}}", value)
	}
	return strings.NewReplacer(replacements...).Replace(content)
}
