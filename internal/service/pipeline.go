package service

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"

	"team_inbox/internal/domain"
	"team_inbox/internal/events"
	"team_inbox/internal/realtime"
	"team_inbox/internal/repository"
	apperrors "team_inbox/pkg/errors"
	"team_inbox/pkg/logger"
)

// PipelineService normalizes raw channel messages into unified records. The
// pipeline is idempotent: redelivered webhooks resolve to the already-stored
// message instead of a second row.
type PipelineService interface {
	ProcessMessage(ctx context.Context, raw *domain.RawChannelMessage) *domain.ProcessingResult
	ProcessBatch(ctx context.Context, raws []*domain.RawChannelMessage) *domain.BatchResult
}

type pipelineService struct {
	messageRepo  repository.MessageRepository
	contactRepo  repository.ContactRepository
	conversation ConversationService
	hub          Broadcaster
	publisher    events.Publisher
	log          logger.Logger
}

func NewPipelineService(
	messageRepo repository.MessageRepository,
	contactRepo repository.ContactRepository,
	conversation ConversationService,
	hub Broadcaster,
	publisher events.Publisher,
	log logger.Logger,
) PipelineService {
	return &pipelineService{
		messageRepo:  messageRepo,
		contactRepo:  contactRepo,
		conversation: conversation,
		hub:          hub,
		publisher:    publisher,
		log:          log,
	}
}

func (s *pipelineService) ProcessMessage(ctx context.Context, raw *domain.RawChannelMessage) *domain.ProcessingResult {
	start := time.Now()
	result := &domain.ProcessingResult{}
	defer func() { result.ProcessingTime = time.Since(start) }()

	if errs := validateRaw(raw); len(errs) > 0 {
		result.Errors = errs
		return result
	}

	contact, err := s.resolveSender(ctx, raw)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("resolve contact: %v", err))
		return result
	}

	conversation, err := s.conversation.FindOrCreate(ctx, contact.ID, raw.Channel)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("resolve conversation: %v", err))
		return result
	}

	receivedAt := raw.ReceivedAt
	if receivedAt.IsZero() {
		receivedAt = time.Now()
	}

	message := &domain.Message{
		ID:             uuid.New(),
		ConversationID: conversation.ID,
		ContactID:      contact.ID,
		Channel:        raw.Channel,
		Direction:      domain.DirectionInbound,
		Content:        strings.TrimSpace(raw.Content),
		Status:         domain.MessageStatusDelivered,
		ExternalID:     raw.ExternalID,
		Attachments:    normalizeAttachments(raw.Attachments),
		Metadata:       raw.Metadata,
		DeliveredAt:    &receivedAt,
	}

	if err := s.messageRepo.Create(ctx, message); err != nil {
		if errors.Is(err, apperrors.ErrConflict) {
			return s.resolveDuplicate(ctx, raw, result)
		}
		result.Errors = append(result.Errors, fmt.Sprintf("store message: %v", err))
		return result
	}

	result.Success = true
	result.StoredMessage = message

	s.hub.BroadcastToConversation(conversation.ID,
		realtime.NewEvent(realtime.EventMessageReceived, message))
	s.publisher.PublishMessageEvent(ctx, events.EventMessageReceived, message)

	return result
}

// resolveDuplicate turns a redelivered webhook into an idempotent success
// pointing at the original row.
func (s *pipelineService) resolveDuplicate(ctx context.Context, raw *domain.RawChannelMessage, result *domain.ProcessingResult) *domain.ProcessingResult {
	existing, err := s.messageRepo.GetByExternalID(ctx, raw.Channel, raw.ExternalID)
	if err != nil {
		result.Errors = append(result.Errors, fmt.Sprintf("resolve duplicate: %v", err))
		return result
	}

	s.log.Debug("Duplicate webhook delivery", "channel", raw.Channel, "external_id", raw.ExternalID)
	result.Success = true
	result.StoredMessage = existing
	result.Warnings = append(result.Warnings, "duplicate delivery, message already stored")
	return result
}

// ProcessBatch isolates failures per item: one malformed message never stops
// the rest of the batch.
func (s *pipelineService) ProcessBatch(ctx context.Context, raws []*domain.RawChannelMessage) *domain.BatchResult {
	batch := &domain.BatchResult{}

	for i, raw := range raws {
		if ctx.Err() != nil {
			batch.Errors = append(batch.Errors, fmt.Sprintf("batch aborted at item %d: %v", i, ctx.Err()))
			batch.Failed += len(raws) - i
			break
		}

		result := s.ProcessMessage(ctx, raw)
		if result.Success {
			batch.Processed++
			continue
		}
		batch.Failed++
		for _, msg := range result.Errors {
			batch.Errors = append(batch.Errors, fmt.Sprintf("item %d: %s", i, msg))
		}
	}

	return batch
}

func (s *pipelineService) resolveSender(ctx context.Context, raw *domain.RawChannelMessage) (*domain.Contact, error) {
	name := raw.From
	if profile, ok := raw.Metadata["profile_name"].(string); ok && profile != "" {
		name = profile
	}

	var phone, email *string
	if raw.Channel == domain.ChannelEmail {
		email = &raw.From
	} else {
		phone = &raw.From
	}

	return s.contactRepo.UpsertByAddress(ctx, name, phone, email)
}

func validateRaw(raw *domain.RawChannelMessage) []string {
	var errs []string
	if !raw.Channel.Valid() {
		errs = append(errs, fmt.Sprintf("unknown channel %q", raw.Channel))
	}
	if raw.ExternalID == "" {
		errs = append(errs, "missing external id")
	}
	if raw.From == "" {
		errs = append(errs, "missing sender address")
	}
	if raw.To == "" {
		errs = append(errs, "missing recipient address")
	}
	if strings.TrimSpace(raw.Content) == "" && len(raw.Attachments) == 0 {
		errs = append(errs, "empty message: no content and no attachments")
	}
	return errs
}

func normalizeAttachments(raws []domain.RawAttachment) []domain.Attachment {
	if len(raws) == 0 {
		return nil
	}
	attachments := make([]domain.Attachment, 0, len(raws))
	for _, raw := range raws {
		attachments = append(attachments, domain.Attachment{
			Filename:    raw.Filename,
			ContentType: raw.ContentType,
			Size:        raw.Size,
			URL:         raw.URL,
		})
	}
	return attachments
}
