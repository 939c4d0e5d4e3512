package service

import (
	"context"
	"net/url"
	"time"

	"github.com/google/uuid"

	"team_inbox/internal/channel"
	"team_inbox/internal/domain"
	"team_inbox/internal/realtime"
	apperrors "team_inbox/pkg/errors"
)

type fakeMessageRepo struct {
	byID       map[uuid.UUID]*domain.Message
	byExternal map[string]*domain.Message

	createErr     error
	created       []*domain.Message
	statusUpdates []domain.MessageStatus
}

func newFakeMessageRepo() *fakeMessageRepo {
	return &fakeMessageRepo{
		byID:       make(map[uuid.UUID]*domain.Message),
		byExternal: make(map[string]*domain.Message),
	}
}

func externalKey(ch domain.Channel, externalID string) string {
	return string(ch) + ":" + externalID
}

func (r *fakeMessageRepo) Create(ctx context.Context, message *domain.Message) error {
	if r.createErr != nil {
		return r.createErr
	}
	if message.ExternalID != "" {
		if _, exists := r.byExternal[externalKey(message.Channel, message.ExternalID)]; exists {
			return apperrors.ErrConflict
		}
	}
	message.CreatedAt = time.Now()
	r.byID[message.ID] = message
	if message.ExternalID != "" {
		r.byExternal[externalKey(message.Channel, message.ExternalID)] = message
	}
	r.created = append(r.created, message)
	return nil
}

func (r *fakeMessageRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Message, error) {
	message, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	return message, nil
}

func (r *fakeMessageRepo) GetByExternalID(ctx context.Context, ch domain.Channel, externalID string) (*domain.Message, error) {
	message, ok := r.byExternal[externalKey(ch, externalID)]
	if !ok {
		return nil, apperrors.ErrMessageNotFound
	}
	return message, nil
}

func (r *fakeMessageRepo) UpdateStatus(ctx context.Context, id uuid.UUID, status domain.MessageStatus, at time.Time) error {
	message, ok := r.byID[id]
	if !ok {
		return apperrors.ErrMessageNotFound
	}
	message.Status = status
	r.statusUpdates = append(r.statusUpdates, status)
	return nil
}

func (r *fakeMessageRepo) List(ctx context.Context, filter domain.MessageFilter) ([]*domain.Message, error) {
	return r.created, nil
}

func (r *fakeMessageRepo) Search(ctx context.Context, query string, filter domain.MessageFilter) ([]*domain.Message, error) {
	return r.created, nil
}

func (r *fakeMessageRepo) Stats(ctx context.Context, filter domain.MessageFilter) (*domain.MessageStats, error) {
	return &domain.MessageStats{Total: int64(len(r.created))}, nil
}

type fakeContactRepo struct {
	byID      map[uuid.UUID]*domain.Contact
	byAddress map[string]*domain.Contact
	upserts   int
}

func newFakeContactRepo() *fakeContactRepo {
	return &fakeContactRepo{
		byID:      make(map[uuid.UUID]*domain.Contact),
		byAddress: make(map[string]*domain.Contact),
	}
}

func (r *fakeContactRepo) Create(ctx context.Context, contact *domain.Contact) error {
	r.byID[contact.ID] = contact
	return nil
}

func (r *fakeContactRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Contact, error) {
	contact, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrContactNotFound
	}
	return contact, nil
}

func (r *fakeContactRepo) GetByPhone(ctx context.Context, phone string) (*domain.Contact, error) {
	contact, ok := r.byAddress[phone]
	if !ok {
		return nil, apperrors.ErrContactNotFound
	}
	return contact, nil
}

func (r *fakeContactRepo) GetByEmail(ctx context.Context, email string) (*domain.Contact, error) {
	return r.GetByPhone(ctx, email)
}

func (r *fakeContactRepo) List(ctx context.Context, limit, offset int) ([]*domain.Contact, error) {
	var contacts []*domain.Contact
	for _, contact := range r.byID {
		contacts = append(contacts, contact)
	}
	return contacts, nil
}

func (r *fakeContactRepo) UpsertByAddress(ctx context.Context, name string, phone, email *string) (*domain.Contact, error) {
	r.upserts++

	address := ""
	if phone != nil {
		address = *phone
	} else if email != nil {
		address = *email
	}

	if existing, ok := r.byAddress[address]; ok {
		return existing, nil
	}

	contact := &domain.Contact{ID: uuid.New(), Name: name, Phone: phone, Email: email}
	r.byID[contact.ID] = contact
	r.byAddress[address] = contact
	return contact, nil
}

type fakeConversationRepo struct {
	byID    map[uuid.UUID]*domain.Conversation
	open    map[string]*domain.Conversation
	created int
}

func newFakeConversationRepo() *fakeConversationRepo {
	return &fakeConversationRepo{
		byID: make(map[uuid.UUID]*domain.Conversation),
		open: make(map[string]*domain.Conversation),
	}
}

func openKey(contactID uuid.UUID, ch domain.Channel) string {
	return contactID.String() + ":" + string(ch)
}

func (r *fakeConversationRepo) Create(ctx context.Context, conversation *domain.Conversation) error {
	conversation.CreatedAt = time.Now()
	r.byID[conversation.ID] = conversation
	r.open[openKey(conversation.ContactID, conversation.Channel)] = conversation
	r.created++
	return nil
}

func (r *fakeConversationRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.Conversation, error) {
	conversation, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrConversationNotFound
	}
	return conversation, nil
}

func (r *fakeConversationRepo) FindOpen(ctx context.Context, contactID uuid.UUID, ch domain.Channel) (*domain.Conversation, error) {
	conversation, ok := r.open[openKey(contactID, ch)]
	if !ok || conversation.Status != domain.ConversationStatusActive {
		return nil, apperrors.ErrConversationNotFound
	}
	return conversation, nil
}

func (r *fakeConversationRepo) List(ctx context.Context, status *domain.ConversationStatus, limit, offset int) ([]*domain.Conversation, error) {
	var conversations []*domain.Conversation
	for _, conversation := range r.byID {
		conversations = append(conversations, conversation)
	}
	return conversations, nil
}

func (r *fakeConversationRepo) Update(ctx context.Context, conversation *domain.Conversation) error {
	if _, ok := r.byID[conversation.ID]; !ok {
		return apperrors.ErrConversationNotFound
	}
	r.byID[conversation.ID] = conversation
	return nil
}

type fakeScheduledRepo struct {
	byID   map[uuid.UUID]*domain.ScheduledMessage
	due    []*domain.ScheduledMessage
	sent   []uuid.UUID
	failed map[uuid.UUID]string

	listDueStarted chan struct{}
	listDueRelease chan struct{}
}

func newFakeScheduledRepo() *fakeScheduledRepo {
	return &fakeScheduledRepo{
		byID:   make(map[uuid.UUID]*domain.ScheduledMessage),
		failed: make(map[uuid.UUID]string),
	}
}

func (r *fakeScheduledRepo) Create(ctx context.Context, scheduled *domain.ScheduledMessage) error {
	scheduled.CreatedAt = time.Now()
	r.byID[scheduled.ID] = scheduled
	return nil
}

func (r *fakeScheduledRepo) GetByID(ctx context.Context, id uuid.UUID) (*domain.ScheduledMessage, error) {
	scheduled, ok := r.byID[id]
	if !ok {
		return nil, apperrors.ErrNotFound
	}
	return scheduled, nil
}

func (r *fakeScheduledRepo) List(ctx context.Context, status *domain.ScheduleStatus, limit, offset int) ([]*domain.ScheduledMessage, error) {
	var scheduled []*domain.ScheduledMessage
	for _, item := range r.byID {
		scheduled = append(scheduled, item)
	}
	return scheduled, nil
}

func (r *fakeScheduledRepo) ListDue(ctx context.Context, now time.Time, limit int) ([]*domain.ScheduledMessage, error) {
	if r.listDueStarted != nil {
		close(r.listDueStarted)
		r.listDueStarted = nil
		<-r.listDueRelease
	}
	if len(r.due) > limit {
		return r.due[:limit], nil
	}
	return r.due, nil
}

func (r *fakeScheduledRepo) UpdatePending(ctx context.Context, scheduled *domain.ScheduledMessage) error {
	existing, ok := r.byID[scheduled.ID]
	if !ok || existing.Status != domain.ScheduleStatusPending {
		return apperrors.ErrInvalidScheduleState
	}
	r.byID[scheduled.ID] = scheduled
	return nil
}

func (r *fakeScheduledRepo) CancelPending(ctx context.Context, id uuid.UUID) error {
	existing, ok := r.byID[id]
	if !ok || existing.Status != domain.ScheduleStatusPending {
		return apperrors.ErrInvalidScheduleState
	}
	existing.Status = domain.ScheduleStatusCancelled
	return nil
}

func (r *fakeScheduledRepo) MarkSent(ctx context.Context, id, messageID uuid.UUID) error {
	if item, ok := r.byID[id]; ok {
		item.Status = domain.ScheduleStatusSent
		item.MessageID = &messageID
	}
	r.sent = append(r.sent, id)
	return nil
}

func (r *fakeScheduledRepo) MarkFailed(ctx context.Context, id uuid.UUID, reason string) error {
	if item, ok := r.byID[id]; ok {
		item.Status = domain.ScheduleStatusFailed
		item.LastError = &reason
	}
	r.failed[id] = reason
	return nil
}

type fakeBroadcaster struct {
	events []*realtime.Event
	rooms  []uuid.UUID
}

func (b *fakeBroadcaster) BroadcastToConversation(conversationID uuid.UUID, event *realtime.Event) {
	b.rooms = append(b.rooms, conversationID)
	b.events = append(b.events, event)
}

type fakePublisher struct {
	published []string
}

func (p *fakePublisher) PublishMessageEvent(ctx context.Context, eventType string, message *domain.Message) {
	p.published = append(p.published, eventType)
}

func (p *fakePublisher) Close() error { return nil }

// fakeSender lets tests script channel send outcomes.
type fakeSender struct {
	ch      domain.Channel
	result  *domain.SendResult
	sent    []*domain.OutboundMessage
	counter int
}

func (s *fakeSender) Send(ctx context.Context, message *domain.OutboundMessage) *domain.SendResult {
	s.counter++
	s.sent = append(s.sent, message)
	if s.result != nil {
		return s.result
	}
	return &domain.SendResult{Success: true, ExternalID: "EXT1", MessageID: "EXT1"}
}

func (s *fakeSender) ValidateRecipient(contact *domain.Contact) *domain.ValidationResult {
	return &domain.ValidationResult{Valid: true}
}

func (s *fakeSender) Features() domain.ChannelFeatures { return domain.ChannelFeatures{} }

func (s *fakeSender) ChannelType() domain.Channel { return s.ch }

type fakeIntegration struct {
	sender *fakeSender
}

func (i *fakeIntegration) ChannelType() domain.Channel    { return i.sender.ch }
func (i *fakeIntegration) CreateSender() channel.Sender   { return i.sender }
func (i *fakeIntegration) SetupWebhook(ctx context.Context, cfg domain.WebhookConfig) error {
	return nil
}
func (i *fakeIntegration) ValidateWebhook(callbackURL string, form url.Values, signature string) bool {
	return true
}
func (i *fakeIntegration) ProcessWebhook(form url.Values) ([]*domain.RawChannelMessage, error) {
	return nil, nil
}
