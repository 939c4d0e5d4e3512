package service

import (
	"context"
	"testing"

	"github.com/google/uuid"

	"team_inbox/internal/channel"
	"team_inbox/internal/domain"
	"team_inbox/internal/realtime"
	"team_inbox/pkg/logger"
)

func newMessageFixture(t *testing.T, sender *fakeSender) (MessageService, *fakeMessageRepo, *fakeContactRepo, *fakeConversationRepo, *fakeBroadcaster, *fakePublisher) {
	t.Helper()

	messageRepo := newFakeMessageRepo()
	contactRepo := newFakeContactRepo()
	conversationRepo := newFakeConversationRepo()
	hub := &fakeBroadcaster{}
	publisher := &fakePublisher{}

	registry := channel.NewRegistry(logger.NewNop())
	registry.Register(&fakeIntegration{sender: sender})

	conversation := NewConversationService(conversationRepo, logger.NewNop())
	svc := NewMessageService(messageRepo, contactRepo, conversation, registry, hub, publisher, logger.NewNop())

	return svc, messageRepo, contactRepo, conversationRepo, hub, publisher
}

func TestSendMessagePersistsOnlyOnSuccess(t *testing.T) {
	sender := &fakeSender{ch: domain.ChannelSMS}
	svc, messageRepo, contactRepo, conversationRepo, hub, publisher := newMessageFixture(t, sender)

	result, err := svc.SendMessage(context.Background(), &domain.OutboundMessage{
		To:      "+15551234567",
		Content: "hello there",
		Channel: domain.ChannelSMS,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if !result.Success {
		t.Fatalf("expected success, got %q", result.Error)
	}

	if len(messageRepo.created) != 1 {
		t.Fatalf("created %d messages, want 1", len(messageRepo.created))
	}
	stored := messageRepo.created[0]
	if stored.Status != domain.MessageStatusSent {
		t.Errorf("status = %s, want sent", stored.Status)
	}
	if stored.Direction != domain.DirectionOutbound {
		t.Errorf("direction = %s, want outbound", stored.Direction)
	}
	if stored.ExternalID != "EXT1" {
		t.Errorf("external id = %q, want EXT1", stored.ExternalID)
	}
	if result.Stored != stored {
		t.Error("result should reference the stored message")
	}

	if contactRepo.upserts != 1 {
		t.Errorf("contact upserts = %d, want 1", contactRepo.upserts)
	}
	if conversationRepo.created != 1 {
		t.Errorf("conversations created = %d, want 1", conversationRepo.created)
	}

	if len(hub.events) != 1 || hub.events[0].Type != realtime.EventMessageSent {
		t.Errorf("expected one MESSAGE_SENT broadcast, got %v", hub.events)
	}
	if len(publisher.published) != 1 || publisher.published[0] != "message.sent" {
		t.Errorf("published = %v, want [message.sent]", publisher.published)
	}
}

func TestSendMessageFailureLeavesNoRow(t *testing.T) {
	sender := &fakeSender{
		ch:     domain.ChannelSMS,
		result: &domain.SendResult{Success: false, Error: "provider rejected"},
	}
	svc, messageRepo, _, _, hub, publisher := newMessageFixture(t, sender)

	result, err := svc.SendMessage(context.Background(), &domain.OutboundMessage{
		To:      "+15551234567",
		Content: "hello",
		Channel: domain.ChannelSMS,
	})
	if err != nil {
		t.Fatalf("SendMessage: %v", err)
	}
	if result.Success {
		t.Fatal("expected failure result")
	}

	if len(messageRepo.created) != 0 {
		t.Errorf("created %d messages, want 0 on failed send", len(messageRepo.created))
	}
	if len(hub.events) != 0 {
		t.Error("no broadcast expected on failed send")
	}
	if len(publisher.published) != 0 {
		t.Error("no event expected on failed send")
	}
}

func TestSendMessageReusesOpenConversation(t *testing.T) {
	sender := &fakeSender{ch: domain.ChannelSMS}
	svc, messageRepo, _, conversationRepo, _, _ := newMessageFixture(t, sender)

	for i := 0; i < 2; i++ {
		sender.result = &domain.SendResult{Success: true, ExternalID: uuid.NewString()}
		if _, err := svc.SendMessage(context.Background(), &domain.OutboundMessage{
			To:      "+15551234567",
			Content: "hello",
			Channel: domain.ChannelSMS,
		}); err != nil {
			t.Fatalf("SendMessage: %v", err)
		}
	}

	if conversationRepo.created != 1 {
		t.Errorf("conversations created = %d, want 1 (second send reuses it)", conversationRepo.created)
	}
	if messageRepo.created[0].ConversationID != messageRepo.created[1].ConversationID {
		t.Error("both messages should land in the same conversation")
	}
}

func TestSendMessageUnregisteredChannel(t *testing.T) {
	sender := &fakeSender{ch: domain.ChannelSMS}
	svc, _, _, _, _, _ := newMessageFixture(t, sender)

	_, err := svc.SendMessage(context.Background(), &domain.OutboundMessage{
		To:      "inbox@example.com",
		Content: "hello",
		Channel: domain.ChannelEmail,
	})
	if err == nil {
		t.Fatal("expected error for unregistered channel")
	}
}

func TestUpdateStatusForward(t *testing.T) {
	sender := &fakeSender{ch: domain.ChannelSMS}
	svc, messageRepo, _, _, hub, publisher := newMessageFixture(t, sender)

	if _, err := svc.SendMessage(context.Background(), &domain.OutboundMessage{
		To: "+15551234567", Content: "hi", Channel: domain.ChannelSMS,
	}); err != nil {
		t.Fatal(err)
	}
	hub.events = nil
	publisher.published = nil

	if err := svc.UpdateStatusByExternalID(context.Background(), domain.ChannelSMS, "EXT1", domain.MessageStatusDelivered); err != nil {
		t.Fatalf("UpdateStatusByExternalID: %v", err)
	}

	if len(messageRepo.statusUpdates) != 1 || messageRepo.statusUpdates[0] != domain.MessageStatusDelivered {
		t.Errorf("status updates = %v, want [delivered]", messageRepo.statusUpdates)
	}
	if len(hub.events) != 1 || hub.events[0].Type != realtime.EventMessageStatus {
		t.Errorf("expected MESSAGE_STATUS broadcast, got %v", hub.events)
	}
	if len(publisher.published) != 1 || publisher.published[0] != "message.status" {
		t.Errorf("published = %v, want [message.status]", publisher.published)
	}
}

func TestUpdateStatusBackwardIsNoOp(t *testing.T) {
	sender := &fakeSender{ch: domain.ChannelSMS}
	svc, messageRepo, _, _, hub, _ := newMessageFixture(t, sender)

	if _, err := svc.SendMessage(context.Background(), &domain.OutboundMessage{
		To: "+15551234567", Content: "hi", Channel: domain.ChannelSMS,
	}); err != nil {
		t.Fatal(err)
	}
	hub.events = nil

	// read is terminal; a late delivered receipt must not regress it
	if err := svc.UpdateStatusByExternalID(context.Background(), domain.ChannelSMS, "EXT1", domain.MessageStatusRead); err != nil {
		t.Fatal(err)
	}
	if err := svc.UpdateStatusByExternalID(context.Background(), domain.ChannelSMS, "EXT1", domain.MessageStatusDelivered); err != nil {
		t.Fatalf("backward transition should be a silent no-op, got %v", err)
	}

	if len(messageRepo.statusUpdates) != 1 {
		t.Errorf("status updates = %v, want only the read update", messageRepo.statusUpdates)
	}

	message, _ := messageRepo.GetByExternalID(context.Background(), domain.ChannelSMS, "EXT1")
	if message.Status != domain.MessageStatusRead {
		t.Errorf("status = %s, want read", message.Status)
	}
}

func TestUpdateStatusUnknownExternalID(t *testing.T) {
	sender := &fakeSender{ch: domain.ChannelSMS}
	svc, messageRepo, _, _, _, _ := newMessageFixture(t, sender)

	if err := svc.UpdateStatusByExternalID(context.Background(), domain.ChannelSMS, "SMghost", domain.MessageStatusDelivered); err != nil {
		t.Fatalf("unknown external id should be tolerated, got %v", err)
	}
	if len(messageRepo.statusUpdates) != 0 {
		t.Error("no status update expected for unknown message")
	}
}
