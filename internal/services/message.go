package services

import (
	"context"
	"log"
	"time"

	"github.com/messagely/apiserver/internal/events"
	"github.com/messagely/apiserver/types"
)

// MessageRepository defines persistence operations for messages.
type MessageRepository interface {
	Create(ctx context.Context, message types.Message) (types.Message, error)
	GetByID(ctx context.Context, id int64) (types.MessageDetail, error)
	MarkRead(ctx context.Context, id int64) (types.ReadReceipt, bool, error)
	ListFrom(ctx context.Context, username string) ([]types.MessageDetail, error)
	ListTo(ctx context.Context, username string) ([]types.MessageDetail, error)
}

// MessageService encapsulates message use-cases and the participant
// authorization rules: a message is visible only to its sender and
// recipient, and only the recipient may mark it read.
type MessageService struct {
	messages  MessageRepository
	users     UserRepository
	publisher events.Publisher
}

func NewMessageService(messages MessageRepository, users UserRepository, publisher events.Publisher) *MessageService {
	if publisher == nil {
		publisher = events.NopPublisher{}
	}
	return &MessageService{
		messages:  messages,
		users:     users,
		publisher: publisher,
	}
}

// Send creates a message from the authenticated sender. The caller resolved
// fromUsername from a verified token; this method trusts it. An unknown
// recipient surfaces as store.ErrNotFound.
func (s *MessageService) Send(ctx context.Context, fromUsername, toUsername, body string) (types.Message, error) {
	if _, err := s.users.GetByUsername(ctx, toUsername); err != nil {
		return types.Message{}, err
	}

	message, err := s.messages.Create(ctx, types.Message{
		FromUsername: fromUsername,
		ToUsername:   toUsername,
		Body:         body,
	})
	if err != nil {
		return types.Message{}, err
	}

	s.publish(ctx, events.Event{
		Type:         events.TypeMessageSent,
		MessageID:    message.ID,
		FromUsername: message.FromUsername,
		ToUsername:   message.ToUsername,
		OccurredAt:   message.SentAt,
	})
	return message, nil
}

// Get returns the message with both participant profiles. Requesters who
// are neither sender nor recipient get ErrForbidden.
func (s *MessageService) Get(ctx context.Context, id int64, requester string) (types.MessageDetail, error) {
	detail, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return types.MessageDetail{}, err
	}
	if !detail.Participant(requester) {
		return types.MessageDetail{}, ErrForbidden
	}
	return detail, nil
}

// MarkRead stamps the read receipt. Only the recipient may do this;
// repeat calls are idempotent and return the stored receipt.
func (s *MessageService) MarkRead(ctx context.Context, id int64, requester string) (types.ReadReceipt, error) {
	detail, err := s.messages.GetByID(ctx, id)
	if err != nil {
		return types.ReadReceipt{}, err
	}
	if detail.ToUser == nil || detail.ToUser.Username != requester {
		return types.ReadReceipt{}, ErrForbidden
	}

	receipt, transitioned, err := s.messages.MarkRead(ctx, id)
	if err != nil {
		return types.ReadReceipt{}, err
	}

	if transitioned {
		from := ""
		if detail.FromUser != nil {
			from = detail.FromUser.Username
		}
		s.publish(ctx, events.Event{
			Type:         events.TypeMessageRead,
			MessageID:    receipt.ID,
			FromUsername: from,
			ToUsername:   requester,
			OccurredAt:   receipt.ReadAt,
		})
	}
	return receipt, nil
}

// SentBy returns the user's outbox ordered by sent_at ascending.
func (s *MessageService) SentBy(ctx context.Context, username string) ([]types.MessageDetail, error) {
	return s.messages.ListFrom(ctx, username)
}

// ReceivedBy returns the user's inbox ordered by sent_at ascending.
func (s *MessageService) ReceivedBy(ctx context.Context, username string) ([]types.MessageDetail, error) {
	return s.messages.ListTo(ctx, username)
}

// publish emits a lifecycle event best-effort. Broker trouble is logged
// and never surfaced to the API caller.
func (s *MessageService) publish(ctx context.Context, event events.Event) {
	if event.OccurredAt.IsZero() {
		event.OccurredAt = time.Now()
	}
	if err := s.publisher.Publish(ctx, event); err != nil {
		log.Printf("events: publish %s for message %d: %v", event.Type, event.MessageID, err)
	}
}
