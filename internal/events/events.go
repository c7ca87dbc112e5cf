package events

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/messagely/apiserver/config"
)

// Channel is the broker channel carrying message lifecycle events.
const Channel = "message-events"

// Event types emitted by the message core.
const (
	TypeMessageSent = "message.sent"
	TypeMessageRead = "message.read"
)

// Event describes a message lifecycle transition for downstream consumers
// (e.g. a notification worker). Bodies are deliberately excluded.
type Event struct {
	Type         string    `json:"type"`
	MessageID    int64     `json:"message_id"`
	FromUsername string    `json:"from_username"`
	ToUsername   string    `json:"to_username"`
	OccurredAt   time.Time `json:"occurred_at"`
}

// Message represents a broker-agnostic payload delivered to subscribers.
type Message struct {
	ID         string
	Data       []byte
	Attributes map[string]string
}

// Handler processes a delivery. Return an error to signal a retry/nack.
type Handler func(ctx context.Context, msg Message) error

// Backend defines the broker-agnostic operations used by the app.
type Backend interface {
	Publish(ctx context.Context, channel string, data []byte, attrs map[string]string) (string, error)
	Subscribe(ctx context.Context, channel string, handler Handler) error
	Close() error
}

// Publisher emits message lifecycle events.
type Publisher interface {
	Publish(ctx context.Context, event Event) error
	Close() error
}

// BrokerPublisher publishes JSON-encoded events through a Backend.
type BrokerPublisher struct {
	backend Backend
}

// NewBrokerPublisher constructs a publisher for the provided backend.
func NewBrokerPublisher(backend Backend) *BrokerPublisher {
	return &BrokerPublisher{backend: backend}
}

// Publish sends the event to the lifecycle channel.
func (p *BrokerPublisher) Publish(ctx context.Context, event Event) error {
	data, err := json.Marshal(event)
	if err != nil {
		return err
	}
	attrs := map[string]string{"type": event.Type}
	_, err = p.backend.Publish(ctx, Channel, data, attrs)
	return err
}

// Close closes the underlying backend.
func (p *BrokerPublisher) Close() error {
	return p.backend.Close()
}

// NopPublisher discards events. Used when no broker is configured.
type NopPublisher struct{}

func (NopPublisher) Publish(context.Context, Event) error { return nil }
func (NopPublisher) Close() error                         { return nil }

// NewPublisher constructs the publisher selected by config.
func NewPublisher(ctx context.Context, cfg config.EventsConfig) (Publisher, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "":
		return NopPublisher{}, nil
	case "rabbitmq":
		backend, err := NewRabbitMQClient(cfg.RabbitMQ)
		if err != nil {
			return nil, err
		}
		return NewBrokerPublisher(backend), nil
	case "pubsub":
		backend, err := NewPubSubClient(ctx, cfg.PubSub)
		if err != nil {
			return nil, err
		}
		return NewBrokerPublisher(backend), nil
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}

// NewBackend constructs the raw broker backend selected by config.
// Subscribers (the events worker command) use this directly.
func NewBackend(ctx context.Context, cfg config.EventsConfig) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(cfg.Backend)) {
	case "rabbitmq":
		return NewRabbitMQClient(cfg.RabbitMQ)
	case "pubsub":
		return NewPubSubClient(ctx, cfg.PubSub)
	default:
		return nil, fmt.Errorf("unknown events backend %q", cfg.Backend)
	}
}
