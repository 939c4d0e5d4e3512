package events

import (
	"context"
	"encoding/json"

	amqp "github.com/rabbitmq/amqp091-go"

	"team_inbox/internal/config"
	"team_inbox/internal/domain"
	"team_inbox/pkg/logger"
)

// Publisher fans message lifecycle events out to an external broker. A
// multi-instance deployment subscribes its realtime layers here; a single
// instance runs fine with the noop publisher.
type Publisher interface {
	PublishMessageEvent(ctx context.Context, eventType string, message *domain.Message)
	Close() error
}

const (
	EventMessageReceived = "message.received"
	EventMessageSent     = "message.sent"
	EventMessageStatus   = "message.status"
)

type amqpPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
	log      logger.Logger
}

// NewPublisher connects to the broker when an URL is configured, otherwise
// returns a publisher that silently drops events.
func NewPublisher(cfg config.AMQPConfig, log logger.Logger) (Publisher, error) {
	if cfg.URL == "" {
		log.Info("AMQP_URL is not set, event publishing disabled")
		return &noopPublisher{}, nil
	}

	conn, err := amqp.Dial(cfg.URL)
	if err != nil {
		return nil, err
	}

	channel, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, err
	}

	if err := channel.ExchangeDeclare(
		cfg.Exchange,
		"topic",
		true,  // durable
		false, // auto-delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		channel.Close()
		conn.Close()
		return nil, err
	}

	log.Info("AMQP connection established", "exchange", cfg.Exchange)

	return &amqpPublisher{
		conn:     conn,
		channel:  channel,
		exchange: cfg.Exchange,
		log:      log,
	}, nil
}

func (p *amqpPublisher) PublishMessageEvent(ctx context.Context, eventType string, message *domain.Message) {
	body, err := json.Marshal(message)
	if err != nil {
		p.log.Error("Failed to marshal event", "error", err, "event", eventType)
		return
	}

	err = p.channel.PublishWithContext(ctx,
		p.exchange,
		eventType, // routing key
		false,     // mandatory
		false,     // immediate
		amqp.Publishing{
			ContentType: "application/json",
			Body:        body,
		},
	)
	if err != nil {
		// Event fanout is best-effort; the row is already persisted.
		p.log.Error("Failed to publish event", "error", err, "event", eventType)
	}
}

func (p *amqpPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		return err
	}
	return p.conn.Close()
}

type noopPublisher struct{}

func (p *noopPublisher) PublishMessageEvent(ctx context.Context, eventType string, message *domain.Message) {
}

func (p *noopPublisher) Close() error { return nil }
