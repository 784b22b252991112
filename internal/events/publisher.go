// Package events publishes conversation changes to a RabbitMQ topic exchange
// so that other services (push notifications, search indexing) can follow
// them. The routing key is the event type.
package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/charmbracelet/log"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"github.com/PaulBabatuyi/chatsync/internal/chat"
	"github.com/PaulBabatuyi/chatsync/internal/observability"
)

// Source is stamped on every envelope.
const Source = "chatsync"

// Envelope is the JSON body of every published message.
type Envelope struct {
	EventID    string     `json:"event_id"`
	EventType  string     `json:"event_type"`
	Source     string     `json:"source"`
	OccurredAt time.Time  `json:"occurred_at"`
	Payload    chat.Event `json:"payload"`
}

// NewEnvelope wraps ev with a fresh event id.
func NewEnvelope(ev chat.Event) Envelope {
	occurred := ev.OccurredAt
	if occurred.IsZero() {
		occurred = time.Now().UTC()
	}
	return Envelope{
		EventID:    uuid.NewString(),
		EventType:  string(ev.Type),
		Source:     Source,
		OccurredAt: occurred,
		Payload:    ev,
	}
}

// Publisher is a chat.ConversationListener that forwards events to a broker.
type Publisher interface {
	chat.ConversationListener
	Close() error
}

// channel is the part of *amqp.Channel the publisher uses.
type channel interface {
	PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error
	Close() error
}

// NewPublisher dials amqpURL and declares a durable topic exchange. When the
// URL is empty or the broker is unreachable it logs why and returns a noop
// publisher, so the service keeps running without a broker.
func NewPublisher(amqpURL, exchange string, logger *log.Logger) Publisher {
	if logger == nil {
		logger = log.Default()
	}
	logger = logger.WithPrefix("events")

	if amqpURL == "" {
		logger.Info("amqp disabled, using noop", "reason", "empty amqp url")
		return noopPublisher{log: logger}
	}

	conn, err := amqp.Dial(amqpURL)
	if err != nil {
		logger.Warn("amqp disabled, using noop", "err", err)
		return noopPublisher{log: logger}
	}

	ch, err := conn.Channel()
	if err != nil {
		logger.Warn("amqp disabled, using noop", "err", err)
		_ = conn.Close()
		return noopPublisher{log: logger}
	}

	if err := ch.ExchangeDeclare(
		exchange,
		"topic",
		true,  // durable
		false, // auto-deleted
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		logger.Warn("amqp disabled, using noop", "err", err)
		_ = ch.Close()
		_ = conn.Close()
		return noopPublisher{log: logger}
	}

	logger.Info("amqp connected", "exchange", exchange)
	return &amqpPublisher{conn: conn, ch: ch, exchange: exchange, log: logger}
}

type amqpPublisher struct {
	conn     *amqp.Connection
	ch       channel
	exchange string
	log      *log.Logger
}

func (p *amqpPublisher) ConversationChanged(ctx context.Context, ev chat.Event) error {
	env := NewEnvelope(ev)
	body, err := json.Marshal(env)
	if err != nil {
		return err
	}

	err = p.ch.PublishWithContext(ctx, p.exchange, env.EventType, false, false, amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    env.EventID,
		Timestamp:    env.OccurredAt,
		Body:         body,
	})
	if err != nil {
		observability.IncAMQPPublishError()
		p.log.Warn("publish failed", "event", env.EventType, "recipient", ev.Recipient, "err", err)
	}
	return err
}

func (p *amqpPublisher) Close() error {
	if p.ch != nil {
		_ = p.ch.Close()
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

type noopPublisher struct {
	log *log.Logger
}

func (p noopPublisher) ConversationChanged(_ context.Context, ev chat.Event) error {
	p.log.Debug("noop publish", "event", ev.Type, "recipient", ev.Recipient, "conversation", ev.ConversationID)
	return nil
}

func (noopPublisher) Close() error { return nil }

// Mode reports the publisher mode for logging.
func Mode(p Publisher) string {
	switch p.(type) {
	case *amqpPublisher:
		return "amqp"
	case noopPublisher:
		return "noop"
	default:
		return "unknown"
	}
}
