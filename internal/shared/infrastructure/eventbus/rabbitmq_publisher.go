package eventbus

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"sync"

	amqp "github.com/rabbitmq/amqp091-go"
)

// ExchangeName is the topic exchange audit events are published to.
// Consumers bind with patterns like "license.validation.*".
const ExchangeName = "keygate.audit.events"

// RabbitMQPublisher delivers audit events to a durable topic exchange.
// The amqp channel is not safe for concurrent publishes, so one mutex
// serializes them.
type RabbitMQPublisher struct {
	mu      sync.Mutex
	conn    *amqp.Connection
	channel *amqp.Channel
	logger  *slog.Logger
}

// NewRabbitMQPublisher dials url and declares the audit exchange.
func NewRabbitMQPublisher(url string, logger *slog.Logger) (*RabbitMQPublisher, error) {
	if logger == nil {
		logger = slog.Default()
	}

	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("connect to rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}

	if err := ch.ExchangeDeclare(ExchangeName, "topic", true, false, false, false, nil); err != nil {
		_ = ch.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange %s: %w", ExchangeName, err)
	}

	logger.Info("audit event publisher connected", "exchange", ExchangeName)
	return &RabbitMQPublisher{conn: conn, channel: ch, logger: logger}, nil
}

// buildPublishing encodes the envelope. The event name rides in the
// message Type header so consumers can dispatch without decoding bodies.
func buildPublishing(event Event) (amqp.Publishing, error) {
	body, err := json.Marshal(event)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("encode event %s: %w", event.Name, err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		Type:         event.Name,
		DeliveryMode: amqp.Persistent,
		Timestamp:    event.OccurredAt,
		Body:         body,
	}, nil
}

// Publish implements Publisher. The event name is the routing key.
func (p *RabbitMQPublisher) Publish(ctx context.Context, event Event) error {
	msg, err := buildPublishing(event)
	if err != nil {
		return err
	}

	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.channel.PublishWithContext(ctx, ExchangeName, event.Name, false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", event.Name, err)
	}

	p.logger.Debug("audit event published", "event", event.Name, "size", len(msg.Body))
	return nil
}

// Close implements Publisher.
func (p *RabbitMQPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.channel != nil {
		if err := p.channel.Close(); err != nil {
			p.logger.Warn("error closing channel", "error", err)
		}
	}
	if p.conn != nil {
		return p.conn.Close()
	}
	return nil
}

// NoopPublisher drops events, for deployments without a broker.
type NoopPublisher struct {
	logger *slog.Logger
}

// NewNoopPublisher creates a publisher that only logs.
func NewNoopPublisher(logger *slog.Logger) *NoopPublisher {
	if logger == nil {
		logger = slog.Default()
	}
	return &NoopPublisher{logger: logger}
}

// Publish implements Publisher without delivering anywhere.
func (p *NoopPublisher) Publish(_ context.Context, event Event) error {
	p.logger.Debug("audit event dropped, no broker configured", "event", event.Name)
	return nil
}

// Close implements Publisher.
func (p *NoopPublisher) Close() error { return nil }
