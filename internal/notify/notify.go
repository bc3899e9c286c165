// Package notify publishes attempt lifecycle events to RabbitMQ for the
// notification service and other downstream consumers.
package notify

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/rs/zerolog"
	"github.com/stemsi/quizattempt/internal/model"
)

// Exchange is the topic exchange all attempt events go to. The routing key is
// the event type, e.g. "attempt.completed".
const Exchange = "quiz.attempts"

// Nop discards events. Used when no broker is configured.
type Nop struct{}

// Publish does nothing.
func (Nop) Publish(context.Context, *model.AttemptEvent) error { return nil }

// RabbitPublisher publishes persistent JSON messages on one channel.
type RabbitPublisher struct {
	conn *amqp.Connection
	mu   sync.Mutex
	ch   *amqp.Channel
	log  zerolog.Logger
}

// Dial connects to the broker and declares the exchange.
func Dial(url string, log zerolog.Logger) (*RabbitPublisher, error) {
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial rabbitmq: %w", err)
	}
	ch, err := conn.Channel()
	if err != nil {
		conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := ch.ExchangeDeclare(
		Exchange,
		amqp.ExchangeTopic,
		true,  // durable
		false, // auto delete
		false, // internal
		false, // no-wait
		nil,
	); err != nil {
		conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}

	return &RabbitPublisher{
		conn: conn,
		ch:   ch,
		log:  log.With().Str("component", "notify").Logger(),
	}, nil
}

// Publish sends e with its type as routing key.
func (p *RabbitPublisher) Publish(ctx context.Context, e *model.AttemptEvent) error {
	msg, err := Message(e)
	if err != nil {
		return err
	}

	// amqp channels are not safe for concurrent publishing.
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.PublishWithContext(ctx, Exchange, string(e.Type), false, false, msg); err != nil {
		return fmt.Errorf("publish %s: %w", e.Type, err)
	}
	p.log.Debug().
		Str("type", string(e.Type)).
		Str("attempt_id", e.AttemptID.String()).
		Msg("Attempt event published")
	return nil
}

// Close closes the channel and the connection.
func (p *RabbitPublisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if err := p.ch.Close(); err != nil {
		p.log.Warn().Err(err).Msg("Close channel")
	}
	return p.conn.Close()
}

// Message builds the AMQP message for e.
func Message(e *model.AttemptEvent) (amqp.Publishing, error) {
	body, err := json.Marshal(e)
	if err != nil {
		return amqp.Publishing{}, fmt.Errorf("marshal event: %w", err)
	}
	return amqp.Publishing{
		ContentType:  "application/json",
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    e.OccurredAt,
		Type:         string(e.Type),
		Body:         body,
	}, nil
}
