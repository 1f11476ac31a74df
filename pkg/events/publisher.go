package events

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"

	"feedbackhub/pkg/domain"
)

// Event types published on the reviews exchange. The routing key equals the
// event type, so consumers can bind to "review.*" or a single kind.
const (
	ReviewSubmitted = "review.submitted"
	ReviewAnalyzed  = "review.analyzed"
)

const defaultExchange = "feedbackhub.reviews"

// Publisher emits review lifecycle events for dashboards and analytics.
// Publishing is best effort: callers log failures and never fail the request.
type Publisher interface {
	Publish(ctx context.Context, eventType string, review domain.Review) error
}

// Envelope is the JSON payload carried by every event.
type Envelope struct {
	ID         string        `json:"id"`
	Type       string        `json:"type"`
	OccurredAt time.Time     `json:"occurred_at"`
	Review     domain.Review `json:"review"`
}

func newEnvelope(eventType string, review domain.Review) Envelope {
	return Envelope{
		ID:         uuid.NewString(),
		Type:       eventType,
		OccurredAt: time.Now().UTC(),
		Review:     review,
	}
}

// AMQPPublisher publishes events to a RabbitMQ topic exchange.
type AMQPPublisher struct {
	conn     *amqp.Connection
	channel  *amqp.Channel
	exchange string
}

// NewAMQPPublisher dials the broker and declares the durable topic exchange.
func NewAMQPPublisher(url, exchange string) (*AMQPPublisher, error) {
	url = strings.TrimSpace(url)
	if url == "" {
		return nil, errors.New("amqp url required")
	}
	exchange = strings.TrimSpace(exchange)
	if exchange == "" {
		exchange = defaultExchange
	}
	conn, err := amqp.Dial(url)
	if err != nil {
		return nil, fmt.Errorf("dial amqp: %w", err)
	}
	channel, err := conn.Channel()
	if err != nil {
		_ = conn.Close()
		return nil, fmt.Errorf("open channel: %w", err)
	}
	if err := channel.ExchangeDeclare(exchange, "topic", true, false, false, false, nil); err != nil {
		_ = channel.Close()
		_ = conn.Close()
		return nil, fmt.Errorf("declare exchange: %w", err)
	}
	return &AMQPPublisher{conn: conn, channel: channel, exchange: exchange}, nil
}

// Publish emits one event. The broker round trip is bounded by a short
// timeout so a slow broker cannot stall request handling.
func (p *AMQPPublisher) Publish(ctx context.Context, eventType string, review domain.Review) error {
	envelope := newEnvelope(eventType, review)
	body, err := json.Marshal(envelope)
	if err != nil {
		return fmt.Errorf("marshal event: %w", err)
	}
	ctx, cancel := context.WithTimeout(ctx, 2*time.Second)
	defer cancel()
	return p.channel.PublishWithContext(ctx, p.exchange, eventType, false, false, amqp.Publishing{
		ContentType: "application/json",
		MessageId:   envelope.ID,
		Timestamp:   envelope.OccurredAt,
		Body:        body,
	})
}

// Close releases the channel and connection.
func (p *AMQPPublisher) Close() error {
	if err := p.channel.Close(); err != nil {
		_ = p.conn.Close()
		return err
	}
	return p.conn.Close()
}
