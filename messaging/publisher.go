package messaging

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/paperless-go/contracts"
	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// RawPublisher sends an already encoded message. *rabbitmq.Publisher implements it.
type RawPublisher interface {
	Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error
}

// MessagePublisher is the publishing surface workers depend on
type MessagePublisher interface {
	Publish(ctx context.Context, routingKey string, message any) error
	Send(ctx context.Context, msg contracts.Message) error
}

// Publisher publishes JSON messages to the paperless exchange
type Publisher struct {
	raw      RawPublisher
	exchange string
	logger   *slog.Logger
}

// PublisherOption configures the Publisher
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the logger
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a publisher bound to contracts.Exchange
func NewPublisher(raw RawPublisher, options ...PublisherOption) *Publisher {
	p := &Publisher{
		raw:      raw,
		exchange: contracts.Exchange,
		logger:   slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Publish serializes message to JSON and publishes it under routingKey.
// A message with no queue bound to routingKey is discarded by the broker.
// Errors from opening the channel are returned unmodified and never retried.
func (p *Publisher) Publish(ctx context.Context, routingKey string, message any) error {
	body, err := json.Marshal(message)
	if err != nil {
		return fmt.Errorf("messaging: failed to serialize message for %s: %w", routingKey, err)
	}

	var msgType string
	if m, ok := message.(contracts.Message); ok {
		msgType = m.MessageType().String()
	}
	return p.publish(ctx, routingKey, msgType, body)
}

// Send publishes msg under the routing key registered for its type
func (p *Publisher) Send(ctx context.Context, msg contracts.Message) error {
	env, err := contracts.NewEnvelope(msg)
	if err != nil {
		return err
	}
	return p.publish(ctx, env.RoutingKey, msg.MessageType().String(), env.Body)
}

func (p *Publisher) publish(ctx context.Context, routingKey, msgType string, body []byte) error {
	msg := amqp.Publishing{
		ContentType:  contracts.ContentTypeJSON,
		DeliveryMode: amqp.Persistent,
		MessageId:    uuid.NewString(),
		Timestamp:    time.Now().UTC(),
		Type:         msgType,
		Body:         body,
	}

	if err := p.raw.Publish(ctx, p.exchange, routingKey, msg); err != nil {
		return err
	}

	p.logger.Debug("published message", "routingKey", routingKey, "messageId", msg.MessageId, "type", msg.Type)
	return nil
}

// PublishOcrCommand queues a document for OCR
func (p *Publisher) PublishOcrCommand(ctx context.Context, cmd contracts.OcrCommand) error {
	return p.Publish(ctx, contracts.OcrCommandRouting, cmd)
}

// PublishOcrEvent announces an OCR outcome
func (p *Publisher) PublishOcrEvent(ctx context.Context, event contracts.OcrEvent) error {
	return p.Publish(ctx, contracts.OcrEventRouting, event)
}

// PublishGenAICommand queues OCR text for summarization
func (p *Publisher) PublishGenAICommand(ctx context.Context, cmd contracts.GenAICommand) error {
	return p.Publish(ctx, contracts.GenAICommandRouting, cmd)
}

// PublishGenAIEvent announces a summarization outcome
func (p *Publisher) PublishGenAIEvent(ctx context.Context, event contracts.GenAIEvent) error {
	return p.Publish(ctx, contracts.GenAIEventRouting, event)
}
