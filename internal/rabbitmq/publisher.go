package rabbitmq

import (
	"context"
	"log/slog"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
)

// Publisher publishes raw AMQP messages.
//
// Every Publish opens its own channel and closes it when done, so a Publisher
// can be shared freely between goroutines. There are no publisher confirms and
// no retries: a successful return means the broker accepted the frame on the
// socket, nothing more.
type Publisher struct {
	opener ChannelOpener
	logger *slog.Logger
}

// PublisherOption configures the publisher
type PublisherOption func(*Publisher)

// WithPublisherLogger sets the publisher logger
func WithPublisherLogger(logger *slog.Logger) PublisherOption {
	return func(p *Publisher) {
		p.logger = logger
	}
}

// NewPublisher creates a new publisher
func NewPublisher(opener ChannelOpener, options ...PublisherOption) *Publisher {
	p := &Publisher{
		opener: opener,
		logger: slog.Default(),
	}

	for _, opt := range options {
		opt(p)
	}

	return p
}

// Publish sends msg to exchange with the given routing key on a transient channel.
// Channel open failures are returned as-is.
func (p *Publisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	ch, err := p.opener.OpenChannel()
	if err != nil {
		return err
	}
	defer func() {
		if cerr := ch.Close(); cerr != nil && !ch.IsClosed() {
			p.logger.Debug("failed to close publish channel", "error", cerr)
		}
	}()

	if err := ch.PublishWithContext(ctx, exchange, routingKey, false, false, msg); err != nil {
		return &PublishError{
			Exchange:   exchange,
			RoutingKey: routingKey,
			Err:        err,
			Timestamp:  time.Now(),
		}
	}

	p.logger.Debug("message published", "exchange", exchange, "routingKey", routingKey, "size", len(msg.Body))
	return nil
}
