package messaging

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/glimte/paperless-go/contracts"
	"github.com/glimte/paperless-go/internal/rabbitmq"
)

// QueueResolver maps a message type tag to the queue its consumers read from
type QueueResolver func(contracts.MessageType) (string, bool)

// ConsumerFactory opens consumers on the shared connection.
// Every consumer gets a dedicated channel.
type ConsumerFactory struct {
	opener  rabbitmq.ChannelOpener
	resolve QueueResolver
	logger  *slog.Logger
}

// FactoryOption configures the ConsumerFactory
type FactoryOption func(*ConsumerFactory)

// WithQueueResolver replaces the default contracts routing table
func WithQueueResolver(resolve QueueResolver) FactoryOption {
	return func(f *ConsumerFactory) {
		f.resolve = resolve
	}
}

// WithQueueTable resolves queues from a fixed map
func WithQueueTable(table map[contracts.MessageType]string) FactoryOption {
	return WithQueueResolver(func(t contracts.MessageType) (string, bool) {
		q, ok := table[t]
		return q, ok
	})
}

// WithFactoryLogger sets the logger handed to every consumer
func WithFactoryLogger(logger *slog.Logger) FactoryOption {
	return func(f *ConsumerFactory) {
		f.logger = logger
	}
}

// NewConsumerFactory creates a factory resolving queues through contracts.QueueFor
func NewConsumerFactory(opener rabbitmq.ChannelOpener, options ...FactoryOption) *ConsumerFactory {
	f := &ConsumerFactory{
		opener:  opener,
		resolve: contracts.QueueFor,
		logger:  slog.Default(),
	}

	for _, opt := range options {
		opt(f)
	}

	return f
}

// QueueFor returns the queue the factory would consume for tag
func (f *ConsumerFactory) QueueFor(tag contracts.MessageType) (string, error) {
	queue, ok := f.resolve(tag)
	if !ok {
		return "", fmt.Errorf("%w: %s", contracts.ErrUnknownMessageType, tag)
	}
	return queue, nil
}

// CreateConsumer opens a new consumer for the queue mapped to tag, decoding deliveries as T.
// Consumers created for the same tag compete for deliveries.
func CreateConsumer[T any](ctx context.Context, f *ConsumerFactory, tag contracts.MessageType, options ...ConsumerOption) (*Consumer[T], error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	queue, err := f.QueueFor(tag)
	if err != nil {
		return nil, err
	}

	o := newConsumerOptions(append([]ConsumerOption{WithConsumerLogger(f.logger)}, options...))

	raw, err := rabbitmq.NewConsumer(f.opener, queue,
		rabbitmq.WithPrefetchCount(o.prefetch),
		rabbitmq.WithConsumerLogger(o.logger))
	if err != nil {
		return nil, err
	}

	return &Consumer[T]{src: raw, logger: o.logger}, nil
}

// ConsumerFor creates a consumer for the message type of T
func ConsumerFor[T contracts.Message](ctx context.Context, f *ConsumerFactory, options ...ConsumerOption) (*Consumer[T], error) {
	var zero T
	return CreateConsumer[T](ctx, f, zero.MessageType(), options...)
}
