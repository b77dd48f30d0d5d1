package rabbitmq

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"
	amqp "github.com/rabbitmq/amqp091-go"
)

// Delivery is a message received from a queue, detached from the amqp types
type Delivery struct {
	Tag         uint64
	Body        []byte
	RoutingKey  string
	ContentType string
	Redelivered bool
}

// Consumer pulls deliveries from a single queue on a dedicated channel.
//
// Auto-ack is off: every delivery returned by Next stays unacknowledged until
// Ack or Nack is called with its tag. With the default prefetch of one the
// broker will not push another message until that happens.
type Consumer struct {
	queue         string
	consumerTag   string
	prefetchCount int
	logger        *slog.Logger

	ch         Channel
	deliveries <-chan amqp.Delivery
	done       chan struct{}
	closeOnce  sync.Once
}

// ConsumerOption configures the consumer
type ConsumerOption func(*Consumer)

// WithPrefetchCount sets the prefetch count
func WithPrefetchCount(count int) ConsumerOption {
	return func(c *Consumer) {
		c.prefetchCount = count
	}
}

// WithConsumerTag sets the consumer tag
func WithConsumerTag(tag string) ConsumerOption {
	return func(c *Consumer) {
		c.consumerTag = tag
	}
}

// WithConsumerLogger sets the consumer logger
func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(c *Consumer) {
		c.logger = logger
	}
}

// NewConsumer opens a channel, applies QoS and starts consuming queue.
// The returned Consumer owns the channel until Close.
func NewConsumer(opener ChannelOpener, queue string, options ...ConsumerOption) (*Consumer, error) {
	c := &Consumer{
		queue:         queue,
		prefetchCount: 1,
		logger:        slog.Default(),
		done:          make(chan struct{}),
	}

	for _, opt := range options {
		opt(c)
	}

	if c.consumerTag == "" {
		c.consumerTag = "paperless-" + uuid.NewString()
	}

	ch, err := opener.OpenChannel()
	if err != nil {
		return nil, err
	}

	if err := ch.Qos(c.prefetchCount, 0, false); err != nil {
		ch.Close()
		return nil, c.wrap("qos", err)
	}

	deliveries, err := ch.Consume(
		queue,
		c.consumerTag,
		false, // autoAck
		false, // exclusive
		false, // noLocal
		false, // noWait
		nil,
	)
	if err != nil {
		ch.Close()
		return nil, c.wrap("consume", err)
	}

	c.ch = ch
	c.deliveries = deliveries
	c.logger.Info("started consumer", "queue", queue, "consumerTag", c.consumerTag, "prefetch", c.prefetchCount)

	return c, nil
}

// Next blocks until a delivery arrives, ctx is cancelled or the consumer is closed.
// A consumer that has been closed always reports ErrConsumerClosed, even if
// deliveries are still buffered.
func (c *Consumer) Next(ctx context.Context) (Delivery, error) {
	select {
	case <-c.done:
		return Delivery{}, ErrConsumerClosed
	default:
	}

	select {
	case <-c.done:
		return Delivery{}, ErrConsumerClosed
	case <-ctx.Done():
		return Delivery{}, ctx.Err()
	case d, ok := <-c.deliveries:
		if !ok {
			select {
			case <-c.done:
				return Delivery{}, ErrConsumerClosed
			default:
			}
			return Delivery{}, c.wrap("receive", ErrChannelClosed)
		}
		return Delivery{
			Tag:         d.DeliveryTag,
			Body:        d.Body,
			RoutingKey:  d.RoutingKey,
			ContentType: d.ContentType,
			Redelivered: d.Redelivered,
		}, nil
	}
}

// Ack acknowledges a single delivery
func (c *Consumer) Ack(tag uint64) error {
	if err := c.ch.Ack(tag, false); err != nil {
		return c.wrap("ack", err)
	}
	return nil
}

// Nack negatively acknowledges a single delivery, optionally requeueing it
func (c *Consumer) Nack(tag uint64, requeue bool) error {
	if err := c.ch.Nack(tag, false, requeue); err != nil {
		return c.wrap("nack", err)
	}
	return nil
}

// Queue returns the name of the consumed queue
func (c *Consumer) Queue() string {
	return c.queue
}

// Tag returns the consumer tag
func (c *Consumer) Tag() string {
	return c.consumerTag
}

// Close stops consumption and closes the channel. Unacknowledged deliveries
// are returned to the queue by the broker. Close is idempotent.
func (c *Consumer) Close() error {
	var err error
	c.closeOnce.Do(func() {
		close(c.done)
		if c.ch.IsClosed() {
			return
		}
		if cerr := c.ch.Close(); cerr != nil {
			err = c.wrap("close", cerr)
		}
		c.logger.Info("stopped consumer", "queue", c.queue, "consumerTag", c.consumerTag)
	})
	return err
}

func (c *Consumer) wrap(op string, err error) error {
	return &ConsumerError{
		Queue:       c.queue,
		ConsumerTag: c.consumerTag,
		Op:          op,
		Err:         err,
		Timestamp:   time.Now(),
	}
}
