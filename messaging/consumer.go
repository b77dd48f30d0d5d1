package messaging

import (
	"context"
	"encoding/json"
	"errors"
	"iter"
	"log/slog"
	"sync"
	"sync/atomic"

	"github.com/glimte/paperless-go/internal/rabbitmq"
)

// DeliverySource is the raw side of a consumer. *rabbitmq.Consumer implements it.
type DeliverySource interface {
	Next(ctx context.Context) (rabbitmq.Delivery, error)
	Ack(tag uint64) error
	Nack(tag uint64, requeue bool) error
	Close() error
	Queue() string
}

// Consumer yields messages of type T from one queue, one at a time.
//
// Each yielded message must be settled with exactly one Ack or Nack before
// the next one is requested. Deliveries that do not decode as T are nacked
// with requeue and never reach the caller. A delivery whose body is JSON null
// is acked and skipped. It is deliberately not left unsettled: with a
// prefetch of one an unsettled delivery stalls the queue for this consumer.
//
// A Consumer is meant to be driven by a single goroutine; Close may be called
// from any goroutine to end the pull sequence.
type Consumer[T any] struct {
	src    DeliverySource
	logger *slog.Logger

	mu         sync.Mutex
	pendingTag uint64
	hasPending bool
	err        error

	started atomic.Bool
	poison  atomic.Int64
}

// ConsumerOption configures a typed consumer
type ConsumerOption func(*consumerOptions)

type consumerOptions struct {
	logger   *slog.Logger
	prefetch int
}

// WithConsumerLogger sets the logger
func WithConsumerLogger(logger *slog.Logger) ConsumerOption {
	return func(o *consumerOptions) {
		o.logger = logger
	}
}

// WithPrefetch overrides the prefetch count of one. Only the factory honours it.
func WithPrefetch(count int) ConsumerOption {
	return func(o *consumerOptions) {
		o.prefetch = count
	}
}

func newConsumerOptions(options []ConsumerOption) consumerOptions {
	o := consumerOptions{logger: slog.Default(), prefetch: 1}
	for _, opt := range options {
		opt(&o)
	}
	return o
}

// NewConsumer wraps an already consuming source
func NewConsumer[T any](src DeliverySource, options ...ConsumerOption) *Consumer[T] {
	o := newConsumerOptions(options)
	return &Consumer[T]{
		src:    src,
		logger: o.logger,
	}
}

// Next blocks until a message decodes as T, ctx is done or the consumer is closed.
func (c *Consumer[T]) Next(ctx context.Context) (T, error) {
	var zero T
	if err := ctx.Err(); err != nil {
		return zero, err
	}

	c.mu.Lock()
	pending := c.hasPending
	c.mu.Unlock()
	if pending {
		return zero, ErrAckPending
	}

	for {
		d, err := c.src.Next(ctx)
		if err != nil {
			return zero, err
		}

		var msg *T
		if err := json.Unmarshal(d.Body, &msg); err != nil {
			c.poison.Add(1)
			c.logger.Warn("requeueing undecodable message",
				"queue", c.src.Queue(),
				"deliveryTag", d.Tag,
				"redelivered", d.Redelivered,
				"error", err)
			if nerr := c.src.Nack(d.Tag, true); nerr != nil {
				return zero, nerr
			}
			continue
		}

		if msg == nil {
			c.logger.Warn("discarding null message", "queue", c.src.Queue(), "deliveryTag", d.Tag)
			if aerr := c.src.Ack(d.Tag); aerr != nil {
				return zero, aerr
			}
			continue
		}

		c.mu.Lock()
		c.pendingTag = d.Tag
		c.hasPending = true
		c.mu.Unlock()

		return *msg, nil
	}
}

// Messages returns the pull sequence. It can be ranged over once; the loop
// ends when ctx is done, the consumer is closed or the channel fails, in which
// case Err reports why.
func (c *Consumer[T]) Messages(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		if !c.started.CompareAndSwap(false, true) {
			c.setErr(ErrAlreadyConsuming)
			return
		}

		for {
			msg, err := c.Next(ctx)
			if err != nil {
				if !isTermination(err) {
					c.setErr(err)
				}
				return
			}
			if !yield(msg) {
				return
			}
		}
	}
}

// Err returns the error that ended the pull sequence, or nil if it ended by
// cancellation or Close.
func (c *Consumer[T]) Err() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.err
}

// Ack acknowledges the outstanding message. Without one it does nothing.
func (c *Consumer[T]) Ack() error {
	tag, ok := c.takePending()
	if !ok {
		return nil
	}
	return c.src.Ack(tag)
}

// Nack rejects the outstanding message, returning it to the queue when
// requeue is set. Without an outstanding message it does nothing.
func (c *Consumer[T]) Nack(requeue bool) error {
	tag, ok := c.takePending()
	if !ok {
		return nil
	}
	return c.src.Nack(tag, requeue)
}

// PoisonCount returns how many deliveries failed to decode
func (c *Consumer[T]) PoisonCount() int64 {
	return c.poison.Load()
}

// Queue returns the consumed queue
func (c *Consumer[T]) Queue() string {
	return c.src.Queue()
}

// Close releases the channel. Unsettled deliveries return to the queue.
func (c *Consumer[T]) Close() error {
	return c.src.Close()
}

func (c *Consumer[T]) takePending() (uint64, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.hasPending {
		return 0, false
	}
	c.hasPending = false
	return c.pendingTag, true
}

func (c *Consumer[T]) setErr(err error) {
	c.mu.Lock()
	c.err = err
	c.mu.Unlock()
}

func isTermination(err error) bool {
	return errors.Is(err, context.Canceled) ||
		errors.Is(err, context.DeadlineExceeded) ||
		errors.Is(err, ErrConsumerClosed)
}
