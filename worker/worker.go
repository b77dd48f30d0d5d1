package worker

import (
	"context"
	"errors"
	"iter"
	"log/slog"
	"time"

	"github.com/glimte/paperless-go/contracts"
	"github.com/glimte/paperless-go/reliability"
	"github.com/google/uuid"
)

// ErrTransient marks a collaborator failure worth retrying. Commands failing
// with it are requeued instead of being turned into failure events.
var ErrTransient = errors.New("worker: transient failure")

// Source is a pull-based consumer. *messaging.Consumer implements it.
type Source[T any] interface {
	Messages(ctx context.Context) iter.Seq[T]
	Err() error
	Ack() error
	Nack(requeue bool) error
}

// Publisher sends outcome messages. *messaging.Publisher implements it.
type Publisher interface {
	Send(ctx context.Context, msg contracts.Message) error
}

// Notifier receives settled events for live subscribers. *broadcast.Broadcaster implements it.
type Notifier[T any] interface {
	Publish(item T)
}

// OcrProcessor extracts text from the document named by a command
type OcrProcessor interface {
	Process(ctx context.Context, cmd contracts.OcrCommand) (contracts.OcrEvent, error)
}

// Summarizer produces a summary of document text
type Summarizer interface {
	Summarize(ctx context.Context, text string) (string, error)
}

// DocumentStore records outcomes against stored documents. Both methods
// report false when the document does not exist.
type DocumentStore interface {
	ApplyOcrResult(ctx context.Context, jobID uuid.UUID, status contracts.OcrStatus, text string, processedAt time.Time) (bool, error)
	UpdateSummary(ctx context.Context, documentID uuid.UUID, summary string, generatedAt time.Time) (bool, error)
}

// Option configures a worker or listener
type Option func(*options)

type options struct {
	logger       *slog.Logger
	retry        reliability.RetryPolicy
	breaker      *reliability.CircuitBreaker
	requeueDelay time.Duration
	now          func() time.Time
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// WithRetryPolicy sets the policy used when publishing outcome messages
func WithRetryPolicy(policy reliability.RetryPolicy) Option {
	return func(o *options) {
		o.retry = policy
	}
}

// WithCircuitBreaker guards summarizer calls
func WithCircuitBreaker(cb *reliability.CircuitBreaker) Option {
	return func(o *options) {
		o.breaker = cb
	}
}

// WithRequeueDelay sets the pause before a transiently failed command is requeued
func WithRequeueDelay(d time.Duration) Option {
	return func(o *options) {
		o.requeueDelay = d
	}
}

func newOptions(opts []Option) options {
	o := options{
		logger:       slog.Default(),
		retry:        reliability.NewExponentialBackoff(200*time.Millisecond, 5*time.Second, 2.0, 3),
		requeueDelay: time.Second,
		now:          func() time.Time { return time.Now().UTC() },
	}
	for _, opt := range opts {
		opt(&o)
	}
	return o
}

// publish sends msg, retrying per the configured policy
func (o *options) publish(ctx context.Context, p Publisher, msg contracts.Message) error {
	return reliability.Retry(ctx, o.retry, func() error {
		return p.Send(ctx, msg)
	})
}

// pause waits d or until ctx is done
func pause(ctx context.Context, d time.Duration) {
	if d <= 0 {
		return
	}
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-t.C:
	case <-ctx.Done():
	}
}

func settle(logger *slog.Logger, op string, err error) {
	if err != nil {
		logger.Error("failed to settle delivery", "op", op, "error", err)
	}
}
