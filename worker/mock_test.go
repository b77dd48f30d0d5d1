package worker

import (
	"context"
	"iter"
	"sync"
	"time"

	"github.com/glimte/paperless-go/contracts"
	"github.com/google/uuid"
	"github.com/stretchr/testify/mock"
)

// settlement records how a message was settled
type settlement struct {
	ack     bool
	requeue bool
}

// sliceSource yields a fixed list of messages
type sliceSource[T any] struct {
	items   []T
	err     error
	settled []settlement
}

func newSource[T any](items ...T) *sliceSource[T] {
	return &sliceSource[T]{items: items}
}

func (s *sliceSource[T]) Messages(ctx context.Context) iter.Seq[T] {
	return func(yield func(T) bool) {
		for _, item := range s.items {
			if ctx.Err() != nil || !yield(item) {
				return
			}
		}
	}
}

func (s *sliceSource[T]) Err() error { return s.err }

func (s *sliceSource[T]) Ack() error {
	s.settled = append(s.settled, settlement{ack: true})
	return nil
}

func (s *sliceSource[T]) Nack(requeue bool) error {
	s.settled = append(s.settled, settlement{requeue: requeue})
	return nil
}

var (
	acked     = settlement{ack: true}
	requeued  = settlement{requeue: true}
	discarded = settlement{}
)

type mockPublisher struct {
	mock.Mock
}

func (m *mockPublisher) Send(ctx context.Context, msg contracts.Message) error {
	return m.Called(msg).Error(0)
}

func (m *mockPublisher) sent() []contracts.Message {
	var out []contracts.Message
	for _, call := range m.Calls {
		if call.Method == "Send" {
			out = append(out, call.Arguments.Get(0).(contracts.Message))
		}
	}
	return out
}

type mockStore struct {
	mock.Mock
}

func (m *mockStore) ApplyOcrResult(ctx context.Context, jobID uuid.UUID, status contracts.OcrStatus, text string, processedAt time.Time) (bool, error) {
	args := m.Called(jobID, status, text)
	return args.Bool(0), args.Error(1)
}

func (m *mockStore) UpdateSummary(ctx context.Context, documentID uuid.UUID, summary string, generatedAt time.Time) (bool, error) {
	args := m.Called(documentID, summary)
	return args.Bool(0), args.Error(1)
}

type ocrProcessorFunc func(ctx context.Context, cmd contracts.OcrCommand) (contracts.OcrEvent, error)

func (f ocrProcessorFunc) Process(ctx context.Context, cmd contracts.OcrCommand) (contracts.OcrEvent, error) {
	return f(ctx, cmd)
}

type summarizerFunc func(ctx context.Context, text string) (string, error)

func (f summarizerFunc) Summarize(ctx context.Context, text string) (string, error) {
	return f(ctx, text)
}

// recordingNotifier collects published events
type recordingNotifier[T any] struct {
	mu    sync.Mutex
	items []T
}

func (n *recordingNotifier[T]) Publish(item T) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.items = append(n.items, item)
}
