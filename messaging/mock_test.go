package messaging

import (
	"context"
	"sync"

	"github.com/glimte/paperless-go/internal/rabbitmq"
	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/stretchr/testify/mock"
)

type mockRawPublisher struct {
	mock.Mock
}

func (m *mockRawPublisher) Publish(ctx context.Context, exchange, routingKey string, msg amqp.Publishing) error {
	args := m.Called(ctx, exchange, routingKey, msg)
	return args.Error(0)
}

// fakeSource replays queued deliveries and records settlement
type fakeSource struct {
	mu         sync.Mutex
	deliveries chan rabbitmq.Delivery
	acked      []uint64
	nacked     []nackCall
	closed     bool
	nextTag    uint64
	done       chan struct{}
}

type nackCall struct {
	tag     uint64
	requeue bool
}

func newFakeSource(bodies ...string) *fakeSource {
	s := &fakeSource{
		deliveries: make(chan rabbitmq.Delivery, len(bodies)+8),
		done:       make(chan struct{}),
	}
	for _, b := range bodies {
		s.push(b)
	}
	return s
}

func (s *fakeSource) push(body string) {
	s.mu.Lock()
	s.nextTag++
	tag := s.nextTag
	s.mu.Unlock()
	s.deliveries <- rabbitmq.Delivery{Tag: tag, Body: []byte(body)}
}

func (s *fakeSource) Next(ctx context.Context) (rabbitmq.Delivery, error) {
	select {
	case <-s.done:
		return rabbitmq.Delivery{}, rabbitmq.ErrConsumerClosed
	default:
	}
	select {
	case <-s.done:
		return rabbitmq.Delivery{}, rabbitmq.ErrConsumerClosed
	case <-ctx.Done():
		return rabbitmq.Delivery{}, ctx.Err()
	case d := <-s.deliveries:
		return d, nil
	}
}

func (s *fakeSource) Ack(tag uint64) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.acked = append(s.acked, tag)
	return nil
}

func (s *fakeSource) Nack(tag uint64, requeue bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.nacked = append(s.nacked, nackCall{tag: tag, requeue: requeue})
	return nil
}

func (s *fakeSource) Close() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.done)
	}
	return nil
}

func (s *fakeSource) Queue() string { return "OcrCommandQueue" }

func (s *fakeSource) ackedTags() []uint64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]uint64(nil), s.acked...)
}

func (s *fakeSource) nackCalls() []nackCall {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]nackCall(nil), s.nacked...)
}

// mockChannel implements rabbitmq.Channel for factory tests
type mockChannel struct {
	mock.Mock
	deliveries chan amqp.Delivery
}

func (m *mockChannel) Qos(prefetchCount, prefetchSize int, global bool) error {
	return m.Called(prefetchCount, prefetchSize, global).Error(0)
}

func (m *mockChannel) Consume(queue, consumer string, autoAck, exclusive, noLocal, noWait bool, args amqp.Table) (<-chan amqp.Delivery, error) {
	mockArgs := m.Called(queue, autoAck)
	return m.deliveries, mockArgs.Error(0)
}

func (m *mockChannel) Ack(tag uint64, multiple bool) error {
	return m.Called(tag, multiple).Error(0)
}

func (m *mockChannel) Nack(tag uint64, multiple, requeue bool) error {
	return m.Called(tag, multiple, requeue).Error(0)
}

func (m *mockChannel) PublishWithContext(ctx context.Context, exchange, key string, mandatory, immediate bool, msg amqp.Publishing) error {
	return m.Called(exchange, key, msg).Error(0)
}

func (m *mockChannel) ExchangeDeclare(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable).Error(0)
}

func (m *mockChannel) ExchangeDeclarePassive(name, kind string, durable, autoDelete, internal, noWait bool, args amqp.Table) error {
	return m.Called(name, kind, durable).Error(0)
}

func (m *mockChannel) QueueDeclare(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	mockArgs := m.Called(name, durable)
	return amqp.Queue{Name: name}, mockArgs.Error(0)
}

func (m *mockChannel) QueueDeclarePassive(name string, durable, autoDelete, exclusive, noWait bool, args amqp.Table) (amqp.Queue, error) {
	mockArgs := m.Called(name)
	return mockArgs.Get(0).(amqp.Queue), mockArgs.Error(1)
}

func (m *mockChannel) QueueBind(name, key, exchange string, noWait bool, args amqp.Table) error {
	return m.Called(name, key, exchange).Error(0)
}

func (m *mockChannel) IsClosed() bool {
	return m.Called().Bool(0)
}

func (m *mockChannel) Close() error {
	return m.Called().Error(0)
}

type channelOpenerFunc func() (rabbitmq.Channel, error)

func (f channelOpenerFunc) OpenChannel() (rabbitmq.Channel, error) { return f() }
