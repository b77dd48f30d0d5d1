// Package broadcast fans items out to many live subscribers.
//
// A Broadcaster is best-effort: Publish never blocks and never fails. A
// subscriber whose buffer is full misses the item, and the miss is counted.
// It carries no durability guarantee; the queue the item came from is the
// source of truth.
package broadcast

import (
	"log/slog"
	"sync"
	"sync/atomic"
)

// DefaultBufferSize is the per-subscriber buffer used when none is configured.
const DefaultBufferSize = 64

type subscriber[T any] struct {
	clientID string
	mu       sync.Mutex
	ch       chan T
	closed   bool
}

// send delivers item without blocking. It reports false if the item was dropped.
func (s *subscriber[T]) send(item T) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.closed {
		return true
	}
	select {
	case s.ch <- item:
		return true
	default:
		return false
	}
}

func (s *subscriber[T]) close() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.closed {
		s.closed = true
		close(s.ch)
	}
}

// Broadcaster keeps one buffered channel per client id and copies every
// published item into each of them.
type Broadcaster[T any] struct {
	name       string
	bufferSize int
	logger     *slog.Logger

	mu     sync.RWMutex
	subs   map[string]*subscriber[T]
	closed bool

	published atomic.Int64
	dropped   atomic.Int64
}

// Option configures a Broadcaster
type Option func(*options)

type options struct {
	bufferSize int
	logger     *slog.Logger
}

// WithBufferSize sets how many items a slow subscriber may lag behind
func WithBufferSize(size int) Option {
	return func(o *options) {
		o.bufferSize = size
	}
}

// WithLogger sets the logger
func WithLogger(logger *slog.Logger) Option {
	return func(o *options) {
		o.logger = logger
	}
}

// New creates a broadcaster. name identifies it in logs and health output.
func New[T any](name string, opts ...Option) *Broadcaster[T] {
	o := options{bufferSize: DefaultBufferSize, logger: slog.Default()}
	for _, opt := range opts {
		opt(&o)
	}
	if o.bufferSize <= 0 {
		o.bufferSize = DefaultBufferSize
	}

	return &Broadcaster[T]{
		name:       name,
		bufferSize: o.bufferSize,
		logger:     o.logger.With("broadcaster", name),
		subs:       make(map[string]*subscriber[T]),
	}
}

// Subscribe registers clientID and returns its receive endpoint. Every item
// published after Subscribe returns and before Unsubscribe is offered to it.
// Subscribing an id that is already registered closes the old endpoint; its
// holder should then leave through Release so it cannot drop the replacement.
// On a closed broadcaster the returned channel is already closed.
func (b *Broadcaster[T]) Subscribe(clientID string) <-chan T {
	sub := &subscriber[T]{clientID: clientID, ch: make(chan T, b.bufferSize)}

	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		sub.close()
		return sub.ch
	}
	old := b.subs[clientID]
	b.subs[clientID] = sub
	count := len(b.subs)
	b.mu.Unlock()

	if old != nil {
		old.close()
		b.logger.Debug("replaced subscription", "clientId", clientID)
	}
	b.logger.Debug("client subscribed", "clientId", clientID, "subscribers", count)
	return sub.ch
}

// Unsubscribe removes clientID and closes its endpoint. Unknown ids are ignored.
func (b *Broadcaster[T]) Unsubscribe(clientID string) {
	b.remove(clientID, nil)
}

// Release is Unsubscribe for the holder of endpoint: it does nothing when
// clientID has since been subscribed again under a new endpoint.
func (b *Broadcaster[T]) Release(clientID string, endpoint <-chan T) {
	b.remove(clientID, endpoint)
}

func (b *Broadcaster[T]) remove(clientID string, endpoint <-chan T) {
	b.mu.Lock()
	sub, ok := b.subs[clientID]
	if ok && endpoint != nil && (<-chan T)(sub.ch) != endpoint {
		ok = false
	}
	if ok {
		delete(b.subs, clientID)
	}
	count := len(b.subs)
	b.mu.Unlock()

	if ok {
		sub.close()
		b.logger.Debug("client unsubscribed", "clientId", clientID, "subscribers", count)
	}
}

// Publish offers item to every current subscriber without blocking.
func (b *Broadcaster[T]) Publish(item T) {
	b.mu.RLock()
	snapshot := make([]*subscriber[T], 0, len(b.subs))
	for _, sub := range b.subs {
		snapshot = append(snapshot, sub)
	}
	b.mu.RUnlock()

	b.published.Add(1)
	for _, sub := range snapshot {
		if !sub.send(item) {
			b.dropped.Add(1)
			b.logger.Warn("subscriber buffer full, dropping item", "clientId", sub.clientID)
		}
	}
}

// Close unregisters and closes every subscriber. Later Subscribe calls get a
// closed channel and Publish becomes a no-op.
func (b *Broadcaster[T]) Close() {
	b.mu.Lock()
	if b.closed {
		b.mu.Unlock()
		return
	}
	b.closed = true
	subs := b.subs
	b.subs = make(map[string]*subscriber[T])
	b.mu.Unlock()

	for _, sub := range subs {
		sub.close()
	}
	b.logger.Info("broadcaster closed", "subscribers", len(subs))
}

// Name returns the broadcaster name
func (b *Broadcaster[T]) Name() string {
	return b.name
}

// SubscriberCount returns the number of registered subscribers
func (b *Broadcaster[T]) SubscriberCount() int {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return len(b.subs)
}

// Published returns how many items have been published
func (b *Broadcaster[T]) Published() int64 {
	return b.published.Load()
}

// Dropped returns how many per-subscriber deliveries were skipped because a buffer was full
func (b *Broadcaster[T]) Dropped() int64 {
	return b.dropped.Load()
}
