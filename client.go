// Copyright 2024 Mmate Contributors
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

// Package paperless wires the document pipeline messaging together: one
// broker connection, the paperless topology, a publisher, typed consumers
// and the optional live event streams.
package paperless

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/glimte/paperless-go/broadcast"
	"github.com/glimte/paperless-go/contracts"
	"github.com/glimte/paperless-go/health"
	"github.com/glimte/paperless-go/internal/rabbitmq"
	"github.com/glimte/paperless-go/reliability"
	"github.com/glimte/paperless-go/messaging"
	"github.com/glimte/paperless-go/worker"
)

// Client provides the main entry point for paperless-go
type Client struct {
	conn        *rabbitmq.ConnectionManager
	publisher   *messaging.Publisher
	consumers   *messaging.ConsumerFactory
	topology    *rabbitmq.TopologyManager
	ocrEvents   *broadcast.Broadcaster[contracts.OcrEvent]
	genaiEvents *broadcast.Broadcaster[contracts.GenAIEvent]
	restart     reliability.RetryPolicy
	summarizer  *reliability.CircuitBreaker
	maxBacklog  int
	logger      *slog.Logger
}

// NewClient connects to the broker at uri and declares the paperless
// topology. A connection failure is returned, never retried here.
func NewClient(ctx context.Context, uri string, options ...ClientOption) (*Client, error) {
	cfg := &clientConfig{
		logger:         slog.Default(),
		connectionName: "paperless-go",
		setupTopology:  true,
		bufferSize:     broadcast.DefaultBufferSize,
	}

	for _, opt := range options {
		opt(cfg)
	}

	connOpts := []rabbitmq.ConnectionOption{
		rabbitmq.WithLogger(cfg.logger),
		rabbitmq.WithConnectionName(cfg.connectionName),
	}
	if cfg.connectTimeout > 0 {
		connOpts = append(connOpts, rabbitmq.WithConnectTimeout(cfg.connectTimeout))
	}
	if cfg.reconnectDelay > 0 {
		connOpts = append(connOpts, rabbitmq.WithReconnectDelay(cfg.reconnectDelay))
	}

	conn := rabbitmq.NewConnectionManager(uri, connOpts...)
	if err := conn.Connect(ctx); err != nil {
		return nil, fmt.Errorf("failed to connect: %w", err)
	}

	c := &Client{
		conn: conn,
		publisher: messaging.NewPublisher(
			rabbitmq.NewPublisher(conn, rabbitmq.WithPublisherLogger(cfg.logger)),
			messaging.WithPublisherLogger(cfg.logger),
		),
		consumers:  messaging.NewConsumerFactory(conn, messaging.WithFactoryLogger(cfg.logger)),
		topology:   rabbitmq.NewTopologyManager(conn, cfg.logger),
		restart:    cfg.restart,
		summarizer: cfg.summarizerBreaker,
		maxBacklog: cfg.maxBacklog,
		logger:     cfg.logger,
	}

	if c.summarizer == nil {
		c.summarizer = reliability.NewCircuitBreaker(
			reliability.WithName("summarizer"),
			reliability.WithBreakerLogger(cfg.logger))
	}

	if cfg.setupTopology {
		if err := messaging.SetupTopology(ctx, c.topology, cfg.logger); err != nil {
			_ = conn.Close()
			return nil, fmt.Errorf("failed to set up topology: %w", err)
		}
	}

	if cfg.ocrStream {
		c.ocrEvents = broadcast.New[contracts.OcrEvent]("ocr",
			broadcast.WithBufferSize(cfg.bufferSize),
			broadcast.WithLogger(cfg.logger))
	}
	if cfg.genaiStream {
		c.genaiEvents = broadcast.New[contracts.GenAIEvent]("genai",
			broadcast.WithBufferSize(cfg.bufferSize),
			broadcast.WithLogger(cfg.logger))
	}

	return c, nil
}

// Publisher returns the message publisher
func (c *Client) Publisher() *messaging.Publisher {
	return c.publisher
}

// Consumers returns the factory for typed queue consumers
func (c *Client) Consumers() *messaging.ConsumerFactory {
	return c.consumers
}

// Topology returns the topology manager
func (c *Client) Topology() *rabbitmq.TopologyManager {
	return c.topology
}

// Connection returns the underlying connection manager
func (c *Client) Connection() *rabbitmq.ConnectionManager {
	return c.conn
}

// OcrEvents returns the OCR result stream, or nil when it is disabled
func (c *Client) OcrEvents() *broadcast.Broadcaster[contracts.OcrEvent] {
	return c.ocrEvents
}

// GenAIEvents returns the summary result stream, or nil when it is disabled
func (c *Client) GenAIEvents() *broadcast.Broadcaster[contracts.GenAIEvent] {
	return c.genaiEvents
}

// SummarizerBreaker returns the circuit breaker guarding the summarizer of
// RunGenAIWorker
func (c *Client) SummarizerBreaker() *reliability.CircuitBreaker {
	return c.summarizer
}

// RegisterHealthChecks adds the broker probe, the summarizer breaker, one
// check per enabled stream and, when a backlog limit is set, the queue depth
// check.
func (c *Client) RegisterHealthChecks(registry *health.Registry) {
	registry.Register(health.NewRabbitMQChecker(c.conn, contracts.Exchange, contracts.ExchangeKind))
	registry.Register(health.NewCircuitBreakerChecker(c.summarizer))
	if c.maxBacklog > 0 {
		queues := make([]string, 0, len(contracts.Routes()))
		for _, r := range contracts.Routes() {
			queues = append(queues, r.Queue)
		}
		registry.Register(health.NewQueueDepthChecker(c.topology, c.maxBacklog, queues...))
	}
	if c.ocrEvents != nil {
		registry.Register(health.NewBroadcasterChecker(c.ocrEvents))
	}
	if c.genaiEvents != nil {
		registry.Register(health.NewBroadcasterChecker(c.genaiEvents))
	}
}

// ListenOcrResults applies OCR events to store and forwards them to the OCR
// stream. The consumer is recreated whenever its channel dies. It blocks
// until ctx is done.
func (c *Client) ListenOcrResults(ctx context.Context, store worker.DocumentStore, opts ...worker.Option) error {
	var notifier worker.Notifier[contracts.OcrEvent]
	if c.ocrEvents != nil {
		notifier = c.ocrEvents
	}
	listener := worker.NewOcrResultListener(store, notifier, c.workerOptions(opts)...)

	return worker.Supervise(ctx, "ocr-results", func(ctx context.Context) error {
		consumer, err := messaging.ConsumerFor[contracts.OcrEvent](ctx, c.consumers, messaging.WithConsumerLogger(c.logger))
		if err != nil {
			return err
		}
		defer consumer.Close()
		return listener.Run(ctx, consumer)
	}, c.restart, c.logger)
}

// ListenGenAIResults applies summary events to store and forwards them to the
// GenAI stream. It blocks until ctx is done.
func (c *Client) ListenGenAIResults(ctx context.Context, store worker.DocumentStore, opts ...worker.Option) error {
	var notifier worker.Notifier[contracts.GenAIEvent]
	if c.genaiEvents != nil {
		notifier = c.genaiEvents
	}
	listener := worker.NewGenAIResultListener(store, notifier, c.workerOptions(opts)...)

	return worker.Supervise(ctx, "genai-results", func(ctx context.Context) error {
		consumer, err := messaging.ConsumerFor[contracts.GenAIEvent](ctx, c.consumers, messaging.WithConsumerLogger(c.logger))
		if err != nil {
			return err
		}
		defer consumer.Close()
		return listener.Run(ctx, consumer)
	}, c.restart, c.logger)
}

// RunOcrWorker serves OCR commands with processor until ctx is done
func (c *Client) RunOcrWorker(ctx context.Context, processor worker.OcrProcessor, opts ...worker.Option) error {
	w := worker.NewOcrWorker(processor, c.publisher, c.workerOptions(opts)...)

	return worker.Supervise(ctx, "ocr-worker", func(ctx context.Context) error {
		consumer, err := messaging.ConsumerFor[contracts.OcrCommand](ctx, c.consumers, messaging.WithConsumerLogger(c.logger))
		if err != nil {
			return err
		}
		defer consumer.Close()
		return w.Run(ctx, consumer)
	}, c.restart, c.logger)
}

// RunGenAIWorker serves summarization commands with summarizer until ctx is
// done. Calls go through SummarizerBreaker unless opts install another one.
func (c *Client) RunGenAIWorker(ctx context.Context, summarizer worker.Summarizer, opts ...worker.Option) error {
	w := worker.NewGenAIWorker(summarizer, c.publisher, c.genaiWorkerOptions(opts)...)

	return worker.Supervise(ctx, "genai-worker", func(ctx context.Context) error {
		consumer, err := messaging.ConsumerFor[contracts.GenAICommand](ctx, c.consumers, messaging.WithConsumerLogger(c.logger))
		if err != nil {
			return err
		}
		defer consumer.Close()
		return w.Run(ctx, consumer)
	}, c.restart, c.logger)
}

func (c *Client) workerOptions(opts []worker.Option) []worker.Option {
	return append([]worker.Option{worker.WithLogger(c.logger)}, opts...)
}

func (c *Client) genaiWorkerOptions(opts []worker.Option) []worker.Option {
	return c.workerOptions(append([]worker.Option{worker.WithCircuitBreaker(c.summarizer)}, opts...))
}

// Close ends the event streams and closes the broker connection
func (c *Client) Close() error {
	if c.ocrEvents != nil {
		c.ocrEvents.Close()
	}
	if c.genaiEvents != nil {
		c.genaiEvents.Close()
	}
	if c.conn != nil {
		return c.conn.Close()
	}
	return nil
}

// clientConfig holds client configuration
type clientConfig struct {
	logger            *slog.Logger
	connectionName    string
	connectTimeout    time.Duration
	reconnectDelay    time.Duration
	setupTopology     bool
	ocrStream         bool
	genaiStream       bool
	bufferSize        int
	restart           reliability.RetryPolicy
	summarizerBreaker *reliability.CircuitBreaker
	maxBacklog        int
}

// ClientOption configures the client
type ClientOption func(*clientConfig)

// WithLogger sets the logger for all components
func WithLogger(logger *slog.Logger) ClientOption {
	return func(cfg *clientConfig) {
		cfg.logger = logger
	}
}

// WithConnectionName sets the name shown in the broker's connection list
func WithConnectionName(name string) ClientOption {
	return func(cfg *clientConfig) {
		cfg.connectionName = name
	}
}

// WithConnectTimeout bounds the initial dial
func WithConnectTimeout(timeout time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		cfg.connectTimeout = timeout
	}
}

// WithReconnectDelay sets the base delay between reconnect attempts
func WithReconnectDelay(delay time.Duration) ClientOption {
	return func(cfg *clientConfig) {
		cfg.reconnectDelay = delay
	}
}

// WithoutTopologySetup skips declaring the exchange and queues on connect
func WithoutTopologySetup() ClientOption {
	return func(cfg *clientConfig) {
		cfg.setupTopology = false
	}
}

// WithOcrEventStream enables the OCR result broadcaster
func WithOcrEventStream() ClientOption {
	return func(cfg *clientConfig) {
		cfg.ocrStream = true
	}
}

// WithGenAIEventStream enables the summary result broadcaster
func WithGenAIEventStream() ClientOption {
	return func(cfg *clientConfig) {
		cfg.genaiStream = true
	}
}

// WithBroadcastBufferSize sets the per-subscriber buffer of both streams
func WithBroadcastBufferSize(size int) ClientOption {
	return func(cfg *clientConfig) {
		cfg.bufferSize = size
	}
}

// WithRestartPolicy sets the backoff used to restart listeners and workers
func WithRestartPolicy(policy reliability.RetryPolicy) ClientOption {
	return func(cfg *clientConfig) {
		cfg.restart = policy
	}
}

// WithSummarizerBreaker replaces the default breaker around the summarizer
func WithSummarizerBreaker(cb *reliability.CircuitBreaker) ClientOption {
	return func(cfg *clientConfig) {
		cfg.summarizerBreaker = cb
	}
}

// WithBacklogLimit reports the queues as degraded above limit messages
func WithBacklogLimit(limit int) ClientOption {
	return func(cfg *clientConfig) {
		cfg.maxBacklog = limit
	}
}
