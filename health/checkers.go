package health

import (
	"context"
	"fmt"
	"runtime"
	"time"

	"github.com/glimte/paperless-go/internal/rabbitmq"
	"github.com/glimte/paperless-go/reliability"
)

// ConnectionProbe is the part of the connection manager the RabbitMQ check needs
type ConnectionProbe interface {
	IsConnected() bool
	OpenChannel() (rabbitmq.Channel, error)
}

// RabbitMQChecker checks that a channel can be opened and the broker answers
type RabbitMQChecker struct {
	conn     ConnectionProbe
	exchange string
	kind     string
}

// NewRabbitMQChecker probes exchange with a passive declare. kind must match
// the exchange type or the broker closes the probe channel.
func NewRabbitMQChecker(conn ConnectionProbe, exchange, kind string) *RabbitMQChecker {
	return &RabbitMQChecker{conn: conn, exchange: exchange, kind: kind}
}

// Name implements Checker
func (c *RabbitMQChecker) Name() string {
	return "rabbitmq"
}

// Check reports unhealthy when the connection or a probe channel is
// unavailable, and degraded when the exchange cannot be declared passively.
func (c *RabbitMQChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Timestamp: start,
		Details:   map[string]any{"exchange": c.exchange},
	}

	if !c.conn.IsConnected() {
		result.Status = StatusUnhealthy
		result.Message = "Not connected"
		result.Duration = time.Since(start)
		return result
	}

	ch, err := c.conn.OpenChannel()
	if err != nil {
		result.Status = StatusUnhealthy
		result.Message = "Failed to open channel"
		result.Error = err.Error()
		result.Duration = time.Since(start)
		return result
	}
	defer ch.Close()

	if err := ch.ExchangeDeclarePassive(c.exchange, c.kind, true, false, false, false, nil); err != nil {
		result.Status = StatusDegraded
		result.Message = "Exchange check failed"
		result.Error = err.Error()
	} else {
		result.Status = StatusHealthy
		result.Message = "Connection is healthy"
	}

	result.Duration = time.Since(start)
	result.Details["response_time_ms"] = result.Duration.Milliseconds()
	return result
}

// StreamStats is what a broadcaster exposes for health reporting
type StreamStats interface {
	Name() string
	SubscriberCount() int
	Published() int64
	Dropped() int64
}

// BroadcasterChecker reports subscriber and drop counts of a live stream.
// Drops degrade the check; they never make it unhealthy.
type BroadcasterChecker struct {
	stream StreamStats
}

// NewBroadcasterChecker creates a checker for one broadcaster
func NewBroadcasterChecker(stream StreamStats) *BroadcasterChecker {
	return &BroadcasterChecker{stream: stream}
}

func (c *BroadcasterChecker) Name() string {
	return "stream_" + c.stream.Name()
}

func (c *BroadcasterChecker) Check(ctx context.Context) CheckResult {
	dropped := c.stream.Dropped()
	result := CheckResult{
		Name:      c.Name(),
		Status:    StatusHealthy,
		Message:   "Stream is healthy",
		Timestamp: time.Now(),
		Details: map[string]any{
			"subscribers": c.stream.SubscriberCount(),
			"published":   c.stream.Published(),
			"dropped":     dropped,
		},
	}
	if dropped > 0 {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("%d deliveries dropped for slow subscribers", dropped)
	}
	return result
}

// CircuitBreakerChecker reports an open breaker as degraded
type CircuitBreakerChecker struct {
	breaker *reliability.CircuitBreaker
}

// NewCircuitBreakerChecker creates a checker for cb
func NewCircuitBreakerChecker(cb *reliability.CircuitBreaker) *CircuitBreakerChecker {
	return &CircuitBreakerChecker{breaker: cb}
}

func (c *CircuitBreakerChecker) Name() string {
	return "breaker_" + c.breaker.Metrics().Name
}

func (c *CircuitBreakerChecker) Check(ctx context.Context) CheckResult {
	m := c.breaker.Metrics()
	result := CheckResult{
		Name:      c.Name(),
		Status:    StatusHealthy,
		Message:   "Circuit is " + m.State.String(),
		Timestamp: time.Now(),
		Details: map[string]any{
			"state":    m.State.String(),
			"failures": m.CurrentFailures,
			"rejected": m.TotalRejected,
		},
	}
	if m.State != reliability.StateClosed {
		result.Status = StatusDegraded
	}
	return result
}

// GoroutineChecker flags runaway goroutine counts, e.g. leaked stream handlers
type GoroutineChecker struct {
	warning  int
	critical int
}

// NewGoroutineChecker creates a checker with the given thresholds
func NewGoroutineChecker(warning, critical int) *GoroutineChecker {
	return &GoroutineChecker{warning: warning, critical: critical}
}

func (c *GoroutineChecker) Name() string {
	return "runtime"
}

func (c *GoroutineChecker) Check(ctx context.Context) CheckResult {
	var m runtime.MemStats
	runtime.ReadMemStats(&m)
	goroutines := runtime.NumGoroutine()

	result := CheckResult{
		Name:      c.Name(),
		Status:    StatusHealthy,
		Message:   "Runtime is normal",
		Timestamp: time.Now(),
		Details: map[string]any{
			"goroutines":     goroutines,
			"memory_used_mb": float64(m.Sys) / 1024 / 1024,
			"gc_runs":        m.NumGC,
		},
	}

	switch {
	case goroutines > c.critical:
		result.Status = StatusUnhealthy
		result.Message = fmt.Sprintf("Too many goroutines: %d", goroutines)
	case goroutines > c.warning:
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("High goroutine count: %d", goroutines)
	}
	return result
}

// QueueInspector reports the broker's view of a queue
type QueueInspector interface {
	InspectQueue(ctx context.Context, name string) (rabbitmq.QueueInfo, error)
}

// QueueDepthChecker flags backlogged queues and queues nobody consumes
type QueueDepthChecker struct {
	inspector QueueInspector
	queues    []string
	maxDepth  int
}

// NewQueueDepthChecker degrades when any queue holds more than maxDepth messages
func NewQueueDepthChecker(inspector QueueInspector, maxDepth int, queues ...string) *QueueDepthChecker {
	return &QueueDepthChecker{inspector: inspector, queues: queues, maxDepth: maxDepth}
}

func (c *QueueDepthChecker) Name() string {
	return "queues"
}

func (c *QueueDepthChecker) Check(ctx context.Context) CheckResult {
	start := time.Now()
	result := CheckResult{
		Name:      c.Name(),
		Status:    StatusHealthy,
		Message:   "Queues are draining",
		Timestamp: start,
		Details:   make(map[string]any, len(c.queues)),
	}

	var backlogged []string
	for _, q := range c.queues {
		info, err := c.inspector.InspectQueue(ctx, q)
		if err != nil {
			result.Status = StatusUnhealthy
			result.Message = "Queue " + q + " is not available"
			result.Error = err.Error()
			result.Duration = time.Since(start)
			return result
		}
		result.Details[q] = map[string]int{"messages": info.Messages, "consumers": info.Consumers}
		if info.Messages > c.maxDepth {
			backlogged = append(backlogged, q)
		}
	}

	if len(backlogged) > 0 {
		result.Status = StatusDegraded
		result.Message = fmt.Sprintf("Backlog above %d messages: %v", c.maxDepth, backlogged)
	}
	result.Duration = time.Since(start)
	return result
}
