package rabbitmq

import (
	"context"
	"log/slog"

	amqp "github.com/rabbitmq/amqp091-go"
)

// TopologyManager manages RabbitMQ topology (exchanges, queues, bindings)
type TopologyManager struct {
	opener ChannelOpener
	logger *slog.Logger
}

// ExchangeDeclaration defines an exchange to be declared
type ExchangeDeclaration struct {
	Name       string
	Type       string
	Durable    bool
	AutoDelete bool
	Arguments  amqp.Table
}

// QueueDeclaration defines a queue to be declared
type QueueDeclaration struct {
	Name       string
	Durable    bool
	AutoDelete bool
	Exclusive  bool
	Arguments  amqp.Table
}

// Binding defines a queue-to-exchange binding
type Binding struct {
	Queue      string
	Exchange   string
	RoutingKey string
	Arguments  amqp.Table
}

// Topology represents the complete messaging topology
type Topology struct {
	Exchanges []ExchangeDeclaration
	Queues    []QueueDeclaration
	Bindings  []Binding
}

// NewTopologyManager creates a new topology manager
func NewTopologyManager(opener ChannelOpener, logger *slog.Logger) *TopologyManager {
	if logger == nil {
		logger = slog.Default()
	}
	return &TopologyManager{
		opener: opener,
		logger: logger,
	}
}

// DeclareTopology declares exchanges, then queues, then bindings on one transient channel.
// Declarations are idempotent as long as the arguments match what the broker already has.
func (tm *TopologyManager) DeclareTopology(ctx context.Context, topology Topology) error {
	ch, err := tm.opener.OpenChannel()
	if err != nil {
		return err
	}
	defer ch.Close()

	for _, exchange := range topology.Exchanges {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := declareExchange(ch, exchange); err != nil {
			return &TopologyError{Component: "exchange", Name: exchange.Name, Err: err}
		}
		tm.logger.Debug("declared exchange", "exchange", exchange.Name, "type", exchange.Type)
	}

	for _, queue := range topology.Queues {
		if err := ctx.Err(); err != nil {
			return err
		}
		if _, err := declareQueue(ch, queue); err != nil {
			return &TopologyError{Component: "queue", Name: queue.Name, Err: err}
		}
		tm.logger.Debug("declared queue", "queue", queue.Name)
	}

	for _, binding := range topology.Bindings {
		if err := ctx.Err(); err != nil {
			return err
		}
		if err := bindQueue(ch, binding); err != nil {
			return &TopologyError{Component: "binding", Name: binding.Queue + "<-" + binding.RoutingKey, Err: err}
		}
		tm.logger.Debug("bound queue", "queue", binding.Queue, "exchange", binding.Exchange, "routingKey", binding.RoutingKey)
	}

	tm.logger.Info("topology declared",
		"exchanges", len(topology.Exchanges),
		"queues", len(topology.Queues),
		"bindings", len(topology.Bindings))
	return nil
}

// QueueInfo is the broker's view of one queue
type QueueInfo struct {
	Name      string
	Messages  int
	Consumers int
}

// InspectQueue reports depth and consumer count with a passive declare.
// A missing queue is an error; the broker also closes the channel used.
func (tm *TopologyManager) InspectQueue(ctx context.Context, name string) (QueueInfo, error) {
	if err := ctx.Err(); err != nil {
		return QueueInfo{}, err
	}

	ch, err := tm.opener.OpenChannel()
	if err != nil {
		return QueueInfo{}, err
	}
	defer ch.Close()

	q, err := ch.QueueDeclarePassive(name, false, false, false, false, nil)
	if err != nil {
		return QueueInfo{}, &TopologyError{Component: "queue", Name: name, Err: err}
	}
	return QueueInfo{Name: q.Name, Messages: q.Messages, Consumers: q.Consumers}, nil
}

func declareExchange(ch Channel, exchange ExchangeDeclaration) error {
	return ch.ExchangeDeclare(
		exchange.Name,
		exchange.Type,
		exchange.Durable,
		exchange.AutoDelete,
		false, // internal
		false, // no-wait
		exchange.Arguments,
	)
}

func declareQueue(ch Channel, queue QueueDeclaration) (amqp.Queue, error) {
	return ch.QueueDeclare(
		queue.Name,
		queue.Durable,
		queue.AutoDelete,
		queue.Exclusive,
		false, // no-wait
		queue.Arguments,
	)
}

func bindQueue(ch Channel, binding Binding) error {
	return ch.QueueBind(
		binding.Queue,
		binding.RoutingKey,
		binding.Exchange,
		false, // no-wait
		binding.Arguments,
	)
}
