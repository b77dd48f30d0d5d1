package messaging

import (
	"context"
	"log/slog"

	"github.com/glimte/paperless-go/contracts"
	"github.com/glimte/paperless-go/internal/rabbitmq"
)

// TopologyDeclarer declares a topology. *rabbitmq.TopologyManager implements it.
type TopologyDeclarer interface {
	DeclareTopology(ctx context.Context, topology rabbitmq.Topology) error
}

// PaperlessTopology describes the durable topic exchange, one durable queue
// per message type and the binding of each queue to its routing key.
func PaperlessTopology() rabbitmq.Topology {
	routes := contracts.Routes()

	topology := rabbitmq.Topology{
		Exchanges: []rabbitmq.ExchangeDeclaration{{
			Name:    contracts.Exchange,
			Type:    contracts.ExchangeKind,
			Durable: true,
		}},
		Queues:   make([]rabbitmq.QueueDeclaration, 0, len(routes)),
		Bindings: make([]rabbitmq.Binding, 0, len(routes)),
	}

	for _, r := range routes {
		topology.Queues = append(topology.Queues, rabbitmq.QueueDeclaration{
			Name:    r.Queue,
			Durable: true,
		})
		topology.Bindings = append(topology.Bindings, rabbitmq.Binding{
			Queue:      r.Queue,
			Exchange:   contracts.Exchange,
			RoutingKey: r.RoutingKey,
		})
	}

	return topology
}

// SetupTopology declares the paperless topology. It is safe to run on every
// start and from several processes at once.
func SetupTopology(ctx context.Context, declarer TopologyDeclarer, logger *slog.Logger) error {
	if logger == nil {
		logger = slog.Default()
	}

	if err := declarer.DeclareTopology(ctx, PaperlessTopology()); err != nil {
		logger.Error("failed to set up topology", "exchange", contracts.Exchange, "error", err)
		return err
	}

	logger.Info("topology ready", "exchange", contracts.Exchange, "queues", len(contracts.Routes()))
	return nil
}

// QueueInspector reports the state of one queue. *rabbitmq.TopologyManager implements it.
type QueueInspector interface {
	InspectQueue(ctx context.Context, name string) (rabbitmq.QueueInfo, error)
}

// InspectQueues reports every paperless queue in route order. It stops at the
// first queue the broker cannot describe.
func InspectQueues(ctx context.Context, inspector QueueInspector) ([]rabbitmq.QueueInfo, error) {
	routes := contracts.Routes()
	infos := make([]rabbitmq.QueueInfo, 0, len(routes))
	for _, r := range routes {
		info, err := inspector.InspectQueue(ctx, r.Queue)
		if err != nil {
			return infos, err
		}
		infos = append(infos, info)
	}
	return infos, nil
}
