// Package messaging provides typed publishing and consumption on top of the
// raw AMQP layer.
//
//   - Publisher: serializes a message to JSON and publishes it to the paperless
//     exchange under a routing key, one transient channel per call
//   - Consumer[T]: a pull-based, manually acknowledged consumer that decodes
//     each delivery into T
//   - ConsumerFactory: maps a message type tag to its queue and opens a new
//     Consumer with its own channel and a prefetch of one
//   - SetupTopology: idempotently declares the exchange, queues and bindings
//
// Example usage:
//
//	factory := messaging.NewConsumerFactory(conn)
//	consumer, err := messaging.ConsumerFor[contracts.OcrCommand](ctx, factory)
//	if err != nil {
//		return err
//	}
//	defer consumer.Close()
//
//	for cmd := range consumer.Messages(ctx) {
//		if err := process(cmd); err != nil {
//			consumer.Nack(true)
//			continue
//		}
//		consumer.Ack()
//	}
package messaging
