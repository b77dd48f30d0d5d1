// Package rabbitmq is the AMQP 0-9-1 layer underneath the paperless messaging API.
//
// This package includes:
//   - ConnectionManager: owns the single broker connection and hands out channels
//   - Publisher: publishes on a short-lived channel per call
//   - Consumer: pulls deliveries from a dedicated channel with manual acknowledgment
//   - TopologyManager: declares exchanges, queues and bindings
//
// Channels are never shared: every publish and every consumer gets its own.
// Only channel creation is invoked concurrently on the connection.
package rabbitmq
