// Package contracts defines the messages exchanged by the paperless services and the
// fixed broker namespace they travel through.
//
// This package contains:
//   - Commands: OcrCommand and GenAICommand request work from a worker
//   - Events: OcrEvent and GenAIEvent report the outcome of that work
//   - Schema: the exchange, queue and routing-key constants plus the
//     message-type to queue table used by consumers
//
// Messages are plain value records encoded as UTF-8 JSON. Field names match the
// .NET services that share the same queues, so both sides can read each other's output.
package contracts
