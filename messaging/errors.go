package messaging

import (
	"errors"

	"github.com/glimte/paperless-go/contracts"
	"github.com/glimte/paperless-go/internal/rabbitmq"
)

var (
	// ErrConsumerClosed is returned by Next once the consumer has been closed.
	ErrConsumerClosed = rabbitmq.ErrConsumerClosed

	// ErrUnknownMessageType is returned when a message type has no route.
	ErrUnknownMessageType = contracts.ErrUnknownMessageType

	// ErrAckPending is returned by Next when the previous message was neither acked nor nacked.
	ErrAckPending = errors.New("messaging: previous delivery not acknowledged")

	// ErrAlreadyConsuming is recorded when Messages is ranged over a second time.
	ErrAlreadyConsuming = errors.New("messaging: pull sequence already started")
)
