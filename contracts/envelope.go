package contracts

import (
	"encoding/json"
	"fmt"
)

// ContentTypeJSON is set on every published message.
const ContentTypeJSON = "application/json"

// Envelope is a message as it travels on the wire: a routing key plus the
// JSON encoding of the message body.
type Envelope struct {
	RoutingKey string
	Body       json.RawMessage
}

// NewEnvelope encodes msg and resolves its routing key from the routing table.
func NewEnvelope(msg Message) (Envelope, error) {
	key, ok := RoutingKeyFor(msg.MessageType())
	if !ok {
		return Envelope{}, fmt.Errorf("%w: %s", ErrUnknownMessageType, msg.MessageType())
	}
	body, err := json.Marshal(msg)
	if err != nil {
		return Envelope{}, fmt.Errorf("encode %s: %w", msg.MessageType(), err)
	}
	return Envelope{RoutingKey: key, Body: body}, nil
}
