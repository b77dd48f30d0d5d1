package contracts

import "errors"

// ErrUnknownMessageType is returned when a message type has no entry in the routing table.
var ErrUnknownMessageType = errors.New("contracts: unknown message type")
