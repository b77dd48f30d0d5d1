package contracts

// Exchange is the single topic exchange every paperless message is published to.
const (
	Exchange     = "paperless.exchange"
	ExchangeKind = "topic"
)

// Queue names. The convention is "<MessageType>Queue".
const (
	OcrCommandQueue   = "OcrCommandQueue"
	OcrEventQueue     = "OcrEventQueue"
	GenAICommandQueue = "GenAICommandQueue"
	GenAIEventQueue   = "GenAIEventQueue"
)

// Routing keys, one per queue binding.
const (
	OcrCommandRouting   = "ocr.command"
	OcrEventRouting     = "ocr.event"
	GenAICommandRouting = "genai.command"
	GenAIEventRouting   = "genai.event"
)

// MessageType tags a message shape. It is the key of the routing table.
type MessageType string

const (
	OcrCommandType   MessageType = "OcrCommand"
	OcrEventType     MessageType = "OcrEvent"
	GenAICommandType MessageType = "GenAICommand"
	GenAIEventType   MessageType = "GenAIEvent"
)

func (t MessageType) String() string {
	return string(t)
}

// Route binds a message type to its queue and routing key.
type Route struct {
	Type       MessageType
	Queue      string
	RoutingKey string
}

var routes = []Route{
	{Type: OcrCommandType, Queue: OcrCommandQueue, RoutingKey: OcrCommandRouting},
	{Type: OcrEventType, Queue: OcrEventQueue, RoutingKey: OcrEventRouting},
	{Type: GenAICommandType, Queue: GenAICommandQueue, RoutingKey: GenAICommandRouting},
	{Type: GenAIEventType, Queue: GenAIEventQueue, RoutingKey: GenAIEventRouting},
}

// Routes returns a copy of the routing table in declaration order.
func Routes() []Route {
	out := make([]Route, len(routes))
	copy(out, routes)
	return out
}

// Lookup returns the route registered for t.
func Lookup(t MessageType) (Route, bool) {
	for _, r := range routes {
		if r.Type == t {
			return r, true
		}
	}
	return Route{}, false
}

// QueueFor returns the queue bound for t.
func QueueFor(t MessageType) (string, bool) {
	r, ok := Lookup(t)
	return r.Queue, ok
}

// RoutingKeyFor returns the routing key used to publish messages of type t.
func RoutingKeyFor(t MessageType) (string, bool) {
	r, ok := Lookup(t)
	return r.RoutingKey, ok
}
