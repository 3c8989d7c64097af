package broker

// Event names pushed over a channel.
const (
	EventPing      = "ping"
	EventSubmitted = "submitted"
	EventTimeout   = "timeout"
)

// EventSink is the transport end of a channel: the SSE response writer or a
// WebSocket connection. Send pushes one named event, Close tears the
// transport down. Implementations do not need to be safe for concurrent use;
// the broker serializes all calls.
type EventSink interface {
	Send(event string, data string) error
	Close() error
}

// channel is the live push connection of a session. done is closed exactly
// once, when the channel is deregistered, and stops the watch goroutine so
// no heartbeat or timeout timer outlives the channel.
type channel struct {
	id   string
	sink EventSink
	done chan struct{}
}
