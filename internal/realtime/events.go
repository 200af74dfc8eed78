package realtime

// EventName identifies a wire event. Hub, service and gateway all share these
// constants; event routing never relies on ad hoc string literals.
type EventName string

// Events emitted to clients.
const (
	EventNew         EventName = "notification:new"
	EventUpdate      EventName = "notification:update"
	EventDelete      EventName = "notification:delete"
	EventMarkAllRead EventName = "notification:markAllRead"
	EventClearAll    EventName = "notification:clearAll"

	// EventConnected acknowledges a completed handshake to the originating
	// connection only.
	EventConnected EventName = "notification:connected"
)

// Events accepted from clients.
const (
	InboundMarkRead    EventName = "notification:markRead"
	InboundMarkAllRead EventName = "notification:markAllRead"
	InboundDelete      EventName = "notification:delete"
)

// Event is a payload delivered to realtime subscribers. Payloads are
// idempotent snapshots, so out-of-order delivery cannot corrupt client state.
type Event struct {
	Event EventName `json:"event"`
	Data  any       `json:"data,omitempty"`
}

// StateChanging reports whether the event collapses older per-record updates,
// making it the one to keep when a slow connection's queue overflows.
func (e Event) StateChanging() bool {
	switch e.Event {
	case EventMarkAllRead, EventClearAll:
		return true
	}
	return false
}
