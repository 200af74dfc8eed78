package realtime

import (
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arbordesk/notify/pkg/logger"
	"github.com/arbordesk/notify/pkg/metrics"
)

// DefaultQueueSize bounds each connection's outbound event queue.
const DefaultQueueSize = 64

// RoomKey returns the room name shared by all of a user's connections.
func RoomKey(userID string) string {
	return "user:" + userID
}

// ConnectionInfo is a diagnostic snapshot of a live connection.
type ConnectionInfo struct {
	ID       string    `json:"id"`
	UserID   string    `json:"user_id"`
	JoinedAt time.Time `json:"joined_at"`
}

// Conn is one live subscriber. It is transport-agnostic: the gateway drains
// Events into a WebSocket, tests drain it directly.
type Conn struct {
	id       string
	userID   string
	joinedAt time.Time
	send     chan Event
}

// NewConn builds a connection for the given identity. The connection carries
// no room membership until it is passed to Hub.Join.
func NewConn(id, userID string, queueSize int) *Conn {
	if queueSize <= 0 {
		queueSize = DefaultQueueSize
	}
	return &Conn{
		id:       id,
		userID:   userID,
		joinedAt: time.Now(),
		send:     make(chan Event, queueSize),
	}
}

// ID returns the connection identifier.
func (c *Conn) ID() string { return c.id }

// UserID returns the identity the connection was joined under.
func (c *Conn) UserID() string { return c.userID }

// Events exposes the outbound queue. The channel is closed when the
// connection leaves the hub.
func (c *Conn) Events() <-chan Event { return c.send }

// Hub tracks the live mapping from user identity to open connections and
// provides emit primitives. Membership changes and emits are serialised
// through one RWMutex; store I/O never runs while it is held.
type Hub struct {
	mu    sync.RWMutex
	rooms map[string]map[*Conn]struct{}
	conns map[string]*Conn

	queueSize int
	log       *zap.Logger
}

// HubOption customises the hub.
type HubOption func(*Hub)

// WithQueueSize overrides the per-connection outbound queue bound.
func WithQueueSize(size int) HubOption {
	return func(h *Hub) {
		if size > 0 {
			h.queueSize = size
		}
	}
}

// NewHub constructs an empty connection registry.
func NewHub(opts ...HubOption) *Hub {
	h := &Hub{
		rooms:     make(map[string]map[*Conn]struct{}),
		conns:     make(map[string]*Conn),
		queueSize: DefaultQueueSize,
		log:       logger.WithModule("realtime"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// QueueSize returns the configured per-connection queue bound.
func (h *Hub) QueueSize() int { return h.queueSize }

// Join adds the connection to its user's room. Multiple connections for the
// same user share one room.
func (h *Hub) Join(c *Conn) {
	if c == nil || c.userID == "" {
		return
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	if _, exists := h.conns[c.id]; exists {
		return
	}

	room := RoomKey(c.userID)
	if h.rooms[room] == nil {
		h.rooms[room] = make(map[*Conn]struct{})
	}
	h.rooms[room][c] = struct{}{}
	h.conns[c.id] = c

	metrics.ActiveConnections.Inc()
	h.log.Debug("connection joined",
		zap.String("connection_id", c.id),
		zap.String("user_id", c.userID),
	)
}

// Leave removes the connection from its room and closes its queue. Calling it
// for an unknown or already-removed connection is a no-op, which makes it safe
// against double-close races.
func (h *Hub) Leave(connectionID string) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.removeLocked(connectionID)
}

func (h *Hub) removeLocked(connectionID string) {
	c, ok := h.conns[connectionID]
	if !ok {
		return
	}
	delete(h.conns, connectionID)

	room := RoomKey(c.userID)
	if members := h.rooms[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(h.rooms, room)
		}
	}

	close(c.send)
	metrics.ActiveConnections.Dec()
	h.log.Debug("connection left",
		zap.String("connection_id", connectionID),
		zap.String("user_id", c.userID),
	)
}

// EmitToUser pushes an event to every open connection in the user's room and
// returns how many connections were reached. Zero is a normal outcome: the
// durable record remains the source of truth for offline users.
func (h *Hub) EmitToUser(userID string, event Event) int {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[RoomKey(userID)]
	reached := 0
	for c := range members {
		if h.enqueue(c, event) {
			reached++
		}
	}

	result := "delivered"
	if reached == 0 {
		result = "missed"
	}
	metrics.EventsEmitted.WithLabelValues(string(event.Event), result).Inc()

	return reached
}

// EmitToConn pushes an event to a single connection, used for handshake
// acknowledgements that must not be broadcast.
func (h *Hub) EmitToConn(connectionID string, event Event) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()

	c, ok := h.conns[connectionID]
	if !ok {
		return false
	}
	return h.enqueue(c, event)
}

// enqueue delivers without ever blocking the publisher. When the queue is
// full the oldest event is evicted, unless it is a state-changing event and
// the incoming one is not, in which case the incoming event is the one
// sacrificed.
func (h *Hub) enqueue(c *Conn, event Event) bool {
	select {
	case c.send <- event:
		return true
	default:
	}

	select {
	case old := <-c.send:
		metrics.EventsDropped.Inc()
		h.log.Warn("outbound queue overflow",
			zap.String("connection_id", c.id),
			zap.String("user_id", c.userID),
		)
		if old.StateChanging() && !event.StateChanging() {
			event = old
		}
	default:
	}

	select {
	case c.send <- event:
		return true
	default:
		return false
	}
}

// IsUserConnected reports whether the user has at least one live connection.
func (h *Hub) IsUserConnected(userID string) bool {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[RoomKey(userID)]) > 0
}

// ConnectedUserCount returns the number of distinct users with live connections.
func (h *Hub) ConnectedUserCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms)
}

// ConnectionCount returns the total number of live connections.
func (h *Hub) ConnectionCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.conns)
}

// ConnectionsForUser returns diagnostic snapshots of the user's connections.
func (h *Hub) ConnectionsForUser(userID string) []ConnectionInfo {
	h.mu.RLock()
	defer h.mu.RUnlock()

	members := h.rooms[RoomKey(userID)]
	infos := make([]ConnectionInfo, 0, len(members))
	for c := range members {
		infos = append(infos, ConnectionInfo{
			ID:       c.id,
			UserID:   c.userID,
			JoinedAt: c.joinedAt,
		})
	}
	return infos
}

// Disconnect forcibly closes every connection for a user, e.g. on account
// deactivation. Returns how many connections were closed.
func (h *Hub) Disconnect(userID string) int {
	h.mu.Lock()
	defer h.mu.Unlock()

	members := h.rooms[RoomKey(userID)]
	closed := 0
	for c := range members {
		h.removeLocked(c.id)
		closed++
	}
	return closed
}
