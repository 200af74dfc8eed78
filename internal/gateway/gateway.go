package gateway

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"github.com/arbordesk/notify/internal/auth"
	"github.com/arbordesk/notify/internal/realtime"
	"github.com/arbordesk/notify/internal/services"
	apperrors "github.com/arbordesk/notify/pkg/errors"
	"github.com/arbordesk/notify/pkg/logger"
	"github.com/arbordesk/notify/pkg/metrics"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 32 << 10 // 32 KiB; inbound frames are tiny control events

	// DefaultHandshakeTimeout bounds credential verification. A connection
	// that has not verified within this window is rejected.
	DefaultHandshakeTimeout = 10 * time.Second

	dispatchTimeout = 10 * time.Second
)

// inboundMessage is the shape of client-originated events.
type inboundMessage struct {
	Event realtime.EventName `json:"event"`
	Data  struct {
		ID string `json:"id"`
	} `json:"data"`
}

// Gateway terminates realtime connections: it verifies the presented
// credential, registers the connection with the hub under the resolved
// identity, and bridges inbound client events into the service. The scoping
// identity always comes from the verified credential, never from an event
// payload.
type Gateway struct {
	hub      *realtime.Hub
	service  *services.NotificationService
	verifier auth.CredentialVerifier

	upgrader         websocket.Upgrader
	handshakeTimeout time.Duration
	log              *zap.Logger
}

// Option customises the gateway.
type Option func(*Gateway)

// WithHandshakeTimeout overrides the credential verification deadline.
func WithHandshakeTimeout(d time.Duration) Option {
	return func(g *Gateway) {
		if d > 0 {
			g.handshakeTimeout = d
		}
	}
}

// WithCheckOrigin overrides the upgrader's origin policy.
func WithCheckOrigin(check func(r *http.Request) bool) Option {
	return func(g *Gateway) {
		if check != nil {
			g.upgrader.CheckOrigin = check
		}
	}
}

// New constructs a Gateway.
func New(hub *realtime.Hub, service *services.NotificationService, verifier auth.CredentialVerifier, opts ...Option) (*Gateway, error) {
	if hub == nil {
		return nil, errors.New("gateway: hub is required")
	}
	if service == nil {
		return nil, errors.New("gateway: service is required")
	}
	if verifier == nil {
		return nil, errors.New("gateway: credential verifier is required")
	}

	g := &Gateway{
		hub:      hub,
		service:  service,
		verifier: verifier,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  4096,
			WriteBufferSize: 4096,
		},
		handshakeTimeout: DefaultHandshakeTimeout,
		log:              logger.WithModule("gateway"),
	}
	for _, opt := range opts {
		opt(g)
	}
	return g, nil
}

// ServeHTTP runs the handshake: Pending(token) -> Verified(userID) -> Joined,
// or Rejected. A connection that fails verification is torn down with no room
// side effects.
func (g *Gateway) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := credentialFromRequest(r)
	if token == "" {
		metrics.HandshakeRejections.WithLabelValues("missing_credential").Inc()
		writeRejection(w, apperrors.ErrUnauthorized)
		return
	}

	ctx, cancel := context.WithTimeout(r.Context(), g.handshakeTimeout)
	defer cancel()

	identity, err := g.verifier.VerifyCredential(ctx, token)
	if err != nil {
		metrics.HandshakeRejections.WithLabelValues("invalid_credential").Inc()
		writeRejection(w, apperrors.ErrUnauthorized)
		return
	}

	if identity.Status != auth.StatusActive {
		metrics.HandshakeRejections.WithLabelValues("inactive_account").Inc()
		writeRejection(w, apperrors.ErrForbidden)
		return
	}

	socket, err := g.upgrader.Upgrade(w, r, nil)
	if err != nil {
		g.log.Warn("websocket upgrade failed", zap.Error(err))
		return
	}

	conn := realtime.NewConn(uuid.NewString(), identity.UserID, g.hub.QueueSize())
	g.hub.Join(conn)

	// Acknowledge to the originating connection only; never broadcast.
	g.hub.EmitToConn(conn.ID(), realtime.Event{
		Event: realtime.EventConnected,
		Data: map[string]string{
			"connection_id": conn.ID(),
			"user_id":       identity.UserID,
		},
	})

	go g.writePump(conn, socket)
	g.readPump(conn, socket)
}

// readPump consumes client events until the transport closes, then leaves the
// hub unconditionally. Leave is safe even when Join never completed.
func (g *Gateway) readPump(conn *realtime.Conn, socket *websocket.Conn) {
	defer func() {
		g.hub.Leave(conn.ID())
		_ = socket.Close()
	}()

	socket.SetReadLimit(maxMessageSize)
	_ = socket.SetReadDeadline(time.Now().Add(pongWait))
	socket.SetPongHandler(func(string) error {
		_ = socket.SetReadDeadline(time.Now().Add(pongWait))
		return nil
	})

	for {
		_, payload, err := socket.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) {
				g.log.Warn("unexpected close",
					zap.String("user_id", conn.UserID()),
					zap.Error(err),
				)
			}
			return
		}

		if len(payload) == 0 {
			continue
		}

		var msg inboundMessage
		if err := json.Unmarshal(payload, &msg); err != nil {
			g.log.Debug("invalid inbound payload",
				zap.String("user_id", conn.UserID()),
				zap.Error(err),
			)
			continue
		}

		g.dispatch(conn, msg)
	}
}

// dispatch maps an inbound event onto the service, scoped by the connection's
// own verified identity.
func (g *Gateway) dispatch(conn *realtime.Conn, msg inboundMessage) {
	ctx, cancel := context.WithTimeout(context.Background(), dispatchTimeout)
	defer cancel()

	userID := conn.UserID()

	var err error
	switch msg.Event {
	case realtime.InboundMarkRead:
		_, err = g.service.MarkRead(ctx, userID, msg.Data.ID)
	case realtime.InboundMarkAllRead:
		_, err = g.service.MarkAllRead(ctx, userID)
	case realtime.InboundDelete:
		err = g.service.Delete(ctx, userID, msg.Data.ID)
	default:
		g.log.Debug("unsupported inbound event",
			zap.String("event", string(msg.Event)),
			zap.String("user_id", userID),
		)
		return
	}

	if err != nil {
		g.log.Warn("inbound event failed",
			zap.String("event", string(msg.Event)),
			zap.String("user_id", userID),
			zap.Error(err),
		)
	}
}

func (g *Gateway) writePump(conn *realtime.Conn, socket *websocket.Conn) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = socket.Close()
	}()

	for {
		select {
		case event, ok := <-conn.Events():
			_ = socket.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = socket.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := socket.WriteJSON(event); err != nil {
				return
			}
		case <-ticker.C:
			_ = socket.SetWriteDeadline(time.Now().Add(writeWait))
			if err := socket.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

func credentialFromRequest(r *http.Request) string {
	if token := r.URL.Query().Get("token"); token != "" {
		return token
	}

	authz := r.Header.Get("Authorization")
	if len(authz) > 7 && authz[:7] == "Bearer " {
		return authz[7:]
	}
	return ""
}

func writeRejection(w http.ResponseWriter, appErr *apperrors.AppError) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(appErr.StatusCode)
	_ = json.NewEncoder(w).Encode(map[string]any{
		"success": false,
		"error": map[string]string{
			"code":    appErr.Code,
			"message": appErr.Message,
		},
	})
}
