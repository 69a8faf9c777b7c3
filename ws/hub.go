// Package ws fans call-event notifications out to connected WebSocket
// observers on a single topic.
package ws

import (
	"context"
	"sync"
	"time"

	"binacloud/monitor/config"
	"binacloud/monitor/domain"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
)

var _ domain.Broadcaster = (*Hub)(nil)

// Hub owns the live subscriber registry. Sessions are added on connect and
// removed on disconnect or on the first failed send; no session ever holds
// the registry lock across a network write.
type Hub struct {
	mu       sync.RWMutex
	sessions map[*Session]struct{}

	devices     domain.DeviceDirectory
	sendBuffer  int
	sendTimeout time.Duration
	log         zerolog.Logger
}

// NewHub creates a hub. devices may be nil; then no connect-time snapshot
// is pushed.
func NewHub(devices domain.DeviceDirectory, cfg config.NotifierConfig, log zerolog.Logger) *Hub {
	sendBuffer := cfg.SendBuffer
	if sendBuffer <= 0 {
		sendBuffer = 32
	}

	sendTimeout := time.Duration(cfg.SendTimeoutSeconds) * time.Second
	if sendTimeout <= 0 {
		sendTimeout = 5 * time.Second
	}

	return &Hub{
		sessions:    make(map[*Session]struct{}),
		devices:     devices,
		sendBuffer:  sendBuffer,
		sendTimeout: sendTimeout,
		log:         log,
	}
}

// Broadcast delivers the message to every live session. Failed or
// saturated sessions are dropped; delivery to the rest proceeds and the
// caller never blocks or sees an error.
func (h *Hub) Broadcast(message domain.WebSocketMessage) {
	h.mu.RLock()
	sessions := make([]*Session, 0, len(h.sessions))
	for s := range h.sessions {
		sessions = append(sessions, s)
	}
	h.mu.RUnlock()

	for _, s := range sessions {
		if !s.enqueue(message) {
			h.log.Warn().Msg("dropping slow websocket subscriber")
			h.drop(s)
		}
	}
}

// SubscriberCount reports the current registry size.
func (h *Hub) SubscriberCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.sessions)
}

// UpgradeMiddleware gates the websocket route on a proper upgrade request.
func UpgradeMiddleware() fiber.Handler {
	return func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	}
}

// Handler returns the fiber handler serving subscriber connections.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(h.serve)
}

// serve runs for the lifetime of one subscriber connection.
func (h *Hub) serve(conn *websocket.Conn) {
	session := newSession(conn, h.sendBuffer)

	h.register(session)
	defer h.drop(session)

	h.log.Info().
		Str("remote_addr", conn.RemoteAddr().String()).
		Int("subscribers", h.SubscriberCount()).
		Msg("websocket subscriber connected")

	h.pushSnapshot(session)

	go session.writePump(h.sendTimeout, h.log)
	session.readLoop()

	h.log.Info().
		Str("remote_addr", conn.RemoteAddr().String()).
		Msg("websocket subscriber disconnected")
}

// pushSnapshot queues the current device list so the new subscriber has a
// consistent view before the next incremental event arrives.
func (h *Hub) pushSnapshot(session *Session) {
	if h.devices == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.Background(), 3*time.Second)
	defer cancel()

	devices, err := h.devices.FindAll(ctx)
	if err != nil {
		h.log.Warn().Err(err).Msg("failed to load device snapshot for new subscriber")
		return
	}

	session.enqueue(domain.WebSocketMessage{Devices: devices})
}

func (h *Hub) register(session *Session) {
	h.mu.Lock()
	h.sessions[session] = struct{}{}
	h.mu.Unlock()
}

func (h *Hub) drop(session *Session) {
	h.mu.Lock()
	delete(h.sessions, session)
	h.mu.Unlock()
	session.close()
}
