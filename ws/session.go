package ws

import (
	"sync"
	"time"

	"binacloud/monitor/domain"

	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
)

// pingInterval keeps idle connections alive through proxies.
const pingInterval = 30 * time.Second

// Session is one connected observer. Outbound messages go through a
// buffered channel so a slow consumer never blocks the broadcaster; the
// write pump is the only goroutine touching the connection for writes.
type Session struct {
	conn *websocket.Conn
	send chan domain.WebSocketMessage
	done chan struct{}
	once sync.Once
}

func newSession(conn *websocket.Conn, buffer int) *Session {
	return &Session{
		conn: conn,
		send: make(chan domain.WebSocketMessage, buffer),
		done: make(chan struct{}),
	}
}

// enqueue offers a message without blocking. A full queue means the
// subscriber cannot keep up and reports failure so the hub drops it.
func (s *Session) enqueue(message domain.WebSocketMessage) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- message:
		return true
	default:
		return false
	}
}

// writePump serializes queued messages onto the connection with a bounded
// per-send deadline, interleaved with keepalive pings.
func (s *Session) writePump(sendTimeout time.Duration, log zerolog.Logger) {
	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()

	for {
		select {
		case <-s.done:
			return

		case message := <-s.send:
			if err := s.conn.SetWriteDeadline(time.Now().Add(sendTimeout)); err != nil {
				log.Warn().Err(err).Msg("failed to set write deadline")
			}
			if err := s.conn.WriteJSON(message); err != nil {
				log.Debug().Err(err).Msg("subscriber write failed")
				s.close()
				return
			}

		case <-ticker.C:
			deadline := time.Now().Add(sendTimeout)
			if err := s.conn.WriteControl(websocket.PingMessage, nil, deadline); err != nil {
				log.Debug().Err(err).Msg("subscriber ping failed")
				s.close()
				return
			}
		}
	}
}

// readLoop consumes client frames solely to detect disconnects.
func (s *Session) readLoop() {
	for {
		if err := s.conn.SetReadDeadline(time.Now().Add(2 * pingInterval)); err != nil {
			return
		}
		if _, _, err := s.conn.ReadMessage(); err != nil {
			return
		}
	}
}

func (s *Session) close() {
	s.once.Do(func() {
		close(s.done)
		if s.conn != nil {
			_ = s.conn.Close()
		}
	})
}
