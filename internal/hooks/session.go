package hooks

import (
	"errors"
	"net"
	"sync"
	"time"

	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"evalgo.org/fireedge/internal/logging"
	"evalgo.org/fireedge/internal/metrics"
)

const (
	// Time allowed to write a message to the peer
	writeWait = 10 * time.Second

	// Time allowed to read the next pong message from the peer
	pongWait = 60 * time.Second

	// Send pings to peer with this period (must be less than pongWait)
	pingPeriod = (pongWait * 9) / 10
)

// Session is one WebSocket client bound to one subscriber.
type Session struct {
	info     SessionInfo
	conn     *websocket.Conn
	sub      Subscriber
	send     chan []byte
	done     chan struct{}
	once     sync.Once
	registry *Registry
	logger   *zap.Logger
}

// Info describes the session.
func (s *Session) Info() SessionInfo {
	return s.info
}

// Done is closed when the session ends.
func (s *Session) Done() <-chan struct{} {
	return s.done
}

// Close ends the session: the subscriber and the connection are closed and
// the session leaves the registry. It is safe to call more than once.
func (s *Session) Close() {
	s.once.Do(func() {
		close(s.done)
		_ = s.sub.Close()
		if s.conn != nil {
			_ = s.conn.WriteControl(websocket.CloseMessage,
				websocket.FormatCloseMessage(websocket.CloseNormalClosure, ""),
				time.Now().Add(writeWait))
			_ = s.conn.Close()
		}
		if s.registry != nil {
			s.registry.remove(s)
		}
		s.logger.Info("hook session closed")
	})
}

// enqueue queues a frame for the writer. When the queue is full the new
// frame is dropped so that events already queued keep their order.
func (s *Session) enqueue(frame []byte) bool {
	select {
	case <-s.done:
		return false
	default:
	}

	select {
	case s.send <- frame:
		metrics.HookMessagesTotal.WithLabelValues("relayed").Inc()
		return true
	default:
		metrics.HookMessagesTotal.WithLabelValues("dropped").Inc()
		s.logger.Warn("send queue full, dropping event")
		return false
	}
}

// subscribePump pumps messages from the subscriber to the send queue
func (s *Session) subscribePump() {
	defer s.Close()

	for {
		msg, err := s.sub.Recv()
		if err != nil {
			select {
			case <-s.done:
			default:
				s.logger.Warn("hook subscriber failed", zap.Error(err))
			}
			return
		}

		event, err := Decode(msg)
		if err != nil {
			metrics.HookMessagesTotal.WithLabelValues("invalid").Inc()
			s.logger.Warn("skipping undecodable hook message", zap.String(logging.FieldTopic, msg.Topic), zap.Error(err))
			continue
		}

		frame, err := event.Encode()
		if err != nil {
			metrics.HookMessagesTotal.WithLabelValues("invalid").Inc()
			s.logger.Warn("skipping unencodable hook message", zap.String(logging.FieldTopic, msg.Topic), zap.Error(err))
			continue
		}

		s.enqueue(frame)
	}
}

// readPump detects closure of the websocket connection
func (s *Session) readPump() {
	defer s.Close()

	_ = s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck // Deadline errors are handled by ReadMessage
	s.conn.SetPongHandler(func(string) error {
		_ = s.conn.SetReadDeadline(time.Now().Add(pongWait)) //nolint:errcheck // Deadline errors are handled by ReadMessage
		return nil
	})

	for {
		if _, _, err := s.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure, websocket.CloseAbnormalClosure) &&
				!errors.Is(err, net.ErrClosed) {
				s.logger.Debug("websocket read failed", zap.Error(err))
			}
			return
		}
		// Clients only listen; anything they send is ignored.
	}
}

// writePump pumps queued events to the websocket connection
func (s *Session) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		s.Close()
	}()

	for {
		select {
		case <-s.done:
			return

		case frame := <-s.send:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // Deadline errors are handled by WriteMessage
			if err := s.conn.WriteMessage(websocket.TextMessage, frame); err != nil {
				return
			}

		case <-ticker.C:
			_ = s.conn.SetWriteDeadline(time.Now().Add(writeWait)) //nolint:errcheck // Deadline errors are handled by WriteMessage
			if err := s.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
