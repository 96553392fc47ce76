package hooks

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"go.uber.org/zap"

	"evalgo.org/fireedge/internal/config"
	"evalgo.org/fireedge/internal/logging"
)

// ErrRelayClosed is returned by Serve once Shutdown has been called.
var ErrRelayClosed = errors.New("hook relay is shut down")

// Target selects what a session relays.
type Target struct {
	User     string
	Zone     string
	Endpoint string
	Topic    string
}

// Relay upgrades HTTP requests to relay sessions.
type Relay struct {
	upgrader   websocket.Upgrader
	dial       Dialer
	sendBuffer int
	registry   *Registry
	logger     *zap.Logger

	mu     sync.Mutex
	closed bool
}

// NewRelay creates a relay. dial defaults to DialZMQ.
func NewRelay(cfg config.HooksConfig, dial Dialer, logger *zap.Logger) *Relay {
	if dial == nil {
		dial = DialZMQ
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	buffer := cfg.SendBuffer
	if buffer < 1 {
		buffer = 256
	}

	return &Relay{
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin:     originChecker(cfg.AllowedOrigins),
		},
		dial:       dial,
		sendBuffer: buffer,
		registry:   NewRegistry(),
		logger:     logger.With(zap.String(logging.FieldComponent, "hooks")),
	}
}

func originChecker(allowed []string) func(*http.Request) bool {
	if len(allowed) == 0 {
		return func(*http.Request) bool { return true }
	}
	set := make(map[string]struct{}, len(allowed))
	for _, o := range allowed {
		if o == "*" {
			return func(*http.Request) bool { return true }
		}
		set[o] = struct{}{}
	}
	return func(r *http.Request) bool {
		origin := r.Header.Get("Origin")
		if origin == "" {
			return true
		}
		_, ok := set[origin]
		return ok
	}
}

// Registry returns the registry of live sessions.
func (r *Relay) Registry() *Registry {
	return r.registry
}

// Serve subscribes to t and upgrades the request. Errors returned before the
// upgrade leave the response untouched so the caller can answer with a status.
func (r *Relay) Serve(w http.ResponseWriter, req *http.Request, t Target) error {
	if r.isClosed() {
		return ErrRelayClosed
	}

	ctx, cancel := context.WithCancel(context.Background())

	sub, err := r.dial(ctx, t.Endpoint)
	if err != nil {
		cancel()
		return err
	}
	if err := sub.Subscribe(t.Topic); err != nil {
		_ = sub.Close()
		cancel()
		return fmt.Errorf("failed to subscribe to %q: %w", t.Topic, err)
	}

	conn, err := r.upgrader.Upgrade(w, req, nil)
	if err != nil {
		_ = sub.Close()
		cancel()
		return &UpgradeError{Err: err}
	}

	info := SessionInfo{
		ID:      uuid.New().String(),
		User:    t.User,
		Zone:    t.Zone,
		Topic:   t.Topic,
		Started: time.Now(),
	}
	s := &Session{
		info:     info,
		conn:     conn,
		sub:      sub,
		send:     make(chan []byte, r.sendBuffer),
		done:     make(chan struct{}),
		registry: r.registry,
		logger: r.logger.With(
			zap.String(logging.FieldSession, info.ID),
			zap.String(logging.FieldUser, info.User),
			zap.String(logging.FieldZone, info.Zone),
			zap.String(logging.FieldTopic, info.Topic),
		),
	}
	// Registration and Shutdown are serialized so a handshake racing with
	// shutdown never leaves a session CloseAll did not see.
	r.mu.Lock()
	if r.closed {
		r.mu.Unlock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "server shutting down"),
			time.Now().Add(writeWait))
		_ = conn.Close()
		_ = sub.Close()
		cancel()
		return &UpgradeError{Err: ErrRelayClosed}
	}
	r.registry.add(s)
	r.mu.Unlock()

	go func() {
		<-s.done
		cancel()
	}()

	s.logger.Info("hook session opened", zap.String("endpoint", t.Endpoint))

	go s.writePump()
	go s.readPump()
	go s.subscribePump()

	return nil
}

// Shutdown closes every live session and rejects new ones.
func (r *Relay) Shutdown() {
	r.mu.Lock()
	r.closed = true
	r.mu.Unlock()

	r.registry.CloseAll()
}

func (r *Relay) isClosed() bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closed
}

// UpgradeError is returned when the WebSocket handshake failed. The upgrader
// has already answered the request.
type UpgradeError struct {
	Err error
}

func (e *UpgradeError) Error() string {
	return "websocket upgrade failed: " + e.Err.Error()
}

func (e *UpgradeError) Unwrap() error {
	return e.Err
}
