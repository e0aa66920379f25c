// Package ws upgrades authenticated HTTP requests to WebSocket
// connections and streams bus events to them. Connections are read-only
// for clients; all mutations go through the HTTP API.
package ws

import (
	"context"
	"net/http"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tantalumq/taco/internal/bus"
)

// TokenValidator resolves a bearer token to a user id, renewing the
// session as a side effect.
type TokenValidator interface {
	ValidateAndRenew(ctx context.Context, token string) (string, error)
}

// PresenceTracker records which connections a user has open.
type PresenceTracker interface {
	SetOnline(ctx context.Context, userID, connID string) error
	SetOffline(ctx context.Context, userID, connID string) error
	Refresh(ctx context.Context, userID string) error
}

// Options tunes connection timeouts and buffers.
type Options struct {
	WriteTimeout    time.Duration
	PongTimeout     time.Duration
	PingInterval    time.Duration
	ReadLimit       int64
	ReadBufferSize  int
	WriteBufferSize int
}

// Manager authenticates upgrade requests and runs one event stream per
// accepted connection. A user may hold any number of connections; each
// gets its own bus subscription and fails independently.
type Manager struct {
	bus      *bus.Bus
	auth     TokenValidator
	presence PresenceTracker
	upgrader websocket.Upgrader
	opts     Options
	logger   zerolog.Logger
}

// NewManager creates a new WebSocket manager
func NewManager(b *bus.Bus, auth TokenValidator, presence PresenceTracker, opts Options, logger zerolog.Logger) *Manager {
	return &Manager{
		bus:      b,
		auth:     auth,
		presence: presence,
		upgrader: websocket.Upgrader{
			ReadBufferSize:  opts.ReadBufferSize,
			WriteBufferSize: opts.WriteBufferSize,
			CheckOrigin:     func(r *http.Request) bool { return true },
		},
		opts:   opts,
		logger: logger,
	}
}

// ServeHTTP authenticates the upgrade request and starts the stream.
// The bearer token is checked once, here; a connection that outlives its
// session keeps streaming until it closes.
func (m *Manager) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	token := bearerToken(r)
	if token == "" {
		http.Error(w, "missing bearer token", http.StatusUnauthorized)
		return
	}

	userID, err := m.auth.ValidateAndRenew(r.Context(), token)
	if err != nil {
		http.Error(w, "invalid session", http.StatusUnauthorized)
		return
	}

	conn, err := m.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade already wrote the error response.
		m.logger.Warn().Err(err).Str("user_id", userID).Msg("websocket upgrade failed")
		return
	}

	c := &connection{
		id:      uuid.New().String(),
		userID:  userID,
		conn:    conn,
		manager: m,
		done:    make(chan struct{}),
	}
	c.logger = m.logger.With().Str("user_id", userID).Str("conn_id", c.id).Logger()

	go c.run()
}

func bearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	const prefix = "Bearer "
	if !strings.HasPrefix(header, prefix) {
		return ""
	}
	return strings.TrimSpace(header[len(prefix):])
}

// connection is one accepted socket. The writer owns all writes to the
// underlying conn; the reader only watches for closure.
type connection struct {
	id      string
	userID  string
	conn    *websocket.Conn
	manager *Manager
	done    chan struct{}
	logger  zerolog.Logger
}

func (c *connection) run() {
	ctx := context.Background()

	if err := c.manager.presence.SetOnline(ctx, c.userID, c.id); err != nil {
		c.logger.Warn().Err(err).Msg("failed to mark connection online")
	}
	defer func() {
		if err := c.manager.presence.SetOffline(ctx, c.userID, c.id); err != nil {
			c.logger.Warn().Err(err).Msg("failed to mark connection offline")
		}
	}()

	sub := c.manager.bus.Subscribe()
	defer sub.Close()
	defer c.conn.Close()

	go c.readPump()

	c.logger.Info().Msg("websocket connected")
	c.writePump(ctx, sub)
	c.logger.Info().Msg("websocket disconnected")
}

// writePump streams the user's events and keeps the connection alive
// with pings. It returns when the reader reports closure, a write
// fails, or the subscription lags; in every case only this connection
// is torn down.
func (c *connection) writePump(ctx context.Context, sub *bus.Subscription) {
	ticker := time.NewTicker(c.manager.opts.PingInterval)
	defer ticker.Stop()

	for {
		select {
		case event := <-sub.C():
			if !event.IsRecipient(c.userID) {
				continue
			}
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.opts.WriteTimeout))
			if err := c.conn.WriteJSON(event.Payload); err != nil {
				c.logger.Debug().Err(err).Msg("websocket write failed")
				return
			}
		case <-sub.Lagged():
			// The subscription lost an event, so this stream has a gap.
			// Close the connection; the client reloads its state when it
			// reconnects.
			c.logger.Warn().Msg("subscriber lagged, closing connection")
			return
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(c.manager.opts.WriteTimeout))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
			if err := c.manager.presence.Refresh(ctx, c.userID); err != nil {
				c.logger.Warn().Err(err).Msg("failed to refresh presence")
			}
		case <-c.done:
			return
		}
	}
}

// readPump discards inbound frames and signals the writer when the peer
// goes away. Pongs push the read deadline forward.
func (c *connection) readPump() {
	defer close(c.done)

	c.conn.SetReadLimit(c.manager.opts.ReadLimit)
	c.conn.SetReadDeadline(time.Now().Add(c.manager.opts.PongTimeout))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(c.manager.opts.PongTimeout))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.logger.Debug().Err(err).Msg("websocket read failed")
			}
			return
		}
	}
}
