package client

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/tantalumq/taco/internal/domain"
)

const reconnectDelay = 2 * time.Second

// Notice is one item from the event listener. A Connected notice means
// the stream (re)started: any events missed while disconnected are gone
// for good, so the consumer must reload its open chat. Otherwise
// Payload carries one push event.
type Notice struct {
	Connected bool
	Payload   *domain.EventPayload
}

// Listener owns the WebSocket connection exclusively and runs a
// Starting/Ready loop: dial with the current bearer token, stream
// until the socket dies, then start over. Tokens are re-read on every
// dial so a renewed session is picked up automatically.
type Listener struct {
	url     string
	token   func() string
	notices chan Notice
	logger  zerolog.Logger
}

// NewListener creates a listener for the ws endpoint, e.g.
// "ws://localhost:3000/ws". token must return the current session id.
func NewListener(url string, token func() string, logger zerolog.Logger) *Listener {
	return &Listener{
		url:     url,
		token:   token,
		notices: make(chan Notice, 64),
		logger:  logger,
	}
}

// Notices is the stream of connection markers and push events
func (l *Listener) Notices() <-chan Notice {
	return l.notices
}

// Run drives the connection loop until the context is cancelled
func (l *Listener) Run(ctx context.Context) {
	defer close(l.notices)

	for {
		if ctx.Err() != nil {
			return
		}

		conn, err := l.dial(ctx)
		if err != nil {
			l.logger.Warn().Err(err).Msg("websocket dial failed")
			select {
			case <-time.After(reconnectDelay):
				continue
			case <-ctx.Done():
				return
			}
		}

		select {
		case l.notices <- Notice{Connected: true}:
		case <-ctx.Done():
			conn.Close()
			return
		}

		l.stream(ctx, conn)

		select {
		case <-time.After(reconnectDelay):
		case <-ctx.Done():
			return
		}
	}
}

func (l *Listener) dial(ctx context.Context) (*websocket.Conn, error) {
	header := http.Header{}
	header.Set("Authorization", "Bearer "+l.token())

	conn, _, err := websocket.DefaultDialer.DialContext(ctx, l.url, header)
	return conn, err
}

// stream reads frames until the socket errors or the context ends
func (l *Listener) stream(ctx context.Context, conn *websocket.Conn) {
	defer conn.Close()

	done := make(chan struct{})
	defer close(done)
	go func() {
		select {
		case <-ctx.Done():
			conn.Close()
		case <-done:
		}
	}()

	for {
		var payload domain.EventPayload
		if err := conn.ReadJSON(&payload); err != nil {
			if ctx.Err() == nil {
				l.logger.Warn().Err(err).Msg("websocket read failed, reconnecting")
			}
			return
		}
		if payload.Kind() == "" {
			l.logger.Warn().Msg("dropping frame with unknown event kind")
			continue
		}

		select {
		case l.notices <- Notice{Payload: &payload}:
		case <-ctx.Done():
			return
		}
	}
}
