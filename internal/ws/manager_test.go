package ws

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/tantalumq/taco/internal/bus"
	"github.com/tantalumq/taco/internal/domain"
)

type stubAuth struct {
	userID string
	err    error
}

func (s stubAuth) ValidateAndRenew(ctx context.Context, token string) (string, error) {
	return s.userID, s.err
}

type stubPresence struct {
	mu      sync.Mutex
	online  int
	offline int
}

func (s *stubPresence) SetOnline(ctx context.Context, userID, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.online++
	return nil
}

func (s *stubPresence) SetOffline(ctx context.Context, userID, connID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.offline++
	return nil
}

func (s *stubPresence) Refresh(ctx context.Context, userID string) error { return nil }

func (s *stubPresence) counts() (int, int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.online, s.offline
}

func testOptions() Options {
	return Options{
		WriteTimeout:    time.Second,
		PongTimeout:     5 * time.Second,
		PingInterval:    time.Minute,
		ReadLimit:       4096,
		ReadBufferSize:  1024,
		WriteBufferSize: 1024,
	}
}

func dial(t *testing.T, srv *httptest.Server, token string) (*websocket.Conn, *http.Response, error) {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	return websocket.DefaultDialer.Dial(url, header)
}

func waitForSubscribers(t *testing.T, b *bus.Bus, n int) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for b.Subscribers() != n {
		if time.Now().After(deadline) {
			t.Fatalf("expected %d subscribers, have %d", n, b.Subscribers())
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestManager_StreamsEventsToRecipient(t *testing.T) {
	b := bus.New(8)
	presence := &stubPresence{}
	m := NewManager(b, stubAuth{userID: "alice"}, presence, testOptions(), zerolog.Nop())

	srv := httptest.NewServer(m)
	defer srv.Close()

	conn, _, err := dial(t, srv, "tok")
	require.NoError(t, err)
	defer conn.Close()

	waitForSubscribers(t, b, 1)

	// One event not addressed to alice, then one that is. Only the
	// second should come out of the socket.
	b.Publish(domain.NewRecipientEvent(domain.EventPayload{
		LeaveChat: &domain.WsLeaveChat{ChatID: "other", Member: "carol"},
	}, "carol"))
	b.Publish(domain.NewRecipientEvent(domain.EventPayload{
		ChatMessage: &domain.WsChatMessage{ChatID: "chat1", SenderID: "bob", MessageID: "m1", Message: "hi"},
	}, "alice", "bob"))

	conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var payload domain.EventPayload
	require.NoError(t, conn.ReadJSON(&payload))

	assert.Equal(t, domain.EventChatMessage, payload.Kind())
	assert.Equal(t, "m1", payload.ChatMessage.MessageID)
	assert.Nil(t, payload.LeaveChat)
}

func TestManager_RejectsBadCredentials(t *testing.T) {
	b := bus.New(8)

	t.Run("missing token", func(t *testing.T) {
		m := NewManager(b, stubAuth{userID: "alice"}, &stubPresence{}, testOptions(), zerolog.Nop())
		srv := httptest.NewServer(m)
		defer srv.Close()

		_, resp, err := dial(t, srv, "")
		assert.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, 0, b.Subscribers())
	})

	t.Run("invalid session", func(t *testing.T) {
		m := NewManager(b, stubAuth{err: errors.New("invalid session")}, &stubPresence{}, testOptions(), zerolog.Nop())
		srv := httptest.NewServer(m)
		defer srv.Close()

		_, resp, err := dial(t, srv, "expired")
		assert.Error(t, err)
		require.NotNil(t, resp)
		assert.Equal(t, http.StatusUnauthorized, resp.StatusCode)
		assert.Equal(t, 0, b.Subscribers())
	})
}

func TestManager_DisconnectCleansUp(t *testing.T) {
	b := bus.New(8)
	presence := &stubPresence{}
	m := NewManager(b, stubAuth{userID: "alice"}, presence, testOptions(), zerolog.Nop())

	srv := httptest.NewServer(m)
	defer srv.Close()

	conn, _, err := dial(t, srv, "tok")
	require.NoError(t, err)
	waitForSubscribers(t, b, 1)

	online, _ := presence.counts()
	assert.Equal(t, 1, online)

	conn.Close()
	waitForSubscribers(t, b, 0)

	deadline := time.Now().Add(2 * time.Second)
	for {
		if _, offline := presence.counts(); offline == 1 {
			break
		}
		if time.Now().After(deadline) {
			t.Fatal("connection was never marked offline")
		}
		time.Sleep(5 * time.Millisecond)
	}
}

func TestConnection_ClosesWhenLagged(t *testing.T) {
	b := bus.New(1)
	sub := b.Subscribe()
	defer sub.Close()

	// Overflow the subscription before any writer drains it: the second
	// publish drops m1 and marks the stream lagged.
	for _, id := range []string{"m1", "m2"} {
		b.Publish(domain.NewRecipientEvent(domain.EventPayload{
			ChatMessage: &domain.WsChatMessage{ChatID: "chat1", SenderID: "bob", MessageID: id, Message: "hi"},
		}, "alice"))
	}

	serverConns := make(chan *websocket.Conn, 1)
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		serverConns <- conn
	}))
	defer srv.Close()

	clientConn, _, err := dial(t, srv, "")
	require.NoError(t, err)
	defer clientConn.Close()

	var serverConn *websocket.Conn
	select {
	case serverConn = <-serverConns:
	case <-time.After(2 * time.Second):
		t.Fatal("server never accepted the websocket")
	}
	defer serverConn.Close()

	m := NewManager(b, stubAuth{userID: "alice"}, &stubPresence{}, testOptions(), zerolog.Nop())
	c := &connection{
		id:      "conn1",
		userID:  "alice",
		conn:    serverConn,
		manager: m,
		done:    make(chan struct{}),
		logger:  zerolog.Nop(),
	}

	finished := make(chan struct{})
	go func() {
		c.writePump(context.Background(), sub)
		close(finished)
	}()

	// The pump may still flush the surviving event, but it must stop
	// once it sees the gap so the connection gets torn down and the
	// client can reload on reconnect.
	select {
	case <-finished:
	case <-time.After(2 * time.Second):
		t.Fatal("write pump kept streaming after the subscription lagged")
	}
}

func TestManager_ConnectionsAreIndependent(t *testing.T) {
	b := bus.New(8)
	m := NewManager(b, stubAuth{userID: "alice"}, &stubPresence{}, testOptions(), zerolog.Nop())

	srv := httptest.NewServer(m)
	defer srv.Close()

	first, _, err := dial(t, srv, "tok")
	require.NoError(t, err)
	second, _, err := dial(t, srv, "tok")
	require.NoError(t, err)
	defer second.Close()

	waitForSubscribers(t, b, 2)

	// Killing one connection must not detach the other.
	first.Close()
	waitForSubscribers(t, b, 1)

	b.Publish(domain.NewRecipientEvent(domain.EventPayload{
		DeleteMessage: &domain.WsDeleteMessage{ChatID: "chat1", MessageID: "m1"},
	}, "alice"))

	second.SetReadDeadline(time.Now().Add(2 * time.Second))
	var payload domain.EventPayload
	require.NoError(t, second.ReadJSON(&payload))
	assert.Equal(t, domain.EventDeleteMessage, payload.Kind())
}
