package broadcast

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial("ws"+strings.TrimPrefix(srv.URL, "http"), nil)
	require.NoError(t, err)
	t.Cleanup(func() { _ = conn.Close() })
	return conn
}

type wireEvent struct {
	Event EventKind       `json:"event"`
	Data  json.RawMessage `json:"data"`
	Actor string          `json:"actor"`
}

func next(t *testing.T, conn *websocket.Conn) wireEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)
	var ev wireEvent
	require.NoError(t, json.Unmarshal(data, &ev))
	return ev
}

func presence(t *testing.T, ev wireEvent) int {
	t.Helper()
	require.Equal(t, PresenceChanged, ev.Event)
	var p Presence
	require.NoError(t, json.Unmarshal(ev.Data, &p))
	return p.ActiveUsers
}

func TestPresenceFollowsConnections(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	a := dial(t, srv)
	assert.Equal(t, 1, presence(t, next(t, a)))

	b := dial(t, srv)
	assert.Equal(t, 2, presence(t, next(t, a)))
	assert.Equal(t, 2, presence(t, next(t, b)))

	require.NoError(t, b.Close())
	assert.Equal(t, 1, presence(t, next(t, a)))
	assert.Equal(t, 1, hub.ActiveUsers())
}

func TestPublishReachesEveryObserverInOrder(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	a := dial(t, srv)
	next(t, a)
	b := dial(t, srv)
	next(t, a)
	next(t, b)

	for i := 0; i < 3; i++ {
		hub.Publish(Event{Kind: PollUpdated, Data: map[string]int{"seq": i}, Actor: "u1"})
	}

	for _, conn := range []*websocket.Conn{a, b} {
		for i := 0; i < 3; i++ {
			ev := next(t, conn)
			assert.Equal(t, PollUpdated, ev.Event)
			assert.Equal(t, "u1", ev.Actor)
			var d map[string]int
			require.NoError(t, json.Unmarshal(ev.Data, &d))
			assert.Equal(t, i, d["seq"])
		}
	}
}

func TestPublishWithoutObserversIsNoop(t *testing.T) {
	hub := NewHub(nil)
	hub.Publish(Event{Kind: PollCreated, Data: "x"})
	assert.Zero(t, hub.ActiveUsers())
}

func TestSlowObserverIsDropped(t *testing.T) {
	hub := NewHub(nil)
	stuck := &client{send: make(chan []byte), done: make(chan struct{}), remote: "stuck"}
	hub.clients[stuck] = struct{}{}

	hub.Publish(Event{Kind: PollUpdated, Data: 1})

	assert.Zero(t, hub.ActiveUsers())
	select {
	case <-stuck.done:
	default:
		t.Fatal("slow observer was not stopped")
	}
}

func TestCloseDisconnectsObservers(t *testing.T) {
	hub := NewHub(nil)
	srv := httptest.NewServer(http.HandlerFunc(hub.ServeWS))
	t.Cleanup(srv.Close)

	a := dial(t, srv)
	next(t, a)
	hub.Close()

	require.NoError(t, a.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := a.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseNormalClosure), "got %v", err)
}
