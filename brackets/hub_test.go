package brackets

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

func newHubServer(t *testing.T, hub *Hub) *httptest.Server {
	t.Helper()
	upgrader := websocket.Upgrader{CheckOrigin: func(*http.Request) bool { return true }}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		client := NewClient(hub, conn, TournamentRoom)
		if !hub.Join(client) {
			conn.Close()
			return
		}
		go client.WritePump()
		go client.ReadPump()
	}))
	t.Cleanup(srv.Close)
	return srv
}

func dial(t *testing.T, srv *httptest.Server) *websocket.Conn {
	t.Helper()
	url := "ws" + strings.TrimPrefix(srv.URL, "http")
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	return conn
}

func TestHub_BroadcastToRoom(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := newHubServer(t, hub)
	conn := dial(t, srv)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.ClientCount(TournamentRoom) == 1 }, time.Second, 10*time.Millisecond)

	hub.BroadcastToRoom(TournamentRoom, MessageBracketUpdated, map[string]string{"status": "active"})
	hub.BroadcastToRoom("elsewhere", MessageLiveEvent, "ignored")

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg struct {
		Type    string            `json:"type"`
		Payload map[string]string `json:"payload"`
		RoomID  string            `json:"room_id"`
	}
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageBracketUpdated, msg.Type)
	assert.Equal(t, TournamentRoom, msg.RoomID)
	assert.Equal(t, "active", msg.Payload["status"])
}

func TestHub_UnregistersOnDisconnect(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	srv := newHubServer(t, hub)
	conn := dial(t, srv)

	require.Eventually(t, func() bool { return hub.ClientCount(TournamentRoom) == 1 }, time.Second, 10*time.Millisecond)
	conn.Close()
	assert.Eventually(t, func() bool { return hub.ClientCount(TournamentRoom) == 0 }, 2*time.Second, 10*time.Millisecond)
}

func TestHub_JoinAfterStop(t *testing.T) {
	hub := NewHub()
	hub.Stop()

	assert.False(t, hub.Join(NewClient(hub, nil, TournamentRoom)))
}

func TestHub_LateJoinerGetsLatestBracket(t *testing.T) {
	hub := NewHub()
	go hub.Run()
	defer hub.Stop()

	hub.BroadcastToRoom(TournamentRoom, MessageBracketUpdated, map[string]string{"status": "pending"})
	hub.BroadcastToRoom(TournamentRoom, MessageBracketUpdated, map[string]string{"status": "active"})
	hub.BroadcastToRoom(TournamentRoom, MessageLiveEvent, map[string]string{"status": "ignored"})

	srv := newHubServer(t, hub)
	conn := dial(t, srv)
	defer conn.Close()

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, data, err := conn.ReadMessage()
	require.NoError(t, err)

	var msg WebSocketMessage
	require.NoError(t, json.Unmarshal(data, &msg))
	assert.Equal(t, MessageBracketUpdated, msg.Type)
	assert.Equal(t, map[string]interface{}{"status": "active"}, msg.Payload)
}
