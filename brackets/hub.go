package brackets

import (
	"encoding/json"
	"log"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

// TournamentRoom is the room every spectator of the bracket joins.
const TournamentRoom = "tournament"

const (
	MessageBracketUpdated = "BRACKET_UPDATED"
	MessageMatchRecorded  = "MATCH_RECORDED"
	MessageLiveEvent      = "LIVE_EVENT"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 512
	sendBuffer     = 256
)

type WebSocketMessage struct {
	Type    string      `json:"type"`
	Payload interface{} `json:"payload"`
	RoomID  string      `json:"room_id,omitempty"`
}

// Client is one read-only spectator connection.
type Client struct {
	hub  *Hub
	conn *websocket.Conn
	room string

	mu     sync.Mutex
	send   chan []byte
	closed bool
}

func NewClient(hub *Hub, conn *websocket.Conn, room string) *Client {
	return &Client{
		hub:  hub,
		conn: conn,
		room: room,
		send: make(chan []byte, sendBuffer),
	}
}

// offer queues msg without blocking. It reports false when the client is
// gone or its buffer is full.
func (c *Client) offer(msg []byte) bool {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.closed {
		return false
	}
	select {
	case c.send <- msg:
		return true
	default:
		return false
	}
}

func (c *Client) close() {
	c.mu.Lock()
	defer c.mu.Unlock()
	if !c.closed {
		close(c.send)
		c.closed = true
	}
}

// Hub fans bracket messages out to spectator rooms. The latest
// BRACKET_UPDATED of each room is kept and replayed to late joiners.
type Hub struct {
	register   chan *Client
	unregister chan *Client
	done       chan struct{}
	stopOnce   sync.Once

	mu        sync.RWMutex
	rooms     map[string]map[*Client]struct{}
	snapshots map[string][]byte
}

func NewHub() *Hub {
	return &Hub{
		register:   make(chan *Client),
		unregister: make(chan *Client),
		done:       make(chan struct{}),
		rooms:      make(map[string]map[*Client]struct{}),
		snapshots:  make(map[string][]byte),
	}
}

func (h *Hub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			room, ok := h.rooms[client.room]
			if !ok {
				room = make(map[*Client]struct{})
				h.rooms[client.room] = room
			}
			room[client] = struct{}{}
			snapshot := h.snapshots[client.room]
			h.mu.Unlock()

			if snapshot != nil {
				client.offer(snapshot)
			}
			log.Printf("Spectator joined room %s (%d watching)", client.room, h.ClientCount(client.room))

		case client := <-h.unregister:
			h.mu.Lock()
			h.leaveLocked(client)
			h.mu.Unlock()

		case <-h.done:
			h.mu.Lock()
			for _, room := range h.rooms {
				for client := range room {
					h.leaveLocked(client)
				}
			}
			h.mu.Unlock()
			log.Printf("Spectator hub stopped")
			return
		}
	}
}

// Join registers client with the running hub. It reports false once the hub has stopped.
func (h *Hub) Join(client *Client) bool {
	select {
	case h.register <- client:
		return true
	case <-h.done:
		return false
	}
}

// Stop ends Run and closes every client's send channel.
func (h *Hub) Stop() {
	h.stopOnce.Do(func() { close(h.done) })
}

func (h *Hub) leave(client *Client) {
	select {
	case h.unregister <- client:
	case <-h.done:
	}
}

func (h *Hub) leaveLocked(client *Client) {
	room, ok := h.rooms[client.room]
	if !ok {
		return
	}
	if _, ok := room[client]; !ok {
		return
	}
	client.close()
	delete(room, client)
	if len(room) == 0 {
		delete(h.rooms, client.room)
	}
	log.Printf("Spectator left room %s (%d watching)", client.room, len(room))
}

// ClientCount returns the number of clients currently in roomID.
func (h *Hub) ClientCount(roomID string) int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.rooms[roomID])
}

// BroadcastToRoom sends a typed message to every client in roomID. Slow
// clients whose buffers are full miss the message.
func (h *Hub) BroadcastToRoom(roomID, msgType string, payload interface{}) {
	msg, err := json.Marshal(WebSocketMessage{Type: msgType, Payload: payload, RoomID: roomID})
	if err != nil {
		log.Printf("Error marshalling %s for room %s: %v", msgType, roomID, err)
		return
	}

	if msgType == MessageBracketUpdated {
		h.mu.Lock()
		h.snapshots[roomID] = msg
		h.mu.Unlock()
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for client := range h.rooms[roomID] {
		if !client.offer(msg) {
			log.Printf("Spectator in room %s is lagging, dropped %s", roomID, msgType)
		}
	}
}

// ReadPump keeps the connection alive and detects disconnects. Spectators
// are read-only, so anything they send is discarded.
func (c *Client) ReadPump() {
	defer func() {
		c.hub.leave(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseAbnormalClosure) {
				log.Printf("Spectator in room %s disconnected: %v", c.room, err)
			}
			return
		}
	}
}

// WritePump writes queued messages, one JSON document per frame, and pings
// the spectator until the send channel is closed.
func (c *Client) WritePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				log.Printf("Error writing to spectator in room %s: %v", c.room, err)
				return
			}
		case <-ticker.C:
			c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}
