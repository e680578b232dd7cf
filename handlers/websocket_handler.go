package handlers

import (
	"log"
	"net/http"

	"github.com/gorilla/websocket"

	"github.com/Dosada05/nations-league/brackets"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// Spectators are read-only; the room carries public bracket data.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type WebSocketHandler struct {
	hub *brackets.Hub
}

func NewWebSocketHandler(hub *brackets.Hub) *WebSocketHandler {
	return &WebSocketHandler{hub: hub}
}

// ServeWs upgrades the request and joins the tournament spectators room.
func (h *WebSocketHandler) ServeWs(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Printf("Failed to upgrade spectator connection: %v", err)
		return
	}

	client := brackets.NewClient(h.hub, conn, brackets.TournamentRoom)
	if !h.hub.Join(client) {
		log.Printf("Hub stopped, closing spectator connection from %s", r.RemoteAddr)
		conn.Close()
		return
	}

	go client.WritePump()
	go client.ReadPump()
}
