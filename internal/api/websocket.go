package api

import (
	"encoding/json"
	"log"
	"net/http"
	"sync"

	"codeintel-clone/internal/eventbus"

	"github.com/gorilla/websocket"
)

// eventKindJob mirrors worker.EventKindJob without importing internal/worker,
// which would otherwise import internal/api's sibling packages back in.
const eventKindJob = "job"

// Hub fans out job lifecycle events, received from the eventbus, to every
// connected websocket client.
type Hub struct {
	clients map[*wsClient]bool
	events  chan eventbus.Event
	mutex   sync.Mutex
}

type wsClient struct {
	conn *websocket.Conn
	send chan []byte
}

func newHub() *Hub {
	return &Hub{
		clients: make(map[*wsClient]bool),
		events:  make(chan eventbus.Event, 256),
	}
}

func (h *Hub) run() {
	for evt := range h.events {
		data, err := json.Marshal(evt)
		if err != nil {
			continue
		}
		h.mutex.Lock()
		for c := range h.clients {
			select {
			case c.send <- data:
			default:
				close(c.send)
				delete(h.clients, c)
			}
		}
		h.mutex.Unlock()
	}
}

func (h *Hub) register(c *wsClient) {
	h.mutex.Lock()
	h.clients[c] = true
	h.mutex.Unlock()
}

func (h *Hub) unregister(c *wsClient) {
	h.mutex.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mutex.Unlock()
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool {
		return true
	},
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
}

// handleWebSocket upgrades the connection and streams job lifecycle events
// (pending -> processing -> done/failed) as they're published on the bus.
func (s *Server) handleWebSocket(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		log.Println("websocket upgrade error:", err)
		return
	}

	client := &wsClient{conn: conn, send: make(chan []byte, 256)}
	s.hub.register(client)

	go func() {
		defer func() {
			s.hub.unregister(client)
			conn.Close()
		}()
		for {
			message, ok := <-client.send
			if !ok {
				conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			wr, err := conn.NextWriter(websocket.TextMessage)
			if err != nil {
				return
			}
			wr.Write(message)
			wr.Close()
		}
	}()

	for {
		if _, _, err := conn.ReadMessage(); err != nil {
			break
		}
	}
}
