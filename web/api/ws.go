package api

import (
	"log"
	"net/http"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/gorilla/websocket"
)

// writeWait is time allowed to write a message to a dashboard client
const writeWait = 10 * time.Second

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard may be served from a different origin than the API
	// during development.
	CheckOrigin: func(r *http.Request) bool { return true },
}

type wsClient struct {
	id   string
	conn *websocket.Conn
	send chan RunStateResponse
}

// WSHub pushes run state updates over WebSocket connections
type WSHub struct {
	mu      sync.RWMutex
	clients map[string]*wsClient
}

// NewWSHub creates a new WebSocket hub
func NewWSHub() *WSHub {
	return &WSHub{clients: make(map[string]*wsClient)}
}

// Broadcast queues a state update for every connected client. Slow
// clients are dropped rather than blocking the tracker.
func (h *WSHub) Broadcast(state RunStateResponse) {
	h.mu.RLock()
	defer h.mu.RUnlock()
	for _, c := range h.clients {
		select {
		case c.send <- state:
		default:
			go h.remove(c.id)
		}
	}
}

func (h *WSHub) add(c *wsClient) {
	h.mu.Lock()
	h.clients[c.id] = c
	h.mu.Unlock()
}

func (h *WSHub) remove(id string) {
	h.mu.Lock()
	c, ok := h.clients[id]
	if ok {
		delete(h.clients, id)
	}
	h.mu.Unlock()
	if ok {
		close(c.send)
		c.conn.Close()
	}
}

func (s *Server) wsHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			log.Printf("ws upgrade failed: %v", err)
			return
		}

		client := &wsClient{
			id:   uuid.NewString(),
			conn: conn,
			send: make(chan RunStateResponse, 8),
		}
		s.wsHub.add(client)

		// Seed the new client with the current state.
		client.send <- stateToResponse(s.tracker.State())

		// Write pump
		go func() {
			for state := range client.send {
				conn.SetWriteDeadline(time.Now().Add(writeWait))
				if err := conn.WriteJSON(state); err != nil {
					s.wsHub.remove(client.id)
					return
				}
			}
		}()

		// Read pump, only to notice the peer going away
		go func() {
			for {
				if _, _, err := conn.ReadMessage(); err != nil {
					s.wsHub.remove(client.id)
					return
				}
			}
		}()
	}
}
