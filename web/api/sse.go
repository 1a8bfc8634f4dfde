package api

import (
	"encoding/json"
	"fmt"
	"net/http"
	"sync"
)

// sseEventType is the event name on the wire; the dashboard listens for
// it with EventSource.addEventListener.
const sseEventType = "run_state"

// SSEEvent is one run state frame on the event stream.
type SSEEvent struct {
	Type string           `json:"type"`
	Data RunStateResponse `json:"data"`
}

// SSEHub fans tracker state changes out to event stream subscribers.
type SSEHub struct {
	clients    map[chan SSEEvent]bool
	broadcast  chan SSEEvent
	register   chan chan SSEEvent
	unregister chan chan SSEEvent
	mu         sync.Mutex
}

// NewSSEHub creates a new SSE hub
func NewSSEHub() *SSEHub {
	return &SSEHub{
		clients:    make(map[chan SSEEvent]bool),
		broadcast:  make(chan SSEEvent),
		register:   make(chan chan SSEEvent),
		unregister: make(chan chan SSEEvent),
	}
}

// Run starts the SSE hub
func (h *SSEHub) Run() {
	for {
		select {
		case client := <-h.register:
			h.mu.Lock()
			h.clients[client] = true
			h.mu.Unlock()

		case client := <-h.unregister:
			h.mu.Lock()
			if _, ok := h.clients[client]; ok {
				delete(h.clients, client)
				close(client)
			}
			h.mu.Unlock()

		case event := <-h.broadcast:
			// Slow subscribers are dropped rather than blocking the
			// tracker's change notification.
			h.mu.Lock()
			for client := range h.clients {
				select {
				case client <- event:
				default:
					close(client)
					delete(h.clients, client)
				}
			}
			h.mu.Unlock()
		}
	}
}

// Broadcast sends a run state update to all subscribers
func (h *SSEHub) Broadcast(state RunStateResponse) {
	h.broadcast <- SSEEvent{Type: sseEventType, Data: state}
}

func writeSSEFrame(w http.ResponseWriter, flusher http.Flusher, event SSEEvent) {
	data, _ := json.Marshal(event)
	fmt.Fprintf(w, "event: %s\n", event.Type)
	fmt.Fprintf(w, "data: %s\n\n", data)
	flusher.Flush()
}

func (s *Server) sseHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		flusher, ok := w.(http.Flusher)
		if !ok {
			http.Error(w, "Streaming not supported", http.StatusInternalServerError)
			return
		}

		w.Header().Set("Content-Type", "text/event-stream")
		w.Header().Set("Cache-Control", "no-cache")
		w.Header().Set("Connection", "keep-alive")
		w.Header().Set("Access-Control-Allow-Origin", "*")

		client := make(chan SSEEvent, 8)
		s.sseHub.register <- client

		// Cleanup on disconnect
		notify := r.Context().Done()
		go func() {
			<-notify
			s.sseHub.unregister <- client
		}()

		// Seed the new subscriber with the current run state so the
		// dashboard renders without waiting for the next change.
		writeSSEFrame(w, flusher, SSEEvent{
			Type: sseEventType,
			Data: stateToResponse(s.tracker.State()),
		})

		for event := range client {
			writeSSEFrame(w, flusher, event)
		}
	}
}
