// Package realtime pushes security events to connected admin dashboards.
package realtime

import (
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	CheckOrigin: func(r *http.Request) bool {
		return true // origin is enforced by the CORS middleware upstream
	},
}

// Event is one feed message.
type Event struct {
	Type      string      `json:"type"`
	Payload   interface{} `json:"payload"`
	Timestamp time.Time   `json:"timestamp"`
}

type Logger interface {
	Info(msg string, fields map[string]interface{})
	Warn(msg string, fields map[string]interface{})
	Error(msg string, fields map[string]interface{})
}

// Hub fans events out to websocket subscribers. Slow subscribers are
// disconnected rather than allowed to block the rest.
type Hub struct {
	mu      sync.Mutex
	clients map[chan Event]struct{}
	logger  Logger
}

func NewHub(log Logger) *Hub {
	return &Hub{
		clients: make(map[chan Event]struct{}),
		logger:  log,
	}
}

// Broadcast queues an event for every connected subscriber.
func (h *Hub) Broadcast(event string, payload interface{}) {
	ev := Event{Type: event, Payload: payload, Timestamp: time.Now().UTC()}

	h.mu.Lock()
	defer h.mu.Unlock()
	for ch := range h.clients {
		select {
		case ch <- ev:
		default:
			// Subscriber is not draining; drop it.
			close(ch)
			delete(h.clients, ch)
		}
	}
}

func (h *Hub) subscribe() chan Event {
	ch := make(chan Event, 32)
	h.mu.Lock()
	h.clients[ch] = struct{}{}
	h.mu.Unlock()
	return ch
}

func (h *Hub) unsubscribe(ch chan Event) {
	h.mu.Lock()
	if _, ok := h.clients[ch]; ok {
		close(ch)
		delete(h.clients, ch)
	}
	h.mu.Unlock()
}

// ServeWS upgrades the request and streams events until the client goes
// away. Authentication happens in the middleware chain before this point.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("websocket upgrade failed", map[string]interface{}{"error": err.Error()})
		return
	}
	defer conn.Close()

	ch := h.subscribe()
	defer h.unsubscribe(ch)

	done := make(chan struct{})
	go func() {
		defer close(done)
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	for {
		select {
		case ev, ok := <-ch:
			if !ok {
				return
			}
			if err := conn.WriteJSON(ev); err != nil {
				return
			}
		case <-done:
			return
		}
	}
}
