package notify

import (
	"encoding/json"
	"sync"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"
)

// sendBuffer is the per-client outbound queue; events beyond it are dropped
// rather than blocking the publisher.
const sendBuffer = 16

// Event is the wire format broadcast to subscribers.
type Event struct {
	Event   string         `json:"event"`
	Payload map[string]any `json:"payload,omitempty"`
	At      time.Time      `json:"at"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans share events out to connected WebSocket clients. Publishing is
// fire-and-forget: slow clients lose events, and no caller ever blocks on
// delivery.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]struct{}
	log     zerolog.Logger
}

// NewHub creates an empty hub.
func NewHub(log zerolog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		log:     log.With().Str("component", "notify").Logger(),
	}
}

// Publish broadcasts one event to every connected client without blocking.
func (h *Hub) Publish(event string, payload map[string]any) {
	b, err := json.Marshal(Event{Event: event, Payload: payload, At: time.Now().UTC()})
	if err != nil {
		h.log.Error().Err(err).Str("event", event).Msg("marshal event")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- b:
		default:
			// Client is not draining; drop rather than stall the publisher.
			h.log.Warn().Str("event", event).Msg("dropping event for slow client")
		}
	}
}

// ClientCount returns the number of connected subscribers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// UpgradeRequired gates the websocket route so plain HTTP requests get a
// clean 426 instead of a handler panic.
func UpgradeRequired(c *fiber.Ctx) error {
	if websocket.IsWebSocketUpgrade(c) {
		return c.Next()
	}
	return fiber.ErrUpgradeRequired
}

// Handler returns the websocket endpoint that subscribes a connection to
// the hub until it closes.
func (h *Hub) Handler() fiber.Handler {
	return websocket.New(func(conn *websocket.Conn) {
		cl := &client{conn: conn, send: make(chan []byte, sendBuffer)}

		h.mu.Lock()
		h.clients[cl] = struct{}{}
		h.mu.Unlock()

		done := make(chan struct{})
		go func() {
			defer close(done)
			for msg := range cl.send {
				if err := conn.WriteMessage(websocket.TextMessage, msg); err != nil {
					return
				}
			}
		}()

		// Inbound messages are ignored; the read loop only detects close.
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				break
			}
		}

		h.mu.Lock()
		delete(h.clients, cl)
		h.mu.Unlock()
		close(cl.send)
		<-done
	})
}
