// Package gateway pushes engine state to browser dashboards over
// WebSocket. It only publishes; it renders nothing.
package gateway

import (
	"encoding/json"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// Message is the envelope for every push to the dashboard.
type Message struct {
	Type string      `json:"type"`
	Data interface{} `json:"data"`
}

// Push message types.
const (
	TypePrice       = "price"
	TypeIndicators  = "indicators"
	TypeEvent       = "ema_event"
	TypeMark        = "trading_mark"
	TypePositions   = "positions"
	TypeLiquidation = "liquidation"
	TypeDecision    = "ai_decision"
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  1024,
	WriteBufferSize: 1024,
	// The dashboard is served from arbitrary origins in development
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub manages connected WebSocket clients and fans out messages.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	logger  zerolog.Logger
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{
		clients: make(map[*client]bool),
		logger:  log.With().Str("component", "ws_hub").Logger(),
	}
}

// HandleWS upgrades an HTTP request and registers the client.
func (h *Hub) HandleWS(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn().Err(err).Msg("WebSocket upgrade failed")
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, 256),
	}

	h.mu.Lock()
	h.clients[c] = true
	count := len(h.clients)
	h.mu.Unlock()

	h.logger.Info().Int("clients", count).Msg("Dashboard client connected")
	WSClients.Set(float64(count))

	go h.writePump(c)
	go h.readPump(c)
}

// Broadcast sends a typed message to every connected client. Slow
// clients are skipped rather than blocking the engine.
func (h *Hub) Broadcast(msgType string, data interface{}) {
	payload, err := json.Marshal(Message{Type: msgType, Data: data})
	if err != nil {
		h.logger.Error().Err(err).Str("type", msgType).Msg("Marshaling broadcast failed")
		return
	}

	h.mu.RLock()
	defer h.mu.RUnlock()
	for c := range h.clients {
		select {
		case c.send <- payload:
		default:
		}
	}
}

// ClientCount returns the number of connected clients.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) remove(c *client) {
	h.mu.Lock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
	count := len(h.clients)
	h.mu.Unlock()

	c.conn.Close()
	WSClients.Set(float64(count))
}

func (h *Hub) writePump(c *client) {
	defer h.remove(c)
	for payload := range c.send {
		if err := c.conn.WriteMessage(websocket.TextMessage, payload); err != nil {
			return
		}
	}
}

// readPump drains incoming frames so pings and close frames are
// processed; the dashboard never sends commands.
func (h *Hub) readPump(c *client) {
	defer h.remove(c)
	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
