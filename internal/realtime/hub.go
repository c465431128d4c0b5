package realtime

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/luckynumbers/api/internal/models"
	pkghttp "github.com/luckynumbers/api/pkg/http"
)

const (
	writeWait  = 10 * time.Second
	pongWait   = 60 * time.Second
	pingPeriod = 54 * time.Second

	// Viewers never send application data; anything larger is a misbehaving client.
	maxMessageSize = 512

	sendBufferSize = 16
)

// event is the wire shape pushed to every connected viewer.
type event struct {
	Type string      `json:"type"`
	Data interface{} `json:"data,omitempty"`
}

type client struct {
	conn *websocket.Conn
	send chan []byte
}

// Hub fans result updates out to connected websocket viewers. Delivery is
// fire-and-forget: a client whose send buffer is full gets dropped rather
// than stalling the broadcast.
type Hub struct {
	mu       sync.RWMutex
	clients  map[*client]struct{}
	upgrader websocket.Upgrader
	logger   *slog.Logger
}

// NewHub creates an empty hub.
func NewHub(logger *slog.Logger) *Hub {
	return &Hub{
		clients: make(map[*client]struct{}),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			// Result updates are public data; any origin may subscribe.
			CheckOrigin: func(r *http.Request) bool { return true },
		},
		logger: logger,
	}
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[c] = struct{}{}
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[c]; ok {
		delete(h.clients, c)
		close(c.send)
	}
}

// ClientCount returns the number of connected viewers.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// BroadcastResult pushes a resultUpdate event to every connected viewer.
// Implements the services.ResultBroadcaster interface.
func (h *Hub) BroadcastResult(result *models.Result) {
	h.broadcast("resultUpdate", result)
}

func (h *Hub) broadcast(eventType string, data interface{}) {
	msg, err := json.Marshal(event{Type: eventType, Data: data})
	if err != nil {
		h.logger.Error("failed to marshal broadcast event", slog.String("type", eventType), slog.Any("error", err))
		return
	}

	h.mu.RLock()
	var slow []*client
	for c := range h.clients {
		select {
		case c.send <- msg:
		default:
			slow = append(slow, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range slow {
		h.logger.Warn("dropping slow websocket client")
		h.unregister(c)
		_ = c.conn.Close()
	}
}

// ServeWS upgrades the request and subscribes the connection to result
// updates until it closes.
func (h *Hub) ServeWS(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		// Upgrade has already written its own error response.
		h.logger.Warn("websocket upgrade failed",
			slog.String("client_ip", pkghttp.ExtractClientIP(r)),
			slog.Any("error", err))
		return
	}

	c := &client{
		conn: conn,
		send: make(chan []byte, sendBufferSize),
	}
	h.register(c)

	go h.writePump(c)
	go h.readPump(c)
}

// writePump drains the client's send channel and keeps the connection alive
// with periodic pings.
func (h *Hub) writePump(c *client) {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		_ = c.conn.Close()
	}()

	for {
		select {
		case msg, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, msg); err != nil {
				return
			}
		case <-ticker.C:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if err := c.conn.WriteMessage(websocket.PingMessage, nil); err != nil {
				return
			}
		}
	}
}

// readPump discards inbound frames and unregisters the client when the
// connection drops. Reading is required for close and pong handling.
func (h *Hub) readPump(c *client) {
	defer func() {
		h.unregister(c)
		_ = c.conn.Close()
	}()

	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		if _, _, err := c.conn.ReadMessage(); err != nil {
			return
		}
	}
}
