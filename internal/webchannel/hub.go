// Package webchannel implements the messaging channel between the agent
// and foreground instances over WebSocket.
package webchannel

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"github.com/civilsoul/offlined/schema"
)

const (
	writeWait      = 10 * time.Second
	pongWait       = 60 * time.Second
	pingPeriod     = (pongWait * 9) / 10
	maxMessageSize = 64 * 1024
	sendBuffer     = 32
)

var upgrader = websocket.Upgrader{
	ReadBufferSize:  4096,
	WriteBufferSize: 4096,
	// The channel is bound to loopback; cross-origin pages on the same
	// machine are legitimate clients.
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Hub tracks connected foreground instances and fans structured messages
// out to them. It implements contract.Broadcaster.
type Hub struct {
	mu      sync.RWMutex
	clients map[*client]bool
	log     *slog.Logger

	// OnMessage receives every message a client sends, if set.
	OnMessage func(msg schema.ClientMessage)

	// NotifyFallback receives NOTIFICATION messages that reached zero
	// clients, if set. It lets undeliverable notifications surface
	// through the host instead of vanishing.
	NotifyFallback func(msg schema.ClientMessage)

	// OnCountChange observes the connected client population, if set.
	OnCountChange func(n int)

	// OnConnect observes a new client, if set. The location is the page
	// URL the client reported when dialing.
	OnConnect func(id, location string)

	// OnDisconnect observes a departed client, if set.
	OnDisconnect func(id string)
}

// NewHub returns an empty hub.
func NewHub(log *slog.Logger) *Hub {
	return &Hub{clients: make(map[*client]bool), log: log}
}

type client struct {
	hub      *Hub
	conn     *websocket.Conn
	send     chan []byte
	id       string
	location string
}

// ServeHTTP upgrades the connection and registers the client. Clients
// report their page URL in the location query parameter so notification
// clicks can focus an instance already at the target.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.log.Warn("websocket upgrade failed", "remote", r.RemoteAddr, "error", err)
		return
	}

	c := &client{
		hub:      h,
		conn:     conn,
		send:     make(chan []byte, sendBuffer),
		id:       conn.RemoteAddr().String(),
		location: r.URL.Query().Get("location"),
	}
	h.register(c)

	go c.writePump()
	go c.readPump()
}

// Broadcast serializes the message and delivers it to every connected
// client, returning how many received it. A NOTIFICATION that reaches no
// one is handed to the fallback.
func (h *Hub) Broadcast(msg schema.ClientMessage) int {
	raw, err := json.Marshal(msg)
	if err != nil {
		h.log.Warn("dropping unserializable message", "type", msg.Type, "error", err)
		return 0
	}

	h.mu.RLock()
	delivered := 0
	for c := range h.clients {
		select {
		case c.send <- raw:
			delivered++
		default:
			// Slow consumer; skip rather than block the broadcast.
		}
	}
	h.mu.RUnlock()

	if delivered == 0 && msg.Type == schema.MessageNotification && h.NotifyFallback != nil {
		h.NotifyFallback(msg)
	}
	return delivered
}

// ClientCount reports the connected client population.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Close disconnects every client.
func (h *Hub) Close() {
	h.mu.Lock()
	departed := make([]*client, 0, len(h.clients))
	for c := range h.clients {
		close(c.send)
		delete(h.clients, c)
		departed = append(departed, c)
	}
	h.mu.Unlock()
	if h.OnDisconnect != nil {
		for _, c := range departed {
			h.OnDisconnect(c.id)
		}
	}
	h.countChanged()
}

func (h *Hub) register(c *client) {
	h.mu.Lock()
	h.clients[c] = true
	h.mu.Unlock()
	h.log.Info("client connected", "id", c.id, "location", c.location, "clients", h.ClientCount())
	if h.OnConnect != nil {
		h.OnConnect(c.id, c.location)
	}
	h.countChanged()
}

func (h *Hub) unregister(c *client) {
	h.mu.Lock()
	_, ok := h.clients[c]
	if ok {
		delete(h.clients, c)
		close(c.send)
	}
	h.mu.Unlock()
	if !ok {
		return
	}
	h.log.Info("client disconnected", "id", c.id, "clients", h.ClientCount())
	if h.OnDisconnect != nil {
		h.OnDisconnect(c.id)
	}
	h.countChanged()
}

func (h *Hub) countChanged() {
	if h.OnCountChange != nil {
		h.OnCountChange(h.ClientCount())
	}
}

func (c *client) readPump() {
	defer func() {
		c.hub.unregister(c)
		c.conn.Close()
	}()
	c.conn.SetReadLimit(maxMessageSize)
	_ = c.conn.SetReadDeadline(time.Now().Add(pongWait))
	c.conn.SetPongHandler(func(string) error {
		return c.conn.SetReadDeadline(time.Now().Add(pongWait))
	})

	for {
		_, raw, err := c.conn.ReadMessage()
		if err != nil {
			if websocket.IsUnexpectedCloseError(err, websocket.CloseGoingAway, websocket.CloseNormalClosure) {
				c.hub.log.Warn("client read error", "error", err)
			}
			return
		}

		var msg schema.ClientMessage
		if err := json.Unmarshal(raw, &msg); err != nil {
			c.hub.log.Debug("ignoring malformed client message", "error", err)
			continue
		}
		if c.hub.OnMessage != nil {
			c.hub.OnMessage(msg)
		}
	}
}

func (c *client) writePump() {
	ticker := time.NewTicker(pingPeriod)
	defer func() {
		ticker.Stop()
		c.conn.Close()
	}()

	for {
		select {
		case raw, ok := <-c.send:
			_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
			if !ok {
				_ = c.conn.WriteMessage(websocket.CloseMessage, []byte{})
				return
			}
			if err := c.conn.WriteMessage(websocket.TextMessage, raw); err != nil {
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
