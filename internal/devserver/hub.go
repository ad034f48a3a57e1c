package devserver

import (
	"encoding/json"
	"log/slog"
	"net/http"
	"sync"

	"github.com/gorilla/websocket"

	"github.com/qaplatform/qaglue/pkg/realtime"
)

// Hub fans realtime events out to every connected page.
type Hub struct {
	upgrader websocket.Upgrader
	logger   *slog.Logger
	metrics  *Metrics

	mu      sync.RWMutex
	clients map[*hubClient]bool
	unread  int
}

// hubClient serialises writes; a gorilla connection allows one writer.
type hubClient struct {
	conn *websocket.Conn
	mu   sync.Mutex
}

func (c *hubClient) write(data []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.conn.WriteMessage(websocket.TextMessage, data)
}

// NewHub creates a Hub.
func NewHub(logger *slog.Logger, metrics *Metrics) *Hub {
	return &Hub{
		logger:  logger,
		metrics: metrics,
		clients: make(map[*hubClient]bool),
		upgrader: websocket.Upgrader{
			ReadBufferSize:  1024,
			WriteBufferSize: 1024,
			CheckOrigin: func(r *http.Request) bool {
				return true // Allow all origins in dev
			},
		},
	}
}

// ServeHTTP upgrades the request and reads client events until the page
// disconnects. A new page is sent the current unread count.
func (h *Hub) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	conn, err := h.upgrader.Upgrade(w, r, nil)
	if err != nil {
		h.logger.Warn("devserver: websocket upgrade failed", "error", err)
		return
	}
	c := &hubClient{conn: conn}

	h.mu.Lock()
	h.clients[c] = true
	unread := h.unread
	h.mu.Unlock()
	h.metrics.clientConnected()

	defer func() {
		h.mu.Lock()
		delete(h.clients, c)
		h.mu.Unlock()
		h.metrics.clientDisconnected()
		conn.Close()
	}()

	if data, err := encode(realtime.EventUnreadCount, realtime.UnreadCount{Count: unread}); err == nil {
		_ = c.write(data)
	}

	for {
		_, msg, err := conn.ReadMessage()
		if err != nil {
			return
		}
		var env realtime.Envelope
		if err := json.Unmarshal(msg, &env); err != nil {
			h.logger.Debug("devserver: malformed client frame", "error", err)
			continue
		}
		switch env.Event {
		case realtime.EventMarkNotificationsRead:
			h.setUnread(0)
		case realtime.EventUserTyping:
			h.broadcastRaw(msg, c)
		default:
			h.logger.Debug("devserver: unknown client event", "event", env.Event)
		}
	}
}

// Notify pushes a notification and bumps the unread count on every page.
func (h *Hub) Notify(content, level string) {
	h.broadcast(realtime.EventNotification, realtime.Notification{Content: content, Type: level})

	h.mu.Lock()
	h.unread++
	unread := h.unread
	h.mu.Unlock()
	h.broadcast(realtime.EventUnreadCount, realtime.UnreadCount{Count: unread})
}

// Unread returns the current unread notification count.
func (h *Hub) Unread() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return h.unread
}

// ClientCount returns the number of connected pages.
func (h *Hub) ClientCount() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

func (h *Hub) setUnread(n int) {
	h.mu.Lock()
	h.unread = n
	h.mu.Unlock()
	h.broadcast(realtime.EventUnreadCount, realtime.UnreadCount{Count: n})
}

func (h *Hub) broadcast(event string, payload any) {
	data, err := encode(event, payload)
	if err != nil {
		h.logger.Error("devserver: encode event", "event", event, "error", err)
		return
	}
	h.broadcastRaw(data, nil)
}

// broadcastRaw sends data to every client except skip.
func (h *Hub) broadcastRaw(data []byte, skip *hubClient) {
	h.mu.RLock()
	clients := make([]*hubClient, 0, len(h.clients))
	for c := range h.clients {
		if c != skip {
			clients = append(clients, c)
		}
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(data); err != nil {
			h.mu.Lock()
			delete(h.clients, c)
			h.mu.Unlock()
			c.conn.Close()
		}
	}
}

// Close disconnects every page.
func (h *Hub) Close() {
	h.mu.Lock()
	defer h.mu.Unlock()
	for c := range h.clients {
		c.conn.Close()
		delete(h.clients, c)
	}
}

func encode(event string, payload any) ([]byte, error) {
	data, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}
	return json.Marshal(realtime.Envelope{Event: event, Data: data})
}
