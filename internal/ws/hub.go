package ws

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"github.com/gorilla/websocket"

	"messaging-sync/internal/models"
	"messaging-sync/internal/observability"
)

const writeWait = 5 * time.Second

type client struct {
	conn *websocket.Conn
	info ConnInfo
	mu   sync.Mutex
}

func (c *client) write(payload []byte) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	_ = c.conn.SetWriteDeadline(time.Now().Add(writeWait))
	return c.conn.WriteMessage(websocket.TextMessage, payload)
}

// Hub fans view snapshots out to every attached bridge client.
type Hub struct {
	clients map[*websocket.Conn]*client
	mu      sync.RWMutex

	// broadcastMu orders broadcasts so the last one sent carries the newest view.
	broadcastMu sync.Mutex
}

// NewHub creates an empty hub.
func NewHub() *Hub {
	return &Hub{clients: make(map[*websocket.Conn]*client)}
}

// AddClient registers a websocket connection.
func (h *Hub) AddClient(conn *websocket.Conn, info ConnInfo) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.clients[conn] = &client{conn: conn, info: info}
}

// RemoveClient forgets conn. It reports whether conn was registered.
func (h *Hub) RemoveClient(conn *websocket.Conn) bool {
	h.mu.Lock()
	defer h.mu.Unlock()
	if _, ok := h.clients[conn]; !ok {
		return false
	}
	delete(h.clients, conn)
	return true
}

func (h *Hub) Count() int {
	h.mu.RLock()
	defer h.mu.RUnlock()
	return len(h.clients)
}

// Attach registers conn and sends it the current view. Holding the broadcast
// lock keeps the first snapshot from overtaking a newer broadcast.
func (h *Hub) Attach(conn *websocket.Conn, info ConnInfo, snapshot func() models.View) error {
	h.broadcastMu.Lock()
	defer h.broadcastMu.Unlock()
	h.AddClient(conn, info)
	return h.SendView(conn, snapshot())
}

// SendView writes view to a single registered connection.
func (h *Hub) SendView(conn *websocket.Conn, view models.View) error {
	h.mu.RLock()
	c, ok := h.clients[conn]
	h.mu.RUnlock()
	if !ok {
		return nil
	}
	payload, err := encodeView(view)
	if err != nil {
		return err
	}
	return c.write(payload)
}

// BroadcastView sends view to all clients. Clients that fail are dropped.
func (h *Hub) BroadcastView(view models.View) {
	payload, err := encodeView(view)
	if err != nil {
		log := observability.Logger()
		log.Error().Err(err).Msg("encode view failed")
		return
	}

	h.mu.RLock()
	clients := make([]*client, 0, len(h.clients))
	for _, c := range h.clients {
		clients = append(clients, c)
	}
	h.mu.RUnlock()

	for _, c := range clients {
		if err := c.write(payload); err != nil {
			log := observability.Logger()
			log.Warn().Err(err).Str("conn_id", c.info.ConnID).Msg("websocket write error")
			c.conn.Close()
			if h.RemoveClient(c.conn) {
				publishConnEvent(context.Background(), c.info, "ws_error", err.Error())
			}
		}
	}
}

// BroadcastLatest broadcasts whatever snapshot returns at the time the hub gets
// to it. Concurrent callers are serialized, so clients always end on the newest
// state even when change notifications race.
func (h *Hub) BroadcastLatest(snapshot func() models.View) {
	h.broadcastMu.Lock()
	defer h.broadcastMu.Unlock()
	if h.Count() == 0 {
		return
	}
	h.BroadcastView(snapshot())
}

// CloseAll disconnects every client.
func (h *Hub) CloseAll() {
	h.mu.Lock()
	clients := h.clients
	h.clients = make(map[*websocket.Conn]*client)
	h.mu.Unlock()

	for conn, c := range clients {
		c.mu.Lock()
		_ = conn.WriteControl(websocket.CloseMessage,
			websocket.FormatCloseMessage(websocket.CloseGoingAway, "shutting down"),
			time.Now().Add(time.Second))
		c.mu.Unlock()
		conn.Close()
	}
}

func encodeView(view models.View) ([]byte, error) {
	return json.Marshal(models.BridgeEvent{Type: "state", View: &view})
}
