package ws

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"go.opentelemetry.io/otel"

	"messaging-sync/internal/models"
	"messaging-sync/internal/observability"
)

// BridgeWebSocketHandler attaches UI clients to the hub. Each client gets the
// current view on connect and every later snapshot the hub broadcasts.
type BridgeWebSocketHandler struct {
	hub      *Hub
	snapshot func() models.View
}

// NewBridgeWebSocketHandler constructs a BridgeWebSocketHandler.
func NewBridgeWebSocketHandler(hub *Hub, snapshot func() models.View) *BridgeWebSocketHandler {
	return &BridgeWebSocketHandler{hub: hub, snapshot: snapshot}
}

var upgrader = websocket.Upgrader{
	CheckOrigin: func(r *http.Request) bool { return true },
}

// Handle upgrades the connection and registers the client.
func (h *BridgeWebSocketHandler) Handle(c *gin.Context) {
	ctx, span := otel.Tracer("messaging-sync/ws").Start(c.Request.Context(), "ws.handshake")
	defer span.End()
	c.Request = c.Request.WithContext(ctx)

	conn, err := upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		return
	}
	info := ConnInfo{
		ConnID:      newConnID(),
		ClientID:    observability.ClientIDFromRequest(c.Request),
		IP:          observability.IPFromRequest(c.Request),
		RequestID:   observability.RequestIDFromRequest(c.Request),
		TraceID:     span.SpanContext().TraceID().String(),
		ConnectedAt: time.Now(),
	}
	observability.IncWSActive()
	publishConnEvent(ctx, info, "ws_connect", "")
	if err := h.hub.Attach(conn, info, h.snapshot); err != nil {
		log := observability.Logger()
		log.Warn().Err(err).Str("conn_id", info.ConnID).Msg("initial snapshot write failed")
	}

	// Keep connection alive and clean on close
	go func() {
		var closeReason string
		defer func() {
			h.hub.RemoveClient(conn)
			observability.DecWSActive()
			publishConnEvent(ctx, info, "ws_disconnect", closeReason)
			conn.Close()
		}()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				closeReason = err.Error()
				if !websocket.IsCloseError(err, websocket.CloseNormalClosure, websocket.CloseGoingAway) {
					publishConnEvent(ctx, info, "ws_error", closeReason)
				}
				return
			}
		}
	}()
}
