package ws

import (
	"net/http/httptest"
	"strings"
	"sync/atomic"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"messaging-sync/internal/models"
)

func startBridge(t *testing.T, hub *Hub, snapshot func() models.View) string {
	t.Helper()
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/ws", NewBridgeWebSocketHandler(hub, snapshot).Handle)
	srv := httptest.NewServer(r)
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http") + "/ws"
}

func dial(t *testing.T, url string) *websocket.Conn {
	t.Helper()
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	t.Cleanup(func() { conn.Close() })
	return conn
}

func readEvent(t *testing.T, conn *websocket.Conn) models.BridgeEvent {
	t.Helper()
	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	var event models.BridgeEvent
	require.NoError(t, conn.ReadJSON(&event))
	return event
}

func TestHubAddAndRemoveClient(t *testing.T) {
	hub := NewHub()

	hub.AddClient(nil, ConnInfo{ConnID: "c1"})
	assert.Equal(t, 1, hub.Count())

	assert.True(t, hub.RemoveClient(nil))
	assert.False(t, hub.RemoveClient(nil))
	assert.Equal(t, 0, hub.Count())
}

func TestClientReceivesInitialAndBroadcastViews(t *testing.T) {
	hub := NewHub()
	url := startBridge(t, hub, func() models.View { return models.View{TotalUnread: 3} })

	conn := dial(t, url)
	event := readEvent(t, conn)
	assert.Equal(t, "state", event.Type)
	require.NotNil(t, event.View)
	assert.Equal(t, 3, event.View.TotalUnread)

	require.Eventually(t, func() bool { return hub.Count() == 1 }, time.Second, 5*time.Millisecond)
	hub.BroadcastView(models.View{ActiveConversationID: 8, Cursor: 21})

	event = readEvent(t, conn)
	assert.Equal(t, int64(8), event.View.ActiveConversationID)
	assert.Equal(t, int64(21), event.View.Cursor)
}

func TestBroadcastLatestUsesCurrentSnapshot(t *testing.T) {
	hub := NewHub()
	var cursor atomic.Int64
	snapshot := func() models.View { return models.View{Cursor: cursor.Load()} }
	url := startBridge(t, hub, snapshot)

	conn := dial(t, url)
	readEvent(t, conn)

	cursor.Store(50)
	hub.BroadcastLatest(snapshot)
	assert.Equal(t, int64(50), readEvent(t, conn).View.Cursor)
}

func TestBroadcastLatestWithoutClientsSkipsSnapshot(t *testing.T) {
	hub := NewHub()
	called := false
	hub.BroadcastLatest(func() models.View {
		called = true
		return models.View{}
	})
	assert.False(t, called)
}

func TestDisconnectRemovesClient(t *testing.T) {
	hub := NewHub()
	url := startBridge(t, hub, func() models.View { return models.View{} })

	conn := dial(t, url)
	readEvent(t, conn)
	require.Equal(t, 1, hub.Count())

	require.NoError(t, conn.WriteMessage(websocket.CloseMessage,
		websocket.FormatCloseMessage(websocket.CloseNormalClosure, "bye")))
	require.Eventually(t, func() bool { return hub.Count() == 0 }, 2*time.Second, 5*time.Millisecond)
}

func TestCloseAllDisconnectsClients(t *testing.T) {
	hub := NewHub()
	url := startBridge(t, hub, func() models.View { return models.View{} })

	conn := dial(t, url)
	readEvent(t, conn)

	hub.CloseAll()
	assert.Equal(t, 0, hub.Count())

	require.NoError(t, conn.SetReadDeadline(time.Now().Add(2*time.Second)))
	_, _, err := conn.ReadMessage()
	assert.True(t, websocket.IsCloseError(err, websocket.CloseGoingAway))
}

func TestBroadcastDropsClientOnWriteError(t *testing.T) {
	hub := NewHub()
	url := startBridge(t, hub, func() models.View { return models.View{} })

	conn := dial(t, url)
	readEvent(t, conn)

	hub.mu.RLock()
	for serverConn := range hub.clients {
		serverConn.Close()
	}
	hub.mu.RUnlock()

	hub.BroadcastView(models.View{Cursor: 1})
	assert.Equal(t, 0, hub.Count())
}
