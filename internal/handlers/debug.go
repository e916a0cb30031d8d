package handlers

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"

	"messaging-sync/internal/telemetry"
)

// SyncEventRecorder is satisfied by telemetry.EventEmitter.
type SyncEventRecorder interface {
	RecordSyncEvent(ctx context.Context, name string, conversationID int64, detail string)
}

// RegisterDebugRoutes wires debug-only endpoints.
func RegisterDebugRoutes(router gin.IRoutes, recorder SyncEventRecorder, engine SyncEngine, enabled bool) {
	if !enabled {
		return
	}

	router.GET("/debug/audit-test", func(c *gin.Context) {
		if recorder == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "event emitter not configured"})
			return
		}
		var conversationID int64
		if engine != nil {
			conversationID = engine.Snapshot().ActiveConversationID
		}
		recorder.RecordSyncEvent(auditContext(c), telemetry.EventAuditTest, conversationID, "client_id="+clientIDFromContext(c))
		c.JSON(http.StatusOK, gin.H{"status": "ok", "request_id": requestIDFromContext(c)})
	})
}
