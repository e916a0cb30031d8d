package ws

import (
	"context"
	"time"

	"github.com/google/uuid"

	"messaging-sync/internal/observability"
)

const wsRoutingKey = "ws_events.bridge"

func newConnID() string {
	return uuid.NewString()
}

// publishConnEvent reports a connection lifecycle event for info.
func publishConnEvent(ctx context.Context, info ConnInfo, event, reason string) {
	observability.IncWSEvent(event)
	payload := map[string]interface{}{
		"ws": map[string]interface{}{
			"kind":        "bridge",
			"event":       event,
			"conn_id":     info.ConnID,
			"duration_ms": time.Since(info.ConnectedAt).Milliseconds(),
			"reason":      reason,
		},
		"identity": map[string]interface{}{
			"client_id": info.ClientID,
			"ip":        info.IP,
		},
	}
	_ = observability.PublishEvent(ctx, wsRoutingKey, observability.EventEnvelope{
		EventType: "ws_events",
		EventName: event,
		Payload:   payload,
	}, observability.BuildHeaders(info.RequestID, info.TraceID))
}
