package telemetry

import (
	"context"
	"time"

	"messaging-sync/internal/observability"
)

// Event names emitted by the sync engine.
const (
	EventMessageConfirmed     = "sync.message_confirmed"
	EventMessageRolledBack    = "sync.message_rolled_back"
	EventConversationSwitched = "sync.conversation_switched"
	EventAuditTest            = "sync.audit_test"
)

type Publisher interface {
	Publish(ctx context.Context, routingKey string, event any, headers map[string]string) error
}

// EventEmitter turns engine events into broker envelopes.
type EventEmitter struct {
	publisher   Publisher
	routingKey  string
	service     string
	environment string
	now         func() time.Time
}

type SyncEnvelope struct {
	SchemaVersion  int    `json:"schema_version"`
	EventType      string `json:"event_type"`
	OccurredAt     string `json:"occurred_at"`
	Service        string `json:"service"`
	Environment    string `json:"environment"`
	RequestID      string `json:"request_id,omitempty"`
	ConversationID int64  `json:"conversation_id,omitempty"`
	Detail         string `json:"detail,omitempty"`
}

func NewEventEmitter(publisher Publisher, routingKey, service, environment string) *EventEmitter {
	return &EventEmitter{
		publisher:   publisher,
		routingKey:  routingKey,
		service:     service,
		environment: environment,
		now:         time.Now,
	}
}

// RecordSyncEvent publishes one event. Publish failures are logged and dropped.
func (e *EventEmitter) RecordSyncEvent(ctx context.Context, name string, conversationID int64, detail string) {
	if e == nil || e.publisher == nil {
		return
	}

	requestID := observability.RequestIDFromContext(ctx)
	envelope := SyncEnvelope{
		SchemaVersion:  1,
		EventType:      name,
		OccurredAt:     e.now().UTC().Format(time.RFC3339Nano),
		Service:        e.service,
		Environment:    e.environment,
		RequestID:      requestID,
		ConversationID: conversationID,
		Detail:         detail,
	}

	if err := e.publisher.Publish(ctx, e.routingKey, envelope, observability.BuildHeaders(requestID, "")); err != nil {
		observability.IncAMQPPublishError()
		log := observability.LoggerFromContext(ctx)
		log.Warn().Err(err).Str("event_type", name).Msg("sync event publish failed")
	}
}
