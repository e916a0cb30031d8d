package telemetry

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"messaging-sync/internal/mocks"
	"messaging-sync/internal/observability"
)

func TestRecordSyncEventPublishesEnvelope(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewEventEmitter(pub, "messaging.sync", "messaging-sync", "test")
	emitter.now = func() time.Time { return time.Date(2026, 1, 2, 3, 4, 5, 0, time.UTC) }

	var got SyncEnvelope
	pub.On("Publish", mock.Anything, "messaging.sync", mock.AnythingOfType("telemetry.SyncEnvelope"), map[string]string{"x-request-id": "req-1"}).
		Run(func(args mock.Arguments) { got = args.Get(2).(SyncEnvelope) }).
		Return(nil).Once()

	ctx := observability.WithRequestID(context.Background(), "req-1")
	emitter.RecordSyncEvent(ctx, EventMessageConfirmed, 7, "message_id=42")

	pub.AssertExpectations(t)
	require.Equal(t, EventMessageConfirmed, got.EventType)
	assert.Equal(t, 1, got.SchemaVersion)
	assert.Equal(t, int64(7), got.ConversationID)
	assert.Equal(t, "message_id=42", got.Detail)
	assert.Equal(t, "2026-01-02T03:04:05Z", got.OccurredAt)
	assert.Equal(t, "test", got.Environment)
}

func TestRecordSyncEventSwallowsPublishErrors(t *testing.T) {
	pub := new(mocks.PublisherMock)
	emitter := NewEventEmitter(pub, "messaging.sync", "messaging-sync", "test")
	pub.On("Publish", mock.Anything, mock.Anything, mock.Anything, mock.Anything).Return(assert.AnError).Once()

	assert.NotPanics(t, func() {
		emitter.RecordSyncEvent(context.Background(), EventMessageRolledBack, 1, "boom")
	})
	pub.AssertExpectations(t)
}

func TestNilEmitterIsNoop(t *testing.T) {
	var emitter *EventEmitter
	assert.NotPanics(t, func() {
		emitter.RecordSyncEvent(context.Background(), EventConversationSwitched, 1, "")
	})
}

func TestSetupTracingWithoutEndpoint(t *testing.T) {
	shutdown, err := SetupTracing(context.Background(), "", "messaging-sync", "test")
	require.NoError(t, err)
	assert.NoError(t, shutdown(context.Background()))
}
