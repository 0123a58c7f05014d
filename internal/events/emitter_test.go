package events

import (
	"context"
	"errors"
	"log/slog"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmhive/taskmirror/internal/platform/logger"
)

func newEmitterTestLogger() *slog.Logger {
	log, _ := logger.NewTestLogger()
	return log
}

type recordingHandler struct {
	events []*SyncRequestEvent
	err    error
}

func (h *recordingHandler) HandleEvent(ctx context.Context, event *SyncRequestEvent) error {
	h.events = append(h.events, event)
	return h.err
}

func TestNewSyncRequestEvent(t *testing.T) {
	t.Parallel()

	type payload struct {
		TaskID string `json:"task_id"`
	}
	event, err := NewSyncRequestEvent(EventTypeSyncTask, payload{TaskID: "t-1"})
	require.NoError(t, err)

	assert.Equal(t, EventTypeSyncTask, event.Type)
	assert.False(t, event.CreatedAt.IsZero())

	var decoded payload
	require.NoError(t, event.UnmarshalPayload(&decoded))
	assert.Equal(t, "t-1", decoded.TaskID)
}

func TestInMemoryEventEmitter_DispatchesToAllHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(newEmitterTestLogger())
	first := &recordingHandler{}
	second := &recordingHandler{}
	emitter.RegisterHandler(first)
	emitter.RegisterHandler(second)

	event, err := NewSyncRequestEvent(EventTypeBulkSync, struct{}{})
	require.NoError(t, err)

	require.NoError(t, emitter.EmitEvent(context.Background(), event))
	assert.Len(t, first.events, 1)
	assert.Len(t, second.events, 1)
}

func TestInMemoryEventEmitter_HandlerErrorDoesNotStopOthers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(newEmitterTestLogger())
	failing := &recordingHandler{err: errors.New("handler broke")}
	healthy := &recordingHandler{}
	emitter.RegisterHandler(failing)
	emitter.RegisterHandler(healthy)

	event, err := NewSyncRequestEvent(EventTypeSyncInstance, struct{}{})
	require.NoError(t, err)

	emitErr := emitter.EmitEvent(context.Background(), event)
	assert.ErrorIs(t, emitErr, failing.err)
	assert.Len(t, healthy.events, 1, "remaining handlers still receive the event")
}

func TestInMemoryEventEmitter_NoHandlers(t *testing.T) {
	t.Parallel()

	emitter := NewInMemoryEventEmitter(newEmitterTestLogger())
	event, err := NewSyncRequestEvent(EventTypeSyncTask, struct{}{})
	require.NoError(t, err)

	assert.NoError(t, emitter.EmitEvent(context.Background(), event))
}
