package calsync

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmhive/taskmirror/internal/events"
)

func TestSyncEventHandler_SyncTask(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	task := f.oneOff(t, "File taxes", "2026-09-10", "14:00")
	o := newOrchestrator(f, OrchestratorConfig{})
	handler := NewSyncEventHandler(f.engine, o, nil)

	event, err := events.NewSyncRequestEvent(
		events.EventTypeSyncTask, TaskEventPayload{TaskID: task.ID.String()})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Equal(t, 1, f.client.CreateEventCalls)
}

func TestSyncEventHandler_UnsyncInstance(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	_, inst := f.recurringWithInstance(t, "Morning run", "07:00", "2026-09-02")
	o := newOrchestrator(f, OrchestratorConfig{})
	handler := NewSyncEventHandler(f.engine, o, nil)

	require.NoError(t, f.engine.SyncInstance(context.Background(), inst.ID))
	require.Len(t, f.records.All(), 1)

	event, err := events.NewSyncRequestEvent(
		events.EventTypeUnsyncInstance, InstanceEventPayload{InstanceID: inst.ID.String()})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Empty(t, f.records.All())
	assert.Empty(t, f.client.Events)
}

func TestSyncEventHandler_BulkSync(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.oneOff(t, "File taxes", "2026-09-10", "14:00")
	o := newOrchestrator(f, OrchestratorConfig{})
	handler := NewSyncEventHandler(f.engine, o, nil)

	event, err := events.NewSyncRequestEvent(
		events.EventTypeBulkSync, BulkEventPayload{UserID: f.userID.String()})
	require.NoError(t, err)

	require.NoError(t, handler.HandleEvent(context.Background(), event))
	o.Wait()

	assert.Equal(t, 1, f.client.CreateEventCalls)
}

func TestSyncEventHandler_InvalidPayload(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	o := newOrchestrator(f, OrchestratorConfig{})
	handler := NewSyncEventHandler(f.engine, o, nil)

	event, err := events.NewSyncRequestEvent(
		events.EventTypeSyncTask, TaskEventPayload{TaskID: "not-a-uuid"})
	require.NoError(t, err)

	assert.Error(t, handler.HandleEvent(context.Background(), event))
}

func TestSyncEventHandler_UnknownTypeIgnored(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	o := newOrchestrator(f, OrchestratorConfig{})
	handler := NewSyncEventHandler(f.engine, o, nil)

	event, err := events.NewSyncRequestEvent("somebody_elses_event", struct{}{})
	require.NoError(t, err)

	assert.NoError(t, handler.HandleEvent(context.Background(), event))
	assert.Equal(t, 0, f.client.TotalCalls())
}
