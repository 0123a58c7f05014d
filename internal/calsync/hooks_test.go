package calsync

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/events"
)

// capturingEmitter records emitted events and signals arrival, since hooks
// dispatch on a detached goroutine.
type capturingEmitter struct {
	mu     sync.Mutex
	events []*events.SyncRequestEvent
	got    chan struct{}
}

func newCapturingEmitter(expected int) *capturingEmitter {
	return &capturingEmitter{got: make(chan struct{}, expected)}
}

func (c *capturingEmitter) EmitEvent(ctx context.Context, event *events.SyncRequestEvent) error {
	c.mu.Lock()
	c.events = append(c.events, event)
	c.mu.Unlock()
	c.got <- struct{}{}
	return nil
}

func (c *capturingEmitter) wait(t *testing.T, n int) []*events.SyncRequestEvent {
	t.Helper()
	for i := 0; i < n; i++ {
		select {
		case <-c.got:
		case <-time.After(2 * time.Second):
			t.Fatal("timed out waiting for emitted event")
		}
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	out := make([]*events.SyncRequestEvent, len(c.events))
	copy(out, c.events)
	return out
}

func TestHooks_TaskLifecycle(t *testing.T) {
	t.Parallel()

	emitter := newCapturingEmitter(3)
	hooks := NewHooks(emitter, nil)

	task, err := domain.NewTask(uuid.New(), "Water plants")
	require.NoError(t, err)

	hooks.OnTaskCreated(task)
	hooks.OnTaskUpdated(task)
	hooks.OnTaskDeleted(task.ID)

	got := emitter.wait(t, 3)
	types := make(map[string]int)
	for _, e := range got {
		types[e.Type]++

		var payload TaskEventPayload
		require.NoError(t, e.UnmarshalPayload(&payload))
		assert.Equal(t, task.ID.String(), payload.TaskID)
	}
	assert.Equal(t, 2, types[events.EventTypeSyncTask])
	assert.Equal(t, 1, types[events.EventTypeUnsyncTask])
}

func TestHooks_InstanceLifecycle(t *testing.T) {
	t.Parallel()

	emitter := newCapturingEmitter(4)
	hooks := NewHooks(emitter, nil)

	inst, err := domain.NewTaskInstance(uuid.New(), uuid.New(),
		time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	hooks.OnInstanceCompleted(inst)
	hooks.OnInstanceSkipped(inst)
	hooks.OnInstanceScheduled(inst)
	hooks.OnInstanceDeleted(inst.ID)

	got := emitter.wait(t, 4)
	types := make(map[string]int)
	for _, e := range got {
		types[e.Type]++
	}
	assert.Equal(t, 3, types[events.EventTypeSyncInstance])
	assert.Equal(t, 1, types[events.EventTypeUnsyncInstance])
}

func TestHooks_RequestBulkSync(t *testing.T) {
	t.Parallel()

	emitter := newCapturingEmitter(1)
	hooks := NewHooks(emitter, nil)
	userID := uuid.New()

	hooks.RequestBulkSync(userID)

	got := emitter.wait(t, 1)
	require.Len(t, got, 1)
	assert.Equal(t, events.EventTypeBulkSync, got[0].Type)

	var payload BulkEventPayload
	require.NoError(t, got[0].UnmarshalPayload(&payload))
	assert.Equal(t, userID.String(), payload.UserID)
}

// panickingEmitter always panics on emit.
type panickingEmitter struct{}

func (panickingEmitter) EmitEvent(context.Context, *events.SyncRequestEvent) error {
	panic("emitter exploded")
}

func TestHooks_EmitPanicDoesNotPropagate(t *testing.T) {
	t.Parallel()

	hooks := NewHooks(panickingEmitter{}, nil)
	task, err := domain.NewTask(uuid.New(), "Water plants")
	require.NoError(t, err)

	// The hook returns immediately; the panic happens on the detached
	// goroutine and must be swallowed there.
	assert.NotPanics(t, func() {
		hooks.OnTaskCreated(task)
		time.Sleep(50 * time.Millisecond)
	})
}
