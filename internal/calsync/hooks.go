package calsync

import (
	"context"
	"log/slog"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/events"
)

// TaskEventPayload identifies the task a sync event refers to.
type TaskEventPayload struct {
	TaskID string `json:"task_id"`
}

// InstanceEventPayload identifies the instance a sync event refers to.
type InstanceEventPayload struct {
	InstanceID string `json:"task_instance_id"`
}

// BulkEventPayload identifies the user a bulk sync event refers to.
type BulkEventPayload struct {
	UserID string `json:"user_id"`
}

// Hooks is the fire-and-forget trigger surface the task-mutation code paths
// call. Every hook emits an event on a detached goroutine and returns
// immediately: a mutation request never blocks on, and never fails because
// of, calendar work. Failures inside the emit path are logged and swallowed.
type Hooks struct {
	emitter events.EventEmitter
	logger  *slog.Logger
}

// NewHooks creates the mutation hook surface.
// If logger is nil, a default logger will be used.
func NewHooks(emitter events.EventEmitter, logger *slog.Logger) *Hooks {
	if emitter == nil {
		panic("emitter cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	return &Hooks{
		emitter: emitter,
		logger:  logger.With(slog.String("component", "sync_hooks")),
	}
}

// OnTaskCreated triggers a single-item sync for a newly created task.
func (h *Hooks) OnTaskCreated(task *domain.Task) {
	h.emit(events.EventTypeSyncTask, TaskEventPayload{TaskID: task.ID.String()})
}

// OnTaskUpdated triggers a single-item sync for an updated task.
func (h *Hooks) OnTaskUpdated(task *domain.Task) {
	h.emit(events.EventTypeSyncTask, TaskEventPayload{TaskID: task.ID.String()})
}

// OnTaskDeleted triggers removal of a deleted task's external event.
func (h *Hooks) OnTaskDeleted(taskID uuid.UUID) {
	h.emit(events.EventTypeUnsyncTask, TaskEventPayload{TaskID: taskID.String()})
}

// OnInstanceCompleted triggers a single-item sync for a completed (or
// uncompleted) instance.
func (h *Hooks) OnInstanceCompleted(inst *domain.TaskInstance) {
	h.emit(events.EventTypeSyncInstance, InstanceEventPayload{InstanceID: inst.ID.String()})
}

// OnInstanceSkipped triggers a single-item sync for a skipped (or
// unskipped) instance.
func (h *Hooks) OnInstanceSkipped(inst *domain.TaskInstance) {
	h.emit(events.EventTypeSyncInstance, InstanceEventPayload{InstanceID: inst.ID.String()})
}

// OnInstanceScheduled triggers a single-item sync after an instance is
// rescheduled to a pinned slot.
func (h *Hooks) OnInstanceScheduled(inst *domain.TaskInstance) {
	h.emit(events.EventTypeSyncInstance, InstanceEventPayload{InstanceID: inst.ID.String()})
}

// OnInstanceDeleted triggers removal of a deleted instance's external event.
func (h *Hooks) OnInstanceDeleted(instanceID uuid.UUID) {
	h.emit(events.EventTypeUnsyncInstance, InstanceEventPayload{InstanceID: instanceID.String()})
}

// RequestBulkSync triggers a full reconciliation pass for the user, used by
// the materialization scheduler after a user's instance set changed.
func (h *Hooks) RequestBulkSync(userID uuid.UUID) {
	h.emit(events.EventTypeBulkSync, BulkEventPayload{UserID: userID.String()})
}

func (h *Hooks) emit(eventType string, payload interface{}) {
	event, err := events.NewSyncRequestEvent(eventType, payload)
	if err != nil {
		h.logger.Error("failed to build sync event",
			"event_type", eventType, "error", err)
		return
	}

	go func() {
		defer func() {
			if p := recover(); p != nil {
				h.logger.Error("sync event dispatch panicked",
					"event_type", eventType, "panic", p)
			}
		}()
		if err := h.emitter.EmitEvent(context.Background(), event); err != nil {
			h.logger.Error("sync event dispatch failed",
				"event_type", eventType, "event_id", event.ID, "error", err)
		}
	}()
}
