package calsync

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/events"
	"github.com/calmhive/taskmirror/internal/platform/logger"
)

// SyncEventHandler implements events.EventHandler, translating sync request
// events into engine and orchestrator calls. Single-item operations run
// inline on the (already detached) emit goroutine; bulk requests go through
// the orchestrator's per-user exclusion.
type SyncEventHandler struct {
	engine       *Engine
	orchestrator *Orchestrator
	logger       *slog.Logger
}

// NewSyncEventHandler creates an event handler wired to the given engine
// and orchestrator. If logger is nil, a default logger will be used.
func NewSyncEventHandler(engine *Engine, orchestrator *Orchestrator, log *slog.Logger) *SyncEventHandler {
	if engine == nil {
		panic("engine cannot be nil")
	}
	if orchestrator == nil {
		panic("orchestrator cannot be nil")
	}
	if log == nil {
		log = slog.Default()
	}
	return &SyncEventHandler{
		engine:       engine,
		orchestrator: orchestrator,
		logger:       log.With(slog.String("component", "sync_event_handler")),
	}
}

// Ensure SyncEventHandler implements events.EventHandler
var _ events.EventHandler = (*SyncEventHandler)(nil)

// HandleEvent processes one sync request event. Unknown event types are
// ignored so other handlers can own them.
func (h *SyncEventHandler) HandleEvent(ctx context.Context, event *events.SyncRequestEvent) error {
	ctx = logger.WithLogger(ctx, h.logger.With(slog.String("event_id", event.ID.String())))

	switch event.Type {
	case events.EventTypeSyncTask:
		id, err := h.taskID(event)
		if err != nil {
			return err
		}
		return h.engine.SyncTask(ctx, id)

	case events.EventTypeUnsyncTask:
		id, err := h.taskID(event)
		if err != nil {
			return err
		}
		return h.engine.UnsyncTask(ctx, id)

	case events.EventTypeSyncInstance:
		id, err := h.instanceID(event)
		if err != nil {
			return err
		}
		return h.engine.SyncInstance(ctx, id)

	case events.EventTypeUnsyncInstance:
		id, err := h.instanceID(event)
		if err != nil {
			return err
		}
		return h.engine.UnsyncInstance(ctx, id)

	case events.EventTypeBulkSync:
		var payload BulkEventPayload
		if err := event.UnmarshalPayload(&payload); err != nil {
			return fmt.Errorf("failed to unmarshal payload: %w", err)
		}
		userID, err := uuid.Parse(payload.UserID)
		if err != nil {
			return fmt.Errorf("invalid user ID: %w", err)
		}
		h.orchestrator.TriggerBulkSync(userID)
		return nil

	default:
		h.logger.Debug("ignoring event with unsupported type",
			"event_type", event.Type, "event_id", event.ID)
		return nil
	}
}

func (h *SyncEventHandler) taskID(event *events.SyncRequestEvent) (uuid.UUID, error) {
	var payload TaskEventPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return uuid.Nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	id, err := uuid.Parse(payload.TaskID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid task ID: %w", err)
	}
	return id, nil
}

func (h *SyncEventHandler) instanceID(event *events.SyncRequestEvent) (uuid.UUID, error) {
	var payload InstanceEventPayload
	if err := event.UnmarshalPayload(&payload); err != nil {
		return uuid.Nil, fmt.Errorf("failed to unmarshal payload: %w", err)
	}
	id, err := uuid.Parse(payload.InstanceID)
	if err != nil {
		return uuid.Nil, fmt.Errorf("invalid instance ID: %w", err)
	}
	return id, nil
}
