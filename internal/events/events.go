package events

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
)

// Event types understood by the sync layer.
const (
	// EventTypeSyncTask requests a single-item sync of one task.
	EventTypeSyncTask = "sync_task"

	// EventTypeSyncInstance requests a single-item sync of one task instance.
	EventTypeSyncInstance = "sync_instance"

	// EventTypeUnsyncTask requests removal of a deleted task's external event.
	EventTypeUnsyncTask = "unsync_task"

	// EventTypeUnsyncInstance requests removal of a deleted instance's
	// external event.
	EventTypeUnsyncInstance = "unsync_instance"

	// EventTypeBulkSync requests a full reconciliation pass for a user.
	EventTypeBulkSync = "bulk_sync"
)

// SyncRequestEvent represents a request for background sync work. It carries
// the necessary information for dispatch without direct dependencies on the
// sync package.
type SyncRequestEvent struct {
	// ID is a unique identifier for this event
	ID uuid.UUID `json:"id"`

	// Type indicates what kind of sync work is requested
	Type string `json:"type"`

	// Payload contains the event-specific data serialized as JSON
	Payload json.RawMessage `json:"payload"`

	// CreatedAt is the timestamp when the event was created
	CreatedAt time.Time `json:"created_at"`
}

// UnmarshalPayload decodes the event payload into the provided structure.
func (e *SyncRequestEvent) UnmarshalPayload(v interface{}) error {
	return json.Unmarshal(e.Payload, v)
}

// NewSyncRequestEvent creates a new SyncRequestEvent with the specified type
// and payload.
func NewSyncRequestEvent(eventType string, payload interface{}) (*SyncRequestEvent, error) {
	payloadBytes, err := json.Marshal(payload)
	if err != nil {
		return nil, err
	}

	return &SyncRequestEvent{
		ID:        uuid.New(),
		Type:      eventType,
		Payload:   payloadBytes,
		CreatedAt: time.Now(),
	}, nil
}

// EventHandler defines an interface for components that can handle events.
// Handlers are responsible for processing events and taking appropriate actions.
type EventHandler interface {
	// HandleEvent processes the given event within the provided context.
	// Returns an error if the event cannot be handled successfully.
	HandleEvent(ctx context.Context, event *SyncRequestEvent) error
}

// EventEmitter defines an interface for components that can emit events.
// This allows mutation code paths to publish events without direct knowledge
// of handlers.
type EventEmitter interface {
	// EmitEvent publishes the given event to all registered handlers.
	// Returns an error if the event cannot be emitted.
	EmitEvent(ctx context.Context, event *SyncRequestEvent) error
}
