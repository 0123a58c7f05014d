package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// Sync-record validation errors
var (
	// ErrSyncRecordIDEmpty is returned when a sync record ID is empty or nil.
	ErrSyncRecordIDEmpty = errors.New("sync record ID cannot be empty")

	// ErrSyncRecordUserIDEmpty is returned when a sync record's user ID is empty or nil.
	ErrSyncRecordUserIDEmpty = errors.New("sync record user ID cannot be empty")

	// ErrSyncRecordTargetInvalid is returned when a sync record does not
	// reference exactly one of a task or a task instance.
	ErrSyncRecordTargetInvalid = errors.New(
		"sync record must reference exactly one of task or task instance")

	// ErrSyncRecordEventIDEmpty is returned when a sync record has no
	// external event ID.
	ErrSyncRecordEventIDEmpty = errors.New("sync record external event ID cannot be empty")

	// ErrSyncRecordHashEmpty is returned when a sync record has no change hash.
	ErrSyncRecordHashEmpty = errors.New("sync record change hash cannot be empty")
)

// SyncRecord links exactly one task or one task instance to the external
// calendar event that mirrors it, together with the change hash computed the
// last time the item was pushed. A record whose hash matches the item's
// current hash means the mirror is up to date and no API call is needed.
type SyncRecord struct {
	ID              uuid.UUID  `json:"id"`
	UserID          uuid.UUID  `json:"user_id"`
	TaskID          *uuid.UUID `json:"task_id,omitempty"`
	InstanceID      *uuid.UUID `json:"task_instance_id,omitempty"`
	ExternalEventID string     `json:"external_event_id"`
	ChangeHash      string     `json:"change_hash"`
	LastSyncedAt    time.Time  `json:"last_synced_at"`
}

// NewTaskSyncRecord creates a SyncRecord linking a one-off task to an
// external event. Returns an error if validation fails.
func NewTaskSyncRecord(userID, taskID uuid.UUID, eventID, hash string) (*SyncRecord, error) {
	rec := &SyncRecord{
		ID:              uuid.New(),
		UserID:          userID,
		TaskID:          &taskID,
		ExternalEventID: eventID,
		ChangeHash:      hash,
		LastSyncedAt:    time.Now().UTC(),
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// NewInstanceSyncRecord creates a SyncRecord linking a task instance to an
// external event. Returns an error if validation fails.
func NewInstanceSyncRecord(userID, instanceID uuid.UUID, eventID, hash string) (*SyncRecord, error) {
	rec := &SyncRecord{
		ID:              uuid.New(),
		UserID:          userID,
		InstanceID:      &instanceID,
		ExternalEventID: eventID,
		ChangeHash:      hash,
		LastSyncedAt:    time.Now().UTC(),
	}

	if err := rec.Validate(); err != nil {
		return nil, err
	}

	return rec, nil
}

// Validate checks if the SyncRecord has valid data.
// Returns an error if any field fails validation.
func (r *SyncRecord) Validate() error {
	if r.ID == uuid.Nil {
		return ErrSyncRecordIDEmpty
	}

	if r.UserID == uuid.Nil {
		return ErrSyncRecordUserIDEmpty
	}

	// Exactly one target, mirroring the database CHECK constraint.
	if (r.TaskID == nil) == (r.InstanceID == nil) {
		return ErrSyncRecordTargetInvalid
	}

	if r.ExternalEventID == "" {
		return ErrSyncRecordEventIDEmpty
	}

	if r.ChangeHash == "" {
		return ErrSyncRecordHashEmpty
	}

	return nil
}
