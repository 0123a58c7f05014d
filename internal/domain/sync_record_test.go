package domain

import (
	"errors"
	"testing"

	"github.com/google/uuid"
)

func TestNewTaskSyncRecord(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	taskID := uuid.New()

	rec, err := NewTaskSyncRecord(userID, taskID, "evt-1", "abc123")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.TaskID == nil || *rec.TaskID != taskID {
		t.Errorf("Expected task ID %s, got %v", taskID, rec.TaskID)
	}
	if rec.InstanceID != nil {
		t.Error("Expected nil instance ID on a task record")
	}
	if rec.LastSyncedAt.IsZero() {
		t.Error("Expected non-zero LastSyncedAt")
	}

	_, err = NewTaskSyncRecord(userID, taskID, "", "abc123")
	if !errors.Is(err, ErrSyncRecordEventIDEmpty) {
		t.Errorf("Expected error %v, got %v", ErrSyncRecordEventIDEmpty, err)
	}

	_, err = NewTaskSyncRecord(userID, taskID, "evt-1", "")
	if !errors.Is(err, ErrSyncRecordHashEmpty) {
		t.Errorf("Expected error %v, got %v", ErrSyncRecordHashEmpty, err)
	}
}

func TestNewInstanceSyncRecord(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	instanceID := uuid.New()

	rec, err := NewInstanceSyncRecord(userID, instanceID, "evt-2", "def456")
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if rec.InstanceID == nil || *rec.InstanceID != instanceID {
		t.Errorf("Expected instance ID %s, got %v", instanceID, rec.InstanceID)
	}
	if rec.TaskID != nil {
		t.Error("Expected nil task ID on an instance record")
	}
}

func TestSyncRecordValidateTarget(t *testing.T) {
	t.Parallel()

	taskID := uuid.New()
	instanceID := uuid.New()

	// Neither target set.
	rec := &SyncRecord{
		ID:              uuid.New(),
		UserID:          uuid.New(),
		ExternalEventID: "evt-1",
		ChangeHash:      "abc",
	}
	if err := rec.Validate(); !errors.Is(err, ErrSyncRecordTargetInvalid) {
		t.Errorf("Expected error %v, got %v", ErrSyncRecordTargetInvalid, err)
	}

	// Both targets set.
	rec.TaskID = &taskID
	rec.InstanceID = &instanceID
	if err := rec.Validate(); !errors.Is(err, ErrSyncRecordTargetInvalid) {
		t.Errorf("Expected error %v, got %v", ErrSyncRecordTargetInvalid, err)
	}

	// Exactly one target set.
	rec.InstanceID = nil
	if err := rec.Validate(); err != nil {
		t.Errorf("Expected no error, got %v", err)
	}
}
