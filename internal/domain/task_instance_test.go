package domain

import (
	"errors"
	"testing"
	"time"

	"github.com/google/uuid"
)

func TestNewTaskInstance(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	taskID := uuid.New()
	date := time.Date(2026, 9, 3, 14, 27, 9, 0, time.FixedZone("CEST", 2*3600))

	inst, err := NewTaskInstance(userID, taskID, date)
	if err != nil {
		t.Fatalf("Expected no error, got %v", err)
	}

	if inst.Status != InstanceStatusPending {
		t.Errorf("Expected status %s, got %s", InstanceStatusPending, inst.Status)
	}

	want := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)
	if !inst.InstanceDate.Equal(want) {
		t.Errorf("Expected instance date truncated to %v, got %v", want, inst.InstanceDate)
	}

	_, err = NewTaskInstance(uuid.Nil, taskID, date)
	if !errors.Is(err, ErrInstanceUserIDEmpty) {
		t.Errorf("Expected error %v, got %v", ErrInstanceUserIDEmpty, err)
	}

	_, err = NewTaskInstance(userID, uuid.Nil, date)
	if !errors.Is(err, ErrInstanceTaskIDEmpty) {
		t.Errorf("Expected error %v, got %v", ErrInstanceTaskIDEmpty, err)
	}
}

func TestTaskInstanceValidate(t *testing.T) {
	t.Parallel()

	inst := &TaskInstance{
		ID:           uuid.New(),
		UserID:       uuid.New(),
		TaskID:       uuid.New(),
		InstanceDate: time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC),
		Status:       InstanceStatusCompleted,
	}
	if err := inst.Validate(); err != nil {
		t.Fatalf("Expected valid instance, got %v", err)
	}

	inst.Status = "cancelled"
	if err := inst.Validate(); !errors.Is(err, ErrInstanceStatusInvalid) {
		t.Errorf("Expected error %v, got %v", ErrInstanceStatusInvalid, err)
	}

	inst.Status = InstanceStatusPending
	inst.InstanceDate = time.Time{}
	if err := inst.Validate(); !errors.Is(err, ErrInstanceDateEmpty) {
		t.Errorf("Expected error %v, got %v", ErrInstanceDateEmpty, err)
	}
}

func TestDateOnly(t *testing.T) {
	t.Parallel()

	// A late-evening local time east of UTC may fall on a different UTC date.
	loc := time.FixedZone("UTC+9", 9*3600)
	in := time.Date(2026, 9, 4, 1, 30, 0, 0, loc)

	got := DateOnly(in)
	want := time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC)
	if !got.Equal(want) {
		t.Errorf("Expected %v, got %v", want, got)
	}
}
