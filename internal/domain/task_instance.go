package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// InstanceStatus represents the lifecycle state of a task instance.
type InstanceStatus string

// Possible instance status values.
const (
	InstanceStatusPending   InstanceStatus = "pending"
	InstanceStatusCompleted InstanceStatus = "completed"
	InstanceStatusSkipped   InstanceStatus = "skipped"
)

// Instance-specific validation errors
var (
	// ErrInstanceIDEmpty is returned when an instance ID is empty or nil.
	ErrInstanceIDEmpty = errors.New("instance ID cannot be empty")

	// ErrInstanceUserIDEmpty is returned when an instance's user ID is empty or nil.
	ErrInstanceUserIDEmpty = errors.New("instance user ID cannot be empty")

	// ErrInstanceTaskIDEmpty is returned when an instance's task ID is empty or nil.
	ErrInstanceTaskIDEmpty = errors.New("instance task ID cannot be empty")

	// ErrInstanceDateEmpty is returned when an instance has no instance date.
	ErrInstanceDateEmpty = errors.New("instance date cannot be zero")

	// ErrInstanceStatusInvalid is returned when an instance's status is not
	// one of the defined InstanceStatus values.
	ErrInstanceStatusInvalid = errors.New("instance status is invalid")
)

// TaskInstance is one concrete occurrence materialized from a recurring
// task's rule. InstanceDate is the calendar date the occurrence belongs to
// and never changes after materialization; ScheduledAt, when set, is a slot
// the user pinned explicitly and may fall on a different day. At most one
// instance exists per (TaskID, InstanceDate).
type TaskInstance struct {
	ID           uuid.UUID      `json:"id"`
	UserID       uuid.UUID      `json:"user_id"`
	TaskID       uuid.UUID      `json:"task_id"`
	InstanceDate time.Time      `json:"instance_date"`
	ScheduledAt  *time.Time     `json:"scheduled_at,omitempty"`
	Status       InstanceStatus `json:"status"`
	CompletedAt  *time.Time     `json:"completed_at,omitempty"`
	CreatedAt    time.Time      `json:"created_at"`
}

// NewTaskInstance creates a new pending TaskInstance for the given task and
// date. The date is truncated to midnight UTC so instance dates compare
// cleanly regardless of how the caller constructed them.
// Returns an error if validation fails.
func NewTaskInstance(userID, taskID uuid.UUID, date time.Time) (*TaskInstance, error) {
	inst := &TaskInstance{
		ID:           uuid.New(),
		UserID:       userID,
		TaskID:       taskID,
		InstanceDate: DateOnly(date),
		Status:       InstanceStatusPending,
		CreatedAt:    time.Now().UTC(),
	}

	if err := inst.Validate(); err != nil {
		return nil, err
	}

	return inst, nil
}

// Validate checks if the TaskInstance has valid data.
// Returns an error if any field fails validation.
func (i *TaskInstance) Validate() error {
	if i.ID == uuid.Nil {
		return ErrInstanceIDEmpty
	}

	if i.UserID == uuid.Nil {
		return ErrInstanceUserIDEmpty
	}

	if i.TaskID == uuid.Nil {
		return ErrInstanceTaskIDEmpty
	}

	if i.InstanceDate.IsZero() {
		return ErrInstanceDateEmpty
	}

	switch i.Status {
	case InstanceStatusPending, InstanceStatusCompleted, InstanceStatusSkipped:
	default:
		return ErrInstanceStatusInvalid
	}

	return nil
}

// DateOnly truncates t to midnight UTC, keeping only the calendar date.
func DateOnly(t time.Time) time.Time {
	y, m, d := t.UTC().Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}
