package domain

import (
	"errors"
	"time"

	"github.com/google/uuid"
)

// TaskStatus represents the lifecycle state of a task.
type TaskStatus string

// Possible task status values.
const (
	TaskStatusPending   TaskStatus = "pending"
	TaskStatusCompleted TaskStatus = "completed"
	TaskStatusArchived  TaskStatus = "archived"
	TaskStatusDeleted   TaskStatus = "deleted"
)

// Task-specific validation errors
var (
	// ErrTaskIDEmpty is returned when a task ID is empty or nil.
	ErrTaskIDEmpty = errors.New("task ID cannot be empty")

	// ErrTaskUserIDEmpty is returned when a task's user ID is empty or nil.
	ErrTaskUserIDEmpty = errors.New("task user ID cannot be empty")

	// ErrTaskTitleEmpty is returned when a task's title is empty.
	ErrTaskTitleEmpty = errors.New("task title cannot be empty")

	// ErrTaskStatusInvalid is returned when a task's status is not one of
	// the defined TaskStatus values.
	ErrTaskStatusInvalid = errors.New("task status is invalid")

	// ErrRecurringTaskWithParent is returned when a recurring task also has
	// a parent container. A task participates in exactly one of the two
	// hierarchies: recurrence or containment.
	ErrRecurringTaskWithParent = errors.New("recurring task cannot have a parent container")

	// ErrRecurringTaskMissingRule is returned when a task is flagged as
	// recurring but carries no recurrence rule.
	ErrRecurringTaskMissingRule = errors.New("recurring task must have a recurrence rule")
)

// Task represents a user's task. A task is either a one-off item (optionally
// scheduled at a concrete date and time), a recurring template that the
// materialization engine expands into TaskInstances, or a container for
// child tasks. A container cannot be recurring and a recurring task cannot
// have children.
type Task struct {
	ID              uuid.UUID       `json:"id"`
	UserID          uuid.UUID       `json:"user_id"`
	Title           string          `json:"title"`
	Description     string          `json:"description,omitempty"`
	ParentID        *uuid.UUID      `json:"parent_id,omitempty"`
	IsRecurring     bool            `json:"is_recurring"`
	Recurrence      *RecurrenceRule `json:"recurrence,omitempty"`
	ScheduledDate   *time.Time      `json:"scheduled_date,omitempty"`
	ScheduledTime   *string         `json:"scheduled_time,omitempty"`
	DurationMinutes *int            `json:"duration_minutes,omitempty"`
	Status          TaskStatus      `json:"status"`
	Encrypted       bool            `json:"encrypted"`
	CreatedAt       time.Time       `json:"created_at"`
	UpdatedAt       time.Time       `json:"updated_at"`
}

// NewTask creates a new pending Task owned by the given user.
// It generates a new UUID for the task ID and sets the creation/update
// timestamps. Returns an error if validation fails.
func NewTask(userID uuid.UUID, title string) (*Task, error) {
	now := time.Now().UTC()
	task := &Task{
		ID:        uuid.New(),
		UserID:    userID,
		Title:     title,
		Status:    TaskStatusPending,
		CreatedAt: now,
		UpdatedAt: now,
	}

	if err := task.Validate(); err != nil {
		return nil, err
	}

	return task, nil
}

// Validate checks if the Task has valid data.
// Returns an error if any field fails validation.
func (t *Task) Validate() error {
	if t.ID == uuid.Nil {
		return ErrTaskIDEmpty
	}

	if t.UserID == uuid.Nil {
		return ErrTaskUserIDEmpty
	}

	if t.Title == "" {
		return ErrTaskTitleEmpty
	}

	switch t.Status {
	case TaskStatusPending, TaskStatusCompleted, TaskStatusArchived, TaskStatusDeleted:
	default:
		return ErrTaskStatusInvalid
	}

	if t.IsRecurring {
		if t.ParentID != nil {
			return ErrRecurringTaskWithParent
		}
		if t.Recurrence == nil {
			return ErrRecurringTaskMissingRule
		}
		if err := t.Recurrence.Validate(); err != nil {
			return err
		}
	}

	return nil
}

// HasSchedule reports whether the task carries a concrete date and time,
// which is the precondition for mirroring it to the external calendar.
func (t *Task) HasSchedule() bool {
	return t.ScheduledDate != nil && t.ScheduledTime != nil
}
