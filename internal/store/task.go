package store

import (
	"context"
	"database/sql"
	"time"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
)

// TaskStore defines the interface for task data persistence.
type TaskStore interface {
	// Create saves a new task to the store.
	// Returns validation errors if the task data is invalid.
	Create(ctx context.Context, task *domain.Task) error

	// GetByID retrieves a task by its unique ID.
	// Returns ErrTaskNotFound if the task does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error)

	// Update modifies an existing task.
	// Returns ErrTaskNotFound if the task does not exist.
	Update(ctx context.Context, task *domain.Task) error

	// Delete removes a task from the store by its ID.
	// Returns ErrTaskNotFound if the task does not exist.
	//
	// Associated task instances and sync records are removed through
	// ON DELETE CASCADE foreign keys; application code does not delete
	// them explicitly.
	Delete(ctx context.Context, id uuid.UUID) error

	// ListPendingRecurring returns the user's pending recurring tasks,
	// the input set for one materialization pass.
	ListPendingRecurring(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	// ListSyncableOneOff returns the user's non-recurring, non-container,
	// unencrypted tasks that carry a concrete scheduled date and time.
	ListSyncableOneOff(ctx context.Context, userID uuid.UUID) ([]*domain.Task, error)

	// HasChildren reports whether any task names the given task as its
	// parent. Containers are never mirrored to the calendar and can never
	// become recurring.
	HasChildren(ctx context.Context, id uuid.UUID) (bool, error)

	// ListUserIDsWithPendingRecurring returns the IDs of every user owning
	// at least one pending recurring task. The materialization scheduler
	// iterates this set each pass.
	ListUserIDsWithPendingRecurring(ctx context.Context) ([]uuid.UUID, error)

	// WithTx returns a new TaskStore instance that uses the provided transaction.
	// The transaction should be created and managed by the caller.
	WithTx(tx *sql.Tx) TaskStore
}

// InstanceStore defines the interface for task-instance data persistence.
type InstanceStore interface {
	// Create saves a new task instance to the store.
	// Returns ErrInstanceExists if an instance already exists for the same
	// (task, instance date) pair; materialization treats that as a no-op.
	Create(ctx context.Context, inst *domain.TaskInstance) error

	// GetByID retrieves an instance by its unique ID.
	// Returns ErrInstanceNotFound if the instance does not exist.
	GetByID(ctx context.Context, id uuid.UUID) (*domain.TaskInstance, error)

	// Update modifies an existing instance (status, scheduled slot,
	// completion timestamp). Returns ErrInstanceNotFound if it does not exist.
	Update(ctx context.Context, inst *domain.TaskInstance) error

	// ListByTask returns a task's instances with InstanceDate within
	// [from, to], both inclusive, ordered by date.
	ListByTask(ctx context.Context, taskID uuid.UUID, from, to time.Time) ([]*domain.TaskInstance, error)

	// ListSyncable returns the user's unencrypted instances that carry a
	// concrete scheduled time, either pinned on the instance or inherited
	// from the parent task's recurrence rule.
	ListSyncable(ctx context.Context, userID uuid.UUID) ([]*domain.TaskInstance, error)

	// DeleteOlderThan hard-deletes instances whose InstanceDate is before
	// cutoff and whose status is completed or skipped. Pending instances in
	// the past are kept for the user to reconcile explicitly.
	// Returns the number of deleted rows.
	DeleteOlderThan(ctx context.Context, cutoff time.Time) (int64, error)

	// WithTx returns a new InstanceStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) InstanceStore
}
