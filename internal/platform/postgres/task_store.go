package postgres

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/store"
)

// PostgresTaskStore implements the store.TaskStore interface
// using a PostgreSQL database as the storage backend.
type PostgresTaskStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresTaskStore creates a new PostgreSQL implementation of the
// TaskStore interface. It accepts a database connection or transaction that
// should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresTaskStore(db store.DBTX, logger *slog.Logger) *PostgresTaskStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresTaskStore{
		db:     db,
		logger: logger.With(slog.String("component", "task_store")),
	}
}

// Ensure PostgresTaskStore implements store.TaskStore interface
var _ store.TaskStore = (*PostgresTaskStore)(nil)

// WithTx implements store.TaskStore.WithTx
func (s *PostgresTaskStore) WithTx(tx *sql.Tx) store.TaskStore {
	return &PostgresTaskStore{
		db:     tx,
		logger: s.logger,
	}
}

const taskColumns = `id, user_id, title, description, parent_id, is_recurring,
	recurrence, scheduled_date, scheduled_time, duration_minutes, status,
	encrypted, created_at, updated_at`

// Create implements store.TaskStore.Create
func (s *PostgresTaskStore) Create(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	recurrenceJSON, err := marshalRecurrence(task.Recurrence)
	if err != nil {
		return err
	}

	query := `
		INSERT INTO tasks (` + taskColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
	`
	_, err = s.db.ExecContext(ctx, query,
		task.ID,
		task.UserID,
		task.Title,
		task.Description,
		task.ParentID,
		task.IsRecurring,
		recurrenceJSON,
		task.ScheduledDate,
		task.ScheduledTime,
		task.DurationMinutes,
		task.Status,
		task.Encrypted,
		task.CreatedAt,
		task.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}
	return nil
}

// GetByID implements store.TaskStore.GetByID
func (s *PostgresTaskStore) GetByID(ctx context.Context, id uuid.UUID) (*domain.Task, error) {
	query := `SELECT ` + taskColumns + ` FROM tasks WHERE id = $1`

	task, err := scanTask(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrTaskNotFound
		}
		return nil, MapError(err)
	}
	return task, nil
}

// Update implements store.TaskStore.Update
func (s *PostgresTaskStore) Update(ctx context.Context, task *domain.Task) error {
	if err := task.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	recurrenceJSON, err := marshalRecurrence(task.Recurrence)
	if err != nil {
		return err
	}

	query := `
		UPDATE tasks
		SET title = $1, description = $2, parent_id = $3, is_recurring = $4,
			recurrence = $5, scheduled_date = $6, scheduled_time = $7,
			duration_minutes = $8, status = $9, encrypted = $10, updated_at = $11
		WHERE id = $12
	`
	result, err := s.db.ExecContext(ctx, query,
		task.Title,
		task.Description,
		task.ParentID,
		task.IsRecurring,
		recurrenceJSON,
		task.ScheduledDate,
		task.ScheduledTime,
		task.DurationMinutes,
		task.Status,
		task.Encrypted,
		time.Now().UTC(),
		task.ID,
	)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "task")
}

// Delete implements store.TaskStore.Delete
//
// Associated task instances and sync records are removed by the schema's
// ON DELETE CASCADE foreign keys.
func (s *PostgresTaskStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM tasks WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "task")
}

// ListPendingRecurring implements store.TaskStore.ListPendingRecurring
func (s *PostgresTaskStore) ListPendingRecurring(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks
		WHERE user_id = $1 AND is_recurring = TRUE AND status = 'pending'
		ORDER BY created_at
	`
	return s.queryTasks(ctx, query, userID)
}

// ListSyncableOneOff implements store.TaskStore.ListSyncableOneOff
func (s *PostgresTaskStore) ListSyncableOneOff(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.Task, error) {
	query := `
		SELECT ` + taskColumns + `
		FROM tasks t
		WHERE t.user_id = $1
			AND t.is_recurring = FALSE
			AND t.encrypted = FALSE
			AND t.status IN ('pending', 'completed')
			AND t.scheduled_date IS NOT NULL
			AND t.scheduled_time IS NOT NULL
			AND NOT EXISTS (SELECT 1 FROM tasks c WHERE c.parent_id = t.id)
		ORDER BY t.scheduled_date, t.scheduled_time
	`
	return s.queryTasks(ctx, query, userID)
}

// HasChildren implements store.TaskStore.HasChildren
func (s *PostgresTaskStore) HasChildren(ctx context.Context, id uuid.UUID) (bool, error) {
	var exists bool
	query := `SELECT EXISTS (SELECT 1 FROM tasks WHERE parent_id = $1)`
	if err := s.db.QueryRowContext(ctx, query, id).Scan(&exists); err != nil {
		return false, MapError(err)
	}
	return exists, nil
}

// ListUserIDsWithPendingRecurring implements store.TaskStore.ListUserIDsWithPendingRecurring
func (s *PostgresTaskStore) ListUserIDsWithPendingRecurring(
	ctx context.Context,
) ([]uuid.UUID, error) {
	query := `
		SELECT DISTINCT user_id
		FROM tasks
		WHERE is_recurring = TRUE AND status = 'pending'
		ORDER BY user_id
	`
	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var ids []uuid.UUID
	for rows.Next() {
		var id uuid.UUID
		if err := rows.Scan(&id); err != nil {
			return nil, MapError(err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return ids, nil
}

func (s *PostgresTaskStore) queryTasks(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.Task, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var tasks []*domain.Task
	for rows.Next() {
		task, err := scanTask(rows)
		if err != nil {
			return nil, MapError(err)
		}
		tasks = append(tasks, task)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return tasks, nil
}

// rowScanner abstracts *sql.Row and *sql.Rows for shared scanning.
type rowScanner interface {
	Scan(dest ...any) error
}

func scanTask(row rowScanner) (*domain.Task, error) {
	var (
		task           domain.Task
		recurrenceJSON []byte
	)
	err := row.Scan(
		&task.ID,
		&task.UserID,
		&task.Title,
		&task.Description,
		&task.ParentID,
		&task.IsRecurring,
		&recurrenceJSON,
		&task.ScheduledDate,
		&task.ScheduledTime,
		&task.DurationMinutes,
		&task.Status,
		&task.Encrypted,
		&task.CreatedAt,
		&task.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if len(recurrenceJSON) > 0 {
		var rule domain.RecurrenceRule
		if err := json.Unmarshal(recurrenceJSON, &rule); err != nil {
			return nil, fmt.Errorf("failed to decode recurrence rule: %w", err)
		}
		task.Recurrence = &rule
	}
	return &task, nil
}

func marshalRecurrence(rule *domain.RecurrenceRule) ([]byte, error) {
	if rule == nil {
		return nil, nil
	}
	data, err := json.Marshal(rule)
	if err != nil {
		return nil, fmt.Errorf("failed to encode recurrence rule: %w", err)
	}
	return data, nil
}
