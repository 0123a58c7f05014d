package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/store"
)

// PostgresInstanceStore implements the store.InstanceStore interface
// using a PostgreSQL database as the storage backend.
type PostgresInstanceStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresInstanceStore creates a new PostgreSQL implementation of the
// InstanceStore interface. It accepts a database connection or transaction
// that should be initialized and managed by the caller.
// If logger is nil, a default logger will be used.
func NewPostgresInstanceStore(db store.DBTX, logger *slog.Logger) *PostgresInstanceStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresInstanceStore{
		db:     db,
		logger: logger.With(slog.String("component", "instance_store")),
	}
}

// Ensure PostgresInstanceStore implements store.InstanceStore interface
var _ store.InstanceStore = (*PostgresInstanceStore)(nil)

// WithTx implements store.InstanceStore.WithTx
func (s *PostgresInstanceStore) WithTx(tx *sql.Tx) store.InstanceStore {
	return &PostgresInstanceStore{
		db:     tx,
		logger: s.logger,
	}
}

const instanceColumns = `id, user_id, task_id, instance_date, scheduled_at,
	status, completed_at, created_at`

// Create implements store.InstanceStore.Create
func (s *PostgresInstanceStore) Create(ctx context.Context, inst *domain.TaskInstance) error {
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO task_instances (` + instanceColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8)
	`
	_, err := s.db.ExecContext(ctx, query,
		inst.ID,
		inst.UserID,
		inst.TaskID,
		inst.InstanceDate,
		inst.ScheduledAt,
		inst.Status,
		inst.CompletedAt,
		inst.CreatedAt,
	)
	if err != nil {
		if IsUniqueViolation(err) {
			return fmt.Errorf("%w: %v", store.ErrInstanceExists, err)
		}
		return MapError(err)
	}
	return nil
}

// GetByID implements store.InstanceStore.GetByID
func (s *PostgresInstanceStore) GetByID(
	ctx context.Context,
	id uuid.UUID,
) (*domain.TaskInstance, error) {
	query := `SELECT ` + instanceColumns + ` FROM task_instances WHERE id = $1`

	inst, err := scanInstance(s.db.QueryRowContext(ctx, query, id))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrInstanceNotFound
		}
		return nil, MapError(err)
	}
	return inst, nil
}

// Update implements store.InstanceStore.Update
func (s *PostgresInstanceStore) Update(ctx context.Context, inst *domain.TaskInstance) error {
	if err := inst.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE task_instances
		SET scheduled_at = $1, status = $2, completed_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query,
		inst.ScheduledAt,
		inst.Status,
		inst.CompletedAt,
		inst.ID,
	)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "task instance")
}

// ListByTask implements store.InstanceStore.ListByTask
func (s *PostgresInstanceStore) ListByTask(
	ctx context.Context,
	taskID uuid.UUID,
	from, to time.Time,
) ([]*domain.TaskInstance, error) {
	query := `
		SELECT ` + instanceColumns + `
		FROM task_instances
		WHERE task_id = $1 AND instance_date BETWEEN $2 AND $3
		ORDER BY instance_date
	`
	return s.queryInstances(ctx, query, taskID, from, to)
}

// ListSyncable implements store.InstanceStore.ListSyncable
//
// An instance is syncable when its parent task is an unencrypted pending
// recurring task and the instance has a concrete time slot: either pinned
// on the instance itself or inherited from the rule's time-of-day.
func (s *PostgresInstanceStore) ListSyncable(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.TaskInstance, error) {
	query := `
		SELECT i.id, i.user_id, i.task_id, i.instance_date, i.scheduled_at,
			i.status, i.completed_at, i.created_at
		FROM task_instances i
		JOIN tasks t ON t.id = i.task_id
		WHERE i.user_id = $1
			AND t.encrypted = FALSE
			AND t.status = 'pending'
			AND (i.scheduled_at IS NOT NULL OR t.recurrence ->> 'time_of_day' IS NOT NULL)
		ORDER BY i.instance_date
	`
	return s.queryInstances(ctx, query, userID)
}

// DeleteOlderThan implements store.InstanceStore.DeleteOlderThan
//
// Only completed and skipped instances are eligible; pending instances in
// the past are left for the user to reconcile explicitly.
func (s *PostgresInstanceStore) DeleteOlderThan(
	ctx context.Context,
	cutoff time.Time,
) (int64, error) {
	query := `
		DELETE FROM task_instances
		WHERE instance_date < $1 AND status IN ('completed', 'skipped')
	`
	result, err := s.db.ExecContext(ctx, query, cutoff)
	if err != nil {
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

func (s *PostgresInstanceStore) queryInstances(
	ctx context.Context,
	query string,
	args ...any,
) ([]*domain.TaskInstance, error) {
	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var instances []*domain.TaskInstance
	for rows.Next() {
		inst, err := scanInstance(rows)
		if err != nil {
			return nil, MapError(err)
		}
		instances = append(instances, inst)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return instances, nil
}

func scanInstance(row rowScanner) (*domain.TaskInstance, error) {
	var inst domain.TaskInstance
	err := row.Scan(
		&inst.ID,
		&inst.UserID,
		&inst.TaskID,
		&inst.InstanceDate,
		&inst.ScheduledAt,
		&inst.Status,
		&inst.CompletedAt,
		&inst.CreatedAt,
	)
	if err != nil {
		return nil, err
	}

	// DATE columns come back at midnight in the session time zone; pin
	// them to UTC so map lookups against evaluator output compare equal.
	inst.InstanceDate = domain.DateOnly(inst.InstanceDate)
	return &inst, nil
}
