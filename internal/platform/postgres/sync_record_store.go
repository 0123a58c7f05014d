package postgres

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/store"
)

// PostgresSyncRecordStore implements the store.SyncRecordStore interface
// using a PostgreSQL database as the storage backend.
type PostgresSyncRecordStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSyncRecordStore creates a new PostgreSQL implementation of the
// SyncRecordStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresSyncRecordStore(db store.DBTX, logger *slog.Logger) *PostgresSyncRecordStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSyncRecordStore{
		db:     db,
		logger: logger.With(slog.String("component", "sync_record_store")),
	}
}

// Ensure PostgresSyncRecordStore implements store.SyncRecordStore interface
var _ store.SyncRecordStore = (*PostgresSyncRecordStore)(nil)

// WithTx implements store.SyncRecordStore.WithTx
func (s *PostgresSyncRecordStore) WithTx(tx *sql.Tx) store.SyncRecordStore {
	return &PostgresSyncRecordStore{
		db:     tx,
		logger: s.logger,
	}
}

const syncRecordColumns = `id, user_id, task_id, task_instance_id,
	external_event_id, change_hash, last_synced_at`

// Create implements store.SyncRecordStore.Create
func (s *PostgresSyncRecordStore) Create(ctx context.Context, rec *domain.SyncRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		INSERT INTO sync_records (` + syncRecordColumns + `)
		VALUES ($1, $2, $3, $4, $5, $6, $7)
	`
	_, err := s.db.ExecContext(ctx, query,
		rec.ID,
		rec.UserID,
		rec.TaskID,
		rec.InstanceID,
		rec.ExternalEventID,
		rec.ChangeHash,
		rec.LastSyncedAt,
	)
	if err != nil {
		return MapError(err)
	}
	return nil
}

// Update implements store.SyncRecordStore.Update
func (s *PostgresSyncRecordStore) Update(ctx context.Context, rec *domain.SyncRecord) error {
	if err := rec.Validate(); err != nil {
		return fmt.Errorf("%w: %v", store.ErrInvalidEntity, err)
	}

	query := `
		UPDATE sync_records
		SET external_event_id = $1, change_hash = $2, last_synced_at = $3
		WHERE id = $4
	`
	result, err := s.db.ExecContext(ctx, query,
		rec.ExternalEventID,
		rec.ChangeHash,
		rec.LastSyncedAt,
		rec.ID,
	)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "sync record")
}

// Delete implements store.SyncRecordStore.Delete
func (s *PostgresSyncRecordStore) Delete(ctx context.Context, id uuid.UUID) error {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sync_records WHERE id = $1`, id)
	if err != nil {
		return MapError(err)
	}
	return CheckRowsAffected(result, "sync record")
}

// GetByTask implements store.SyncRecordStore.GetByTask
func (s *PostgresSyncRecordStore) GetByTask(
	ctx context.Context,
	taskID uuid.UUID,
) (*domain.SyncRecord, error) {
	query := `SELECT ` + syncRecordColumns + ` FROM sync_records WHERE task_id = $1`
	return s.getOne(ctx, query, taskID)
}

// GetByInstance implements store.SyncRecordStore.GetByInstance
func (s *PostgresSyncRecordStore) GetByInstance(
	ctx context.Context,
	instanceID uuid.UUID,
) (*domain.SyncRecord, error) {
	query := `SELECT ` + syncRecordColumns + ` FROM sync_records WHERE task_instance_id = $1`
	return s.getOne(ctx, query, instanceID)
}

// ListByUser implements store.SyncRecordStore.ListByUser
func (s *PostgresSyncRecordStore) ListByUser(
	ctx context.Context,
	userID uuid.UUID,
) ([]*domain.SyncRecord, error) {
	query := `
		SELECT ` + syncRecordColumns + `
		FROM sync_records
		WHERE user_id = $1
		ORDER BY last_synced_at
	`
	rows, err := s.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, MapError(err)
	}
	defer func() { _ = rows.Close() }()

	var records []*domain.SyncRecord
	for rows.Next() {
		rec, err := scanSyncRecord(rows)
		if err != nil {
			return nil, MapError(err)
		}
		records = append(records, rec)
	}
	if err := rows.Err(); err != nil {
		return nil, MapError(err)
	}
	return records, nil
}

// CountByUser implements store.SyncRecordStore.CountByUser
func (s *PostgresSyncRecordStore) CountByUser(
	ctx context.Context,
	userID uuid.UUID,
) (int, error) {
	var count int
	query := `SELECT COUNT(*) FROM sync_records WHERE user_id = $1`
	if err := s.db.QueryRowContext(ctx, query, userID).Scan(&count); err != nil {
		return 0, MapError(err)
	}
	return count, nil
}

// DeleteByUser implements store.SyncRecordStore.DeleteByUser
func (s *PostgresSyncRecordStore) DeleteByUser(
	ctx context.Context,
	userID uuid.UUID,
) (int64, error) {
	result, err := s.db.ExecContext(ctx, `DELETE FROM sync_records WHERE user_id = $1`, userID)
	if err != nil {
		return 0, MapError(err)
	}

	deleted, err := result.RowsAffected()
	if err != nil {
		return 0, fmt.Errorf("failed to get rows affected: %w", err)
	}
	return deleted, nil
}

func (s *PostgresSyncRecordStore) getOne(
	ctx context.Context,
	query string,
	arg any,
) (*domain.SyncRecord, error) {
	rec, err := scanSyncRecord(s.db.QueryRowContext(ctx, query, arg))
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSyncRecordNotFound
		}
		return nil, MapError(err)
	}
	return rec, nil
}

func scanSyncRecord(row rowScanner) (*domain.SyncRecord, error) {
	var rec domain.SyncRecord
	err := row.Scan(
		&rec.ID,
		&rec.UserID,
		&rec.TaskID,
		&rec.InstanceID,
		&rec.ExternalEventID,
		&rec.ChangeHash,
		&rec.LastSyncedAt,
	)
	if err != nil {
		return nil, err
	}
	return &rec, nil
}
