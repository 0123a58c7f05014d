package store

import (
	"context"
	"database/sql"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
)

// SyncRecordStore defines the interface for sync-record data persistence.
type SyncRecordStore interface {
	// Create saves a new sync record to the store.
	// Returns validation errors if the record does not reference exactly
	// one of a task or a task instance.
	Create(ctx context.Context, rec *domain.SyncRecord) error

	// Update rewrites an existing record's external event ID, change hash
	// and last-synced timestamp. Returns ErrSyncRecordNotFound if the
	// record does not exist.
	Update(ctx context.Context, rec *domain.SyncRecord) error

	// Delete removes a sync record by its ID.
	// Returns ErrSyncRecordNotFound if the record does not exist.
	Delete(ctx context.Context, id uuid.UUID) error

	// GetByTask retrieves the record mirroring the given task.
	// Returns ErrSyncRecordNotFound if the task is not mirrored.
	GetByTask(ctx context.Context, taskID uuid.UUID) (*domain.SyncRecord, error)

	// GetByInstance retrieves the record mirroring the given instance.
	// Returns ErrSyncRecordNotFound if the instance is not mirrored.
	GetByInstance(ctx context.Context, instanceID uuid.UUID) (*domain.SyncRecord, error)

	// ListByUser returns all of the user's sync records.
	ListByUser(ctx context.Context, userID uuid.UUID) ([]*domain.SyncRecord, error)

	// CountByUser returns the number of sync records for the user. Used by
	// status reporting when no pass is running.
	CountByUser(ctx context.Context, userID uuid.UUID) (int, error)

	// DeleteByUser bulk-deletes all of the user's sync records in one
	// statement. Used when sync is disabled with event deletion, after the
	// external calendar itself has been deleted.
	// Returns the number of deleted rows.
	DeleteByUser(ctx context.Context, userID uuid.UUID) (int64, error)

	// WithTx returns a new SyncRecordStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SyncRecordStore
}

// SyncSettingsStore defines the interface for persisted per-user sync settings.
type SyncSettingsStore interface {
	// Get retrieves the user's sync settings.
	// Returns ErrSyncSettingsNotFound if the user has no settings row;
	// callers treat that as sync never having been enabled.
	Get(ctx context.Context, userID uuid.UUID) (*domain.SyncSettings, error)

	// Upsert creates or replaces the user's sync settings row.
	Upsert(ctx context.Context, settings *domain.SyncSettings) error

	// WithTx returns a new SyncSettingsStore instance that uses the provided transaction.
	WithTx(tx *sql.Tx) SyncSettingsStore
}
