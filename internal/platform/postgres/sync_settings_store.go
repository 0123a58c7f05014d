package postgres

import (
	"context"
	"database/sql"
	"errors"
	"log/slog"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/store"
)

// PostgresSyncSettingsStore implements the store.SyncSettingsStore
// interface using a PostgreSQL database as the storage backend.
type PostgresSyncSettingsStore struct {
	db     store.DBTX
	logger *slog.Logger
}

// NewPostgresSyncSettingsStore creates a new PostgreSQL implementation of
// the SyncSettingsStore interface.
// If logger is nil, a default logger will be used.
func NewPostgresSyncSettingsStore(db store.DBTX, logger *slog.Logger) *PostgresSyncSettingsStore {
	if db == nil {
		panic("db cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &PostgresSyncSettingsStore{
		db:     db,
		logger: logger.With(slog.String("component", "sync_settings_store")),
	}
}

// Ensure PostgresSyncSettingsStore implements store.SyncSettingsStore interface
var _ store.SyncSettingsStore = (*PostgresSyncSettingsStore)(nil)

// WithTx implements store.SyncSettingsStore.WithTx
func (s *PostgresSyncSettingsStore) WithTx(tx *sql.Tx) store.SyncSettingsStore {
	return &PostgresSyncSettingsStore{
		db:     tx,
		logger: s.logger,
	}
}

// Get implements store.SyncSettingsStore.Get
func (s *PostgresSyncSettingsStore) Get(
	ctx context.Context,
	userID uuid.UUID,
) (*domain.SyncSettings, error) {
	query := `
		SELECT user_id, sync_enabled, sync_calendar_id, sync_error, updated_at
		FROM user_sync_settings
		WHERE user_id = $1
	`
	var settings domain.SyncSettings
	err := s.db.QueryRowContext(ctx, query, userID).Scan(
		&settings.UserID,
		&settings.Enabled,
		&settings.CalendarID,
		&settings.LastError,
		&settings.UpdatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, store.ErrSyncSettingsNotFound
		}
		return nil, MapError(err)
	}
	return &settings, nil
}

// Upsert implements store.SyncSettingsStore.Upsert
func (s *PostgresSyncSettingsStore) Upsert(
	ctx context.Context,
	settings *domain.SyncSettings,
) error {
	query := `
		INSERT INTO user_sync_settings (user_id, sync_enabled, sync_calendar_id, sync_error, updated_at)
		VALUES ($1, $2, $3, $4, $5)
		ON CONFLICT (user_id) DO UPDATE
		SET sync_enabled = EXCLUDED.sync_enabled,
			sync_calendar_id = EXCLUDED.sync_calendar_id,
			sync_error = EXCLUDED.sync_error,
			updated_at = EXCLUDED.updated_at
	`
	_, err := s.db.ExecContext(ctx, query,
		settings.UserID,
		settings.Enabled,
		settings.CalendarID,
		settings.LastError,
		settings.UpdatedAt,
	)
	if err != nil {
		return MapError(err)
	}
	return nil
}
