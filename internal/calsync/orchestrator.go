package calsync

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/calendar"
	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/platform/logger"
	"github.com/calmhive/taskmirror/internal/store"
)

// OrchestratorConfig holds configuration for the sync orchestrator.
type OrchestratorConfig struct {
	// CalendarName is the name of the external calendar events are
	// mirrored into.
	CalendarName string

	// UserTimeout bounds one bulk sync pass for a single user.
	UserTimeout time.Duration
}

// DefaultOrchestratorConfig returns an OrchestratorConfig with reasonable defaults.
func DefaultOrchestratorConfig() OrchestratorConfig {
	return OrchestratorConfig{
		CalendarName: "TaskMirror",
		UserTimeout:  5 * time.Minute,
	}
}

// StatusReport is the sync status surfaced to the API layer.
type StatusReport struct {
	Enabled     bool     `json:"enabled"`
	Running     bool     `json:"running"`
	SyncedCount int      `json:"synced_count"`
	Progress    Progress `json:"progress"`
	LastError   *string  `json:"last_error,omitempty"`
}

// Orchestrator owns the per-user sync lifecycle: enabling and disabling,
// status reporting, and firing bulk passes as supervised background work.
// At most one pass runs per user; a second trigger while one is in flight
// is dropped, not queued.
type Orchestrator struct {
	engine    *Engine
	registry  *StateRegistry
	settings  store.SyncSettingsStore
	records   store.SyncRecordStore
	newClient calendar.ClientFactory
	config    OrchestratorConfig
	logger    *slog.Logger
	wg        sync.WaitGroup
}

// NewOrchestrator creates an Orchestrator. All dependencies are required.
// If logger is nil, a default logger will be used.
func NewOrchestrator(
	engine *Engine,
	registry *StateRegistry,
	settings store.SyncSettingsStore,
	records store.SyncRecordStore,
	newClient calendar.ClientFactory,
	config OrchestratorConfig,
	logger *slog.Logger,
) *Orchestrator {
	if engine == nil {
		panic("engine cannot be nil")
	}
	if registry == nil {
		panic("registry cannot be nil")
	}
	if settings == nil || records == nil {
		panic("stores cannot be nil")
	}
	if newClient == nil {
		panic("client factory cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}
	if config.UserTimeout <= 0 {
		config.UserTimeout = DefaultOrchestratorConfig().UserTimeout
	}

	return &Orchestrator{
		engine:    engine,
		registry:  registry,
		settings:  settings,
		records:   records,
		newClient: newClient,
		config:    config,
		logger:    logger.With(slog.String("component", "sync_orchestrator")),
	}
}

// Enable turns on calendar sync for the user: it finds or creates the
// external calendar (removing duplicates of the same name), persists the
// enabled flag and calendar ID, and schedules an initial bulk pass as
// background work. The call returns as soon as the settings are persisted;
// it never waits for the pass.
func (o *Orchestrator) Enable(ctx context.Context, userID uuid.UUID) error {
	calendarID, err := o.newClient().FindOrCreateCalendar(ctx, o.config.CalendarName)
	if err != nil {
		return fmt.Errorf("failed to find or create calendar: %w", err)
	}

	settings := &domain.SyncSettings{
		UserID:     userID,
		Enabled:    true,
		CalendarID: &calendarID,
		UpdatedAt:  time.Now().UTC(),
	}
	if err := o.settings.Upsert(ctx, settings); err != nil {
		return fmt.Errorf("failed to persist sync settings: %w", err)
	}

	o.TriggerBulkSync(userID)
	return nil
}

// Disable turns off calendar sync for the user. Any in-flight pass is
// cancelled cooperatively. When deleteEvents is true, the whole external
// calendar is deleted with one call and the user's sync records are
// bulk-deleted afterwards; records are only removed once the external
// deletion has succeeded.
func (o *Orchestrator) Disable(ctx context.Context, userID uuid.UUID, deleteEvents bool) error {
	o.registry.Cancel(userID)

	settings, err := o.settings.Get(ctx, userID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to load sync settings: %w", err)
	}

	if deleteEvents && settings.CalendarID != nil {
		if err := o.newClient().DeleteCalendar(ctx, *settings.CalendarID); err != nil {
			return fmt.Errorf("failed to delete calendar: %w", err)
		}
		if _, err := o.records.DeleteByUser(ctx, userID); err != nil {
			return fmt.Errorf("failed to delete sync records: %w", err)
		}
		settings.CalendarID = nil
	}

	settings.Enabled = false
	settings.LastError = nil
	settings.UpdatedAt = time.Now().UTC()
	if err := o.settings.Upsert(ctx, settings); err != nil {
		return fmt.Errorf("failed to persist sync settings: %w", err)
	}

	return nil
}

// Status reports the user's sync state: live progress counters while a
// pass is running, otherwise the persisted record count and last error.
func (o *Orchestrator) Status(ctx context.Context, userID uuid.UUID) (*StatusReport, error) {
	report := &StatusReport{}

	if o.registry.Running(userID) {
		report.Enabled = true
		report.Running = true
		report.Progress = o.registry.Progress(userID)
		return report, nil
	}

	count, err := o.records.CountByUser(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("failed to count sync records: %w", err)
	}
	report.SyncedCount = count

	settings, err := o.settings.Get(ctx, userID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return report, nil
		}
		return nil, fmt.Errorf("failed to load sync settings: %w", err)
	}
	report.Enabled = settings.Enabled
	report.LastError = settings.LastError

	return report, nil
}

// TriggerBulkSync fires a bulk pass for the user in the background. The
// trigger is dropped if a pass is already running; callers needing a
// guaranteed second pass must re-trigger after the current one finishes.
func (o *Orchestrator) TriggerBulkSync(userID uuid.UUID) {
	if !o.registry.TryStart(userID) {
		o.logger.Debug("sync pass already running, trigger dropped",
			"user_id", userID)
		return
	}

	o.wg.Add(1)
	go func() {
		defer o.wg.Done()
		defer o.registry.Finish(userID)
		defer func() {
			if p := recover(); p != nil {
				o.logger.Error("sync pass panicked",
					"user_id", userID, "panic", p)
			}
		}()

		ctx, cancel := context.WithTimeout(context.Background(), o.config.UserTimeout)
		defer cancel()
		ctx = logger.WithLogger(ctx, o.logger.With(slog.String("user_id", userID.String())))

		if err := o.engine.BulkSync(ctx, userID); err != nil {
			o.logger.Error("bulk sync failed", "user_id", userID, "error", err)
		}
	}()
}

// Wait blocks until all in-flight background passes have finished. Used
// during graceful shutdown, typically after cancelling users' passes.
func (o *Orchestrator) Wait() {
	o.wg.Wait()
}
