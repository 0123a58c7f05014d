package main

import (
	"database/sql"
	"fmt"
	"log/slog"

	"github.com/calmhive/taskmirror/internal/calendar"
	"github.com/calmhive/taskmirror/internal/calsync"
	"github.com/calmhive/taskmirror/internal/config"
	"github.com/calmhive/taskmirror/internal/events"
	"github.com/calmhive/taskmirror/internal/materialize"
	"github.com/calmhive/taskmirror/internal/platform/postgres"
	"github.com/calmhive/taskmirror/internal/store"
)

// application holds the shared application dependencies to simplify
// management and ensure proper cleanup on shutdown.
type application struct {
	config *config.Config
	logger *slog.Logger
	db     *sql.DB

	// Stores
	taskStore     store.TaskStore
	instanceStore store.InstanceStore
	recordStore   store.SyncRecordStore
	settingsStore store.SyncSettingsStore

	// Sync pipeline
	registry     *calsync.StateRegistry
	syncEngine   *calsync.Engine
	orchestrator *calsync.Orchestrator
	hooks        *calsync.Hooks
	emitter      *events.InMemoryEventEmitter

	// Materialization pipeline
	materializer *materialize.Engine
	scheduler    *materialize.Scheduler
}

// newApplication wires all application components together. The calendar
// client is wrapped in the adaptive throttle so every outbound call is
// paced; the sync engine resets the throttle at the start of each pass.
func newApplication(cfg *config.Config, logger *slog.Logger) (*application, error) {
	db, err := setupDatabase(cfg, logger)
	if err != nil {
		return nil, err
	}

	if err := runMigrations(db, logger); err != nil {
		closeDatabase(db, logger)
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	app := &application{
		config: cfg,
		logger: logger,
		db:     db,
	}

	app.taskStore = postgres.NewPostgresTaskStore(db, logger)
	app.instanceStore = postgres.NewPostgresInstanceStore(db, logger)
	app.recordStore = postgres.NewPostgresSyncRecordStore(db, logger)
	app.settingsStore = postgres.NewPostgresSyncSettingsStore(db, logger)

	// The HTTP client is stateless and shared; each sync pass wraps it in
	// its own throttle so users never share pacing or rate penalties.
	httpClient := calendar.NewHTTPClient(cfg.Calendar.BaseURL, cfg.Calendar.Token)
	newClient := func() calendar.Client {
		return calendar.NewThrottle(httpClient, calendar.ThrottleConfig{
			MinCallInterval: cfg.Calendar.MinCallInterval,
			RatePenalty:     cfg.Calendar.RatePenalty,
			MaxRetries:      cfg.Calendar.MaxRetries,
		}, logger)
	}

	app.registry = calsync.NewStateRegistry()
	app.syncEngine = calsync.NewEngine(
		app.taskStore,
		app.instanceStore,
		app.recordStore,
		app.settingsStore,
		newClient,
		app.registry,
		logger,
	)
	app.orchestrator = calsync.NewOrchestrator(
		app.syncEngine,
		app.registry,
		app.settingsStore,
		app.recordStore,
		newClient,
		calsync.OrchestratorConfig{
			CalendarName: cfg.Sync.CalendarName,
			UserTimeout:  cfg.Sync.UserTimeout,
		},
		logger,
	)

	// Task lifecycle hooks publish sync request events; the handler maps
	// them back onto the engine and orchestrator.
	app.emitter = events.NewInMemoryEventEmitter(logger)
	app.emitter.RegisterHandler(
		calsync.NewSyncEventHandler(app.syncEngine, app.orchestrator, logger),
	)
	app.hooks = calsync.NewHooks(app.emitter, logger)

	app.materializer = materialize.NewEngine(db, app.taskStore, app.instanceStore, logger)
	app.scheduler = materialize.NewScheduler(
		app.materializer,
		app.taskStore,
		materialize.SchedulerConfig{
			Interval:      cfg.Materialization.Interval,
			PassTimeout:   cfg.Materialization.PassTimeout,
			HorizonDays:   cfg.Materialization.HorizonDays,
			RetentionDays: cfg.Materialization.RetentionDays,
		},
		app.hooks.RequestBulkSync,
		logger,
	)

	return app, nil
}

// run starts the materialization scheduler and the HTTP server, blocking
// until shutdown.
func (app *application) run() error {
	if err := app.scheduler.Start(); err != nil {
		closeDatabase(app.db, app.logger)
		return fmt.Errorf("failed to start materialization scheduler: %w", err)
	}

	return app.startHTTPServer(app.setupRouter())
}

// cleanup releases application resources in reverse dependency order:
// stop producing new work, drain in-flight sync passes, then close the
// database.
func (app *application) cleanup() {
	if app.scheduler != nil {
		app.scheduler.Stop()
	}
	if app.orchestrator != nil {
		app.orchestrator.Wait()
	}
	if app.db != nil {
		closeDatabase(app.db, app.logger)
	}
}
