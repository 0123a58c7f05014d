package materialize

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"
	"github.com/robfig/cron/v3"

	"github.com/calmhive/taskmirror/internal/store"
)

// SchedulerConfig holds configuration for the materialization scheduler.
type SchedulerConfig struct {
	// Interval is how often a full pass over all users runs.
	Interval time.Duration

	// PassTimeout bounds one full pass, so a stuck user cannot stall the
	// loop indefinitely.
	PassTimeout time.Duration

	// HorizonDays is the forward window instances are materialized for.
	HorizonDays int

	// RetentionDays is how long completed and skipped instances are kept.
	RetentionDays int
}

// DefaultSchedulerConfig returns a SchedulerConfig with reasonable defaults.
func DefaultSchedulerConfig() SchedulerConfig {
	return SchedulerConfig{
		Interval:      time.Hour,
		PassTimeout:   10 * time.Minute,
		HorizonDays:   60,
		RetentionDays: 90,
	}
}

// Scheduler is the process-wide materialization loop. Each pass
// materializes instances for every user owning pending recurring tasks,
// isolating per-user failures, then runs instance cleanup. Users whose
// instance set changed get a calendar sync pass requested through the
// injected trigger.
type Scheduler struct {
	engine  *Engine
	tasks   store.TaskStore
	config  SchedulerConfig
	trigger func(userID uuid.UUID)
	cron    *cron.Cron
	logger  *slog.Logger
}

// NewScheduler creates a Scheduler. trigger may be nil when no sync should
// be requested (e.g. in tests). If logger is nil, a default logger will be used.
func NewScheduler(
	engine *Engine,
	tasks store.TaskStore,
	config SchedulerConfig,
	trigger func(userID uuid.UUID),
	logger *slog.Logger,
) *Scheduler {
	if engine == nil {
		panic("engine cannot be nil")
	}
	if tasks == nil {
		panic("task store cannot be nil")
	}
	if config.Interval <= 0 {
		config.Interval = DefaultSchedulerConfig().Interval
	}
	if config.PassTimeout <= 0 {
		config.PassTimeout = DefaultSchedulerConfig().PassTimeout
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Scheduler{
		engine:  engine,
		tasks:   tasks,
		config:  config,
		trigger: trigger,
		cron:    cron.New(),
		logger:  logger.With(slog.String("component", "materialize_scheduler")),
	}
}

// Start runs one pass synchronously, so a cold start serves fresh data,
// then begins the interval loop in the background.
func (s *Scheduler) Start() error {
	s.RunPass()

	spec := fmt.Sprintf("@every %ds", int(s.config.Interval.Seconds()))
	if _, err := s.cron.AddFunc(spec, s.RunPass); err != nil {
		return fmt.Errorf("failed to schedule materialization: %w", err)
	}
	s.cron.Start()

	s.logger.Info("materialization scheduler started",
		"interval", s.config.Interval,
		"horizon_days", s.config.HorizonDays)
	return nil
}

// Stop halts the interval loop and waits for an in-flight pass to finish.
func (s *Scheduler) Stop() {
	ctx := s.cron.Stop()
	<-ctx.Done()
	s.logger.Info("materialization scheduler stopped")
}

// RunPass executes one full materialization pass over all users. One user's
// failure is logged and skipped; it never aborts the pass or crashes the
// loop.
func (s *Scheduler) RunPass() {
	ctx, cancel := context.WithTimeout(context.Background(), s.config.PassTimeout)
	defer cancel()

	start := time.Now()

	userIDs, err := s.tasks.ListUserIDsWithPendingRecurring(ctx)
	if err != nil {
		s.logger.Error("failed to list users for materialization", "error", err)
		return
	}

	var materialized, failed int
	for _, userID := range userIDs {
		created, err := s.engine.MaterializeUser(ctx, userID, s.config.HorizonDays)
		if err != nil {
			failed++
			s.logger.Error("materialization failed for user",
				"user_id", userID, "error", err)
			continue
		}
		materialized += created

		if created > 0 && s.trigger != nil {
			s.trigger(userID)
		}
	}

	if _, err := s.engine.Cleanup(ctx, s.config.RetentionDays); err != nil {
		s.logger.Error("instance cleanup failed", "error", err)
	}

	s.logger.Info("materialization pass completed",
		"users", len(userIDs),
		"instances_created", materialized,
		"users_failed", failed,
		"duration", time.Since(start))
}
