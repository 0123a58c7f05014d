// Package materialize expands recurring tasks into concrete dated
// instances over a rolling horizon. Materialization is additive-only and
// idempotent: existing instances, whatever their status, are never touched,
// so it is safe to re-run arbitrarily often. The only destructive operation
// is Cleanup, which retires old completed and skipped instances.
package materialize

import (
	"context"
	"database/sql"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/recurrence"
	"github.com/calmhive/taskmirror/internal/store"
)

// Engine materializes recurring tasks into instances and cleans up old ones.
type Engine struct {
	db        *sql.DB
	tasks     store.TaskStore
	instances store.InstanceStore
	logger    *slog.Logger

	// now is the clock, replaceable in tests.
	now func() time.Time

	// runTx wraps a unit of work in a transaction, replaceable in tests.
	runTx func(ctx context.Context, db *sql.DB, fn store.TxFn) error
}

// NewEngine creates a materialization Engine.
// If logger is nil, a default logger will be used.
func NewEngine(
	db *sql.DB,
	tasks store.TaskStore,
	instances store.InstanceStore,
	logger *slog.Logger,
) *Engine {
	if db == nil {
		panic("db cannot be nil")
	}
	if tasks == nil || instances == nil {
		panic("stores cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		db:        db,
		tasks:     tasks,
		instances: instances,
		logger:    logger.With(slog.String("component", "materialize_engine")),
		now:       time.Now,
		runTx:     store.RunInTransaction,
	}
}

// MaterializeUser materializes every pending recurring task the user owns,
// inside a single transaction. Returns the number of instances created
// across all of the user's tasks.
func (e *Engine) MaterializeUser(ctx context.Context, userID uuid.UUID, horizonDays int) (int, error) {
	created := 0

	err := e.runTx(ctx, e.db, func(ctx context.Context, tx *sql.Tx) error {
		taskStore := e.tasks.WithTx(tx)
		instStore := e.instances.WithTx(tx)

		tasks, err := taskStore.ListPendingRecurring(ctx, userID)
		if err != nil {
			return fmt.Errorf("failed to list recurring tasks: %w", err)
		}

		for _, t := range tasks {
			n, err := e.materialize(ctx, instStore, t, horizonDays)
			if err != nil {
				return fmt.Errorf("failed to materialize task %s: %w", t.ID, err)
			}
			created += n
		}
		return nil
	})
	if err != nil {
		return 0, err
	}

	return created, nil
}

// MaterializeTask materializes one recurring task outside any transaction,
// used by the per-mutation path after a task's recurrence rule changes.
// Returns the number of instances created.
func (e *Engine) MaterializeTask(ctx context.Context, task *domain.Task, horizonDays int) (int, error) {
	return e.materialize(ctx, e.instances, task, horizonDays)
}

// materialize diffs the evaluator's output against existing instances and
// creates a pending instance for every date that lacks one. Instances that
// already exist, including completed and skipped ones, are never mutated or
// removed here: history is immutable once created.
func (e *Engine) materialize(
	ctx context.Context,
	instances store.InstanceStore,
	task *domain.Task,
	horizonDays int,
) (int, error) {
	if !task.IsRecurring || task.Recurrence == nil {
		return 0, nil
	}

	from := domain.DateOnly(e.now())
	occurrences := recurrence.Evaluate(*task.Recurrence, from, horizonDays)
	if len(occurrences) == 0 {
		return 0, nil
	}

	// The window's last day is from+horizonDays-1; ListByTask bounds are
	// inclusive.
	existing, err := instances.ListByTask(ctx, task.ID, from, from.AddDate(0, 0, horizonDays-1))
	if err != nil {
		return 0, fmt.Errorf("failed to list existing instances: %w", err)
	}

	have := make(map[time.Time]bool, len(existing))
	for _, inst := range existing {
		have[inst.InstanceDate] = true
	}

	created := 0
	for _, occ := range occurrences {
		if have[occ.Date] {
			continue
		}

		inst, err := domain.NewTaskInstance(task.UserID, task.ID, occ.Date)
		if err != nil {
			return created, fmt.Errorf("failed to build instance: %w", err)
		}
		if err := instances.Create(ctx, inst); err != nil {
			// A concurrent materialization of the same task may have won
			// the race; the unique index makes this harmless.
			if store.IsDuplicateError(err) {
				continue
			}
			return created, fmt.Errorf("failed to create instance: %w", err)
		}
		created++
	}

	return created, nil
}

// Cleanup hard-deletes instances whose date is older than the retention
// window and whose status is completed or skipped. Pending instances in the
// past are deliberately kept for the user to reconcile explicitly. Returns
// the number of deleted instances.
func (e *Engine) Cleanup(ctx context.Context, retentionDays int) (int64, error) {
	cutoff := domain.DateOnly(e.now()).AddDate(0, 0, -retentionDays)

	deleted, err := e.instances.DeleteOlderThan(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("failed to clean up instances: %w", err)
	}

	if deleted > 0 {
		e.logger.Info("cleaned up old instances",
			"deleted", deleted,
			"cutoff", cutoff.Format(time.DateOnly))
	}
	return deleted, nil
}
