package calsync

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"github.com/google/uuid"

	"github.com/calmhive/taskmirror/internal/calendar"
	"github.com/calmhive/taskmirror/internal/domain"
	"github.com/calmhive/taskmirror/internal/platform/logger"
	"github.com/calmhive/taskmirror/internal/store"
)

// Engine-level errors
var (
	// ErrSyncDisabled is returned when a sync operation is requested for a
	// user whose sync is not enabled.
	ErrSyncDisabled = errors.New("sync is not enabled for user")

	// errPassAborted wraps a calendar-gone failure that already disabled
	// the user's sync. The orchestrator logs it; nothing retries it.
	errPassAborted = errors.New("sync pass aborted")
)

// resetter is implemented by the throttled client; the engine resets the
// accumulated rate penalty at the start of every pass.
type resetter interface {
	Reset()
}

// Engine reconciles a user's syncable tasks and instances against the
// external calendar. Every pass and single-item operation obtains its own
// client from the factory, expected to produce a *calendar.Throttle in
// production, so throttle state is never shared between users.
type Engine struct {
	tasks     store.TaskStore
	instances store.InstanceStore
	records   store.SyncRecordStore
	settings  store.SyncSettingsStore
	newClient calendar.ClientFactory
	registry  *StateRegistry
	logger    *slog.Logger
}

// NewEngine creates a sync Engine. All dependencies are required.
// If logger is nil, a default logger will be used.
func NewEngine(
	tasks store.TaskStore,
	instances store.InstanceStore,
	records store.SyncRecordStore,
	settings store.SyncSettingsStore,
	newClient calendar.ClientFactory,
	registry *StateRegistry,
	logger *slog.Logger,
) *Engine {
	if tasks == nil || instances == nil || records == nil || settings == nil {
		panic("stores cannot be nil")
	}
	if newClient == nil {
		panic("client factory cannot be nil")
	}
	if registry == nil {
		panic("registry cannot be nil")
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Engine{
		tasks:     tasks,
		instances: instances,
		records:   records,
		settings:  settings,
		newClient: newClient,
		registry:  registry,
		logger:    logger.With(slog.String("component", "sync_engine")),
	}
}

// syncItem is one unit of reconciliation: a task or an instance reduced to
// its mirrored field set.
type syncItem struct {
	userID     uuid.UUID
	taskID     *uuid.UUID
	instanceID *uuid.UUID
	mirrored   Mirrored
}

// BulkSync runs one full reconciliation pass for the user: every syncable
// one-off task and recurring-task instance is compared by change hash and
// created or updated as needed, then sync records with no matching live
// item are swept and their external events deleted.
//
// The pass polls the registry's cancellation flag before each item and
// before the orphan sweep. On cancellation the pass stops immediately,
// already-applied changes are kept, and the sweep is skipped. A
// calendar-gone failure aborts the pass and disables the user's sync with
// a persisted error reason.
func (e *Engine) BulkSync(ctx context.Context, userID uuid.UUID) error {
	log := logger.FromContext(ctx).With(
		slog.String("user_id", userID.String()),
		slog.String("op", "bulk_sync"),
	)

	settings, err := e.settings.Get(ctx, userID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return ErrSyncDisabled
		}
		return fmt.Errorf("failed to load sync settings: %w", err)
	}
	if !settings.Enabled || settings.CalendarID == nil {
		return ErrSyncDisabled
	}
	calendarID := *settings.CalendarID

	// The pass owns its client; state from other users or earlier passes
	// never bleeds in.
	client := e.newClient()
	if r, ok := client.(resetter); ok {
		r.Reset()
	}

	oneOffs, err := e.tasks.ListSyncableOneOff(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load syncable tasks: %w", err)
	}
	insts, err := e.instances.ListSyncable(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load syncable instances: %w", err)
	}
	recs, err := e.records.ListByUser(ctx, userID)
	if err != nil {
		return fmt.Errorf("failed to load sync records: %w", err)
	}

	recByTask := make(map[uuid.UUID]*domain.SyncRecord)
	recByInstance := make(map[uuid.UUID]*domain.SyncRecord)
	for _, rec := range recs {
		switch {
		case rec.TaskID != nil:
			recByTask[*rec.TaskID] = rec
		case rec.InstanceID != nil:
			recByInstance[*rec.InstanceID] = rec
		}
	}

	record := func(fn func(*Progress)) { e.registry.Record(userID, fn) }
	liveTasks := make(map[uuid.UUID]bool, len(oneOffs))
	liveInstances := make(map[uuid.UUID]bool, len(insts))

	for _, t := range oneOffs {
		if e.registry.Cancelled(userID) {
			log.Info("bulk sync cancelled", "progress", e.registry.Progress(userID))
			return nil
		}
		liveTasks[t.ID] = true
		item := syncItem{userID: userID, taskID: &t.ID, mirrored: TaskMirrored(t)}
		if err := e.applyItem(ctx, client, calendarID, item, recByTask[t.ID], record); err != nil {
			return e.abortPass(ctx, settings, log, err)
		}
	}

	parents := make(map[uuid.UUID]*domain.Task)
	for _, inst := range insts {
		if e.registry.Cancelled(userID) {
			log.Info("bulk sync cancelled", "progress", e.registry.Progress(userID))
			return nil
		}
		parent, err := e.parentTask(ctx, parents, inst.TaskID)
		if err != nil {
			log.Warn("failed to load parent task for instance, skipping",
				"instance_id", inst.ID, "task_id", inst.TaskID, "error", err)
			record(func(p *Progress) { p.Skipped++ })
			continue
		}
		m := InstanceMirrored(inst, parent)
		if m.Time == "" {
			// Instance of a rule without a time slot: not syncable. Its
			// record, if any, is cleaned up by the orphan sweep.
			continue
		}
		liveInstances[inst.ID] = true
		item := syncItem{userID: userID, instanceID: &inst.ID, mirrored: m}
		if err := e.applyItem(ctx, client, calendarID, item, recByInstance[inst.ID], record); err != nil {
			return e.abortPass(ctx, settings, log, err)
		}
	}

	// Orphan sweep: any record with no matching live item points at an
	// external event that should no longer exist.
	for _, rec := range recs {
		if e.registry.Cancelled(userID) {
			log.Info("bulk sync cancelled before orphan cleanup",
				"progress", e.registry.Progress(userID))
			return nil
		}
		live := (rec.TaskID != nil && liveTasks[*rec.TaskID]) ||
			(rec.InstanceID != nil && liveInstances[*rec.InstanceID])
		if live {
			continue
		}

		if err := client.DeleteEvent(ctx, calendarID, rec.ExternalEventID); err != nil {
			if fatal := e.classify(ctx, err); fatal != nil {
				return e.abortPass(ctx, settings, log, fatal)
			}
			log.Warn("failed to delete orphan event, skipping",
				"record_id", rec.ID, "event_id", rec.ExternalEventID, "error", err)
			record(func(p *Progress) { p.Skipped++ })
			continue
		}
		if err := e.records.Delete(ctx, rec.ID); err != nil && !store.IsNotFoundError(err) {
			return fmt.Errorf("failed to delete orphan sync record: %w", err)
		}
		record(func(p *Progress) { p.Deleted++ })
	}

	log.Info("bulk sync completed", "progress", e.registry.Progress(userID))
	return nil
}

// noProgress is the progress recorder for single-item operations, which
// run outside any pass.
func noProgress(func(*Progress)) {}

// SyncTask runs the compare-and-apply step for exactly one task, used by
// the low-latency per-mutation triggers. A task that no longer exists or
// is no longer syncable is unsynced instead.
func (e *Engine) SyncTask(ctx context.Context, taskID uuid.UUID) error {
	t, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return e.UnsyncTask(ctx, taskID)
		}
		return fmt.Errorf("failed to load task: %w", err)
	}

	settings, err := e.enabledSettings(ctx, t.UserID)
	if err != nil || settings == nil {
		return err
	}

	eligible, err := e.taskSyncable(ctx, t)
	if err != nil {
		return err
	}
	if !eligible {
		return e.UnsyncTask(ctx, taskID)
	}

	rec, err := e.records.GetByTask(ctx, taskID)
	if err != nil && !store.IsNotFoundError(err) {
		return fmt.Errorf("failed to load sync record: %w", err)
	}

	item := syncItem{userID: t.UserID, taskID: &t.ID, mirrored: TaskMirrored(t)}
	if err := e.applyItem(ctx, e.newClient(), *settings.CalendarID, item, rec, noProgress); err != nil {
		return e.abortPass(ctx, settings, e.logger, err)
	}
	return nil
}

// SyncInstance runs the compare-and-apply step for exactly one instance.
// An instance that no longer exists or has no concrete time slot is
// unsynced instead.
func (e *Engine) SyncInstance(ctx context.Context, instanceID uuid.UUID) error {
	inst, err := e.instances.GetByID(ctx, instanceID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return e.UnsyncInstance(ctx, instanceID)
		}
		return fmt.Errorf("failed to load instance: %w", err)
	}

	settings, err := e.enabledSettings(ctx, inst.UserID)
	if err != nil || settings == nil {
		return err
	}

	parent, err := e.tasks.GetByID(ctx, inst.TaskID)
	if err != nil {
		return fmt.Errorf("failed to load parent task: %w", err)
	}

	m := InstanceMirrored(inst, parent)
	if parent.Encrypted || m.Time == "" {
		return e.UnsyncInstance(ctx, instanceID)
	}

	rec, err := e.records.GetByInstance(ctx, instanceID)
	if err != nil && !store.IsNotFoundError(err) {
		return fmt.Errorf("failed to load sync record: %w", err)
	}

	item := syncItem{userID: inst.UserID, instanceID: &inst.ID, mirrored: m}
	if err := e.applyItem(ctx, e.newClient(), *settings.CalendarID, item, rec, noProgress); err != nil {
		return e.abortPass(ctx, settings, e.logger, err)
	}
	return nil
}

// UnsyncTask deletes the external event mirroring the task, if any, and its
// sync record. Used on task deletion and on eligibility loss. Missing
// records are a no-op, so it is safe to call unconditionally.
func (e *Engine) UnsyncTask(ctx context.Context, taskID uuid.UUID) error {
	rec, err := e.records.GetByTask(ctx, taskID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to load sync record: %w", err)
	}
	return e.unsyncRecord(ctx, rec)
}

// UnsyncInstance deletes the external event mirroring the instance, if any,
// and its sync record.
func (e *Engine) UnsyncInstance(ctx context.Context, instanceID uuid.UUID) error {
	rec, err := e.records.GetByInstance(ctx, instanceID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil
		}
		return fmt.Errorf("failed to load sync record: %w", err)
	}
	return e.unsyncRecord(ctx, rec)
}

// unsyncRecord deletes the external event first and the record only after
// the deletion succeeded, so a failure never strands an event without a
// record pointing at it.
func (e *Engine) unsyncRecord(ctx context.Context, rec *domain.SyncRecord) error {
	settings, err := e.enabledSettings(ctx, rec.UserID)
	if err != nil {
		return err
	}
	if settings != nil {
		if err := e.newClient().DeleteEvent(ctx, *settings.CalendarID, rec.ExternalEventID); err != nil {
			if fatal := e.classify(ctx, err); fatal != nil {
				return e.abortPass(ctx, settings, e.logger, fatal)
			}
			return fmt.Errorf("failed to delete external event: %w", err)
		}
	}
	if err := e.records.Delete(ctx, rec.ID); err != nil && !store.IsNotFoundError(err) {
		return fmt.Errorf("failed to delete sync record: %w", err)
	}
	return nil
}

// applyItem performs the hash compare-and-apply for one item. Item-level
// failures are logged, counted as skipped and swallowed; the returned error
// is non-nil only for pass-fatal conditions (calendar gone, context done).
func (e *Engine) applyItem(
	ctx context.Context,
	client calendar.Client,
	calendarID string,
	item syncItem,
	rec *domain.SyncRecord,
	record func(func(*Progress)),
) error {
	log := logger.FromContext(ctx)
	hash := ChangeHash(item.mirrored)

	// Unchanged since the last push: no API call at all.
	if rec != nil && rec.ChangeHash == hash {
		record(func(p *Progress) { p.Skipped++ })
		return nil
	}

	data := eventData(item.mirrored)

	if rec != nil {
		if err := client.UpdateEvent(ctx, calendarID, rec.ExternalEventID, data); err != nil {
			if fatal := e.classify(ctx, err); fatal != nil {
				return fatal
			}
			log.Warn("failed to update event, skipping item",
				"record_id", rec.ID, "error", err)
			record(func(p *Progress) { p.Skipped++ })
			return nil
		}
		rec.ChangeHash = hash
		rec.LastSyncedAt = time.Now().UTC()
		if err := e.records.Update(ctx, rec); err != nil {
			return fmt.Errorf("failed to update sync record: %w", err)
		}
		record(func(p *Progress) { p.Updated++ })
		return nil
	}

	eventID, err := client.CreateEvent(ctx, calendarID, data)
	if err != nil {
		if fatal := e.classify(ctx, err); fatal != nil {
			return fatal
		}
		log.Warn("failed to create event, skipping item", "error", err)
		record(func(p *Progress) { p.Skipped++ })
		return nil
	}

	var newRec *domain.SyncRecord
	if item.taskID != nil {
		newRec, err = domain.NewTaskSyncRecord(item.userID, *item.taskID, eventID, hash)
	} else {
		newRec, err = domain.NewInstanceSyncRecord(item.userID, *item.instanceID, eventID, hash)
	}
	if err != nil {
		return fmt.Errorf("failed to build sync record: %w", err)
	}
	if err := e.records.Create(ctx, newRec); err != nil {
		return fmt.Errorf("failed to create sync record: %w", err)
	}
	record(func(p *Progress) { p.Created++ })
	return nil
}

// classify decides whether a calendar error is fatal for the pass. Context
// errors and calendar-gone are fatal; everything else is item-level.
func (e *Engine) classify(ctx context.Context, err error) error {
	if ctx.Err() != nil {
		return ctx.Err()
	}
	if errors.Is(err, calendar.ErrCalendarGone) {
		return err
	}
	return nil
}

// abortPass handles a pass-fatal error. A calendar-gone failure disables
// the user's sync and persists the reason so status() can surface it;
// plain context errors are returned as-is.
func (e *Engine) abortPass(
	ctx context.Context,
	settings *domain.SyncSettings,
	log *slog.Logger,
	cause error,
) error {
	if !errors.Is(cause, calendar.ErrCalendarGone) {
		return cause
	}

	reason := cause.Error()
	settings.Enabled = false
	settings.LastError = &reason
	settings.UpdatedAt = time.Now().UTC()

	// The pass context may already be cancelled or expired; persisting the
	// disable must still go through.
	persistCtx := context.WithoutCancel(ctx)
	if err := e.settings.Upsert(persistCtx, settings); err != nil {
		log.Error("failed to persist sync auto-disable",
			"user_id", settings.UserID, "error", err)
	} else {
		log.Warn("calendar inaccessible, sync auto-disabled",
			"user_id", settings.UserID, "reason", reason)
	}

	return fmt.Errorf("%w: %v", errPassAborted, cause)
}

// enabledSettings returns the user's settings when sync is enabled with a
// calendar, nil (with nil error) when sync is simply off.
func (e *Engine) enabledSettings(ctx context.Context, userID uuid.UUID) (*domain.SyncSettings, error) {
	settings, err := e.settings.Get(ctx, userID)
	if err != nil {
		if store.IsNotFoundError(err) {
			return nil, nil
		}
		return nil, fmt.Errorf("failed to load sync settings: %w", err)
	}
	if !settings.Enabled || settings.CalendarID == nil {
		return nil, nil
	}
	return settings, nil
}

// taskSyncable reports whether a one-off task is eligible for mirroring:
// concrete date and time, not encrypted, not recurring, not deleted or
// archived, and not a container with children.
func (e *Engine) taskSyncable(ctx context.Context, t *domain.Task) (bool, error) {
	if t.IsRecurring || t.Encrypted || !t.HasSchedule() {
		return false, nil
	}
	if t.Status == domain.TaskStatusDeleted || t.Status == domain.TaskStatusArchived {
		return false, nil
	}
	hasChildren, err := e.tasks.HasChildren(ctx, t.ID)
	if err != nil {
		return false, fmt.Errorf("failed to check task children: %w", err)
	}
	return !hasChildren, nil
}

// parentTask loads inst's parent through a per-pass cache.
func (e *Engine) parentTask(
	ctx context.Context,
	cache map[uuid.UUID]*domain.Task,
	taskID uuid.UUID,
) (*domain.Task, error) {
	if t, ok := cache[taskID]; ok {
		return t, nil
	}
	t, err := e.tasks.GetByID(ctx, taskID)
	if err != nil {
		return nil, err
	}
	cache[taskID] = t
	return t, nil
}

// eventData converts a mirrored field set into the outgoing event payload.
func eventData(m Mirrored) calendar.EventData {
	start, err := time.Parse(time.DateOnly+" 15:04", m.Date+" "+m.Time)
	allDay := false
	if err != nil || m.Time == "" {
		start, _ = time.Parse(time.DateOnly, m.Date)
		allDay = true
	}

	data := calendar.EventData{
		Title:     m.Title,
		Start:     start.UTC(),
		AllDay:    allDay,
		Completed: m.Status == string(domain.TaskStatusCompleted),
	}
	if m.Duration > 0 {
		end := data.Start.Add(time.Duration(m.Duration) * time.Minute)
		data.End = &end
	}
	return data
}
