package calsync

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmhive/taskmirror/internal/calendar"
	"github.com/calmhive/taskmirror/internal/domain"
)

func newOrchestrator(f *engineFixture, config OrchestratorConfig) *Orchestrator {
	return NewOrchestrator(
		f.engine, f.registry, f.settings, f.records,
		func() calendar.Client { return f.client },
		config, nil,
	)
}

func TestOrchestrator_EnableProvisionsCalendarAndSyncs(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.oneOff(t, "File taxes", "2026-09-10", "14:00")
	o := newOrchestrator(f, OrchestratorConfig{CalendarName: "Tasks"})

	require.NoError(t, o.Enable(context.Background(), f.userID))
	o.Wait()

	assert.Equal(t, 1, f.client.FindOrCreateCalendarCalls)

	settings, err := f.settings.Get(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	require.NotNil(t, settings.CalendarID)
	assert.Equal(t, testCalendarID, *settings.CalendarID)

	assert.Equal(t, 1, f.client.CreateEventCalls, "enable fires an initial bulk pass")
}

func TestOrchestrator_EnableClearsPreviousError(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	o := newOrchestrator(f, OrchestratorConfig{})
	reason := "calendar: calendar gone"
	f.settings.Seed(&domain.SyncSettings{
		UserID:    f.userID,
		Enabled:   false,
		LastError: &reason,
	})

	require.NoError(t, o.Enable(context.Background(), f.userID))
	o.Wait()

	settings, err := f.settings.Get(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, settings.Enabled)
	assert.Nil(t, settings.LastError, "re-enable starts from a clean slate")
}

func TestOrchestrator_EnableCalendarFailure(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.settings.Seed(&domain.SyncSettings{UserID: f.userID, Enabled: false})
	o := newOrchestrator(f, OrchestratorConfig{})

	f.client.FindOrCreateCalendarFn = func(ctx context.Context, name string) (string, error) {
		return "", calendar.ErrCalendarGone
	}

	err := o.Enable(context.Background(), f.userID)
	require.Error(t, err)

	settings, getErr := f.settings.Get(context.Background(), f.userID)
	require.NoError(t, getErr)
	assert.False(t, settings.Enabled, "enable must not persist without a calendar")
}

func TestOrchestrator_DisableKeepingEvents(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.oneOff(t, "File taxes", "2026-09-10", "14:00")
	o := newOrchestrator(f, OrchestratorConfig{})
	require.NoError(t, f.engine.BulkSync(context.Background(), f.userID))

	require.NoError(t, o.Disable(context.Background(), f.userID, false))

	assert.Equal(t, 0, f.client.DeleteCalendarCalls)
	assert.Len(t, f.records.All(), 1, "records survive a keep-events disable")
	assert.Len(t, f.client.Events, 1, "events survive a keep-events disable")

	settings, err := f.settings.Get(context.Background(), f.userID)
	require.NoError(t, err)
	assert.False(t, settings.Enabled)
	assert.NotNil(t, settings.CalendarID, "calendar ID is kept for re-enable")
}

func TestOrchestrator_DisableDeletingEvents(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.oneOff(t, "File taxes", "2026-09-10", "14:00")
	f.oneOff(t, "Walk dog", "2026-09-11", "08:00")
	o := newOrchestrator(f, OrchestratorConfig{})
	require.NoError(t, f.engine.BulkSync(context.Background(), f.userID))
	require.Len(t, f.records.All(), 2)

	require.NoError(t, o.Disable(context.Background(), f.userID, true))

	assert.Equal(t, 1, f.client.DeleteCalendarCalls,
		"bulk removal uses one calendar-level call, not per-event deletes")
	assert.Equal(t, 0, f.client.DeleteEventCalls)
	assert.Empty(t, f.records.All())

	settings, err := f.settings.Get(context.Background(), f.userID)
	require.NoError(t, err)
	assert.False(t, settings.Enabled)
	assert.Nil(t, settings.CalendarID)
}

func TestOrchestrator_DisableRecordsSurviveFailedCalendarDelete(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.oneOff(t, "File taxes", "2026-09-10", "14:00")
	o := newOrchestrator(f, OrchestratorConfig{})
	require.NoError(t, f.engine.BulkSync(context.Background(), f.userID))

	f.client.DeleteCalendarFn = func(ctx context.Context, calendarID string) error {
		return calendar.ErrTransient
	}

	err := o.Disable(context.Background(), f.userID, true)
	require.Error(t, err)
	assert.Len(t, f.records.All(), 1,
		"records are only removed after the external deletion succeeds")
}

func TestOrchestrator_DisableUnknownUserIsNoOp(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	o := newOrchestrator(f, OrchestratorConfig{})
	assert.NoError(t, o.Disable(context.Background(), uuid.New(), true))
	assert.Equal(t, 0, f.client.DeleteCalendarCalls)
}

func TestOrchestrator_DisableClearsLastError(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	o := newOrchestrator(f, OrchestratorConfig{})
	reason := "calendar: calendar gone"
	calID := testCalendarID
	f.settings.Seed(&domain.SyncSettings{
		UserID:     f.userID,
		Enabled:    false,
		CalendarID: &calID,
		LastError:  &reason,
	})

	require.NoError(t, o.Disable(context.Background(), f.userID, false))

	settings, err := f.settings.Get(context.Background(), f.userID)
	require.NoError(t, err)
	assert.Nil(t, settings.LastError, "explicit disable clears the persisted error")
}

func TestOrchestrator_StatusIdle(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.oneOff(t, "File taxes", "2026-09-10", "14:00")
	o := newOrchestrator(f, OrchestratorConfig{})
	require.NoError(t, f.engine.BulkSync(context.Background(), f.userID))

	report, err := o.Status(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, report.Enabled)
	assert.False(t, report.Running)
	assert.Equal(t, 1, report.SyncedCount)
	assert.Nil(t, report.LastError)
}

func TestOrchestrator_StatusWhileRunning(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	o := newOrchestrator(f, OrchestratorConfig{})

	f.registry.TryStart(f.userID)
	f.registry.Record(f.userID, func(p *Progress) { p.Created = 4 })

	report, err := o.Status(context.Background(), f.userID)
	require.NoError(t, err)
	assert.True(t, report.Running)
	assert.Equal(t, 4, report.Progress.Created)
}

func TestOrchestrator_StatusSurfacesLastError(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	o := newOrchestrator(f, OrchestratorConfig{})
	reason := "calendar: calendar gone"
	f.settings.Seed(&domain.SyncSettings{
		UserID:    f.userID,
		Enabled:   false,
		LastError: &reason,
	})

	report, err := o.Status(context.Background(), f.userID)
	require.NoError(t, err)
	assert.False(t, report.Enabled)
	require.NotNil(t, report.LastError)
	assert.Equal(t, reason, *report.LastError)
}

func TestOrchestrator_StatusUnknownUser(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	o := newOrchestrator(f, OrchestratorConfig{})

	report, err := o.Status(context.Background(), uuid.New())
	require.NoError(t, err)
	assert.False(t, report.Enabled)
	assert.Equal(t, 0, report.SyncedCount)
}

func TestOrchestrator_TriggerDropsWhileRunning(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.oneOff(t, "File taxes", "2026-09-10", "14:00")
	o := newOrchestrator(f, OrchestratorConfig{UserTimeout: time.Minute})

	started := make(chan struct{})
	release := make(chan struct{})
	f.client.CreateEventFn = func(ctx context.Context, calendarID string, data calendar.EventData) (string, error) {
		close(started)
		<-release
		return "evt-1", nil
	}

	o.TriggerBulkSync(f.userID)
	<-started

	// Second trigger while the first pass is in flight is dropped.
	o.TriggerBulkSync(f.userID)

	close(release)
	o.Wait()

	assert.Equal(t, 1, f.client.CreateEventCalls,
		"dropped trigger must not run a second pass")
}

func TestOrchestrator_PassPanicIsContained(t *testing.T) {
	t.Parallel()

	f := newEngineFixture(t)
	f.oneOff(t, "File taxes", "2026-09-10", "14:00")
	o := newOrchestrator(f, OrchestratorConfig{UserTimeout: time.Minute})

	f.client.CreateEventFn = func(ctx context.Context, calendarID string, data calendar.EventData) (string, error) {
		panic("boom")
	}

	o.TriggerBulkSync(f.userID)
	o.Wait()

	assert.False(t, f.registry.Running(f.userID),
		"a panicked pass must still release the running flag")

	// The registry admits a fresh pass afterwards.
	assert.True(t, f.registry.TryStart(f.userID))
}
