package calsync

import (
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/calmhive/taskmirror/internal/domain"
)

func TestChangeHash_Deterministic(t *testing.T) {
	t.Parallel()

	m := Mirrored{
		Title:    "Morning run",
		Date:     "2026-09-01",
		Time:     "07:30",
		Duration: 45,
		Status:   "pending",
	}

	first := ChangeHash(m)
	second := ChangeHash(m)
	assert.Equal(t, first, second, "hash over unchanged content must be stable")
	assert.Len(t, first, 64)
}

func TestChangeHash_SensitiveToEveryField(t *testing.T) {
	t.Parallel()

	base := Mirrored{
		Title:    "Morning run",
		Date:     "2026-09-01",
		Time:     "07:30",
		Duration: 45,
		Status:   "pending",
	}
	baseHash := ChangeHash(base)

	mutations := map[string]Mirrored{
		"title":    {Title: "Evening run", Date: base.Date, Time: base.Time, Duration: base.Duration, Status: base.Status},
		"date":     {Title: base.Title, Date: "2026-09-02", Time: base.Time, Duration: base.Duration, Status: base.Status},
		"time":     {Title: base.Title, Date: base.Date, Time: "08:00", Duration: base.Duration, Status: base.Status},
		"duration": {Title: base.Title, Date: base.Date, Time: base.Time, Duration: 60, Status: base.Status},
		"status":   {Title: base.Title, Date: base.Date, Time: base.Time, Duration: base.Duration, Status: "completed"},
	}

	for name, mutated := range mutations {
		t.Run(name, func(t *testing.T) {
			assert.NotEqual(t, baseHash, ChangeHash(mutated))
		})
	}
}

func TestChangeHash_FieldBoundaries(t *testing.T) {
	t.Parallel()

	// Without length prefixes these two would collide by shifting a byte
	// from title into date.
	a := Mirrored{Title: "ab", Date: "c"}
	b := Mirrored{Title: "a", Date: "bc"}
	assert.NotEqual(t, ChangeHash(a), ChangeHash(b))
}

func TestTaskMirrored(t *testing.T) {
	t.Parallel()

	date := time.Date(2026, 9, 14, 0, 0, 0, 0, time.UTC)
	slot := "09:15"
	duration := 30
	task, err := domain.NewTask(uuid.New(), "Review budget")
	require.NoError(t, err)
	task.ScheduledDate = &date
	task.ScheduledTime = &slot
	task.DurationMinutes = &duration

	m := TaskMirrored(task)
	assert.Equal(t, "Review budget", m.Title)
	assert.Equal(t, "2026-09-14", m.Date)
	assert.Equal(t, "09:15", m.Time)
	assert.Equal(t, 30, m.Duration)
	assert.Equal(t, "pending", m.Status)
}

func TestInstanceMirrored_InheritsParentSlot(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	slot := "06:45"
	duration := 20
	parent, err := domain.NewTask(userID, "Stretch")
	require.NoError(t, err)
	parent.IsRecurring = true
	parent.DurationMinutes = &duration
	parent.Recurrence = &domain.RecurrenceRule{
		Frequency: domain.FrequencyDaily,
		Interval:  1,
		TimeOfDay: &slot,
	}

	inst, err := domain.NewTaskInstance(userID, parent.ID, time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	m := InstanceMirrored(inst, parent)
	assert.Equal(t, "Stretch", m.Title)
	assert.Equal(t, "2026-09-03", m.Date)
	assert.Equal(t, "06:45", m.Time)
	assert.Equal(t, 20, m.Duration)
}

func TestInstanceMirrored_PinnedSlotWins(t *testing.T) {
	t.Parallel()

	userID := uuid.New()
	slot := "06:45"
	parent, err := domain.NewTask(userID, "Stretch")
	require.NoError(t, err)
	parent.IsRecurring = true
	parent.Recurrence = &domain.RecurrenceRule{
		Frequency: domain.FrequencyDaily,
		Interval:  1,
		TimeOfDay: &slot,
	}

	inst, err := domain.NewTaskInstance(userID, parent.ID, time.Date(2026, 9, 3, 0, 0, 0, 0, time.UTC))
	require.NoError(t, err)

	// Rescheduled across midnight: the mirrored slot follows the pin, the
	// instance's materialization date does not move.
	pinned := time.Date(2026, 9, 4, 10, 30, 0, 0, time.UTC)
	inst.ScheduledAt = &pinned

	m := InstanceMirrored(inst, parent)
	assert.Equal(t, "2026-09-04", m.Date)
	assert.Equal(t, "10:30", m.Time)
	assert.Equal(t, "2026-09-03", inst.InstanceDate.Format(time.DateOnly))
}
