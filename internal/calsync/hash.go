package calsync

import (
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"strconv"
	"time"

	"github.com/calmhive/taskmirror/internal/domain"
)

// Mirrored is the exact field set that round-trips into the external
// calendar, normalized to strings. Both the change hash and the outgoing
// event payload are derived from it, so the hash can never drift from what
// is actually mirrored.
type Mirrored struct {
	Title    string
	Date     string // YYYY-MM-DD
	Time     string // HH:MM, empty when the item has no time
	Duration int    // minutes, 0 when unset
	Status   string
}

// ChangeHash returns a deterministic fingerprint of m. Field order in the
// digest is fixed, so two computations over unchanged content are always
// identical and any change to a mirrored field changes the result. The
// hash is a cheap equality oracle, not a security boundary.
func ChangeHash(m Mirrored) string {
	h := sha256.New()
	// Length-prefix the variable-width fields so adjacent values cannot
	// collide by shifting bytes between them.
	for _, field := range []string{m.Title, m.Date, m.Time, strconv.Itoa(m.Duration), m.Status} {
		fmt.Fprintf(h, "%d:%s;", len(field), field)
	}
	return hex.EncodeToString(h.Sum(nil))
}

// TaskMirrored extracts the mirrored field set from a one-off task.
// The task must carry a concrete schedule (see domain.Task.HasSchedule).
func TaskMirrored(t *domain.Task) Mirrored {
	m := Mirrored{
		Title:  t.Title,
		Status: string(t.Status),
	}
	if t.ScheduledDate != nil {
		m.Date = t.ScheduledDate.UTC().Format(time.DateOnly)
	}
	if t.ScheduledTime != nil {
		m.Time = *t.ScheduledTime
	}
	if t.DurationMinutes != nil {
		m.Duration = *t.DurationMinutes
	}
	return m
}

// InstanceMirrored extracts the mirrored field set from a recurring-task
// instance. Title and duration come from the parent task; the time slot is
// the instance's pinned ScheduledAt when present, otherwise the parent
// rule's nominal time-of-day.
func InstanceMirrored(inst *domain.TaskInstance, parent *domain.Task) Mirrored {
	m := Mirrored{
		Title:  parent.Title,
		Date:   inst.InstanceDate.UTC().Format(time.DateOnly),
		Status: string(inst.Status),
	}
	if parent.DurationMinutes != nil {
		m.Duration = *parent.DurationMinutes
	}
	if inst.ScheduledAt != nil {
		at := inst.ScheduledAt.UTC()
		m.Date = at.Format(time.DateOnly)
		m.Time = at.Format("15:04")
	} else if parent.Recurrence != nil && parent.Recurrence.TimeOfDay != nil {
		m.Time = *parent.Recurrence.TimeOfDay
	}
	return m
}
