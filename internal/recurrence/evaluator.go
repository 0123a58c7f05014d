// Package recurrence expands recurrence rules into concrete occurrence
// dates over a bounded horizon. Evaluation is pure: no I/O, no clock access,
// and identical inputs always yield identical output, which is what makes
// re-materialization idempotent.
package recurrence

import (
	"time"

	"github.com/calmhive/taskmirror/internal/domain"
)

// Occurrence is one evaluated occurrence: a calendar date plus the rule's
// nominal time-of-day, if the rule specifies one.
type Occurrence struct {
	Date      time.Time
	TimeOfDay *string
}

// Evaluate expands rule into the ordered, deduplicated set of occurrences
// within the horizonDays-day window starting at from: the dates from through
// from+horizonDays-1, so a 60-day horizon covers exactly 60 calendar days.
// The window is clipped to max(rule.Start, from) and, when present, rule.End
// (an inclusive date bound).
//
// A monthly or yearly rule anchored to day-of-month 29-31 produces no
// occurrence in months too short to contain that day. That is the defined
// rule semantics: the occurrence is absent, not shifted to the nearest
// valid day.
func Evaluate(rule domain.RecurrenceRule, from time.Time, horizonDays int) []Occurrence {
	if horizonDays <= 0 {
		return nil
	}

	windowStart := domain.DateOnly(from)
	windowEnd := windowStart.AddDate(0, 0, horizonDays-1)

	anchor := windowStart
	if rule.Start != nil {
		anchor = domain.DateOnly(*rule.Start)
		if anchor.After(windowStart) {
			windowStart = anchor
		}
	}

	if rule.End != nil {
		end := domain.DateOnly(*rule.End)
		if end.Before(windowEnd) {
			windowEnd = end
		}
	}

	if windowEnd.Before(windowStart) {
		return nil
	}

	var dates []time.Time
	switch rule.Frequency {
	case domain.FrequencyDaily:
		dates = evaluateDaily(rule, anchor, windowStart, windowEnd)
	case domain.FrequencyWeekly:
		dates = evaluateWeekly(rule, anchor, windowStart, windowEnd)
	case domain.FrequencyMonthly:
		dates = evaluateMonthly(rule, anchor, windowStart, windowEnd)
	case domain.FrequencyYearly:
		dates = evaluateYearly(rule, anchor, windowStart, windowEnd)
	default:
		return nil
	}

	occurrences := make([]Occurrence, 0, len(dates))
	var prev time.Time
	for _, d := range dates {
		if !prev.IsZero() && d.Equal(prev) {
			continue
		}
		prev = d
		occurrences = append(occurrences, Occurrence{Date: d, TimeOfDay: rule.TimeOfDay})
	}

	return occurrences
}

func evaluateDaily(rule domain.RecurrenceRule, anchor, start, end time.Time) []time.Time {
	interval := rule.Interval

	// Advance from the anchor to the first occurrence on or after start.
	d := anchor
	if d.Before(start) {
		days := int(start.Sub(d).Hours() / 24)
		steps := days / interval
		d = d.AddDate(0, 0, steps*interval)
		for d.Before(start) {
			d = d.AddDate(0, 0, interval)
		}
	}

	var out []time.Time
	for !d.After(end) {
		out = append(out, d)
		d = d.AddDate(0, 0, interval)
	}
	return out
}

func evaluateWeekly(rule domain.RecurrenceRule, anchor, start, end time.Time) []time.Time {
	days := rule.DaysOfWeek
	if len(days) == 0 {
		days = []time.Weekday{anchor.Weekday()}
	}

	wanted := make(map[time.Weekday]bool, len(days))
	for _, wd := range days {
		wanted[wd] = true
	}

	// Week boundaries are anchored to the Monday of the anchor's week so
	// that "every N weeks" counts whole weeks, not rolling 7-day blocks.
	anchorWeek := startOfWeek(anchor)

	var out []time.Time
	for d := start; !d.After(end); d = d.AddDate(0, 0, 1) {
		if !wanted[d.Weekday()] {
			continue
		}
		weeks := int(startOfWeek(d).Sub(anchorWeek).Hours() / (24 * 7))
		if weeks%rule.Interval != 0 {
			continue
		}
		out = append(out, d)
	}
	return out
}

func evaluateMonthly(rule domain.RecurrenceRule, anchor, start, end time.Time) []time.Time {
	day := anchor.Day()
	if rule.DayOfMonth != nil {
		day = *rule.DayOfMonth
	}

	var out []time.Time
	cursor := time.Date(anchor.Year(), anchor.Month(), 1, 0, 0, 0, 0, time.UTC)
	for !cursor.After(end) {
		if day <= daysInMonth(cursor.Year(), cursor.Month()) {
			d := time.Date(cursor.Year(), cursor.Month(), day, 0, 0, 0, 0, time.UTC)
			if !d.Before(start) && !d.After(end) {
				out = append(out, d)
			}
		}
		cursor = cursor.AddDate(0, rule.Interval, 0)
	}
	return out
}

func evaluateYearly(rule domain.RecurrenceRule, anchor, start, end time.Time) []time.Time {
	month := anchor.Month()
	if rule.MonthOfYear != nil {
		month = *rule.MonthOfYear
	}
	day := anchor.Day()
	if rule.DayOfMonth != nil {
		day = *rule.DayOfMonth
	}

	var out []time.Time
	for year := anchor.Year(); ; year += rule.Interval {
		monthStart := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
		if monthStart.After(end) {
			break
		}
		if day > daysInMonth(year, month) {
			continue
		}
		d := time.Date(year, month, day, 0, 0, 0, 0, time.UTC)
		if !d.Before(start) && !d.After(end) {
			out = append(out, d)
		}
	}
	return out
}

// startOfWeek returns the Monday of t's week at midnight UTC.
func startOfWeek(t time.Time) time.Time {
	offset := (int(t.Weekday()) + 6) % 7
	return domain.DateOnly(t).AddDate(0, 0, -offset)
}

func daysInMonth(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}
