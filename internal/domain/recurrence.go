package domain

import (
	"errors"
	"regexp"
	"time"
)

// Frequency is the base cadence of a recurrence rule.
type Frequency string

// Supported recurrence frequencies.
const (
	FrequencyDaily   Frequency = "daily"
	FrequencyWeekly  Frequency = "weekly"
	FrequencyMonthly Frequency = "monthly"
	FrequencyYearly  Frequency = "yearly"
)

// Recurrence-rule validation errors
var (
	// ErrRecurrenceFrequencyInvalid is returned when a rule's frequency is
	// not one of the defined Frequency values.
	ErrRecurrenceFrequencyInvalid = errors.New("recurrence frequency is invalid")

	// ErrRecurrenceIntervalInvalid is returned when a rule's interval is
	// less than one.
	ErrRecurrenceIntervalInvalid = errors.New("recurrence interval must be at least 1")

	// ErrRecurrenceDayOfMonthInvalid is returned when a rule's day-of-month
	// is outside 1..31.
	ErrRecurrenceDayOfMonthInvalid = errors.New("recurrence day of month must be between 1 and 31")

	// ErrRecurrenceTimeInvalid is returned when a rule's time-of-day is not
	// a valid HH:MM string.
	ErrRecurrenceTimeInvalid = errors.New("recurrence time of day must be HH:MM")

	// ErrRecurrenceBoundsInvalid is returned when a rule's end date is
	// before its start date.
	ErrRecurrenceBoundsInvalid = errors.New("recurrence end cannot be before recurrence start")
)

var timeOfDayPattern = regexp.MustCompile(`^([01][0-9]|2[0-3]):[0-5][0-9]$`)

// RecurrenceRule describes how a recurring task repeats. Dates in Start and
// End are date-only bounds (time components are ignored); TimeOfDay, when
// set, is the nominal HH:MM slot every occurrence inherits.
type RecurrenceRule struct {
	Frequency   Frequency      `json:"frequency"`
	Interval    int            `json:"interval"`
	DaysOfWeek  []time.Weekday `json:"days_of_week,omitempty"`
	DayOfMonth  *int           `json:"day_of_month,omitempty"`
	MonthOfYear *time.Month    `json:"month_of_year,omitempty"`
	TimeOfDay   *string        `json:"time_of_day,omitempty"`
	Start       *time.Time     `json:"start,omitempty"`
	End         *time.Time     `json:"end,omitempty"`
}

// Validate checks if the RecurrenceRule has valid data.
// Returns an error if any field fails validation.
//
// A monthly or yearly rule anchored to day-of-month 29-31 is valid even
// though it produces no occurrence in months too short to contain that day;
// that is the defined evaluation semantics, not an error.
func (r *RecurrenceRule) Validate() error {
	switch r.Frequency {
	case FrequencyDaily, FrequencyWeekly, FrequencyMonthly, FrequencyYearly:
	default:
		return ErrRecurrenceFrequencyInvalid
	}

	if r.Interval < 1 {
		return ErrRecurrenceIntervalInvalid
	}

	if r.DayOfMonth != nil && (*r.DayOfMonth < 1 || *r.DayOfMonth > 31) {
		return ErrRecurrenceDayOfMonthInvalid
	}

	if r.TimeOfDay != nil && !timeOfDayPattern.MatchString(*r.TimeOfDay) {
		return ErrRecurrenceTimeInvalid
	}

	if r.Start != nil && r.End != nil && r.End.Before(*r.Start) {
		return ErrRecurrenceBoundsInvalid
	}

	return nil
}
