// Package calendar models the external calendar service consumed by the
// sync engine: the abstract client interface, its error taxonomy, and the
// adaptive throttle that paces every outbound call.
package calendar

import (
	"context"
	"errors"
	"time"
)

// Error classes returned by Client implementations. The sync engine
// distinguishes them with errors.Is.
var (
	// ErrRateLimited indicates the service rejected the call for exceeding
	// its rate budget. Retryable; the throttle backs off and slows the
	// current pass.
	ErrRateLimited = errors.New("calendar: rate limited")

	// ErrCalendarGone indicates the calendar itself is inaccessible
	// (deleted, or permission revoked). Fatal for the whole pass; the
	// orchestrator disables the user's sync.
	ErrCalendarGone = errors.New("calendar: calendar gone")

	// ErrTransient indicates a temporary failure of a single call.
	// Retryable a bounded number of times, then treated as an item-level
	// failure.
	ErrTransient = errors.New("calendar: transient error")
)

// EventData is the payload mirrored into one external calendar event.
type EventData struct {
	Title       string     `json:"title"`
	Description string     `json:"description,omitempty"`
	Start       time.Time  `json:"start"`
	End         *time.Time `json:"end,omitempty"`
	AllDay      bool       `json:"all_day"`
	Completed   bool       `json:"completed"`
}

// Client is the abstract external calendar service. Implementations map
// these operations onto the real service's HTTP API and translate its
// failures into the package's error classes.
type Client interface {
	// FindOrCreateCalendar returns the ID of the calendar with the given
	// name, creating it if absent. When the service holds several
	// calendars with the same name, implementations keep one and delete
	// the duplicates, so repeated enables never accumulate calendars.
	FindOrCreateCalendar(ctx context.Context, name string) (string, error)

	// DeleteCalendar removes the whole calendar and every event in it
	// with a single call.
	DeleteCalendar(ctx context.Context, calendarID string) error

	// CreateEvent creates an event and returns its ID.
	CreateEvent(ctx context.Context, calendarID string, data EventData) (string, error)

	// UpdateEvent rewrites an existing event.
	UpdateEvent(ctx context.Context, calendarID, eventID string, data EventData) error

	// DeleteEvent removes a single event.
	DeleteEvent(ctx context.Context, calendarID, eventID string) error
}

// ClientFactory returns a Client for one sync pass or single-item operation.
// Each caller gets its own client, so one user's call pacing and accumulated
// rate penalties never slow another user's pass.
type ClientFactory func() Client
