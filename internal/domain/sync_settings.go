package domain

import (
	"time"

	"github.com/google/uuid"
)

// SyncSettings is the persisted per-user calendar-sync configuration. It is
// distinct from the in-memory pass state: settings survive restarts while
// progress counters and cancellation flags do not.
type SyncSettings struct {
	UserID     uuid.UUID `json:"user_id"`
	Enabled    bool      `json:"enabled"`
	CalendarID *string   `json:"calendar_id,omitempty"`
	LastError  *string   `json:"last_error,omitempty"`
	UpdatedAt  time.Time `json:"updated_at"`
}
