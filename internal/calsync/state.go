package calsync

import (
	"sync"

	"github.com/google/uuid"
)

// Progress holds the live counters for one sync pass.
type Progress struct {
	Created int `json:"created"`
	Updated int `json:"updated"`
	Skipped int `json:"skipped"`
	Deleted int `json:"deleted"`
}

// userState is the transient per-user sync state. It is process-local and
// reset on restart; none of it is persisted.
type userState struct {
	running   bool
	cancelled bool
	progress  Progress
}

// StateRegistry tracks the in-memory sync state for every user: whether a
// pass is running, its progress counters, and the cooperative cancellation
// flag. It is an injected dependency rather than package-level state so
// tests can instantiate isolated registries.
//
// The registry also provides per-user mutual exclusion: TryStart admits at
// most one pass per user, and a second trigger while one is in flight is
// dropped, not queued.
type StateRegistry struct {
	mu     sync.Mutex
	states map[uuid.UUID]*userState
}

// NewStateRegistry creates an empty StateRegistry.
func NewStateRegistry() *StateRegistry {
	return &StateRegistry{
		states: make(map[uuid.UUID]*userState),
	}
}

// TryStart attempts to begin a pass for the user. It returns false when a
// pass is already running. On success the user's progress counters and
// cancellation flag are reset.
func (r *StateRegistry) TryStart(userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := r.states[userID]
	if st == nil {
		st = &userState{}
		r.states[userID] = st
	}
	if st.running {
		return false
	}

	st.running = true
	st.cancelled = false
	st.progress = Progress{}
	return true
}

// Finish marks the user's pass as no longer running. The final progress
// counters remain readable until the next TryStart.
func (r *StateRegistry) Finish(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.states[userID]; st != nil {
		st.running = false
	}
}

// Running reports whether a pass is currently in flight for the user.
func (r *StateRegistry) Running(userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.states[userID]
	return st != nil && st.running
}

// Cancel sets the user's cancellation flag. The running pass observes it at
// its next loop-iteration boundary, so cancellation latency is bounded by
// the in-flight item, not instantaneous.
func (r *StateRegistry) Cancel(userID uuid.UUID) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.states[userID]; st != nil {
		st.cancelled = true
	}
}

// Cancelled reports whether cancellation was requested for the user's
// current pass.
func (r *StateRegistry) Cancelled(userID uuid.UUID) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.states[userID]
	return st != nil && st.cancelled
}

// Progress returns a copy of the user's current progress counters.
func (r *StateRegistry) Progress(userID uuid.UUID) Progress {
	r.mu.Lock()
	defer r.mu.Unlock()
	if st := r.states[userID]; st != nil {
		return st.progress
	}
	return Progress{}
}

// Record applies a mutation to the user's progress counters. The engine
// calls it after every applied state change so an external observer can
// read live counts.
func (r *StateRegistry) Record(userID uuid.UUID, fn func(*Progress)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	st := r.states[userID]
	if st == nil {
		st = &userState{}
		r.states[userID] = st
	}
	fn(&st.progress)
}
