package calendar

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"sync"
	"time"
)

// ThrottleConfig holds configuration for the adaptive throttle.
type ThrottleConfig struct {
	// MinCallInterval is the baseline spacing between outbound calls.
	MinCallInterval time.Duration

	// RatePenalty is added to the spacing, for the remainder of the
	// current pass, each time the service rate-limits a call.
	RatePenalty time.Duration

	// MaxRetries is the number of attempts for retryable errors.
	MaxRetries int
}

// DefaultThrottleConfig returns a ThrottleConfig with reasonable defaults:
// roughly five calls per second and three attempts per call.
func DefaultThrottleConfig() ThrottleConfig {
	return ThrottleConfig{
		MinCallInterval: 200 * time.Millisecond,
		RatePenalty:     500 * time.Millisecond,
		MaxRetries:      3,
	}
}

// Throttle wraps a Client, spacing outbound calls by a minimum interval and
// retrying rate-limit and transient failures with exponential backoff. Rate
// limiting also raises the spacing for the rest of the current pass; the
// penalty resets when a new pass starts, so a bad pass does not slow every
// later one.
//
// A Throttle is owned by one sync pass at a time. The mutex only guards the
// pacing state against the engine's progress callbacks, not concurrent
// passes.
type Throttle struct {
	client Client
	config ThrottleConfig
	logger *slog.Logger

	mu       sync.Mutex
	penalty  time.Duration
	lastCall time.Time
}

// NewThrottle creates a Throttle around client.
// If logger is nil, the default logger is used.
func NewThrottle(client Client, config ThrottleConfig, logger *slog.Logger) *Throttle {
	if client == nil {
		panic("client cannot be nil")
	}
	if config.MaxRetries < 1 {
		config.MaxRetries = 1
	}
	if logger == nil {
		logger = slog.Default()
	}

	return &Throttle{
		client: client,
		config: config,
		logger: logger.With(slog.String("component", "calendar_throttle")),
	}
}

// Ensure Throttle implements the Client interface
var _ Client = (*Throttle)(nil)

// Reset clears the accumulated rate penalty. Called at the start of each
// sync pass.
func (t *Throttle) Reset() {
	t.mu.Lock()
	defer t.mu.Unlock()
	t.penalty = 0
}

// FindOrCreateCalendar implements Client.FindOrCreateCalendar.
func (t *Throttle) FindOrCreateCalendar(ctx context.Context, name string) (string, error) {
	var id string
	err := t.call(ctx, func(ctx context.Context) error {
		var callErr error
		id, callErr = t.client.FindOrCreateCalendar(ctx, name)
		return callErr
	})
	return id, err
}

// DeleteCalendar implements Client.DeleteCalendar.
func (t *Throttle) DeleteCalendar(ctx context.Context, calendarID string) error {
	return t.call(ctx, func(ctx context.Context) error {
		return t.client.DeleteCalendar(ctx, calendarID)
	})
}

// CreateEvent implements Client.CreateEvent.
func (t *Throttle) CreateEvent(ctx context.Context, calendarID string, data EventData) (string, error) {
	var id string
	err := t.call(ctx, func(ctx context.Context) error {
		var callErr error
		id, callErr = t.client.CreateEvent(ctx, calendarID, data)
		return callErr
	})
	return id, err
}

// UpdateEvent implements Client.UpdateEvent.
func (t *Throttle) UpdateEvent(ctx context.Context, calendarID, eventID string, data EventData) error {
	return t.call(ctx, func(ctx context.Context) error {
		return t.client.UpdateEvent(ctx, calendarID, eventID, data)
	})
}

// DeleteEvent implements Client.DeleteEvent.
func (t *Throttle) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return t.call(ctx, func(ctx context.Context) error {
		return t.client.DeleteEvent(ctx, calendarID, eventID)
	})
}

// call paces and executes one wrapped call with bounded retries.
func (t *Throttle) call(ctx context.Context, fn func(ctx context.Context) error) error {
	var lastErr error
	for attempt := 1; attempt <= t.config.MaxRetries; attempt++ {
		if err := t.pace(ctx); err != nil {
			return err
		}

		err := fn(ctx)
		if err == nil {
			return nil
		}
		lastErr = err

		switch {
		case errors.Is(err, ErrCalendarGone):
			// Fatal for the pass; retrying cannot help.
			return err
		case errors.Is(err, ErrRateLimited):
			t.mu.Lock()
			t.penalty += t.config.RatePenalty
			t.mu.Unlock()
			t.logger.Warn("rate limited, backing off",
				"attempt", attempt,
				"penalty", t.currentPenalty())
		case errors.Is(err, ErrTransient):
			t.logger.Debug("transient calendar error",
				"attempt", attempt,
				"error", err)
		default:
			// Not a retryable class.
			return err
		}

		if attempt < t.config.MaxRetries {
			if err := t.sleep(ctx, t.backoff(attempt)); err != nil {
				return err
			}
		}
	}

	return fmt.Errorf("calendar call failed after %d attempts: %w", t.config.MaxRetries, lastErr)
}

// pace blocks until the minimum spacing (plus any accumulated penalty)
// since the previous call has elapsed.
func (t *Throttle) pace(ctx context.Context) error {
	t.mu.Lock()
	interval := t.config.MinCallInterval + t.penalty
	wait := interval - time.Since(t.lastCall)
	t.lastCall = time.Now().Add(max(wait, 0))
	t.mu.Unlock()

	if wait <= 0 {
		return nil
	}
	return t.sleep(ctx, wait)
}

// backoff returns the delay before retry attempt+1.
func (t *Throttle) backoff(attempt int) time.Duration {
	d := t.config.MinCallInterval + t.currentPenalty()
	return d * time.Duration(1<<attempt)
}

func (t *Throttle) currentPenalty() time.Duration {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.penalty
}

func (t *Throttle) sleep(ctx context.Context, d time.Duration) error {
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
