package calendar

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// scriptedClient returns the queued error for each call, recording call
// times for pacing assertions.
type scriptedClient struct {
	mu    sync.Mutex
	errs  []error
	calls []time.Time
}

func (s *scriptedClient) next() error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.calls = append(s.calls, time.Now())
	if len(s.errs) == 0 {
		return nil
	}
	err := s.errs[0]
	s.errs = s.errs[1:]
	return err
}

func (s *scriptedClient) callCount() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.calls)
}

func (s *scriptedClient) FindOrCreateCalendar(ctx context.Context, name string) (string, error) {
	return "cal-1", s.next()
}

func (s *scriptedClient) DeleteCalendar(ctx context.Context, calendarID string) error {
	return s.next()
}

func (s *scriptedClient) CreateEvent(ctx context.Context, calendarID string, data EventData) (string, error) {
	return "evt-1", s.next()
}

func (s *scriptedClient) UpdateEvent(ctx context.Context, calendarID, eventID string, data EventData) error {
	return s.next()
}

func (s *scriptedClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	return s.next()
}

func newTestThrottle(client Client, config ThrottleConfig) *Throttle {
	return NewThrottle(client, config, nil)
}

func TestThrottle_PacesConsecutiveCalls(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{}
	throttle := newTestThrottle(client, ThrottleConfig{
		MinCallInterval: 30 * time.Millisecond,
		MaxRetries:      1,
	})

	ctx := context.Background()
	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := throttle.CreateEvent(ctx, "cal-1", EventData{Title: "x"})
		require.NoError(t, err)
	}

	// Three calls need at least two full spacing intervals.
	assert.GreaterOrEqual(t, time.Since(start), 60*time.Millisecond)
	assert.Equal(t, 3, client.callCount())
}

func TestThrottle_RetriesTransientThenSucceeds(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errs: []error{ErrTransient, ErrTransient, nil}}
	throttle := newTestThrottle(client, ThrottleConfig{
		MinCallInterval: time.Millisecond,
		RatePenalty:     time.Millisecond,
		MaxRetries:      3,
	})

	id, err := throttle.CreateEvent(context.Background(), "cal-1", EventData{Title: "x"})
	require.NoError(t, err)
	assert.Equal(t, "evt-1", id)
	assert.Equal(t, 3, client.callCount())
}

func TestThrottle_ExhaustsRetries(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errs: []error{ErrTransient, ErrTransient, ErrTransient}}
	throttle := newTestThrottle(client, ThrottleConfig{
		MinCallInterval: time.Millisecond,
		RatePenalty:     time.Millisecond,
		MaxRetries:      3,
	})

	_, err := throttle.CreateEvent(context.Background(), "cal-1", EventData{Title: "x"})
	require.Error(t, err)
	assert.ErrorIs(t, err, ErrTransient)
	assert.Equal(t, 3, client.callCount(), "bounded retries")
}

func TestThrottle_CalendarGoneIsNotRetried(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errs: []error{ErrCalendarGone}}
	throttle := newTestThrottle(client, ThrottleConfig{
		MinCallInterval: time.Millisecond,
		MaxRetries:      3,
	})

	err := throttle.DeleteEvent(context.Background(), "cal-1", "evt-1")
	assert.ErrorIs(t, err, ErrCalendarGone)
	assert.Equal(t, 1, client.callCount(), "fatal errors must not burn retries")
}

func TestThrottle_RateLimitRaisesSpacing(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errs: []error{ErrRateLimited, nil}}
	penalty := 40 * time.Millisecond
	throttle := newTestThrottle(client, ThrottleConfig{
		MinCallInterval: time.Millisecond,
		RatePenalty:     penalty,
		MaxRetries:      3,
	})

	_, err := throttle.CreateEvent(context.Background(), "cal-1", EventData{Title: "x"})
	require.NoError(t, err)

	// The penalty persists for subsequent calls in the same pass.
	start := time.Now()
	_, err = throttle.CreateEvent(context.Background(), "cal-1", EventData{Title: "y"})
	require.NoError(t, err)
	assert.GreaterOrEqual(t, time.Since(start), penalty)
}

func TestThrottle_ResetClearsPenalty(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{errs: []error{ErrRateLimited, nil}}
	penalty := 60 * time.Millisecond
	throttle := newTestThrottle(client, ThrottleConfig{
		MinCallInterval: time.Millisecond,
		RatePenalty:     penalty,
		MaxRetries:      3,
	})

	_, err := throttle.CreateEvent(context.Background(), "cal-1", EventData{Title: "x"})
	require.NoError(t, err)

	throttle.Reset()

	start := time.Now()
	_, err = throttle.CreateEvent(context.Background(), "cal-1", EventData{Title: "y"})
	require.NoError(t, err)
	assert.Less(t, time.Since(start), penalty,
		"a new pass must not inherit the previous pass's penalty")
}

func TestThrottle_ContextCancelStopsWaiting(t *testing.T) {
	t.Parallel()

	client := &scriptedClient{}
	throttle := newTestThrottle(client, ThrottleConfig{
		MinCallInterval: 10 * time.Second,
		MaxRetries:      1,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	// First call goes through immediately; the second would wait 10s.
	_, err := throttle.CreateEvent(ctx, "cal-1", EventData{Title: "x"})
	require.NoError(t, err)

	_, err = throttle.CreateEvent(ctx, "cal-1", EventData{Title: "y"})
	assert.True(t, errors.Is(err, context.DeadlineExceeded))
	assert.Equal(t, 1, client.callCount())
}

func TestThrottle_NonRetryableErrorReturnsImmediately(t *testing.T) {
	t.Parallel()

	boom := errors.New("schema mismatch")
	client := &scriptedClient{errs: []error{boom}}
	throttle := newTestThrottle(client, ThrottleConfig{
		MinCallInterval: time.Millisecond,
		MaxRetries:      3,
	})

	err := throttle.UpdateEvent(context.Background(), "cal-1", "evt-1", EventData{})
	assert.ErrorIs(t, err, boom)
	assert.Equal(t, 1, client.callCount())
}
