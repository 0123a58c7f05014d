package mocks

import (
	"context"
	"fmt"
	"sync"

	"github.com/calmhive/taskmirror/internal/calendar"
)

// MockCalendarClient implements calendar.Client with in-memory events
// and full call tracking. Tests assert on call counts to verify that
// unchanged items cost zero calls and that bulk deletes use a single
// calendar-level call.
type MockCalendarClient struct {
	mu       sync.Mutex
	nextID   int
	Events   map[string]calendar.EventData
	Calendar string

	// Custom behavior overrides
	FindOrCreateCalendarFn func(ctx context.Context, name string) (string, error)
	DeleteCalendarFn       func(ctx context.Context, calendarID string) error
	CreateEventFn          func(ctx context.Context, calendarID string, data calendar.EventData) (string, error)
	UpdateEventFn          func(ctx context.Context, calendarID, eventID string, data calendar.EventData) error
	DeleteEventFn          func(ctx context.Context, calendarID, eventID string) error

	// Call counters
	FindOrCreateCalendarCalls int
	DeleteCalendarCalls       int
	CreateEventCalls          int
	UpdateEventCalls          int
	DeleteEventCalls          int
}

var _ calendar.Client = (*MockCalendarClient)(nil)

// NewMockCalendarClient creates a mock client backed by one calendar.
func NewMockCalendarClient() *MockCalendarClient {
	return &MockCalendarClient{
		Events:   make(map[string]calendar.EventData),
		Calendar: "cal-1",
	}
}

// TotalCalls returns the number of event-level calls made so far.
func (m *MockCalendarClient) TotalCalls() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.CreateEventCalls + m.UpdateEventCalls + m.DeleteEventCalls
}

func (m *MockCalendarClient) FindOrCreateCalendar(
	ctx context.Context,
	name string,
) (string, error) {
	m.mu.Lock()
	m.FindOrCreateCalendarCalls++
	m.mu.Unlock()
	if m.FindOrCreateCalendarFn != nil {
		return m.FindOrCreateCalendarFn(ctx, name)
	}
	return m.Calendar, nil
}

func (m *MockCalendarClient) DeleteCalendar(ctx context.Context, calendarID string) error {
	m.mu.Lock()
	m.DeleteCalendarCalls++
	m.mu.Unlock()
	if m.DeleteCalendarFn != nil {
		return m.DeleteCalendarFn(ctx, calendarID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events = make(map[string]calendar.EventData)
	return nil
}

func (m *MockCalendarClient) CreateEvent(
	ctx context.Context,
	calendarID string,
	data calendar.EventData,
) (string, error) {
	m.mu.Lock()
	m.CreateEventCalls++
	m.mu.Unlock()
	if m.CreateEventFn != nil {
		return m.CreateEventFn(ctx, calendarID, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	eventID := fmt.Sprintf("evt-%d", m.nextID)
	m.Events[eventID] = data
	return eventID, nil
}

func (m *MockCalendarClient) UpdateEvent(
	ctx context.Context,
	calendarID, eventID string,
	data calendar.EventData,
) error {
	m.mu.Lock()
	m.UpdateEventCalls++
	m.mu.Unlock()
	if m.UpdateEventFn != nil {
		return m.UpdateEventFn(ctx, calendarID, eventID, data)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	m.Events[eventID] = data
	return nil
}

func (m *MockCalendarClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	m.mu.Lock()
	m.DeleteEventCalls++
	m.mu.Unlock()
	if m.DeleteEventFn != nil {
		return m.DeleteEventFn(ctx, calendarID, eventID)
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.Events, eventID)
	return nil
}
