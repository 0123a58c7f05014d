package calendar

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestHTTPClient_FindOrCreateCalendar_CreatesWhenAbsent(t *testing.T) {
	t.Parallel()

	var sawAuth string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		sawAuth = r.Header.Get("Authorization")
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/calendars":
			_ = json.NewEncoder(w).Encode([]calendarPayload{
				{ID: "other", Name: "Holidays"},
			})
		case r.Method == http.MethodPost && r.URL.Path == "/calendars":
			var payload calendarPayload
			require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
			assert.Equal(t, "Tasks", payload.Name)
			_ = json.NewEncoder(w).Encode(calendarPayload{ID: "cal-new", Name: payload.Name})
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "secret-token")
	id, err := client.FindOrCreateCalendar(context.Background(), "Tasks")
	require.NoError(t, err)
	assert.Equal(t, "cal-new", id)
	assert.Equal(t, "Bearer secret-token", sawAuth)
}

func TestHTTPClient_FindOrCreateCalendar_DeletesDuplicates(t *testing.T) {
	t.Parallel()

	var deleted []string
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodGet && r.URL.Path == "/calendars":
			_ = json.NewEncoder(w).Encode([]calendarPayload{
				{ID: "cal-1", Name: "Tasks"},
				{ID: "cal-2", Name: "Tasks"},
				{ID: "cal-3", Name: "Tasks"},
			})
		case r.Method == http.MethodDelete:
			deleted = append(deleted, r.URL.Path)
			w.WriteHeader(http.StatusNoContent)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "token")
	id, err := client.FindOrCreateCalendar(context.Background(), "Tasks")
	require.NoError(t, err)
	assert.Equal(t, "cal-1", id, "the first match is kept")
	assert.Equal(t, []string{"/calendars/cal-2", "/calendars/cal-3"}, deleted,
		"repeated enables never accumulate calendars")
}

func TestHTTPClient_CreateEvent(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		require.Equal(t, http.MethodPost, r.Method)
		require.Equal(t, "/calendars/cal-1/events", r.URL.Path)

		var payload eventPayload
		require.NoError(t, json.NewDecoder(r.Body).Decode(&payload))
		assert.Equal(t, "Morning run", payload.Title)

		payload.ID = "evt-9"
		_ = json.NewEncoder(w).Encode(payload)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "token")
	id, err := client.CreateEvent(context.Background(), "cal-1", EventData{
		Title: "Morning run",
		Start: time.Date(2026, 9, 2, 7, 0, 0, 0, time.UTC),
	})
	require.NoError(t, err)
	assert.Equal(t, "evt-9", id)
}

func TestHTTPClient_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		status  int
		wantErr error
	}{
		{"rate limited", http.StatusTooManyRequests, ErrRateLimited},
		{"forbidden", http.StatusForbidden, ErrCalendarGone},
		{"unauthorized", http.StatusUnauthorized, ErrCalendarGone},
		{"gone", http.StatusGone, ErrCalendarGone},
		{"server error", http.StatusInternalServerError, ErrTransient},
		{"bad gateway", http.StatusBadGateway, ErrTransient},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
			}))
			defer server.Close()

			client := NewHTTPClient(server.URL, "token")
			err := client.UpdateEvent(context.Background(), "cal-1", "evt-1", EventData{})
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestHTTPClient_CreateEventOn404IsCalendarGone(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "token")
	_, err := client.CreateEvent(context.Background(), "cal-dead", EventData{Title: "x"})
	assert.ErrorIs(t, err, ErrCalendarGone,
		"a 404 on the events collection means the calendar is gone")
}

func TestHTTPClient_DeleteEventMissingIsSuccess(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	client := NewHTTPClient(server.URL, "token")
	assert.NoError(t, client.DeleteEvent(context.Background(), "cal-1", "evt-zombie"),
		"deleting an already-deleted event converges")
	assert.NoError(t, client.DeleteCalendar(context.Background(), "cal-zombie"))
}

func TestHTTPClient_ConnectionFailureIsTransient(t *testing.T) {
	t.Parallel()

	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	server.Close() // immediately, so the address refuses connections

	client := NewHTTPClient(server.URL, "token")
	err := client.DeleteEvent(context.Background(), "cal-1", "evt-1")
	assert.ErrorIs(t, err, ErrTransient)
}
