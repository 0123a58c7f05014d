package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"time"
)

// errNotFound marks a 404 response. Calendar-scoped operations promote it
// to ErrCalendarGone; event-scoped operations must not, because a missing
// event is an item-level condition, not a dead calendar.
var errNotFound = errors.New("calendar: not found")

// HTTPClient implements Client against the calendar service's REST API.
type HTTPClient struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// NewHTTPClient creates a Client for the calendar service at baseURL,
// authenticating every request with the given bearer token.
func NewHTTPClient(baseURL, token string) *HTTPClient {
	return &HTTPClient{
		baseURL: baseURL,
		token:   token,
		httpClient: &http.Client{
			Timeout: 30 * time.Second,
		},
	}
}

// Ensure HTTPClient implements the Client interface
var _ Client = (*HTTPClient)(nil)

type calendarPayload struct {
	ID   string `json:"id,omitempty"`
	Name string `json:"name"`
}

type eventPayload struct {
	ID string `json:"id,omitempty"`
	EventData
}

// FindOrCreateCalendar implements Client.FindOrCreateCalendar. It lists the
// account's calendars, keeps the first one matching name, deletes any
// further duplicates of the same name, and creates the calendar only when
// no match exists.
func (c *HTTPClient) FindOrCreateCalendar(ctx context.Context, name string) (string, error) {
	var calendars []calendarPayload
	if err := c.doRequest(ctx, http.MethodGet, "/calendars", nil, &calendars); err != nil {
		return "", fmt.Errorf("failed to list calendars: %w", err)
	}

	var keep string
	for _, cal := range calendars {
		if cal.Name != name {
			continue
		}
		if keep == "" {
			keep = cal.ID
			continue
		}
		// Leftover duplicate from an earlier interrupted enable.
		if err := c.DeleteCalendar(ctx, cal.ID); err != nil {
			return "", fmt.Errorf("failed to delete duplicate calendar %s: %w", cal.ID, err)
		}
	}

	if keep != "" {
		return keep, nil
	}

	var created calendarPayload
	if err := c.doRequest(ctx, http.MethodPost, "/calendars", calendarPayload{Name: name}, &created); err != nil {
		return "", fmt.Errorf("failed to create calendar: %w", err)
	}
	return created.ID, nil
}

// DeleteCalendar implements Client.DeleteCalendar. Deleting a calendar
// that is already gone succeeds.
func (c *HTTPClient) DeleteCalendar(ctx context.Context, calendarID string) error {
	path := "/calendars/" + url.PathEscape(calendarID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		if errors.Is(err, errNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete calendar: %w", err)
	}
	return nil
}

// CreateEvent implements Client.CreateEvent.
func (c *HTTPClient) CreateEvent(ctx context.Context, calendarID string, data EventData) (string, error) {
	path := "/calendars/" + url.PathEscape(calendarID) + "/events"
	var created eventPayload
	if err := c.doRequest(ctx, http.MethodPost, path, eventPayload{EventData: data}, &created); err != nil {
		if errors.Is(err, errNotFound) {
			// The events collection 404s only when the calendar itself
			// is gone.
			return "", fmt.Errorf("%w: %v", ErrCalendarGone, err)
		}
		return "", fmt.Errorf("failed to create event: %w", err)
	}
	return created.ID, nil
}

// UpdateEvent implements Client.UpdateEvent.
func (c *HTTPClient) UpdateEvent(ctx context.Context, calendarID, eventID string, data EventData) error {
	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)
	if err := c.doRequest(ctx, http.MethodPut, path, eventPayload{EventData: data}, nil); err != nil {
		return fmt.Errorf("failed to update event: %w", err)
	}
	return nil
}

// DeleteEvent implements Client.DeleteEvent. Deleting an event that no
// longer exists succeeds, so orphan cleanup converges even after manual
// deletions on the service side.
func (c *HTTPClient) DeleteEvent(ctx context.Context, calendarID, eventID string) error {
	path := "/calendars/" + url.PathEscape(calendarID) + "/events/" + url.PathEscape(eventID)
	if err := c.doRequest(ctx, http.MethodDelete, path, nil, nil); err != nil {
		if errors.Is(err, errNotFound) {
			return nil
		}
		return fmt.Errorf("failed to delete event: %w", err)
	}
	return nil
}

// doRequest executes one API request, serializing body as JSON when present
// and unmarshaling the response into result when non-nil. HTTP failure
// statuses are translated into the package's error classes.
func (c *HTTPClient) doRequest(ctx context.Context, method, path string, body, result any) error {
	var reqBody io.Reader
	if body != nil {
		jsonBody, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("failed to encode request body: %w", err)
		}
		reqBody = bytes.NewReader(jsonBody)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reqBody)
	if err != nil {
		return fmt.Errorf("failed to build request: %w", err)
	}

	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrTransient, err)
	}
	defer func() { _ = resp.Body.Close() }()

	respBody, _ := io.ReadAll(resp.Body)

	switch {
	case resp.StatusCode == http.StatusTooManyRequests:
		return fmt.Errorf("%w: %s", ErrRateLimited, resp.Status)
	case resp.StatusCode == http.StatusNotFound:
		return fmt.Errorf("%w: %s", errNotFound, resp.Status)
	case resp.StatusCode == http.StatusForbidden,
		resp.StatusCode == http.StatusUnauthorized,
		resp.StatusCode == http.StatusGone:
		return fmt.Errorf("%w: %s: %s", ErrCalendarGone, resp.Status, string(respBody))
	case resp.StatusCode >= 500:
		return fmt.Errorf("%w: %s", ErrTransient, resp.Status)
	case resp.StatusCode >= 400:
		return fmt.Errorf("calendar API error: %s, body: %s", resp.Status, string(respBody))
	}

	if result != nil {
		if err := json.Unmarshal(respBody, result); err != nil {
			return fmt.Errorf("failed to decode response: %w", err)
		}
	}
	return nil
}
