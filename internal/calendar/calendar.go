// Package calendar proxies Google Calendar on the user's behalf, using
// the delegated OAuth access token stored in the caller's session.
package calendar

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"net/url"
	"strings"
	"time"
)

var (
	// ErrUnauthorized means the delegated token was rejected upstream;
	// the caller must sign in with the provider again.
	ErrUnauthorized = errors.New("calendar: delegated token rejected")
	// ErrUpstream covers any other upstream failure.
	ErrUpstream = errors.New("calendar: upstream failed")
	// ErrInvalidInput covers a malformed event payload.
	ErrInvalidInput = errors.New("calendar: invalid input")
)

const defaultTimeout = 15 * time.Second

type Calendar struct {
	ID      string `json:"id"`
	Summary string `json:"summary"`
	Primary bool   `json:"primary,omitempty"`
}

type Event struct {
	ID          string    `json:"id,omitempty"`
	Summary     string    `json:"summary"`
	Description string    `json:"description,omitempty"`
	Start       time.Time `json:"start"`
	End         time.Time `json:"end"`
}

type Client struct {
	baseURL string
	http    *http.Client
}

type Option func(*Client)

// WithHTTPClient substitutes the transport, for tests.
func WithHTTPClient(h *http.Client) Option {
	return func(c *Client) { c.http = h }
}

func NewClient(baseURL string, opts ...Option) (*Client, error) {
	if baseURL == "" {
		return nil, errors.New("calendar: base url is required")
	}
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		http:    &http.Client{Timeout: defaultTimeout},
	}
	for _, opt := range opts {
		opt(c)
	}
	return c, nil
}

// ListCalendars returns the user's calendar list.
func (c *Client) ListCalendars(ctx context.Context, token string) ([]Calendar, error) {
	var out struct {
		Items []Calendar `json:"items"`
	}
	if err := c.do(ctx, token, http.MethodGet, "/users/me/calendarList", nil, &out); err != nil {
		return nil, err
	}
	return out.Items, nil
}

// EventQuery narrows ListEvents. Zero fields mean no constraint.
type EventQuery struct {
	From       time.Time
	To         time.Time
	MaxResults int
}

// ListEvents returns events from the given calendar, earliest first.
func (c *Client) ListEvents(ctx context.Context, token, calendarID string, query EventQuery) ([]Event, error) {
	if calendarID == "" {
		calendarID = "primary"
	}
	q := url.Values{
		"singleEvents": {"true"},
		"orderBy":      {"startTime"},
	}
	if !query.From.IsZero() {
		q.Set("timeMin", query.From.UTC().Format(time.RFC3339))
	}
	if !query.To.IsZero() {
		q.Set("timeMax", query.To.UTC().Format(time.RFC3339))
	}
	if query.MaxResults > 0 {
		q.Set("maxResults", fmt.Sprint(query.MaxResults))
	}
	path := fmt.Sprintf("/calendars/%s/events?%s", url.PathEscape(calendarID), q.Encode())

	var out struct {
		Items []wireEvent `json:"items"`
	}
	if err := c.do(ctx, token, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	events := make([]Event, 0, len(out.Items))
	for _, we := range out.Items {
		events = append(events, we.event())
	}
	return events, nil
}

// CreateEvent inserts an event into the given calendar.
func (c *Client) CreateEvent(ctx context.Context, token, calendarID string, ev Event) (*Event, error) {
	if strings.TrimSpace(ev.Summary) == "" {
		return nil, fmt.Errorf("%w: summary is required", ErrInvalidInput)
	}
	if ev.Start.IsZero() || ev.End.IsZero() || !ev.End.After(ev.Start) {
		return nil, fmt.Errorf("%w: end must be after start", ErrInvalidInput)
	}
	if calendarID == "" {
		calendarID = "primary"
	}
	body := wireEvent{
		Summary:     ev.Summary,
		Description: ev.Description,
		Start:       wireTime{DateTime: ev.Start.UTC().Format(time.RFC3339)},
		End:         wireTime{DateTime: ev.End.UTC().Format(time.RFC3339)},
	}
	path := fmt.Sprintf("/calendars/%s/events", url.PathEscape(calendarID))

	var created wireEvent
	if err := c.do(ctx, token, http.MethodPost, path, body, &created); err != nil {
		return nil, err
	}
	out := created.event()
	return &out, nil
}

func (c *Client) do(ctx context.Context, token, method, path string, body, out any) error {
	if token == "" {
		return ErrUnauthorized
	}
	var reader *bytes.Reader
	if body != nil {
		buf, err := json.Marshal(body)
		if err != nil {
			return fmt.Errorf("calendar: marshal request: %w", err)
		}
		reader = bytes.NewReader(buf)
	} else {
		reader = bytes.NewReader(nil)
	}
	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, reader)
	if err != nil {
		return fmt.Errorf("calendar: build request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := c.http.Do(req)
	if err != nil {
		return fmt.Errorf("%w: %v", ErrUpstream, err)
	}
	defer resp.Body.Close()
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return ErrUnauthorized
	case resp.StatusCode >= 300:
		return fmt.Errorf("%w: status %s", ErrUpstream, resp.Status)
	}
	if err := json.NewDecoder(resp.Body).Decode(out); err != nil {
		return fmt.Errorf("%w: decode response: %v", ErrUpstream, err)
	}
	return nil
}

// wireEvent matches the upstream event shape; all-day events carry a
// date instead of a dateTime.
type wireEvent struct {
	ID          string   `json:"id,omitempty"`
	Summary     string   `json:"summary"`
	Description string   `json:"description,omitempty"`
	Start       wireTime `json:"start"`
	End         wireTime `json:"end"`
}

type wireTime struct {
	DateTime string `json:"dateTime,omitempty"`
	Date     string `json:"date,omitempty"`
}

func (w wireEvent) event() Event {
	return Event{
		ID:          w.ID,
		Summary:     w.Summary,
		Description: w.Description,
		Start:       w.Start.parse(),
		End:         w.End.parse(),
	}
}

func (w wireTime) parse() time.Time {
	if w.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, w.DateTime); err == nil {
			return t
		}
	}
	if w.Date != "" {
		if t, err := time.Parse("2006-01-02", w.Date); err == nil {
			return t
		}
	}
	return time.Time{}
}
