// Package eventkit reads a macOS calendar through the local helper process
// that bridges EventKit over HTTP.
//
// The helper answers GET /events?calendar=<name>&daysBack=<n>&daysAhead=<n>
// with a JSON array of events (times as Unix seconds) or {"error": "..."}.
package eventkit

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"math"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"github.com/kjarisk/athena/internal/calendar"
	"github.com/kjarisk/athena/internal/model"
)

// Config points at the helper and sets the sync window.
type Config struct {
	BaseURL string
	Window  calendar.Window
	Timeout time.Duration
}

// helperEvent mirrors one element of the helper's response.
type helperEvent struct {
	ID        string   `json:"id"`
	Title     string   `json:"title"`
	StartDate *float64 `json:"startDate"`
	EndDate   *float64 `json:"endDate"`
	IsAllDay  bool     `json:"isAllDay"`
	Location  string   `json:"location"`
	Notes     string   `json:"notes"`
	URL       string   `json:"url"`
	Calendar  struct {
		ID     string `json:"id"`
		Title  string `json:"title"`
		Source string `json:"source"`
	} `json:"calendar"`
}

type helperError struct {
	Error string `json:"error"`
}

// Source is one macOS calendar, identified by its title.
type Source struct {
	calendarName string
	baseURL      string
	window       calendar.Window
	client       *http.Client
	now          func() time.Time
}

// NewFactory returns a calendar.Factory producing EventKit sources. The
// connection's CalendarName selects the calendar.
func NewFactory(cfg Config) calendar.Factory {
	return func(conn model.CalendarConnection) (calendar.Source, error) {
		if strings.TrimSpace(conn.CalendarName) == "" {
			return nil, fmt.Errorf("eventkit: connection %s has no calendar name", conn.ID)
		}
		return New(conn.CalendarName, cfg), nil
	}
}

func New(calendarName string, cfg Config) *Source {
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Source{
		calendarName: calendarName,
		baseURL:      strings.TrimRight(cfg.BaseURL, "/"),
		window:       cfg.Window,
		client:       &http.Client{Timeout: timeout},
		now:          time.Now,
	}
}

func (s *Source) Kind() model.CalendarSource { return model.SourceEventKit }

func (s *Source) Window() calendar.Window { return s.window }

// ListEvents asks the helper for whole days around now covering [start, end)
// and keeps the events that start inside the range.
func (s *Source) ListEvents(ctx context.Context, userID string, start, end time.Time) ([]calendar.FetchedEvent, error) {
	now := s.now()
	q := url.Values{}
	q.Set("calendar", s.calendarName)
	q.Set("daysBack", strconv.Itoa(daysBetween(start, now)))
	q.Set("daysAhead", strconv.Itoa(daysBetween(now, end)))

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, s.baseURL+"/events?"+q.Encode(), nil)
	if err != nil {
		return nil, fmt.Errorf("eventkit: building request: %w", err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("eventkit: calling helper: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, 16<<20))
	if err != nil {
		return nil, fmt.Errorf("eventkit: reading response: %w", err)
	}

	if resp.StatusCode != http.StatusOK {
		var he helperError
		if json.Unmarshal(body, &he) == nil && he.Error != "" {
			return nil, fmt.Errorf("eventkit: helper returned %d: %s", resp.StatusCode, he.Error)
		}
		return nil, fmt.Errorf("eventkit: helper returned status %d", resp.StatusCode)
	}

	var raw []helperEvent
	if err := json.Unmarshal(body, &raw); err != nil {
		var he helperError
		if json.Unmarshal(body, &he) == nil && he.Error != "" {
			return nil, fmt.Errorf("eventkit: %s", he.Error)
		}
		return nil, fmt.Errorf("eventkit: decoding events: %w", err)
	}

	events := make([]calendar.FetchedEvent, 0, len(raw))
	for _, he := range raw {
		ev := convert(he)
		if ev.Start != nil && (ev.Start.Before(start) || !ev.Start.Before(end)) {
			continue
		}
		events = append(events, ev)
	}
	return events, nil
}

func convert(he helperEvent) calendar.FetchedEvent {
	return calendar.FetchedEvent{
		ExternalID:  he.ID,
		Title:       strings.TrimSpace(he.Title),
		Description: he.Notes,
		Start:       unixTime(he.StartDate),
		End:         unixTime(he.EndDate),
	}
}

func unixTime(sec *float64) *time.Time {
	if sec == nil || *sec <= 0 {
		return nil
	}
	whole, frac := math.Modf(*sec)
	t := time.Unix(int64(whole), int64(frac*1e9))
	return &t
}

// daysBetween returns the whole days from a to b, rounded up, never negative.
func daysBetween(a, b time.Time) int {
	d := b.Sub(a)
	if d <= 0 {
		return 0
	}
	return int(math.Ceil(d.Hours() / 24))
}
