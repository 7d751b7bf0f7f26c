// Package google reads events from Google Calendar with the stored OAuth
// token of a calendar connection, refreshing it when it has expired.
package google

import (
	"context"
	"fmt"
	"strings"
	"time"

	"golang.org/x/oauth2"
	googleoauth "golang.org/x/oauth2/google"
	gcal "google.golang.org/api/calendar/v3"
	"google.golang.org/api/option"

	"github.com/kjarisk/athena/internal/calendar"
	"github.com/kjarisk/athena/internal/model"
)

// DefaultCalendarID is used when a connection names no calendar.
const DefaultCalendarID = "primary"

// TokenStore persists a refreshed access token for a connection.
type TokenStore interface {
	UpdateToken(ctx context.Context, connectionID, accessToken string, expiry time.Time) error
}

// Config holds the OAuth client and sync window shared by every Google
// connection.
type Config struct {
	ClientID     string
	ClientSecret string
	RedirectURL  string
	Window       calendar.Window

	// Endpoint overrides the Calendar API base URL. Tests only.
	Endpoint string
}

// OAuthConfig builds the oauth2 configuration for read-only calendar access.
func (c Config) OAuthConfig() *oauth2.Config {
	return &oauth2.Config{
		ClientID:     c.ClientID,
		ClientSecret: c.ClientSecret,
		RedirectURL:  c.RedirectURL,
		Scopes:       []string{gcal.CalendarReadonlyScope},
		Endpoint:     googleoauth.Endpoint,
	}
}

// Source is one user's Google calendar.
type Source struct {
	conn     model.CalendarConnection
	oauth    *oauth2.Config
	tokens   TokenStore
	window   calendar.Window
	endpoint string
	now      func() time.Time
}

// NewFactory returns a calendar.Factory producing Google sources.
func NewFactory(cfg Config, oauth *oauth2.Config, tokens TokenStore) calendar.Factory {
	return func(conn model.CalendarConnection) (calendar.Source, error) {
		return New(conn, cfg, oauth, tokens), nil
	}
}

func New(conn model.CalendarConnection, cfg Config, oauth *oauth2.Config, tokens TokenStore) *Source {
	return &Source{
		conn:     conn,
		oauth:    oauth,
		tokens:   tokens,
		window:   cfg.Window,
		endpoint: cfg.Endpoint,
		now:      time.Now,
	}
}

func (s *Source) Kind() model.CalendarSource { return model.SourceGoogle }

func (s *Source) Window() calendar.Window { return s.window }

// ListEvents expands recurring events into single instances and pages
// through the whole range ordered by start time.
func (s *Source) ListEvents(ctx context.Context, userID string, start, end time.Time) ([]calendar.FetchedEvent, error) {
	tok, err := s.token(ctx)
	if err != nil {
		return nil, err
	}

	opts := []option.ClientOption{
		option.WithHTTPClient(oauth2.NewClient(ctx, oauth2.StaticTokenSource(tok))),
	}
	if s.endpoint != "" {
		opts = append(opts, option.WithEndpoint(s.endpoint))
	}
	svc, err := gcal.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("google: creating calendar service: %w", err)
	}

	calendarID := s.conn.CalendarName
	if calendarID == "" {
		calendarID = DefaultCalendarID
	}

	var events []calendar.FetchedEvent
	call := svc.Events.List(calendarID).
		TimeMin(start.Format(time.RFC3339)).
		TimeMax(end.Format(time.RFC3339)).
		SingleEvents(true).
		OrderBy("startTime").
		MaxResults(250)

	err = call.Pages(ctx, func(page *gcal.Events) error {
		for _, item := range page.Items {
			events = append(events, convert(item))
		}
		return nil
	})
	if err != nil {
		return nil, fmt.Errorf("google: listing events for user %s: %w", userID, err)
	}
	return events, nil
}

// token returns a usable access token, exchanging the refresh token first
// when the stored one has expired. A refreshed token is persisted before use.
func (s *Source) token(ctx context.Context) (*oauth2.Token, error) {
	tok := &oauth2.Token{
		AccessToken:  s.conn.AccessToken,
		RefreshToken: s.conn.RefreshToken,
		TokenType:    "Bearer",
	}
	if s.conn.TokenExpiry != nil {
		tok.Expiry = *s.conn.TokenExpiry
	}

	if s.conn.TokenExpiry == nil || s.now().Before(*s.conn.TokenExpiry) {
		if tok.AccessToken == "" {
			return nil, fmt.Errorf("google: connection %s has no access token", s.conn.ID)
		}
		return tok, nil
	}

	if s.conn.RefreshToken == "" {
		return nil, fmt.Errorf("google: token expired and no refresh token stored")
	}

	fresh, err := s.oauth.TokenSource(ctx, &oauth2.Token{RefreshToken: s.conn.RefreshToken}).Token()
	if err != nil {
		return nil, fmt.Errorf("google: refreshing token: %w", err)
	}

	if err := s.tokens.UpdateToken(ctx, s.conn.ID, fresh.AccessToken, fresh.Expiry); err != nil {
		return nil, fmt.Errorf("google: saving refreshed token: %w", err)
	}
	s.conn.AccessToken = fresh.AccessToken
	s.conn.TokenExpiry = &fresh.Expiry

	return fresh, nil
}

func convert(item *gcal.Event) calendar.FetchedEvent {
	ev := calendar.FetchedEvent{
		ExternalID:  item.Id,
		Title:       strings.TrimSpace(item.Summary),
		Description: item.Description,
		Start:       parseEventTime(item.Start),
		End:         parseEventTime(item.End),
	}
	for _, a := range item.Attendees {
		if a != nil && a.Email != "" {
			ev.AttendeeEmails = append(ev.AttendeeEmails, a.Email)
		}
	}
	return ev
}

// parseEventTime reads a timed (dateTime) or all-day (date) value. All-day
// dates are placed at local midnight.
func parseEventTime(dt *gcal.EventDateTime) *time.Time {
	if dt == nil {
		return nil
	}
	if dt.DateTime != "" {
		if t, err := time.Parse(time.RFC3339, dt.DateTime); err == nil {
			return &t
		}
	}
	if dt.Date != "" {
		if t, err := time.ParseInLocation(time.DateOnly, dt.Date, time.Local); err == nil {
			return &t
		}
	}
	return nil
}
