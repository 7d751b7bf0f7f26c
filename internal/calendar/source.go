// Package calendar defines the contract every external calendar provider
// implements and the resolver that turns a user's stored connections into
// ready-to-query sources.
//
// Providers live in subpackages (google, eventkit). Each one owns its own
// authentication; callers only see ListEvents.
package calendar

import (
	"context"
	"time"

	"github.com/kjarisk/athena/internal/model"
)

// FetchedEvent is a provider event normalised to the fields reconciliation
// needs. Start and End are nil when the provider omitted them.
type FetchedEvent struct {
	ExternalID     string
	Title          string
	Description    string
	Start          *time.Time
	End            *time.Time
	AttendeeEmails []string
}

// Source lists events from one connected provider calendar.
type Source interface {
	Kind() model.CalendarSource
	// Window is the sync range this source is queried with.
	Window() Window
	// ListEvents returns events starting in [start, end).
	ListEvents(ctx context.Context, userID string, start, end time.Time) ([]FetchedEvent, error)
}

// Window is a sync range relative to the start of the current day.
type Window struct {
	PastDays   int
	FutureDays int
}

// Bounds returns [midnight(now) - PastDays, midnight(now) + FutureDays) in
// now's location.
func (w Window) Bounds(now time.Time) (time.Time, time.Time) {
	y, m, d := now.Date()
	today := time.Date(y, m, d, 0, 0, 0, 0, now.Location())
	return today.AddDate(0, 0, -w.PastDays), today.AddDate(0, 0, w.FutureDays)
}
