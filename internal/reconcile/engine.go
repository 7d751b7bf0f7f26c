// Package reconcile merges events from a user's external calendars into the
// local event store.
//
// Every connected source is fetched concurrently and independently. A source
// that fails is logged and recorded on its connection; the others carry on.
// Sync inserts and updates but never deletes.
package reconcile

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/kjarisk/athena/internal/calendar"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

// DefaultEventDuration is applied when a source gives no end time.
const DefaultEventDuration = time.Hour

// SourceResolver yields the connected sources of a user.
type SourceResolver interface {
	Sources(ctx context.Context, userID string) ([]calendar.Connected, error)
}

// Repositories groups the stores the engine reads and writes.
type Repositories struct {
	Users       repository.UserRepository
	Events      repository.EventRepository
	WorkAreas   repository.WorkAreaRepository
	Employees   repository.EmployeeRepository
	Connections repository.ConnectionRepository
}

// SourceReport summarises one source attempt.
type SourceReport struct {
	ConnectionID string               `json:"connectionId"`
	Source       model.CalendarSource `json:"source"`
	Fetched      int                  `json:"fetched"`
	Created      int                  `json:"created"`
	Updated      int                  `json:"updated"`
	Skipped      int                  `json:"skipped"`
	Error        string               `json:"error,omitempty"`
}

// Report is the outcome of one SyncAllCalendars call.
type Report struct {
	SyncedAt *time.Time     `json:"syncedAt,omitempty"`
	Sources  []SourceReport `json:"sources"`
}

type Engine struct {
	repos    Repositories
	resolver SourceResolver
	chain    Chain
	logger   *slog.Logger
	now      func() time.Time
	loc      *time.Location
}

type Option func(*Engine)

func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone sync windows are anchored in. Default time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

// WithChain replaces the work-area inference rules.
func WithChain(c Chain) Option {
	return func(e *Engine) { e.chain = c }
}

func NewEngine(repos Repositories, resolver SourceResolver, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		repos:    repos,
		resolver: resolver,
		chain:    DefaultChain(),
		logger:   logger,
		now:      time.Now,
		loc:      time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// SyncAllCalendars fetches and upserts events from every source the user
// has connected. Source failures never fail the call; only store errors
// outside a source (loading the user, connections or work areas, stamping
// the sync time) are returned. A user without connections is a no-op.
func (e *Engine) SyncAllCalendars(ctx context.Context, userID string) (Report, error) {
	if _, err := e.repos.Users.GetUserByID(ctx, userID); err != nil {
		return Report{}, err
	}

	sources, err := e.resolver.Sources(ctx, userID)
	if err != nil {
		return Report{}, err
	}
	if len(sources) == 0 {
		return Report{Sources: []SourceReport{}}, nil
	}

	candidates, err := e.candidates(ctx, userID)
	if err != nil {
		return Report{}, err
	}

	now := e.now()
	reports := make([]SourceReport, len(sources))

	// Goroutines never return an error, so Wait joins all of them.
	var g errgroup.Group
	for i, c := range sources {
		g.Go(func() error {
			reports[i] = e.syncSource(ctx, userID, c, candidates, now)
			return nil
		})
	}
	_ = g.Wait()

	succeeded := false
	for i, r := range reports {
		var syncErr error
		if r.Error != "" {
			syncErr = errors.New(r.Error)
		} else {
			succeeded = true
		}
		if err := e.repos.Connections.RecordSyncResult(ctx, sources[i].Connection.ID, now, syncErr); err != nil {
			e.logger.Warn("recording sync result failed",
				"user_id", userID, "connection_id", sources[i].Connection.ID, "error", err)
		}
	}

	report := Report{Sources: reports}
	if succeeded {
		if err := e.repos.Users.SetLastSynced(ctx, userID, now); err != nil {
			return report, fmt.Errorf("reconcile: stamping last sync: %w", err)
		}
		report.SyncedAt = &now
	}
	return report, nil
}

// syncSource runs one source to completion and folds any failure, including
// a panic, into the report.
func (e *Engine) syncSource(ctx context.Context, userID string, c calendar.Connected, candidates []Candidate, now time.Time) (report SourceReport) {
	report = SourceReport{ConnectionID: c.Connection.ID, Source: c.Connection.Source}
	log := e.logger.With("user_id", userID, "connection_id", c.Connection.ID, "source", c.Connection.Source)

	defer func() {
		if r := recover(); r != nil {
			report.Error = fmt.Sprintf("panic: %v", r)
			log.Error("calendar sync panicked", "panic", r)
		}
	}()

	if err := e.runSource(ctx, userID, c, candidates, now, &report); err != nil {
		report.Error = err.Error()
		log.Warn("calendar sync failed", "error", err)
		return report
	}

	log.Info("calendar synced",
		"fetched", report.Fetched, "created", report.Created,
		"updated", report.Updated, "skipped", report.Skipped)
	return report
}

func (e *Engine) runSource(ctx context.Context, userID string, c calendar.Connected, candidates []Candidate, now time.Time, report *SourceReport) error {
	if c.Err != nil {
		return c.Err
	}
	src := c.Source
	report.Source = src.Kind()

	start, end := src.Window().Bounds(now.In(e.loc))
	fetched, err := src.ListEvents(ctx, userID, start, end)
	if err != nil {
		return err
	}
	report.Fetched = len(fetched)

	for _, fe := range fetched {
		ev, ok := normalize(fe)
		if !ok {
			report.Skipped++
			e.logger.Debug("skipping malformed calendar event",
				"user_id", userID, "source", src.Kind(), "external_id", fe.ExternalID)
			continue
		}
		ev.UserID = userID
		ev.Source = src.Kind()

		if area, _ := e.chain.Infer(InferenceInput{Title: ev.Title, AttendeeEmails: fe.AttendeeEmails}, candidates); area != nil {
			id := area.ID
			ev.WorkAreaID = &id
		}

		created, err := e.repos.Events.UpsertSynced(ctx, ev)
		if err != nil {
			return fmt.Errorf("upserting %s: %w", fe.ExternalID, err)
		}
		if created {
			report.Created++
		} else {
			report.Updated++
		}
	}
	return nil
}

// normalize converts a fetched event into a synced Event. Events without an
// id, title or start are rejected.
func normalize(fe calendar.FetchedEvent) (*model.Event, bool) {
	if fe.ExternalID == "" || fe.Title == "" || fe.Start == nil {
		return nil, false
	}

	start := *fe.Start
	end := start.Add(DefaultEventDuration)
	if fe.End != nil {
		end = *fe.End
	}

	externalID := fe.ExternalID
	return &model.Event{
		ExternalID:  &externalID,
		Title:       fe.Title,
		Description: fe.Description,
		StartTime:   start,
		EndTime:     end,
		NeedsAction: false,
	}, true
}

// candidates loads the user's work areas in creation order with the emails
// of their linked employees.
func (e *Engine) candidates(ctx context.Context, userID string) ([]Candidate, error) {
	areas, err := e.repos.WorkAreas.ListWorkAreas(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: loading work areas: %w", err)
	}
	employees, err := e.repos.Employees.ListEmployees(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("reconcile: loading employees: %w", err)
	}

	emailByID := make(map[string]string, len(employees))
	for _, emp := range employees {
		emailByID[emp.ID] = emp.Email
	}

	out := make([]Candidate, 0, len(areas))
	for _, a := range areas {
		cand := Candidate{Area: a}
		for _, id := range a.EmployeeIDs {
			if email := emailByID[id]; email != "" {
				cand.Emails = append(cand.Emails, email)
			}
		}
		out = append(out, cand)
	}
	return out, nil
}
