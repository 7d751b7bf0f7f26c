package reconcile

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/calendar"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

// fakeStore implements the repositories the engine touches. Methods the
// engine never calls are left to the embedded nil interfaces.
type fakeStore struct {
	repository.UserRepository
	repository.EventRepository
	repository.WorkAreaRepository
	repository.EmployeeRepository
	repository.ConnectionRepository

	mu         sync.Mutex
	users      map[string]bool
	events     map[string]*model.Event // key: source|externalID
	areas      []model.WorkArea
	employees  []model.Employee
	results    map[string]error
	lastSynced *time.Time
	upsertErr  error
}

func newFakeStore() *fakeStore {
	return &fakeStore{
		users:   map[string]bool{"u1": true},
		events:  map[string]*model.Event{},
		results: map[string]error{},
	}
}

func (f *fakeStore) repos() Repositories {
	return Repositories{Users: f, Events: f, WorkAreas: f, Employees: f, Connections: f}
}

func (f *fakeStore) GetUserByID(_ context.Context, id string) (*model.User, error) {
	if !f.users[id] {
		return nil, apperror.NotFound("user", id)
	}
	return &model.User{ID: id}, nil
}

func (f *fakeStore) SetLastSynced(_ context.Context, _ string, at time.Time) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lastSynced = &at
	return nil
}

func (f *fakeStore) UpsertSynced(_ context.Context, ev *model.Event) (bool, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.upsertErr != nil {
		return false, f.upsertErr
	}
	key := string(ev.Source) + "|" + *ev.ExternalID
	existing, ok := f.events[key]
	if !ok {
		cp := *ev
		f.events[key] = &cp
		return true, nil
	}
	existing.Title = ev.Title
	existing.Description = ev.Description
	existing.StartTime = ev.StartTime
	existing.EndTime = ev.EndTime
	existing.WorkAreaID = ev.WorkAreaID
	return false, nil
}

func (f *fakeStore) ListWorkAreas(context.Context, string) ([]model.WorkArea, error) {
	return f.areas, nil
}

func (f *fakeStore) ListEmployees(context.Context, string) ([]model.Employee, error) {
	return f.employees, nil
}

func (f *fakeStore) RecordSyncResult(_ context.Context, id string, _ time.Time, syncErr error) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.results[id] = syncErr
	return nil
}

func (f *fakeStore) event(source model.CalendarSource, externalID string) *model.Event {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.events[string(source)+"|"+externalID]
}

// fakeSource returns canned events or an error.
type fakeSource struct {
	kind   model.CalendarSource
	window calendar.Window
	events []calendar.FetchedEvent
	err    error
	panics bool

	mu         sync.Mutex
	start, end time.Time
}

func (s *fakeSource) Kind() model.CalendarSource { return s.kind }
func (s *fakeSource) Window() calendar.Window    { return s.window }

func (s *fakeSource) ListEvents(_ context.Context, _ string, start, end time.Time) ([]calendar.FetchedEvent, error) {
	if s.panics {
		panic("source blew up")
	}
	s.mu.Lock()
	s.start, s.end = start, end
	s.mu.Unlock()
	return s.events, s.err
}

type fakeResolver struct {
	sources []calendar.Connected
	err     error
}

func (r fakeResolver) Sources(context.Context, string) ([]calendar.Connected, error) {
	return r.sources, r.err
}

func connected(id string, src *fakeSource) calendar.Connected {
	return calendar.Connected{Connection: model.CalendarConnection{ID: id, Source: src.kind}, Source: src}
}

var testNow = time.Date(2026, 5, 4, 8, 0, 0, 0, time.UTC)

func newTestEngine(store *fakeStore, resolver SourceResolver) *Engine {
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))
	return NewEngine(store.repos(), resolver, logger,
		WithClock(func() time.Time { return testNow }),
		WithLocation(time.UTC))
}

func at(h int) *time.Time {
	t := testNow.Add(time.Duration(h) * time.Hour)
	return &t
}

func TestSync_SameExternalIDTwiceKeepsLastTitle(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{kind: model.SourceGoogle, events: []calendar.FetchedEvent{
		{ExternalID: "evt-1", Title: "Standup", Start: at(1)},
		{ExternalID: "evt-1", Title: "Daily Standup", Start: at(1)},
	}}
	e := newTestEngine(store, fakeResolver{sources: []calendar.Connected{connected("c1", src)}})

	report, err := e.SyncAllCalendars(context.Background(), "u1")
	require.NoError(t, err)

	assert.Len(t, store.events, 1)
	ev := store.event(model.SourceGoogle, "evt-1")
	require.NotNil(t, ev)
	assert.Equal(t, "Daily Standup", ev.Title)
	assert.Equal(t, 1, report.Sources[0].Created)
	assert.Equal(t, 1, report.Sources[0].Updated)
}

func TestSync_IsIdempotentAcrossRuns(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{kind: model.SourceGoogle, events: []calendar.FetchedEvent{
		{ExternalID: "evt-1", Title: "Planning", Start: at(2), End: at(3)},
	}}
	e := newTestEngine(store, fakeResolver{sources: []calendar.Connected{connected("c1", src)}})
	ctx := context.Background()

	_, err := e.SyncAllCalendars(ctx, "u1")
	require.NoError(t, err)

	src.events[0].Title = "Planning (moved)"
	report, err := e.SyncAllCalendars(ctx, "u1")
	require.NoError(t, err)

	assert.Len(t, store.events, 1)
	assert.Equal(t, "Planning (moved)", store.event(model.SourceGoogle, "evt-1").Title)
	assert.Equal(t, 0, report.Sources[0].Created)
	assert.Equal(t, 1, report.Sources[0].Updated)
}

func TestSync_DefaultEndAndSkipsMalformed(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{kind: model.SourceEventKit, events: []calendar.FetchedEvent{
		{ExternalID: "no-end", Title: "Coffee", Start: at(1)},
		{ExternalID: "no-title", Start: at(1)},
		{ExternalID: "no-start", Title: "Ghost"},
		{Title: "No id", Start: at(1)},
	}}
	e := newTestEngine(store, fakeResolver{sources: []calendar.Connected{connected("c1", src)}})

	report, err := e.SyncAllCalendars(context.Background(), "u1")
	require.NoError(t, err)

	assert.Len(t, store.events, 1)
	ev := store.event(model.SourceEventKit, "no-end")
	require.NotNil(t, ev)
	assert.Equal(t, time.Hour, ev.EndTime.Sub(ev.StartTime))
	assert.False(t, ev.NeedsAction)
	assert.Equal(t, 3, report.Sources[0].Skipped)
}

func TestSync_InfersWorkArea(t *testing.T) {
	store := newFakeStore()
	store.employees = []model.Employee{{ID: "e1", Email: "alice@example.com"}}
	store.areas = []model.WorkArea{
		{ID: "standup", Name: "Daily Standup"},
		{ID: "mentoring", Name: "Mentoring", EmployeeIDs: []string{"e1"}},
	}
	src := &fakeSource{kind: model.SourceGoogle, events: []calendar.FetchedEvent{
		{ExternalID: "both", Title: "Standup", Start: at(1), AttendeeEmails: []string{"Alice@Example.com"}},
		{ExternalID: "title", Title: "standup", Start: at(2)},
		{ExternalID: "none", Title: "Lunch", Start: at(3)},
	}}
	e := newTestEngine(store, fakeResolver{sources: []calendar.Connected{connected("c1", src)}})

	_, err := e.SyncAllCalendars(context.Background(), "u1")
	require.NoError(t, err)

	both := store.event(model.SourceGoogle, "both")
	require.NotNil(t, both.WorkAreaID)
	assert.Equal(t, "mentoring", *both.WorkAreaID, "participant match wins over title match")

	title := store.event(model.SourceGoogle, "title")
	require.NotNil(t, title.WorkAreaID)
	assert.Equal(t, "standup", *title.WorkAreaID)

	assert.Nil(t, store.event(model.SourceGoogle, "none").WorkAreaID)
}

func TestSync_ReinfersOnEveryPass(t *testing.T) {
	store := newFakeStore()
	store.areas = []model.WorkArea{{ID: "standup", Name: "Daily Standup"}}
	src := &fakeSource{kind: model.SourceGoogle, events: []calendar.FetchedEvent{
		{ExternalID: "evt-1", Title: "Standup", Start: at(1)},
	}}
	e := newTestEngine(store, fakeResolver{sources: []calendar.Connected{connected("c1", src)}})
	ctx := context.Background()

	_, err := e.SyncAllCalendars(ctx, "u1")
	require.NoError(t, err)

	manual := "something-else"
	store.event(model.SourceGoogle, "evt-1").WorkAreaID = &manual

	_, err = e.SyncAllCalendars(ctx, "u1")
	require.NoError(t, err)
	assert.Equal(t, "standup", *store.event(model.SourceGoogle, "evt-1").WorkAreaID)
}

func TestSync_FailingSourceIsIsolated(t *testing.T) {
	store := newFakeStore()
	broken := &fakeSource{kind: model.SourceGoogle, err: errors.New("token revoked")}
	exploding := &fakeSource{kind: model.SourceGoogle, panics: true}
	healthy := &fakeSource{kind: model.SourceEventKit, events: []calendar.FetchedEvent{
		{ExternalID: "ek-1", Title: "1:1", Start: at(1)},
	}}
	unbuildable := calendar.Connected{
		Connection: model.CalendarConnection{ID: "c4", Source: model.SourceEventKit},
		Err:        errors.New("no calendar name"),
	}
	e := newTestEngine(store, fakeResolver{sources: []calendar.Connected{
		connected("c1", broken), connected("c2", exploding), connected("c3", healthy), unbuildable,
	}})

	report, err := e.SyncAllCalendars(context.Background(), "u1")
	require.NoError(t, err)

	assert.NotNil(t, store.event(model.SourceEventKit, "ek-1"))
	assert.ErrorContains(t, store.results["c1"], "token revoked")
	assert.ErrorContains(t, store.results["c2"], "panic")
	assert.NoError(t, store.results["c3"])
	assert.ErrorContains(t, store.results["c4"], "no calendar name")

	require.Len(t, report.Sources, 4)
	assert.Equal(t, "token revoked", report.Sources[0].Error)
	assert.Empty(t, report.Sources[2].Error)

	require.NotNil(t, store.lastSynced)
	assert.True(t, store.lastSynced.Equal(testNow))
}

func TestSync_AllSourcesFailLeavesLastSyncedAlone(t *testing.T) {
	store := newFakeStore()
	src := &fakeSource{kind: model.SourceGoogle, err: errors.New("offline")}
	e := newTestEngine(store, fakeResolver{sources: []calendar.Connected{connected("c1", src)}})

	report, err := e.SyncAllCalendars(context.Background(), "u1")
	require.NoError(t, err)
	assert.Nil(t, store.lastSynced)
	assert.Nil(t, report.SyncedAt)
}

func TestSync_UpsertFailureFailsOnlyThatSource(t *testing.T) {
	store := newFakeStore()
	store.upsertErr = errors.New("disk full")
	src := &fakeSource{kind: model.SourceGoogle, events: []calendar.FetchedEvent{
		{ExternalID: "evt-1", Title: "x", Start: at(1)},
	}}
	e := newTestEngine(store, fakeResolver{sources: []calendar.Connected{connected("c1", src)}})

	_, err := e.SyncAllCalendars(context.Background(), "u1")
	require.NoError(t, err)
	assert.ErrorContains(t, store.results["c1"], "disk full")
}

func TestSync_NoSourcesIsNoop(t *testing.T) {
	store := newFakeStore()
	e := newTestEngine(store, fakeResolver{})

	report, err := e.SyncAllCalendars(context.Background(), "u1")
	require.NoError(t, err)
	assert.Empty(t, report.Sources)
	assert.Nil(t, store.lastSynced)
}

func TestSync_UnknownUser(t *testing.T) {
	e := newTestEngine(newFakeStore(), fakeResolver{})
	_, err := e.SyncAllCalendars(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestSync_ResolverFailurePropagates(t *testing.T) {
	e := newTestEngine(newFakeStore(), fakeResolver{err: errors.New("db down")})
	_, err := e.SyncAllCalendars(context.Background(), "u1")
	assert.ErrorContains(t, err, "db down")
}

func TestSync_UsesSourceWindow(t *testing.T) {
	store := newFakeStore()
	google := &fakeSource{kind: model.SourceGoogle, window: calendar.Window{PastDays: 30, FutureDays: 60}}
	eventkit := &fakeSource{kind: model.SourceEventKit, window: calendar.Window{FutureDays: 40}}
	e := newTestEngine(store, fakeResolver{sources: []calendar.Connected{
		connected("g", google), connected("e", eventkit),
	}})

	_, err := e.SyncAllCalendars(context.Background(), "u1")
	require.NoError(t, err)

	midnight := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, midnight.AddDate(0, 0, -30), google.start)
	assert.Equal(t, midnight.AddDate(0, 0, 60), google.end)
	assert.Equal(t, midnight, eventkit.start)
	assert.Equal(t, midnight.AddDate(0, 0, 40), eventkit.end)
}
