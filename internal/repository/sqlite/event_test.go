package sqlite

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

func syncedEvent(userID, externalID, title string, start time.Time) *model.Event {
	id := externalID
	return &model.Event{
		UserID:     userID,
		ExternalID: &id,
		Title:      title,
		StartTime:  start,
		EndTime:    start.Add(time.Hour),
		Source:     model.SourceGoogle,
	}
}

func TestUpsertSynced_InsertThenUpdate(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	created, err := db.UpsertSynced(ctx, syncedEvent(u.ID, "evt-1", "Standup", start))
	if err != nil {
		t.Fatalf("UpsertSynced() error = %v", err)
	}
	if !created {
		t.Error("first UpsertSynced() created = false, want true")
	}

	created, err = db.UpsertSynced(ctx, syncedEvent(u.ID, "evt-1", "Standup (moved)", start.Add(30*time.Minute)))
	if err != nil {
		t.Fatalf("second UpsertSynced() error = %v", err)
	}
	if created {
		t.Error("second UpsertSynced() created = true, want false")
	}

	events, err := db.ListEvents(ctx, u.ID, repository.EventRange{})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 1 {
		t.Fatalf("len(events) = %d, want 1", len(events))
	}
	if events[0].Title != "Standup (moved)" {
		t.Errorf("Title = %q, want updated title", events[0].Title)
	}
	if !events[0].StartTime.Equal(start.Add(30 * time.Minute)) {
		t.Errorf("StartTime = %v, want moved start", events[0].StartTime)
	}
}

func TestUpsertSynced_PreservesUserFields(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	ev := syncedEvent(u.ID, "evt-1", "Planning", start)
	if _, err := db.UpsertSynced(ctx, ev); err != nil {
		t.Fatalf("UpsertSynced() error = %v", err)
	}

	stored, err := db.GetEvent(ctx, u.ID, ev.ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	stored.RawNotes = "decided to ship"
	stored.NeedsAction = true
	stored.Extraction = json.RawMessage(`{"actions":[]}`)
	if err := db.UpdateEvent(ctx, stored); err != nil {
		t.Fatalf("UpdateEvent() error = %v", err)
	}

	if _, err := db.UpsertSynced(ctx, syncedEvent(u.ID, "evt-1", "Planning v2", start)); err != nil {
		t.Fatalf("second UpsertSynced() error = %v", err)
	}

	got, err := db.GetEvent(ctx, u.ID, ev.ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.Title != "Planning v2" {
		t.Errorf("Title = %q, want Planning v2", got.Title)
	}
	if got.RawNotes != "decided to ship" || !got.NeedsAction {
		t.Errorf("user fields lost: rawNotes=%q needsAction=%v", got.RawNotes, got.NeedsAction)
	}
	if string(got.Extraction) != `{"actions":[]}` {
		t.Errorf("Extraction = %s, want preserved", got.Extraction)
	}
}

func TestUpsertSynced_KeyIsScopedPerUserAndSource(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	if _, err := db.UpsertSynced(ctx, syncedEvent(a.ID, "shared", "A", start)); err != nil {
		t.Fatalf("UpsertSynced(a) error = %v", err)
	}
	if created, err := db.UpsertSynced(ctx, syncedEvent(b.ID, "shared", "B", start)); err != nil || !created {
		t.Fatalf("UpsertSynced(b) = %v, %v; want new row", created, err)
	}

	ek := syncedEvent(a.ID, "shared", "A from eventkit", start)
	ek.Source = model.SourceEventKit
	if created, err := db.UpsertSynced(ctx, ek); err != nil || !created {
		t.Fatalf("UpsertSynced(eventkit) = %v, %v; want new row", created, err)
	}
}

func TestUpsertSynced_RequiresExternalID(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "lead@example.com")

	_, err := db.UpsertSynced(context.Background(), &model.Event{UserID: u.ID, Title: "x", Source: model.SourceGoogle})
	if !errors.Is(err, apperror.ErrValidation) {
		t.Errorf("UpsertSynced() error = %v, want ErrValidation", err)
	}
}

func TestFindBySourceExternalID(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	if _, err := db.UpsertSynced(ctx, syncedEvent(u.ID, "evt-9", "Retro", start)); err != nil {
		t.Fatalf("UpsertSynced() error = %v", err)
	}

	got, err := db.FindBySourceExternalID(ctx, u.ID, model.SourceGoogle, "evt-9")
	if err != nil {
		t.Fatalf("FindBySourceExternalID() error = %v", err)
	}
	if got.Title != "Retro" {
		t.Errorf("Title = %q, want Retro", got.Title)
	}

	_, err = db.FindBySourceExternalID(ctx, u.ID, model.SourceEventKit, "evt-9")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("FindBySourceExternalID(eventkit) error = %v, want ErrNotFound", err)
	}
}

func TestListEvents_RangeAndOrder(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")
	day := time.Date(2026, 5, 4, 0, 0, 0, 0, time.UTC)

	for i, title := range []string{"late", "early", "next day"} {
		start := day.Add(time.Duration(10-i*2) * time.Hour)
		if title == "next day" {
			start = day.Add(30 * time.Hour)
		}
		e := &model.Event{UserID: u.ID, Title: title, StartTime: start, EndTime: start.Add(time.Hour), Source: model.SourceManual}
		if err := db.CreateEvent(ctx, e); err != nil {
			t.Fatalf("CreateEvent(%q) error = %v", title, err)
		}
	}

	events, err := db.ListEvents(ctx, u.ID, repository.EventRange{From: day, To: day.Add(24 * time.Hour)})
	if err != nil {
		t.Fatalf("ListEvents() error = %v", err)
	}
	if len(events) != 2 {
		t.Fatalf("len(events) = %d, want 2", len(events))
	}
	if events[0].Title != "early" || events[1].Title != "late" {
		t.Errorf("order = [%s, %s], want [early, late]", events[0].Title, events[1].Title)
	}
}

func TestDeleteEvent_OtherUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	owner := createTestUser(t, db, "owner@example.com")
	other := createTestUser(t, db, "other@example.com")
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	e := &model.Event{UserID: owner.ID, Title: "1:1", StartTime: start, EndTime: start.Add(time.Hour), Source: model.SourceManual}
	if err := db.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}

	if err := db.DeleteEvent(ctx, other.ID, e.ID); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("DeleteEvent(other) error = %v, want ErrNotFound", err)
	}
	if err := db.DeleteEvent(ctx, owner.ID, e.ID); err != nil {
		t.Errorf("DeleteEvent(owner) error = %v", err)
	}
}

func TestDeleteWorkArea_UntagsEvents(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")
	area := createTestArea(t, db, u.ID, "Daily Standup")
	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)

	e := &model.Event{UserID: u.ID, Title: "Standup", StartTime: start, EndTime: start.Add(time.Hour),
		Source: model.SourceManual, WorkAreaID: &area.ID}
	if err := db.CreateEvent(ctx, e); err != nil {
		t.Fatalf("CreateEvent() error = %v", err)
	}
	if err := db.DeleteWorkArea(ctx, u.ID, area.ID); err != nil {
		t.Fatalf("DeleteWorkArea() error = %v", err)
	}

	got, err := db.GetEvent(ctx, u.ID, e.ID)
	if err != nil {
		t.Fatalf("GetEvent() error = %v", err)
	}
	if got.WorkAreaID != nil {
		t.Errorf("WorkAreaID = %v, want nil after area deletion", *got.WorkAreaID)
	}
}
