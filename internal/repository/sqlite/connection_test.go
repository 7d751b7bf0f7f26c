package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
)

func TestSaveConnection_ReplacesPerSource(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")

	first := &model.CalendarConnection{UserID: u.ID, Source: model.SourceGoogle, AccessToken: "a1", RefreshToken: "r1"}
	if err := db.SaveConnection(ctx, first); err != nil {
		t.Fatalf("SaveConnection() error = %v", err)
	}

	// Google omits the refresh token on re-consent; the stored one survives.
	second := &model.CalendarConnection{UserID: u.ID, Source: model.SourceGoogle, AccessToken: "a2"}
	if err := db.SaveConnection(ctx, second); err != nil {
		t.Fatalf("second SaveConnection() error = %v", err)
	}
	if second.ID != first.ID {
		t.Errorf("reconnect ID = %s, want original %s", second.ID, first.ID)
	}

	conns, err := db.ListConnections(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListConnections() error = %v", err)
	}
	if len(conns) != 1 {
		t.Fatalf("len(conns) = %d, want 1", len(conns))
	}
	if conns[0].AccessToken != "a2" || conns[0].RefreshToken != "r1" {
		t.Errorf("tokens = %q/%q, want a2/r1", conns[0].AccessToken, conns[0].RefreshToken)
	}
}

func TestRecordSyncResult(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")

	c := &model.CalendarConnection{UserID: u.ID, Source: model.SourceEventKit}
	if err := db.SaveConnection(ctx, c); err != nil {
		t.Fatalf("SaveConnection() error = %v", err)
	}

	ok := time.Date(2026, 6, 1, 8, 0, 0, 0, time.UTC)
	if err := db.RecordSyncResult(ctx, c.ID, ok, nil); err != nil {
		t.Fatalf("RecordSyncResult(ok) error = %v", err)
	}
	if err := db.RecordSyncResult(ctx, c.ID, ok.Add(time.Hour), errors.New("helper offline")); err != nil {
		t.Fatalf("RecordSyncResult(err) error = %v", err)
	}

	conns, err := db.ListConnections(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListConnections() error = %v", err)
	}
	got := conns[0]
	if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(ok) {
		t.Errorf("LastSyncedAt = %v, want %v (failure must not advance it)", got.LastSyncedAt, ok)
	}
	if got.LastError != "helper offline" {
		t.Errorf("LastError = %q, want helper offline", got.LastError)
	}
}

func TestUpdateToken(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")

	c := &model.CalendarConnection{UserID: u.ID, Source: model.SourceGoogle, AccessToken: "old", RefreshToken: "r"}
	if err := db.SaveConnection(ctx, c); err != nil {
		t.Fatalf("SaveConnection() error = %v", err)
	}

	exp := time.Date(2026, 6, 1, 9, 0, 0, 0, time.UTC)
	if err := db.UpdateToken(ctx, c.ID, "new", exp); err != nil {
		t.Fatalf("UpdateToken() error = %v", err)
	}
	conns, err := db.ListConnections(ctx, u.ID)
	if err != nil {
		t.Fatalf("ListConnections() error = %v", err)
	}
	if conns[0].AccessToken != "new" || conns[0].TokenExpiry == nil || !conns[0].TokenExpiry.Equal(exp) {
		t.Errorf("connection = %+v, want refreshed token", conns[0])
	}

	if err := db.DeleteConnection(ctx, u.ID, c.ID); err != nil {
		t.Fatalf("DeleteConnection() error = %v", err)
	}
	if err := db.UpdateToken(ctx, c.ID, "x", exp); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("UpdateToken() after delete error = %v, want ErrNotFound", err)
	}
}
