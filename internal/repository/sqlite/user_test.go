package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
)

func TestCreateUser_InitialisesProgression(t *testing.T) {
	db := newTestDB(t)
	u := createTestUser(t, db, "  Lead@Example.com ")

	got, err := db.GetUserByID(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.Email != "lead@example.com" {
		t.Errorf("Email = %q, want lowercased and trimmed", got.Email)
	}
	if got.Gamification.Level != 1 || got.Gamification.TotalXP != 0 {
		t.Errorf("Gamification = %+v, want level 1 with 0 XP", got.Gamification)
	}
	if got.LastSyncedAt != nil {
		t.Errorf("LastSyncedAt = %v, want nil", got.LastSyncedAt)
	}
}

func TestCreateUser_DuplicateEmail(t *testing.T) {
	db := newTestDB(t)
	createTestUser(t, db, "lead@example.com")

	err := db.CreateUser(context.Background(), &model.User{Email: "LEAD@example.com"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("CreateUser() error = %v, want ErrConflict", err)
	}
}

func TestGetUserByEmail_NotFound(t *testing.T) {
	db := newTestDB(t)
	_, err := db.GetUserByEmail(context.Background(), "nobody@example.com")
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("GetUserByEmail() error = %v, want ErrNotFound", err)
	}
}

func TestSetLastSynced(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")

	at := time.Date(2026, 3, 2, 9, 30, 0, 0, time.UTC)
	if err := db.SetLastSynced(ctx, u.ID, at); err != nil {
		t.Fatalf("SetLastSynced() error = %v", err)
	}

	got, err := db.GetUserByID(ctx, u.ID)
	if err != nil {
		t.Fatalf("GetUserByID() error = %v", err)
	}
	if got.LastSyncedAt == nil || !got.LastSyncedAt.Equal(at) {
		t.Errorf("LastSyncedAt = %v, want %v", got.LastSyncedAt, at)
	}

	if err := db.SetLastSynced(ctx, "missing", at); !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("SetLastSynced(missing) error = %v, want ErrNotFound", err)
	}
}

func TestListUserIDsWithConnections(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "a@example.com")
	createTestUser(t, db, "b@example.com")

	if err := db.SaveConnection(ctx, &model.CalendarConnection{UserID: a.ID, Source: model.SourceEventKit}); err != nil {
		t.Fatalf("SaveConnection() error = %v", err)
	}

	ids, err := db.ListUserIDsWithConnections(ctx)
	if err != nil {
		t.Fatalf("ListUserIDsWithConnections() error = %v", err)
	}
	if len(ids) != 1 || ids[0] != a.ID {
		t.Errorf("ids = %v, want [%s]", ids, a.ID)
	}
}
