package sqlite

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
)

func TestCreateWorkArea_NameUniquePerUser(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	a := createTestUser(t, db, "a@example.com")
	b := createTestUser(t, db, "b@example.com")

	createTestArea(t, db, a.ID, "Hiring")

	err := db.CreateWorkArea(ctx, &model.WorkArea{UserID: a.ID, Name: "Hiring"})
	if !errors.Is(err, apperror.ErrConflict) {
		t.Errorf("duplicate CreateWorkArea() error = %v, want ErrConflict", err)
	}

	if err := db.CreateWorkArea(ctx, &model.WorkArea{UserID: b.ID, Name: "Hiring"}); err != nil {
		t.Errorf("CreateWorkArea() for another user error = %v", err)
	}
}

func TestListWorkAreas_CreationOrder(t *testing.T) {
	base := time.Date(2026, 1, 1, 8, 0, 0, 0, time.UTC)
	db := newClockedDB(t, base)
	u := createTestUser(t, db, "lead@example.com")

	// Same timestamp for every row: rowid breaks the tie.
	for _, name := range []string{"Zeta", "Alpha", "Mid"} {
		createTestArea(t, db, u.ID, name)
	}

	areas, err := db.ListWorkAreas(context.Background(), u.ID)
	if err != nil {
		t.Fatalf("ListWorkAreas() error = %v", err)
	}
	var names []string
	for _, a := range areas {
		names = append(names, a.Name)
	}
	want := []string{"Zeta", "Alpha", "Mid"}
	for i := range want {
		if i >= len(names) || names[i] != want[i] {
			t.Fatalf("names = %v, want %v", names, want)
		}
	}
}

func TestSetWorkAreaEmployees(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")
	other := createTestUser(t, db, "other@example.com")
	area := createTestArea(t, db, u.ID, "Platform")

	alice := &model.Employee{UserID: u.ID, Name: "Alice", Email: "alice@example.com"}
	foreign := &model.Employee{UserID: other.ID, Name: "Mallory"}
	for _, e := range []*model.Employee{alice, foreign} {
		if err := db.CreateEmployee(ctx, e); err != nil {
			t.Fatalf("CreateEmployee() error = %v", err)
		}
	}

	if err := db.SetWorkAreaEmployees(ctx, u.ID, area.ID, []string{alice.ID, alice.ID}); err != nil {
		t.Fatalf("SetWorkAreaEmployees() error = %v", err)
	}
	got, err := db.GetWorkArea(ctx, u.ID, area.ID)
	if err != nil {
		t.Fatalf("GetWorkArea() error = %v", err)
	}
	if len(got.EmployeeIDs) != 1 || got.EmployeeIDs[0] != alice.ID {
		t.Errorf("EmployeeIDs = %v, want [%s]", got.EmployeeIDs, alice.ID)
	}

	err = db.SetWorkAreaEmployees(ctx, u.ID, area.ID, []string{foreign.ID})
	if !errors.Is(err, apperror.ErrNotFound) {
		t.Errorf("linking another user's employee error = %v, want ErrNotFound", err)
	}

	// The failed call rolled back, so the previous links survive.
	got, err = db.GetWorkArea(ctx, u.ID, area.ID)
	if err != nil {
		t.Fatalf("GetWorkArea() error = %v", err)
	}
	if len(got.EmployeeIDs) != 1 {
		t.Errorf("EmployeeIDs after failed update = %v, want unchanged", got.EmployeeIDs)
	}
}

func TestUpdateWorkArea_Hidden(t *testing.T) {
	db := newTestDB(t)
	ctx := context.Background()
	u := createTestUser(t, db, "lead@example.com")
	area := createTestArea(t, db, u.ID, "Admin")

	area.Hidden = true
	area.Color = "#888"
	if err := db.UpdateWorkArea(ctx, area); err != nil {
		t.Fatalf("UpdateWorkArea() error = %v", err)
	}

	got, err := db.GetWorkArea(ctx, u.ID, area.ID)
	if err != nil {
		t.Fatalf("GetWorkArea() error = %v", err)
	}
	if !got.Hidden || got.Color != "#888" {
		t.Errorf("got hidden=%v color=%q, want true #888", got.Hidden, got.Color)
	}
}
