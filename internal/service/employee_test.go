package service

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/progression"
)

func newTestEmployeeService(t *testing.T) (*EmployeeService, *fakeProgression, string) {
	t.Helper()
	db := newStore(t)
	prog := &fakeProgression{}
	svc := NewEmployeeService(db, prog, discardLogger())
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC) }
	return svc, prog, newUser(t, db, "lead@example.com")
}

func TestEmployeeCreate(t *testing.T) {
	svc, prog, userID := newTestEmployeeService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, userID, NewEmployee{Name: " Ola ", Email: "Ola@Corp.com", Role: "Dev"})
	require.NoError(t, err)
	assert.Equal(t, "Ola", e.Name)
	assert.Equal(t, "ola@corp.com", e.Email)

	_, checks := prog.calls()
	assert.Equal(t, 1, checks, "adding an employee can unlock team achievements")

	_, err = svc.Create(ctx, userID, NewEmployee{Name: ""})
	assert.ErrorIs(t, err, apperror.ErrValidation)
	_, err = svc.Create(ctx, userID, NewEmployee{Name: "X", Email: "nope"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	list, err := svc.List(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLogOneOnOne_AwardsXP(t *testing.T) {
	svc, prog, userID := newTestEmployeeService(t)
	ctx := context.Background()

	e, err := svc.Create(ctx, userID, NewEmployee{Name: "Ola"})
	require.NoError(t, err)

	res, err := svc.LogOneOnOne(ctx, userID, e.ID, NewOneOnOne{Notes: "career talk"})
	require.NoError(t, err)
	assert.Equal(t, svc.now(), res.OneOnOne.HeldAt, "missing heldAt defaults to now")
	assert.Equal(t, progression.XPOneOnOne, res.Reward.XP.TotalXP)

	awards, _ := prog.calls()
	require.Len(t, awards, 1)
	assert.Equal(t, "one_on_one", awards[0].reason)

	list, err := svc.ListOneOnOnes(ctx, userID, e.ID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}

func TestLogOneOnOne_UnknownEmployee(t *testing.T) {
	svc, prog, userID := newTestEmployeeService(t)

	_, err := svc.LogOneOnOne(context.Background(), userID, "ghost", NewOneOnOne{})
	assert.ErrorIs(t, err, apperror.ErrNotFound)

	awards, _ := prog.calls()
	assert.Empty(t, awards)
}

func TestCreateWorkshop_AwardsXP(t *testing.T) {
	svc, prog, userID := newTestEmployeeService(t)
	ctx := context.Background()
	held := time.Date(2026, 4, 30, 14, 0, 0, 0, time.UTC)

	res, err := svc.CreateWorkshop(ctx, userID, NewWorkshop{Title: "Go intro", HeldAt: &held, Participants: 8})
	require.NoError(t, err)
	assert.True(t, res.Workshop.HeldAt.Equal(held))
	assert.Equal(t, progression.XPWorkshop, res.Reward.XP.TotalXP)

	_, err = svc.CreateWorkshop(ctx, userID, NewWorkshop{Title: "Bad", Participants: -1})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	awards, _ := prog.calls()
	assert.Len(t, awards, 1)

	list, err := svc.ListWorkshops(ctx, userID)
	require.NoError(t, err)
	assert.Len(t, list, 1)
}
