package service

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
)

func newTestActionService(t *testing.T) (*ActionService, *fakeProgression, string) {
	t.Helper()
	db := newStore(t)
	prog := &fakeProgression{}
	svc := NewActionService(db, db, prog, discardLogger())
	svc.now = func() time.Time { return time.Date(2026, 5, 4, 12, 0, 0, 0, time.UTC) }
	return svc, prog, newUser(t, db, "lead@example.com")
}

func TestActionCreate_DefaultsAndValidation(t *testing.T) {
	svc, _, userID := newTestActionService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, userID, NewAction{Title: "  Write feedback  "})
	require.NoError(t, err)
	assert.Equal(t, "Write feedback", a.Title)
	assert.Equal(t, model.PriorityMedium, a.Priority)
	assert.Equal(t, model.ActionOpen, a.Status)

	_, err = svc.Create(ctx, userID, NewAction{Title: "x", Priority: "urgent"})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Create(ctx, userID, NewAction{Title: " "})
	assert.ErrorIs(t, err, apperror.ErrValidation)

	_, err = svc.Create(ctx, userID, NewAction{Title: "x", WorkAreaID: ptr("missing")})
	assert.ErrorIs(t, err, apperror.ErrValidation)
}

func TestActionCreate_FromEventClearsNeedsAction(t *testing.T) {
	db := newStore(t)
	svc := NewActionService(db, db, &fakeProgression{}, discardLogger())
	userID := newUser(t, db, "lead@example.com")
	ctx := context.Background()

	start := time.Date(2026, 5, 4, 9, 0, 0, 0, time.UTC)
	ev := &model.Event{UserID: userID, Title: "Retro", StartTime: start, EndTime: start.Add(time.Hour),
		Source: model.SourceManual, NeedsAction: true}
	require.NoError(t, db.CreateEvent(ctx, ev))

	_, err := svc.Create(ctx, userID, NewAction{Title: "Send retro notes", EventID: &ev.ID})
	require.NoError(t, err)

	got, err := db.GetEvent(ctx, userID, ev.ID)
	require.NoError(t, err)
	assert.False(t, got.NeedsAction)

	_, err = svc.Create(ctx, userID, NewAction{Title: "Orphan", EventID: ptr("no-such-event")})
	assert.ErrorIs(t, err, apperror.ErrNotFound)
}

func TestActionComplete_AwardsXPByPriority(t *testing.T) {
	svc, prog, userID := newTestActionService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, userID, NewAction{Title: "Hire", Priority: model.PriorityHigh})
	require.NoError(t, err)
	prog.unlock = []string{"First Step"}

	res, err := svc.Complete(ctx, userID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, model.ActionDone, res.Action.Status)
	require.NotNil(t, res.Action.CompletedAt)
	assert.Equal(t, 30, res.Reward.XP.TotalXP)
	assert.Equal(t, []string{"First Step"}, res.Reward.Unlocked)

	awards, checks := prog.calls()
	require.Len(t, awards, 1)
	assert.Equal(t, 30, awards[0].amount)
	assert.Equal(t, "action_completed:high", awards[0].reason)
	assert.Equal(t, 1, checks)
}

func TestActionComplete_TwiceIsConflict(t *testing.T) {
	svc, prog, userID := newTestActionService(t)
	ctx := context.Background()

	a, err := svc.Create(ctx, userID, NewAction{Title: "Plan", Priority: model.PriorityLow})
	require.NoError(t, err)
	_, err = svc.Complete(ctx, userID, a.ID)
	require.NoError(t, err)

	_, err = svc.Complete(ctx, userID, a.ID)
	assert.ErrorIs(t, err, apperror.ErrConflict)

	awards, _ := prog.calls()
	assert.Len(t, awards, 1, "a repeated completion must not award xp")
}

func TestActionComplete_XPFailurePropagates(t *testing.T) {
	svc, prog, userID := newTestActionService(t)
	ctx := context.Background()
	prog.addErr = errors.New("db down")

	a, err := svc.Create(ctx, userID, NewAction{Title: "Plan"})
	require.NoError(t, err)

	_, err = svc.Complete(ctx, userID, a.ID)
	assert.ErrorContains(t, err, "db down")
}

func TestActionComplete_AchievementFailureIsSwallowed(t *testing.T) {
	svc, prog, userID := newTestActionService(t)
	ctx := context.Background()
	prog.checkErr = errors.New("catalog broken")

	a, err := svc.Create(ctx, userID, NewAction{Title: "Plan"})
	require.NoError(t, err)

	res, err := svc.Complete(ctx, userID, a.ID)
	require.NoError(t, err)
	assert.Equal(t, 20, res.Reward.XP.TotalXP)
	assert.Empty(t, res.Reward.Unlocked)
}

func TestActionList_StatusFilter(t *testing.T) {
	svc, _, userID := newTestActionService(t)
	ctx := context.Background()

	a1, err := svc.Create(ctx, userID, NewAction{Title: "One"})
	require.NoError(t, err)
	_, err = svc.Create(ctx, userID, NewAction{Title: "Two"})
	require.NoError(t, err)
	_, err = svc.Complete(ctx, userID, a1.ID)
	require.NoError(t, err)

	open, err := svc.List(ctx, userID, "open", 0, 0)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, "Two", open[0].Title)

	all, err := svc.List(ctx, userID, "", 0, -5)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	_, err = svc.List(ctx, userID, "archived", 0, 0)
	assert.ErrorIs(t, err, apperror.ErrValidation)
}
