package service

import (
	"context"
	"io"
	"log/slog"
	"sync"
	"testing"

	"github.com/stretchr/testify/require"

	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/progression"
	"github.com/kjarisk/athena/internal/repository/sqlite"
)

func discardLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

type xpCall struct {
	userID string
	amount int
	reason string
}

// fakeProgression records awards instead of touching gamification state.
type fakeProgression struct {
	mu       sync.Mutex
	awards   []xpCall
	checks   int
	unlock   []string
	addErr   error
	checkErr error
	total    int
}

func (f *fakeProgression) AddXP(_ context.Context, userID string, amount int, reason string) (progression.XPResult, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.addErr != nil {
		return progression.XPResult{}, f.addErr
	}
	f.awards = append(f.awards, xpCall{userID, amount, reason})
	before := progression.CalculateLevel(f.total)
	f.total += amount
	level := progression.CalculateLevel(f.total)
	return progression.XPResult{TotalXP: f.total, Level: level, LeveledUp: level > before}, nil
}

func (f *fakeProgression) CheckAchievements(context.Context, string) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.checks++
	if f.checkErr != nil {
		return nil, f.checkErr
	}
	out := f.unlock
	f.unlock = nil
	return out, nil
}

func (f *fakeProgression) calls() ([]xpCall, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return append([]xpCall(nil), f.awards...), f.checks
}

func newStore(t *testing.T) *sqlite.DB {
	t.Helper()
	db, err := sqlite.New(":memory:")
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	return db
}

func newUser(t *testing.T, db *sqlite.DB, email string) string {
	t.Helper()
	u := &model.User{Email: email, Name: "Lead", PasswordHash: "x"}
	require.NoError(t, db.CreateUser(context.Background(), u))
	return u.ID
}

func ptr[T any](v T) *T { return &v }
