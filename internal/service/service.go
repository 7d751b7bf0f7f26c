// Package service holds the business rules behind the HTTP API.
//
//	handler (HTTP) → service (validation, XP rules) → repository (SQLite)
//	                           ↘ progression / reconcile engines
//
// Services never see an http.Request. They validate input, return
// apperror values that handlers map to status codes, and log the state
// changes worth auditing.
package service

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/kjarisk/athena/internal/progression"
)

const (
	MaxNameLength  = 100
	MaxTitleLength = 300
)

// Progression is the part of progression.Engine services drive.
type Progression interface {
	AddXP(ctx context.Context, userID string, amount int, reason string) (progression.XPResult, error)
	CheckAchievements(ctx context.Context, userID string) ([]string, error)
}

// Reward describes what an activity earned. Unlocked lists achievements
// newly unlocked by the activity, in catalog order.
type Reward struct {
	XP       progression.XPResult `json:"xp"`
	Unlocked []string             `json:"unlockedAchievements"`
}

// award grants amount XP and then evaluates achievements. Achievement
// failures are logged by the engine itself and never fail the activity.
func award(ctx context.Context, p Progression, logger *slog.Logger, userID string, amount int, reason string) (Reward, error) {
	xp, err := p.AddXP(ctx, userID, amount, reason)
	if err != nil {
		return Reward{}, fmt.Errorf("awarding xp for %s: %w", reason, err)
	}

	unlocked, err := p.CheckAchievements(ctx, userID)
	if err != nil {
		logger.Error("achievement check failed after xp award",
			slog.String("userID", userID),
			slog.String("reason", reason),
			slog.String("error", err.Error()),
		)
		unlocked = nil
	}
	if unlocked == nil {
		unlocked = []string{}
	}

	if len(unlocked) > 0 {
		logger.Info("achievements unlocked",
			slog.String("userID", userID),
			slog.Any("achievements", unlocked),
		)
	}
	return Reward{XP: xp, Unlocked: unlocked}, nil
}
