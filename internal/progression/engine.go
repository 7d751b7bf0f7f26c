package progression

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

// XPResult is what AddXP reports back to the caller.
type XPResult struct {
	TotalXP   int  `json:"totalXp"`
	Level     int  `json:"level"`
	LeveledUp bool `json:"leveledUp"`
	Streak    int  `json:"streak"`
}

// Engine owns every write to GamificationStats and the unlock pass over the
// achievement catalog.
type Engine struct {
	repo    repository.GamificationRepository
	catalog []model.Achievement
	logger  *slog.Logger
	now     func() time.Time
	loc     *time.Location
}

// Option customises an Engine.
type Option func(*Engine)

// WithClock replaces time.Now.
func WithClock(now func() time.Time) Option {
	return func(e *Engine) { e.now = now }
}

// WithLocation sets the zone used to decide calendar days for streaks.
// The default is time.Local.
func WithLocation(loc *time.Location) Option {
	return func(e *Engine) {
		if loc != nil {
			e.loc = loc
		}
	}
}

func NewEngine(repo repository.GamificationRepository, catalog []model.Achievement, logger *slog.Logger, opts ...Option) *Engine {
	e := &Engine{
		repo:    repo,
		catalog: catalog,
		logger:  logger,
		now:     time.Now,
		loc:     time.Local,
	}
	for _, opt := range opts {
		opt(e)
	}
	return e
}

// AddXP adds amount to the user's total, recomputes the level and applies
// the daily streak rule. The whole load-modify-store runs in one repository
// transaction.
func (e *Engine) AddXP(ctx context.Context, userID string, amount int, reason string) (XPResult, error) {
	if amount < 0 {
		return XPResult{}, apperror.ValidationFailed("amount", "must not be negative")
	}

	now := e.now()
	var leveledUp bool

	stats, err := e.repo.UpdateStats(ctx, userID, reason, amount, func(s *model.GamificationStats) error {
		if s.Level < 1 {
			*s = model.NewGamificationStats()
		}
		before := s.Level

		s.TotalXP += amount
		s.Level = CalculateLevel(s.TotalXP)
		s.CurrentXP = s.TotalXP - LevelThreshold(s.Level)

		s.Streak = NextStreak(s.Streak, s.LastActivityAt, now, e.loc)
		if s.Streak > s.LongestStreak {
			s.LongestStreak = s.Streak
		}
		at := now
		s.LastActivityAt = &at

		leveledUp = s.Level > before
		return nil
	})
	if err != nil {
		return XPResult{}, fmt.Errorf("adding %d xp (%s): %w", amount, reason, err)
	}

	if leveledUp {
		e.logger.Info("level up", "user_id", userID, "level", stats.Level, "total_xp", stats.TotalXP)
	}

	return XPResult{
		TotalXP:   stats.TotalXP,
		Level:     stats.Level,
		LeveledUp: leveledUp,
		Streak:    stats.Streak,
	}, nil
}

// CheckAchievements unlocks every catalog entry whose condition now holds
// and returns the names unlocked by this call.
//
// A failing or panicking predicate is logged and skipped. Rewards can push
// other conditions over their target (levels), so passes repeat until one
// unlocks nothing.
func (e *Engine) CheckAchievements(ctx context.Context, userID string) ([]string, error) {
	unlocked, err := e.repo.UnlockedAchievementIDs(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("loading unlocked achievements: %w", err)
	}

	names := []string{}
	for pass := 0; pass <= len(e.catalog); pass++ {
		progressed := false
		for _, a := range e.catalog {
			if unlocked[a.ID] {
				continue
			}
			if e.tryUnlock(ctx, userID, a) {
				unlocked[a.ID] = true
				names = append(names, a.Name)
				progressed = true
			}
		}
		if !progressed {
			break
		}
	}
	return names, nil
}

// tryUnlock evaluates one achievement and, when its condition holds, records
// the unlock and pays the reward. It reports whether this call unlocked it.
func (e *Engine) tryUnlock(ctx context.Context, userID string, a model.Achievement) bool {
	log := e.logger.With("user_id", userID, "achievement", a.ID)

	ok, err := e.evaluate(ctx, userID, a.Condition)
	if err != nil {
		log.Warn("achievement check failed", "error", err)
		return false
	}
	if !ok {
		return false
	}

	created, err := e.repo.UnlockAchievement(ctx, userID, a.ID, e.now())
	if err != nil {
		log.Warn("achievement unlock failed", "error", err)
		return false
	}
	if !created {
		// Another trigger got there first; it paid the reward.
		return false
	}

	log.Info("achievement unlocked", "name", a.Name, "xp_reward", a.XPReward)

	if a.XPReward > 0 {
		if _, err := e.AddXP(ctx, userID, a.XPReward, "achievement:"+a.ID); err != nil {
			log.Warn("achievement reward failed", "error", err)
		}
	}
	return true
}

// evaluate reads the condition's metric and compares it to the target.
// Panics from the repository are turned into errors.
func (e *Engine) evaluate(ctx context.Context, userID string, c model.Condition) (ok bool, err error) {
	defer func() {
		if r := recover(); r != nil {
			err = fmt.Errorf("panic evaluating %s: %v", c.Metric, r)
		}
	}()

	switch c.Kind {
	case model.ConditionCount, model.ConditionStreak, model.ConditionMilestone:
	default:
		return false, fmt.Errorf("unknown condition kind %q", c.Kind)
	}

	value, err := e.repo.CountMetric(ctx, userID, c.Metric)
	if err != nil {
		return false, err
	}
	return value >= c.Target, nil
}

// AchievementStatus pairs a catalog entry with the user's unlock state.
type AchievementStatus struct {
	model.Achievement
	Unlocked bool `json:"unlocked"`
}

// Summary is the read model behind the gamification endpoint.
type Summary struct {
	Stats    model.GamificationStats `json:"stats"`
	Progress Progress                `json:"progress"`
}

func (e *Engine) Summary(ctx context.Context, userID string) (Summary, error) {
	stats, err := e.repo.GetStats(ctx, userID)
	if err != nil {
		return Summary{}, err
	}
	return Summary{Stats: stats, Progress: ProgressFor(stats.TotalXP)}, nil
}

// Achievements lists the catalog in evaluation order with unlock flags.
func (e *Engine) Achievements(ctx context.Context, userID string) ([]AchievementStatus, error) {
	unlocked, err := e.repo.UnlockedAchievementIDs(ctx, userID)
	if err != nil {
		return nil, err
	}
	list := make([]AchievementStatus, 0, len(e.catalog))
	for _, a := range e.catalog {
		list = append(list, AchievementStatus{Achievement: a, Unlocked: unlocked[a.ID]})
	}
	return list, nil
}
