package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

var _ repository.GamificationRepository = (*DB)(nil)

// GetStats loads the user's progression state including unlocked
// achievement IDs.
func (db *DB) GetStats(ctx context.Context, userID string) (model.GamificationStats, error) {
	stats, err := loadStats(ctx, db.conn, userID)
	if err != nil {
		return model.GamificationStats{}, err
	}

	unlocked, err := db.unlockedList(ctx, userID)
	if err != nil {
		return model.GamificationStats{}, err
	}
	stats.Achievements = unlocked
	return stats, nil
}

// UpdateStats loads the stats row, hands it to fn, and writes the result
// back together with an xp_log entry, all in one transaction.
func (db *DB) UpdateStats(ctx context.Context, userID, reason string, amount int, fn func(*model.GamificationStats) error) (model.GamificationStats, error) {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return model.GamificationStats{}, fmt.Errorf("sqlite: beginning stats update: %w", err)
	}
	defer tx.Rollback()

	stats, err := loadStats(ctx, tx, userID)
	if err != nil {
		return model.GamificationStats{}, err
	}

	if err := fn(&stats); err != nil {
		return model.GamificationStats{}, err
	}

	now := utc(db.now())
	_, err = tx.ExecContext(ctx,
		`UPDATE users
		 SET level = ?, total_xp = ?, current_xp = ?, streak = ?, longest_streak = ?,
		     last_activity_at = ?, updated_at = ?
		 WHERE id = ?`,
		stats.Level, stats.TotalXP, stats.CurrentXP, stats.Streak, stats.LongestStreak,
		nullTime(stats.LastActivityAt), now, userID,
	)
	if err != nil {
		return model.GamificationStats{}, fmt.Errorf("sqlite: writing stats for %s: %w", userID, err)
	}

	if _, err := tx.ExecContext(ctx,
		`INSERT INTO xp_log (user_id, amount, reason, created_at) VALUES (?, ?, ?, ?)`,
		userID, amount, reason, now,
	); err != nil {
		return model.GamificationStats{}, fmt.Errorf("sqlite: appending xp log: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return model.GamificationStats{}, fmt.Errorf("sqlite: committing stats update: %w", err)
	}
	return stats, nil
}

// UnlockAchievement inserts the (user, achievement) pair. The primary key
// makes the insert idempotent: a repeated unlock affects zero rows.
func (db *DB) UnlockAchievement(ctx context.Context, userID, achievementID string, at time.Time) (bool, error) {
	res, err := db.conn.ExecContext(ctx,
		`INSERT OR IGNORE INTO user_achievements (user_id, achievement_id, unlocked_at)
		 VALUES (?, ?, ?)`,
		userID, achievementID, utc(at),
	)
	if err != nil {
		return false, fmt.Errorf("sqlite: unlocking %s for %s: %w", achievementID, userID, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	return n == 1, nil
}

func (db *DB) UnlockedAchievementIDs(ctx context.Context, userID string) (map[string]bool, error) {
	ids, err := db.unlockedList(ctx, userID)
	if err != nil {
		return nil, err
	}
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return set, nil
}

// metricQueries maps count-backed metrics to their SQL. Streak and level
// are read from the users row.
var metricQueries = map[model.Metric]string{
	model.MetricActionsCompleted: `SELECT COUNT(*) FROM actions WHERE user_id = ? AND status = 'done'`,
	model.MetricEmployeesAdded:   `SELECT COUNT(*) FROM employees WHERE user_id = ?`,
	model.MetricOneOnOnesLogged:  `SELECT COUNT(*) FROM one_on_ones WHERE user_id = ?`,
	model.MetricWorkshopsHosted:  `SELECT COUNT(*) FROM workshops WHERE user_id = ?`,
	model.MetricEventsTagged:     `SELECT COUNT(*) FROM events WHERE user_id = ? AND work_area_id IS NOT NULL`,
	model.MetricCurrentStreak:    `SELECT streak FROM users WHERE id = ?`,
	model.MetricLevel:            `SELECT level FROM users WHERE id = ?`,
}

func (db *DB) CountMetric(ctx context.Context, userID string, metric model.Metric) (int, error) {
	query, ok := metricQueries[metric]
	if !ok {
		return 0, apperror.ValidationFailed("metric", fmt.Sprintf("unknown metric %q", metric))
	}
	var n int
	if err := db.conn.QueryRowContext(ctx, query, userID).Scan(&n); err != nil {
		if isNoRows(err) {
			return 0, apperror.NotFound("user", userID)
		}
		return 0, fmt.Errorf("sqlite: counting %s for %s: %w", metric, userID, err)
	}
	return n, nil
}

func (db *DB) unlockedList(ctx context.Context, userID string) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT achievement_id FROM user_achievements
		 WHERE user_id = ? ORDER BY unlocked_at, achievement_id`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing unlocked achievements: %w", err)
	}
	defer rows.Close()

	ids := []string{}
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning achievement id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating achievement ids: %w", err)
	}
	return ids, nil
}

type queryRower interface {
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

func loadStats(ctx context.Context, q queryRower, userID string) (model.GamificationStats, error) {
	var (
		s            model.GamificationStats
		lastActivity sql.NullTime
	)
	err := q.QueryRowContext(ctx,
		`SELECT level, total_xp, current_xp, streak, longest_streak, last_activity_at
		 FROM users WHERE id = ?`, userID,
	).Scan(&s.Level, &s.TotalXP, &s.CurrentXP, &s.Streak, &s.LongestStreak, &lastActivity)
	if err != nil {
		if isNoRows(err) {
			return model.GamificationStats{}, apperror.NotFound("user", userID)
		}
		return model.GamificationStats{}, fmt.Errorf("sqlite: loading stats for %s: %w", userID, err)
	}
	s.LastActivityAt = timePtr(lastActivity)
	s.Achievements = []string{}
	return s, nil
}
