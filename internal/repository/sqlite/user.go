package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"
	"time"

	"github.com/rs/xid"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

// compile-time check that *DB implements repository.UserRepository
var _ repository.UserRepository = (*DB)(nil)

const userColumns = `id, email, name, password_hash, last_synced_at,
	level, total_xp, current_xp, streak, longest_streak, last_activity_at,
	created_at, updated_at`

// CreateUser inserts a new user with freshly initialised gamification state
// (level 1, zero experience).
func (db *DB) CreateUser(ctx context.Context, user *model.User) error {
	now := utc(db.now())
	user.ID = xid.New().String()
	user.Email = strings.ToLower(strings.TrimSpace(user.Email))
	user.CreatedAt = now
	user.UpdatedAt = now
	user.Gamification = model.NewGamificationStats()

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO users (id, email, name, password_hash, level, total_xp, current_xp,
		                    streak, longest_streak, created_at, updated_at)
		 VALUES (?, ?, ?, ?, 1, 0, 0, 0, 0, ?, ?)`,
		user.ID, user.Email, user.Name, user.PasswordHash, user.CreatedAt, user.UpdatedAt,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("user", "email")
		}
		return fmt.Errorf("sqlite: inserting user: %w", err)
	}
	return nil
}

// GetUserByID retrieves a user by their internal ID.
// Returns apperror.ErrNotFound if no user exists with that ID.
func (db *DB) GetUserByID(ctx context.Context, id string) (*model.User, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE id = ?`, id)
	u, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", id)
		}
		return nil, fmt.Errorf("sqlite: getting user %s: %w", id, err)
	}
	return u, nil
}

func (db *DB) GetUserByEmail(ctx context.Context, email string) (*model.User, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+userColumns+` FROM users WHERE email = ?`, email)
	u, err := scanUser(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("user", email)
		}
		return nil, fmt.Errorf("sqlite: getting user by email: %w", err)
	}
	return u, nil
}

func (db *DB) SetLastSynced(ctx context.Context, userID string, at time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE users SET last_synced_at = ?, updated_at = ? WHERE id = ?`,
		utc(at), utc(db.now()), userID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: setting last synced for %s: %w", userID, err)
	}
	return checkAffected(res, apperror.NotFound("user", userID))
}

func (db *DB) ListUserIDsWithConnections(ctx context.Context) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT DISTINCT user_id FROM calendar_connections ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing users with connections: %w", err)
	}
	defer rows.Close()

	var ids []string
	for rows.Next() {
		var id string
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("sqlite: scanning user id: %w", err)
		}
		ids = append(ids, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating user ids: %w", err)
	}
	return ids, nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanUser(row rowScanner) (*model.User, error) {
	var (
		u            model.User
		lastSynced   sql.NullTime
		lastActivity sql.NullTime
	)
	err := row.Scan(
		&u.ID, &u.Email, &u.Name, &u.PasswordHash, &lastSynced,
		&u.Gamification.Level, &u.Gamification.TotalXP, &u.Gamification.CurrentXP,
		&u.Gamification.Streak, &u.Gamification.LongestStreak, &lastActivity,
		&u.CreatedAt, &u.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	u.LastSyncedAt = timePtr(lastSynced)
	u.Gamification.LastActivityAt = timePtr(lastActivity)
	u.Gamification.Achievements = []string{}
	return &u, nil
}
