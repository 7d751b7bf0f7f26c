// Package sqlite implements the repository interfaces using SQLite as the storage backend.
//
// modernc.org/sqlite is a pure Go translation of SQLite, so the binary builds
// without CGo. Every timestamp is written in UTC so that range comparisons on
// the stored text representation order correctly.
package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/kjarisk/athena/internal/model"

	// Registers the "sqlite" driver with database/sql.
	_ "modernc.org/sqlite"
)

// DB wraps a sql.DB connection pool and implements every repository
// interface in internal/repository.
type DB struct {
	conn *sql.DB
	now  func() time.Time
}

// New opens the database at dbPath and runs migrations.
//
// dbPath examples:
//   - "data/athena.db"  → file-based database (persistent)
//   - ":memory:"        → in-memory database (tests)
//
// The pool is limited to one connection. SQLite allows a single writer
// anyway, and an in-memory database only exists on the connection that
// created it.
func New(dbPath string) (*DB, error) {
	conn, err := sql.Open("sqlite", dbPath)
	if err != nil {
		return nil, fmt.Errorf("sqlite: opening database: %w", err)
	}
	conn.SetMaxOpenConns(1)

	if err := conn.Ping(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: pinging database: %w", err)
	}

	// WAL lets readers proceed while the sync runner writes.
	if _, err := conn.Exec("PRAGMA journal_mode=WAL"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: setting WAL mode: %w", err)
	}

	// Foreign keys are OFF by default in SQLite.
	if _, err := conn.Exec("PRAGMA foreign_keys=ON"); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: enabling foreign keys: %w", err)
	}

	db := &DB{conn: conn, now: time.Now}

	if err := db.migrate(); err != nil {
		conn.Close()
		return nil, fmt.Errorf("sqlite: running migrations: %w", err)
	}

	return db, nil
}

// Close closes the database connection pool.
func (db *DB) Close() error {
	return db.conn.Close()
}

// Ping reports whether the database is reachable.
func (db *DB) Ping(ctx context.Context) error {
	return db.conn.PingContext(ctx)
}

// migrate creates the schema. CREATE ... IF NOT EXISTS keeps it idempotent.
func (db *DB) migrate() error {
	statements := []struct {
		name string
		sql  string
	}{
		{"users", `
			CREATE TABLE IF NOT EXISTS users (
				id               TEXT PRIMARY KEY,
				email            TEXT NOT NULL UNIQUE,
				name             TEXT NOT NULL DEFAULT '',
				password_hash    TEXT NOT NULL DEFAULT '',
				last_synced_at   DATETIME,
				level            INTEGER NOT NULL DEFAULT 1,
				total_xp         INTEGER NOT NULL DEFAULT 0,
				current_xp       INTEGER NOT NULL DEFAULT 0,
				streak           INTEGER NOT NULL DEFAULT 0,
				longest_streak   INTEGER NOT NULL DEFAULT 0,
				last_activity_at DATETIME,
				created_at       DATETIME NOT NULL,
				updated_at       DATETIME NOT NULL
			);`},
		{"work_areas", `
			CREATE TABLE IF NOT EXISTS work_areas (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name        TEXT NOT NULL,
				color       TEXT NOT NULL DEFAULT '',
				icon        TEXT NOT NULL DEFAULT '',
				hidden      INTEGER NOT NULL DEFAULT 0,
				sort_order  INTEGER NOT NULL DEFAULT 0,
				description TEXT NOT NULL DEFAULT '',
				created_at  DATETIME NOT NULL,
				updated_at  DATETIME NOT NULL,
				UNIQUE (user_id, name)
			);`},
		{"employees", `
			CREATE TABLE IF NOT EXISTS employees (
				id         TEXT PRIMARY KEY,
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				name       TEXT NOT NULL,
				email      TEXT NOT NULL DEFAULT '',
				role       TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_employees_user_id ON employees(user_id);`},
		{"work_area_employees", `
			CREATE TABLE IF NOT EXISTS work_area_employees (
				work_area_id TEXT NOT NULL REFERENCES work_areas(id) ON DELETE CASCADE,
				employee_id  TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
				PRIMARY KEY (work_area_id, employee_id)
			);`},
		{"events", `
			CREATE TABLE IF NOT EXISTS events (
				id           TEXT PRIMARY KEY,
				user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				external_id  TEXT,
				title        TEXT NOT NULL,
				description  TEXT NOT NULL DEFAULT '',
				raw_notes    TEXT NOT NULL DEFAULT '',
				start_time   DATETIME NOT NULL,
				end_time     DATETIME NOT NULL,
				work_area_id TEXT REFERENCES work_areas(id) ON DELETE SET NULL,
				source       TEXT NOT NULL,
				extraction   TEXT,
				needs_action INTEGER NOT NULL DEFAULT 0,
				created_at   DATETIME NOT NULL,
				updated_at   DATETIME NOT NULL,
				UNIQUE (user_id, source, external_id)
			);
			CREATE INDEX IF NOT EXISTS idx_events_user_start ON events(user_id, start_time);`},
		{"one_on_ones", `
			CREATE TABLE IF NOT EXISTS one_on_ones (
				id          TEXT PRIMARY KEY,
				user_id     TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				employee_id TEXT NOT NULL REFERENCES employees(id) ON DELETE CASCADE,
				held_at     DATETIME NOT NULL,
				notes       TEXT NOT NULL DEFAULT '',
				created_at  DATETIME NOT NULL
			);`},
		{"workshops", `
			CREATE TABLE IF NOT EXISTS workshops (
				id           TEXT PRIMARY KEY,
				user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title        TEXT NOT NULL,
				held_at      DATETIME NOT NULL,
				participants INTEGER NOT NULL DEFAULT 0,
				created_at   DATETIME NOT NULL
			);`},
		{"actions", `
			CREATE TABLE IF NOT EXISTS actions (
				id           TEXT PRIMARY KEY,
				user_id      TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				title        TEXT NOT NULL,
				description  TEXT NOT NULL DEFAULT '',
				priority     TEXT NOT NULL DEFAULT 'medium',
				status       TEXT NOT NULL DEFAULT 'open',
				event_id     TEXT REFERENCES events(id) ON DELETE SET NULL,
				work_area_id TEXT REFERENCES work_areas(id) ON DELETE SET NULL,
				due_at       DATETIME,
				completed_at DATETIME,
				created_at   DATETIME NOT NULL,
				updated_at   DATETIME NOT NULL
			);
			CREATE INDEX IF NOT EXISTS idx_actions_user_status ON actions(user_id, status);`},
		{"calendar_connections", `
			CREATE TABLE IF NOT EXISTS calendar_connections (
				id             TEXT PRIMARY KEY,
				user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				source         TEXT NOT NULL,
				access_token   TEXT NOT NULL DEFAULT '',
				refresh_token  TEXT NOT NULL DEFAULT '',
				token_expiry   DATETIME,
				calendar_name  TEXT NOT NULL DEFAULT '',
				last_synced_at DATETIME,
				last_error     TEXT NOT NULL DEFAULT '',
				created_at     DATETIME NOT NULL,
				UNIQUE (user_id, source)
			);`},
		{"achievements", `
			CREATE TABLE IF NOT EXISTS achievements (
				id          TEXT PRIMARY KEY,
				name        TEXT NOT NULL UNIQUE,
				description TEXT NOT NULL DEFAULT '',
				icon        TEXT NOT NULL DEFAULT '',
				xp_reward   INTEGER NOT NULL DEFAULT 0,
				kind        TEXT NOT NULL,
				target      INTEGER NOT NULL,
				metric      TEXT NOT NULL
			);`},
		{"user_achievements", `
			CREATE TABLE IF NOT EXISTS user_achievements (
				user_id        TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				achievement_id TEXT NOT NULL REFERENCES achievements(id),
				unlocked_at    DATETIME NOT NULL,
				PRIMARY KEY (user_id, achievement_id)
			);`},
		{"xp_log", `
			CREATE TABLE IF NOT EXISTS xp_log (
				id         INTEGER PRIMARY KEY AUTOINCREMENT,
				user_id    TEXT NOT NULL REFERENCES users(id) ON DELETE CASCADE,
				amount     INTEGER NOT NULL,
				reason     TEXT NOT NULL DEFAULT '',
				created_at DATETIME NOT NULL
			);`},
	}

	for _, st := range statements {
		if _, err := db.conn.Exec(st.sql); err != nil {
			return fmt.Errorf("creating %s: %w", st.name, err)
		}
	}
	return nil
}

// SeedAchievements writes the static achievement catalog, keyed on name.
// Running it on every start keeps rewards and thresholds in sync with the
// code without touching unlock rows.
func (db *DB) SeedAchievements(ctx context.Context, catalog []model.Achievement) error {
	for _, a := range catalog {
		_, err := db.conn.ExecContext(ctx,
			`INSERT INTO achievements (id, name, description, icon, xp_reward, kind, target, metric)
			 VALUES (?, ?, ?, ?, ?, ?, ?, ?)
			 ON CONFLICT(name) DO UPDATE SET
			   description = excluded.description,
			   icon        = excluded.icon,
			   xp_reward   = excluded.xp_reward,
			   kind        = excluded.kind,
			   target      = excluded.target,
			   metric      = excluded.metric`,
			a.ID, a.Name, a.Description, a.Icon, a.XPReward,
			string(a.Condition.Kind), a.Condition.Target, string(a.Condition.Metric),
		)
		if err != nil {
			return fmt.Errorf("sqlite: seeding achievement %q: %w", a.Name, err)
		}
	}
	return nil
}

// isUniqueViolation reports whether err comes from a UNIQUE or PRIMARY KEY
// constraint. The driver surfaces these as "constraint failed: UNIQUE ...".
func isUniqueViolation(err error) bool {
	if err == nil {
		return false
	}
	msg := err.Error()
	return strings.Contains(msg, "UNIQUE constraint failed") ||
		strings.Contains(msg, "PRIMARY KEY constraint failed")
}

func utc(t time.Time) time.Time {
	return t.UTC()
}

func nullTime(t *time.Time) any {
	if t == nil {
		return nil
	}
	return t.UTC()
}

func timePtr(nt sql.NullTime) *time.Time {
	if !nt.Valid {
		return nil
	}
	t := nt.Time
	return &t
}

func nullString(s *string) any {
	if s == nil || *s == "" {
		return nil
	}
	return *s
}

func stringPtr(ns sql.NullString) *string {
	if !ns.Valid {
		return nil
	}
	s := ns.String
	return &s
}

// checkAffected turns a zero-row UPDATE/DELETE into a NotFound.
func checkAffected(res sql.Result, notFound error) error {
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		return notFound
	}
	return nil
}

func isNoRows(err error) bool {
	return errors.Is(err, sql.ErrNoRows)
}
