package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/xid"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

var _ repository.ConnectionRepository = (*DB)(nil)

// SaveConnection stores the connection for (user, source). Reconnecting a
// source replaces its tokens and calendar name but keeps the row id.
func (db *DB) SaveConnection(ctx context.Context, c *model.CalendarConnection) error {
	now := utc(db.now())
	if c.ID == "" {
		c.ID = xid.New().String()
	}
	c.CreatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO calendar_connections (id, user_id, source, access_token, refresh_token,
		                                   token_expiry, calendar_name, last_error, created_at)
		 VALUES (?, ?, ?, ?, ?, ?, ?, '', ?)
		 ON CONFLICT(user_id, source) DO UPDATE SET
		   access_token  = excluded.access_token,
		   refresh_token = CASE WHEN excluded.refresh_token = '' THEN calendar_connections.refresh_token
		                        ELSE excluded.refresh_token END,
		   token_expiry  = excluded.token_expiry,
		   calendar_name = excluded.calendar_name,
		   last_error    = ''`,
		c.ID, c.UserID, string(c.Source), c.AccessToken, c.RefreshToken,
		nullTime(c.TokenExpiry), c.CalendarName, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: saving %s connection: %w", c.Source, err)
	}

	return db.conn.QueryRowContext(ctx,
		`SELECT id, created_at FROM calendar_connections WHERE user_id = ? AND source = ?`,
		c.UserID, string(c.Source),
	).Scan(&c.ID, &c.CreatedAt)
}

func (db *DB) ListConnections(ctx context.Context, userID string) ([]model.CalendarConnection, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, source, access_token, refresh_token, token_expiry,
		        calendar_name, last_synced_at, last_error, created_at
		 FROM calendar_connections WHERE user_id = ?
		 ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing connections: %w", err)
	}
	defer rows.Close()

	conns := []model.CalendarConnection{}
	for rows.Next() {
		var (
			c          model.CalendarConnection
			source     string
			expiry     sql.NullTime
			lastSynced sql.NullTime
		)
		if err := rows.Scan(&c.ID, &c.UserID, &source, &c.AccessToken, &c.RefreshToken, &expiry,
			&c.CalendarName, &lastSynced, &c.LastError, &c.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning connection: %w", err)
		}
		c.Source = model.CalendarSource(source)
		c.TokenExpiry = timePtr(expiry)
		c.LastSyncedAt = timePtr(lastSynced)
		conns = append(conns, c)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating connections: %w", err)
	}
	return conns, nil
}

func (db *DB) DeleteConnection(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM calendar_connections WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting connection %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("calendar connection", id))
}

// UpdateToken persists a refreshed access token and its expiry.
func (db *DB) UpdateToken(ctx context.Context, id, accessToken string, expiry time.Time) error {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE calendar_connections SET access_token = ?, token_expiry = ? WHERE id = ?`,
		accessToken, utc(expiry), id)
	if err != nil {
		return fmt.Errorf("sqlite: updating token for %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("calendar connection", id))
}

// RecordSyncResult stores the outcome of one source attempt. A failure keeps
// the previous last_synced_at so staleness stays visible.
func (db *DB) RecordSyncResult(ctx context.Context, id string, at time.Time, syncErr error) error {
	var (
		res sql.Result
		err error
	)
	if syncErr != nil {
		res, err = db.conn.ExecContext(ctx,
			`UPDATE calendar_connections SET last_error = ? WHERE id = ?`,
			syncErr.Error(), id)
	} else {
		res, err = db.conn.ExecContext(ctx,
			`UPDATE calendar_connections SET last_synced_at = ?, last_error = '' WHERE id = ?`,
			utc(at), id)
	}
	if err != nil {
		return fmt.Errorf("sqlite: recording sync result for %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("calendar connection", id))
}
