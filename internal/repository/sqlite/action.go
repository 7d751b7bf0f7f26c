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

var _ repository.ActionRepository = (*DB)(nil)

const actionColumns = `id, user_id, title, description, priority, status, event_id,
	work_area_id, due_at, completed_at, created_at, updated_at`

// CreateAction inserts an open action. When the action references an event,
// that event's needs_action flag is cleared in the same transaction.
func (db *DB) CreateAction(ctx context.Context, a *model.Action) error {
	now := utc(db.now())
	a.ID = xid.New().String()
	a.Status = model.ActionOpen
	a.CreatedAt = now
	a.UpdatedAt = now

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning action insert: %w", err)
	}
	defer tx.Rollback()

	if a.EventID != nil {
		res, err := tx.ExecContext(ctx,
			`UPDATE events SET needs_action = 0, updated_at = ? WHERE user_id = ? AND id = ?`,
			now, a.UserID, *a.EventID)
		if err != nil {
			return fmt.Errorf("sqlite: clearing needs_action on %s: %w", *a.EventID, err)
		}
		if err := checkAffected(res, apperror.NotFound("event", *a.EventID)); err != nil {
			return err
		}
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO actions (`+actionColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, NULL, ?, ?)`,
		a.ID, a.UserID, a.Title, a.Description, string(a.Priority), string(a.Status),
		nullString(a.EventID), nullString(a.WorkAreaID), nullTime(a.DueAt), now, now,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating action: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing action insert: %w", err)
	}
	return nil
}

func (db *DB) GetAction(ctx context.Context, userID, id string) (*model.Action, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+actionColumns+` FROM actions WHERE user_id = ? AND id = ?`, userID, id)
	a, err := scanAction(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("action", id)
		}
		return nil, fmt.Errorf("sqlite: getting action %s: %w", id, err)
	}
	return a, nil
}

// ListActions lists the user's actions, newest first. An empty status lists
// every action.
func (db *DB) ListActions(ctx context.Context, userID string, status model.ActionStatus, opts repository.ListOptions) ([]model.Action, error) {
	limit := opts.Limit
	if limit <= 0 {
		limit = 50
	}
	if limit > 200 {
		limit = 200
	}
	offset := opts.Offset
	if offset < 0 {
		offset = 0
	}

	query := `SELECT ` + actionColumns + ` FROM actions WHERE user_id = ?`
	args := []any{userID}
	if status != "" {
		query += ` AND status = ?`
		args = append(args, string(status))
	}
	query += ` ORDER BY created_at DESC, rowid DESC LIMIT ? OFFSET ?`
	args = append(args, limit, offset)

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing actions: %w", err)
	}
	defer rows.Close()

	actions := make([]model.Action, 0, limit)
	for rows.Next() {
		a, err := scanAction(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning action: %w", err)
		}
		actions = append(actions, *a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating actions: %w", err)
	}
	return actions, nil
}

// CompleteAction flips an open action to done. The status guard in the
// WHERE clause makes a second completion a no-op that reports a conflict,
// so XP is never awarded twice for the same action.
func (db *DB) CompleteAction(ctx context.Context, userID, id string, at time.Time) (*model.Action, error) {
	res, err := db.conn.ExecContext(ctx,
		`UPDATE actions SET status = ?, completed_at = ?, updated_at = ?
		 WHERE user_id = ? AND id = ? AND status = ?`,
		string(model.ActionDone), utc(at), utc(at), userID, id, string(model.ActionOpen),
	)
	if err != nil {
		return nil, fmt.Errorf("sqlite: completing action %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return nil, fmt.Errorf("sqlite: checking rows affected: %w", err)
	}
	if n == 0 {
		// Distinguish "missing" from "already done".
		if _, err := db.GetAction(ctx, userID, id); err != nil {
			return nil, err
		}
		return nil, apperror.Conflict("action", "already completed "+id)
	}
	return db.GetAction(ctx, userID, id)
}

func scanAction(row rowScanner) (*model.Action, error) {
	var (
		a           model.Action
		priority    string
		status      string
		eventID     sql.NullString
		workAreaID  sql.NullString
		dueAt       sql.NullTime
		completedAt sql.NullTime
	)
	err := row.Scan(&a.ID, &a.UserID, &a.Title, &a.Description, &priority, &status,
		&eventID, &workAreaID, &dueAt, &completedAt, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		return nil, err
	}
	a.Priority = model.ActionPriority(priority)
	a.Status = model.ActionStatus(status)
	a.EventID = stringPtr(eventID)
	a.WorkAreaID = stringPtr(workAreaID)
	a.DueAt = timePtr(dueAt)
	a.CompletedAt = timePtr(completedAt)
	return &a, nil
}
