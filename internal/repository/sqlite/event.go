package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/rs/xid"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

var _ repository.EventRepository = (*DB)(nil)

const eventColumns = `id, user_id, external_id, title, description, raw_notes,
	start_time, end_time, work_area_id, source, extraction, needs_action,
	created_at, updated_at`

func (db *DB) FindBySourceExternalID(ctx context.Context, userID string, source model.CalendarSource, externalID string) (*model.Event, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events
		 WHERE user_id = ? AND source = ? AND external_id = ?`,
		userID, string(source), externalID,
	)
	e, err := scanEvent(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("event", externalID)
		}
		return nil, fmt.Errorf("sqlite: finding event %s/%s: %w", source, externalID, err)
	}
	return e, nil
}

// UpsertSynced writes a synced event keyed on (user, source, external id).
//
// An existing row only has the columns sync owns rewritten: title,
// description, times, work area and source. raw_notes, needs_action and
// extraction keep whatever the user stored. Lookup and write share a
// transaction.
func (db *DB) UpsertSynced(ctx context.Context, event *model.Event) (bool, error) {
	if event.ExternalID == nil || *event.ExternalID == "" {
		return false, apperror.ValidationFailed("externalId", "synced events need an external id")
	}

	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return false, fmt.Errorf("sqlite: beginning event upsert: %w", err)
	}
	defer tx.Rollback()

	var existingID string
	err = tx.QueryRowContext(ctx,
		`SELECT id FROM events WHERE user_id = ? AND source = ? AND external_id = ?`,
		event.UserID, string(event.Source), *event.ExternalID,
	).Scan(&existingID)
	if err != nil && !isNoRows(err) {
		return false, fmt.Errorf("sqlite: looking up event %s: %w", *event.ExternalID, err)
	}

	now := utc(db.now())
	event.UpdatedAt = now

	if existingID != "" {
		event.ID = existingID
		_, err = tx.ExecContext(ctx,
			`UPDATE events
			 SET title = ?, description = ?, start_time = ?, end_time = ?,
			     work_area_id = ?, source = ?, updated_at = ?
			 WHERE id = ?`,
			event.Title, event.Description, utc(event.StartTime), utc(event.EndTime),
			nullString(event.WorkAreaID), string(event.Source), now, existingID,
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: updating synced event %s: %w", *event.ExternalID, err)
		}
	} else {
		event.ID = xid.New().String()
		event.CreatedAt = now
		_, err = tx.ExecContext(ctx,
			`INSERT INTO events (id, user_id, external_id, title, description, raw_notes,
			                     start_time, end_time, work_area_id, source, extraction,
			                     needs_action, created_at, updated_at)
			 VALUES (?, ?, ?, ?, ?, '', ?, ?, ?, ?, NULL, ?, ?, ?)`,
			event.ID, event.UserID, *event.ExternalID, event.Title, event.Description,
			utc(event.StartTime), utc(event.EndTime), nullString(event.WorkAreaID),
			string(event.Source), event.NeedsAction, now, now,
		)
		if err != nil {
			return false, fmt.Errorf("sqlite: inserting synced event %s: %w", *event.ExternalID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return false, fmt.Errorf("sqlite: committing event upsert: %w", err)
	}
	return existingID == "", nil
}

// CreateEvent inserts a manually entered event.
func (db *DB) CreateEvent(ctx context.Context, event *model.Event) error {
	now := utc(db.now())
	event.ID = xid.New().String()
	event.CreatedAt = now
	event.UpdatedAt = now

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO events (`+eventColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		event.ID, event.UserID, nullString(event.ExternalID), event.Title, event.Description,
		event.RawNotes, utc(event.StartTime), utc(event.EndTime), nullString(event.WorkAreaID),
		string(event.Source), nullJSON(event.Extraction), event.NeedsAction, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("event", "external id")
		}
		return fmt.Errorf("sqlite: creating event: %w", err)
	}
	return nil
}

func (db *DB) GetEvent(ctx context.Context, userID, id string) (*model.Event, error) {
	row := db.conn.QueryRowContext(ctx,
		`SELECT `+eventColumns+` FROM events WHERE user_id = ? AND id = ?`, userID, id)
	e, err := scanEvent(row)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("event", id)
		}
		return nil, fmt.Errorf("sqlite: getting event %s: %w", id, err)
	}
	return e, nil
}

// ListEvents returns the user's events ordered by start time, optionally
// bounded to [r.From, r.To).
func (db *DB) ListEvents(ctx context.Context, userID string, r repository.EventRange) ([]model.Event, error) {
	query := `SELECT ` + eventColumns + ` FROM events WHERE user_id = ?`
	args := []any{userID}
	if !r.From.IsZero() {
		query += ` AND start_time >= ?`
		args = append(args, utc(r.From))
	}
	if !r.To.IsZero() {
		query += ` AND start_time < ?`
		args = append(args, utc(r.To))
	}
	query += ` ORDER BY start_time, id`

	rows, err := db.conn.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing events: %w", err)
	}
	defer rows.Close()

	events := []model.Event{}
	for rows.Next() {
		e, err := scanEvent(rows)
		if err != nil {
			return nil, fmt.Errorf("sqlite: scanning event row: %w", err)
		}
		events = append(events, *e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating events: %w", err)
	}
	return events, nil
}

// UpdateEvent writes every user-editable column of an existing event.
func (db *DB) UpdateEvent(ctx context.Context, event *model.Event) error {
	event.UpdatedAt = utc(db.now())
	res, err := db.conn.ExecContext(ctx,
		`UPDATE events
		 SET title = ?, description = ?, raw_notes = ?, start_time = ?, end_time = ?,
		     work_area_id = ?, extraction = ?, needs_action = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		event.Title, event.Description, event.RawNotes, utc(event.StartTime), utc(event.EndTime),
		nullString(event.WorkAreaID), nullJSON(event.Extraction), event.NeedsAction, event.UpdatedAt,
		event.UserID, event.ID,
	)
	if err != nil {
		return fmt.Errorf("sqlite: updating event %s: %w", event.ID, err)
	}
	return checkAffected(res, apperror.NotFound("event", event.ID))
}

func (db *DB) DeleteEvent(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM events WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting event %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("event", id))
}

func scanEvent(row rowScanner) (*model.Event, error) {
	var (
		e          model.Event
		externalID sql.NullString
		workAreaID sql.NullString
		source     string
		extraction sql.NullString
	)
	err := row.Scan(
		&e.ID, &e.UserID, &externalID, &e.Title, &e.Description, &e.RawNotes,
		&e.StartTime, &e.EndTime, &workAreaID, &source, &extraction, &e.NeedsAction,
		&e.CreatedAt, &e.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}
	e.ExternalID = stringPtr(externalID)
	e.WorkAreaID = stringPtr(workAreaID)
	e.Source = model.CalendarSource(source)
	if extraction.Valid && extraction.String != "" {
		e.Extraction = json.RawMessage(extraction.String)
	}
	return &e, nil
}

func nullJSON(raw json.RawMessage) any {
	if len(raw) == 0 {
		return nil
	}
	return string(raw)
}
