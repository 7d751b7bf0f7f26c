package sqlite

import (
	"context"
	"fmt"

	"github.com/rs/xid"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

var _ repository.WorkAreaRepository = (*DB)(nil)

const workAreaColumns = `id, user_id, name, color, icon, hidden, sort_order, description, created_at, updated_at`

func (db *DB) CreateWorkArea(ctx context.Context, area *model.WorkArea) error {
	now := utc(db.now())
	area.ID = xid.New().String()
	area.CreatedAt = now
	area.UpdatedAt = now
	if area.EmployeeIDs == nil {
		area.EmployeeIDs = []string{}
	}

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO work_areas (`+workAreaColumns+`)
		 VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)`,
		area.ID, area.UserID, area.Name, area.Color, area.Icon, area.Hidden,
		area.SortOrder, area.Description, now, now,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("work area", "name "+area.Name)
		}
		return fmt.Errorf("sqlite: creating work area: %w", err)
	}
	return nil
}

func (db *DB) GetWorkArea(ctx context.Context, userID, id string) (*model.WorkArea, error) {
	var a model.WorkArea
	err := db.conn.QueryRowContext(ctx,
		`SELECT `+workAreaColumns+` FROM work_areas WHERE user_id = ? AND id = ?`, userID, id,
	).Scan(&a.ID, &a.UserID, &a.Name, &a.Color, &a.Icon, &a.Hidden,
		&a.SortOrder, &a.Description, &a.CreatedAt, &a.UpdatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("work area", id)
		}
		return nil, fmt.Errorf("sqlite: getting work area %s: %w", id, err)
	}

	members, err := db.workAreaMembers(ctx, userID)
	if err != nil {
		return nil, err
	}
	a.EmployeeIDs = members[a.ID]
	if a.EmployeeIDs == nil {
		a.EmployeeIDs = []string{}
	}
	return &a, nil
}

// ListWorkAreas returns the user's work areas in creation order. Inference
// relies on this order being stable.
func (db *DB) ListWorkAreas(ctx context.Context, userID string) ([]model.WorkArea, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT `+workAreaColumns+` FROM work_areas
		 WHERE user_id = ?
		 ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing work areas: %w", err)
	}
	defer rows.Close()

	areas := []model.WorkArea{}
	for rows.Next() {
		var a model.WorkArea
		if err := rows.Scan(&a.ID, &a.UserID, &a.Name, &a.Color, &a.Icon, &a.Hidden,
			&a.SortOrder, &a.Description, &a.CreatedAt, &a.UpdatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning work area: %w", err)
		}
		areas = append(areas, a)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating work areas: %w", err)
	}

	members, err := db.workAreaMembers(ctx, userID)
	if err != nil {
		return nil, err
	}
	for i := range areas {
		areas[i].EmployeeIDs = members[areas[i].ID]
		if areas[i].EmployeeIDs == nil {
			areas[i].EmployeeIDs = []string{}
		}
	}
	return areas, nil
}

func (db *DB) UpdateWorkArea(ctx context.Context, area *model.WorkArea) error {
	area.UpdatedAt = utc(db.now())
	res, err := db.conn.ExecContext(ctx,
		`UPDATE work_areas
		 SET name = ?, color = ?, icon = ?, hidden = ?, sort_order = ?, description = ?, updated_at = ?
		 WHERE user_id = ? AND id = ?`,
		area.Name, area.Color, area.Icon, area.Hidden, area.SortOrder, area.Description,
		area.UpdatedAt, area.UserID, area.ID,
	)
	if err != nil {
		if isUniqueViolation(err) {
			return apperror.Conflict("work area", "name "+area.Name)
		}
		return fmt.Errorf("sqlite: updating work area %s: %w", area.ID, err)
	}
	return checkAffected(res, apperror.NotFound("work area", area.ID))
}

// DeleteWorkArea removes the area. Events and actions pointing at it fall
// back to "untagged" through ON DELETE SET NULL.
func (db *DB) DeleteWorkArea(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM work_areas WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting work area %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("work area", id))
}

// SetWorkAreaEmployees replaces the area's employee links.
func (db *DB) SetWorkAreaEmployees(ctx context.Context, userID, areaID string, employeeIDs []string) error {
	tx, err := db.conn.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("sqlite: beginning employee link update: %w", err)
	}
	defer tx.Rollback()

	var exists int
	if err := tx.QueryRowContext(ctx,
		`SELECT COUNT(*) FROM work_areas WHERE user_id = ? AND id = ?`, userID, areaID,
	).Scan(&exists); err != nil {
		return fmt.Errorf("sqlite: checking work area %s: %w", areaID, err)
	}
	if exists == 0 {
		return apperror.NotFound("work area", areaID)
	}

	if _, err := tx.ExecContext(ctx,
		`DELETE FROM work_area_employees WHERE work_area_id = ?`, areaID); err != nil {
		return fmt.Errorf("sqlite: clearing employee links: %w", err)
	}

	for _, empID := range employeeIDs {
		res, err := tx.ExecContext(ctx,
			`INSERT OR IGNORE INTO work_area_employees (work_area_id, employee_id)
			 SELECT ?, id FROM employees WHERE user_id = ? AND id = ?`,
			areaID, userID, empID,
		)
		if err != nil {
			return fmt.Errorf("sqlite: linking employee %s: %w", empID, err)
		}
		if n, _ := res.RowsAffected(); n == 0 {
			var owned int
			if err := tx.QueryRowContext(ctx,
				`SELECT COUNT(*) FROM employees WHERE user_id = ? AND id = ?`, userID, empID,
			).Scan(&owned); err != nil {
				return fmt.Errorf("sqlite: checking employee %s: %w", empID, err)
			}
			if owned == 0 {
				return apperror.NotFound("employee", empID)
			}
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("sqlite: committing employee links: %w", err)
	}
	return nil
}

// workAreaMembers maps work area ID → linked employee IDs for one user.
func (db *DB) workAreaMembers(ctx context.Context, userID string) (map[string][]string, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT wae.work_area_id, wae.employee_id
		 FROM work_area_employees wae
		 JOIN work_areas wa ON wa.id = wae.work_area_id
		 JOIN employees e ON e.id = wae.employee_id
		 WHERE wa.user_id = ?
		 ORDER BY e.created_at, e.rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing work area members: %w", err)
	}
	defer rows.Close()

	members := make(map[string][]string)
	for rows.Next() {
		var areaID, empID string
		if err := rows.Scan(&areaID, &empID); err != nil {
			return nil, fmt.Errorf("sqlite: scanning work area member: %w", err)
		}
		members[areaID] = append(members[areaID], empID)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating work area members: %w", err)
	}
	return members, nil
}
