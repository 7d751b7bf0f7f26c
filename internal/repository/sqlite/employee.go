package sqlite

import (
	"context"
	"fmt"
	"strings"

	"github.com/rs/xid"

	"github.com/kjarisk/athena/internal/apperror"
	"github.com/kjarisk/athena/internal/model"
	"github.com/kjarisk/athena/internal/repository"
)

var _ repository.EmployeeRepository = (*DB)(nil)

func (db *DB) CreateEmployee(ctx context.Context, e *model.Employee) error {
	e.ID = xid.New().String()
	e.CreatedAt = utc(db.now())
	e.Email = strings.TrimSpace(e.Email)

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO employees (id, user_id, name, email, role, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		e.ID, e.UserID, e.Name, e.Email, e.Role, e.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating employee: %w", err)
	}
	return nil
}

func (db *DB) GetEmployee(ctx context.Context, userID, id string) (*model.Employee, error) {
	var e model.Employee
	err := db.conn.QueryRowContext(ctx,
		`SELECT id, user_id, name, email, role, created_at
		 FROM employees WHERE user_id = ? AND id = ?`, userID, id,
	).Scan(&e.ID, &e.UserID, &e.Name, &e.Email, &e.Role, &e.CreatedAt)
	if err != nil {
		if isNoRows(err) {
			return nil, apperror.NotFound("employee", id)
		}
		return nil, fmt.Errorf("sqlite: getting employee %s: %w", id, err)
	}
	return &e, nil
}

func (db *DB) ListEmployees(ctx context.Context, userID string) ([]model.Employee, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, name, email, role, created_at
		 FROM employees WHERE user_id = ?
		 ORDER BY created_at, rowid`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing employees: %w", err)
	}
	defer rows.Close()

	employees := []model.Employee{}
	for rows.Next() {
		var e model.Employee
		if err := rows.Scan(&e.ID, &e.UserID, &e.Name, &e.Email, &e.Role, &e.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning employee: %w", err)
		}
		employees = append(employees, e)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating employees: %w", err)
	}
	return employees, nil
}

func (db *DB) DeleteEmployee(ctx context.Context, userID, id string) error {
	res, err := db.conn.ExecContext(ctx,
		`DELETE FROM employees WHERE user_id = ? AND id = ?`, userID, id)
	if err != nil {
		return fmt.Errorf("sqlite: deleting employee %s: %w", id, err)
	}
	return checkAffected(res, apperror.NotFound("employee", id))
}

func (db *DB) CreateOneOnOne(ctx context.Context, o *model.OneOnOne) error {
	o.ID = xid.New().String()
	o.CreatedAt = utc(db.now())

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO one_on_ones (id, user_id, employee_id, held_at, notes, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		o.ID, o.UserID, o.EmployeeID, utc(o.HeldAt), o.Notes, o.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating one-on-one: %w", err)
	}
	return nil
}

func (db *DB) ListOneOnOnes(ctx context.Context, userID, employeeID string) ([]model.OneOnOne, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, employee_id, held_at, notes, created_at
		 FROM one_on_ones WHERE user_id = ? AND employee_id = ?
		 ORDER BY held_at DESC`, userID, employeeID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing one-on-ones: %w", err)
	}
	defer rows.Close()

	list := []model.OneOnOne{}
	for rows.Next() {
		var o model.OneOnOne
		if err := rows.Scan(&o.ID, &o.UserID, &o.EmployeeID, &o.HeldAt, &o.Notes, &o.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning one-on-one: %w", err)
		}
		list = append(list, o)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating one-on-ones: %w", err)
	}
	return list, nil
}

func (db *DB) CreateWorkshop(ctx context.Context, w *model.Workshop) error {
	w.ID = xid.New().String()
	w.CreatedAt = utc(db.now())

	_, err := db.conn.ExecContext(ctx,
		`INSERT INTO workshops (id, user_id, title, held_at, participants, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		w.ID, w.UserID, w.Title, utc(w.HeldAt), w.Participants, w.CreatedAt,
	)
	if err != nil {
		return fmt.Errorf("sqlite: creating workshop: %w", err)
	}
	return nil
}

func (db *DB) ListWorkshops(ctx context.Context, userID string) ([]model.Workshop, error) {
	rows, err := db.conn.QueryContext(ctx,
		`SELECT id, user_id, title, held_at, participants, created_at
		 FROM workshops WHERE user_id = ?
		 ORDER BY held_at DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("sqlite: listing workshops: %w", err)
	}
	defer rows.Close()

	list := []model.Workshop{}
	for rows.Next() {
		var w model.Workshop
		if err := rows.Scan(&w.ID, &w.UserID, &w.Title, &w.HeldAt, &w.Participants, &w.CreatedAt); err != nil {
			return nil, fmt.Errorf("sqlite: scanning workshop: %w", err)
		}
		list = append(list, w)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("sqlite: iterating workshops: %w", err)
	}
	return list, nil
}
