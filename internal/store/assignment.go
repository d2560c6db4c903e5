package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Status is the lifecycle state of an assignment.
type Status string

const (
	StatusActive   Status = "active"
	StatusArchived Status = "archived"
)

// Assignment is a homework item that mistake records attach to.
type Assignment struct {
	ID        string
	Title     string
	Status    Status
	DueDate   *time.Time
	CreatedAt time.Time
}

// CreateAssignment inserts a new active assignment without a due date.
func (s *Store) CreateAssignment(ctx context.Context, title string) (*Assignment, error) {
	return s.CreateAssignmentDue(ctx, title, nil)
}

// CreateAssignmentDue inserts a new active assignment with an optional due date.
func (s *Store) CreateAssignmentDue(ctx context.Context, title string, due *time.Time) (*Assignment, error) {
	a := &Assignment{
		ID:        newID(),
		Title:     title,
		Status:    StatusActive,
		DueDate:   due,
		CreatedAt: time.Now().UTC(),
	}

	var dueStr sql.NullString
	if due != nil {
		dueStr = sql.NullString{String: encodeTime(*due), Valid: true}
	}

	_, err := s.db.ExecContext(ctx,
		`INSERT INTO assignments (id, title, status, due_date, created_at) VALUES (?, ?, ?, ?, ?)`,
		a.ID, a.Title, string(a.Status), dueStr, encodeTime(a.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert assignment: %w", err)
	}
	return a, nil
}

// GetAssignment fetches one assignment by id.
func (s *Store) GetAssignment(ctx context.Context, id string) (*Assignment, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, title, status, due_date, created_at FROM assignments WHERE id = ?`, id)
	return scanAssignment(row)
}

// ListAssignments returns assignments ordered by due date (undated last),
// then creation order. A nil status returns all.
func (s *Store) ListAssignments(ctx context.Context, status *Status) ([]Assignment, error) {
	query := `SELECT id, title, status, due_date, created_at FROM assignments`
	var args []any
	if status != nil {
		query += ` WHERE status = ?`
		args = append(args, string(*status))
	}
	query += ` ORDER BY due_date IS NULL, due_date, id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list assignments: %w", err)
	}
	defer rows.Close()

	var out []Assignment
	for rows.Next() {
		a, err := scanAssignment(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	return out, rows.Err()
}

// ArchiveAssignment marks an assignment archived. Its mistake records are kept.
func (s *Store) ArchiveAssignment(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignments SET status = ? WHERE id = ?`, string(StatusArchived), id)
	if err != nil {
		return fmt.Errorf("archive assignment: %w", err)
	}
	return requireAffected(res)
}

// DeleteAssignment removes an assignment and cascades to its mistake
// records in a single transaction: a concurrent reader sees either all of
// the assignment's records or none of them.
func (s *Store) DeleteAssignment(ctx context.Context, id string) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin delete: %w", err)
	}
	defer tx.Rollback()

	res, err := tx.ExecContext(ctx, `DELETE FROM assignments WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete assignment: %w", err)
	}
	if err := requireAffected(res); err != nil {
		return err
	}

	return tx.Commit()
}

// RefreshAssignments archives active assignments whose due date has passed
// and returns how many were archived.
func (s *Store) RefreshAssignments(ctx context.Context, now time.Time) (int, error) {
	res, err := s.db.ExecContext(ctx,
		`UPDATE assignments SET status = ?
		 WHERE status = ? AND due_date IS NOT NULL AND due_date < ?`,
		string(StatusArchived), string(StatusActive), encodeTime(now),
	)
	if err != nil {
		return 0, fmt.Errorf("refresh assignments: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return 0, err
	}
	return int(n), nil
}

type rowScanner interface {
	Scan(dest ...any) error
}

func scanAssignment(row rowScanner) (*Assignment, error) {
	var a Assignment
	var status, createdAt string
	var due sql.NullString
	err := row.Scan(&a.ID, &a.Title, &status, &due, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	a.Status = Status(status)
	if a.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, fmt.Errorf("scan assignment: %w", err)
	}
	if due.Valid {
		t, err := decodeTime(due.String)
		if err != nil {
			return nil, fmt.Errorf("scan assignment: %w", err)
		}
		a.DueDate = &t
	}
	return &a, nil
}

func requireAffected(res sql.Result) error {
	n, err := res.RowsAffected()
	if err != nil {
		return err
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}
