package store

import (
	"context"
	"database/sql"
	"fmt"
	"time"
)

// Mistake is one logged incorrect answer tied to an assignment.
// Immutable once created except for topic tag correction.
type Mistake struct {
	ID           string
	AssignmentID string
	Description  string
	// ImageRef is an opaque handle (path/URI) to an illustration.
	// The store never decodes it; rendering belongs to the caller.
	ImageRef  string
	TopicTag  string
	CreatedAt time.Time
}

// AddMistakeParams carries the fields for a new mistake record.
type AddMistakeParams struct {
	AssignmentID string
	Description  string
	ImageRef     string
	TopicTag     string
}

// MistakeFilter narrows ListMistakes. Zero values mean no filtering.
type MistakeFilter struct {
	AssignmentID string
	TopicTag     string
}

// AddMistake inserts a mistake record. The assignment is checked inside the
// same transaction as the insert, so a concurrent cascade delete cannot
// slip a record under a dying assignment.
func (s *Store) AddMistake(ctx context.Context, p AddMistakeParams) (*Mistake, error) {
	m := &Mistake{
		ID:           newID(),
		AssignmentID: p.AssignmentID,
		Description:  p.Description,
		ImageRef:     p.ImageRef,
		TopicTag:     p.TopicTag,
		CreatedAt:    time.Now().UTC(),
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return nil, fmt.Errorf("begin add mistake: %w", err)
	}
	defer tx.Rollback()

	var one int
	err = tx.QueryRowContext(ctx,
		`SELECT 1 FROM assignments WHERE id = ?`, p.AssignmentID).Scan(&one)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("check assignment: %w", err)
	}

	_, err = tx.ExecContext(ctx,
		`INSERT INTO mistakes (id, assignment_id, description, image_ref, topic_tag, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		m.ID, m.AssignmentID, m.Description, m.ImageRef, m.TopicTag, encodeTime(m.CreatedAt),
	)
	if err != nil {
		return nil, fmt.Errorf("insert mistake: %w", err)
	}

	if err := tx.Commit(); err != nil {
		return nil, fmt.Errorf("commit add mistake: %w", err)
	}
	return m, nil
}

// GetMistake fetches one mistake record by id.
func (s *Store) GetMistake(ctx context.Context, id string) (*Mistake, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, assignment_id, description, image_ref, topic_tag, created_at
		 FROM mistakes WHERE id = ?`, id)
	return scanMistake(row)
}

// DeleteMistake removes one mistake record.
func (s *Store) DeleteMistake(ctx context.Context, id string) error {
	res, err := s.db.ExecContext(ctx, `DELETE FROM mistakes WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete mistake: %w", err)
	}
	return requireAffected(res)
}

// RetagMistake corrects the topic tag — the only permitted mutation.
func (s *Store) RetagMistake(ctx context.Context, id, topicTag string) error {
	res, err := s.db.ExecContext(ctx,
		`UPDATE mistakes SET topic_tag = ? WHERE id = ?`, topicTag, id)
	if err != nil {
		return fmt.Errorf("retag mistake: %w", err)
	}
	return requireAffected(res)
}

// ListMistakes returns mistake records matching the filter, in insertion order.
func (s *Store) ListMistakes(ctx context.Context, f MistakeFilter) ([]Mistake, error) {
	query := `SELECT id, assignment_id, description, image_ref, topic_tag, created_at FROM mistakes`
	var conds []string
	var args []any
	if f.AssignmentID != "" {
		conds = append(conds, `assignment_id = ?`)
		args = append(args, f.AssignmentID)
	}
	if f.TopicTag != "" {
		conds = append(conds, `topic_tag = ?`)
		args = append(args, f.TopicTag)
	}
	for i, c := range conds {
		if i == 0 {
			query += ` WHERE ` + c
		} else {
			query += ` AND ` + c
		}
	}
	query += ` ORDER BY id`

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("list mistakes: %w", err)
	}
	defer rows.Close()
	return collectMistakes(rows)
}

// Snapshot returns every mistake record read inside a single read
// transaction. Analytics computes from this so the report is consistent
// with one instant of store state, never a half-applied cascade.
func (s *Store) Snapshot(ctx context.Context) ([]Mistake, error) {
	tx, err := s.db.BeginTx(ctx, &sql.TxOptions{ReadOnly: true})
	if err != nil {
		return nil, fmt.Errorf("begin snapshot: %w", err)
	}
	defer tx.Rollback()

	rows, err := tx.QueryContext(ctx,
		`SELECT id, assignment_id, description, image_ref, topic_tag, created_at
		 FROM mistakes ORDER BY id`)
	if err != nil {
		return nil, fmt.Errorf("snapshot mistakes: %w", err)
	}
	defer rows.Close()
	return collectMistakes(rows)
}

func collectMistakes(rows *sql.Rows) ([]Mistake, error) {
	var out []Mistake
	for rows.Next() {
		m, err := scanMistake(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *m)
	}
	return out, rows.Err()
}

func scanMistake(row rowScanner) (*Mistake, error) {
	var m Mistake
	var createdAt string
	err := row.Scan(&m.ID, &m.AssignmentID, &m.Description, &m.ImageRef, &m.TopicTag, &createdAt)
	if err == sql.ErrNoRows {
		return nil, ErrNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("scan mistake: %w", err)
	}
	if m.CreatedAt, err = decodeTime(createdAt); err != nil {
		return nil, fmt.Errorf("scan mistake: %w", err)
	}
	return &m, nil
}
