package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/lib/pq"

	"clinic-agent/internal/roster"
)

const todoColumns = `
	t.id,
	t.description,
	t.status,
	COALESCE(t.assigned_to::text, ''),
	COALESCE(p.name, NULLIF(trim(u.first_name || ' ' || u.last_name), ''), ''),
	t.due_date,
	COALESCE(t.meeting_id::text, ''),
	t.ai_recommendation_generated,
	t.created_at
`

const todoJoins = `
	FROM todos t
	LEFT JOIN participants p ON p.id = t.assigned_to
	LEFT JOIN users u ON u.id = t.assigned_to
`

func scanTodo(sc interface{ Scan(...any) error }) (Todo, error) {
	var (
		t   Todo
		due sql.NullTime
	)
	err := sc.Scan(
		&t.ID,
		&t.Description,
		&t.Status,
		&t.AssignedTo,
		&t.AssigneeName,
		&due,
		&t.MeetingID,
		&t.AIRecommendationGenerated,
		&t.CreatedAt,
	)
	if err != nil {
		return Todo{}, err
	}
	if due.Valid {
		d := due.Time
		t.DueDate = &d
	}
	return t, nil
}

// ListTodos returns todos in the given statuses, newest first.
func (s *Store) ListTodos(ctx context.Context, statuses []string, limit int) ([]Todo, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT `+todoColumns+todoJoins+`
		WHERE t.status = ANY($1)
		ORDER BY t.created_at DESC
		LIMIT $2
	`, pq.Array(statuses), limit)
	if err != nil {
		return nil, fmt.Errorf("list todos: %w", err)
	}
	defer rows.Close()

	var out []Todo
	for rows.Next() {
		t, err := scanTodo(rows)
		if err != nil {
			return nil, fmt.Errorf("scan todo: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func (s *Store) OpenTodos(ctx context.Context, limit int) ([]Todo, error) {
	return s.ListTodos(ctx, OpenStatuses, limit)
}

func (s *Store) TodoByID(ctx context.Context, id string) (Todo, error) {
	row := s.db.QueryRowContext(ctx, `SELECT `+todoColumns+todoJoins+` WHERE t.id = $1`, id)
	t, err := scanTodo(row)
	if errors.Is(err, sql.ErrNoRows) {
		return Todo{}, ErrNotFound
	}
	if err != nil {
		return Todo{}, fmt.Errorf("get todo %s: %w", id, err)
	}
	return t, nil
}

// CreateTodo inserts a single todo row.
func (s *Store) CreateTodo(ctx context.Context, in NewTodo) (Todo, error) {
	status := in.Status
	if status == "" {
		status = StatusConfirmed
	}
	if !ValidStatus(status) {
		return Todo{}, fmt.Errorf("invalid status %q", status)
	}

	t := Todo{
		ID:          uuid.NewString(),
		Description: in.Description,
		Status:      status,
		AssignedTo:  in.AssignedTo,
		DueDate:     in.DueDate,
		MeetingID:   in.MeetingID,
	}

	var due sql.NullTime
	if in.DueDate != nil {
		due = sql.NullTime{Time: *in.DueDate, Valid: true}
	}

	err := s.db.QueryRowContext(ctx, `
		INSERT INTO todos (id, description, status, assigned_to, due_date, meeting_id)
		VALUES ($1, $2, $3, $4, $5, $6)
		RETURNING created_at
	`, t.ID, t.Description, t.Status, nullIfEmpty(in.AssignedTo), due, nullIfEmpty(in.MeetingID)).Scan(&t.CreatedAt)
	if err != nil {
		return Todo{}, fmt.Errorf("insert todo: %w", err)
	}
	return t, nil
}

// LinkAssignee records the assignment in todo_participants or todo_users.
func (s *Store) LinkAssignee(ctx context.Context, todoID string, p roster.Person) error {
	q := `INSERT INTO todo_participants (todo_id, participant_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	if p.Kind == roster.KindUser {
		q = `INSERT INTO todo_users (todo_id, user_id) VALUES ($1, $2) ON CONFLICT DO NOTHING`
	}
	if _, err := s.db.ExecContext(ctx, q, todoID, p.ID); err != nil {
		return fmt.Errorf("link %s %s to todo %s: %w", p.Kind, p.ID, todoID, err)
	}
	return nil
}

func (s *Store) UpdateTodoStatus(ctx context.Context, id, status string) error {
	if !ValidStatus(status) {
		return fmt.Errorf("invalid status %q", status)
	}
	return s.updateOne(ctx, `UPDATE todos SET status = $2 WHERE id = $1`, id, status)
}

func (s *Store) UpdateTodoDescription(ctx context.Context, id, description string) error {
	return s.updateOne(ctx, `UPDATE todos SET description = $2 WHERE id = $1`, id, description)
}

func (s *Store) updateOne(ctx context.Context, q, id string, v any) error {
	res, err := s.db.ExecContext(ctx, q, id, v)
	if err != nil {
		return fmt.Errorf("update todo %s: %w", id, err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("update todo %s: %w", id, err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

// RecentTodoDescriptions feeds duplicate detection.
func (s *Store) RecentTodoDescriptions(ctx context.Context, limit int) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT description FROM todos ORDER BY created_at DESC LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent todos: %w", err)
	}
	defer rows.Close()

	var out []string
	for rows.Next() {
		var d string
		if err := rows.Scan(&d); err != nil {
			return nil, err
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

func (s *Store) InsertRecommendation(ctx context.Context, todoID, text, emailDraft string) error {
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO todo_ai_recommendations (id, todo_id, recommendation_text, email_draft, created_at)
		VALUES ($1, $2, $3, $4, $5)
	`, uuid.NewString(), todoID, text, nullIfEmpty(emailDraft), time.Now().UTC())
	if err != nil {
		return fmt.Errorf("insert recommendation: %w", err)
	}

	_, err = s.db.ExecContext(ctx, `UPDATE todos SET ai_recommendation_generated = true WHERE id = $1`, todoID)
	if err != nil {
		return fmt.Errorf("flag recommendation: %w", err)
	}
	return nil
}
