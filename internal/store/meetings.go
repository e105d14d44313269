package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"clinic-agent/internal/roster"
)

func (s *Store) RecentMeetings(ctx context.Context, limit int) ([]Meeting, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, title, COALESCE(transcript, ''), COALESCE(summary, ''), created_at
		FROM meetings
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent meetings: %w", err)
	}
	defer rows.Close()

	var out []Meeting
	for rows.Next() {
		var m Meeting
		if err := rows.Scan(&m.ID, &m.Title, &m.Transcript, &m.Summary, &m.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan meeting: %w", err)
		}
		out = append(out, m)
	}
	return out, rows.Err()
}

func (s *Store) MeetingByID(ctx context.Context, id string) (Meeting, error) {
	var m Meeting
	err := s.db.QueryRowContext(ctx, `
		SELECT id, title, COALESCE(transcript, ''), COALESCE(summary, ''), created_at
		FROM meetings
		WHERE id = $1
	`, id).Scan(&m.ID, &m.Title, &m.Transcript, &m.Summary, &m.CreatedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return Meeting{}, ErrNotFound
	}
	if err != nil {
		return Meeting{}, fmt.Errorf("get meeting %s: %w", id, err)
	}
	return m, nil
}

func (s *Store) UpdateMeetingSummary(ctx context.Context, id, summary string) error {
	_, err := s.db.ExecContext(ctx, `UPDATE meetings SET summary = $2 WHERE id = $1`, id, summary)
	if err != nil {
		return fmt.Errorf("update meeting summary: %w", err)
	}
	return nil
}

func (s *Store) RecentDocuments(ctx context.Context, limit int) ([]Document, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, original_name, COALESCE(ai_generated_name, ''), COALESCE(ai_summary, ''),
		       COALESCE(extracted_text, ''), created_at
		FROM uploaded_documents
		ORDER BY created_at DESC
		LIMIT $1
	`, limit)
	if err != nil {
		return nil, fmt.Errorf("recent documents: %w", err)
	}
	defer rows.Close()

	var out []Document
	for rows.Next() {
		var d Document
		if err := rows.Scan(&d.ID, &d.OriginalName, &d.AIGeneratedName, &d.AISummary, &d.ExtractedText, &d.CreatedAt); err != nil {
			return nil, fmt.Errorf("scan document: %w", err)
		}
		out = append(out, d)
	}
	return out, rows.Err()
}

// Roster lists participants then users, the people a todo can be assigned to.
func (s *Store) Roster(ctx context.Context) ([]roster.Person, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id::text, name, COALESCE(email, ''), 'participant' FROM participants
		UNION ALL
		SELECT id::text, trim(first_name || ' ' || last_name), COALESCE(email, ''), 'user' FROM users
		LIMIT 200
	`)
	if err != nil {
		return nil, fmt.Errorf("roster: %w", err)
	}
	defer rows.Close()

	var out []roster.Person
	for rows.Next() {
		var (
			p    roster.Person
			kind string
		)
		if err := rows.Scan(&p.ID, &p.Name, &p.Email, &kind); err != nil {
			return nil, fmt.Errorf("scan person: %w", err)
		}
		p.Kind = roster.Kind(kind)
		out = append(out, p)
	}
	return out, rows.Err()
}
