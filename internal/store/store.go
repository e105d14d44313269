// Package store reads and writes the clinic tables in Postgres and calls the
// embedding similarity function.
package store

import (
	"database/sql"
	"errors"
	"strings"
	"time"
)

var ErrNotFound = errors.New("not found")

const (
	StatusPending   = "pending"
	StatusConfirmed = "confirmed"
	StatusCompleted = "completed"
)

// OpenStatuses are the statuses of todos that still need work.
var OpenStatuses = []string{StatusPending, StatusConfirmed}

func ValidStatus(s string) bool {
	switch s {
	case StatusPending, StatusConfirmed, StatusCompleted:
		return true
	}
	return false
}

type Meeting struct {
	ID         string    `json:"id"`
	Title      string    `json:"title"`
	Transcript string    `json:"transcript,omitempty"`
	Summary    string    `json:"summary,omitempty"`
	CreatedAt  time.Time `json:"created_at"`
}

type Document struct {
	ID              string    `json:"id"`
	OriginalName    string    `json:"original_name"`
	AIGeneratedName string    `json:"ai_generated_name,omitempty"`
	AISummary       string    `json:"ai_summary,omitempty"`
	ExtractedText   string    `json:"-"`
	CreatedAt       time.Time `json:"created_at"`
}

type Todo struct {
	ID                        string     `json:"id"`
	Description               string     `json:"description"`
	Status                    string     `json:"status"`
	AssignedTo                string     `json:"assigned_to,omitempty"`
	AssigneeName              string     `json:"assignee_name,omitempty"`
	DueDate                   *time.Time `json:"due_date,omitempty"`
	MeetingID                 string     `json:"meeting_id,omitempty"`
	AIRecommendationGenerated bool       `json:"ai_recommendation_generated"`
	CreatedAt                 time.Time  `json:"created_at"`
}

type NewTodo struct {
	Description string
	Status      string
	AssignedTo  string
	DueDate     *time.Time
	MeetingID   string
}

// Chunk is one embedded text fragment returned by a similarity search.
type Chunk struct {
	ID           string  `json:"id"`
	DocumentID   string  `json:"document_id,omitempty"`
	MeetingID    string  `json:"meeting_id,omitempty"`
	DocumentType string  `json:"document_type"`
	ChunkIndex   int     `json:"chunk_index"`
	Text         string  `json:"text"`
	Similarity   float64 `json:"similarity"`
}

type NewChunk struct {
	DocumentID   string
	MeetingID    string
	DocumentType string
	ChunkIndex   int
	Text         string
	Embedding    []float32
}

type Store struct {
	db *sql.DB
}

func New(db *sql.DB) *Store {
	return &Store{db: db}
}

func nullIfEmpty(s string) sql.NullString {
	if strings.TrimSpace(s) == "" {
		return sql.NullString{Valid: false}
	}
	return sql.NullString{String: s, Valid: true}
}
