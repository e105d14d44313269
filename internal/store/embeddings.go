package store

import (
	"context"
	"fmt"
	"strconv"
	"strings"

	"github.com/google/uuid"
)

// SearchEmbeddings calls search_document_embeddings and returns chunks with a
// similarity above threshold, best first.
func (s *Store) SearchEmbeddings(ctx context.Context, vec []float32, threshold float64, count int) ([]Chunk, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id::text, COALESCE(document_id::text, ''), COALESCE(meeting_id::text, ''),
		       document_type, chunk_index, chunk_text, similarity
		FROM search_document_embeddings($1::vector, $2, $3)
	`, vectorLiteral(vec), threshold, count)
	if err != nil {
		return nil, fmt.Errorf("search embeddings: %w", err)
	}
	defer rows.Close()

	var out []Chunk
	for rows.Next() {
		var c Chunk
		if err := rows.Scan(&c.ID, &c.DocumentID, &c.MeetingID, &c.DocumentType, &c.ChunkIndex, &c.Text, &c.Similarity); err != nil {
			return nil, fmt.Errorf("scan chunk: %w", err)
		}
		out = append(out, c)
	}
	return out, rows.Err()
}

func (s *Store) InsertChunk(ctx context.Context, c NewChunk) (string, error) {
	id := uuid.NewString()
	_, err := s.db.ExecContext(ctx, `
		INSERT INTO document_embeddings (id, document_id, meeting_id, document_type, chunk_index, chunk_text, embedding)
		VALUES ($1, $2, $3, $4, $5, $6, $7::vector)
	`, id, nullIfEmpty(c.DocumentID), nullIfEmpty(c.MeetingID), c.DocumentType, c.ChunkIndex, c.Text, vectorLiteral(c.Embedding))
	if err != nil {
		return "", fmt.Errorf("insert chunk %d: %w", c.ChunkIndex, err)
	}
	return id, nil
}

// vectorLiteral renders a pgvector text literal: [0.1,0.2,...].
func vectorLiteral(vec []float32) string {
	var b strings.Builder
	b.Grow(len(vec) * 10)
	b.WriteByte('[')
	for i, f := range vec {
		if i > 0 {
			b.WriteByte(',')
		}
		b.WriteString(strconv.FormatFloat(float64(f), 'f', -1, 32))
	}
	b.WriteByte(']')
	return b.String()
}
