package tasks

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strconv"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"

	"clinic-agent/internal/analytics"
	"clinic-agent/internal/store"
)

const maxListLimit = 200

// TodoStore backs the task HTTP handlers.
type TodoStore interface {
	ListTodos(ctx context.Context, statuses []string, limit int) ([]store.Todo, error)
	TodoByID(ctx context.Context, id string) (store.Todo, error)
	UpdateTodoStatus(ctx context.Context, id, status string) error
}

// GET /tasks?status=pending,confirmed&limit=50
func ListHandler(s TodoStore) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		statuses := store.OpenStatuses
		if raw := strings.TrimSpace(r.URL.Query().Get("status")); raw != "" {
			statuses = nil
			for _, st := range strings.Split(raw, ",") {
				st = strings.TrimSpace(st)
				if !store.ValidStatus(st) {
					http.Error(w, "invalid status", http.StatusBadRequest)
					return
				}
				statuses = append(statuses, st)
			}
		}

		limit := listLimit
		if raw := r.URL.Query().Get("limit"); raw != "" {
			n, err := strconv.Atoi(raw)
			if err != nil || n <= 0 {
				http.Error(w, "invalid limit", http.StatusBadRequest)
				return
			}
			limit = min(n, maxListLimit)
		}

		todos, err := s.ListTodos(r.Context(), statuses, limit)
		if err != nil {
			log.Error().Err(err).Msg("list todos failed")
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}
		if todos == nil {
			todos = []store.Todo{}
		}

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(ListResponse{Tasks: todos, Count: len(todos)})
	}
}

// POST /tasks/status
func SetStatusHandler(s TodoStore, events analytics.Execer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body SetStatusRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.ID = strings.TrimSpace(body.ID)
		if body.ID == "" {
			http.Error(w, "id required", http.StatusBadRequest)
			return
		}
		if _, err := uuid.Parse(body.ID); err != nil {
			http.Error(w, "invalid id", http.StatusBadRequest)
			return
		}
		if !store.ValidStatus(body.Status) {
			http.Error(w, "invalid status", http.StatusBadRequest)
			return
		}

		prev, err := s.TodoByID(r.Context(), body.ID)
		if errors.Is(err, store.ErrNotFound) {
			http.Error(w, "task not found", http.StatusNotFound)
			return
		}
		if err != nil {
			log.Error().Err(err).Str("todo_id", body.ID).Msg("todo lookup failed")
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		if err := s.UpdateTodoStatus(r.Context(), body.ID, body.Status); err != nil {
			if errors.Is(err, store.ErrNotFound) {
				http.Error(w, "task not found", http.StatusNotFound)
				return
			}
			log.Error().Err(err).Str("todo_id", body.ID).Msg("todo status update failed")
			http.Error(w, "db error", http.StatusInternalServerError)
			return
		}

		if prev.Status != body.Status {
			props := map[string]any{
				"task_id":     body.ID,
				"status_from": prev.Status,
				"status_to":   body.Status,
				"from_agent":  false,
			}
			if err := analytics.Log(r.Context(), events, analytics.FromRequest(r), analytics.EventTaskStatusChanged, props, analytics.SourceEventKeyFromRequest(r)); err != nil {
				log.Warn().Err(err).Msg("analytics insert failed")
			}
		}

		prev.Status = body.Status
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(prev)
	}
}
