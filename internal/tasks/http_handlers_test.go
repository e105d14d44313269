package tasks

import (
	"context"
	"database/sql"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"clinic-agent/internal/analytics"
	"clinic-agent/internal/store"
)

type eventLog struct{ names []string }

func (e *eventLog) ExecContext(_ context.Context, _ string, args ...any) (sql.Result, error) {
	e.names = append(e.names, args[0].(string))
	return nil, nil
}

func TestListHandlerDefaultsToOpen(t *testing.T) {
	s := newFakeStore()
	w := httptest.NewRecorder()

	ListHandler(s)(w, httptest.NewRequest(http.MethodGet, "/tasks", nil))

	require.Equal(t, http.StatusOK, w.Code)
	var resp ListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	assert.Equal(t, 2, resp.Count)
}

func TestListHandlerFiltersStatus(t *testing.T) {
	s := newFakeStore()
	w := httptest.NewRecorder()

	ListHandler(s)(w, httptest.NewRequest(http.MethodGet, "/tasks?status=pending", nil))

	var resp ListResponse
	require.NoError(t, json.NewDecoder(w.Body).Decode(&resp))
	require.Equal(t, 1, resp.Count)
	assert.Equal(t, store.StatusPending, resp.Tasks[0].Status)
}

func TestListHandlerRejectsBadInput(t *testing.T) {
	s := newFakeStore()

	w := httptest.NewRecorder()
	ListHandler(s)(w, httptest.NewRequest(http.MethodGet, "/tasks?status=archived", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)

	w = httptest.NewRecorder()
	ListHandler(s)(w, httptest.NewRequest(http.MethodGet, "/tasks?limit=-3", nil))
	assert.Equal(t, http.StatusBadRequest, w.Code)
}

func TestSetStatusHandler(t *testing.T) {
	s := newFakeStore()
	events := &eventLog{}
	id := s.open[1].ID
	body := `{"id":"` + id + `","status":"confirmed"}`

	w := httptest.NewRecorder()
	SetStatusHandler(s, events)(w, httptest.NewRequest(http.MethodPost, "/tasks/status", strings.NewReader(body)))

	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, store.StatusConfirmed, s.statuses[id])
	assert.Equal(t, []string{analytics.EventTaskStatusChanged}, events.names)

	var got store.Todo
	require.NoError(t, json.NewDecoder(w.Body).Decode(&got))
	assert.Equal(t, store.StatusConfirmed, got.Status)
}

func TestSetStatusHandlerErrors(t *testing.T) {
	s := newFakeStore()
	events := &eventLog{}
	h := SetStatusHandler(s, events)

	cases := []struct {
		name string
		body string
		code int
	}{
		{"bad json", `{`, http.StatusBadRequest},
		{"missing id", `{"status":"completed"}`, http.StatusBadRequest},
		{"bad status", `{"id":"x","status":"done"}`, http.StatusBadRequest},
		{"malformed id", `{"id":"nope","status":"completed"}`, http.StatusBadRequest},
		{"unknown todo", `{"id":"8d0a3c52-6d3e-4c1b-9a43-2f6f1f3f0aff","status":"completed"}`, http.StatusNotFound},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			w := httptest.NewRecorder()
			h(w, httptest.NewRequest(http.MethodPost, "/tasks/status", strings.NewReader(tc.body)))
			assert.Equal(t, tc.code, w.Code)
		})
	}
	assert.Empty(t, events.names)
}

func TestSetStatusUnchangedSkipsEvent(t *testing.T) {
	s := newFakeStore()
	events := &eventLog{}
	body := `{"id":"` + s.open[0].ID + `","status":"confirmed"}`

	w := httptest.NewRecorder()
	SetStatusHandler(s, events)(w, httptest.NewRequest(http.MethodPost, "/tasks/status", strings.NewReader(body)))

	assert.Equal(t, http.StatusOK, w.Code)
	assert.Empty(t, events.names)
}
