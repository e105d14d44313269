package agent

import (
	"context"
	"encoding/json"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"clinic-agent/internal/action"
	"clinic-agent/internal/analytics"
	"clinic-agent/internal/chat"
)

// Runner is implemented by *Coordinator.
type Runner interface {
	Run(ctx context.Context, req Request) Response
}

// POST /ai-agent
func Handler(agent Runner, events analytics.Execer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var req Request
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		req.Message = strings.TrimSpace(req.Message)
		if req.Message == "" {
			http.Error(w, "message required", http.StatusBadRequest)
			return
		}
		if req.ConversationHistory == nil {
			req.ConversationHistory = []chat.Turn{}
		}

		resp := agent.Run(r.Context(), req)
		if resp.Sources == nil {
			resp.Sources = []Source{}
		}
		if resp.Actions == nil {
			resp.Actions = []action.Action{}
		}

		logEvents(r, events, req, resp)

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(resp)
	}
}

// logEvents never carries raw message or answer text.
func logEvents(r *http.Request, events analytics.Execer, req Request, resp Response) {
	env := analytics.FromRequest(r)
	key := analytics.SourceEventKeyFromRequest(r)

	props := map[string]any{
		"query_type":     resp.Analysis.QueryType,
		"intent_source":  resp.Analysis.Source,
		"path":           resp.DebugInfo.Path,
		"message_length": analytics.LengthBucket(len([]rune(req.Message))),
		"history_turns":  len(req.ConversationHistory),
		"chunks_found":   resp.DebugInfo.ChunksFound,
		"internet_used":  resp.DebugInfo.InternetUsed,
		"actions":        len(resp.Actions),
		"total_ms":       resp.DebugInfo.TotalMillis,
	}
	if err := analytics.Log(r.Context(), events, env, analytics.EventAgentQuery, props, key); err != nil {
		log.Warn().Err(err).Msg("analytics insert failed")
	}

	if tc := resp.TaskContext; tc != nil && tc.TaskCreated != nil {
		created := tc.TaskCreated
		props := map[string]any{
			"task_id":  created.ID,
			"assigned": created.AssignedTo != "",
		}
		// The query event owns the client key; this one is derived from it.
		taskKey := ""
		if key != "" {
			taskKey = key + ":task"
		}
		if err := analytics.Log(r.Context(), events, env, analytics.EventAgentTaskCreated, props, taskKey); err != nil {
			log.Warn().Err(err).Msg("analytics insert failed")
		}
	}
}
