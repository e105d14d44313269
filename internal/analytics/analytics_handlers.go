package analytics

import (
	"encoding/json"
	"net/http"
	"strings"
)

// agent_feedback: the user rated an assistant answer in the chat panel
func AgentFeedbackHandler(db Execer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body struct {
			Rating    string `json:"rating"`     // up/down
			QueryType string `json:"query_type"` // as returned in analysis
			Source    string `json:"source"`     // tasks/embeddings/internet/general
		}
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}

		rating := strings.ToLower(strings.TrimSpace(body.Rating))
		if rating != "up" && rating != "down" {
			http.Error(w, "rating must be up or down", http.StatusBadRequest)
			return
		}

		props := map[string]any{
			"rating":     rating,
			"query_type": body.QueryType,
			"source":     body.Source,
		}
		_ = Log(r.Context(), db, FromRequest(r), EventAgentFeedback, props, SourceEventKeyFromRequest(r))

		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"ok": true})
	}
}
