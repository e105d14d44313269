package transcript

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"strings"

	"github.com/rs/zerolog/log"

	"clinic-agent/internal/analytics"
	"clinic-agent/internal/store"
)

type ProcessRequest struct {
	MeetingID  string `json:"meetingId"`
	Transcript string `json:"transcript,omitempty"`
}

// Runner is implemented by *Processor.
type Runner interface {
	Process(ctx context.Context, meetingID, transcript string) (Result, error)
}

// POST /process-transcript
func ProcessHandler(p Runner, events analytics.Execer) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body ProcessRequest
		if err := json.NewDecoder(r.Body).Decode(&body); err != nil {
			http.Error(w, "invalid json", http.StatusBadRequest)
			return
		}
		body.MeetingID = strings.TrimSpace(body.MeetingID)
		if body.MeetingID == "" {
			http.Error(w, "meetingId required", http.StatusBadRequest)
			return
		}

		res, err := p.Process(r.Context(), body.MeetingID, body.Transcript)
		switch {
		case errors.Is(err, store.ErrNotFound):
			http.Error(w, "meeting not found", http.StatusNotFound)
			return
		case errors.Is(err, ErrEmptyTranscript):
			http.Error(w, "transcript is empty", http.StatusBadRequest)
			return
		case err != nil:
			log.Error().Err(err).Str("meeting_id", body.MeetingID).Msg("transcript processing failed")
			http.Error(w, "processing failed", http.StatusInternalServerError)
			return
		}

		props := map[string]any{
			"meeting_id":         res.MeetingID,
			"tasks_created":      res.TasksCreated,
			"duplicates_skipped": res.DuplicatesSkipped,
			"chunks_stored":      res.ChunksStored,
			"extraction_failed":  res.ExtractionFailed,
		}
		if err := analytics.Log(r.Context(), events, analytics.FromRequest(r), analytics.EventTranscriptProcessed, props, analytics.SourceEventKeyFromRequest(r)); err != nil {
			log.Warn().Err(err).Msg("analytics insert failed")
		}

		if res.Tasks == nil {
			res.Tasks = []store.Todo{}
		}
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(res)
	}
}
