// Package transcript turns a meeting transcript into todos, recommendations,
// a summary and embedded chunks for the vector index.
package transcript

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"clinic-agent/internal/ai"
	"clinic-agent/internal/jsonx"
	"clinic-agent/internal/logging"
	"clinic-agent/internal/metrics"
	"clinic-agent/internal/roster"
	"clinic-agent/internal/store"
	"clinic-agent/internal/tasks"
)

const (
	recentTodoLimit  = 50
	documentType     = "meeting_transcript"
	originTranscript = "transcript"
	extractTemp      = 0.2
	extractTokens    = 4000
)

var ErrEmptyTranscript = errors.New("transcript is empty")

type Store interface {
	MeetingByID(ctx context.Context, id string) (store.Meeting, error)
	Roster(ctx context.Context) ([]roster.Person, error)
	RecentTodoDescriptions(ctx context.Context, limit int) ([]string, error)
	CreateTodo(ctx context.Context, in store.NewTodo) (store.Todo, error)
	LinkAssignee(ctx context.Context, todoID string, p roster.Person) error
	InsertRecommendation(ctx context.Context, todoID, text, emailDraft string) error
	UpdateMeetingSummary(ctx context.Context, id, summary string) error
	InsertChunk(ctx context.Context, c store.NewChunk) (string, error)
}

type Config struct {
	DedupThreshold float64
	ChunkMin       int
	ChunkMax       int
}

func DefaultConfig() Config {
	return Config{
		DedupThreshold: DefaultDedupThreshold,
		ChunkMin:       DefaultChunkMin,
		ChunkMax:       DefaultChunkMax,
	}
}

// ExtractedTask is one action item the model found in the transcript.
type ExtractedTask struct {
	Description    string
	AssignedTo     []string
	DueDate        *time.Time
	Recommendation string
	EmailDraft     string
}

type Result struct {
	MeetingID         string       `json:"meetingId"`
	Summary           string       `json:"summary"`
	Tasks             []store.Todo `json:"tasks"`
	TasksCreated      int          `json:"tasksCreated"`
	DuplicatesSkipped int          `json:"duplicatesSkipped"`
	Failed            int          `json:"failed"`
	UnresolvedNames   []string     `json:"unresolvedNames,omitempty"`
	ChunksStored      int          `json:"chunksStored"`
	ExtractionFailed  bool         `json:"extractionFailed"`
}

type Processor struct {
	store    Store
	llm      ai.Completer
	embedder ai.Embedder
	resolver *roster.Resolver
	cfg      Config
	log      zerolog.Logger
}

func New(s Store, llm ai.Completer, embedder ai.Embedder, resolver *roster.Resolver, cfg Config) *Processor {
	if resolver == nil {
		resolver = roster.NewResolver(nil)
	}
	if cfg.DedupThreshold <= 0 {
		cfg.DedupThreshold = DefaultDedupThreshold
	}
	if cfg.ChunkMax <= 0 {
		cfg.ChunkMax = DefaultChunkMax
	}
	return &Processor{
		store:    s,
		llm:      llm,
		embedder: embedder,
		resolver: resolver,
		cfg:      cfg,
		log:      logging.Component("transcript"),
	}
}

// Process runs the whole flow for one meeting. A non-empty transcript
// argument overrides the stored one. Only a missing meeting or transcript is
// an error; later steps degrade and are counted in the Result.
func (p *Processor) Process(ctx context.Context, meetingID, transcript string) (Result, error) {
	m, err := p.store.MeetingByID(ctx, meetingID)
	if err != nil {
		return Result{}, fmt.Errorf("load meeting %s: %w", meetingID, err)
	}
	if strings.TrimSpace(transcript) == "" {
		transcript = m.Transcript
	}
	if strings.TrimSpace(transcript) == "" {
		return Result{}, ErrEmptyTranscript
	}

	res := Result{MeetingID: m.ID}
	log := p.log.With().Str("meeting_id", m.ID).Logger()

	people, err := p.store.Roster(ctx)
	if err != nil {
		log.Warn().Err(err).Msg("roster read failed")
	}

	summary, extracted, err := p.extract(ctx, m.Title, transcript, people)
	if err != nil {
		log.Error().Err(err).Msg("task extraction failed")
		res.ExtractionFailed = true
	}
	res.Summary = summary

	if len(extracted) > 0 {
		p.storeTasks(ctx, log, m.ID, extracted, people, &res)
	}

	if summary != "" {
		if err := p.store.UpdateMeetingSummary(ctx, m.ID, summary); err != nil {
			log.Warn().Err(err).Msg("summary update failed")
		}
	}

	res.ChunksStored = p.storeChunks(ctx, log, m.ID, transcript)

	log.Info().
		Int("tasks_created", res.TasksCreated).
		Int("duplicates", res.DuplicatesSkipped).
		Int("failed", res.Failed).
		Int("chunks", res.ChunksStored).
		Msg("transcript processed")
	return res, nil
}

func (p *Processor) extract(ctx context.Context, title, transcript string, people []roster.Person) (string, []ExtractedTask, error) {
	if p.llm == nil {
		return "", nil, errors.New("no completion provider")
	}
	names := make([]string, len(people))
	for i, pp := range people {
		names[i] = pp.Name
	}

	raw, err := p.llm.Complete(ctx, ai.Request{
		System:      ai.TranscriptSystemPrompt,
		User:        ai.BuildTranscriptPrompt(title, transcript, names),
		Temperature: extractTemp,
		MaxTokens:   extractTokens,
	})
	if err != nil {
		return "", nil, err
	}
	return ParseExtraction(raw)
}

// ParseExtraction reads the model's {summary, tasks} object. assigned_to may
// be a list or a single name.
func ParseExtraction(raw string) (string, []ExtractedTask, error) {
	obj, err := jsonx.ExtractObject(raw)
	if err != nil {
		return "", nil, fmt.Errorf("parse extraction: %w", err)
	}

	var out []ExtractedTask
	gjson.Get(obj, "tasks").ForEach(func(_, t gjson.Result) bool {
		desc := tasks.MakeConcise(strings.TrimSpace(t.Get("description").String()))
		if desc == "" {
			return true
		}
		et := ExtractedTask{
			Description:    desc,
			Recommendation: strings.TrimSpace(t.Get("recommendation").String()),
			EmailDraft:     strings.TrimSpace(t.Get("email_draft").String()),
		}

		assigned := t.Get("assigned_to")
		if assigned.IsArray() {
			for _, n := range assigned.Array() {
				if s := strings.TrimSpace(n.String()); s != "" {
					et.AssignedTo = append(et.AssignedTo, s)
				}
			}
		} else if s := strings.TrimSpace(assigned.String()); s != "" {
			et.AssignedTo = []string{s}
		}

		if d, err := time.Parse(time.DateOnly, t.Get("due_date").String()); err == nil {
			et.DueDate = &d
		}
		out = append(out, et)
		return true
	})

	return strings.TrimSpace(gjson.Get(obj, "summary").String()), out, nil
}

func (p *Processor) storeTasks(ctx context.Context, log zerolog.Logger, meetingID string, extracted []ExtractedTask, people []roster.Person, res *Result) {
	existing, err := p.store.RecentTodoDescriptions(ctx, recentTodoLimit)
	if err != nil {
		log.Warn().Err(err).Msg("recent todos read failed, duplicates not checked against history")
	}

	for _, et := range extracted {
		if IsDuplicate(et.Description, existing, p.cfg.DedupThreshold) {
			res.DuplicatesSkipped++
			metrics.DuplicateTasks.Inc()
			log.Debug().Str("description", et.Description).Msg("duplicate task skipped")
			continue
		}

		var assignees []roster.Person
		for _, name := range et.AssignedTo {
			pp, ok := p.resolver.Resolve(name, people)
			if !ok {
				res.UnresolvedNames = append(res.UnresolvedNames, name)
				log.Info().Str("name", name).Msg("assignee not in roster")
				continue
			}
			assignees = append(assignees, pp)
		}

		in := store.NewTodo{
			Description: et.Description,
			Status:      store.StatusConfirmed,
			DueDate:     et.DueDate,
			MeetingID:   meetingID,
		}
		if len(assignees) > 0 {
			in.AssignedTo = assignees[0].ID
		}

		t, err := p.store.CreateTodo(ctx, in)
		if err != nil {
			res.Failed++
			log.Error().Err(err).Str("description", et.Description).Msg("todo insert failed")
			continue
		}
		existing = append(existing, et.Description)

		for _, a := range assignees {
			if err := p.store.LinkAssignee(ctx, t.ID, a); err != nil {
				log.Warn().Err(err).Str("todo_id", t.ID).Msg("assignee link failed")
			}
		}
		if len(assignees) > 0 {
			t.AssigneeName = assignees[0].Name
		}

		if et.Recommendation != "" {
			if err := p.store.InsertRecommendation(ctx, t.ID, et.Recommendation, et.EmailDraft); err != nil {
				log.Warn().Err(err).Str("todo_id", t.ID).Msg("recommendation insert failed")
			} else {
				t.AIRecommendationGenerated = true
			}
		}

		metrics.TasksCreated.WithLabelValues(originTranscript).Inc()
		res.Tasks = append(res.Tasks, t)
		res.TasksCreated++
	}
}

func (p *Processor) storeChunks(ctx context.Context, log zerolog.Logger, meetingID, transcript string) int {
	if p.embedder == nil {
		return 0
	}
	stored := 0
	for i, c := range Chunk(transcript, p.cfg.ChunkMin, p.cfg.ChunkMax) {
		vec, err := p.embedder.Embed(ctx, c)
		if err != nil {
			log.Warn().Err(err).Int("chunk", i).Msg("chunk embedding failed")
			continue
		}
		_, err = p.store.InsertChunk(ctx, store.NewChunk{
			MeetingID:    meetingID,
			DocumentType: documentType,
			ChunkIndex:   i,
			Text:         c,
			Embedding:    vec,
		})
		if err != nil {
			log.Warn().Err(err).Int("chunk", i).Msg("chunk insert failed")
			continue
		}
		stored++
	}
	return stored
}
