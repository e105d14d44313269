// Package agent runs the assistant pipeline for one chat message: classify,
// retrieve from whatever sources the intent needs, mutate tasks, synthesize.
package agent

import (
	"context"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"clinic-agent/internal/chat"
	"clinic-agent/internal/dbsearch"
	"clinic-agent/internal/intent"
	"clinic-agent/internal/logging"
	"clinic-agent/internal/metrics"
	"clinic-agent/internal/synthesis"
	"clinic-agent/internal/tasks"
	"clinic-agent/internal/vectorsearch"
	"clinic-agent/internal/websearch"
)

const excerptLen = 200

type Classifier interface {
	Classify(ctx context.Context, message string, history []chat.Turn) intent.Intent
	TaskIntent(message string) intent.Intent
}

type StructuredRetriever interface {
	Fetch(ctx context.Context, in intent.Intent) dbsearch.Context
}

type VectorRetriever interface {
	Search(ctx context.Context, message string, in intent.Intent, history []chat.Turn, relevantIDs []string) vectorsearch.Result
}

type TaskMutator interface {
	Handle(ctx context.Context, message string, history []chat.Turn) tasks.Context
}

type WebSearcher interface {
	Enabled() bool
	Search(ctx context.Context, query string, in intent.Intent, hasLocalContext bool) websearch.Result
}

type Synthesizer interface {
	Synthesize(ctx context.Context, in synthesis.Input) synthesis.Output
}

// Deps are the pipeline stages. Web may be nil when no search key is set.
type Deps struct {
	Classifier Classifier
	Database   StructuredRetriever
	Vector     VectorRetriever
	Tasks      TaskMutator
	Web        WebSearcher
	Synth      Synthesizer
}

type Coordinator struct {
	deps Deps
	log  zerolog.Logger
}

func New(deps Deps) *Coordinator {
	return &Coordinator{deps: deps, log: logging.Component("agent")}
}

// Run never fails. Each stage degrades on its own and the synthesizer always
// produces an answer.
func (c *Coordinator) Run(ctx context.Context, req Request) Response {
	start := time.Now()
	debug := DebugInfo{StageMillis: map[string]int64{}}
	stage := func(name string, t0 time.Time) {
		d := time.Since(t0)
		debug.StageMillis[name] = d.Milliseconds()
		metrics.StageDuration.WithLabelValues(name).Observe(d.Seconds())
	}

	history := req.ConversationHistory
	awaiting := tasks.AwaitingAssignment(req.Message, history)

	t0 := time.Now()
	var in intent.Intent
	if awaiting {
		in = c.deps.Classifier.TaskIntent(req.Message)
		debug.AwaitingAssignment = true
	} else {
		in = c.deps.Classifier.Classify(ctx, req.Message, history)
	}
	stage("classify", t0)

	log := c.log.With().
		Str("query_type", string(in.QueryType)).
		Str("intent_source", string(in.Source)).
		Logger()

	var db dbsearch.Context
	if in.RequiresDatabase && c.deps.Database != nil {
		t0 = time.Now()
		db = c.deps.Database.Fetch(ctx, in)
		stage("database", t0)
	}

	var vec vectorsearch.Result
	if in.RequiresEmbeddings && c.deps.Vector != nil {
		t0 = time.Now()
		vec = c.deps.Vector.Search(ctx, req.Message, in, history, db.RelevantIDs)
		stage("vector", t0)
	}

	var tc *tasks.Context
	if (in.RequiresTasks || awaiting) && c.deps.Tasks != nil {
		t0 = time.Now()
		out := c.deps.Tasks.Handle(ctx, req.Message, history)
		tc = &out
		stage("tasks", t0)
	}

	hasLocal := len(vec.Chunks) > 0 || len(db.RelevantIDs) > 0
	var web websearch.Result
	if c.wantsWeb(in, hasLocal) {
		t0 = time.Now()
		web = c.deps.Web.Search(ctx, req.Message, in, hasLocal)
		stage("web", t0)
	}

	t0 = time.Now()
	out := c.deps.Synth.Synthesize(ctx, synthesis.Input{
		Message:  req.Message,
		History:  history,
		Intent:   in,
		Database: db,
		Vector:   vec,
		Web:      web,
		Tasks:    tc,
	})
	stage("synthesis", t0)

	debug.Path = string(out.Path)
	debug.VectorIterations = vec.Iterations
	debug.ChunksFound = len(vec.Chunks)
	debug.InternetUsed = web.HasContent
	if web.HasContent {
		debug.Enrichment = string(web.Enrichment)
		debug.WebConfidence = web.ConfidenceScore
	}
	debug.TotalMillis = time.Since(start).Milliseconds()

	metrics.AgentRequests.WithLabelValues(string(in.QueryType), string(in.Source)).Inc()
	log.Info().
		Str("path", debug.Path).
		Int("chunks", debug.ChunksFound).
		Bool("internet", debug.InternetUsed).
		Int64("total_ms", debug.TotalMillis).
		Msg("agent request done")

	return Response{
		Response:        out.Response,
		Sources:         sources(vec, web),
		TaskContext:     tc,
		DatabaseContext: summarize(db),
		Analysis:        in,
		DebugInfo:       debug,
		Actions:         out.Actions,
	}
}

// wantsWeb is true when the intent asks for external information, or when a
// non-task query found nothing internally.
func (c *Coordinator) wantsWeb(in intent.Intent, hasLocal bool) bool {
	if c.deps.Web == nil || !c.deps.Web.Enabled() {
		return false
	}
	if in.RequiresInternet {
		return true
	}
	return in.QueryType != intent.QueryTask && !hasLocal
}

func sources(vec vectorsearch.Result, web websearch.Result) []Source {
	out := make([]Source, 0, len(vec.Chunks)+len(web.Sources))
	for _, ch := range vec.Chunks {
		out = append(out, Source{
			Type:         SourceEmbedding,
			ID:           ch.ID,
			DocumentID:   ch.DocumentID,
			MeetingID:    ch.MeetingID,
			DocumentType: ch.DocumentType,
			ChunkIndex:   ch.ChunkIndex,
			Similarity:   ch.Similarity,
			Excerpt:      truncate(ch.Text, excerptLen),
		})
	}
	if web.HasContent {
		for _, u := range web.Sources {
			out = append(out, Source{Type: SourceInternet, URL: u})
		}
	}
	return out
}

func summarize(db dbsearch.Context) DatabaseContext {
	ids := db.RelevantIDs
	if ids == nil {
		ids = []string{}
	}
	return DatabaseContext{
		Meetings:    len(db.Meetings),
		Documents:   len(db.Documents),
		Todos:       len(db.Todos),
		RelevantIDs: ids,
	}
}

func truncate(s string, n int) string {
	if utf8.RuneCountInString(s) <= n {
		return s
	}
	return string([]rune(s)[:n]) + "…"
}
