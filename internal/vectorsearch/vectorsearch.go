// Package vectorsearch runs the widening similarity search over embedded
// chunks.
package vectorsearch

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"

	"github.com/rs/zerolog"

	"clinic-agent/internal/ai"
	"clinic-agent/internal/chat"
	"clinic-agent/internal/intent"
	"clinic-agent/internal/logging"
	"clinic-agent/internal/metrics"
	"clinic-agent/internal/store"
)

type Index interface {
	SearchEmbeddings(ctx context.Context, vec []float32, threshold float64, count int) ([]store.Chunk, error)
}

// Query is one text to embed and the minimum similarity it must reach.
type Query struct {
	Text      string
	Threshold float64
}

// Phase groups queries run together. A phase only runs while fewer than
// RunBelow results are known, and stops issuing queries once StopAt is
// reached (0 means no early stop).
type Phase struct {
	Name     string
	Queries  []Query
	RunBelow int
	StopAt   int
}

type Config struct {
	PrimaryThreshold    float64
	KeywordThreshold    float64
	ContextualThreshold float64
	FallbackThreshold   float64
	MatchCount          int
	TargetResults       int
	FallbackTarget      int
	PhaseStopAt         int
	MaxIterations       int
	MaxKeywords         int
}

func DefaultConfig() Config {
	return Config{
		PrimaryThreshold:    0.35,
		KeywordThreshold:    0.25,
		ContextualThreshold: 0.2,
		FallbackThreshold:   0.1,
		MatchCount:          20,
		TargetResults:       3,
		FallbackTarget:      2,
		PhaseStopAt:         8,
		MaxIterations:       4,
		MaxKeywords:         3,
	}
}

type Result struct {
	Chunks             []store.Chunk `json:"chunks"`
	HasRelevantContext bool          `json:"hasRelevantContext"`
	Iterations         int           `json:"iterations"`
}

type Retriever struct {
	embedder ai.Embedder
	index    Index
	cfg      Config
	log      zerolog.Logger
}

func New(embedder ai.Embedder, index Index, cfg Config) *Retriever {
	return &Retriever{embedder: embedder, index: index, cfg: cfg, log: logging.Component("vectorsearch")}
}

// Search builds the four standard phases for a message and runs them.
// relevantIDs are document or meeting ids already known to matter; they win
// ties on similarity.
func (r *Retriever) Search(ctx context.Context, message string, in intent.Intent, history []chat.Turn, relevantIDs []string) Result {
	res := r.SearchWithBackoff(ctx, r.Phases(message, in, history), r.cfg.MaxIterations)
	rankRelevantFirst(res.Chunks, relevantIDs)
	return res
}

// Phases returns primary, keyword, contextual and fallback phases.
func (r *Retriever) Phases(message string, in intent.Intent, history []chat.Turn) []Phase {
	terms := keywords(message, in, r.cfg.MaxKeywords)

	var kw, ctxq []Query
	for _, t := range terms {
		kw = append(kw, Query{Text: t, Threshold: r.cfg.KeywordThreshold})
	}
	for _, t := range contextualRewrites(message, terms) {
		ctxq = append(ctxq, Query{Text: t, Threshold: r.cfg.ContextualThreshold})
	}

	return []Phase{
		{Name: "primary", Queries: []Query{{Text: enrich(message, history), Threshold: r.cfg.PrimaryThreshold}}, RunBelow: math.MaxInt},
		{Name: "keywords", Queries: kw, RunBelow: r.cfg.TargetResults, StopAt: r.cfg.PhaseStopAt},
		{Name: "contextual", Queries: ctxq, RunBelow: r.cfg.TargetResults, StopAt: r.cfg.PhaseStopAt},
		{Name: "fallback", Queries: []Query{{Text: message, Threshold: r.cfg.FallbackThreshold}}, RunBelow: r.cfg.FallbackTarget},
	}
}

// SearchWithBackoff runs phases in order, widening until a phase's target is
// met or maxIterations phases have run. Each embedding or search failure
// counts as zero results for that query only. Chunks are deduplicated by id
// and sorted by descending similarity.
func (r *Retriever) SearchWithBackoff(ctx context.Context, phases []Phase, maxIterations int) Result {
	found := map[string]store.Chunk{}
	iterations := 0

	for _, p := range phases {
		if iterations >= maxIterations {
			break
		}
		if len(found) >= p.RunBelow {
			continue
		}
		iterations++
		metrics.VectorPhases.WithLabelValues(p.Name).Inc()

		for _, q := range p.Queries {
			if p.StopAt > 0 && len(found) >= p.StopAt {
				break
			}
			if strings.TrimSpace(q.Text) == "" {
				continue
			}
			for _, c := range r.query(ctx, p.Name, q) {
				if prev, ok := found[c.ID]; !ok || c.Similarity > prev.Similarity {
					found[c.ID] = c
				}
			}
		}
		r.log.Debug().Str("phase", p.Name).Int("results", len(found)).Msg("vector phase done")
	}

	chunks := make([]store.Chunk, 0, len(found))
	for _, c := range found {
		chunks = append(chunks, c)
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Similarity != chunks[j].Similarity {
			return chunks[i].Similarity > chunks[j].Similarity
		}
		return chunks[i].ID < chunks[j].ID
	})

	return Result{Chunks: chunks, HasRelevantContext: len(chunks) > 0, Iterations: iterations}
}

func (r *Retriever) query(ctx context.Context, phase string, q Query) []store.Chunk {
	vec, err := r.embedder.Embed(ctx, q.Text)
	if err != nil {
		r.log.Warn().Err(err).Str("phase", phase).Msg("embedding failed")
		return nil
	}
	chunks, err := r.index.SearchEmbeddings(ctx, vec, q.Threshold, r.cfg.MatchCount)
	if err != nil {
		r.log.Warn().Err(err).Str("phase", phase).Msg("similarity search failed")
		return nil
	}
	return chunks
}

// rankRelevantFirst moves known-relevant chunks ahead of others with the same
// score. Ordering by similarity is unchanged.
func rankRelevantFirst(chunks []store.Chunk, relevantIDs []string) {
	if len(relevantIDs) == 0 {
		return
	}
	known := make(map[string]bool, len(relevantIDs))
	for _, id := range relevantIDs {
		known[id] = true
	}
	isKnown := func(c store.Chunk) bool {
		return (c.DocumentID != "" && known[c.DocumentID]) || (c.MeetingID != "" && known[c.MeetingID])
	}
	sort.SliceStable(chunks, func(i, j int) bool {
		if chunks[i].Similarity != chunks[j].Similarity {
			return chunks[i].Similarity > chunks[j].Similarity
		}
		return isKnown(chunks[i]) && !isKnown(chunks[j])
	})
}

// enrich appends the last three turns to the message.
func enrich(message string, history []chat.Turn) string {
	recent := chat.Last(history, 3)
	if len(recent) == 0 {
		return message
	}
	var parts []string
	for _, t := range recent {
		parts = append(parts, strings.TrimSpace(t.Content))
	}
	return fmt.Sprintf("%s\n\nContexte: %s", message, strings.Join(parts, " "))
}

func keywords(message string, in intent.Intent, n int) []string {
	var out []string
	seen := map[string]bool{}
	add := func(s string) {
		k := strings.ToLower(strings.TrimSpace(s))
		if k == "" || seen[k] || len(out) >= n {
			return
		}
		seen[k] = true
		out = append(out, s)
	}
	for _, t := range in.SearchTerms {
		add(t)
	}
	for _, t := range in.Synonyms {
		add(t)
	}
	if len(out) == 0 {
		for _, t := range intent.ExtractTerms(message, n) {
			add(t)
		}
	}
	return out
}

func contextualRewrites(message string, terms []string) []string {
	subject := message
	if len(terms) > 0 {
		subject = strings.Join(terms, " ")
	}
	return []string{
		"Réunion concernant " + subject,
		"Document sur " + subject,
		"Décision prise à propos de " + subject,
	}
}
