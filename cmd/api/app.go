package main

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"

	"clinic-agent/internal/agent"
	"clinic-agent/internal/ai"
	"clinic-agent/internal/cache"
	"clinic-agent/internal/config"
	"clinic-agent/internal/db"
	"clinic-agent/internal/dbsearch"
	"clinic-agent/internal/intent"
	"clinic-agent/internal/roster"
	"clinic-agent/internal/store"
	"clinic-agent/internal/synthesis"
	"clinic-agent/internal/tasks"
	"clinic-agent/internal/transcript"
	"clinic-agent/internal/vectorsearch"
	"clinic-agent/internal/websearch"
)

const embeddingCacheTTL = 7 * 24 * time.Hour

// app holds everything a command needs once the database is reachable.
type app struct {
	db          *sql.DB
	store       *store.Store
	agent       *agent.Coordinator
	transcripts *transcript.Processor
	closers     []func() error
}

func newApp(ctx context.Context, cfg *config.Config) (*app, error) {
	database, err := db.Connect(cfg.ConnString())
	if err != nil {
		return nil, fmt.Errorf("connect db: %w", err)
	}
	a := &app{db: database, store: store.New(database), closers: []func() error{database.Close}}

	openai := ai.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIEmbeddingModel, cfg.OpenAIBaseURL)
	llm := newCompleter(cfg, openai)

	var embedder ai.Embedder = openai
	if cfg.RedisURL != "" {
		c, err := cache.NewRedis(ctx, cfg.RedisURL, embeddingCacheTTL)
		if err != nil {
			log.Warn().Err(err).Msg("embedding cache disabled")
		} else {
			a.closers = append(a.closers, c.Close)
			embedder = ai.NewCachedEmbedder(openai, c, openai.EmbeddingModel())
		}
	}

	aliases, err := roster.LoadAliases(cfg.RosterAliasesFile)
	if err != nil {
		a.Close()
		return nil, err
	}
	resolver := roster.NewResolver(aliases)

	vcfg := vectorsearch.DefaultConfig()
	vcfg.PrimaryThreshold = cfg.VectorPrimaryThreshold
	vcfg.KeywordThreshold = cfg.VectorKeywordThreshold
	vcfg.ContextualThreshold = cfg.VectorContextualThreshold
	vcfg.FallbackThreshold = cfg.VectorFallbackThreshold
	vcfg.MatchCount = cfg.VectorMatchCount
	vcfg.TargetResults = cfg.VectorTargetResults
	vcfg.FallbackTarget = cfg.VectorFallbackTarget
	vcfg.PhaseStopAt = cfg.VectorPhaseStopAt
	vcfg.MaxIterations = cfg.VectorMaxIterations

	web := websearch.New(cfg.PerplexityKey, cfg.PerplexityModel, cfg.PerplexityBaseURL)
	if !web.Enabled() {
		log.Info().Msg("PERPLEXITY_API_KEY not set, web search disabled")
	}

	a.agent = agent.New(agent.Deps{
		Classifier: intent.NewClassifier(llm, nil),
		Database:   dbsearch.New(a.store),
		Vector:     vectorsearch.New(embedder, a.store, vcfg),
		Tasks:      tasks.NewMutator(a.store, resolver),
		Web:        web,
		Synth:      synthesis.New(llm),
	})

	tcfg := transcript.DefaultConfig()
	tcfg.DedupThreshold = cfg.DedupThreshold
	a.transcripts = transcript.New(a.store, llm, embedder, resolver, tcfg)

	return a, nil
}

// newClassifier builds only what the classify command needs.
func newClassifier(cfg *config.Config) *intent.Classifier {
	openai := ai.NewOpenAI(cfg.OpenAIKey, cfg.OpenAIModel, cfg.OpenAIEmbeddingModel, cfg.OpenAIBaseURL)
	return intent.NewClassifier(newCompleter(cfg, openai), nil)
}

func newCompleter(cfg *config.Config, openai *ai.OpenAIClient) ai.Completer {
	if cfg.LLMProvider == "anthropic" {
		return ai.WithRetry(ai.NewAnthropic(cfg.AnthropicKey, cfg.AnthropicModel), "anthropic", ai.DefaultAttempts, ai.DefaultBackoff)
	}
	return ai.WithRetry(openai, "openai", ai.DefaultAttempts, ai.DefaultBackoff)
}

func (a *app) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			log.Warn().Err(err).Msg("close failed")
		}
	}
}
