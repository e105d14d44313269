package ai

import (
	"context"

	"github.com/rs/zerolog/log"

	"clinic-agent/internal/cache"
	"clinic-agent/internal/metrics"
)

type VectorCache interface {
	Get(ctx context.Context, key string) ([]float32, bool, error)
	Set(ctx context.Context, key string, vec []float32) error
}

// CachedEmbedder consults the cache before calling the provider. Cache errors
// never fail an embedding.
type CachedEmbedder struct {
	next  Embedder
	cache VectorCache
	model string
}

func NewCachedEmbedder(next Embedder, c VectorCache, model string) *CachedEmbedder {
	return &CachedEmbedder{next: next, cache: c, model: model}
}

func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := cache.Key(e.model, text)

	vec, ok, err := e.cache.Get(ctx, key)
	if err != nil {
		log.Warn().Err(err).Msg("embedding cache read failed")
	}
	if ok {
		metrics.EmbeddingCache.WithLabelValues("hit").Inc()
		return vec, nil
	}
	metrics.EmbeddingCache.WithLabelValues("miss").Inc()

	vec, err = e.next.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	if err := e.cache.Set(ctx, key, vec); err != nil {
		log.Warn().Err(err).Msg("embedding cache write failed")
	}
	return vec, nil
}
