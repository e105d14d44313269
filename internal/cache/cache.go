// Package cache stores embedding vectors in Redis.
package cache

import (
	"context"
	"crypto/sha256"
	"encoding/binary"
	"encoding/hex"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/redis/go-redis/v9"
)

const keyPrefix = "clinic-agent:emb:"

type EmbeddingCache struct {
	rdb *redis.Client
	ttl time.Duration
}

// NewRedis connects to the Redis instance at url and checks it answers.
func NewRedis(ctx context.Context, url string, ttl time.Duration) (*EmbeddingCache, error) {
	opts, err := redis.ParseURL(url)
	if err != nil {
		return nil, fmt.Errorf("parse redis url: %w", err)
	}
	rdb := redis.NewClient(opts)

	pingCtx, cancel := context.WithTimeout(ctx, 5*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping failed: %w", err)
	}
	return &EmbeddingCache{rdb: rdb, ttl: ttl}, nil
}

// Key derives the cache key for a model and input text.
func Key(model, text string) string {
	h := sha256.Sum256([]byte(model + "\x00" + text))
	return keyPrefix + hex.EncodeToString(h[:])
}

func (c *EmbeddingCache) Get(ctx context.Context, key string) ([]float32, bool, error) {
	b, err := c.rdb.Get(ctx, key).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	v, err := decode(b)
	if err != nil {
		return nil, false, err
	}
	return v, true, nil
}

func (c *EmbeddingCache) Set(ctx context.Context, key string, vec []float32) error {
	return c.rdb.Set(ctx, key, encode(vec), c.ttl).Err()
}

func (c *EmbeddingCache) Close() error {
	return c.rdb.Close()
}

func encode(vec []float32) []byte {
	b := make([]byte, 4*len(vec))
	for i, f := range vec {
		binary.LittleEndian.PutUint32(b[4*i:], math.Float32bits(f))
	}
	return b
}

func decode(b []byte) ([]float32, error) {
	if len(b)%4 != 0 {
		return nil, fmt.Errorf("corrupt embedding: %d bytes", len(b))
	}
	vec := make([]float32, len(b)/4)
	for i := range vec {
		vec[i] = math.Float32frombits(binary.LittleEndian.Uint32(b[4*i:]))
	}
	return vec, nil
}
