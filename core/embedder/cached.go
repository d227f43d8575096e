package embedder

import (
	"context"
	"sync/atomic"

	lru "github.com/hashicorp/golang-lru/v2"
)

// DefaultCacheSize bounds the number of distinct texts held by a Cached
// embedder.
const DefaultCacheSize = 4096

// Cached wraps an Embedder with an LRU so identical strings are embedded
// once. Safe for concurrent use.
type Cached struct {
	inner Embedder
	cache *lru.Cache[string, []float32]

	hits   atomic.Int64
	misses atomic.Int64
}

// NewCached wraps inner with a cache of the given size. Non-positive sizes
// fall back to DefaultCacheSize.
func NewCached(inner Embedder, size int) (*Cached, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, err
	}
	return &Cached{inner: inner, cache: cache}, nil
}

func (c *Cached) Dimension() int {
	return c.inner.Dimension()
}

func (c *Cached) Embed(ctx context.Context, text string) ([]float32, error) {
	if vec, ok := c.cache.Get(text); ok {
		c.hits.Add(1)
		return vec, nil
	}
	c.misses.Add(1)

	vec, err := c.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	c.cache.Add(text, vec)
	return vec, nil
}

func (c *Cached) EmbedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))
	var missing []string
	var missingIdx []int

	for i, text := range texts {
		if vec, ok := c.cache.Get(text); ok {
			c.hits.Add(1)
			out[i] = vec
			continue
		}
		c.misses.Add(1)
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}

	if len(missing) == 0 {
		return out, nil
	}

	embedded, err := c.inner.EmbedBatch(ctx, missing)
	if err != nil {
		return nil, err
	}
	for j, vec := range embedded {
		c.cache.Add(missing[j], vec)
		out[missingIdx[j]] = vec
	}
	return out, nil
}

// Stats reports cache hits and misses since creation.
func (c *Cached) Stats() (hits, misses int64) {
	return c.hits.Load(), c.misses.Load()
}
