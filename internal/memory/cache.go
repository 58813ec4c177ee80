package memory

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/haasonsaas/agentcore/internal/memory/embeddings"
)

// embeddingCacheKey identifies one cached vector: the embedding model and
// the content hash of the text it was computed from.
type embeddingCacheKey struct {
	model string
	hash  string
}

// embeddingCache is the globally shared, agent-independent cache keyed by
// (embedding_model, content_hash). Concurrent misses for the same key are
// coalesced into a single encoder call via a generics singleflight group.
type embeddingCache struct {
	mu    sync.RWMutex
	items map[embeddingCacheKey][]float32

	group group[embeddingCacheKey, []float32]
}

func newEmbeddingCache() *embeddingCache {
	return &embeddingCache{items: make(map[embeddingCacheKey][]float32)}
}

// get returns the cached vector for text under the given model, computing
// and caching it via embedder on a miss. If embedder is nil (encoder
// unavailable) it returns (nil, nil): the caller must degrade gracefully to
// empty results rather than treat this as an error.
func (c *embeddingCache) get(ctx context.Context, embedder embeddings.Provider, model, text string) ([]float32, error) {
	key := embeddingCacheKey{model: model, hash: contentHash(text)}

	c.mu.RLock()
	if v, ok := c.items[key]; ok {
		c.mu.RUnlock()
		return v, nil
	}
	c.mu.RUnlock()

	if embedder == nil {
		return nil, nil
	}

	vec, err, _ := c.group.Do(key, func() ([]float32, error) {
		return embedder.Embed(ctx, text)
	})
	if err != nil {
		return nil, fmt.Errorf("embed query: %w", err)
	}

	c.mu.Lock()
	c.items[key] = vec
	c.mu.Unlock()
	return vec, nil
}

func contentHash(text string) string {
	sum := sha256.Sum256([]byte(text))
	return hex.EncodeToString(sum[:])
}

// group is a minimal generics singleflight: only one encoder call is ever
// in flight per key, duplicate callers block on the same result.
type group[K comparable, V any] struct {
	mu    sync.Mutex
	calls map[K]*call[V]
}

type call[V any] struct {
	wg  sync.WaitGroup
	val V
	err error
}

func (g *group[K, V]) Do(key K, fn func() (V, error)) (V, error, bool) {
	g.mu.Lock()
	if g.calls == nil {
		g.calls = make(map[K]*call[V])
	}
	if c, ok := g.calls[key]; ok {
		g.mu.Unlock()
		c.wg.Wait()
		return c.val, c.err, true
	}

	c := new(call[V])
	c.wg.Add(1)
	g.calls[key] = c
	g.mu.Unlock()

	c.val, c.err = fn()

	g.mu.Lock()
	delete(g.calls, key)
	g.mu.Unlock()
	c.wg.Done()

	return c.val, c.err, false
}
