package embed

import (
	"context"
	"fmt"

	lru "github.com/hashicorp/golang-lru/v2"

	"github.com/recallkb/recall/internal/hash"
)

// DefaultCacheSize is the number of embeddings kept in memory.
const DefaultCacheSize = 4096

// CachedEmbedder wraps an Embedder with an LRU cache keyed by content
// hash. Chunks re-embedded across incremental runs hit the cache instead
// of recomputing.
type CachedEmbedder struct {
	inner Embedder
	cache *lru.Cache[string, []float32]
}

// NewCachedEmbedder wraps inner with a cache of the given size.
// size <= 0 uses DefaultCacheSize.
func NewCachedEmbedder(inner Embedder, size int) (*CachedEmbedder, error) {
	if size <= 0 {
		size = DefaultCacheSize
	}
	cache, err := lru.New[string, []float32](size)
	if err != nil {
		return nil, fmt.Errorf("create embedding cache: %w", err)
	}
	return &CachedEmbedder{inner: inner, cache: cache}, nil
}

// Embed returns the cached vector when available, otherwise delegates.
func (e *CachedEmbedder) Embed(ctx context.Context, text string) ([]float32, error) {
	key := hash.Content(text)
	if v, ok := e.cache.Get(key); ok {
		return v, nil
	}

	v, err := e.inner.Embed(ctx, text)
	if err != nil {
		return nil, err
	}
	e.cache.Add(key, v)
	return v, nil
}

// Dimensions returns the wrapped embedder's dimension.
func (e *CachedEmbedder) Dimensions() int {
	return e.inner.Dimensions()
}

// ModelName returns the wrapped embedder's model identifier.
func (e *CachedEmbedder) ModelName() string {
	return e.inner.ModelName()
}

// Close purges the cache and closes the wrapped embedder.
func (e *CachedEmbedder) Close() error {
	e.cache.Purge()
	return e.inner.Close()
}

// Verify interface implementation.
var (
	_ Embedder = (*StaticEmbedder)(nil)
	_ Embedder = (*CachedEmbedder)(nil)
)
