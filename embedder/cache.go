package embedder

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"fmt"
	"sync"

	"github.com/sweetpotato0/ragline/pkg/logging"
)

// Cache stores embeddings keyed by text hash and model version so repeated
// ingestion or retrieval of the same text skips the upstream call.
type Cache interface {
	Get(ctx context.Context, key string) (Embedding, bool)
	Put(ctx context.Context, key string, emb Embedding) error
}

// CacheKey derives the cache key for a text under a given model version.
func CacheKey(text, version string) string {
	sum := sha256.Sum256([]byte(text))
	return fmt.Sprintf("%s:%s", version, hex.EncodeToString(sum[:]))
}

// MemoryCache is a concurrency-safe in-process cache with no eviction.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]Embedding
}

// NewMemoryCache creates an empty in-memory embedding cache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]Embedding)}
}

// Get returns the cached embedding for key, if present.
func (c *MemoryCache) Get(ctx context.Context, key string) (Embedding, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	emb, ok := c.entries[key]
	return emb, ok
}

// Put stores the embedding under key.
func (c *MemoryCache) Put(ctx context.Context, key string, emb Embedding) error {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries[key] = emb
	return nil
}

// Len returns the number of cached entries.
func (c *MemoryCache) Len() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.entries)
}

// CachedService decorates a Service with a Cache. A hit skips the upstream
// call entirely; misses are embedded in one upstream batch and written back.
// Concurrent misses for the same text may both call upstream, which is
// acceptable; the cache itself stays consistent.
type CachedService struct {
	base  Service
	cache Cache
}

// NewCachedService wraps base with cache.
func NewCachedService(base Service, cache Cache) *CachedService {
	return &CachedService{base: base, cache: cache}
}

// Embed implements Service.
func (s *CachedService) Embed(ctx context.Context, req Request) ([]Embedding, error) {
	if s.cache == nil {
		return s.base.Embed(ctx, req)
	}

	out := make([]Embedding, len(req.Texts))
	missing := make([]string, 0, len(req.Texts))
	missingIdx := make([]int, 0, len(req.Texts))
	for i, text := range req.Texts {
		if emb, ok := s.cache.Get(ctx, CacheKey(text, req.Version)); ok {
			out[i] = emb
			continue
		}
		missing = append(missing, text)
		missingIdx = append(missingIdx, i)
	}
	if len(missing) == 0 {
		return out, nil
	}

	upstream := req
	upstream.Texts = missing
	embedded, err := s.base.Embed(ctx, upstream)
	if err != nil {
		return nil, err
	}
	if len(embedded) != len(missing) {
		return nil, fmt.Errorf("embedder: expected %d embeddings, got %d", len(missing), len(embedded))
	}

	for i, emb := range embedded {
		out[missingIdx[i]] = emb
		if err := s.cache.Put(ctx, CacheKey(missing[i], req.Version), emb); err != nil {
			logging.WithComponent("embedder_cache").Warn("cache write failed", "error", err)
		}
	}
	return out, nil
}
