package metadata

import (
	"context"
	"sync"

	"go.uber.org/zap"
)

// Cache stores resolved product metadata by reference.
type Cache interface {
	// Get returns the cached value and whether it was present.
	Get(ctx context.Context, ref string) (ProductInfo, bool, error)
	// Put stores a value, replacing any previous one.
	Put(ctx context.Context, ref string, info ProductInfo) error
}

// MemoryCache is an unbounded Cache that lives as long as the process.
// It is safe for concurrent use.
type MemoryCache struct {
	mu      sync.RWMutex
	entries map[string]ProductInfo
}

// NewMemoryCache creates an empty MemoryCache.
func NewMemoryCache() *MemoryCache {
	return &MemoryCache{entries: make(map[string]ProductInfo)}
}

// Get implements Cache.
func (m *MemoryCache) Get(_ context.Context, ref string) (ProductInfo, bool, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	info, ok := m.entries[ref]
	return info, ok, nil
}

// Put implements Cache.
func (m *MemoryCache) Put(_ context.Context, ref string, info ProductInfo) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries[ref] = info
	return nil
}

// Len returns the number of cached entries.
func (m *MemoryCache) Len() int {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries)
}

// Cached is a Lookup that consults a Cache before the wrapped Lookup.
//
// Only successful lookups are cached. Cache failures are logged and
// otherwise ignored: the wrapped Lookup is still consulted.
type Cached struct {
	next   Lookup
	cache  Cache
	logger *zap.Logger
}

// CachedOption configures a Cached lookup.
type CachedOption func(*Cached)

// WithLogger sets the logger used for cache failures.
func WithLogger(l *zap.Logger) CachedOption {
	return func(c *Cached) {
		if l != nil {
			c.logger = l
		}
	}
}

// NewCached wraps next with cache.
func NewCached(next Lookup, cache Cache, opts ...CachedOption) *Cached {
	c := &Cached{next: next, cache: cache, logger: zap.NewNop()}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Lookup implements Lookup.
func (c *Cached) Lookup(ctx context.Context, ref string) (ProductInfo, error) {
	key := catalogKey(ref)
	info, ok, err := c.cache.Get(ctx, key)
	if err != nil {
		c.logger.Warn("metadata cache read failed", zap.String("ref", ref), zap.Error(err))
	} else if ok {
		return info, nil
	}

	info, err = c.next.Lookup(ctx, ref)
	if err != nil {
		return ProductInfo{}, err
	}
	if err := c.cache.Put(ctx, key, info); err != nil {
		c.logger.Warn("metadata cache write failed", zap.String("ref", ref), zap.Error(err))
	}
	return info, nil
}
