package marketdata

import (
	"context"
	"sync"
	"time"

	"stocktrend/internal/model"
)

// DefaultTTL is the freshness window of a memoized series.
const DefaultTTL = 5 * time.Minute

// Cache memoizes generated series by key. Implementations treat every
// backend failure as a miss.
type Cache interface {
	// Name identifies the backend in logs and metrics.
	Name() string
	Get(ctx context.Context, key string) ([]model.Bar, bool)
	Set(ctx context.Context, key string, bars []model.Bar)
}

type cacheEntry struct {
	bars     []model.Bar
	storedAt time.Time
}

// MemoryCache is an in-process map with expiry checked on read.
// There is no background eviction: an expired entry is dropped when it is read.
type MemoryCache struct {
	mu      sync.Mutex
	ttl     time.Duration
	entries map[string]cacheEntry

	now func() time.Time
}

// NewMemoryCache creates a memory cache. A non-positive ttl uses DefaultTTL.
func NewMemoryCache(ttl time.Duration) *MemoryCache {
	if ttl <= 0 {
		ttl = DefaultTTL
	}
	return &MemoryCache{
		ttl:     ttl,
		entries: make(map[string]cacheEntry),
		now:     time.Now,
	}
}

func (c *MemoryCache) Name() string { return "memory" }

// Get returns the cached series if it is younger than the TTL.
func (c *MemoryCache) Get(_ context.Context, key string) ([]model.Bar, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()

	e, ok := c.entries[key]
	if !ok {
		return nil, false
	}
	if c.now().Sub(e.storedAt) >= c.ttl {
		delete(c.entries, key)
		return nil, false
	}
	return e.bars, true
}

// Set stores a series, replacing any previous entry (last write wins).
func (c *MemoryCache) Set(_ context.Context, key string, bars []model.Bar) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{bars: bars, storedAt: c.now()}
	c.mu.Unlock()
}

// Len returns the number of stored entries, expired or not.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
