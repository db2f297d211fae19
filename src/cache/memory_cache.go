package cache

import (
	"context"
	"sync"
	"time"

	"coindash/src/logger"
	"coindash/src/models"
	"coindash/src/utils"
)

// -----------------------------------------------------------------------------
// MemoryCache is the client-side short-TTL cache plus the pending-request
// map that de-duplicates concurrent identical fetches. Entries are retained
// past their freshness window as a last-resort fallback (GetStale).
// -----------------------------------------------------------------------------

type cacheEntry struct {
	series    *models.MMarketSeries
	timestamp time.Time
}

// pendingHandle is a shared future: resolved exactly once, fanned out to
// every caller that joined while the factory was in flight.
type pendingHandle struct {
	done   chan struct{}
	series *models.MMarketSeries
	err    error
}

// -----------------------------------------------------------------------------

type MemoryCache struct {
	Logger *logger.Logger

	// Now is the clock; tests override it to step time.
	Now func() time.Time

	ttl     time.Duration
	mu      sync.Mutex
	entries map[string]*cacheEntry
	pending map[string]*pendingHandle
}

// -----------------------------------------------------------------------------

func NewMemoryCache(l *logger.Logger) *MemoryCache {
	return &MemoryCache{
		Logger:  l,
		Now:     time.Now,
		ttl:     utils.MemoryCacheTTL,
		entries: make(map[string]*cacheEntry),
		pending: make(map[string]*pendingHandle),
	}
}

// -----------------------------------------------------------------------------

// Get returns the cached series only while it is inside the freshness window.
func (c *MemoryCache) Get(key string) *models.MMarketSeries {
	c.mu.Lock()
	defer c.mu.Unlock()

	entry, ok := c.entries[key]
	if !ok {
		return nil
	}
	if c.Now().Sub(entry.timestamp) >= c.ttl {
		return nil
	}
	return entry.series
}

// -----------------------------------------------------------------------------

// GetStale ignores freshness. Error-path fallback only.
func (c *MemoryCache) GetStale(key string) *models.MMarketSeries {
	c.mu.Lock()
	defer c.mu.Unlock()

	if entry, ok := c.entries[key]; ok {
		return entry.series
	}
	return nil
}

// -----------------------------------------------------------------------------

// Put overwrites the entry for key. Synthetic series are never cached.
func (c *MemoryCache) Put(key string, series *models.MMarketSeries) {
	if series == nil {
		return
	}
	if series.IsSynthetic {
		c.Logger.Debug("Refusing to cache synthetic series for %s", key)
		return
	}

	c.mu.Lock()
	c.entries[key] = &cacheEntry{series: series, timestamp: c.Now()}
	c.mu.Unlock()
}

// -----------------------------------------------------------------------------

// Resolve joins an in-flight resolution for key when one exists; otherwise
// it runs factory as the sole resolver. The handle is deregistered when the
// factory settles, success or failure, before the result fans out. At most
// one factory runs per key at any instant.
func (c *MemoryCache) Resolve(ctx context.Context, key string, factory func() (*models.MMarketSeries, error)) (*models.MMarketSeries, error) {
	c.mu.Lock()
	if h, ok := c.pending[key]; ok {
		c.mu.Unlock()
		select {
		case <-h.done:
			return h.series, h.err
		case <-ctx.Done():
			// The shared resolution keeps running for other joiners.
			return nil, ctx.Err()
		}
	}

	h := &pendingHandle{done: make(chan struct{})}
	c.pending[key] = h
	c.mu.Unlock()

	series, err := factory()

	h.series = series
	h.err = err

	c.mu.Lock()
	delete(c.pending, key)
	c.mu.Unlock()

	close(h.done)
	return series, err
}

// -----------------------------------------------------------------------------

// PendingCount returns the number of in-flight resolutions.
func (c *MemoryCache) PendingCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.pending)
}

// -----------------------------------------------------------------------------

// Len returns the number of cached entries, fresh or stale.
func (c *MemoryCache) Len() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.entries)
}
