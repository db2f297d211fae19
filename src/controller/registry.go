package controller

import "sync"

// -----------------------------------------------------------------------------
// Registry counts mounted consumers per tuple. Only the first consumer of a
// brand-new tuple runs the eager forced fetch and the related-range preload;
// later concurrent consumers reuse the cache and avoid a preload storm.
// -----------------------------------------------------------------------------

type Registry struct {
	mu     sync.Mutex
	counts map[string]int
}

// -----------------------------------------------------------------------------

func NewRegistry() *Registry {
	return &Registry{counts: make(map[string]int)}
}

// -----------------------------------------------------------------------------

// Register records a consumer for key and reports whether it is the first.
func (r *Registry) Register(key string) bool {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.counts[key]++
	return r.counts[key] == 1
}

// -----------------------------------------------------------------------------

// Release drops one consumer for key.
func (r *Registry) Release(key string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if r.counts[key] <= 1 {
		delete(r.counts, key)
		return
	}
	r.counts[key]--
}

// -----------------------------------------------------------------------------

// Count returns the number of mounted consumers for key.
func (r *Registry) Count(key string) int {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.counts[key]
}
