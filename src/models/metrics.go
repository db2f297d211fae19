package models

// MServiceMetrics is the counters snapshot exposed at /api/metrics.
type MServiceMetrics struct {
	CacheHits      int64 `json:"cache_hits"`
	CacheMisses    int64 `json:"cache_misses"`
	UpstreamCalls  int64 `json:"upstream_calls"`
	UpstreamErrors int64 `json:"upstream_errors"`
	Broadcasts     int64 `json:"broadcasts"`
	CleanupRuns    int64 `json:"cleanup_runs"`
	LastUpdate     int64 `json:"last_update"`
}
