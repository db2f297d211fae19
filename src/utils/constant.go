package utils

import "time"

// -----------------------------------------------------------------------------
// Timing constants for the acquisition pipeline
// -----------------------------------------------------------------------------

const (
	// MemoryCacheTTL is the client-side freshness window.
	MemoryCacheTTL = 15 * time.Second

	// RemoteTimeout bounds one full remote round trip.
	RemoteTimeout = 15 * time.Second

	// QueueJobDelay is inserted between queued jobs to avoid bursts
	// against upstream rate limits.
	QueueJobDelay = 250 * time.Millisecond

	// ReconnectDelay between realtime reconnection attempts.
	ReconnectDelay = 10 * time.Second

	// MaxReconnectAttempts before a topic channel is declared failed.
	MaxReconnectAttempts = 3

	// PollIntervalIntraday / PollIntervalDefault drive the polling fallback.
	PollIntervalIntraday = 60 * time.Second
	PollIntervalDefault  = 300 * time.Second

	// ServerFreshnessIntraday / ServerFreshnessDefault are the persistent
	// cache windows on the edge side.
	ServerFreshnessIntraday = 60 * time.Second
	ServerFreshnessDefault  = 300 * time.Second

	// CleanupProbability is the per-request chance of triggering a
	// best-effort stale-row cleanup on the edge.
	CleanupProbability = 0.01
)

// RangeIntraday is the shortest range bucket ("1" day).
const RangeIntraday = "1"

// -----------------------------------------------------------------------------

// DefaultRanges returns the range buckets every asset is served in.
func DefaultRanges() []string {
	return []string{"1", "7", "30"}
}

// -----------------------------------------------------------------------------

// PollInterval returns the polling cadence for a range bucket.
func PollInterval(rng string) time.Duration {
	if rng == RangeIntraday {
		return PollIntervalIntraday
	}
	return PollIntervalDefault
}

// -----------------------------------------------------------------------------

// FreshnessWindow returns the persistent-cache freshness window for a range.
func FreshnessWindow(rng string) time.Duration {
	if rng == RangeIntraday {
		return ServerFreshnessIntraday
	}
	return ServerFreshnessDefault
}
