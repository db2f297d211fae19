package server

import (
	"context"
	"math/rand"
	"sync/atomic"
	"time"

	"coindash/src/helpers"
	"coindash/src/interfaces"
	"coindash/src/logger"
	"coindash/src/models"
	"coindash/src/provider"
	"coindash/src/utils"
)

// -----------------------------------------------------------------------------
// CacheService is the edge cache-or-fetch pipeline: persistent cache read
// with range-dependent freshness, upstream provider chain on miss, upsert
// plus broadcast on fresh non-synthetic data, probabilistic best-effort
// cleanup of stale rows.
// -----------------------------------------------------------------------------

type CacheService struct {
	Store       interfaces.ICacheStore
	Providers   *provider.Chain
	Broadcaster interfaces.IBroadcaster
	Logger      *logger.Logger

	// CleanupProbability is the per-request chance of a cleanup pass;
	// RetentionAge is the row age it removes.
	CleanupProbability float64
	RetentionAge       time.Duration

	// Rand is the probability source; tests pin it.
	Rand func() float64

	// Now is the clock; tests override it.
	Now func() time.Time

	cacheHits      atomic.Int64
	cacheMisses    atomic.Int64
	upstreamCalls  atomic.Int64
	upstreamErrors atomic.Int64
	broadcasts     atomic.Int64
	cleanupRuns    atomic.Int64
	lastUpdate     atomic.Int64
}

// -----------------------------------------------------------------------------

func NewCacheService(store interfaces.ICacheStore, providers *provider.Chain,
	broadcaster interfaces.IBroadcaster, retention time.Duration, log *logger.Logger) *CacheService {

	return &CacheService{
		Store:              store,
		Providers:          providers,
		Broadcaster:        broadcaster,
		Logger:             log,
		CleanupProbability: utils.CleanupProbability,
		RetentionAge:       retention,
		Rand:               rand.Float64,
		Now:                time.Now,
	}
}

// -----------------------------------------------------------------------------

// Resolve serves one series request. On total upstream failure it returns
// the error together with a synthetic placeholder; the HTTP layer maps that
// to a tagged error payload with a 500 status.
func (s *CacheService) Resolve(ctx context.Context, req models.MSeriesRequest) (*models.MSeriesResponse, *models.MErrorResponse) {
	if !req.ForceRefresh {
		row, err := s.Store.GetSeries(req.AssetID, req.Range, req.Currency)
		if err != nil {
			s.Logger.Warning("Cache read failed for %s/%s/%s: %v", req.AssetID, req.Range, req.Currency, err)
		}
		if row != nil && s.Now().Sub(row.UpdatedAt) < utils.FreshnessWindow(req.Range) {
			s.cacheHits.Add(1)
			return &models.MSeriesResponse{
				MMarketSeries: *row.Series,
				FromCache:     true,
				CacheTime:     row.UpdatedAt.UTC().Format(time.RFC3339),
				DataSource:    row.DataSource,
			}, nil
		}
	}

	s.cacheMisses.Add(1)
	s.upstreamCalls.Add(1)

	series, err := s.Providers.FetchSeries(ctx, req.AssetID, req.Range, req.Currency)
	if err != nil {
		s.upstreamErrors.Add(1)
		s.Logger.Error("Upstream fetch failed for %s/%s/%s: %v", req.AssetID, req.Range, req.Currency, err)
		return nil, &models.MErrorResponse{
			Error:      err.Error(),
			IsMockData: true,
			DataSource: "error-fallback",
			Series:     provider.SyntheticSeries(req.AssetID, req.Range, req.Currency),
		}
	}

	// Synthetic data is displayable but never persisted or broadcast.
	if !series.IsSynthetic {
		if err := s.Store.UpsertSeries(series, series.Provenance); err != nil {
			s.Logger.Error("Cache upsert failed for %s/%s/%s: %v", req.AssetID, req.Range, req.Currency, err)
		}
		if s.Broadcaster != nil {
			s.Broadcaster.BroadcastSeries(series)
			s.broadcasts.Add(1)
		}
	}

	s.lastUpdate.Store(s.Now().UnixMilli())
	s.maybeCleanup()

	return &models.MSeriesResponse{
		MMarketSeries: *series,
		FromCache:     false,
		DataSource:    series.Provenance,
	}, nil
}

// -----------------------------------------------------------------------------

// maybeCleanup triggers a best-effort stale-row sweep with small fixed
// probability. Failure is logged, never fatal to the request.
func (s *CacheService) maybeCleanup() {
	if s.Rand() >= s.CleanupProbability {
		return
	}
	s.cleanupRuns.Add(1)
	if _, err := s.Store.CleanupStale(s.RetentionAge); err != nil {
		s.Logger.Warning("Stale-row cleanup failed: %v", err)
	}
}

// -----------------------------------------------------------------------------

// RunCleanup is the deterministic out-of-band sweep, called from a ticker.
func (s *CacheService) RunCleanup() {
	s.cleanupRuns.Add(1)
	if _, err := s.Store.CleanupStale(s.RetentionAge); err != nil {
		s.Logger.Warning("Scheduled cleanup failed: %v", err)
	}
}

// -----------------------------------------------------------------------------

// Metrics returns a counters snapshot.
func (s *CacheService) Metrics() models.MServiceMetrics {
	return models.MServiceMetrics{
		CacheHits:      s.cacheHits.Load(),
		CacheMisses:    s.cacheMisses.Load(),
		UpstreamCalls:  s.upstreamCalls.Load(),
		UpstreamErrors: s.upstreamErrors.Load(),
		Broadcasts:     s.broadcasts.Load(),
		CleanupRuns:    s.cleanupRuns.Load(),
		LastUpdate:     s.lastUpdate.Load(),
	}
}

// -----------------------------------------------------------------------------

// ValidateRequest rejects requests with missing tuple fields.
func ValidateRequest(req models.MSeriesRequest) error {
	if req.AssetID == "" || req.Range == "" || req.Currency == "" {
		return helpers.NewInvalidFormatError("assetId, range and currency are required")
	}
	return nil
}
