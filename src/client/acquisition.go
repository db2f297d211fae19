package client

import (
	"context"
	"errors"
	"time"

	"coindash/src/cache"
	"coindash/src/helpers"
	"coindash/src/interfaces"
	"coindash/src/logger"
	"coindash/src/models"
	"coindash/src/queue"
	"coindash/src/utils"
)

// -----------------------------------------------------------------------------
// AcquisitionClient orchestrates cache lookup, queued remote call and cache
// write for one process. Every failure path resolves to an MFetchResult;
// nothing escapes this boundary as a panic or raw error.
// -----------------------------------------------------------------------------

type AcquisitionClient struct {
	Cache  *cache.MemoryCache
	Queue  *queue.RequestQueue
	Edge   interfaces.IEdgeClient
	Logger *logger.Logger

	// Timeout bounds one remote round trip. Defaults to utils.RemoteTimeout.
	Timeout time.Duration
}

// -----------------------------------------------------------------------------

func NewAcquisitionClient(c *cache.MemoryCache, q *queue.RequestQueue, edge interfaces.IEdgeClient, l *logger.Logger) *AcquisitionClient {
	return &AcquisitionClient{
		Cache:   c,
		Queue:   q,
		Edge:    edge,
		Logger:  l,
		Timeout: utils.RemoteTimeout,
	}
}

// -----------------------------------------------------------------------------

// Fetch resolves a series for the tuple. force bypasses the freshness check
// but still joins an in-flight resolution for the same key. The remote call
// runs under its own deadline, detached from ctx, so a caller abandoning the
// wait never aborts a resolution other consumers joined; ctx only bounds
// this caller's wait.
func (a *AcquisitionClient) Fetch(ctx context.Context, assetID, rng, currency string, force bool) *models.MFetchResult {
	key := utils.TopicKey(assetID, rng, currency)

	if !force {
		if series := a.Cache.Get(key); series != nil {
			return &models.MFetchResult{Series: series, FromCache: true, Source: "memory-cache"}
		}
	}

	series, err := a.Cache.Resolve(ctx, key, func() (*models.MMarketSeries, error) {
		return a.Queue.EnqueueWait(func() (*models.MMarketSeries, error) {
			return a.remoteCall(assetID, rng, currency, force)
		})
	})

	if err != nil {
		// Degrade to the stale entry whenever one exists, however old.
		if stale := a.Cache.GetStale(key); stale != nil {
			a.Logger.Warning("Fetch failed for %s, serving stale cache: %v", key, err)
			return &models.MFetchResult{Series: stale, Source: "stale-memory-cache"}
		}
		a.Logger.Error("Fetch failed for %s with no fallback: %v", key, err)
		return &models.MFetchResult{Err: err}
	}

	return &models.MFetchResult{Series: series, Source: series.Provenance}
}

// -----------------------------------------------------------------------------

// remoteCall performs one round trip to the edge service, validates the
// response shape and writes the memory cache.
func (a *AcquisitionClient) remoteCall(assetID, rng, currency string, force bool) (*models.MMarketSeries, error) {
	ctx, cancel := context.WithTimeout(context.Background(), a.Timeout)
	defer cancel()

	resp, err := a.Edge.FetchSeries(ctx, models.MSeriesRequest{
		AssetID:      assetID,
		Range:        rng,
		Currency:     currency,
		ForceRefresh: force,
	})
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) {
			return nil, helpers.NewTimeoutError("remote call timed out", err)
		}
		return nil, err
	}

	if err := validateSeries(&resp.MMarketSeries); err != nil {
		return nil, err
	}

	series := resp.MMarketSeries
	if series.Provenance == "" {
		series.Provenance = resp.DataSource
	}

	key := utils.TopicKey(assetID, rng, currency)
	a.Cache.Put(key, &series)
	return &series, nil
}

// -----------------------------------------------------------------------------

// validateSeries rejects responses without a usable price series.
func validateSeries(series *models.MMarketSeries) error {
	if series == nil || len(series.PricePoints) == 0 {
		return helpers.NewInvalidFormatError("response has no price points")
	}
	for i := 1; i < len(series.PricePoints); i++ {
		if series.PricePoints[i].Timestamp < series.PricePoints[i-1].Timestamp {
			return helpers.NewInvalidFormatError("price points out of order")
		}
	}
	return nil
}
