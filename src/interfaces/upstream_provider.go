package interfaces

import (
	"context"

	"coindash/src/models"
)

// -----------------------------------------------------------------------------
// IUpstreamProvider is one opaque market-data vendor behind a fetch call.
// -----------------------------------------------------------------------------

type IUpstreamProvider interface {

	// Name returns the unique identifier of the provider
	Name() string

	// -----------------------------------------------------------------------------

	// FetchSeries retrieves a full series for the tuple, or an error.
	// Implementations tag the returned series with their own provenance.
	FetchSeries(ctx context.Context, assetID, rng, currency string) (*models.MMarketSeries, error)
}
