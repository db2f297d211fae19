package interfaces

import (
	"context"

	"coindash/src/models"
)

// -----------------------------------------------------------------------------
// IEdgeClient is the client-side boundary to the edge cache service.
// -----------------------------------------------------------------------------

type IEdgeClient interface {

	// FetchSeries performs one remote round trip. A non-2xx response with a
	// well-formed error body is returned as an UpstreamError.
	FetchSeries(ctx context.Context, req models.MSeriesRequest) (*models.MSeriesResponse, error)
}
