package interfaces

import (
	"time"

	"coindash/src/models"
)

// -----------------------------------------------------------------------------
// ICacheStore defines the contract for the edge's persistent series cache.
// -----------------------------------------------------------------------------

type ICacheStore interface {

	// -----------------------------------------------------------------------------

	// Initialize sets up the database schema and tables.
	Initialize() error

	// -----------------------------------------------------------------------------

	// GetSeries returns the cached row for a tuple, or (nil, nil) when no
	// row exists.
	GetSeries(assetID, rng, currency string) (*models.MCacheRow, error)

	// -----------------------------------------------------------------------------

	// UpsertSeries writes a row, last-write-wins on the composite key.
	// Callers must never pass synthetic series.
	UpsertSeries(series *models.MMarketSeries, dataSource string) error

	// -----------------------------------------------------------------------------

	// CleanupStale removes rows older than maxAge. Returns rows removed.
	CleanupStale(maxAge time.Duration) (int64, error)

	// -----------------------------------------------------------------------------

	// Close the database connection
	Close() error
}
