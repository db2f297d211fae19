package models

import "time"

// MCacheRow is one persistent-cache entry on the edge side, keyed by
// (assetId, range, currency).
type MCacheRow struct {
	Series     *MMarketSeries
	DataSource string
	UpdatedAt  time.Time
}
