package models

// MPricePoint is a single (timestamp, value) sample.
// Timestamps are unix milliseconds, ascending within a series.
type MPricePoint struct {
	Timestamp int64   `json:"timestamp"`
	Value     float64 `json:"value"`
}

// -----------------------------------------------------------------------------

// MSeriesMetadata carries the optional headline figures an upstream provider
// may attach to a series. Pointers stay nil when the provider omits a field.
type MSeriesMetadata struct {
	CurrentPrice     *float64 `json:"current_price,omitempty"`
	Volume24h        *float64 `json:"volume_24h,omitempty"`
	MarketCap        *float64 `json:"market_cap,omitempty"`
	PriceChange24h   *float64 `json:"price_change_24h,omitempty"`
	PriceChange7d    *float64 `json:"price_change_7d,omitempty"`
	LastUpdated      int64    `json:"last_updated,omitempty"`
}

// -----------------------------------------------------------------------------

// MMarketSeries is the unit of cached and fetched data.
type MMarketSeries struct {
	AssetID         string           `json:"asset_id"`
	Range           string           `json:"range"`
	Currency        string           `json:"currency"`
	PricePoints     []MPricePoint    `json:"price_points"`
	VolumePoints    []MPricePoint    `json:"volume_points"`
	MarketCapPoints []MPricePoint    `json:"market_cap_points"`
	Metadata        *MSeriesMetadata `json:"metadata,omitempty"`
	Provenance      string           `json:"provenance"`
	IsSynthetic     bool             `json:"is_synthetic"`
	FetchedAt       int64            `json:"fetched_at"`
}
