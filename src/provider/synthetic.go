package provider

import (
	"math"
	"strconv"
	"time"

	"coindash/src/models"
)

// -----------------------------------------------------------------------------
// Synthetic series generation. Used only as the error-fallback payload so the
// client always receives something chartable; synthetic series are excluded
// from every cache write path and from broadcast.
// -----------------------------------------------------------------------------

const syntheticSource = "error-fallback"

// SyntheticSeries builds a deterministic placeholder series for a tuple.
func SyntheticSeries(assetID, rng, currency string) *models.MMarketSeries {
	days, err := strconv.Atoi(rng)
	if err != nil || days <= 0 {
		days = 7
	}

	now := time.Now()
	points := 24 * days
	if points > 168 {
		points = 168
	}
	step := time.Duration(days) * 24 * time.Hour / time.Duration(points)

	prices := make([]models.MPricePoint, 0, points)
	volumes := make([]models.MPricePoint, 0, points)
	base := 100.0

	for i := 0; i < points; i++ {
		ts := now.Add(-time.Duration(points-1-i) * step).UnixMilli()
		wave := math.Sin(float64(i) / 8.0)
		prices = append(prices, models.MPricePoint{Timestamp: ts, Value: base * (1 + 0.05*wave)})
		volumes = append(volumes, models.MPricePoint{Timestamp: ts, Value: base * 1000 * (1 + 0.2*math.Abs(wave))})
	}

	return &models.MMarketSeries{
		AssetID:      assetID,
		Range:        rng,
		Currency:     currency,
		PricePoints:  prices,
		VolumePoints: volumes,
		Provenance:   syntheticSource,
		IsSynthetic:  true,
		FetchedAt:    now.UnixMilli(),
	}
}
