package provider

import (
	"context"
	"encoding/json"
	"fmt"
	"sort"
	"time"

	"coindash/src/helpers"
	"coindash/src/interfaces"
	"coindash/src/logger"
	"coindash/src/models"
)

// -----------------------------------------------------------------------------
// CoinGeckoProvider fetches a market chart from the CoinGecko API and
// normalizes it into an MMarketSeries.
// -----------------------------------------------------------------------------

const defaultCoinGeckoURL = "https://api.coingecko.com/api/v3"

type CoinGeckoProvider struct {
	ProviderConfig models.MProviderConfig
	Network        interfaces.INetworkManager
	Logger         *logger.Logger
}

// marketChartResponse mirrors the vendor's [[timestamp, value], ...] arrays.
type marketChartResponse struct {
	Prices       [][2]float64 `json:"prices"`
	MarketCaps   [][2]float64 `json:"market_caps"`
	TotalVolumes [][2]float64 `json:"total_volumes"`
}

// -----------------------------------------------------------------------------

func NewCoinGeckoProvider(cfg models.MProviderConfig, netMgr interfaces.INetworkManager) *CoinGeckoProvider {
	return &CoinGeckoProvider{
		ProviderConfig: cfg,
		Network:        netMgr,
		Logger:         logger.NewLogger("", "CoinGeckoProvider-"+cfg.Name),
	}
}

// -----------------------------------------------------------------------------

func (p *CoinGeckoProvider) Name() string {
	return p.ProviderConfig.Name
}

// -----------------------------------------------------------------------------

func (p *CoinGeckoProvider) baseURL() string {
	if p.ProviderConfig.BaseURL != "" {
		return p.ProviderConfig.BaseURL
	}
	return defaultCoinGeckoURL
}

// -----------------------------------------------------------------------------

// FetchSeries retrieves the market chart for one tuple.
func (p *CoinGeckoProvider) FetchSeries(ctx context.Context, assetID, rng, currency string) (*models.MMarketSeries, error) {
	url := fmt.Sprintf("%s/coins/%s/market_chart", p.baseURL(), assetID)
	params := map[string]string{
		"vs_currency": currency,
		"days":        rng,
	}
	if p.ProviderConfig.APIKey != "" {
		params["x_cg_api_key"] = p.ProviderConfig.APIKey
	}

	body, err := p.Network.Get(ctx, url, params)
	if err != nil {
		return nil, helpers.NewUpstreamError("coingecko request failed", err)
	}

	var chart marketChartResponse
	if err := json.Unmarshal(body, &chart); err != nil {
		return nil, helpers.NewInvalidFormatError("coingecko response is not valid JSON")
	}
	if len(chart.Prices) == 0 {
		return nil, helpers.NewInvalidFormatError("coingecko response has no prices")
	}

	series := &models.MMarketSeries{
		AssetID:         assetID,
		Range:           rng,
		Currency:        currency,
		PricePoints:     toPoints(chart.Prices),
		VolumePoints:    toPoints(chart.TotalVolumes),
		MarketCapPoints: toPoints(chart.MarketCaps),
		Provenance:      p.Name(),
		FetchedAt:       time.Now().UnixMilli(),
	}
	series.Metadata = buildMetadata(series)

	return series, nil
}

// -----------------------------------------------------------------------------

// toPoints converts vendor pairs into sorted MPricePoints. The upstream is
// usually already ascending; sort anyway since nothing guarantees it.
func toPoints(pairs [][2]float64) []models.MPricePoint {
	points := make([]models.MPricePoint, 0, len(pairs))
	for _, pair := range pairs {
		points = append(points, models.MPricePoint{
			Timestamp: int64(pair[0]),
			Value:     pair[1],
		})
	}
	sort.Slice(points, func(i, j int) bool {
		return points[i].Timestamp < points[j].Timestamp
	})
	return points
}

// -----------------------------------------------------------------------------

// buildMetadata derives the headline figures from the series tails.
func buildMetadata(series *models.MMarketSeries) *models.MSeriesMetadata {
	meta := &models.MSeriesMetadata{LastUpdated: series.FetchedAt}

	if n := len(series.PricePoints); n > 0 {
		last := series.PricePoints[n-1].Value
		meta.CurrentPrice = &last

		if first := series.PricePoints[0].Value; first != 0 {
			change := (last - first) / first * 100
			if series.Range == "1" {
				meta.PriceChange24h = &change
			} else if series.Range == "7" {
				meta.PriceChange7d = &change
			}
		}
	}
	if n := len(series.VolumePoints); n > 0 {
		vol := series.VolumePoints[n-1].Value
		meta.Volume24h = &vol
	}
	if n := len(series.MarketCapPoints); n > 0 {
		cap := series.MarketCapPoints[n-1].Value
		meta.MarketCap = &cap
	}

	return meta
}
