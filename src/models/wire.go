package models

// -----------------------------------------------------------------------------
// Client <-> Edge wire contract
// -----------------------------------------------------------------------------

// MSeriesRequest is the body of POST /api/series.
type MSeriesRequest struct {
	AssetID      string `json:"assetId"`
	Range        string `json:"range"`
	Currency     string `json:"currency"`
	ForceRefresh bool   `json:"forceRefresh"`
}

// -----------------------------------------------------------------------------

// MSeriesResponse is a MarketSeries plus cache provenance.
type MSeriesResponse struct {
	MMarketSeries
	FromCache  bool   `json:"fromCache"`
	CacheTime  string `json:"cacheTime,omitempty"` // ISO8601, set when FromCache
	DataSource string `json:"dataSource"`
}

// -----------------------------------------------------------------------------

// MErrorResponse is returned with a non-2xx status when the upstream chain
// fails entirely. Body stays well-formed JSON so the client never has to
// handle a bare transport error.
type MErrorResponse struct {
	Error      string         `json:"error"`
	IsMockData bool           `json:"isMockData"`
	DataSource string         `json:"dataSource"`
	Series     *MMarketSeries `json:"series,omitempty"` // synthetic placeholder, never cached
}

// -----------------------------------------------------------------------------

// MFetchResult is what DataAcquisitionClient hands back to consumers.
// Exactly one of Series/Err is meaningful except on the stale-fallback path,
// where Series is set and Err is nil.
type MFetchResult struct {
	Series    *MMarketSeries
	Err       error
	FromCache bool
	Source    string
}

// -----------------------------------------------------------------------------
// Realtime protocol
// -----------------------------------------------------------------------------

// MSubscribeCommand for client messages over the websocket.
type MSubscribeCommand struct {
	Command  string `json:"command"`
	AssetID  string `json:"assetId"`
	Range    string `json:"range"`
	Currency string `json:"currency"`
}

// MSeriesEvent is the broadcast envelope delivered on a topic.
type MSeriesEvent struct {
	Event    string         `json:"event"` // "series-update"
	AssetID  string         `json:"assetId"`
	Range    string         `json:"range"`
	Currency string         `json:"currency"`
	Series   *MMarketSeries `json:"series"`
}
