package interfaces

import "coindash/src/models"

// -----------------------------------------------------------------------------
// IBroadcaster fans a series update out to realtime topic subscribers.
// -----------------------------------------------------------------------------

type IBroadcaster interface {

	// BroadcastSeries publishes a series-update event on the topic derived
	// from the series tuple. Implementations must drop synthetic series.
	BroadcastSeries(series *models.MMarketSeries)
}

// -----------------------------------------------------------------------------
// INotifier surfaces best-effort user-facing notices (refresh done,
// realtime degraded). Implementations must never block.
// -----------------------------------------------------------------------------

type INotifier interface {
	Notify(kind string, message string)
}
