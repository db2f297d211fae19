package interfaces

import "coindash/src/models"

// -----------------------------------------------------------------------------
// Realtime transport contract. One IChannelHandle maps to one underlying
// connection for a topic; the subscription manager owns reconnection.
// -----------------------------------------------------------------------------

// Channel status transitions reported by a transport.
const (
	StatusSubscribed   = "SUBSCRIBED"
	StatusChannelError = "CHANNEL_ERROR"
	StatusClosed       = "CLOSED"
)

// -----------------------------------------------------------------------------

type ITransport interface {

	// Open dials the transport for a topic and starts delivery. onEvent
	// receives every message arriving on the underlying connection
	// (callers filter by tuple); onStatus receives status transitions.
	// Both callbacks are invoked from the transport's own goroutines,
	// never synchronously from inside Open.
	Open(assetID, rng, currency string,
		onEvent func(*models.MSeriesEvent),
		onStatus func(status string)) (IChannelHandle, error)
}

// -----------------------------------------------------------------------------

type IChannelHandle interface {

	// Close tears the underlying connection down. Idempotent.
	Close() error
}
