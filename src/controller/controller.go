package controller

import (
	"context"
	"sync"
	"time"

	"coindash/src/client"
	"coindash/src/interfaces"
	"coindash/src/logger"
	"coindash/src/models"
	"coindash/src/realtime"
	"coindash/src/utils"
)

// -----------------------------------------------------------------------------
// Controller binds one (assetId, range, currency) tuple to the acquisition
// pipeline: eager fetch for the first consumer of a new tuple, a realtime
// listener pushing updates straight into local state, and the polling
// fallback. SetParams retargets the binding; Close releases everything the
// instance owns (its poller, its channel reference, its in-flight context)
// without disturbing resolutions shared with other consumers.
// -----------------------------------------------------------------------------

// State is the consumer-visible snapshot.
type State struct {
	Series      *models.MMarketSeries
	Loading     bool
	Err         error
	IsRealtime  bool
	DataSource  string
	LastUpdated time.Time
}

// -----------------------------------------------------------------------------

type Controller struct {
	Client   *client.AcquisitionClient
	Realtime *realtime.SubscriptionManager
	Registry *Registry
	Notifier interfaces.INotifier
	Logger   *logger.Logger

	// PreloadRanges are warmed for a newly watched asset. Defaults to the
	// standard buckets.
	PreloadRanges []string

	poller *utils.PollScheduler

	mu          sync.Mutex
	assetID     string
	rng         string
	currency    string
	key         string
	unsubscribe func()
	cancelFetch context.CancelFunc
	state       State
}

// -----------------------------------------------------------------------------

func NewController(c *client.AcquisitionClient, rt *realtime.SubscriptionManager,
	reg *Registry, n interfaces.INotifier, l *logger.Logger) *Controller {

	return &Controller{
		Client:        c,
		Realtime:      rt,
		Registry:      reg,
		Notifier:      n,
		Logger:        l,
		PreloadRanges: utils.DefaultRanges(),
		poller:        utils.NewPollScheduler(l),
	}
}

// -----------------------------------------------------------------------------

// SetParams retargets the controller to a tuple, tearing the previous
// binding down first.
func (c *Controller) SetParams(assetID, rng, currency string) {
	c.teardown()

	key := utils.TopicKey(assetID, rng, currency)

	c.mu.Lock()
	c.assetID, c.rng, c.currency, c.key = assetID, rng, currency, key
	c.state = State{Loading: true}
	c.mu.Unlock()

	first := c.Registry.Register(key)

	c.mu.Lock()
	c.unsubscribe = c.Realtime.Subscribe(assetID, rng, currency, c.applyRealtime)
	c.mu.Unlock()

	// Polling is the redundancy path: forced round trips correct for
	// missed broadcasts.
	c.poller.Schedule(assetID, rng, currency, func() {
		c.refresh(true, false)
	})

	if first {
		go func() {
			c.refresh(true, false)
			c.preload(assetID, rng, currency)
		}()
	} else {
		go c.refresh(false, false)
	}
}

// -----------------------------------------------------------------------------

// Refresh is the manual-refresh entry point for the UI layer.
func (c *Controller) Refresh(force bool) {
	c.refresh(force, true)
}

// -----------------------------------------------------------------------------

func (c *Controller) refresh(force, manual bool) {
	c.mu.Lock()
	assetID, rng, currency, key := c.assetID, c.rng, c.currency, c.key
	if key == "" {
		c.mu.Unlock()
		return
	}
	if c.cancelFetch != nil {
		c.cancelFetch()
	}
	ctx, cancel := context.WithCancel(context.Background())
	c.cancelFetch = cancel
	c.state.Loading = true
	c.mu.Unlock()

	res := c.Client.Fetch(ctx, assetID, rng, currency, force)

	c.mu.Lock()
	if c.key != key {
		// Tuple changed while the fetch ran; drop the result.
		c.mu.Unlock()
		return
	}
	c.state.Loading = false
	if res.Err != nil {
		c.state.Err = res.Err
	} else {
		c.state.Err = nil
		c.state.Series = res.Series
		c.state.IsRealtime = false
		c.state.DataSource = res.Source
		c.state.LastUpdated = time.Now()
	}
	c.mu.Unlock()

	if manual && res.Err == nil && c.Notifier != nil {
		c.Notifier.Notify("refreshed", "Market data refreshed for "+key)
	}
}

// -----------------------------------------------------------------------------

// applyRealtime pushes a broadcast series straight into local state and
// writes it through to the memory cache so subsequent reads hit it.
func (c *Controller) applyRealtime(ev *models.MSeriesEvent) {
	c.mu.Lock()
	if ev.AssetID != c.assetID || ev.Range != c.rng || ev.Currency != c.currency {
		c.mu.Unlock()
		return
	}
	key := c.key
	genuine := c.state.Series == nil || ev.Series.FetchedAt > c.state.Series.FetchedAt

	c.state.Series = ev.Series
	c.state.Err = nil
	c.state.Loading = false
	c.state.IsRealtime = true
	c.state.DataSource = "realtime"
	c.state.LastUpdated = time.Now()
	c.mu.Unlock()

	c.Client.Cache.Put(key, ev.Series)

	if genuine && c.Notifier != nil {
		c.Notifier.Notify("live-update", "Live update for "+key)
	}
}

// -----------------------------------------------------------------------------

// preload warms the sibling ranges of a newly watched asset so range
// switches hit the memory cache. Non-forced, so fresh entries are reused.
func (c *Controller) preload(assetID, currentRange, currency string) {
	for _, r := range c.PreloadRanges {
		if r == currentRange {
			continue
		}
		c.Client.Fetch(context.Background(), assetID, r, currency, false)
	}
}

// -----------------------------------------------------------------------------

// Snapshot returns the current consumer-visible state.
func (c *Controller) Snapshot() State {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.state
}

// -----------------------------------------------------------------------------

func (c *Controller) teardown() {
	c.poller.Stop()

	c.mu.Lock()
	unsub := c.unsubscribe
	cancel := c.cancelFetch
	key := c.key
	c.unsubscribe = nil
	c.cancelFetch = nil
	c.key = ""
	c.mu.Unlock()

	if cancel != nil {
		cancel()
	}
	if unsub != nil {
		unsub()
	}
	if key != "" {
		c.Registry.Release(key)
	}
}

// -----------------------------------------------------------------------------

// Close releases everything owned by this instance.
func (c *Controller) Close() {
	c.teardown()
}
