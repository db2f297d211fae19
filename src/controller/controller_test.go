package controller

import (
	"context"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coindash/src/cache"
	"coindash/src/client"
	"coindash/src/interfaces"
	"coindash/src/logger"
	"coindash/src/models"
	"coindash/src/queue"
	"coindash/src/realtime"
)

// fakeEdge records every requested tuple and serves a canned series.
type fakeEdge struct {
	mu     sync.Mutex
	calls  int64
	ranges []string
}

func (f *fakeEdge) FetchSeries(ctx context.Context, req models.MSeriesRequest) (*models.MSeriesResponse, error) {
	atomic.AddInt64(&f.calls, 1)
	f.mu.Lock()
	f.ranges = append(f.ranges, req.Range)
	f.mu.Unlock()

	return &models.MSeriesResponse{
		MMarketSeries: models.MMarketSeries{
			AssetID:     req.AssetID,
			Range:       req.Range,
			Currency:    req.Currency,
			PricePoints: []models.MPricePoint{{Timestamp: 1000, Value: 100}, {Timestamp: 2000, Value: 101}},
			FetchedAt:   2000,
		},
		DataSource: "coingecko",
	}, nil
}

func (f *fakeEdge) callCount() int64 { return atomic.LoadInt64(&f.calls) }

func (f *fakeEdge) requestedRanges() []string {
	f.mu.Lock()
	defer f.mu.Unlock()
	out := make([]string, len(f.ranges))
	copy(out, f.ranges)
	return out
}

// -----------------------------------------------------------------------------

// stubHandle / stubTransport let tests push realtime events by hand.
type stubHandle struct{}

func (stubHandle) Close() error { return nil }

type stubTransport struct {
	mu       sync.Mutex
	onEvents map[string]func(*models.MSeriesEvent)
}

func newStubTransport() *stubTransport {
	return &stubTransport{onEvents: make(map[string]func(*models.MSeriesEvent))}
}

func (s *stubTransport) Open(assetID, rng, currency string,
	onEvent func(*models.MSeriesEvent), onStatus func(string)) (interfaces.IChannelHandle, error) {
	s.mu.Lock()
	s.onEvents[assetID+":"+rng+":"+currency] = onEvent
	s.mu.Unlock()
	return stubHandle{}, nil
}

func (s *stubTransport) push(ev *models.MSeriesEvent) {
	s.mu.Lock()
	cb := s.onEvents[ev.AssetID+":"+ev.Range+":"+ev.Currency]
	s.mu.Unlock()
	if cb != nil {
		cb(ev)
	}
}

// -----------------------------------------------------------------------------

type stubNotifier struct {
	mu    sync.Mutex
	kinds map[string]int
}

func newStubNotifier() *stubNotifier {
	return &stubNotifier{kinds: make(map[string]int)}
}

func (n *stubNotifier) Notify(kind, message string) {
	n.mu.Lock()
	n.kinds[kind]++
	n.mu.Unlock()
}

func (n *stubNotifier) count(kind string) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	return n.kinds[kind]
}

// -----------------------------------------------------------------------------

type harness struct {
	edge      *fakeEdge
	transport *stubTransport
	notifier  *stubNotifier
	cache     *cache.MemoryCache
	queue     *queue.RequestQueue
	acq       *client.AcquisitionClient
	subs      *realtime.SubscriptionManager
	registry  *Registry
}

func newHarness() *harness {
	l := logger.NewLogger("ERROR", "test")
	h := &harness{
		edge:      &fakeEdge{},
		transport: newStubTransport(),
		notifier:  newStubNotifier(),
		cache:     cache.NewMemoryCache(l),
		registry:  NewRegistry(),
	}
	h.queue = queue.NewRequestQueue(l)
	h.queue.SetDelay(0)
	h.acq = client.NewAcquisitionClient(h.cache, h.queue, h.edge, l)
	h.subs = realtime.NewSubscriptionManager(h.transport, h.notifier, l)
	return h
}

func (h *harness) newController() *Controller {
	return NewController(h.acq, h.subs, h.registry, h.notifier, logger.NewLogger("ERROR", "test"))
}

func (h *harness) close() {
	h.subs.Close()
	h.queue.Close()
}

func waitFor(t *testing.T, cond func() bool, msg string) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(2 * time.Millisecond)
	}
	t.Fatal(msg)
}

// -----------------------------------------------------------------------------

func TestController_FirstConsumerFetchesAndPreloads(t *testing.T) {
	h := newHarness()
	defer h.close()

	c := h.newController()
	defer c.Close()

	c.SetParams("bitcoin", "7", "usd")

	// Eager fetch for the active range plus the two sibling preloads.
	waitFor(t, func() bool { return h.edge.callCount() == 3 }, "expected 3 remote calls (active range + preloads)")

	got := map[string]bool{}
	for _, r := range h.edge.requestedRanges() {
		got[r] = true
	}
	for _, r := range []string{"1", "7", "30"} {
		if !got[r] {
			t.Errorf("expected range %s to be fetched", r)
		}
	}

	waitFor(t, func() bool { return c.Snapshot().Series != nil }, "expected the eager fetch to populate state")
	st := c.Snapshot()
	if st.Loading {
		t.Error("loading must clear once the fetch settles")
	}
	if st.DataSource != "coingecko" {
		t.Errorf("unexpected data source %q", st.DataSource)
	}
	if h.registry.Count("bitcoin:7:usd") != 1 {
		t.Error("expected one registered consumer")
	}
}

func TestController_SecondConsumerReusesCache(t *testing.T) {
	h := newHarness()
	defer h.close()

	c1 := h.newController()
	defer c1.Close()
	c1.SetParams("bitcoin", "7", "usd")
	waitFor(t, func() bool { return h.edge.callCount() == 3 }, "expected first consumer's fetches")

	c2 := h.newController()
	defer c2.Close()
	c2.SetParams("bitcoin", "7", "usd")

	waitFor(t, func() bool { return c2.Snapshot().Series != nil }, "expected second consumer to get data")
	if got := h.edge.callCount(); got != 3 {
		t.Errorf("second consumer must reuse the cache, got %d remote calls", got)
	}
	if c2.Snapshot().DataSource != "memory-cache" {
		t.Errorf("expected a memory-cache hit, got %q", c2.Snapshot().DataSource)
	}
	if h.registry.Count("bitcoin:7:usd") != 2 {
		t.Error("expected two registered consumers")
	}
}

func TestController_RealtimeUpdateAppliesAndWritesThrough(t *testing.T) {
	h := newHarness()
	defer h.close()

	c := h.newController()
	defer c.Close()
	c.SetParams("bitcoin", "7", "usd")
	waitFor(t, func() bool { return c.Snapshot().Series != nil }, "expected initial data")

	pushed := &models.MMarketSeries{
		AssetID:     "bitcoin",
		Range:       "7",
		Currency:    "usd",
		PricePoints: []models.MPricePoint{{Timestamp: 3000, Value: 102}},
		Provenance:  "coingecko",
		FetchedAt:   3000, // newer than the fetched series
	}
	h.transport.push(&models.MSeriesEvent{
		Event: "series-update", AssetID: "bitcoin", Range: "7", Currency: "usd", Series: pushed,
	})

	waitFor(t, func() bool { return c.Snapshot().IsRealtime }, "expected realtime state")
	st := c.Snapshot()
	if st.DataSource != "realtime" {
		t.Errorf("unexpected data source %q", st.DataSource)
	}
	if st.Series.FetchedAt != 3000 {
		t.Error("expected the pushed series in state")
	}
	if h.notifier.count("live-update") != 1 {
		t.Errorf("expected one live-update notice, got %d", h.notifier.count("live-update"))
	}

	// Write-through: the memory cache now serves the pushed series.
	if got := h.cache.Get("bitcoin:7:usd"); got == nil || got.FetchedAt != 3000 {
		t.Error("expected the pushed series to be written through to the cache")
	}

	// A replayed older payload updates state but raises no second notice.
	h.transport.push(&models.MSeriesEvent{
		Event: "series-update", AssetID: "bitcoin", Range: "7", Currency: "usd",
		Series: &models.MMarketSeries{
			AssetID: "bitcoin", Range: "7", Currency: "usd",
			PricePoints: []models.MPricePoint{{Timestamp: 1500, Value: 99}},
			FetchedAt:   1500,
		},
	})
	time.Sleep(20 * time.Millisecond)
	if h.notifier.count("live-update") != 1 {
		t.Errorf("stale replay must not notify, got %d notices", h.notifier.count("live-update"))
	}
}

func TestController_ManualRefreshNotifies(t *testing.T) {
	h := newHarness()
	defer h.close()

	c := h.newController()
	defer c.Close()
	c.SetParams("bitcoin", "7", "usd")
	waitFor(t, func() bool { return c.Snapshot().Series != nil }, "expected initial data")

	c.Refresh(true)

	waitFor(t, func() bool { return h.notifier.count("refreshed") == 1 }, "expected a refreshed notice")
}

func TestController_SetParamsRetargets(t *testing.T) {
	h := newHarness()
	defer h.close()

	c := h.newController()
	defer c.Close()

	c.SetParams("bitcoin", "7", "usd")
	waitFor(t, func() bool { return c.Snapshot().Series != nil }, "expected bitcoin data")

	c.SetParams("ethereum", "1", "usd")
	waitFor(t, func() bool {
		st := c.Snapshot()
		return st.Series != nil && st.Series.AssetID == "ethereum"
	}, "expected ethereum data after retarget")

	if h.registry.Count("bitcoin:7:usd") != 0 {
		t.Error("old tuple must be released on retarget")
	}
	if h.registry.Count("ethereum:1:usd") != 1 {
		t.Error("new tuple must be registered")
	}
}

func TestController_CloseReleasesEverything(t *testing.T) {
	h := newHarness()
	defer h.close()

	c := h.newController()
	c.SetParams("bitcoin", "7", "usd")
	waitFor(t, func() bool { return c.Snapshot().Series != nil }, "expected initial data")

	if h.subs.ActiveChannels() != 1 {
		t.Fatalf("expected one realtime channel, got %d", h.subs.ActiveChannels())
	}

	c.Close()

	if h.registry.Count("bitcoin:7:usd") != 0 {
		t.Error("expected the registry reference to be released")
	}
	if h.subs.ActiveChannels() != 0 {
		t.Error("expected the realtime channel to be torn down")
	}

	// Double close is harmless.
	c.Close()
}
