package cache

import (
	"context"
	"errors"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"coindash/src/logger"
	"coindash/src/models"
)

func testSeries(assetID string) *models.MMarketSeries {
	return &models.MMarketSeries{
		AssetID:     assetID,
		Range:       "7",
		Currency:    "usd",
		PricePoints: []models.MPricePoint{{Timestamp: 1000, Value: 1.0}},
		Provenance:  "test",
		FetchedAt:   1000,
	}
}

func newTestCache() *MemoryCache {
	return NewMemoryCache(logger.NewLogger("ERROR", "test"))
}

// -----------------------------------------------------------------------------

func TestMemoryCache_FreshnessWindow(t *testing.T) {
	c := newTestCache()
	base := time.Now()
	c.Now = func() time.Time { return base }

	c.Put("bitcoin:7:usd", testSeries("bitcoin"))

	if got := c.Get("bitcoin:7:usd"); got == nil {
		t.Fatal("expected fresh entry within the window")
	}

	// 14s in: still fresh
	c.Now = func() time.Time { return base.Add(14 * time.Second) }
	if got := c.Get("bitcoin:7:usd"); got == nil {
		t.Error("expected entry at 14s to be fresh")
	}

	// 15s in: expired for Get, still available via GetStale
	c.Now = func() time.Time { return base.Add(15 * time.Second) }
	if got := c.Get("bitcoin:7:usd"); got != nil {
		t.Error("expected entry at 15s to be expired")
	}
	if got := c.GetStale("bitcoin:7:usd"); got == nil {
		t.Error("expected stale entry to be retained as fallback")
	}
}

func TestMemoryCache_MissingKey(t *testing.T) {
	c := newTestCache()
	if c.Get("nope") != nil || c.GetStale("nope") != nil {
		t.Error("expected nil for unknown key")
	}
}

func TestMemoryCache_SyntheticNeverCached(t *testing.T) {
	c := newTestCache()
	s := testSeries("bitcoin")
	s.IsSynthetic = true

	c.Put("bitcoin:7:usd", s)

	if c.Len() != 0 {
		t.Error("synthetic series must not be written to the cache")
	}
}

func TestMemoryCache_PutOverwrites(t *testing.T) {
	c := newTestCache()
	first := testSeries("bitcoin")
	second := testSeries("bitcoin")
	second.FetchedAt = 2000

	c.Put("k", first)
	c.Put("k", second)

	if got := c.Get("k"); got == nil || got.FetchedAt != 2000 {
		t.Error("expected Put to overwrite the prior entry")
	}
}

// -----------------------------------------------------------------------------

func TestMemoryCache_ResolveDeduplicates(t *testing.T) {
	c := newTestCache()
	var calls atomic.Int64
	release := make(chan struct{})

	factory := func() (*models.MMarketSeries, error) {
		calls.Add(1)
		<-release
		return testSeries("bitcoin"), nil
	}

	const n = 10
	var wg sync.WaitGroup
	results := make([]*models.MMarketSeries, n)

	for i := 0; i < n; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			series, err := c.Resolve(context.Background(), "k", factory)
			if err != nil {
				t.Errorf("resolve %d failed: %v", i, err)
			}
			results[i] = series
		}(i)
	}

	// Let every goroutine reach Resolve before the factory settles.
	for c.PendingCount() == 0 {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	close(release)
	wg.Wait()

	if got := calls.Load(); got != 1 {
		t.Errorf("expected exactly 1 factory call, got %d", got)
	}
	for i, r := range results {
		if r == nil {
			t.Errorf("caller %d got nil series", i)
		}
	}
	if c.PendingCount() != 0 {
		t.Error("pending handle must be removed after settlement")
	}
}

func TestMemoryCache_ResolveDeregistersOnFailure(t *testing.T) {
	c := newTestCache()
	boom := errors.New("boom")

	_, err := c.Resolve(context.Background(), "k", func() (*models.MMarketSeries, error) {
		return nil, boom
	})
	if !errors.Is(err, boom) {
		t.Fatalf("expected factory error, got %v", err)
	}
	if c.PendingCount() != 0 {
		t.Error("pending handle must be removed after a failed settlement")
	}

	// A later Resolve runs a new factory rather than joining a dead handle.
	series, err := c.Resolve(context.Background(), "k", func() (*models.MMarketSeries, error) {
		return testSeries("bitcoin"), nil
	})
	if err != nil || series == nil {
		t.Errorf("expected fresh resolve to succeed, got %v", err)
	}
}

func TestMemoryCache_ResolveJoinerHonorsContext(t *testing.T) {
	c := newTestCache()
	release := make(chan struct{})
	defer close(release)

	go c.Resolve(context.Background(), "k", func() (*models.MMarketSeries, error) {
		<-release
		return testSeries("bitcoin"), nil
	})

	for c.PendingCount() == 0 {
		time.Sleep(time.Millisecond)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Resolve(ctx, "k", func() (*models.MMarketSeries, error) {
		t.Error("joiner must not run a second factory")
		return nil, nil
	})
	if !errors.Is(err, context.Canceled) {
		t.Errorf("expected context.Canceled for abandoned joiner, got %v", err)
	}
}
