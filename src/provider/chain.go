package provider

import (
	"context"
	"fmt"
	"sync"

	"coindash/src/interfaces"
	"coindash/src/logger"
	"coindash/src/models"
)

// -----------------------------------------------------------------------------
// Chain tries upstream providers in order until one returns a usable series.
// Providers can be added and removed at runtime.
// -----------------------------------------------------------------------------

type Chain struct {
	Logger *logger.Logger

	mu        sync.RWMutex
	providers []interfaces.IUpstreamProvider
}

// -----------------------------------------------------------------------------

func NewChain(providers []interfaces.IUpstreamProvider, log *logger.Logger) *Chain {
	return &Chain{
		Logger:    log,
		providers: providers,
	}
}

// -----------------------------------------------------------------------------

// AddProvider appends a provider to the failover order.
func (c *Chain) AddProvider(p interfaces.IUpstreamProvider) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for _, existing := range c.providers {
		if existing.Name() == p.Name() {
			return fmt.Errorf("provider %s already exists", p.Name())
		}
	}
	c.providers = append(c.providers, p)
	c.Logger.Info("Added provider: %s", p.Name())
	return nil
}

// -----------------------------------------------------------------------------

// RemoveProvider drops a provider by name.
func (c *Chain) RemoveProvider(name string) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	for i, p := range c.providers {
		if p.Name() == name {
			c.providers = append(c.providers[:i], c.providers[i+1:]...)
			c.Logger.Info("Removed provider: %s", name)
			return nil
		}
	}
	return fmt.Errorf("provider %s not found", name)
}

// -----------------------------------------------------------------------------

// Names lists the providers in failover order.
func (c *Chain) Names() []string {
	c.mu.RLock()
	defer c.mu.RUnlock()

	names := make([]string, 0, len(c.providers))
	for _, p := range c.providers {
		names = append(names, p.Name())
	}
	return names
}

// -----------------------------------------------------------------------------

// FetchSeries walks the chain. The first provider to answer wins; the error
// returned on total failure wraps the last provider's.
func (c *Chain) FetchSeries(ctx context.Context, assetID, rng, currency string) (*models.MMarketSeries, error) {
	c.mu.RLock()
	providers := make([]interfaces.IUpstreamProvider, len(c.providers))
	copy(providers, c.providers)
	c.mu.RUnlock()

	var lastErr error
	for _, p := range providers {
		series, err := p.FetchSeries(ctx, assetID, rng, currency)
		if err != nil {
			c.Logger.Warning("Provider %s failed for %s/%s/%s: %v", p.Name(), assetID, rng, currency, err)
			lastErr = err
			continue
		}
		if series == nil || len(series.PricePoints) == 0 {
			c.Logger.Warning("Provider %s returned empty series for %s/%s/%s", p.Name(), assetID, rng, currency)
			lastErr = fmt.Errorf("provider %s returned empty series", p.Name())
			continue
		}
		return series, nil
	}

	if lastErr == nil {
		lastErr = fmt.Errorf("no providers configured")
	}
	return nil, fmt.Errorf("all providers failed: %w", lastErr)
}
