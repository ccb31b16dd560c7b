package collector

import (
	"context"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog"

	"stableguard/internal/asset"
	"stableguard/internal/model"
)

const (
	defaultCacheTTL = 60 * time.Second
	// A stale cache entry is still preferable to a synthetic peg value for
	// this long after the TTL expires.
	staleCacheFactor = 5
)

// Options tune collector behaviour.
type Options struct {
	CacheTTL time.Duration
}

// Collector is the first pipeline stage: it gathers one normalized
// observation per monitored asset. It owns the short-lived quote cache;
// nothing else reads or writes it.
type Collector struct {
	registry *asset.Registry
	prices   PriceSource
	chain    ChainSource
	logger   zerolog.Logger
	ttl      time.Duration
	clock    func() time.Time

	mu    sync.Mutex
	cache map[string]cachedQuote
}

type cachedQuote struct {
	quote   Quote
	fetched time.Time
}

// New constructs a collector.
func New(registry *asset.Registry, prices PriceSource, chain ChainSource, opts Options, logger zerolog.Logger) *Collector {
	ttl := opts.CacheTTL
	if ttl <= 0 {
		ttl = defaultCacheTTL
	}
	if chain == nil {
		chain = NopChain{}
	}
	return &Collector{
		registry: registry,
		prices:   prices,
		chain:    chain,
		logger:   logger.With().Str("component", "collector").Logger(),
		ttl:      ttl,
		clock:    time.Now,
		cache:    make(map[string]cachedQuote),
	}
}

// Collect gathers observations for the given asset ids. Individual source
// failures degrade to cached or at-peg values and never fail the cycle; only
// unknown ids surface as errors.
func (c *Collector) Collect(ctx context.Context, assetIDs []string) model.CollectionResult {
	type outcome struct {
		observation model.RawObservation
		healthy     bool
		err         string
	}

	outcomes := make([]outcome, len(assetIDs))
	var wg sync.WaitGroup
	for i, id := range assetIDs {
		a, ok := c.registry.ByID(id)
		if !ok {
			outcomes[i] = outcome{err: fmt.Sprintf("%s: unknown asset", id)}
			continue
		}

		wg.Add(1)
		go func(i int, a *asset.Asset) {
			defer wg.Done()
			obs, healthy := c.collectAsset(ctx, a)
			outcomes[i] = outcome{observation: obs, healthy: healthy}
		}(i, a)
	}
	wg.Wait()

	result := model.CollectionResult{CollectedAt: c.clock()}
	healthy := 0
	for _, o := range outcomes {
		if o.err != "" {
			result.Errors = append(result.Errors, o.err)
			continue
		}
		result.Observations = append(result.Observations, o.observation)
		if o.healthy {
			healthy++
		}
	}
	sort.Strings(result.Errors)
	result.Quality = assessQuality(healthy, len(assetIDs))

	c.logger.Debug().
		Int("assets", len(assetIDs)).
		Int("healthy", healthy).
		Str("quality", string(result.Quality)).
		Msg("collection cycle complete")

	return result
}

// collectAsset builds one observation, running the price and chain fetches
// concurrently. The healthy flag is false when the quote came from a stale
// cache entry or the peg fallback.
func (c *Collector) collectAsset(ctx context.Context, a *asset.Asset) (model.RawObservation, bool) {
	var (
		wg        sync.WaitGroup
		quote     Quote
		healthy   bool
		chainData ChainData
	)

	wg.Add(2)
	go func() {
		defer wg.Done()
		quote, healthy = c.fetchQuote(ctx, a)
	}()
	go func() {
		defer wg.Done()
		data, err := c.chain.FetchChainData(ctx, a.ID)
		if err != nil {
			c.logger.Debug().Err(err).Str("asset", a.ID).Msg("chain data unavailable")
			return
		}
		chainData = data
	}()
	wg.Wait()

	return model.RawObservation{
		AssetID:        a.ID,
		Timestamp:      c.clock(),
		Price:          quote.Price,
		PriceChange24h: quote.PriceChange24h,
		Volume24h:      quote.Volume24h,
		MarketCap:      quote.MarketCap,
		TotalSupply:    chainData.TotalSupply,
		LargeTransfers: chainData.LargeTransfers,
	}, healthy
}

func (c *Collector) fetchQuote(ctx context.Context, a *asset.Asset) (Quote, bool) {
	now := c.clock()

	c.mu.Lock()
	cached, haveCache := c.cache[a.ID]
	c.mu.Unlock()

	if haveCache && now.Sub(cached.fetched) < c.ttl {
		return cached.quote, true
	}

	quote, err := c.prices.FetchQuote(ctx, a.ID)
	if err == nil {
		c.mu.Lock()
		c.cache[a.ID] = cachedQuote{quote: quote, fetched: now}
		c.mu.Unlock()
		return quote, true
	}

	c.logger.Warn().Err(err).Str("asset", a.ID).Msg("price fetch failed")

	if haveCache && now.Sub(cached.fetched) < time.Duration(staleCacheFactor)*c.ttl {
		c.logger.Debug().Str("asset", a.ID).Msg("serving stale cached quote")
		return cached.quote, false
	}

	// At-peg fallback: keeps the cycle alive with a neutral observation.
	return Quote{Price: a.PegTarget}, false
}

// ClearCache drops all cached quotes.
func (c *Collector) ClearCache() {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.cache = make(map[string]cachedQuote)
}

func assessQuality(healthy, requested int) model.DataQuality {
	if requested == 0 {
		return model.QualityLow
	}
	rate := float64(healthy) / float64(requested)
	switch {
	case rate >= 0.8:
		return model.QualityHigh
	case rate >= 0.5:
		return model.QualityMedium
	default:
		return model.QualityLow
	}
}
