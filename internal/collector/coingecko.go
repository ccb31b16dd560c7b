package collector

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/sony/gobreaker"
	"golang.org/x/time/rate"
)

const simplePricePath = "/simple/price"

// coinGeckoIDs maps asset ids to CoinGecko coin ids.
var coinGeckoIDs = map[string]string{
	"usdt": "tether",
	"usdc": "usd-coin",
	"dai":  "dai",
	"busd": "binance-usd",
	"frax": "frax",
}

// CoinGeckoOptions parameterise the CoinGecko price source.
type CoinGeckoOptions struct {
	BaseURL        string
	Timeout        time.Duration
	UserAgent      string
	RequestsPerMin int
}

// CoinGecko fetches quotes from the CoinGecko simple price API. Requests are
// rate limited and routed through a circuit breaker so a dead API fails fast
// instead of stalling a collection cycle.
type CoinGecko struct {
	opts    CoinGeckoOptions
	logger  zerolog.Logger
	client  *http.Client
	baseURL string
	limiter *rate.Limiter
	breaker *gobreaker.CircuitBreaker
}

// NewCoinGecko constructs a CoinGecko price source.
func NewCoinGecko(opts CoinGeckoOptions, logger zerolog.Logger) *CoinGecko {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 10 * time.Second
	}

	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.coingecko.com/api/v3"
	}

	perMin := opts.RequestsPerMin
	if perMin <= 0 {
		perMin = 30
	}

	settings := gobreaker.Settings{Name: "coingecko"}
	settings.Interval = time.Minute
	settings.Timeout = time.Minute
	settings.ReadyToTrip = func(counts gobreaker.Counts) bool {
		return counts.ConsecutiveFailures >= 3
	}

	return &CoinGecko{
		opts:    opts,
		logger:  logger.With().Str("component", "coingecko").Logger(),
		client:  &http.Client{Timeout: timeout},
		baseURL: baseURL,
		limiter: rate.NewLimiter(rate.Every(time.Minute/time.Duration(perMin)), perMin),
		breaker: gobreaker.NewCircuitBreaker(settings),
	}
}

// FetchQuote retrieves the current quote for one asset.
func (c *CoinGecko) FetchQuote(ctx context.Context, assetID string) (Quote, error) {
	coinID, ok := coinGeckoIDs[assetID]
	if !ok {
		return Quote{}, fmt.Errorf("no coingecko mapping for %s", assetID)
	}

	// Fail fast when the request budget is spent; the collector falls back
	// to its cache rather than waiting out the limiter.
	if !c.limiter.Allow() {
		return Quote{}, fmt.Errorf("coingecko rate limit exhausted")
	}

	result, err := c.breaker.Execute(func() (any, error) {
		return c.fetch(ctx, coinID)
	})
	if err != nil {
		return Quote{}, err
	}
	return result.(Quote), nil
}

func (c *CoinGecko) fetch(ctx context.Context, coinID string) (Quote, error) {
	params := url.Values{}
	params.Set("ids", coinID)
	params.Set("vs_currencies", "usd")
	params.Set("include_24hr_vol", "true")
	params.Set("include_24hr_change", "true")
	params.Set("include_market_cap", "true")

	endpoint := fmt.Sprintf("%s%s?%s", c.baseURL, simplePricePath, params.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, nil)
	if err != nil {
		return Quote{}, err
	}
	req.Header.Set("Accept", "application/json")
	if ua := strings.TrimSpace(c.opts.UserAgent); ua != "" {
		req.Header.Set("User-Agent", ua)
	} else {
		req.Header.Set("User-Agent", "stableguard/1.0")
	}

	resp, err := c.client.Do(req)
	if err != nil {
		return Quote{}, err
	}
	defer resp.Body.Close()

	payload, err := io.ReadAll(resp.Body)
	if err != nil {
		return Quote{}, err
	}

	if resp.StatusCode != http.StatusOK {
		return Quote{}, fmt.Errorf("coingecko api error (%d): %s", resp.StatusCode, strings.TrimSpace(string(payload)))
	}

	var decoded map[string]struct {
		USD          float64 `json:"usd"`
		USDChange24h float64 `json:"usd_24h_change"`
		USDVolume24h float64 `json:"usd_24h_vol"`
		USDMarketCap float64 `json:"usd_market_cap"`
	}
	if err := json.Unmarshal(payload, &decoded); err != nil {
		return Quote{}, fmt.Errorf("decode coingecko response: %w", err)
	}

	coin, ok := decoded[coinID]
	if !ok {
		return Quote{}, fmt.Errorf("no data returned for %s", coinID)
	}

	price := coin.USD
	if price == 0 {
		price = 1.0
	}

	return Quote{
		Price:          price,
		PriceChange24h: coin.USDChange24h,
		Volume24h:      coin.USDVolume24h,
		MarketCap:      coin.USDMarketCap,
	}, nil
}

var _ PriceSource = (*CoinGecko)(nil)
