// Package market fetches the crypto price and exchange rate the assistant
// reports. Upstream failures never surface as errors: each quote falls back
// to the last value seen, then to a fixed estimate, and is tagged with its
// source.
package market

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"sync"
	"time"

	"github.com/dgraph-io/ristretto"
	"github.com/sony/gobreaker"
	"github.com/tidwall/gjson"

	apperrors "github.com/chitieu/finbot/errors"
	"github.com/chitieu/finbot/logger"
	"github.com/chitieu/finbot/metrics"
)

// Source says where a quote came from.
type Source string

const (
	SourceLive      Source = "live"
	SourceCache     Source = "cache"
	SourceLastKnown Source = "last_known"
	SourceEstimate  Source = "estimate"
)

// Estimates used when an upstream has never answered.
const (
	EstimatedBTCUSD = 95000.0
	EstimatedUSDVND = 25400.0
)

const (
	symbolBTC = "BTC"
	symbolUSD = "USD/VND"
)

// Quote is a single market value.
type Quote struct {
	Symbol   string    `json:"symbol"`
	Price    float64   `json:"price"`
	Currency string    `json:"currency"`
	PriceVND float64   `json:"price_vnd"`
	Source   Source    `json:"source"`
	AsOf     time.Time `json:"as_of"`
}

// Config configures the market client.
type Config struct {
	// CoinGeckoURL is the CoinGecko API base (e.g., "https://api.coingecko.com/api/v3").
	CoinGeckoURL string

	// FXURL is the exchange-rate API base (e.g., "https://open.er-api.com/v6").
	FXURL string

	// Timeout is the HTTP request timeout.
	Timeout time.Duration

	// CacheTTL is how long a live quote is reused. Zero disables caching.
	CacheTTL time.Duration
}

// Client serves BTC and USD quotes with caching, circuit breaking and fallbacks.
type Client struct {
	cfg        Config
	httpClient *http.Client
	cache      *ristretto.Cache
	btcBreaker *gobreaker.CircuitBreaker
	fxBreaker  *gobreaker.CircuitBreaker

	mu        sync.RWMutex
	lastKnown map[string]Quote
}

// NewClient creates a market client.
func NewClient(cfg Config) (*Client, error) {
	timeout := cfg.Timeout
	if timeout == 0 {
		timeout = 5 * time.Second
	}

	cache, err := ristretto.NewCache(&ristretto.Config{
		NumCounters: 1000,
		MaxCost:     100,
		BufferItems: 64,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create quote cache: %w", err)
	}

	return &Client{
		cfg:        cfg,
		httpClient: &http.Client{Timeout: timeout},
		cache:      cache,
		btcBreaker: newBreaker("coingecko"),
		fxBreaker:  newBreaker("exchange-rate"),
		lastKnown:  make(map[string]Quote),
	}, nil
}

// Close releases the cache.
func (c *Client) Close() {
	c.cache.Close()
}

func newBreaker(name string) *gobreaker.CircuitBreaker {
	return gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: 1,
		Interval:    time.Minute,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= 3
		},
		OnStateChange: func(name string, from gobreaker.State, to gobreaker.State) {
			logger.Get().Infow("market circuit breaker state changed", "breaker", name, "from", from.String(), "to", to.String())
		},
	})
}

// BTCPrice returns the bitcoin price in USD (and VND).
func (c *Client) BTCPrice(ctx context.Context) Quote {
	return c.quote(ctx, symbolBTC, c.btcBreaker, c.fetchBTC, func() Quote {
		rate := c.knownUSDRate()
		return Quote{
			Symbol:   symbolBTC,
			Price:    EstimatedBTCUSD,
			Currency: "USD",
			PriceVND: EstimatedBTCUSD * rate,
		}
	})
}

// USDRate returns how many VND one USD buys.
func (c *Client) USDRate(ctx context.Context) Quote {
	return c.quote(ctx, symbolUSD, c.fxBreaker, c.fetchUSD, func() Quote {
		return Quote{
			Symbol:   symbolUSD,
			Price:    EstimatedUSDVND,
			Currency: "VND",
			PriceVND: EstimatedUSDVND,
		}
	})
}

func (c *Client) quote(ctx context.Context, symbol string, breaker *gobreaker.CircuitBreaker,
	fetch func(context.Context) (Quote, error), estimate func() Quote) Quote {

	q := c.resolve(ctx, symbol, breaker, fetch, estimate)
	metrics.MarketQuotes.WithLabelValues(symbol, string(q.Source)).Inc()
	return q
}

func (c *Client) resolve(ctx context.Context, symbol string, breaker *gobreaker.CircuitBreaker,
	fetch func(context.Context) (Quote, error), estimate func() Quote) Quote {

	if cached, ok := c.cache.Get(symbol); ok {
		q := cached.(Quote)
		q.Source = SourceCache
		return q
	}

	result, err := breaker.Execute(func() (interface{}, error) {
		return fetch(ctx)
	})
	if err == nil {
		q := result.(Quote)
		q.Source = SourceLive
		q.AsOf = time.Now()
		c.remember(q)
		return q
	}

	logger.Get().Warnw("market upstream unavailable, using fallback", "symbol", symbol, "error", err)

	c.mu.RLock()
	last, ok := c.lastKnown[symbol]
	c.mu.RUnlock()
	if ok {
		last.Source = SourceLastKnown
		return last
	}

	q := estimate()
	q.Source = SourceEstimate
	q.AsOf = time.Now()
	return q
}

func (c *Client) remember(q Quote) {
	c.mu.Lock()
	c.lastKnown[q.Symbol] = q
	c.mu.Unlock()

	if c.cfg.CacheTTL > 0 {
		c.cache.SetWithTTL(q.Symbol, q, 1, c.cfg.CacheTTL)
		c.cache.Wait()
	}
}

func (c *Client) knownUSDRate() float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	if q, ok := c.lastKnown[symbolUSD]; ok {
		return q.Price
	}
	return EstimatedUSDVND
}

func (c *Client) fetchBTC(ctx context.Context) (Quote, error) {
	body, err := c.get(ctx, c.cfg.CoinGeckoURL+"/simple/price?ids=bitcoin&vs_currencies=usd,vnd")
	if err != nil {
		return Quote{}, err
	}

	usd := gjson.GetBytes(body, "bitcoin.usd")
	if !usd.Exists() || usd.Float() <= 0 {
		return Quote{}, apperrors.WithMessage(apperrors.ErrProvider, "coingecko response missing bitcoin.usd")
	}
	vnd := gjson.GetBytes(body, "bitcoin.vnd").Float()
	if vnd <= 0 {
		vnd = usd.Float() * c.knownUSDRate()
	}

	return Quote{
		Symbol:   symbolBTC,
		Price:    usd.Float(),
		Currency: "USD",
		PriceVND: vnd,
	}, nil
}

func (c *Client) fetchUSD(ctx context.Context) (Quote, error) {
	body, err := c.get(ctx, c.cfg.FXURL+"/latest/USD")
	if err != nil {
		return Quote{}, err
	}

	rate := gjson.GetBytes(body, "rates.VND")
	if !rate.Exists() || rate.Float() <= 0 {
		return Quote{}, apperrors.WithMessage(apperrors.ErrProvider, "exchange-rate response missing rates.VND")
	}

	return Quote{
		Symbol:   symbolUSD,
		Price:    rate.Float(),
		Currency: "VND",
		PriceVND: rate.Float(),
	}, nil
}

// get performs a GET request and returns the body of a 2xx response.
func (c *Client) get(ctx context.Context, url string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrProvider, fmt.Errorf("failed to create request: %w", err))
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrProvider, fmt.Errorf("request failed: %w", err))
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrProvider, fmt.Errorf("failed to read response: %w", err))
	}

	if resp.StatusCode >= 400 {
		return nil, apperrors.Wrap(apperrors.ErrProvider, fmt.Errorf("HTTP %d: %s", resp.StatusCode, string(body)))
	}
	return body, nil
}
