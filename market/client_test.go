package market

import (
	"context"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// upstream serves CoinGecko- and exchange-rate-shaped responses and can be
// switched into failure mode.
type upstream struct {
	failing atomic.Bool
	hits    atomic.Int32
	server  *httptest.Server
}

func newUpstream(t *testing.T) *upstream {
	u := &upstream{}
	mux := http.NewServeMux()
	mux.HandleFunc("/simple/price", func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		if u.failing.Load() {
			http.Error(w, "rate limited", http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"bitcoin":{"usd":60000,"vnd":1500000000}}`))
	})
	mux.HandleFunc("/latest/USD", func(w http.ResponseWriter, r *http.Request) {
		u.hits.Add(1)
		if u.failing.Load() {
			http.Error(w, "down", http.StatusBadGateway)
			return
		}
		w.Write([]byte(`{"result":"success","rates":{"VND":25000,"EUR":0.9}}`))
	})
	u.server = httptest.NewServer(mux)
	t.Cleanup(u.server.Close)
	return u
}

func newTestClient(t *testing.T, u *upstream, ttl time.Duration) *Client {
	c, err := NewClient(Config{
		CoinGeckoURL: u.server.URL,
		FXURL:        u.server.URL,
		Timeout:      time.Second,
		CacheTTL:     ttl,
	})
	require.NoError(t, err)
	t.Cleanup(c.Close)
	return c
}

func TestLiveQuotes(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(t, u, 0)
	ctx := context.Background()

	btc := c.BTCPrice(ctx)
	assert.Equal(t, SourceLive, btc.Source)
	assert.Equal(t, 60000.0, btc.Price)
	assert.Equal(t, 1500000000.0, btc.PriceVND)

	usd := c.USDRate(ctx)
	assert.Equal(t, SourceLive, usd.Source)
	assert.Equal(t, 25000.0, usd.Price)
	assert.Equal(t, "VND", usd.Currency)
}

func TestCachedQuote(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(t, u, time.Minute)
	ctx := context.Background()

	first := c.USDRate(ctx)
	require.Equal(t, SourceLive, first.Source)

	second := c.USDRate(ctx)
	assert.Equal(t, SourceCache, second.Source)
	assert.Equal(t, first.Price, second.Price)
	assert.Equal(t, int32(1), u.hits.Load())
}

func TestFallsBackToLastKnown(t *testing.T) {
	u := newUpstream(t)
	c := newTestClient(t, u, 0)
	ctx := context.Background()

	require.Equal(t, SourceLive, c.BTCPrice(ctx).Source)

	u.failing.Store(true)
	q := c.BTCPrice(ctx)
	assert.Equal(t, SourceLastKnown, q.Source)
	assert.Equal(t, 60000.0, q.Price)
}

func TestFallsBackToEstimate(t *testing.T) {
	u := newUpstream(t)
	u.failing.Store(true)
	c := newTestClient(t, u, 0)
	ctx := context.Background()

	btc := c.BTCPrice(ctx)
	assert.Equal(t, SourceEstimate, btc.Source)
	assert.Equal(t, EstimatedBTCUSD, btc.Price)
	assert.Equal(t, EstimatedBTCUSD*EstimatedUSDVND, btc.PriceVND)

	usd := c.USDRate(ctx)
	assert.Equal(t, SourceEstimate, usd.Source)
	assert.Equal(t, EstimatedUSDVND, usd.Price)
}

func TestMalformedResponseFallsBack(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{"unexpected":true}`))
	}))
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{CoinGeckoURL: srv.URL, FXURL: srv.URL})
	require.NoError(t, err)
	t.Cleanup(c.Close)

	assert.Equal(t, SourceEstimate, c.BTCPrice(context.Background()).Source)
	assert.Equal(t, SourceEstimate, c.USDRate(context.Background()).Source)
}

func TestBreakerOpensAfterRepeatedFailures(t *testing.T) {
	u := newUpstream(t)
	u.failing.Store(true)
	c := newTestClient(t, u, 0)
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		assert.Equal(t, SourceEstimate, c.USDRate(ctx).Source)
	}
	assert.Equal(t, int32(3), u.hits.Load(), "open breaker must stop calling the upstream")
}
