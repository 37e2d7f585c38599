package tools

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	apperrors "github.com/chitieu/finbot/errors"
	"github.com/chitieu/finbot/forecast"
	"github.com/chitieu/finbot/market"
)

type fakeMarket struct {
	btc market.Quote
	usd market.Quote
}

func (f *fakeMarket) BTCPrice(ctx context.Context) market.Quote { return f.btc }
func (f *fakeMarket) USDRate(ctx context.Context) market.Quote  { return f.usd }

func newFakeMarket(source market.Source) *fakeMarket {
	asOf := time.Date(2024, time.March, 15, 12, 0, 0, 0, time.UTC)
	return &fakeMarket{
		btc: market.Quote{Symbol: "BTC", Price: 60000, Currency: "USD", PriceVND: 1_500_000_000, Source: source, AsOf: asOf},
		usd: market.Quote{Symbol: "USD/VND", Price: 25000, Currency: "VND", PriceVND: 25000, Source: source, AsOf: asOf},
	}
}

func TestMarketTools(t *testing.T) {
	md := newFakeMarket(market.SourceLive)

	t.Run("btc", func(t *testing.T) {
		result := call(t, CreateGetBTCPriceTool(md), "alice", `{}`)
		require.True(t, result.Success)
		view := result.Data.(QuoteView)
		assert.Equal(t, 60000.0, view.Price)
		assert.Equal(t, "1.500.000.000đ", view.PriceVNDFormatted)
		assert.Equal(t, market.SourceLive, view.Source)
		assert.Empty(t, view.Note)
	})

	t.Run("usd", func(t *testing.T) {
		view := call(t, CreateGetUSDRateTool(md), "alice", ``).Data.(QuoteView)
		assert.Equal(t, int64(25000), view.PriceVND)
		assert.Equal(t, "25.000đ", view.PriceVNDFormatted)
	})

	t.Run("overview", func(t *testing.T) {
		info := call(t, CreateGetMarketInfoTool(md), "alice", `{}`).Data.(*MarketInfo)
		assert.Equal(t, "BTC", info.BTC.Symbol)
		assert.Equal(t, "USD/VND", info.USD.Symbol)
		assert.Contains(t, info.Summary, "25.000đ")
	})
}

func TestMarketToolsFlagDegradedData(t *testing.T) {
	view := call(t, CreateGetBTCPriceTool(newFakeMarket(market.SourceEstimate)), "alice", `{}`).Data.(QuoteView)
	assert.Equal(t, market.SourceEstimate, view.Source)
	assert.NotEmpty(t, view.Note)

	view = call(t, CreateGetUSDRateTool(newFakeMarket(market.SourceLastKnown)), "alice", `{}`).Data.(QuoteView)
	assert.Equal(t, market.SourceLastKnown, view.Source)
	assert.NotEmpty(t, view.Note)
}

type fakeForecaster struct {
	gotOwner  string
	gotBudget int64
	err       error
}

func (f *fakeForecaster) Forecast(ctx context.Context, ownerID string, budget int64) (*forecast.Result, error) {
	f.gotOwner, f.gotBudget = ownerID, budget
	if f.err != nil {
		return nil, f.err
	}
	return &forecast.Result{Budget: budget, Status: forecast.StatusSafe}, nil
}

func TestSpendingForecastTool(t *testing.T) {
	t.Run("passes_owner_and_budget", func(t *testing.T) {
		f := &fakeForecaster{}
		result := call(t, CreateGetSpendingForecastTool(f), "alice", `{"budget":"5tr"}`)
		require.True(t, result.Success, result.Error)
		assert.Equal(t, "alice", f.gotOwner)
		assert.Equal(t, int64(5_000_000), f.gotBudget)
	})

	t.Run("default_budget", func(t *testing.T) {
		f := &fakeForecaster{}
		require.True(t, call(t, CreateGetSpendingForecastTool(f), "alice", `{}`).Success)
		assert.Zero(t, f.gotBudget)
	})

	t.Run("store_failure_is_sanitized", func(t *testing.T) {
		f := &fakeForecaster{err: apperrors.Wrap(apperrors.ErrStore, errors.New("disk on fire"))}
		result := call(t, CreateGetSpendingForecastTool(f), "alice", `{}`)
		assert.False(t, result.Success)
		assert.Equal(t, "EXECUTION", result.Code)
		assert.NotContains(t, result.Error, "disk on fire")
	})
}

func TestAll(t *testing.T) {
	names := func(deps Deps) []string {
		var out []string
		for _, tool := range All(deps) {
			out = append(out, tool.Name())
		}
		return out
	}

	assert.Equal(t, []string{"add_expense", "get_monthly_expenses", "get_expense_stats", "delete_expense"},
		names(Deps{Clock: fixedClock}))
	assert.Len(t, names(Deps{Clock: fixedClock, Market: newFakeMarket(market.SourceLive), Forecaster: &fakeForecaster{}}), 8)
}
