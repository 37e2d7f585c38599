package tools

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/dustin/go-humanize"

	"github.com/chitieu/finbot/core"
	"github.com/chitieu/finbot/currency"
	"github.com/chitieu/finbot/market"
)

// MarketData supplies the quotes the market tools report. Implementations
// never fail; degraded data is flagged through Quote.Source.
type MarketData interface {
	BTCPrice(ctx context.Context) market.Quote
	USDRate(ctx context.Context) market.Quote
}

// QuoteView is the model-facing rendering of a market quote.
type QuoteView struct {
	Symbol            string        `json:"symbol"`
	Price             float64       `json:"price"`
	Currency          string        `json:"currency"`
	PriceFormatted    string        `json:"price_formatted"`
	PriceVND          int64         `json:"price_vnd"`
	PriceVNDFormatted string        `json:"price_vnd_formatted"`
	Source            market.Source `json:"source"`
	AsOf              string        `json:"as_of"`
	Note              string        `json:"note,omitempty"`
}

func quoteView(q market.Quote) QuoteView {
	vnd := int64(q.PriceVND + 0.5)
	view := QuoteView{
		Symbol:            q.Symbol,
		Price:             q.Price,
		Currency:          q.Currency,
		PriceFormatted:    humanize.FormatFloat("#,###.##", q.Price) + " " + q.Currency,
		PriceVND:          vnd,
		PriceVNDFormatted: currency.Format(vnd),
		Source:            q.Source,
		AsOf:              q.AsOf.Format(time.RFC3339),
	}
	switch q.Source {
	case market.SourceLastKnown:
		view.Note = "Dữ liệu trực tuyến tạm thời không khả dụng, đây là giá gần nhất đã ghi nhận."
	case market.SourceEstimate:
		view.Note = "Không lấy được dữ liệu trực tuyến, đây là giá ước tính."
	}
	return view
}

// MarketInfo is the result of get_market_info.
type MarketInfo struct {
	BTC     QuoteView `json:"btc"`
	USD     QuoteView `json:"usd"`
	Summary string    `json:"summary"`
}

// CreateGetBTCPriceTool creates the bitcoin price tool.
func CreateGetBTCPriceTool(md MarketData) core.Tool {
	return New("get_btc_price").
		Description("Get the current Bitcoin price in USD and VND. The result says whether the value is live, cached, last known or an estimate.").
		HandlerFunc(func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			return quoteView(md.BTCPrice(ctx)), nil
		}).
		Build()
}

// CreateGetUSDRateTool creates the USD/VND exchange rate tool.
func CreateGetUSDRateTool(md MarketData) core.Tool {
	return New("get_usd_rate").
		Description("Get the current USD to VND exchange rate. The result says whether the value is live, cached, last known or an estimate.").
		HandlerFunc(func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			return quoteView(md.USDRate(ctx)), nil
		}).
		Build()
}

// CreateGetMarketInfoTool creates the combined market overview tool.
func CreateGetMarketInfoTool(md MarketData) core.Tool {
	return New("get_market_info").
		Description("Get a market overview: Bitcoin price and the USD/VND exchange rate together.").
		HandlerFunc(func(ctx context.Context, input json.RawMessage) (interface{}, error) {
			btc := quoteView(md.BTCPrice(ctx))
			usd := quoteView(md.USDRate(ctx))
			return &MarketInfo{
				BTC: btc,
				USD: usd,
				Summary: fmt.Sprintf("Bitcoin: %s (~%s). 1 USD = %s.",
					btc.PriceFormatted, btc.PriceVNDFormatted, usd.PriceVNDFormatted),
			}, nil
		}).
		Build()
}
