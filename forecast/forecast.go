// Package forecast projects month-end spending from the ledger and rates it
// against a budget.
package forecast

import (
	"context"
	"fmt"
	"math"
	"time"

	"github.com/chitieu/finbot/currency"
	apperrors "github.com/chitieu/finbot/errors"
	"github.com/chitieu/finbot/logger"
	"github.com/chitieu/finbot/metrics"
	"github.com/chitieu/finbot/store"
)

// Status is the budget risk tier.
type Status string

const (
	StatusSafe    Status = "Safe"
	StatusWarning Status = "Warning"
	StatusDanger  Status = "Danger"
)

// Method names how the prediction was produced.
type Method string

const (
	MethodNone       Method = "none"
	MethodAverage    Method = "average"
	MethodRegression Method = "regression"
)

// WarningRatio is the share of the budget at which Warning starts.
const WarningRatio = 0.8

// Point is one day of the cumulative series.
type Point struct {
	Day              int   `json:"day"`
	CumulativeAmount int64 `json:"cumulative_amount"`
}

// Result is a month-end projection. It is recomputed on every request.
type Result struct {
	Year             int     `json:"year"`
	Month            int     `json:"month"`
	AsOfDay          int     `json:"as_of_day"`
	DaysInMonth      int     `json:"days_in_month"`
	SpentSoFar       int64   `json:"spent_so_far"`
	PredictedTotal   int64   `json:"predicted_total"`
	Budget           int64   `json:"budget"`
	Remaining        int64   `json:"remaining"`
	Status           Status  `json:"status"`
	Method           Method  `json:"method"`
	Slope            float64 `json:"slope"`
	TransactionCount int     `json:"transaction_count"`
	Narrative        string  `json:"narrative"`
	DailySeries      []Point `json:"daily_series"`
}

// Config configures the engine.
type Config struct {
	// DefaultBudget applies when a request carries no positive budget.
	DefaultBudget int64

	// Location is the user's timezone; "today" is evaluated there.
	Location *time.Location

	// Language selects the narrative language ("vi" or "en").
	Language string

	// Now overrides the clock, for tests.
	Now func() time.Time
}

// Engine computes forecasts from a ledger.
type Engine struct {
	ledger        store.Transactions
	defaultBudget int64
	loc           *time.Location
	messages      catalog
	now           func() time.Time
}

// NewEngine creates a forecast engine.
func NewEngine(ledger store.Transactions, cfg Config) *Engine {
	loc := cfg.Location
	if loc == nil {
		loc = time.UTC
	}
	now := cfg.Now
	if now == nil {
		now = time.Now
	}
	return &Engine{
		ledger:        ledger,
		defaultBudget: cfg.DefaultBudget,
		loc:           loc,
		messages:      catalogFor(cfg.Language),
		now:           now,
	}
}

// Forecast projects the owner's spending for the current month. A budget
// of zero or less falls back to the configured default. Only a ledger
// failure produces an error; an empty month is a valid Safe result.
func (e *Engine) Forecast(ctx context.Context, ownerID string, budget int64) (*Result, error) {
	if budget <= 0 {
		budget = e.defaultBudget
	}

	now := e.now().In(e.loc)
	year, month, today := now.Date()
	daysInMonth := DaysIn(year, month)

	from := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	txs, err := e.ledger.ListByDateRange(ctx, ownerID, from, store.Day(now))
	if err != nil {
		return nil, apperrors.Wrap(apperrors.ErrStore, fmt.Errorf("failed to load month for forecast: %w", err))
	}

	result := project(txs, today, daysInMonth, budget, e.messages)
	result.Year = year
	result.Month = int(month)

	metrics.Forecasts.WithLabelValues(string(result.Status)).Inc()
	logger.Get().Debugw("forecast computed",
		"owner", ownerID, "spent", result.SpentSoFar, "predicted", result.PredictedTotal,
		"budget", budget, "status", result.Status, "method", result.Method)
	return result, nil
}

// project runs the projection over one month's transactions as of day today.
func project(txs []store.Transaction, today, daysInMonth int, budget int64, msgs catalog) *Result {
	result := &Result{
		AsOfDay:          today,
		DaysInMonth:      daysInMonth,
		Budget:           budget,
		TransactionCount: len(txs),
		DailySeries:      []Point{},
	}

	if len(txs) == 0 {
		result.Status = StatusSafe
		result.Method = MethodNone
		result.Remaining = budget
		result.Narrative = msgs.noData(budget)
		return result
	}

	result.DailySeries = CumulativeSeries(txs, today)
	result.SpentSoFar = result.DailySeries[len(result.DailySeries)-1].CumulativeAmount

	var predicted float64
	if len(result.DailySeries) < 2 {
		result.Method = MethodAverage
		predicted = float64(result.SpentSoFar) / float64(today) * float64(daysInMonth)
		result.Slope = float64(result.SpentSoFar) / float64(today)
	} else {
		result.Method = MethodRegression
		m, c := LinearFit(result.DailySeries)
		result.Slope = m
		predicted = m*float64(daysInMonth) + c
	}

	result.PredictedTotal = int64(math.Round(predicted))
	if result.PredictedTotal < result.SpentSoFar {
		result.PredictedTotal = result.SpentSoFar
	}

	result.Status = Classify(result.PredictedTotal, budget)
	result.Remaining = budget - result.PredictedTotal
	result.Narrative = msgs.narrative(result)
	return result
}

// CumulativeSeries sums spending per day and returns a gapless running total
// for days 1..today. Transactions dated after today are ignored. Dates are
// civil days stored as UTC midnight, so the day is read in UTC whatever
// location the driver decoded them into.
func CumulativeSeries(txs []store.Transaction, today int) []Point {
	daily := make([]int64, today+1)
	for _, tx := range txs {
		d := tx.Date.UTC().Day()
		if d < 1 || d > today {
			continue
		}
		daily[d] += tx.Amount
	}

	series := make([]Point, today)
	var running int64
	for d := 1; d <= today; d++ {
		running += daily[d]
		series[d-1] = Point{Day: d, CumulativeAmount: running}
	}
	return series
}

// LinearFit returns the ordinary least-squares slope and intercept of
// cumulative amount against day. It needs at least two distinct days.
func LinearFit(points []Point) (slope, intercept float64) {
	n := float64(len(points))
	var sumX, sumY, sumXY, sumXX float64
	for _, p := range points {
		x := float64(p.Day)
		y := float64(p.CumulativeAmount)
		sumX += x
		sumY += y
		sumXY += x * y
		sumXX += x * x
	}

	denom := n*sumXX - sumX*sumX
	if denom == 0 {
		return 0, sumY / n
	}
	slope = (n*sumXY - sumX*sumY) / denom
	intercept = (sumY - slope*sumX) / n
	return slope, intercept
}

// Classify rates a predicted total against the budget.
func Classify(predicted, budget int64) Status {
	switch {
	case predicted >= budget:
		return StatusDanger
	case float64(predicted) >= WarningRatio*float64(budget):
		return StatusWarning
	default:
		return StatusSafe
	}
}

// DaysIn returns the number of days in a month, leap years included.
func DaysIn(year int, month time.Month) int {
	return time.Date(year, month+1, 0, 0, 0, 0, 0, time.UTC).Day()
}

// formatHeadroom floors negative headroom at zero for display.
func formatHeadroom(remaining int64) string {
	if remaining < 0 {
		remaining = 0
	}
	return currency.Format(remaining)
}
