package tools

import (
	"context"

	"github.com/chitieu/finbot/core"
	"github.com/chitieu/finbot/currency"
	"github.com/chitieu/finbot/forecast"
)

// Forecaster projects month-end spending for an owner.
type Forecaster interface {
	Forecast(ctx context.Context, ownerID string, budget int64) (*forecast.Result, error)
}

type forecastParams struct {
	Budget currency.Amount `json:"budget" validate:"gte=0"`
}

// CreateGetSpendingForecastTool creates the month-end projection tool.
func CreateGetSpendingForecastTool(f Forecaster) core.Tool {
	return New("get_spending_forecast").
		Description("Predict the user's total spending by the end of the current month and compare it with their monthly budget (Safe / Warning / Danger). Use for questions like 'will I go over budget?'.").
		Schema(ObjectSchema(map[string]interface{}{
			"budget": NumberProperty("Monthly budget in whole VND (default: the configured budget)"),
		})).
		Handler(func(ctx context.Context, toolParams *core.ToolParams) (*core.ToolResult, error) {
			var params forecastParams
			if failure := Decode(toolParams.Input, &params); failure != nil {
				return failure, nil
			}

			result, err := f.Forecast(ctx, toolParams.UserID, params.Budget.Int64())
			if err != nil {
				return failureFromError(err), nil
			}
			return core.ToolSuccess(result), nil
		}).
		Build()
}
