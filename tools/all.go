package tools

import (
	"github.com/chitieu/finbot/core"
	"github.com/chitieu/finbot/store"
)

// Deps are the collaborators the finance tools run against.
type Deps struct {
	Ledger     store.Transactions
	Market     MarketData
	Forecaster Forecaster
	Clock      Clock
}

// All returns every finance tool. Market and forecast tools are omitted when
// their collaborator is nil.
func All(deps Deps) []core.Tool {
	list := []core.Tool{
		CreateAddExpenseTool(deps.Ledger, deps.Clock),
		CreateGetMonthlyExpensesTool(deps.Ledger, deps.Clock),
		CreateGetExpenseStatsTool(deps.Ledger, deps.Clock),
		CreateDeleteExpenseTool(deps.Ledger),
	}
	if deps.Forecaster != nil {
		list = append(list, CreateGetSpendingForecastTool(deps.Forecaster))
	}
	if deps.Market != nil {
		list = append(list,
			CreateGetBTCPriceTool(deps.Market),
			CreateGetUSDRateTool(deps.Market),
			CreateGetMarketInfoTool(deps.Market),
		)
	}
	return list
}
