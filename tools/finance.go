package tools

import (
	"context"
	"fmt"
	"math"
	"sort"
	"strings"
	"time"

	"github.com/chitieu/finbot/core"
	"github.com/chitieu/finbot/currency"
	apperrors "github.com/chitieu/finbot/errors"
	"github.com/chitieu/finbot/logger"
	"github.com/chitieu/finbot/store"
)

// Clock returns the current time in the user's timezone.
type Clock func() time.Time

const (
	dateLayout    = "2006-01-02"
	displayLayout = "02/01/2006"
	recentLimit   = 5
)

// TransactionView is the model-facing rendering of a transaction.
type TransactionView struct {
	ID              string `json:"id"`
	Amount          int64  `json:"amount"`
	AmountFormatted string `json:"amount_formatted"`
	Category        string `json:"category"`
	CategoryLabel   string `json:"category_label"`
	Date            string `json:"date"`
	Note            string `json:"note,omitempty"`
	Merchant        string `json:"merchant,omitempty"`
}

func viewOf(tx store.Transaction) TransactionView {
	return TransactionView{
		ID:              tx.ID,
		Amount:          tx.Amount,
		AmountFormatted: currency.Format(tx.Amount),
		Category:        string(tx.Category),
		CategoryLabel:   tx.Category.Label(),
		Date:            tx.Date.UTC().Format(dateLayout),
		Note:            tx.Note,
		Merchant:        tx.Merchant,
	}
}

// ============================================================================
// ADD EXPENSE
// ============================================================================

type addExpenseParams struct {
	Amount   currency.Amount `json:"amount" validate:"gt=0"`
	Category string          `json:"category"`
	Note     string          `json:"note" validate:"max=500"`
	Date     string          `json:"date"`
	Merchant string          `json:"merchant" validate:"max=200"`
}

// AddExpenseResult confirms a recorded expense.
type AddExpenseResult struct {
	TransactionView
	Message string `json:"message"`
}

// CreateAddExpenseTool creates the tool that records a new expense.
func CreateAddExpenseTool(ledger store.Transactions, clock Clock) core.Tool {
	return New("add_expense").
		Description("Record a new expense for the user. Use whenever the user says they spent or paid money. Amounts are whole VND (\"50k\" = 50000, \"1tr\" = 1000000).").
		Schema(ObjectSchema(map[string]interface{}{
			"amount":   NumberProperty("Amount spent in whole VND, must be positive (e.g., 50000)"),
			"category": StringEnumProperty("Spending category", categoryNames()...),
			"note":     StringProperty("Optional short description (e.g., 'phở bò')"),
			"date":     StringProperty("Date of the expense, YYYY-MM-DD. Use today's date when the user does not say otherwise."),
			"merchant": StringProperty("Optional merchant or shop name"),
		}, "amount", "category", "date")).
		Handler(func(ctx context.Context, toolParams *core.ToolParams) (*core.ToolResult, error) {
			var params addExpenseParams
			if failure := Decode(toolParams.Input, &params); failure != nil {
				return failure, nil
			}

			date, err := parseDate(params.Date, clock)
			if err != nil {
				return core.ToolFailure(apperrors.ErrValidation.Code, err.Error()), nil
			}

			tx := &store.Transaction{
				OwnerID:  toolParams.UserID,
				Amount:   params.Amount.Int64(),
				Category: store.NormalizeCategory(params.Category),
				Note:     strings.TrimSpace(params.Note),
				Date:     date,
				Merchant: strings.TrimSpace(params.Merchant),
				RawText:  toolParams.Utterance,
			}
			if err := ledger.Create(ctx, tx); err != nil {
				return failureFromError(err), nil
			}

			view := viewOf(*tx)
			return core.ToolSuccess(&AddExpenseResult{
				TransactionView: view,
				Message: fmt.Sprintf("Đã ghi nhận %s cho %s ngày %s.",
					view.AmountFormatted, view.CategoryLabel, tx.Date.UTC().Format(displayLayout)),
			}), nil
		}).
		Build()
}

// parseDate accepts YYYY-MM-DD or RFC3339; empty means today.
func parseDate(raw string, clock Clock) (time.Time, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return store.Day(clock()), nil
	}
	if d, err := time.Parse(dateLayout, raw); err == nil {
		return d, nil
	}
	if t, err := time.Parse(time.RFC3339, raw); err == nil {
		return store.Day(t.In(clock().Location())), nil
	}
	return time.Time{}, fmt.Errorf("invalid date %q, expected YYYY-MM-DD", raw)
}

// ============================================================================
// MONTHLY EXPENSES
// ============================================================================

type monthParams struct {
	Year  int `json:"year" validate:"omitempty,min=2000,max=2100"`
	Month int `json:"month" validate:"omitempty,min=1,max=12"`
}

func (p monthParams) resolve(clock Clock) (int, time.Month) {
	now := clock()
	year, month := now.Year(), now.Month()
	if p.Year != 0 {
		year = p.Year
	}
	if p.Month != 0 {
		month = time.Month(p.Month)
	}
	return year, month
}

// CategoryTotal aggregates one category within a month.
type CategoryTotal struct {
	Count          int    `json:"count"`
	Total          int64  `json:"total"`
	TotalFormatted string `json:"total_formatted"`
}

// MonthlySummary is the result of get_monthly_expenses.
type MonthlySummary struct {
	Year           int                       `json:"year"`
	Month          int                       `json:"month"`
	Total          int64                     `json:"total"`
	TotalFormatted string                    `json:"total_formatted"`
	Count          int                       `json:"count"`
	ByCategory     map[string]*CategoryTotal `json:"by_category"`
	Recent         []TransactionView         `json:"recent"`
}

func summarize(year int, month time.Month, txs []store.Transaction) *MonthlySummary {
	summary := &MonthlySummary{
		Year:       year,
		Month:      int(month),
		ByCategory: make(map[string]*CategoryTotal),
		Recent:     make([]TransactionView, 0, recentLimit),
	}
	for _, tx := range txs {
		summary.Total += tx.Amount
		summary.Count++
		ct, ok := summary.ByCategory[string(tx.Category)]
		if !ok {
			ct = &CategoryTotal{}
			summary.ByCategory[string(tx.Category)] = ct
		}
		ct.Count++
		ct.Total += tx.Amount
	}
	for _, ct := range summary.ByCategory {
		ct.TotalFormatted = currency.Format(ct.Total)
	}
	summary.TotalFormatted = currency.Format(summary.Total)

	// The store already orders by date desc; keep the guarantee local.
	sorted := append([]store.Transaction(nil), txs...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Date.After(sorted[j].Date) })
	for i := 0; i < len(sorted) && i < recentLimit; i++ {
		summary.Recent = append(summary.Recent, viewOf(sorted[i]))
	}
	return summary
}

func loadMonth(ctx context.Context, ledger store.Transactions, ownerID string, year int, month time.Month) ([]store.Transaction, error) {
	from, to := store.MonthRange(year, month)
	return ledger.ListByDateRange(ctx, ownerID, from, to)
}

// CreateGetMonthlyExpensesTool creates the monthly summary tool.
func CreateGetMonthlyExpensesTool(ledger store.Transactions, clock Clock) core.Tool {
	return New("get_monthly_expenses").
		Description("Get the user's total spending for a month, broken down by category, with the 5 most recent expenses. Defaults to the current month.").
		Schema(ObjectSchema(map[string]interface{}{
			"year":  IntegerProperty("Year, e.g. 2024 (default: current year)"),
			"month": IntegerProperty("Month 1-12 (default: current month)"),
		})).
		Handler(func(ctx context.Context, toolParams *core.ToolParams) (*core.ToolResult, error) {
			var params monthParams
			if failure := Decode(toolParams.Input, &params); failure != nil {
				return failure, nil
			}
			year, month := params.resolve(clock)

			txs, err := loadMonth(ctx, ledger, toolParams.UserID, year, month)
			if err != nil {
				return failureFromError(err), nil
			}
			return core.ToolSuccess(summarize(year, month, txs)), nil
		}).
		Build()
}

// ============================================================================
// EXPENSE STATS
// ============================================================================

// CategoryShare is one row of the category ranking.
type CategoryShare struct {
	Category       string  `json:"category"`
	Label          string  `json:"label"`
	Count          int     `json:"count"`
	Total          int64   `json:"total"`
	TotalFormatted string  `json:"total_formatted"`
	Percentage     float64 `json:"percentage"`
}

// ExpenseStats is the result of get_expense_stats.
type ExpenseStats struct {
	*MonthlySummary
	Ranking     []CategoryShare `json:"ranking"`
	TopCategory *CategoryShare  `json:"top_category,omitempty"`
	Insight     string          `json:"insight"`
}

func computeStats(summary *MonthlySummary) *ExpenseStats {
	stats := &ExpenseStats{
		MonthlySummary: summary,
		Ranking:        make([]CategoryShare, 0, len(summary.ByCategory)),
	}

	for name, ct := range summary.ByCategory {
		share := CategoryShare{
			Category:       name,
			Label:          store.Category(name).Label(),
			Count:          ct.Count,
			Total:          ct.Total,
			TotalFormatted: ct.TotalFormatted,
		}
		if summary.Total > 0 {
			share.Percentage = math.Round(float64(ct.Total)*1000/float64(summary.Total)) / 10
		}
		stats.Ranking = append(stats.Ranking, share)
	}
	sort.Slice(stats.Ranking, func(i, j int) bool {
		if stats.Ranking[i].Total != stats.Ranking[j].Total {
			return stats.Ranking[i].Total > stats.Ranking[j].Total
		}
		return stats.Ranking[i].Category < stats.Ranking[j].Category
	})

	if len(stats.Ranking) == 0 {
		stats.Insight = fmt.Sprintf("Chưa có chi tiêu nào trong tháng %d/%d.", summary.Month, summary.Year)
		return stats
	}

	top := stats.Ranking[0]
	stats.TopCategory = &top
	stats.Insight = fmt.Sprintf("Bạn chi nhiều nhất cho %s: %s (%.1f%% tổng chi tiêu tháng %d/%d).",
		top.Label, top.TotalFormatted, top.Percentage, summary.Month, summary.Year)
	return stats
}

// CreateGetExpenseStatsTool creates the category ranking tool.
func CreateGetExpenseStatsTool(ledger store.Transactions, clock Clock) core.Tool {
	return New("get_expense_stats").
		Description("Analyze the user's spending for a month: categories ranked by total with their percentage of all spending, and the top category. Use for questions like 'what do I spend most on?'.").
		Schema(ObjectSchema(map[string]interface{}{
			"year":  IntegerProperty("Year, e.g. 2024 (default: current year)"),
			"month": IntegerProperty("Month 1-12 (default: current month)"),
		})).
		Handler(func(ctx context.Context, toolParams *core.ToolParams) (*core.ToolResult, error) {
			var params monthParams
			if failure := Decode(toolParams.Input, &params); failure != nil {
				return failure, nil
			}
			year, month := params.resolve(clock)

			txs, err := loadMonth(ctx, ledger, toolParams.UserID, year, month)
			if err != nil {
				return failureFromError(err), nil
			}
			return core.ToolSuccess(computeStats(summarize(year, month, txs))), nil
		}).
		Build()
}

// ============================================================================
// DELETE EXPENSE
// ============================================================================

type deleteExpenseParams struct {
	Category  string `json:"category"`
	DeleteAll bool   `json:"delete_all"`
	Limit     int    `json:"limit" validate:"omitempty,min=1,max=100"`
}

// DeleteResult reports what delete_expense removed.
type DeleteResult struct {
	Mode    string            `json:"mode"`
	Deleted int64             `json:"deleted"`
	Items   []TransactionView `json:"items"`
	Message string            `json:"message"`
}

// CreateDeleteExpenseTool creates the deletion tool. Modes are checked in
// order: delete_all, then category, then the most recent expenses.
func CreateDeleteExpenseTool(ledger store.Transactions) core.Tool {
	return New("delete_expense").
		Description("Delete the user's expenses. Set delete_all=true to wipe everything, or a category to delete the most recent expenses of that category, or neither to delete the most recent expense(s). Only call when the user explicitly asks to delete.").
		Schema(ObjectSchema(map[string]interface{}{
			"category":   StringEnumProperty("Only delete expenses in this category", categoryNames()...),
			"delete_all": BooleanProperty("Delete every expense of the user"),
			"limit":      IntegerProperty("How many recent expenses to delete (default: 1)"),
		})).
		Handler(func(ctx context.Context, toolParams *core.ToolParams) (*core.ToolResult, error) {
			var params deleteExpenseParams
			if failure := Decode(toolParams.Input, &params); failure != nil {
				return failure, nil
			}
			if params.Limit == 0 {
				params.Limit = 1
			}

			if params.DeleteAll {
				n, err := ledger.DeleteAll(ctx, toolParams.UserID)
				if err != nil {
					return failureFromError(err), nil
				}
				return core.ToolSuccess(&DeleteResult{
					Mode:    "all",
					Deleted: n,
					Items:   []TransactionView{},
					Message: fmt.Sprintf("Đã xóa toàn bộ %d khoản chi.", n),
				}), nil
			}

			var category store.Category
			mode := "recent"
			if strings.TrimSpace(params.Category) != "" {
				c, ok := store.LookupCategory(params.Category)
				if !ok {
					return core.ToolFailure(apperrors.ErrValidation.Code,
						fmt.Sprintf("unknown category %q", params.Category)), nil
				}
				category = c
				mode = "category"
			}

			victims, err := ledger.ListRecent(ctx, toolParams.UserID, category, params.Limit)
			if err != nil {
				return failureFromError(err), nil
			}
			ids := make([]string, len(victims))
			items := make([]TransactionView, len(victims))
			for i, tx := range victims {
				ids[i] = tx.ID
				items[i] = viewOf(tx)
			}

			n, err := ledger.DeleteByIDs(ctx, toolParams.UserID, ids)
			if err != nil {
				return failureFromError(err), nil
			}

			msg := fmt.Sprintf("Đã xóa %d khoản chi gần nhất.", n)
			if n == 0 {
				msg = "Không có khoản chi nào để xóa."
			} else if mode == "category" {
				msg = fmt.Sprintf("Đã xóa %d khoản chi %s gần nhất.", n, category.Label())
			}
			return core.ToolSuccess(&DeleteResult{
				Mode:    mode,
				Deleted: n,
				Items:   items,
				Message: msg,
			}), nil
		}).
		Build()
}

// ============================================================================
// HELPERS
// ============================================================================

func categoryNames() []string {
	names := make([]string, len(store.Categories))
	for i, c := range store.Categories {
		names[i] = string(c)
	}
	return names
}

// failureFromError converts a collaborator error into a failed result that
// exposes only the sanitized message.
func failureFromError(err error) *core.ToolResult {
	code := apperrors.CodeOf(err)
	if code == "" || code == apperrors.ErrStore.Code {
		logger.Get().Errorw("ledger operation failed", "error", err)
		return core.ToolFailure(apperrors.ErrExecution.Code, apperrors.ErrExecution.Message)
	}
	return core.ToolFailure(code, err.Error())
}
