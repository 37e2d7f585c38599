package forecast

import (
	"fmt"

	"github.com/chitieu/finbot/currency"
)

// catalog renders narratives in one language.
type catalog struct {
	noData    func(budget int64) string
	narrative func(r *Result) string
}

func catalogFor(language string) catalog {
	if language == "en" {
		return english
	}
	return vietnamese
}

var vietnamese = catalog{
	noData: func(budget int64) string {
		return fmt.Sprintf("Chưa có dữ liệu chi tiêu tháng này (no data yet). Ngân sách của bạn là %s.",
			currency.Format(budget))
	},
	narrative: func(r *Result) string {
		predicted := currency.Format(r.PredictedTotal)
		switch r.Status {
		case StatusDanger:
			if r.PredictedTotal == r.Budget {
				return fmt.Sprintf("Nguy hiểm: với tốc độ hiện tại, bạn sẽ chi khoảng %s tháng này, chạm đúng ngân sách %s. Không còn dư để chi thêm.",
					predicted, currency.Format(r.Budget))
			}
			return fmt.Sprintf("Nguy hiểm: với tốc độ hiện tại, bạn sẽ chi khoảng %s tháng này, vượt ngân sách %s khoảng %s. Hãy cắt giảm chi tiêu ngay.",
				predicted, currency.Format(r.Budget), currency.Format(r.PredictedTotal-r.Budget))
		case StatusWarning:
			return fmt.Sprintf("Cảnh báo: dự kiến bạn chi khoảng %s tháng này, đã gần chạm ngân sách %s. Chỉ còn dư khoảng %s.",
				predicted, currency.Format(r.Budget), formatHeadroom(r.Remaining))
		default:
			return fmt.Sprintf("An toàn: dự kiến bạn chi khoảng %s tháng này, vẫn trong ngân sách %s. Bạn còn dư khoảng %s.",
				predicted, currency.Format(r.Budget), formatHeadroom(r.Remaining))
		}
	},
}

var english = catalog{
	noData: func(budget int64) string {
		return fmt.Sprintf("No data yet for this month. Your budget is %s.", currency.Format(budget))
	},
	narrative: func(r *Result) string {
		predicted := currency.Format(r.PredictedTotal)
		switch r.Status {
		case StatusDanger:
			if r.PredictedTotal == r.Budget {
				return fmt.Sprintf("Danger: at the current pace you will spend about %s this month, reaching your %s budget exactly. Nothing is left to spare.",
					predicted, currency.Format(r.Budget))
			}
			return fmt.Sprintf("Danger: at the current pace you will spend about %s this month, over your %s budget by about %s.",
				predicted, currency.Format(r.Budget), currency.Format(r.PredictedTotal-r.Budget))
		case StatusWarning:
			return fmt.Sprintf("Warning: you are on track to spend about %s this month, close to your %s budget. About %s left.",
				predicted, currency.Format(r.Budget), formatHeadroom(r.Remaining))
		default:
			return fmt.Sprintf("Safe: you are on track to spend about %s this month, within your %s budget. About %s left.",
				predicted, currency.Format(r.Budget), formatHeadroom(r.Remaining))
		}
	},
}
