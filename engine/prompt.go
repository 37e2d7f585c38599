package engine

import (
	"fmt"
	"strings"
	"time"

	"github.com/chitieu/finbot/core"
	"github.com/chitieu/finbot/store"
)

// SystemPromptTemplate is the persona and rules of the finance assistant.
// The placeholders are filled by BuildSystemPrompt.
const SystemPromptTemplate = `Bạn là trợ lý tài chính cá nhân thân thiện, nói tiếng Việt.

Nhiệm vụ của bạn là giúp người dùng ghi chép chi tiêu, xem lại và phân tích chi tiêu,
dự báo chi tiêu cuối tháng và tra cứu giá Bitcoin, tỷ giá USD.

HÔM NAY: {{TODAY}} ({{WEEKDAY}})

QUY TẮC SỐ TIỀN:
- Mọi số tiền là VND nguyên, không có phần thập phân
- "k" hoặc "nghìn" = x1.000 (ví dụ "50k" = 50000)
- "tr", "triệu" hoặc "củ" = x1.000.000 (ví dụ "1tr" = 1000000, "1tr2" = 1200000)
- "tỷ" = x1.000.000.000
- Luôn truyền số tiền đã quy đổi thành số nguyên cho công cụ

DANH MỤC CHI TIÊU (dùng đúng tên tiếng Anh khi gọi công cụ):
{{CATEGORIES}}

CÔNG CỤ:
{{TOOLS}}

HƯỚNG DẪN:
- Khi người dùng kể đã chi tiền, gọi add_expense; nếu không nói ngày thì dùng ngày hôm nay
- "hôm qua" là ngày trước hôm nay; tự tính ngày theo định dạng YYYY-MM-DD
- Chỉ gọi delete_expense khi người dùng yêu cầu xóa rõ ràng
- Với lời chào hoặc câu hỏi chung, trả lời trực tiếp, không gọi công cụ
- Nếu giá thị trường là ước tính hoặc dữ liệu cũ, hãy nói rõ cho người dùng
- Hiển thị số tiền theo dạng 1.234.567đ
- Trả lời ngắn gọn, thân thiện, bằng tiếng Việt`

// BuildSystemPrompt fills the template with today's date, the category
// taxonomy and the tool catalog.
func BuildSystemPrompt(now time.Time, defs []core.ToolDefinition) string {
	var categories strings.Builder
	for _, c := range store.Categories {
		fmt.Fprintf(&categories, "- %s: %s\n", c, c.Label())
	}

	var catalog strings.Builder
	for _, def := range defs {
		fmt.Fprintf(&catalog, "- %s: %s\n", def.ToolName, def.ToolDescription)
	}

	return strings.NewReplacer(
		"{{TODAY}}", now.Format("2006-01-02"),
		"{{WEEKDAY}}", weekdays[now.Weekday()],
		"{{CATEGORIES}}", strings.TrimRight(categories.String(), "\n"),
		"{{TOOLS}}", strings.TrimRight(catalog.String(), "\n"),
	).Replace(SystemPromptTemplate)
}

var weekdays = [...]string{
	time.Sunday:    "Chủ nhật",
	time.Monday:    "Thứ hai",
	time.Tuesday:   "Thứ ba",
	time.Wednesday: "Thứ tư",
	time.Thursday:  "Thứ năm",
	time.Friday:    "Thứ sáu",
	time.Saturday:  "Thứ bảy",
}
