// Package store provides the owner-scoped transaction ledger.
package store

import (
	"strings"
	"time"

	"github.com/google/uuid"
	"gorm.io/gorm"

	apperrors "github.com/chitieu/finbot/errors"
)

// Category is the fixed spending taxonomy.
type Category string

const (
	CategoryFood          Category = "Food"
	CategoryTransport     Category = "Transport"
	CategoryShopping      Category = "Shopping"
	CategoryEntertainment Category = "Entertainment"
	CategoryBills         Category = "Bills"
	CategoryHealth        Category = "Health"
	CategoryOther         Category = "Other"
)

// Categories lists every category in display order.
var Categories = []Category{
	CategoryFood,
	CategoryTransport,
	CategoryShopping,
	CategoryEntertainment,
	CategoryBills,
	CategoryHealth,
	CategoryOther,
}

var categoryLabels = map[Category]string{
	CategoryFood:          "Ăn uống",
	CategoryTransport:     "Di chuyển",
	CategoryShopping:      "Mua sắm",
	CategoryEntertainment: "Giải trí",
	CategoryBills:         "Hóa đơn",
	CategoryHealth:        "Sức khỏe",
	CategoryOther:         "Khác",
}

var categoryAliases = map[string]Category{
	"food": CategoryFood, "ăn uống": CategoryFood, "ăn": CategoryFood, "an uong": CategoryFood,
	"đồ ăn": CategoryFood, "cà phê": CategoryFood, "cafe": CategoryFood, "coffee": CategoryFood,

	"transport": CategoryTransport, "di chuyển": CategoryTransport, "di chuyen": CategoryTransport,
	"xăng": CategoryTransport, "grab": CategoryTransport, "taxi": CategoryTransport, "gửi xe": CategoryTransport,

	"shopping": CategoryShopping, "mua sắm": CategoryShopping, "mua sam": CategoryShopping, "quần áo": CategoryShopping,

	"entertainment": CategoryEntertainment, "giải trí": CategoryEntertainment, "giai tri": CategoryEntertainment,
	"phim": CategoryEntertainment, "du lịch": CategoryEntertainment,

	"bills": CategoryBills, "bill": CategoryBills, "hóa đơn": CategoryBills, "hoa don": CategoryBills,
	"tiền điện": CategoryBills, "tiền nước": CategoryBills, "internet": CategoryBills, "tiền nhà": CategoryBills,

	"health": CategoryHealth, "sức khỏe": CategoryHealth, "sức khoẻ": CategoryHealth, "suc khoe": CategoryHealth,
	"thuốc": CategoryHealth, "bệnh viện": CategoryHealth, "khám bệnh": CategoryHealth,

	"other": CategoryOther, "khác": CategoryOther, "khac": CategoryOther,
}

// NormalizeCategory maps free text onto the taxonomy. Unknown values become Other.
func NormalizeCategory(s string) Category {
	key := strings.ToLower(strings.TrimSpace(s))
	if c, ok := categoryAliases[key]; ok {
		return c
	}
	return CategoryOther
}

// Label returns the Vietnamese display name of the category.
func (c Category) Label() string {
	if label, ok := categoryLabels[c]; ok {
		return label
	}
	return categoryLabels[CategoryOther]
}

// Transaction is a single expense owned by one user.
type Transaction struct {
	ID        string    `gorm:"type:varchar(36);primaryKey" json:"id"`
	OwnerID   string    `gorm:"type:varchar(128);not null;index:idx_owner_date,priority:1" json:"owner_id"`
	Amount    int64     `gorm:"type:bigint;not null" json:"amount"`
	Category  Category  `gorm:"type:varchar(32);not null;index" json:"category"`
	Note      string    `json:"note,omitempty"`
	Date      time.Time `gorm:"not null;index:idx_owner_date,priority:2" json:"date"`
	Merchant  string    `json:"merchant,omitempty"`
	RawText   string    `json:"raw_text,omitempty"`
	CreatedAt time.Time `json:"created_at"`
}

// BeforeCreate enforces the ledger invariants and assigns an id.
func (t *Transaction) BeforeCreate(tx *gorm.DB) error {
	if t.Amount <= 0 {
		return apperrors.WithMessage(apperrors.ErrValidation, "amount must be greater than zero")
	}
	if t.OwnerID == "" {
		return apperrors.WithMessage(apperrors.ErrValidation, "owner is required")
	}
	if t.ID == "" {
		t.ID = uuid.New().String()
	}
	t.Category = NormalizeCategory(string(t.Category))
	t.Date = Day(t.Date)
	return nil
}

// AfterFind restores the UTC-midnight form of Date. Some drivers (pgx for
// timestamptz) decode into the host's local zone, which would move the
// civil day west of UTC.
func (t *Transaction) AfterFind(tx *gorm.DB) error {
	t.Date = t.Date.UTC()
	return nil
}

// Day truncates t to its civil date, expressed as UTC midnight. The calendar
// fields are taken in t's own location, so callers pass times already in the
// user's timezone.
func Day(t time.Time) time.Time {
	y, m, d := t.Date()
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

// MonthRange returns the first and last day of a month as Day values.
func MonthRange(year int, month time.Month) (time.Time, time.Time) {
	first := time.Date(year, month, 1, 0, 0, 0, 0, time.UTC)
	return first, first.AddDate(0, 1, -1)
}

// LookupCategory resolves free text onto the taxonomy and reports whether it
// was recognised.
func LookupCategory(s string) (Category, bool) {
	c, ok := categoryAliases[strings.ToLower(strings.TrimSpace(s))]
	return c, ok
}
