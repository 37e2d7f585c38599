// Package currency parses and formats VND amounts in the local convention:
// whole units, "." as thousands separator and the "đ" symbol.
package currency

import (
	"encoding/json"
	"fmt"
	"math"
	"regexp"
	"strconv"
	"strings"

	"github.com/dustin/go-humanize"
)

// Symbol is appended to formatted amounts.
const Symbol = "đ"

var (
	shorthand = regexp.MustCompile(`^(\d+(?:[.,]\d+)?)\s*(triệu|tr|nghìn|ngàn|ngan|nghin|k|tỷ|tỉ|ty|củ|cu|m|b)\s*(\d*)$`)
	grouped   = regexp.MustCompile(`^\d{1,3}([.,]\d{3})+$`)
	plain     = regexp.MustCompile(`^\d+([.,]\d+)?$`)
)

var multipliers = map[string]float64{
	"k": 1e3, "nghìn": 1e3, "ngàn": 1e3, "ngan": 1e3, "nghin": 1e3,
	"tr": 1e6, "triệu": 1e6, "m": 1e6, "củ": 1e6, "cu": 1e6,
	"tỷ": 1e9, "tỉ": 1e9, "ty": 1e9, "b": 1e9,
}

// Format renders an amount as "1.234.567đ".
func Format(amount int64) string {
	return humanize.FormatInteger("#.###,", int(amount)) + Symbol
}

// Parse converts a user or model supplied amount into whole VND.
// Accepted shapes include "50000", "50.000đ", "50k", "1,5 triệu", "1tr2"
// (1.200.000) and "2 tỷ".
func Parse(s string) (int64, error) {
	raw := s
	s = strings.ToLower(strings.TrimSpace(s))
	for _, suffix := range []string{"vnđ", "vnd", "đồng", "dong", "₫", "đ"} {
		s = strings.TrimSpace(strings.TrimSuffix(s, suffix))
	}
	s = strings.ReplaceAll(s, " ", "")
	if s == "" {
		return 0, fmt.Errorf("empty amount")
	}

	if m := shorthand.FindStringSubmatch(s); m != nil {
		base, err := strconv.ParseFloat(strings.ReplaceAll(m[1], ",", "."), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		mult := multipliers[m[2]]
		value := base * mult
		// "1tr2" reads as 1.2 million, "2k5" as 2.5 thousand.
		if tail := m[3]; tail != "" {
			frac, _ := strconv.ParseFloat("0."+tail, 64)
			value += frac * mult
		}
		return int64(math.Round(value)), nil
	}

	if grouped.MatchString(s) {
		digits := strings.NewReplacer(".", "", ",", "").Replace(s)
		return strconv.ParseInt(digits, 10, 64)
	}

	if plain.MatchString(s) {
		v, err := strconv.ParseFloat(strings.ReplaceAll(s, ",", "."), 64)
		if err != nil {
			return 0, fmt.Errorf("invalid amount %q: %w", raw, err)
		}
		return int64(math.Round(v)), nil
	}

	return 0, fmt.Errorf("invalid amount %q", raw)
}

// Amount is a whole-VND value that decodes from either a JSON number or a
// string understood by Parse.
type Amount int64

// UnmarshalJSON implements json.Unmarshaler.
func (a *Amount) UnmarshalJSON(data []byte) error {
	if len(data) > 0 && data[0] == '"' {
		var s string
		if err := json.Unmarshal(data, &s); err != nil {
			return err
		}
		v, err := Parse(s)
		if err != nil {
			return err
		}
		*a = Amount(v)
		return nil
	}

	var f float64
	if err := json.Unmarshal(data, &f); err != nil {
		return fmt.Errorf("amount must be a number: %w", err)
	}
	*a = Amount(math.Round(f))
	return nil
}

// Int64 returns the amount as int64.
func (a Amount) Int64() int64 { return int64(a) }
