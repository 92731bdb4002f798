package fields

import (
	"math"
	"strings"

	"github.com/dgallion1/bondgen/internal/sheet"
	"github.com/shopspring/decimal"
)

var hundred = decimal.NewFromInt(100)

// ParseRate converts a cell to a coupon rate in percent. Values above 100
// are kept but flagged, since some sources write fractions as percentages.
func ParseRate(c sheet.Cell) Result[decimal.Decimal] {
	var d decimal.Decimal
	switch c.Kind {
	case sheet.Empty:
		return fail[decimal.Decimal]("coupon rate is empty")
	case sheet.Bool:
		return fail[decimal.Decimal]("expected a coupon rate, got %s", c.Text())
	case sheet.Number:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return fail[decimal.Decimal]("invalid coupon rate")
		}
		d = decimal.NewFromFloat(c.Num)
	default:
		raw := strings.TrimSpace(c.Str)
		cleaned := strings.TrimSpace(strings.TrimSuffix(raw, "%"))
		if cleaned == "" {
			return fail[decimal.Decimal]("coupon rate is empty")
		}
		var err error
		d, err = decimal.NewFromString(cleaned)
		if err != nil {
			return fail[decimal.Decimal]("coupon rate %q is not a number", raw)
		}
	}

	if d.IsNegative() {
		return fail[decimal.Decimal]("coupon rate cannot be negative (got %s)", d.String())
	}
	r := ok(d)
	if d.GreaterThan(hundred) {
		r.Warnings = append(r.Warnings, "coupon rate "+d.String()+"% is unusually high, please confirm")
	}
	return r
}
