package fields

import (
	"math"
	"strings"

	"github.com/dgallion1/bondgen/internal/sheet"
	"github.com/shopspring/decimal"
)

// MaxPrincipal is the largest amount the words converter can render.
const MaxPrincipal int64 = 999_999_999_999_999

var maxPrincipal = decimal.NewFromInt(MaxPrincipal)

// ParsePrincipal converts a cell to a positive whole-dollar amount.
// Strings may carry "$" and thousands separators.
func ParsePrincipal(c sheet.Cell) Result[int64] {
	switch c.Kind {
	case sheet.Empty:
		return fail[int64]("principal amount is empty")
	case sheet.Bool:
		return fail[int64]("expected a principal amount, got %s", c.Text())
	case sheet.Number:
		if math.IsNaN(c.Num) || math.IsInf(c.Num, 0) {
			return fail[int64]("invalid principal amount")
		}
		return principalFrom(decimal.NewFromFloat(c.Num), c.Text(), false)
	}

	raw := strings.TrimSpace(c.Str)
	if hasPlaceholder(raw) {
		return fail[int64]("principal amount %q contains placeholder characters", raw)
	}
	cleaned := strings.NewReplacer("$", "", ",", "", " ", "").Replace(raw)
	if cleaned == "" {
		return fail[int64]("principal amount is empty")
	}
	d, err := decimal.NewFromString(cleaned)
	if err != nil {
		return fail[int64]("principal amount %q is not a number", raw)
	}
	return principalFrom(d, raw, strings.Contains(cleaned, "."))
}

func principalFrom(d decimal.Decimal, raw string, hadPoint bool) Result[int64] {
	if !d.IsInteger() {
		return fail[int64]("principal amount %s must be a whole dollar amount", raw)
	}
	if d.Sign() <= 0 {
		return fail[int64]("principal amount must be greater than zero (got %s)", raw)
	}
	if d.GreaterThan(maxPrincipal) {
		return fail[int64]("principal amount %s exceeds the maximum supported value", raw)
	}
	r := ok(d.IntPart())
	if hadPoint {
		r.Warnings = append(r.Warnings, "principal amount "+raw+" has a decimal point; read as "+d.StringFixed(0))
	}
	return r
}
