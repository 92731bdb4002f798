// Package bond merges maturity and CUSIP rows into numbered certificates.
package bond

import (
	"fmt"
	"strings"
	"time"
	"unicode"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/dgallion1/bondgen/internal/fields"
	"github.com/dgallion1/bondgen/internal/schedule"
	"github.com/dgallion1/bondgen/internal/words"
	"github.com/shopspring/decimal"
)

// DefaultPrefix is used when neither a custom prefix nor a series exists.
const DefaultPrefix = "BOND"

// Bond is the data for one certificate.
type Bond struct {
	BondNumber      string          `json:"bond_number"`
	Series          string          `json:"series,omitempty"`
	MaturityDate    string          `json:"maturity_date"`
	PrincipalAmount int64           `json:"principal_amount"`
	CouponRate      decimal.Decimal `json:"coupon_rate"`
	Cusip           string          `json:"cusip"`
	DatedDate       string          `json:"dated_date"`
	PrincipalWords  string          `json:"principal_words"`
}

// Validate checks the certificate invariants.
func (b Bond) Validate() error {
	if strings.TrimSpace(b.BondNumber) == "" {
		return bonderr.New(bonderr.ValidationError, "bond number is empty")
	}
	if b.PrincipalAmount <= 0 {
		return bonderr.New(bonderr.ValidationError, "bond %s: principal amount must be greater than zero", b.BondNumber)
	}
	if r := fields.ValidateCusip(b.Cusip); !r.OK || r.Value != b.Cusip {
		return bonderr.New(bonderr.ValidationError, "bond %s: invalid CUSIP %q", b.BondNumber, b.Cusip)
	}
	if b.CouponRate.IsNegative() {
		return bonderr.New(bonderr.ValidationError, "bond %s: coupon rate is negative", b.BondNumber)
	}
	for _, d := range []struct{ name, value string }{
		{"maturity date", b.MaturityDate},
		{"dated date", b.DatedDate},
	} {
		if _, err := time.Parse(time.DateOnly, d.value); err != nil {
			return bonderr.New(bonderr.ValidationError, "bond %s: %s %q is not a YYYY-MM-DD date", b.BondNumber, d.name, d.value)
		}
	}
	return nil
}

// Numbering controls bond number generation.
type Numbering struct {
	StartingNumber int    `json:"starting_number" yaml:"starting_number"`
	Prefix         string `json:"prefix,omitempty" yaml:"prefix"`
}

// Options configures Assemble.
type Options struct {
	Numbering Numbering
	// DatedDate is the ISO issue date applied to every bond.
	DatedDate string
}

// Assemble pairs the i-th maturity row with the i-th CUSIP row and
// numbers the bonds sequentially in maturity order.
func Assemble(maturities []schedule.MaturityEntry, cusips []schedule.CusipEntry, opts Options) ([]Bond, error) {
	if len(maturities) == 0 {
		return nil, bonderr.New(bonderr.ValidationError, "no valid maturity rows to assemble")
	}
	if len(maturities) != len(cusips) {
		return nil, bonderr.New(bonderr.ValidationError,
			"maturity schedule has %d valid rows but CUSIP schedule has %d", len(maturities), len(cusips)).
			WithDetails(map[string]int{"maturity_rows": len(maturities), "cusip_rows": len(cusips)})
	}

	dated := strings.TrimSpace(opts.DatedDate)
	if dated == "" {
		return nil, bonderr.New(bonderr.ValidationError, "dated date is required")
	}
	if _, err := time.Parse(time.DateOnly, dated); err != nil {
		return nil, bonderr.Wrap(bonderr.ValidationError, err, "dated date %q is not a YYYY-MM-DD date", dated)
	}

	next := opts.Numbering.StartingNumber
	if next == 0 {
		next = 1
	}
	if next < 0 {
		return nil, bonderr.New(bonderr.ValidationError, "starting number must be positive (got %d)", next)
	}
	custom := Sanitize(opts.Numbering.Prefix)

	bonds := make([]Bond, 0, len(maturities))
	for i, m := range maturities {
		c := cusips[i]

		series := strings.TrimSpace(m.Series)
		if series == "" {
			series = strings.TrimSpace(c.Series)
		}
		prefix := custom
		if prefix == "" {
			prefix = Sanitize(series)
		}
		if prefix == "" {
			prefix = DefaultPrefix
		}

		w, err := words.Dollars(m.PrincipalAmount)
		if err != nil {
			return nil, bonderr.New(bonderr.ValidationError, "maturity row %d: %s", m.RowNumber, bonderr.Message(err))
		}

		b := Bond{
			BondNumber:      Number(prefix, next),
			Series:          series,
			MaturityDate:    m.MaturityDate,
			PrincipalAmount: m.PrincipalAmount,
			CouponRate:      m.CouponRate,
			Cusip:           c.Cusip,
			DatedDate:       dated,
			PrincipalWords:  w,
		}
		if err := b.Validate(); err != nil {
			return nil, bonderr.New(bonderr.ValidationError,
				"maturity row %d, CUSIP row %d: %s", m.RowNumber, c.RowNumber, bonderr.Message(err))
		}
		bonds = append(bonds, b)
		next++
	}
	return bonds, nil
}

// Number formats a bond number, zero padded to three digits.
func Number(prefix string, n int) string {
	return fmt.Sprintf("%s-%03d", prefix, n)
}

// Sanitize keeps letters, digits and hyphens.
func Sanitize(s string) string {
	var b strings.Builder
	for _, r := range strings.TrimSpace(s) {
		if r < unicode.MaxASCII && (unicode.IsLetter(r) || unicode.IsDigit(r) || r == '-') {
			b.WriteRune(r)
		}
	}
	return strings.Trim(b.String(), "-")
}
