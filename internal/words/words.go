// Package words renders whole-dollar amounts as uppercase English for
// certificate text, e.g. 1250000 -> "ONE MILLION TWO HUNDRED FIFTY
// THOUSAND DOLLARS".
package words

import (
	"math"
	"strconv"
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
)

// Max is the largest amount that can be rendered.
const Max int64 = 999_999_999_999_999

var ones = [...]string{
	"", "ONE", "TWO", "THREE", "FOUR", "FIVE", "SIX", "SEVEN", "EIGHT", "NINE",
	"TEN", "ELEVEN", "TWELVE", "THIRTEEN", "FOURTEEN", "FIFTEEN", "SIXTEEN",
	"SEVENTEEN", "EIGHTEEN", "NINETEEN",
}

var tens = [...]string{
	"", "", "TWENTY", "THIRTY", "FORTY", "FIFTY", "SIXTY", "SEVENTY", "EIGHTY", "NINETY",
}

var scales = [...]string{"", "THOUSAND", "MILLION", "BILLION", "TRILLION"}

// Dollars renders n followed by "DOLLARS". Hyphens join 21..99, and no
// "AND" is used.
func Dollars(n int64) (string, error) {
	if n < 0 {
		return "", bonderr.New(bonderr.ValidationError, "amount %d is negative", n)
	}
	if n > Max {
		return "", bonderr.New(bonderr.ValidationError, "amount %d exceeds %d", n, Max)
	}
	if n == 0 {
		return "ZERO DOLLARS", nil
	}

	var groups []string
	for scale := 0; n > 0; scale++ {
		if chunk := int(n % 1000); chunk > 0 {
			g := hundreds(chunk)
			if scales[scale] != "" {
				g += " " + scales[scale]
			}
			groups = append(groups, g)
		}
		n /= 1000
	}

	var b strings.Builder
	for i := len(groups) - 1; i >= 0; i-- {
		b.WriteString(groups[i])
		b.WriteByte(' ')
	}
	b.WriteString("DOLLARS")
	return b.String(), nil
}

// DollarsFromFloat accepts a float that must hold a whole number.
func DollarsFromFloat(f float64) (string, error) {
	if math.IsNaN(f) || math.IsInf(f, 0) || f != math.Trunc(f) {
		return "", bonderr.New(bonderr.ValidationError,
			"amount %s is not a whole number", strconv.FormatFloat(f, 'f', -1, 64))
	}
	if f < 0 || f > float64(Max) {
		return "", bonderr.New(bonderr.ValidationError,
			"amount %s is out of range", strconv.FormatFloat(f, 'f', -1, 64))
	}
	return Dollars(int64(f))
}

func hundreds(n int) string {
	var parts []string
	if h := n / 100; h > 0 {
		parts = append(parts, ones[h], "HUNDRED")
	}
	switch r := n % 100; {
	case r == 0:
	case r < 20:
		parts = append(parts, ones[r])
	case r%10 == 0:
		parts = append(parts, tens[r/10])
	default:
		parts = append(parts, tens[r/10]+"-"+ones[r%10])
	}
	return strings.Join(parts, " ")
}
