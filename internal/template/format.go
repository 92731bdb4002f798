package template

import (
	"strings"
	"time"

	"github.com/shopspring/decimal"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var printer = message.NewPrinter(language.AmericanEnglish)

// FormatDate renders an ISO date as "June 1, 2030". Other input is
// returned unchanged.
func FormatDate(iso string) string {
	t, err := time.Parse(time.DateOnly, strings.TrimSpace(iso))
	if err != nil {
		return iso
	}
	return t.Format("January 2, 2006")
}

// FormatPrincipal renders an amount with thousands separators.
func FormatPrincipal(n int64) string {
	return printer.Sprintf("%d", n)
}

// FormatRate renders a coupon rate with a percent sign.
func FormatRate(d decimal.Decimal) string {
	return d.String() + "%"
}

var monthDayLayouts = []string{
	time.DateOnly,
	"January 2, 2006",
	"1/2/2006",
	"01-02",
	"1/2",
	"January 2",
	"Jan 2",
}

// FormatMonthDay renders an interest payment date as "June 1".
func FormatMonthDay(s string) string {
	s = strings.TrimSpace(s)
	for _, layout := range monthDayLayouts {
		if t, err := time.Parse(layout, s); err == nil {
			return t.Format("January 2")
		}
	}
	return s
}

// FormatInterestDates joins the two payment dates as "June 1 and
// December 1".
func FormatInterestDates(dates [2]string) string {
	var parts []string
	for _, d := range dates {
		if f := FormatMonthDay(d); f != "" {
			parts = append(parts, f)
		}
	}
	return strings.Join(parts, " and ")
}
