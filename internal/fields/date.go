package fields

import (
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/dgallion1/bondgen/internal/sheet"
)

// Date sub-formats reported in Result.Format.
const (
	FormatExcelNumber = "excel_number"
	FormatYearOnly    = "year_only"
	FormatISOString   = "iso_string"
	FormatUSString    = "us_string"
	FormatTextString  = "text_string"
)

const isoDate = "2006-01-02"

var (
	epoch1900 = time.Date(1899, time.December, 30, 0, 0, 0, 0, time.UTC)
	epoch1904 = time.Date(1904, time.January, 1, 0, 0, 0, 0, time.UTC)
)

type layoutSet struct {
	format  string
	layouts []string
}

var dateLayouts = []layoutSet{
	{FormatISOString, []string{
		isoDate,
		time.RFC3339,
		"2006-01-02T15:04:05",
		"2006-01-02 15:04:05",
		"2006/01/02",
	}},
	{FormatUSString, []string{
		"1/2/2006",
		"01/02/2006",
		"1-2-2006",
		"01-02-2006",
		"1/2/06",
		"1.2.2006",
	}},
	{FormatTextString, []string{
		"January 2, 2006",
		"January 2 2006",
		"Jan 2, 2006",
		"Jan 2 2006",
		"Jan. 2, 2006",
		"2 January 2006",
		"2 Jan 2006",
		"02-Jan-2006",
		"2-Jan-06",
		"Monday, January 2, 2006",
	}},
}

// ParseDate converts a cell to an ISO date. Whole numbers between 1900
// and 2100 are read as a bare year; other numbers are spreadsheet serials.
func ParseDate(c sheet.Cell) Result[string] {
	switch c.Kind {
	case sheet.Empty:
		return fail[string]("date is empty")
	case sheet.Bool:
		return fail[string]("expected a date, got %s", c.Text())
	case sheet.Number:
		return dateFromNumber(c.Num)
	}

	s := strings.TrimSpace(c.Str)
	if s == "" {
		return fail[string]("date is empty")
	}
	if hasPlaceholder(s) {
		return fail[string]("date %q contains placeholder characters; fill in the actual date", s)
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil {
		return dateFromNumber(f)
	}

	for _, set := range dateLayouts {
		for _, layout := range set.layouts {
			if t, err := time.Parse(layout, s); err == nil {
				r := ok(t.Format(isoDate))
				r.Format = set.format
				return r
			}
		}
	}
	return fail[string]("could not parse %q as a date", s)
}

func dateFromNumber(f float64) Result[string] {
	if math.IsNaN(f) || math.IsInf(f, 0) {
		return fail[string]("invalid date value")
	}
	if f == math.Trunc(f) && f >= 1900 && f <= 2100 {
		r := ok(strconv.Itoa(int(f)),
			"only a year was given; confirm the full date")
		r.Format = FormatYearOnly
		return r
	}
	if f <= 0 {
		return fail[string]("date serial %v is out of range", f)
	}

	t, err := SerialToDate(f)
	if err != nil {
		return fail[string]("%s", err)
	}
	r := ok(t.Format(isoDate))
	r.Format = FormatExcelNumber
	return r
}

type serialRangeError float64

func (e serialRangeError) Error() string {
	return "date serial " + strconv.FormatFloat(float64(e), 'f', -1, 64) + " is out of range"
}

// SerialToDate decodes a spreadsheet date serial. Both the 1900 and 1904
// epochs are tried; the first giving a year in 1950..2100 wins, and the
// 1900 epoch is the fallback when neither does.
func SerialToDate(serial float64) (time.Time, error) {
	days := math.Floor(serial)
	if days <= 0 || days > 2958465 {
		return time.Time{}, serialRangeError(serial)
	}
	d1900 := epoch1900.AddDate(0, 0, int(days))
	d1904 := epoch1904.AddDate(0, 0, int(days))
	switch {
	case plausibleYear(d1900.Year()):
		return d1900, nil
	case plausibleYear(d1904.Year()):
		return d1904, nil
	}
	return d1900, nil
}

func plausibleYear(y int) bool { return y >= 1950 && y <= 2100 }
