package schedule

import (
	"github.com/dgallion1/bondgen/internal/fields"
	"github.com/dgallion1/bondgen/internal/sheet"
)

var (
	maturityRequired = []string{sheet.FieldMaturityDate, sheet.FieldPrincipal, sheet.FieldCouponRate}
	maturityOptional = []string{sheet.FieldDatedDate, sheet.FieldSeries}
)

// ParseMaturity reads a maturity schedule (.xlsx or CSV). It fails only
// when the file or its header cannot be understood; row problems are
// reported on the rows.
func ParseMaturity(data []byte, filename string) (*MaturitySchedule, error) {
	layout, err := loadLayout(data, filename, sheet.MaturityKeywords, maturityRequired, maturityOptional)
	if err != nil {
		return nil, err
	}

	out := &MaturitySchedule{
		AllRows:     []MaturityRow{},
		Rows:        []MaturityEntry{},
		Diagnostics: layout.diagnostics(),
	}
	m := layout.mapping

	first := true
	layout.dataRows(func(rowNumber int, row sheet.Row) {
		if isSectionHeader(row) {
			out.AllRows = append(out.AllRows, MaturityRow{RowNumber: rowNumber, Status: StatusSkipped, Raw: row})
			out.Summary.add(StatusSkipped)
			return
		}
		if first && m.Has(sheet.FieldDatedDate) {
			out.DatedDate, out.Warnings = datedDate(m.Cell(row, sheet.FieldDatedDate), out.Warnings)
		}
		first = false

		r := evalMaturity(rowNumber,
			m.Cell(row, sheet.FieldMaturityDate),
			m.Cell(row, sheet.FieldPrincipal),
			m.Cell(row, sheet.FieldCouponRate),
			m.Cell(row, sheet.FieldSeries))
		r.Raw = row

		out.AllRows = append(out.AllRows, r)
		out.Summary.add(r.Status)
		if e, ok := r.Entry(); ok {
			out.Rows = append(out.Rows, e)
		}
	})

	if m.Has(sheet.FieldDatedDate) && first {
		out.Warnings = append(out.Warnings, "dated date column found but the schedule has no data rows")
	}
	return out, nil
}

// datedDate reads the schedule-level dated date. Anything short of a full
// date is left for the caller to supply.
func datedDate(c sheet.Cell, warnings []string) (string, []string) {
	if c.IsEmpty() {
		return "", append(warnings, "dated date column is empty in the first data row; enter it manually")
	}
	r := fields.ParseDate(c)
	if !r.OK {
		return "", append(warnings, "dated date could not be read: "+r.Error)
	}
	if r.Format == fields.FormatYearOnly {
		return "", append(warnings, "dated date "+r.Value+" is only a year; enter the full date")
	}
	return r.Value, warnings
}

func evalMaturity(rowNumber int, date, principal, rate, series sheet.Cell) MaturityRow {
	var col collector
	r := MaturityRow{RowNumber: rowNumber, Series: textOf(series)}

	d := fields.ParseDate(date)
	col.field("maturity date", d.Error, d.Warnings)
	if d.OK {
		r.MaturityDate, r.DateFormat = d.Value, d.Format
	}

	p := fields.ParsePrincipal(principal)
	col.field("principal amount", p.Error, p.Warnings)
	if p.OK {
		v := p.Value
		r.PrincipalAmount = &v
	}

	c := fields.ParseRate(rate)
	col.field("coupon rate", c.Error, c.Warnings)
	if c.OK {
		v := c.Value
		r.CouponRate = &v
	}

	r.Errors, r.Warnings, r.Status = col.errors, col.warnings, col.status()
	return r
}

// MaturityEdit carries user-edited values for one maturity row.
type MaturityEdit struct {
	RowNumber       int    `json:"row_number"`
	MaturityDate    string `json:"maturity_date"`
	PrincipalAmount string `json:"principal_amount"`
	CouponRate      string `json:"coupon_rate"`
	Series          string `json:"series,omitempty"`
}

// RevalidateMaturity re-runs the row parsers over edited values.
func RevalidateMaturity(e MaturityEdit) MaturityRow {
	cells := sheet.Row{
		sheet.StringCell(e.MaturityDate),
		sheet.StringCell(e.PrincipalAmount),
		sheet.StringCell(e.CouponRate),
		sheet.StringCell(e.Series),
	}
	r := evalMaturity(e.RowNumber, cells[0], cells[1], cells[2], cells[3])
	r.Raw = cells.Trimmed()
	return r
}
