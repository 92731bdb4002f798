package schedule

import (
	"fmt"
	"sort"
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/dgallion1/bondgen/internal/fields"
	"github.com/dgallion1/bondgen/internal/sheet"
)

var (
	cusipRequired = []string{sheet.FieldMaturityDate}
	cusipOptional = []string{
		sheet.FieldCusip,
		sheet.FieldCusipIssuer, sheet.FieldCusipIssue, sheet.FieldCusipCheck,
		sheet.FieldSeries,
	}
	splitFields = []string{sheet.FieldCusipIssuer, sheet.FieldCusipIssue, sheet.FieldCusipCheck}
)

// ParseCusip reads a CUSIP schedule. The CUSIP is taken from a single
// column or assembled from issuer, issue and check-digit columns.
func ParseCusip(data []byte, filename string) (*CusipSchedule, error) {
	layout, err := loadLayout(data, filename, sheet.CusipKeywords, cusipRequired, cusipOptional)
	if err != nil {
		return nil, err
	}
	m := layout.mapping

	split := !m.Has(sheet.FieldCusip)
	if split {
		var missing []sheet.MissingColumn
		for _, f := range splitFields {
			if !m.Has(f) {
				missing = append(missing, sheet.MissingColumn{Field: f, Aliases: sheet.Aliases[f]})
			}
		}
		if len(missing) > 0 {
			missing = append([]sheet.MissingColumn{{Field: sheet.FieldCusip, Aliases: sheet.Aliases[sheet.FieldCusip]}}, missing...)
			return nil, bonderr.New(bonderr.ParsingError,
				"CUSIP column not found; provide a single CUSIP column or issuer, issue and check digit columns").
				WithDetails(missing)
		}
	}

	out := &CusipSchedule{
		AllRows:     []CusipRow{},
		Rows:        []CusipEntry{},
		Diagnostics: layout.diagnostics(),
	}

	layout.dataRows(func(rowNumber int, row sheet.Row) {
		if isSectionHeader(row) {
			out.AllRows = append(out.AllRows, CusipRow{RowNumber: rowNumber, Status: StatusSkipped, Raw: row})
			out.Summary.add(StatusSkipped)
			return
		}

		var cusip fields.Result[string]
		if split {
			cusip = fields.AssembleCusipFromParts(
				fields.CusipPart(m.Cell(row, sheet.FieldCusipIssuer), fields.CusipIssuerWidth),
				fields.CusipPart(m.Cell(row, sheet.FieldCusipIssue), fields.CusipIssueWidth),
				fields.CusipPart(m.Cell(row, sheet.FieldCusipCheck), fields.CusipCheckWidth))
		} else {
			cusip = fields.ValidateCusip(m.Cell(row, sheet.FieldCusip).Text())
		}

		r := evalCusip(rowNumber, m.Cell(row, sheet.FieldMaturityDate), cusip, m.Cell(row, sheet.FieldSeries))
		r.Raw = row

		out.AllRows = append(out.AllRows, r)
		out.Summary.add(r.Status)
		if e, ok := r.Entry(); ok {
			out.Rows = append(out.Rows, e)
		}
	})

	out.Warnings = duplicateCusips(out.AllRows)
	return out, nil
}

func evalCusip(rowNumber int, date sheet.Cell, cusip fields.Result[string], series sheet.Cell) CusipRow {
	var col collector
	r := CusipRow{RowNumber: rowNumber, Series: textOf(series)}

	d := fields.ParseDate(date)
	col.field("maturity date", d.Error, d.Warnings)
	if d.OK {
		r.MaturityDate, r.DateFormat = d.Value, d.Format
	}

	col.field("CUSIP", cusip.Error, cusip.Warnings)
	if cusip.OK {
		r.Cusip = cusip.Value
	}

	r.Errors, r.Warnings, r.Status = col.errors, col.warnings, col.status()
	return r
}

// duplicateCusips reports CUSIPs shared by more than one row.
func duplicateCusips(rows []CusipRow) []string {
	seen := make(map[string][]int)
	for _, r := range rows {
		if r.Cusip != "" {
			seen[r.Cusip] = append(seen[r.Cusip], r.RowNumber)
		}
	}
	var dups []string
	for c, nums := range seen {
		if len(nums) > 1 {
			dups = append(dups, c)
		}
	}
	sort.Strings(dups)

	var warnings []string
	for _, c := range dups {
		nums := make([]string, len(seen[c]))
		for i, n := range seen[c] {
			nums[i] = fmt.Sprint(n)
		}
		warnings = append(warnings, fmt.Sprintf("CUSIP %s appears on rows %s", c, strings.Join(nums, ", ")))
	}
	return warnings
}

// CusipEdit carries user-edited values for one CUSIP row. Cusip wins
// over the split parts when both are set.
type CusipEdit struct {
	RowNumber    int    `json:"row_number"`
	MaturityDate string `json:"maturity_date"`
	Cusip        string `json:"cusip,omitempty"`
	Issuer       string `json:"cusip_issuer,omitempty"`
	Issue        string `json:"cusip_issue,omitempty"`
	Check        string `json:"cusip_check,omitempty"`
	Series       string `json:"series,omitempty"`
}

// RevalidateCusip re-runs the row parsers over edited values.
func RevalidateCusip(e CusipEdit) CusipRow {
	var cusip fields.Result[string]
	var raw sheet.Row
	if strings.TrimSpace(e.Cusip) != "" || (e.Issuer == "" && e.Issue == "" && e.Check == "") {
		cusip = fields.ValidateCusip(e.Cusip)
		raw = sheet.Row{sheet.StringCell(e.MaturityDate), sheet.StringCell(e.Cusip), sheet.StringCell(e.Series)}
	} else {
		cusip = fields.AssembleCusipFromParts(e.Issuer, e.Issue, e.Check)
		raw = sheet.Row{sheet.StringCell(e.MaturityDate), sheet.StringCell(e.Issuer),
			sheet.StringCell(e.Issue), sheet.StringCell(e.Check), sheet.StringCell(e.Series)}
	}
	r := evalCusip(e.RowNumber, sheet.StringCell(e.MaturityDate), cusip, sheet.StringCell(e.Series))
	r.Raw = raw.Trimmed()
	return r
}
