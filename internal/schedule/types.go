// Package schedule parses maturity and CUSIP schedules into row-level
// results. Bad rows are reported as data and never abort the parse.
package schedule

import (
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/dgallion1/bondgen/internal/sheet"
	"github.com/shopspring/decimal"
)

// Status is the outcome of one schedule row.
type Status string

const (
	StatusValid   Status = "valid"
	StatusWarning Status = "warning"
	StatusError   Status = "error"
	StatusSkipped Status = "skipped"
)

// Summary counts data rows by status. Total excludes skipped rows.
type Summary struct {
	Total    int `json:"total"`
	Valid    int `json:"valid"`
	Warnings int `json:"warnings"`
	Errors   int `json:"errors"`
	Skipped  int `json:"skipped"`
}

func (s *Summary) add(st Status) {
	switch st {
	case StatusValid:
		s.Valid++
	case StatusWarning:
		s.Warnings++
	case StatusError:
		s.Errors++
	case StatusSkipped:
		s.Skipped++
		return
	}
	s.Total++
}

// Diagnostics records how the sheet was interpreted.
type Diagnostics struct {
	HeaderRow       int            `json:"header_row"`
	Columns         map[string]int `json:"columns"`
	MissingOptional []string       `json:"missing_optional,omitempty"`
}

// MaturityRow is one parsed row of a maturity schedule. Fields that
// failed to parse are left nil or empty.
type MaturityRow struct {
	RowNumber       int              `json:"row_number"`
	Status          Status           `json:"status"`
	MaturityDate    string           `json:"maturity_date,omitempty"`
	DateFormat      string           `json:"date_format,omitempty"`
	PrincipalAmount *int64           `json:"principal_amount,omitempty"`
	CouponRate      *decimal.Decimal `json:"coupon_rate,omitempty"`
	Series          string           `json:"series,omitempty"`
	Errors          []string         `json:"errors,omitempty"`
	Warnings        []string         `json:"warnings,omitempty"`
	Raw             sheet.Row        `json:"raw,omitempty"`
}

// MaturityEntry is a valid maturity row ready for assembly.
type MaturityEntry struct {
	RowNumber       int             `json:"row_number"`
	MaturityDate    string          `json:"maturity_date"`
	PrincipalAmount int64           `json:"principal_amount"`
	CouponRate      decimal.Decimal `json:"coupon_rate"`
	Series          string          `json:"series,omitempty"`
}

// Entry returns the clean row when the row is valid.
func (r MaturityRow) Entry() (MaturityEntry, bool) {
	if r.Status != StatusValid || r.PrincipalAmount == nil || r.CouponRate == nil {
		return MaturityEntry{}, false
	}
	return MaturityEntry{
		RowNumber:       r.RowNumber,
		MaturityDate:    r.MaturityDate,
		PrincipalAmount: *r.PrincipalAmount,
		CouponRate:      *r.CouponRate,
		Series:          r.Series,
	}, true
}

// MaturitySchedule is the parse result of one maturity file.
type MaturitySchedule struct {
	AllRows     []MaturityRow   `json:"all_rows"`
	Rows        []MaturityEntry `json:"rows"`
	Summary     Summary         `json:"summary"`
	Diagnostics Diagnostics     `json:"diagnostics"`
	DatedDate   string          `json:"dated_date,omitempty"`
	Warnings    []string        `json:"warnings,omitempty"`
}

// CusipRow is one parsed row of a CUSIP schedule.
type CusipRow struct {
	RowNumber    int       `json:"row_number"`
	Status       Status    `json:"status"`
	MaturityDate string    `json:"maturity_date,omitempty"`
	DateFormat   string    `json:"date_format,omitempty"`
	Cusip        string    `json:"cusip,omitempty"`
	Series       string    `json:"series,omitempty"`
	Errors       []string  `json:"errors,omitempty"`
	Warnings     []string  `json:"warnings,omitempty"`
	Raw          sheet.Row `json:"raw,omitempty"`
}

// CusipEntry is a valid CUSIP row ready for assembly.
type CusipEntry struct {
	RowNumber    int    `json:"row_number"`
	MaturityDate string `json:"maturity_date"`
	Cusip        string `json:"cusip"`
	Series       string `json:"series,omitempty"`
}

// Entry returns the clean row when the row is valid.
func (r CusipRow) Entry() (CusipEntry, bool) {
	if r.Status != StatusValid {
		return CusipEntry{}, false
	}
	return CusipEntry{
		RowNumber:    r.RowNumber,
		MaturityDate: r.MaturityDate,
		Cusip:        r.Cusip,
		Series:       r.Series,
	}, true
}

// CusipSchedule is the parse result of one CUSIP file.
type CusipSchedule struct {
	AllRows     []CusipRow   `json:"all_rows"`
	Rows        []CusipEntry `json:"rows"`
	Summary     Summary      `json:"summary"`
	Diagnostics Diagnostics  `json:"diagnostics"`
	Warnings    []string     `json:"warnings,omitempty"`
}

// collector accumulates per-field messages for one row.
type collector struct {
	errors   []string
	warnings []string
}

func (c *collector) field(name, errMsg string, warnings []string) {
	if errMsg != "" {
		c.errors = append(c.errors, name+": "+errMsg)
	}
	for _, w := range warnings {
		c.warnings = append(c.warnings, name+": "+w)
	}
}

func (c *collector) status() Status {
	switch {
	case len(c.errors) > 0:
		return StatusError
	case len(c.warnings) > 0:
		return StatusWarning
	}
	return StatusValid
}

// isSectionHeader matches label rows such as "Series 2024A | Dated: 6/1/24".
func isSectionHeader(row sheet.Row) bool {
	var cells []sheet.Cell
	for _, c := range row {
		if !c.IsEmpty() {
			cells = append(cells, c)
		}
	}
	return len(cells) == 2 && strings.Contains(cells[1].Text(), ":")
}

// sheetLayout is the shared front half of both parsers.
type sheetLayout struct {
	grid      sheet.Grid
	headerRow int
	mapping   sheet.ColumnMapping
}

func (l sheetLayout) diagnostics() Diagnostics {
	return Diagnostics{
		HeaderRow:       l.headerRow,
		Columns:         l.mapping.Index,
		MissingOptional: l.mapping.Missing,
	}
}

// dataRows yields each row after the header with its 1-based sheet row
// number. Blank rows are dropped.
func (l sheetLayout) dataRows(fn func(rowNumber int, row sheet.Row)) {
	for i := l.headerRow + 1; i < len(l.grid); i++ {
		if l.grid[i].IsBlank() {
			continue
		}
		fn(i+1, l.grid[i])
	}
}

func loadLayout(data []byte, filename string, keywords, required, optional []string) (sheetLayout, error) {
	grid, err := sheet.LoadGrid(data, filename)
	if err != nil {
		return sheetLayout{}, err
	}
	if len(grid) < 2 {
		return sheetLayout{}, bonderr.New(bonderr.ParsingError,
			"spreadsheet needs a header row and at least one data row (found %d rows)", len(grid))
	}
	header, err := sheet.DetectHeaderRow(grid, keywords)
	if err != nil {
		return sheetLayout{}, err
	}
	mapping, err := sheet.MapColumns(sheet.HeaderTexts(grid[header]), required, optional)
	if err != nil {
		return sheetLayout{}, err
	}
	return sheetLayout{grid: grid, headerRow: header, mapping: mapping}, nil
}

func textOf(c sheet.Cell) string {
	return strings.TrimSpace(c.Text())
}
