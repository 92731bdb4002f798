package sheet

import (
	"bytes"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/xuri/excelize/v2"
)

// Format is the detected container type of an uploaded spreadsheet.
type Format string

const (
	FormatXLSX Format = "xlsx"
	FormatXLS  Format = "xls"
	FormatCSV  Format = "csv"
)

var (
	zipMagic = []byte("PK\x03\x04")
	oleMagic = []byte{0xD0, 0xCF, 0x11, 0xE0, 0xA1, 0xB1, 0x1A, 0xE1}
)

// DetectFormat sniffs the payload, falling back to the file extension.
func DetectFormat(data []byte, filename string) Format {
	switch {
	case bytes.HasPrefix(data, zipMagic):
		return FormatXLSX
	case bytes.HasPrefix(data, oleMagic):
		return FormatXLS
	}
	switch strings.ToLower(filepath.Ext(filename)) {
	case ".xlsx", ".xlsm":
		return FormatXLSX
	case ".xls":
		return FormatXLS
	}
	return FormatCSV
}

// LoadGrid reads an uploaded spreadsheet of any supported format.
// CSV is normalised to a workbook first so both paths share ReadGrid.
func LoadGrid(data []byte, filename string) (Grid, error) {
	if len(data) == 0 {
		return nil, bonderr.New(bonderr.ParsingError, "file is empty")
	}
	switch DetectFormat(data, filename) {
	case FormatXLS:
		return nil, bonderr.New(bonderr.ParsingError,
			"legacy .xls workbooks are not supported; save the file as .xlsx or CSV and upload it again")
	case FormatCSV:
		converted, err := ConvertCSV(data)
		if err != nil {
			return nil, err
		}
		data = converted
	}
	return ReadGrid(data)
}

// ReadGrid returns the first sheet of an .xlsx workbook as typed cells.
func ReadGrid(data []byte) (Grid, error) {
	f, err := excelize.OpenReader(bytes.NewReader(data))
	if err != nil {
		return nil, bonderr.Wrap(bonderr.ParsingError, err, "could not read spreadsheet")
	}
	defer f.Close()

	sheets := f.GetSheetList()
	if len(sheets) == 0 {
		return nil, bonderr.New(bonderr.ParsingError, "spreadsheet has no sheets")
	}
	name := sheets[0]

	rows, err := f.GetRows(name, excelize.Options{RawCellValue: true})
	if err != nil {
		return nil, bonderr.Wrap(bonderr.ParsingError, err, "could not read rows from sheet %q", name)
	}

	grid := make(Grid, len(rows))
	for r, raw := range rows {
		row := make(Row, len(raw))
		for c, value := range raw {
			if strings.TrimSpace(value) == "" {
				continue
			}
			axis, err := excelize.CoordinatesToCellName(c+1, r+1)
			if err != nil {
				return nil, bonderr.Wrap(bonderr.ParsingError, err, "bad cell coordinate")
			}
			ct, err := f.GetCellType(name, axis)
			if err != nil {
				ct = excelize.CellTypeUnset
			}
			row[c] = classify(value, ct)
		}
		grid[r] = row.Trimmed()
	}
	return grid, nil
}

// classify turns a raw cell string into a typed Cell. Cells without an
// explicit type attribute are numeric in OOXML.
func classify(raw string, ct excelize.CellType) Cell {
	switch ct {
	case excelize.CellTypeSharedString, excelize.CellTypeInlineString,
		excelize.CellTypeFormula, excelize.CellTypeError:
		return StringCell(raw)
	case excelize.CellTypeBool:
		if raw == "1" || strings.EqualFold(raw, "true") {
			return Cell{Kind: Bool, Num: 1}
		}
		return Cell{Kind: Bool}
	}
	if f, err := strconv.ParseFloat(strings.TrimSpace(raw), 64); err == nil {
		return NumberCell(f)
	}
	return StringCell(raw)
}
