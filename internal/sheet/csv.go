package sheet

import (
	"bufio"
	"bytes"
	"encoding/csv"
	"strconv"
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/xuri/excelize/v2"
)

// candidate delimiters, in tie-break order.
var delimiters = []rune{',', ';', '\t'}

const sniffLines = 5

// DetectDelimiter counts each candidate across the first five lines and
// returns the most frequent one. Comma wins ties and empty input.
func DetectDelimiter(data []byte) rune {
	scanner := bufio.NewScanner(bytes.NewReader(data))
	scanner.Buffer(make([]byte, 0, 64*1024), 1024*1024)

	counts := make(map[rune]int, len(delimiters))
	for n := 0; n < sniffLines && scanner.Scan(); n++ {
		line := scanner.Text()
		for _, d := range delimiters {
			counts[d] += strings.Count(line, string(d))
		}
	}

	best, bestCount := ',', 0
	for _, d := range delimiters {
		if counts[d] > bestCount {
			best, bestCount = d, counts[d]
		}
	}
	return best
}

// ConvertCSV rewrites CSV bytes as a single-sheet .xlsx workbook so the
// schedule parsers see the same tabular structure for both inputs.
func ConvertCSV(data []byte) ([]byte, error) {
	data = bytes.TrimPrefix(data, []byte("\xef\xbb\xbf"))
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, bonderr.New(bonderr.ConversionError, "CSV file is empty")
	}

	reader := csv.NewReader(bytes.NewReader(data))
	reader.Comma = DetectDelimiter(data)
	reader.FieldsPerRecord = -1
	reader.LazyQuotes = true
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, bonderr.Wrap(bonderr.ConversionError, err, "could not parse CSV")
	}

	f := excelize.NewFile()
	defer f.Close()
	name := f.GetSheetName(0)

	for r, record := range records {
		values := make([]any, len(record))
		for c, field := range record {
			values[c] = csvValue(field)
		}
		axis, err := excelize.CoordinatesToCellName(1, r+1)
		if err != nil {
			return nil, bonderr.Wrap(bonderr.ConversionError, err, "bad row %d", r+1)
		}
		if err := f.SetSheetRow(name, axis, &values); err != nil {
			return nil, bonderr.Wrap(bonderr.ConversionError, err, "write row %d", r+1)
		}
	}

	buf, err := f.WriteToBuffer()
	if err != nil {
		return nil, bonderr.Wrap(bonderr.ConversionError, err, "write workbook")
	}
	return buf.Bytes(), nil
}

// csvValue keeps plain numbers numeric. Anything with currency symbols,
// separators or leading zeros stays text for the field parsers.
func csvValue(field string) any {
	s := strings.TrimSpace(field)
	if s == "" {
		return nil
	}
	if len(s) > 1 && s[0] == '0' && s[1] != '.' {
		return s
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && !strings.ContainsAny(s, "eEnN") {
		return f
	}
	return s
}
