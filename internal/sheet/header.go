package sheet

import (
	"regexp"
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
)

const (
	headerScanRows   = 10
	headerMinMatches = 2
	sampleTextLimit  = 50
)

// RowSample describes one scanned row when no header could be found.
type RowSample struct {
	Index     int    `json:"index"`
	FirstCell string `json:"first_cell"`
	CellCount int    `json:"cell_count"`
}

// MissingColumn names a required field and the header spellings tried.
type MissingColumn struct {
	Field   string   `json:"field"`
	Aliases []string `json:"aliases"`
}

// ColumnMapping maps canonical field names to zero-based column indexes.
type ColumnMapping struct {
	Index   map[string]int `json:"index"`
	Missing []string       `json:"missing,omitempty"`
}

// Has reports whether field was mapped.
func (m ColumnMapping) Has(field string) bool {
	_, ok := m.Index[field]
	return ok
}

// Cell returns the mapped cell for field in row.
func (m ColumnMapping) Cell(row Row, field string) Cell {
	idx, ok := m.Index[field]
	if !ok {
		return Cell{}
	}
	return row.At(idx)
}

// DetectHeaderRow returns the index of the first of the leading rows whose
// text contains at least two of the keywords.
func DetectHeaderRow(grid Grid, keywords []string) (int, error) {
	limit := min(len(grid), headerScanRows)
	for i := 0; i < limit; i++ {
		if countKeywords(grid[i], keywords) >= headerMinMatches {
			return i, nil
		}
	}

	samples := make([]RowSample, 0, limit)
	for i := 0; i < limit; i++ {
		first := ""
		if len(grid[i]) > 0 {
			first = truncate(grid[i][0].Text(), sampleTextLimit)
		}
		samples = append(samples, RowSample{Index: i, FirstCell: first, CellCount: len(grid[i])})
	}
	return -1, bonderr.New(bonderr.ParsingError,
		"could not find a header row in the first %d rows; expected column names such as %s",
		headerScanRows, strings.Join(keywords, ", ")).WithDetails(samples)
}

func countKeywords(row Row, keywords []string) int {
	parts := make([]string, 0, len(row))
	for _, c := range row {
		if !c.IsEmpty() {
			parts = append(parts, c.Text())
		}
	}
	text := strings.ToLower(strings.Join(parts, " "))

	n := 0
	for _, kw := range keywords {
		if strings.Contains(text, strings.ToLower(kw)) {
			n++
		}
	}
	return n
}

var whitespaceRun = regexp.MustCompile(`\s+`)

// NormalizeHeader lowercases a header, turns line breaks into spaces and
// collapses whitespace.
func NormalizeHeader(s string) string {
	s = strings.NewReplacer("\r\n", " ", "\r", " ", "\n", " ").Replace(s)
	return strings.TrimSpace(whitespaceRun.ReplaceAllString(strings.ToLower(s), " "))
}

// HeaderTexts returns the display text of each header cell.
func HeaderTexts(row Row) []string {
	out := make([]string, len(row))
	for i, c := range row {
		out[i] = c.Text()
	}
	return out
}

// MapColumns resolves each field against the headers using the alias
// table. Aliases are tried in priority order and the leftmost matching
// column wins. A column is never assigned to two fields, so required
// fields are resolved first.
func MapColumns(headers []string, required, optional []string) (ColumnMapping, error) {
	normalized := make([]string, len(headers))
	for i, h := range headers {
		normalized[i] = NormalizeHeader(h)
	}

	mapping := ColumnMapping{Index: make(map[string]int)}
	used := make(map[int]bool)

	resolve := func(field string) bool {
		for _, alias := range Aliases[field] {
			for col, h := range normalized {
				if h != "" && !used[col] && h == alias {
					mapping.Index[field] = col
					used[col] = true
					return true
				}
			}
		}
		return false
	}

	var missing []MissingColumn
	for _, field := range required {
		if !resolve(field) {
			missing = append(missing, MissingColumn{Field: field, Aliases: Aliases[field]})
		}
	}
	for _, field := range optional {
		if !resolve(field) {
			mapping.Missing = append(mapping.Missing, field)
		}
	}

	if len(missing) > 0 {
		names := make([]string, len(missing))
		for i, m := range missing {
			names[i] = m.Field
		}
		return mapping, bonderr.New(bonderr.ParsingError,
			"required columns not found: %s", strings.Join(names, ", ")).WithDetails(missing)
	}
	return mapping, nil
}

func truncate(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}
