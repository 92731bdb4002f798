package sheet

import (
	"strconv"
	"strings"
)

// Kind is the type of a raw cell value.
type Kind int

const (
	Empty Kind = iota
	Number
	String
	Bool
)

func (k Kind) String() string {
	switch k {
	case Number:
		return "number"
	case String:
		return "string"
	case Bool:
		return "bool"
	default:
		return "empty"
	}
}

// Cell is one untyped spreadsheet value.
type Cell struct {
	Kind Kind    `json:"kind"`
	Num  float64 `json:"num,omitempty"`
	Str  string  `json:"str,omitempty"`
}

// Row is an ordered sequence of cells from one sheet row.
type Row []Cell

// Grid is a whole sheet, top to bottom.
type Grid []Row

// NumberCell returns a numeric cell.
func NumberCell(f float64) Cell { return Cell{Kind: Number, Num: f} }

// StringCell returns a string cell, or an empty cell for blank text.
func StringCell(s string) Cell {
	if strings.TrimSpace(s) == "" {
		return Cell{}
	}
	return Cell{Kind: String, Str: s}
}

// IsEmpty reports whether the cell holds nothing but whitespace.
func (c Cell) IsEmpty() bool {
	switch c.Kind {
	case Empty:
		return true
	case String:
		return strings.TrimSpace(c.Str) == ""
	}
	return false
}

// Text renders the cell as display text.
func (c Cell) Text() string {
	switch c.Kind {
	case Number:
		return strconv.FormatFloat(c.Num, 'f', -1, 64)
	case String:
		return c.Str
	case Bool:
		if c.Num != 0 {
			return "TRUE"
		}
		return "FALSE"
	}
	return ""
}

// IsBlank reports whether every cell in the row is empty.
func (r Row) IsBlank() bool {
	for _, c := range r {
		if !c.IsEmpty() {
			return false
		}
	}
	return true
}

// Trimmed returns the row without trailing empty cells.
func (r Row) Trimmed() Row {
	end := len(r)
	for end > 0 && r[end-1].IsEmpty() {
		end--
	}
	return r[:end]
}

// At returns the cell at col, or an empty cell when out of range.
func (r Row) At(col int) Cell {
	if col < 0 || col >= len(r) {
		return Cell{}
	}
	return r[col]
}
