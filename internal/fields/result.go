// Package fields holds the atomic cell parsers. Each parser reports
// success or failure as data and never panics on bad input.
package fields

import (
	"fmt"
	"strings"
)

// Result is the outcome of converting one raw cell.
type Result[T any] struct {
	OK       bool     `json:"ok"`
	Value    T        `json:"value"`
	Format   string   `json:"format,omitempty"`
	Error    string   `json:"error,omitempty"`
	Warnings []string `json:"warnings,omitempty"`
}

func ok[T any](v T, warnings ...string) Result[T] {
	return Result[T]{OK: true, Value: v, Warnings: warnings}
}

func fail[T any](format string, args ...any) Result[T] {
	return Result[T]{Error: fmt.Sprintf(format, args...)}
}

// hasPlaceholder reports template fill-in markers such as "__/__/____".
func hasPlaceholder(s string) bool {
	return strings.Contains(s, "_")
}
