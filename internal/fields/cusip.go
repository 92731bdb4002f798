package fields

import (
	"strings"
	"unicode"

	"github.com/dgallion1/bondgen/internal/sheet"
)

const (
	CusipLength      = 9
	CusipIssuerWidth = 6
	CusipIssueWidth  = 2
	CusipCheckWidth  = 1
)

// ValidateCusip strips whitespace, uppercases, and requires exactly nine
// letters or digits. The check digit is not verified.
func ValidateCusip(s string) Result[string] {
	norm := normalizeCusip(s)
	if norm == "" {
		return fail[string]("CUSIP is empty")
	}
	if hasPlaceholder(norm) {
		return fail[string]("CUSIP %q contains placeholder characters", s)
	}
	if n := len([]rune(norm)); n != CusipLength {
		return fail[string]("CUSIP must be exactly %d characters, got %d (%q)", CusipLength, n, norm)
	}
	for _, r := range norm {
		if r > unicode.MaxASCII || !(unicode.IsDigit(r) || unicode.IsLetter(r)) {
			return fail[string]("CUSIP %q must contain only letters and digits", norm)
		}
	}
	return ok(norm)
}

// AssembleCusipFromParts joins a 6-character issuer id, a 2-character
// issue number and a check digit, checking each part's length first.
func AssembleCusipFromParts(issuer, issue, check string) Result[string] {
	parts := []struct {
		name  string
		value string
		width int
	}{
		{"issuer number", normalizeCusip(issuer), CusipIssuerWidth},
		{"issue number", normalizeCusip(issue), CusipIssueWidth},
		{"check digit", normalizeCusip(check), CusipCheckWidth},
	}
	var b strings.Builder
	for _, p := range parts {
		if n := len([]rune(p.value)); n != p.width {
			return fail[string]("CUSIP %s must be %d characters, got %d (%q)", p.name, p.width, n, p.value)
		}
		b.WriteString(p.value)
	}
	return ValidateCusip(b.String())
}

// CusipPart renders one split-CUSIP cell. Numeric cells lose leading
// zeros in spreadsheets, so they are padded back to width.
func CusipPart(c sheet.Cell, width int) string {
	s := strings.TrimSpace(c.Text())
	if c.Kind == sheet.Number && len(s) < width && !strings.ContainsAny(s, ".-") {
		s = strings.Repeat("0", width-len(s)) + s
	}
	return s
}

func normalizeCusip(s string) string {
	return strings.ToUpper(strings.Join(strings.Fields(s), ""))
}
