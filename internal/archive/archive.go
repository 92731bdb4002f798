// Package archive packages filled certificates into one ZIP whose bytes
// depend only on the certificates themselves.
package archive

import (
	"archive/zip"
	"bytes"
	"regexp"
	"sort"
	"strings"

	"github.com/dgallion1/bondgen/internal/bonderr"
)

// BondFile is one filled certificate. The metadata is used for naming
// only.
type BondFile struct {
	BondNumber   string `json:"bond_number"`
	IssuerName   string `json:"issuer_name,omitempty"`
	BondTitle    string `json:"bond_title,omitempty"`
	Series       string `json:"series,omitempty"`
	MaturityDate string `json:"maturity_date"`
	Data         []byte `json:"-"`
}

const maxNamePart = 50

var (
	nonAlnum      = regexp.MustCompile(`[^A-Za-z0-9]`)
	nonBondNumber = regexp.MustCompile(`[^A-Za-z0-9-]`)
)

// Sanitize joins the words of s in camel case, keeping ASCII letters and
// digits only, capped at 50 characters: "City of Austin" -> "CityOfAustin".
func Sanitize(s string) string {
	var b strings.Builder
	for _, word := range nonAlnum.Split(s, -1) {
		if word == "" {
			continue
		}
		b.WriteString(strings.ToUpper(word[:1]))
		b.WriteString(word[1:])
	}
	s = b.String()
	if len(s) > maxNamePart {
		s = s[:maxNamePart]
	}
	return s
}

// FileName returns the entry name for f, e.g.
// CityOfAustin_2024A_20250601_2024A-001.docx. Empty parts are omitted.
func FileName(f BondFile) string {
	parts := []string{
		Sanitize(f.IssuerName),
		Sanitize(f.Series),
		strings.ReplaceAll(f.MaturityDate, "-", ""),
		nonBondNumber.ReplaceAllString(f.BondNumber, ""),
	}
	var kept []string
	for _, p := range parts {
		if p != "" {
			kept = append(kept, p)
		}
	}
	return strings.Join(kept, "_") + ".docx"
}

// Name returns the download name of the archive.
func Name(issuer, series string) string {
	var kept []string
	for _, p := range []string{Sanitize(issuer), Sanitize(series)} {
		if p != "" {
			kept = append(kept, p)
		}
	}
	kept = append(kept, "Bonds")
	return strings.Join(kept, "_") + ".zip"
}

// Assemble writes the files sorted by bond number. Entries are stored
// uncompressed with zero timestamps so the same set of files always
// yields identical bytes.
func Assemble(files []BondFile) ([]byte, error) {
	if len(files) == 0 {
		return nil, bonderr.New(bonderr.NoBonds, "no bond files to package")
	}

	sorted := make([]BondFile, len(files))
	copy(sorted, files)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].BondNumber < sorted[j].BondNumber })

	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	seen := make(map[string]bool, len(sorted))
	for _, f := range sorted {
		if len(f.Data) == 0 {
			return nil, bonderr.New(bonderr.ZipError, "bond %s has no document data", f.BondNumber)
		}
		name := FileName(f)
		if seen[name] {
			return nil, bonderr.New(bonderr.ZipError, "duplicate archive entry %s", name)
		}
		seen[name] = true

		w, err := zw.CreateHeader(&zip.FileHeader{Name: name, Method: zip.Store})
		if err != nil {
			return nil, bonderr.Wrap(bonderr.ZipError, err, "add %s", name)
		}
		if _, err := w.Write(f.Data); err != nil {
			return nil, bonderr.Wrap(bonderr.ZipError, err, "write %s", name)
		}
	}
	if err := zw.Close(); err != nil {
		return nil, bonderr.Wrap(bonderr.ZipError, err, "finalize archive")
	}
	return buf.Bytes(), nil
}
