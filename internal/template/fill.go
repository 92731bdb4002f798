package template

import (
	"bytes"
	"encoding/xml"
	"fmt"

	"github.com/dgallion1/bondgen/internal/archive"
	"github.com/dgallion1/bondgen/internal/bond"
	"github.com/dgallion1/bondgen/internal/bonderr"
)

// Supplementary carries issue-level values that are not on the bond rows.
type Supplementary struct {
	IssuerName    string    `json:"issuer_name,omitempty" yaml:"issuer_name"`
	BondTitle     string    `json:"bond_title,omitempty" yaml:"bond_title"`
	ProjectName   string    `json:"project_name,omitempty" yaml:"project_name"`
	InterestDates [2]string `json:"interest_dates,omitempty" yaml:"interest_dates"`
}

// FillFailure describes where a batch fill stopped.
type FillFailure struct {
	BondNumber string `json:"bond_number"`
	Succeeded  int    `json:"succeeded"`
	Total      int    `json:"total"`
}

// Filler substitutes bond values into templates of one container format.
type Filler struct {
	Format Format
}

// NewFiller returns a Filler for .docx templates.
func NewFiller() *Filler {
	return &Filler{Format: OOXML{}}
}

// Fill fills a .docx template for one bond.
func Fill(doc []byte, b bond.Bond, info Supplementary) ([]byte, error) {
	return NewFiller().Fill(doc, b, info)
}

// FillAll fills a .docx template for every bond.
func FillAll(doc []byte, bonds []bond.Bond, info Supplementary) ([]archive.BondFile, error) {
	return NewFiller().FillAll(doc, bonds, info)
}

// Values returns the replacement table for one bond.
func Values(b bond.Bond, info Supplementary) map[string]string {
	return map[string]string{
		TagBondNumber:           b.BondNumber,
		TagDatedDate:            FormatDate(b.DatedDate),
		TagInterestRate:         FormatRate(b.CouponRate),
		TagMaturityDate:         FormatDate(b.MaturityDate),
		TagCusipNo:              b.Cusip,
		TagPrincipalAmountNum:   FormatPrincipal(b.PrincipalAmount),
		TagPrincipalAmountWords: b.PrincipalWords,
		TagSeries:               b.Series,
		TagIssuerName:           info.IssuerName,
		TagProjectName:          info.ProjectName,
		TagBondTitle:            info.BondTitle,
		TagInterestDates:        FormatInterestDates(info.InterestDates),
	}
}

// Fill replaces every tag in the template's text part. Tags without a
// value become empty text.
func (f *Filler) Fill(doc []byte, b bond.Bond, info Supplementary) (out []byte, err error) {
	defer func() {
		if r := recover(); r != nil {
			out, err = nil, bonderr.New(bonderr.FillError, "bond %s: %v", b.BondNumber, r).
				WithDetails(FillFailure{BondNumber: b.BondNumber})
		}
	}()

	if err := b.Validate(); err != nil {
		return nil, bonderr.Wrap(bonderr.FillError, err, "bond %s", b.BondNumber).
			WithDetails(FillFailure{BondNumber: b.BondNumber})
	}

	c, err := f.Format.Open(doc)
	if err != nil {
		return nil, err
	}

	content, err := Replace(c.Content(), Values(b, info))
	if err != nil {
		return nil, bonderr.Wrap(bonderr.ReplacementError, err, "bond %s", b.BondNumber).
			WithDetails(FillFailure{BondNumber: b.BondNumber})
	}

	out, err = c.Repack(content)
	if err != nil {
		return nil, bonderr.Wrap(bonderr.FillError, err, "bond %s: save document", b.BondNumber).
			WithDetails(FillFailure{BondNumber: b.BondNumber})
	}
	return out, nil
}

// Replace substitutes values into markup, XML-escaping each value.
func Replace(content []byte, values map[string]string) ([]byte, error) {
	normalized := []byte(NormalizeSplitTags(string(content)))

	var escErr error
	replaced := tagPattern.ReplaceAllFunc(normalized, func(m []byte) []byte {
		name := string(m[2 : len(m)-2])
		var buf bytes.Buffer
		if err := xml.EscapeText(&buf, []byte(values[name])); err != nil && escErr == nil {
			escErr = fmt.Errorf("escape %s: %w", name, err)
		}
		return buf.Bytes()
	})
	if escErr != nil {
		return nil, escErr
	}
	return replaced, nil
}

// FillAll fills bonds in order and stops at the first failure. On failure
// no files are returned.
func (f *Filler) FillAll(doc []byte, bonds []bond.Bond, info Supplementary) ([]archive.BondFile, error) {
	if len(bonds) == 0 {
		return nil, bonderr.New(bonderr.NoBonds, "no bonds to fill")
	}

	out := make([]archive.BondFile, 0, len(bonds))
	for i, b := range bonds {
		data, err := f.Fill(doc, b, info)
		if err != nil {
			failure := FillFailure{BondNumber: b.BondNumber, Succeeded: i, Total: len(bonds)}
			code := bonderr.CodeOf(err)
			if code == bonderr.InvalidTemplate {
				return nil, err
			}
			return nil, bonderr.Wrap(code, err,
				"fill stopped at bond %s after %d of %d bonds", b.BondNumber, i, len(bonds)).
				WithDetails(failure)
		}
		out = append(out, archive.BondFile{
			BondNumber:   b.BondNumber,
			IssuerName:   info.IssuerName,
			BondTitle:    info.BondTitle,
			Series:       b.Series,
			MaturityDate: b.MaturityDate,
			Data:         data,
		})
	}
	return out, nil
}
