// Package template extracts, validates and fills {{TAG}} placeholders in
// bond-form documents.
package template

import "regexp"

// Tag names understood by the filler.
const (
	TagBondNumber           = "BOND_NUMBER"
	TagDatedDate            = "DATED_DATE"
	TagInterestRate         = "INTEREST_RATE"
	TagMaturityDate         = "MATURITY_DATE"
	TagCusipNo              = "CUSIP_NO"
	TagPrincipalAmountNum   = "PRINCIPAL_AMOUNT_NUM"
	TagPrincipalAmountWords = "PRINCIPAL_AMOUNT_WORDS"

	TagSeries        = "SERIES"
	TagIssuerName    = "ISSUER_NAME"
	TagProjectName   = "PROJECT_NAME"
	TagBondTitle     = "BOND_TITLE"
	TagInterestDates = "INTEREST_DATES"
)

// RequiredTags must each appear exactly once in a template.
var RequiredTags = []string{
	TagBondNumber,
	TagDatedDate,
	TagInterestRate,
	TagMaturityDate,
	TagCusipNo,
	TagPrincipalAmountNum,
	TagPrincipalAmountWords,
}

// OptionalTags may appear any number of times.
var OptionalTags = []string{
	TagSeries,
	TagIssuerName,
	TagProjectName,
	TagBondTitle,
	TagInterestDates,
}

var (
	required = toSet(RequiredTags)
	optional = toSet(OptionalTags)
)

// tagPattern is the only accepted placeholder syntax.
var tagPattern = regexp.MustCompile(`\{\{([A-Z_]+)\}\}`)

// IsRequired reports whether name is a required tag.
func IsRequired(name string) bool { return required[name] }

// IsKnown reports whether name is in the tag vocabulary.
func IsKnown(name string) bool { return required[name] || optional[name] }

func toSet(names []string) map[string]bool {
	m := make(map[string]bool, len(names))
	for _, n := range names {
		m[n] = true
	}
	return m
}
