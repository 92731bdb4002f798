package sheet

// Canonical field names used by the schedule parsers.
const (
	FieldMaturityDate = "maturity_date"
	FieldPrincipal    = "principal_amount"
	FieldCouponRate   = "coupon_rate"
	FieldDatedDate    = "dated_date"
	FieldSeries       = "series"
	FieldCusip        = "cusip"
	FieldCusipIssuer  = "cusip_issuer"
	FieldCusipIssue   = "cusip_issue"
	FieldCusipCheck   = "cusip_check"
)

// Aliases lists the accepted header spellings for each field, after
// normalisation, in priority order.
var Aliases = map[string][]string{
	FieldMaturityDate: {"maturity date", "maturity", "maturity dates", "due date", "date of maturity", "maturing", "date"},
	FieldPrincipal:    {"principal amount", "principal", "amount", "par amount", "par", "face amount"},
	FieldCouponRate:   {"coupon rate", "coupon", "interest rate", "rate", "coupon (%)", "interest rate (%)", "coupon rate (%)"},
	FieldDatedDate:    {"dated date", "dated", "issue date", "date of issue", "delivery date"},
	FieldSeries:       {"series", "bond series", "series name"},
	FieldCusip:        {"cusip", "cusip number", "cusip no", "cusip no.", "cusip #", "full cusip"},
	FieldCusipIssuer:  {"issuer number", "issuer id", "issuer", "cusip issuer", "base cusip", "cusip base", "cusip6", "cusip 6"},
	FieldCusipIssue:   {"issue number", "issue", "issue no", "issue no.", "cusip issue", "suffix"},
	FieldCusipCheck:   {"check digit", "check", "cusip check digit", "check no"},
}

// Header keywords used to find the header row in each schedule.
var (
	MaturityKeywords = []string{"maturity", "principal", "amount", "coupon", "rate", "interest", "par"}
	CusipKeywords    = []string{"cusip", "maturity", "date", "issuer", "issue", "check"}
)
