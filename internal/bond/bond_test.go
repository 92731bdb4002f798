package bond

import (
	"testing"

	"github.com/dgallion1/bondgen/internal/bonderr"
	"github.com/dgallion1/bondgen/internal/schedule"
	"github.com/shopspring/decimal"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func maturities(series string, amounts ...int64) []schedule.MaturityEntry {
	out := make([]schedule.MaturityEntry, len(amounts))
	for i, a := range amounts {
		out[i] = schedule.MaturityEntry{
			RowNumber:       i + 2,
			MaturityDate:    "2030-06-01",
			PrincipalAmount: a,
			CouponRate:      decimal.RequireFromString("4.125"),
			Series:          series,
		}
	}
	return out
}

func cusips(n int) []schedule.CusipEntry {
	codes := []string{"912828ZA9", "912828ZB7", "912828ZC5", "912828ZD3", "912828ZE1"}
	out := make([]schedule.CusipEntry, n)
	for i := range out {
		out[i] = schedule.CusipEntry{RowNumber: i + 2, MaturityDate: "2030-06-01", Cusip: codes[i]}
	}
	return out
}

func TestAssemble(t *testing.T) {
	bonds, err := Assemble(maturities("", 5000000, 21), cusips(2), Options{DatedDate: "2024-06-01"})
	require.NoError(t, err)
	require.Len(t, bonds, 2)

	assert.Equal(t, Bond{
		BondNumber:      "BOND-001",
		MaturityDate:    "2030-06-01",
		PrincipalAmount: 5000000,
		CouponRate:      decimal.RequireFromString("4.125"),
		Cusip:           "912828ZA9",
		DatedDate:       "2024-06-01",
		PrincipalWords:  "FIVE MILLION DOLLARS",
	}, bonds[0])
	assert.Equal(t, "BOND-002", bonds[1].BondNumber)
	assert.Equal(t, "912828ZB7", bonds[1].Cusip)
	assert.Equal(t, "TWENTY-ONE DOLLARS", bonds[1].PrincipalWords)
}

func TestAssemble_Numbering(t *testing.T) {
	tests := []struct {
		name   string
		series string
		opts   Numbering
		want   []string
	}{
		{"series prefix", "2024A", Numbering{}, []string{"2024A-001", "2024A-002", "2024A-003"}},
		{"custom prefix wins", "2024A", Numbering{Prefix: "GO 2024"}, []string{"GO2024-001", "GO2024-002", "GO2024-003"}},
		{"starting number", "", Numbering{StartingNumber: 7}, []string{"BOND-007", "BOND-008", "BOND-009"}},
		{"past three digits", "", Numbering{StartingNumber: 999}, []string{"BOND-999", "BOND-1000", "BOND-1001"}},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			bonds, err := Assemble(maturities(tc.series, 1, 2, 3), cusips(3),
				Options{Numbering: tc.opts, DatedDate: "2024-06-01"})
			require.NoError(t, err)
			got := make([]string, len(bonds))
			for i, b := range bonds {
				got[i] = b.BondNumber
			}
			assert.Equal(t, tc.want, got)
		})
	}
}

func TestAssemble_SeriesFromCusipRow(t *testing.T) {
	c := cusips(1)
	c[0].Series = "2025B"
	bonds, err := Assemble(maturities("", 1000), c, Options{DatedDate: "2024-06-01"})
	require.NoError(t, err)
	assert.Equal(t, "2025B", bonds[0].Series)
	assert.Equal(t, "2025B-001", bonds[0].BondNumber)
}

func TestAssemble_Failures(t *testing.T) {
	tests := []struct {
		name string
		m    []schedule.MaturityEntry
		c    []schedule.CusipEntry
		opts Options
		msg  string
	}{
		{"no rows", nil, nil, Options{DatedDate: "2024-06-01"}, "no valid maturity rows"},
		{"count mismatch", maturities("", 1, 2), cusips(1), Options{DatedDate: "2024-06-01"}, "2 valid rows"},
		{"no dated date", maturities("", 1), cusips(1), Options{}, "dated date is required"},
		{"bad dated date", maturities("", 1), cusips(1), Options{DatedDate: "June 1"}, "not a YYYY-MM-DD"},
		{"negative start", maturities("", 1), cusips(1), Options{DatedDate: "2024-06-01", Numbering: Numbering{StartingNumber: -1}}, "starting number"},
		{"zero principal", maturities("", 0), cusips(1), Options{DatedDate: "2024-06-01"}, "greater than zero"},
		{"bad cusip", maturities("", 1), []schedule.CusipEntry{{RowNumber: 2, Cusip: "123"}}, Options{DatedDate: "2024-06-01"}, "invalid CUSIP"},
	}
	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := Assemble(tc.m, tc.c, tc.opts)
			require.Error(t, err)
			assert.Equal(t, bonderr.ValidationError, bonderr.CodeOf(err))
			assert.Contains(t, err.Error(), tc.msg)
		})
	}
}

func TestSanitize(t *testing.T) {
	assert.Equal(t, "Series2024A", Sanitize(" Series 2024A! "))
	assert.Equal(t, "GO-2024", Sanitize("-GO-2024-"))
	assert.Equal(t, "2024A", Sanitize("2024A"))
	assert.Equal(t, "", Sanitize("  --  "))
}
