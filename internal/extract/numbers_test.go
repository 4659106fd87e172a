package extract

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseNumber(t *testing.T) {
	tests := []struct {
		in   string
		want float64
	}{
		{"125,30-", -125.3},
		{"1.254.125,33-", -1254125.33},
		{"1.254.125.33-", -1254125.33},
		{"1,254,125,33-", -1254125.33},
		{"125.33", 125.33},
		{"125,5400", 125.54},
		{"1 500,00", 1500},
		{"42", 42},
	}

	for _, tc := range tests {
		t.Run(tc.in, func(t *testing.T) {
			got, err := ParseNumber(tc.in)
			require.NoError(t, err)
			assert.InDelta(t, tc.want, got, 1e-9)
		})
	}
}

func TestParseNumberRejectsNonNumeric(t *testing.T) {
	_, err := ParseNumber("12a5")
	require.Error(t, err)

	var extErr *Error
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, ErrParsing, extErr.Code)
}

func TestParseInt(t *testing.T) {
	n, err := ParseInt("1,000")
	require.NoError(t, err)
	assert.Equal(t, int64(1), n)

	n, err = ParseInt("319000001")
	require.NoError(t, err)
	assert.Equal(t, int64(319000001), n)
}

func TestFindNumbers(t *testing.T) {
	nums := FindNumbers("Rechnung 123,45 und 1.500,00 Summe")
	assert.Equal(t, []float64{123.45, 1500}, nums)
}
