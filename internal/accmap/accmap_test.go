package accmap

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeSheet(t *testing.T, dir, name, body string) string {
	t.Helper()
	path := filepath.Join(dir, name)
	require.NoError(t, os.WriteFile(path, []byte(body), 0o644))
	return path
}

func TestParseAndLookupBySupplierAndUnit(t *testing.T) {
	dir := t.TempDir()
	path := writeSheet(t, dir, "OBI_DE.csv",
		"supplier,business_unit,account\n"+
			"76005,331,10004711\n"+
			"76005,head_office,10004712\n"+
			"76009,331,10004799\n")

	m, err := Parse(path, "OBI_DE")
	require.NoError(t, err)
	assert.Equal(t, "OBI", m.Customer())
	assert.Equal(t, "DE", m.CountryCode())

	acc, ok, err := m.Account(Query{Supplier: "76005", BusinessUnit: "331"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(10004711), acc)

	acc, ok, err = m.Account(Query{Supplier: "76005", BusinessUnit: HeadOffice})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(10004712), acc)

	_, ok, err = m.Account(Query{Supplier: "76005", BusinessUnit: "999"})
	require.NoError(t, err)
	assert.False(t, ok)
}

func TestParseAndLookupByUnit(t *testing.T) {
	dir := t.TempDir()
	path := writeSheet(t, dir, "HAGEBAU_DE.csv",
		"business_unit,account\n401,20001111\nhead_office,20001112\n")

	m, err := Parse(path, "HAGEBAU_DE")
	require.NoError(t, err)

	acc, ok, err := m.Account(Query{BusinessUnit: "401"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(20001111), acc)
}

func TestParseAndLookupBySupplier(t *testing.T) {
	dir := t.TempDir()
	path := writeSheet(t, dir, "MARKANT_DE.csv",
		"supplier,account\n4399902000001,30002222\n")

	m, err := Parse(path, "MARKANT_DE")
	require.NoError(t, err)

	acc, ok, err := m.Account(Query{Supplier: "4399902000001"})
	require.NoError(t, err)
	require.True(t, ok)
	assert.Equal(t, int64(30002222), acc)
}

func TestAccountRejectsMalformedQuery(t *testing.T) {
	dir := t.TempDir()
	path := writeSheet(t, dir, "OBI_DE.csv",
		"supplier,business_unit,account\n76005,331,10004711\n")

	m, err := Parse(path, "OBI_DE")
	require.NoError(t, err)

	_, _, err = m.Account(Query{Supplier: "76x05", BusinessUnit: "331"})
	assert.Error(t, err)

	_, _, err = m.Account(Query{Supplier: "76005", BusinessUnit: "branch"})
	assert.Error(t, err)
}

func TestParseValidation(t *testing.T) {
	tests := []struct {
		name string
		cust string
		body string
	}{
		{"unknown column", "OBI_DE", "supplier,account,comment\n1,2,3\n"},
		{"missing account", "OBI_DE", "supplier,business_unit\n1,2\n"},
		{"non-numeric account", "OBI_DE", "supplier,business_unit,account\n1,2,abc\n"},
		{"non-numeric unit", "OBI_DE", "supplier,business_unit,account\n1,branch,3\n"},
		{"unknown customer", "TENGELMANN_DE", "supplier,account\n1,2\n"},
		{"malformed key", "OBIDE", "supplier,account\n1,2\n"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			path := writeSheet(t, dir, "sheet.csv", tc.body)

			_, err := Parse(path, tc.cust)
			assert.Error(t, err)
		})
	}
}

func TestLoaderReadsDirectory(t *testing.T) {
	dir := t.TempDir()
	writeSheet(t, dir, "OBI_DE.csv", "supplier,business_unit,account\n76005,331,10004711\n")
	writeSheet(t, dir, "MARKANT_DE.csv", "supplier,account\n4399902000001,30002222\n")
	writeSheet(t, dir, "notes.txt", "ignored")

	maps, err := NewLoader(dir).Load()
	require.NoError(t, err)
	assert.Len(t, maps, 2)
	assert.Contains(t, maps, "OBI_DE")
	assert.Contains(t, maps, "MARKANT_DE")
}
