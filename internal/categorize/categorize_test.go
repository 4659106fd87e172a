package categorize

import (
	"testing"

	"github.com/castlemilk/claimflow/internal/extract"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func debitRecord(templateID string, categories []string, values map[string]any) *extract.Record {
	return &extract.Record{
		Issuer:     "TEST_DE",
		Kind:       "debit",
		TemplateID: templateID,
		Categories: categories,
		Amount:     100,
		Values:     values,
	}
}

func TestResolveByCatalogKeyword(t *testing.T) {
	rec := debitRecord("121001DE001",
		[]string{"return", "price", "delivery"},
		map[string]any{"reason": "Annahme verweigert wegen Bruch"})

	category, err := Resolve(rec)
	require.NoError(t, err)
	assert.Equal(t, "delivery", category)
}

func TestResolveCatalogOrderFirstHitWins(t *testing.T) {
	// "umbau" sits in the rebuild entry which precedes return.
	rec := debitRecord("101001DE015",
		[]string{"rebuild", "return", "quality"},
		map[string]any{"reason": []string{"Umbau der Filiale", "Retoure"}})

	category, err := Resolve(rec)
	require.NoError(t, err)
	assert.Equal(t, "rebuild", category)
}

func TestResolveNoKeywordMatch(t *testing.T) {
	rec := debitRecord("121001DE001",
		[]string{"return"},
		map[string]any{"reason": "Sonstiges"})

	_, err := Resolve(rec)
	var notFound *NotFoundError
	assert.ErrorAs(t, err, &notFound)
}

func TestResolvePenaltyBySubtotals(t *testing.T) {
	tests := []struct {
		name      string
		subtotals []float64
		want      string
	}{
		{"equal is general", []float64{50, 50}, "penalty_general"},
		{"quote dominates", []float64{80, 20}, "penalty_quote"},
		{"delay dominates", []float64{20, 80}, "penalty_delay"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			rec := debitRecord("101001DE011",
				[]string{"penalty_general", "penalty_quote", "penalty_delay"},
				map[string]any{"subtotals": tc.subtotals})

			category, err := Resolve(rec)
			require.NoError(t, err)
			assert.Equal(t, tc.want, category)
		})
	}
}

func TestResolvePenaltyByTax(t *testing.T) {
	categories := []string{"penalty_general", "penalty_quote", "penalty_delay"}

	rec := debitRecord("161001DE001", categories, map[string]any{"tax": 2.0})
	category, err := Resolve(rec)
	require.NoError(t, err)
	assert.Equal(t, "penalty_delay", category)

	rec = debitRecord("161001DE001", categories, map[string]any{"tax": []float64{25.0}})
	category, err = Resolve(rec)
	require.NoError(t, err)
	assert.Equal(t, "penalty_quote", category)

	rec = debitRecord("161001DE001", categories, map[string]any{"tax": []float64{2.0, 25.0}})
	category, err = Resolve(rec)
	require.NoError(t, err)
	assert.Equal(t, "penalty_general", category)

	rec = debitRecord("161001DE001", categories, map[string]any{"tax": 13.0})
	_, err = Resolve(rec)
	assert.Error(t, err)
}

func TestResolveByItemDiff(t *testing.T) {
	categories := []string{"price", "delivery"}

	// Quantity mismatch outweighs the price mismatch.
	rec := debitRecord("161001DE005", categories, nil)
	rec.Items = []extract.Item{
		{CustomerPieces: 5, SupplierPieces: 10, SupplierPrice: 4, CustomerPrice: 4, Amount: 20},
		{CustomerPieces: 3, SupplierPieces: 3, SupplierPrice: 2.5, CustomerPrice: 2, Amount: 1.5},
	}

	category, err := Resolve(rec)
	require.NoError(t, err)
	assert.Equal(t, "delivery", category)

	// Received more than supplied is invalid on a delivery-loss document.
	rec.Items = []extract.Item{{CustomerPieces: 10, SupplierPieces: 5}}
	_, err = Resolve(rec)
	assert.Error(t, err)
}

func TestResolveQualityOrReturn(t *testing.T) {
	categories := []string{"quality", "return"}

	rec := debitRecord("141001DE008", categories, map[string]any{"reason": "Lampe defekt"})
	category, err := Resolve(rec)
	require.NoError(t, err)
	assert.Equal(t, "quality", category)

	rec = debitRecord("141001DE008", categories, map[string]any{"reason": "Kunde wünscht Rückgabe"})
	category, err = Resolve(rec)
	require.NoError(t, err)
	assert.Equal(t, "return", category)
}

func TestResolveRejectsCategoryOutsideTemplate(t *testing.T) {
	// Catalog yields bonus, but the template only allows return.
	rec := debitRecord("121001DE001",
		[]string{"return"},
		map[string]any{"reason": "WKZ Marketing"})

	_, err := Resolve(rec)
	assert.Error(t, err)
}

func TestResolveUnsupportedTemplate(t *testing.T) {
	rec := debitRecord("999999ZZ999", []string{"price"}, nil)

	_, err := Resolve(rec)
	var unsupported *UnsupportedError
	assert.ErrorAs(t, err, &unsupported)
}

func TestResolveRejectsCreditNotes(t *testing.T) {
	rec := debitRecord("121001DE001", nil, nil)
	rec.Kind = "credit"

	_, err := Resolve(rec)
	assert.Error(t, err)
}
