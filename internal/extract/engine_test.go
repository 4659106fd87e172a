package extract

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/castlemilk/claimflow/internal/template"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

const testTemplate = `issuer: obi_de
kind: debit
name: obi retoure
template_id: obi_de_d001
category:
  - return
  - price
inclusive_keywords:
  - belastung
options:
  lowercase: true
  remove_whitespace: true
fields:
  amount: 'gesamtbetrag\s+([\d.,]+)'
  invoice_number: 'rechnung\s+(\d+)'
  delivery_number: 'lieferschein\s+(\d+)'
  supplier: 'lieferant\s+(\d+)'
  reason: 'grund:\s+(\w+)'
  items: 'pos ([\d.,]+ [\d.,]+ [\d.,]+)'
optional_fields:
  - reason
  - items
  - delivery_number
  - invoice_number
  - supplier
`

func newTestEngine(t *testing.T) *Engine {
	t.Helper()

	dir := t.TempDir()
	issuerDir := filepath.Join(dir, "OBI_DE")
	require.NoError(t, os.MkdirAll(issuerDir, 0o755))
	require.NoError(t, os.WriteFile(
		filepath.Join(issuerDir, "d001.yml"), []byte(testTemplate), 0o644))

	reg, err := template.LoadRegistry(dir)
	require.NoError(t, err)

	return NewEngine(reg, NewReconcilerRegistry(), zap.NewNop())
}

func TestExtractTypedRecord(t *testing.T) {
	e := newTestEngine(t)

	text := "BELASTUNG\nRechnung 109876543\nLieferschein 319000001\n" +
		"Lieferant 4711\nGrund: Retoure\nGesamtbetrag 123,45"

	res, err := e.Extract("OBI_DE", text)
	require.NoError(t, err)

	rec := res.Record
	assert.Equal(t, "OBI_DE", rec.Issuer)
	assert.Equal(t, "debit", rec.Kind)
	assert.Equal(t, "OBI_DE_D001", rec.TemplateID)
	assert.InDelta(t, 123.45, rec.Amount, 1e-9)
	assert.Equal(t, "109876543", rec.Values["invoice_number"])
	assert.Equal(t, "319000001", rec.Values["delivery_number"])
	assert.Equal(t, int64(4711), rec.Values["supplier"])
	assert.Equal(t, "retoure", rec.Values["reason"])
	assert.Contains(t, res.NormalizedText, "belastung")
}

func TestExtractNoTemplate(t *testing.T) {
	e := newTestEngine(t)

	_, err := e.Extract("OBI_DE", "Gutschrift ohne Schluesselwort")
	var extErr *Error
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, ErrTemplateNotFound, extErr.Code)
}

func TestExtractMissingRequiredField(t *testing.T) {
	e := newTestEngine(t)

	// Keyword matches but the amount pattern does not.
	_, err := e.Extract("OBI_DE", "BELASTUNG ohne Betrag")
	var extErr *Error
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, ErrPatternMatch, extErr.Code)
	assert.Equal(t, "amount", extErr.Field)
}

func TestExtractRejectsInvalidNumberShapes(t *testing.T) {
	e := newTestEngine(t)

	// Delivery numbers must start with 31 and have nine digits.
	text := "BELASTUNG\nLieferschein 419000001\nGesamtbetrag 10,00"
	_, err := e.Extract("OBI_DE", text)
	var extErr *Error
	require.ErrorAs(t, err, &extErr)
	assert.Equal(t, "delivery_number", extErr.Field)
}

func TestExtractDropsUnreconcilableItems(t *testing.T) {
	e := newTestEngine(t)

	// Item sum 30.00 disagrees with the total; the record survives
	// without items.
	text := "BELASTUNG\nPos 10  2,00  20,00\nPos 5  2,00  10,00\nGesamtbetrag 123,45"
	res, err := e.Extract("OBI_DE", text)
	require.NoError(t, err)
	assert.Empty(t, res.Record.Items)

	// Matching sum keeps the items.
	text = "BELASTUNG\nPos 10  2,00  20,00\nPos 5  2,00  10,00\nGesamtbetrag 30,00"
	res, err = e.Extract("OBI_DE", text)
	require.NoError(t, err)
	require.Len(t, res.Record.Items, 2)
	assert.Equal(t, 20.0, res.Record.Items[0].Amount)
}

func TestRecordMarshalRoundTrip(t *testing.T) {
	rec := &Record{
		Issuer:     "OBI_DE",
		Kind:       "debit",
		TemplateID: "OBI_DE_D001",
		Category:   "return",
		Amount:     123.45,
		Values:     map[string]any{"invoice_number": "109876543"},
	}

	data, err := rec.Marshal()
	require.NoError(t, err)

	got, err := Unmarshal(data)
	require.NoError(t, err)
	assert.Equal(t, rec.Amount, got.Amount)
	assert.Equal(t, "109876543", got.Values["invoice_number"])
}
