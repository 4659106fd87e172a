package claim

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/castlemilk/claimflow/internal/extract"
)

func lookupFrom(values map[string]any) func(string) (any, bool) {
	return func(name string) (any, bool) {
		v, ok := values[name]
		return v, ok
	}
}

func TestGenerateDescription(t *testing.T) {
	values := map[string]any{
		"category":        "return",
		"issuer":          "OBI_DE",
		"document_number": int64(123456789),
	}

	desc, err := GenerateDescription("<category> <issuer> <?document_number>", lookupFrom(values))
	require.NoError(t, err)
	assert.Equal(t, "return OBI_DE 123456789", desc)
}

func TestGenerateDescriptionDropsUnboundOptional(t *testing.T) {
	values := map[string]any{"category": "return"}

	desc, err := GenerateDescription("<category>, <?document_number>", lookupFrom(values))
	require.NoError(t, err)
	assert.Equal(t, "return", desc)
}

func TestGenerateDescriptionPadsToWidth(t *testing.T) {
	values := map[string]any{"category": "price", "branch": int64(7)}

	desc, err := GenerateDescription("<category> <3branch>", lookupFrom(values))
	require.NoError(t, err)
	assert.Equal(t, "price 007", desc)
}

func TestGenerateDescriptionFewestMarksWins(t *testing.T) {
	values := map[string]any{
		"category":       "invoice",
		"archive_number": int64(555),
		"invoice_number": int64(900000001),
	}

	desc, err := GenerateDescription(
		"<category> <??archive_number> <?invoice_number>", lookupFrom(values))
	require.NoError(t, err)
	assert.Equal(t, "invoice 900000001", desc)
}

func TestGenerateDescriptionErrors(t *testing.T) {
	tests := []struct {
		name   string
		rule   string
		values map[string]any
	}{
		{"unbound required", "<category> <document_number>", map[string]any{"category": "return"}},
		{"all optional", "<?category> <?document_number>", map[string]any{"category": "return"}},
		{"duplicated token", "<category> <category>", map[string]any{"category": "return"}},
		{"no tokens", "static text", nil},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			_, err := GenerateDescription(tc.rule, lookupFrom(tc.values))
			assert.Error(t, err)
		})
	}
}

func TestSearchTitle(t *testing.T) {
	rec := &extract.Record{
		Issuer: "OBI_DE",
		Kind:   "debit",
		Values: map[string]any{"document_number": int64(123456789)},
	}

	title, err := searchTitle("*<document_number>*", rec)
	require.NoError(t, err)
	assert.Equal(t, "%123456789%", title)

	_, err = searchTitle("*<backreference_number>*", rec)
	assert.Error(t, err)

	_, err = searchTitle("*static*", rec)
	assert.Error(t, err)
}

func TestAttachmentName(t *testing.T) {
	name, err := AttachmentName("claim_<case_id>", 4711)
	require.NoError(t, err)
	assert.Equal(t, "claim_4711", name)

	_, err = AttachmentName("claim", 4711)
	assert.Error(t, err)
}
