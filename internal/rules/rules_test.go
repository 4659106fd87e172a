package rules

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const debitRule = `template_id: obi_de_d001
kind: debit
company_code: "1001"
threshold: 500
tolerance: 0.01
category:
  - return
  - price
case_search:
  title: "*<document_number>*"
claim_create:
  reference_by:
    - invoice_number
    - delivery_number
    - account_number
  description: "<category> <issuer> <?document_number>"
  processor: ROBOT1
  coordinator: COORD1
  attachment_name: "claim_<case_id>"
  status_ac: "tax_code"
case_add:
  description: "<category> <issuer>"
  processor: ROBOT1
  coordinator: COORD1
  attachment_name: "claim_<case_id>"
`

const creditRule = `template_id: obi_de_c001
kind: credit
company_code: "1001"
threshold: 500
tolerance: 0.01
case_search:
  title: "*<backreference_number>*"
  account: customer_account
  cust_disputed: amount
case_update:
  status_sales: "+="
  attachment_name: "credit_<case_id>"
  amount: amount
`

const zqmRule = `template_id: obi_de_d009
kind: debit
company_code: "1072"
threshold: 300
tolerance: 0.05
category: quality
case_search:
  title: "*<document_number>*"
claim_create:
  reference_by:
    - account_number
  description: "<category> <issuer>"
  processor: ROBOT1
  coordinator: COORD1
  attachment_name: "claim_<case_id>"
  user: SOMEUSER
case_add:
  description: "never used"
  processor: ROBOT1
  coordinator: COORD1
  attachment_name: "claim_<case_id>"
`

func writeRule(t *testing.T, dir, issuer, name, body string) {
	t.Helper()
	issuerDir := filepath.Join(dir, issuer)
	require.NoError(t, os.MkdirAll(issuerDir, 0o755))
	require.NoError(t, os.WriteFile(filepath.Join(issuerDir, name), []byte(body), 0o644))
}

func TestLoadAndGet(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "OBI_DE", "d001.yml", debitRule)
	writeRule(t, dir, "OBI_DE", "c001.yml", creditRule)

	reg, err := Load(dir)
	require.NoError(t, err)

	rule := reg.Get("OBI_DE", "OBI_DE_D001", "return")
	require.NotNil(t, rule)
	assert.Equal(t, "1001", rule.CompanyCode)
	assert.Equal(t, 500.0, rule.Threshold)
	assert.Equal(t, []string{"invoice_number", "delivery_number", "account_number"},
		rule.ClaimCreate.ReferenceBy)

	// Category outside the rule's set does not match.
	assert.Nil(t, reg.Get("OBI_DE", "OBI_DE_D001", "quality"))

	// Credit rules match with an empty category.
	credit := reg.Get("OBI_DE", "OBI_DE_C001", "")
	require.NotNil(t, credit)
	assert.Equal(t, "+=", credit.CaseUpdate.StatusSales)

	// Unknown issuer.
	assert.Nil(t, reg.Get("METRO_AT", "OBI_DE_D001", "return"))
}

func TestLoadStripsCaseAddForZQMCategories(t *testing.T) {
	dir := t.TempDir()
	writeRule(t, dir, "OBI_DE", "d009.yml", zqmRule)

	reg, err := Load(dir)
	require.NoError(t, err)

	rule := reg.Get("OBI_DE", "OBI_DE_D009", "quality")
	require.NotNil(t, rule)
	assert.Nil(t, rule.CaseAdd)
	assert.Empty(t, rule.ClaimCreate.User)
}

func TestLoadValidation(t *testing.T) {
	tests := []struct {
		name string
		body string
	}{
		{"bad company code", "template_id: x\nkind: debit\ncompany_code: \"9999\"\nclaim_create: {description: d}"},
		{"negative threshold", "template_id: x\nkind: debit\ncompany_code: \"1001\"\nthreshold: -1\nclaim_create: {description: d}"},
		{"credit with category", "template_id: x\nkind: credit\ncompany_code: \"1001\"\ncategory: price\ncase_update: {amount: amount}"},
		{"debit without claim_create", "template_id: x\nkind: debit\ncompany_code: \"1001\""},
		{"credit without case_update", "template_id: x\nkind: credit\ncompany_code: \"1001\""},
		{"missing template id", "kind: debit\ncompany_code: \"1001\"\nclaim_create: {description: d}"},
		{"missing case_search", "template_id: x\nkind: debit\ncompany_code: \"1001\"\nclaim_create: {description: d}"},
		{"bad account selector", "template_id: x\nkind: debit\ncompany_code: \"1001\"\ncase_search: {title: t, account: branch}\nclaim_create: {description: d}"},
	}

	for _, tc := range tests {
		t.Run(tc.name, func(t *testing.T) {
			dir := t.TempDir()
			writeRule(t, dir, "X", "r.yml", tc.body)

			_, err := Load(dir)
			var loadErr *LoadError
			assert.ErrorAs(t, err, &loadErr)
		})
	}
}
