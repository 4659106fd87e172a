// Package accmap resolves customer and head-office account numbers from the
// per-customer account sheets (CSV exports with columns supplier,
// business_unit and account).
package accmap

import (
	"encoding/csv"
	"fmt"
	"os"
	"path/filepath"
	"strconv"
	"strings"
)

// HeadOffice is the distinguished business_unit value for head-office rows.
const HeadOffice = "head_office"

// Key identifies how a customer's map is looked up.
type Key int

const (
	// BySupplierAndUnit matches on supplier and business_unit (OBI, BAHAG).
	BySupplierAndUnit Key = iota
	// ByUnit matches on business_unit only (HAGEBAU, METRO).
	ByUnit
	// BySupplier matches on the supplier (ILN) number only (MARKANT).
	BySupplier
)

// keying assigns each customer name its lookup shape.
var keying = map[string]Key{
	"BAHAG":   BySupplierAndUnit,
	"OBI":     BySupplierAndUnit,
	"HAGEBAU": ByUnit,
	"METRO":   ByUnit,
	"MARKANT": BySupplier,
}

type row struct {
	supplier     string
	businessUnit string
	account      int64
}

// Map is one customer's account table.
type Map struct {
	customer    string
	countryCode string
	key         Key
	rows        []row
}

// Customer returns the customer name without the country code.
func (m *Map) Customer() string { return m.customer }

// CountryCode returns the 2-character country code.
func (m *Map) CountryCode() string { return m.countryCode }

// Query selects an account. Zero-value fields are treated per the
// customer's keying; unused criteria are ignored.
type Query struct {
	Supplier     string
	BusinessUnit string // a number or the head_office literal
}

// Account returns the account number for the query, or ok=false when no row
// matches.
func (m *Map) Account(q Query) (int64, bool, error) {
	if q.Supplier != "" && !isNumeric(q.Supplier) {
		return 0, false, fmt.Errorf("accmap %s: incorrect supplier value %q", m.customer, q.Supplier)
	}
	if q.BusinessUnit != "" && q.BusinessUnit != HeadOffice && !isNumeric(q.BusinessUnit) {
		return 0, false, fmt.Errorf("accmap %s: incorrect business unit value %q", m.customer, q.BusinessUnit)
	}

	for _, r := range m.rows {
		switch m.key {
		case BySupplierAndUnit:
			if r.supplier == q.Supplier && r.businessUnit == q.BusinessUnit {
				return r.account, true, nil
			}
		case ByUnit:
			if r.businessUnit == q.BusinessUnit {
				return r.account, true, nil
			}
		case BySupplier:
			if r.supplier == q.Supplier {
				return r.account, true, nil
			}
		}
	}

	return 0, false, nil
}

// Loader loads the account maps of every configured customer.
type Loader struct {
	dir string
}

// NewLoader creates a loader over the maps directory.
func NewLoader(dir string) *Loader {
	return &Loader{dir: dir}
}

// Load reads every <CUSTOMER>_<CC>.csv file in the directory.
func (l *Loader) Load() (map[string]*Map, error) {
	entries, err := os.ReadDir(l.dir)
	if err != nil {
		return nil, fmt.Errorf("read maps dir: %w", err)
	}

	maps := make(map[string]*Map)
	for _, entry := range entries {
		if entry.IsDir() || filepath.Ext(entry.Name()) != ".csv" {
			continue
		}

		key := strings.TrimSuffix(entry.Name(), ".csv")
		m, err := Parse(filepath.Join(l.dir, entry.Name()), key)
		if err != nil {
			return nil, err
		}
		maps[strings.ToUpper(key)] = m
	}

	return maps, nil
}

// Parse reads one account sheet. cust has the form CUSTOMER_CC.
func Parse(path, cust string) (*Map, error) {
	name, country, ok := strings.Cut(strings.ToUpper(cust), "_")
	if !ok || len(country) != 2 {
		return nil, fmt.Errorf("accmap: invalid customer key %q, want NAME_CC", cust)
	}

	key, ok := keying[name]
	if !ok {
		return nil, fmt.Errorf("accmap: no keying defined for customer %q", name)
	}

	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open account map: %w", err)
	}
	defer f.Close()

	reader := csv.NewReader(f)
	reader.TrimLeadingSpace = true

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("accmap %s: %w", cust, err)
	}
	if len(records) == 0 {
		return nil, fmt.Errorf("accmap %s: empty sheet", cust)
	}

	header := records[0]
	cols := make(map[string]int, len(header))
	for i, h := range header {
		h = strings.TrimSpace(strings.ToLower(h))
		switch h {
		case "supplier", "business_unit", "account":
			cols[h] = i
		default:
			return nil, fmt.Errorf("accmap %s: data contains unrecognized column %q", cust, h)
		}
	}
	accountIdx, ok := cols["account"]
	if !ok {
		return nil, fmt.Errorf("accmap %s: column 'account' missing from the data", cust)
	}

	m := &Map{customer: name, countryCode: country, key: key}

	for n, rec := range records[1:] {
		account := strings.TrimSpace(rec[accountIdx])
		if !isNumeric(account) {
			return nil, fmt.Errorf("accmap %s: column 'account' contains non-numeric entry %q", cust, account)
		}
		accNum, _ := strconv.ParseInt(account, 10, 64)

		r := row{account: accNum}
		if i, ok := cols["supplier"]; ok {
			r.supplier = strings.TrimSpace(rec[i])
		}
		if i, ok := cols["business_unit"]; ok {
			r.businessUnit = strings.TrimSpace(rec[i])
			if r.businessUnit != "" && r.businessUnit != HeadOffice && !isNumeric(r.businessUnit) {
				return nil, fmt.Errorf(
					"accmap %s: row %d: column 'business_unit' contains non-numeric entry %q",
					cust, n+2, r.businessUnit)
			}
		}
		m.rows = append(m.rows, r)
	}

	return m, nil
}

func isNumeric(s string) bool {
	if s == "" {
		return false
	}
	for _, r := range s {
		if r < '0' || r > '9' {
			return false
		}
	}
	return true
}
