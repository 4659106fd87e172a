package extract

import (
	"encoding/json"
	"fmt"
)

// Item is one reconciled line item of a document. Which columns are filled
// depends on the reconciler that produced it.
type Item struct {
	CustomerPieces float64 `json:"customer_pieces,omitempty"`
	SupplierPieces float64 `json:"supplier_pieces,omitempty"`
	CustomerPrice  float64 `json:"customer_price,omitempty"`
	SupplierPrice  float64 `json:"supplier_price,omitempty"`
	Pieces         float64 `json:"pieces,omitempty"` // piece delta on delivery-loss rows
	UnitPrice      float64 `json:"unit_price,omitempty"`
	Base           float64 `json:"base,omitempty"`
	Rate           float64 `json:"rate,omitempty"`
	Discount       float64 `json:"discount,omitempty"`
	Amount         float64 `json:"amount"`
}

// Record is the typed result of extracting one document.
type Record struct {
	Issuer     string         `json:"issuer"`
	Kind       string         `json:"kind"` // debit or credit
	Name       string         `json:"name"`
	TemplateID string         `json:"template_id"`
	Categories []string       `json:"categories,omitempty"` // template-allowed set
	Category   string         `json:"category,omitempty"`   // resolved by the categorizer
	Amount     float64        `json:"amount"`
	Values     map[string]any `json:"values,omitempty"`
	Items      []Item         `json:"items,omitempty"`
}

// Value returns a typed field by name. Amount and the header fields are
// addressable alongside the free-form values so callers can bind
// description-template tokens uniformly.
func (r *Record) Value(name string) (any, bool) {
	switch name {
	case "amount":
		return r.Amount, true
	case "issuer":
		return r.Issuer, true
	case "kind":
		return r.Kind, true
	case "name":
		return r.Name, true
	case "category":
		if r.Category == "" {
			return nil, false
		}
		return r.Category, true
	}

	v, ok := r.Values[name]
	if !ok || v == nil {
		return nil, false
	}
	return v, true
}

// StringValue renders a field for templating. Lists render their first
// element; floats with integral values render without a fraction.
func (r *Record) StringValue(name string) (string, bool) {
	v, ok := r.Value(name)
	if !ok {
		return "", false
	}
	return renderValue(v), true
}

func renderValue(v any) string {
	switch x := v.(type) {
	case string:
		return x
	case []string:
		if len(x) == 0 {
			return ""
		}
		return x[0]
	case []float64:
		if len(x) == 0 {
			return ""
		}
		return renderValue(x[0])
	case float64:
		if x == float64(int64(x)) {
			return fmt.Sprintf("%d", int64(x))
		}
		return fmt.Sprintf("%g", x)
	case int64:
		return fmt.Sprintf("%d", x)
	case int:
		return fmt.Sprintf("%d", x)
	default:
		return fmt.Sprint(v)
	}
}

// Marshal encodes the record for the document store.
func (r *Record) Marshal() ([]byte, error) {
	return json.Marshal(r)
}

// Unmarshal decodes a record previously stored on a document row.
func Unmarshal(data []byte) (*Record, error) {
	var rec Record
	if err := json.Unmarshal(data, &rec); err != nil {
		return nil, fmt.Errorf("decode extracted record: %w", err)
	}
	return &rec, nil
}
