package extract

import (
	"fmt"
	"regexp"
	"strings"
)

// Reconciler parses the raw item rows captured by a template and verifies
// that the line arithmetic adds up to the document total. Reconcilers are
// interchangeable strategies keyed by template id; a failed reconciliation
// drops the items without failing the extraction.
type Reconciler interface {
	Reconcile(rows []string, total float64) ([]Item, error)
}

// ReconcilerRegistry maps template ids to their item arithmetic.
type ReconcilerRegistry struct {
	byTemplate map[string]Reconciler
	fallback   Reconciler
}

// NewReconcilerRegistry creates a registry whose fallback sums the last
// column of each row against the document total with 1% relative tolerance.
func NewReconcilerRegistry() *ReconcilerRegistry {
	return &ReconcilerRegistry{
		byTemplate: make(map[string]Reconciler),
		fallback:   SumReconciler{RelTol: 0.01},
	}
}

// Register binds a reconciler to a template id, replacing any previous one.
func (r *ReconcilerRegistry) Register(templateID string, rec Reconciler) {
	r.byTemplate[strings.ToUpper(templateID)] = rec
}

// For returns the reconciler for a template id.
func (r *ReconcilerRegistry) For(templateID string) Reconciler {
	if rec, ok := r.byTemplate[strings.ToUpper(templateID)]; ok {
		return rec
	}
	return r.fallback
}

var columnSplit = regexp.MustCompile(`[;\t]|\s+`)

// parseColumns splits an item row into its numeric columns.
func parseColumns(row string, want int) ([]float64, error) {
	fields := columnSplit.Split(strings.TrimSpace(row), -1)

	var cols []float64
	for _, f := range fields {
		f = strings.TrimSpace(f)
		if f == "" {
			continue
		}
		n, err := ParseNumber(f)
		if err != nil {
			return nil, err
		}
		cols = append(cols, n)
	}

	if want > 0 && len(cols) != want {
		return nil, fmt.Errorf("expected %d numeric columns, got %d in row %q", want, len(cols), row)
	}
	return cols, nil
}

// SumReconciler treats the last column of each row as the line amount and
// requires the sum to match the document total.
type SumReconciler struct {
	// RelTol is the relative tolerance; zero means strict 2-decimal equality.
	RelTol float64
}

func (s SumReconciler) Reconcile(rows []string, total float64) ([]Item, error) {
	var items []Item
	var sum float64

	for _, row := range rows {
		cols, err := parseColumns(row, 0)
		if err != nil {
			return nil, err
		}
		if len(cols) == 0 {
			return nil, fmt.Errorf("no numeric columns in row %q", row)
		}
		amount := cols[len(cols)-1]
		items = append(items, Item{Amount: amount})
		sum += amount
	}

	if err := checkTotal(sum, total, s.RelTol); err != nil {
		return nil, err
	}
	return items, nil
}

// DeliveryLossReconciler handles rows of the shape
// (ordered pieces, delivered pieces, unit price, line amount): each line
// amount must equal the piece delta times the unit price.
type DeliveryLossReconciler struct{}

func (DeliveryLossReconciler) Reconcile(rows []string, total float64) ([]Item, error) {
	var items []Item
	var sum float64

	for _, row := range rows {
		cols, err := parseColumns(row, 4)
		if err != nil {
			return nil, err
		}
		ordered, delivered, unitPrice, amount := cols[0], cols[1], cols[2], cols[3]

		delta := ordered - delivered
		expected := roundTo(delta*unitPrice, 2)
		if roundTo(amount, 2) != expected {
			return nil, fmt.Errorf(
				"line amount %.2f does not equal piece delta %.0f x unit price %.2f",
				amount, delta, unitPrice)
		}

		items = append(items, Item{
			SupplierPieces: ordered,
			CustomerPieces: delivered,
			SupplierPrice:  unitPrice,
			CustomerPrice:  unitPrice,
			Pieces:         delta,
			UnitPrice:      unitPrice,
			Amount:         amount,
		})
		sum += amount
	}

	if err := checkTotal(sum, total, 0); err != nil {
		return nil, err
	}
	return items, nil
}

// PenaltyReconciler handles rows of the shape (base amount, penalty amount):
// every penalty must be a known rate of its base.
type PenaltyReconciler struct {
	// Rates allowed on the document, as fractions.
	Rates []float64
}

func (p PenaltyReconciler) Reconcile(rows []string, total float64) ([]Item, error) {
	rates := p.Rates
	if len(rates) == 0 {
		rates = []float64{0.02, 0.25}
	}

	var items []Item
	var sum float64

	for _, row := range rows {
		cols, err := parseColumns(row, 2)
		if err != nil {
			return nil, err
		}
		base, amount := cols[0], cols[1]
		if base == 0 {
			return nil, fmt.Errorf("penalty base is zero in row %q", row)
		}

		rate := amount / base
		matched := 0.0
		for _, r := range rates {
			if closeRel(rate, r, 0.01) {
				matched = r
				break
			}
		}
		if matched == 0 {
			return nil, fmt.Errorf("penalty rate %.2f%% is not an expected rate", rate*100)
		}

		items = append(items, Item{Base: base, Rate: matched, Amount: amount})
		sum += amount
	}

	if err := checkTotal(sum, total, 0.01); err != nil {
		return nil, err
	}
	return items, nil
}

// ReturnDiscountReconciler handles rows of the shape
// (unit price, pieces, discount percent, line total):
// total = unit price x pieces x (1 - discount/100), sign-tolerant.
type ReturnDiscountReconciler struct{}

func (ReturnDiscountReconciler) Reconcile(rows []string, total float64) ([]Item, error) {
	var items []Item
	var sum float64

	for _, row := range rows {
		cols, err := parseColumns(row, 4)
		if err != nil {
			return nil, err
		}
		unitPrice, pieces, discount, amount := cols[0], cols[1], cols[2], cols[3]

		gross := unitPrice * pieces
		minus := gross * (1 - discount/100)
		plus := gross * (1 + discount/100)
		if !closeRel(amount, minus, 0.01) && !closeRel(amount, plus, 0.01) {
			return nil, fmt.Errorf(
				"line total %.2f does not follow unit price %.2f x pieces %.0f with %.0f%% discount",
				amount, unitPrice, pieces, discount)
		}

		items = append(items, Item{UnitPrice: unitPrice, Pieces: pieces, Discount: discount, Amount: amount})
		sum += amount
	}

	if err := checkTotal(sum, total, 0.01); err != nil {
		return nil, err
	}
	return items, nil
}

// checkTotal compares the item sum with the document total. relTol zero
// means strict 2-decimal equality.
func checkTotal(sum, total, relTol float64) error {
	if relTol == 0 {
		if roundTo(sum, 2) != roundTo(total, 2) {
			return fmt.Errorf("item sum %.2f does not equal document total %.2f", sum, total)
		}
		return nil
	}
	if !closeRel(sum, total, relTol) {
		return fmt.Errorf("item sum %.2f is outside %.0f%% tolerance of document total %.2f",
			sum, relTol*100, total)
	}
	return nil
}
