// Package categorize collapses an ambiguous template category list into a
// single business category for debit notes. Credit notes carry no category.
package categorize

import (
	"fmt"
	"math"
	"regexp"
	"strings"

	"github.com/castlemilk/claimflow/internal/extract"
)

// NotFoundError reports that no rule could decide the document category.
type NotFoundError struct {
	Reason string
}

func (e *NotFoundError) Error() string {
	return fmt.Sprintf("could not categorize the document: no catalog keyword matched %q", e.Reason)
}

// UnsupportedError reports that no categorization method exists for the
// document's template.
type UnsupportedError struct {
	TemplateID string
}

func (e *UnsupportedError) Error() string {
	return fmt.Sprintf("no categorization method exists for template %s", e.TemplateID)
}

// catalogEntry binds keyword patterns to a category. Entries are ordered:
// the first matching pattern wins.
type catalogEntry struct {
	category string
	keywords []string
}

var bahagCatalog = []catalogEntry{
	{"rebuild", []string{
		"altware", "umbau", "Aktualisierung", "Roll Out", "Sortimenswechsel",
	}},
	{"quality", []string{
		"reklama[tc]ion", "defekt", "leuchtet nicht", "funk[tc]ioniert",
		"blinkelt", "kaputt", "kein Funktion",
	}},
	{"return", []string{
		"Label", "ERP Altlabel", "Energielabel", "Anweisung SCD", "ERP Richtlinie",
		"Retoure zu Reparaturauftrag", "Keine Modulware", "Im Markt vernichtet",
		"falsche Aufmachung", "Made in Russia", "vor Ort vernichten", "Retoure",
		"Sortimentsbereinigung", "Falschbestellung", "Ware vernichtet",
		"zurück", "Falschlieferung",
	}},
}

var hagebauCatalog = []catalogEntry{
	{"return", []string{
		"Preisreduzierung / Abverkaufshilfe", "Rückgabe wiederverkaufsfähiger Ware",
		"Sortimentsbereinigung", "falsch bestellte Ware", "nicht bestellte Ware",
	}},
	{"price", []string{"Preisabweichung"}},
	{"delivery", []string{
		"Lieferung unvollständig", "Verderb / Bruch bei Lieferung",
		"Annahme verweigert", "Paletten", "Fracht", "Verpackung",
	}},
	{"invoice", []string{
		"Doppelberechnung ohne Doppellieferung", "Komplettlieferung fehlt",
		"Rabattabweichung", "Aufwand",
	}},
	{"penalty_general", []string{"Konventionalstrafe"}},
	{"bonus", []string{"WKZ"}},
}

var hitCatalog = []catalogEntry{
	{"delivery", []string{"Mengendifferenz", "nicht.*?geliefert"}},
	{"price", []string{"Abweichung.*Preise"}},
	{"quality", []string{"Beschädigte Waren"}},
}

var markantCatalog = []catalogEntry{
	{"delivery", []string{
		"nicht geliefert", "kein Wareneingang", "Fehlmenge",
		"Mengenreklamation", "zu wenig geliefert",
	}},
	{"price", []string{"Betragsreklamation", "Abweichung Preise"}},
	{"invoice", []string{
		"falschberechnung", "bereits belastet/vergütet",
		"(doppelt|mit Rechnung).*?(verrechnet|berechnet|abgerechnet)",
		"Abliefernachweis nicht erhalten",
	}},
	{"finance", []string{"Verkaufsbelege"}},
	{"penalty_general", []string{`OTIF-P\?nale`}},
	{"bonus", []string{"Verkaufsförderung"}},
}

var rollerCatalog = []catalogEntry{
	{"rebuild", []string{"umbau", "altware", "lt. zentrale", "laut zentrale"}},
}

// strategy decides the category of one document.
type strategy func(rec *extract.Record) (string, error)

// strategies maps template ids to their categorization method.
var strategies = map[string]strategy{
	// Bahag
	"101072AT002": penaltyBySubtotals,
	"101001CZ002": penaltyBySubtotals,
	"101001DE011": penaltyBySubtotals,
	"101001LU016": penaltyBySubtotals,
	"101001DE015": catalogStrategy(bahagCatalog, nil),
	"101072AT004": catalogStrategy(bahagCatalog, nil),

	// Hagebau
	"121001DE001": catalogStrategy(hagebauCatalog, nil),
	"121072AT001": catalogStrategy(hagebauCatalog, nil),
	"120074CH001": catalogStrategy(hagebauCatalog, nil),

	// HIT
	"131001DE001": catalogStrategy(hitCatalog, nil),

	// Hornbach
	"211072AT001": itemDiff,
	"211001DE001": itemDiff,

	// Markant
	"141001DE011": catalogStrategy(markantCatalog, itemDiff),
	"141072AT008": catalogStrategy(markantCatalog, itemDiff),
	"141001DE004": catalogStrategy(markantCatalog, nil),
	"141072AT007": catalogStrategy(markantCatalog, nil),
	"141001DE014": constant("return"),
	"141001DE008": qualityOrReturn,
	"141072AT004": qualityOrReturn,
	"141001DE007": rebuildOrReturn,
	"141001DE002": itemDiff,
	"141001DE003": itemDiff,

	// Obi
	"161001DE005": itemDiff,
	"161072AT005": penaltyByTax,
	"161001DE001": penaltyByTax,
	"161072SI003": penaltyByTax,

	// Roller
	"171001DE001": catalogStrategy(rollerCatalog, constant("return")),
}

// Resolve decides the single category of a debit note and verifies it is a
// member of the template's allowed categories.
func Resolve(rec *extract.Record) (string, error) {
	if rec.Kind != "debit" {
		return "", fmt.Errorf("categorization applies only to debit notes, got kind %q", rec.Kind)
	}

	st, ok := strategies[rec.TemplateID]
	if !ok {
		return "", &UnsupportedError{TemplateID: rec.TemplateID}
	}

	category, err := st(rec)
	if err != nil {
		return "", err
	}

	allowed := false
	for _, c := range rec.Categories {
		if c == category {
			allowed = true
			break
		}
	}
	if !allowed {
		return "", fmt.Errorf(
			"the identified category %q does not match any of the allowed categories %v",
			category, rec.Categories)
	}

	return category, nil
}

func reasonText(rec *extract.Record) string {
	v, ok := rec.Value("reason")
	if !ok {
		return ""
	}
	switch r := v.(type) {
	case string:
		return r
	case []string:
		return strings.Join(r, "|")
	}
	return fmt.Sprint(v)
}

// catalogStrategy walks the catalog in order and returns the category of the
// first keyword matching the reason text. When nothing matches it falls back
// to the given strategy, or fails.
func catalogStrategy(catalog []catalogEntry, fallback strategy) strategy {
	return func(rec *extract.Record) (string, error) {
		reason := reasonText(rec)

		for _, entry := range catalog {
			for _, kwd := range entry.keywords {
				re, err := regexp.Compile("(?i)" + kwd)
				if err != nil {
					continue
				}
				if re.MatchString(reason) {
					return entry.category, nil
				}
			}
		}

		if fallback != nil {
			return fallback(rec)
		}
		return "", &NotFoundError{Reason: reason}
	}
}

func constant(category string) strategy {
	return func(*extract.Record) (string, error) { return category, nil }
}

// qualityOrReturn classifies warranty returns: malfunction keywords make it
// a quality claim, everything else is a plain return.
func qualityOrReturn(rec *extract.Record) (string, error) {
	reason := strings.ToLower(reasonText(rec))
	for _, kwd := range []string{"funktion", "defekt"} {
		if strings.Contains(reason, kwd) {
			return "quality", nil
		}
	}
	return "return", nil
}

func rebuildOrReturn(rec *extract.Record) (string, error) {
	if strings.Contains(strings.ToLower(reasonText(rec)), "umbau") {
		return "rebuild", nil
	}
	return "return", nil
}

// penaltyBySubtotals compares the quote and delay subtotals of a penalty
// document.
func penaltyBySubtotals(rec *extract.Record) (string, error) {
	v, ok := rec.Value("subtotals")
	if !ok {
		return "", fmt.Errorf("subtotals are required to categorize the document")
	}
	subs, ok := v.([]float64)
	if !ok || len(subs) != 2 {
		return "", fmt.Errorf("expected exactly two subtotals, got %v", v)
	}

	quote, delay := subs[0], subs[1]
	switch {
	case quote == delay:
		return "penalty_general", nil
	case quote > delay:
		return "penalty_quote", nil
	default:
		return "penalty_delay", nil
	}
}

// penaltyByTax maps the document's tax rates onto the penalty kind:
// 2% marks a delay penalty, 25% a quote penalty, both a general one.
func penaltyByTax(rec *extract.Record) (string, error) {
	v, ok := rec.Value("tax")
	if !ok {
		return "", fmt.Errorf("tax rates are required to categorize the document")
	}

	var rates []float64
	switch t := v.(type) {
	case float64:
		rates = []float64{t}
	case []float64:
		rates = t
	default:
		return "", fmt.Errorf("unrecognized tax value %v", v)
	}

	var has2, has25 bool
	for _, r := range rates {
		switch r {
		case 2.0:
			has2 = true
		case 25.0:
			has25 = true
		default:
			return "", fmt.Errorf("unrecognized tax rate: %v", r)
		}
	}

	switch {
	case has2 && has25:
		return "penalty_general", nil
	case has25:
		return "penalty_quote", nil
	default:
		return "penalty_delay", nil
	}
}

// itemDiff sums quantity mismatches against unit-price mismatches across the
// line items; the larger total decides delivery vs price.
func itemDiff(rec *extract.Record) (string, error) {
	if len(rec.Items) == 0 {
		return "", fmt.Errorf("items are required to categorize the document")
	}

	var priceDiff, piecesDiff float64
	for _, item := range rec.Items {
		switch {
		case item.CustomerPieces < item.SupplierPieces:
			diff := (item.SupplierPieces - item.CustomerPieces) * item.SupplierPrice
			piecesDiff += math.Abs(roundTo(diff, 2))
		case item.CustomerPieces == item.SupplierPieces:
			diff := (item.SupplierPrice - item.CustomerPrice) * item.CustomerPieces
			priceDiff += math.Abs(roundTo(diff, 2))
		default:
			return "", fmt.Errorf(
				"item count received by the customer cannot exceed the supplied count on a delivery-loss document")
		}
	}

	if priceDiff > piecesDiff {
		return "price", nil
	}
	return "delivery", nil
}

func roundTo(x float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(x*scale) / scale
}
