package claim

import (
	"fmt"
	"strings"

	"go.uber.org/zap"
	"golang.org/x/text/language"
	"golang.org/x/text/message"
)

var german = message.NewPrinter(language.German)

// taxCodes maps each company code to its 2-char tax codes and the tax rates
// they represent.
var taxCodes = map[string]map[string]float64{
	"1001": {"AB": 19, "AA": 16},
	"0074": {"IG": 7.7},
	"1072": {"YR": 20},
}

// FormatAmount renders an amount in the German locale with a grouped
// thousand separator and no currency symbol.
func FormatAmount(amount float64) string {
	return german.Sprintf("%.2f", amount)
}

// FormatStatusSales renders the status_sales rule against the current DMS
// text. A rule carrying the "+=" operator appends the generated text to the
// previous value; the append is skipped when the text is already present so
// that reprocessing a document does not grow the status without bound.
func FormatStatusSales(previous, rule string, amount float64) (string, error) {
	if !strings.Contains(rule, "<amount>") {
		return "", fmt.Errorf("placeholder '<amount>' not found in the formatting rule %q", rule)
	}

	rendered := strings.ReplaceAll(rule, "<amount>", FormatAmount(amount))

	if !strings.Contains(rendered, "+=") {
		return strings.TrimSpace(rendered), nil
	}

	suffix := strings.TrimSpace(strings.Replace(rendered, "+=", "", 1))
	if suffix == "" {
		return previous, nil
	}
	if strings.HasSuffix(previous, suffix) {
		return previous, nil
	}

	return strings.TrimSpace(previous + " " + suffix), nil
}

// PrepareStatusAC resolves the tax_code placeholder in a status_ac rule
// using the per-company tax table. A missing tax rate erases any existing
// text, signalled by a pointer to an empty string. The "+=" operator is kept
// in the result and applied later via ApplyStatusAC, once the case is known.
func PrepareStatusAC(rule, companyCode string, rates []float64, log *zap.Logger) (*string, error) {
	if rule == "" {
		return nil, nil
	}

	if len(rates) == 0 {
		if log != nil {
			log.Warn("tax rate not found in the extracted data, " +
				"any existing Status AC text will be erased")
		}
		erase := ""
		return &erase, nil
	}
	if len(rates) > 1 {
		return nil, fmt.Errorf("cannot resolve a tax code from multiple tax rates: %v", rates)
	}

	rate := rates[0]
	code := ""
	for c, r := range taxCodes[companyCode] {
		if r == rate {
			code = c
			break
		}
	}
	if code == "" {
		return nil, fmt.Errorf(
			"could not identify a tax code for tax rate %v and company code %s",
			rate, companyCode)
	}

	result := strings.TrimSpace(strings.ReplaceAll(rule, "tax_code", code))
	if result == "" {
		return nil, nil
	}

	return &result, nil
}

// ApplyStatusAC merges a prepared status_ac value with the current DMS text
// and reports whether the text changed. A nil prepared value leaves the text
// untouched, an empty one erases it. Appends are idempotent.
func ApplyStatusAC(previous string, prepared *string) (string, bool) {
	if prepared == nil {
		return previous, false
	}

	value := *prepared
	if value == "" {
		return "", previous != ""
	}

	if !strings.Contains(value, "+=") {
		return value, value != previous
	}

	suffix := strings.TrimSpace(strings.Replace(value, "+=", "", 1))
	if suffix == "" || strings.HasSuffix(previous, suffix) {
		return previous, false
	}

	return strings.TrimSpace(previous + " " + suffix), true
}
