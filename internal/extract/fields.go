package extract

import (
	"regexp"
	"strings"
)

// uniqueFields collapse repeated matches: scalars must resolve to exactly one
// distinct value, list-shaped fields (tax, subtotals) keep distinct values in
// first-seen order. Only items preserves duplicates.
var uniqueFields = map[string]bool{
	"amount":           true,
	"document_number":  true,
	"archive_number":   true,
	"return_number":    true,
	"agreement_number": true,
	"supplier":         true,
	"subtotals":        true,
	"identifier":       true,
	"branch":           true,
	"zip":              true,
}

var innerWhitespace = regexp.MustCompile(`\s+`)

func dedupe(vals []string) []string {
	seen := make(map[string]bool, len(vals))
	var out []string
	for _, v := range vals {
		if seen[v] {
			continue
		}
		seen[v] = true
		out = append(out, v)
	}
	return out
}

// typeField coerces the raw regex captures of one field into its typed value.
func typeField(name string, raws []string) (any, error) {
	if uniqueFields[name] {
		raws = dedupe(raws)
	}

	switch name {
	case "amount":
		if len(raws) != 1 {
			return nil, patternMatch(name, "expected a single amount, got %d distinct values", len(raws))
		}
		amount, err := ParseNumber(raws[0])
		if err != nil {
			return nil, patternMatch(name, "%v", err)
		}
		if amount <= 0 {
			return nil, patternMatch(name, "amount must be positive, got %v", amount)
		}
		return amount, nil

	case "zip", "archive_number", "branch":
		single, err := singleValue(name, raws)
		if err != nil {
			return nil, err
		}
		n, perr := ParseInt(single)
		if perr != nil || n < 0 {
			return nil, patternMatch(name, "expected a non-negative integer, got %q", single)
		}
		return n, nil

	case "supplier", "document_number", "identifier", "backreference_number":
		single, err := singleValue(name, raws)
		if err != nil {
			return nil, err
		}
		if isDigits(single) {
			n, perr := ParseInt(single)
			if perr == nil {
				return n, nil
			}
		}
		return single, nil

	case "tax":
		rates, err := parseDecimals(name, raws)
		if err != nil {
			return nil, err
		}
		if len(rates) == 1 {
			return rates[0], nil
		}
		return rates, nil

	case "subtotals":
		return parseDecimals(name, raws)

	case "delivery_number":
		return numberShape(name, raws, func(s string) bool {
			return len(s) == 9 && strings.HasPrefix(s, "31")
		}, "delivery numbers start with 31 and have 9 digits")

	case "invoice_number":
		return numberShape(name, raws, func(s string) bool {
			return len(s) == 9 && s[0] != '0'
		}, "invoice numbers have 9 digits and no leading zero")

	case "purchase_order_number":
		return numberShape(name, raws, func(s string) bool {
			return len(s) >= 5 && len(s) <= 7 && s[0] != '0'
		}, "purchase order numbers have 5 to 7 digits and no leading zero")

	case "return_number":
		return numberShape(name, raws, func(s string) bool {
			return len(s) >= 6 && len(s) <= 7
		}, "return numbers have 6 or 7 digits")

	case "agreement_number":
		return numberShape(name, raws, func(s string) bool {
			return len(s) == 10
		}, "agreement numbers have 10 digits")

	case "email":
		single, err := singleValue(name, dedupe(raws))
		if err != nil {
			return nil, err
		}
		return innerWhitespace.ReplaceAllString(single, ""), nil

	case "reason":
		trimmed := make([]string, 0, len(raws))
		for _, r := range raws {
			trimmed = append(trimmed, strings.TrimSpace(r))
		}
		if len(trimmed) == 1 {
			return trimmed[0], nil
		}
		return trimmed, nil

	default:
		if len(raws) == 1 {
			return strings.TrimSpace(raws[0]), nil
		}
		out := make([]string, 0, len(raws))
		for _, r := range raws {
			out = append(out, strings.TrimSpace(r))
		}
		return out, nil
	}
}

func singleValue(name string, raws []string) (string, error) {
	if len(raws) != 1 {
		return "", patternMatch(name, "expected a single value, got %d distinct values", len(raws))
	}
	return strings.TrimSpace(raws[0]), nil
}

func parseDecimals(name string, raws []string) ([]float64, error) {
	out := make([]float64, 0, len(raws))
	for _, r := range raws {
		n, err := ParseNumber(r)
		if err != nil {
			return nil, patternMatch(name, "%v", err)
		}
		out = append(out, n)
	}
	return out, nil
}

// numberShape validates strictly numeric identifiers, keeping the scalar or
// list shape of the raw captures.
func numberShape(name string, raws []string, valid func(string) bool, rule string) (any, error) {
	checked := make([]string, 0, len(raws))
	for _, raw := range raws {
		s := strings.TrimSpace(raw)
		if !isDigits(s) || !valid(s) {
			return nil, patternMatch(name, "value %q rejected: %s", s, rule)
		}
		checked = append(checked, s)
	}
	if len(checked) == 1 {
		return checked[0], nil
	}
	return checked, nil
}
