package extract

import (
	"math"
	"regexp"
	"strconv"
	"strings"
)

// Numeric parsing for amounts as they appear on customer documents: thousand
// separators may be '.', ',' or ' ', the fractional part has any width, and
// a trailing '-' marks negative values. The fractional width is taken from
// the segment after the last non-digit separator.

var (
	nonDigit    = regexp.MustCompile(`\D`)
	numberToken = regexp.MustCompile(`[1-9][\d.,]+`)
)

// ParseNumber parses a numeric document string into a float.
func ParseNumber(val string) (float64, error) {
	repl := strings.ReplaceAll(val, " ", "")
	repl = strings.Trim(repl, "-")

	decimals := 0
	if nonDigit.MatchString(repl) {
		parts := nonDigit.Split(repl, -1)
		decimals = len(parts[len(parts)-1])
	}

	repl = strings.ReplaceAll(repl, ".", "")
	repl = strings.ReplaceAll(repl, ",", "")

	if repl == "" || nonDigit.MatchString(repl) {
		return 0, &Error{Code: ErrParsing, Message: "only numeric values are accepted: " + val}
	}

	parsed, err := strconv.ParseFloat(repl, 64)
	if err != nil {
		return 0, &Error{Code: ErrParsing, Message: "only numeric values are accepted: " + val, Cause: err}
	}

	if decimals != 0 {
		parsed /= math.Pow10(decimals)
	}
	if strings.Contains(val, "-") {
		parsed = -parsed
	}

	return parsed, nil
}

// ParseInt parses a numeric document string and truncates it to an integer.
func ParseInt(val string) (int64, error) {
	f, err := ParseNumber(val)
	if err != nil {
		return 0, err
	}
	return int64(f), nil
}

// FindNumbers returns every numeric value found in text, skipping tokens
// that fail to parse.
func FindNumbers(text string) []float64 {
	var nums []float64
	for _, tok := range numberToken.FindAllString(text, -1) {
		n, err := ParseNumber(tok)
		if err != nil {
			continue
		}
		nums = append(nums, n)
	}
	return nums
}

// isDigits reports whether s is non-empty and all ASCII digits.
func isDigits(s string) bool {
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

// roundTo rounds x to the given number of decimal places.
func roundTo(x float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(x*scale) / scale
}

// closeRel reports |a-b| <= tol*|b| with a floor at one cent.
func closeRel(a, b, tol float64) bool {
	limit := math.Max(tol*math.Abs(b), 0.01)
	return math.Abs(a-b) <= limit
}
