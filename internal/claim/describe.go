package claim

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"
	"unicode"

	"github.com/castlemilk/claimflow/internal/extract"
)

// tokenPattern matches a placeholder of the form <field>, <?field> or
// <3field>. The question marks mark the token optional, the digits request
// zero padding to the given width.
var tokenPattern = regexp.MustCompile(`<(\?*)(\d*)([a-z_]+)>`)

type token struct {
	raw      string
	name     string
	optional int
	width    int
}

func parseTokens(rule string) ([]token, error) {
	matches := tokenPattern.FindAllStringSubmatch(rule, -1)

	tokens := make([]token, 0, len(matches))
	seen := make(map[string]bool)

	for _, m := range matches {
		t := token{raw: m[0], name: m[3], optional: len(m[1])}
		if m[2] != "" {
			t.width, _ = strconv.Atoi(m[2])
		}
		if seen[t.name] {
			return nil, fmt.Errorf("duplicated tokens are not allowed: %q", t.name)
		}
		seen[t.name] = true
		tokens = append(tokens, t)
	}

	return tokens, nil
}

// GenerateDescription renders a description template against the extracted
// data. Required tokens must be bound to non-null values; unbound optional
// tokens are removed along with the separator immediately before them. When
// several optional tokens remain, the one with the fewest question marks
// wins. The result contains no placeholder markers.
func GenerateDescription(rule string, lookup func(string) (any, bool)) (string, error) {
	tokens, err := parseTokens(rule)
	if err != nil {
		return "", err
	}
	if len(tokens) == 0 {
		return "", fmt.Errorf("the description rule %q contains no tokens", rule)
	}

	required := 0
	for _, t := range tokens {
		if t.optional == 0 {
			required++
		}
	}
	if required == 0 {
		return "", fmt.Errorf("at least one non-optional token must be used in the description rule")
	}

	values := make(map[string]any, len(tokens))
	for _, t := range tokens {
		v, ok := lookup(t.name)
		if !ok || v == nil {
			if t.optional == 0 {
				return "", fmt.Errorf("the field %q is unbound but is expected to be used in the description", t.name)
			}
			continue
		}
		values[t.name] = v
	}

	desc := rule

	// drop unbound optional tokens together with the preceding separator
	for _, t := range tokens {
		if t.optional == 0 {
			continue
		}
		if _, ok := values[t.name]; ok {
			continue
		}
		re := regexp.MustCompile(".?" + regexp.QuoteMeta(t.raw))
		desc = re.ReplaceAllString(desc, "")
	}

	// a removed leading token can leave its separator hanging on the left
	if len(desc) >= 2 && desc[0] != '<' && desc[1] == '<' {
		desc = desc[1:]
	}

	// when several bound optional tokens remain, keep the one with the
	// fewest question marks and drop the rest
	remaining := make([]token, 0, len(tokens))
	for _, t := range tokens {
		if t.optional > 0 && strings.Contains(desc, t.raw) {
			remaining = append(remaining, t)
		}
	}
	if len(remaining) > 1 {
		keep := remaining[0]
		for _, t := range remaining[1:] {
			if t.optional < keep.optional {
				keep = t
			}
		}
		for _, t := range remaining {
			if t.name == keep.name {
				continue
			}
			re := regexp.MustCompile(".?" + regexp.QuoteMeta(t.raw))
			desc = re.ReplaceAllString(desc, "")
		}
	}

	// substitute the surviving tokens
	for _, t := range tokens {
		v, ok := values[t.name]
		if !ok {
			continue
		}
		desc = strings.ReplaceAll(desc, t.raw, renderToken(v, t.width))
	}

	desc = strings.TrimFunc(desc, isSeparator)

	if strings.ContainsAny(desc, "<>?") {
		return "", fmt.Errorf("description parsing failed, placeholders left in %q", desc)
	}
	if desc == "" {
		return "", fmt.Errorf("description parsing produced an empty result from rule %q", rule)
	}

	return desc, nil
}

// searchTitle renders the DMS case search pattern. Wildcards entered as '*'
// in the rules are converted to the '%' form the ERP accepts.
func searchTitle(rule string, rec *extract.Record) (string, error) {
	result := strings.ReplaceAll(rule, "*", "%")

	placeholders := []string{
		"backreference_number",
		"document_number",
		"invoice_number",
		"archive_number",
		"identifier",
	}

	substituted := false
	for _, name := range placeholders {
		marker := "<" + name + ">"
		if !strings.Contains(result, marker) {
			continue
		}
		v, ok := rec.Value(name)
		if !ok || v == nil {
			return "", fmt.Errorf("the field %q used in the case search title is missing from the data", name)
		}
		result = strings.ReplaceAll(result, marker, renderToken(v, 0))
		substituted = true
	}

	if !substituted {
		return "", fmt.Errorf("the case search title rule %q contains no usable placeholder", rule)
	}
	if strings.ContainsAny(result, "<>?") {
		return "", fmt.Errorf("title formatting failed, placeholders left in %q", result)
	}
	if result == "" || result == "%%" {
		return "", fmt.Errorf("title formatting produced no searchable text from rule %q", rule)
	}

	return result, nil
}

// AttachmentName resolves the case id placeholder in an attachment naming
// rule.
func AttachmentName(rule string, caseID int64) (string, error) {
	if !strings.Contains(rule, "<case_id>") {
		return "", fmt.Errorf("placeholder '<case_id>' not found in the formatting rule %q", rule)
	}
	return strings.ReplaceAll(rule, "<case_id>", strconv.FormatInt(caseID, 10)), nil
}

func renderToken(v any, width int) string {
	var s string
	switch t := v.(type) {
	case string:
		s = t
	case int64:
		s = strconv.FormatInt(t, 10)
	case int:
		s = strconv.Itoa(t)
	case float64:
		s = strconv.FormatFloat(t, 'f', -1, 64)
	case []string:
		s = strings.Join(t, ", ")
	case []int64:
		parts := make([]string, len(t))
		for i, n := range t {
			parts[i] = strconv.FormatInt(n, 10)
		}
		s = strings.Join(parts, ", ")
	default:
		s = fmt.Sprint(v)
	}

	for len(s) < width {
		s = "0" + s
	}

	return s
}

func isSeparator(r rune) bool {
	return !unicode.IsLetter(r) && !unicode.IsDigit(r) && r != '_'
}
