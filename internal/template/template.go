// Package template loads the per-issuer YAML extraction templates and
// implements document-to-template matching with input normalization.
package template

import (
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"gopkg.in/yaml.v3"
)

// Categories a debit template may declare. Credit templates carry none.
var AllowedCategories = map[string]bool{
	"bonus":           true,
	"delivery":        true,
	"finance":         true,
	"invoice":         true,
	"penalty_general": true,
	"penalty_delay":   true,
	"penalty_quote":   true,
	"price":           true,
	"promo":           true,
	"quality":         true,
	"rebuild":         true,
	"return":          true,
}

// LoadError reports a structurally invalid template file.
type LoadError struct {
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("template %s: %s", e.Path, e.Message)
}

// AmbiguityError reports that more than one template matched a document.
type AmbiguityError struct {
	Issuer      string
	TemplateIDs []string
}

func (e *AmbiguityError) Error() string {
	return fmt.Sprintf("issuer %s: document matches multiple templates: %s",
		e.Issuer, strings.Join(e.TemplateIDs, ", "))
}

// Field is one declared extraction field with its patterns in match order.
type Field struct {
	Name     string
	Patterns []*regexp.Regexp
}

// Options controls text normalization before keyword matching and extraction.
type Options struct {
	RemoveWhitespace bool
	Lowercase        bool
	Replace          []ReplacePair
	DateFormats      []string
}

// ReplacePair rewrites occurrences of From to To during normalization.
type ReplacePair struct {
	From *regexp.Regexp
	To   string
}

// Template is an immutable extraction template for one document layout.
type Template struct {
	Issuer     string
	Kind       string // debit or credit
	Name       string
	TemplateID string
	Categories []string
	Inclusive  []*regexp.Regexp
	Exclusive  []*regexp.Regexp
	Options    Options
	Fields     []Field // declaration order preserved
	Optional   map[string]bool
}

// Field returns the declared field with the given name, if any.
func (t *Template) Field(name string) (Field, bool) {
	for _, f := range t.Fields {
		if f.Name == name {
			return f, true
		}
	}
	return Field{}, false
}

// Required reports whether a declared field must resolve to a value.
func (t *Template) Required(name string) bool {
	return !t.Optional[name]
}

var collapseWhitespace = regexp.MustCompile(`\s+`)

// Normalize applies the template's replace pairs, lowercasing and whitespace
// collapse, in that order.
func (t *Template) Normalize(text string) string {
	for _, pair := range t.Options.Replace {
		text = pair.From.ReplaceAllString(text, pair.To)
	}
	if t.Options.Lowercase {
		text = strings.ToLower(text)
	}
	if t.Options.RemoveWhitespace {
		text = collapseWhitespace.ReplaceAllString(text, " ")
	}
	return text
}

// MatchesKeywords reports whether the normalized text satisfies every
// inclusive pattern and none of the exclusive ones.
func (t *Template) MatchesKeywords(text string) bool {
	for _, re := range t.Inclusive {
		if !re.MatchString(text) {
			return false
		}
	}
	for _, re := range t.Exclusive {
		if re.MatchString(text) {
			return false
		}
	}
	return true
}

// raw mirrors the YAML template schema.
type raw struct {
	Issuer     string    `yaml:"issuer"`
	Kind       string    `yaml:"kind"`
	Name       string    `yaml:"name"`
	TemplateID string    `yaml:"template_id"`
	Category   yaml.Node `yaml:"category"`
	Inclusive  []string  `yaml:"inclusive_keywords"`
	Exclusive  []string  `yaml:"exclusive_keywords"`
	Options    struct {
		RemoveWhitespace bool        `yaml:"remove_whitespace"`
		Lowercase        bool        `yaml:"lowercase"`
		Replace          [][2]string `yaml:"replace"`
		DateFormats      []string    `yaml:"date_formats"`
	} `yaml:"options"`
	Fields   yaml.Node `yaml:"fields"`
	Optional []string  `yaml:"optional_fields"`
}

// Parse loads and validates a single template file.
func Parse(path string) (*Template, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read template: %w", err)
	}

	var r raw
	if err := yaml.Unmarshal(data, &r); err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}

	fail := func(format string, args ...any) (*Template, error) {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf(format, args...)}
	}

	if r.Issuer == "" || r.Kind == "" || r.Name == "" || r.TemplateID == "" {
		return fail("missing one of the header fields issuer, kind, name, template_id")
	}
	if len(r.TemplateID) != 11 {
		return fail("template_id %q must be 11 characters", r.TemplateID)
	}
	if len(r.Inclusive) == 0 {
		return fail("inclusive_keywords missing")
	}

	tpl := &Template{
		Issuer:     strings.ToUpper(r.Issuer),
		Kind:       strings.ToLower(r.Kind),
		Name:       r.Name,
		TemplateID: strings.ToUpper(r.TemplateID),
		Optional:   make(map[string]bool),
	}

	switch tpl.Kind {
	case "debit", "credit":
	default:
		return fail("unrecognized kind %q", r.Kind)
	}

	categories, err := decodeCategories(&r.Category)
	if err != nil {
		return fail("%v", err)
	}
	if tpl.Kind == "debit" && len(categories) == 0 {
		return fail("debit template declares no category")
	}
	if tpl.Kind == "credit" && len(categories) != 0 {
		return fail("credit template must not declare a category")
	}
	for _, cat := range categories {
		if !AllowedCategories[cat] {
			return fail("unrecognized category %q", cat)
		}
	}
	tpl.Categories = categories

	if tpl.Inclusive, err = compileAll(r.Inclusive); err != nil {
		return fail("inclusive_keywords: %v", err)
	}
	if tpl.Exclusive, err = compileAll(r.Exclusive); err != nil {
		return fail("exclusive_keywords: %v", err)
	}

	tpl.Options.RemoveWhitespace = r.Options.RemoveWhitespace
	tpl.Options.Lowercase = r.Options.Lowercase
	tpl.Options.DateFormats = r.Options.DateFormats
	for _, pair := range r.Options.Replace {
		re, err := regexp.Compile(pair[0])
		if err != nil {
			return fail("replace pattern %q: %v", pair[0], err)
		}
		tpl.Options.Replace = append(tpl.Options.Replace, ReplacePair{From: re, To: pair[1]})
	}

	if tpl.Fields, err = decodeFields(&r.Fields); err != nil {
		return fail("%v", err)
	}
	for _, f := range tpl.Fields {
		if f.Name == "optional_fields" {
			return fail("optional_fields listed inside fields")
		}
	}

	for _, name := range r.Optional {
		if _, ok := tpl.Field(name); !ok {
			return fail("optional field %q is not declared in fields", name)
		}
		tpl.Optional[name] = true
	}

	return tpl, nil
}

func decodeCategories(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0: // absent
		return nil, nil
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, fmt.Errorf("category: %w", err)
		}
		return []string{strings.ToLower(s)}, nil
	case yaml.SequenceNode:
		var list []string
		if err := node.Decode(&list); err != nil {
			return nil, fmt.Errorf("category: %w", err)
		}
		for i := range list {
			list[i] = strings.ToLower(list[i])
		}
		return list, nil
	}
	return nil, fmt.Errorf("category must be a string or a list of strings")
}

// decodeFields preserves the declaration order of the fields mapping.
func decodeFields(node *yaml.Node) ([]Field, error) {
	if node.Kind == 0 {
		return nil, fmt.Errorf("fields missing")
	}
	if node.Kind != yaml.MappingNode {
		return nil, fmt.Errorf("fields must be a mapping")
	}

	var fields []Field
	for i := 0; i+1 < len(node.Content); i += 2 {
		name := node.Content[i].Value
		valNode := node.Content[i+1]

		var patterns []string
		switch valNode.Kind {
		case yaml.ScalarNode:
			patterns = []string{valNode.Value}
		case yaml.SequenceNode:
			if err := valNode.Decode(&patterns); err != nil {
				return nil, fmt.Errorf("field %q: %w", name, err)
			}
		default:
			return nil, fmt.Errorf("field %q: pattern must be a regex or a list of regexes", name)
		}

		compiled, err := compileAll(patterns)
		if err != nil {
			return nil, fmt.Errorf("field %q: %w", name, err)
		}
		fields = append(fields, Field{Name: name, Patterns: compiled})
	}

	return fields, nil
}

func compileAll(patterns []string) ([]*regexp.Regexp, error) {
	res := make([]*regexp.Regexp, 0, len(patterns))
	for _, p := range patterns {
		re, err := regexp.Compile(p)
		if err != nil {
			return nil, fmt.Errorf("pattern %q: %w", p, err)
		}
		res = append(res, re)
	}
	return res, nil
}

// Registry holds all loaded templates grouped by issuer.
type Registry struct {
	byIssuer map[string][]*Template
	byID     map[string]*Template
}

// LoadRegistry walks dir, treating each subdirectory as one issuer and each
// contained .yml/.yaml file as a template. Duplicate template ids fail the
// whole load.
func LoadRegistry(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read template dir: %w", err)
	}

	reg := &Registry{
		byIssuer: make(map[string][]*Template),
		byID:     make(map[string]*Template),
	}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		issuer := strings.ToUpper(entry.Name())

		files, err := os.ReadDir(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read issuer dir %s: %w", issuer, err)
		}

		for _, file := range files {
			ext := filepath.Ext(file.Name())
			if ext != ".yml" && ext != ".yaml" {
				continue
			}

			path := filepath.Join(dir, entry.Name(), file.Name())
			tpl, err := Parse(path)
			if err != nil {
				return nil, err
			}

			if _, dup := reg.byID[tpl.TemplateID]; dup {
				return nil, &LoadError{Path: path,
					Message: fmt.Sprintf("template id %s already used", tpl.TemplateID)}
			}

			reg.byID[tpl.TemplateID] = tpl
			reg.byIssuer[issuer] = append(reg.byIssuer[issuer], tpl)
		}
	}

	return reg, nil
}

// Get returns a template by id.
func (r *Registry) Get(templateID string) (*Template, bool) {
	tpl, ok := r.byID[strings.ToUpper(templateID)]
	return tpl, ok
}

// Issuer returns all templates of an issuer.
func (r *Registry) Issuer(issuer string) []*Template {
	return r.byIssuer[strings.ToUpper(issuer)]
}

// Match selects the single template of the issuer whose keywords match the
// document text. It returns the template with the text normalized by it,
// nil when nothing matches, and AmbiguityError when several templates match.
func (r *Registry) Match(issuer, text string) (*Template, string, error) {
	var (
		matched    *Template
		normalized string
		ids        []string
	)

	for _, tpl := range r.Issuer(issuer) {
		prepared := tpl.Normalize(text)
		if !tpl.MatchesKeywords(prepared) {
			continue
		}
		ids = append(ids, tpl.TemplateID)
		if matched == nil {
			matched, normalized = tpl, prepared
		}
	}

	if len(ids) > 1 {
		return nil, "", &AmbiguityError{Issuer: issuer, TemplateIDs: ids}
	}

	return matched, normalized, nil
}
