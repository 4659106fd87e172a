// Package rules loads the per-customer processing rules that drive claim
// compilation: company code, threshold, tolerance and the claim_create,
// case_add and case_update rulesets.
package rules

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"
)

// Categories whose claims post through the customized ZQM transaction.
// Their rules never carry a case_add ruleset or a user override.
var zqmCategories = map[string]bool{
	"bonus":   true,
	"promo":   true,
	"quality": true,
}

// CompanyCodes accepted across the rule files.
var CompanyCodes = map[string]bool{
	"1001": true,
	"1072": true,
	"0074": true,
}

// LoadError reports an invalid rule file.
type LoadError struct {
	Path    string
	Message string
}

func (e *LoadError) Error() string {
	return fmt.Sprintf("rule %s: %s", e.Path, e.Message)
}

// Ruleset is the claim_create or case_add section of a rule.
type Ruleset struct {
	ReferenceBy    []string `yaml:"reference_by"`
	ReferenceNo    string   `yaml:"reference_no"`
	Description    string   `yaml:"description"`
	Processor      string   `yaml:"processor"`
	Coordinator    string   `yaml:"coordinator"`
	Responsible    string   `yaml:"responsible"`
	AttachmentName string   `yaml:"attachment_name"`
	StatusAC       string   `yaml:"status_ac"`
	User           string   `yaml:"user"`
}

// CaseSearch drives the DMS lookup for existing cases. Title may contain
// field placeholders and wildcards, Account selects an optional account
// filter and CustDisputed names the data field carrying the disputed amount.
type CaseSearch struct {
	Title        string `yaml:"title"`
	Account      string `yaml:"account"`
	CustDisputed string `yaml:"cust_disputed"`
}

// CaseUpdate is the ruleset applied when a credit note updates a case.
type CaseUpdate struct {
	StatusSales    string `yaml:"status_sales"`
	AttachmentName string `yaml:"attachment_name"`
	Amount         string `yaml:"amount"`
	Processor      string `yaml:"processor"`
	Coordinator    string `yaml:"coordinator"`
	Responsible    string `yaml:"responsible"`
}

// Rule is one processing rule, keyed by (issuer, template id, category).
type Rule struct {
	Issuer      string      `yaml:"-"`
	TemplateID  string      `yaml:"template_id"`
	Kind        string      `yaml:"kind"`
	CompanyCode string      `yaml:"company_code"`
	Threshold   float64     `yaml:"threshold"`
	Tolerance   float64     `yaml:"tolerance"`
	Category    yaml.Node   `yaml:"category"`
	Categories  []string    `yaml:"-"`
	CaseSearch  *CaseSearch `yaml:"case_search"`
	ClaimCreate *Ruleset    `yaml:"claim_create"`
	CaseAdd     *Ruleset    `yaml:"case_add"`
	CaseUpdate  *CaseUpdate `yaml:"case_update"`
}

// AppliesTo reports whether the rule covers the given category.
func (r *Rule) AppliesTo(category string) bool {
	if len(r.Categories) == 0 {
		return category == ""
	}
	for _, c := range r.Categories {
		if c == category {
			return true
		}
	}
	return false
}

// Registry holds all loaded rules grouped by issuer.
type Registry struct {
	byIssuer map[string][]*Rule
}

// Load walks dir, treating each subdirectory as one issuer and each .yml or
// .yaml file inside as a single rule.
func Load(dir string) (*Registry, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, fmt.Errorf("read rules dir: %w", err)
	}

	reg := &Registry{byIssuer: make(map[string][]*Rule)}

	for _, entry := range entries {
		if !entry.IsDir() {
			continue
		}
		issuer := strings.ToUpper(entry.Name())

		files, err := os.ReadDir(filepath.Join(dir, entry.Name()))
		if err != nil {
			return nil, fmt.Errorf("read issuer rules %s: %w", issuer, err)
		}

		for _, file := range files {
			ext := filepath.Ext(file.Name())
			if ext != ".yml" && ext != ".yaml" {
				continue
			}

			path := filepath.Join(dir, entry.Name(), file.Name())
			rule, err := parse(path, issuer)
			if err != nil {
				return nil, err
			}
			reg.byIssuer[issuer] = append(reg.byIssuer[issuer], rule)
		}
	}

	return reg, nil
}

// Get returns the rule for (issuer, template id, category) or nil.
func (r *Registry) Get(issuer, templateID, category string) *Rule {
	for _, rule := range r.byIssuer[strings.ToUpper(issuer)] {
		if rule.TemplateID == strings.ToUpper(templateID) && rule.AppliesTo(category) {
			return rule
		}
	}
	return nil
}

func parse(path, issuer string) (*Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rule: %w", err)
	}

	var rule Rule
	if err := yaml.Unmarshal(data, &rule); err != nil {
		return nil, &LoadError{Path: path, Message: err.Error()}
	}
	rule.Issuer = issuer

	fail := func(format string, args ...any) (*Rule, error) {
		return nil, &LoadError{Path: path, Message: fmt.Sprintf(format, args...)}
	}

	if rule.TemplateID == "" {
		return fail("template_id missing")
	}
	rule.TemplateID = strings.ToUpper(rule.TemplateID)

	if !CompanyCodes[rule.CompanyCode] {
		return fail("unrecognized company code %q", rule.CompanyCode)
	}
	if rule.Threshold < 0 {
		return fail("threshold must not be negative")
	}
	if rule.Tolerance < 0 {
		return fail("tolerance must not be negative")
	}

	switch rule.Kind {
	case "debit":
		if rule.ClaimCreate == nil {
			return fail("debit rule requires a claim_create ruleset")
		}
		if rule.ClaimCreate.Description == "" {
			return fail("claim_create requires a description template")
		}
	case "credit":
		if rule.CaseUpdate == nil {
			return fail("credit rule requires a case_update ruleset")
		}
	default:
		return fail("unrecognized kind %q", rule.Kind)
	}

	if rule.CaseSearch == nil || rule.CaseSearch.Title == "" {
		return fail("every rule requires a case_search ruleset with a title pattern")
	}
	switch rule.CaseSearch.Account {
	case "", "head_office", "customer_account":
	default:
		return fail("unrecognized case_search account selector %q", rule.CaseSearch.Account)
	}

	categories, err := decodeCategories(&rule.Category)
	if err != nil {
		return fail("%v", err)
	}
	if rule.Kind == "credit" && len(categories) != 0 {
		return fail("credit rule must not declare a category")
	}
	rule.Categories = categories

	// ZQM-posted categories never extend an existing notification, so any
	// case_add section or user override is dropped at load time.
	if allZQM(categories) && len(categories) > 0 {
		rule.CaseAdd = nil
		if rule.ClaimCreate != nil {
			rule.ClaimCreate.User = ""
		}
	}

	return &rule, nil
}

func allZQM(categories []string) bool {
	for _, c := range categories {
		if !zqmCategories[c] {
			return false
		}
	}
	return len(categories) > 0
}

func decodeCategories(node *yaml.Node) ([]string, error) {
	switch node.Kind {
	case 0:
		return nil, nil
	case yaml.ScalarNode:
		var s string
		if err := node.Decode(&s); err != nil {
			return nil, fmt.Errorf("category: %w", err)
		}
		if s == "" {
			return nil, nil
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
