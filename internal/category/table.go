package category

import (
	"fmt"
	"os"
	"strings"

	yaml "gopkg.in/yaml.v2"
)

// Rule maps a keyword to a category. Matching is a case-insensitive
// substring test against the provider name and notes.
type Rule struct {
	Keyword  string   `yaml:"keyword"`
	Category Category `yaml:"category"`
}

// Table is an ordered set of categorization rules. Earlier rules win.
type Table struct {
	rules []Rule
}

// NewTable builds a table from rules, validating each category name.
func NewTable(rules []Rule) (*Table, error) {
	out := make([]Rule, 0, len(rules))
	for i, r := range rules {
		keyword := strings.ToLower(strings.TrimSpace(r.Keyword))
		if keyword == "" {
			return nil, fmt.Errorf("rule %d: empty keyword", i+1)
		}
		cat, ok := Parse(string(r.Category))
		if !ok {
			return nil, fmt.Errorf("rule %d: unknown category %q", i+1, r.Category)
		}
		out = append(out, Rule{Keyword: keyword, Category: cat})
	}
	return &Table{rules: out}, nil
}

// LoadTable reads a rule table from a YAML file. An empty path returns
// the built-in default table.
func LoadTable(path string) (*Table, error) {
	if path == "" {
		return DefaultTable(), nil
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading category config: %w", err)
	}

	var doc struct {
		Rules []Rule `yaml:"rules"`
	}
	if err := yaml.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("parsing category config: %w", err)
	}

	table, err := NewTable(doc.Rules)
	if err != nil {
		return nil, fmt.Errorf("invalid category config %s: %w", path, err)
	}
	return table, nil
}

// DefaultTable returns the built-in keyword rules.
func DefaultTable() *Table {
	table, err := NewTable([]Rule{
		{Keyword: "pharmacy", Category: Prescription},
		{Keyword: "rx", Category: Prescription},
		{Keyword: "dental", Category: Dental},
		{Keyword: "orthodont", Category: Dental},
		{Keyword: "vision", Category: Vision},
		{Keyword: "optometr", Category: Vision},
		{Keyword: "optical", Category: Vision},
		{Keyword: "eye", Category: Vision},
		{Keyword: "counseling", Category: MentalHealth},
		{Keyword: "therapy", Category: MentalHealth},
		{Keyword: "psych", Category: MentalHealth},
		{Keyword: "medical", Category: Medical},
		{Keyword: "clinic", Category: Medical},
		{Keyword: "hospital", Category: Medical},
		{Keyword: "health", Category: Medical},
	})
	if err != nil {
		panic(err) // built-in rules are static
	}
	return table
}

// Match tests each rule against the given texts in declared order and
// returns the first matching category.
func (t *Table) Match(texts ...string) (Category, bool) {
	for _, r := range t.rules {
		for _, text := range texts {
			if text == "" {
				continue
			}
			if strings.Contains(strings.ToLower(text), r.Keyword) {
				return r.Category, true
			}
		}
	}
	return "", false
}

// Len reports the number of rules in the table.
func (t *Table) Len() int {
	return len(t.rules)
}
