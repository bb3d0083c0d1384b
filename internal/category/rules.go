package category

import (
	"fmt"
	"os"

	"gopkg.in/yaml.v3"
)

// rulesFile is the on-disk shape of a classification table override.
type rulesFile struct {
	Rules []Rule `yaml:"rules"`
}

// LoadRules reads an ordered classification table from a YAML file:
//
//	rules:
//	  - category: Work
//	    patterns: [github.com, linear.app]
//
// Categories outside the fixed set are rejected so stored aggregates always
// sum over known keys.
func LoadRules(path string) ([]Rule, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read rules file: %w", err)
	}
	return ParseRules(data)
}

// ParseRules parses a YAML rule table.
func ParseRules(data []byte) ([]Rule, error) {
	var f rulesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("parse rules: %w", err)
	}
	if len(f.Rules) == 0 {
		return nil, fmt.Errorf("parse rules: no rules defined")
	}
	known := make(map[Category]bool)
	for _, c := range All() {
		known[c] = true
	}
	for i, r := range f.Rules {
		if !known[r.Category] {
			return nil, fmt.Errorf("parse rules: rule %d: unknown category %q", i, r.Category)
		}
		if len(r.Patterns) == 0 {
			return nil, fmt.Errorf("parse rules: rule %d (%s): no patterns", i, r.Category)
		}
	}
	return f.Rules, nil
}
