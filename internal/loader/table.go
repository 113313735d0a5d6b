package loader

import (
	"errors"
	"path/filepath"
	"strings"
)

// Table is an ordered set of compiled rules.
type Table struct {
	rules []Rule
}

// Compile builds a Table. All rule errors are reported together.
func Compile(specs []RuleSpec) (*Table, error) {
	table := &Table{rules: make([]Rule, 0, len(specs))}
	var errs error
	for index, spec := range specs {
		rule, err := compileRule(index, spec)
		if err != nil {
			errs = errors.Join(errs, err)
			continue
		}
		table.rules = append(table.rules, rule)
	}
	if errs != nil {
		return nil, errs
	}
	return table, nil
}

// Match returns the first rule accepting path. Paths are compared with
// forward slashes and without a leading "./".
func (t *Table) Match(path string) (Rule, bool) {
	if t == nil {
		return Rule{}, false
	}
	normalized := NormalizePath(path)
	if normalized == "" {
		return Rule{}, false
	}
	for _, rule := range t.rules {
		if rule.matches(normalized) {
			return rule, true
		}
	}
	return Rule{}, false
}

func (t *Table) Rules() []Rule {
	if t == nil {
		return nil
	}
	out := make([]Rule, len(t.rules))
	copy(out, t.rules)
	return out
}

func (t *Table) Len() int {
	if t == nil {
		return 0
	}
	return len(t.rules)
}

func NormalizePath(path string) string {
	normalized := filepath.ToSlash(strings.TrimSpace(path))
	for strings.HasPrefix(normalized, "./") {
		normalized = strings.TrimPrefix(normalized, "./")
	}
	return normalized
}
