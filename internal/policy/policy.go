// Package policy loads the per-predicate cardinality table the resolver
// consults before deciding whether a new fact matches, supersedes, or
// conflicts with an existing one. The table is data-driven: a project may
// override the built-in defaults with a TOML file rather than a code change.
package policy

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Cardinality values for a predicate slot.
const (
	CardinalitySingle = "single"
	CardinalityMulti  = "multi"
)

// Rule is the resolved policy for one predicate.
type Rule struct {
	Cardinality string `toml:"cardinality"`
	Exclusive   bool   `toml:"exclusive"`
}

// Table maps predicate name to its Rule. Lookups fall back to Default.
type Table struct {
	rules   map[string]Rule
	Default Rule
}

// fileFormat is the on-disk shape of memory_policy.toml:
//
//	[predicates.auth_method]
//	cardinality = "single"
//	exclusive = false
type fileFormat struct {
	Predicates map[string]Rule `toml:"predicates"`
}

// defaultRules mirrors the built-in table: single-cardinality predicates
// for facts that describe one current choice, multi for facts that
// accumulate over time.
var defaultRules = map[string]Rule{
	"auth_method":        {Cardinality: CardinalitySingle},
	"uses_database":       {Cardinality: CardinalitySingle},
	"uses_framework":      {Cardinality: CardinalitySingle},
	"deployment_platform": {Cardinality: CardinalitySingle},
	"convention":          {Cardinality: CardinalityMulti},
	"decision":            {Cardinality: CardinalityMulti},
}

// Default is the built-in table used when no override file is present.
func Default() *Table {
	rules := make(map[string]Rule, len(defaultRules))
	for k, v := range defaultRules {
		rules[k] = v
	}
	return &Table{rules: rules, Default: Rule{Cardinality: CardinalityMulti, Exclusive: false}}
}

// Load reads an optional policy file at path, overlaying it on top of the
// built-in default table. A missing file is not an error: Load returns the
// defaults unchanged.
func Load(path string) (*Table, error) {
	t := Default()
	if path == "" {
		return t, nil
	}
	data, err := os.ReadFile(path)
	if err != nil {
		if os.IsNotExist(err) {
			return t, nil
		}
		return nil, fmt.Errorf("read policy file %s: %w", path, err)
	}

	var parsed fileFormat
	if err := toml.Unmarshal(data, &parsed); err != nil {
		return nil, fmt.Errorf("parse policy file %s: %w", path, err)
	}
	for predicate, rule := range parsed.Predicates {
		if rule.Cardinality == "" {
			rule.Cardinality = CardinalityMulti
		}
		t.rules[strings.ToLower(predicate)] = rule
	}
	return t, nil
}

// RuleFor returns the policy for predicate, falling back to Default when
// the predicate has no explicit entry.
func (t *Table) RuleFor(predicate string) Rule {
	if rule, ok := t.rules[strings.ToLower(predicate)]; ok {
		return rule
	}
	return t.Default
}
