package policy

import (
	"os"
	"path/filepath"
	"testing"
)

func TestDefaultTableClassifiesBuiltinPredicates(t *testing.T) {
	table := Default()

	single := table.RuleFor("uses_database")
	if single.Cardinality != CardinalitySingle {
		t.Fatalf("uses_database cardinality = %q, want %q", single.Cardinality, CardinalitySingle)
	}

	multi := table.RuleFor("convention")
	if multi.Cardinality != CardinalityMulti {
		t.Fatalf("convention cardinality = %q, want %q", multi.Cardinality, CardinalityMulti)
	}

	unknown := table.RuleFor("some_unlisted_predicate")
	if unknown.Cardinality != CardinalityMulti {
		t.Fatalf("unknown predicate cardinality = %q, want default %q", unknown.Cardinality, CardinalityMulti)
	}
}

func TestLoadMissingFileReturnsDefaults(t *testing.T) {
	table, err := Load(filepath.Join(t.TempDir(), "memory_policy.toml"))
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if table.RuleFor("auth_method").Cardinality != CardinalitySingle {
		t.Fatal("expected default rule for auth_method when file is absent")
	}
}

func TestLoadOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "memory_policy.toml")
	contents := `
[predicates.auth_method]
cardinality = "multi"

[predicates.custom_predicate]
cardinality = "single"
exclusive = true
`
	if err := os.WriteFile(path, []byte(contents), 0o644); err != nil {
		t.Fatalf("write policy file: %v", err)
	}

	table, err := Load(path)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	if got := table.RuleFor("auth_method"); got.Cardinality != CardinalityMulti {
		t.Fatalf("auth_method override = %q, want %q", got.Cardinality, CardinalityMulti)
	}
	if got := table.RuleFor("custom_predicate"); got.Cardinality != CardinalitySingle || !got.Exclusive {
		t.Fatalf("custom_predicate = %+v, want single/exclusive", got)
	}
	if got := table.RuleFor("uses_framework"); got.Cardinality != CardinalitySingle {
		t.Fatal("expected untouched default for uses_framework to survive a partial override file")
	}
}
