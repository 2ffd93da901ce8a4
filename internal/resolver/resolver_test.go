package resolver_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/devhaven/memoryd/internal/policy"
	"github.com/devhaven/memoryd/internal/resolver"
	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/storage/sqlite"
	"github.com/devhaven/memoryd/internal/types"
)

func newStore(t *testing.T) *sqlite.SQLiteStorage {
	t.Helper()
	store, err := sqlite.New(context.Background(), filepath.Join(t.TempDir(), "memory.db"))
	if err != nil {
		t.Fatalf("sqlite.New: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

func resolveIn(t *testing.T, store storage.Storage, table *policy.Table, extraction types.Extraction, opts resolver.Options) types.ResolveCounters {
	t.Helper()
	var counters types.ResolveCounters
	err := store.RunInTransaction(context.Background(), func(tx storage.Transaction) error {
		var err error
		counters, err = resolver.Resolve(context.Background(), tx, table, extraction, opts)
		return err
	})
	if err != nil {
		t.Fatalf("Resolve: %v", err)
	}
	return counters
}

// TestSupersessionReplacesSingleCardinalitySlot mirrors the scenario where a
// single-cardinality predicate's active fact is replaced by a later, stated
// claim: the old fact is superseded and a supersedes link is recorded.
func TestSupersessionReplacesSingleCardinalitySlot(t *testing.T) {
	store := newStore(t)
	table := policy.Default()
	opts := resolver.Options{OccurredAt: time.Now().UTC(), ProjectPath: "/repo", Scope: types.ScopeProject}

	resolveIn(t, store, table, types.Extraction{
		Entities: []types.ExtractionEntity{{Type: "repo", Name: "repo"}},
		Facts: []types.ExtractionFact{
			{Subject: "repo", Predicate: "uses_database", Object: "mysql", Strength: "stated"},
		},
	}, opts)

	counters := resolveIn(t, store, table, types.Extraction{
		Facts: []types.ExtractionFact{
			{Subject: "repo", Predicate: "uses_database", Object: "postgresql", Strength: "stated", Supersedes: true},
		},
	}, opts)

	if counters.FactsSuperseded != 1 {
		t.Fatalf("FactsSuperseded = %d, want 1", counters.FactsSuperseded)
	}
	if counters.FactsCreated != 1 {
		t.Fatalf("FactsCreated = %d, want 1", counters.FactsCreated)
	}

	entity, err := store.EntityBySlug(context.Background(), "repo", "repo")
	if err != nil {
		t.Fatalf("EntityBySlug: %v", err)
	}
	active, err := store.FactsForSlot(context.Background(), entity.ID, "uses_database", types.ScopeProject, "/repo")
	if err != nil {
		t.Fatalf("FactsForSlot: %v", err)
	}
	if len(active) != 1 || active[0].ObjectLiteral != "postgresql" {
		t.Fatalf("active facts = %+v, want single postgresql fact", active)
	}
}

// TestContradictionWithoutSignalRecordsConflict mirrors the scenario where a
// new single-cardinality claim contradicts the active fact without a
// supersession signal: the new fact is recorded as disputed and a Conflict
// is opened rather than silently overwriting the old claim.
func TestContradictionWithoutSignalRecordsConflict(t *testing.T) {
	store := newStore(t)
	table := policy.Default()
	opts := resolver.Options{OccurredAt: time.Now().UTC(), ProjectPath: "/repo", Scope: types.ScopeProject}

	resolveIn(t, store, table, types.Extraction{
		Entities: []types.ExtractionEntity{{Type: "repo", Name: "repo"}},
		Facts: []types.ExtractionFact{
			{Subject: "repo", Predicate: "auth_method", Object: "oauth"},
		},
	}, opts)

	counters := resolveIn(t, store, table, types.Extraction{
		Facts: []types.ExtractionFact{
			{Subject: "repo", Predicate: "auth_method", Object: "saml"},
		},
	}, opts)

	if counters.ConflictsCreated != 1 {
		t.Fatalf("ConflictsCreated = %d, want 1", counters.ConflictsCreated)
	}
	if counters.FactsSuperseded != 0 {
		t.Fatalf("FactsSuperseded = %d, want 0", counters.FactsSuperseded)
	}

	conflicts, err := store.OpenConflicts(context.Background())
	if err != nil {
		t.Fatalf("OpenConflicts: %v", err)
	}
	if len(conflicts) != 1 {
		t.Fatalf("open conflicts = %d, want 1", len(conflicts))
	}
}

// TestMultiCardinalityPredicateAccumulates ensures a multi-cardinality
// predicate such as "decision" never triggers supersession or conflict
// logic: every call inserts a new active fact.
func TestMultiCardinalityPredicateAccumulates(t *testing.T) {
	store := newStore(t)
	table := policy.Default()
	opts := resolver.Options{OccurredAt: time.Now().UTC(), ProjectPath: "/repo", Scope: types.ScopeProject}

	resolveIn(t, store, table, types.Extraction{
		Entities: []types.ExtractionEntity{{Type: "repo", Name: "repo"}},
		Facts: []types.ExtractionFact{
			{Subject: "repo", Predicate: "decision", Object: "use trunk-based development"},
		},
	}, opts)
	counters := resolveIn(t, store, table, types.Extraction{
		Facts: []types.ExtractionFact{
			{Subject: "repo", Predicate: "decision", Object: "adopt feature flags"},
		},
	}, opts)

	if counters.FactsCreated != 1 || counters.ConflictsCreated != 0 {
		t.Fatalf("counters = %+v, want one new fact and no conflict", counters)
	}

	entity, err := store.EntityBySlug(context.Background(), "repo", "repo")
	if err != nil {
		t.Fatalf("EntityBySlug: %v", err)
	}
	facts, err := store.FactsForSlot(context.Background(), entity.ID, "decision", types.ScopeProject, "/repo")
	if err != nil {
		t.Fatalf("FactsForSlot: %v", err)
	}
	if len(facts) != 2 {
		t.Fatalf("decision facts = %d, want 2", len(facts))
	}
}

// TestMatchingClaimOnlyAddsProvenance ensures a repeated identical claim on
// a single-cardinality slot adds provenance to the existing fact instead of
// creating a duplicate.
func TestMatchingClaimOnlyAddsProvenance(t *testing.T) {
	store := newStore(t)
	table := policy.Default()
	opts := resolver.Options{OccurredAt: time.Now().UTC(), ProjectPath: "/repo", Scope: types.ScopeProject}

	resolveIn(t, store, table, types.Extraction{
		Entities: []types.ExtractionEntity{{Type: "repo", Name: "repo"}},
		Facts: []types.ExtractionFact{
			{Subject: "repo", Predicate: "uses_framework", Object: "django", Strength: "stated"},
		},
	}, opts)

	counters := resolveIn(t, store, table, types.Extraction{
		Facts: []types.ExtractionFact{
			{Subject: "repo", Predicate: "uses_framework", Object: "Django"},
		},
	}, opts)

	if counters.ProvenanceCreated != 1 || counters.FactsCreated != 0 {
		t.Fatalf("counters = %+v, want only provenance added", counters)
	}
}
