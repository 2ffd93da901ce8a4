package sweeper_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/storage/sqlite"
	"github.com/devhaven/memoryd/internal/sweeper"
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

func insertAgedFact(t *testing.T, store storage.Storage, status string, daysOld int) int64 {
	t.Helper()
	ctx := context.Background()
	entity, err := store.FindOrCreateEntity(ctx, "repo", "repo")
	if err != nil {
		t.Fatalf("FindOrCreateEntity: %v", err)
	}
	id, err := store.InsertFact(ctx, &types.Fact{
		SubjectEntityID: entity.ID,
		Predicate:       "decision",
		ObjectLiteral:   "something",
		Polarity:        types.PolarityPositive,
		Status:          status,
		Confidence:      1,
		Scope:           types.ScopeProject,
		ProjectPath:     "/repo",
	})
	if err != nil {
		t.Fatalf("InsertFact: %v", err)
	}
	backdate(t, store, "facts", id, daysOld)
	return id
}

// backdate rewrites created_at directly since InsertFact always stamps
// CURRENT_TIMESTAMP; tests need facts that already look old.
func backdate(t *testing.T, store storage.Storage, table string, id int64, daysOld int) {
	t.Helper()
	db := store.UnderlyingDB()
	cutoff := time.Now().UTC().Add(-time.Duration(daysOld) * 24 * time.Hour).Format("2006-01-02 15:04:05")
	if _, err := db.ExecContext(context.Background(), "UPDATE "+table+" SET created_at = ? WHERE id = ?", cutoff, id); err != nil {
		t.Fatalf("backdate %s %d: %v", table, id, err)
	}
}

func TestRunExpiresStaleProposedAndDisputedFacts(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	stale := insertAgedFact(t, store, types.FactProposed, 20)
	fresh := insertAgedFact(t, store, types.FactProposed, 1)
	staleDisputed := insertAgedFact(t, store, types.FactDisputed, 40)

	counters, err := sweeper.Run(ctx, store, sweeper.DefaultBudget, time.Now().UTC())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if counters.ProposedExpired != 1 {
		t.Fatalf("ProposedExpired = %d, want 1", counters.ProposedExpired)
	}
	if counters.DisputedExpired != 1 {
		t.Fatalf("DisputedExpired = %d, want 1", counters.DisputedExpired)
	}

	got, err := store.GetFact(ctx, stale)
	if err != nil {
		t.Fatalf("GetFact(stale): %v", err)
	}
	if got.Status != types.FactExpired {
		t.Fatalf("stale fact status = %q, want expired", got.Status)
	}

	got, err = store.GetFact(ctx, fresh)
	if err != nil {
		t.Fatalf("GetFact(fresh): %v", err)
	}
	if got.Status != types.FactProposed {
		t.Fatalf("fresh fact status = %q, want still proposed", got.Status)
	}

	got, err = store.GetFact(ctx, staleDisputed)
	if err != nil {
		t.Fatalf("GetFact(staleDisputed): %v", err)
	}
	if got.Status != types.FactExpired {
		t.Fatalf("stale disputed fact status = %q, want expired", got.Status)
	}
}

func TestRunReportsBudgetHonored(t *testing.T) {
	store := newStore(t)
	counters, err := sweeper.Run(context.Background(), store, sweeper.DefaultBudget, time.Now().UTC())
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !counters.BudgetHonored {
		t.Fatalf("expected an empty store's sweep to finish within budget, elapsed=%v", counters.ElapsedSeconds)
	}
}
