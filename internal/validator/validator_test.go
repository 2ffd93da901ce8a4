package validator_test

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/devhaven/memoryd/internal/storage/sqlite"
	"github.com/devhaven/memoryd/internal/types"
	"github.com/devhaven/memoryd/internal/validator"
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

func TestRunOnFreshStoreIsHealthy(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	report, err := validator.Run(ctx, store)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if !report.Valid {
		t.Fatalf("fresh store reported invalid: %+v", report.Issues)
	}

	health, err := store.LatestSchemaHealth(ctx)
	if err != nil {
		t.Fatalf("LatestSchemaHealth: %v", err)
	}
	if health.ValidationStatus != types.HealthHealthy {
		t.Fatalf("ValidationStatus = %q, want healthy", health.ValidationStatus)
	}
}

func TestRunFlagsOrphanedProvenance(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	entity, err := store.FindOrCreateEntity(ctx, "repo", "repo")
	if err != nil {
		t.Fatalf("FindOrCreateEntity: %v", err)
	}
	factID, err := store.InsertFact(ctx, &types.Fact{
		SubjectEntityID: entity.ID,
		Predicate:       "decision",
		ObjectLiteral:   "something",
		Polarity:        types.PolarityPositive,
		Status:          types.FactActive,
		Confidence:      1,
		Scope:           types.ScopeProject,
		ProjectPath:     "/repo",
	})
	if err != nil {
		t.Fatalf("InsertFact: %v", err)
	}
	provID, err := store.InsertProvenance(ctx, &types.Provenance{FactID: factID, Strength: types.StrengthStated})
	if err != nil {
		t.Fatalf("InsertProvenance: %v", err)
	}
	_ = provID

	db := store.UnderlyingDB()
	// provenance.fact_id cascades on delete while foreign keys are on; turn
	// them off so the delete leaves the provenance row behind as an orphan.
	if _, err := db.ExecContext(ctx, "PRAGMA foreign_keys = OFF"); err != nil {
		t.Fatalf("disable foreign keys: %v", err)
	}
	if _, err := db.ExecContext(ctx, "DELETE FROM facts WHERE id = ?", factID); err != nil {
		t.Fatalf("delete fact directly: %v", err)
	}

	report, err := validator.Run(ctx, store)
	if err != nil {
		t.Fatalf("Run: %v", err)
	}
	if report.Valid {
		t.Fatalf("expected orphaned provenance to mark the report invalid")
	}
}

func TestRecoverStuckOperationsResetsOldRunningRows(t *testing.T) {
	store := newStore(t)
	ctx := context.Background()

	id, err := store.StartOperation(ctx, &types.OperationProgress{OperationType: "ingest", Scope: "global"})
	if err != nil {
		t.Fatalf("StartOperation: %v", err)
	}

	db := store.UnderlyingDB()
	old := time.Now().UTC().Add(-2 * time.Hour).Format("2006-01-02 15:04:05")
	if _, err := db.ExecContext(ctx, "UPDATE operation_progress SET started_at = ? WHERE id = ?", old, id); err != nil {
		t.Fatalf("backdate operation: %v", err)
	}

	n, err := validator.RecoverStuckOperations(ctx, store)
	if err != nil {
		t.Fatalf("RecoverStuckOperations: %v", err)
	}
	if n != 1 {
		t.Fatalf("reset count = %d, want 1", n)
	}

	stuck, err := store.StuckOperations(ctx, int(validator.StuckAfter.Seconds()))
	if err != nil {
		t.Fatalf("StuckOperations: %v", err)
	}
	if len(stuck) != 0 {
		t.Fatalf("expected no stuck operations after recovery, got %d", len(stuck))
	}
}
