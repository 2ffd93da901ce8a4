package sqlite

import (
	"errors"
	"testing"

	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/types"
)

func TestNewCreatesSchemaAtTargetVersion(t *testing.T) {
	env := newTestEnv(t)

	v, err := env.Store.SchemaVersion(env.Ctx)
	if err != nil {
		t.Fatalf("SchemaVersion: %v", err)
	}
	if v != SchemaVersion {
		t.Fatalf("schema version = %d, want %d", v, SchemaVersion)
	}
}

func TestNewIsIdempotent(t *testing.T) {
	dbPath := t.TempDir() + "/test.db"
	store1 := newTestStore(t, dbPath)
	id, err := store1.FindOrCreateEntity(t.Context(), "person", "Ada Lovelace")
	if err != nil {
		t.Fatalf("FindOrCreateEntity: %v", err)
	}
	if err := store1.Close(); err != nil {
		t.Fatalf("close: %v", err)
	}

	store2 := newTestStore(t, dbPath)
	got, err := store2.EntityBySlug(t.Context(), "person", "ada-lovelace")
	if err != nil {
		t.Fatalf("EntityBySlug after reopen: %v", err)
	}
	if got.ID != id.ID {
		t.Fatalf("entity id after reopen = %d, want %d", got.ID, id.ID)
	}
}

func TestRunInTransactionRollsBackOnError(t *testing.T) {
	env := newTestEnv(t)
	sentinel := errors.New("boom")

	err := env.Store.RunInTransaction(env.Ctx, func(tx storage.Transaction) error {
		if _, ferr := tx.FindOrCreateEntity(env.Ctx, "person", "Rolled Back"); ferr != nil {
			t.Fatalf("FindOrCreateEntity inside tx: %v", ferr)
		}
		return sentinel
	})
	if !errors.Is(err, sentinel) {
		t.Fatalf("RunInTransaction error = %v, want %v", err, sentinel)
	}

	if _, lerr := env.Store.EntityBySlug(env.Ctx, "person", "rolled-back"); !errors.Is(lerr, storage.ErrNotFound) {
		t.Fatalf("expected entity to not exist after rollback, got err=%v", lerr)
	}
}

func TestEntityMentionCountIncrementsOnResolve(t *testing.T) {
	env := newTestEnv(t)

	first, err := env.Store.FindOrCreateEntity(env.Ctx, "tool", "PostgreSQL")
	if err != nil {
		t.Fatalf("FindOrCreateEntity: %v", err)
	}
	if first.MentionCount != 1 {
		t.Fatalf("mention count = %d, want 1", first.MentionCount)
	}

	second, err := env.Store.FindOrCreateEntity(env.Ctx, "tool", "postgresql")
	if err != nil {
		t.Fatalf("FindOrCreateEntity (re-resolve): %v", err)
	}
	if second.ID != first.ID {
		t.Fatalf("slug case-folding: got different entity ids %d != %d", second.ID, first.ID)
	}
	if second.MentionCount != 2 {
		t.Fatalf("mention count after re-resolve = %d, want 2", second.MentionCount)
	}
}

func TestFactInsertAndSlotQuery(t *testing.T) {
	env := newTestEnv(t)

	subject, err := env.Store.FindOrCreateEntity(env.Ctx, "project", "memoryd")
	if err != nil {
		t.Fatalf("FindOrCreateEntity: %v", err)
	}

	f := &types.Fact{
		SubjectEntityID: subject.ID,
		Predicate:       "uses_database",
		ObjectLiteral:   "sqlite",
		Polarity:        types.PolarityPositive,
		Status:          types.FactActive,
		Confidence:      0.9,
		Scope:           types.ScopeProject,
		ProjectPath:     "/repo",
	}
	id, err := env.Store.InsertFact(env.Ctx, f)
	if err != nil {
		t.Fatalf("InsertFact: %v", err)
	}
	if id == 0 {
		t.Fatal("expected non-zero fact id")
	}

	slot, err := env.Store.FactsForSlot(env.Ctx, subject.ID, "uses_database", types.ScopeProject, "/repo")
	if err != nil {
		t.Fatalf("FactsForSlot: %v", err)
	}
	if len(slot) != 1 || slot[0].ID != id {
		t.Fatalf("FactsForSlot = %+v, want single fact with id %d", slot, id)
	}
}
