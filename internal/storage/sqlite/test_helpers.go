package sqlite

import (
	"context"
	"testing"
)

// testEnv bundles a store and context for table-driven tests.
type testEnv struct {
	t     *testing.T
	Store *SQLiteStorage
	Ctx   context.Context
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()
	return &testEnv{t: t, Store: newTestStore(t, ""), Ctx: context.Background()}
}

// newTestStore opens a SQLiteStorage backed by a temp file rather than a
// shared ":memory:" database: a bare ":memory:" DSN is shared across every
// connection in the process and causes cross-test interference under Go's
// connection pooling.
func newTestStore(t *testing.T, dbPath string) *SQLiteStorage {
	t.Helper()
	if dbPath == "" {
		dbPath = t.TempDir() + "/test.db"
	}
	ctx := context.Background()
	store, err := New(ctx, dbPath)
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}
	t.Cleanup(func() {
		if err := store.Close(); err != nil {
			t.Fatalf("failed to close test database: %v", err)
		}
	})
	return store
}
