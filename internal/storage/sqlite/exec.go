package sqlite

import (
	"context"
	"database/sql"
)

// execer is satisfied by both *sql.DB and *sql.Tx, so every accessor below
// can be shared between SQLiteStorage (outside a transaction) and
// sqlTransaction (inside one) instead of being written twice.
type execer interface {
	ExecContext(ctx context.Context, query string, args ...any) (sql.Result, error)
	QueryContext(ctx context.Context, query string, args ...any) (*sql.Rows, error)
	QueryRowContext(ctx context.Context, query string, args ...any) *sql.Row
}

// sqlTransaction adapts a *sql.Tx to storage.Transaction.
type sqlTransaction struct {
	tx *sql.Tx
}
