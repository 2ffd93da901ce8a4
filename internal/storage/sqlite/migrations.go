package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"sort"
)

// migration is one forward-only schema step, gated by meta.schema_version.
// Each migration runs in its own transaction that ends by bumping
// schema_version, so a crash mid-migration never leaves the version column
// pointing past a half-applied step.
type migration struct {
	Version int
	Name    string
	Apply   func(ctx context.Context, tx *sql.Tx) error
}

// SchemaVersion is the version a freshly-migrated database ends up at.
const SchemaVersion = 6

var migrations = []migration{
	{
		Version: 2,
		Name:    "project_scoping",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			if err := addColumnIfMissing(ctx, tx, "facts", "scope", "TEXT NOT NULL DEFAULT 'project'"); err != nil {
				return err
			}
			if err := addColumnIfMissing(ctx, tx, "facts", "project_path", "TEXT NOT NULL DEFAULT ''"); err != nil {
				return err
			}
			stmts := []string{
				`CREATE INDEX IF NOT EXISTS idx_facts_scope ON facts(scope)`,
				`CREATE INDEX IF NOT EXISTS idx_facts_project ON facts(project_path)`,
			}
			for _, s := range stmts {
				if _, err := tx.ExecContext(ctx, s); err != nil {
					return fmt.Errorf("exec %q: %w", s, err)
				}
			}
			return nil
		},
	},
	{
		Version: 3,
		Name:    "session_metadata_and_tool_calls",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			cols := []struct{ name, def string }{
				{"host_version", "TEXT DEFAULT ''"},
				{"thinking_level", "TEXT DEFAULT ''"},
			}
			for _, c := range cols {
				if err := addColumnIfMissing(ctx, tx, "content_items", c.name, c.def); err != nil {
					return err
				}
			}
			stmt := `
CREATE TABLE IF NOT EXISTS tool_calls (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    content_item_id INTEGER NOT NULL REFERENCES content_items(id) ON DELETE CASCADE,
    tool_name TEXT NOT NULL,
    tool_input TEXT DEFAULT '',
    tool_result TEXT DEFAULT '',
    is_error INTEGER NOT NULL DEFAULT 0,
    timestamp DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP
);
CREATE INDEX IF NOT EXISTS idx_tool_calls_content_item ON tool_calls(content_item_id);
CREATE INDEX IF NOT EXISTS idx_tool_calls_tool_name ON tool_calls(tool_name);
`
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec tool_calls ddl: %w", err)
			}
			return nil
		},
	},
	{
		Version: 4,
		Name:    "fact_embeddings",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			return addColumnIfMissing(ctx, tx, "facts", "embedding_json", "TEXT DEFAULT ''")
		},
	},
	{
		Version: 5,
		Name:    "content_item_source_mtime",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			return addColumnIfMissing(ctx, tx, "content_items", "source_mtime", "TEXT DEFAULT ''")
		},
	},
	{
		Version: 6,
		Name:    "operation_tracking_and_health",
		Apply: func(ctx context.Context, tx *sql.Tx) error {
			stmt := `
CREATE TABLE IF NOT EXISTS operation_progress (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    operation_type TEXT NOT NULL,
    scope TEXT NOT NULL DEFAULT '',
    status TEXT NOT NULL DEFAULT 'running' CHECK(status IN ('running','completed','failed')),
    total_items INTEGER NOT NULL DEFAULT 0,
    processed_items INTEGER NOT NULL DEFAULT 0,
    checkpoint_data TEXT DEFAULT '',
    started_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    completed_at DATETIME
);
CREATE INDEX IF NOT EXISTS idx_operation_progress_status ON operation_progress(status);

CREATE TABLE IF NOT EXISTS schema_health (
    id INTEGER PRIMARY KEY AUTOINCREMENT,
    checked_at DATETIME NOT NULL DEFAULT CURRENT_TIMESTAMP,
    schema_version INTEGER NOT NULL,
    validation_status TEXT NOT NULL CHECK(validation_status IN ('healthy','degraded','corrupt')),
    issues_json TEXT DEFAULT '[]',
    table_counts_json TEXT DEFAULT '{}'
);
`
			if _, err := tx.ExecContext(ctx, stmt); err != nil {
				return fmt.Errorf("exec operation/health ddl: %w", err)
			}
			return nil
		},
	},
}

// runMigrations brings a database from whatever schema_version it is
// currently at up to SchemaVersion, one migration per transaction. Callers
// must hold the cross-process migration lock (see New in db.go) before calling
// this, since meta.schema_version is read and written outside any single
// transaction that spans the whole run.
func runMigrations(ctx context.Context, db *sql.DB) error {
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("apply base schema: %w", err)
	}
	if err := ensureSchemaVersionRow(ctx, db); err != nil {
		return err
	}

	current, err := readSchemaVersion(ctx, db)
	if err != nil {
		return err
	}

	sorted := make([]migration, len(migrations))
	copy(sorted, migrations)
	sort.Slice(sorted, func(i, j int) bool { return sorted[i].Version < sorted[j].Version })

	for _, m := range sorted {
		if m.Version <= current {
			continue
		}
		if err := applyOne(ctx, db, m); err != nil {
			return fmt.Errorf("migration %d (%s): %w", m.Version, m.Name, err)
		}
	}
	return nil
}

func applyOne(ctx context.Context, db *sql.DB, m migration) error {
	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin: %w", err)
	}
	defer tx.Rollback()

	if err := m.Apply(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `UPDATE meta SET value = ? WHERE key = 'schema_version'`, fmt.Sprint(m.Version)); err != nil {
		return fmt.Errorf("bump schema_version: %w", err)
	}
	return tx.Commit()
}

func ensureSchemaVersionRow(ctx context.Context, db *sql.DB) error {
	_, err := db.ExecContext(ctx, `INSERT OR IGNORE INTO meta(key, value) VALUES ('schema_version', '1')`)
	if err != nil {
		return fmt.Errorf("seed schema_version: %w", err)
	}
	_, err = db.ExecContext(ctx, `INSERT OR IGNORE INTO meta(key, value) VALUES ('created_at', datetime('now'))`)
	if err != nil {
		return fmt.Errorf("seed created_at: %w", err)
	}
	return nil
}

func readSchemaVersion(ctx context.Context, db *sql.DB) (int, error) {
	var v string
	err := db.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = 'schema_version'`).Scan(&v)
	if err != nil {
		return 0, fmt.Errorf("read schema_version: %w", err)
	}
	var n int
	if _, err := fmt.Sscanf(v, "%d", &n); err != nil {
		return 0, fmt.Errorf("parse schema_version %q: %w", v, err)
	}
	return n, nil
}

// addColumnIfMissing adds column to table unless it already exists,
// tolerating re-runs against a database that partially applied a
// migration in a previous crashed process.
func addColumnIfMissing(ctx context.Context, tx *sql.Tx, table, column, colType string) error {
	rows, err := tx.QueryContext(ctx, fmt.Sprintf(`PRAGMA table_info(%s)`, table))
	if err != nil {
		return fmt.Errorf("pragma table_info(%s): %w", table, err)
	}
	defer rows.Close()

	for rows.Next() {
		var cid int
		var name, ctype string
		var notnull, pk int
		var dflt sql.NullString
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dflt, &pk); err != nil {
			return fmt.Errorf("scan table_info(%s): %w", table, err)
		}
		if name == column {
			return nil
		}
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("iterate table_info(%s): %w", table, err)
	}

	stmt := fmt.Sprintf(`ALTER TABLE %s ADD COLUMN %s %s`, table, column, colType)
	if _, err := tx.ExecContext(ctx, stmt); err != nil {
		return fmt.Errorf("add column %s.%s: %w", table, column, err)
	}
	return nil
}
