package sqlite

import (
	"context"
	"fmt"

	"github.com/devhaven/memoryd/internal/types"
)

func recordSchemaHealth(ctx context.Context, e execer, h *types.SchemaHealth) (int64, error) {
	res, err := e.ExecContext(ctx, `
INSERT INTO schema_health (checked_at, schema_version, validation_status, issues_json, table_counts_json)
VALUES (CURRENT_TIMESTAMP, ?, ?, ?, ?)`, h.SchemaVersion, h.ValidationStatus, h.IssuesJSON, h.TableCountsJSON)
	if err != nil {
		return 0, fmt.Errorf("record schema health: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("schema health last insert id: %w", err)
	}
	return id, nil
}

func latestSchemaHealth(ctx context.Context, e execer) (*types.SchemaHealth, error) {
	row := e.QueryRowContext(ctx, `
SELECT id, checked_at, schema_version, validation_status, issues_json, table_counts_json
FROM schema_health ORDER BY checked_at DESC LIMIT 1`)
	var h types.SchemaHealth
	if err := row.Scan(&h.ID, &h.CheckedAt, &h.SchemaVersion, &h.ValidationStatus, &h.IssuesJSON, &h.TableCountsJSON); err != nil {
		return nil, fmt.Errorf("latest schema health: %w", wrapNotFound(err))
	}
	return &h, nil
}

var healthTables = []string{
	"content_items", "delta_cursors", "entities", "entity_aliases", "facts",
	"provenance", "fact_links", "conflicts", "tool_calls", "operation_progress",
}

func tableCounts(ctx context.Context, e execer) (map[string]int, error) {
	counts := make(map[string]int, len(healthTables))
	for _, table := range healthTables {
		var n int
		row := e.QueryRowContext(ctx, fmt.Sprintf(`SELECT COUNT(*) FROM %s`, table))
		if err := row.Scan(&n); err != nil {
			return nil, fmt.Errorf("count %s: %w", table, err)
		}
		counts[table] = n
	}
	return counts, nil
}

func (s *SQLiteStorage) RecordSchemaHealth(ctx context.Context, h *types.SchemaHealth) (int64, error) {
	return recordSchemaHealth(ctx, s.db, h)
}
func (s *SQLiteStorage) LatestSchemaHealth(ctx context.Context) (*types.SchemaHealth, error) {
	return latestSchemaHealth(ctx, s.db)
}
func (s *SQLiteStorage) TableCounts(ctx context.Context) (map[string]int, error) {
	return tableCounts(ctx, s.db)
}
