// Package validator implements the schema validator and stuck-operation
// tracker: a read-only sweep that checks the store's shape and internal
// consistency and records the result, plus recovery for crashed
// long-running operations.
package validator

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/devhaven/memoryd/internal/embedding"
	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/types"
)

// expectedTables lists every table this validator expects to find, and the
// columns it considers critical on each. A table absent from a freshly
// created database (rather than merely empty) is always an error.
var expectedTables = map[string][]string{
	"content_items":      {"id", "transcript_path", "text_hash", "project_path"},
	"delta_cursors":      {"session_id", "transcript_path", "last_byte_offset"},
	"entities":           {"id", "type", "slug", "canonical_name"},
	"entity_aliases":     {"id", "entity_id", "alias"},
	"facts":              {"id", "subject_entity_id", "predicate", "status", "scope"},
	"provenance":         {"id", "fact_id", "content_item_id"},
	"fact_links":         {"id", "from_fact_id", "to_fact_id", "link_type"},
	"conflicts":          {"id", "fact_a_id", "fact_b_id", "status"},
	"tool_calls":         {"id", "content_item_id", "tool_name"},
	"operation_progress": {"id", "operation_type", "status"},
	"schema_health":      {"id", "checked_at", "validation_status"},
}

// expectedIndexes lists indexes whose absence is only a warning, not an
// error: a missing index degrades performance, it doesn't corrupt data.
var expectedIndexes = map[string][]string{
	"content_items": {"idx_content_items_hash_session", "idx_content_items_ingested_at"},
	"entities":      {"idx_entities_slug"},
}

// Report is the result of one validation run.
type Report struct {
	Valid  bool
	Issues []types.ValidationIssue
}

// Run executes every check against store, records a SchemaHealth row
// summarizing the outcome, and returns the report.
func Run(ctx context.Context, store storage.Storage) (Report, error) {
	var issues []types.ValidationIssue

	issues = append(issues, checkTablesAndColumns(ctx, store)...)
	issues = append(issues, checkIndexes(ctx, store)...)

	orphanIssues, err := checkOrphans(ctx, store)
	if err != nil {
		return Report{}, fmt.Errorf("check orphans: %w", err)
	}
	issues = append(issues, orphanIssues...)

	enumIssues, err := checkEnums(ctx, store)
	if err != nil {
		return Report{}, fmt.Errorf("check enums: %w", err)
	}
	issues = append(issues, enumIssues...)

	embeddingIssues, err := checkEmbeddingLengths(ctx, store)
	if err != nil {
		return Report{}, fmt.Errorf("check embedding lengths: %w", err)
	}
	issues = append(issues, embeddingIssues...)

	report := Report{Valid: !hasErrors(issues), Issues: issues}
	if err := recordHealth(ctx, store, report); err != nil {
		return report, fmt.Errorf("record schema health: %w", err)
	}
	return report, nil
}

func hasErrors(issues []types.ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == types.SeverityError {
			return true
		}
	}
	return false
}

func hasWarnings(issues []types.ValidationIssue) bool {
	for _, i := range issues {
		if i.Severity == types.SeverityWarning {
			return true
		}
	}
	return false
}

func checkTablesAndColumns(ctx context.Context, store storage.Storage) []types.ValidationIssue {
	var issues []types.ValidationIssue
	db := store.UnderlyingDB()

	for table, columns := range expectedTables {
		var name string
		err := db.QueryRowContext(ctx, `SELECT name FROM sqlite_master WHERE type='table' AND name=?`, table).Scan(&name)
		if err != nil {
			issues = append(issues, types.ValidationIssue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("expected table %q is missing", table),
			})
			continue
		}

		present, err := columnSet(ctx, store, table)
		if err != nil {
			issues = append(issues, types.ValidationIssue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("could not inspect columns of %q: %v", table, err),
			})
			continue
		}
		for _, col := range columns {
			if !present[col] {
				issues = append(issues, types.ValidationIssue{
					Severity: types.SeverityError,
					Message:  fmt.Sprintf("table %q is missing expected column %q", table, col),
				})
			}
		}
	}
	return issues
}

// columnSet returns the set of column names PRAGMA table_info reports for
// table. SQLite doesn't allow binding the table name as a query parameter
// in a PRAGMA, so table must come only from the fixed expectedTables keys,
// never from user input.
func columnSet(ctx context.Context, store storage.Storage, table string) (map[string]bool, error) {
	rows, err := store.UnderlyingDB().QueryContext(ctx, `PRAGMA table_info(`+table+`)`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	present := make(map[string]bool)
	for rows.Next() {
		var (
			cid        int
			name       string
			ctype      string
			notnull    int
			dfltValue  any
			pk         int
		)
		if err := rows.Scan(&cid, &name, &ctype, &notnull, &dfltValue, &pk); err != nil {
			return nil, err
		}
		present[name] = true
	}
	return present, rows.Err()
}

func checkIndexes(ctx context.Context, store storage.Storage) []types.ValidationIssue {
	var issues []types.ValidationIssue
	db := store.UnderlyingDB()

	for table, indexes := range expectedIndexes {
		present := make(map[string]bool)
		rows, err := db.QueryContext(ctx, `SELECT name FROM sqlite_master WHERE type='index' AND tbl_name=?`, table)
		if err != nil {
			issues = append(issues, types.ValidationIssue{
				Severity: types.SeverityWarning,
				Message:  fmt.Sprintf("could not inspect indexes of %q: %v", table, err),
			})
			continue
		}
		for rows.Next() {
			var name string
			if err := rows.Scan(&name); err == nil {
				present[name] = true
			}
		}
		rows.Close()

		for _, idx := range indexes {
			if !present[idx] {
				issues = append(issues, types.ValidationIssue{
					Severity: types.SeverityWarning,
					Message:  fmt.Sprintf("expected index %q on %q is missing", idx, table),
				})
			}
		}
	}
	return issues
}

func checkOrphans(ctx context.Context, store storage.Storage) ([]types.ValidationIssue, error) {
	var issues []types.ValidationIssue
	db := store.UnderlyingDB()

	orphanChecks := []struct {
		label string
		query string
	}{
		{"provenance", `SELECT COUNT(*) FROM provenance WHERE fact_id NOT IN (SELECT id FROM facts)`},
		{"fact_links (from)", `SELECT COUNT(*) FROM fact_links WHERE from_fact_id NOT IN (SELECT id FROM facts)`},
		{"fact_links (to)", `SELECT COUNT(*) FROM fact_links WHERE to_fact_id NOT IN (SELECT id FROM facts)`},
		{"tool_calls", `SELECT COUNT(*) FROM tool_calls WHERE content_item_id NOT IN (SELECT id FROM content_items)`},
	}
	for _, check := range orphanChecks {
		var n int
		if err := db.QueryRowContext(ctx, check.query).Scan(&n); err != nil {
			return nil, fmt.Errorf("count orphaned %s: %w", check.label, err)
		}
		if n > 0 {
			issues = append(issues, types.ValidationIssue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("%d orphaned %s rows", n, check.label),
			})
		}
	}
	return issues, nil
}

func checkEnums(ctx context.Context, store storage.Storage) ([]types.ValidationIssue, error) {
	var issues []types.ValidationIssue
	db := store.UnderlyingDB()

	var badScope int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts WHERE scope NOT IN ('project', 'global')`).Scan(&badScope); err != nil {
		return nil, fmt.Errorf("count facts with invalid scope: %w", err)
	}
	if badScope > 0 {
		issues = append(issues, types.ValidationIssue{
			Severity: types.SeverityError,
			Message:  fmt.Sprintf("%d facts have a scope outside {project, global}", badScope),
		})
	}

	var looseStatus int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM facts WHERE status NOT IN ('active', 'superseded')`).Scan(&looseStatus); err != nil {
		return nil, fmt.Errorf("count facts outside the looser active/superseded check: %w", err)
	}
	if looseStatus > 0 {
		issues = append(issues, types.ValidationIssue{
			Severity: types.SeverityWarning,
			Message:  fmt.Sprintf("%d facts have a status outside {active, superseded} (disputed/proposed/expired are valid but worth a look)", looseStatus),
		})
	}

	var badOp int
	if err := db.QueryRowContext(ctx, `SELECT COUNT(*) FROM operation_progress WHERE status NOT IN ('running', 'completed', 'failed')`).Scan(&badOp); err != nil {
		return nil, fmt.Errorf("count operations with invalid status: %w", err)
	}
	if badOp > 0 {
		issues = append(issues, types.ValidationIssue{
			Severity: types.SeverityError,
			Message:  fmt.Sprintf("%d operation_progress rows have a status outside {running, completed, failed}", badOp),
		})
	}
	return issues, nil
}

// checkEmbeddingLengths samples the first 10 non-null embeddings and
// confirms each decodes to exactly embedding.Dim floats.
func checkEmbeddingLengths(ctx context.Context, store storage.Storage) ([]types.ValidationIssue, error) {
	var issues []types.ValidationIssue
	db := store.UnderlyingDB()

	rows, err := db.QueryContext(ctx, `SELECT id, embedding_json FROM facts WHERE embedding_json != '' LIMIT 10`)
	if err != nil {
		return nil, fmt.Errorf("sample embeddings: %w", err)
	}
	defer rows.Close()

	for rows.Next() {
		var id int64
		var embJSON string
		if err := rows.Scan(&id, &embJSON); err != nil {
			return nil, fmt.Errorf("scan sampled embedding: %w", err)
		}
		var vec []float64
		if err := json.Unmarshal([]byte(embJSON), &vec); err != nil {
			issues = append(issues, types.ValidationIssue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("fact %d has an unparseable embedding_json", id),
			})
			continue
		}
		if len(vec) != embedding.Dim {
			issues = append(issues, types.ValidationIssue{
				Severity: types.SeverityError,
				Message:  fmt.Sprintf("fact %d embedding has length %d, want %d", id, len(vec), embedding.Dim),
			})
		}
	}
	return issues, rows.Err()
}

func recordHealth(ctx context.Context, store storage.Storage, report Report) error {
	status := types.HealthHealthy
	if hasErrors(report.Issues) {
		status = types.HealthCorrupt
	} else if hasWarnings(report.Issues) {
		status = types.HealthDegraded
	}

	issuesJSON, err := json.Marshal(report.Issues)
	if err != nil {
		return fmt.Errorf("marshal issues: %w", err)
	}
	counts, err := store.TableCounts(ctx)
	if err != nil {
		return fmt.Errorf("load table counts: %w", err)
	}
	countsJSON, err := json.Marshal(counts)
	if err != nil {
		return fmt.Errorf("marshal table counts: %w", err)
	}
	version, err := store.SchemaVersion(ctx)
	if err != nil {
		return fmt.Errorf("load schema version: %w", err)
	}

	_, err = store.RecordSchemaHealth(ctx, &types.SchemaHealth{
		SchemaVersion:    version,
		ValidationStatus: status,
		IssuesJSON:       string(issuesJSON),
		TableCountsJSON:  string(countsJSON),
	})
	return err
}

// StuckAfter is the age beyond which a "running" OperationProgress row is
// considered the product of a crashed writer.
const StuckAfter = 30 * time.Minute

// RecoverStuckOperations resets every operation that has been "running"
// longer than StuckAfter back to "failed", so a new run can start in its
// place, and returns how many it reset.
func RecoverStuckOperations(ctx context.Context, store storage.Storage) (int, error) {
	stuck, err := store.StuckOperations(ctx, int(StuckAfter.Seconds()))
	if err != nil {
		return 0, fmt.Errorf("find stuck operations: %w", err)
	}
	for _, op := range stuck {
		if err := store.ResetOperation(ctx, op.ID); err != nil {
			return 0, fmt.Errorf("reset stuck operation %d: %w", op.ID, err)
		}
	}
	return len(stuck), nil
}
