package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/devhaven/memoryd/internal/types"
)

func insertFact(ctx context.Context, e execer, f *types.Fact) (int64, error) {
	var objectEntityID sql.NullInt64
	if f.ObjectEntityID != nil {
		objectEntityID = sql.NullInt64{Int64: *f.ObjectEntityID, Valid: true}
	}
	res, err := e.ExecContext(ctx, `
INSERT INTO facts (
    subject_entity_id, predicate, object_entity_id, object_literal, datatype,
    polarity, valid_from, valid_to, status, confidence, created_from, created_at,
    scope, project_path, embedding_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, CURRENT_TIMESTAMP, ?, ?, ?)`,
		f.SubjectEntityID, f.Predicate, objectEntityID, f.ObjectLiteral, f.Datatype,
		f.Polarity, f.ValidFrom, f.ValidTo, f.Status, f.Confidence, f.CreatedFrom,
		f.Scope, f.ProjectPath, f.EmbeddingJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("insert fact %s: %w", f.Predicate, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fact last insert id: %w", err)
	}
	return id, nil
}

func updateFact(ctx context.Context, e execer, f *types.Fact) error {
	_, err := e.ExecContext(ctx, `
UPDATE facts SET
    status = ?, valid_to = ?, confidence = ?, embedding_json = ?
WHERE id = ?`, f.Status, f.ValidTo, f.Confidence, f.EmbeddingJSON, f.ID)
	if err != nil {
		return fmt.Errorf("update fact %d: %w", f.ID, err)
	}
	return nil
}

func getFact(ctx context.Context, e execer, id int64) (*types.Fact, error) {
	row := e.QueryRowContext(ctx, factSelectColumns+` WHERE id = ?`, id)
	f, err := scanFact(row)
	if err != nil {
		return nil, fmt.Errorf("get fact %d: %w", id, wrapNotFound(err))
	}
	return f, nil
}

const factSelectColumns = `
SELECT id, subject_entity_id, predicate, object_entity_id, object_literal, datatype,
       polarity, valid_from, valid_to, status, confidence, created_from, created_at,
       scope, project_path, embedding_json
FROM facts`

func scanFact(row *sql.Row) (*types.Fact, error) {
	var f types.Fact
	var objectEntityID sql.NullInt64
	var validTo sql.NullTime
	if err := row.Scan(
		&f.ID, &f.SubjectEntityID, &f.Predicate, &objectEntityID, &f.ObjectLiteral, &f.Datatype,
		&f.Polarity, &f.ValidFrom, &validTo, &f.Status, &f.Confidence, &f.CreatedFrom, &f.CreatedAt,
		&f.Scope, &f.ProjectPath, &f.EmbeddingJSON,
	); err != nil {
		return nil, err
	}
	if objectEntityID.Valid {
		f.ObjectEntityID = &objectEntityID.Int64
	}
	if validTo.Valid {
		f.ValidTo = &validTo.Time
	}
	return &f, nil
}

func factsForSlot(ctx context.Context, e execer, subjectEntityID int64, predicate, scope, projectPath string) ([]*types.Fact, error) {
	rows, err := e.QueryContext(ctx, factSelectColumns+`
WHERE subject_entity_id = ? AND predicate = ? AND scope = ? AND project_path = ? AND status = 'active'
ORDER BY created_at DESC`, subjectEntityID, predicate, scope, projectPath)
	if err != nil {
		return nil, fmt.Errorf("query facts for slot: %w", err)
	}
	defer rows.Close()
	return scanFactRows(rows)
}

func factsWithoutEmbeddings(ctx context.Context, e execer, limit int) ([]*types.Fact, error) {
	rows, err := e.QueryContext(ctx, factSelectColumns+`
WHERE (embedding_json IS NULL OR embedding_json = '') AND status = 'active'
ORDER BY created_at ASC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query facts without embeddings: %w", err)
	}
	defer rows.Close()
	return scanFactRows(rows)
}

func factsWithEmbeddings(ctx context.Context, e execer, scope, projectPath string) ([]*types.Fact, error) {
	query := factSelectColumns + ` WHERE embedding_json != '' AND status = 'active'`
	var args []any
	if scope == types.ScopeProject {
		query += ` AND ((scope = 'project' AND project_path = ?) OR scope = 'global')`
		args = append(args, projectPath)
	} else if scope == types.ScopeGlobal {
		query += ` AND scope = 'global'`
	}
	rows, err := e.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("query facts with embeddings: %w", err)
	}
	defer rows.Close()
	return scanFactRows(rows)
}

func factsExpiring(ctx context.Context, e execer, status string, cutoff string) ([]*types.Fact, error) {
	rows, err := e.QueryContext(ctx, factSelectColumns+`
WHERE status = ? AND created_at < ?`, status, cutoff)
	if err != nil {
		return nil, fmt.Errorf("query expiring facts: %w", err)
	}
	defer rows.Close()
	return scanFactRows(rows)
}

func scanFactRows(rows *sql.Rows) ([]*types.Fact, error) {
	var out []*types.Fact
	for rows.Next() {
		var f types.Fact
		var objectEntityID sql.NullInt64
		var validTo sql.NullTime
		if err := rows.Scan(
			&f.ID, &f.SubjectEntityID, &f.Predicate, &objectEntityID, &f.ObjectLiteral, &f.Datatype,
			&f.Polarity, &f.ValidFrom, &validTo, &f.Status, &f.Confidence, &f.CreatedFrom, &f.CreatedAt,
			&f.Scope, &f.ProjectPath, &f.EmbeddingJSON,
		); err != nil {
			return nil, fmt.Errorf("scan fact: %w", err)
		}
		if objectEntityID.Valid {
			f.ObjectEntityID = &objectEntityID.Int64
		}
		if validTo.Valid {
			f.ValidTo = &validTo.Time
		}
		out = append(out, &f)
	}
	return out, rows.Err()
}

func setFactEmbedding(ctx context.Context, e execer, factID int64, embeddingJSON string) error {
	if _, err := e.ExecContext(ctx, `UPDATE facts SET embedding_json = ? WHERE id = ?`, embeddingJSON, factID); err != nil {
		return fmt.Errorf("set embedding for fact %d: %w", factID, err)
	}
	return nil
}

func (s *SQLiteStorage) InsertFact(ctx context.Context, f *types.Fact) (int64, error) { return insertFact(ctx, s.db, f) }
func (s *SQLiteStorage) UpdateFact(ctx context.Context, f *types.Fact) error           { return updateFact(ctx, s.db, f) }
func (s *SQLiteStorage) GetFact(ctx context.Context, id int64) (*types.Fact, error)    { return getFact(ctx, s.db, id) }
func (s *SQLiteStorage) FactsForSlot(ctx context.Context, subjectEntityID int64, predicate, scope, projectPath string) ([]*types.Fact, error) {
	return factsForSlot(ctx, s.db, subjectEntityID, predicate, scope, projectPath)
}
func (s *SQLiteStorage) FactsWithoutEmbeddings(ctx context.Context, limit int) ([]*types.Fact, error) {
	return factsWithoutEmbeddings(ctx, s.db, limit)
}
func (s *SQLiteStorage) FactsWithEmbeddings(ctx context.Context, scope, projectPath string) ([]*types.Fact, error) {
	return factsWithEmbeddings(ctx, s.db, scope, projectPath)
}
func (s *SQLiteStorage) FactsExpiring(ctx context.Context, status, cutoff string) ([]*types.Fact, error) {
	return factsExpiring(ctx, s.db, status, cutoff)
}
func (s *SQLiteStorage) SetFactEmbedding(ctx context.Context, factID int64, embeddingJSON string) error {
	return setFactEmbedding(ctx, s.db, factID, embeddingJSON)
}

func (t *sqlTransaction) InsertFact(ctx context.Context, f *types.Fact) (int64, error) { return insertFact(ctx, t.tx, f) }
func (t *sqlTransaction) UpdateFact(ctx context.Context, f *types.Fact) error           { return updateFact(ctx, t.tx, f) }
func (t *sqlTransaction) FactsForSlot(ctx context.Context, subjectEntityID int64, predicate, scope, projectPath string) ([]*types.Fact, error) {
	return factsForSlot(ctx, t.tx, subjectEntityID, predicate, scope, projectPath)
}
