package sqlite

import (
	"context"
	"database/sql"
	"fmt"
	"strings"

	"github.com/devhaven/memoryd/internal/types"
)

func insertProvenance(ctx context.Context, e execer, p *types.Provenance) (int64, error) {
	var contentItemID, attributionEntityID sql.NullInt64
	if p.ContentItemID != nil {
		contentItemID = sql.NullInt64{Int64: *p.ContentItemID, Valid: true}
	}
	if p.AttributionEntityID != nil {
		attributionEntityID = sql.NullInt64{Int64: *p.AttributionEntityID, Valid: true}
	}
	res, err := e.ExecContext(ctx, `
INSERT INTO provenance (fact_id, content_item_id, quote, attribution_entity_id, strength)
VALUES (?, ?, ?, ?, ?)`, p.FactID, contentItemID, p.Quote, attributionEntityID, p.Strength)
	if err != nil {
		return 0, fmt.Errorf("insert provenance for fact %d: %w", p.FactID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("provenance last insert id: %w", err)
	}
	return id, nil
}

func provenanceForFact(ctx context.Context, e execer, factID int64) ([]*types.Provenance, error) {
	rows, err := e.QueryContext(ctx, `
SELECT id, fact_id, content_item_id, quote, attribution_entity_id, strength
FROM provenance WHERE fact_id = ?`, factID)
	if err != nil {
		return nil, fmt.Errorf("query provenance for fact %d: %w", factID, err)
	}
	defer rows.Close()
	return scanProvenanceRows(rows)
}

// provenanceForFacts loads provenance for every id in factIDs with a single
// query, so a result set of N facts costs one round trip rather than N.
func provenanceForFacts(ctx context.Context, e execer, factIDs []int64) (map[int64][]*types.Provenance, error) {
	out := make(map[int64][]*types.Provenance, len(factIDs))
	if len(factIDs) == 0 {
		return out, nil
	}

	placeholders := make([]string, len(factIDs))
	args := make([]any, len(factIDs))
	for i, id := range factIDs {
		placeholders[i] = "?"
		args[i] = id
	}

	rows, err := e.QueryContext(ctx, fmt.Sprintf(`
SELECT id, fact_id, content_item_id, quote, attribution_entity_id, strength
FROM provenance WHERE fact_id IN (%s)`, strings.Join(placeholders, ",")), args...)
	if err != nil {
		return nil, fmt.Errorf("query provenance for %d facts: %w", len(factIDs), err)
	}
	defer rows.Close()

	all, err := scanProvenanceRows(rows)
	if err != nil {
		return nil, err
	}
	for _, p := range all {
		out[p.FactID] = append(out[p.FactID], p)
	}
	return out, nil
}

func orphanProvenance(ctx context.Context, e execer, limit int) ([]*types.Provenance, error) {
	rows, err := e.QueryContext(ctx, `
SELECT p.id, p.fact_id, p.content_item_id, p.quote, p.attribution_entity_id, p.strength
FROM provenance p
LEFT JOIN facts f ON f.id = p.fact_id
WHERE f.id IS NULL
LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("query orphan provenance: %w", err)
	}
	defer rows.Close()
	return scanProvenanceRows(rows)
}

func scanProvenanceRows(rows *sql.Rows) ([]*types.Provenance, error) {
	var out []*types.Provenance
	for rows.Next() {
		var p types.Provenance
		var contentItemID, attributionEntityID sql.NullInt64
		if err := rows.Scan(&p.ID, &p.FactID, &contentItemID, &p.Quote, &attributionEntityID, &p.Strength); err != nil {
			return nil, fmt.Errorf("scan provenance: %w", err)
		}
		if contentItemID.Valid {
			p.ContentItemID = &contentItemID.Int64
		}
		if attributionEntityID.Valid {
			p.AttributionEntityID = &attributionEntityID.Int64
		}
		out = append(out, &p)
	}
	return out, rows.Err()
}

func contentItemHasProvenance(ctx context.Context, e execer, contentItemID int64) (bool, error) {
	row := e.QueryRowContext(ctx, `SELECT EXISTS(SELECT 1 FROM provenance WHERE content_item_id = ?)`, contentItemID)
	var exists bool
	if err := row.Scan(&exists); err != nil {
		return false, fmt.Errorf("check provenance for content_item %d: %w", contentItemID, err)
	}
	return exists, nil
}

func deleteProvenance(ctx context.Context, e execer, id int64) error {
	if _, err := e.ExecContext(ctx, `DELETE FROM provenance WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete provenance %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStorage) InsertProvenance(ctx context.Context, p *types.Provenance) (int64, error) {
	return insertProvenance(ctx, s.db, p)
}
func (s *SQLiteStorage) ProvenanceForFact(ctx context.Context, factID int64) ([]*types.Provenance, error) {
	return provenanceForFact(ctx, s.db, factID)
}
func (s *SQLiteStorage) ProvenanceForFacts(ctx context.Context, factIDs []int64) (map[int64][]*types.Provenance, error) {
	return provenanceForFacts(ctx, s.db, factIDs)
}
func (s *SQLiteStorage) OrphanProvenance(ctx context.Context, limit int) ([]*types.Provenance, error) {
	return orphanProvenance(ctx, s.db, limit)
}
func (s *SQLiteStorage) DeleteProvenance(ctx context.Context, id int64) error {
	return deleteProvenance(ctx, s.db, id)
}
func (s *SQLiteStorage) ContentItemHasProvenance(ctx context.Context, contentItemID int64) (bool, error) {
	return contentItemHasProvenance(ctx, s.db, contentItemID)
}

func (t *sqlTransaction) InsertProvenance(ctx context.Context, p *types.Provenance) (int64, error) {
	return insertProvenance(ctx, t.tx, p)
}
