package sqlite

import (
	"context"
	"fmt"

	"github.com/devhaven/memoryd/internal/types"
)

func insertFactLink(ctx context.Context, e execer, link *types.FactLink) (int64, error) {
	res, err := e.ExecContext(ctx, `
INSERT INTO fact_links (from_fact_id, to_fact_id, link_type) VALUES (?, ?, ?)`,
		link.FromFactID, link.ToFactID, link.LinkType)
	if err != nil {
		return 0, fmt.Errorf("insert fact_link %d->%d: %w", link.FromFactID, link.ToFactID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("fact_link last insert id: %w", err)
	}
	return id, nil
}

func insertConflict(ctx context.Context, e execer, c *types.Conflict) (int64, error) {
	res, err := e.ExecContext(ctx, `
INSERT INTO conflicts (fact_a_id, fact_b_id, status, detected_at, notes)
VALUES (?, ?, ?, CURRENT_TIMESTAMP, ?)`, c.FactAID, c.FactBID, c.Status, c.Notes)
	if err != nil {
		return 0, fmt.Errorf("insert conflict %d/%d: %w", c.FactAID, c.FactBID, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("conflict last insert id: %w", err)
	}
	return id, nil
}

func openConflicts(ctx context.Context, e execer) ([]*types.Conflict, error) {
	rows, err := e.QueryContext(ctx, `
SELECT id, fact_a_id, fact_b_id, status, detected_at, notes
FROM conflicts WHERE status = 'open' ORDER BY detected_at ASC`)
	if err != nil {
		return nil, fmt.Errorf("query open conflicts: %w", err)
	}
	defer rows.Close()

	var out []*types.Conflict
	for rows.Next() {
		var c types.Conflict
		if err := rows.Scan(&c.ID, &c.FactAID, &c.FactBID, &c.Status, &c.DetectedAt, &c.Notes); err != nil {
			return nil, fmt.Errorf("scan conflict: %w", err)
		}
		out = append(out, &c)
	}
	return out, rows.Err()
}

func resolveConflict(ctx context.Context, e execer, id int64, notes string) error {
	_, err := e.ExecContext(ctx, `UPDATE conflicts SET status = 'resolved', notes = ? WHERE id = ?`, notes, id)
	if err != nil {
		return fmt.Errorf("resolve conflict %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStorage) InsertFactLink(ctx context.Context, link *types.FactLink) (int64, error) {
	return insertFactLink(ctx, s.db, link)
}
func (s *SQLiteStorage) InsertConflict(ctx context.Context, c *types.Conflict) (int64, error) {
	return insertConflict(ctx, s.db, c)
}
func (s *SQLiteStorage) OpenConflicts(ctx context.Context) ([]*types.Conflict, error) {
	return openConflicts(ctx, s.db)
}
func (s *SQLiteStorage) ResolveConflict(ctx context.Context, id int64, notes string) error {
	return resolveConflict(ctx, s.db, id, notes)
}

func (t *sqlTransaction) InsertFactLink(ctx context.Context, link *types.FactLink) (int64, error) {
	return insertFactLink(ctx, t.tx, link)
}
func (t *sqlTransaction) InsertConflict(ctx context.Context, c *types.Conflict) (int64, error) {
	return insertConflict(ctx, t.tx, c)
}
