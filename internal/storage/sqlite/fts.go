package sqlite

import (
	"context"
	"fmt"
)

// indexContentItemFTS is a no-op in the common case: the content_items_ai
// trigger (schema.go) keeps content_items_fts in sync automatically on
// INSERT. It exists so callers that bypass the trigger path (e.g. a bulk
// reload) can force a row back into the index, and so the Storage
// interface names indexing as an explicit step per the design note that
// FTS population must be observable, not implicit.
func indexContentItemFTS(ctx context.Context, e execer, contentItemID int64, text string) error {
	_, err := e.ExecContext(ctx, `
INSERT INTO content_items_fts(content_items_fts, rowid, raw_text) VALUES('delete', ?, ?)`, contentItemID, text)
	if err != nil {
		return fmt.Errorf("remove stale fts row for content_item %d: %w", contentItemID, err)
	}
	_, err = e.ExecContext(ctx, `INSERT INTO content_items_fts(rowid, raw_text) VALUES (?, ?)`, contentItemID, text)
	if err != nil {
		return fmt.Errorf("index content_item %d into fts: %w", contentItemID, err)
	}
	return nil
}

func searchFTS(ctx context.Context, e execer, query string, limit int) ([]int64, error) {
	rows, err := e.QueryContext(ctx, `
SELECT rowid FROM content_items_fts WHERE content_items_fts MATCH ? ORDER BY rank LIMIT ?`, query, limit)
	if err != nil {
		return nil, fmt.Errorf("fts search %q: %w", query, err)
	}
	defer rows.Close()

	var ids []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scan fts rowid: %w", err)
		}
		ids = append(ids, id)
	}
	return ids, rows.Err()
}

// rebuildFTS regenerates content_items_fts from content_items in full,
// a rebuild-on-demand migration step.
func rebuildFTS(ctx context.Context, e execer) error {
	if _, err := e.ExecContext(ctx, `INSERT INTO content_items_fts(content_items_fts) VALUES('rebuild')`); err != nil {
		return fmt.Errorf("rebuild content_items_fts: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) IndexContentItemFTS(ctx context.Context, contentItemID int64, text string) error {
	return indexContentItemFTS(ctx, s.db, contentItemID, text)
}

func (s *SQLiteStorage) SearchFTS(ctx context.Context, query string, limit int) ([]int64, error) {
	return searchFTS(ctx, s.db, query, limit)
}

func (t *sqlTransaction) IndexContentItemFTS(ctx context.Context, contentItemID int64, text string) error {
	return indexContentItemFTS(ctx, t.tx, contentItemID, text)
}
