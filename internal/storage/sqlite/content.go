package sqlite

import (
	"context"
	"database/sql"
	"fmt"

	"github.com/devhaven/memoryd/internal/types"
)

func upsertContentItem(ctx context.Context, e execer, item *types.ContentItem) (int64, error) {
	_, err := e.ExecContext(ctx, `
INSERT INTO content_items (
    source, session_id, transcript_path, project_path, occurred_at,
    text_hash, byte_len, raw_text, source_mtime, git_branch, cwd,
    host_version, thinking_level, metadata_json
) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
ON CONFLICT(text_hash, session_id) DO UPDATE SET
    source_mtime = excluded.source_mtime
`,
		item.Source, item.SessionID, item.TranscriptPath, item.ProjectPath, item.OccurredAt,
		item.TextHash, item.ByteLen, item.RawText, item.SourceMtime, item.GitBranch, item.Cwd,
		item.HostVersion, item.ThinkingLevel, item.MetadataJSON,
	)
	if err != nil {
		return 0, fmt.Errorf("upsert content_item: %w", err)
	}
	// LastInsertId is unreliable here: when ON CONFLICT takes the UPDATE
	// branch it keeps the connection's previous insert, so look the row up.
	existing, err := contentItemByHashAndSession(ctx, e, item.TextHash, item.SessionID)
	if err != nil {
		return 0, err
	}
	return existing.ID, nil
}

func contentItemByHashAndSession(ctx context.Context, e execer, hash, sessionID string) (*types.ContentItem, error) {
	row := e.QueryRowContext(ctx, `SELECT id FROM content_items WHERE text_hash = ? AND session_id = ?`, hash, sessionID)
	var id int64
	if err := row.Scan(&id); err != nil {
		return nil, fmt.Errorf("content_item by hash+session: %w", wrapNotFound(err))
	}
	return &types.ContentItem{ID: id, TextHash: hash, SessionID: sessionID}, nil
}

func contentItemByTranscriptAndMtime(ctx context.Context, e execer, transcriptPath, mtime string) (*types.ContentItem, error) {
	row := e.QueryRowContext(ctx, `
SELECT id, source, session_id, transcript_path, project_path, occurred_at, ingested_at,
       text_hash, byte_len, raw_text, source_mtime, git_branch, cwd, host_version,
       thinking_level, metadata_json
FROM content_items WHERE transcript_path = ? AND source_mtime = ?
ORDER BY ingested_at DESC LIMIT 1`, transcriptPath, mtime)
	item, err := scanContentItem(row)
	if err != nil {
		return nil, fmt.Errorf("content_item by transcript+mtime: %w", wrapNotFound(err))
	}
	return item, nil
}

func scanContentItem(row *sql.Row) (*types.ContentItem, error) {
	var item types.ContentItem
	var occurredAt sql.NullTime
	if err := row.Scan(
		&item.ID, &item.Source, &item.SessionID, &item.TranscriptPath, &item.ProjectPath, &occurredAt,
		&item.IngestedAt, &item.TextHash, &item.ByteLen, &item.RawText, &item.SourceMtime, &item.GitBranch,
		&item.Cwd, &item.HostVersion, &item.ThinkingLevel, &item.MetadataJSON,
	); err != nil {
		return nil, err
	}
	if occurredAt.Valid {
		item.OccurredAt = &occurredAt.Time
	}
	return &item, nil
}

func contentItemsOlderThan(ctx context.Context, e execer, cutoff string, limit int) ([]*types.ContentItem, error) {
	rows, err := e.QueryContext(ctx, `
SELECT id, source, session_id, transcript_path, project_path, occurred_at, ingested_at,
       text_hash, byte_len, raw_text, source_mtime, git_branch, cwd, host_version,
       thinking_level, metadata_json
FROM content_items WHERE ingested_at < ? ORDER BY ingested_at ASC LIMIT ?`, cutoff, limit)
	if err != nil {
		return nil, fmt.Errorf("query old content_items: %w", err)
	}
	defer rows.Close()

	var out []*types.ContentItem
	for rows.Next() {
		var item types.ContentItem
		var occurredAt sql.NullTime
		if err := rows.Scan(
			&item.ID, &item.Source, &item.SessionID, &item.TranscriptPath, &item.ProjectPath, &occurredAt,
			&item.IngestedAt, &item.TextHash, &item.ByteLen, &item.RawText, &item.SourceMtime, &item.GitBranch,
			&item.Cwd, &item.HostVersion, &item.ThinkingLevel, &item.MetadataJSON,
		); err != nil {
			return nil, fmt.Errorf("scan content_item: %w", err)
		}
		if occurredAt.Valid {
			item.OccurredAt = &occurredAt.Time
		}
		out = append(out, &item)
	}
	return out, rows.Err()
}

func deleteContentItem(ctx context.Context, e execer, id int64) error {
	if _, err := e.ExecContext(ctx, `DELETE FROM content_items WHERE id = ?`, id); err != nil {
		return fmt.Errorf("delete content_item %d: %w", id, err)
	}
	return nil
}

func insertToolCalls(ctx context.Context, e execer, calls []*types.ToolCall) error {
	for _, c := range calls {
		if _, err := e.ExecContext(ctx, `
INSERT INTO tool_calls (content_item_id, tool_name, tool_input, tool_result, is_error, timestamp)
VALUES (?, ?, ?, ?, ?, ?)`,
			c.ContentItemID, c.ToolName, c.ToolInput, c.ToolResult, c.IsError, c.Timestamp,
		); err != nil {
			return fmt.Errorf("insert tool_call %s: %w", c.ToolName, err)
		}
	}
	return nil
}

// --- SQLiteStorage / sqlTransaction method wiring ---

func (s *SQLiteStorage) UpsertContentItem(ctx context.Context, item *types.ContentItem) (int64, error) {
	return upsertContentItem(ctx, s.db, item)
}

func (s *SQLiteStorage) ContentItemByTranscriptAndMtime(ctx context.Context, transcriptPath, mtime string) (*types.ContentItem, error) {
	return contentItemByTranscriptAndMtime(ctx, s.db, transcriptPath, mtime)
}

func (s *SQLiteStorage) ContentItemsOlderThan(ctx context.Context, cutoff string, limit int) ([]*types.ContentItem, error) {
	return contentItemsOlderThan(ctx, s.db, cutoff, limit)
}

func (s *SQLiteStorage) DeleteContentItem(ctx context.Context, id int64) error {
	return deleteContentItem(ctx, s.db, id)
}

func (s *SQLiteStorage) InsertToolCalls(ctx context.Context, calls []*types.ToolCall) error {
	return insertToolCalls(ctx, s.db, calls)
}

func (t *sqlTransaction) UpsertContentItem(ctx context.Context, item *types.ContentItem) (int64, error) {
	return upsertContentItem(ctx, t.tx, item)
}

func (t *sqlTransaction) ContentItemByTranscriptAndMtime(ctx context.Context, transcriptPath, mtime string) (*types.ContentItem, error) {
	return contentItemByTranscriptAndMtime(ctx, t.tx, transcriptPath, mtime)
}

func (t *sqlTransaction) InsertToolCalls(ctx context.Context, calls []*types.ToolCall) error {
	return insertToolCalls(ctx, t.tx, calls)
}
