package sqlite

import (
	"context"
	"fmt"

	"github.com/devhaven/memoryd/internal/types"
)

func getDeltaCursor(ctx context.Context, e execer, sessionID, transcriptPath string) (*types.DeltaCursor, error) {
	row := e.QueryRowContext(ctx, `
SELECT session_id, transcript_path, last_byte_offset, updated_at
FROM delta_cursors WHERE session_id = ? AND transcript_path = ?`, sessionID, transcriptPath)

	var c types.DeltaCursor
	if err := row.Scan(&c.SessionID, &c.TranscriptPath, &c.LastByteOffset, &c.UpdatedAt); err != nil {
		return nil, fmt.Errorf("get delta cursor: %w", wrapNotFound(err))
	}
	return &c, nil
}

func updateDeltaCursor(ctx context.Context, e execer, cursor *types.DeltaCursor) error {
	_, err := e.ExecContext(ctx, `
INSERT INTO delta_cursors (session_id, transcript_path, last_byte_offset, updated_at)
VALUES (?, ?, ?, CURRENT_TIMESTAMP)
ON CONFLICT(session_id, transcript_path) DO UPDATE SET
    last_byte_offset = excluded.last_byte_offset,
    updated_at = CURRENT_TIMESTAMP
`, cursor.SessionID, cursor.TranscriptPath, cursor.LastByteOffset)
	if err != nil {
		return fmt.Errorf("update delta cursor: %w", err)
	}
	return nil
}

func (s *SQLiteStorage) GetDeltaCursor(ctx context.Context, sessionID, transcriptPath string) (*types.DeltaCursor, error) {
	return getDeltaCursor(ctx, s.db, sessionID, transcriptPath)
}

func (s *SQLiteStorage) UpdateDeltaCursor(ctx context.Context, cursor *types.DeltaCursor) error {
	return updateDeltaCursor(ctx, s.db, cursor)
}

func (t *sqlTransaction) GetDeltaCursor(ctx context.Context, sessionID, transcriptPath string) (*types.DeltaCursor, error) {
	return getDeltaCursor(ctx, t.tx, sessionID, transcriptPath)
}

func (t *sqlTransaction) UpdateDeltaCursor(ctx context.Context, cursor *types.DeltaCursor) error {
	return updateDeltaCursor(ctx, t.tx, cursor)
}
