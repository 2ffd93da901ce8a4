package sqlite

import (
	"context"
	"fmt"

	"github.com/devhaven/memoryd/internal/types"
)

func startOperation(ctx context.Context, e execer, op *types.OperationProgress) (int64, error) {
	res, err := e.ExecContext(ctx, `
INSERT INTO operation_progress (operation_type, scope, status, total_items, processed_items, checkpoint_data, started_at)
VALUES (?, ?, 'running', ?, 0, '', CURRENT_TIMESTAMP)`, op.OperationType, op.Scope, op.TotalItems)
	if err != nil {
		return 0, fmt.Errorf("start operation %s: %w", op.OperationType, err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return 0, fmt.Errorf("operation last insert id: %w", err)
	}
	return id, nil
}

func updateOperationProgress(ctx context.Context, e execer, id int64, processed int, checkpoint string) error {
	_, err := e.ExecContext(ctx, `
UPDATE operation_progress SET processed_items = ?, checkpoint_data = ? WHERE id = ?`, processed, checkpoint, id)
	if err != nil {
		return fmt.Errorf("update operation %d progress: %w", id, err)
	}
	return nil
}

func finishOperation(ctx context.Context, e execer, id int64, status string) error {
	_, err := e.ExecContext(ctx, `
UPDATE operation_progress SET status = ?, completed_at = CURRENT_TIMESTAMP WHERE id = ?`, status, id)
	if err != nil {
		return fmt.Errorf("finish operation %d: %w", id, err)
	}
	return nil
}

func stuckOperations(ctx context.Context, e execer, staleAfterSeconds int) ([]*types.OperationProgress, error) {
	rows, err := e.QueryContext(ctx, `
SELECT id, operation_type, scope, status, total_items, processed_items, checkpoint_data, started_at, completed_at
FROM operation_progress
WHERE status = 'running'
  AND started_at < datetime('now', printf('-%d seconds', ?))`, staleAfterSeconds)
	if err != nil {
		return nil, fmt.Errorf("query stuck operations: %w", err)
	}
	defer rows.Close()

	var out []*types.OperationProgress
	for rows.Next() {
		var op types.OperationProgress
		var completedAt *string
		if err := rows.Scan(&op.ID, &op.OperationType, &op.Scope, &op.Status, &op.TotalItems,
			&op.ProcessedItems, &op.CheckpointData, &op.StartedAt, &completedAt); err != nil {
			return nil, fmt.Errorf("scan stuck operation: %w", err)
		}
		out = append(out, &op)
	}
	return out, rows.Err()
}

func resetOperation(ctx context.Context, e execer, id int64) error {
	_, err := e.ExecContext(ctx, `
UPDATE operation_progress SET status = 'failed', completed_at = CURRENT_TIMESTAMP WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("reset stuck operation %d: %w", id, err)
	}
	return nil
}

func (s *SQLiteStorage) StartOperation(ctx context.Context, op *types.OperationProgress) (int64, error) {
	return startOperation(ctx, s.db, op)
}
func (s *SQLiteStorage) UpdateOperationProgress(ctx context.Context, id int64, processed int, checkpoint string) error {
	return updateOperationProgress(ctx, s.db, id, processed, checkpoint)
}
func (s *SQLiteStorage) FinishOperation(ctx context.Context, id int64, status string) error {
	return finishOperation(ctx, s.db, id, status)
}
func (s *SQLiteStorage) StuckOperations(ctx context.Context, staleAfterSeconds int) ([]*types.OperationProgress, error) {
	return stuckOperations(ctx, s.db, staleAfterSeconds)
}
func (s *SQLiteStorage) ResetOperation(ctx context.Context, id int64) error {
	return resetOperation(ctx, s.db, id)
}
