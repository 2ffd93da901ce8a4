// Package ingest implements incremental, idempotent transcript ingestion,
// following a gate-then-sync shape: check whether anything changed before
// doing any work, then apply every write for one delta inside a single
// transaction.
package ingest

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"os"

	"github.com/devhaven/memoryd/internal/metadata"
	"github.com/devhaven/memoryd/internal/sanitize"
	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/transcript"
	"github.com/devhaven/memoryd/internal/types"
)

// Request describes one transcript to ingest.
type Request struct {
	Source         string
	SessionID      string
	TranscriptPath string
	ProjectPath    string
}

// Result reports what Ingest did.
type Result struct {
	Skipped       bool
	ContentItemID int64
	BytesRead     int
	ToolCalls     int
}

// Ingest performs the full ingest pipeline for one transcript:
//  1. stat the transcript file and compare its mtime against the last
//     recorded content_item for (transcript_path, mtime) — if unchanged,
//     skip entirely without touching the cursor or reading the file
//  2. load the delta cursor for (session_id, transcript_path)
//  3. read the unread byte range since the cursor
//  4. extract ambient session metadata and tool calls from the delta
//  5. sanitize privacy-tagged spans out of the raw text
//  6. compute a content hash of the sanitized text
//  7. in a single transaction: upsert the content_item, insert its tool
//     calls, index it into FTS, and advance the cursor — cursor update is
//     the transaction's last statement, so a crash before commit leaves
//     the cursor exactly where it was and a retry simply re-reads the same
//     byte range
//  8. return the outcome
//
// The whole transaction runs through store.RunInTransaction, which retries
// on SQLITE_BUSY/SQLITE_LOCKED outside the transaction boundary (see
// internal/storage/sqlite's withRetry).
func Ingest(ctx context.Context, store storage.Storage, req Request) (Result, error) {
	info, err := os.Stat(req.TranscriptPath)
	if err != nil {
		return Result{}, fmt.Errorf("stat transcript %s: %w", req.TranscriptPath, err)
	}
	mtime := info.ModTime().UTC().Format("2006-01-02T15:04:05.000000000Z")

	if existing, err := store.ContentItemByTranscriptAndMtime(ctx, req.TranscriptPath, mtime); err == nil {
		return Result{Skipped: true, ContentItemID: existing.ID}, nil
	} else if !errors.Is(err, storage.ErrNotFound) {
		return Result{}, fmt.Errorf("check existing content item: %w", err)
	}

	cursor, err := store.GetDeltaCursor(ctx, req.SessionID, req.TranscriptPath)
	if err != nil && !errors.Is(err, storage.ErrNotFound) {
		return Result{}, fmt.Errorf("load delta cursor: %w", err)
	}
	var offset int64
	if cursor != nil {
		offset = cursor.LastByteOffset
	}

	delta, err := transcript.ReadDelta(req.TranscriptPath, offset)
	if err != nil {
		return Result{}, fmt.Errorf("read transcript delta: %w", err)
	}
	if len(delta.Bytes) == 0 {
		return Result{Skipped: true}, nil
	}

	sess := metadata.ExtractSession(delta.Bytes)
	toolCalls := metadata.ExtractToolCalls(delta.Bytes)

	sanitized := sanitize.Strip(string(delta.Bytes))
	hash := sha256.Sum256([]byte(sanitized))

	item := &types.ContentItem{
		Source:         req.Source,
		SessionID:      req.SessionID,
		TranscriptPath: req.TranscriptPath,
		ProjectPath:    req.ProjectPath,
		TextHash:       hex.EncodeToString(hash[:]),
		ByteLen:        len(sanitized),
		RawText:        sanitized,
		SourceMtime:    mtime,
		GitBranch:      sess.GitBranch,
		Cwd:            sess.Cwd,
		HostVersion:    sess.HostVersion,
		ThinkingLevel:  sess.ThinkingLevel,
		MetadataJSON:   "{}",
	}

	var result Result
	err = store.RunInTransaction(ctx, func(tx storage.Transaction) error {
		id, err := tx.UpsertContentItem(ctx, item)
		if err != nil {
			return fmt.Errorf("upsert content item: %w", err)
		}

		for _, tc := range toolCalls {
			tc.ContentItemID = id
		}
		if len(toolCalls) > 0 {
			if err := tx.InsertToolCalls(ctx, toolCalls); err != nil {
				return fmt.Errorf("insert tool calls: %w", err)
			}
		}

		if err := tx.IndexContentItemFTS(ctx, id, sanitized); err != nil {
			return fmt.Errorf("index content item fts: %w", err)
		}

		if err := tx.UpdateDeltaCursor(ctx, &types.DeltaCursor{
			SessionID:      req.SessionID,
			TranscriptPath: req.TranscriptPath,
			LastByteOffset: delta.NewOffset,
		}); err != nil {
			return fmt.Errorf("advance delta cursor: %w", err)
		}

		result = Result{ContentItemID: id, BytesRead: len(delta.Bytes), ToolCalls: len(toolCalls)}
		return nil
	})
	if err != nil {
		return Result{}, fmt.Errorf("ingest %s: %w", req.TranscriptPath, err)
	}
	return result, nil
}
