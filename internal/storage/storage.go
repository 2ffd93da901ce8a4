// Package storage defines the interface for the memory store backend.
package storage

import (
	"context"
	"database/sql"
	"errors"

	"github.com/devhaven/memoryd/internal/types"
)

// ErrDBNotInitialized is returned when a database feature is used before
// the schema has been created.
var ErrDBNotInitialized = errors.New("database not initialized")

// ErrNotFound is returned by single-row lookups that find nothing.
var ErrNotFound = errors.New("not found")

// Transaction exposes the subset of Storage methods that must run inside
// a single database transaction, so the Ingester and Resolver can compose
// several writes atomically.
//
// # Transaction Semantics
//
//   - All operations share the same underlying connection
//   - Changes are invisible to other connections until commit
//   - If the callback returns an error, the transaction is rolled back
//   - If the callback panics, the transaction is rolled back and the panic
//     re-raised
//
// # SQLite specifics
//
//   - Uses BEGIN IMMEDIATE to acquire the write lock early, avoiding the
//     lock-upgrade deadlock that BEGIN DEFERRED is prone to under
//     concurrent writers
//   - Busy/locked errors are retried with backoff by the caller of
//     RunInTransaction, not inside the transaction itself (retrying inside
//     a transaction risks retrying partially-applied work)
type Transaction interface {
	UpsertContentItem(ctx context.Context, item *types.ContentItem) (int64, error)
	ContentItemByTranscriptAndMtime(ctx context.Context, transcriptPath, mtime string) (*types.ContentItem, error)
	InsertToolCalls(ctx context.Context, calls []*types.ToolCall) error

	GetDeltaCursor(ctx context.Context, sessionID, transcriptPath string) (*types.DeltaCursor, error)
	UpdateDeltaCursor(ctx context.Context, cursor *types.DeltaCursor) error

	FindOrCreateEntity(ctx context.Context, entityType, canonicalName string) (*types.Entity, error)
	EntityByID(ctx context.Context, id int64) (*types.Entity, error)
	AddEntityAlias(ctx context.Context, alias *types.EntityAlias) error

	InsertFact(ctx context.Context, fact *types.Fact) (int64, error)
	UpdateFact(ctx context.Context, fact *types.Fact) error
	FactsForSlot(ctx context.Context, subjectEntityID int64, predicate, scope, projectPath string) ([]*types.Fact, error)

	InsertProvenance(ctx context.Context, prov *types.Provenance) (int64, error)
	InsertFactLink(ctx context.Context, link *types.FactLink) (int64, error)
	InsertConflict(ctx context.Context, conflict *types.Conflict) (int64, error)

	IndexContentItemFTS(ctx context.Context, contentItemID int64, text string) error
}

// Storage is the full backend surface used by every component. The global
// store and each per-project store are separate SQLite files; callers get
// one Storage instance per store (see internal/storemanager) rather than one
// backend juggling two scopes internally.
type Storage interface {
	UpsertContentItem(ctx context.Context, item *types.ContentItem) (int64, error)
	ContentItemByTranscriptAndMtime(ctx context.Context, transcriptPath, mtime string) (*types.ContentItem, error)
	ContentItemsOlderThan(ctx context.Context, cutoff string, limit int) ([]*types.ContentItem, error)
	DeleteContentItem(ctx context.Context, id int64) error
	InsertToolCalls(ctx context.Context, calls []*types.ToolCall) error

	GetDeltaCursor(ctx context.Context, sessionID, transcriptPath string) (*types.DeltaCursor, error)
	UpdateDeltaCursor(ctx context.Context, cursor *types.DeltaCursor) error

	FindOrCreateEntity(ctx context.Context, entityType, canonicalName string) (*types.Entity, error)
	EntityBySlug(ctx context.Context, entityType, slug string) (*types.Entity, error)
	EntityByID(ctx context.Context, id int64) (*types.Entity, error)
	AddEntityAlias(ctx context.Context, alias *types.EntityAlias) error

	InsertFact(ctx context.Context, fact *types.Fact) (int64, error)
	UpdateFact(ctx context.Context, fact *types.Fact) error
	GetFact(ctx context.Context, id int64) (*types.Fact, error)
	FactsForSlot(ctx context.Context, subjectEntityID int64, predicate, scope, projectPath string) ([]*types.Fact, error)
	FactsWithoutEmbeddings(ctx context.Context, limit int) ([]*types.Fact, error)
	FactsWithEmbeddings(ctx context.Context, scope, projectPath string) ([]*types.Fact, error)
	FactsExpiring(ctx context.Context, status string, cutoff string) ([]*types.Fact, error)
	SetFactEmbedding(ctx context.Context, factID int64, embeddingJSON string) error

	InsertProvenance(ctx context.Context, prov *types.Provenance) (int64, error)
	ProvenanceForFact(ctx context.Context, factID int64) ([]*types.Provenance, error)
	ProvenanceForFacts(ctx context.Context, factIDs []int64) (map[int64][]*types.Provenance, error)
	OrphanProvenance(ctx context.Context, limit int) ([]*types.Provenance, error)
	DeleteProvenance(ctx context.Context, id int64) error
	ContentItemHasProvenance(ctx context.Context, contentItemID int64) (bool, error)

	InsertFactLink(ctx context.Context, link *types.FactLink) (int64, error)
	InsertConflict(ctx context.Context, conflict *types.Conflict) (int64, error)
	OpenConflicts(ctx context.Context) ([]*types.Conflict, error)
	ResolveConflict(ctx context.Context, id int64, notes string) error

	SearchFTS(ctx context.Context, query string, limit int) ([]int64, error)
	IndexContentItemFTS(ctx context.Context, contentItemID int64, text string) error

	StartOperation(ctx context.Context, op *types.OperationProgress) (int64, error)
	UpdateOperationProgress(ctx context.Context, id int64, processed int, checkpoint string) error
	FinishOperation(ctx context.Context, id int64, status string) error
	StuckOperations(ctx context.Context, staleAfterSeconds int) ([]*types.OperationProgress, error)
	ResetOperation(ctx context.Context, id int64) error

	RecordSchemaHealth(ctx context.Context, health *types.SchemaHealth) (int64, error)
	LatestSchemaHealth(ctx context.Context) (*types.SchemaHealth, error)
	TableCounts(ctx context.Context) (map[string]int, error)

	SchemaVersion(ctx context.Context) (int, error)

	// RunInTransaction executes fn within a single BEGIN IMMEDIATE
	// transaction. fn's error rolls back; fn's panic rolls back and
	// re-panics; a nil return commits.
	RunInTransaction(ctx context.Context, fn func(tx Transaction) error) error

	Close() error
	Path() string
	UnderlyingDB() *sql.DB
	UnderlyingConn(ctx context.Context) (*sql.Conn, error)
}

// Config describes how to open one store.
type Config struct {
	Path            string
	BusyTimeoutMS   int
	ForeignKeysOn   bool
	MigrationLockMS int
}
