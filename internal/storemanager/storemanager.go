// Package storemanager owns the lifecycle of the global and per-project
// stores and implements fact promotion between them.
package storemanager

import (
	"context"
	"fmt"
	"path/filepath"
	"sync"

	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/storage/sqlite"
	"github.com/devhaven/memoryd/internal/types"
)

// Opener constructs a storage.Storage for a given database file path. In
// production this is sqlite.New (via DefaultOpener); callers may pass their own.
type Opener func(ctx context.Context, path string) (storage.Storage, error)

// DefaultOpener wraps sqlite.New so its *sqlite.SQLiteStorage satisfies
// storage.Storage.
func DefaultOpener(ctx context.Context, path string) (storage.Storage, error) {
	return sqlite.New(ctx, path)
}

// Manager lazily opens the global store and, per project, a project store,
// and routes calls to the right one by scope.
type Manager struct {
	open Opener

	globalPath string
	mu         sync.Mutex
	global     storage.Storage
	projects   map[string]storage.Storage
}

// New creates a Manager rooted at globalPath for the global store; project
// stores are opened on demand from ProjectDBPath(projectPath).
func New(globalPath string, open Opener) *Manager {
	if open == nil {
		open = DefaultOpener
	}
	return &Manager{open: open, globalPath: globalPath, projects: make(map[string]storage.Storage)}
}

// ProjectDBPath returns the conventional per-project database location:
// <project>/.claude/memory.sqlite3.
func ProjectDBPath(projectPath string) string {
	return filepath.Join(projectPath, ".claude", "memory.sqlite3")
}

// Global returns (opening if necessary) the global store.
func (m *Manager) Global(ctx context.Context) (storage.Storage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.global != nil {
		return m.global, nil
	}
	s, err := m.open(ctx, m.globalPath)
	if err != nil {
		return nil, fmt.Errorf("open global store %s: %w", m.globalPath, err)
	}
	m.global = s
	return s, nil
}

// Project returns (opening if necessary) the store for projectPath.
func (m *Manager) Project(ctx context.Context, projectPath string) (storage.Storage, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if s, ok := m.projects[projectPath]; ok {
		return s, nil
	}
	s, err := m.open(ctx, ProjectDBPath(projectPath))
	if err != nil {
		return nil, fmt.Errorf("open project store %s: %w", projectPath, err)
	}
	m.projects[projectPath] = s
	return s, nil
}

// StoreForScope resolves scope ("project"/"global") to the right backing
// store for the given project path.
func (m *Manager) StoreForScope(ctx context.Context, scope, projectPath string) (storage.Storage, error) {
	if scope == types.ScopeGlobal {
		return m.Global(ctx)
	}
	return m.Project(ctx, projectPath)
}

// Close closes every store the Manager has opened so far.
func (m *Manager) Close() error {
	m.mu.Lock()
	defer m.mu.Unlock()
	var firstErr error
	if m.global != nil {
		if err := m.global.Close(); err != nil && firstErr == nil {
			firstErr = err
		}
	}
	for path, s := range m.projects {
		if err := s.Close(); err != nil && firstErr == nil {
			firstErr = fmt.Errorf("close project store %s: %w", path, err)
		}
	}
	return firstErr
}

// Promote copies a project-scope fact into the global store: the
// subject/object entities are remapped by slug into the global store's
// own entity table, the fact is cloned with
// scope=global and an empty project_path, its provenance rows are copied
// with content_item_id cleared (provenance content lives in the
// project-scoped content log, not the global one), and created_from is
// stamped "promoted:<project_path>:<fact_id>".
//
// The source project-scope fact is left untouched: it is not marked
// superseded and no FactLink is created back to it (see DESIGN.md, Open
// Question 2 — left unresolved per the design note).
func Promote(ctx context.Context, projectStore, globalStore storage.Storage, factID int64) (int64, error) {
	fact, err := projectStore.GetFact(ctx, factID)
	if err != nil {
		return 0, fmt.Errorf("promote: load fact %d: %w", factID, err)
	}
	provenances, err := projectStore.ProvenanceForFact(ctx, factID)
	if err != nil {
		return 0, fmt.Errorf("promote: load provenance for fact %d: %w", factID, err)
	}

	var newFactID int64
	err = globalStore.RunInTransaction(ctx, func(tx storage.Transaction) error {
		subjectEntity, serr := remapEntity(ctx, projectStore, tx, fact.SubjectEntityID)
		if serr != nil {
			return fmt.Errorf("remap subject entity: %w", serr)
		}

		clone := &types.Fact{
			SubjectEntityID: subjectEntity.ID,
			Predicate:       fact.Predicate,
			ObjectLiteral:   fact.ObjectLiteral,
			Datatype:        fact.Datatype,
			Polarity:        fact.Polarity,
			ValidFrom:       fact.ValidFrom,
			Status:          types.FactActive,
			Confidence:      fact.Confidence,
			CreatedFrom:     fmt.Sprintf("promoted:%s:%d", fact.ProjectPath, fact.ID),
			Scope:           types.ScopeGlobal,
			ProjectPath:     "",
		}
		if fact.ObjectEntityID != nil {
			objectEntity, oerr := remapEntity(ctx, projectStore, tx, *fact.ObjectEntityID)
			if oerr != nil {
				return fmt.Errorf("remap object entity: %w", oerr)
			}
			clone.ObjectEntityID = &objectEntity.ID
		}

		id, ferr := tx.InsertFact(ctx, clone)
		if ferr != nil {
			return fmt.Errorf("insert promoted fact: %w", ferr)
		}
		newFactID = id

		for _, p := range provenances {
			promoted := &types.Provenance{
				FactID:              id,
				ContentItemID:       nil,
				Quote:               p.Quote,
				AttributionEntityID: p.AttributionEntityID,
				Strength:            p.Strength,
			}
			if _, perr := tx.InsertProvenance(ctx, promoted); perr != nil {
				return fmt.Errorf("copy provenance to promoted fact: %w", perr)
			}
		}
		return nil
	})
	if err != nil {
		return 0, err
	}
	return newFactID, nil
}

func remapEntity(ctx context.Context, projectStore storage.Storage, tx storage.Transaction, entityID int64) (*types.Entity, error) {
	// The project store is the source of truth for the entity's type and
	// canonical name; the global store gets its own row for the same
	// (type, slug) pair, found-or-created independently.
	row, err := projectStore.EntityByID(ctx, entityID)
	if err != nil {
		return nil, fmt.Errorf("load source entity %d: %w", entityID, err)
	}
	return tx.FindOrCreateEntity(ctx, row.Type, row.CanonicalName)
}
