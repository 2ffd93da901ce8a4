// Package recall implements the dual-store query orchestration: fan a
// query out to the project store, the global store, or both, annotate each
// result with where it came from, merge, and project it for the caller.
package recall

import (
	"context"
	"fmt"
	"sort"

	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/storemanager"
	"github.com/devhaven/memoryd/internal/types"
)

// Scope selects which store(s) a recall query fans out to.
const (
	ScopeAll     = "all"
	ScopeProject = "project"
	ScopeGlobal  = "global"
)

// Result is one fact annotated with the store it was recalled from.
type Result struct {
	Fact   *types.Fact
	Source string // "project" or "global"
}

// QueryFn pulls candidate facts out of a single store. recall.Query calls
// it once per store being fanned out to.
type QueryFn func(ctx context.Context, store storage.Storage) ([]*types.Fact, error)

// Query runs fn against every store named by scope, annotates each
// resulting fact with its source, merges, applies the post-merge
// ScopeFilter, sorts by created_at descending, and truncates to limit.
func Query(ctx context.Context, mgr *storemanager.Manager, scope string, projectPath string, limit int, fn QueryFn) ([]Result, error) {
	var results []Result

	if scope == ScopeAll || scope == ScopeProject {
		if projectPath != "" {
			store, err := mgr.Project(ctx, projectPath)
			if err != nil {
				return nil, fmt.Errorf("open project store: %w", err)
			}
			facts, err := fn(ctx, store)
			if err != nil {
				return nil, fmt.Errorf("query project store: %w", err)
			}
			for _, f := range facts {
				results = append(results, Result{Fact: f, Source: ScopeProject})
			}
		}
	}

	if scope == ScopeAll || scope == ScopeGlobal {
		store, err := mgr.Global(ctx)
		if err != nil {
			return nil, fmt.Errorf("open global store: %w", err)
		}
		facts, err := fn(ctx, store)
		if err != nil {
			return nil, fmt.Errorf("query global store: %w", err)
		}
		for _, f := range facts {
			results = append(results, Result{Fact: f, Source: ScopeGlobal})
		}
	}

	filtered := results[:0]
	for _, r := range results {
		if ScopeFilter(r.Fact, scope, projectPath) {
			filtered = append(filtered, r)
		}
	}

	sort.SliceStable(filtered, func(i, j int) bool {
		return filtered[i].Fact.CreatedAt.After(filtered[j].Fact.CreatedAt)
	})

	if limit > 0 && len(filtered) > limit {
		filtered = filtered[:limit]
	}
	return filtered, nil
}

// ScopeFilter reports whether fact should be admitted into a result set
// requested under scope/currentProjectPath.
func ScopeFilter(fact *types.Fact, scope, currentProjectPath string) bool {
	switch scope {
	case ScopeAll:
		return true
	case ScopeProject:
		return fact.Scope == types.ScopeProject && fact.ProjectPath == currentProjectPath
	case ScopeGlobal:
		return fact.Scope == types.ScopeGlobal
	default:
		return false
	}
}

// IndexEntry is the truncated-preview projection returned by recall_index.
type IndexEntry struct {
	FactID  int64
	Subject string
	Preview string
	Source  string
}

// Index produces the truncated-preview projection over results, sized by a
// simple token estimator (whitespace-delimited word count) rather than a
// full tokenizer, matching the "cheap estimator, not exactness" framing of
// a preview.
func Index(results []Result, maxTokens int) []IndexEntry {
	entries := make([]IndexEntry, 0, len(results))
	for _, r := range results {
		entries = append(entries, IndexEntry{
			FactID:  r.Fact.ID,
			Preview: truncateTokens(previewText(r.Fact), maxTokens),
			Source:  r.Source,
		})
	}
	return entries
}

func previewText(f *types.Fact) string {
	if f.ObjectLiteral != "" {
		return fmt.Sprintf("%s %s", f.Predicate, f.ObjectLiteral)
	}
	return f.Predicate
}

func truncateTokens(s string, maxTokens int) string {
	words := splitWords(s)
	if len(words) <= maxTokens {
		return s
	}
	out := words[0]
	for _, w := range words[1:maxTokens] {
		out += " " + w
	}
	return out + "…"
}

func splitWords(s string) []string {
	var words []string
	start := -1
	for i, r := range s {
		if r == ' ' || r == '\t' || r == '\n' {
			if start >= 0 {
				words = append(words, s[start:i])
				start = -1
			}
			continue
		}
		if start < 0 {
			start = i
		}
	}
	if start >= 0 {
		words = append(words, s[start:])
	}
	return words
}

// Details is the fully joined projection returned by recall_details: the
// fact, its provenance rows, and its subject/object entities, for every
// result in one call — see DetailsFor for how entity lookups are batched.
type Details struct {
	Fact          *types.Fact
	Source        string
	Provenance    []*types.Provenance
	SubjectEntity *types.Entity
	ObjectEntity  *types.Entity
}

// DetailsFor batches both of its lookups for results across a single store:
// provenance is loaded with one WHERE fact_id IN (...) query up front, and
// entity ids are deduplicated through entityCache before issuing any lookup,
// so a result set referencing the same handful of entities repeatedly costs
// one round trip per distinct entity rather than one per result.
func DetailsFor(ctx context.Context, store storage.Storage, results []Result) ([]Details, error) {
	factIDs := make([]int64, len(results))
	for i, r := range results {
		factIDs[i] = r.Fact.ID
	}
	provByFact, err := store.ProvenanceForFacts(ctx, factIDs)
	if err != nil {
		return nil, fmt.Errorf("load provenance for %d facts: %w", len(factIDs), err)
	}

	entityCache := make(map[int64]*types.Entity)
	getEntity := func(id int64) (*types.Entity, error) {
		if e, ok := entityCache[id]; ok {
			return e, nil
		}
		e, err := store.EntityByID(ctx, id)
		if err != nil {
			return nil, err
		}
		entityCache[id] = e
		return e, nil
	}

	out := make([]Details, 0, len(results))
	for _, r := range results {
		subject, err := getEntity(r.Fact.SubjectEntityID)
		if err != nil {
			return nil, fmt.Errorf("load subject entity %d: %w", r.Fact.SubjectEntityID, err)
		}

		var object *types.Entity
		if r.Fact.ObjectEntityID != nil {
			object, err = getEntity(*r.Fact.ObjectEntityID)
			if err != nil {
				return nil, fmt.Errorf("load object entity %d: %w", *r.Fact.ObjectEntityID, err)
			}
		}

		out = append(out, Details{
			Fact:          r.Fact,
			Source:        r.Source,
			Provenance:    provByFact[r.Fact.ID],
			SubjectEntity: subject,
			ObjectEntity:  object,
		})
	}
	return out, nil
}
