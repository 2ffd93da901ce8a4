// Package resolver applies an external Extraction to the store: it
// deduplicates entities, decides whether each candidate fact matches,
// supersedes, or conflicts with what is already on record, and writes the
// result under per-predicate cardinality policy.
package resolver

import (
	"context"
	"fmt"
	"strings"
	"time"

	"github.com/devhaven/memoryd/internal/policy"
	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/types"
)

// Options carries the context an Extraction is applied under. ContentItemID
// is nil when a fact was not attributed to a specific ingested transcript
// (e.g. a manually recorded fact).
type Options struct {
	ContentItemID *int64
	OccurredAt    time.Time
	ProjectPath   string
	Scope         string
}

// subjectEntityType is the type stamped on a fact subject that was not
// already declared in the Extraction's entity list.
const subjectEntityType = "repo"

// Resolve applies extraction within tx and returns the aggregate counters.
// Every write happens inside the caller's transaction: a failure partway
// through one fact (e.g. the provenance insert) rolls back that fact's
// insert along with everything else in the same call.
func Resolve(ctx context.Context, tx storage.Transaction, table *policy.Table, extraction types.Extraction, opts Options) (types.ResolveCounters, error) {
	var counters types.ResolveCounters

	entityIDs, created, err := upsertEntities(ctx, tx, extraction.Entities)
	if err != nil {
		return counters, err
	}
	counters.EntitiesCreated = created

	for _, fact := range extraction.Facts {
		if err := resolveFact(ctx, tx, table, entityIDs, fact, opts, &counters); err != nil {
			return counters, fmt.Errorf("resolve fact %s %s %s: %w", fact.Subject, fact.Predicate, fact.Object, err)
		}
	}
	return counters, nil
}

// upsertEntities dedups the Extraction's declared entities by (type, name)
// and returns a case-insensitive name→id map plus how many were newly
// created (MentionCount == 1 after the upsert).
func upsertEntities(ctx context.Context, tx storage.Transaction, entities []types.ExtractionEntity) (map[string]int64, int, error) {
	ids := make(map[string]int64, len(entities))
	created := 0
	for _, e := range entities {
		entity, err := tx.FindOrCreateEntity(ctx, e.Type, e.Name)
		if err != nil {
			return nil, 0, fmt.Errorf("upsert entity %s/%s: %w", e.Type, e.Name, err)
		}
		if entity.MentionCount == 1 {
			created++
		}
		ids[strings.ToLower(e.Name)] = entity.ID
	}
	return ids, created, nil
}

// resolveFact applies a single candidate fact under PredicatePolicy.
func resolveFact(ctx context.Context, tx storage.Transaction, table *policy.Table, entityIDs map[string]int64, cand types.ExtractionFact, opts Options, counters *types.ResolveCounters) error {
	subjectID, newSubject, err := resolveEntity(ctx, tx, entityIDs, cand.Subject, subjectEntityType)
	if err != nil {
		return fmt.Errorf("resolve subject: %w", err)
	}
	if newSubject {
		counters.EntitiesCreated++
	}

	objectEntityID, objectLiteral := resolveObject(entityIDs, cand.Object)

	scope := opts.Scope
	if scope == "" {
		scope = types.ScopeProject
	}
	projectPath := opts.ProjectPath
	if scope == types.ScopeGlobal {
		projectPath = ""
	}
	if cand.ScopeHint == types.ScopeGlobal {
		scope, projectPath = types.ScopeGlobal, ""
	}

	rule := table.RuleFor(cand.Predicate)

	var existing []*types.Fact
	if rule.Cardinality == policy.CardinalitySingle {
		existing, err = tx.FactsForSlot(ctx, subjectID, cand.Predicate, scope, projectPath)
		if err != nil {
			return fmt.Errorf("load existing facts for slot: %w", err)
		}
	}

	if rule.Cardinality == policy.CardinalitySingle && len(existing) > 0 {
		if match := findMatch(existing, objectEntityID, objectLiteral); match != nil {
			if _, err := insertProvenance(ctx, tx, match.ID, opts, cand); err != nil {
				return err
			}
			counters.ProvenanceCreated++
			return nil
		}

		if supersessionSignal(cand) {
			return applySupersession(ctx, tx, existing, subjectID, objectEntityID, objectLiteral, cand, opts, scope, projectPath, counters)
		}

		return applyConflict(ctx, tx, existing, subjectID, objectEntityID, objectLiteral, cand, opts, scope, projectPath, counters)
	}

	newFact := buildFact(subjectID, objectEntityID, objectLiteral, cand, opts, types.FactActive, scope, projectPath)
	factID, err := tx.InsertFact(ctx, newFact)
	if err != nil {
		return fmt.Errorf("insert fact: %w", err)
	}
	counters.FactsCreated++
	if _, err := insertProvenance(ctx, tx, factID, opts, cand); err != nil {
		return err
	}
	counters.ProvenanceCreated++
	return nil
}

// resolveEntity looks cand up in the already-declared entity map; if it was
// not declared, it is upserted as a new entity of fallbackType.
func resolveEntity(ctx context.Context, tx storage.Transaction, entityIDs map[string]int64, name, fallbackType string) (int64, bool, error) {
	if id, ok := entityIDs[strings.ToLower(name)]; ok {
		return id, false, nil
	}
	entity, err := tx.FindOrCreateEntity(ctx, fallbackType, name)
	if err != nil {
		return 0, false, err
	}
	entityIDs[strings.ToLower(name)] = entity.ID
	return entity.ID, entity.MentionCount == 1, nil
}

// resolveObject reports whether object_val names a previously declared
// entity (in which case it is stored as object_entity_id) or is a bare
// literal value.
func resolveObject(entityIDs map[string]int64, objectVal string) (*int64, string) {
	if id, ok := entityIDs[strings.ToLower(objectVal)]; ok {
		return &id, ""
	}
	return nil, objectVal
}

// findMatch returns the existing active fact whose object already equals
// the candidate's, or nil if none does.
func findMatch(existing []*types.Fact, objectEntityID *int64, objectLiteral string) *types.Fact {
	for _, f := range existing {
		if objectEntityID != nil && f.ObjectEntityID != nil && *f.ObjectEntityID == *objectEntityID {
			return f
		}
		if objectEntityID == nil && f.ObjectEntityID == nil &&
			strings.EqualFold(f.ObjectLiteral, objectLiteral) {
			return f
		}
	}
	return nil
}

// supersessionSignal reports whether cand authorizes replacing a
// conflicting active fact, per the two independent fields the extractor
// emits. strength and supersedes are deliberately not conflated: the
// extractor can emit either without the other.
func supersessionSignal(cand types.ExtractionFact) bool {
	return cand.Strength == types.StrengthStated || cand.Supersedes
}

func applySupersession(ctx context.Context, tx storage.Transaction, existing []*types.Fact, subjectID int64, objectEntityID *int64, objectLiteral string, cand types.ExtractionFact, opts Options, scope, projectPath string, counters *types.ResolveCounters) error {
	newFact := buildFact(subjectID, objectEntityID, objectLiteral, cand, opts, types.FactActive, scope, projectPath)
	newFactID, err := tx.InsertFact(ctx, newFact)
	if err != nil {
		return fmt.Errorf("insert superseding fact: %w", err)
	}
	counters.FactsCreated++

	occurredAt := opts.OccurredAt
	for _, old := range existing {
		old.Status = types.FactSuperseded
		old.ValidTo = &occurredAt
		if err := tx.UpdateFact(ctx, old); err != nil {
			return fmt.Errorf("mark fact %d superseded: %w", old.ID, err)
		}
		counters.FactsSuperseded++

		if _, err := tx.InsertFactLink(ctx, &types.FactLink{
			FromFactID: newFactID,
			ToFactID:   old.ID,
			LinkType:   types.LinkSupersedes,
		}); err != nil {
			return fmt.Errorf("link supersession fact %d->%d: %w", newFactID, old.ID, err)
		}
	}

	if _, err := insertProvenance(ctx, tx, newFactID, opts, cand); err != nil {
		return err
	}
	counters.ProvenanceCreated++
	return nil
}

func applyConflict(ctx context.Context, tx storage.Transaction, existing []*types.Fact, subjectID int64, objectEntityID *int64, objectLiteral string, cand types.ExtractionFact, opts Options, scope, projectPath string, counters *types.ResolveCounters) error {
	newFact := buildFact(subjectID, objectEntityID, objectLiteral, cand, opts, types.FactDisputed, scope, projectPath)
	newFactID, err := tx.InsertFact(ctx, newFact)
	if err != nil {
		return fmt.Errorf("insert disputed fact: %w", err)
	}
	counters.FactsCreated++

	if _, err := tx.InsertConflict(ctx, &types.Conflict{
		FactAID: existing[0].ID,
		FactBID: newFactID,
		Status:  types.ConflictOpen,
		Notes:   fmt.Sprintf("Contradicting %s claims", cand.Predicate),
	}); err != nil {
		return fmt.Errorf("record conflict: %w", err)
	}
	counters.ConflictsCreated++

	if _, err := insertProvenance(ctx, tx, newFactID, opts, cand); err != nil {
		return err
	}
	counters.ProvenanceCreated++
	return nil
}

func buildFact(subjectID int64, objectEntityID *int64, objectLiteral string, cand types.ExtractionFact, opts Options, status, scope, projectPath string) *types.Fact {
	polarity := cand.Polarity
	if polarity == "" {
		polarity = types.PolarityPositive
	}
	confidence := cand.Confidence
	if confidence == 0 {
		confidence = 1.0
	}
	return &types.Fact{
		SubjectEntityID: subjectID,
		Predicate:       cand.Predicate,
		ObjectEntityID:  objectEntityID,
		ObjectLiteral:   objectLiteral,
		Polarity:        polarity,
		ValidFrom:       opts.OccurredAt,
		Status:          status,
		Confidence:      confidence,
		CreatedAt:       opts.OccurredAt,
		Scope:           scope,
		ProjectPath:     projectPath,
	}
}

func insertProvenance(ctx context.Context, tx storage.Transaction, factID int64, opts Options, cand types.ExtractionFact) (int64, error) {
	strength := cand.Strength
	if strength == "" {
		strength = types.StrengthStated
	}
	id, err := tx.InsertProvenance(ctx, &types.Provenance{
		FactID:        factID,
		ContentItemID: opts.ContentItemID,
		Quote:         cand.Quote,
		Strength:      strength,
	})
	if err != nil {
		return 0, fmt.Errorf("insert provenance for fact %d: %w", factID, err)
	}
	return id, nil
}
