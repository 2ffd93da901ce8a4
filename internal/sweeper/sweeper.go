// Package sweeper implements the time-budgeted maintenance pass: expiring
// stale proposed/disputed facts, cleaning up orphaned provenance, and
// pruning old content no fact still cites. Every phase checks the wall
// clock against its budget before starting, so a slow store degrades to
// "did less work this run" rather than blowing through its time box.
package sweeper

import (
	"context"
	"fmt"
	"time"

	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/types"
)

// DefaultBudget is the wall-clock limit granted to one sweep when the
// caller does not specify one.
const DefaultBudget = 5 * time.Second

const (
	proposedTTL = 14 * 24 * time.Hour
	disputedTTL = 30 * 24 * time.Hour
	contentTTL  = 30 * 24 * time.Hour
)

// sqliteTimestampFormat matches the layout SQLite's CURRENT_TIMESTAMP
// produces ("YYYY-MM-DD HH:MM:SS", UTC, no fractional seconds), so cutoff
// strings compare correctly against created_at/ingested_at columns with a
// plain lexicographic "<".
const sqliteTimestampFormat = "2006-01-02 15:04:05"

// Counters summarizes what one Run call did.
type Counters struct {
	ProposedExpired  int
	DisputedExpired  int
	OrphanProvenance int
	ContentPruned    int
	ElapsedSeconds   float64
	BudgetHonored    bool
}

// Run executes the four maintenance phases against store in order, each
// one skipped entirely if budget has already been spent. Phases are
// independent: skipping phase 2 because the clock ran out does not affect
// whether phase 1 ran, and a phase that starts runs to completion unless a
// write fails. Each phase writes one row per statement, outside any
// transaction, so a failure part-way through a phase returns the error and
// leaves the rows already written in place.
func Run(ctx context.Context, store storage.Storage, budget time.Duration, now time.Time) (Counters, error) {
	if budget <= 0 {
		budget = DefaultBudget
	}
	start := time.Now()
	var counters Counters

	withinBudget := func() bool { return time.Since(start) < budget }

	if withinBudget() {
		n, err := expireFacts(ctx, store, types.FactProposed, now.Add(-proposedTTL), now)
		if err != nil {
			return counters, fmt.Errorf("expire proposed facts: %w", err)
		}
		counters.ProposedExpired = n
	}

	if withinBudget() {
		n, err := expireFacts(ctx, store, types.FactDisputed, now.Add(-disputedTTL), now)
		if err != nil {
			return counters, fmt.Errorf("expire disputed facts: %w", err)
		}
		counters.DisputedExpired = n
	}

	if withinBudget() {
		n, err := deleteOrphanProvenance(ctx, store)
		if err != nil {
			return counters, fmt.Errorf("delete orphan provenance: %w", err)
		}
		counters.OrphanProvenance = n
	}

	if withinBudget() {
		n, err := pruneOldContent(ctx, store, now.Add(-contentTTL))
		if err != nil {
			return counters, fmt.Errorf("prune old content: %w", err)
		}
		counters.ContentPruned = n
	}

	elapsed := time.Since(start)
	counters.ElapsedSeconds = elapsed.Seconds()
	counters.BudgetHonored = elapsed <= budget
	return counters, nil
}

func expireFacts(ctx context.Context, store storage.Storage, status string, cutoff, occurredAt time.Time) (int, error) {
	facts, err := store.FactsExpiring(ctx, status, cutoff.UTC().Format(sqliteTimestampFormat))
	if err != nil {
		return 0, err
	}
	for _, f := range facts {
		f.Status = types.FactExpired
		f.ValidTo = &occurredAt
		if err := store.UpdateFact(ctx, f); err != nil {
			return 0, fmt.Errorf("mark fact %d expired: %w", f.ID, err)
		}
	}
	return len(facts), nil
}

func deleteOrphanProvenance(ctx context.Context, store storage.Storage) (int, error) {
	const batchLimit = 1000
	orphans, err := store.OrphanProvenance(ctx, batchLimit)
	if err != nil {
		return 0, err
	}
	for _, p := range orphans {
		if err := store.DeleteProvenance(ctx, p.ID); err != nil {
			return 0, fmt.Errorf("delete orphan provenance %d: %w", p.ID, err)
		}
	}
	return len(orphans), nil
}

func pruneOldContent(ctx context.Context, store storage.Storage, cutoff time.Time) (int, error) {
	const batchLimit = 1000
	items, err := store.ContentItemsOlderThan(ctx, cutoff.UTC().Format(sqliteTimestampFormat), batchLimit)
	if err != nil {
		return 0, err
	}
	pruned := 0
	for _, item := range items {
		referenced, err := store.ContentItemHasProvenance(ctx, item.ID)
		if err != nil {
			return pruned, fmt.Errorf("check provenance references for content_item %d: %w", item.ID, err)
		}
		if referenced {
			continue
		}
		if err := store.DeleteContentItem(ctx, item.ID); err != nil {
			return pruned, fmt.Errorf("delete content_item %d: %w", item.ID, err)
		}
		pruned++
	}
	return pruned, nil
}
