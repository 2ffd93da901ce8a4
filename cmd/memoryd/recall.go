package main

import (
	"context"
	"fmt"
	"time"

	"github.com/olebedev/when"
	"github.com/olebedev/when/rules/common"
	"github.com/olebedev/when/rules/en"
	"github.com/spf13/cobra"

	"github.com/devhaven/memoryd/internal/recall"
	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/storemanager"
	"github.com/devhaven/memoryd/internal/types"
)

var (
	recallScope     string
	recallLimit     int
	recallSince     string
	recallOlderThan string
	recallDetails   bool
)

// parseWhen resolves a natural-language time expression (e.g. "3 days
// ago", "2 weeks ago") to an absolute time.Time via olebedev/when. Both
// --since and --older-than go through it before filtering, since the
// recall library functions themselves only ever take concrete
// time.Time cutoffs.
func parseWhen(flag, text string) (time.Time, error) {
	w := when.New(nil)
	w.Add(en.All...)
	w.Add(common.All...)
	parsed, err := w.Parse(text, time.Now())
	if err != nil {
		return time.Time{}, fmt.Errorf("parse --%s %q: %w", flag, text, err)
	}
	if parsed == nil {
		return time.Time{}, fmt.Errorf("could not understand --%s %q", flag, text)
	}
	return parsed.Time, nil
}

var recallCmd = &cobra.Command{
	Use:     "recall",
	GroupID: "data",
	Short:   "Recall active facts that have an embedding from the project and/or global store",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr := newManager()
		defer mgr.Close()

		var since, olderThan time.Time
		if recallSince != "" {
			t, err := parseWhen("since", recallSince)
			if err != nil {
				return err
			}
			since = t
		}
		if recallOlderThan != "" {
			t, err := parseWhen("older-than", recallOlderThan)
			if err != nil {
				return err
			}
			olderThan = t
		}

		queryFn := func(ctx context.Context, store storage.Storage) ([]*types.Fact, error) {
			return store.FactsWithEmbeddings(ctx, "", "")
		}

		results, err := recall.Query(ctx, mgr, recallScope, projectDir, recallLimit, queryFn)
		if err != nil {
			return fmt.Errorf("recall query: %w", err)
		}

		if !since.IsZero() || !olderThan.IsZero() {
			filtered := results[:0]
			for _, r := range results {
				if !since.IsZero() && !r.Fact.CreatedAt.After(since) {
					continue
				}
				if !olderThan.IsZero() && !r.Fact.CreatedAt.Before(olderThan) {
					continue
				}
				filtered = append(filtered, r)
			}
			results = filtered
		}

		if structuredOutput() {
			return writeStructured(cmd, results)
		}

		if recallDetails {
			details, err := detailsForResults(ctx, mgr, projectDir, results)
			if err != nil {
				return err
			}
			for _, d := range details {
				fmt.Printf("[%s] %s %s %s (confidence=%.2f)\n", d.Source, d.SubjectEntity.CanonicalName, d.Fact.Predicate, previewObject(d), d.Fact.Confidence)
			}
			return nil
		}

		for _, entry := range recall.Index(results, 40) {
			fmt.Printf("[%s] fact=%d %s\n", entry.Source, entry.FactID, entry.Preview)
		}
		return nil
	},
}

// detailsForResults loads entity-joined details for a set of recall
// results, splitting by source first: project and global stores keep
// independent entity ID keyspaces, so a result's entity IDs can only be
// resolved against the store it actually came from.
func detailsForResults(ctx context.Context, mgr *storemanager.Manager, projectPath string, results []recall.Result) ([]recall.Details, error) {
	var project, global []recall.Result
	for _, r := range results {
		if r.Source == recall.ScopeProject {
			project = append(project, r)
		} else {
			global = append(global, r)
		}
	}

	var details []recall.Details
	if len(project) > 0 {
		store, err := mgr.Project(ctx, projectPath)
		if err != nil {
			return nil, fmt.Errorf("open project store: %w", err)
		}
		d, err := recall.DetailsFor(ctx, store, project)
		if err != nil {
			return nil, fmt.Errorf("load project details: %w", err)
		}
		details = append(details, d...)
	}
	if len(global) > 0 {
		store, err := mgr.Global(ctx)
		if err != nil {
			return nil, fmt.Errorf("open global store: %w", err)
		}
		d, err := recall.DetailsFor(ctx, store, global)
		if err != nil {
			return nil, fmt.Errorf("load global details: %w", err)
		}
		details = append(details, d...)
	}
	return details, nil
}

func previewObject(d recall.Details) string {
	if d.ObjectEntity != nil {
		return d.ObjectEntity.CanonicalName
	}
	return d.Fact.ObjectLiteral
}

func init() {
	recallCmd.Flags().StringVar(&recallScope, "scope", recall.ScopeAll, "scope to recall from: all|project|global")
	recallCmd.Flags().IntVar(&recallLimit, "limit", 20, "maximum number of facts to return")
	recallCmd.Flags().StringVar(&recallSince, "since", "", "only include facts created after this natural-language time (e.g. \"3 days ago\")")
	recallCmd.Flags().StringVar(&recallOlderThan, "older-than", "", "only include facts created before this natural-language time (e.g. \"2 weeks ago\")")
	recallCmd.Flags().BoolVar(&recallDetails, "details", false, "include provenance and entity detail, not just a preview")
	rootCmd.AddCommand(recallCmd)
}
