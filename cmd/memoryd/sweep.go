package main

import (
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/devhaven/memoryd/internal/config"
	"github.com/devhaven/memoryd/internal/recall"
	"github.com/devhaven/memoryd/internal/sweeper"
	"github.com/devhaven/memoryd/internal/types"
)

var sweepScope string

var sweepCmd = &cobra.Command{
	Use:     "sweep",
	GroupID: "ops",
	Short:   "Run the time-budgeted maintenance pass (expiry, orphan cleanup, pruning)",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr := newManager()
		defer mgr.Close()

		budget := time.Duration(config.GetInt("sweeper.budget-seconds")) * time.Second

		var results []sweepResult
		if sweepScope == types.ScopeGlobal || sweepScope == recall.ScopeAll {
			store, err := mgr.Global(ctx)
			if err != nil {
				return fmt.Errorf("open global store: %w", err)
			}
			counters, err := sweeper.Run(ctx, store, budget, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("sweep global store: %w", err)
			}
			results = append(results, sweepResult{Scope: types.ScopeGlobal, Counters: counters})
		}
		if (sweepScope == types.ScopeProject || sweepScope == recall.ScopeAll) && projectDir != "" {
			store, err := mgr.Project(ctx, projectDir)
			if err != nil {
				return fmt.Errorf("open project store: %w", err)
			}
			counters, err := sweeper.Run(ctx, store, budget, time.Now().UTC())
			if err != nil {
				return fmt.Errorf("sweep project store: %w", err)
			}
			results = append(results, sweepResult{Scope: types.ScopeProject, Counters: counters})
		}

		if structuredOutput() {
			return writeStructured(cmd, results)
		}
		for _, r := range results {
			fmt.Printf("%s: proposed_expired=%d disputed_expired=%d orphan_provenance=%d content_pruned=%d elapsed=%.3fs budget_honored=%v\n",
				r.Scope, r.Counters.ProposedExpired, r.Counters.DisputedExpired, r.Counters.OrphanProvenance,
				r.Counters.ContentPruned, r.Counters.ElapsedSeconds, r.Counters.BudgetHonored)
		}
		return nil
	},
}

type sweepResult struct {
	Scope    string           `json:"scope"`
	Counters sweeper.Counters `json:"counters"`
}

func init() {
	sweepCmd.Flags().StringVar(&sweepScope, "scope", recall.ScopeAll, "store(s) to sweep: all|project|global")
	rootCmd.AddCommand(sweepCmd)
}
