package main

import (
	"encoding/json"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devhaven/memoryd/internal/embedding"
	"github.com/devhaven/memoryd/internal/recall"
	"github.com/devhaven/memoryd/internal/types"
)

var (
	embedScope string
	embedLimit int
)

var embedCmd = &cobra.Command{
	Use:     "embed",
	GroupID: "ops",
	Short:   "Generate embeddings for active facts that don't have one yet",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr := newManager()
		defer mgr.Close()

		var total int
		run := func(scope string) error {
			store, err := mgr.StoreForScope(ctx, scope, projectDir)
			if err != nil {
				return fmt.Errorf("open %s store: %w", scope, err)
			}
			facts, err := store.FactsWithoutEmbeddings(ctx, embedLimit)
			if err != nil {
				return fmt.Errorf("load unembedded facts from %s store: %w", scope, err)
			}
			for _, f := range facts {
				vec := embedding.Vectorize(fmt.Sprintf("%s %s", f.Predicate, f.ObjectLiteral))
				encoded, err := json.Marshal(vec)
				if err != nil {
					return fmt.Errorf("marshal embedding for fact %d: %w", f.ID, err)
				}
				if err := store.SetFactEmbedding(ctx, f.ID, string(encoded)); err != nil {
					return fmt.Errorf("set embedding for fact %d: %w", f.ID, err)
				}
				total++
			}
			return nil
		}

		if embedScope == types.ScopeGlobal || embedScope == recall.ScopeAll {
			if err := run(types.ScopeGlobal); err != nil {
				return err
			}
		}
		if (embedScope == types.ScopeProject || embedScope == recall.ScopeAll) && projectDir != "" {
			if err := run(types.ScopeProject); err != nil {
				return err
			}
		}

		fmt.Printf("generated %d embedding(s)\n", total)
		return nil
	},
}

func init() {
	embedCmd.Flags().StringVar(&embedScope, "scope", recall.ScopeAll, "store(s) to backfill: all|project|global")
	embedCmd.Flags().IntVar(&embedLimit, "limit", 200, "maximum facts to embed per store in one run")
	rootCmd.AddCommand(embedCmd)
}
