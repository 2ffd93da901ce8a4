package main

import (
	"encoding/json"
	"fmt"
	"io"
	"os"
	"time"

	"github.com/spf13/cobra"

	"github.com/devhaven/memoryd/internal/policy"
	"github.com/devhaven/memoryd/internal/resolver"
	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/types"
)

var (
	rememberFile          string
	rememberScope         string
	rememberContentItemID int64
	rememberOccurredAt    string
	rememberPolicyFile    string
)

var rememberCmd = &cobra.Command{
	Use:     "remember",
	GroupID: "data",
	Short:   "Apply an extraction payload (entities + candidate facts) to the memory store",
	Long: `Reads a JSON extraction payload - the entities and candidate facts an
external extractor produced from a transcript - and resolves it against the
store: matching facts get a new provenance row, contradicting facts open a
conflict, and facts marked as superseding replace what they disagree with.

The payload is read from --file, or from stdin when --file is omitted:

  memoryd remember --file extraction.json
  echo '{"facts":[{"subject":"billing-service","predicate":"uses_database","object":"PostgreSQL"}]}' | memoryd remember`,
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()

		in := os.Stdin
		if rememberFile != "" {
			f, err := os.Open(rememberFile)
			if err != nil {
				return fmt.Errorf("open extraction file: %w", err)
			}
			defer f.Close()
			in = f
		}

		raw, err := io.ReadAll(in)
		if err != nil {
			return fmt.Errorf("read extraction payload: %w", err)
		}

		var extraction types.Extraction
		if err := json.Unmarshal(raw, &extraction); err != nil {
			return fmt.Errorf("parse extraction payload: %w", err)
		}

		occurredAt := time.Now()
		if rememberOccurredAt != "" {
			occurredAt, err = parseWhen("occurred-at", rememberOccurredAt)
			if err != nil {
				return err
			}
		}

		table, err := policy.Load(rememberPolicyFile)
		if err != nil {
			return fmt.Errorf("load predicate policy: %w", err)
		}

		mgr := newManager()
		defer mgr.Close()

		store, err := mgr.StoreForScope(ctx, rememberScope, projectDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		opts := resolver.Options{
			OccurredAt:  occurredAt,
			ProjectPath: projectDir,
			Scope:       rememberScope,
		}
		if cmd.Flags().Changed("content-item-id") {
			opts.ContentItemID = &rememberContentItemID
		}

		var counters types.ResolveCounters
		err = store.RunInTransaction(ctx, func(tx storage.Transaction) error {
			var resolveErr error
			counters, resolveErr = resolver.Resolve(ctx, tx, table, extraction, opts)
			return resolveErr
		})
		if err != nil {
			return fmt.Errorf("apply extraction: %w", err)
		}

		if structuredOutput() {
			return writeStructured(cmd, counters)
		}
		fmt.Printf("entities created=%d facts created=%d superseded=%d conflicts=%d provenance=%d\n",
			counters.EntitiesCreated, counters.FactsCreated, counters.FactsSuperseded,
			counters.ConflictsCreated, counters.ProvenanceCreated)
		return nil
	},
}

func init() {
	rememberCmd.Flags().StringVar(&rememberFile, "file", "", "path to a JSON extraction payload (default: read from stdin)")
	rememberCmd.Flags().StringVar(&rememberScope, "scope", types.ScopeProject, "store to resolve into: project|global")
	rememberCmd.Flags().Int64Var(&rememberContentItemID, "content-item-id", 0, "content_item this extraction was attributed to")
	rememberCmd.Flags().StringVar(&rememberOccurredAt, "occurred-at", "", "when the extracted facts became true (natural language, default: now)")
	rememberCmd.Flags().StringVar(&rememberPolicyFile, "policy-file", "", "predicate cardinality policy TOML file (default: built-in table)")
	rootCmd.AddCommand(rememberCmd)
}
