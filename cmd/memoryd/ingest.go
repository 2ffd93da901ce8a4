package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devhaven/memoryd/internal/ingest"
	"github.com/devhaven/memoryd/internal/types"
)

var (
	ingestSessionID string
	ingestSource    string
	ingestScope     string
)

var ingestCmd = &cobra.Command{
	Use:     "ingest <transcript-path>",
	GroupID: "data",
	Short:   "Ingest a transcript's unread delta into the memory store",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr := newManager()
		defer mgr.Close()

		store, err := mgr.StoreForScope(ctx, ingestScope, projectDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		req := ingest.Request{
			Source:         ingestSource,
			SessionID:      ingestSessionID,
			TranscriptPath: args[0],
			ProjectPath:    projectDir,
		}
		result, err := ingest.Ingest(ctx, store, req)
		if err != nil {
			return fmt.Errorf("ingest: %w", err)
		}

		if structuredOutput() {
			return writeStructured(cmd, result)
		}
		if result.Skipped {
			printMuted(fmt.Sprintf("skipped: %s is unchanged since last ingest", req.TranscriptPath))
			return nil
		}
		fmt.Printf("ingested content_item=%d bytes=%d tool_calls=%d\n", result.ContentItemID, result.BytesRead, result.ToolCalls)
		return nil
	},
}

func init() {
	ingestCmd.Flags().StringVar(&ingestSessionID, "session-id", "", "session identifier the transcript belongs to")
	ingestCmd.Flags().StringVar(&ingestSource, "source", "claude-code", "source label recorded on the content item")
	ingestCmd.Flags().StringVar(&ingestScope, "scope", types.ScopeProject, "store to ingest into: project|global")
	_ = ingestCmd.MarkFlagRequired("session-id")
	rootCmd.AddCommand(ingestCmd)
}
