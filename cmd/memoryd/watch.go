package main

import (
	"fmt"
	"os/signal"
	"syscall"
	"time"

	"github.com/spf13/cobra"

	"github.com/devhaven/memoryd/internal/config"
	"github.com/devhaven/memoryd/internal/ingest"
	"github.com/devhaven/memoryd/internal/types"
	"github.com/devhaven/memoryd/internal/watcher"
)

var (
	watchSessionID string
	watchSource    string
	watchScope     string
)

var watchCmd = &cobra.Command{
	Use:     "watch <transcript-path>",
	GroupID: "data",
	Short:   "Watch a transcript file and ingest new content as it's appended",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		transcriptPath := args[0]

		ctx, stop := signal.NotifyContext(cmd.Context(), syscall.SIGINT, syscall.SIGTERM)
		defer stop()

		mgr := newManager()
		defer mgr.Close()

		store, err := mgr.StoreForScope(ctx, watchScope, projectDir)
		if err != nil {
			return fmt.Errorf("open store: %w", err)
		}

		onChange := func(path string) {
			result, err := ingest.Ingest(ctx, store, ingest.Request{
				Source:         watchSource,
				SessionID:      watchSessionID,
				TranscriptPath: path,
				ProjectPath:    projectDir,
			})
			if err != nil {
				fmt.Println(styleError.Render(fmt.Sprintf("ingest %s: %v", path, err)))
				return
			}
			if result.Skipped {
				return
			}
			printMuted(fmt.Sprintf("ingested content_item=%d bytes=%d tool_calls=%d", result.ContentItemID, result.BytesRead, result.ToolCalls))
		}

		debounce := time.Duration(config.GetInt("watch.debounce-ms")) * time.Millisecond
		w, err := watcher.New(debounce, onChange)
		if err != nil {
			return fmt.Errorf("create watcher: %w", err)
		}
		if err := w.Add(transcriptPath); err != nil {
			return fmt.Errorf("watch %s: %w", transcriptPath, err)
		}

		printHeading(fmt.Sprintf("watching %s (scope=%s)", transcriptPath, watchScope))
		return w.Run(ctx, func(err error) {
			fmt.Println(styleWarn.Render("watcher error: " + err.Error()))
		})
	},
}

func init() {
	watchCmd.Flags().StringVar(&watchSessionID, "session-id", "", "session identifier the transcript belongs to")
	watchCmd.Flags().StringVar(&watchSource, "source", "claude-code", "source label recorded on the content item")
	watchCmd.Flags().StringVar(&watchScope, "scope", types.ScopeProject, "store to ingest into: project|global")
	_ = watchCmd.MarkFlagRequired("session-id")
	rootCmd.AddCommand(watchCmd)
}
