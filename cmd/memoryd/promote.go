package main

import (
	"fmt"
	"strconv"

	"github.com/spf13/cobra"

	"github.com/devhaven/memoryd/internal/storemanager"
)

var promoteCmd = &cobra.Command{
	Use:     "promote <fact-id>",
	GroupID: "data",
	Short:   "Copy a project-scope fact into the global store",
	Args:    cobra.ExactArgs(1),
	RunE: func(cmd *cobra.Command, args []string) error {
		factID, err := strconv.ParseInt(args[0], 10, 64)
		if err != nil {
			return fmt.Errorf("invalid fact id %q: %w", args[0], err)
		}
		if projectDir == "" {
			return fmt.Errorf("--project is required to locate the source fact")
		}

		ctx := cmd.Context()
		mgr := newManager()
		defer mgr.Close()

		projectStore, err := mgr.Project(ctx, projectDir)
		if err != nil {
			return fmt.Errorf("open project store: %w", err)
		}
		globalStore, err := mgr.Global(ctx)
		if err != nil {
			return fmt.Errorf("open global store: %w", err)
		}

		newID, err := storemanager.Promote(ctx, projectStore, globalStore, factID)
		if err != nil {
			return fmt.Errorf("promote fact %d: %w", factID, err)
		}
		fmt.Printf("promoted fact %d -> global fact %d\n", factID, newID)
		return nil
	},
}

func init() {
	rootCmd.AddCommand(promoteCmd)
}
