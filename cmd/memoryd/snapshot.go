package main

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/spf13/cobra"

	"github.com/devhaven/memoryd/internal/recall"
	"github.com/devhaven/memoryd/internal/storage"
	"github.com/devhaven/memoryd/internal/types"
)

const snapshotRelPath = "rules/claude_memory.generated.md"

var snapshotPreview bool

var snapshotCmd = &cobra.Command{
	Use:     "snapshot",
	GroupID: "data",
	Short:   "Regenerate the published memory digest for the current project",
	RunE: func(cmd *cobra.Command, args []string) error {
		if projectDir == "" {
			return fmt.Errorf("--project is required to locate the snapshot target")
		}
		ctx := cmd.Context()
		mgr := newManager()
		defer mgr.Close()

		queryFn := func(ctx context.Context, store storage.Storage) ([]*types.Fact, error) {
			return store.FactsWithEmbeddings(ctx, "", "")
		}
		results, err := recall.Query(ctx, mgr, recall.ScopeAll, projectDir, 0, queryFn)
		if err != nil {
			return fmt.Errorf("recall facts for snapshot: %w", err)
		}

		details, err := detailsForResults(ctx, mgr, projectDir, results)
		if err != nil {
			return fmt.Errorf("load details for snapshot: %w", err)
		}

		md := buildSnapshot(projectDir, details)

		if snapshotPreview {
			rendered, err := renderMarkdown(md)
			if err != nil {
				return fmt.Errorf("render snapshot preview: %w", err)
			}
			fmt.Println(rendered)
			return nil
		}

		outPath := filepath.Join(projectDir, ".claude", snapshotRelPath)
		if err := os.MkdirAll(filepath.Dir(outPath), 0o755); err != nil {
			return fmt.Errorf("create snapshot directory: %w", err)
		}
		if err := os.WriteFile(outPath, []byte(md), 0o644); err != nil {
			return fmt.Errorf("write snapshot: %w", err)
		}
		fmt.Printf("wrote %s (%d facts)\n", outPath, len(results))
		return nil
	},
}

func buildSnapshot(projectPath string, details []recall.Details) string {
	var b strings.Builder
	b.WriteString("# Project Memory\n\n")
	fmt.Fprintf(&b, "_Generated from %d recalled fact(s) for %s._\n\n", len(details), projectPath)

	bySubject := make(map[string][]recall.Details)
	var order []string
	for _, d := range details {
		name := "unknown"
		if d.SubjectEntity != nil {
			name = d.SubjectEntity.CanonicalName
		}
		if _, ok := bySubject[name]; !ok {
			order = append(order, name)
		}
		bySubject[name] = append(bySubject[name], d)
	}

	for _, name := range order {
		fmt.Fprintf(&b, "## %s\n\n", name)
		for _, d := range bySubject[name] {
			object := d.Fact.ObjectLiteral
			if d.ObjectEntity != nil {
				object = d.ObjectEntity.CanonicalName
			}
			fmt.Fprintf(&b, "- **%s** %s _(scope: %s)_\n", d.Fact.Predicate, object, d.Source)
		}
		b.WriteString("\n")
	}

	if len(details) == 0 {
		b.WriteString("_No active facts recalled yet._\n")
	}
	return b.String()
}

func init() {
	snapshotCmd.Flags().BoolVar(&snapshotPreview, "preview", false, "render to the terminal instead of writing the snapshot file")
	rootCmd.AddCommand(snapshotCmd)
}
