// Command memoryd is the per-developer memory daemon and CLI: it ingests
// conversational transcripts into a durable, truth-maintained fact store and
// serves recall queries back out of it.
package main

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"gopkg.in/yaml.v3"

	"github.com/devhaven/memoryd/internal/config"
)

var (
	outputFormat string
	verbose      bool
	projectDir   string
)

var rootCmd = &cobra.Command{
	Use:           "memoryd",
	Short:         "Durable per-developer memory for conversational transcripts",
	SilenceUsage:  true,
	SilenceErrors: true,
	PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
		if err := config.Initialize(); err != nil {
			return fmt.Errorf("load configuration: %w", err)
		}
		if projectDir == "" {
			if wd, err := os.Getwd(); err == nil {
				projectDir = wd
			}
		}
		return nil
	},
}

func init() {
	rootCmd.AddGroup(
		&cobra.Group{ID: "data", Title: "Data commands:"},
		&cobra.Group{ID: "ops", Title: "Operations commands:"},
	)
	rootCmd.PersistentFlags().StringVar(&outputFormat, "format", "text", "output format: text|json|yaml")
	rootCmd.PersistentFlags().BoolVarP(&verbose, "verbose", "v", false, "print additional diagnostic detail")
	rootCmd.PersistentFlags().StringVar(&projectDir, "project", "", "project path for scope=project operations (default: cwd)")
}

// structuredOutput reports whether the command should skip its rendered
// text path in favor of writeStructured.
func structuredOutput() bool {
	return outputFormat == "json" || outputFormat == "yaml"
}

// writeStructured encodes v as JSON or YAML per --format and writes it to
// cmd's configured output stream.
func writeStructured(cmd *cobra.Command, v any) error {
	switch outputFormat {
	case "yaml":
		enc := yaml.NewEncoder(cmd.OutOrStdout())
		defer enc.Close()
		return enc.Encode(v)
	default:
		enc := json.NewEncoder(cmd.OutOrStdout())
		enc.SetIndent("", "  ")
		return enc.Encode(v)
	}
}

// main translates command failures into the hook exit codes downstream
// automation switches on: 0 success, 1 non-blocking warning, 2 blocking
// error. A plain error (not an exitError) is always treated as blocking.
func main() {
	if err := rootCmd.Execute(); err != nil {
		code := 1
		if ee, ok := err.(exitError); ok {
			code = ee.code
		} else {
			fmt.Fprintln(os.Stderr, "memoryd:", err)
			code = 2
		}
		os.Exit(code)
	}
}
