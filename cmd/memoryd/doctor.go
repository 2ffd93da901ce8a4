package main

import (
	"fmt"

	"github.com/spf13/cobra"

	"github.com/devhaven/memoryd/internal/recall"
	"github.com/devhaven/memoryd/internal/types"
	"github.com/devhaven/memoryd/internal/validator"
)

var (
	doctorScope string
	doctorFix   bool
)

var doctorCmd = &cobra.Command{
	Use:     "doctor",
	GroupID: "ops",
	Short:   "Validate store schema health and report (or reset) stuck operations",
	RunE: func(cmd *cobra.Command, args []string) error {
		ctx := cmd.Context()
		mgr := newManager()
		defer mgr.Close()

		var reports []doctorReport
		run := func(scope string) error {
			store, err := mgr.StoreForScope(ctx, scope, projectDir)
			if err != nil {
				return fmt.Errorf("open %s store: %w", scope, err)
			}
			report, err := validator.Run(ctx, store)
			if err != nil {
				return fmt.Errorf("validate %s store: %w", scope, err)
			}
			stuck := 0
			if doctorFix {
				stuck, err = validator.RecoverStuckOperations(ctx, store)
				if err != nil {
					return fmt.Errorf("recover stuck operations in %s store: %w", scope, err)
				}
			}
			reports = append(reports, doctorReport{Scope: scope, Report: report, Recovered: stuck})
			return nil
		}

		if doctorScope == types.ScopeGlobal || doctorScope == recall.ScopeAll {
			if err := run(types.ScopeGlobal); err != nil {
				return err
			}
		}
		if (doctorScope == types.ScopeProject || doctorScope == recall.ScopeAll) && projectDir != "" {
			if err := run(types.ScopeProject); err != nil {
				return err
			}
		}

		if structuredOutput() {
			return writeStructured(cmd, reports)
		}

		exitCode := 0
		for _, r := range reports {
			status := styleOK.Render("healthy")
			if !r.Report.Valid {
				status = styleError.Render("has errors")
				exitCode = 2
			} else if len(r.Report.Issues) > 0 {
				status = styleWarn.Render("degraded")
				if exitCode < 1 {
					exitCode = 1
				}
			}
			fmt.Printf("%s: %s\n", styleHeading.Render(r.Scope+" store"), status)
			for _, issue := range r.Report.Issues {
				if issue.Severity == types.SeverityError {
					fmt.Println(styleError.Render("  error: " + issue.Message))
				} else {
					fmt.Println(styleWarn.Render("  warn:  " + issue.Message))
				}
			}
			if doctorFix {
				fmt.Printf("  recovered %d stuck operation(s)\n", r.Recovered)
			}
		}
		if exitCode != 0 {
			return exitError{code: exitCode}
		}
		return nil
	},
}

type doctorReport struct {
	Scope     string           `json:"scope"`
	Report    validator.Report `json:"report"`
	Recovered int              `json:"recovered"`
}

// exitError carries a hook-style exit code (0/1/2) without printing an
// error message cobra would otherwise prefix with "memoryd:".
type exitError struct{ code int }

func (e exitError) Error() string { return "" }

func init() {
	doctorCmd.Flags().StringVar(&doctorScope, "scope", recall.ScopeAll, "store(s) to validate: all|project|global")
	doctorCmd.Flags().BoolVar(&doctorFix, "fix", false, "reset stuck operations back to failed")
	rootCmd.AddCommand(doctorCmd)
}
