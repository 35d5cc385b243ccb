package commands

import (
	"encoding/json"
	"fmt"
	"io"
	"text/tabwriter"

	"github.com/spf13/cobra"
	"go.trai.ch/memo/internal/app"
)

func (c *CLI) newPlanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "plan",
		Short: "Show which steps a run would execute without running them",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			mode, _ := cmd.Flags().GetString("mode")
			asJSON, _ := cmd.Flags().GetBool("json")

			report, err := c.app.Plan(cmd.Context(), app.PlanOptions{
				ConfigPath: configPath,
				Mode:       mode,
			})
			if err != nil {
				return err
			}

			if asJSON {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(report)
			}
			return printPlan(cmd.OutOrStdout(), report)
		},
	}
	cmd.Flags().StringP("config", "c", "", "Run configuration file (YAML)")
	cmd.Flags().StringP("mode", "m", "", "Mode to plan for (defaults to \"default\")")
	cmd.Flags().Bool("json", false, "Print the plan as JSON")
	return cmd
}

func printPlan(w io.Writer, report *app.PlanReport) error {
	_, _ = fmt.Fprintf(w, "Workflow %s in mode %s\n\n", report.Workflow, report.Mode)

	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, step := range report.Steps {
		action := "memoized"
		if step.Execute {
			action = "execute"
		}
		_, _ = fmt.Fprintf(tw, "  %s\t%s\t%s\n", action, step.Key, step.DataVersion.Short())
	}
	if err := tw.Flush(); err != nil {
		return err
	}

	if report.UpToDate() {
		_, _ = fmt.Fprintln(w, "\nEverything is up to date.")
		return nil
	}
	_, _ = fmt.Fprintf(w, "\n%d of %d step(s) would execute.\n", len(report.ExecuteKeys()), len(report.Steps))
	return nil
}
