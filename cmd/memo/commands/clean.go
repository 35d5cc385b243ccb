package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/memo/internal/app"
)

func (c *CLI) newCleanCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "clean",
		Short: "Remove the materialization index and run records",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			index, _ := cmd.Flags().GetBool("index")
			runs, _ := cmd.Flags().GetBool("runs")

			opts := app.CleanOptions{
				Index: index,
				Runs:  runs,
			}

			// Default behavior: clean everything
			if !index && !runs {
				opts.Index = true
				opts.Runs = true
			}

			return c.app.Clean(cmd.Context(), opts)
		},
	}

	cmd.Flags().BoolP("index", "i", false, "Clean only the materialization index")
	cmd.Flags().BoolP("runs", "r", false, "Clean only the run records")

	return cmd
}
