package commands

import (
	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.trai.ch/memo/internal/app"
	"go.trai.ch/zerr"
)

func (c *CLI) newReexecuteCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "reexecute <run-id|latest>",
		Short: "Run again under the configuration of a prior run",
		Long: "Run the current workflow again under the mode and configuration of a prior run.\n" +
			"Steps the prior run materialized are reused. --step selects the steps to execute explicitly.",
		Args: cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			parentID, err := c.parentRunID(cmd, args[0])
			if err != nil {
				return err
			}
			steps, _ := cmd.Flags().GetStringArray("step")

			runTags, err := tags(cmd)
			if err != nil {
				return err
			}

			_, err = c.app.Reexecute(cmd.Context(), parentID, app.ReexecuteOptions{
				ExecOptions: execOptions(cmd),
				Steps:       steps,
				Tags:        runTags,
			})
			return err
		},
	}
	cmd.Flags().StringArrayP("step", "s", nil, "Step key to execute (repeatable)")
	addExecFlags(cmd)
	return cmd
}

// latestRun selects the most recently created run.
const latestRun = "latest"

func (c *CLI) parentRunID(cmd *cobra.Command, arg string) (uuid.UUID, error) {
	if arg == latestRun {
		return c.app.LatestRun(cmd.Context())
	}
	id, err := uuid.Parse(arg)
	if err != nil {
		return uuid.Nil, zerr.With(zerr.Wrap(err, "invalid run id"), "run_id", arg)
	}
	return id, nil
}
