package commands

import (
	"github.com/spf13/cobra"
	"go.trai.ch/memo/internal/app"
)

func (c *CLI) newRunCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:   "run",
		Short: "Run the workflow, executing only the steps whose data version changed",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			configPath, _ := cmd.Flags().GetString("config")
			mode, _ := cmd.Flags().GetString("mode")
			watch, _ := cmd.Flags().GetBool("watch")

			runTags, err := tags(cmd)
			if err != nil {
				return err
			}

			opts := app.RunOptions{
				ExecOptions: execOptions(cmd),
				ConfigPath:  configPath,
				Mode:        mode,
				Tags:        runTags,
			}

			if watch {
				return c.app.Watch(cmd.Context(), opts)
			}
			_, err = c.app.Run(cmd.Context(), opts)
			return err
		},
	}
	cmd.Flags().StringP("config", "c", "", "Run configuration file (YAML)")
	cmd.Flags().StringP("mode", "m", "", "Mode to run in (defaults to \"default\")")
	cmd.Flags().BoolP("watch", "w", false, "Run again whenever the workflow or run configuration changes")
	addExecFlags(cmd)
	return cmd
}
