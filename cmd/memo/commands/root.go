// Package commands implements the CLI commands for memo.
package commands

import (
	"context"
	"io"

	"github.com/google/uuid"
	"github.com/spf13/cobra"
	"go.trai.ch/memo/internal/app"
	"go.trai.ch/memo/internal/build"
)

// CLI represents the command line interface for memo.
type CLI struct {
	app      Application
	rootCmd  *cobra.Command
	jsonLogs func(bool)
}

// Application represents the application logic interface.
type Application interface {
	Run(ctx context.Context, opts app.RunOptions) (*app.Result, error)
	Reexecute(ctx context.Context, parentID uuid.UUID, opts app.ReexecuteOptions) (*app.Result, error)
	LatestRun(ctx context.Context) (uuid.UUID, error)
	Plan(ctx context.Context, opts app.PlanOptions) (*app.PlanReport, error)
	Watch(ctx context.Context, opts app.RunOptions) error
	Clean(ctx context.Context, opts app.CleanOptions) error
}

const (
	groupRuns      = "runs"
	groupWorkspace = "workspace"
)

// New creates a new CLI instance with the given app.
func New(a Application) *CLI {
	rootCmd := &cobra.Command{
		Use:   "memo",
		Short: "A memoizing workflow runner",
		Long: `memo runs the steps of a workflow and records a materialization for each.
A step whose data version is already materialized is memoized instead of
executed again.`,
		SilenceUsage:  true,
		SilenceErrors: true,
		Version:       build.Version,
	}

	rootCmd.SetVersionTemplate(build.Summary() + "\n")
	rootCmd.InitDefaultVersionFlag()
	rootCmd.Flags().Lookup("version").Usage = "Print the application version"
	rootCmd.InitDefaultHelpFlag()
	rootCmd.Flags().Lookup("help").Usage = "Show help for command"
	rootCmd.PersistentFlags().Bool("json-logs", false, "Write logs as JSON")

	c := &CLI{app: a, rootCmd: rootCmd}
	rootCmd.PersistentPreRun = func(cmd *cobra.Command, _ []string) {
		if c.jsonLogs == nil {
			return
		}
		enabled, _ := cmd.Flags().GetBool("json-logs")
		c.jsonLogs(enabled)
	}

	rootCmd.AddGroup(
		&cobra.Group{ID: groupRuns, Title: "Runs:"},
		&cobra.Group{ID: groupWorkspace, Title: "Workspace:"},
	)
	c.addCommands(groupRuns, c.newRunCmd(), c.newReexecuteCmd(), c.newPlanCmd())
	c.addCommands(groupWorkspace, c.newCleanCmd())
	rootCmd.AddCommand(c.newVersionCmd())

	return c
}

func (c *CLI) addCommands(group string, cmds ...*cobra.Command) {
	for _, cmd := range cmds {
		cmd.GroupID = group
		c.rootCmd.AddCommand(cmd)
	}
}

// OnJSONLogs registers fn to receive the value of the --json-logs flag before
// any command runs.
func (c *CLI) OnJSONLogs(fn func(bool)) {
	c.jsonLogs = fn
}

// Execute runs the root command with the given context.
func (c *CLI) Execute(ctx context.Context) error {
	c.rootCmd.SetContext(ctx)
	return c.rootCmd.Execute()
}

// SetArgs sets the arguments for the root command. Used for testing.
func (c *CLI) SetArgs(args []string) {
	c.rootCmd.SetArgs(args)
}

// SetOutput sets the output and error streams for the root command. Used for testing.
func (c *CLI) SetOutput(out, err io.Writer) {
	c.rootCmd.SetOut(out)
	c.rootCmd.SetErr(err)
}
