// Package main is the entry point for memo.
package main

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"os/signal"
	"syscall"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/cmd/memo/commands"
	"go.trai.ch/memo/internal/app"
	"go.trai.ch/memo/internal/core/domain"
	_ "go.trai.ch/memo/internal/wiring"
)

// Exit codes.
const (
	exitOK           = 0
	exitFailure      = 1
	exitPreExecution = 2
)

// ComponentProvider is a function that returns the application components.
type ComponentProvider func(context.Context) (*app.Components, func(), error)

func main() {
	os.Exit(run(context.Background(), os.Args[1:], os.Stderr, func(ctx context.Context) (*app.Components, func(), error) {
		c, _, err := graft.ExecuteFor[*app.Components](ctx)
		return c, func() {}, err
	}))
}

func run(
	ctx context.Context,
	args []string,
	stderr io.Writer,
	provider ComponentProvider,
	opts ...func(*app.App),
) int {
	// 0. Context with signal handling
	ctx, cancel := signal.NotifyContext(ctx, os.Interrupt, syscall.SIGTERM)
	defer cancel()

	// 1. Initialize application components
	components, cleanup, err := provider(ctx)
	if err != nil {
		// Logger is not available yet if initialization failed
		// Write directly to stderr passed in
		_, _ = fmt.Fprintln(stderr, "Error: "+err.Error())
		return exitFailure
	}
	defer cleanup()
	if components.Tracer != nil {
		defer func() { _ = components.Tracer.Shutdown(context.WithoutCancel(ctx)) }()
	}

	// Apply options
	for _, opt := range opts {
		opt(components.App)
	}

	// 2. Interface - CLI
	cli := commands.New(components.App)
	cli.SetArgs(args)
	cli.SetOutput(os.Stdout, stderr)
	if l, ok := components.Logger.(interface{ SetJSON(bool) }); ok {
		cli.OnJSONLogs(l.SetJSON)
	}

	// 3. Execution
	return exitCode(cli.Execute(ctx), components)
}

// exitCode maps a command error to the process exit code. Failed runs were
// already reported by the renderer and are not logged again.
func exitCode(err error, components *app.Components) int {
	switch {
	case err == nil:
		return exitOK
	case errors.Is(err, domain.ErrRunFailed):
		return exitFailure
	case domain.IsPreExecution(err):
		components.Logger.Error(err)
		return exitPreExecution
	default:
		components.Logger.Error(err)
		return exitFailure
	}
}
