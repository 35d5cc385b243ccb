// Package app implements the application layer for memo.
package app

import (
	"context"
	"errors"
	"fmt"
	"io"
	"maps"
	"os"
	"strconv"

	"github.com/google/uuid"
	"go.trai.ch/memo/internal/adapters/detector"
	"go.trai.ch/memo/internal/adapters/linear"
	"go.trai.ch/memo/internal/adapters/telemetry"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/coordinator"
	"go.trai.ch/memo/internal/engine/memo"
	"go.trai.ch/memo/internal/engine/planner"
	"go.trai.ch/memo/internal/engine/scheduler"
	"go.trai.ch/memo/internal/engine/versioning"
	"go.trai.ch/zerr"
)

// TagMemoized is set on runs that had nothing to execute.
const TagMemoized = "memoized"

// RunLister lists stored runs, most recently created first.
type RunLister interface {
	List(ctx context.Context) ([]uuid.UUID, error)
}

// Dependencies are the components an App is built from.
type Dependencies struct {
	Loader      ports.ConfigLoader
	Resolver    ports.ConfigResolver
	Planner     *planner.Builder
	Versioner   *versioning.Resolver
	Memo        *memo.Resolver
	Coordinator *coordinator.Coordinator
	Scheduler   *scheduler.Scheduler
	Tracer      *telemetry.OTelTracer
	Watcher     ports.Watcher
	Runs        RunLister
	Logger      ports.Logger
	Root        domain.WorkspaceRoot
}

// App represents the main application logic.
type App struct {
	deps   Dependencies
	stdout io.Writer
	stderr io.Writer
}

// New creates a new App instance.
func New(deps Dependencies) *App {
	return &App{
		deps:   deps,
		stdout: os.Stdout,
		stderr: os.Stderr,
	}
}

// WithOutput redirects step output and progress lines.
func (a *App) WithOutput(stdout, stderr io.Writer) *App {
	a.stdout = stdout
	a.stderr = stderr
	return a
}

// ExecOptions control how the steps of a run execute.
type ExecOptions struct {
	// Parallelism bounds concurrently running steps. Zero keeps the default.
	Parallelism int
	// ContinueOnFailure selects the continue-independent failure policy.
	ContinueOnFailure bool
	// OutputMode is one of auto, interactive, ci or quiet.
	OutputMode string
	// TraceFile, when set, receives one JSON line per finished span.
	TraceFile string
}

// RunOptions configuration for the Run method.
type RunOptions struct {
	ExecOptions
	// ConfigPath is the run configuration file. Empty means no configuration.
	ConfigPath string
	// Mode defaults to domain.DefaultModeName.
	Mode string
	Tags map[string]string
}

// ReexecuteOptions configuration for the Reexecute method.
type ReexecuteOptions struct {
	ExecOptions
	// Steps overrides the selection. Empty selects what memoization requires.
	Steps []string
	Tags  map[string]string
}

// Result summarizes a finished run.
type Result struct {
	RunID    uuid.UUID
	Status   domain.RunStatus
	Executed []string
}

// Run plans and executes a new run. A run that ends in failure or canceled
// returns an error wrapping domain.ErrRunFailed; errors raised before any
// step starts satisfy domain.IsPreExecution.
func (a *App) Run(ctx context.Context, opts RunOptions) (*Result, error) {
	workflow, vp, err := a.load(opts.ConfigPath, opts.Mode)
	if err != nil {
		return nil, err
	}

	return a.execute(ctx, vp, coordinator.CreateRunRequest{
		Workflow: workflow.Name,
		Mode:     vp.Config().Mode,
		Config:   vp.Config(),
		Tags:     opts.Tags,
	}, nil, opts.ExecOptions)
}

// Reexecute runs the current workflow again under the configuration of a
// prior run. Steps the parent materialized are reused.
func (a *App) Reexecute(ctx context.Context, parentID uuid.UUID, opts ReexecuteOptions) (*Result, error) {
	parent, err := a.deps.Coordinator.Run(ctx, parentID)
	if err != nil {
		return nil, err
	}
	inherited, err := a.deps.Coordinator.ParentMaterializations(ctx, parentID)
	if err != nil {
		return nil, err
	}

	workflow, err := a.deps.Loader.Load(string(a.deps.Root))
	if err != nil {
		return nil, zerr.Wrap(err, "failed to load workflow")
	}

	vp, err := a.version(workflow, parent.Config, parent.Mode)
	if err != nil {
		return nil, err
	}

	return a.execute(ctx, vp, coordinator.CreateRunRequest{
		Workflow:    workflow.Name,
		Mode:        parent.Mode,
		Config:      parent.Config,
		Tags:        opts.Tags,
		ParentRunID: &parentID,
		Inherited:   inherited,
	}, opts.Steps, opts.ExecOptions)
}

// LatestRun returns the id of the most recently created run.
func (a *App) LatestRun(ctx context.Context) (uuid.UUID, error) {
	ids, err := a.deps.Runs.List(ctx)
	if err != nil {
		return uuid.Nil, err
	}
	if len(ids) == 0 {
		return uuid.Nil, zerr.Wrap(domain.ErrRunNotFound, "no runs recorded")
	}
	return ids[0], nil
}

// PlanOptions configuration for the Plan method.
type PlanOptions struct {
	ConfigPath string
	Mode       string
}

// Plan reports the steps a run under opts would execute without creating a
// run record.
func (a *App) Plan(ctx context.Context, opts PlanOptions) (*PlanReport, error) {
	workflow, vp, err := a.load(opts.ConfigPath, opts.Mode)
	if err != nil {
		return nil, err
	}

	selected, err := a.deps.Memo.ResolveMissing(ctx, vp, nil)
	if err != nil {
		return nil, err
	}
	return newPlanReport(workflow.Name, vp, selected), nil
}

// CleanOptions configuration for the Clean method.
type CleanOptions struct {
	Index bool
	Runs  bool
}

// Clean removes the materialization index and run records.
func (a *App) Clean(_ context.Context, options CleanOptions) error {
	var errs error

	remove := func(path string, name string) {
		a.deps.Logger.Info(fmt.Sprintf("removing %s...", name))
		if err := os.RemoveAll(path); err != nil {
			errs = errors.Join(errs, zerr.With(zerr.Wrap(err, fmt.Sprintf("failed to remove %s", name)), "path", path))
			return
		}
		a.deps.Logger.Info(fmt.Sprintf("removed %s", name))
	}

	if options.Index {
		remove(a.deps.Root.IndexPath(), "materialization index")
	}
	if options.Runs {
		remove(a.deps.Root.RunsPath(), "run records")
	}

	return errs
}

// load reads the workflow and the run configuration and versions the plan
// for mode.
func (a *App) load(configPath, mode string) (*domain.Workflow, *domain.VersionedPlan, error) {
	workflow, err := a.deps.Loader.Load(string(a.deps.Root))
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to load workflow")
	}

	raw, err := a.deps.Loader.LoadRunConfig(configPath)
	if err != nil {
		return nil, nil, zerr.Wrap(err, "failed to load run configuration")
	}

	if mode == "" {
		mode = domain.DefaultModeName
	}
	resolved, err := a.deps.Resolver.Resolve(workflow, mode, raw)
	if err != nil {
		return nil, nil, err
	}

	vp, err := a.version(workflow, resolved, mode)
	if err != nil {
		return nil, nil, err
	}
	return workflow, vp, nil
}

func (a *App) version(
	workflow *domain.Workflow,
	resolved domain.ResolvedConfig,
	mode string,
) (*domain.VersionedPlan, error) {
	plan, err := a.deps.Planner.Build(workflow, resolved, mode)
	if err != nil {
		return nil, err
	}
	return a.deps.Versioner.Resolve(workflow, plan, resolved)
}

// execute selects the steps to run, creates the run record and drives it to
// a terminal status while rendering its events.
func (a *App) execute(
	ctx context.Context,
	vp *domain.VersionedPlan,
	req coordinator.CreateRunRequest,
	override []string,
	opts ExecOptions,
) (*Result, error) {
	selected, err := a.deps.Memo.Select(ctx, vp, req.Inherited, override)
	if err != nil {
		return nil, err
	}

	req.StepKeysToExecute = selected
	req.Tags = maps.Clone(req.Tags)
	if req.Tags == nil {
		req.Tags = make(map[string]string)
	}
	req.Tags[TagMemoized] = strconv.FormatBool(len(selected) == 0)
	if opts.ContinueOnFailure {
		req.Policy = domain.ContinueIndependent
	}

	shutdownTracing, err := a.setupTracing(opts.TraceFile)
	if err != nil {
		return nil, err
	}
	defer shutdownTracing()

	renderer := a.newRenderer(opts.OutputMode)
	a.deps.Tracer.WithSink(renderer)
	defer a.deps.Tracer.WithSink(nil)
	unobserve := a.deps.Coordinator.Observe(renderer)
	defer unobserve()

	renderer.OnPlan(vp, selected)

	run, err := a.deps.Coordinator.CreateRun(ctx, req)
	if err != nil {
		return nil, err
	}

	runCtx, span := a.deps.Tracer.Start(ctx, "run")
	span.SetAttribute("memo.run_id", run.ID.String())
	span.SetAttribute("memo.mode", run.Mode)

	sched := a.deps.Scheduler.WithParallelism(opts.Parallelism)
	status, execErr := a.deps.Coordinator.Execute(runCtx, run, vp, sched)
	if execErr != nil {
		span.RecordError(execErr)
	}
	span.SetAttribute("memo.status", string(status))
	span.End()

	_ = a.deps.Tracer.Sync(context.WithoutCancel(ctx))
	_ = renderer.Close()

	result := &Result{RunID: run.ID, Status: status, Executed: selected}
	a.deps.Logger.Info(fmt.Sprintf("run %s finished with status %s", run.ID, status))

	if execErr != nil {
		return result, execErr
	}
	if status.IsFailure() {
		return result, zerr.With(zerr.With(zerr.Wrap(domain.ErrRunFailed, "run"),
			"run_id", run.ID.String()), "status", string(status))
	}
	return result, nil
}

func (a *App) newRenderer(outputMode string) *linear.Renderer {
	mode := detector.ResolveMode(detector.DetectEnvironment(), outputMode)
	return linear.NewRenderer(a.stdout, a.stderr,
		linear.WithProfile(detector.ColorProfile(mode)),
		linear.WithQuiet(!detector.StreamsStepOutput(mode)),
	)
}

// setupTracing installs a provider exporting finished spans to path. The
// returned function flushes the exporter and closes the file.
func (a *App) setupTracing(path string) (func(), error) {
	if path == "" {
		return func() {}, nil
	}

	//nolint:gosec // the trace file path is chosen by the user
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, domain.FilePerm)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "open trace file"), "path", path)
	}

	tp := telemetry.NewProvider(telemetry.NewBridge(f))
	return func() {
		if err := tp.Shutdown(context.Background()); err != nil {
			a.deps.Logger.Error(zerr.Wrap(err, "flush trace file"))
		}
		_ = f.Close()
	}, nil
}
