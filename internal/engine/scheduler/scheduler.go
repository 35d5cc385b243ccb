// Package scheduler runs the selected steps of a versioned plan.
package scheduler

import (
	"context"
	"runtime"
	"time"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.StepExecutor = (*Scheduler)(nil)

// BranchVersioner versions the runtime branches of placeholder steps.
type BranchVersioner interface {
	BranchVersion(
		vp *domain.VersionedPlan,
		branch domain.ExecutionStep,
		runtime map[string]domain.DataVersion,
	) (domain.DataVersion, error)
}

// Scheduler executes steps on a bounded pool of workers. Events are emitted
// from a single loop so a step's start always follows the terminal events of
// its upstream steps.
type Scheduler struct {
	runner      ports.StepRunner
	index       ports.MaterializationIndex
	versioner   BranchVersioner
	tracer      ports.Tracer
	parallelism int
	now         func() time.Time
}

// NewScheduler creates a new Scheduler with the given dependencies.
// Parallelism defaults to the number of CPUs.
func NewScheduler(
	runner ports.StepRunner,
	index ports.MaterializationIndex,
	versioner BranchVersioner,
	tracer ports.Tracer,
) *Scheduler {
	return &Scheduler{
		runner:      runner,
		index:       index,
		versioner:   versioner,
		tracer:      tracer,
		parallelism: runtime.NumCPU(),
		now:         time.Now,
	}
}

// WithParallelism returns a copy of the scheduler running at most n steps at
// once. Values below one keep the current limit.
func (s *Scheduler) WithParallelism(n int) *Scheduler {
	c := *s
	if n > 0 {
		c.parallelism = n
	}
	return &c
}

// Execute runs run.StepKeysToExecute.
//
// Steps outside the selection are skipped up front, as memoized when a
// materialization of their data version exists. Selected steps run once all
// of their selected upstream steps succeeded. A failed step skips everything
// downstream of it; under the fail-fast policy no new step starts either.
// After ctx is canceled in-flight steps finish but nothing new starts.
//
// The returned error reports a problem outside any single step, such as an
// event the sink rejected.
func (s *Scheduler) Execute(
	ctx context.Context,
	run *domain.Run,
	vp *domain.VersionedPlan,
	sink ports.EventSink,
) (domain.RunStatus, error) {
	state := s.newRunState(ctx, run, vp, sink)

	s.tracer.EmitPlan(ctx, run.StepKeysToExecute)

	state.skipUnselected()
	if state.err == nil {
		state.runExecutionLoop()
	}
	state.finalize()

	if state.err != nil {
		return domain.RunStatusFailure, zerr.With(zerr.Wrap(state.err, "execute run"), "run_id", run.ID.String())
	}
	return state.status(), nil
}

type outcome uint8

const (
	outcomePending outcome = iota
	outcomeRunning
	outcomeSucceeded
	outcomeFailed
	outcomeSkipped
)

type result struct {
	key    string
	output domain.StepResult
	err    error
}

type schedulerRunState struct {
	s       *Scheduler
	ctx     context.Context
	execCtx context.Context
	run     *domain.Run
	vp      *domain.VersionedPlan
	plan    *domain.ExecutionPlan
	sink    ports.EventSink

	steps    map[string]domain.ExecutionStep
	selected map[string]bool
	versions map[string]domain.DataVersion
	outcomes map[string]outcome
	inDegree map[string]int
	produced map[string]domain.Materialization

	branches    map[string][]string
	remaining   map[string]int
	mappingKeys map[string][]string

	ready       []string
	active      int
	parallelism int
	resultsCh   chan result

	failed        bool
	halted        bool
	canceled      bool
	cancelSkipped bool
	err           error
}

func (s *Scheduler) newRunState(
	ctx context.Context,
	run *domain.Run,
	vp *domain.VersionedPlan,
	sink ports.EventSink,
) *schedulerRunState {
	plan := vp.Plan()
	state := &schedulerRunState{
		s:           s,
		ctx:         ctx,
		execCtx:     context.WithoutCancel(ctx),
		run:         run,
		vp:          vp,
		plan:        plan,
		sink:        sink,
		steps:       make(map[string]domain.ExecutionStep, plan.Len()),
		selected:    make(map[string]bool, len(run.StepKeysToExecute)),
		versions:    vp.Versions(),
		outcomes:    make(map[string]outcome, plan.Len()),
		inDegree:    make(map[string]int, len(run.StepKeysToExecute)),
		produced:    make(map[string]domain.Materialization, plan.Len()),
		branches:    make(map[string][]string),
		remaining:   make(map[string]int),
		mappingKeys: make(map[string][]string),
		parallelism: s.parallelism,
		resultsCh:   make(chan result, s.parallelism),
	}

	for _, key := range run.StepKeysToExecute {
		if plan.Contains(key) {
			state.selected[key] = true
		}
	}

	for step := range plan.Steps() {
		state.steps[step.Key] = step
		if !state.selected[step.Key] {
			continue
		}
		degree := 0
		for _, up := range step.UpstreamKeys {
			if state.selected[up] {
				degree++
			}
		}
		state.inDegree[step.Key] = degree
		if degree == 0 {
			state.ready = append(state.ready, step.Key)
		}
	}

	return state
}

// skipUnselected records a skip event for every step outside the selection.
func (state *schedulerRunState) skipUnselected() {
	for step := range state.plan.Steps() {
		if state.selected[step.Key] {
			continue
		}
		state.outcomes[step.Key] = outcomeSkipped

		version := state.versions[step.Key]
		m, err := state.memoized(step.Key, version)
		if err != nil {
			state.err = err
			return
		}
		if m == nil {
			state.emit(domain.RunEvent{
				StepKey:    step.Key,
				Kind:       domain.EventSkip,
				Annotation: domain.AnnotationNotSelected,
			})
			continue
		}

		state.produced[step.Key] = *m
		state.outcomes[step.Key] = outcomeSucceeded
		state.emitMemoized(step.Key, m)
		if state.err != nil {
			return
		}
	}
}

func (state *schedulerRunState) runExecutionLoop() {
	for !state.isDone() {
		state.schedule()

		if state.isDone() {
			break
		}

		done := state.ctx.Done()
		if state.canceled {
			done = nil
		}

		select {
		case res := <-state.resultsCh:
			state.handleResult(res)
		case <-done:
			state.canceled = true
		}
	}
}

func (state *schedulerRunState) stopped() bool {
	return state.halted || state.canceled || state.err != nil
}

func (state *schedulerRunState) isDone() bool {
	return state.active == 0 && (len(state.ready) == 0 || state.stopped())
}

func (state *schedulerRunState) schedule() {
	for len(state.ready) > 0 && state.active < state.parallelism && !state.stopped() {
		if state.ctx.Err() != nil {
			state.canceled = true
			return
		}

		key := state.ready[0]
		state.ready = state.ready[1:]
		if state.outcomes[key] != outcomePending {
			continue
		}

		step := state.steps[key]
		switch {
		case step.Kind == domain.StepDynamicMapped:
			state.expand(step)
		case step.Kind == domain.StepDynamicCollect:
			state.collect(step)
		case step.IsBranch():
			state.dispatchBranch(step)
		default:
			state.start(step)
		}
	}
}

// start emits the step's start event and hands its compute to a worker.
func (state *schedulerRunState) start(step domain.ExecutionStep) {
	version := state.versions[step.Key]
	state.emit(domain.RunEvent{StepKey: step.Key, Kind: domain.EventStart, DataVersion: version})
	if state.err != nil {
		return
	}
	state.outcomes[step.Key] = outcomeRunning

	req, err := state.request(step, version)
	if err != nil {
		state.fail(step.Key, err)
		return
	}

	state.active++
	go state.executeStep(step, req)
}

func (state *schedulerRunState) executeStep(step domain.ExecutionStep, req domain.StepRequest) {
	// The span ends before the result is sent so it is recorded by the time
	// the loop observes the result.
	res := func() result {
		ctx, span := state.s.tracer.Start(state.execCtx, step.Key, ports.WithStepKey(step.Key))
		defer span.End()

		span.SetAttribute("memo.step_key", step.Key)
		span.SetAttribute("memo.data_version", req.DataVersion.String())
		if step.IsBranch() {
			span.SetAttribute("memo.mapping_key", step.MappingKey)
		}

		output, err := state.s.runner.Run(ctx, req, span)
		if err == nil && step.FanOut {
			err = domain.ValidateMappingKeys(output.MappingKeys)
		}
		if !step.FanOut {
			output.MappingKeys = nil
		}
		if err != nil {
			span.RecordError(err)
		}
		return result{key: step.Key, output: output, err: err}
	}()

	state.resultsCh <- res
}

func (state *schedulerRunState) handleResult(res result) {
	state.active--

	if res.err != nil {
		state.fail(res.key, res.err)
		return
	}

	m, err := state.record(res.key, res.output.MappingKeys)
	if err != nil {
		state.fail(res.key, err)
		return
	}
	state.emit(domain.RunEvent{
		StepKey:     res.key,
		Kind:        domain.EventSuccess,
		DataVersion: m.DataVersion,
		MappingKeys: m.MappingKeys,
	})
	state.succeed(res.key)
}

// record writes the materialization of a successful step. Failed steps never
// reach here, so a failure can not poison later runs' memoization.
func (state *schedulerRunState) record(key string, mappingKeys []string) (domain.Materialization, error) {
	m := domain.Materialization{
		StepKey:     key,
		DataVersion: state.versions[key],
		RunID:       state.run.ID,
		MappingKeys: mappingKeys,
		Timestamp:   state.s.now(),
	}
	if err := state.s.index.Record(state.execCtx, m); err != nil {
		return m, zerr.With(zerr.Wrap(err, "record materialization"), "step", key)
	}
	state.produced[key] = m
	return m, nil
}

func (state *schedulerRunState) succeed(key string) {
	state.outcomes[key] = outcomeSucceeded

	step := state.steps[key]
	if step.IsBranch() {
		state.branchDone(step)
		return
	}
	state.release(key)
}

// release moves the selected dependents of key whose upstream steps all
// succeeded to the ready queue.
func (state *schedulerRunState) release(key string) {
	for _, dep := range state.plan.Dependents(key) {
		if !state.selected[dep] || state.outcomes[dep] != outcomePending {
			continue
		}
		state.inDegree[dep]--
		if state.inDegree[dep] == 0 {
			state.ready = append(state.ready, dep)
		}
	}
}

// fail records a step failure and skips everything downstream of it.
func (state *schedulerRunState) fail(key string, err error) {
	state.outcomes[key] = outcomeFailed
	state.failed = true
	state.emit(domain.RunEvent{
		StepKey:     key,
		Kind:        domain.EventFailure,
		Error:       err.Error(),
		DataVersion: state.versions[key],
	})

	if state.run.Policy != domain.ContinueIndependent {
		state.halted = true
	}

	step := state.steps[key]
	if step.IsBranch() {
		placeholder := step.Placeholder
		if state.outcomes[placeholder] == outcomeRunning {
			state.fail(placeholder, zerr.With(zerr.Wrap(domain.ErrStepExecution, "branch failed"), "step", key))
		}
		return
	}
	state.propagateFailure(key)
}

// request assembles everything the runner needs for one step.
func (state *schedulerRunState) request(step domain.ExecutionStep, version domain.DataVersion) (domain.StepRequest, error) {
	task, _ := state.vp.Workflow().GetTask(step.Task)
	cfg := state.vp.Config().Task(step.Task.String())

	req := domain.StepRequest{
		RunID:       state.run.ID,
		Step:        step,
		Task:        task,
		Config:      cfg.Config,
		Resources:   cfg.Resources,
		DataVersion: version,
		Upstream:    make(map[string]domain.Materialization, len(step.UpstreamKeys)),
	}
	if step.IsBranch() {
		req.Config = cfg.BranchConfig(step.MappingKey)
	}

	for _, up := range step.UpstreamKeys {
		version, err := state.upstreamVersion(step, up)
		if err != nil {
			return req, err
		}
		m, err := state.lookup(up, version)
		if err != nil {
			return req, err
		}
		if m == nil {
			return req, zerr.With(zerr.With(zerr.With(zerr.Wrap(domain.ErrStepExecution, "upstream has no materialization"),
				"step", step.Key), "upstream", up), "data_version", version.String())
		}
		req.Upstream[up] = *m
	}

	return req, nil
}

// lookup finds the materialization of key at exactly version: the one
// produced in this run, the one inherited from the parent run or the one in
// the index. A materialization of any other version is never read.
func (state *schedulerRunState) lookup(key string, version domain.DataVersion) (*domain.Materialization, error) {
	if m, ok := state.produced[key]; ok && m.DataVersion == version {
		return &m, nil
	}
	return state.memoized(key, version)
}

// memoized returns the materialization of key at exactly version, if any.
func (state *schedulerRunState) memoized(key string, version domain.DataVersion) (*domain.Materialization, error) {
	if m, ok := state.run.Inherited[key]; ok && m.DataVersion == version {
		return &m, nil
	}
	m, err := state.s.index.Find(state.execCtx, key, version)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "lookup materialization"), "step", key)
	}
	return m, nil
}

func (state *schedulerRunState) emitMemoized(key string, m *domain.Materialization) {
	source := m.RunID
	state.emit(domain.RunEvent{
		StepKey:     key,
		Kind:        domain.EventSkip,
		Annotation:  domain.AnnotationMemoized,
		DataVersion: m.DataVersion,
		MappingKeys: m.MappingKeys,
		SourceRunID: &source,
	})
}

func (state *schedulerRunState) emit(event domain.RunEvent) {
	if state.err != nil {
		return
	}
	if err := state.sink.AppendEvent(state.execCtx, state.run, event); err != nil {
		state.err = err
	}
}

// finalize skips every step that never got to run. A placeholder that already
// started fails instead, since its start event needs a terminal event.
func (state *schedulerRunState) finalize() {
	if state.err != nil {
		return
	}

	annotation := domain.AnnotationRunHalted
	if state.canceled {
		annotation = domain.AnnotationRunCanceled
	}

	for _, key := range state.plan.Keys() {
		if !state.selected[key] {
			continue
		}
		for _, branch := range state.branches[key] {
			state.skipUnfinished(branch, annotation)
		}
		switch state.outcomes[key] {
		case outcomePending:
			state.skipUnfinished(key, annotation)
		case outcomeRunning:
			if state.canceled {
				state.cancelSkipped = true
			}
			state.outcomes[key] = outcomeFailed
			state.failed = true
			state.emit(domain.RunEvent{
				StepKey:     key,
				Kind:        domain.EventFailure,
				Error:       annotation,
				DataVersion: state.versions[key],
			})
		}
	}
}

func (state *schedulerRunState) skipUnfinished(key, annotation string) {
	if state.outcomes[key] != outcomePending {
		return
	}
	if state.canceled {
		state.cancelSkipped = true
	}
	state.outcomes[key] = outcomeSkipped
	state.emit(domain.RunEvent{StepKey: key, Kind: domain.EventSkip, Annotation: annotation})
}

func (state *schedulerRunState) status() domain.RunStatus {
	switch {
	case state.cancelSkipped:
		return domain.RunStatusCanceled
	case state.failed:
		return domain.RunStatusFailure
	default:
		return domain.RunStatusSuccess
	}
}
