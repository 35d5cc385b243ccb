// Package coordinator owns the lifecycle of run records.
package coordinator

import (
	"context"
	"maps"
	"slices"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.EventSink = (*Coordinator)(nil)

// CreateRunRequest describes a run to create.
type CreateRunRequest struct {
	Workflow string
	Mode     string
	Config   domain.ResolvedConfig
	Tags     map[string]string
	Policy   domain.FailurePolicy
	// ParentRunID links a re-execution to the run it re-executes.
	ParentRunID *uuid.UUID
	// Inherited holds the parent's materializations. When nil and ParentRunID
	// is set, they are loaded from the run store.
	Inherited         map[string]domain.Materialization
	StepKeysToExecute []string
}

// Coordinator creates runs, moves them through their status lifecycle and
// sequences their events. A run accepts events only while started.
type Coordinator struct {
	store ports.RunStore
	now   func() time.Time
	newID func() uuid.UUID

	mu        sync.Mutex
	seq       map[uuid.UUID]int64
	observers []observer
	nextObs   int
}

type observer struct {
	id int
	ports.EventObserver
}

// Option configures a Coordinator.
type Option func(*Coordinator)

// WithClock overrides the coordinator's time source.
func WithClock(now func() time.Time) Option {
	return func(c *Coordinator) {
		c.now = now
	}
}

// WithIDGenerator overrides how run ids are allocated.
func WithIDGenerator(newID func() uuid.UUID) Option {
	return func(c *Coordinator) {
		c.newID = newID
	}
}

// New creates a new Coordinator persisting to store.
func New(store ports.RunStore, opts ...Option) *Coordinator {
	c := &Coordinator{
		store: store,
		now:   time.Now,
		newID: uuid.New,
		seq:   make(map[uuid.UUID]int64),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Observe registers an observer notified of every accepted event. The
// returned function unregisters it.
func (c *Coordinator) Observe(o ports.EventObserver) func() {
	c.mu.Lock()
	defer c.mu.Unlock()

	c.nextObs++
	id := c.nextObs
	c.observers = append(c.observers, observer{id: id, EventObserver: o})

	return func() {
		c.mu.Lock()
		defer c.mu.Unlock()
		c.observers = slices.DeleteFunc(c.observers, func(e observer) bool { return e.id == id })
	}
}

// Run returns a stored run, or domain.ErrRunNotFound.
func (c *Coordinator) Run(ctx context.Context, runID uuid.UUID) (*domain.Run, error) {
	return c.store.GetRun(ctx, runID)
}

// ParentMaterializations loads every materialization known to a prior run.
func (c *Coordinator) ParentMaterializations(
	ctx context.Context,
	parentID uuid.UUID,
) (map[string]domain.Materialization, error) {
	if _, err := c.store.GetRun(ctx, parentID); err != nil {
		return nil, err
	}
	inherited, err := c.store.GetParentMaterializations(ctx, parentID)
	if err != nil {
		return nil, zerr.With(zerr.Wrap(err, "load parent materializations"), "run_id", parentID.String())
	}
	return inherited, nil
}

// CreateRun allocates a run id and persists the run with status queued.
// A re-execution carries its parent's materializations forward so steps it
// skips can still resolve their inputs from the parent's outputs.
func (c *Coordinator) CreateRun(ctx context.Context, req CreateRunRequest) (*domain.Run, error) {
	inherited := req.Inherited
	if req.ParentRunID != nil && inherited == nil {
		var err error
		inherited, err = c.ParentMaterializations(ctx, *req.ParentRunID)
		if err != nil {
			return nil, err
		}
	}

	policy := req.Policy
	if policy == "" {
		policy = domain.FailFast
	}

	now := c.now()
	run := &domain.Run{
		ID:                c.newID(),
		Workflow:          req.Workflow,
		Mode:              req.Mode,
		Config:            req.Config,
		Tags:              maps.Clone(req.Tags),
		ParentRunID:       req.ParentRunID,
		Status:            domain.RunStatusQueued,
		Policy:            policy,
		StepKeysToExecute: slices.Clone(req.StepKeysToExecute),
		Inherited:         maps.Clone(inherited),
		CreatedAt:         now,
		UpdatedAt:         now,
	}

	if err := c.store.CreateRun(ctx, run); err != nil {
		return nil, zerr.With(zerr.Wrap(err, "create run"), "run_id", run.ID.String())
	}

	return run, nil
}

// Start moves a queued run to started.
func (c *Coordinator) Start(ctx context.Context, run *domain.Run) error {
	return c.transition(ctx, run, domain.RunStatusStarted)
}

// Finish moves a run to a terminal status. No further event or status change
// is accepted afterwards.
func (c *Coordinator) Finish(ctx context.Context, run *domain.Run, status domain.RunStatus) error {
	if !status.IsTerminal() {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrInvalidStatusTransition, "finish run"),
			"run_id", run.ID.String()), "status", string(status))
	}
	if err := c.transition(ctx, run, status); err != nil {
		return err
	}

	c.mu.Lock()
	delete(c.seq, run.ID)
	c.mu.Unlock()
	return nil
}

func (c *Coordinator) transition(ctx context.Context, run *domain.Run, next domain.RunStatus) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if run.Status.IsTerminal() {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrRunClosed, "update run status"),
			"run_id", run.ID.String()), "status", string(next))
	}
	if !run.Status.CanTransition(next) {
		return zerr.With(zerr.With(zerr.With(zerr.Wrap(domain.ErrInvalidStatusTransition, "update run status"),
			"run_id", run.ID.String()), "from", string(run.Status)), "to", string(next))
	}

	if err := c.store.UpdateStatus(ctx, run.ID, next); err != nil {
		return zerr.With(zerr.Wrap(err, "update run status"), "run_id", run.ID.String())
	}
	run.Status = next
	run.UpdatedAt = c.now()
	return nil
}

// AppendEvent sequences and persists an event of a started run, then
// notifies observers. Events for a run in a terminal status are rejected
// with domain.ErrRunClosed.
func (c *Coordinator) AppendEvent(ctx context.Context, run *domain.Run, event domain.RunEvent) error {
	c.mu.Lock()
	defer c.mu.Unlock()

	if run.Status.IsTerminal() {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrRunClosed, "append event"),
			"run_id", run.ID.String()), "step", event.StepKey)
	}
	if run.Status != domain.RunStatusStarted {
		return zerr.With(zerr.With(zerr.Wrap(domain.ErrInvalidStatusTransition, "append event to a run that has not started"),
			"run_id", run.ID.String()), "step", event.StepKey)
	}

	c.seq[run.ID]++
	event.Seq = c.seq[run.ID]
	event.RunID = run.ID
	if event.Timestamp.IsZero() {
		event.Timestamp = c.now()
	}

	if err := c.store.AppendEvent(ctx, run.ID, event); err != nil {
		c.seq[run.ID]--
		return zerr.With(zerr.With(zerr.Wrap(err, "append event"), "run_id", run.ID.String()), "step", event.StepKey)
	}

	for _, o := range c.observers {
		o.OnEvent(event)
	}
	return nil
}

// Execute starts run, hands its selected steps to executor and finishes the
// run with the status the executor reports. Finishing is not subject to ctx
// cancellation so a canceled run still reaches a terminal status.
func (c *Coordinator) Execute(
	ctx context.Context,
	run *domain.Run,
	vp *domain.VersionedPlan,
	executor ports.StepExecutor,
) (domain.RunStatus, error) {
	if err := c.Start(ctx, run); err != nil {
		return run.Status, err
	}

	status, execErr := executor.Execute(ctx, run, vp, c)
	if execErr != nil && !status.IsTerminal() {
		status = domain.RunStatusFailure
	}

	if err := c.Finish(context.WithoutCancel(ctx), run, status); err != nil {
		return run.Status, zerr.Wrap(err, "finish run")
	}

	return status, execErr
}
