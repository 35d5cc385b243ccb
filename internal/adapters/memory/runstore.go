package memory

import (
	"context"
	"maps"
	"slices"
	"sync"

	"github.com/google/uuid"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

var _ ports.RunStore = (*RunStore)(nil)

type runRecord struct {
	run    domain.Run
	events []domain.RunEvent
}

// RunStore implements ports.RunStore in memory.
type RunStore struct {
	mu   sync.RWMutex
	runs map[uuid.UUID]*runRecord
}

// NewRunStore creates an empty RunStore.
func NewRunStore() *RunStore {
	return &RunStore{runs: make(map[uuid.UUID]*runRecord)}
}

// CreateRun stores a copy of run.
func (s *RunStore) CreateRun(_ context.Context, run *domain.Run) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if _, exists := s.runs[run.ID]; exists {
		return zerr.With(zerr.Wrap(domain.ErrRunAlreadyExists, "create run"), "run_id", run.ID.String())
	}
	s.runs[run.ID] = &runRecord{run: cloneRun(run)}
	return nil
}

// UpdateStatus sets the stored run's status.
func (s *RunStore) UpdateStatus(_ context.Context, runID uuid.UUID, status domain.RunStatus) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.record(runID)
	if err != nil {
		return err
	}
	rec.run.Status = status
	return nil
}

// AppendEvent appends event to the run's event stream.
func (s *RunStore) AppendEvent(_ context.Context, runID uuid.UUID, event domain.RunEvent) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	rec, err := s.record(runID)
	if err != nil {
		return err
	}
	rec.events = append(rec.events, event)
	return nil
}

// GetRun returns a copy of the stored run.
func (s *RunStore) GetRun(_ context.Context, runID uuid.UUID) (*domain.Run, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.record(runID)
	if err != nil {
		return nil, err
	}
	run := cloneRun(&rec.run)
	return &run, nil
}

// Events returns a copy of the run's events in append order.
func (s *RunStore) Events(_ context.Context, runID uuid.UUID) ([]domain.RunEvent, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.record(runID)
	if err != nil {
		return nil, err
	}
	return slices.Clone(rec.events), nil
}

// GetParentMaterializations returns every materialization known to the run.
func (s *RunStore) GetParentMaterializations(
	_ context.Context,
	runID uuid.UUID,
) (map[string]domain.Materialization, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	rec, err := s.record(runID)
	if err != nil {
		return nil, err
	}
	return domain.MaterializationsFromRun(&rec.run, rec.events), nil
}

func (s *RunStore) record(runID uuid.UUID) (*runRecord, error) {
	rec, ok := s.runs[runID]
	if !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrRunNotFound, "lookup run"), "run_id", runID.String())
	}
	return rec, nil
}

func cloneRun(run *domain.Run) domain.Run {
	c := *run
	c.Tags = maps.Clone(run.Tags)
	c.StepKeysToExecute = slices.Clone(run.StepKeysToExecute)
	c.Inherited = maps.Clone(run.Inherited)
	if run.ParentRunID != nil {
		parent := *run.ParentRunID
		c.ParentRunID = &parent
	}
	return c
}
