package ports

import (
	"context"

	"github.com/google/uuid"
	"go.trai.ch/memo/internal/core/domain"
)

// RunStore persists run records and their event streams.
//
//go:generate go run go.uber.org/mock/mockgen -source=run_store.go -destination=mocks/mock_run_store.go -package=mocks
type RunStore interface {
	// CreateRun persists a new run record.
	CreateRun(ctx context.Context, run *domain.Run) error

	// UpdateStatus persists a run's new status.
	UpdateStatus(ctx context.Context, runID uuid.UUID, status domain.RunStatus) error

	// AppendEvent appends an event to the run's event stream.
	AppendEvent(ctx context.Context, runID uuid.UUID, event domain.RunEvent) error

	// GetRun returns the run with the given id, or domain.ErrRunNotFound.
	GetRun(ctx context.Context, runID uuid.UUID) (*domain.Run, error)

	// Events returns the run's events in append order.
	Events(ctx context.Context, runID uuid.UUID) ([]domain.RunEvent, error)

	// GetParentMaterializations returns every materialization known to the
	// run, keyed by step key.
	GetParentMaterializations(ctx context.Context, runID uuid.UUID) (map[string]domain.Materialization, error)
}
