// Package ports defines the core interfaces for the application.
package ports

import (
	"context"

	"go.trai.ch/memo/internal/core/domain"
)

//go:generate go run go.uber.org/mock/mockgen -source=executor.go -destination=mocks/mock_executor.go -package=mocks

// EventSink accepts the events of one run in emission order.
type EventSink interface {
	// AppendEvent records an event for the run. It returns domain.ErrRunClosed
	// if the run already reached a terminal status.
	AppendEvent(ctx context.Context, run *domain.Run, event domain.RunEvent) error
}

// StepExecutor runs the selected steps of a versioned plan.
type StepExecutor interface {
	// Execute runs run.StepKeysToExecute respecting upstream ordering, emitting
	// every event to sink. It returns the terminal status the run reached.
	// A non-nil error reports a problem outside any single step, such as a
	// rejected event.
	Execute(
		ctx context.Context,
		run *domain.Run,
		plan *domain.VersionedPlan,
		sink EventSink,
	) (domain.RunStatus, error)
}
