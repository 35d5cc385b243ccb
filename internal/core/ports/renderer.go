package ports

import "go.trai.ch/memo/internal/core/domain"

// EventObserver is notified of every event a run accepts.
//
//go:generate go run go.uber.org/mock/mockgen -source=renderer.go -destination=mocks/mock_renderer.go -package=mocks
type EventObserver interface {
	// OnEvent is called once per accepted event, in sequence order.
	OnEvent(event domain.RunEvent)
}

// Renderer is the abstraction for output rendering.
// It decouples the run event stream from presentation.
type Renderer interface {
	EventObserver

	// OnPlan is called once the step subset of a run is known.
	// selected lists the keys that will execute, in topological order.
	OnPlan(plan *domain.VersionedPlan, selected []string)

	// OnStepLog is called when a step emits output.
	// data may contain partial lines.
	OnStepLog(stepKey string, data []byte)

	// Close flushes any buffered output.
	Close() error
}
