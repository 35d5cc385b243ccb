package scheduler

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/cas"       //nolint:depguard // Wired in engine wiring
	"go.trai.ch/memo/internal/adapters/shell"     //nolint:depguard // Wired in engine wiring
	"go.trai.ch/memo/internal/adapters/telemetry" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/versioning"
)

// NodeID is the unique identifier for the scheduler Graft node.
const NodeID graft.ID = "engine.scheduler"

func init() {
	graft.Register(graft.Node[*Scheduler]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			shell.NodeID,
			cas.NodeID,
			versioning.NodeID,
			telemetry.TracerNodeID,
		},
		Run: func(ctx context.Context) (*Scheduler, error) {
			runner, err := graft.Dep[ports.StepRunner](ctx)
			if err != nil {
				return nil, err
			}

			index, err := graft.Dep[ports.MaterializationIndex](ctx)
			if err != nil {
				return nil, err
			}

			versioner, err := graft.Dep[*versioning.Resolver](ctx)
			if err != nil {
				return nil, err
			}

			tracer, err := graft.Dep[ports.Tracer](ctx)
			if err != nil {
				return nil, err
			}

			return NewScheduler(runner, index, versioner, tracer), nil
		},
	})
}
