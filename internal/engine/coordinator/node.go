package coordinator

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/runstore" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/memo/internal/core/ports"
)

// NodeID is the unique identifier for the run coordinator Graft node.
const NodeID graft.ID = "engine.coordinator"

func init() {
	graft.Register(graft.Node[*Coordinator]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{runstore.NodeID},
		Run: func(ctx context.Context) (*Coordinator, error) {
			store, err := graft.Dep[ports.RunStore](ctx)
			if err != nil {
				return nil, err
			}
			return New(store), nil
		},
	})
}
