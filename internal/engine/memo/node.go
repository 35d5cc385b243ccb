package memo

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/cas" //nolint:depguard // Wired in engine wiring
	"go.trai.ch/memo/internal/core/ports"
)

// NodeID is the unique identifier for the memoization resolver Graft node.
const NodeID graft.ID = "engine.memo"

func init() {
	graft.Register(graft.Node[*Resolver]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{cas.NodeID},
		Run: func(ctx context.Context) (*Resolver, error) {
			index, err := graft.Dep[ports.MaterializationIndex](ctx)
			if err != nil {
				return nil, err
			}
			return NewResolver(index), nil
		},
	})
}
