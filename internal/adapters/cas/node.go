package cas

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/config"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
)

// NodeID is the unique identifier for the materialization index Graft node.
const NodeID graft.ID = "adapter.materialization_index"

func init() {
	graft.Register(graft.Node[ports.MaterializationIndex]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.RootNodeID},
		Run: func(ctx context.Context) (ports.MaterializationIndex, error) {
			root, err := graft.Dep[domain.WorkspaceRoot](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(root.IndexPath()), nil
		},
	})
}
