package runstore

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/config"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
)

// NodeID is the unique identifier for the run store Graft node.
const NodeID graft.ID = "adapter.run_store"

// StoreNodeID is the unique identifier for the concrete run store Graft node.
const StoreNodeID graft.ID = "adapter.run_store.file"

func init() {
	graft.Register(graft.Node[*Store]{
		ID:        StoreNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{config.RootNodeID},
		Run: func(ctx context.Context) (*Store, error) {
			root, err := graft.Dep[domain.WorkspaceRoot](ctx)
			if err != nil {
				return nil, err
			}
			return NewStore(root.RunsPath()), nil
		},
	})

	graft.Register(graft.Node[ports.RunStore]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{StoreNodeID},
		Run: func(ctx context.Context) (ports.RunStore, error) {
			return graft.Dep[*Store](ctx)
		},
	})
}
