package shell

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/config"
	"go.trai.ch/memo/internal/adapters/logger"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
)

// NodeID is the unique identifier for the shell step runner Graft node.
const NodeID graft.ID = "adapter.step_runner"

func init() {
	graft.Register(graft.Node[ports.StepRunner]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID, config.RootNodeID},
		Run: func(ctx context.Context) (ports.StepRunner, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			root, err := graft.Dep[domain.WorkspaceRoot](ctx)
			if err != nil {
				return nil, err
			}
			return NewRunner(log, string(root)), nil
		},
	})
}
