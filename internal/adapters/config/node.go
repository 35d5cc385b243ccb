package config

import (
	"context"
	"errors"
	"os"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/logger"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

const (
	// NodeID is the unique identifier for the workflow loader Graft node.
	NodeID graft.ID = "adapter.config_loader"

	// ResolverNodeID is the unique identifier for the config resolver Graft node.
	ResolverNodeID graft.ID = "adapter.config_resolver"

	// RootNodeID is the unique identifier for the workspace root Graft node.
	RootNodeID graft.ID = "adapter.workspace_root"
)

func init() {
	graft.Register(graft.Node[ports.ConfigLoader]{
		ID:        NodeID,
		Cacheable: true,
		DependsOn: []graft.ID{logger.NodeID},
		Run: func(ctx context.Context) (ports.ConfigLoader, error) {
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			return NewLoader(log), nil
		},
	})

	graft.Register(graft.Node[ports.ConfigResolver]{
		ID:        ResolverNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (ports.ConfigResolver, error) {
			return NewResolver(), nil
		},
	})

	// The root falls back to the working directory so commands that need no
	// workflow still get store paths.
	graft.Register(graft.Node[domain.WorkspaceRoot]{
		ID:        RootNodeID,
		Cacheable: true,
		Run: func(_ context.Context) (domain.WorkspaceRoot, error) {
			cwd, err := os.Getwd()
			if err != nil {
				return "", zerr.Wrap(err, "failed to get current working directory")
			}
			root, err := NewLoader(nil).DiscoverRoot(cwd)
			if errors.Is(err, domain.ErrWorkflowNotFound) {
				return domain.WorkspaceRoot(cwd), nil
			}
			if err != nil {
				return "", err
			}
			return domain.WorkspaceRoot(root), nil
		},
	})
}
