package app

import (
	"context"

	"github.com/grindlemire/graft"
	"go.trai.ch/memo/internal/adapters/config"    //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/logger"    //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/runstore"  //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/telemetry" //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/adapters/watcher"   //nolint:depguard // Wired in app layer
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/memo/internal/engine/coordinator"
	"go.trai.ch/memo/internal/engine/memo"
	"go.trai.ch/memo/internal/engine/planner"
	"go.trai.ch/memo/internal/engine/scheduler"
	"go.trai.ch/memo/internal/engine/versioning"
)

const (
	// AppNodeID is the unique identifier for the main App Graft node.
	AppNodeID graft.ID = "app.main"
	// ComponentsNodeID is the unique identifier for the App components Graft node.
	ComponentsNodeID graft.ID = "app.components"
)

// Components contains all the initialized application components.
// This struct provides controlled access to components needed by the CLI layer.
type Components struct {
	App    *App
	Logger ports.Logger
	Tracer *telemetry.OTelTracer
}

func init() {
	graft.Register(graft.Node[*App]{
		ID:        AppNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			config.NodeID,
			config.ResolverNodeID,
			config.RootNodeID,
			planner.NodeID,
			versioning.NodeID,
			memo.NodeID,
			coordinator.NodeID,
			scheduler.NodeID,
			telemetry.OTelTracerNodeID,
			watcher.NodeID,
			runstore.StoreNodeID,
			logger.NodeID,
		},
		Run: runAppNode,
	})

	graft.Register(graft.Node[*Components]{
		ID:        ComponentsNodeID,
		Cacheable: true,
		DependsOn: []graft.ID{
			AppNodeID,
			logger.NodeID,
			telemetry.OTelTracerNodeID,
		},
		Run: func(ctx context.Context) (*Components, error) {
			application, err := graft.Dep[*App](ctx)
			if err != nil {
				return nil, err
			}
			log, err := graft.Dep[ports.Logger](ctx)
			if err != nil {
				return nil, err
			}
			tracer, err := graft.Dep[*telemetry.OTelTracer](ctx)
			if err != nil {
				return nil, err
			}
			return &Components{App: application, Logger: log, Tracer: tracer}, nil
		},
	})
}

//nolint:cyclop // one lookup per dependency
func runAppNode(ctx context.Context) (*App, error) {
	var (
		deps Dependencies
		err  error
	)

	if deps.Loader, err = graft.Dep[ports.ConfigLoader](ctx); err != nil {
		return nil, err
	}
	if deps.Resolver, err = graft.Dep[ports.ConfigResolver](ctx); err != nil {
		return nil, err
	}
	if deps.Root, err = graft.Dep[domain.WorkspaceRoot](ctx); err != nil {
		return nil, err
	}
	if deps.Planner, err = graft.Dep[*planner.Builder](ctx); err != nil {
		return nil, err
	}
	if deps.Versioner, err = graft.Dep[*versioning.Resolver](ctx); err != nil {
		return nil, err
	}
	if deps.Memo, err = graft.Dep[*memo.Resolver](ctx); err != nil {
		return nil, err
	}
	if deps.Coordinator, err = graft.Dep[*coordinator.Coordinator](ctx); err != nil {
		return nil, err
	}
	if deps.Scheduler, err = graft.Dep[*scheduler.Scheduler](ctx); err != nil {
		return nil, err
	}
	if deps.Tracer, err = graft.Dep[*telemetry.OTelTracer](ctx); err != nil {
		return nil, err
	}
	if deps.Watcher, err = graft.Dep[ports.Watcher](ctx); err != nil {
		return nil, err
	}
	if deps.Runs, err = graft.Dep[*runstore.Store](ctx); err != nil {
		return nil, err
	}
	if deps.Logger, err = graft.Dep[ports.Logger](ctx); err != nil {
		return nil, err
	}

	return New(deps), nil
}
