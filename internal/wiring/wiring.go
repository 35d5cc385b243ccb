// Package wiring registers all Graft nodes for the application.
package wiring

import (
	// Register adapter nodes.
	_ "go.trai.ch/memo/internal/adapters/cas"
	_ "go.trai.ch/memo/internal/adapters/config"
	_ "go.trai.ch/memo/internal/adapters/hasher"
	_ "go.trai.ch/memo/internal/adapters/logger"
	_ "go.trai.ch/memo/internal/adapters/runstore"
	_ "go.trai.ch/memo/internal/adapters/shell"
	_ "go.trai.ch/memo/internal/adapters/telemetry"
	_ "go.trai.ch/memo/internal/adapters/watcher"
	// Register app and engine nodes.
	_ "go.trai.ch/memo/internal/app"
	_ "go.trai.ch/memo/internal/engine/coordinator"
	_ "go.trai.ch/memo/internal/engine/memo"
	_ "go.trai.ch/memo/internal/engine/planner"
	_ "go.trai.ch/memo/internal/engine/scheduler"
	_ "go.trai.ch/memo/internal/engine/versioning"
)
