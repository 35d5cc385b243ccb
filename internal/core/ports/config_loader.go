package ports

import "go.trai.ch/memo/internal/core/domain"

// ConfigLoader defines the interface for loading workflow definitions and run configuration.
//
//go:generate go run go.uber.org/mock/mockgen -source=config_loader.go -destination=mocks/mock_config_loader.go -package=mocks
type ConfigLoader interface {
	// Load reads the workflow definition found from the given working directory.
	Load(cwd string) (*domain.Workflow, error)

	// LoadRunConfig reads a run configuration file. An empty path yields an
	// empty configuration.
	LoadRunConfig(path string) (domain.RunConfig, error)

	// DiscoverRoot walks up from cwd to find the directory holding the workflow file.
	DiscoverRoot(cwd string) (string, error)
}

// ConfigResolver validates raw run configuration against a workflow.
type ConfigResolver interface {
	// Resolve validates raw against every task's config schema and binds the
	// mode's resources. Failures wrap domain.ErrConfigValidation.
	Resolve(workflow *domain.Workflow, mode string, raw domain.RunConfig) (domain.ResolvedConfig, error)
}
