package domain

// ResourceBinding is a mode resource bound to a task for one run.
type ResourceBinding struct {
	Version string `json:"version"`
	Config  any    `json:"config,omitempty"`
}

// TaskConfig is the validated configuration of one task.
type TaskConfig struct {
	Config any `json:"config,omitempty"`
	// Branches holds per mapping key config overrides of a mapped task.
	Branches map[string]any `json:"branches,omitempty"`
	// Resources binds each resource the task requires.
	Resources map[string]ResourceBinding `json:"resources,omitempty"`
}

// BranchConfig returns the config for one mapping key, falling back to the
// task-level config when no override exists.
func (c TaskConfig) BranchConfig(mappingKey string) any {
	if cfg, ok := c.Branches[mappingKey]; ok {
		return cfg
	}
	return c.Config
}

// ResolvedConfig is the validated mapping from task name to configuration
// and resource bindings. It is produced once per run and read only afterwards.
type ResolvedConfig struct {
	Mode  string                `json:"mode"`
	Tasks map[string]TaskConfig `json:"tasks,omitempty"`
}

// Task returns the configuration of the named task. Tasks without an entry
// have an empty configuration.
func (c ResolvedConfig) Task(name string) TaskConfig {
	return c.Tasks[name]
}

// RawTaskConfig is the unvalidated run configuration of one task.
type RawTaskConfig struct {
	Config   any            `yaml:"config" json:"config,omitempty"`
	Branches map[string]any `yaml:"branches" json:"branches,omitempty"`
}

// RawResourceConfig is the unvalidated run configuration of one resource.
type RawResourceConfig struct {
	Config any `yaml:"config" json:"config,omitempty"`
}

// RunConfig is the raw run configuration supplied by the user.
type RunConfig struct {
	Tasks     map[string]RawTaskConfig     `yaml:"tasks" json:"tasks,omitempty"`
	Resources map[string]RawResourceConfig `yaml:"resources" json:"resources,omitempty"`
}
