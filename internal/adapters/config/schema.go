package config

// Workflowfile represents the structure of the memo.yaml workflow file.
type Workflowfile struct {
	Name           string              `yaml:"name"`
	StrictVersions *bool               `yaml:"strict_versions"`
	Modes          map[string]*ModeDTO `yaml:"modes"`
	Tasks          map[string]*TaskDTO `yaml:"tasks"`
}

// ModeDTO represents a mode definition in the workflow file.
type ModeDTO struct {
	Resources map[string]ResourceDTO `yaml:"resources"`
}

// ResourceDTO represents a mode resource in the workflow file.
type ResourceDTO struct {
	Version string `yaml:"version"`
}

// TaskDTO represents a task definition in the workflow file.
type TaskDTO struct {
	CodeVersion  string            `yaml:"code_version"`
	Cmd          []string          `yaml:"cmd"`
	Inputs       []string          `yaml:"inputs"`
	FanOut       bool              `yaml:"fan_out"`
	Map          string            `yaml:"map"`
	Resources    []string          `yaml:"resources"`
	ConfigSchema map[string]any    `yaml:"config_schema"`
	Environment  map[string]string `yaml:"environment"`
}
