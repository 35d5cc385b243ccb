package domain

import "regexp"

// validNameRegex matches task, mode and resource names.
var validNameRegex = regexp.MustCompile(`^[a-zA-Z0-9_-]+$`)

// ValidName reports whether name may be used for a task, mode or resource.
func ValidName(name string) bool {
	return validNameRegex.MatchString(name)
}

// TaskDefinition represents a unit of computation in a workflow.
// It is immutable once loaded.
type TaskDefinition struct {
	Name InternedString
	// CodeVersion identifies the task's implementation. An empty value means the
	// author declared none.
	CodeVersion string
	// Inputs are the names of upstream tasks whose outputs this task consumes.
	Inputs []InternedString
	// FanOut marks a task that yields mapping keys at runtime.
	FanOut bool
	// MapOver names the fan-out (or mapped) task this task is mapped over.
	// The zero value means the task runs once.
	MapOver InternedString
	// ConfigSchema is a JSON Schema document the task's config must satisfy.
	ConfigSchema map[string]any
	// Resources are the names of mode resources the task requires.
	Resources []string
	// Command is the argv run by the shell step runner.
	Command []string
	// Environment holds extra variables for the command.
	Environment map[string]string
}

// IsMapped reports whether the task runs once per mapping key.
func (t *TaskDefinition) IsMapped() bool {
	return !t.MapOver.IsZero()
}

// Upstream returns every task this task depends on, including its map source.
func (t *TaskDefinition) Upstream() []InternedString {
	if !t.IsMapped() {
		return t.Inputs
	}
	deps := make([]InternedString, 0, len(t.Inputs)+1)
	deps = append(deps, t.MapOver)
	for _, in := range t.Inputs {
		if in != t.MapOver {
			deps = append(deps, in)
		}
	}
	return deps
}

// ResourceDefinition is a versioned resource provided by a mode.
type ResourceDefinition struct {
	Version string
}

// Mode is a named set of resource definitions a workflow can run under.
type Mode struct {
	Name      string
	Resources map[string]ResourceDefinition
}
