// Package domain contains the core domain models of the memoized workflow engine.
package domain

import (
	"iter"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// Workflow represents the static DAG of tasks connected by data dependencies.
// Once built it is only read: validation and ordering derive their results
// without storing them, so one workflow may be planned concurrently.
type Workflow struct {
	Name string
	// StrictVersions requires every task to declare a code version.
	StrictVersions bool

	tasks map[InternedString]TaskDefinition
	modes map[string]Mode
}

// NewWorkflow creates a new empty Workflow with the strict version policy.
func NewWorkflow(name string) *Workflow {
	return &Workflow{
		Name:           name,
		StrictVersions: true,
		tasks:          make(map[InternedString]TaskDefinition),
		modes:          make(map[string]Mode),
	}
}

// AddTask adds a task to the workflow.
// It returns an error if a task with the same name already exists.
func (w *Workflow) AddTask(t *TaskDefinition) error {
	if _, exists := w.tasks[t.Name]; exists {
		return zerr.With(zerr.Wrap(ErrTaskAlreadyExists, "add task"), "task", t.Name.String())
	}
	w.tasks[t.Name] = *t
	return nil
}

// AddMode adds a mode to the workflow.
// It returns an error if a mode with the same name already exists.
func (w *Workflow) AddMode(m Mode) error {
	if _, exists := w.modes[m.Name]; exists {
		return zerr.With(zerr.Wrap(ErrModeAlreadyExists, "add mode"), "mode", m.Name)
	}
	w.modes[m.Name] = m
	return nil
}

// GetTask returns the task with the given name.
func (w *Workflow) GetTask(name InternedString) (TaskDefinition, bool) {
	t, ok := w.tasks[name]
	return t, ok
}

// DefaultModeName is the mode used when a run names none.
const DefaultModeName = "default"

// Mode returns the mode with the given name. A workflow that declares no
// modes has an implicit empty default mode.
func (w *Workflow) Mode(name string) (Mode, bool) {
	if name == DefaultModeName && len(w.modes) == 0 {
		return Mode{Name: DefaultModeName}, true
	}
	m, ok := w.modes[name]
	return m, ok
}

// ModeNames returns the declared mode names in sorted order.
func (w *Workflow) ModeNames() []string {
	names := make([]string, 0, len(w.modes))
	for name := range w.modes {
		names = append(names, name)
	}
	slices.Sort(names)
	return names
}

// TaskCount returns the number of tasks in the workflow.
func (w *Workflow) TaskCount() int {
	return len(w.tasks)
}

// Dependents returns the tasks that directly depend on the given task, in
// name order.
func (w *Workflow) Dependents(name InternedString) []InternedString {
	var out []InternedString
	for _, candidate := range w.sortedNames() {
		task := w.tasks[candidate]
		if slices.Contains(task.Upstream(), name) {
			out = append(out, candidate)
		}
	}
	return out
}

// Validate checks that every upstream reference resolves, that map sources
// produce dynamic output and that the graph is acyclic.
func (w *Workflow) Validate() error {
	_, err := w.topologicalOrder()
	return err
}

// Tasks returns an iterator that yields tasks in topological order. An
// invalid workflow yields nothing; call Validate first.
func (w *Workflow) Tasks() iter.Seq[TaskDefinition] {
	return func(yield func(TaskDefinition) bool) {
		order, err := w.topologicalOrder()
		if err != nil {
			return
		}
		for _, name := range order {
			if !yield(w.tasks[name]) {
				return
			}
		}
	}
}

func (w *Workflow) topologicalOrder() ([]InternedString, error) {
	names := w.sortedNames()

	for _, name := range names {
		task := w.tasks[name]
		for _, up := range task.Upstream() {
			if _, exists := w.tasks[up]; !exists {
				return nil, zerr.With(zerr.With(zerr.Wrap(ErrMissingUpstream, "validate workflow"),
					"task", name.String()), "upstream", up.String())
			}
		}
		if task.IsMapped() && task.FanOut {
			return nil, zerr.With(zerr.Wrap(ErrMappedFanOut, "validate workflow"), "task", name.String())
		}
		if task.IsMapped() {
			source := w.tasks[task.MapOver]
			if !source.FanOut && !source.IsMapped() {
				return nil, zerr.With(zerr.With(zerr.Wrap(ErrInvalidMapSource, "validate workflow"),
					"task", name.String()), "map", task.MapOver.String())
			}
		}
	}

	order := make([]InternedString, 0, len(w.tasks))
	visited := make(map[InternedString]int) // 0: unvisited, 1: visiting, 2: visited
	var path []InternedString

	var visit func(u InternedString) error
	visit = func(u InternedString) error {
		visited[u] = 1
		path = append(path, u)

		task := w.tasks[u]
		for _, dep := range task.Upstream() {
			if visited[dep] == 1 {
				return buildCycleError(path, dep)
			}
			if visited[dep] == 0 {
				if err := visit(dep); err != nil {
					return err
				}
			}
		}

		visited[u] = 2
		path = path[:len(path)-1]
		order = append(order, u)
		return nil
	}

	for _, name := range names {
		if visited[name] == 0 {
			if err := visit(name); err != nil {
				return nil, err
			}
		}
	}
	return order, nil
}

func (w *Workflow) sortedNames() []InternedString {
	names := make([]InternedString, 0, len(w.tasks))
	for name := range w.tasks {
		names = append(names, name)
	}
	slices.SortFunc(names, InternedString.Compare)
	return names
}

// buildCycleError constructs an error with cycle path metadata.
func buildCycleError(path []InternedString, dep InternedString) error {
	startIdx := slices.Index(path, dep)
	parts := make([]string, 0, len(path)-startIdx+1)
	for _, node := range path[startIdx:] {
		parts = append(parts, node.String())
	}
	parts = append(parts, dep.String())
	return zerr.With(zerr.Wrap(ErrCycleDetected, "validate workflow"), "cycle", strings.Join(parts, " -> "))
}
