// Package planner expands a workflow into an execution plan.
package planner

import (
	"slices"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
)

// Builder builds execution plans. It holds no state; Build is a pure function
// of its inputs.
type Builder struct{}

// NewBuilder creates a new Builder.
func NewBuilder() *Builder {
	return &Builder{}
}

// Build expands every task of workflow into execution steps for the given mode.
//
// A plain task yields one step keyed by its name. A mapped task yields a single
// placeholder step whose branches are expanded at runtime. Every consumer of a
// mapped task's output, other than a task mapped over it, reads it through a
// synthetic collect step.
func (b *Builder) Build(
	workflow *domain.Workflow,
	resolved domain.ResolvedConfig,
	mode string,
) (*domain.ExecutionPlan, error) {
	if _, ok := workflow.Mode(mode); !ok {
		return nil, zerr.With(zerr.Wrap(domain.ErrUnknownMode, "build plan"), "mode", mode)
	}

	if err := workflow.Validate(); err != nil {
		return nil, err
	}

	var steps []domain.ExecutionStep
	for task := range workflow.Tasks() {
		step := domain.ExecutionStep{
			Key:    outputKey(&task),
			Task:   task.Name,
			Kind:   domain.StepPlain,
			FanOut: task.FanOut,
		}
		if task.IsMapped() {
			step.Kind = domain.StepDynamicMapped
			source, _ := workflow.GetTask(task.MapOver)
			step.MapSource = outputKey(&source)
		}

		for _, name := range task.Upstream() {
			up, _ := workflow.GetTask(name)
			key := outputKey(&up)
			if up.IsMapped() && name != task.MapOver {
				collect := collectStep(&up, &task)
				steps = append(steps, collect)
				key = collect.Key
			}
			step.UpstreamKeys = append(step.UpstreamKeys, key)
		}
		slices.Sort(step.UpstreamKeys)

		steps = append(steps, step)
	}

	if err := checkBranchKeys(steps, workflow, resolved); err != nil {
		return nil, err
	}

	return domain.NewExecutionPlan(steps)
}

// outputKey returns the key of the step holding a task's output.
func outputKey(task *domain.TaskDefinition) string {
	if task.IsMapped() {
		return domain.PlaceholderKey(task.Name.String())
	}
	return task.Name.String()
}

func collectStep(source, consumer *domain.TaskDefinition) domain.ExecutionStep {
	placeholder := domain.PlaceholderKey(source.Name.String())
	return domain.ExecutionStep{
		Key:           domain.CollectKey(placeholder, consumer.Name.String()),
		Task:          source.Name,
		Kind:          domain.StepDynamicCollect,
		UpstreamKeys:  []string{placeholder},
		CollectSource: placeholder,
	}
}

// checkBranchKeys rejects branch config overrides whose branch key would
// collide with a planned step.
func checkBranchKeys(
	steps []domain.ExecutionStep,
	workflow *domain.Workflow,
	resolved domain.ResolvedConfig,
) error {
	planned := make(map[string]struct{}, len(steps))
	for _, s := range steps {
		planned[s.Key] = struct{}{}
	}

	names := make([]string, 0, len(resolved.Tasks))
	for name := range resolved.Tasks {
		names = append(names, name)
	}
	slices.Sort(names)

	for _, name := range names {
		branches := resolved.Tasks[name].Branches
		if len(branches) == 0 {
			continue
		}
		task, ok := workflow.GetTask(domain.NewInternedString(name))
		if !ok || !task.IsMapped() {
			return zerr.With(zerr.Wrap(domain.ErrBranchConfigWithoutMapping, "build plan"), "task", name)
		}
		keys := make([]string, 0, len(branches))
		for k := range branches {
			keys = append(keys, k)
		}
		slices.Sort(keys)
		for _, k := range keys {
			key := domain.BranchKey(name, k)
			if _, exists := planned[key]; exists {
				return zerr.With(zerr.With(zerr.Wrap(domain.ErrStepKeyCollision, "build plan"),
					"step", key), "mapping_key", k)
			}
		}
	}

	return nil
}
