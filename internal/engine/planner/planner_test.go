package planner_test

import (
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/engine/planner"
)

type taskOpt func(*domain.TaskDefinition)

func withInputs(inputs ...string) taskOpt {
	return func(t *domain.TaskDefinition) {
		t.Inputs = domain.NewInternedStrings(inputs)
	}
}

func fanOut() taskOpt {
	return func(t *domain.TaskDefinition) {
		t.FanOut = true
	}
}

func mapOver(source string) taskOpt {
	return func(t *domain.TaskDefinition) {
		t.MapOver = domain.NewInternedString(source)
	}
}

func newWorkflow(t *testing.T, tasks map[string][]taskOpt) *domain.Workflow {
	t.Helper()
	w := domain.NewWorkflow("test")
	for name, opts := range tasks {
		task := &domain.TaskDefinition{Name: domain.NewInternedString(name), CodeVersion: "1"}
		for _, opt := range opts {
			opt(task)
		}
		require.NoError(t, w.AddTask(task))
	}
	return w
}

func stepKeys(plan *domain.ExecutionPlan) []string {
	return plan.Keys()
}

func TestBuild_PlainChain(t *testing.T) {
	w := newWorkflow(t, map[string][]taskOpt{
		"A": nil,
		"B": {withInputs("A")},
		"C": {withInputs("B")},
	})

	plan, err := planner.NewBuilder().Build(w, domain.ResolvedConfig{}, domain.DefaultModeName)
	require.NoError(t, err)

	assert.Equal(t, []string{"A", "B", "C"}, stepKeys(plan))
	b, ok := plan.Step("B")
	require.True(t, ok)
	assert.Equal(t, domain.StepPlain, b.Kind)
	assert.Equal(t, []string{"A"}, b.UpstreamKeys)
}

func TestBuild_Deterministic(t *testing.T) {
	tasks := map[string][]taskOpt{
		"root":  nil,
		"left":  {withInputs("root")},
		"right": {withInputs("root")},
		"join":  {withInputs("right", "left")},
		"solo":  nil,
	}

	first, err := planner.NewBuilder().Build(newWorkflow(t, tasks), domain.ResolvedConfig{}, domain.DefaultModeName)
	require.NoError(t, err)

	for range 10 {
		again, err := planner.NewBuilder().Build(newWorkflow(t, tasks), domain.ResolvedConfig{}, domain.DefaultModeName)
		require.NoError(t, err)
		assert.Equal(t, stepKeys(first), stepKeys(again))
	}

	assert.Equal(t, []string{"root", "left", "right", "join", "solo"}, stepKeys(first))
}

func TestBuild_DynamicFanOut(t *testing.T) {
	w := newWorkflow(t, map[string][]taskOpt{
		"fetch":    {fanOut()},
		"download": {mapOver("fetch")},
		"combine":  {withInputs("download")},
	})

	plan, err := planner.NewBuilder().Build(w, domain.ResolvedConfig{}, domain.DefaultModeName)
	require.NoError(t, err)

	assert.Equal(t, []string{"fetch", "download[?]", "combine<-download[?]", "combine"}, stepKeys(plan))

	fetch, _ := plan.Step("fetch")
	assert.True(t, fetch.FanOut)

	placeholder, _ := plan.Step("download[?]")
	assert.Equal(t, domain.StepDynamicMapped, placeholder.Kind)
	assert.Equal(t, "fetch", placeholder.MapSource)
	assert.Equal(t, []string{"fetch"}, placeholder.UpstreamKeys)

	collect, _ := plan.Step("combine<-download[?]")
	assert.Equal(t, domain.StepDynamicCollect, collect.Kind)
	assert.Equal(t, "download[?]", collect.CollectSource)
	assert.Equal(t, []string{"download[?]"}, collect.UpstreamKeys)

	combine, _ := plan.Step("combine")
	assert.Equal(t, []string{"combine<-download[?]"}, combine.UpstreamKeys)
}

func TestBuild_ChainedMapping(t *testing.T) {
	w := newWorkflow(t, map[string][]taskOpt{
		"fetch":   {fanOut()},
		"extract": {mapOver("fetch")},
		"clean":   {mapOver("extract")},
		"report":  {withInputs("clean", "extract")},
	})

	plan, err := planner.NewBuilder().Build(w, domain.ResolvedConfig{}, domain.DefaultModeName)
	require.NoError(t, err)

	clean, ok := plan.Step("clean[?]")
	require.True(t, ok)
	assert.Equal(t, "extract[?]", clean.MapSource)
	assert.Equal(t, []string{"extract[?]"}, clean.UpstreamKeys)

	report, ok := plan.Step("report")
	require.True(t, ok)
	assert.Equal(t, []string{"report<-clean[?]", "report<-extract[?]"}, report.UpstreamKeys)

	branch := clean.Branch("a")
	assert.Equal(t, "clean[a]", branch.Key)
	assert.Equal(t, []string{"extract[a]"}, branch.UpstreamKeys)
	assert.Equal(t, "clean[?]", branch.Placeholder)
}

func TestBuild_Errors(t *testing.T) {
	tests := []struct {
		name     string
		tasks    map[string][]taskOpt
		resolved domain.ResolvedConfig
		mode     string
		want     error
	}{
		{
			name:  "cycle",
			tasks: map[string][]taskOpt{"A": {withInputs("B")}, "B": {withInputs("A")}},
			mode:  domain.DefaultModeName,
			want:  domain.ErrCycleDetected,
		},
		{
			name:  "missing upstream",
			tasks: map[string][]taskOpt{"A": {withInputs("ghost")}},
			mode:  domain.DefaultModeName,
			want:  domain.ErrMissingUpstream,
		},
		{
			name:  "unknown mode",
			tasks: map[string][]taskOpt{"A": nil},
			mode:  "prod",
			want:  domain.ErrUnknownMode,
		},
		{
			name:  "map over plain task",
			tasks: map[string][]taskOpt{"A": nil, "B": {mapOver("A")}},
			mode:  domain.DefaultModeName,
			want:  domain.ErrInvalidMapSource,
		},
		{
			name:  "mapping key collides with placeholder",
			tasks: map[string][]taskOpt{"A": {fanOut()}, "B": {mapOver("A")}},
			resolved: domain.ResolvedConfig{Tasks: map[string]domain.TaskConfig{
				"B": {Branches: map[string]any{"?": "x"}},
			}},
			mode: domain.DefaultModeName,
			want: domain.ErrStepKeyCollision,
		},
		{
			name:  "branch config on plain task",
			tasks: map[string][]taskOpt{"A": nil},
			resolved: domain.ResolvedConfig{Tasks: map[string]domain.TaskConfig{
				"A": {Branches: map[string]any{"x": 1}},
			}},
			mode: domain.DefaultModeName,
			want: domain.ErrBranchConfigWithoutMapping,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := newWorkflow(t, tt.tasks)
			plan, err := planner.NewBuilder().Build(w, tt.resolved, tt.mode)
			require.Error(t, err)
			assert.Nil(t, plan)
			assert.True(t, errors.Is(err, tt.want), "expected %v, got %v", tt.want, err)
			assert.True(t, domain.IsPreExecution(err))
		})
	}
}

func TestBuild_GraphErrorsAreGraphKind(t *testing.T) {
	w := newWorkflow(t, map[string][]taskOpt{"A": {withInputs("A")}})

	_, err := planner.NewBuilder().Build(w, domain.ResolvedConfig{}, domain.DefaultModeName)
	require.ErrorIs(t, err, domain.ErrGraph)
}

func TestBuild_SharedWorkflowConcurrently(t *testing.T) {
	w := newWorkflow(t, map[string][]taskOpt{
		"fetch":    {fanOut()},
		"download": {mapOver("fetch")},
		"combine":  {withInputs("download")},
	})
	want, err := planner.NewBuilder().Build(w, domain.ResolvedConfig{}, domain.DefaultModeName)
	require.NoError(t, err)

	plans := make([]*domain.ExecutionPlan, 8)
	var wg sync.WaitGroup
	for i := range plans {
		wg.Go(func() {
			plans[i], _ = planner.NewBuilder().Build(w, domain.ResolvedConfig{}, domain.DefaultModeName)
		})
	}
	wg.Wait()

	for _, plan := range plans {
		require.NotNil(t, plan)
		assert.Equal(t, want.Keys(), plan.Keys())
	}
}
