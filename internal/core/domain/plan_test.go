package domain_test

import (
	"slices"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/core/domain"
)

func step(key string, upstream ...string) domain.ExecutionStep {
	return domain.ExecutionStep{
		Key:          key,
		Task:         domain.NewInternedString(key),
		Kind:         domain.StepPlain,
		UpstreamKeys: upstream,
	}
}

func TestNewExecutionPlan(t *testing.T) {
	tests := []struct {
		name      string
		steps     []domain.ExecutionStep
		wantOrder []string
		wantErr   error
	}{
		{
			name:      "diamond is ordered deterministically",
			steps:     []domain.ExecutionStep{step("d", "c", "b"), step("c", "a"), step("b", "a"), step("a")},
			wantOrder: []string{"a", "b", "c", "d"},
		},
		{
			name:      "independent roots sort lexically",
			steps:     []domain.ExecutionStep{step("z"), step("m"), step("a")},
			wantOrder: []string{"a", "m", "z"},
		},
		{
			name:    "duplicate key",
			steps:   []domain.ExecutionStep{step("a"), step("a")},
			wantErr: domain.ErrStepKeyCollision,
		},
		{
			name:    "missing upstream",
			steps:   []domain.ExecutionStep{step("a", "ghost")},
			wantErr: domain.ErrMissingUpstream,
		},
		{
			name:    "cycle",
			steps:   []domain.ExecutionStep{step("a", "b"), step("b", "a"), step("c")},
			wantErr: domain.ErrCycleDetected,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			plan, err := domain.NewExecutionPlan(tt.steps)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.ErrorIs(t, err, domain.ErrGraph)
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.wantOrder, plan.Keys())
			assert.Equal(t, len(tt.wantOrder), plan.Len())
		})
	}
}

func TestExecutionPlan_Accessors(t *testing.T) {
	plan, err := domain.NewExecutionPlan([]domain.ExecutionStep{step("c", "b", "a"), step("b", "a"), step("a")})
	require.NoError(t, err)

	s, ok := plan.Step("c")
	require.True(t, ok)
	assert.Equal(t, []string{"a", "b"}, s.UpstreamKeys, "upstream keys are sorted")

	assert.True(t, plan.Contains("a"))
	assert.False(t, plan.Contains("x"))
	assert.Equal(t, []string{"b", "c"}, plan.Dependents("a"))
	assert.Equal(t, 2, plan.Position("c"))
	assert.Equal(t, -1, plan.Position("x"))

	var walked []string
	for s := range plan.Steps() {
		walked = append(walked, s.Key)
	}
	assert.Equal(t, []string{"a", "b", "c"}, walked)

	keys := []string{"zz", "c", "a", "b", "yy"}
	plan.SortByPosition(keys)
	assert.Equal(t, []string{"a", "b", "c", "yy", "zz"}, keys)

	// Keys returns a copy.
	got := plan.Keys()
	got[0] = "mutated"
	assert.True(t, slices.Equal([]string{"a", "b", "c"}, plan.Keys()))
}

func TestExecutionStep_Branch(t *testing.T) {
	t.Run("mapped over fan-out step", func(t *testing.T) {
		placeholder := domain.ExecutionStep{
			Key:          domain.PlaceholderKey("download"),
			Task:         domain.NewInternedString("download"),
			Kind:         domain.StepDynamicMapped,
			UpstreamKeys: []string{"config", "fetch_ids"},
			MapSource:    "fetch_ids",
		}

		branch := placeholder.Branch("a")
		assert.Equal(t, "download[a]", branch.Key)
		assert.Equal(t, domain.StepPlain, branch.Kind)
		assert.Equal(t, []string{"config", "fetch_ids"}, branch.UpstreamKeys)
		assert.True(t, branch.IsBranch())
		assert.Equal(t, "download[?]", branch.Placeholder)
		assert.Equal(t, "a", branch.MappingKey)
	})

	t.Run("mapped over placeholder", func(t *testing.T) {
		placeholder := domain.ExecutionStep{
			Key:          domain.PlaceholderKey("parse"),
			Task:         domain.NewInternedString("parse"),
			Kind:         domain.StepDynamicMapped,
			UpstreamKeys: []string{"download[?]", "schema"},
			MapSource:    "download[?]",
		}

		branch := placeholder.Branch("b")
		assert.Equal(t, []string{"download[b]", "schema"}, branch.UpstreamKeys)
	})
}

func TestStepKeys(t *testing.T) {
	assert.Equal(t, "download[?]", domain.PlaceholderKey("download"))
	assert.True(t, domain.IsPlaceholderKey("download[?]"))
	assert.False(t, domain.IsPlaceholderKey("download[a]"))
	assert.Equal(t, "download[a]", domain.BranchKey("download", "a"))
	assert.Equal(t, "combine<-download[?]", domain.CollectKey("download[?]", "combine"))
}
