package memo_test

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/hasher"
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports/mocks"
	"go.trai.ch/memo/internal/engine/memo"
	"go.trai.ch/memo/internal/engine/planner"
	"go.trai.ch/memo/internal/engine/versioning"
	"go.uber.org/mock/gomock"
)

// versionedChain builds A -> B -> C plus an unrelated D.
func versionedChain(t *testing.T, cfg map[string]any) *domain.VersionedPlan {
	t.Helper()
	w := domain.NewWorkflow("test")
	for name, inputs := range map[string][]string{"A": nil, "B": {"A"}, "C": {"B"}, "D": nil} {
		require.NoError(t, w.AddTask(&domain.TaskDefinition{
			Name:        domain.NewInternedString(name),
			CodeVersion: "1",
			Inputs:      domain.NewInternedStrings(inputs),
		}))
	}

	resolved := domain.ResolvedConfig{Mode: domain.DefaultModeName, Tasks: map[string]domain.TaskConfig{}}
	for name, v := range cfg {
		resolved.Tasks[name] = domain.TaskConfig{Config: v}
	}

	plan, err := planner.NewBuilder().Build(w, resolved, domain.DefaultModeName)
	require.NoError(t, err)
	ctrl := gomock.NewController(t)
	vp, err := versioning.NewResolver(hasher.New(), mocks.NewMockLogger(ctrl)).Resolve(w, plan, resolved)
	require.NoError(t, err)
	return vp
}

// fakeIndex answers Has from a set of materialized versions.
func fakeIndex(t *testing.T, materialized map[string]domain.DataVersion) *mocks.MockMaterializationIndex {
	t.Helper()
	ctrl := gomock.NewController(t)
	index := mocks.NewMockMaterializationIndex(ctrl)
	index.EXPECT().Has(gomock.Any(), gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string, version domain.DataVersion) (bool, error) {
			v, ok := materialized[key]
			return ok && v == version, nil
		},
	).AnyTimes()
	index.EXPECT().Get(gomock.Any(), gomock.Any()).DoAndReturn(
		func(_ context.Context, key string) (*domain.Materialization, error) {
			v, ok := materialized[key]
			if !ok {
				return nil, nil
			}
			return &domain.Materialization{StepKey: key, DataVersion: v}, nil
		},
	).AnyTimes()
	return index
}

func TestResolveMissing_EmptyIndexSelectsAll(t *testing.T) {
	vp := versionedChain(t, nil)

	got, err := memo.NewResolver(fakeIndex(t, nil)).ResolveMissing(t.Context(), vp, nil)
	require.NoError(t, err)
	assert.Equal(t, vp.Plan().Keys(), got)
}

func TestResolveMissing_MonotoneMemoization(t *testing.T) {
	vp := versionedChain(t, map[string]any{"A": "x", "B": "y"})

	got, err := memo.NewResolver(fakeIndex(t, vp.Versions())).ResolveMissing(t.Context(), vp, nil)
	require.NoError(t, err)
	assert.Empty(t, got)
}

func TestResolveMissing_MinimalReexecution(t *testing.T) {
	first := versionedChain(t, map[string]any{"A": "x", "B": "y"})
	index := fakeIndex(t, first.Versions())

	second := versionedChain(t, map[string]any{"A": "x", "B": "z"})
	got, err := memo.NewResolver(index).ResolveMissing(t.Context(), second, nil)
	require.NoError(t, err)
	assert.Equal(t, []string{"B", "C"}, got)
}

func TestResolveMissing_InheritedSatisfies(t *testing.T) {
	vp := versionedChain(t, nil)
	inherited := make(map[string]domain.Materialization)
	for key, v := range vp.Versions() {
		inherited[key] = domain.Materialization{StepKey: key, DataVersion: v}
	}
	// A stale inherited version does not satisfy the step.
	inherited["D"] = domain.Materialization{StepKey: "D", DataVersion: "stale"}

	got, err := memo.NewResolver(fakeIndex(t, nil)).ResolveMissing(t.Context(), vp, inherited)
	require.NoError(t, err)
	assert.Equal(t, []string{"D"}, got)
}

func TestResolveMissing_IndexError(t *testing.T) {
	vp := versionedChain(t, nil)
	ctrl := gomock.NewController(t)
	index := mocks.NewMockMaterializationIndex(ctrl)
	boom := errors.New("disk on fire")
	index.EXPECT().Has(gomock.Any(), gomock.Any(), gomock.Any()).Return(false, boom).AnyTimes()

	_, err := memo.NewResolver(index).ResolveMissing(t.Context(), vp, nil)
	require.ErrorIs(t, err, boom)
}

func TestSelect_Override(t *testing.T) {
	vp := versionedChain(t, nil)
	versions := vp.Versions()

	tests := []struct {
		name         string
		materialized map[string]domain.DataVersion
		inherited    map[string]domain.Materialization
		override     []string
		want         []string
		wantErr      error
	}{
		{
			name: "no override falls back to memoization",
			want: []string{"A", "B", "C", "D"},
		},
		{
			name:         "override is ordered topologically",
			materialized: versions,
			override:     []string{"C", "D", "B"},
			want:         []string{"B", "C", "D"},
		},
		{
			name:      "upstream from parent run",
			inherited: map[string]domain.Materialization{"A": {StepKey: "A", DataVersion: versions["A"]}},
			override:  []string{"B"},
			want:      []string{"B"},
		},
		{
			name:      "parent run upstream at another version",
			inherited: map[string]domain.Materialization{"A": {StepKey: "A", DataVersion: "old"}},
			override:  []string{"B"},
			wantErr:   domain.ErrUpstreamNotMaterialized,
		},
		{
			name:         "index upstream at another version",
			materialized: map[string]domain.DataVersion{"A": "old"},
			override:     []string{"B"},
			wantErr:      domain.ErrUpstreamNotMaterialized,
		},
		{
			name:     "unknown step key",
			override: []string{"Z"},
			wantErr:  domain.ErrUnknownStepKey,
		},
		{
			name:     "upstream never materialized",
			override: []string{"C"},
			wantErr:  domain.ErrUpstreamNotMaterialized,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			r := memo.NewResolver(fakeIndex(t, tt.materialized))
			got, err := r.Select(t.Context(), vp, tt.inherited, tt.override)
			if tt.wantErr != nil {
				require.ErrorIs(t, err, tt.wantErr)
				assert.True(t, domain.IsPreExecution(err))
				return
			}
			require.NoError(t, err)
			assert.Equal(t, tt.want, got)
		})
	}
}
