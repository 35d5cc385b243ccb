package memory_test

import (
	"errors"
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.trai.ch/memo/internal/adapters/memory"
	"go.trai.ch/memo/internal/core/domain"
)

func TestIndex_RecordAndLookup(t *testing.T) {
	ctx := t.Context()
	index := memory.NewIndex()
	runID := uuid.New()

	m, err := index.Get(ctx, "A")
	require.NoError(t, err)
	assert.Nil(t, m)

	require.NoError(t, index.Record(ctx, domain.Materialization{StepKey: "A", DataVersion: "v1", RunID: runID}))
	require.NoError(t, index.Record(ctx, domain.Materialization{
		StepKey: "A", DataVersion: "v2", RunID: runID, MappingKeys: []string{"x"},
	}))

	has, err := index.Has(ctx, "A", "v1")
	require.NoError(t, err)
	assert.True(t, has)

	has, err = index.Has(ctx, "A", "v3")
	require.NoError(t, err)
	assert.False(t, has)

	latest, err := index.Get(ctx, "A")
	require.NoError(t, err)
	require.NotNil(t, latest)
	assert.Equal(t, domain.DataVersion("v2"), latest.DataVersion)
	assert.Equal(t, []string{"x"}, latest.MappingKeys)

	old, err := index.Find(ctx, "A", "v1")
	require.NoError(t, err)
	require.NotNil(t, old)
	assert.Equal(t, runID, old.RunID)

	missing, err := index.Find(ctx, "B", "v1")
	require.NoError(t, err)
	assert.Nil(t, missing)

	assert.Equal(t, 2, index.Len())
}

func TestRunStore_Lifecycle(t *testing.T) {
	ctx := t.Context()
	store := memory.NewRunStore()
	run := &domain.Run{ID: uuid.New(), Status: domain.RunStatusQueued, Tags: map[string]string{"k": "v"}}

	require.NoError(t, store.CreateRun(ctx, run))
	err := store.CreateRun(ctx, run)
	require.True(t, errors.Is(err, domain.ErrRunAlreadyExists))

	run.Tags["k"] = "changed"
	got, err := store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, "v", got.Tags["k"])

	require.NoError(t, store.UpdateStatus(ctx, run.ID, domain.RunStatusStarted))
	require.NoError(t, store.AppendEvent(ctx, run.ID, domain.RunEvent{
		Seq: 1, StepKey: "A", Kind: domain.EventSuccess, DataVersion: "v1",
	}))

	got, err = store.GetRun(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.RunStatusStarted, got.Status)

	events, err := store.Events(ctx, run.ID)
	require.NoError(t, err)
	require.Len(t, events, 1)

	mats, err := store.GetParentMaterializations(ctx, run.ID)
	require.NoError(t, err)
	assert.Equal(t, domain.DataVersion("v1"), mats["A"].DataVersion)
	assert.Equal(t, run.ID, mats["A"].RunID)
}

func TestRunStore_UnknownRun(t *testing.T) {
	store := memory.NewRunStore()
	id := uuid.New()

	_, err := store.GetRun(t.Context(), id)
	assert.True(t, errors.Is(err, domain.ErrRunNotFound))

	err = store.AppendEvent(t.Context(), id, domain.RunEvent{})
	assert.True(t, errors.Is(err, domain.ErrRunNotFound))
}
