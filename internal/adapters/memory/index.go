// Package memory implements in-process stores for tests and dry runs.
package memory

import (
	"context"
	"slices"
	"sync"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
)

var _ ports.MaterializationIndex = (*Index)(nil)

type versionKey struct {
	step    string
	version domain.DataVersion
}

// Index implements ports.MaterializationIndex in memory.
type Index struct {
	mu       sync.RWMutex
	versions map[versionKey]domain.Materialization
	latest   map[string]domain.Materialization
}

// NewIndex creates an empty Index.
func NewIndex() *Index {
	return &Index{
		versions: make(map[versionKey]domain.Materialization),
		latest:   make(map[string]domain.Materialization),
	}
}

// Has reports whether stepKey was materialized at version.
func (i *Index) Has(_ context.Context, stepKey string, version domain.DataVersion) (bool, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	_, ok := i.versions[versionKey{stepKey, version}]
	return ok, nil
}

// Record stores materialization and makes it the latest for its step key.
func (i *Index) Record(_ context.Context, materialization domain.Materialization) error {
	materialization.MappingKeys = slices.Clone(materialization.MappingKeys)

	i.mu.Lock()
	defer i.mu.Unlock()

	i.versions[versionKey{materialization.StepKey, materialization.DataVersion}] = materialization
	i.latest[materialization.StepKey] = materialization
	return nil
}

// Find returns the materialization of stepKey at version, or nil.
func (i *Index) Find(_ context.Context, stepKey string, version domain.DataVersion) (*domain.Materialization, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	m, ok := i.versions[versionKey{stepKey, version}]
	if !ok {
		return nil, nil
	}
	m.MappingKeys = slices.Clone(m.MappingKeys)
	return &m, nil
}

// Get returns the latest materialization of stepKey, or nil.
func (i *Index) Get(_ context.Context, stepKey string) (*domain.Materialization, error) {
	i.mu.RLock()
	defer i.mu.RUnlock()

	m, ok := i.latest[stepKey]
	if !ok {
		return nil, nil
	}
	m.MappingKeys = slices.Clone(m.MappingKeys)
	return &m, nil
}

// Len returns the number of recorded (step key, version) pairs.
func (i *Index) Len() int {
	i.mu.RLock()
	defer i.mu.RUnlock()
	return len(i.versions)
}
