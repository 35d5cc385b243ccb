package domain

import (
	"maps"
	"time"

	"github.com/google/uuid"
)

// Materialization records the data version a step last durably produced.
// The engine never inspects the materialized value itself.
type Materialization struct {
	StepKey     string      `json:"step_key"`
	DataVersion DataVersion `json:"data_version"`
	RunID       uuid.UUID   `json:"run_id"`
	MappingKeys []string    `json:"mapping_keys,omitempty"`
	Timestamp   time.Time   `json:"timestamp"`
}

// MaterializationsFromRun derives the materializations known to a run: the
// ones it inherited, the ones its memoized steps read, and the ones its
// successful steps produced, later entries taking precedence.
func MaterializationsFromRun(run *Run, events []RunEvent) map[string]Materialization {
	result := maps.Clone(run.Inherited)
	if result == nil {
		result = make(map[string]Materialization)
	}

	for _, e := range events {
		switch {
		case e.Kind == EventSuccess:
			result[e.StepKey] = Materialization{
				StepKey:     e.StepKey,
				DataVersion: e.DataVersion,
				RunID:       run.ID,
				MappingKeys: e.MappingKeys,
				Timestamp:   e.Timestamp,
			}
		case e.Kind == EventSkip && e.Annotation == AnnotationMemoized && e.SourceRunID != nil:
			result[e.StepKey] = Materialization{
				StepKey:     e.StepKey,
				DataVersion: e.DataVersion,
				RunID:       *e.SourceRunID,
				MappingKeys: e.MappingKeys,
				Timestamp:   e.Timestamp,
			}
		}
	}

	return result
}
