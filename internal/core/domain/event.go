package domain

import (
	"time"

	"github.com/google/uuid"
)

// EventKind is the kind of a run event.
type EventKind string

const (
	// EventStart is emitted when a step's compute begins.
	EventStart EventKind = "start"
	// EventSuccess is emitted when a step's compute succeeds.
	EventSuccess EventKind = "success"
	// EventFailure is emitted when a step's compute fails.
	EventFailure EventKind = "failure"
	// EventSkip is emitted for a step that is not executed.
	EventSkip EventKind = "skip"
)

// Skip annotations.
const (
	AnnotationMemoized          = "memoized"
	AnnotationNotSelected       = "not selected"
	AnnotationDependencyFailure = "failure in dependency"
	AnnotationRunHalted         = "run halted"
	AnnotationRunCanceled       = "run canceled"
)

// RunEvent is an ordered, append-only record scoped to one run.
type RunEvent struct {
	Seq         int64       `json:"seq"`
	RunID       uuid.UUID   `json:"run_id"`
	StepKey     string      `json:"step_key"`
	Kind        EventKind   `json:"kind"`
	Annotation  string      `json:"annotation,omitempty"`
	Error       string      `json:"error,omitempty"`
	DataVersion DataVersion `json:"data_version,omitempty"`
	MappingKeys []string    `json:"mapping_keys,omitempty"`
	// SourceRunID is the run that produced the materialization a skipped step reads.
	SourceRunID *uuid.UUID `json:"source_run_id,omitempty"`
	Timestamp   time.Time  `json:"timestamp"`
}

// IsTerminal reports whether the event ends a step (success, failure or skip).
func (e RunEvent) IsTerminal() bool {
	return e.Kind != EventStart
}

// ExecutedStepEvents filters events down to those of executed steps
// (start, success, failure).
func ExecutedStepEvents(events []RunEvent) []RunEvent {
	var executed []RunEvent
	for _, e := range events {
		if e.Kind != EventSkip {
			executed = append(executed, e)
		}
	}
	return executed
}
