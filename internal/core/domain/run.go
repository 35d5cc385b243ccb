package domain

import (
	"strings"
	"time"

	"github.com/google/uuid"
)

// RunStatus represents the lifecycle state of a run.
type RunStatus string

const (
	// RunStatusQueued indicates the run record exists but no step has been scheduled.
	RunStatusQueued RunStatus = "queued"
	// RunStatusStarted indicates the step executor is running the run.
	RunStatusStarted RunStatus = "started"
	// RunStatusSuccess indicates every required step succeeded.
	RunStatusSuccess RunStatus = "success"
	// RunStatusFailure indicates at least one step failed.
	RunStatusFailure RunStatus = "failure"
	// RunStatusCanceled indicates the run was canceled before every step could progress.
	RunStatusCanceled RunStatus = "canceled"
)

// IsTerminal checks if a status is a terminal state (success, failure, canceled).
func (s RunStatus) IsTerminal() bool {
	switch s {
	case RunStatusSuccess, RunStatusFailure, RunStatusCanceled:
		return true
	default:
		return false
	}
}

// IsFailure reports whether the status is a failure-like terminal status.
func (s RunStatus) IsFailure() bool {
	return s == RunStatusFailure || s == RunStatusCanceled
}

// CanTransition reports whether a run may move from s to next.
// Status only ever moves forward.
func (s RunStatus) CanTransition(next RunStatus) bool {
	switch s {
	case RunStatusQueued:
		return next == RunStatusStarted || next == RunStatusFailure || next == RunStatusCanceled
	case RunStatusStarted:
		return next.IsTerminal()
	default:
		return false
	}
}

// NormalizeRunStatus converts a string to a RunStatus, defaulting to queued if unknown.
func NormalizeRunStatus(s string) RunStatus {
	switch strings.ToLower(s) {
	case string(RunStatusStarted):
		return RunStatusStarted
	case string(RunStatusSuccess):
		return RunStatusSuccess
	case string(RunStatusFailure):
		return RunStatusFailure
	case string(RunStatusCanceled):
		return RunStatusCanceled
	default:
		return RunStatusQueued
	}
}

// FailurePolicy selects how the step executor reacts to a step failure.
type FailurePolicy string

const (
	// FailFast stops starting new steps once any step fails.
	FailFast FailurePolicy = "fail-fast"
	// ContinueIndependent lets branches that do not depend on a failed step run to completion.
	ContinueIndependent FailurePolicy = "continue-independent"
)

// Run is one end-to-end execution attempt of a workflow under a resolved configuration.
type Run struct {
	ID          uuid.UUID         `json:"run_id"`
	Workflow    string            `json:"workflow"`
	Mode        string            `json:"mode"`
	Config      ResolvedConfig    `json:"config"`
	Tags        map[string]string `json:"tags,omitempty"`
	ParentRunID *uuid.UUID        `json:"parent_run_id,omitempty"`
	Status      RunStatus         `json:"status"`
	Policy      FailurePolicy     `json:"policy"`
	// StepKeysToExecute is the selected subset in topological order.
	StepKeysToExecute []string `json:"step_keys_to_execute"`
	// Inherited holds the parent run's materializations, carried forward so
	// skipped steps can resolve their inputs from the parent's outputs.
	Inherited map[string]Materialization `json:"inherited,omitempty"`
	CreatedAt time.Time                  `json:"created_at"`
	UpdatedAt time.Time                  `json:"updated_at"`
}

// IsReexecution reports whether the run re-executes a parent run.
func (r *Run) IsReexecution() bool {
	return r.ParentRunID != nil
}

// Selects reports whether key is part of the run's selected step subset.
func (r *Run) Selects(key string) bool {
	for _, k := range r.StepKeysToExecute {
		if k == key {
			return true
		}
	}
	return false
}
