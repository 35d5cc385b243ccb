package domain

import "github.com/google/uuid"

// StepRequest is everything a step runner needs to run one step's compute.
type StepRequest struct {
	RunID       uuid.UUID
	Step        ExecutionStep
	Task        TaskDefinition
	Config      any
	Resources   map[string]ResourceBinding
	DataVersion DataVersion
	// Upstream maps each upstream step key to the materialization it reads.
	Upstream map[string]Materialization
}

// StepResult is what a step's compute reports back.
type StepResult struct {
	// MappingKeys are yielded by fan-out steps, in order.
	MappingKeys []string
}
