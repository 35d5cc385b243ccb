package domain

import (
	"errors"

	"go.trai.ch/zerr"
)

// Error kinds. Every error produced by the engine wraps exactly one of these,
// so callers classify failures with errors.Is.
var (
	// ErrGraph is the kind of every malformed or cyclic workflow error.
	ErrGraph = zerr.New("invalid workflow graph")

	// ErrConfigValidation is the kind of every run configuration error.
	ErrConfigValidation = zerr.New("invalid run configuration")

	// ErrUnresolvableVersion is the kind of every data version resolution error.
	ErrUnresolvableVersion = zerr.New("unresolvable data version")

	// ErrStepExecution is the kind of every failure raised by a step's compute.
	ErrStepExecution = zerr.New("step execution failed")

	// ErrRunClosed is returned when a run is mutated after reaching a terminal status.
	ErrRunClosed = zerr.New("run is closed")
)

var (
	// ErrTaskAlreadyExists is returned when attempting to add a task with a name that already exists.
	ErrTaskAlreadyExists = zerr.Wrap(ErrGraph, "task already exists")

	// ErrModeAlreadyExists is returned when attempting to add a mode with a name that already exists.
	ErrModeAlreadyExists = zerr.Wrap(ErrGraph, "mode already exists")

	// ErrMissingUpstream is returned when a task references an upstream task that doesn't exist.
	ErrMissingUpstream = zerr.Wrap(ErrGraph, "missing upstream task")

	// ErrInvalidMapSource is returned when a task maps over a task that produces no dynamic output.
	ErrInvalidMapSource = zerr.Wrap(ErrGraph, "map source is neither a fan-out task nor a mapped task")

	// ErrMappedFanOut is returned when a mapped task is also declared as a fan-out task.
	ErrMappedFanOut = zerr.Wrap(ErrGraph, "a mapped task cannot fan out")

	// ErrCycleDetected is returned when a cycle is detected in the workflow graph.
	ErrCycleDetected = zerr.Wrap(ErrGraph, "cycle detected")

	// ErrStepKeyCollision is returned when two execution steps would share the same key.
	ErrStepKeyCollision = zerr.Wrap(ErrGraph, "step key collision")

	// ErrUnknownMode is returned when a run references a mode the workflow does not declare.
	ErrUnknownMode = zerr.Wrap(ErrGraph, "unknown mode")

	// ErrInvalidTaskName is returned when a task name contains invalid characters.
	ErrInvalidTaskName = zerr.Wrap(ErrGraph, "name can only contain alphanumeric characters, hyphens and underscores")

	// ErrUnknownStepKey is returned when a step key selection names a step absent from the plan.
	ErrUnknownStepKey = zerr.Wrap(ErrGraph, "unknown step key")

	// ErrUpstreamNotMaterialized is returned when a selected step depends on an
	// unselected step that has no materialization to read from.
	ErrUpstreamNotMaterialized = zerr.Wrap(ErrGraph, "upstream step is neither selected nor materialized")
)

var (
	// ErrUnknownTaskConfig is returned when the run configuration names a task the workflow does not declare.
	ErrUnknownTaskConfig = zerr.Wrap(ErrConfigValidation, "config for unknown task")

	// ErrUnknownResourceConfig is returned when the run configuration names a resource the mode does not provide.
	ErrUnknownResourceConfig = zerr.Wrap(ErrConfigValidation, "config for unknown resource")

	// ErrMissingResource is returned when a task requires a resource that the mode does not provide.
	ErrMissingResource = zerr.Wrap(ErrConfigValidation, "required resource not provided by mode")

	// ErrSchemaViolation is returned when a task config does not satisfy the task's config schema.
	ErrSchemaViolation = zerr.Wrap(ErrConfigValidation, "config does not match schema")

	// ErrInvalidSchema is returned when a task declares a config schema that cannot be compiled.
	ErrInvalidSchema = zerr.Wrap(ErrConfigValidation, "invalid config schema")

	// ErrBranchConfigWithoutMapping is returned when branch overrides are given for a task that is not mapped.
	ErrBranchConfigWithoutMapping = zerr.Wrap(ErrConfigValidation, "branch config given for a task that is not mapped")
)

var (
	// ErrMissingCodeVersion is returned when a task declares no code version under the strict version policy.
	ErrMissingCodeVersion = zerr.Wrap(ErrUnresolvableVersion, "task declares no code version")

	// ErrUnversionedUpstream is returned when a step is resolved before one of its upstream steps.
	ErrUnversionedUpstream = zerr.Wrap(ErrUnresolvableVersion, "upstream step has no data version")

	// ErrConfigNotSerializable is returned when a step's config cannot be canonically serialized.
	ErrConfigNotSerializable = zerr.Wrap(ErrUnresolvableVersion, "config cannot be serialized")
)

var (
	// ErrInvalidMappingKey is returned when a fan-out step yields a mapping key with invalid characters.
	ErrInvalidMappingKey = zerr.Wrap(ErrStepExecution, "mapping key can only contain alphanumeric characters and underscores")

	// ErrDuplicateMappingKey is returned when a fan-out step yields the same mapping key twice.
	ErrDuplicateMappingKey = zerr.Wrap(ErrStepExecution, "duplicate mapping key")

	// ErrMappingKeysUnavailable is returned when the mapping keys of a dynamic source cannot be found.
	ErrMappingKeysUnavailable = zerr.Wrap(ErrStepExecution, "mapping keys unavailable")
)

var (
	// ErrInvalidStatusTransition is returned when a run status would move backwards.
	ErrInvalidStatusTransition = zerr.New("invalid run status transition")

	// ErrRunNotFound is returned when a run id does not match any stored run.
	ErrRunNotFound = zerr.New("run not found")

	// ErrRunAlreadyExists is returned when a run id is created twice.
	ErrRunAlreadyExists = zerr.New("run already exists")

	// ErrRunFailed is returned when a run reaches the failure or canceled status.
	ErrRunFailed = zerr.New("run failed")

	// ErrWorkflowNotFound is returned when no workflow file is found.
	ErrWorkflowNotFound = zerr.New("could not find memo.yaml or memo.hcl")

	// ErrConfigReadFailed is returned when a workflow or run config file cannot be read.
	ErrConfigReadFailed = zerr.New("failed to read config file")

	// ErrConfigParseFailed is returned when a workflow or run config file cannot be parsed.
	ErrConfigParseFailed = zerr.New("failed to parse config file")

	// ErrStoreCreateFailed is returned when a store directory cannot be created.
	ErrStoreCreateFailed = zerr.New("failed to create store directory")

	// ErrStoreReadFailed is returned when a stored record cannot be read.
	ErrStoreReadFailed = zerr.New("failed to read store record")

	// ErrStoreUnmarshalFailed is returned when a stored record cannot be unmarshaled.
	ErrStoreUnmarshalFailed = zerr.New("failed to unmarshal store record")

	// ErrStoreMarshalFailed is returned when a record cannot be marshaled.
	ErrStoreMarshalFailed = zerr.New("failed to marshal store record")

	// ErrStoreWriteFailed is returned when a record cannot be written.
	ErrStoreWriteFailed = zerr.New("failed to write store record")
)

// IsPreExecution reports whether err aborts a run before any step starts.
func IsPreExecution(err error) bool {
	return errors.Is(err, ErrGraph) ||
		errors.Is(err, ErrConfigValidation) ||
		errors.Is(err, ErrUnresolvableVersion)
}
