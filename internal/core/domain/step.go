package domain

import (
	"regexp"
	"slices"
	"strings"

	"go.trai.ch/zerr"
)

// StepKind tags the variant of an execution step.
type StepKind string

const (
	// StepPlain is a step that runs its task's compute once.
	StepPlain StepKind = "plain"
	// StepDynamicMapped is a placeholder expanded into one branch per mapping key at runtime.
	StepDynamicMapped StepKind = "dynamic-mapped"
	// StepDynamicCollect gathers every branch of a dynamic output for one downstream consumer.
	StepDynamicCollect StepKind = "dynamic-collect"
)

const (
	placeholderSuffix = "[?]"
	collectSeparator  = "<-"
)

// PlaceholderKey returns the key of a mapped task's placeholder step.
func PlaceholderKey(task string) string {
	return task + placeholderSuffix
}

// IsPlaceholderKey reports whether key names a placeholder step.
func IsPlaceholderKey(key string) bool {
	return strings.HasSuffix(key, placeholderSuffix)
}

// BranchKey returns the key of one runtime branch of a mapped task.
func BranchKey(task, mappingKey string) string {
	return task + "[" + mappingKey + "]"
}

// CollectKey returns the key of the synthetic step collecting source's
// dynamic output for consumer.
func CollectKey(source, consumer string) string {
	return consumer + collectSeparator + source
}

// ExecutionStep is one executable unit of an execution plan.
type ExecutionStep struct {
	Key  string
	Task InternedString
	Kind StepKind
	// UpstreamKeys are the sorted keys of the steps this step depends on.
	UpstreamKeys []string
	// FanOut marks a step whose compute yields mapping keys.
	FanOut bool
	// MapSource is the key of the step whose mapping keys expand a placeholder.
	MapSource string
	// CollectSource is the placeholder key gathered by a collect step.
	CollectSource string
	// Placeholder and MappingKey are set on runtime branches only.
	Placeholder string
	MappingKey  string
}

// IsBranch reports whether the step is a runtime branch of a placeholder.
func (s ExecutionStep) IsBranch() bool {
	return s.Placeholder != ""
}

// YieldsMappingKeys reports whether downstream placeholders read mapping keys
// from this step's materialization.
func (s ExecutionStep) YieldsMappingKeys() bool {
	return s.FanOut || s.Kind == StepDynamicMapped || s.Kind == StepDynamicCollect
}

// Branch derives the runtime branch of a placeholder step for one mapping key.
// A placeholder mapped over another placeholder depends on the matching
// branch of its source.
func (s ExecutionStep) Branch(mappingKey string) ExecutionStep {
	upstream := make([]string, 0, len(s.UpstreamKeys))
	for _, key := range s.UpstreamKeys {
		if key == s.MapSource && IsPlaceholderKey(key) {
			key = BranchKey(strings.TrimSuffix(key, placeholderSuffix), mappingKey)
		}
		upstream = append(upstream, key)
	}
	slices.Sort(upstream)
	return ExecutionStep{
		Key:          BranchKey(s.Task.String(), mappingKey),
		Task:         s.Task,
		Kind:         StepPlain,
		UpstreamKeys: upstream,
		Placeholder:  s.Key,
		MappingKey:   mappingKey,
	}
}

var mappingKeyRegex = regexp.MustCompile(`^[A-Za-z0-9_]+$`)

// ValidateMappingKeys checks that every mapping key is well formed and that
// no key is yielded twice.
func ValidateMappingKeys(keys []string) error {
	seen := make(map[string]struct{}, len(keys))
	for _, k := range keys {
		if !mappingKeyRegex.MatchString(k) {
			return zerr.With(zerr.Wrap(ErrInvalidMappingKey, "validate mapping keys"), "mapping_key", k)
		}
		if _, dup := seen[k]; dup {
			return zerr.With(zerr.Wrap(ErrDuplicateMappingKey, "validate mapping keys"), "mapping_key", k)
		}
		seen[k] = struct{}{}
	}
	return nil
}
