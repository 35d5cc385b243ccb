// Package versioning assigns data versions to the steps of an execution plan.
package versioning

import (
	"fmt"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
)

// CollectCodeVersion is the code version of every synthetic collect step.
const CollectCodeVersion = "collect"

// Resolver computes data versions. A step's version covers its task's code
// version, its configuration and the versions of every step it depends on, so
// a change anywhere upstream changes every downstream version.
type Resolver struct {
	hasher ports.Hasher
	logger ports.Logger
}

// NewResolver creates a new Resolver.
func NewResolver(hasher ports.Hasher, logger ports.Logger) *Resolver {
	return &Resolver{hasher: hasher, logger: logger}
}

type stepPayload struct {
	Config     any               `json:"config,omitempty"`
	Branches   map[string]any    `json:"branches,omitempty"`
	MappingKey string            `json:"mapping_key,omitempty"`
	Resources  map[string]string `json:"resources,omitempty"`
}

type collectPayload struct {
	Collect string `json:"collect"`
}

// Resolve walks plan in topological order and versions every step.
// Under the strict version policy a task without a code version fails with
// domain.ErrMissingCodeVersion; otherwise the empty code version is used and
// a warning is logged once per task.
func (r *Resolver) Resolve(
	workflow *domain.Workflow,
	plan *domain.ExecutionPlan,
	resolved domain.ResolvedConfig,
) (*domain.VersionedPlan, error) {
	versions := make(map[string]domain.DataVersion, plan.Len())
	warned := make(map[string]bool)

	for step := range plan.Steps() {
		var (
			codeVersion string
			payload     any
		)

		if step.Kind == domain.StepDynamicCollect {
			codeVersion = CollectCodeVersion
			payload = collectPayload{Collect: step.CollectSource}
		} else {
			task, ok := workflow.GetTask(step.Task)
			if !ok {
				return nil, zerr.With(zerr.Wrap(domain.ErrMissingUpstream, "resolve versions"), "step", step.Key)
			}
			cv, err := r.codeVersion(workflow, &task, warned)
			if err != nil {
				return nil, err
			}
			codeVersion = cv
			cfg := resolved.Task(task.Name.String())
			payload = stepPayload{
				Config:    cfg.Config,
				Branches:  cfg.Branches,
				Resources: resourceVersions(cfg.Resources),
			}
		}

		version, err := r.version(step, codeVersion, payload, func(key string) (domain.DataVersion, bool) {
			v, ok := versions[key]
			return v, ok
		})
		if err != nil {
			return nil, err
		}
		versions[step.Key] = version
	}

	return domain.NewVersionedPlan(workflow, plan, resolved, versions), nil
}

// BranchVersion versions one runtime branch of a placeholder. The branch is
// fingerprinted with its own config override and mapping key, and combined
// with the versions of its upstream steps. Upstream branch keys that are not
// part of the plan are looked up in runtime.
func (r *Resolver) BranchVersion(
	vp *domain.VersionedPlan,
	branch domain.ExecutionStep,
	runtime map[string]domain.DataVersion,
) (domain.DataVersion, error) {
	task, ok := vp.Workflow().GetTask(branch.Task)
	if !ok {
		return "", zerr.With(zerr.Wrap(domain.ErrMissingUpstream, "resolve branch version"), "step", branch.Key)
	}
	codeVersion := task.CodeVersion
	if codeVersion == "" && vp.Workflow().StrictVersions {
		return "", zerr.With(zerr.Wrap(domain.ErrMissingCodeVersion, "resolve branch version"), "task", task.Name.String())
	}

	cfg := vp.Config().Task(task.Name.String())
	payload := stepPayload{
		Config:     cfg.BranchConfig(branch.MappingKey),
		MappingKey: branch.MappingKey,
		Resources:  resourceVersions(cfg.Resources),
	}

	return r.version(branch, codeVersion, payload, func(key string) (domain.DataVersion, bool) {
		if v, ok := vp.Version(key); ok {
			return v, true
		}
		v, ok := runtime[key]
		return v, ok
	})
}

func (r *Resolver) version(
	step domain.ExecutionStep,
	codeVersion string,
	payload any,
	lookup func(string) (domain.DataVersion, bool),
) (domain.DataVersion, error) {
	fingerprint, err := r.hasher.Fingerprint(codeVersion, payload)
	if err != nil {
		return "", zerr.With(err, "step", step.Key)
	}

	upstream := make([]domain.UpstreamVersion, 0, len(step.UpstreamKeys))
	for _, key := range step.UpstreamKeys {
		v, ok := lookup(key)
		if !ok {
			return "", zerr.With(zerr.With(zerr.Wrap(domain.ErrUnversionedUpstream, "resolve versions"),
				"step", step.Key), "upstream", key)
		}
		upstream = append(upstream, domain.UpstreamVersion{Key: key, Version: v})
	}

	return r.hasher.DataVersion(fingerprint, upstream), nil
}

func (r *Resolver) codeVersion(
	workflow *domain.Workflow,
	task *domain.TaskDefinition,
	warned map[string]bool,
) (string, error) {
	if task.CodeVersion != "" {
		return task.CodeVersion, nil
	}
	name := task.Name.String()
	if workflow.StrictVersions {
		return "", zerr.With(zerr.Wrap(domain.ErrMissingCodeVersion, "resolve versions"), "task", name)
	}
	if !warned[name] {
		warned[name] = true
		r.logger.Warn(fmt.Sprintf("task %s declares no code version; its steps are versioned by config and upstream only", name))
	}
	return "", nil
}

// resourceVersions reduces resource bindings to their versions. Resource
// config is not part of a step's fingerprint.
func resourceVersions(bindings map[string]domain.ResourceBinding) map[string]string {
	if len(bindings) == 0 {
		return nil
	}
	out := make(map[string]string, len(bindings))
	for name, binding := range bindings {
		out[name] = binding.Version
	}
	return out
}
