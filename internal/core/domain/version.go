package domain

import "maps"

// DataVersion is a deterministic content fingerprint of a step's expected
// output. It is a pure content hash, never a random identifier.
type DataVersion string

// String returns the hex representation of the version.
func (v DataVersion) String() string {
	return string(v)
}

// Short returns an abbreviated form for display.
func (v DataVersion) Short() string {
	const n = 12
	if len(v) <= n {
		return string(v)
	}
	return string(v[:n])
}

// UpstreamVersion pairs an upstream step key with its data version.
type UpstreamVersion struct {
	Key     string
	Version DataVersion
}

// VersionedPlan is an execution plan whose steps all carry a data version.
// It is immutable and safe for concurrent readers.
type VersionedPlan struct {
	workflow *Workflow
	plan     *ExecutionPlan
	config   ResolvedConfig
	versions map[string]DataVersion
}

// NewVersionedPlan annotates plan with versions.
func NewVersionedPlan(
	workflow *Workflow,
	plan *ExecutionPlan,
	config ResolvedConfig,
	versions map[string]DataVersion,
) *VersionedPlan {
	return &VersionedPlan{
		workflow: workflow,
		plan:     plan,
		config:   config,
		versions: maps.Clone(versions),
	}
}

// Workflow returns the workflow the plan was built from.
func (vp *VersionedPlan) Workflow() *Workflow {
	return vp.workflow
}

// Plan returns the underlying execution plan.
func (vp *VersionedPlan) Plan() *ExecutionPlan {
	return vp.plan
}

// Config returns the resolved configuration the plan was versioned with.
func (vp *VersionedPlan) Config() ResolvedConfig {
	return vp.config
}

// Version returns the data version of the step with the given key.
func (vp *VersionedPlan) Version(key string) (DataVersion, bool) {
	v, ok := vp.versions[key]
	return v, ok
}

// Versions returns a copy of every step's data version.
func (vp *VersionedPlan) Versions() map[string]DataVersion {
	return maps.Clone(vp.versions)
}
