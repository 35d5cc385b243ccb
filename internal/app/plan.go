package app

import (
	"go.trai.ch/memo/internal/core/domain"
)

// PlanStep is one step of a dry-run plan.
type PlanStep struct {
	Key         string             `json:"step_key"`
	Kind        domain.StepKind    `json:"kind"`
	DataVersion domain.DataVersion `json:"data_version"`
	Upstream    []string           `json:"upstream,omitempty"`
	Execute     bool               `json:"execute"`
}

// PlanReport describes what a run would execute, in topological order.
type PlanReport struct {
	Workflow string     `json:"workflow"`
	Mode     string     `json:"mode"`
	Steps    []PlanStep `json:"steps"`
}

func newPlanReport(workflow string, vp *domain.VersionedPlan, selected []string) *PlanReport {
	execute := make(map[string]bool, len(selected))
	for _, key := range selected {
		execute[key] = true
	}

	report := &PlanReport{
		Workflow: workflow,
		Mode:     vp.Config().Mode,
		Steps:    make([]PlanStep, 0, vp.Plan().Len()),
	}
	for step := range vp.Plan().Steps() {
		version, _ := vp.Version(step.Key)
		report.Steps = append(report.Steps, PlanStep{
			Key:         step.Key,
			Kind:        step.Kind,
			DataVersion: version,
			Upstream:    step.UpstreamKeys,
			Execute:     execute[step.Key],
		})
	}
	return report
}

// ExecuteKeys returns the keys of the steps that would execute.
func (r *PlanReport) ExecuteKeys() []string {
	var keys []string
	for _, s := range r.Steps {
		if s.Execute {
			keys = append(keys, s.Key)
		}
	}
	return keys
}

// UpToDate reports whether nothing would execute.
func (r *PlanReport) UpToDate() bool {
	return len(r.ExecuteKeys()) == 0
}
