package scheduler

import (
	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/zerr"
)

// expand starts a placeholder: it reads the mapping keys of its map source
// and feeds one branch per key into the ready queue. The placeholder succeeds
// once every branch did.
func (state *schedulerRunState) expand(placeholder domain.ExecutionStep) {
	state.emit(domain.RunEvent{
		StepKey:     placeholder.Key,
		Kind:        domain.EventStart,
		DataVersion: state.versions[placeholder.Key],
	})
	if state.err != nil {
		return
	}
	state.outcomes[placeholder.Key] = outcomeRunning

	source, err := state.lookup(placeholder.MapSource, state.versions[placeholder.MapSource])
	if err != nil {
		state.fail(placeholder.Key, err)
		return
	}
	if source == nil {
		state.fail(placeholder.Key, zerr.With(zerr.Wrap(domain.ErrMappingKeysUnavailable, "expand placeholder"),
			"map_source", placeholder.MapSource))
		return
	}

	keys := source.MappingKeys
	branches := make([]domain.ExecutionStep, 0, len(keys))
	versions := make([]domain.DataVersion, 0, len(keys))
	for _, k := range keys {
		branch := placeholder.Branch(k)
		version, err := state.branchVersion(branch)
		if err != nil {
			state.fail(placeholder.Key, err)
			return
		}
		branches = append(branches, branch)
		versions = append(versions, version)
	}

	state.mappingKeys[placeholder.Key] = keys
	state.remaining[placeholder.Key] = len(branches)
	for i, branch := range branches {
		state.steps[branch.Key] = branch
		state.versions[branch.Key] = versions[i]
		state.outcomes[branch.Key] = outcomePending
		state.branches[placeholder.Key] = append(state.branches[placeholder.Key], branch.Key)
		state.ready = append(state.ready, branch.Key)
	}

	if len(branches) == 0 {
		state.completePlaceholder(placeholder.Key)
	}
}

// branchVersion versions a runtime branch from its placeholder and the
// versions of its own upstream steps. A branch that did not expand in this
// run, because its placeholder was memoized, is versioned the same way, so a
// downstream branch always reads the upstream output of its own inputs.
func (state *schedulerRunState) branchVersion(branch domain.ExecutionStep) (domain.DataVersion, error) {
	if v, ok := state.versions[branch.Key]; ok {
		return v, nil
	}
	runtime := make(map[string]domain.DataVersion)
	for _, up := range branch.UpstreamKeys {
		if state.plan.Contains(up) {
			continue
		}
		v, err := state.upstreamVersion(branch, up)
		if err != nil {
			return "", err
		}
		runtime[up] = v
	}
	version, err := state.s.versioner.BranchVersion(state.vp, branch, runtime)
	if err != nil {
		return "", err
	}
	state.versions[branch.Key] = version
	return version, nil
}

// upstreamVersion returns the data version step expects of its upstream key.
func (state *schedulerRunState) upstreamVersion(step domain.ExecutionStep, key string) (domain.DataVersion, error) {
	if v, ok := state.versions[key]; ok {
		return v, nil
	}
	up, ok := state.upstreamBranch(step, key)
	if !ok {
		return "", zerr.With(zerr.With(zerr.Wrap(domain.ErrUnversionedUpstream, "resolve upstream version"),
			"step", step.Key), "upstream", key)
	}
	return state.branchVersion(up)
}

// upstreamBranch returns the branch of the placeholder that branch's own
// placeholder maps over, if key names it.
func (state *schedulerRunState) upstreamBranch(branch domain.ExecutionStep, key string) (domain.ExecutionStep, bool) {
	if !branch.IsBranch() {
		return domain.ExecutionStep{}, false
	}
	placeholder, ok := state.steps[branch.Placeholder]
	if !ok {
		return domain.ExecutionStep{}, false
	}
	source, ok := state.steps[placeholder.MapSource]
	if !ok || source.Kind != domain.StepDynamicMapped {
		return domain.ExecutionStep{}, false
	}
	up := source.Branch(branch.MappingKey)
	return up, up.Key == key
}

// dispatchBranch skips a branch already materialized at its version and
// starts it otherwise.
func (state *schedulerRunState) dispatchBranch(branch domain.ExecutionStep) {
	m, err := state.memoized(branch.Key, state.versions[branch.Key])
	if err != nil {
		state.err = err
		return
	}
	if m == nil {
		state.start(branch)
		return
	}

	state.produced[branch.Key] = *m
	state.emitMemoized(branch.Key, m)
	state.succeed(branch.Key)
}

func (state *schedulerRunState) branchDone(branch domain.ExecutionStep) {
	state.remaining[branch.Placeholder]--
	if state.remaining[branch.Placeholder] == 0 && state.outcomes[branch.Placeholder] == outcomeRunning {
		state.completePlaceholder(branch.Placeholder)
	}
}

func (state *schedulerRunState) completePlaceholder(key string) {
	m, err := state.record(key, state.mappingKeys[key])
	if err != nil {
		state.fail(key, err)
		return
	}
	state.emit(domain.RunEvent{
		StepKey:     key,
		Kind:        domain.EventSuccess,
		DataVersion: m.DataVersion,
		MappingKeys: m.MappingKeys,
	})
	state.succeed(key)
}

// collect completes a collect step in process. It carries the mapping keys of
// the placeholder it gathers so the consumer can find every branch.
func (state *schedulerRunState) collect(step domain.ExecutionStep) {
	state.emit(domain.RunEvent{
		StepKey:     step.Key,
		Kind:        domain.EventStart,
		DataVersion: state.versions[step.Key],
	})
	if state.err != nil {
		return
	}
	state.outcomes[step.Key] = outcomeRunning

	source, err := state.lookup(step.CollectSource, state.versions[step.CollectSource])
	if err != nil {
		state.fail(step.Key, err)
		return
	}
	if source == nil {
		state.fail(step.Key, zerr.With(zerr.Wrap(domain.ErrMappingKeysUnavailable, "collect"),
			"source", step.CollectSource))
		return
	}

	m, err := state.record(step.Key, source.MappingKeys)
	if err != nil {
		state.fail(step.Key, err)
		return
	}
	state.emit(domain.RunEvent{
		StepKey:     step.Key,
		Kind:        domain.EventSuccess,
		DataVersion: m.DataVersion,
		MappingKeys: m.MappingKeys,
	})
	state.succeed(step.Key)
}
