// Package memo selects the steps of a versioned plan that must execute.
package memo

import (
	"context"
	"runtime"

	"go.trai.ch/memo/internal/core/domain"
	"go.trai.ch/memo/internal/core/ports"
	"go.trai.ch/zerr"
	"golang.org/x/sync/errgroup"
)

// Resolver decides which steps are already satisfied by a materialization.
type Resolver struct {
	index       ports.MaterializationIndex
	concurrency int
}

// NewResolver creates a new Resolver backed by index.
func NewResolver(index ports.MaterializationIndex) *Resolver {
	return &Resolver{index: index, concurrency: runtime.NumCPU()}
}

// ResolveMissing returns, in topological order, the keys of every step whose
// data version has no materialization in the index or in inherited.
//
// Each step is checked against its own data version only. A step downstream
// of a changed step is selected because its version changed too, so no
// invalidation walk is needed. An empty result means the plan is fully
// memoized.
func (r *Resolver) ResolveMissing(
	ctx context.Context,
	vp *domain.VersionedPlan,
	inherited map[string]domain.Materialization,
) ([]string, error) {
	keys := vp.Plan().Keys()
	missing := make([]bool, len(keys))

	g, ctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)

	for i, key := range keys {
		version, _ := vp.Version(key)
		if m, ok := inherited[key]; ok && m.DataVersion == version {
			continue
		}
		g.Go(func() error {
			ok, err := r.index.Has(ctx, key, version)
			if err != nil {
				return zerr.With(zerr.Wrap(err, "lookup materialization"), "step", key)
			}
			missing[i] = !ok
			return nil
		})
	}

	if err := g.Wait(); err != nil {
		return nil, err
	}

	selected := make([]string, 0, len(keys))
	for i, key := range keys {
		if missing[i] {
			selected = append(selected, key)
		}
	}
	return selected, nil
}

// Select returns the steps a run executes. Without an override it is
// ResolveMissing. With an override, exactly the named steps execute, and
// every upstream step outside the override must already be materialized at
// its current data version, either in the index or in inherited.
func (r *Resolver) Select(
	ctx context.Context,
	vp *domain.VersionedPlan,
	inherited map[string]domain.Materialization,
	override []string,
) ([]string, error) {
	if len(override) == 0 {
		return r.ResolveMissing(ctx, vp, inherited)
	}

	plan := vp.Plan()
	selected := make(map[string]bool, len(override))
	for _, key := range override {
		if !plan.Contains(key) {
			return nil, zerr.With(zerr.Wrap(domain.ErrUnknownStepKey, "select steps"), "step", key)
		}
		selected[key] = true
	}

	keys := make([]string, 0, len(selected))
	for key := range selected {
		keys = append(keys, key)
	}
	plan.SortByPosition(keys)

	checked := make(map[string]bool)
	for _, key := range keys {
		step, _ := plan.Step(key)
		for _, up := range step.UpstreamKeys {
			if selected[up] || checked[up] {
				continue
			}
			checked[up] = true
			version, _ := vp.Version(up)
			if m, ok := inherited[up]; ok && m.DataVersion == version {
				continue
			}
			ok, err := r.index.Has(ctx, up, version)
			if err != nil {
				return nil, zerr.With(zerr.Wrap(err, "lookup materialization"), "step", up)
			}
			if !ok {
				return nil, zerr.With(zerr.With(zerr.With(zerr.Wrap(domain.ErrUpstreamNotMaterialized, "select steps"),
					"step", key), "upstream", up), "data_version", version.String())
			}
		}
	}

	return keys, nil
}
