package domain

import (
	"cmp"
	"container/heap"
	"iter"
	"slices"

	"go.trai.ch/zerr"
)

// ExecutionPlan is an immutable graph of execution steps.
// It is safe for concurrent readers.
type ExecutionPlan struct {
	steps      map[string]ExecutionStep
	order      []string
	position   map[string]int
	dependents map[string][]string
}

// NewExecutionPlan validates steps and orders them topologically.
// Among steps that are ready at the same time, keys are ordered lexically so
// the order is deterministic.
func NewExecutionPlan(steps []ExecutionStep) (*ExecutionPlan, error) {
	p := &ExecutionPlan{
		steps:      make(map[string]ExecutionStep, len(steps)),
		position:   make(map[string]int, len(steps)),
		dependents: make(map[string][]string, len(steps)),
	}

	for _, s := range steps {
		if _, exists := p.steps[s.Key]; exists {
			return nil, zerr.With(zerr.Wrap(ErrStepKeyCollision, "build execution plan"), "step", s.Key)
		}
		s.UpstreamKeys = slices.Clone(s.UpstreamKeys)
		slices.Sort(s.UpstreamKeys)
		p.steps[s.Key] = s
	}

	inDegree := make(map[string]int, len(steps))
	for key, s := range p.steps {
		for _, up := range s.UpstreamKeys {
			if _, exists := p.steps[up]; !exists {
				return nil, zerr.With(zerr.With(zerr.Wrap(ErrMissingUpstream, "build execution plan"),
					"step", key), "upstream", up)
			}
			p.dependents[up] = append(p.dependents[up], key)
		}
		inDegree[key] = len(s.UpstreamKeys)
	}
	for key := range p.dependents {
		slices.Sort(p.dependents[key])
	}

	ready := &keyHeap{}
	for key, degree := range inDegree {
		if degree == 0 {
			heap.Push(ready, key)
		}
	}

	p.order = make([]string, 0, len(p.steps))
	for ready.Len() > 0 {
		key := heap.Pop(ready).(string)
		p.position[key] = len(p.order)
		p.order = append(p.order, key)
		for _, dep := range p.dependents[key] {
			inDegree[dep]--
			if inDegree[dep] == 0 {
				heap.Push(ready, dep)
			}
		}
	}

	if len(p.order) != len(p.steps) {
		var stuck []string
		for key, degree := range inDegree {
			if degree > 0 {
				stuck = append(stuck, key)
			}
		}
		slices.Sort(stuck)
		return nil, zerr.With(zerr.Wrap(ErrCycleDetected, "build execution plan"), "steps", stuck)
	}

	return p, nil
}

// Steps returns an iterator over the steps in topological order.
func (p *ExecutionPlan) Steps() iter.Seq[ExecutionStep] {
	return func(yield func(ExecutionStep) bool) {
		for _, key := range p.order {
			if !yield(p.steps[key]) {
				return
			}
		}
	}
}

// Step returns the step with the given key.
func (p *ExecutionPlan) Step(key string) (ExecutionStep, bool) {
	s, ok := p.steps[key]
	return s, ok
}

// Contains reports whether the plan holds a step with the given key.
func (p *ExecutionPlan) Contains(key string) bool {
	_, ok := p.steps[key]
	return ok
}

// Keys returns the step keys in topological order.
func (p *ExecutionPlan) Keys() []string {
	return slices.Clone(p.order)
}

// Position returns the topological index of key, or -1 if absent.
func (p *ExecutionPlan) Position(key string) int {
	if pos, ok := p.position[key]; ok {
		return pos
	}
	return -1
}

// Dependents returns the sorted keys of the steps that directly depend on key.
func (p *ExecutionPlan) Dependents(key string) []string {
	return p.dependents[key]
}

// Len returns the number of steps in the plan.
func (p *ExecutionPlan) Len() int {
	return len(p.order)
}

// SortByPosition orders keys by their topological position in place.
// Keys absent from the plan sort last, lexically.
func (p *ExecutionPlan) SortByPosition(keys []string) {
	slices.SortFunc(keys, func(a, b string) int {
		pa, pb := p.Position(a), p.Position(b)
		switch {
		case pa >= 0 && pb >= 0:
			return pa - pb
		case pa >= 0:
			return -1
		case pb >= 0:
			return 1
		default:
			return cmp.Compare(a, b)
		}
	})
}

// keyHeap is a min-heap of step keys.
type keyHeap []string

func (h keyHeap) Len() int           { return len(h) }
func (h keyHeap) Less(i, j int) bool { return h[i] < h[j] }
func (h keyHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }

func (h *keyHeap) Push(x any) { *h = append(*h, x.(string)) }

func (h *keyHeap) Pop() any {
	old := *h
	n := len(old)
	x := old[n-1]
	*h = old[:n-1]
	return x
}
