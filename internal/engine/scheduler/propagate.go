package scheduler

import (
	"container/heap"

	"go.trai.ch/memo/internal/core/domain"
)

// propagateFailure skips every selected step downstream of failed that has
// not started yet. Skip events come out in plan order so the event stream is
// deterministic regardless of graph shape.
func (state *schedulerRunState) propagateFailure(failed string) {
	affected := make(map[string]bool)
	queue := []string{failed}
	for len(queue) > 0 {
		key := queue[0]
		queue = queue[1:]
		for _, dep := range state.plan.Dependents(key) {
			if affected[dep] || !state.selected[dep] || state.outcomes[dep] != outcomePending {
				continue
			}
			affected[dep] = true
			queue = append(queue, dep)
		}
	}

	h := &positionHeap{plan: state.plan}
	for key := range affected {
		heap.Push(h, key)
	}
	for h.Len() > 0 {
		key := heap.Pop(h).(string)
		state.outcomes[key] = outcomeSkipped
		state.emit(domain.RunEvent{
			StepKey:    key,
			Kind:       domain.EventSkip,
			Annotation: domain.AnnotationDependencyFailure,
		})
	}
}

// positionHeap is a min-heap of step keys ordered by plan position.
type positionHeap struct {
	plan *domain.ExecutionPlan
	keys []string
}

func (h *positionHeap) Len() int { return len(h.keys) }

func (h *positionHeap) Less(i, j int) bool {
	return h.plan.Position(h.keys[i]) < h.plan.Position(h.keys[j])
}

func (h *positionHeap) Swap(i, j int) { h.keys[i], h.keys[j] = h.keys[j], h.keys[i] }

func (h *positionHeap) Push(x any) { h.keys = append(h.keys, x.(string)) }

func (h *positionHeap) Pop() any {
	n := len(h.keys)
	x := h.keys[n-1]
	h.keys = h.keys[:n-1]
	return x
}
