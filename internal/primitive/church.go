package primitive

import "github.com/eug-vs/lambo/internal/heap"

// ChurchBool builds the Church-encoded boolean value directly as a
// Closure over the empty environment: true is λx.λy.x, false is λx.λy.y.
// A Closure's Body field holds what would be the outer lambda's own Body
// (here, the inner λy.… node), matching how the reducer freezes a Lambda
// it has entered with zero arguments applied.
func ChurchBool(h *heap.Heap, value bool) heap.NodeId {
	var innerBody heap.NodeId
	if value {
		innerBody = h.Alloc(heap.Var{Depth: 2})
	} else {
		innerBody = h.Alloc(heap.Var{Depth: 1})
	}
	inner := h.Alloc(heap.Lambda{Body: innerBody})
	return h.Alloc(heap.Closure{Body: inner, Env: heap.EmptyEnv})
}
