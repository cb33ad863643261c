package primitive

import "github.com/eug-vs/lambo/internal/heap"

// NewCons, NewNil and NewPair give Go code (the IO driver) a shared list
// vocabulary to hand back structured results (DB query rows, JWT claim
// sets) in, using the fixed TagNil/TagCons/TagPair tags rather than a
// freshly minted one so a Lambo program's own match expressions can
// compare against them. There is no user-facing "#list_nil"/"#list_cons"/
// "#pair" primitive: a Lambo program builds its own list and pair
// constructors with #constructor, the same way it builds any other data
// type, and the two vocabularies never need to compare equal to each
// other.
func NewCons(h *heap.Heap, head, tail heap.NodeId) heap.NodeId {
	return h.Alloc(&heap.Data{CtorTag: TagCons, Arity: 2, Filled: 2, Slots: []heap.NodeId{head, tail}})
}

func NewNil(h *heap.Heap) heap.NodeId {
	return h.Alloc(&heap.Data{CtorTag: TagNil, Arity: 0, Filled: 0})
}

func NewPair(h *heap.Heap, a, b heap.NodeId) heap.NodeId {
	return h.Alloc(&heap.Data{CtorTag: TagPair, Arity: 2, Filled: 2, Slots: []heap.NodeId{a, b}})
}
