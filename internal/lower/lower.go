// Package lower translates a parsed term.Term into heap nodes, allocating
// each subterm exactly once. It sits above both heap and term so neither
// of those needs to depend on the other.
package lower

import (
	"github.com/eug-vs/lambo/internal/heap"
	"github.com/eug-vs/lambo/internal/primitive"
	"github.com/eug-vs/lambo/internal/term"
)

// Lower allocates t (and everything it contains) onto h and returns the
// id of its root node.
func Lower(h *heap.Heap, t term.Term) heap.NodeId {
	switch n := t.(type) {
	case term.Var:
		return h.Alloc(heap.Var{Depth: n.Depth})
	case term.Lambda:
		body := Lower(h, n.Body)
		return h.Alloc(heap.Lambda{Body: body})
	case term.App:
		fun := Lower(h, n.Fun)
		arg := Lower(h, n.Arg)
		return h.Alloc(heap.App{Fun: fun, Arg: arg})
	case term.Num:
		return h.Alloc(heap.Num{Value: n.Value})
	case term.Bytes:
		data := make([]byte, len(n.Value))
		copy(data, n.Value)
		return h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: data}})
	case term.Prim:
		entry := primitive.Table[n.ID]
		return h.Alloc(&heap.Primitive{Op: heap.PrimID(n.ID), Arity: uint32(entry.Arity)})
	default:
		panic("lower: unknown term kind")
	}
}
