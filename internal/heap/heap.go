// Package heap implements the node arena that backs the evaluator: every
// term, thunk and value the reducer ever touches lives here as a Node
// addressed by a stable NodeId. Nodes are mutated in place only where the
// evaluator's own algorithm requires it (thunk memoisation, curried
// constructor/primitive fill); everything else is allocate-once.
package heap

// NodeId addresses a Node inside a Heap. It stays valid across GC cycles
// as long as the node remains reachable.
type NodeId int32

// EnvId addresses a frame inside an environment arena (see package
// environment). The heap only stores EnvId values on Closure and Thunk
// nodes; it never interprets them.
type EnvId int32

// EmptyEnv is the root of every environment chain: looking past it always
// means the variable is unbound.
const EmptyEnv EnvId = -1

// Node is implemented by every heap-resident value. The method is
// unexported so only this package can introduce new node kinds.
type Node interface {
	node()
}

// Var is an unresolved de Bruijn reference: Depth counts enclosing
// binders, innermost is 1.
type Var struct{ Depth uint32 }

func (Var) node() {}

// Lambda is a single-argument abstraction; Body is resolved relative to
// whatever environment the Lambda is eventually entered with.
type Lambda struct{ Body NodeId }

func (Lambda) node() {}

// App is an unevaluated application node produced by the parser/lowering
// step; it is never constructed directly by the reducer (the reducer
// works through the spine stack instead), but match and the IO driver do
// build fresh App nodes to apply already-resolved values.
type App struct{ Fun, Arg NodeId }

func (App) node() {}

// Closure pairs a Lambda body with the environment it was reached under.
// It is a value: applying more arguments to it proceeds by entering Body
// with Env extended, never by mutating the Closure itself.
type Closure struct {
	Body NodeId
	Env  EnvId
}

func (Closure) node() {}

// ThunkState tracks where a Thunk is in its forcing lifecycle.
type ThunkState uint8

const (
	Unevaluated ThunkState = iota
	InProgress
	Evaluated
)

// Thunk defers forcing of Body under Env until something demands its
// value, then memoises the WHNF result in Result. State InProgress is the
// black hole used to detect unguarded self-reference.
type Thunk struct {
	Body   NodeId
	Env    EnvId
	State  ThunkState
	Result NodeId
}

func (*Thunk) node() {}

// Num is a u64 with wraparound add and saturating subtract, matching the
// arithmetic primitives.
type Num struct{ Value uint64 }

func (Num) node() {}

// ByteBuffer is the mutable backing store a Bytes node points at. It is
// never shared between two Bytes nodes that are both live and visible to
// the program, so TryTakeUnique never needs to consult a refcount (see
// its doc comment).
type ByteBuffer struct{ Data []byte }

// Bytes is an immutable-from-the-language's-perspective byte string.
type Bytes struct{ Buf *ByteBuffer }

func (Bytes) node() {}

// Data is an algebraic value under construction or already complete.
// CtorTag is unique per #constructor call site invocation (two lexically
// identical calls mint distinct tags). Filled counts how many of Arity
// slots have been supplied; Filled == Arity means it is a value.
type Data struct {
	CtorTag uint32
	Arity   uint32
	Filled  uint32
	Slots   []NodeId
}

func (*Data) node() {}

// PrimID indexes the primitive table (see package primitive). It is
// declared here, not there, so Node can reference it without heap
// importing primitive.
type PrimID int

// Primitive is a curried primitive call under construction. Slots holds
// the arguments supplied so far, in application order.
type Primitive struct {
	Op     PrimID
	Arity  uint32
	Filled uint32
	Slots  []NodeId
}

func (*Primitive) node() {}

// Opaque is a placeholder free variable minted only by Reducer.ForceDeep
// when it descends under a Closure for debug/print output. It never
// appears in a parsed program and is never produced during driven IO.
type Opaque struct{ Label uint32 }

func (Opaque) node() {}

// Heap is an arena of Nodes addressed by NodeId. Alloc/Get/Set are O(1);
// freed slots are recycled by GC.
type Heap struct {
	nodes []Node
	free  []NodeId
}

// New returns an empty heap.
func New() *Heap {
	return &Heap{}
}

// Alloc stores n and returns its id, reusing a freed slot if one is
// available.
func (h *Heap) Alloc(n Node) NodeId {
	if len(h.free) > 0 {
		id := h.free[len(h.free)-1]
		h.free = h.free[:len(h.free)-1]
		h.nodes[id] = n
		return id
	}
	h.nodes = append(h.nodes, n)
	return NodeId(len(h.nodes) - 1)
}

// Get returns the node stored at id.
func (h *Heap) Get(id NodeId) Node {
	return h.nodes[id]
}

// Set overwrites the node stored at id in place.
func (h *Heap) Set(id NodeId, n Node) {
	h.nodes[id] = n
}

// Len reports how many slots the arena has ever allocated, including
// freed ones still counted against its size.
func (h *Heap) Len() int {
	return len(h.nodes)
}

// TryTakeUnique reports whether id's node may be mutated in place instead
// of copied. The spec allows a degenerate implementation that always
// returns false, and that is what this one does: a NodeId can be shared
// by more structural parents than the heap tracks (two Thunks can share
// one Result, two Vars can resolve to the same environment slot), so a
// safe refcount would have to be threaded through every place a NodeId is
// copied. Rather than risk a subtly-wrong "unique" answer corrupting a
// second reader's view of a Bytes buffer, every mutator always falls back
// to allocating a fresh node. Semantics are unaffected either way; only
// in-place append performance is.
func (h *Heap) TryTakeUnique(id NodeId) bool {
	return false
}

// GC performs a mark-sweep collection rooted at roots. Unreachable slots
// are cleared and returned to the free list. Environment frames are not
// traced here: callers are expected to pass every NodeId currently live
// in the environment arena as additional roots (see
// environment.Env.LiveNodeIds), since the heap has no notion of the
// environment's own structure.
func (h *Heap) GC(roots []NodeId) {
	marked := make([]bool, len(h.nodes))
	stack := append([]NodeId(nil), roots...)

	for len(stack) > 0 {
		id := stack[len(stack)-1]
		stack = stack[:len(stack)-1]
		if id < 0 || int(id) >= len(h.nodes) || marked[id] {
			continue
		}
		marked[id] = true
		switch n := h.nodes[id].(type) {
		case Lambda:
			stack = append(stack, n.Body)
		case App:
			stack = append(stack, n.Fun, n.Arg)
		case Closure:
			stack = append(stack, n.Body)
		case *Thunk:
			stack = append(stack, n.Body)
			if n.State == Evaluated {
				stack = append(stack, n.Result)
			}
		case *Data:
			stack = append(stack, n.Slots...)
		case *Primitive:
			stack = append(stack, n.Slots...)
		}
	}

	h.free = h.free[:0]
	for i, m := range marked {
		if !m && h.nodes[i] != nil {
			h.nodes[i] = nil
			h.free = append(h.free, NodeId(i))
		}
	}
}
