// Package environment implements the persistent, shareable environment
// arena that the reducer resolves de Bruijn Var nodes against. It is a
// linked list of frames addressed by heap.EnvId rather than a name-keyed
// map, so extending an environment never copies or mutates an existing
// one: closures captured earlier keep seeing exactly what they captured.
package environment

import (
	"github.com/eug-vs/lambo/internal/errs"
	"github.com/eug-vs/lambo/internal/heap"
)

type frame struct {
	Value  heap.NodeId
	Parent heap.EnvId
}

// Env is the frame arena. The spec only calls for garbage collection of
// the node heap, not of the environment, so frames live for the lifetime
// of the process and Extend never reclaims anything.
type Env struct {
	frames []frame
}

// New returns an empty frame arena.
func New() *Env {
	return &Env{}
}

// Empty is the environment with no bindings; looking up any depth in it
// fails with UnboundVariable.
func Empty() heap.EnvId {
	return heap.EmptyEnv
}

// Extend allocates a new frame binding value on top of parent and returns
// its id.
func (e *Env) Extend(parent heap.EnvId, value heap.NodeId) heap.EnvId {
	e.frames = append(e.frames, frame{Value: value, Parent: parent})
	return heap.EnvId(len(e.frames) - 1)
}

// Lookup walks depth-1 parents starting at env and returns the bound
// value at that frame. depth counts from 1 (innermost binder); depth 0 is
// a caller error, not a valid de Bruijn index.
func (e *Env) Lookup(env heap.EnvId, depth uint32) (heap.NodeId, error) {
	if depth == 0 {
		return 0, errs.New(errs.UnboundVariable, "variable depth must be at least 1, got 0")
	}
	cur := env
	for i := uint32(1); i < depth; i++ {
		if cur == heap.EmptyEnv {
			return 0, errs.New(errs.UnboundVariable, "unbound variable at depth %d", depth)
		}
		cur = e.frames[cur].Parent
	}
	if cur == heap.EmptyEnv {
		return 0, errs.New(errs.UnboundVariable, "unbound variable at depth %d", depth)
	}
	return e.frames[cur].Value, nil
}

// LiveNodeIds returns the heap node id bound in every frame ever
// allocated. It is a conservative over-approximation used to root the
// heap's GC: frames are never individually freed, so every value a frame
// has ever pointed at must be treated as reachable.
func (e *Env) LiveNodeIds() []heap.NodeId {
	ids := make([]heap.NodeId, len(e.frames))
	for i, f := range e.frames {
		ids[i] = f.Value
	}
	return ids
}
