// Package reducer implements call-by-need weak-head normal form
// reduction over the heap arena: an explicit spine-stack trampoline
// rather than recursion per beta-step, so native stack usage is bounded
// by program nesting depth, not by how many applications get reduced.
package reducer

import (
	"log/slog"

	"github.com/eug-vs/lambo/internal/environment"
	"github.com/eug-vs/lambo/internal/errs"
	"github.com/eug-vs/lambo/internal/heap"
	"github.com/eug-vs/lambo/internal/primitive"
)

// Reducer owns the heap and environment arenas for one evaluation run and
// satisfies primitive.Engine so handlers can call back into it.
type Reducer struct {
	h   *heap.Heap
	env *environment.Env

	nextCtorTag uint32
}

// New returns a Reducer over h and env. User-minted constructor tags
// start at primitive.FirstUserTag so they never collide with the
// reserved IO tags.
func New(h *heap.Heap, env *environment.Env) *Reducer {
	return &Reducer{h: h, env: env, nextCtorTag: primitive.FirstUserTag}
}

func (r *Reducer) Heap() *heap.Heap         { return r.h }
func (r *Reducer) Environment() *environment.Env { return r.env }

// FreshCtorTag mints a tag for a new #constructor invocation.
func (r *Reducer) FreshCtorTag() uint32 {
	tag := r.nextCtorTag
	r.nextCtorTag++
	return tag
}

// Whnf reduces root under env to weak-head normal form: a Num, Bytes,
// Closure, curried (not-yet-saturated) Data or Primitive, or a fully
// applied Data value. It never reduces under a lambda binder.
func (r *Reducer) Whnf(root heap.NodeId, env heap.EnvId) (heap.NodeId, error) {
	var spine []heap.NodeId
	focus := root
	focusEnv := env

	for {
		switch n := r.h.Get(focus).(type) {

		case heap.Var:
			target, err := r.env.Lookup(focusEnv, n.Depth)
			if err != nil {
				return 0, err
			}
			focus = target
			focusEnv = heap.EmptyEnv

		case heap.App:
			argThunk := r.h.Alloc(&heap.Thunk{Body: n.Arg, Env: focusEnv, State: heap.Unevaluated})
			spine = append(spine, argThunk)
			focus = n.Fun

		case heap.Lambda:
			if len(spine) == 0 {
				return r.h.Alloc(heap.Closure{Body: n.Body, Env: focusEnv}), nil
			}
			arg := spine[len(spine)-1]
			spine = spine[:len(spine)-1]
			focusEnv = r.env.Extend(focusEnv, arg)
			focus = n.Body

		case heap.Closure:
			if len(spine) == 0 {
				return focus, nil
			}
			arg := spine[len(spine)-1]
			spine = spine[:len(spine)-1]
			focusEnv = r.env.Extend(n.Env, arg)
			focus = n.Body

		case *heap.Thunk:
			switch n.State {
			case heap.Evaluated:
				focus = n.Result
				focusEnv = heap.EmptyEnv
			case heap.InProgress:
				slog.Warn("black hole", slog.Any("node", focus))
				return 0, errs.New(errs.InfiniteLoop, "self-referential thunk forced before it finished evaluating")
			case heap.Unevaluated:
				slog.Debug("forcing thunk", slog.Any("node", focus))
				n.State = heap.InProgress
				result, err := r.Whnf(n.Body, n.Env)
				if err != nil {
					return 0, err
				}
				n.State = heap.Evaluated
				n.Result = result
				focus = result
				focusEnv = heap.EmptyEnv
			}

		case heap.Num:
			if len(spine) != 0 {
				return 0, errs.New(errs.NotCallable, "a number is not callable")
			}
			return focus, nil

		case heap.Bytes:
			if len(spine) != 0 {
				return 0, errs.New(errs.NotCallable, "a byte string is not callable")
			}
			return focus, nil

		case heap.Opaque:
			if len(spine) != 0 {
				return 0, errs.New(errs.NotCallable, "a free variable placeholder is not callable")
			}
			return focus, nil

		case *heap.Data:
			if n.Filled == n.Arity {
				if len(spine) != 0 {
					return 0, errs.New(errs.NotCallable, "value is fully applied and cannot take more arguments")
				}
				return focus, nil
			}
			if len(spine) == 0 {
				return focus, nil
			}
			arg := spine[len(spine)-1]
			spine = spine[:len(spine)-1]
			slots := append(append([]heap.NodeId{}, n.Slots...), arg)
			focus = r.h.Alloc(&heap.Data{CtorTag: n.CtorTag, Arity: n.Arity, Filled: n.Filled + 1, Slots: slots})

		case *heap.Primitive:
			if n.Filled == n.Arity {
				if len(spine) != 0 {
					return 0, errs.New(errs.NotCallable, "primitive is fully applied and cannot take more arguments")
				}
				result, err := r.invoke(n.Op, n.Slots)
				if err != nil {
					return 0, err
				}
				focus = result
				focusEnv = heap.EmptyEnv
				continue
			}
			if len(spine) == 0 {
				return focus, nil
			}
			arg := spine[len(spine)-1]
			spine = spine[:len(spine)-1]
			slots := append(append([]heap.NodeId{}, n.Slots...), arg)
			filled := n.Filled + 1
			if filled == n.Arity {
				result, err := r.invoke(n.Op, slots)
				if err != nil {
					return 0, err
				}
				focus = result
				focusEnv = heap.EmptyEnv
				continue
			}
			focus = r.h.Alloc(&heap.Primitive{Op: n.Op, Arity: n.Arity, Filled: filled, Slots: slots})

		default:
			return 0, errs.New(errs.TypeMismatch, "unexpected node kind during reduction")
		}
	}
}

func (r *Reducer) invoke(op heap.PrimID, slots []heap.NodeId) (heap.NodeId, error) {
	entry := primitive.Table[primitive.ID(op)]
	slog.Debug("invoking primitive", slog.Any("prim", entry.Name), slog.Int("arity", entry.Arity))
	forced := make([]heap.NodeId, len(slots))
	for i, s := range slots {
		if entry.Modes[i] == primitive.Whnf {
			v, err := r.Whnf(s, heap.EmptyEnv)
			if err != nil {
				return 0, err
			}
			forced[i] = v
		} else {
			forced[i] = s
		}
	}
	return entry.Handler(r, forced)
}

// ForceDeep fully normalizes root, including under Closures, which Whnf
// never does. It is used only by the printer for debug output and must
// never be invoked during driven IO.
func (r *Reducer) ForceDeep(root heap.NodeId) (heap.NodeId, error) {
	return r.forceDeepEnv(root, heap.EmptyEnv)
}

// forceDeepEnv forces id under env, then recurses into whatever
// structure the result contains. Data slots are already self-contained
// Thunks (they carry their own captured environment from when the App
// spine built them), so they recurse with EmptyEnv; a Closure's Body is
// not self-contained, so descending under it requires extending its own
// captured environment with a fresh Opaque placeholder standing in for
// the bound variable, a substitution that has no meaning to anything
// other than rendering.
func (r *Reducer) forceDeepEnv(id heap.NodeId, env heap.EnvId) (heap.NodeId, error) {
	v, err := r.Whnf(id, env)
	if err != nil {
		return 0, err
	}
	switch n := r.h.Get(v).(type) {
	case *heap.Data:
		slots := make([]heap.NodeId, len(n.Slots))
		for i, s := range n.Slots {
			forced, err := r.forceDeepEnv(s, heap.EmptyEnv)
			if err != nil {
				return 0, err
			}
			slots[i] = forced
		}
		return r.h.Alloc(&heap.Data{CtorTag: n.CtorTag, Arity: n.Arity, Filled: n.Filled, Slots: slots}), nil
	case heap.Closure:
		placeholder := r.h.Alloc(heap.Opaque{Label: uint32(v)})
		bodyEnv := r.env.Extend(n.Env, placeholder)
		bodyDeep, err := r.forceDeepEnv(n.Body, bodyEnv)
		if err != nil {
			return 0, err
		}
		return r.h.Alloc(heap.Closure{Body: bodyDeep, Env: bodyEnv}), nil
	default:
		return v, nil
	}
}
