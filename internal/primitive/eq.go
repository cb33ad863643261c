package primitive

import (
	"bytes"

	"github.com/eug-vs/lambo/internal/errs"
	"github.com/eug-vs/lambo/internal/heap"
)

// handleEq implements #eq, a deep structural/beta-equivalence comparison.
// It is declared partial: comparing two functions (Closures, unfilled
// Lambdas or Primitives) is not defined and fails with TypeMismatch
// rather than silently answering false. Data values compare equal when
// their constructor tags match and every slot is recursively equal;
// since tags are fresh per #constructor invocation, values built from two
// different invocations of "the same" constructor are never equal.
func handleEq(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	eq, err := deepEqual(eng, args[0], args[1])
	if err != nil {
		return 0, err
	}
	return ChurchBool(eng.Heap(), eq), nil
}

func deepEqual(eng Engine, a, b heap.NodeId) (bool, error) {
	av, err := eng.Whnf(a, heap.EmptyEnv)
	if err != nil {
		return false, err
	}
	bv, err := eng.Whnf(b, heap.EmptyEnv)
	if err != nil {
		return false, err
	}

	an := eng.Heap().Get(av)
	bn := eng.Heap().Get(bv)

	switch x := an.(type) {
	case heap.Num:
		y, ok := bn.(heap.Num)
		return ok && x.Value == y.Value, nil
	case heap.Bytes:
		y, ok := bn.(heap.Bytes)
		return ok && bytes.Equal(x.Buf.Data, y.Buf.Data), nil
	case *heap.Data:
		y, ok := bn.(*heap.Data)
		if !ok {
			return false, nil
		}
		if x.CtorTag != y.CtorTag || x.Filled != y.Filled || x.Arity != y.Arity {
			return false, nil
		}
		for i := range x.Slots {
			eq, err := deepEqual(eng, x.Slots[i], y.Slots[i])
			if err != nil || !eq {
				return false, err
			}
		}
		return true, nil
	default:
		return false, errs.New(errs.TypeMismatch, "#eq is undefined for function values")
	}
}
