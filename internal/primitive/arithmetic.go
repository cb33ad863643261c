package primitive

import (
	"github.com/eug-vs/lambo/internal/errs"
	"github.com/eug-vs/lambo/internal/heap"
)

func asNum(eng Engine, id heap.NodeId, who string) (heap.Num, error) {
	n, ok := eng.Heap().Get(id).(heap.Num)
	if !ok {
		return heap.Num{}, errs.New(errs.TypeMismatch, "%s expects a number argument", who)
	}
	return n, nil
}

// handleAdd implements wraparound unsigned addition. Operand order is
// irrelevant: addition is commutative.
func handleAdd(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	a, err := asNum(eng, args[0], "+")
	if err != nil {
		return 0, err
	}
	b, err := asNum(eng, args[1], "+")
	if err != nil {
		return 0, err
	}
	return eng.Heap().Alloc(heap.Num{Value: a.Value + b.Value}), nil
}

// handleSub implements saturating subtraction following the point-free
// convention used throughout the comparison/arithmetic primitives: the
// first argument is the operand being subtracted, the second is the
// value it is subtracted from, so that "- 3" partially applied reads as
// "subtract 3 from" and composes naturally with the pipe operator
// (`value | - 3`).
func handleSub(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	operand, err := asNum(eng, args[0], "-")
	if err != nil {
		return 0, err
	}
	value, err := asNum(eng, args[1], "-")
	if err != nil {
		return 0, err
	}
	if value.Value < operand.Value {
		return eng.Heap().Alloc(heap.Num{Value: 0}), nil
	}
	return eng.Heap().Alloc(heap.Num{Value: value.Value - operand.Value}), nil
}

func handleMul(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	a, err := asNum(eng, args[0], "*")
	if err != nil {
		return 0, err
	}
	b, err := asNum(eng, args[1], "*")
	if err != nil {
		return 0, err
	}
	return eng.Heap().Alloc(heap.Num{Value: a.Value * b.Value}), nil
}

// handleDiv divides the second argument (the value) by the first (the
// divisor), matching handleSub's point-free convention.
func handleDiv(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	divisor, err := asNum(eng, args[0], "/")
	if err != nil {
		return 0, err
	}
	value, err := asNum(eng, args[1], "/")
	if err != nil {
		return 0, err
	}
	if divisor.Value == 0 {
		return 0, errs.New(errs.DivByZero, "division by zero")
	}
	return eng.Heap().Alloc(heap.Num{Value: value.Value / divisor.Value}), nil
}

func handleModulo(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	modulus, err := asNum(eng, args[0], "modulo")
	if err != nil {
		return 0, err
	}
	value, err := asNum(eng, args[1], "modulo")
	if err != nil {
		return 0, err
	}
	if modulus.Value == 0 {
		return 0, errs.New(errs.DivByZero, "modulo by zero")
	}
	return eng.Heap().Alloc(heap.Num{Value: value.Value % modulus.Value}), nil
}

func handleEqNum(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	a, err := asNum(eng, args[0], "=num")
	if err != nil {
		return 0, err
	}
	b, err := asNum(eng, args[1], "=num")
	if err != nil {
		return 0, err
	}
	return ChurchBool(eng.Heap(), a.Value == b.Value), nil
}
