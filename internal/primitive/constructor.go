package primitive

import (
	"log/slog"

	"github.com/eug-vs/lambo/internal/errs"
	"github.com/eug-vs/lambo/internal/heap"
)

// handleConstructor mints a fresh tag every time it is invoked, even for
// two lexically identical "#constructor N" call sites: the resulting
// Data values are only ever equal to values built from the very same
// runtime invocation.
func handleConstructor(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	n, err := asNum(eng, args[0], "#constructor")
	if err != nil {
		return 0, err
	}
	tag := eng.FreshCtorTag()
	slog.Debug("minted constructor tag", slog.Any("tag", tag), slog.Any("arity", n.Value))
	return eng.Heap().Alloc(&heap.Data{CtorTag: tag, Arity: uint32(n.Value), Filled: 0}), nil
}

// handleMatch compares a candidate constructor against a fully applied
// value. On a tag match it applies transform to the value's slots, one
// at a time, left to right; otherwise it applies fallback to the
// original value. Both transform and fallback arrive unforced (Lazy) and
// are only entered via application, never inspected directly.
//
// The resulting application is returned unevaluated: the reducer's own
// Whnf loop picks focus back up and keeps trampolining, so a chain of
// nested matches (the usual way to recurse over Data constructors)
// costs no extra native stack frame per step.
func handleMatch(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	ctorNode, ok := eng.Heap().Get(args[0]).(*heap.Data)
	if !ok {
		return 0, errs.New(errs.TypeMismatch, "match expects a constructor as its first argument")
	}
	transform := args[1]
	fallback := args[2]
	value := args[3]

	valueNode, ok := eng.Heap().Get(value).(*heap.Data)
	if !ok {
		slog.Debug("match fallback on a non-constructed value", slog.Any("want", ctorNode.CtorTag))
		return eng.Heap().Alloc(heap.App{Fun: fallback, Arg: value}), nil
	}

	if valueNode.CtorTag == ctorNode.CtorTag && valueNode.Filled == valueNode.Arity {
		slog.Debug("match hit", slog.Any("tag", valueNode.CtorTag))
		appID := transform
		for _, slot := range valueNode.Slots {
			appID = eng.Heap().Alloc(heap.App{Fun: appID, Arg: slot})
		}
		return appID, nil
	}

	slog.Debug("match fallback", slog.Any("want", ctorNode.CtorTag), slog.Any("got", valueNode.CtorTag))
	appID := eng.Heap().Alloc(heap.App{Fun: fallback, Arg: value})
	return appID, nil
}
