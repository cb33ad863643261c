package primitive

import (
	"github.com/eug-vs/lambo/internal/errs"
	"github.com/eug-vs/lambo/internal/heap"
)

func asBytes(eng Engine, id heap.NodeId, who string) (heap.Bytes, error) {
	b, ok := eng.Heap().Get(id).(heap.Bytes)
	if !ok {
		return heap.Bytes{}, errs.New(errs.TypeMismatch, "%s expects a bytes argument", who)
	}
	return b, nil
}

// handleBytesNew allocates an empty byte buffer with capacity for the
// requested number of bytes.
func handleBytesNew(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	n, err := asNum(eng, args[0], "#bytes_new")
	if err != nil {
		return 0, err
	}
	buf := &heap.ByteBuffer{Data: make([]byte, 0, n.Value)}
	return eng.Heap().Alloc(heap.Bytes{Buf: buf}), nil
}

// handleBytesGet reads the byte at the given index, following the
// point-free convention: the index (operand) comes first, the bytes
// value comes last.
func handleBytesGet(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	idx, err := asNum(eng, args[0], "#bytes_get")
	if err != nil {
		return 0, err
	}
	b, err := asBytes(eng, args[1], "#bytes_get")
	if err != nil {
		return 0, err
	}
	if idx.Value >= uint64(len(b.Buf.Data)) {
		return 0, errs.New(errs.IndexOutOfBounds, "#bytes_get index %d out of bounds for length %d", idx.Value, len(b.Buf.Data))
	}
	return eng.Heap().Alloc(heap.Num{Value: uint64(b.Buf.Data[idx.Value])}), nil
}

// handleBytesPush appends a single byte, mutating the buffer in place
// when TryTakeUnique grants it and copying otherwise; either way the
// result is observably a fresh, longer Bytes value.
func handleBytesPush(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	b, err := asBytes(eng, args[0], "#bytes_push")
	if err != nil {
		return 0, err
	}
	value, err := asNum(eng, args[1], "#bytes_push")
	if err != nil {
		return 0, err
	}
	if value.Value > 0xff {
		return 0, errs.New(errs.TypeMismatch, "#bytes_push byte value %d out of range", value.Value)
	}
	if eng.Heap().TryTakeUnique(args[0]) {
		b.Buf.Data = append(b.Buf.Data, byte(value.Value))
		return args[0], nil
	}
	data := make([]byte, len(b.Buf.Data)+1)
	copy(data, b.Buf.Data)
	data[len(b.Buf.Data)] = byte(value.Value)
	return eng.Heap().Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: data}}), nil
}
