package primitive

import "github.com/eug-vs/lambo/internal/heap"

// Reserved constructor tags identify the IO actions the driver knows how
// to run. They are carved out of a low, fixed range so the per-run
// #constructor counter (which mints user tags starting at FirstUserTag)
// can never collide with them.
const (
	TagPure uint32 = iota + 1
	TagPrint
	TagRead
	TagPutchar
	TagFlatmap
	TagThrow
	TagDbOpen
	TagDbQuery
	TagDbExec
	TagHashPassword
	TagVerifyPassword
	TagJwtSign
	TagJwtVerify
	TagWsDial
	TagWsSend
	TagWsRecv
	TagWsClose
	TagSendMail

	ioTagMax = TagSendMail
)

// TagNil, TagCons and TagPair are fixed (not freshly minted) constructor
// tags for the small list/pair vocabulary the host facilities use to
// hand back structured results (DB rows, JWT claims), built by
// NewNil/NewCons/NewPair in listops.go. Because the tag is fixed rather
// than minted per call like #constructor's, every value the driver
// builds this way compares equal under match, which #constructor values
// never do across two different call sites.
const (
	TagNil uint32 = 900 + iota
	TagCons
	TagPair
)

// TagSome and TagNone are fixed tags for the two-constructor convention
// host facilities use to report a recoverable failure (as opposed to the
// fatal IoError a broken connection or malformed argument raises):
// JwtVerify, for instance, yields None on a bad signature rather than
// aborting the whole evaluation, so a Lambo program can match on it.
const (
	TagNone uint32 = 950 + iota
	TagSome
)

// NewSome and NewNone build Some/None values under the fixed TagSome and
// TagNone tags from Go code in the IO driver; they are never exposed as
// primitives themselves. A "some"/"none" pair minted with #constructor
// carries fresh tags of its own, so it never matches these values.
func NewSome(h *heap.Heap, value heap.NodeId) heap.NodeId {
	return h.Alloc(&heap.Data{CtorTag: TagSome, Arity: 1, Filled: 1, Slots: []heap.NodeId{value}})
}

func NewNone(h *heap.Heap) heap.NodeId {
	return h.Alloc(&heap.Data{CtorTag: TagNone, Arity: 0, Filled: 0})
}

// FirstUserTag is the first tag #constructor is allowed to mint.
const FirstUserTag uint32 = 1000

// IsIOTag reports whether tag identifies one of the reserved IO actions
// rather than a user-defined constructor or list/pair value.
func IsIOTag(tag uint32) bool {
	return tag >= TagPure && tag <= ioTagMax
}

func ioValue(eng Engine, tag uint32, slots ...heap.NodeId) heap.NodeId {
	return eng.Heap().Alloc(&heap.Data{CtorTag: tag, Arity: uint32(len(slots)), Filled: uint32(len(slots)), Slots: slots})
}

func handleIOPure(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagPure, args[0]), nil
}

func handleIOPrint(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagPrint, args[0]), nil
}

func handleIORead(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagRead), nil
}

// handleIOPutchar is the one core IO builder that forces its argument at
// construction time rather than at drive time: its single slot is
// declared Whnf in the table, so by the time this handler runs args[0]
// already names a forced Num.
func handleIOPutchar(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagPutchar, args[0]), nil
}

func handleIOFlatmap(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagFlatmap, args[0], args[1]), nil
}

func handleIOThrow(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagThrow, args[0]), nil
}
