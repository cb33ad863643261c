// Package primitive holds the fixed registry of built-in operators: their
// arity, per-argument strictness and handler function. The reducer drives
// argument forcing and dispatch; this package only supplies the table and
// the handlers themselves, so it never needs to import the reducer.
package primitive

import "github.com/eug-vs/lambo/internal/heap"

// ID indexes the primitive table. The same values are aliased as
// heap.PrimID on Primitive nodes so the heap package can store them
// without importing this one.
type ID int

const (
	ConstructorID ID = iota
	MatchID
	AddID
	SubID
	MulID
	DivID
	ModuloID
	EqNumID
	EqID
	BytesNewID
	BytesGetID
	BytesPushID
	IOPureID
	IOPrintID
	IOReadID
	IOPutcharID
	IOFlatmapID
	IOThrowID
	IODbOpenID
	IODbQueryID
	IODbExecID
	IOHashPasswordID
	IOVerifyPasswordID
	IOJwtSignID
	IOJwtVerifyID
	IOWsDialID
	IOWsSendID
	IOWsRecvID
	IOWsCloseID
	IOSendMailID

	numPrimitives
)

// Mode is the strictness annotation on a primitive's argument slot.
type Mode uint8

const (
	// Whnf means the reducer forces this argument to weak-head normal
	// form before the handler runs.
	Whnf Mode = iota
	// Lazy means the handler receives the raw (possibly unforced)
	// NodeId and is responsible for forcing it itself if it needs to.
	Lazy
)

// Engine is the subset of the reducer a primitive handler is allowed to
// call back into. Keeping it as an interface (rather than importing the
// reducer package directly) avoids a primitive<->reducer import cycle:
// the reducer imports this package for Table/Entry/Mode, and satisfies
// Engine structurally.
type Engine interface {
	Heap() *heap.Heap
	Whnf(root heap.NodeId, env heap.EnvId) (heap.NodeId, error)
	ForceDeep(root heap.NodeId) (heap.NodeId, error)
	FreshCtorTag() uint32
}

// Handler implements one primitive's reduction rule once all of its
// arguments have been collected (and, per Modes, forced).
type Handler func(eng Engine, args []heap.NodeId) (heap.NodeId, error)

// Entry describes one row of the primitive table.
type Entry struct {
	Name    string
	Arity   int
	Modes   []Mode
	Handler Handler
}

// Table is indexed by ID. ByName resolves surface-syntax primitive names
// (as the lexer/parser see them, e.g. "#constructor", "+", "=num") back
// to an ID.
var (
	Table  [numPrimitives]Entry
	ByName = map[string]ID{}
)

func register(id ID, name string, modes []Mode, handler Handler) {
	Table[id] = Entry{Name: name, Arity: len(modes), Modes: modes, Handler: handler}
	ByName[name] = id
}

func init() {
	register(ConstructorID, "#constructor", []Mode{Whnf}, handleConstructor)
	register(MatchID, "#match", []Mode{Whnf, Lazy, Lazy, Whnf}, handleMatch)

	register(AddID, "+", []Mode{Whnf, Whnf}, handleAdd)
	register(SubID, "-", []Mode{Whnf, Whnf}, handleSub)
	register(MulID, "*", []Mode{Whnf, Whnf}, handleMul)
	register(DivID, "/", []Mode{Whnf, Whnf}, handleDiv)
	register(ModuloID, "modulo", []Mode{Whnf, Whnf}, handleModulo)
	register(EqNumID, "=num", []Mode{Whnf, Whnf}, handleEqNum)
	register(EqID, "#eq", []Mode{Whnf, Whnf}, handleEq)

	register(BytesNewID, "#bytes_new", []Mode{Whnf}, handleBytesNew)
	register(BytesGetID, "#bytes_get", []Mode{Whnf, Whnf}, handleBytesGet)
	register(BytesPushID, "#bytes_push", []Mode{Whnf, Whnf}, handleBytesPush)

	register(IOPureID, "#io_pure", []Mode{Lazy}, handleIOPure)
	register(IOPrintID, "#io_print", []Mode{Lazy}, handleIOPrint)
	register(IOReadID, "#io_read", nil, handleIORead)
	register(IOPutcharID, "#io_putchar", []Mode{Whnf}, handleIOPutchar)
	register(IOFlatmapID, "#io_flatmap", []Mode{Lazy, Lazy}, handleIOFlatmap)
	register(IOThrowID, "#io_throw", []Mode{Lazy}, handleIOThrow)

	register(IODbOpenID, "#io_db_open", []Mode{Lazy, Lazy}, handleIODbOpen)
	register(IODbQueryID, "#io_db_query", []Mode{Lazy, Lazy}, handleIODbQuery)
	register(IODbExecID, "#io_db_exec", []Mode{Lazy, Lazy}, handleIODbExec)
	register(IOHashPasswordID, "#io_hash_password", []Mode{Lazy}, handleIOHashPassword)
	register(IOVerifyPasswordID, "#io_verify_password", []Mode{Lazy, Lazy}, handleIOVerifyPassword)
	register(IOJwtSignID, "#io_jwt_sign", []Mode{Lazy, Lazy, Lazy}, handleIOJwtSign)
	register(IOJwtVerifyID, "#io_jwt_verify", []Mode{Lazy, Lazy}, handleIOJwtVerify)
	register(IOWsDialID, "#io_ws_dial", []Mode{Lazy}, handleIOWsDial)
	register(IOWsSendID, "#io_ws_send", []Mode{Lazy, Lazy}, handleIOWsSend)
	register(IOWsRecvID, "#io_ws_recv", []Mode{Lazy}, handleIOWsRecv)
	register(IOWsCloseID, "#io_ws_close", []Mode{Lazy}, handleIOWsClose)
	register(IOSendMailID, "#io_send_mail", []Mode{Lazy}, handleIOSendMail)
}
