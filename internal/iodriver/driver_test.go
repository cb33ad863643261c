package iodriver

import (
	"bytes"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gorilla/websocket"

	"github.com/eug-vs/lambo/internal/environment"
	"github.com/eug-vs/lambo/internal/errs"
	"github.com/eug-vs/lambo/internal/heap"
	"github.com/eug-vs/lambo/internal/lower"
	"github.com/eug-vs/lambo/internal/primitive"
	"github.com/eug-vs/lambo/internal/reducer"
	"github.com/eug-vs/lambo/internal/term"
)

func newDriver(stdin string, stdout *bytes.Buffer) (*heap.Heap, *Driver) {
	h := heap.New()
	r := reducer.New(h, environment.New())
	d := New(r, strings.NewReader(stdin), stdout, HostConfig{})
	return h, d
}

func expectNum(t *testing.T, h *heap.Heap, id heap.NodeId, want uint64) {
	t.Helper()
	n, ok := h.Get(id).(heap.Num)
	if !ok || n.Value != want {
		t.Fatalf("got %#v, want Num{%d}", h.Get(id), want)
	}
}

func TestDriveNonIOValuePassesThroughUnchanged(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})
	id := h.Alloc(heap.Num{Value: 7})
	result, err := d.Drive(id)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNum(t, h, result, 7)
}

func TestDrivePureUnwrapsItsPayload(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})
	expr := term.App{Fun: term.Prim{ID: primitive.IOPureID}, Arg: term.Num{Value: 9}}
	root := lower.Lower(h, expr)

	result, err := d.Drive(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNum(t, h, result, 9)
}

func TestDrivePrintWritesToStdoutAndReturnsPayload(t *testing.T) {
	var out bytes.Buffer
	h, d := newDriver("", &out)
	expr := term.App{Fun: term.Prim{ID: primitive.IOPrintID}, Arg: term.Bytes{Value: []byte("hello")}}
	root := lower.Lower(h, expr)

	result, err := d.Drive(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "hello" {
		t.Fatalf("stdout = %q, want %q", out.String(), "hello")
	}
	b, ok := h.Get(result).(heap.Bytes)
	if !ok || string(b.Buf.Data) != "hello" {
		t.Fatalf("result = %#v, want Bytes{hello}", h.Get(result))
	}
}

func TestDrivePutcharWritesSingleByte(t *testing.T) {
	var out bytes.Buffer
	h, d := newDriver("", &out)
	expr := term.App{Fun: term.Prim{ID: primitive.IOPutcharID}, Arg: term.Num{Value: uint64('A')}}
	root := lower.Lower(h, expr)

	result, err := d.Drive(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if out.String() != "A" {
		t.Fatalf("stdout = %q, want %q", out.String(), "A")
	}
	expectNum(t, h, result, uint64('A'))
}

func TestDriveReadReturnsTrimmedLine(t *testing.T) {
	h, d := newDriver("hello\nworld\n", &bytes.Buffer{})
	root := lower.Lower(h, term.Prim{ID: primitive.IOReadID})

	result, err := d.Drive(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	b, ok := h.Get(result).(heap.Bytes)
	if !ok || string(b.Buf.Data) != "hello" {
		t.Fatalf("result = %#v, want Bytes{hello}", h.Get(result))
	}
}

func TestDriveThrowSurfacesAsUserThrow(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})
	expr := term.App{Fun: term.Prim{ID: primitive.IOThrowID}, Arg: term.Bytes{Value: []byte("boom")}}
	root := lower.Lower(h, expr)

	_, err := d.Drive(root)
	if !errs.Is(err, errs.UserThrowKind) {
		t.Fatalf("expected UserThrowKind, got %v", err)
	}
}

// TestDriveFlatmapChainsContinuationsWithoutRecursing builds
// io_flatmap(λx. io_pure(x + 1), io_pure(5)) and checks that driving it
// runs the inner action first, then feeds its result through the
// continuation, yielding 6.
func TestDriveFlatmapChainsContinuationsWithoutRecursing(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})

	innerPure := term.App{Fun: term.Prim{ID: primitive.IOPureID}, Arg: term.Num{Value: 5}}
	transform := term.Lambda{
		Body: term.App{
			Fun: term.Prim{ID: primitive.IOPureID},
			Arg: term.App{
				Fun: term.App{Fun: term.Prim{ID: primitive.AddID}, Arg: term.Num{Value: 1}},
				Arg: term.Var{Depth: 1},
			},
		},
	}
	flatmap := term.App{
		Fun: term.App{Fun: term.Prim{ID: primitive.IOFlatmapID}, Arg: transform},
		Arg: innerPure,
	}
	root := lower.Lower(h, flatmap)

	result, err := d.Drive(root)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNum(t, h, result, 6)
}

func TestDriveHashAndVerifyPasswordRoundTrip(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})

	hashExpr := term.App{Fun: term.Prim{ID: primitive.IOHashPasswordID}, Arg: term.Bytes{Value: []byte("secret")}}
	hashResult, err := d.Drive(lower.Lower(h, hashExpr))
	if err != nil {
		t.Fatalf("unexpected error hashing: %v", err)
	}

	verifyPrim := h.Alloc(&heap.Primitive{Op: heap.PrimID(primitive.IOVerifyPasswordID), Arity: 2})
	plaintext := h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte("secret")}})
	app1 := h.Alloc(heap.App{Fun: verifyPrim, Arg: hashResult})
	app2 := h.Alloc(heap.App{Fun: app1, Arg: plaintext})

	churchBool, err := d.Drive(app2)
	if err != nil {
		t.Fatalf("unexpected error verifying: %v", err)
	}

	onTrue := h.Alloc(heap.Num{Value: 1})
	onFalse := h.Alloc(heap.Num{Value: 0})
	pick1 := h.Alloc(heap.App{Fun: churchBool, Arg: onTrue})
	pick2 := h.Alloc(heap.App{Fun: pick1, Arg: onFalse})

	picked, err := d.Reducer.Whnf(pick2, heap.EmptyEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNum(t, h, picked, 1)
}

// TestDriveDbOpenExecQueryThroughFullPipeline drives #io_db_open straight
// through to #io_db_query against an in-memory sqlite3 connection, the
// way a real program would: open dsn driver | flatmap (λh. exec h
// "create table..." | flatmap (λ_. query h "select ...")). This is the
// pipeline the dsn/driver slot order bug in runDbOpen would have broken,
// since a swapped dsn/driver pair fails to open at all.
func TestDriveDbOpenExecQueryThroughFullPipeline(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})

	dbOpenExpr := term.App{
		Fun: term.App{Fun: term.Prim{ID: primitive.IODbOpenID}, Arg: term.Bytes{Value: []byte(":memory:")}},
		Arg: term.Bytes{Value: []byte("sqlite3")},
	}

	// Inside the outer λh, handle h sits at depth 1 until the inner λ_
	// (the second flatmap's continuation) adds one more binder, pushing
	// it to depth 2.
	execCreate := term.App{
		Fun: term.App{Fun: term.Prim{ID: primitive.IODbExecID}, Arg: term.Var{Depth: 1}},
		Arg: term.Bytes{Value: []byte("create table t(x int)")},
	}
	query := term.App{
		Fun: term.App{Fun: term.Prim{ID: primitive.IODbQueryID}, Arg: term.Var{Depth: 2}},
		Arg: term.Bytes{Value: []byte("select * from t")},
	}
	innerFlatmap := term.App{
		Fun: term.App{Fun: term.Prim{ID: primitive.IOFlatmapID}, Arg: term.Lambda{Body: query}},
		Arg: execCreate,
	}
	outerFlatmap := term.App{
		Fun: term.App{Fun: term.Prim{ID: primitive.IOFlatmapID}, Arg: term.Lambda{Body: innerFlatmap}},
		Arg: dbOpenExpr,
	}

	result, err := d.Drive(lower.Lower(h, outerFlatmap))
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	row, ok := h.Get(result).(*heap.Data)
	if !ok || row.CtorTag != primitive.TagNil {
		t.Fatalf("expected an empty row list for a freshly created table, got %#v", h.Get(result))
	}
}

// TestDriveDbOpenUsesDsnThenDriverSlotOrder pins down the slot order
// #io_db_open's builder and runDbOpen must agree on: slot 0 is the DSN,
// slot 1 names the driver. Swapping them (as an earlier draft did) hands
// ":memory:" to sql.Open as the driver name and fails to open at all.
func TestDriveDbOpenUsesDsnThenDriverSlotOrder(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})
	dbOpenExpr := term.App{
		Fun: term.App{Fun: term.Prim{ID: primitive.IODbOpenID}, Arg: term.Bytes{Value: []byte(":memory:")}},
		Arg: term.Bytes{Value: []byte("sqlite3")},
	}
	if _, err := d.Drive(lower.Lower(h, dbOpenExpr)); err != nil {
		t.Fatalf("expected sqlite3 to open cleanly with dsn/driver in the documented order, got: %v", err)
	}
}

func buildClaims(h *heap.Heap, pairs map[string]string) heap.NodeId {
	list := primitive.NewNil(h)
	for k, v := range pairs {
		key := h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte(k)}})
		val := h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte(v)}})
		list = primitive.NewCons(h, primitive.NewPair(h, key, val), list)
	}
	return list
}

func signJWT(t *testing.T, h *heap.Heap, d *Driver, claims heap.NodeId, secret []byte, ttl uint64) heap.NodeId {
	t.Helper()
	secretID := h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: secret}})
	ttlID := h.Alloc(heap.Num{Value: ttl})
	signPrim := h.Alloc(&heap.Primitive{Op: heap.PrimID(primitive.IOJwtSignID), Arity: 3})
	app1 := h.Alloc(heap.App{Fun: signPrim, Arg: claims})
	app2 := h.Alloc(heap.App{Fun: app1, Arg: secretID})
	app3 := h.Alloc(heap.App{Fun: app2, Arg: ttlID})
	token, err := d.Drive(app3)
	if err != nil {
		t.Fatalf("unexpected error signing: %v", err)
	}
	return token
}

func TestDriveJwtSignAndVerifyRoundTripYieldsSome(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})
	claims := buildClaims(h, map[string]string{"sub": "123"})
	secret := []byte("top-secret")
	token := signJWT(t, h, d, claims, secret, 3600)

	verifyPrim := h.Alloc(&heap.Primitive{Op: heap.PrimID(primitive.IOJwtVerifyID), Arity: 2})
	secretID := h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: secret}})
	app1 := h.Alloc(heap.App{Fun: verifyPrim, Arg: token})
	app2 := h.Alloc(heap.App{Fun: app1, Arg: secretID})

	result, err := d.Drive(app2)
	if err != nil {
		t.Fatalf("unexpected error verifying: %v", err)
	}
	data, ok := h.Get(result).(*heap.Data)
	if !ok || data.CtorTag != primitive.TagSome {
		t.Fatalf("expected Some for a valid token, got %#v", h.Get(result))
	}
}

func TestDriveJwtVerifyWithWrongSecretYieldsNone(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})
	claims := buildClaims(h, map[string]string{"sub": "123"})
	token := signJWT(t, h, d, claims, []byte("right-secret"), 3600)

	verifyPrim := h.Alloc(&heap.Primitive{Op: heap.PrimID(primitive.IOJwtVerifyID), Arity: 2})
	wrongSecret := h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte("wrong-secret")}})
	app1 := h.Alloc(heap.App{Fun: verifyPrim, Arg: token})
	app2 := h.Alloc(heap.App{Fun: app1, Arg: wrongSecret})

	result, err := d.Drive(app2)
	if err != nil {
		t.Fatalf("unexpected error verifying: %v", err)
	}
	data, ok := h.Get(result).(*heap.Data)
	if !ok || data.CtorTag != primitive.TagNone {
		t.Fatalf("expected None for a bad signature rather than a fatal error, got %#v", h.Get(result))
	}
}

func wsEchoServer(t *testing.T) string {
	t.Helper()
	upgrader := websocket.Upgrader{}
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		conn, err := upgrader.Upgrade(w, r, nil)
		if err != nil {
			return
		}
		defer conn.Close()
		for {
			mt, msg, err := conn.ReadMessage()
			if err != nil {
				return
			}
			if err := conn.WriteMessage(mt, msg); err != nil {
				return
			}
		}
	}))
	t.Cleanup(srv.Close)
	return "ws" + strings.TrimPrefix(srv.URL, "http")
}

func TestDriveWsDialSendRecvCloseRoundTrip(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})
	url := wsEchoServer(t)

	dialPrim := h.Alloc(&heap.Primitive{Op: heap.PrimID(primitive.IOWsDialID), Arity: 1})
	urlID := h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte(url)}})
	dialApp := h.Alloc(heap.App{Fun: dialPrim, Arg: urlID})

	handle, err := d.Drive(dialApp)
	if err != nil {
		t.Fatalf("unexpected error dialing: %v", err)
	}

	sendPrim := h.Alloc(&heap.Primitive{Op: heap.PrimID(primitive.IOWsSendID), Arity: 2})
	payload := h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte("ping")}})
	sendApp1 := h.Alloc(heap.App{Fun: sendPrim, Arg: handle})
	sendApp2 := h.Alloc(heap.App{Fun: sendApp1, Arg: payload})
	if _, err := d.Drive(sendApp2); err != nil {
		t.Fatalf("unexpected error sending: %v", err)
	}

	recvPrim := h.Alloc(&heap.Primitive{Op: heap.PrimID(primitive.IOWsRecvID), Arity: 1})
	recvApp := h.Alloc(heap.App{Fun: recvPrim, Arg: handle})
	received, err := d.Drive(recvApp)
	if err != nil {
		t.Fatalf("unexpected error receiving: %v", err)
	}
	b, ok := h.Get(received).(heap.Bytes)
	if !ok || string(b.Buf.Data) != "ping" {
		t.Fatalf("got %#v, want echoed Bytes{ping}", h.Get(received))
	}

	closePrim := h.Alloc(&heap.Primitive{Op: heap.PrimID(primitive.IOWsCloseID), Arity: 1})
	closeApp := h.Alloc(heap.App{Fun: closePrim, Arg: handle})
	if _, err := d.Drive(closeApp); err != nil {
		t.Fatalf("unexpected error closing: %v", err)
	}
}

// TestDriveSendMailReportsFailureAsChurchFalse drives #io_send_mail
// against an SMTP host nobody is listening on: the driver must report
// the failure as the Church boolean false rather than a fatal IoError,
// since a bounced or unreachable mail server is ordinary program data a
// Lambo script should be able to branch on.
func TestDriveSendMailReportsFailureAsChurchFalse(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})
	d.Config.SMTPHost = "127.0.0.1"
	d.Config.SMTPPort = 1 // nothing listens on port 1

	envelope := h.Alloc(&heap.Data{
		CtorTag: primitive.FirstUserTag,
		Arity:   5,
		Filled:  5,
		Slots: []heap.NodeId{
			h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte("from@example.com")}}),
			h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte("to@example.com")}}),
			h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte("subject")}}),
			h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte("body")}}),
			h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte("")}}),
		},
	})
	sendMailPrim := h.Alloc(&heap.Primitive{Op: heap.PrimID(primitive.IOSendMailID), Arity: 1})
	app := h.Alloc(heap.App{Fun: sendMailPrim, Arg: envelope})

	result, err := d.Drive(app)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	onTrue := h.Alloc(heap.Num{Value: 1})
	onFalse := h.Alloc(heap.Num{Value: 0})
	pick1 := h.Alloc(heap.App{Fun: result, Arg: onTrue})
	pick2 := h.Alloc(heap.App{Fun: pick1, Arg: onFalse})
	picked, err := d.Reducer.Whnf(pick2, heap.EmptyEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNum(t, h, picked, 0)
}

func TestDriveVerifyPasswordRejectsWrongPlaintext(t *testing.T) {
	h, d := newDriver("", &bytes.Buffer{})

	hashExpr := term.App{Fun: term.Prim{ID: primitive.IOHashPasswordID}, Arg: term.Bytes{Value: []byte("secret")}}
	hashResult, err := d.Drive(lower.Lower(h, hashExpr))
	if err != nil {
		t.Fatalf("unexpected error hashing: %v", err)
	}

	verifyPrim := h.Alloc(&heap.Primitive{Op: heap.PrimID(primitive.IOVerifyPasswordID), Arity: 2})
	wrong := h.Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte("not-it")}})
	app1 := h.Alloc(heap.App{Fun: verifyPrim, Arg: hashResult})
	app2 := h.Alloc(heap.App{Fun: app1, Arg: wrong})

	churchBool, err := d.Drive(app2)
	if err != nil {
		t.Fatalf("unexpected error verifying: %v", err)
	}

	onTrue := h.Alloc(heap.Num{Value: 1})
	onFalse := h.Alloc(heap.Num{Value: 0})
	pick1 := h.Alloc(heap.App{Fun: churchBool, Arg: onTrue})
	pick2 := h.Alloc(heap.App{Fun: pick1, Arg: onFalse})

	picked, err := d.Reducer.Whnf(pick2, heap.EmptyEnv)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	expectNum(t, h, picked, 0)
}
