// Package iodriver runs the IO monad a Lambo program's whnf produces: a
// trampolined loop over reserved IO-tagged Data values, handling Pure,
// Print, Read, Putchar, Throw and Flatmap for the core language, plus
// the host facilities (database, password hashing, JWT, websockets,
// outbound mail) SPEC_FULL adds on top. Flatmap is handled by pushing the
// pending transform onto an explicit stack rather than recursing, so a
// long chain of binds never grows the native call stack.
package iodriver

import (
	"bufio"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/eug-vs/lambo/internal/errs"
	"github.com/eug-vs/lambo/internal/heap"
	"github.com/eug-vs/lambo/internal/hostio/auth"
	"github.com/eug-vs/lambo/internal/hostio/db"
	"github.com/eug-vs/lambo/internal/hostio/mail"
	"github.com/eug-vs/lambo/internal/hostio/ws"
	"github.com/eug-vs/lambo/internal/primitive"
	"github.com/eug-vs/lambo/internal/printer"
	"github.com/eug-vs/lambo/internal/reducer"
)

// HostConfig carries settings the language itself never has access to,
// such as SMTP credentials, so a Lambo program cannot exfiltrate secrets
// it was never handed as an argument.
type HostConfig struct {
	SMTPHost string
	SMTPPort int
	SMTPUser string
	SMTPPass string
	SMTPFrom string

	// Timeout bounds every database dial/query/exec and every websocket
	// dial/recv; zero means unbounded.
	Timeout time.Duration
}

// Driver owns one evaluation run's IO surface: the reducer it drives
// against, the program's stdin/stdout, and the host facility managers.
type Driver struct {
	Reducer *reducer.Reducer
	Stdin   io.Reader
	Stdout  io.Writer
	Config  HostConfig

	stdinReader *bufio.Reader
	db          *db.Manager
	ws          *ws.Manager

	gcEvery int
	steps   int
}

// New returns a Driver ready to run against r.
func New(r *reducer.Reducer, stdin io.Reader, stdout io.Writer, cfg HostConfig) *Driver {
	return &Driver{
		Reducer: r,
		Stdin:   stdin,
		Stdout:  stdout,
		Config:  cfg,
		db:      db.NewManagerWithTimeout(cfg.Timeout),
		ws:      ws.NewManagerWithTimeout(cfg.Timeout),
		gcEvery: 256,
	}
}

func (d *Driver) stdin() *bufio.Reader {
	if d.stdinReader == nil {
		d.stdinReader = bufio.NewReader(d.Stdin)
	}
	return d.stdinReader
}

// Drive reduces root to whnf and, as long as it names a reserved IO
// action, runs it and folds any pending #io_flatmap continuations,
// returning the final non-IO value (or the value #io_pure wrapped, if
// nothing else consumed it).
func (d *Driver) Drive(root heap.NodeId) (heap.NodeId, error) {
	var conts []heap.NodeId
	current := root

	for {
		v, err := d.Reducer.Whnf(current, heap.EmptyEnv)
		if err != nil {
			return 0, err
		}
		data, ok := d.Reducer.Heap().Get(v).(*heap.Data)
		if !ok || !primitive.IsIOTag(data.CtorTag) {
			return v, nil
		}

		if data.CtorTag == primitive.TagFlatmap {
			conts = append(conts, data.Slots[0])
			current = data.Slots[1]
			d.maybeGC(append(conts, current))
			continue
		}

		result, err := d.runEffect(data)
		if err != nil {
			return 0, err
		}

		if len(conts) == 0 {
			return result, nil
		}
		transform := conts[len(conts)-1]
		conts = conts[:len(conts)-1]
		current = d.Reducer.Heap().Alloc(heap.App{Fun: transform, Arg: result})
	}
}

func (d *Driver) maybeGC(roots []heap.NodeId) {
	d.steps++
	if d.steps%d.gcEvery != 0 {
		return
	}
	all := append(append([]heap.NodeId{}, roots...), d.Reducer.Environment().LiveNodeIds()...)
	d.Reducer.Heap().GC(all)
}

func (d *Driver) force(id heap.NodeId) (heap.NodeId, error) {
	return d.Reducer.Whnf(id, heap.EmptyEnv)
}

func (d *Driver) forceBytes(id heap.NodeId) ([]byte, error) {
	v, err := d.force(id)
	if err != nil {
		return nil, err
	}
	b, ok := d.Reducer.Heap().Get(v).(heap.Bytes)
	if !ok {
		return nil, errs.New(errs.TypeMismatch, "expected a bytes value")
	}
	return b.Buf.Data, nil
}

func (d *Driver) forceString(id heap.NodeId) (string, error) {
	b, err := d.forceBytes(id)
	if err != nil {
		return "", err
	}
	return string(b), nil
}

func (d *Driver) forceNum(id heap.NodeId) (uint64, error) {
	v, err := d.force(id)
	if err != nil {
		return 0, err
	}
	n, ok := d.Reducer.Heap().Get(v).(heap.Num)
	if !ok {
		return 0, errs.New(errs.TypeMismatch, "expected a number value")
	}
	return n.Value, nil
}

func (d *Driver) bytesOf(s string) heap.NodeId {
	return d.Reducer.Heap().Alloc(heap.Bytes{Buf: &heap.ByteBuffer{Data: []byte(s)}})
}

func (d *Driver) numOf(n uint64) heap.NodeId {
	return d.Reducer.Heap().Alloc(heap.Num{Value: n})
}

func (d *Driver) unit() heap.NodeId {
	return primitive.NewNil(d.Reducer.Heap())
}

// runEffect performs one reserved IO action (everything except Flatmap,
// which Drive handles itself) and returns the value it produces.
func (d *Driver) runEffect(data *heap.Data) (heap.NodeId, error) {
	slog.Debug("running IO action", slog.Any("tag", data.CtorTag))
	result, err := d.dispatch(data)
	if err != nil {
		slog.Error("IO action failed", slog.Any("tag", data.CtorTag), slog.Any("error", err))
	}
	return result, err
}

func (d *Driver) dispatch(data *heap.Data) (heap.NodeId, error) {
	h := d.Reducer.Heap()
	switch data.CtorTag {

	case primitive.TagPure:
		return d.force(data.Slots[0])

	case primitive.TagPrint:
		payload, err := d.forceBytes(data.Slots[0])
		if err != nil {
			return 0, err
		}
		if _, err := d.Stdout.Write(payload); err != nil {
			return 0, errs.Wrap(errs.IoError, err, "writing to stdout")
		}
		return d.force(data.Slots[0])

	case primitive.TagPutchar:
		n, err := d.forceNum(data.Slots[0])
		if err != nil {
			return 0, err
		}
		if _, err := d.Stdout.Write([]byte{byte(n)}); err != nil {
			return 0, errs.Wrap(errs.IoError, err, "writing to stdout")
		}
		return d.force(data.Slots[0])

	case primitive.TagRead:
		line, err := d.stdin().ReadString('\n')
		if err != nil && err != io.EOF {
			return 0, errs.Wrap(errs.IoError, err, "reading from stdin")
		}
		line = strings.TrimRight(line, "\n")
		return d.bytesOf(line), nil

	case primitive.TagThrow:
		v, err := d.force(data.Slots[0])
		if err != nil {
			return 0, err
		}
		rendered := printer.Render(d.Reducer, v)
		return 0, errs.Throw(int32(v), rendered)

	case primitive.TagDbOpen:
		return d.runDbOpen(h, data)
	case primitive.TagDbQuery:
		return d.runDbQuery(h, data)
	case primitive.TagDbExec:
		return d.runDbExec(h, data)
	case primitive.TagHashPassword:
		return d.runHashPassword(data)
	case primitive.TagVerifyPassword:
		return d.runVerifyPassword(data)
	case primitive.TagJwtSign:
		return d.runJwtSign(h, data)
	case primitive.TagJwtVerify:
		return d.runJwtVerify(h, data)
	case primitive.TagWsDial:
		return d.runWsDial(data)
	case primitive.TagWsSend:
		return d.runWsSend(data)
	case primitive.TagWsRecv:
		return d.runWsRecv(data)
	case primitive.TagWsClose:
		return d.runWsClose(data)
	case primitive.TagSendMail:
		return d.runSendMail(data)

	default:
		return 0, errs.New(errs.TypeMismatch, "unknown IO action tag %d", data.CtorTag)
	}
}

func (d *Driver) runDbOpen(h *heap.Heap, data *heap.Data) (heap.NodeId, error) {
	dsn, err := d.forceString(data.Slots[0])
	if err != nil {
		return 0, err
	}
	driver, err := d.forceString(data.Slots[1])
	if err != nil {
		return 0, err
	}
	handle, err := d.db.Open(driver, dsn)
	if err != nil {
		return 0, errs.Wrap(errs.IoError, err, "opening database connection")
	}
	return d.numOf(uint64(handle)), nil
}

func (d *Driver) runDbQuery(h *heap.Heap, data *heap.Data) (heap.NodeId, error) {
	handle, err := d.forceNum(data.Slots[0])
	if err != nil {
		return 0, err
	}
	query, err := d.forceString(data.Slots[1])
	if err != nil {
		return 0, err
	}
	cols, rows, err := d.db.Query(int64(handle), query)
	if err != nil {
		return 0, errs.Wrap(errs.IoError, err, "running database query")
	}
	result := primitive.NewNil(h)
	for i := len(rows) - 1; i >= 0; i-- {
		row := primitive.NewNil(h)
		for j := len(cols) - 1; j >= 0; j-- {
			cell := primitive.NewPair(h, d.bytesOf(cols[j]), d.bytesOf(formatCell(rows[i][j])))
			row = primitive.NewCons(h, cell, row)
		}
		result = primitive.NewCons(h, row, result)
	}
	return result, nil
}

func formatCell(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case []byte:
		return string(x)
	default:
		return fmt.Sprintf("%v", x)
	}
}

func (d *Driver) runDbExec(h *heap.Heap, data *heap.Data) (heap.NodeId, error) {
	handle, err := d.forceNum(data.Slots[0])
	if err != nil {
		return 0, err
	}
	stmt, err := d.forceString(data.Slots[1])
	if err != nil {
		return 0, err
	}
	affected, err := d.db.Exec(int64(handle), stmt)
	if err != nil {
		return 0, errs.Wrap(errs.IoError, err, "running database statement")
	}
	return d.numOf(uint64(affected)), nil
}

func (d *Driver) runHashPassword(data *heap.Data) (heap.NodeId, error) {
	plaintext, err := d.forceBytes(data.Slots[0])
	if err != nil {
		return 0, err
	}
	hash, err := auth.HashPassword(plaintext)
	if err != nil {
		return 0, errs.Wrap(errs.IoError, err, "hashing password")
	}
	return d.bytesOf(string(hash)), nil
}

func (d *Driver) runVerifyPassword(data *heap.Data) (heap.NodeId, error) {
	hash, err := d.forceBytes(data.Slots[0])
	if err != nil {
		return 0, err
	}
	plaintext, err := d.forceBytes(data.Slots[1])
	if err != nil {
		return 0, err
	}
	return primitive.ChurchBool(d.Reducer.Heap(), auth.VerifyPassword(hash, plaintext)), nil
}

// claimsFromList reads a TagCons/TagPair chain (the shape NewCons/NewPair
// build) into a Go map, forcing every key/value along the way.
func (d *Driver) claimsFromList(id heap.NodeId) (map[string]string, error) {
	claims := map[string]string{}
	cur := id
	for {
		v, err := d.force(cur)
		if err != nil {
			return nil, err
		}
		node, ok := d.Reducer.Heap().Get(v).(*heap.Data)
		if !ok {
			return nil, errs.New(errs.TypeMismatch, "expected a claim list")
		}
		if node.CtorTag == primitive.TagNil {
			return claims, nil
		}
		if node.CtorTag != primitive.TagCons {
			return nil, errs.New(errs.TypeMismatch, "expected a claim list")
		}
		pairID, err := d.force(node.Slots[0])
		if err != nil {
			return nil, err
		}
		pair, ok := d.Reducer.Heap().Get(pairID).(*heap.Data)
		if !ok || pair.CtorTag != primitive.TagPair {
			return nil, errs.New(errs.TypeMismatch, "expected a key/value pair")
		}
		key, err := d.forceString(pair.Slots[0])
		if err != nil {
			return nil, err
		}
		value, err := d.forceString(pair.Slots[1])
		if err != nil {
			return nil, err
		}
		claims[key] = value
		cur = node.Slots[1]
	}
}

func (d *Driver) claimsToList(h *heap.Heap, claims map[string]string) heap.NodeId {
	result := primitive.NewNil(h)
	for k, v := range claims {
		pair := primitive.NewPair(h, d.bytesOf(k), d.bytesOf(v))
		result = primitive.NewCons(h, pair, result)
	}
	return result
}

func (d *Driver) runJwtSign(h *heap.Heap, data *heap.Data) (heap.NodeId, error) {
	claims, err := d.claimsFromList(data.Slots[0])
	if err != nil {
		return 0, err
	}
	secret, err := d.forceBytes(data.Slots[1])
	if err != nil {
		return 0, err
	}
	ttl, err := d.forceNum(data.Slots[2])
	if err != nil {
		return 0, err
	}
	token, err := auth.SignJWT(claims, secret, int64(ttl))
	if err != nil {
		return 0, errs.Wrap(errs.IoError, err, "signing JWT")
	}
	return d.bytesOf(token), nil
}

// runJwtVerify reports a bad signature or expired token as None rather
// than a fatal IoError: verification failure is an expected outcome a
// Lambo program should be able to match on and recover from, not a
// reason to abort the whole evaluation. A malformed argument (not even a
// string/bytes value) still surfaces as a TypeMismatch from forceString/
// forceBytes, since that is a programming error rather than a runtime
// fact about the token.
func (d *Driver) runJwtVerify(h *heap.Heap, data *heap.Data) (heap.NodeId, error) {
	token, err := d.forceString(data.Slots[0])
	if err != nil {
		return 0, err
	}
	secret, err := d.forceBytes(data.Slots[1])
	if err != nil {
		return 0, err
	}
	claims, err := auth.VerifyJWT(token, secret)
	if err != nil {
		slog.Warn("JWT verification failed", slog.Any("error", err))
		return primitive.NewNone(h), nil
	}
	return primitive.NewSome(h, d.claimsToList(h, claims)), nil
}

func (d *Driver) runWsDial(data *heap.Data) (heap.NodeId, error) {
	url, err := d.forceString(data.Slots[0])
	if err != nil {
		return 0, err
	}
	handle, err := d.ws.Dial(url)
	if err != nil {
		return 0, errs.Wrap(errs.IoError, err, "dialing websocket")
	}
	return d.numOf(uint64(handle)), nil
}

func (d *Driver) runWsSend(data *heap.Data) (heap.NodeId, error) {
	handle, err := d.forceNum(data.Slots[0])
	if err != nil {
		return 0, err
	}
	payload, err := d.forceBytes(data.Slots[1])
	if err != nil {
		return 0, err
	}
	if err := d.ws.Send(int64(handle), payload); err != nil {
		return 0, errs.Wrap(errs.IoError, err, "sending websocket message")
	}
	return d.unit(), nil
}

func (d *Driver) runWsRecv(data *heap.Data) (heap.NodeId, error) {
	handle, err := d.forceNum(data.Slots[0])
	if err != nil {
		return 0, err
	}
	payload, err := d.ws.Recv(int64(handle))
	if err != nil {
		return 0, errs.Wrap(errs.IoError, err, "receiving websocket message")
	}
	return d.bytesOf(string(payload)), nil
}

func (d *Driver) runWsClose(data *heap.Data) (heap.NodeId, error) {
	handle, err := d.forceNum(data.Slots[0])
	if err != nil {
		return 0, err
	}
	if err := d.ws.Close(int64(handle)); err != nil {
		return 0, errs.Wrap(errs.IoError, err, "closing websocket")
	}
	return d.unit(), nil
}

// runSendMail forces envelope to a 5-slot Data holding from, to, subject,
// body and html (its constructor tag is not checked), and reports
// success as the Church boolean rather than a fatal
// IoError: a failed delivery is ordinary program data, not a reason to
// abort the whole evaluation.
func (d *Driver) runSendMail(data *heap.Data) (heap.NodeId, error) {
	envelope, err := d.force(data.Slots[0])
	if err != nil {
		return 0, err
	}
	env, ok := d.Reducer.Heap().Get(envelope).(*heap.Data)
	if !ok || len(env.Slots) != 5 {
		return 0, errs.New(errs.TypeMismatch, "expected a 5-field mail envelope")
	}
	from, err := d.forceString(env.Slots[0])
	if err != nil {
		return 0, err
	}
	to, err := d.forceString(env.Slots[1])
	if err != nil {
		return 0, err
	}
	subject, err := d.forceString(env.Slots[2])
	if err != nil {
		return 0, err
	}
	body, err := d.forceString(env.Slots[3])
	if err != nil {
		return 0, err
	}
	html, err := d.forceString(env.Slots[4])
	if err != nil {
		return 0, err
	}
	err = mail.Send(
		mail.SMTPConfig{Host: d.Config.SMTPHost, Port: d.Config.SMTPPort, User: d.Config.SMTPUser, Pass: d.Config.SMTPPass},
		mail.Envelope{From: from, To: to, Subject: subject, Body: body, HTML: html},
	)
	if err != nil {
		slog.Warn("sending mail failed", slog.Any("error", err))
	}
	return primitive.ChurchBool(d.Reducer.Heap(), err == nil), nil
}
