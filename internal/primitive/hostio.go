package primitive

import "github.com/eug-vs/lambo/internal/heap"

// The host-facility IO builders all follow the same shape as the core
// ones in io.go: building the value has no side effect, and every
// argument is Lazy so that, for example, a DB query string built from an
// unevaluated thunk never forces until the driver actually runs it.
// Interpretation of the slots (DSN strings, SQL text, JWT claims, ...) is
// entirely the IO driver's job; this package only tags and stores them.

func handleIODbOpen(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagDbOpen, args[0], args[1]), nil // dsn, driver
}

func handleIODbQuery(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagDbQuery, args[0], args[1]), nil // handle, query
}

func handleIODbExec(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagDbExec, args[0], args[1]), nil // handle, statement
}

func handleIOHashPassword(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagHashPassword, args[0]), nil // plaintext
}

func handleIOVerifyPassword(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagVerifyPassword, args[0], args[1]), nil // hash, plaintext
}

func handleIOJwtSign(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagJwtSign, args[0], args[1], args[2]), nil // claims, secret, ttlSeconds
}

func handleIOJwtVerify(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagJwtVerify, args[0], args[1]), nil // token, secret
}

func handleIOWsDial(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagWsDial, args[0]), nil // url
}

func handleIOWsSend(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagWsSend, args[0], args[1]), nil // handle, payload
}

func handleIOWsRecv(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagWsRecv, args[0]), nil // handle
}

func handleIOWsClose(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagWsClose, args[0]), nil // handle
}

func handleIOSendMail(eng Engine, args []heap.NodeId) (heap.NodeId, error) {
	return ioValue(eng, TagSendMail, args[0]), nil // envelope
}
