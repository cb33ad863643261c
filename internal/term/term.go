// Package term holds the parser's output: a plain AST with de Bruijn
// indices already resolved, before anything is lowered onto the heap.
package term

import "github.com/eug-vs/lambo/internal/primitive"

// Term is implemented by every AST node the parser produces.
type Term interface {
	term()
}

// Var references an enclosing binder; Depth counts from 1, innermost
// first, exactly like heap.Var.
type Var struct{ Depth uint32 }

func (Var) term() {}

// Lambda is a single-argument abstraction. N-ary surface sugar
// (λx y. body) is desugared by the parser into nested Lambdas before
// this tree is built.
type Lambda struct{ Body Term }

func (Lambda) term() {}

// App is function application.
type App struct{ Fun, Arg Term }

func (App) term() {}

// Num is an unsigned integer literal.
type Num struct{ Value uint64 }

func (Num) term() {}

// Bytes is a string literal, stored as raw bytes.
type Bytes struct{ Value []byte }

func (Bytes) term() {}

// Prim references a resolved primitive by table id.
type Prim struct{ ID primitive.ID }

func (Prim) term() {}
