// Package printer renders a reduced Lambo value as text for the program's
// final output and for uncaught-throw diagnostics. It forces nested Data
// slots via Reducer.ForceDeep and guards against cyclic structures with a
// visited set, printing "…" rather than looping forever.
package printer

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/eug-vs/lambo/internal/heap"
	"github.com/eug-vs/lambo/internal/primitive"
	"github.com/eug-vs/lambo/internal/reducer"
)

// Render forces root to whnf and renders the result.
func Render(r *reducer.Reducer, root heap.NodeId) string {
	v, err := r.Whnf(root, heap.EmptyEnv)
	if err != nil {
		return fmt.Sprintf("<error: %v>", err)
	}
	return render(r, v, map[heap.NodeId]bool{})
}

func render(r *reducer.Reducer, id heap.NodeId, seen map[heap.NodeId]bool) string {
	if seen[id] {
		return "…"
	}
	seen[id] = true
	defer delete(seen, id)

	switch n := r.Heap().Get(id).(type) {
	case heap.Num:
		return strconv.FormatUint(n.Value, 10)

	case heap.Bytes:
		return quoteBytes(n.Buf.Data)

	case heap.Closure:
		deep, err := r.ForceDeep(id)
		if err != nil {
			return fmt.Sprintf("<error: %v>", err)
		}
		if closure, ok := r.Heap().Get(deep).(heap.Closure); ok {
			return "λ" + renderTerm(r, closure.Body, seen)
		}
		return render(r, deep, seen)

	case *heap.Data:
		return renderData(r, n, seen)

	case *heap.Primitive:
		parts := make([]string, len(n.Slots))
		for i, s := range n.Slots {
			parts[i] = render(r, s, seen)
		}
		return fmt.Sprintf("%s(%s)", primitive.Table[n.Op].Name, strings.Join(parts, ", "))

	case heap.Opaque:
		return fmt.Sprintf("_%d", n.Label)

	default:
		return fmt.Sprintf("<node %d>", id)
	}
}

func renderData(r *reducer.Reducer, n *heap.Data, seen map[heap.NodeId]bool) string {
	switch n.CtorTag {
	case primitive.TagNil:
		return "[]"
	case primitive.TagCons:
		return renderList(r, n, seen)
	case primitive.TagPair:
		a, err := r.ForceDeep(n.Slots[0])
		if err != nil {
			return fmt.Sprintf("<error: %v>", err)
		}
		b, err := r.ForceDeep(n.Slots[1])
		if err != nil {
			return fmt.Sprintf("<error: %v>", err)
		}
		return fmt.Sprintf("(%s, %s)", render(r, a, seen), render(r, b, seen))
	}

	parts := make([]string, 0, len(n.Slots))
	for _, s := range n.Slots {
		forced, err := r.ForceDeep(s)
		if err != nil {
			parts = append(parts, fmt.Sprintf("<error: %v>", err))
			continue
		}
		parts = append(parts, render(r, forced, seen))
	}
	suffix := ""
	if n.Filled < n.Arity {
		suffix = fmt.Sprintf("/%d", n.Arity-n.Filled)
	}
	return fmt.Sprintf("#%d%s(%s)", n.CtorTag, suffix, strings.Join(parts, ", "))
}

func renderList(r *reducer.Reducer, n *heap.Data, seen map[heap.NodeId]bool) string {
	var parts []string
	cur := heap.Node(n)
	for {
		data, ok := cur.(*heap.Data)
		if !ok || data.CtorTag != primitive.TagCons {
			break
		}
		forced, err := r.ForceDeep(data.Slots[0])
		if err != nil {
			parts = append(parts, fmt.Sprintf("<error: %v>", err))
		} else {
			parts = append(parts, render(r, forced, seen))
		}
		tail, err := r.Whnf(data.Slots[1], heap.EmptyEnv)
		if err != nil {
			parts = append(parts, fmt.Sprintf("<error: %v>", err))
			break
		}
		cur = r.Heap().Get(tail)
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

func renderTerm(r *reducer.Reducer, id heap.NodeId, seen map[heap.NodeId]bool) string {
	if seen[id] {
		return "…"
	}
	switch n := r.Heap().Get(id).(type) {
	case heap.Var:
		return fmt.Sprintf("$%d", n.Depth)
	case heap.Lambda:
		return "λ" + renderTerm(r, n.Body, seen)
	case heap.App:
		return "(" + renderTerm(r, n.Fun, seen) + " " + renderTerm(r, n.Arg, seen) + ")"
	case heap.Opaque:
		return fmt.Sprintf("_%d", n.Label)
	default:
		return render(r, id, seen)
	}
}

func quoteBytes(b []byte) string {
	var sb strings.Builder
	sb.WriteByte('"')
	for _, c := range b {
		switch {
		case c == '"':
			sb.WriteString(`\"`)
		case c == '\\':
			sb.WriteString(`\\`)
		case c == '\n':
			sb.WriteString(`\n`)
		case c == '\t':
			sb.WriteString(`\t`)
		case c >= 0x20 && c < 0x7f:
			sb.WriteByte(c)
		default:
			sb.WriteString(fmt.Sprintf(`\x%02x`, c))
		}
	}
	sb.WriteByte('"')
	return sb.String()
}
