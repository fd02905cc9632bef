package term

import (
	"fmt"
	"strconv"
	"strings"
)

// Render renders a term using Egel's surface syntax: list sugar {..},
// {h1, h2| tail} for improper lists, tuple sugar (a, b, c), and
// parenthesized application spines otherwise. Ported from the teacher's
// machine.hpp render/render_array/render_cons/render_tuple family.
func Render(t *Term) string {
	var sb strings.Builder
	render(&sb, t)
	return sb.String()
}

func render(sb *strings.Builder, t *Term) {
	if t == nil {
		sb.WriteString("null")
		return
	}
	switch t.Tag {
	case TagInteger:
		sb.WriteString(strconv.FormatInt(t.I, 10))
	case TagFloat:
		sb.WriteString(formatFloat(t.F))
	case TagChar:
		fmt.Fprintf(sb, "%q", t.Ch)
	case TagText:
		fmt.Fprintf(sb, "%q", t.Text)
	case TagOpaque:
		fmt.Fprintf(sb, "<opaque>")
	case TagCombinator:
		sb.WriteString(t.Comb.Name)
	case TagArray:
		renderArray(sb, t.Arr)
	}
}

func renderArray(sb *strings.Builder, arr []*Term) {
	if len(arr) == 0 {
		sb.WriteString("()")
		return
	}
	head := arr[0]
	if head != nil && head.Tag == TagCombinator {
		switch head.Comb.Name {
		case "nil":
			sb.WriteString("{}")
			return
		case "cons":
			renderCons(sb, arr)
			return
		case "tuple":
			renderTuple(sb, arr[1:])
			return
		}
	}
	sb.WriteByte('(')
	for i, e := range arr {
		if i > 0 {
			sb.WriteByte(' ')
		}
		renderSub(sb, e)
	}
	sb.WriteByte(')')
}

func renderSub(sb *strings.Builder, t *Term) {
	render(sb, t)
}

// renderCons walks a cons/nil spine, rendering {e1, e2, ...} and, if the
// tail is not nil, the improper-list form {e1, e2| tail}.
func renderCons(sb *strings.Builder, arr []*Term) {
	sb.WriteByte('{')
	first := true
	cur := NewArray(arr)
	for {
		if cur.Tag != TagArray || len(cur.Arr) == 0 {
			break
		}
		h := cur.Arr[0]
		if h == nil || h.Tag != TagCombinator {
			break
		}
		if h.Comb.Name == "nil" {
			break
		}
		if h.Comb.Name == "cons" && len(cur.Arr) == 3 {
			if !first {
				sb.WriteString(", ")
			}
			first = false
			render(sb, cur.Arr[1])
			cur = cur.Arr[2]
			continue
		}
		// improper tail: not a nil/cons cell
		sb.WriteString("| ")
		render(sb, cur)
		break
	}
	sb.WriteByte('}')
}

func renderTuple(sb *strings.Builder, elems []*Term) {
	sb.WriteByte('(')
	for i, e := range elems {
		if i > 0 {
			sb.WriteString(", ")
		}
		render(sb, e)
	}
	sb.WriteByte(')')
}

// Compare gives a structural ordering over terms: by tag first, then by
// value. Used by the TEST opcode's equality check and by tests that want
// a deterministic ordering. Ported from machine.hpp's vm_object_compare.
func Compare(a, b *Term) int {
	if a == nil && b == nil {
		return 0
	}
	if a == nil {
		return -1
	}
	if b == nil {
		return 1
	}
	if a.Tag != b.Tag {
		if a.Tag < b.Tag {
			return -1
		}
		return 1
	}
	switch a.Tag {
	case TagInteger:
		return cmpInt64(a.I, b.I)
	case TagFloat:
		return cmpFloat64(a.F, b.F)
	case TagChar:
		return cmpInt64(int64(a.Ch), int64(b.Ch))
	case TagText:
		return strings.Compare(a.Text, b.Text)
	case TagCombinator:
		return cmpInt64(int64(a.Comb.Symbol), int64(b.Comb.Symbol))
	case TagArray:
		n := len(a.Arr)
		if len(b.Arr) < n {
			n = len(b.Arr)
		}
		for i := 0; i < n; i++ {
			if c := Compare(a.Arr[i], b.Arr[i]); c != 0 {
				return c
			}
		}
		return cmpInt64(int64(len(a.Arr)), int64(len(b.Arr)))
	case TagOpaque:
		if c, ok := a.Op.(OpaqueComparer); ok {
			return c.CompareOpaque(b.Op)
		}
		return 0
	default:
		return 0
	}
}

// OpaqueComparer lets a host payload participate in term comparison;
// opaque values whose payload does not implement it compare equal to
// every other opaque value.
type OpaqueComparer interface {
	CompareOpaque(other any) int
}

// Equal reports structural equality, used by the TEST opcode.
func Equal(a, b *Term) bool { return Compare(a, b) == 0 }

func cmpInt64(a, b int64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}

func cmpFloat64(a, b float64) int {
	switch {
	case a < b:
		return -1
	case a > b:
		return 1
	default:
		return 0
	}
}
