package term

import (
	"fmt"
	"strconv"
	"strings"
)

// Serialize renders a closed term as a whitespace-separated prefix
// token stream: "i 5", "f 2.5", "c 122", "t \"hi\"", "o \"cons\"" for a
// combinator reference by qualified name, and "a <n>" followed by n
// serialized elements for an array. Opaque terms hold live host state
// and cannot be serialized. Deserialize is the inverse; the pair
// round-trips any closed term under structural equality.
func Serialize(t *Term) (string, error) {
	var sb strings.Builder
	if err := serialize(&sb, t); err != nil {
		return "", err
	}
	return sb.String(), nil
}

func serialize(sb *strings.Builder, t *Term) error {
	if sb.Len() > 0 {
		sb.WriteByte(' ')
	}
	if t == nil {
		sb.WriteByte('n')
		return nil
	}
	switch t.Tag {
	case TagInteger:
		fmt.Fprintf(sb, "i %d", t.I)
	case TagFloat:
		fmt.Fprintf(sb, "f %s", strconv.FormatFloat(t.F, 'g', -1, 64))
	case TagChar:
		fmt.Fprintf(sb, "c %d", t.Ch)
	case TagText:
		fmt.Fprintf(sb, "t %s", strconv.Quote(t.Text))
	case TagCombinator:
		fmt.Fprintf(sb, "o %s", strconv.Quote(t.Comb.Name))
	case TagArray:
		fmt.Fprintf(sb, "a %d", len(t.Arr))
		for _, e := range t.Arr {
			if err := serialize(sb, e); err != nil {
				return err
			}
		}
	case TagOpaque:
		return fmt.Errorf("term: cannot serialize an opaque value")
	default:
		return fmt.Errorf("term: cannot serialize tag %s", t.Tag)
	}
	return nil
}

// Deserialize parses a Serialize stream back into a term. Combinator
// references resolve through resolve (typically the machine's
// CombinatorStub), so a deserialized structure shares the canonical
// interned constructors rather than minting lookalikes with foreign
// symbol ids.
func Deserialize(s string, resolve func(name string) *Combinator) (*Term, error) {
	r := &tokenReader{src: s}
	t, err := deserialize(r, resolve)
	if err != nil {
		return nil, err
	}
	r.skipSpace()
	if !r.eof() {
		return nil, fmt.Errorf("term: trailing input after term")
	}
	return t, nil
}

func deserialize(r *tokenReader, resolve func(string) *Combinator) (*Term, error) {
	tag, err := r.word()
	if err != nil {
		return nil, err
	}
	switch tag {
	case "n":
		return nil, nil
	case "i":
		w, err := r.word()
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(w, 10, 64)
		if err != nil {
			return nil, fmt.Errorf("term: bad integer %q", w)
		}
		return NewInt(v), nil
	case "f":
		w, err := r.word()
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseFloat(w, 64)
		if err != nil {
			return nil, fmt.Errorf("term: bad float %q", w)
		}
		return NewFloat(v), nil
	case "c":
		w, err := r.word()
		if err != nil {
			return nil, err
		}
		v, err := strconv.ParseInt(w, 10, 32)
		if err != nil {
			return nil, fmt.Errorf("term: bad char %q", w)
		}
		return NewChar(rune(v)), nil
	case "t":
		s, err := r.quoted()
		if err != nil {
			return nil, err
		}
		return NewText(s), nil
	case "o":
		name, err := r.quoted()
		if err != nil {
			return nil, err
		}
		return NewCombinator(resolve(name)), nil
	case "a":
		w, err := r.word()
		if err != nil {
			return nil, err
		}
		n, err := strconv.Atoi(w)
		if err != nil || n < 0 {
			return nil, fmt.Errorf("term: bad array length %q", w)
		}
		elems := make([]*Term, n)
		for i := 0; i < n; i++ {
			elems[i], err = deserialize(r, resolve)
			if err != nil {
				return nil, err
			}
		}
		return NewArray(elems), nil
	default:
		return nil, fmt.Errorf("term: unknown serialization tag %q", tag)
	}
}

// tokenReader cursors over the serialized stream: whitespace-delimited
// words, plus Go-quoted strings read as one token regardless of the
// spaces they contain.
type tokenReader struct {
	src string
	pos int
}

func (r *tokenReader) eof() bool { return r.pos >= len(r.src) }

func (r *tokenReader) skipSpace() {
	for r.pos < len(r.src) && (r.src[r.pos] == ' ' || r.src[r.pos] == '\n' || r.src[r.pos] == '\t') {
		r.pos++
	}
}

func (r *tokenReader) word() (string, error) {
	r.skipSpace()
	if r.eof() {
		return "", fmt.Errorf("term: unexpected end of serialized input")
	}
	start := r.pos
	for r.pos < len(r.src) && r.src[r.pos] != ' ' && r.src[r.pos] != '\n' && r.src[r.pos] != '\t' {
		r.pos++
	}
	return r.src[start:r.pos], nil
}

func (r *tokenReader) quoted() (string, error) {
	r.skipSpace()
	if r.eof() || r.src[r.pos] != '"' {
		return "", fmt.Errorf("term: expected a quoted string")
	}
	start := r.pos
	r.pos++
	for r.pos < len(r.src) {
		switch r.src[r.pos] {
		case '\\':
			r.pos += 2
		case '"':
			r.pos++
			return strconv.Unquote(r.src[start:r.pos])
		default:
			r.pos++
		}
	}
	return "", fmt.Errorf("term: unterminated quoted string")
}
