package ast

import (
	"fmt"
	"strings"
)

// Dump renders decls as an indented, parenthesized tree for the CLI
// driver's -U/-X debug flags. It is not a parser round-trip format —
// only a readable shape for eyeballing what Identify/Desugar/Lift
// produced.
func Dump(decls []Decl) string {
	var sb strings.Builder
	for _, d := range decls {
		dumpDecl(&sb, 0, d)
	}
	return sb.String()
}

func indent(sb *strings.Builder, depth int) {
	sb.WriteString(strings.Repeat("  ", depth))
}

func dumpDecl(sb *strings.Builder, depth int, d Decl) {
	indent(sb, depth)
	switch dd := d.(type) {
	case *DataDecl:
		fmt.Fprintf(sb, "data %s/%d\n", dd.Name, dd.Args)
	case *DefDecl:
		fmt.Fprintf(sb, "def %s\n", dd.Name)
		for _, alt := range dd.Alts {
			dumpAlt(sb, depth+1, alt)
		}
	case *ValDecl:
		fmt.Fprintf(sb, "val %s =\n", dd.Name)
		dumpExpr(sb, depth+1, dd.Body)
	case *ImportDecl:
		fmt.Fprintf(sb, "import %q\n", dd.Path)
	case *UsingDecl:
		fmt.Fprintf(sb, "using %s\n", dd.Path)
	case *NamespaceDecl:
		fmt.Fprintf(sb, "namespace %s\n", dd.Name)
		for _, sub := range dd.Decls {
			dumpDecl(sb, depth+1, sub)
		}
	case *OperatorDecl:
		fmt.Fprintf(sb, "operator %s %d -> %s\n", dd.Symbol, dd.Precedence, dd.Combinator)
	default:
		fmt.Fprintf(sb, "<unknown decl %T>\n", dd)
	}
}

func dumpAlt(sb *strings.Builder, depth int, alt *Alt) {
	indent(sb, depth)
	sb.WriteString("alt")
	for _, p := range alt.Params {
		sb.WriteString(" ")
		sb.WriteString(dumpPattern(p))
	}
	sb.WriteString("\n")
	if alt.Guard != nil {
		indent(sb, depth+1)
		sb.WriteString("guard\n")
		dumpExpr(sb, depth+2, alt.Guard)
	}
	dumpExpr(sb, depth+1, alt.Body)
}

func dumpPattern(p Pattern) string {
	switch pp := p.(type) {
	case *PVar:
		return pp.Name
	case *PWildcard:
		return "_"
	case *PLit:
		return dumpLit(pp.Kind, pp.I, pp.F, pp.Ch, pp.Text)
	case *PCons:
		if len(pp.Args) == 0 {
			return pp.Name
		}
		parts := make([]string, len(pp.Args))
		for i, a := range pp.Args {
			parts[i] = dumpPattern(a)
		}
		return fmt.Sprintf("(%s %s)", pp.Name, strings.Join(parts, " "))
	case *PList:
		parts := make([]string, len(pp.Elems))
		for i, e := range pp.Elems {
			parts[i] = dumpPattern(e)
		}
		if pp.Tail != nil {
			return fmt.Sprintf("{%s| %s}", strings.Join(parts, ", "), dumpPattern(pp.Tail))
		}
		return fmt.Sprintf("{%s}", strings.Join(parts, ", "))
	case *PTuple:
		parts := make([]string, len(pp.Elems))
		for i, e := range pp.Elems {
			parts[i] = dumpPattern(e)
		}
		return fmt.Sprintf("(%s)", strings.Join(parts, ", "))
	default:
		return fmt.Sprintf("<unknown pattern %T>", pp)
	}
}

func dumpLit(kind PLitKind, i int64, f float64, ch rune, text string) string {
	switch kind {
	case PLitInt:
		return fmt.Sprintf("%d", i)
	case PLitFloat:
		return fmt.Sprintf("%g", f)
	case PLitChar:
		return fmt.Sprintf("%q", ch)
	case PLitText:
		return fmt.Sprintf("%q", text)
	default:
		return "?"
	}
}

func dumpExpr(sb *strings.Builder, depth int, e Expr) {
	indent(sb, depth)
	switch ee := e.(type) {
	case nil:
		sb.WriteString("<nil>\n")
	case *Var:
		fmt.Fprintf(sb, "var %s\n", ee.Name)
	case *Lit:
		kind := PLitKind(ee.Kind)
		fmt.Fprintf(sb, "lit %s\n", dumpLit(kind, ee.I, ee.F, ee.Ch, ee.Text))
	case *App:
		sb.WriteString("app\n")
		dumpExpr(sb, depth+1, ee.Fun)
		for _, a := range ee.Args {
			dumpExpr(sb, depth+1, a)
		}
	case *BinOp:
		fmt.Fprintf(sb, "binop %s\n", ee.Op)
		dumpExpr(sb, depth+1, ee.Left)
		dumpExpr(sb, depth+1, ee.Right)
	case *Lambda:
		sb.WriteString("lambda")
		for _, p := range ee.Params {
			sb.WriteString(" ")
			sb.WriteString(dumpPattern(p))
		}
		sb.WriteString("\n")
		dumpExpr(sb, depth+1, ee.Body)
	case *If:
		sb.WriteString("if\n")
		dumpExpr(sb, depth+1, ee.Cond)
		dumpExpr(sb, depth+1, ee.Then)
		dumpExpr(sb, depth+1, ee.Else)
	case *Try:
		sb.WriteString("try\n")
		dumpExpr(sb, depth+1, ee.Body)
		dumpExpr(sb, depth+1, ee.Handler)
	case *Throw:
		sb.WriteString("throw\n")
		dumpExpr(sb, depth+1, ee.Value)
	case *Let:
		sb.WriteString("let\n")
		for _, b := range ee.Bindings {
			indent(sb, depth+1)
			fmt.Fprintf(sb, "%s =\n", dumpPattern(b.Pattern))
			dumpExpr(sb, depth+2, b.Value)
		}
		dumpExpr(sb, depth+1, ee.Body)
	case *Block:
		sb.WriteString("block\n")
		for _, alt := range ee.Alts {
			dumpAlt(sb, depth+1, alt)
		}
	case *ListLit:
		sb.WriteString("list\n")
		for _, el := range ee.Elems {
			dumpExpr(sb, depth+1, el)
		}
		if ee.Tail != nil {
			indent(sb, depth+1)
			sb.WriteString("tail\n")
			dumpExpr(sb, depth+2, ee.Tail)
		}
	case *TupleLit:
		sb.WriteString("tuple\n")
		for _, el := range ee.Elems {
			dumpExpr(sb, depth+1, el)
		}
	default:
		fmt.Fprintf(sb, "<unknown expr %T>\n", ee)
	}
}
