// Package compile implements the AST -> bytecode pipeline: Identify,
// Desugar, Lift, DeclareData, Emit, run in that order over one
// compilation unit by Pipeline.
package compile

import (
	"strings"

	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/config"
)

// Scope resolves a bare or namespace-qualified source name to the fully
// qualified combinator name it denotes, following the same search order
// as the original: the local namespace stack first, then each "using"d
// namespace in declaration order, finally the name as given (already
// qualified, or a reference the module manager's imports must supply).
type Scope struct {
	namespace string             // current "::"-joined namespace prefix, "" at top level
	opens     []string           // namespaces brought into unqualified scope via "using"
	declared  map[string]bool    // qualified names declared so far in this unit
	known     func(string) bool  // reports whether a qualified name already names an installed global (a builtin, or a sibling module's export)
}

func newScope(opens []string, known func(string) bool) *Scope {
	return &Scope{opens: opens, declared: map[string]bool{}, known: known}
}

func qualify(namespace, name string) string {
	if namespace == "" {
		return name
	}
	return namespace + "::" + name
}

func (s *Scope) isBound(qualified string) bool {
	if s.declared[qualified] {
		return true
	}
	return s.known != nil && s.known(qualified)
}

// Resolve finds the qualified name a bare reference denotes: first a
// declaration in the current namespace, then each opened namespace
// (checking both names declared in this unit and names already
// installed in the machine, e.g. "System::+" for a bare "+"), else the
// name itself unchanged (a literal qualified reference, or a name the
// module manager's imports will bind later).
func (s *Scope) Resolve(name string) string {
	if strings.Contains(name, "::") {
		return name
	}
	if s.isBound(qualify(s.namespace, name)) {
		return qualify(s.namespace, name)
	}
	for _, ns := range s.opens {
		if s.isBound(qualify(ns, name)) {
			return qualify(ns, name)
		}
	}
	return name
}

// Identify walks decls, recording every data/def/val declaration's
// qualified name (flattening nested namespaces) and rewriting every Var
// reference in every body to its resolved qualified form. It returns the
// flattened, namespace-free declaration list: DataDecl/DefDecl/ValDecl
// only, in source order, plus the scope used (which Desugar reuses).
func Identify(decls []ast.Decl, opens []string, known func(string) bool) ([]ast.Decl, *Scope, error) {
	scope := newScope(opens, known)
	collectNames(decls, "", scope)
	out, err := rewriteDecls(decls, "", scope)
	if err != nil {
		return nil, nil, err
	}
	return out, scope, nil
}

// collectNames pre-declares every name before any body is rewritten, so
// forward and mutually recursive references resolve regardless of
// declaration order within a namespace.
func collectNames(decls []ast.Decl, namespace string, scope *Scope) int {
	n := 0
	for _, d := range decls {
		switch dd := d.(type) {
		case *ast.DataDecl:
			scope.declared[qualify(namespace, dd.Name)] = true
			n++
		case *ast.DefDecl:
			scope.declared[qualify(namespace, dd.Name)] = true
			n++
		case *ast.ValDecl:
			scope.declared[qualify(namespace, dd.Name)] = true
			n++
		case *ast.NamespaceDecl:
			n += collectNames(dd.Decls, qualify(namespace, dd.Name), scope)
		}
	}
	return n
}

func rewriteDecls(decls []ast.Decl, namespace string, scope *Scope) ([]ast.Decl, error) {
	var out []ast.Decl
	saved := scope.namespace
	scope.namespace = namespace
	defer func() { scope.namespace = saved }()

	for _, d := range decls {
		switch dd := d.(type) {
		case *ast.DataDecl:
			out = append(out, &ast.DataDecl{Pos: dd.Pos, Name: qualify(namespace, dd.Name), Args: dd.Args})
		case *ast.DefDecl:
			alts := make([]*ast.Alt, len(dd.Alts))
			for i, alt := range dd.Alts {
				ra, err := rewriteAlt(alt, scope)
				if err != nil {
					return nil, err
				}
				alts[i] = ra
			}
			out = append(out, &ast.DefDecl{Pos: dd.Pos, Name: qualify(namespace, dd.Name), Alts: alts})
		case *ast.ValDecl:
			body, err := rewriteExpr(dd.Body, scope)
			if err != nil {
				return nil, err
			}
			out = append(out, &ast.ValDecl{Pos: dd.Pos, Name: qualify(namespace, dd.Name), Body: body})
		case *ast.NamespaceDecl:
			nested, err := rewriteDecls(dd.Decls, qualify(namespace, dd.Name), scope)
			if err != nil {
				return nil, err
			}
			out = append(out, nested...)
		case *ast.ImportDecl, *ast.UsingDecl, *ast.OperatorDecl:
			// Consumed by the module manager / lexer's operator table, not
			// by code generation.
		default:
			return nil, config.Errorf(config.Position{}, "compile: unhandled declaration %T", d)
		}
	}
	return out, nil
}

func rewriteAlt(alt *ast.Alt, scope *Scope) (*ast.Alt, error) {
	params := resolvePatterns(alt.Params, scope)
	guard := alt.Guard
	var err error
	if guard != nil {
		guard, err = rewriteExpr(guard, scope)
		if err != nil {
			return nil, err
		}
	}
	body, err := rewriteExpr(alt.Body, scope)
	if err != nil {
		return nil, err
	}
	return &ast.Alt{Pos: alt.Pos, Params: params, Guard: guard, Body: body}, nil
}

// resolvePatterns qualifies every constructor name occurring in a
// pattern, the same way rewriteExpr qualifies Var references — here,
// while the namespace context is still known. Variables and literals
// pass through untouched.
func resolvePatterns(pats []ast.Pattern, scope *Scope) []ast.Pattern {
	out := make([]ast.Pattern, len(pats))
	for i, p := range pats {
		out[i] = resolvePattern(p, scope)
	}
	return out
}

func resolvePattern(pat ast.Pattern, scope *Scope) ast.Pattern {
	switch p := pat.(type) {
	case *ast.PCons:
		return &ast.PCons{Pos: p.Pos, Name: scope.Resolve(p.Name), Args: resolvePatterns(p.Args, scope)}
	case *ast.PTuple:
		return &ast.PTuple{Pos: p.Pos, Elems: resolvePatterns(p.Elems, scope)}
	case *ast.PList:
		var tail ast.Pattern
		if p.Tail != nil {
			tail = resolvePattern(p.Tail, scope)
		}
		return &ast.PList{Pos: p.Pos, Elems: resolvePatterns(p.Elems, scope), Tail: tail}
	default:
		return pat
	}
}

// rewriteExpr resolves every free Var in expr, leaving names already
// bound by an enclosing Lambda/Block/Let (tracked via bound) untouched.
func rewriteExpr(expr ast.Expr, scope *Scope) (ast.Expr, error) {
	return rewriteExprBound(expr, scope, map[string]bool{})
}

func rewriteExprBound(expr ast.Expr, scope *Scope, bound map[string]bool) (ast.Expr, error) {
	switch ex := expr.(type) {
	case *ast.Var:
		if bound[ex.Name] {
			return ex, nil
		}
		return &ast.Var{Pos: ex.Pos, Name: scope.Resolve(ex.Name)}, nil

	case *ast.Lit:
		return ex, nil

	case *ast.App:
		fun, err := rewriteExprBound(ex.Fun, scope, bound)
		if err != nil {
			return nil, err
		}
		args := make([]ast.Expr, len(ex.Args))
		for i, a := range ex.Args {
			args[i], err = rewriteExprBound(a, scope, bound)
			if err != nil {
				return nil, err
			}
		}
		return &ast.App{Pos: ex.Pos, Fun: fun, Args: args}, nil

	case *ast.BinOp:
		l, err := rewriteExprBound(ex.Left, scope, bound)
		if err != nil {
			return nil, err
		}
		r, err := rewriteExprBound(ex.Right, scope, bound)
		if err != nil {
			return nil, err
		}
		return &ast.BinOp{Pos: ex.Pos, Op: ex.Op, Left: l, Right: r}, nil

	case *ast.Lambda:
		nb := withPatternVars(bound, ex.Params)
		body, err := rewriteExprBound(ex.Body, scope, nb)
		if err != nil {
			return nil, err
		}
		return &ast.Lambda{Pos: ex.Pos, Params: resolvePatterns(ex.Params, scope), Body: body}, nil

	case *ast.If:
		cond, err := rewriteExprBound(ex.Cond, scope, bound)
		if err != nil {
			return nil, err
		}
		then, err := rewriteExprBound(ex.Then, scope, bound)
		if err != nil {
			return nil, err
		}
		els, err := rewriteExprBound(ex.Else, scope, bound)
		if err != nil {
			return nil, err
		}
		return &ast.If{Pos: ex.Pos, Cond: cond, Then: then, Else: els}, nil

	case *ast.Try:
		body, err := rewriteExprBound(ex.Body, scope, bound)
		if err != nil {
			return nil, err
		}
		handler, err := rewriteExprBound(ex.Handler, scope, bound)
		if err != nil {
			return nil, err
		}
		return &ast.Try{Pos: ex.Pos, Body: body, Handler: handler}, nil

	case *ast.Throw:
		v, err := rewriteExprBound(ex.Value, scope, bound)
		if err != nil {
			return nil, err
		}
		return &ast.Throw{Pos: ex.Pos, Value: v}, nil

	case *ast.Let:
		nb := bound
		bindings := make([]ast.LetBinding, len(ex.Bindings))
		for i, b := range ex.Bindings {
			v, err := rewriteExprBound(b.Value, scope, nb)
			if err != nil {
				return nil, err
			}
			bindings[i] = ast.LetBinding{Pos: b.Pos, Pattern: resolvePattern(b.Pattern, scope), Value: v}
			nb = withPatternVars(nb, []ast.Pattern{b.Pattern})
		}
		body, err := rewriteExprBound(ex.Body, scope, nb)
		if err != nil {
			return nil, err
		}
		return &ast.Let{Pos: ex.Pos, Bindings: bindings, Body: body}, nil

	case *ast.Block:
		alts := make([]*ast.Alt, len(ex.Alts))
		for i, alt := range ex.Alts {
			nb := withPatternVars(bound, alt.Params)
			guard := alt.Guard
			var err error
			if guard != nil {
				guard, err = rewriteExprBound(guard, scope, nb)
				if err != nil {
					return nil, err
				}
			}
			body, err := rewriteExprBound(alt.Body, scope, nb)
			if err != nil {
				return nil, err
			}
			alts[i] = &ast.Alt{Pos: alt.Pos, Params: resolvePatterns(alt.Params, scope), Guard: guard, Body: body}
		}
		return &ast.Block{Pos: ex.Pos, Alts: alts}, nil

	case *ast.ListLit:
		elems := make([]ast.Expr, len(ex.Elems))
		for i, el := range ex.Elems {
			var err error
			elems[i], err = rewriteExprBound(el, scope, bound)
			if err != nil {
				return nil, err
			}
		}
		var tail ast.Expr
		if ex.Tail != nil {
			var err error
			tail, err = rewriteExprBound(ex.Tail, scope, bound)
			if err != nil {
				return nil, err
			}
		}
		return &ast.ListLit{Pos: ex.Pos, Elems: elems, Tail: tail}, nil

	case *ast.TupleLit:
		elems := make([]ast.Expr, len(ex.Elems))
		for i, el := range ex.Elems {
			var err error
			elems[i], err = rewriteExprBound(el, scope, bound)
			if err != nil {
				return nil, err
			}
		}
		return &ast.TupleLit{Pos: ex.Pos, Elems: elems}, nil

	default:
		return nil, config.Errorf(config.Position{}, "compile: unhandled expression %T", expr)
	}
}

func withPatternVars(bound map[string]bool, pats []ast.Pattern) map[string]bool {
	nb := make(map[string]bool, len(bound)+len(pats))
	for k, v := range bound {
		nb[k] = v
	}
	for _, p := range pats {
		collectPatternVars(p, nb)
	}
	return nb
}

func collectPatternVars(pat ast.Pattern, out map[string]bool) {
	switch p := pat.(type) {
	case *ast.PVar:
		out[p.Name] = true
	case *ast.PCons:
		for _, a := range p.Args {
			collectPatternVars(a, out)
		}
	case *ast.PTuple:
		for _, a := range p.Elems {
			collectPatternVars(a, out)
		}
	case *ast.PList:
		for _, a := range p.Elems {
			collectPatternVars(a, out)
		}
		if p.Tail != nil {
			collectPatternVars(p.Tail, out)
		}
	}
}
