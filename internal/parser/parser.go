// Package parser implements a recursive-descent/Pratt parser turning a
// token stream from internal/lexer into an internal/ast.Program.
package parser

import (
	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/config"
	"github.com/funvibe/egel/internal/lexer"
)

// defaultPrecedence gives the built-in operators a binding power; the
// parser never adds entries, and any other operator gets
// fallbackPrecedence. Associativity is
// never stored per-operator: it is derived from the first character's
// class via lexer.OperatorAssociativity, matching egel.cpp's fixity
// table.
var defaultPrecedence = map[string]int{
	"||": 2, "&&": 3,
	"==": 4, "/=": 4, "<": 4, ">": 4, "<=": 4, ">=": 4,
	":": 5, "++": 5,
	"+": 6, "-": 6,
	"*": 7, "/": 7, "%": 7,
	".": 9,
}

type Parser struct {
	lex  *lexer.Lexer
	tok  Token
	prec map[string]int
}

// fallbackPrecedence gives an operator outside defaultPrecedence (i.e. one
// only ever introduced by a user's own "def <op> ... = ..." declaration) a
// binding power from its first character's class, grouped the same way
// operators.hpp's fixity table groups the built-ins.
func fallbackPrecedence(symbol string) int {
	if symbol == "" {
		return 6
	}
	switch symbol[0] {
	case '|':
		return 2
	case '&':
		return 3
	case '=', '!', '<', '>':
		return 4
	case ':', '$':
		return 5
	case '+', '-', '~':
		return 6
	case '*', '/', '%', '^', '@':
		return 7
	case '.', '#':
		return 9
	default:
		return 6
	}
}

type Token = lexer.Token

// New creates a parser over file's source.
func New(file, src string) (*Parser, error) {
	p := &Parser{lex: lexer.New(file, src), prec: cloneMap(defaultPrecedence)}
	if err := p.advance(); err != nil {
		return nil, err
	}
	return p, nil
}

func cloneMap(m map[string]int) map[string]int {
	out := make(map[string]int, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func (p *Parser) advance() error {
	t, err := p.lex.Next()
	if err != nil {
		return err
	}
	p.tok = t
	return nil
}

func (p *Parser) expect(k lexer.Kind, what string) (Token, error) {
	if p.tok.Kind != k {
		return Token{}, config.Errorf(p.tok.Pos, "expected %s", what)
	}
	t := p.tok
	return t, p.advance()
}

// ParseProgram parses a full compilation unit.
func ParseProgram(file, src string) (*ast.Program, error) {
	p, err := New(file, src)
	if err != nil {
		return nil, err
	}
	prog := &ast.Program{}
	for p.tok.Kind != lexer.EOF {
		d, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		prog.Decls = append(prog.Decls, d)
	}
	return prog, nil
}

func (p *Parser) parseDecl() (ast.Decl, error) {
	switch p.tok.Kind {
	case lexer.KwData:
		return p.parseDataDecl()
	case lexer.KwDef:
		return p.parseDefDecl()
	case lexer.KwVal:
		return p.parseValDecl()
	case lexer.KwImport:
		return p.parseImportDecl()
	case lexer.KwUsing:
		return p.parseUsingDecl()
	case lexer.KwNamespace:
		return p.parseNamespaceDecl()
	default:
		return nil, config.Errorf(p.tok.Pos, "expected a declaration")
	}
}

func (p *Parser) parseDataDecl() (ast.Decl, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.Ident, "constructor name")
	if err != nil {
		return nil, err
	}
	arity := 0
	for p.tok.Kind == lexer.VarName {
		arity++
		if err := p.advance(); err != nil {
			return nil, err
		}
	}
	return &ast.DataDecl{Pos: pos, Name: name.Text, Args: arity}, nil
}

func (p *Parser) parseImportDecl() (ast.Decl, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	path, err := p.expect(lexer.Text, "import path")
	if err != nil {
		return nil, err
	}
	return &ast.ImportDecl{Pos: pos, Path: path.Text}, nil
}

func (p *Parser) parseUsingDecl() (ast.Decl, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	path, err := p.expect(lexer.VarName, "namespace path")
	if err != nil {
		return nil, err
	}
	return &ast.UsingDecl{Pos: pos, Path: path.Text}, nil
}

func (p *Parser) parseNamespaceDecl() (ast.Decl, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	name, err := p.expect(lexer.VarName, "namespace name")
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.LBracket, "'['"); err != nil {
		return nil, err
	}
	var decls []ast.Decl
	for p.tok.Kind != lexer.RBracket {
		d, err := p.parseDecl()
		if err != nil {
			return nil, err
		}
		decls = append(decls, d)
	}
	if err := p.advance(); err != nil { // consume ]
		return nil, err
	}
	return &ast.NamespaceDecl{Pos: pos, Name: name.Text, Decls: decls}, nil
}

func (p *Parser) parseValDecl() (ast.Decl, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	// Either identifier class is accepted: the REPL wraps a bare
	// expression line as "val Dummy = <expr>", and Dummy lexes as a
	// variable-class name.
	if p.tok.Kind != lexer.Ident && p.tok.Kind != lexer.VarName {
		return nil, config.Errorf(p.tok.Pos, "expected an identifier")
	}
	name := p.tok
	if err := p.advance(); err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.Equals, "'='"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.ValDecl{Pos: pos, Name: name.Text, Body: body}, nil
}

// parseDefDecl parses one or more "def name pat... = body" alternatives
// joined by ";" into one DefDecl. Separate "def" declarations that reuse
// a name are not merged: each becomes its own DefDecl.
func (p *Parser) parseDefDecl() (ast.Decl, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	def := &ast.DefDecl{Pos: pos}
	for {
		alt, name, err := p.parseDefAlt()
		if err != nil {
			return nil, err
		}
		if def.Name == "" {
			def.Name = name
		}
		def.Alts = append(def.Alts, alt)
		if p.tok.Kind == lexer.Semicolon {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	return def, nil
}

func (p *Parser) parseDefAlt() (*ast.Alt, string, error) {
	pos := p.tok.Pos
	var name Token
	var err error
	if p.tok.Kind == lexer.Op {
		name = p.tok
		err = p.advance()
	} else {
		name, err = p.expect(lexer.Ident, "definition name")
	}
	if err != nil {
		return nil, "", err
	}
	var params []ast.Pattern
	for p.tok.Kind != lexer.Equals {
		pat, err := p.parseAtomPattern()
		if err != nil {
			return nil, "", err
		}
		params = append(params, pat)
	}
	if err := p.advance(); err != nil { // consume '='
		return nil, "", err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, "", err
	}
	return &ast.Alt{Pos: pos, Params: params, Body: body}, name.Text, nil
}

// --- Patterns ---

func (p *Parser) parseAtomPattern() (ast.Pattern, error) {
	pos := p.tok.Pos
	switch p.tok.Kind {
	case lexer.VarName:
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if name == "_" {
			return &ast.PWildcard{Pos: pos}, nil
		}
		return &ast.PVar{Pos: pos, Name: name}, nil
	case lexer.Ident:
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if name == "_" {
			return &ast.PWildcard{Pos: pos}, nil
		}
		return &ast.PCons{Pos: pos, Name: name}, nil
	case lexer.Int:
		v := p.tok.I
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.PLit{Pos: pos, Kind: ast.PLitInt, I: v}, nil
	case lexer.Float:
		v := p.tok.F
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.PLit{Pos: pos, Kind: ast.PLitFloat, F: v}, nil
	case lexer.Char:
		v := p.tok.Ch
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.PLit{Pos: pos, Kind: ast.PLitChar, Ch: v}, nil
	case lexer.Text:
		v := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.PLit{Pos: pos, Kind: ast.PLitText, Text: v}, nil
	case lexer.LParen:
		return p.parseParenPattern()
	case lexer.LBrace:
		return p.parseListPattern()
	default:
		return nil, config.Errorf(pos, "expected a pattern")
	}
}

func (p *Parser) parseParenPattern() (ast.Pattern, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.RParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.PCons{Pos: pos, Name: "nop"}, nil
	}
	first, err := p.parsePattern()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.Comma {
		elems := []ast.Pattern{first}
		for p.tok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parsePattern()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		return &ast.PTuple{Pos: pos, Elems: elems}, nil
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	return first, nil
}

// parsePattern parses a (possibly applied) constructor pattern:
// "cons X XX" style.
func (p *Parser) parsePattern() (ast.Pattern, error) {
	pos := p.tok.Pos
	if p.tok.Kind == lexer.Ident {
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if name == "_" {
			return &ast.PWildcard{Pos: pos}, nil
		}
		var args []ast.Pattern
		for p.isAtomPatternStart() {
			a, err := p.parseAtomPattern()
			if err != nil {
				return nil, err
			}
			args = append(args, a)
		}
		return &ast.PCons{Pos: pos, Name: name, Args: args}, nil
	}
	return p.parseAtomPattern()
}

func (p *Parser) isAtomPatternStart() bool {
	switch p.tok.Kind {
	case lexer.VarName, lexer.Ident, lexer.Int, lexer.Float, lexer.Char, lexer.Text, lexer.LParen, lexer.LBrace:
		return true
	default:
		return false
	}
}

func (p *Parser) parseListPattern() (ast.Pattern, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil { // consume {
		return nil, err
	}
	lp := &ast.PList{Pos: pos}
	if p.tok.Kind == lexer.RBrace {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return lp, nil
	}
	for {
		e, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		lp.Elems = append(lp.Elems, e)
		if p.tok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if p.tok.Kind == lexer.Pipe {
		if err := p.advance(); err != nil {
			return nil, err
		}
		tail, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		lp.Tail = tail
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return lp, nil
}
