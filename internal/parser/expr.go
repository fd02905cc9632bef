package parser

import (
	"github.com/funvibe/egel/internal/ast"
	"github.com/funvibe/egel/internal/config"
	"github.com/funvibe/egel/internal/lexer"
)

// parseExpr parses a full expression, including the binary-operator
// precedence climb.
func (p *Parser) parseExpr() (ast.Expr, error) {
	return p.parseBinary(0)
}

func (p *Parser) parseBinary(minPrec int) (ast.Expr, error) {
	left, err := p.parseApp()
	if err != nil {
		return nil, err
	}
	for p.tok.Kind == lexer.Op {
		op := p.tok.Text
		prec, ok := p.prec[op]
		if !ok {
			prec = fallbackPrecedence(op)
		}
		if prec < minPrec {
			break
		}
		pos := p.tok.Pos
		if err := p.advance(); err != nil {
			return nil, err
		}
		nextMin := prec + 1
		if lexer.OperatorAssociativity(op) {
			nextMin = prec
		}
		right, err := p.parseBinary(nextMin)
		if err != nil {
			return nil, err
		}
		left = &ast.BinOp{Pos: pos, Op: op, Left: left, Right: right}
	}
	return left, nil
}

// parseApp parses left-associative application: f a b c.
func (p *Parser) parseApp() (ast.Expr, error) {
	fn, err := p.parseAtom()
	if err != nil {
		return nil, err
	}
	var args []ast.Expr
	for p.isAtomStart() {
		a, err := p.parseAtom()
		if err != nil {
			return nil, err
		}
		args = append(args, a)
	}
	if len(args) == 0 {
		return fn, nil
	}
	return &ast.App{Pos: exprPos(fn), Fun: fn, Args: args}, nil
}

func (p *Parser) isAtomStart() bool {
	switch p.tok.Kind {
	case lexer.Ident, lexer.VarName, lexer.Int, lexer.Float, lexer.Char, lexer.Text,
		lexer.LParen, lexer.LBrace, lexer.Backslash, lexer.LBracket,
		lexer.KwIf, lexer.KwTry, lexer.KwThrow, lexer.KwLet:
		return true
	default:
		return false
	}
}

func (p *Parser) parseAtom() (ast.Expr, error) {
	pos := p.tok.Pos
	switch p.tok.Kind {
	case lexer.Ident:
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Var{Pos: pos, Name: name}, nil
	case lexer.VarName:
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Var{Pos: pos, Name: name}, nil
	case lexer.Int:
		v := p.tok.I
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Lit{Pos: pos, Kind: ast.LitInt, I: v}, nil
	case lexer.Float:
		v := p.tok.F
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Lit{Pos: pos, Kind: ast.LitFloat, F: v}, nil
	case lexer.Char:
		v := p.tok.Ch
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Lit{Pos: pos, Kind: ast.LitChar, Ch: v}, nil
	case lexer.Text:
		v := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Lit{Pos: pos, Kind: ast.LitText, Text: v}, nil
	case lexer.LParen:
		return p.parseParenExpr()
	case lexer.LBrace:
		return p.parseListExpr()
	case lexer.LBracket:
		return p.parseBlockExpr()
	case lexer.Backslash:
		return p.parseLambda()
	case lexer.KwIf:
		return p.parseIf()
	case lexer.KwTry:
		return p.parseTry()
	case lexer.KwThrow:
		return p.parseThrow()
	case lexer.KwLet:
		return p.parseLet()
	default:
		return nil, config.Errorf(pos, "expected an expression")
	}
}

func (p *Parser) parseParenExpr() (ast.Expr, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.RParen {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return &ast.Var{Pos: pos, Name: "nop"}, nil
	}
	// allow a bare operator section, e.g. (+), naming the operator's
	// combinator directly.
	if p.tok.Kind == lexer.Op {
		name := p.tok.Text
		if err := p.advance(); err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		return &ast.Var{Pos: pos, Name: name}, nil
	}
	first, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if p.tok.Kind == lexer.Comma {
		elems := []ast.Expr{first}
		for p.tok.Kind == lexer.Comma {
			if err := p.advance(); err != nil {
				return nil, err
			}
			e, err := p.parseExpr()
			if err != nil {
				return nil, err
			}
			elems = append(elems, e)
		}
		if _, err := p.expect(lexer.RParen, "')'"); err != nil {
			return nil, err
		}
		return &ast.TupleLit{Pos: pos, Elems: elems}, nil
	}
	if _, err := p.expect(lexer.RParen, "')'"); err != nil {
		return nil, err
	}
	return first, nil
}

func (p *Parser) parseListExpr() (ast.Expr, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil { // consume {
		return nil, err
	}
	ll := &ast.ListLit{Pos: pos}
	if p.tok.Kind == lexer.RBrace {
		if err := p.advance(); err != nil {
			return nil, err
		}
		return ll, nil
	}
	for {
		e, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ll.Elems = append(ll.Elems, e)
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
		tail, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		ll.Tail = tail
	}
	if _, err := p.expect(lexer.RBrace, "'}'"); err != nil {
		return nil, err
	}
	return ll, nil
}

// parseBlockExpr parses "[ pats -> body | pats -> body | ... ]" into an
// anonymous match lambda; every arm must take the same number of
// arguments.
func (p *Parser) parseBlockExpr() (ast.Expr, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil { // consume [
		return nil, err
	}
	blk := &ast.Block{Pos: pos}
	for {
		alt, err := p.parseBlockAlt()
		if err != nil {
			return nil, err
		}
		blk.Alts = append(blk.Alts, alt)
		if p.tok.Kind == lexer.Pipe {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(lexer.RBracket, "']'"); err != nil {
		return nil, err
	}
	return blk, nil
}

// parseBlockAlt parses one arm: a sequence of atomic patterns (an arm
// may match several arguments at once, e.g. "[ F nil -> ... ]"),
// followed by "->" and the body.
func (p *Parser) parseBlockAlt() (*ast.Alt, error) {
	pos := p.tok.Pos
	var params []ast.Pattern
	for p.tok.Kind != lexer.Arrow {
		pat, err := p.parseAtomPattern()
		if err != nil {
			return nil, err
		}
		params = append(params, pat)
	}
	if err := p.advance(); err != nil { // consume ->
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Alt{Pos: pos, Params: params, Body: body}, nil
}

func (p *Parser) parseLambda() (ast.Expr, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	var params []ast.Pattern
	for p.isAtomPatternStart() {
		pat, err := p.parseAtomPattern()
		if err != nil {
			return nil, err
		}
		params = append(params, pat)
	}
	if _, err := p.expect(lexer.Arrow, "'->'"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Lambda{Pos: pos, Params: params, Body: body}, nil
}

func (p *Parser) parseIf() (ast.Expr, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	cond, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwThen, "'then'"); err != nil {
		return nil, err
	}
	then, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwElse, "'else'"); err != nil {
		return nil, err
	}
	els, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.If{Pos: pos, Cond: cond, Then: then, Else: els}, nil
}

func (p *Parser) parseTry() (ast.Expr, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	if _, err := p.expect(lexer.KwCatch, "'catch'"); err != nil {
		return nil, err
	}
	handler, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Try{Pos: pos, Body: body, Handler: handler}, nil
}

func (p *Parser) parseThrow() (ast.Expr, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	v, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	return &ast.Throw{Pos: pos, Value: v}, nil
}

func (p *Parser) parseLet() (ast.Expr, error) {
	pos := p.tok.Pos
	if err := p.advance(); err != nil {
		return nil, err
	}
	let := &ast.Let{Pos: pos}
	for {
		bindPos := p.tok.Pos
		pat, err := p.parsePattern()
		if err != nil {
			return nil, err
		}
		if _, err := p.expect(lexer.Equals, "'='"); err != nil {
			return nil, err
		}
		v, err := p.parseExpr()
		if err != nil {
			return nil, err
		}
		let.Bindings = append(let.Bindings, ast.LetBinding{Pos: bindPos, Pattern: pat, Value: v})
		if p.tok.Kind == lexer.Semicolon {
			if err := p.advance(); err != nil {
				return nil, err
			}
			continue
		}
		break
	}
	if _, err := p.expect(lexer.KwIn, "'in'"); err != nil {
		return nil, err
	}
	body, err := p.parseExpr()
	if err != nil {
		return nil, err
	}
	let.Body = body
	return let, nil
}

func exprPos(e ast.Expr) (pos config.Position) {
	switch v := e.(type) {
	case *ast.Var:
		return v.Pos
	case *ast.Lit:
		return v.Pos
	case *ast.App:
		return v.Pos
	case *ast.Lambda:
		return v.Pos
	}
	return config.Position{}
}
