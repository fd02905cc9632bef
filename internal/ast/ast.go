// Package ast defines the node types the parser produces for Egel's
// surface syntax: declarations, patterns, and expressions. Untyped —
// there are no type annotations, traits, or instances, since type
// inference is excluded from scope.
package ast

import "github.com/funvibe/egel/internal/config"

// Decl is a top-level or namespace-level declaration.
type Decl interface{ declNode() }

type DataDecl struct {
	Pos  config.Position
	Name string // lowercase constructor name
	Args int    // arity
}

type DefDecl struct {
	Pos  config.Position
	Name string
	Alts []*Alt // one def may have several pattern-matched alternatives
}

type ValDecl struct {
	Pos  config.Position
	Name string
	Body Expr
}

type ImportDecl struct {
	Pos  config.Position
	Path string // e.g. "System" or a relative module path
}

type UsingDecl struct {
	Pos  config.Position
	Path string // qualified namespace brought into unqualified scope
}

type NamespaceDecl struct {
	Pos   config.Position
	Name  string
	Decls []Decl
}

// OperatorDecl declares a user-defined infix operator's fixity;
// associativity is inherited from the operator's first character class
// (egel.cpp's fixity table), so only precedence is explicit here.
type OperatorDecl struct {
	Pos        config.Position
	Symbol     string
	Precedence int
	Combinator string // the def/import this operator aliases
}

func (*DataDecl) declNode()      {}
func (*DefDecl) declNode()       {}
func (*ValDecl) declNode()       {}
func (*ImportDecl) declNode()    {}
func (*UsingDecl) declNode()     {}
func (*NamespaceDecl) declNode() {}
func (*OperatorDecl) declNode()  {}

// Program is a whole compilation unit: its own declarations in order.
type Program struct {
	Decls []Decl
}

// Alt is one pattern-matched alternative of a def, or an arm of a match
// block.
type Alt struct {
	Pos    config.Position
	Params []Pattern // the alternative's parameter patterns, in order
	Guard  Expr      // optional guard, tested against true after the patterns bind
	Body   Expr
}

// Pattern is a pattern in a def's parameter list, a match-block arm, or
// a let binding.
type Pattern interface{ patNode() }

type PVar struct {
	Pos  config.Position
	Name string
}

type PWildcard struct{ Pos config.Position }

type PLitKind int

const (
	PLitInt PLitKind = iota
	PLitFloat
	PLitChar
	PLitText
)

type PLit struct {
	Pos  config.Position
	Kind PLitKind
	I    int64
	F    float64
	Ch   rune
	Text string
}

// PCons matches a (possibly 0-ary) constructor application.
type PCons struct {
	Pos  config.Position
	Name string
	Args []Pattern
}

type PList struct {
	Pos  config.Position
	Elems []Pattern
	Tail  Pattern // nil for a proper list
}

type PTuple struct {
	Pos   config.Position
	Elems []Pattern
}

func (*PVar) patNode()      {}
func (*PWildcard) patNode() {}
func (*PLit) patNode()      {}
func (*PCons) patNode()     {}
func (*PList) patNode()     {}
func (*PTuple) patNode()    {}

// Expr is an expression node.
type Expr interface{ exprNode() }

type Var struct {
	Pos  config.Position
	Name string
}

type LitKind int

const (
	LitInt LitKind = iota
	LitFloat
	LitChar
	LitText
)

type Lit struct {
	Pos  config.Position
	Kind LitKind
	I    int64
	F    float64
	Ch   rune
	Text string
}

// App is n-ary application: Fun applied to Args in order, left-associative.
type App struct {
	Pos  config.Position
	Fun  Expr
	Args []Expr
}

// BinOp is sugar for a user- or built-in-declared infix operator,
// resolved during Desugar to an App of the operator's combinator.
type BinOp struct {
	Pos   config.Position
	Op    string
	Left  Expr
	Right Expr
}

type Lambda struct {
	Pos    config.Position
	Params []Pattern
	Body   Expr
}

type If struct {
	Pos             config.Position
	Cond, Then, Else Expr
}

type Try struct {
	Pos     config.Position
	Body    Expr
	Handler Expr // receives the raised value as its single argument
}

type Throw struct {
	Pos   config.Position
	Value Expr
}

type LetBinding struct {
	Pos     config.Position
	Pattern Pattern
	Value   Expr
}

type Let struct {
	Pos      config.Position
	Bindings []LetBinding
	Body     Expr
}

// Block is the "[ p1 -> e1 | p2 -> e2 | ... ]" match-lambda syntax: an
// anonymous function whose arguments (as many as each Alt has
// parameters) are matched against each Alt in order.
type Block struct {
	Pos  config.Position
	Alts []*Alt
}

type ListLit struct {
	Pos   config.Position
	Elems []Expr
	Tail  Expr // non-nil for "{e1, e2| tail}"
}

type TupleLit struct {
	Pos   config.Position
	Elems []Expr
}

func (*Var) exprNode()      {}
func (*Lit) exprNode()      {}
func (*App) exprNode()      {}
func (*BinOp) exprNode()    {}
func (*Lambda) exprNode()   {}
func (*If) exprNode()       {}
func (*Try) exprNode()      {}
func (*Throw) exprNode()    {}
func (*Let) exprNode()      {}
func (*Block) exprNode()    {}
func (*ListLit) exprNode()  {}
func (*TupleLit) exprNode() {}
