// Package lexer tokenizes Egel source text.
package lexer

import "github.com/funvibe/egel/internal/config"

type Kind int

const (
	EOF Kind = iota
	Ident      // lowercase-leading identifier: a combinator name
	VarName    // uppercase-leading identifier: a variable or namespace component
	Int
	Float
	Char
	Text
	Op // any run of operator-class characters not otherwise reserved

	// punctuation
	LParen
	RParen
	LBrace
	RBrace
	LBracket
	RBracket
	Comma
	Pipe
	Arrow // ->
	Backslash
	Equals
	ColonColon // ::
	Semicolon

	// keywords
	KwData
	KwDef
	KwVal
	KwNamespace
	KwImport
	KwUsing
	KwIf
	KwThen
	KwElse
	KwTry
	KwCatch
	KwThrow
	KwLet
	KwIn
)

var keywords = map[string]Kind{
	"data":      KwData,
	"def":       KwDef,
	"val":       KwVal,
	"namespace": KwNamespace,
	"import":    KwImport,
	"using":     KwUsing,
	"if":        KwIf,
	"then":      KwThen,
	"else":      KwElse,
	"try":       KwTry,
	"catch":     KwCatch,
	"throw":     KwThrow,
	"let":       KwLet,
	"in":        KwIn,
}

type Token struct {
	Kind Kind
	Text string
	I    int64
	F    float64
	Ch   rune
	Pos  config.Position
}
