// Package pdl is one concrete front end for the ast facade (spec §6.1):
// a hand-rolled lexer and recursive-descent parser turning a small,
// PDL-flavored notation into an ast.File. Parsing PDL is explicitly out of
// scope for the core spec (see SPEC_FULL.md §2); this package exists so the
// tool is runnable end to end from a text file, and its concrete syntax is a
// minimal notation for the facade AST rather than a byte-faithful
// reimplementation of upstream PDL's grammar.
package pdl

import "fmt"

type tokenKind int

const (
	tokEOF tokenKind = iota
	tokIdent
	tokInt
	tokString
	tokColon
	tokComma
	tokSemicolon
	tokLBrace
	tokRBrace
	tokLBracket
	tokRBracket
	tokLParen
	tokRParen
	tokEquals
	tokPlus
	tokMinus
	tokQuestion
	tokDotDot
	tokAt
)

type token struct {
	kind tokenKind
	text string
	line int
}

func (t token) String() string {
	return fmt.Sprintf("%v(%q)@%d", t.kind, t.text, t.line)
}
