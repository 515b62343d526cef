// Package diag implements the error handling design (spec §7): a small
// taxonomy of four error kinds distinguishing recoverable input problems
// from this tool's own logic errors, each optionally carrying the source
// location it was raised at.
package diag

import (
	"fmt"

	"github.com/oakmoss/pdl2lua/internal/ast"
)

// Kind discriminates the four error classes spec §7 defines.
type Kind int

const (
	// BadInput (E1): the PDL file itself is malformed or semantically
	// invalid in a way the facade AST can still represent — recoverable,
	// reported to the caller, compilation aborts for that file.
	BadInput Kind = iota
	// UnsupportedConstruct (E2): a construct the AST can represent but this
	// tool declines to lower (e.g. ElementSize fields, spec §9 Open
	// Question 1).
	UnsupportedConstruct
	// TypedefUnresolved (E3): a Typedef/TypedefArray/FixedEnum/Group field
	// names a declaration that Scope could not resolve, or resolved to a
	// declaration of an incompatible kind.
	TypedefUnresolved
	// IO (E4): reading the input file or writing the output script failed.
	IO
)

func (k Kind) String() string {
	switch k {
	case BadInput:
		return "BadInput"
	case UnsupportedConstruct:
		return "UnsupportedConstruct"
	case TypedefUnresolved:
		return "TypedefUnresolved"
	case IO:
		return "IO"
	default:
		return "Unknown"
	}
}

// Diagnostic is one error raised while compiling a PDL file, with an
// optional source location (nil for IO errors, which have no PDL-side
// location).
type Diagnostic struct {
	Kind Kind
	Msg  string
	Loc  *ast.SourceRange
}

func (d *Diagnostic) Error() string {
	if d.Loc == nil {
		return fmt.Sprintf("%s: %s", d.Kind, d.Msg)
	}
	return fmt.Sprintf("%s: %s:%d: %s", d.Kind, d.Loc.File, d.Loc.StartLine, d.Msg)
}

// New builds a Diagnostic with no source location (used for E4/IO errors
// and other cases where none is available).
func New(kind Kind, format string, args ...interface{}) *Diagnostic {
	return &Diagnostic{Kind: kind, Msg: fmt.Sprintf(format, args...)}
}

// At builds a Diagnostic located at loc.
func At(kind Kind, loc ast.SourceRange, format string, args ...interface{}) *Diagnostic {
	l := loc
	return &Diagnostic{Kind: kind, Msg: fmt.Sprintf(format, args...), Loc: &l}
}

// Fatal reports whether a diagnostic kind aborts the whole compilation
// (E2/E3, this tool's own logic errors about what it can lower) versus
// being reported and skipped per-file (E1/E4).
func (k Kind) Fatal() bool {
	return k == UnsupportedConstruct || k == TypedefUnresolved
}
