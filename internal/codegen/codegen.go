// Package codegen implements the code emitter (spec component F): walking
// the dissector model and writing the Wireshark Lua text that dissects it,
// assuming the internal/prelude runtime contract is already in scope.
package codegen

import (
	"fmt"

	"github.com/oakmoss/pdl2lua/internal/diag"
	"github.com/oakmoss/pdl2lua/internal/emit"
	"github.com/oakmoss/pdl2lua/internal/model"
)

// Options controls emission-time choices orthogonal to the model itself.
type Options struct {
	// Verbose switches DebugComment to the full struct-dump form (the
	// debug-mode verbose comments supplemental feature).
	Verbose bool
}

// EmitDecl writes one declaration's generated Lua into w, dispatching on
// the sealed DeclModel variant (spec §9 Design Notes: exhaustive type
// switch, not virtual dispatch).
func EmitDecl(w *emit.Writer, d model.DeclModel, opt Options) error {
	if c := d.DebugComment(opt.Verbose); c != "" {
		w.P(emit.LuaComment(c))
	}
	switch v := d.(type) {
	case *model.Enum:
		emitEnum(w, v)
		return nil
	case *model.Checksum:
		emitChecksum(w, v)
		return nil
	case *model.Sequence:
		return emitSequence(w, v, opt)
	default:
		return diag.New(diag.UnsupportedConstruct, "codegen: unhandled DeclModel %T", d)
	}
}

func luaIdent(name string) string {
	return name
}

func luaStringLit(s string) string {
	return fmt.Sprintf("%q", s)
}
