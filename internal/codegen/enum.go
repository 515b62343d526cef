package codegen

import (
	"fmt"

	"github.com/oakmoss/pdl2lua/internal/ast"
	"github.com/oakmoss/pdl2lua/internal/emit"
	"github.com/oakmoss/pdl2lua/internal/ftype"
	"github.com/oakmoss/pdl2lua/internal/model"
)

// emitEnum writes a package-level ProtoEnum registration for e, one
// define() call per tag (spec §4.F/§6.3), registering the catch-all arm
// (present on every Enum per invariant I4, see internal/lower) last with a
// nil spec so the prelude's "accepted iff no other arm matched" semantics
// apply.
func emitEnum(w *emit.Writer, e *model.Enum) {
	w.Pf("%s_enum = ProtoEnum.new()", luaIdent(e.NameValue))
	var other *ast.Tag
	for i := range e.Tags {
		t := &e.Tags[i]
		switch t.Kind {
		case ast.TagValue:
			w.Pf("%s_enum:define(%s, %d)", luaIdent(e.NameValue), luaStringLit(t.ID), t.Value)
		case ast.TagRange:
			w.Pf("%s_enum:define(%s, {%d, %d})", luaIdent(e.NameValue), luaStringLit(t.ID), t.RangeStart, t.RangeEnd)
		case ast.TagOther:
			other = t
		}
	}
	if other != nil {
		w.Pf("%s_enum:define(%s, nil)", luaIdent(e.NameValue), luaStringLit(other.ID))
	}
}

// emitChecksum writes <name>_dissect for a Checksum declaration: it reads
// its declared width with the integer accessor for that width in the file's
// byte order (raw for other widths), not as opaque bytes, and records the
// value in field_values. The value is not validated against the bytes
// covered from the _checksum_start_ marker. Checksum
// fields are never exposed through a dedicated ProtoField of their own (no
// one proto necessarily owns the declaration), so the value is added to the
// tree as a plain labeled range.
func emitChecksum(w *emit.Writer, c *model.Checksum) {
	w.Pf("function %s_dissect(buf, pinfo, tree, path, offset)", luaIdent(c.NameValue))
	w.Indent()
	width := int(c.Width) / 8
	ft := ftype.Of(int(c.Width))
	alignedWidth, ok := ft.AlignedWidthBits()
	accessor := emit.BufferAccessor(c.Endian, alignedWidth, ok)
	w.Pf("local range = buf(offset, %d)", width)
	w.Pf("local value = range:%s()", accessor)
	w.Pf("tree:add(range, %s .. tostring(value))", luaStringLit(fmt.Sprintf("%s: ", c.NameValue)))
	w.Pf("field_values[path .. %s] = value", luaStringLit(fmt.Sprintf(".%s", c.NameValue)))
	w.Pf("return offset + %d", width)
	w.Unindent()
	w.P("end")
}
