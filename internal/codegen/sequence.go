package codegen

import (
	"fmt"
	"strings"

	"github.com/oakmoss/pdl2lua/internal/emit"
	"github.com/oakmoss/pdl2lua/internal/ftype"
	"github.com/oakmoss/pdl2lua/internal/model"
)

// emitSequence writes the three functions spec §4.F/§9 requires per
// Sequence declaration: <name>_protocol_fields(proto) declaring every
// ProtoField as a flat global (so <name>_dissect can reference the same
// objects by name without a fields table threaded across functions — see
// DESIGN.md), <name>_dissect(buf, pinfo, tree, path, offset) walking the
// fields in order, and <name>_match_constraints(path) — kept as a
// standalone predicate per the group-constraint Open Question decision
// (DESIGN.md) rather than inlined into dissect.
func emitSequence(w *emit.Writer, s *model.Sequence, opt Options) error {
	emitProtocolFields(w, s)
	w.P()
	if err := emitDissect(w, s, opt); err != nil {
		return err
	}
	w.P()
	emitMatchConstraints(w, s)
	return nil
}

func emitProtocolFields(w *emit.Writer, s *model.Sequence) {
	w.Pf("function %s_protocol_fields(proto)", luaIdent(s.NameValue))
	w.Indent()
	var names []string
	for _, f := range s.Fields {
		if n := emitFieldDecl(w, s.NameValue, f); n != "" {
			names = append(names, n)
		}
	}
	w.Pf("return {%s}", strings.Join(names, ", "))
	w.Unindent()
	w.P("end")
}

// emitFieldDecl declares f's ProtoField global, if it has one, and returns
// its variable name for the returned fields list, or "" if f contributes
// no tree field of its own.
func emitFieldDecl(w *emit.Writer, declName string, f model.FieldModel) string {
	c := f.Common()
	switch v := f.(type) {
	case *model.Scalar:
		if v.Validate != nil {
			// FixedScalar/FixedEnum fields are validated, not exposed as a
			// tree field of their own.
			return ""
		}
		return emitScalarFieldDecl(w, declName, c, v)
	case *model.Payload:
		return emitBytesFieldDecl(w, declName, c)
	case *model.Typedef:
		// Typedef fields delegate entirely to the named type's own
		// protocol_fields/dissect; no ProtoField of their own.
		return ""
	case *model.ScalarArray, *model.TypedefArray:
		return emitBytesFieldDecl(w, declName, c)
	case *model.ChecksumStart:
		// Zero-width marker; nothing to declare.
		return ""
	}
	return ""
}

func emitBytesFieldDecl(w *emit.Writer, declName string, c *model.CommonField) string {
	name := protoFieldVar(declName, c.Abbr)
	w.Pf("%s = ProtoField.bytes(%s, %s)", name, protoFieldPath(declName, c.Abbr), luaStringLit(c.DisplayName))
	return name
}

func emitScalarFieldDecl(w *emit.Writer, declName string, c *model.CommonField, s *model.Scalar) string {
	name := protoFieldVar(declName, c.Abbr)
	if !s.Width.IsBounded() || len(s.Width.Refs()) > 0 {
		w.Pf("%s = ProtoField.bytes(%s, %s)", name, protoFieldPath(declName, c.Abbr), luaStringLit(c.DisplayName))
		return name
	}
	bits := int(s.Width.ConstBits())
	ft := ftype.Of(bits)
	w.Pf("%s = ProtoField.%s(%s, %s, base.DEC)", name, ft.ProtoFieldCtor(), protoFieldPath(declName, c.Abbr), luaStringLit(c.DisplayName))
	return name
}

func emitMatchConstraints(w *emit.Writer, s *model.Sequence) {
	w.Pf("function %s_match_constraints(path)", luaIdent(s.NameValue))
	w.Indent()
	if len(s.Constraints) == 0 {
		w.P("return true")
	} else {
		exprs := make([]string, len(s.Constraints))
		for i, c := range s.Constraints {
			exprs[i] = c.ToLuaExpr("path")
		}
		w.Pf("return %s", strings.Join(exprs, " and "))
	}
	w.Unindent()
	w.P("end")
}

// protoFieldVar names the global Lua variable holding abbr's ProtoField
// object within declName, shared between <declName>_protocol_fields (which
// declares it) and <declName>_dissect (which references it in tree:add
// calls) — see emitSequence's doc comment.
func protoFieldVar(declName, abbr string) string {
	return fmt.Sprintf("%s_%s_f", declName, abbr)
}

func protoFieldPath(declName, abbr string) string {
	return luaStringLit(fmt.Sprintf("%s.%s", declName, abbr))
}
