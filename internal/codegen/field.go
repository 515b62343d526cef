package codegen

import (
	"fmt"

	"github.com/oakmoss/pdl2lua/internal/diag"
	"github.com/oakmoss/pdl2lua/internal/emit"
	"github.com/oakmoss/pdl2lua/internal/ftype"
	"github.com/oakmoss/pdl2lua/internal/model"
)

// emitDissect writes <name>_dissect(buf, pinfo, tree, path, offset),
// returning the new offset after consuming every field in order, per
// spec §4.F. offset and path are threaded as explicit parameters rather
// than closed-over state; this parameter list differs from the original
// tool's dissect-function contract (see DESIGN.md).
func emitDissect(w *emit.Writer, s *model.Sequence, opt Options) error {
	w.Pf("function %s_dissect(buf, pinfo, tree, path, offset)", luaIdent(s.NameValue))
	w.Indent()
	for i, f := range s.Fields {
		if c := f.DebugComment(opt.Verbose); c != "" {
			w.P(emit.LuaComment(c))
		}
		if err := emitFieldDissect(w, s.NameValue, f, s.Fields, i); err != nil {
			return err
		}
	}
	w.P("return offset")
	w.Unindent()
	w.P("end")
	return nil
}

func fieldKey(abbr string) string {
	return luaStringLit(fmt.Sprintf(".%s", abbr))
}

func emitFieldDissect(w *emit.Writer, declName string, f model.FieldModel, all []model.FieldModel, idx int) error {
	c := f.Common()
	switch v := f.(type) {
	case *model.Scalar:
		return emitScalarDissect(w, declName, c, v, all, idx)
	case *model.Payload:
		emitPayloadDissect(w, declName, c, v)
		return nil
	case *model.Typedef:
		emitTypedefDissect(w, declName, c, v)
		return nil
	case *model.ScalarArray:
		emitScalarArrayDissect(w, declName, c, v)
		return nil
	case *model.TypedefArray:
		emitTypedefArrayDissect(w, declName, c, v)
		return nil
	case *model.ChecksumStart:
		w.Pf("local %s_start = offset", v.ChecksumName)
		return nil
	default:
		return diag.New(diag.UnsupportedConstruct, "codegen: unhandled FieldModel %T", f)
	}
}

// emitGateOpen wraps a gated field's dissect block in a test against the
// governing Flag sibling's already-captured runtime value (spec §4.E Flag
// rule), returning true if a block was opened (the caller must balance it
// with emitGateClose).
func emitGateOpen(w *emit.Writer, gate *model.OptionalGate) bool {
	if gate == nil {
		return false
	}
	w.Pf("if field_values[path .. %s] == %d then", fieldKey(gate.FlagAbbr), gate.Value)
	w.Indent()
	return true
}

func emitGateClose(w *emit.Writer, opened bool) {
	if !opened {
		return
	}
	w.Unindent()
	w.P("end")
}

// runCloses reports whether the unaligned field at idx ends its bit-packed
// run: either its cumulative bit total lands on a byte boundary, it's the
// last field in the declaration, or the next field is itself aligned (which
// can only happen once the run has already closed).
func runCloses(all []model.FieldModel, idx int, endBit int) bool {
	if endBit%8 == 0 {
		return true
	}
	if idx == len(all)-1 {
		return true
	}
	return !model.IsUnaligned(all[idx+1])
}

func emitScalarDissect(w *emit.Writer, declName string, c *model.CommonField, s *model.Scalar, all []model.FieldModel, idx int) error {
	if !s.Width.IsBounded() {
		return diag.New(diag.BadInput, "scalar field %q has unbounded width", c.DisplayName)
	}
	gated := emitGateOpen(w, s.OptionalGate)
	unaligned := model.IsUnaligned(s)
	if unaligned {
		bits := int(s.Width.ConstBits())
		// Width.ToRuntimeExpr is denominated in octets (it underlies
		// byte-length expressions elsewhere); a bit-level field needs its
		// raw bit count instead, which is a compile-time constant for every
		// unaligned field this codebase lowers (a dynamically-width scalar
		// never also has a nonzero bit offset in practice, since Size/Count
		// siblings always measure whole bytes).
		widthExpr := fmt.Sprintf("%d", bits)
		w.Pf("local %s_field = UnalignedProtoField.new(%s, %d, %s)", c.Abbr, protoFieldVar(declName, c.Abbr), int(c.BitOffset), widthExpr)
		w.Pf("local %s = %s_field:dissect(tree, buf, offset)", c.Abbr, c.Abbr)
		endBit := int(c.BitOffset) + bits
		if runCloses(all, idx, endBit) {
			spanBytes := (endBit + 7) / 8
			w.Pf("offset = offset + %d", spanBytes)
			if endBit%8 != 0 {
				residual := spanBytes*8 - endBit
				w.Pf(`tree:add_expert_info(PI_MALFORMED, PI_WARN, %s)`, luaStringLit(fmt.Sprintf("%d undissected bits remaining", residual)))
			}
		}
	} else {
		bits := int(s.Width.ConstBits())
		ft := ftype.Of(bits)
		width, ok := ft.AlignedWidthBits()
		octets := bits / 8
		accessor := emit.BufferAccessor(c.Endian, width, ok)
		w.Pf("local %s_len = enforce_len_limit(buf(offset), %d)", c.Abbr, octets)
		w.Pf("if %s_len < %d then", c.Abbr, octets)
		w.Indent()
		w.Pf(`tree:add_expert_info(PI_MALFORMED, PI_ERROR, %s)`, luaStringLit(fmt.Sprintf("%s exceeds remaining buffer length", c.DisplayName)))
		w.Unindent()
		w.P("end")
		// A clamped length below the declared width can no longer be read
		// through the fixed-width accessor (e.g. a 4-byte uint32 accessor
		// over a 2-byte clamped range), so fall back to the raw-bytes
		// accessor whenever clamping actually occurred.
		w.Pf("local %s_field = AlignedProtoField.new(%s, %s)", c.Abbr, protoFieldVar(declName, c.Abbr), luaStringLit(accessor))
		w.Pf("local %s", c.Abbr)
		w.Pf("if %s_len < %d then", c.Abbr, octets)
		w.Indent()
		w.Pf("local %s_raw_field = AlignedProtoField.new(%s, %s)", c.Abbr, protoFieldVar(declName, c.Abbr), luaStringLit("raw"))
		w.Pf("%s = %s_raw_field:dissect(tree, buf, offset, %s_len)", c.Abbr, c.Abbr, c.Abbr)
		w.Unindent()
		w.P("else")
		w.Indent()
		w.Pf("%s = %s_field:dissect(tree, buf, offset, %d)", c.Abbr, c.Abbr, octets)
		w.Unindent()
		w.P("end")
		if s.Validate != nil {
			w.Pf("if not (%s) then", s.Validate.Expr)
			w.Indent()
			w.Pf(`tree:add_expert_info(PI_MALFORMED, PI_WARN, %s .. tostring(%s))`,
				luaStringLit(fmt.Sprintf("Expected %s where value=", s.Validate.Desc)), c.Abbr)
			w.Unindent()
			w.P("end")
		}
		w.Pf("offset = offset + %s_len", c.Abbr)
	}
	w.Pf("field_values[path .. %s] = %s", fieldKey(c.Abbr), c.Abbr)
	emitGateClose(w, gated)
	return nil
}

func emitPayloadDissect(w *emit.Writer, declName string, c *model.CommonField, p *model.Payload) {
	lenExpr := p.SizeExpr.ToRuntimeExpr("path")
	w.Pf("local %s_len = enforce_len_limit(buf(offset), %s)", c.Abbr, lenExpr)
	w.Pf("local %s_range = buf(offset, %s_len)", c.Abbr, c.Abbr)

	if len(p.Children) == 0 {
		w.Pf("tree:add(%s, %s_range)", protoFieldVar(declName, c.Abbr), c.Abbr)
		w.Pf("offset = offset + %s_len", c.Abbr)
		return
	}

	w.Pf("local %s_subtree = tree:add(%s_range, %s)", c.Abbr, c.Abbr, luaStringLit(c.DisplayName))
	w.Pf("local %s_path = path .. %s", c.Abbr, luaStringLit(fmt.Sprintf(".%s", c.Abbr)))
	var branches []emit.IfBranch
	for _, child := range p.Children {
		child := child
		branches = append(branches, emit.IfBranch{
			Cond: fmt.Sprintf("%s_body_match_constraints(path)", luaIdent(child)),
			Body: func(w *emit.Writer) {
				w.Pf("offset = %s_body_dissect(buf, pinfo, %s_subtree, %s_path, offset)", luaIdent(child), c.Abbr, c.Abbr)
			},
		})
	}
	branches = append(branches, emit.IfBranch{
		Cond: "",
		Body: func(w *emit.Writer) {
			w.Pf("tree:add(%s, %s_range)", protoFieldVar(declName, c.Abbr), c.Abbr)
			w.Pf("offset = offset + %s_len", c.Abbr)
		},
	})
	emit.EmitIfChain(w, branches)
}

func emitTypedefDissect(w *emit.Writer, declName string, c *model.CommonField, t *model.Typedef) {
	gated := emitGateOpen(w, t.OptionalGate)
	switch t.TargetKind {
	case model.TypedefEnum:
		bits := int(t.TypeLen.ConstBits())
		octets := bits / 8
		ft := ftype.Of(bits)
		width, ok := ft.AlignedWidthBits()
		accessor := emit.BufferAccessor(c.Endian, width, ok)
		w.Pf("local %s_range = buf(offset, %d)", c.Abbr, octets)
		w.Pf("local %s = %s_range:%s()", c.Abbr, c.Abbr, accessor)
		w.Pf("local %s_name = %s_enum:name_for(%s)", c.Abbr, luaIdent(t.TypeName), c.Abbr)
		w.Pf("tree:add(%s_range, %s .. %s_name)", c.Abbr, luaStringLit(fmt.Sprintf("%s: ", c.DisplayName)), c.Abbr)
		w.Pf("if not %s_enum:is_known(%s) then", luaIdent(t.TypeName), c.Abbr)
		w.Indent()
		w.Pf(`tree:add_expert_info(PI_MALFORMED, PI_WARN, %s .. tostring(%s))`, luaStringLit(fmt.Sprintf("Unknown %s value=", c.DisplayName)), c.Abbr)
		w.Unindent()
		w.P("end")
		w.Pf("offset = offset + %d", octets)
		w.Pf("field_values[path .. %s] = %s", fieldKey(c.Abbr), c.Abbr)
	default:
		// Sequence and Checksum targets both recurse into the named
		// declaration's own dissect function under a labeled subtree.
		w.Pf("local %s_subtree = tree:add(buf(offset, 0), %s)", c.Abbr, luaStringLit(c.DisplayName))
		w.Pf("offset = %s_dissect(buf, pinfo, %s_subtree, path .. %s, offset)", luaIdent(t.TypeName), c.Abbr, luaStringLit(fmt.Sprintf(".%s", c.Abbr)))
	}
	emitGateClose(w, gated)
}

// arrayCountExpr returns the Lua loop-bound expression for an array field,
// in priority order: a literal count, then a count sibling, then a byte-size
// sibling, else unbounded (bounded is false and expr is empty; the caller
// then derives the count from the remaining buffer length).
func arrayCountExpr(a model.ArrayAttrs) (expr string, bounded bool) {
	switch {
	case a.Count != nil:
		return fmt.Sprintf("%d", *a.Count), true
	case a.SizeFieldRef != "" && a.SizeFieldIsCount:
		return fmt.Sprintf("field_values[path .. %s]", fieldKey(a.SizeFieldRef)), true
	case a.SizeFieldRef != "":
		// byte-size sibling; the caller divides by element width to get a
		// count.
		return fmt.Sprintf("field_values[path .. %s]", fieldKey(a.SizeFieldRef)), true
	default:
		return "", false
	}
}

func emitScalarArrayDissect(w *emit.Writer, declName string, c *model.CommonField, a *model.ScalarArray) {
	elemOctets := int(a.ElementWidth) / 8
	ft := ftype.Of(int(a.ElementWidth))
	width, ok := ft.AlignedWidthBits()
	accessor := emit.BufferAccessor(c.Endian, width, ok)

	label := c.DisplayName
	if a.PadToSize != nil {
		label += " (Padded)"
	}
	w.Pf("local %s_subtree = tree:add(buf(offset, 0), %s)", c.Abbr, luaStringLit(label))
	w.Pf("local %s_start = offset", c.Abbr)
	countExpr, _ := arrayCountExpr(a.ArrayAttrs)
	switch {
	case a.Count != nil || (a.SizeFieldRef != "" && a.SizeFieldIsCount):
		w.Pf("local %s_count = %s", c.Abbr, countExpr)
	case a.SizeFieldRef != "":
		w.Pf("local %s_count = math.floor((%s) / %d)", c.Abbr, countExpr, elemOctets)
	default:
		w.Pf("local %s_count = math.floor((buf:len() - offset) / %d)", c.Abbr, elemOctets)
	}
	w.Pf("for %s_i = 1, %s_count do", c.Abbr, c.Abbr)
	w.Indent()
	w.Pf("local %s_range = buf(offset, %d)", c.Abbr, elemOctets)
	w.Pf("%s_subtree:add(%s_range, %s_range:%s())", c.Abbr, c.Abbr, c.Abbr, accessor)
	w.Pf("offset = offset + %d", elemOctets)
	w.Unindent()
	w.P("end")

	if a.PadToSize != nil {
		w.Pf("local %s_span = offset - %s_start", c.Abbr, c.Abbr)
		w.Pf("if %s_span < %d then", c.Abbr, *a.PadToSize)
		w.Indent()
		w.Pf(`tree:add_expert_info(PI_MALFORMED, PI_WARN, %s)`, luaStringLit(fmt.Sprintf("Expected a minimum of %d octets in field %s", *a.PadToSize, c.DisplayName)))
		w.Unindent()
		w.P("end")
		w.Pf("offset = %s_start + %d", c.Abbr, *a.PadToSize)
	}
}

func emitTypedefArrayDissect(w *emit.Writer, declName string, c *model.CommonField, a *model.TypedefArray) {
	label := c.DisplayName
	if a.PadToSize != nil {
		label += " (Padded)"
	}
	w.Pf("local %s_subtree = tree:add(buf(offset, 0), %s)", c.Abbr, luaStringLit(label))
	w.Pf("local %s_start = offset", c.Abbr)
	countExpr, bounded := arrayCountExpr(a.ArrayAttrs)
	switch {
	case bounded && (a.Count != nil || a.SizeFieldIsCount):
		w.Pf("local %s_count = %s", c.Abbr, countExpr)
		w.Pf("for %s_i = 1, %s_count do", c.Abbr, c.Abbr)
		w.Indent()
		w.Pf("offset = %s_dissect(buf, pinfo, %s_subtree, path .. %s .. %s_i, offset)",
			luaIdent(a.TypeName), c.Abbr, luaStringLit(fmt.Sprintf(".%s.", c.Abbr)), c.Abbr)
		w.Unindent()
		w.P("end")
	case bounded:
		// byte-size sibling: loop by remaining declared bytes rather than a
		// fixed count, since element width may not be statically known.
		w.Pf("local %s_end = %s_start + (%s)", c.Abbr, c.Abbr, countExpr)
		w.Pf("local %s_i = 1", c.Abbr)
		w.Pf("while offset < %s_end do", c.Abbr)
		w.Indent()
		w.Pf("offset = %s_dissect(buf, pinfo, %s_subtree, path .. %s .. %s_i, offset)",
			luaIdent(a.TypeName), c.Abbr, luaStringLit(fmt.Sprintf(".%s.", c.Abbr)), c.Abbr)
		w.Pf("%s_i = %s_i + 1", c.Abbr, c.Abbr)
		w.Unindent()
		w.P("end")
	default:
		w.Pf("local %s_i = 1", c.Abbr)
		w.P("while offset < buf:len() do")
		w.Indent()
		w.Pf("offset = %s_dissect(buf, pinfo, %s_subtree, path .. %s .. %s_i, offset)",
			luaIdent(a.TypeName), c.Abbr, luaStringLit(fmt.Sprintf(".%s.", c.Abbr)), c.Abbr)
		w.Pf("%s_i = %s_i + 1", c.Abbr, c.Abbr)
		w.Unindent()
		w.P("end")
	}

	if a.PadToSize != nil {
		w.Pf("local %s_span = offset - %s_start", c.Abbr, c.Abbr)
		w.Pf("if %s_span < %d then", c.Abbr, *a.PadToSize)
		w.Indent()
		w.Pf(`tree:add_expert_info(PI_MALFORMED, PI_WARN, %s)`, luaStringLit(fmt.Sprintf("Expected a minimum of %d octets in field %s", *a.PadToSize, c.DisplayName)))
		w.Unindent()
		w.P("end")
		w.Pf("offset = %s_start + %d", c.Abbr, *a.PadToSize)
	}
}
