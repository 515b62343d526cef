package model

import (
	"fmt"

	"github.com/oakmoss/pdl2lua/internal/ast"
	"github.com/oakmoss/pdl2lua/internal/lenalg"
)

// ConstraintModel is the sealed interface for a lowered group/inheritance
// constraint (spec §9 Design Notes: preserved as a standalone
// match-constraints predicate rather than folded into field dissection).
type ConstraintModel interface {
	constraintModel()
	// ToLuaExpr renders the boolean Lua expression that tests this
	// constraint against field_values keyed under path.
	ToLuaExpr(pathVar string) string
}

// ValueMatch asserts a field's runtime value equals a literal.
type ValueMatch struct {
	FieldAbbr string
	Value     int
}

func (ValueMatch) constraintModel() {}
func (c ValueMatch) ToLuaExpr(pathVar string) string {
	return fmt.Sprintf("field_values[%s .. \".%s\"] == %d", pathVar, c.FieldAbbr, c.Value)
}

// EnumMatch asserts an enum-typed field's runtime value equals a named tag
// of its enum type, via that enum's ProtoEnum:match (spec §4.F).
type EnumMatch struct {
	FieldAbbr string
	EnumName  string
	TagID     string
}

func (EnumMatch) constraintModel() {}
func (c EnumMatch) ToLuaExpr(pathVar string) string {
	return fmt.Sprintf("%s_enum:match(%q, field_values[%s .. \".%s\"])", c.EnumName, c.TagID, pathVar, c.FieldAbbr)
}

// Sequence is a lowered packet/struct/group declaration: an ordered field
// list plus the constraints (own and inherited) that gate whether a given
// instance matches this declaration, per spec §4.D.
type Sequence struct {
	NameValue   string
	Fields      []FieldModel
	Constraints []ConstraintModel
	Len         lenalg.RuntimeLen
	CommentText string
}

func (*Sequence) declModel() {}
func (d *Sequence) Name() string                { return d.NameValue }
func (d *Sequence) DeclLen() lenalg.RuntimeLen   { return d.Len }
func (d *Sequence) DebugComment(verbose bool) string {
	if !verbose {
		if d.CommentText != "" {
			return d.CommentText
		}
		return fmt.Sprintf("Sequence: %s", d.NameValue)
	}
	return fmt.Sprintf("Sequence{Name:%q Fields:%d Constraints:%d}", d.NameValue, len(d.Fields), len(d.Constraints))
}

// Enum is a lowered enum declaration: a width plus an ordered tag list,
// already expanded with the catch-all "unknown" arm per invariant I4.
type Enum struct {
	NameValue   string
	Width       lenalg.BitLen
	Tags        []ast.Tag
	CommentText string
}

func (*Enum) declModel() {}
func (d *Enum) Name() string              { return d.NameValue }
func (d *Enum) DeclLen() lenalg.RuntimeLen { return lenalg.Fixed(d.Width) }
func (d *Enum) DebugComment(verbose bool) string {
	if !verbose {
		if d.CommentText != "" {
			return d.CommentText
		}
		return fmt.Sprintf("Enum: %s", d.NameValue)
	}
	return fmt.Sprintf("Enum{Name:%q Width:%d Tags:%d}", d.NameValue, d.Width, len(d.Tags))
}

// Checksum is a lowered checksum declaration: a fixed-width field whose
// dissect function reads and records its value. The bytes it covers from
// the ChecksumStart marker are not validated against it.
type Checksum struct {
	NameValue   string
	Width       lenalg.BitLen
	Endian      ast.Endianness
	CommentText string
}

func (*Checksum) declModel() {}
func (d *Checksum) Name() string              { return d.NameValue }
func (d *Checksum) DeclLen() lenalg.RuntimeLen { return lenalg.Fixed(d.Width) }
func (d *Checksum) DebugComment(verbose bool) string {
	if !verbose {
		if d.CommentText != "" {
			return d.CommentText
		}
		return fmt.Sprintf("Checksum: %s", d.NameValue)
	}
	return fmt.Sprintf("Checksum{Name:%q Width:%d Endian:%v}", d.NameValue, d.Width, d.Endian)
}
