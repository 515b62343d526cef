// Package model implements the dissector model (spec component D): the
// intermediate representation that lowering (component E) produces and the
// code emitter (component F) consumes. Unlike the external ast package,
// model is entirely ours to design, so it follows spec §9's Design Notes
// literally: DeclModel and FieldModel are sealed Go interfaces with a small
// set of concrete implementations and exhaustive type-switch dispatch,
// instead of tagged structs — there is no external boundary here to mirror,
// and a type switch makes an unhandled variant a compile-time-adjacent,
// reviewable gap (a missing case) rather than a silently-wrong zero value.
package model

import (
	"fmt"

	"github.com/oakmoss/pdl2lua/internal/ast"
	"github.com/oakmoss/pdl2lua/internal/lenalg"
)

// DeclModel is the sealed interface for a lowered top-level declaration.
// Implementations: *Sequence, *Enum, *Checksum.
type DeclModel interface {
	declModel()
	// Name returns the declaration's identifier.
	Name() string
	// DeclLen returns the declaration's total runtime length.
	DeclLen() lenalg.RuntimeLen
	// DebugComment renders the comment line emitted above this
	// declaration's generated Lua, switching to a one-line struct-style
	// summary (name plus field/tag counts or width) when verbose is true
	// (the debug-mode verbose comments supplemental feature).
	DebugComment(verbose bool) string
}

// CommonField holds the state every FieldModel variant shares (spec §3
// CommonField).
type CommonField struct {
	DisplayName string
	Abbr        string
	BitOffset   lenalg.BitLen
	Endian      ast.Endianness
	Comment     string
}

// FieldModel is the sealed interface for a lowered field. Implementations:
// *Scalar, *Payload, *Typedef, *TypedefArray, *ScalarArray,
// *ChecksumStart.
type FieldModel interface {
	fieldModel()
	// Common returns the shared per-field state.
	Common() *CommonField
	// Len returns the field's own runtime length.
	Len() lenalg.RuntimeLen
	// DebugComment renders the comment line emitted above this field's
	// generated dissect statements.
	DebugComment(verbose bool) string
}

func defaultFieldComment(kind string, c *CommonField, verbose bool, extra string) string {
	if !verbose {
		if c.Comment != "" {
			return c.Comment
		}
		return fmt.Sprintf("%s: %s", kind, c.DisplayName)
	}
	return fmt.Sprintf("%s{DisplayName:%q Abbr:%q BitOffset:%d Endian:%v%s}",
		kind, c.DisplayName, c.Abbr, c.BitOffset, c.Endian, extra)
}

// OptionalGate is a (flag-field, value) pair gating a Scalar or Typedef
// field: the field is only dissected when the named Flag sibling's
// already-captured runtime value equals Value (spec §3/§4.E Flag rule).
type OptionalGate struct {
	FlagAbbr string
	Value    int
}

// Validation is a Scalar's post-dissect check (spec §4.D Scalar.validate):
// Expr is the Lua boolean expression evaluated against the field's own
// dissected value, negated and warned on by codegen; Desc is the
// human-readable condition text attached to the warning, phrased the way
// spec.md's S4 scenario requires ("value == 42") independent of the
// field's actual Lua variable name.
type Validation struct {
	Expr string
	Desc string
}

// Scalar is a plain fixed- or runtime-width integer field (spec §4.D/E).
// FixedScalar, FixedEnum and Reserved fields all lower to a Scalar with
// Validate/DisplayName set accordingly (spec §4.E).
type Scalar struct {
	CommonField
	Width lenalg.RuntimeLen // bit width; Bounded with no refs for a fixed-width scalar
	// Validate, non-nil for FixedScalar/FixedEnum fields, is the
	// post-dissect check whose failure is reported as a malformed warning
	// (spec §7(b)).
	Validate *Validation
	// OptionalGate, non-nil, gates this field's dissection on a preceding
	// Flag sibling's runtime value.
	OptionalGate *OptionalGate
}

func (*Scalar) fieldModel() {}
func (f *Scalar) Common() *CommonField { return &f.CommonField }
func (f *Scalar) Len() lenalg.RuntimeLen { return f.Width }
func (f *Scalar) DebugComment(verbose bool) string {
	return defaultFieldComment("Scalar", &f.CommonField, verbose, "")
}

// Payload is an unresolved-length trailing byte range (spec §4.D Payload/
// Body field kinds). Children names the candidate child Sequences a Body
// field dispatches to by testing each one's *_match_constraints predicate
// against the parent's captured field_values (spec §4.F Payload dispatch);
// empty for a plain _payload_ field, which is always dissected as an opaque
// blob.
type Payload struct {
	CommonField
	SizeExpr lenalg.RuntimeLen
	Children []string
}

func (*Payload) fieldModel() {}
func (f *Payload) Common() *CommonField { return &f.CommonField }
func (f *Payload) Len() lenalg.RuntimeLen { return f.SizeExpr }
func (f *Payload) DebugComment(verbose bool) string {
	return defaultFieldComment("Payload", &f.CommonField, verbose, "")
}

// TypedefKind discriminates what kind of declaration a Typedef field
// delegates to, since each dissects differently (spec §4.F Typedef rule):
// a Sequence recurses into its own *_dissect, an Enum reads a bit-sized
// value and resolves it against the enum's tag table, a Checksum recurses
// into the checksum's own *_dissect, which reads an integer value (not
// opaque bytes).
type TypedefKind int

const (
	TypedefSequence TypedefKind = iota
	TypedefEnum
	TypedefChecksum
)

// Typedef is a field whose type is another declaration (struct, enum, or
// checksum), dissected according to TargetKind.
type Typedef struct {
	CommonField
	TypeName     string
	TypeLen      lenalg.RuntimeLen
	TargetKind   TypedefKind
	OptionalGate *OptionalGate
}

func (*Typedef) fieldModel() {}
func (f *Typedef) Common() *CommonField { return &f.CommonField }
func (f *Typedef) Len() lenalg.RuntimeLen { return f.TypeLen }
func (f *Typedef) DebugComment(verbose bool) string {
	return defaultFieldComment("Typedef", &f.CommonField, verbose, fmt.Sprintf(" TypeName:%q", f.TypeName))
}

// ArrayAttrs holds the size-resolution state shared by ScalarArray and
// TypedefArray (spec §3 ArrayAttrs).
type ArrayAttrs struct {
	// Count is the fixed element count, nil if dynamic.
	Count *int
	// SizeFieldRef names the sibling Size/Count field governing this
	// array's extent, empty if Count is set or the array is unbounded.
	SizeFieldRef string
	// SizeFieldIsCount is true when SizeFieldRef counts elements rather
	// than bytes.
	SizeFieldIsCount bool
	// PadToSize, if non-nil, folds a following Padding field into this
	// array's declared size (spec §4.E padding-fold rule).
	PadToSize *int
}

// ScalarArray is a fixed-element-width array of scalars.
type ScalarArray struct {
	CommonField
	ArrayAttrs
	ElementWidth lenalg.BitLen
	TotalLen     lenalg.RuntimeLen
}

func (*ScalarArray) fieldModel() {}
func (f *ScalarArray) Common() *CommonField { return &f.CommonField }
func (f *ScalarArray) Len() lenalg.RuntimeLen { return f.TotalLen }
func (f *ScalarArray) DebugComment(verbose bool) string {
	return defaultFieldComment("ScalarArray", &f.CommonField, verbose, fmt.Sprintf(" ElementWidth:%d", f.ElementWidth))
}

// TypedefArray is an array whose elements are each dissected by a typedef
// declaration's own dissect function.
type TypedefArray struct {
	CommonField
	ArrayAttrs
	TypeName        string
	ElementLen      lenalg.RuntimeLen // per-element length, when statically known
	TotalLen        lenalg.RuntimeLen
}

func (*TypedefArray) fieldModel() {}
func (f *TypedefArray) Common() *CommonField { return &f.CommonField }
func (f *TypedefArray) Len() lenalg.RuntimeLen { return f.TotalLen }
func (f *TypedefArray) DebugComment(verbose bool) string {
	return defaultFieldComment("TypedefArray", &f.CommonField, verbose, fmt.Sprintf(" TypeName:%q", f.TypeName))
}

// ChecksumStart marks the byte offset a later Checksum declaration's
// coverage begins at; it occupies zero bits on the wire.
type ChecksumStart struct {
	CommonField
	ChecksumName string
}

func (*ChecksumStart) fieldModel() {}
func (f *ChecksumStart) Common() *CommonField { return &f.CommonField }
func (f *ChecksumStart) Len() lenalg.RuntimeLen { return lenalg.Empty() }
func (f *ChecksumStart) DebugComment(verbose bool) string {
	return defaultFieldComment("ChecksumStart", &f.CommonField, verbose, fmt.Sprintf(" ChecksumName:%q", f.ChecksumName))
}
