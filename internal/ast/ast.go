// Package ast defines the facade AST that the PDL analyzer hands to this
// tool (spec §6.1): a fully resolved, already-validated description of one
// PDL file's declarations. Parsing and semantic analysis of PDL source text
// are out of scope for the core spec; internal/pdl supplies one concrete way
// to build this facade from text, but internal/lower and everything
// downstream depends only on these types.
//
// Declarations and fields are modeled as tagged structs (a Kind discriminant
// plus the fields relevant to that kind), mirroring descriptorpb's oneof
// convention in the teacher's own input type
// (FileDescriptorProto/FieldDescriptorProto) rather than as a Go interface
// hierarchy: this is the boundary of the system, supplied by an external
// analyzer, and the teacher models its own external boundary type the same
// tagged-struct way.
package ast

// Endianness is the byte order declared at file scope (PDL's
// little_endian_packets/big_endian_packets directive) and inherited by every
// scalar field unless overridden.
type Endianness int

const (
	LittleEndian Endianness = iota
	BigEndian
)

// DeclKind discriminates the kinds of top-level declaration spec §3 models.
type DeclKind int

const (
	DeclPacket DeclKind = iota
	DeclStruct
	DeclGroup
	DeclEnum
	DeclChecksum
	DeclCustomField
)

// FieldKind discriminates the kinds of field spec §3/§4.E classify and
// lower independently.
type FieldKind int

const (
	FieldScalar FieldKind = iota
	FieldTypedef
	FieldSize
	FieldCount
	FieldReserved
	FieldFixedScalar
	FieldFixedEnum
	FieldPayload
	FieldBody
	FieldPadding
	FieldScalarArray
	FieldTypedefArray
	FieldFlag
	FieldChecksumStart
	FieldElementSize
	FieldGroup
)

// SourceRange locates a declaration or comment in the original PDL text,
// for diagnostics.
type SourceRange struct {
	File      string
	StartLine int
	EndLine   int
}

// Comment is a standalone or trailing comment attached to a source line.
type Comment struct {
	Loc  SourceRange
	Text string
}

// SizeKind discriminates whether a packet/struct's total size is known at
// analysis time (spec §6.1 Annotation.Size).
type SizeKind int

const (
	SizeUnknown SizeKind = iota
	SizeStatic
	SizeDynamic
)

// Size is the analyzer's verdict on a declaration's total size.
type Size struct {
	Kind SizeKind
	Bits int // meaningful only when Kind == SizeStatic
}

// Annotation carries analyzer-computed facts about a declaration that this
// tool consumes but never derives itself (spec §6.1).
type Annotation struct {
	Size Size
}

// TagKind discriminates an enum's value tags (spec §3 Tag).
type TagKind int

const (
	TagValue TagKind = iota
	TagRange
	TagOther // the catch-all / "unknown" arm, per invariant I4
)

// Tag is one entry of an enum declaration.
type Tag struct {
	Kind TagKind
	ID   string
	// Value is meaningful for TagValue.
	Value int
	// RangeStart/RangeEnd are meaningful for TagRange (inclusive).
	RangeStart int
	RangeEnd   int
}

// Constraint is a group-field's constraint that a referenced field or enum
// tag in the inlined group must hold its declared value (spec §3
// ConstraintModel source form, §9 Design Notes: "preserve the standalone
// match-constraints predicate" resolution of the group-constraint open
// question).
type Constraint struct {
	// ID is the constrained field's identifier.
	ID string
	// Value is set when the constraint pins a literal value.
	Value *int
	// TagID is set when the constraint pins a named enum tag instead of a
	// literal value.
	TagID *string
}

// Field is one field of a Decl, modeled as a tagged struct: Kind selects
// which of the fields below are meaningful, following spec §3's CommonField
// + per-kind-payload shape and the teacher's FieldDescriptorProto
// convention of "one struct, Kind-gated optional members".
type Field struct {
	Kind FieldKind
	Loc  SourceRange

	// ID is the field's own identifier. Empty for Reserved/Padding/Body.
	ID string

	// TypeID names the referenced Decl for Typedef/TypedefArray/FixedEnum
	// fields (a struct, enum, or custom_field).
	TypeID string

	// Width is the bit width for Scalar/FixedScalar/Size/Count/Reserved/
	// Flag fields. ScalarArray element widths are in ElementWidthBits and
	// Padding sizes in PadToSize.
	Width int

	// Value is the fixed value for FixedScalar, or the fixed enum tag's
	// underlying integer for FixedEnum when known.
	Value int
	// EnumTagID is the fixed enum tag's identifier for FixedEnum fields.
	EnumTagID string

	// SizeModifier (count/size fields only) is a signed constant added to
	// the referenced sibling field's runtime value before it is used as a
	// size/count, e.g. +1 for `_size_(x + 1)`, where the wire stores one less
	// than the real size.
	SizeModifier int

	// SizeFieldID, for an array field declared with an explicit `[+ref]`
	// bracket, names the sibling field ref points at. Empty for an array
	// declared with a bare `[]` or a literal `[N]` count; in the bare-bracket
	// case a governing Size/Count sibling is instead resolved implicitly by
	// lowering, which scans the enclosing declaration's field list for a
	// Size/Count field whose own target id matches this array field's id
	// (PDL's size/count-field-precedes-array-field convention — see
	// internal/lower.fieldCtx.arrayLen).
	SizeFieldID string
	// SizeIsCount is set by the parser for every `[+ref]` array. Lowering
	// does not trust it when the referenced sibling is a Size/Count field of
	// the same declaration: it takes count-vs-size from that field's kind.
	SizeIsCount bool

	// Count is a compile-time-fixed element count for ScalarArray/
	// TypedefArray fields declared with a literal count instead of a
	// sibling Count field. Nil when the count is dynamic.
	Count *int

	// ElementWidthBits is the per-element bit width for a ScalarArray.
	ElementWidthBits int

	// PadToSize is the target byte size for a Padding field.
	PadToSize int

	// OptionalFieldID + OptionalValue gate a Flag-controlled optional
	// field: when set, this field is only present when the named Flag
	// field's value equals OptionalValue. Populated by internal/pdl from the
	// `name?(flag = value): ...` field form.
	OptionalFieldID string
	OptionalValue   int

	// GroupID names the Group declaration a Group-kind field inlines.
	GroupID string
	// GroupConstraints pins values/tags on fields inside the inlined group.
	GroupConstraints []Constraint

	// Comment is the trailing or leading same-line comment text, if any.
	Comment string
}

// Decl is one top-level declaration, modeled the same tagged-struct way as
// Field.
type Decl struct {
	ID   string
	Kind DeclKind
	Loc  SourceRange

	// Width is the enum/checksum/custom_field's bit width.
	Width int

	// Tags holds an Enum's value tags.
	Tags []Tag

	// ParentID names the struct/packet this declaration inherits from via
	// PDL's `: ParentID` constraint-extension syntax, empty if none.
	ParentID string
	// InheritConstraints pins values/tags on the parent's fields, set when
	// ParentID != "".
	InheritConstraints []Constraint

	// DeclFields is this declaration's own field list, in source order. For
	// a declaration with ParentID set, this does not include the parent's
	// fields; see Scope.Fields for the flattened view.
	DeclFields []*Field

	// Annotation carries the analyzer's size verdict (spec §6.1).
	Annotation Annotation

	Comment string
}

// File is one parsed-and-analyzed PDL source file: the facade's top-level
// type, and internal/lower's sole entry point.
type File struct {
	Endianness   Endianness
	Declarations []*Decl
	Comments     []Comment
}
