package lower

import (
	"fmt"

	"github.com/oakmoss/pdl2lua/internal/ast"
	"github.com/oakmoss/pdl2lua/internal/diag"
	"github.com/oakmoss/pdl2lua/internal/lenalg"
	"github.com/oakmoss/pdl2lua/internal/model"
)

func (c *fieldCtx) common(f *ast.Field) model.CommonField {
	return model.CommonField{
		DisplayName: f.ID,
		Abbr:        f.ID,
		BitOffset:   c.bitOffset,
		Endian:      c.endian,
		Comment:     f.Comment,
	}
}

// indexedAbbr allocates the next "<kind>_<n>" abbreviation for a field that
// carries no identifier of its own (Reserved and FixedScalar/FixedEnum all
// lower to a Scalar that still needs a unique Lua variable name — spec
// §4.E: "allocate an index-suffixed abbr").
func (c *fieldCtx) indexedAbbr(kind string) string {
	c.fixedIdx++
	return fmt.Sprintf("%s_%d", kind, c.fixedIdx)
}

// optionalGate builds the (flag, value) gate for a field whose ast.Field
// named a governing Flag sibling via OptionalFieldID, validating that the
// named flag was actually declared in this sequence.
func (c *fieldCtx) optionalGate(f *ast.Field) (*model.OptionalGate, error) {
	if f.OptionalFieldID == "" {
		return nil, nil
	}
	if !c.flagIDs[f.OptionalFieldID] {
		return nil, diag.At(diag.BadInput, f.Loc, "field %q is gated on undeclared flag %q", f.ID, f.OptionalFieldID)
	}
	return &model.OptionalGate{FlagAbbr: f.OptionalFieldID, Value: f.OptionalValue}, nil
}

// targetKind classifies a resolved DeclModel for Typedef dissect dispatch
// (spec §4.F Typedef rule): a Sequence recurses into its own dissect
// function, an Enum reads a bit-sized value against its tag table, a
// Checksum recurses into the checksum's own dissect function, which reads
// an integer value (not opaque bytes).
func targetKind(m model.DeclModel) model.TypedefKind {
	switch m.(type) {
	case *model.Enum:
		return model.TypedefEnum
	case *model.Checksum:
		return model.TypedefChecksum
	default:
		return model.TypedefSequence
	}
}

// fieldToModel lowers one ast.Field per spec §4.E's per-kind rules. A nil,
// nil result means the field contributes no FieldModel of its own (only a
// group reference does this).
func (c *fieldCtx) fieldToModel(f *ast.Field) (model.FieldModel, error) {
	switch f.Kind {
	case ast.FieldScalar:
		gate, err := c.optionalGate(f)
		if err != nil {
			return nil, err
		}
		return &model.Scalar{CommonField: c.common(f), Width: lenalg.Fixed(lenalg.BitLen(f.Width)), OptionalGate: gate}, nil

	case ast.FieldFixedScalar:
		cf := c.common(f)
		cf.DisplayName = "Fixed value"
		cf.Abbr = c.indexedAbbr("fixed")
		return &model.Scalar{
			CommonField: cf,
			Width:       lenalg.Fixed(lenalg.BitLen(f.Width)),
			Validate: &model.Validation{
				Expr: fmt.Sprintf("%s == %d", cf.Abbr, f.Value),
				Desc: fmt.Sprintf("value == %d", f.Value),
			},
		}, nil

	case ast.FieldTypedef:
		return c.lowerTypedef(f)

	case ast.FieldFixedEnum:
		return c.lowerFixedEnum(f)

	case ast.FieldReserved:
		cf := c.common(f)
		cf.DisplayName = "Reserved"
		cf.Abbr = c.indexedAbbr("reserved")
		return &model.Scalar{CommonField: cf, Width: lenalg.Fixed(lenalg.BitLen(f.Width))}, nil

	case ast.FieldPadding:
		// Only reached when not folded into a preceding array field (see
		// lowerFieldList's fold pass); a standalone padding field is
		// malformed input per invariant I5.
		return nil, diag.At(diag.UnsupportedConstruct, f.Loc, "padding field does not follow an array field")

	case ast.FieldSize, ast.FieldCount:
		// Size/Count fields are dissected (they occupy wire bytes) but
		// carry the governed field's own identifier (see internal/pdl's
		// parser), since they have no name of their own on the wire; they
		// still need a Scalar FieldModel so their bytes are consumed and
		// recorded into field_values for the governed field's runtime
		// length expression. The abbr is suffixed (spec §4.E: "<id>_size"/
		// "<id>_count") so it never collides with the governed field's own
		// abbr (abbrOf).
		cf := c.common(f)
		cf.Abbr = abbrOf(f)
		if f.Kind == ast.FieldCount {
			cf.DisplayName = fmt.Sprintf("Count(%s)", f.ID)
		} else {
			cf.DisplayName = fmt.Sprintf("Size(%s)", f.ID)
		}
		return &model.Scalar{CommonField: cf, Width: lenalg.Fixed(lenalg.BitLen(f.Width))}, nil

	case ast.FieldFlag:
		return &model.Scalar{CommonField: c.common(f), Width: lenalg.Fixed(lenalg.BitLen(f.Width))}, nil

	case ast.FieldPayload, ast.FieldBody:
		return c.lowerPayload(f), nil

	case ast.FieldScalarArray:
		return c.lowerScalarArray(f), nil

	case ast.FieldTypedefArray:
		return c.lowerTypedefArray(f)

	case ast.FieldChecksumStart:
		return &model.ChecksumStart{CommonField: c.common(f), ChecksumName: f.TypeID}, nil

	case ast.FieldGroup:
		// A group reference contributes no FieldModel of its own at this
		// layer. ast.Scope.Fields replaces group references with the group's
		// own DeclFields, so a full declaration's list never reaches here
		// with one; the constraints are picked up by sequenceConstraints
		// directly off the ast.Field. DeclOwnFields lowers a declaration's
		// unexpanded DeclFields, so there a group's fields are not dissected.
		return nil, nil

	case ast.FieldElementSize:
		// Open Question 1 (spec §9): ElementSize's runtime behavior is
		// left undefined by the distilled spec. Decision: reject outright.
		return nil, diag.At(diag.UnsupportedConstruct, f.Loc, "element_size fields are not supported")

	default:
		return nil, diag.At(diag.BadInput, f.Loc, "unknown field kind for %q", f.ID)
	}
}

func (c *fieldCtx) lowerTypedef(f *ast.Field) (model.FieldModel, error) {
	gate, err := c.optionalGate(f)
	if err != nil {
		return nil, err
	}
	target, err := c.lw.Decl(f.TypeID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		// custom_field: transparent Scalar of the declared width.
		d, _ := c.lw.scope.Lookup(f.TypeID)
		return &model.Scalar{CommonField: c.common(f), Width: lenalg.Fixed(lenalg.BitLen(d.Width)), OptionalGate: gate}, nil
	}
	return &model.Typedef{
		CommonField:  c.common(f),
		TypeName:     f.TypeID,
		TypeLen:      target.DeclLen(),
		TargetKind:   targetKind(target),
		OptionalGate: gate,
	}, nil
}

// lowerFixedEnum lowers a `_fixed_ = Tag : EnumType` field to a Scalar sized
// like the target enum, validated against the named tag via the enum's own
// ProtoEnum:match (spec §4.E FixedEnum rule).
func (c *fieldCtx) lowerFixedEnum(f *ast.Field) (model.FieldModel, error) {
	target, err := c.lw.Decl(f.TypeID)
	if err != nil {
		return nil, err
	}
	if target == nil {
		return nil, diag.At(diag.TypedefUnresolved, f.Loc, "fixed enum field references unresolved type %q", f.TypeID)
	}
	cf := c.common(f)
	cf.DisplayName = "Fixed value"
	cf.Abbr = c.indexedAbbr("fixed")
	return &model.Scalar{
		CommonField: cf,
		Width:       target.DeclLen(),
		Validate: &model.Validation{
			Expr: fmt.Sprintf("%s_enum:match(%q, %s)", f.TypeID, f.EnumTagID, cf.Abbr),
			Desc: fmt.Sprintf("value == %s.%s", f.TypeID, f.EnumTagID),
		},
	}, nil
}

func (c *fieldCtx) lowerPayload(f *ast.Field) model.FieldModel {
	size := lenalg.Unbounded()
	if f.SizeFieldID != "" {
		if sib, ok := c.sizeOf[f.SizeFieldID]; ok {
			size = lenalg.Empty().AddFieldRef(sib.abbr, lenalg.BitLen(sib.modifier*8))
		}
	}
	cf := c.common(f)
	cf.Abbr = "payload"
	cf.DisplayName = "Payload"
	var children []string
	if f.Kind == ast.FieldBody {
		cf.DisplayName = "Body"
		children = c.bodyDispatchChildren()
	}
	return &model.Payload{CommonField: cf, SizeExpr: size, Children: children}
}

// bodyDispatchChildren names the Sequence declarations that extend the
// current owner via PDL's `: ParentID` constraint-extension syntax — the
// candidate subtypes a `_body_` field's payload dispatches across (spec
// §4.F Payload dispatch).
func (c *fieldCtx) bodyDispatchChildren() []string {
	owner, ok := c.lw.scope.Lookup(c.ownerID)
	if !ok {
		return nil
	}
	var names []string
	for _, child := range c.lw.scope.Children(owner) {
		switch child.Kind {
		case ast.DeclPacket, ast.DeclStruct, ast.DeclGroup:
			names = append(names, child.ID)
		}
	}
	return names
}

// arrayLen resolves the has_count_sibling/has_size_sibling state spec §4.E
// requires ("Attach has_size_sibling = ∃ Size{field_id=id} and likewise for
// Count, scanned on the enclosing declaration's field list") and computes
// the array's total RuntimeLen.
//
// Two distinct reference shapes feed this: the implicit convention (a
// preceding _size_/_count_ field whose own target id equals this array
// field's id — c.sizeOf is keyed exactly that way, see lowerFieldList) and,
// when internal/pdl's facade records one, an explicit bracket reference to
// a named sibling field (`arr: T[+ref]`). Either way, the resolved
// ArrayAttrs.SizeFieldRef must be the referenced field's actual Lua abbr
// (its suffixed "<id>_size"/"<id>_count" form for a special Size/Count
// field, the declared id verbatim for a plain Scalar), since that's the
// field_values key codegen emits the sibling's value under — using the raw
// unsuffixed target id here would make the generated lookup always resolve
// to nil at runtime.
func (c *fieldCtx) arrayLen(f *ast.Field, elementLen lenalg.RuntimeLen) (lenalg.RuntimeLen, model.ArrayAttrs) {
	ref, isCount, modifier := f.SizeFieldID, f.SizeIsCount, 0
	if sib, ok := c.sizeOf[f.ID]; ok {
		ref, isCount, modifier = sib.abbr, sib.isCount, sib.modifier
	} else if ref != "" {
		if sib, ok := c.sizeOf[ref]; ok {
			ref, isCount, modifier = sib.abbr, sib.isCount, sib.modifier
		}
		// else: an explicit bracket reference to a plain Scalar sibling;
		// ref is already that sibling's own abbr, since a plain Scalar's
		// abbr is its declared id verbatim.
	}
	attrs := model.ArrayAttrs{Count: f.Count, SizeFieldRef: ref, SizeFieldIsCount: isCount}
	switch {
	case f.Count != nil:
		total := lenalg.Empty()
		for i := 0; i < *f.Count; i++ {
			total = total.Add(elementLen)
		}
		return total, attrs
	case ref != "" && !isCount:
		// byte-length sibling: the array's own length is exactly that
		// sibling's runtime value.
		return lenalg.Empty().AddFieldRef(ref, lenalg.BitLen(modifier*8)), attrs
	default:
		// element-count sibling (or nothing resolved): length isn't
		// expressible as a constant plus one sibling lookup when element
		// width may vary at runtime, so this is only exact for a fixed
		// per-element width; callers that need the exact runtime count
		// recompute it in codegen from SizeFieldRef directly rather than
		// from TotalLen.
		return lenalg.Unbounded(), attrs
	}
}

func (c *fieldCtx) lowerScalarArray(f *ast.Field) model.FieldModel {
	elemLen := lenalg.Fixed(lenalg.BitLen(f.ElementWidthBits))
	total, attrs := c.arrayLen(f, elemLen)
	return &model.ScalarArray{
		CommonField:  c.common(f),
		ArrayAttrs:   attrs,
		ElementWidth: lenalg.BitLen(f.ElementWidthBits),
		TotalLen:     total,
	}
}

func (c *fieldCtx) lowerTypedefArray(f *ast.Field) (model.FieldModel, error) {
	target, err := c.lw.Decl(f.TypeID)
	if err != nil {
		return nil, err
	}
	var elemLen lenalg.RuntimeLen
	if target != nil {
		elemLen = target.DeclLen()
	} else {
		elemLen = lenalg.Unbounded()
	}
	total, attrs := c.arrayLen(f, elemLen)
	return &model.TypedefArray{
		CommonField: c.common(f),
		ArrayAttrs:  attrs,
		TypeName:    f.TypeID,
		ElementLen:  elemLen,
		TotalLen:    total,
	}, nil
}
